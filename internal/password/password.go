// Package password generates temporary account credentials from a
// cryptographically secure random source.
package password

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Defaults for generated credentials.
const (
	DefaultLength  = 12
	DefaultCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
		"abcdefghijklmnopqrstuvwxyz" +
		"0123456789" +
		"!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"
)

// Generator produces random passwords of a fixed length drawn uniformly
// from a charset. The zero value is not usable; construct with New.
type Generator struct {
	length  int
	charset string
}

// Option customizes a Generator.
type Option func(*Generator)

// WithLength overrides the password length.
func WithLength(n int) Option {
	return func(g *Generator) { g.length = n }
}

// WithCharset overrides the character set.
func WithCharset(cs string) Option {
	return func(g *Generator) { g.charset = cs }
}

// New returns a Generator with the default length and charset, modified by
// the given options.
func New(opts ...Option) *Generator {
	g := &Generator{length: DefaultLength, charset: DefaultCharset}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Length returns the configured password length.
func (g *Generator) Length() int { return g.length }

// Generate returns a new random password. Each character is drawn uniformly
// from the charset via crypto/rand, so there is no modulo bias.
func (g *Generator) Generate() (string, error) {
	if g.length <= 0 {
		return "", fmt.Errorf("password length must be positive, got %d", g.length)
	}
	if len(g.charset) < 2 {
		return "", fmt.Errorf("charset must contain at least 2 characters")
	}
	max := big.NewInt(int64(len(g.charset)))
	buf := make([]byte, g.length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		buf[i] = g.charset[n.Int64()]
	}
	return string(buf), nil
}
