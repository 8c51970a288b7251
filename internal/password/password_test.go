package password

import (
	"strings"
	"testing"
)

func TestGenerate_DefaultLength(t *testing.T) {
	g := New()
	p, err := g.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(p) != DefaultLength {
		t.Fatalf("len = %d; want %d", len(p), DefaultLength)
	}
}

func TestGenerate_ConfigurableLength(t *testing.T) {
	for _, n := range []int{1, 8, 20, 64} {
		g := New(WithLength(n))
		p, err := g.Generate()
		if err != nil {
			t.Fatalf("Generate(len=%d): %v", n, err)
		}
		if len(p) != n {
			t.Fatalf("len = %d; want %d", len(p), n)
		}
	}
}

func TestGenerate_CharsetMembership(t *testing.T) {
	g := New(WithCharset("abc123"), WithLength(200))
	p, err := g.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, c := range p {
		if !strings.ContainsRune("abc123", c) {
			t.Fatalf("character %q outside configured charset", c)
		}
	}
}

func TestGenerate_NoCollisions(t *testing.T) {
	g := New()
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		p, err := g.Generate()
		if err != nil {
			t.Fatalf("Generate #%d: %v", i, err)
		}
		if _, dup := seen[p]; dup {
			t.Fatalf("duplicate password after %d generations: %q", i, p)
		}
		seen[p] = struct{}{}
	}
}

func TestGenerate_InvalidConfig(t *testing.T) {
	if _, err := New(WithLength(0)).Generate(); err == nil {
		t.Error("zero length accepted")
	}
	if _, err := New(WithCharset("x")).Generate(); err == nil {
		t.Error("single-character charset accepted")
	}
}
