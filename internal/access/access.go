// Package access holds the two read-only authorization data sets: the
// caller allow-list and the protected-account set. Both are built once at
// startup from configuration and are safe for concurrent use.
package access

import (
	"strings"

	"github.com/opsdesk/workspace-bot/internal/domain"
)

// Gate answers whether a caller may invoke any operation at all. It is a
// pure membership test against the configured allow-list of chat usernames.
type Gate struct {
	allowed map[string]struct{}
}

// NewGate builds a Gate from configured usernames. Entries are trimmed,
// lower-cased, and stripped of a leading "@" so the list tolerates both
// "@jane" and "jane".
func NewGate(usernames []string) *Gate {
	g := &Gate{allowed: make(map[string]struct{}, len(usernames))}
	for _, u := range usernames {
		u = normalizeUsername(u)
		if u != "" {
			g.allowed[u] = struct{}{}
		}
	}
	return g
}

// Authorized reports whether the caller is on the allow-list.
func (g *Gate) Authorized(c domain.Caller) bool {
	_, ok := g.allowed[normalizeUsername(c.Username)]
	return ok
}

// Len returns the number of allow-list entries. Used for startup sanity logs.
func (g *Gate) Len() int { return len(g.allowed) }

func normalizeUsername(u string) string {
	u = strings.TrimSpace(u)
	u = strings.TrimPrefix(u, "@")
	return strings.ToLower(u)
}

// ProtectedSet is the set of account emails exempt from suspension,
// password reset, and info disclosure through this system.
type ProtectedSet struct {
	emails map[string]struct{}
}

// NewProtectedSet builds a ProtectedSet from configured addresses.
// Matching is case-insensitive.
func NewProtectedSet(emails []string) *ProtectedSet {
	p := &ProtectedSet{emails: make(map[string]struct{}, len(emails))}
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			p.emails[e] = struct{}{}
		}
	}
	return p
}

// Contains reports whether email is protected.
func (p *ProtectedSet) Contains(email string) bool {
	_, ok := p.emails[strings.ToLower(strings.TrimSpace(email))]
	return ok
}

// Len returns the number of protected addresses.
func (p *ProtectedSet) Len() int { return len(p.emails) }
