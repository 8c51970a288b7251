// Package extract turns raw chat input into a normalized AccountRequest.
//
// Two entry shapes are supported: a free-text message ("John Smith\n
// john.smith@corp.com\njohn.personal@mail.com\nSales team") and positional
// command arguments (/adduser John Smith john.smith@corp.com ...). Both
// produce the same AccountRequest or fail with a *FormatError carrying a
// user-facing usage hint.
//
// Free-text bodies often start with greeting boilerplate ("Hi!", "We need a
// new member:"). A leading line is discarded when it contains one of a small
// fixed set of markers; the match is case-sensitive and only leading lines
// are ever dropped. The comment captures remaining lines 3..4 joined by a
// space; anything past line 4 is dropped.
package extract

import (
	"strings"
	"time"

	"github.com/opsdesk/workspace-bot/internal/domain"
)

// Usage hints surfaced to the chat caller on malformed input.
const (
	MessageUsage = "Please send me a message in the format:\n" +
		"Name Surname\nDesired email\nExisting email\nComment"
	CommandUsage = "Usage: /adduser <First Name> <Last Name> <Desired Email> <Secondary Email> [Comment]"
)

// Greeting markers checked against leading lines of a free-text body.
// Matching is a case-sensitive substring test, per stage.
var (
	greetingMarkers = []string{"Hey", "Hi"}
	introMarkers    = []string{"We need", "new member"}
)

// FormatError is a structured validation failure. Hint is safe to show to
// the chat caller; Reason is for operator logs.
type FormatError struct {
	Reason string
	Hint   string
}

func (e *FormatError) Error() string { return "invalid format: " + e.Reason }

// FromMessage parses a free-text message body into an AccountRequest.
//
// After boilerplate stripping the body must contain at least 4 non-empty
// lines: "First Last", desired email, recovery email, comment (line 5, when
// present, is appended to the comment).
func FromMessage(body string, caller domain.Caller, now time.Time) (domain.AccountRequest, error) {
	lines := nonEmptyLines(body)
	lines = stripLeading(lines, greetingMarkers)
	lines = stripLeading(lines, introMarkers)

	if len(lines) < 4 {
		return domain.AccountRequest{}, &FormatError{
			Reason: "fewer than 4 non-empty lines",
			Hint:   "I couldn't understand your message. " + MessageUsage,
		}
	}

	names := strings.Fields(lines[0])
	if len(names) != 2 {
		return domain.AccountRequest{}, &FormatError{
			Reason: "name line must be exactly two words",
			Hint:   "I couldn't understand your message. " + MessageUsage,
		}
	}

	comment := lines[3]
	if len(lines) > 4 {
		comment += " " + lines[4]
	}

	req := domain.AccountRequest{
		GivenName:     names[0],
		FamilyName:    names[1],
		PrimaryEmail:  lines[1],
		RecoveryEmail: lines[2],
		Comment:       comment,
		RequestedBy:   caller,
		RequestedAt:   now,
	}
	return req, validated(req, MessageUsage)
}

// FromArgs parses positional command arguments into an AccountRequest.
// At least 4 tokens are required; any remaining tokens become the comment.
func FromArgs(args []string, caller domain.Caller, now time.Time) (domain.AccountRequest, error) {
	if len(args) < 4 {
		return domain.AccountRequest{}, &FormatError{
			Reason: "fewer than 4 arguments",
			Hint:   CommandUsage,
		}
	}
	req := domain.AccountRequest{
		GivenName:     args[0],
		FamilyName:    args[1],
		PrimaryEmail:  args[2],
		RecoveryEmail: args[3],
		Comment:       strings.Join(args[4:], " "),
		RequestedBy:   caller,
		RequestedAt:   now,
	}
	return req, validated(req, CommandUsage)
}

// validated wraps domain validation failures in a FormatError so callers get
// a usage hint instead of a bare field error.
func validated(req domain.AccountRequest, hint string) error {
	if err := req.Validate(); err != nil {
		return &FormatError{Reason: err.Error(), Hint: hint}
	}
	return nil
}

// nonEmptyLines splits body on line breaks, trims each line, and drops
// blank ones.
func nonEmptyLines(body string) []string {
	raw := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		if t := strings.TrimSpace(l); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// stripLeading drops the first line when it contains any of the markers.
func stripLeading(lines []string, markers []string) []string {
	if len(lines) == 0 {
		return lines
	}
	for _, m := range markers {
		if strings.Contains(lines[0], m) {
			return lines[1:]
		}
	}
	return lines
}
