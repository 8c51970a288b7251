// Package notify composes and sends the credential-delivery email for a
// freshly provisioned account. Send failures are soft from the caller's
// point of view: the orchestrator reports them but never rolls back the
// created account.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// CredentialEmail carries everything needed to build one delivery.
type CredentialEmail struct {
	To         string // recovery address of the new account holder
	GivenName  string
	FamilyName string
	LoginEmail string // the new directory login
	Password   string // temporary credential
	ReplyTo    string // optional
}

// Sender delivers a credential email and returns the provider message id.
type Sender interface {
	SendCredentialEmail(ctx context.Context, m CredentialEmail) (string, error)
}

// Error is a classified notification failure. The underlying provider error
// stays operator-side.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("notify %s: %v", e.Op, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Subject of every credential email.
const Subject = "Access Details for Google Workspace Account"

// Body renders the fixed plaintext template with signature as the closing
// line.
func Body(m CredentialEmail, signature string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello, %s %s!\n\n", m.GivenName, m.FamilyName)
	b.WriteString("Here are your access details for the Google Workspace account:\n\n")
	b.WriteString("Login page: https://mail.google.com/\n")
	fmt.Fprintf(&b, "Username: %s\n", m.LoginEmail)
	fmt.Fprintf(&b, "Password: %s\n\n", m.Password)
	b.WriteString("Please log in and change your password immediately.\n\n")
	b.WriteString("Best regards,\n")
	b.WriteString(signature)
	b.WriteString("\n")
	return b.String()
}

// buildRFC822 assembles the full plaintext MIME message.
func buildRFC822(from string, m CredentialEmail, signature string, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", m.To)
	if m.ReplyTo != "" {
		fmt.Fprintf(&b, "Reply-To: %s\r\n", m.ReplyTo)
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", now.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(Body(m, signature))
	return b.String()
}
