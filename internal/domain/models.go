// Package domain defines the core value types exchanged between the chat
// transport, the orchestration services, and the provider adapters: account
// requests, directory accounts, and audit records. None of these types are
// persisted locally; the directory provider owns account state and the
// audit sink owns history.
package domain

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// Caller identifies the chat user invoking an operation.
type Caller struct {
	// Username is the chat handle, without a leading "@".
	Username string
	// ID is the numeric chat user id.
	ID int64
}

// String renders the caller for operator logs.
func (c Caller) String() string {
	return fmt.Sprintf("%s (%d)", c.Username, c.ID)
}

// AccountRequest is the normalized form of an account-provisioning request,
// produced by the extractor from either a free-text message or positional
// command arguments. It is created per incoming request and consumed once.
//
// All fields except Comment are required; Validate enforces this rather than
// applying silent defaults.
type AccountRequest struct {
	GivenName     string
	FamilyName    string
	PrimaryEmail  string // desired directory login
	RecoveryEmail string
	Comment       string
	RequestedBy   Caller
	RequestedAt   time.Time
}

// FullName returns "GivenName FamilyName".
func (r AccountRequest) FullName() string {
	return r.GivenName + " " + r.FamilyName
}

// Validation errors returned by AccountRequest.Validate.
var (
	ErrMissingName       = errors.New("given name and family name are required")
	ErrMissingEmail      = errors.New("desired email is required")
	ErrMissingRecovery   = errors.New("recovery email is required")
	ErrInvalidEmail      = errors.New("email address is not valid")
	ErrSameRecoveryEmail = errors.New("recovery email must differ from the desired email")
)

// Validate checks the required-field and email-syntax invariants.
// Comment may be empty; everything else must be present and well formed,
// and the recovery email must differ from the desired login.
func (r AccountRequest) Validate() error {
	if strings.TrimSpace(r.GivenName) == "" || strings.TrimSpace(r.FamilyName) == "" {
		return ErrMissingName
	}
	if strings.TrimSpace(r.PrimaryEmail) == "" {
		return ErrMissingEmail
	}
	if strings.TrimSpace(r.RecoveryEmail) == "" {
		return ErrMissingRecovery
	}
	for _, addr := range []string{r.PrimaryEmail, r.RecoveryEmail} {
		if !ValidEmail(addr) {
			return fmt.Errorf("%w: %s", ErrInvalidEmail, addr)
		}
	}
	if strings.EqualFold(r.PrimaryEmail, r.RecoveryEmail) {
		return ErrSameRecoveryEmail
	}
	return nil
}

// ValidEmail reports whether s is a plain RFC 5322 address (no display name).
func ValidEmail(s string) bool {
	a, err := mail.ParseAddress(s)
	return err == nil && a.Address == s
}

// DirectoryAccount mirrors the provider-owned account record. The directory
// provider is the source of truth; this system never stores a local copy.
type DirectoryAccount struct {
	PrimaryEmail  string // unique key
	GivenName     string
	FamilyName    string
	RecoveryEmail string
	Suspended     bool
	CreatedAt     time.Time
	LastLoginAt   *time.Time // nil when the user has never logged in
}

// FullName returns "GivenName FamilyName".
func (a DirectoryAccount) FullName() string {
	return a.GivenName + " " + a.FamilyName
}

// OperationKind distinguishes how a request arrived.
type OperationKind string

// Operation kinds recorded in audit rows.
const (
	OpCommand OperationKind = "command"
	OpMessage OperationKind = "message"
)

// AuditRecord is one append-only row per user-facing operation attempt.
// Appending it is best-effort: a failed append must never abort the
// underlying operation.
type AuditRecord struct {
	Timestamp      time.Time
	CallerUsername string
	CallerID       int64
	Kind           OperationKind
	Content        string // raw message text or command line
	Handler        string // e.g. "adduser", "suspend"
}
