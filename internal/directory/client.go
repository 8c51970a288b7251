package directory

import (
	"context"
	"time"

	"github.com/opsdesk/workspace-bot/internal/domain"
)

// Client is the directory contract consumed by the orchestrators. Errors
// returned by implementations are always *Error values from this package.
//
// All methods are safe for concurrent use from independent request-handling
// goroutines.
type Client interface {
	// CreateAccount provisions a new account with the given temporary
	// password and the force-change-at-next-login flag set.
	CreateAccount(ctx context.Context, req domain.AccountRequest, password string) (*domain.DirectoryAccount, error)

	// SetSuspended suspends or unsuspends an account. Suspending an
	// already-suspended account is not an error.
	SetSuspended(ctx context.Context, email string, suspended bool) error

	// UpdatePassword replaces the account password. When forceChange is
	// true the user must change it at next login.
	UpdatePassword(ctx context.Context, email, password string, forceChange bool) error

	// GetAccount fetches one account by primary email.
	GetAccount(ctx context.Context, email string) (*domain.DirectoryAccount, error)

	// ForEachAccount streams every account in the domain, transparently
	// following provider pagination. It stops early when fn returns false.
	// A fresh call re-pages from the start; the stream is not restartable
	// mid-flight.
	ForEachAccount(ctx context.Context, fn func(domain.DirectoryAccount) bool) error
}

// withRetry runs fn and retries it exactly once if the classified failure is
// transient. Retrying anything else, or retrying more than once, is the
// caller's decision, not the adapter's.
func withRetry(ctx context.Context, op string, fn func() error) error {
	err := classify(op, fn())
	if err == nil || !IsTransient(err) {
		return err
	}
	select {
	case <-time.After(250 * time.Millisecond):
	case <-ctx.Done():
		return err
	}
	return classify(op, fn())
}
