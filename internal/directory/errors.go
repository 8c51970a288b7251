// Package directory is the adapter for the identity provider: creating,
// suspending, updating, fetching, and listing directory accounts.
//
// This file defines the error taxonomy the rest of the system sees. Raw
// provider errors never cross the adapter boundary; every failure is
// classified into one of the kinds below before it reaches an orchestrator.
package directory

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/api/googleapi"
)

// Kind classifies a directory failure.
type Kind int

// Directory error kinds.
const (
	// KindTransient covers timeouts, network failures, and provider 5xx
	// responses. The caller may retry the whole operation.
	KindTransient Kind = iota
	// KindNotFound means no account exists under the given email.
	KindNotFound
	// KindAlreadyExists means an account with the email already exists.
	KindAlreadyExists
	// KindRateLimited means the provider refused the call due to quota.
	KindRateLimited
	// KindFatal covers misconfiguration and any provider rejection that a
	// retry will not fix. Operator attention is required.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindNotFound:
		return "not_found"
	case KindAlreadyExists:
		return "already_exists"
	case KindRateLimited:
		return "rate_limited"
	case KindFatal:
		return "fatal"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a classified directory failure.
type Error struct {
	Kind Kind
	Op   string // adapter operation, e.g. "insert", "list"
	Err  error  // underlying provider error, operator-log only
}

func (e *Error) Error() string {
	return fmt.Sprintf("directory %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of a directory error, or KindFatal for any error
// that is not a *Error (nothing else should escape the adapter).
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindFatal
}

// IsNotFound reports whether err is a KindNotFound directory error.
func IsNotFound(err error) bool { return is(err, KindNotFound) }

// IsAlreadyExists reports whether err is a KindAlreadyExists directory error.
func IsAlreadyExists(err error) bool { return is(err, KindAlreadyExists) }

// IsRateLimited reports whether err is a KindRateLimited directory error.
func IsRateLimited(err error) bool { return is(err, KindRateLimited) }

// IsTransient reports whether err is a KindTransient directory error.
func IsTransient(err error) bool { return is(err, KindTransient) }

func is(err error, k Kind) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == k
}

// classify wraps a provider error into a *Error with the proper kind.
// Returns nil for a nil error.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kindFor(err), Op: op, Err: err}
}

func kindFor(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return KindTransient
	}
	var ge *googleapi.Error
	if errors.As(err, &ge) {
		switch {
		case ge.Code == 404:
			return KindNotFound
		case ge.Code == 409:
			return KindAlreadyExists
		case ge.Code == 429:
			return KindRateLimited
		case ge.Code == 403 && quotaReason(ge):
			return KindRateLimited
		case ge.Code >= 500:
			return KindTransient
		default:
			// 400/401/403(auth)/412 and friends: retrying will not help.
			return KindFatal
		}
	}
	// Unclassified transport-level failure.
	return KindTransient
}

// quotaReason reports whether a 403 carries a quota/rate reason rather than
// a permission problem.
func quotaReason(ge *googleapi.Error) bool {
	for _, item := range ge.Errors {
		switch item.Reason {
		case "rateLimitExceeded", "userRateLimitExceeded", "quotaExceeded", "dailyLimitExceeded":
			return true
		}
	}
	return false
}
