package directory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	admin "google.golang.org/api/admin/directory/v1"
	"google.golang.org/api/googleapi"
)

func gerr(code int, reasons ...string) *googleapi.Error {
	ge := &googleapi.Error{Code: code, Message: "provider says no"}
	for _, r := range reasons {
		ge.Errors = append(ge.Errors, googleapi.ErrorItem{Reason: r})
	}
	return ge
}

func TestClassify_Kinds(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"404", gerr(404), KindNotFound},
		{"409", gerr(409), KindAlreadyExists},
		{"429", gerr(429), KindRateLimited},
		{"403 quota", gerr(403, "rateLimitExceeded"), KindRateLimited},
		{"403 user quota", gerr(403, "userRateLimitExceeded"), KindRateLimited},
		{"403 permission", gerr(403, "forbidden"), KindFatal},
		{"400", gerr(400), KindFatal},
		{"500", gerr(500), KindTransient},
		{"503", gerr(503), KindTransient},
		{"deadline", context.DeadlineExceeded, KindTransient},
		{"wrapped deadline", fmt.Errorf("do: %w", context.DeadlineExceeded), KindTransient},
		{"plain error", errors.New("connection reset"), KindTransient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := classify("get", tc.err)
			if got := KindOf(err); got != tc.want {
				t.Fatalf("KindOf = %v; want %v", got, tc.want)
			}
		})
	}
}

func TestClassify_Nil(t *testing.T) {
	if err := classify("get", nil); err != nil {
		t.Fatalf("classify(nil) = %v", err)
	}
}

func TestError_Unwrap(t *testing.T) {
	inner := gerr(404)
	err := classify("get", inner)
	var ge *googleapi.Error
	if !errors.As(err, &ge) || ge.Code != 404 {
		t.Fatalf("underlying provider error not reachable: %v", err)
	}
	if !IsNotFound(err) {
		t.Fatal("IsNotFound = false")
	}
}

func TestKindOf_ForeignError(t *testing.T) {
	if got := KindOf(errors.New("raw")); got != KindFatal {
		t.Fatalf("KindOf(non-directory error) = %v; want fatal", got)
	}
}

func TestWithRetry_TransientRetriedOnce(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), "insert", func() error {
		calls++
		if calls == 1 {
			return gerr(503)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("withRetry = %v; want nil after retry", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d; want 2", calls)
	}
}

func TestWithRetry_TransientFailsTwice(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), "insert", func() error {
		calls++
		return gerr(503)
	})
	if !IsTransient(err) {
		t.Fatalf("err = %v; want transient", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d; want exactly 2", calls)
	}
}

func TestWithRetry_NonTransientNotRetried(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), "insert", func() error {
		calls++
		return gerr(409)
	})
	if !IsAlreadyExists(err) {
		t.Fatalf("err = %v; want already_exists", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d; want 1", calls)
	}
}

func TestWithRetry_CanceledContextSkipsBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	err := withRetry(ctx, "insert", func() error { return gerr(500) })
	if !IsTransient(err) {
		t.Fatalf("err = %v; want transient", err)
	}
	if time.Since(start) > 200*time.Millisecond {
		t.Fatal("retry backoff not interrupted by canceled context")
	}
}

func TestToDomain(t *testing.T) {
	u := &admin.User{
		PrimaryEmail:  "ada@corp.com",
		Name:          &admin.UserName{GivenName: "Ada", FamilyName: "Lovelace"},
		RecoveryEmail: "ada@mail.com",
		Suspended:     true,
		CreationTime:  "2025-01-02T03:04:05.000Z",
		LastLoginTime: "2025-06-07T08:09:10.000Z",
	}
	acct := toDomain(u)
	if acct.PrimaryEmail != "ada@corp.com" || acct.GivenName != "Ada" || acct.FamilyName != "Lovelace" {
		t.Fatalf("identity fields: %+v", acct)
	}
	if !acct.Suspended {
		t.Fatal("suspended flag lost")
	}
	if acct.CreatedAt.IsZero() {
		t.Fatal("creation time not parsed")
	}
	if acct.LastLoginAt == nil {
		t.Fatal("last login not parsed")
	}
}

func TestToDomain_NeverLoggedIn(t *testing.T) {
	u := &admin.User{PrimaryEmail: "x@corp.com", LastLoginTime: neverLoggedIn}
	if acct := toDomain(u); acct.LastLoginAt != nil {
		t.Fatalf("LastLoginAt = %v; want nil for the epoch sentinel", acct.LastLoginAt)
	}
}
