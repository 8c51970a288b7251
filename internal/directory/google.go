package directory

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	admin "google.golang.org/api/admin/directory/v1"

	"github.com/opsdesk/workspace-bot/internal/domain"
	"github.com/opsdesk/workspace-bot/internal/ops"
)

// GoogleClient implements Client against the Google Workspace Admin SDK
// Directory API using delegated service-account credentials.
type GoogleClient struct {
	svc      *admin.Service
	domain   string // workspace domain used for listing
	pageSize int64  // capped at the provider maximum of 500
	timeout  time.Duration
	log      zerolog.Logger
}

// MaxPageSize is the Directory API maximum for users.list.
const MaxPageSize = 500

// NewGoogleClient wraps an authenticated Admin SDK service. workspaceDomain
// scopes listing (e.g. "corp.com"); pageSize above MaxPageSize is clamped.
func NewGoogleClient(svc *admin.Service, workspaceDomain string, pageSize int64, timeout time.Duration, log zerolog.Logger) *GoogleClient {
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return &GoogleClient{
		svc:      svc,
		domain:   workspaceDomain,
		pageSize: pageSize,
		timeout:  timeout,
		log:      log.With().Str("component", "directory").Logger(),
	}
}

// CreateAccount implements Client.
func (g *GoogleClient) CreateAccount(ctx context.Context, req domain.AccountRequest, pw string) (*domain.DirectoryAccount, error) {
	u := &admin.User{
		PrimaryEmail: req.PrimaryEmail,
		Name: &admin.UserName{
			GivenName:  req.GivenName,
			FamilyName: req.FamilyName,
		},
		Password:                  pw,
		ChangePasswordAtNextLogin: true,
		RecoveryEmail:             req.RecoveryEmail,
	}

	var created *admin.User
	err := g.call(ctx, "insert", func(cctx context.Context) error {
		var err error
		created, err = g.svc.Users.Insert(u).Context(cctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}
	acct := toDomain(created)
	return &acct, nil
}

// SetSuspended implements Client.
func (g *GoogleClient) SetSuspended(ctx context.Context, email string, suspended bool) error {
	u := &admin.User{
		Suspended:       suspended,
		ForceSendFields: []string{"Suspended"},
	}
	return g.call(ctx, "update", func(cctx context.Context) error {
		_, err := g.svc.Users.Update(email, u).Context(cctx).Do()
		return err
	})
}

// UpdatePassword implements Client.
func (g *GoogleClient) UpdatePassword(ctx context.Context, email, pw string, forceChange bool) error {
	u := &admin.User{
		Password:                  pw,
		ChangePasswordAtNextLogin: forceChange,
		ForceSendFields:           []string{"ChangePasswordAtNextLogin"},
	}
	return g.call(ctx, "update", func(cctx context.Context) error {
		_, err := g.svc.Users.Update(email, u).Context(cctx).Do()
		return err
	})
}

// GetAccount implements Client.
func (g *GoogleClient) GetAccount(ctx context.Context, email string) (*domain.DirectoryAccount, error) {
	var u *admin.User
	err := g.call(ctx, "get", func(cctx context.Context) error {
		var err error
		u, err = g.svc.Users.Get(email).Context(cctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}
	acct := toDomain(u)
	return &acct, nil
}

// ForEachAccount implements Client. Each page fetch gets its own timeout;
// no state is held across pages beyond the continuation token.
func (g *GoogleClient) ForEachAccount(ctx context.Context, fn func(domain.DirectoryAccount) bool) error {
	token := ""
	for {
		var page *admin.Users
		err := g.call(ctx, "list", func(cctx context.Context) error {
			call := g.svc.Users.List().
				Domain(g.domain).
				MaxResults(g.pageSize).
				OrderBy("email").
				Context(cctx)
			if token != "" {
				call = call.PageToken(token)
			}
			var err error
			page, err = call.Do()
			return err
		})
		if err != nil {
			return err
		}
		for _, u := range page.Users {
			if !fn(toDomain(u)) {
				return nil
			}
		}
		token = page.NextPageToken
		if token == "" {
			return nil
		}
	}
}

// call runs one provider operation under the configured timeout with a
// single transient retry, recording latency and the classified outcome.
func (g *GoogleClient) call(ctx context.Context, op string, fn func(context.Context) error) error {
	start := time.Now()
	err := withRetry(ctx, op, func() error {
		cctx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()
		return fn(cctx)
	})
	ops.ObserveProvider("directory", op, start, err)
	if err != nil {
		g.log.Error().Str("op", op).Err(err).Msg("directory call failed")
	}
	return err
}

// neverLoggedIn is what the Directory API reports as LastLoginTime for a
// user who has never signed in.
const neverLoggedIn = "1970-01-01T00:00:00.000Z"

func toDomain(u *admin.User) domain.DirectoryAccount {
	acct := domain.DirectoryAccount{
		PrimaryEmail:  u.PrimaryEmail,
		RecoveryEmail: u.RecoveryEmail,
		Suspended:     u.Suspended,
	}
	if u.Name != nil {
		acct.GivenName = u.Name.GivenName
		acct.FamilyName = u.Name.FamilyName
	}
	if t, err := time.Parse(time.RFC3339, u.CreationTime); err == nil {
		acct.CreatedAt = t
	}
	if u.LastLoginTime != "" && u.LastLoginTime != neverLoggedIn {
		if t, err := time.Parse(time.RFC3339, u.LastLoginTime); err == nil {
			acct.LastLoginAt = &t
		}
	}
	return acct
}
