package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/opsdesk/workspace-bot/internal/access"
	"github.com/opsdesk/workspace-bot/internal/audit"
	"github.com/opsdesk/workspace-bot/internal/directory"
	"github.com/opsdesk/workspace-bot/internal/domain"
	"github.com/opsdesk/workspace-bot/internal/ops"
	"github.com/opsdesk/workspace-bot/internal/password"
)

// DefaultPageRows is the maximum number of accounts rendered per /listusers
// page.
const DefaultPageRows = 50

// AccountService handles the query and mutation commands against existing
// accounts: suspend, password reset, info lookup, and listing. Protected
// accounts short-circuit with a fixed refusal before any provider call.
type AccountService struct {
	gate      *access.Gate
	protected *access.ProtectedSet
	dir       directory.Client
	auditor   audit.Logger
	passwords *password.Generator
	pageRows  int
	log       zerolog.Logger

	// now is a test seam.
	now func() time.Time
}

// AccountOption adjusts optional AccountService knobs.
type AccountOption func(*AccountService)

// WithPageRows overrides the /listusers page size. Values < 1 keep the
// default.
func WithPageRows(n int) AccountOption {
	return func(s *AccountService) {
		if n > 0 {
			s.pageRows = n
		}
	}
}

// NewAccountService wires the account query/mutation orchestrator.
func NewAccountService(gate *access.Gate, protected *access.ProtectedSet, dir directory.Client, auditor audit.Logger, gen *password.Generator, log zerolog.Logger, opts ...AccountOption) *AccountService {
	s := &AccountService{
		gate:      gate,
		protected: protected,
		dir:       dir,
		auditor:   auditor,
		passwords: gen,
		pageRows:  DefaultPageRows,
		log:       log.With().Str("component", "accounts").Logger(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start replies with the welcome text and expected message format.
func (s *AccountService) Start(caller domain.Caller) Result {
	if !s.gate.Authorized(caller) {
		return s.deny(caller, "start")
	}
	ops.CountOperation("start", string(OutcomeCompleted))
	return completed(ReplyStart)
}

// Help replies with the command reference.
func (s *AccountService) Help(caller domain.Caller) Result {
	if !s.gate.Authorized(caller) {
		return s.deny(caller, "help")
	}
	ops.CountOperation("help", string(OutcomeCompleted))
	return completed(ReplyHelp)
}

// Suspend disables the account with the given email. Suspending an account
// that is already suspended succeeds; the provider treats it as a no-op.
func (s *AccountService) Suspend(ctx context.Context, caller domain.Caller, args []string, raw string) Result {
	const handler = "suspend"
	if !s.gate.Authorized(caller) {
		return s.deny(caller, handler)
	}
	if len(args) < 1 {
		return s.finish(handler, rejected(replySuspendUsage))
	}
	s.appendAudit(ctx, caller, handler, raw)
	email := args[0]
	if s.protected.Contains(email) {
		s.log.Warn().Str("caller", caller.String()).Str("email", email).Msg("suspend refused: protected account")
		return s.finish(handler, rejected(fmt.Sprintf(replyProtectedSuspend, email)))
	}

	if err := s.dir.SetSuspended(ctx, email, true); err != nil {
		return s.finish(handler, s.directoryFailure(caller, handler, email, err))
	}
	s.log.Info().Str("caller", caller.String()).Str("email", email).Msg("account suspended")
	return s.finish(handler, completed(fmt.Sprintf(replySuspended, email)))
}

// ResetPassword sets a fresh temporary password with the force-change flag
// and shows it to the caller. The password is never written to the audit
// log; the audit row only carries the raw command line.
func (s *AccountService) ResetPassword(ctx context.Context, caller domain.Caller, args []string, raw string) Result {
	const handler = "resetpw"
	if !s.gate.Authorized(caller) {
		return s.deny(caller, handler)
	}
	if len(args) < 1 {
		return s.finish(handler, rejected(replyResetUsage))
	}
	s.appendAudit(ctx, caller, handler, raw)
	email := args[0]
	if s.protected.Contains(email) {
		s.log.Warn().Str("caller", caller.String()).Str("email", email).Msg("reset refused: protected account")
		return s.finish(handler, rejected(fmt.Sprintf(replyProtectedReset, email)))
	}

	pw, err := s.passwords.Generate()
	if err != nil {
		s.log.Error().Err(err).Msg("password generation failed")
		return s.finish(handler, failed(replyFatal))
	}
	if err := s.dir.UpdatePassword(ctx, email, pw, true); err != nil {
		return s.finish(handler, s.directoryFailure(caller, handler, email, err))
	}

	// Fetch the updated profile so the reply names the account holder.
	// The reset already happened; a lookup failure only degrades the reply.
	who := email
	if acct, err := s.dir.GetAccount(ctx, email); err == nil {
		who = fmt.Sprintf("%s (%s)", acct.FullName(), email)
	} else {
		s.log.Warn().Str("email", email).Err(err).Msg("post-reset lookup failed")
	}
	s.log.Info().Str("caller", caller.String()).Str("email", email).Msg("password reset")
	reply := fmt.Sprintf("The password for %s has been reset.\nNew password: %s\nThe user must change it at next login.", who, pw)
	return s.finish(handler, completed(reply))
}

// GetInfo shows name and recovery email for an account. Protected accounts
// are treated as non-disclosable.
func (s *AccountService) GetInfo(ctx context.Context, caller domain.Caller, args []string, raw string) Result {
	const handler = "userinfo"
	if !s.gate.Authorized(caller) {
		return s.deny(caller, handler)
	}
	if len(args) < 1 {
		return s.finish(handler, rejected(replyInfoUsage))
	}
	s.appendAudit(ctx, caller, handler, raw)
	email := args[0]
	if s.protected.Contains(email) {
		s.log.Warn().Str("caller", caller.String()).Str("email", email).Msg("info refused: protected account")
		return s.finish(handler, rejected(fmt.Sprintf(replyProtectedInfo, email)))
	}

	acct, err := s.dir.GetAccount(ctx, email)
	if err != nil {
		return s.finish(handler, s.directoryFailure(caller, handler, email, err))
	}
	recovery := acct.RecoveryEmail
	if recovery == "" {
		recovery = replyNoRecovery
	}
	info := fmt.Sprintf("Name: %s\nSurname: %s\nSecondary Email: %s", acct.GivenName, acct.FamilyName, recovery)
	return s.finish(handler, completed(info))
}

// ListUsers streams every account, filters out protected ones, sorts by
// email, and renders pages of at most pageRows entries, one reply per page.
func (s *AccountService) ListUsers(ctx context.Context, caller domain.Caller, raw string) Result {
	const handler = "listusers"
	if !s.gate.Authorized(caller) {
		return s.deny(caller, handler)
	}
	s.appendAudit(ctx, caller, handler, raw)

	var accounts []domain.DirectoryAccount
	err := s.dir.ForEachAccount(ctx, func(a domain.DirectoryAccount) bool {
		if !s.protected.Contains(a.PrimaryEmail) {
			accounts = append(accounts, a)
		}
		return true
	})
	if err != nil {
		return s.finish(handler, s.directoryFailure(caller, handler, "", err))
	}

	if len(accounts) == 0 {
		return s.finish(handler, completed(replyNoUsers))
	}

	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].PrimaryEmail < accounts[j].PrimaryEmail
	})
	return s.finish(handler, completed(renderUserPages(accounts, s.pageRows)...))
}

// renderUserPages splits accounts into pages of at most rows entries, each
// annotated "Page i of N".
func renderUserPages(accounts []domain.DirectoryAccount, rows int) []string {
	if rows <= 0 {
		rows = DefaultPageRows
	}
	total := (len(accounts) + rows - 1) / rows
	pages := make([]string, 0, total)
	for i := 0; i < total; i++ {
		lo := i * rows
		hi := lo + rows
		if hi > len(accounts) {
			hi = len(accounts)
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Page %d of %d\n", i+1, total)
		for _, a := range accounts[lo:hi] {
			fmt.Fprintf(&b, "%-40s %s", a.PrimaryEmail, a.FullName())
			if a.Suspended {
				b.WriteString(" [suspended]")
			}
			b.WriteString("\n")
		}
		pages = append(pages, strings.TrimRight(b.String(), "\n"))
	}
	return pages
}

// directoryFailure maps a classified directory error to a caller reply.
func (s *AccountService) directoryFailure(caller domain.Caller, handler, email string, err error) Result {
	lg := s.log.With().Str("caller", caller.String()).Str("handler", handler).Str("email", email).Logger()
	switch directory.KindOf(err) {
	case directory.KindNotFound:
		lg.Info().Msg("account not found")
		return rejected(fmt.Sprintf(replyNotFound, email))
	case directory.KindRateLimited:
		lg.Warn().Err(err).Msg("directory rate limited")
		return failed(replyRateLimited)
	case directory.KindTransient:
		lg.Warn().Err(err).Msg("directory transient failure")
		return failed(replyTransient)
	default:
		lg.Error().Err(err).Msg("directory call failed")
		return failed(replyFatal)
	}
}

func (s *AccountService) deny(caller domain.Caller, handler string) Result {
	s.log.Warn().Str("caller", caller.String()).Str("handler", handler).Msg("unauthorized attempt")
	ops.CountOperation(handler, string(OutcomeUnauthorized))
	return unauthorized()
}

func (s *AccountService) appendAudit(ctx context.Context, caller domain.Caller, handler, raw string) {
	err := s.auditor.AppendMessage(ctx, domain.AuditRecord{
		Timestamp:      s.now(),
		CallerUsername: caller.Username,
		CallerID:       caller.ID,
		Kind:           domain.OpCommand,
		Content:        raw,
		Handler:        handler,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("handler", handler).Msg("audit append failed, continuing")
	}
}

func (s *AccountService) finish(handler string, r Result) Result {
	ops.CountOperation(handler, string(r.Outcome))
	return r
}
