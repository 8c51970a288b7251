package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/opsdesk/workspace-bot/internal/access"
	"github.com/opsdesk/workspace-bot/internal/audit"
	"github.com/opsdesk/workspace-bot/internal/directory"
	"github.com/opsdesk/workspace-bot/internal/domain"
	"github.com/opsdesk/workspace-bot/internal/extract"
	"github.com/opsdesk/workspace-bot/internal/notify"
	"github.com/opsdesk/workspace-bot/internal/ops"
	"github.com/opsdesk/workspace-bot/internal/password"
)

// ProvisionService drives the account-creation workflow: authorize, extract,
// audit, create in the directory, notify by email.
//
// The sequence is strictly ordered and each step has its own failure policy:
//   - authorization or extraction failure stops everything (no side effects);
//   - the audit append is best-effort and never blocks the transition;
//   - a directory failure after the audit row leaves the row in place and
//     reports a classified, caller-distinct message;
//   - a notification failure after the account exists is soft: the account is
//     never rolled back, the caller gets the created confirmation plus a
//     warning.
//
// There are no automatic retries across steps; the single transient retry
// lives inside the adapters.
type ProvisionService struct {
	gate      *access.Gate
	dir       directory.Client
	mailer    notify.Sender
	auditor   audit.Logger
	passwords *password.Generator
	replyTo   string // Reply-To on credential emails
	log       zerolog.Logger

	// now is a test seam.
	now func() time.Time
}

// NewProvisionService wires the provisioning orchestrator.
func NewProvisionService(gate *access.Gate, dir directory.Client, mailer notify.Sender, auditor audit.Logger, gen *password.Generator, replyTo string, log zerolog.Logger) *ProvisionService {
	return &ProvisionService{
		gate:      gate,
		dir:       dir,
		mailer:    mailer,
		auditor:   auditor,
		passwords: gen,
		replyTo:   replyTo,
		log:       log.With().Str("component", "provision").Logger(),
		now:       time.Now,
	}
}

// FromMessage handles a free-text provisioning request.
func (s *ProvisionService) FromMessage(ctx context.Context, caller domain.Caller, body string) Result {
	const handler = "message"
	if !s.gate.Authorized(caller) {
		return s.finish(handler, s.unauthorizedResult(caller, handler))
	}
	req, err := extract.FromMessage(body, caller, s.now())
	if err != nil {
		return s.finish(handler, s.invalidFormat(caller, err))
	}
	return s.finish(handler, s.provision(ctx, req, domain.OpMessage, body, handler))
}

// FromCommand handles /adduser with positional arguments. raw is the full
// command line as received, used for the audit row.
func (s *ProvisionService) FromCommand(ctx context.Context, caller domain.Caller, args []string, raw string) Result {
	const handler = "adduser"
	if !s.gate.Authorized(caller) {
		return s.finish(handler, s.unauthorizedResult(caller, handler))
	}
	req, err := extract.FromArgs(args, caller, s.now())
	if err != nil {
		return s.finish(handler, s.invalidFormat(caller, err))
	}
	return s.finish(handler, s.provision(ctx, req, domain.OpCommand, raw, handler))
}

// provision runs the post-extraction steps shared by both entry shapes.
func (s *ProvisionService) provision(ctx context.Context, req domain.AccountRequest, kind domain.OperationKind, raw, handler string) Result {
	// Correlation id tying together the log lines of one request.
	lg := s.log.With().
		Str("request_id", uuid.NewString()).
		Str("handler", handler).
		Str("caller", req.RequestedBy.String()).
		Str("email", req.PrimaryEmail).
		Logger()

	// Audit the raw request. Best-effort: a failed append is logged
	// operator-side and the workflow proceeds.
	s.appendAudit(ctx, domain.AuditRecord{
		Timestamp:      req.RequestedAt,
		CallerUsername: req.RequestedBy.Username,
		CallerID:       req.RequestedBy.ID,
		Kind:           kind,
		Content:        raw,
		Handler:        handler,
	})
	if err := s.auditor.AppendProvision(ctx, audit.ProvisionRow{
		DesiredEmail:  req.PrimaryEmail,
		FullName:      req.FullName(),
		Comment:       req.Comment,
		RecoveryEmail: req.RecoveryEmail,
		Timestamp:     req.RequestedAt,
		Username:      req.RequestedBy.Username,
	}); err != nil {
		lg.Warn().Err(err).Msg("provision audit append failed, continuing")
	}

	pw, err := s.passwords.Generate()
	if err != nil {
		lg.Error().Err(err).Msg("password generation failed")
		return failed(replyFatal)
	}

	acct, err := s.dir.CreateAccount(ctx, req, pw)
	if err != nil {
		switch directory.KindOf(err) {
		case directory.KindAlreadyExists:
			lg.Info().Msg("duplicate account rejected")
			return rejected(fmt.Sprintf(replyDuplicate, req.PrimaryEmail))
		case directory.KindRateLimited:
			lg.Warn().Err(err).Msg("directory rate limited")
			return partial(replyRateLimited)
		case directory.KindTransient:
			lg.Warn().Err(err).Msg("directory transient failure")
			return partial(replyTransient)
		default:
			lg.Error().Err(err).Msg("directory create failed")
			return failed(replyFatal)
		}
	}
	lg.Info().Msg("directory account created")

	created := fmt.Sprintf(replyCreated, acct.FullName())
	if _, err := s.mailer.SendCredentialEmail(ctx, notify.CredentialEmail{
		To:         req.RecoveryEmail,
		GivenName:  req.GivenName,
		FamilyName: req.FamilyName,
		LoginEmail: req.PrimaryEmail,
		Password:   pw,
		ReplyTo:    s.replyTo,
	}); err != nil {
		// Soft failure: the account exists and stays. The caller gets the
		// confirmation and a distinct warning.
		lg.Warn().Err(err).Msg("credential email failed, account kept")
		return partial(created, fmt.Sprintf(replyNotifyFailed, req.RecoveryEmail))
	}

	return completed(created)
}

func (s *ProvisionService) invalidFormat(caller domain.Caller, err error) Result {
	var fe *extract.FormatError
	if errors.As(err, &fe) {
		s.log.Info().Str("caller", caller.String()).Str("reason", fe.Reason).Msg("request rejected: invalid format")
		return rejected(fe.Hint)
	}
	s.log.Error().Str("caller", caller.String()).Err(err).Msg("unexpected extraction error")
	return failed(replyFatal)
}

// unauthorizedResult logs the probe operator-side. No audit row and no
// provider call is made for unauthorized callers.
func (s *ProvisionService) unauthorizedResult(caller domain.Caller, handler string) Result {
	s.log.Warn().Str("caller", caller.String()).Str("handler", handler).Msg("unauthorized attempt")
	return unauthorized()
}

func (s *ProvisionService) appendAudit(ctx context.Context, rec domain.AuditRecord) {
	if err := s.auditor.AppendMessage(ctx, rec); err != nil {
		s.log.Warn().Err(err).Str("handler", rec.Handler).Msg("audit append failed, continuing")
	}
}

func (s *ProvisionService) finish(handler string, r Result) Result {
	ops.CountOperation(handler, string(r.Outcome))
	return r
}
