package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/opsdesk/workspace-bot/internal/access"
	"github.com/opsdesk/workspace-bot/internal/directory"
	"github.com/opsdesk/workspace-bot/internal/domain"
	"github.com/opsdesk/workspace-bot/internal/password"
)

var errProvider = errors.New("provider detail that must never reach chat")

var (
	allowedCaller = domain.Caller{Username: "hr_lead", ID: 42}
	strangerCall  = domain.Caller{Username: "mallory", ID: 666}
)

const goodBody = "John Smith\njohn.smith@corp.com\njohn.personal@mail.com\nSales team"

type provisionEnv struct {
	svc    *ProvisionService
	dir    *fakeDirectory
	mailer *fakeMailer
	audit  *fakeAudit
}

func newProvisionEnv() *provisionEnv {
	env := &provisionEnv{
		dir:    &fakeDirectory{},
		mailer: &fakeMailer{},
		audit:  &fakeAudit{},
	}
	gate := access.NewGate([]string{"hr_lead"})
	env.svc = NewProvisionService(gate, env.dir, env.mailer, env.audit, password.New(), "admin@corp.com", zerolog.Nop())
	env.svc.now = func() time.Time { return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC) }
	return env
}

func TestProvision_Unauthorized(t *testing.T) {
	env := newProvisionEnv()
	res := env.svc.FromMessage(context.Background(), strangerCall, goodBody)

	if res.Outcome != OutcomeUnauthorized {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	if len(res.Replies) != 1 || res.Replies[0] != ReplyUnauthorized {
		t.Fatalf("replies = %q", res.Replies)
	}
	if env.dir.calls != 0 {
		t.Fatalf("provider calls = %d; unauthorized callers must trigger none", env.dir.calls)
	}
	if len(env.audit.messages) != 0 || len(env.audit.provisions) != 0 {
		t.Fatal("unauthorized attempts must not be audited")
	}
}

func TestProvision_InvalidFormat(t *testing.T) {
	env := newProvisionEnv()
	res := env.svc.FromMessage(context.Background(), allowedCaller, "just one line")

	if res.Outcome != OutcomeRejected {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	if !strings.Contains(res.Replies[0], "Name Surname") {
		t.Fatalf("reply %q should carry the usage hint", res.Replies[0])
	}
	if env.dir.calls != 0 {
		t.Fatal("validation failures must not reach the provider")
	}
}

func TestProvision_HappyPath(t *testing.T) {
	env := newProvisionEnv()
	res := env.svc.FromMessage(context.Background(), allowedCaller, goodBody)

	if res.Outcome != OutcomeCompleted {
		t.Fatalf("outcome = %s, replies %q", res.Outcome, res.Replies)
	}
	if len(res.Replies) != 1 || res.Replies[0] != "The account for John Smith has been created." {
		t.Fatalf("replies = %q", res.Replies)
	}

	// Extraction fed the directory the literal input fields.
	if len(env.dir.created) != 1 {
		t.Fatalf("created %d accounts", len(env.dir.created))
	}
	req := env.dir.created[0]
	if req.GivenName != "John" || req.FamilyName != "Smith" ||
		req.PrimaryEmail != "john.smith@corp.com" || req.RecoveryEmail != "john.personal@mail.com" ||
		req.Comment != "Sales team" {
		t.Fatalf("request = %+v", req)
	}

	// Audit rows for the raw request.
	if len(env.audit.messages) != 1 || env.audit.messages[0].Kind != domain.OpMessage {
		t.Fatalf("message audit rows = %+v", env.audit.messages)
	}
	if len(env.audit.provisions) != 1 || env.audit.provisions[0].DesiredEmail != "john.smith@corp.com" {
		t.Fatalf("provision audit rows = %+v", env.audit.provisions)
	}

	// The emailed password is the one set on the account.
	if len(env.mailer.sent) != 1 {
		t.Fatalf("sent %d emails", len(env.mailer.sent))
	}
	mail := env.mailer.sent[0]
	if mail.Password != env.dir.passwords[0] {
		t.Fatal("emailed password differs from the account password")
	}
	if mail.To != "john.personal@mail.com" || mail.LoginEmail != "john.smith@corp.com" {
		t.Fatalf("email = %+v", mail)
	}
	if mail.ReplyTo != "admin@corp.com" {
		t.Fatalf("reply-to = %q", mail.ReplyTo)
	}
	if len(mail.Password) != password.DefaultLength {
		t.Fatalf("password length = %d", len(mail.Password))
	}
}

func TestProvision_FromCommand(t *testing.T) {
	env := newProvisionEnv()
	args := []string{"Ada", "Lovelace", "ada.l@corp.com", "ada@mail.com", "Engineering"}
	res := env.svc.FromCommand(context.Background(), allowedCaller, args, "/adduser Ada Lovelace ada.l@corp.com ada@mail.com Engineering")

	if res.Outcome != OutcomeCompleted {
		t.Fatalf("outcome = %s, replies %q", res.Outcome, res.Replies)
	}
	if env.audit.messages[0].Kind != domain.OpCommand {
		t.Fatalf("audit kind = %s; want command", env.audit.messages[0].Kind)
	}
	if env.dir.created[0].Comment != "Engineering" {
		t.Fatalf("comment = %q", env.dir.created[0].Comment)
	}
}

func TestProvision_FromCommand_TooFewArgs(t *testing.T) {
	env := newProvisionEnv()
	res := env.svc.FromCommand(context.Background(), allowedCaller, []string{"Ada"}, "/adduser Ada")
	if res.Outcome != OutcomeRejected {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	if !strings.Contains(res.Replies[0], "/adduser") {
		t.Fatalf("reply %q should carry the command usage", res.Replies[0])
	}
}

func TestProvision_DuplicateAccount(t *testing.T) {
	env := newProvisionEnv()
	env.dir.createErr = derr(directory.KindAlreadyExists)
	res := env.svc.FromMessage(context.Background(), allowedCaller, goodBody)

	if res.Outcome != OutcomeRejected {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	if res.Replies[0] != "An account with email john.smith@corp.com already exists." {
		t.Fatalf("reply = %q", res.Replies[0])
	}
	if len(env.mailer.sent) != 0 {
		t.Fatal("no email may be sent for a duplicate")
	}
}

func TestProvision_DirectoryTransient(t *testing.T) {
	env := newProvisionEnv()
	env.dir.createErr = derr(directory.KindTransient)
	res := env.svc.FromMessage(context.Background(), allowedCaller, goodBody)

	if res.Outcome != OutcomePartial {
		t.Fatalf("outcome = %s; audit row exists but no account", res.Outcome)
	}
	if !strings.Contains(res.Replies[0], "try again later") {
		t.Fatalf("reply = %q", res.Replies[0])
	}
	// The audit row was appended before the failed create.
	if len(env.audit.provisions) != 1 {
		t.Fatal("provision audit row missing")
	}
}

func TestProvision_DirectoryRateLimited(t *testing.T) {
	env := newProvisionEnv()
	env.dir.createErr = derr(directory.KindRateLimited)
	res := env.svc.FromMessage(context.Background(), allowedCaller, goodBody)

	if res.Outcome != OutcomePartial {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	if !strings.Contains(res.Replies[0], "try again in a few minutes") {
		t.Fatalf("reply = %q", res.Replies[0])
	}
}

func TestProvision_DirectoryFatal(t *testing.T) {
	env := newProvisionEnv()
	env.dir.createErr = derr(directory.KindFatal)
	res := env.svc.FromMessage(context.Background(), allowedCaller, goodBody)

	if res.Outcome != OutcomeFailed {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	if !strings.Contains(res.Replies[0], "contact an administrator") {
		t.Fatalf("reply = %q", res.Replies[0])
	}
	if strings.Contains(res.Replies[0], errProvider.Error()) {
		t.Fatal("provider detail leaked to the chat reply")
	}
}

func TestProvision_NotifyFailureIsSoft(t *testing.T) {
	env := newProvisionEnv()
	env.mailer.sendErr = errProvider
	res := env.svc.FromMessage(context.Background(), allowedCaller, goodBody)

	if res.Outcome != OutcomePartial {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	if len(res.Replies) != 2 {
		t.Fatalf("replies = %q; want confirmation plus warning", res.Replies)
	}
	if res.Replies[0] != "The account for John Smith has been created." {
		t.Fatalf("first reply = %q", res.Replies[0])
	}
	if !strings.Contains(res.Replies[1], "could not be sent") {
		t.Fatalf("second reply = %q", res.Replies[1])
	}
	// Account stays: exactly one create, no compensating call of any kind.
	if len(env.dir.created) != 1 || env.dir.calls != 1 {
		t.Fatalf("provider calls = %d, created = %d", env.dir.calls, len(env.dir.created))
	}

	// A retry of the same request now hits the provider uniqueness check.
	env.dir.createErr = derr(directory.KindAlreadyExists)
	res = env.svc.FromMessage(context.Background(), allowedCaller, goodBody)
	if res.Outcome != OutcomeRejected || !strings.Contains(res.Replies[0], "already exists") {
		t.Fatalf("retry outcome = %s, replies %q", res.Outcome, res.Replies)
	}
}

func TestProvision_AuditFailureDoesNotBlock(t *testing.T) {
	env := newProvisionEnv()
	env.audit.msgErr = errProvider
	env.audit.provErr = errProvider
	res := env.svc.FromMessage(context.Background(), allowedCaller, goodBody)

	if res.Outcome != OutcomeCompleted {
		t.Fatalf("outcome = %s; audit failure must stay silent", res.Outcome)
	}
	if len(env.dir.created) != 1 {
		t.Fatal("account not created despite audit failure being soft")
	}
	for _, r := range res.Replies {
		if strings.Contains(r, "audit") || strings.Contains(r, "log") {
			t.Fatalf("audit failure leaked into reply %q", r)
		}
	}
}
