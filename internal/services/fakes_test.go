package services

import (
	"context"

	"github.com/opsdesk/workspace-bot/internal/audit"
	"github.com/opsdesk/workspace-bot/internal/directory"
	"github.com/opsdesk/workspace-bot/internal/domain"
	"github.com/opsdesk/workspace-bot/internal/notify"
)

// fakeDirectory implements directory.Client, recording calls and returning
// scripted errors.
type fakeDirectory struct {
	calls int // total provider calls across all methods

	createErr error
	created   []domain.AccountRequest
	passwords []string

	suspendErr   error
	suspendCalls []string

	updateErr   error
	updateCalls []pwUpdate

	getErr   error
	getAcct  *domain.DirectoryAccount
	getCalls []string

	listErr  error
	accounts []domain.DirectoryAccount
}

type pwUpdate struct {
	email       string
	password    string
	forceChange bool
}

func derr(kind directory.Kind) error {
	return &directory.Error{Kind: kind, Op: "fake", Err: errProvider}
}

func (f *fakeDirectory) CreateAccount(ctx context.Context, req domain.AccountRequest, pw string) (*domain.DirectoryAccount, error) {
	f.calls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, req)
	f.passwords = append(f.passwords, pw)
	return &domain.DirectoryAccount{
		PrimaryEmail:  req.PrimaryEmail,
		GivenName:     req.GivenName,
		FamilyName:    req.FamilyName,
		RecoveryEmail: req.RecoveryEmail,
	}, nil
}

func (f *fakeDirectory) SetSuspended(ctx context.Context, email string, suspended bool) error {
	f.calls++
	if f.suspendErr != nil {
		return f.suspendErr
	}
	f.suspendCalls = append(f.suspendCalls, email)
	return nil
}

func (f *fakeDirectory) UpdatePassword(ctx context.Context, email, pw string, forceChange bool) error {
	f.calls++
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updateCalls = append(f.updateCalls, pwUpdate{email: email, password: pw, forceChange: forceChange})
	return nil
}

func (f *fakeDirectory) GetAccount(ctx context.Context, email string) (*domain.DirectoryAccount, error) {
	f.calls++
	f.getCalls = append(f.getCalls, email)
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getAcct, nil
}

func (f *fakeDirectory) ForEachAccount(ctx context.Context, fn func(domain.DirectoryAccount) bool) error {
	f.calls++
	if f.listErr != nil {
		return f.listErr
	}
	for _, a := range f.accounts {
		if !fn(a) {
			return nil
		}
	}
	return nil
}

// fakeMailer implements notify.Sender.
type fakeMailer struct {
	sendErr error
	sent    []notify.CredentialEmail
}

func (f *fakeMailer) SendCredentialEmail(ctx context.Context, m notify.CredentialEmail) (string, error) {
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent = append(f.sent, m)
	return "msg-1", nil
}

// fakeAudit implements audit.Logger.
type fakeAudit struct {
	msgErr  error
	provErr error

	messages   []domain.AuditRecord
	provisions []audit.ProvisionRow
}

func (f *fakeAudit) AppendMessage(ctx context.Context, rec domain.AuditRecord) error {
	if f.msgErr != nil {
		return f.msgErr
	}
	f.messages = append(f.messages, rec)
	return nil
}

func (f *fakeAudit) AppendProvision(ctx context.Context, row audit.ProvisionRow) error {
	if f.provErr != nil {
		return f.provErr
	}
	f.provisions = append(f.provisions, row)
	return nil
}
