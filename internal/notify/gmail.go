package notify

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/rs/zerolog"
	gmail "google.golang.org/api/gmail/v1"

	"github.com/opsdesk/workspace-bot/internal/ops"
)

// GmailSender implements Sender over the Gmail API, sending as the
// authenticated user ("me").
type GmailSender struct {
	svc       *gmail.Service
	from      string
	signature string // closing line of the template
	timeout   time.Duration
	log       zerolog.Logger
	now       func() time.Time
}

// NewGmailSender wraps an authenticated Gmail service.
func NewGmailSender(svc *gmail.Service, from, signature string, timeout time.Duration, log zerolog.Logger) *GmailSender {
	return &GmailSender{
		svc:       svc,
		from:      from,
		signature: signature,
		timeout:   timeout,
		log:       log.With().Str("component", "notify").Logger(),
		now:       time.Now,
	}
}

// SendCredentialEmail implements Sender.
func (s *GmailSender) SendCredentialEmail(ctx context.Context, m CredentialEmail) (string, error) {
	raw := buildRFC822(s.from, m, s.signature, s.now())
	msg := &gmail.Message{Raw: base64.URLEncoding.EncodeToString([]byte(raw))}

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	sent, err := s.svc.Users.Messages.Send("me", msg).Context(cctx).Do()
	ops.ObserveProvider("mail", "send", start, err)
	if err != nil {
		s.log.Error().Str("to", m.To).Err(err).Msg("credential email send failed")
		return "", &Error{Op: "send", Err: err}
	}
	s.log.Info().Str("to", m.To).Str("message_id", sent.Id).Msg("credential email sent")
	return sent.Id, nil
}
