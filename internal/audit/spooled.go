package audit

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/opsdesk/workspace-bot/internal/domain"
	"github.com/opsdesk/workspace-bot/internal/ops"
	"github.com/opsdesk/workspace-bot/internal/spool"
)

// flushBatch bounds how many buffered rows one opportunistic flush replays.
const flushBatch = 25

// SpooledLog decorates a Logger with a local buffer: rows that fail to
// append are saved to the spool, and each successful append opportunistically
// replays buffered rows. Callers still see the original append error so the
// orchestrator can log it; the row itself is no longer at risk.
type SpooledLog struct {
	inner Logger
	store *spool.Store
	log   zerolog.Logger
}

// NewSpooledLog wraps inner with the given spool store.
func NewSpooledLog(inner Logger, store *spool.Store, log zerolog.Logger) *SpooledLog {
	return &SpooledLog{
		inner: inner,
		store: store,
		log:   log.With().Str("component", "audit-spool").Logger(),
	}
}

// AppendMessage implements Logger.
func (s *SpooledLog) AppendMessage(ctx context.Context, rec domain.AuditRecord) error {
	err := s.inner.AppendMessage(ctx, rec)
	s.after(ctx, err, spool.KindMessage, rec)
	return err
}

// AppendProvision implements Logger.
func (s *SpooledLog) AppendProvision(ctx context.Context, row ProvisionRow) error {
	err := s.inner.AppendProvision(ctx, row)
	s.after(ctx, err, spool.KindProvision, row)
	return err
}

// after buffers the row on failure or flushes the backlog on success, then
// refreshes the pending gauge.
func (s *SpooledLog) after(ctx context.Context, appendErr error, kind string, row interface{}) {
	if appendErr != nil {
		payload, err := json.Marshal(row)
		if err != nil {
			s.log.Error().Err(err).Msg("encode spooled row")
			return
		}
		if err := s.store.Save(ctx, kind, string(payload)); err != nil {
			s.log.Error().Err(err).Msg("spool audit row")
		}
	} else {
		s.Flush(ctx)
	}
	if n, err := s.store.Count(ctx); err == nil {
		ops.SetSpoolPending(n)
	}
}

// Flush replays up to flushBatch buffered rows against the sink, stopping at
// the first failure (the sink is likely still down).
func (s *SpooledLog) Flush(ctx context.Context) {
	rows, err := s.store.Pending(ctx, flushBatch)
	if err != nil {
		s.log.Error().Err(err).Msg("read spool")
		return
	}
	for _, r := range rows {
		if err := s.replay(ctx, r); err != nil {
			s.log.Warn().Uint("row_id", r.ID).Err(err).Msg("spool replay stopped")
			return
		}
		if err := s.store.Delete(ctx, r.ID); err != nil {
			s.log.Error().Uint("row_id", r.ID).Err(err).Msg("delete flushed row")
			return
		}
		s.log.Info().Uint("row_id", r.ID).Str("kind", r.Kind).Msg("spooled audit row flushed")
	}
}

func (s *SpooledLog) replay(ctx context.Context, r spool.Row) error {
	switch r.Kind {
	case spool.KindMessage:
		var rec domain.AuditRecord
		if err := json.Unmarshal([]byte(r.Payload), &rec); err != nil {
			return err
		}
		return s.inner.AppendMessage(ctx, rec)
	case spool.KindProvision:
		var row ProvisionRow
		if err := json.Unmarshal([]byte(r.Payload), &row); err != nil {
			return err
		}
		return s.inner.AppendProvision(ctx, row)
	default:
		s.log.Error().Str("kind", r.Kind).Msg("unknown spooled row kind, dropping")
		return nil
	}
}
