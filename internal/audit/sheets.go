package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	drive "google.golang.org/api/drive/v3"
	sheets "google.golang.org/api/sheets/v4"

	"github.com/opsdesk/workspace-bot/internal/domain"
	"github.com/opsdesk/workspace-bot/internal/ops"
)

// SheetLog implements Logger against a Google Spreadsheet.
type SheetLog struct {
	svc           *sheets.Service
	spreadsheetID string
	timeout       time.Duration
	log           zerolog.Logger
}

// EnsureSink locates the spreadsheet named name via the Drive API, creating
// it with both tabs and their header rows when absent. The lookup-or-create
// is idempotent: re-running against an existing sheet only resolves its id.
func EnsureSink(ctx context.Context, sheetsSvc *sheets.Service, driveSvc *drive.Service, name string, timeout time.Duration, log zerolog.Logger) (*SheetLog, error) {
	l := log.With().Str("component", "audit").Logger()

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	q := fmt.Sprintf("name = '%s' and mimeType = 'application/vnd.google-apps.spreadsheet' and trashed = false", name)
	list, err := driveSvc.Files.List().Q(q).Fields("files(id, name)").PageSize(1).Context(cctx).Do()
	if err != nil {
		return nil, fmt.Errorf("look up audit sheet %q: %w", name, err)
	}

	sl := &SheetLog{svc: sheetsSvc, timeout: timeout, log: l}
	if len(list.Files) > 0 {
		sl.spreadsheetID = list.Files[0].Id
		l.Info().Str("spreadsheet_id", sl.spreadsheetID).Msg("audit sink found")
		return sl, nil
	}

	created, err := sheetsSvc.Spreadsheets.Create(&sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{Title: name},
		Sheets: []*sheets.Sheet{
			{Properties: &sheets.SheetProperties{Title: MessagesSheet}},
			{Properties: &sheets.SheetProperties{Title: ProvisioningSheet}},
		},
	}).Context(cctx).Do()
	if err != nil {
		return nil, fmt.Errorf("create audit sheet %q: %w", name, err)
	}
	sl.spreadsheetID = created.SpreadsheetId

	if err := sl.append(ctx, MessagesSheet, messagesHeader); err != nil {
		return nil, fmt.Errorf("write messages header: %w", err)
	}
	if err := sl.append(ctx, ProvisioningSheet, provisioningHeader); err != nil {
		return nil, fmt.Errorf("write provisioning header: %w", err)
	}
	l.Info().Str("spreadsheet_id", sl.spreadsheetID).Msg("audit sink created")
	return sl, nil
}

// AppendMessage implements Logger.
func (s *SheetLog) AppendMessage(ctx context.Context, rec domain.AuditRecord) error {
	return s.append(ctx, MessagesSheet, messageValues(rec))
}

// AppendProvision implements Logger.
func (s *SheetLog) AppendProvision(ctx context.Context, row ProvisionRow) error {
	return s.append(ctx, ProvisioningSheet, provisionValues(row))
}

func (s *SheetLog) append(ctx context.Context, sheet string, values []interface{}) error {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	vr := &sheets.ValueRange{Values: [][]interface{}{values}}
	start := time.Now()
	_, err := s.svc.Spreadsheets.Values.
		Append(s.spreadsheetID, sheet+"!A1", vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(cctx).
		Do()
	ops.ObserveProvider("sheets", "append", start, err)
	if err != nil {
		s.log.Error().Str("sheet", sheet).Err(err).Msg("audit append failed")
		return fmt.Errorf("append to %s: %w", sheet, err)
	}
	return nil
}
