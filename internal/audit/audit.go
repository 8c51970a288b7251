// Package audit appends operation and provisioning rows to the
// spreadsheet-backed audit log.
//
// The sink holds two tabs with fixed schemas: "Messages" records every
// user-facing operation attempt (6 columns) and "Provisioning" records
// account requests in the legacy 7-column layout (its second column is
// reserved and always empty). Append failures must never block or abort the
// operation that produced the row; orchestrators treat them as soft and the
// spooling decorator buffers the row locally for a later flush.
package audit

import (
	"context"
	"time"

	"github.com/opsdesk/workspace-bot/internal/domain"
)

// Tab names inside the spreadsheet.
const (
	MessagesSheet     = "Messages"
	ProvisioningSheet = "Provisioning"
)

// Header rows written when the sink is first created.
var (
	messagesHeader = []interface{}{
		"Timestamp", "Username", "UserID", "Type", "Content", "Handler",
	}
	provisioningHeader = []interface{}{
		"Desired Email", "Reserved", "Full Name", "Comment",
		"Recovery Email", "Timestamp", "Requested By",
	}
)

// ProvisionRow is one provisioning audit entry. The temporary password is
// deliberately absent: credentials are never written to the audit log.
type ProvisionRow struct {
	DesiredEmail  string
	FullName      string
	Comment       string
	RecoveryEmail string
	Timestamp     time.Time
	Username      string
}

// Logger is the audit contract consumed by the orchestrators.
type Logger interface {
	// AppendMessage appends one operation-attempt row.
	AppendMessage(ctx context.Context, rec domain.AuditRecord) error
	// AppendProvision appends one provisioning row.
	AppendProvision(ctx context.Context, row ProvisionRow) error
}

// timestampLayout matches the original sheet's timestamp format.
const timestampLayout = "2006-01-02 15:04:05"

// messageValues renders an AuditRecord into the 6-column Messages schema.
func messageValues(rec domain.AuditRecord) []interface{} {
	return []interface{}{
		rec.Timestamp.Format(timestampLayout),
		rec.CallerUsername,
		rec.CallerID,
		string(rec.Kind),
		rec.Content,
		rec.Handler,
	}
}

// provisionValues renders a ProvisionRow into the 7-column Provisioning
// schema. The second column is reserved and stays empty.
func provisionValues(row ProvisionRow) []interface{} {
	return []interface{}{
		row.DesiredEmail,
		"",
		row.FullName,
		row.Comment,
		row.RecoveryEmail,
		row.Timestamp.Format(timestampLayout),
		row.Username,
	}
}
