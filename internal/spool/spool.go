// Package spool is a local SQLite buffer for audit rows whose append to the
// spreadsheet sink failed. Rows wait here until a later flush succeeds, so
// "audit logging is best-effort" never silently becomes "audit rows are
// lost". The store is process-local and append/delete only.
package spool

import (
	"context"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// Row kinds, matching the two audit schemas.
const (
	KindMessage   = "message"
	KindProvision = "provision"
)

// Row is one buffered audit row. Payload holds the JSON-encoded original
// record so the sink adapter can replay it unchanged.
type Row struct {
	ID        uint   `gorm:"primaryKey"`
	Kind      string `gorm:"type:varchar(16);not null;index"`
	Payload   string `gorm:"type:text;not null"`
	CreatedAt time.Time
}

// TableName returns the database table name for Row.
func (Row) TableName() string { return "audit_spool" }

// Store wraps the SQLite-backed spool.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the spool database and migrates its schema.
func Open(path string) (*Store, error) {
	// Fail early if the parent directory does not exist.
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA busy_timeout=5000;")

	if err := db.AutoMigrate(&Row{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Save buffers one audit row.
func (s *Store) Save(ctx context.Context, kind, payload string) error {
	return s.db.WithContext(ctx).Create(&Row{Kind: kind, Payload: payload}).Error
}

// Pending returns up to limit buffered rows, oldest first.
func (s *Store) Pending(ctx context.Context, limit int) ([]Row, error) {
	var rows []Row
	err := s.db.WithContext(ctx).Order("id asc").Limit(limit).Find(&rows).Error
	return rows, err
}

// Delete removes a flushed row.
func (s *Store) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Delete(&Row{}, id).Error
}

// Count returns the number of buffered rows.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&Row{}).Count(&n).Error
	return n, err
}
