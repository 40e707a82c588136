// internal/common/database/audit.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// AuditRecord is one row of the PagerDuty action audit trail.
type AuditRecord struct {
	ID        string
	JobKey    int64
	Entity    string
	Method    string
	EntityID  string
	FromEmail string
	Success   bool
	ErrorCode string
	CreatedAt time.Time
}

type AuditStore struct {
	db    *sql.DB
	table string
}

func NewAuditStore(db *sql.DB, table string) *AuditStore {
	return &AuditStore{db: db, table: table}
}

// EnsureSchema creates the audit table if it does not exist yet.
func (s *AuditStore) EnsureSchema(ctx context.Context) error {
	q := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id UUID PRIMARY KEY,
		job_key BIGINT NOT NULL,
		entity TEXT NOT NULL,
		method TEXT NOT NULL,
		entity_id TEXT,
		from_email TEXT,
		success BOOLEAN NOT NULL,
		error_code TEXT,
		created_at TIMESTAMPTZ NOT NULL
	)`, pq.QuoteIdentifier(s.table))

	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("create audit table: %w", err)
	}
	return nil
}

// Record inserts rec, filling ID and CreatedAt when empty. It returns the
// stored ID.
func (s *AuditStore) Record(ctx context.Context, rec AuditRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	q := fmt.Sprintf(`INSERT INTO %s
		(id, job_key, entity, method, entity_id, from_email, success, error_code, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`, pq.QuoteIdentifier(s.table))

	_, err := s.db.ExecContext(ctx, q,
		rec.ID,
		rec.JobKey,
		rec.Entity,
		rec.Method,
		nullString(rec.EntityID),
		nullString(rec.FromEmail),
		rec.Success,
		nullString(rec.ErrorCode),
		rec.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert audit record: %w", err)
	}
	return rec.ID, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
