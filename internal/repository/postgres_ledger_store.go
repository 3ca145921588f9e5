package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/kmssa/attendance-register/internal/models"
)

// PostgresLedgerStore keeps the serialized ledger in a single-row blob table.
// The store honours the same full-blob contract as the other backends; it
// does not decompose records into rows.
type PostgresLedgerStore struct {
	db  *sqlx.DB
	key string
}

// NewPostgresLedgerStore constructs the store and ensures the blob table exists.
func NewPostgresLedgerStore(db *sqlx.DB, key string) (*PostgresLedgerStore, error) {
	if key == "" {
		key = "attendanceRecords"
	}
	const ddl = `CREATE TABLE IF NOT EXISTS ledger_blobs (
		key TEXT PRIMARY KEY,
		payload JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`
	if _, err := db.Exec(ddl); err != nil {
		return nil, fmt.Errorf("ensure ledger table: %w", err)
	}
	return &PostgresLedgerStore{db: db, key: key}, nil
}

// Load reads the blob row, empty on first run.
func (s *PostgresLedgerStore) Load(ctx context.Context) ([]models.AttendanceRecord, error) {
	const query = `SELECT payload FROM ledger_blobs WHERE key = $1`
	var raw []byte
	if err := s.db.GetContext(ctx, &raw, query, s.key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []models.AttendanceRecord{}, nil
		}
		return nil, fmt.Errorf("load ledger blob: %w", err)
	}
	var records []models.AttendanceRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode ledger blob: %w", err)
	}
	return records, nil
}

// Save upserts the blob row with the full collection.
func (s *PostgresLedgerStore) Save(ctx context.Context, records []models.AttendanceRecord) error {
	if records == nil {
		records = []models.AttendanceRecord{}
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	const query = `INSERT INTO ledger_blobs (key, payload, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`
	if _, err := s.db.ExecContext(ctx, query, s.key, payload); err != nil {
		return fmt.Errorf("save ledger blob: %w", err)
	}
	return nil
}
