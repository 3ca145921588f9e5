package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kmssa/attendance-register/internal/models"
)

// FileLedgerStore keeps the ledger as a JSON blob on the local filesystem.
// It is the default backend and mirrors the single-key local storage the
// register was originally built on.
type FileLedgerStore struct {
	path string
}

// NewFileLedgerStore ensures the parent directory exists and initializes the
// blob to an empty collection on first run.
func NewFileLedgerStore(path string) (*FileLedgerStore, error) {
	if path == "" {
		path = "./data/attendance_records.json"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}
	store := &FileLedgerStore{path: path}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := store.Save(context.Background(), []models.AttendanceRecord{}); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// Load reads and decodes the full ledger blob.
func (s *FileLedgerStore) Load(_ context.Context) ([]models.AttendanceRecord, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.AttendanceRecord{}, nil
		}
		return nil, fmt.Errorf("read ledger file: %w", err)
	}
	if len(raw) == 0 {
		return []models.AttendanceRecord{}, nil
	}
	var records []models.AttendanceRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode ledger file: %w", err)
	}
	return records, nil
}

// Save atomically replaces the ledger blob with the provided records.
func (s *FileLedgerStore) Save(_ context.Context, records []models.AttendanceRecord) error {
	if records == nil {
		records = []models.AttendanceRecord{}
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("write ledger file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace ledger file: %w", err)
	}
	return nil
}
