package repository

import (
	"context"

	"github.com/kmssa/attendance-register/internal/models"
)

// LedgerStore persists the attendance ledger as a single opaque collection.
// Load returns the stored records (empty on first run); Save replaces the
// entire collection. Implementations never see a partial ledger.
type LedgerStore interface {
	Load(ctx context.Context) ([]models.AttendanceRecord, error)
	Save(ctx context.Context, records []models.AttendanceRecord) error
}
