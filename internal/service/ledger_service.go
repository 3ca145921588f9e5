package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/kmssa/attendance-register/internal/models"
	"github.com/kmssa/attendance-register/internal/repository"
	appErrors "github.com/kmssa/attendance-register/pkg/errors"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

type candidatePayload struct {
	StudentID string `validate:"required"`
	Name      string `validate:"required"`
}

// LedgerService owns the ordered collection of attendance records. It is the
// single writer: every mutation is persisted in full through the store before
// it becomes visible, and a failed write leaves both the store and the
// in-memory collection untouched. Records are kept newest-first by insertion.
type LedgerService struct {
	store     repository.LedgerStore
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	now       func() time.Time

	mu         sync.Mutex
	records    []models.AttendanceRecord
	timestamps map[string]struct{}
	onMutate   []func()
}

// NewLedgerService loads the ledger from the store and returns the service.
// A store that cannot be read is fatal for the session.
func NewLedgerService(store repository.LedgerStore, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService) (*LedgerService, error) {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	records, err := store.Load(context.Background())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load attendance records")
	}
	timestamps := make(map[string]struct{}, len(records))
	for _, r := range records {
		timestamps[r.Timestamp] = struct{}{}
	}
	return &LedgerService{
		store:      store,
		validator:  validate,
		logger:     logger,
		metrics:    metrics,
		now:        time.Now,
		records:    records,
		timestamps: timestamps,
	}, nil
}

// OnMutate registers a hook invoked after every successful mutation.
func (s *LedgerService) OnMutate(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.onMutate = append(s.onMutate, fn)
	s.mu.Unlock()
}

// Record creates a new attendance record for the candidate, stamped with the
// current day and time. At most one record may exist per student per day.
func (s *LedgerService) Record(ctx context.Context, candidate models.Candidate, status models.AttendanceStatus) (*models.AttendanceRecord, error) {
	if !status.Valid() {
		return nil, s.reject(appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported status %q", status)))
	}
	if err := s.validator.Struct(candidatePayload{StudentID: candidate.StudentID, Name: candidate.Name}); err != nil {
		return nil, s.reject(appErrors.Wrap(err, appErrors.ErrInvalidCandidate.Code, appErrors.ErrInvalidCandidate.Status, "invalid student data"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stamp := s.now()
	today := stamp.Format(dateLayout)
	for _, r := range s.records {
		if r.StudentID == candidate.StudentID && r.Date == today {
			return nil, s.reject(appErrors.Clone(appErrors.ErrDuplicateToday, fmt.Sprintf("%s is already marked for today", candidate.Name)))
		}
	}

	record := models.AttendanceRecord{
		StudentID: candidate.StudentID,
		Name:      candidate.Name,
		Class:     candidate.Class,
		Roll:      candidate.Roll,
		Date:      today,
		Time:      stamp.Format(timeLayout),
		Status:    status,
		Timestamp: s.uniqueTimestamp(stamp),
	}

	updated := make([]models.AttendanceRecord, 0, len(s.records)+1)
	updated = append(updated, record)
	updated = append(updated, s.records...)

	if err := s.store.Save(ctx, updated); err != nil {
		s.logger.Error("ledger write failed", zap.Error(err))
		return nil, s.reject(appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to persist attendance record"))
	}

	s.records = updated
	s.timestamps[record.Timestamp] = struct{}{}
	if s.metrics != nil {
		s.metrics.RecordMarked(string(status))
	}
	s.notifyLocked()
	return &record, nil
}

// UpdateStatus overwrites the status of the record identified by timestamp.
// Setting the status it already has is reported as NO_CHANGE.
func (s *LedgerService) UpdateStatus(ctx context.Context, timestamp string, newStatus models.AttendanceStatus) error {
	if !newStatus.Valid() {
		return s.reject(appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported status %q", newStatus)))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, r := range s.records {
		if r.Timestamp == timestamp {
			idx = i
			break
		}
	}
	if idx == -1 {
		return s.reject(appErrors.Clone(appErrors.ErrRecordNotFound, "attendance record not found"))
	}
	if s.records[idx].Status == newStatus {
		return s.reject(appErrors.Clone(appErrors.ErrNoChange, fmt.Sprintf("already marked %s", newStatus)))
	}

	updated := append([]models.AttendanceRecord(nil), s.records...)
	updated[idx].Status = newStatus

	if err := s.store.Save(ctx, updated); err != nil {
		s.logger.Error("ledger write failed", zap.Error(err))
		return s.reject(appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to persist status change"))
	}

	s.records = updated
	s.notifyLocked()
	return nil
}

// ResetDate removes every record for the given calendar day. Removing zero
// records is a valid no-op. Confirmation is the caller's concern.
func (s *LedgerService) ResetDate(ctx context.Context, date string) error {
	if date == "" {
		return appErrors.Clone(appErrors.ErrValidation, "date is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]models.AttendanceRecord, 0, len(s.records))
	removed := make([]string, 0)
	for _, r := range s.records {
		if r.Date == date {
			removed = append(removed, r.Timestamp)
			continue
		}
		kept = append(kept, r)
	}

	if err := s.store.Save(ctx, kept); err != nil {
		s.logger.Error("ledger write failed", zap.Error(err))
		return s.reject(appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to persist reset"))
	}

	s.records = kept
	for _, ts := range removed {
		delete(s.timestamps, ts)
	}
	s.logger.Info("attendance reset", zap.String("date", date), zap.Int("removed", len(removed)))
	s.notifyLocked()
	return nil
}

// Filter returns records matching the composed filters, in stored order.
// Search matches case-insensitively against name or student ID.
func (s *LedgerService) Filter(filter models.AttendanceFilter) []models.AttendanceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	search := strings.ToLower(filter.Search)
	out := make([]models.AttendanceRecord, 0, len(s.records))
	for _, r := range s.records {
		if search != "" &&
			!strings.Contains(strings.ToLower(r.Name), search) &&
			!strings.Contains(strings.ToLower(r.StudentID), search) {
			continue
		}
		if filter.Date != "" && r.Date != filter.Date {
			continue
		}
		if filter.Status != "" && filter.Status != models.StatusAll && string(r.Status) != filter.Status {
			continue
		}
		out = append(out, r)
	}
	return out
}

// CountByDateAndStatus counts records matching both the date and the status.
func (s *LedgerService) CountByDateAndStatus(date string, status models.AttendanceStatus) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, r := range s.records {
		if r.Date == date && r.Status == status {
			count++
		}
	}
	return count
}

// Recent returns the first n records in stored (newest-first) order.
func (s *LedgerService) Recent(n int) []models.AttendanceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n <= 0 || n > len(s.records) {
		n = len(s.records)
	}
	return append([]models.AttendanceRecord(nil), s.records[:n]...)
}

// Snapshot returns a copy of the full ledger in stored order.
func (s *LedgerService) Snapshot() []models.AttendanceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AttendanceRecord(nil), s.records...)
}

// Today returns the current calendar day in ledger date format.
func (s *LedgerService) Today() string {
	return s.now().Format(dateLayout)
}

// uniqueTimestamp formats the creation instant, bumping by a nanosecond until
// it differs from every existing record. Callers hold the mutex.
func (s *LedgerService) uniqueTimestamp(stamp time.Time) string {
	ts := stamp.UTC()
	formatted := ts.Format(time.RFC3339Nano)
	for {
		if _, exists := s.timestamps[formatted]; !exists {
			return formatted
		}
		ts = ts.Add(time.Nanosecond)
		formatted = ts.Format(time.RFC3339Nano)
	}
}

func (s *LedgerService) notifyLocked() {
	for _, fn := range s.onMutate {
		fn()
	}
}

func (s *LedgerService) reject(err *appErrors.Error) *appErrors.Error {
	if s.metrics != nil {
		s.metrics.RecordRejected(err.Code)
	}
	return err
}
