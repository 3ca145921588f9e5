package service

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/kmssa/attendance-register/internal/models"
)

type ledgerReader interface {
	Filter(filter models.AttendanceFilter) []models.AttendanceRecord
	CountByDateAndStatus(date string, status models.AttendanceStatus) int
	Today() string
}

// StatsService computes daily summaries over the ledger. Rates are relative
// to the whole expected cohort, not to the records filed for the day, and a
// day with no records reports both rates as zero.
type StatsService struct {
	ledger        ledgerReader
	cache         *CacheService
	logger        *zap.Logger
	totalStudents int
}

// NewStatsService constructs the stats service.
func NewStatsService(ledger ledgerReader, cache *CacheService, totalStudents int, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if totalStudents <= 0 {
		totalStudents = 1
	}
	return &StatsService{ledger: ledger, cache: cache, logger: logger, totalStudents: totalStudents}
}

// DailySummary returns counts and rates for the given day (today when empty),
// indicating whether the result came from cache.
func (s *StatsService) DailySummary(ctx context.Context, date string) (*models.DailySummary, bool, error) {
	if date == "" {
		date = s.ledger.Today()
	}

	key := cacheKey(date)
	var cached models.DailySummary
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, true, nil
	}

	present := s.ledger.CountByDateAndStatus(date, models.StatusPresent)
	absent := s.ledger.CountByDateAndStatus(date, models.StatusAbsent)
	summary := &models.DailySummary{
		Date:          date,
		PresentCount:  present,
		AbsentCount:   absent,
		TotalRecords:  len(s.ledger.Filter(models.AttendanceFilter{Date: date})),
		TotalStudents: s.totalStudents,
	}
	if present+absent > 0 {
		summary.AttendanceRate = rate(present, s.totalStudents)
		summary.AbsentRate = rate(absent, s.totalStudents)
	}

	if err := s.cache.Set(ctx, key, summary, 0); err != nil {
		s.logger.Warn("summary cache write failed", zap.String("date", date), zap.Error(err))
	}
	return summary, false, nil
}

// Invalidate drops all cached summaries. Wired as a ledger mutation hook.
func (s *StatsService) Invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, "stats:daily:*"); err != nil {
		s.logger.Warn("summary cache invalidation failed", zap.Error(err))
	}
}

func cacheKey(date string) string {
	return fmt.Sprintf("stats:daily:%s", date)
}

func rate(count, total int) int {
	return int(math.Round(float64(count) / float64(total) * 100))
}
