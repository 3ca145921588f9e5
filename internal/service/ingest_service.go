package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kmssa/attendance-register/internal/models"
	appErrors "github.com/kmssa/attendance-register/pkg/errors"
	"github.com/kmssa/attendance-register/pkg/jobs"
)

type attendanceRecorder interface {
	Record(ctx context.Context, candidate models.Candidate, status models.AttendanceStatus) (*models.AttendanceRecord, error)
}

type studentDirectory interface {
	Lookup(studentID string) (*models.Student, error)
}

// IngestConfig tunes ingestion behaviour.
type IngestConfig struct {
	AllowedClass    string
	RejectionNotice string
	FeedBufferSize  int
}

// IngestService turns untrusted scanner payloads and manual entries into
// ledger records. QR-sourced candidates pass a class eligibility gate before
// they reach the ledger; manual entries, resolved through the roster
// directory, do not.
type IngestService struct {
	ledger  attendanceRecorder
	roster  studentDirectory
	metrics *MetricsService
	logger  *zap.Logger
	cfg     IngestConfig
	feed    *jobs.Queue
}

// NewIngestService constructs the ingestion service. The scan feed is created
// but not started; call StartFeed to begin consuming queued deliveries.
func NewIngestService(ledger attendanceRecorder, roster studentDirectory, metrics *MetricsService, logger *zap.Logger, cfg IngestConfig) *IngestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.AllowedClass == "" {
		cfg.AllowedClass = "10T"
	}
	svc := &IngestService{
		ledger:  ledger,
		roster:  roster,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
	}
	svc.feed = jobs.NewQueue("scan-feed", svc.handleFeedJob, jobs.QueueConfig{
		Workers:    1,
		BufferSize: cfg.FeedBufferSize,
		Logger:     logger,
	})
	return svc
}

// ParsePayload decodes a scanned QR text payload into a candidate. Payloads
// that are not JSON or lack the required identifying fields are rejected
// without touching the ledger.
func (s *IngestService) ParsePayload(decodedText string) (models.Candidate, error) {
	var candidate models.Candidate
	if err := json.Unmarshal([]byte(decodedText), &candidate); err != nil {
		return models.Candidate{}, appErrors.Wrap(err, appErrors.ErrMalformedPayload.Code, appErrors.ErrMalformedPayload.Status, "invalid QR code data format")
	}
	if candidate.StudentID == "" || candidate.Name == "" {
		return models.Candidate{}, appErrors.Clone(appErrors.ErrMalformedPayload, "invalid QR code format")
	}
	return candidate, nil
}

// CheckEligibility enforces the class gate for QR-sourced candidates.
func (s *IngestService) CheckEligibility(candidate models.Candidate) error {
	class := strings.ToUpper(strings.TrimSpace(candidate.Class))
	if class != strings.ToUpper(s.cfg.AllowedClass) {
		notice := s.cfg.RejectionNotice
		if notice == "" {
			notice = appErrors.ErrClassNotAllowed.Message
		}
		return appErrors.Clone(appErrors.ErrClassNotAllowed, notice)
	}
	return nil
}

// IngestScan runs one decoded payload through parse, gate and ledger, marking
// the student present. Each call is one atomic pass; a rejection at any step
// leaves the ledger unchanged.
func (s *IngestService) IngestScan(ctx context.Context, decodedText string) (*models.AttendanceRecord, error) {
	s.metrics.ScanSubmitted()

	candidate, err := s.ParsePayload(decodedText)
	if err != nil {
		return nil, err
	}
	if err := s.CheckEligibility(candidate); err != nil {
		return nil, err
	}
	return s.ledger.Record(ctx, candidate, models.StatusPresent)
}

// MarkManual records attendance for a roster student with the given status.
// The eligibility gate does not apply to manual entries.
func (s *IngestService) MarkManual(ctx context.Context, studentID string, status models.AttendanceStatus) (*models.AttendanceRecord, error) {
	student, err := s.roster.Lookup(studentID)
	if err != nil {
		return nil, err
	}
	return s.ledger.Record(ctx, student.Candidate(), status)
}

// StartFeed begins consuming queued scan deliveries. A single worker
// serializes them: each delivery is one atomic validation-to-persistence
// pass with no overlap between deliveries.
func (s *IngestService) StartFeed(ctx context.Context) {
	s.feed.Start(ctx)
}

// StopFeed cancels the feed. Once it returns, no further delivery is
// processed and SubmitScan rejects new payloads.
func (s *IngestService) StopFeed() {
	s.feed.Stop()
}

// SubmitScan queues a decoded payload for the feed worker.
func (s *IngestService) SubmitScan(decodedText string) (string, error) {
	id := uuid.NewString()
	if err := s.feed.Enqueue(jobs.Job{ID: id, Type: "scan", Payload: decodedText}); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "scanner feed is not running")
	}
	return id, nil
}

// handleFeedJob processes one queued delivery. Rejections are outcomes, not
// failures: they are logged and counted, never retried.
func (s *IngestService) handleFeedJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(string)
	if !ok {
		s.logger.Warn("scan feed dropped non-string payload", zap.String("job_id", job.ID))
		return nil
	}
	record, err := s.IngestScan(ctx, payload)
	if err != nil {
		s.logger.Info("scan rejected",
			zap.String("job_id", job.ID),
			zap.String("code", appErrors.FromError(err).Code),
			zap.String("reason", err.Error()),
		)
		return nil
	}
	s.logger.Info("scan recorded",
		zap.String("job_id", job.ID),
		zap.String("student_id", record.StudentID),
		zap.String("timestamp", record.Timestamp),
	)
	return nil
}
