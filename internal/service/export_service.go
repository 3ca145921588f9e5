package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kmssa/attendance-register/internal/models"
	appErrors "github.com/kmssa/attendance-register/pkg/errors"
	"github.com/kmssa/attendance-register/pkg/export"
	"github.com/kmssa/attendance-register/pkg/jobs"
	"github.com/kmssa/attendance-register/pkg/storage"
)

var exportHeaders = []string{"Student ID", "Name", "Class", "Roll No", "Date", "Time", "Status"}

type exportLedger interface {
	Filter(filter models.AttendanceFilter) []models.AttendanceRecord
	Today() string
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportServiceConfig tunes export behaviour.
type ExportServiceConfig struct {
	APIPrefix       string
	ResultTTL       time.Duration
	CleanupInterval time.Duration
	WorkerRetries   int
}

// ExportDownload aggregates resolved download data.
type ExportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ExportFormat
	ExpiresAt time.Time
}

// ExportService renders the ledger to CSV/PDF, both synchronously and through
// a background job queue with signed download URLs. Job metadata lives in an
// in-memory registry for the lifetime of the process.
type ExportService struct {
	ledger  exportLedger
	storage fileStorage
	csv     csvRenderer
	pdf     pdfRenderer
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     ExportServiceConfig

	queue *jobs.Queue

	mu       sync.Mutex
	registry map[string]*models.ExportJob
}

// NewExportService constructs the export service. Call StartWorkers before
// creating jobs.
func NewExportService(ledger exportLedger, store fileStorage, signer *storage.SignedURLSigner, cfg ExportServiceConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Hour
	}
	svc := &ExportService{
		ledger:   ledger,
		storage:  store,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		signer:   signer,
		logger:   logger,
		cfg:      cfg,
		registry: make(map[string]*models.ExportJob),
	}
	svc.queue = jobs.NewQueue("exports", svc.processJob, jobs.QueueConfig{
		Workers:    1,
		MaxRetries: cfg.WorkerRetries,
		Logger:     logger,
	})
	return svc
}

// StartWorkers begins job consumption and the storage cleanup loop.
func (s *ExportService) StartWorkers(ctx context.Context) {
	s.queue.Start(ctx)
	go s.cleanupLoop(ctx)
}

// StopWorkers drains the queue workers.
func (s *ExportService) StopWorkers() {
	s.queue.Stop()
}

// RenderCSV produces the ledger CSV synchronously along with its download
// filename. Exporting an empty ledger is rejected.
func (s *ExportService) RenderCSV(filter models.AttendanceFilter) ([]byte, string, error) {
	records := s.ledger.Filter(filter)
	if len(records) == 0 {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "no records to export")
	}
	payload, err := s.csv.Render(dataset(records))
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return payload, fmt.Sprintf("attendance_records_%s.csv", s.ledger.Today()), nil
}

// CreateJob registers and enqueues an asynchronous export.
func (s *ExportService) CreateJob(_ context.Context, format models.ExportFormat, filter models.AttendanceFilter) (*models.ExportJob, error) {
	if !format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %q", format))
	}
	job := &models.ExportJob{
		ID:        uuid.NewString(),
		Format:    format,
		Filter:    filter,
		Status:    models.ExportStatusQueued,
		CreatedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	s.registry[job.ID] = job
	s.mu.Unlock()

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(format)}); err != nil {
		s.failJob(job.ID, "failed to enqueue export job")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export job")
	}
	return s.jobCopy(job.ID), nil
}

// GetJob returns job metadata by ID.
func (s *ExportService) GetJob(id string) (*models.ExportJob, error) {
	job := s.jobCopy(id)
	if job == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	return job, nil
}

// ResolveDownload validates a signed token and opens the referenced file.
func (s *ExportService) ResolveDownload(token string) (*ExportDownload, error) {
	jobID, relPath, expiresAt, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid or expired download token")
	}
	job := s.jobCopy(jobID)
	if job == nil || job.Status != models.ExportStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export not available")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export file missing")
	}
	return &ExportDownload{File: file, Filename: relPath, Format: job.Format, ExpiresAt: expiresAt}, nil
}

func (s *ExportService) processJob(_ context.Context, queued jobs.Job) error {
	job := s.jobCopy(queued.ID)
	if job == nil {
		return nil
	}
	s.setStatus(queued.ID, models.ExportStatusRunning)

	records := s.ledger.Filter(job.Filter)
	data := dataset(records)

	var payload []byte
	var err error
	switch job.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(data)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(data, "Attendance Records")
	default:
		err = fmt.Errorf("unsupported format %s", job.Format)
	}
	if err != nil {
		s.failJob(queued.ID, err.Error())
		return err
	}

	filename := fmt.Sprintf("attendance_records_%s_%s.%s", s.ledger.Today(), queued.ID[:8], job.Format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		s.failJob(queued.ID, err.Error())
		return err
	}

	token, _, err := s.signer.Generate(queued.ID, relPath)
	if err != nil {
		s.failJob(queued.ID, err.Error())
		return err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	url := fmt.Sprintf("%s/exports/download/%s", prefix, token)
	s.completeJob(queued.ID, url)
	s.logger.Info("export completed",
		zap.String("job_id", queued.ID),
		zap.String("format", string(job.Format)),
		zap.Int("records", len(records)),
	)
	return nil
}

func (s *ExportService) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL)
			if err != nil {
				s.logger.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(deleted) > 0 {
				s.logger.Info("expired exports removed", zap.Int("count", len(deleted)))
			}
		}
	}
}

func (s *ExportService) jobCopy(id string) *models.ExportJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.registry[id]
	if !ok {
		return nil
	}
	clone := *job
	return &clone
}

func (s *ExportService) setStatus(id string, status models.ExportStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.registry[id]; ok {
		job.Status = status
	}
}

func (s *ExportService) failJob(id, message string) {
	now := time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.registry[id]; ok {
		job.Status = models.ExportStatusFailed
		job.ErrorMessage = &message
		job.FinishedAt = &now
	}
}

func (s *ExportService) completeJob(id, url string) {
	now := time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.registry[id]; ok {
		job.Status = models.ExportStatusCompleted
		job.ResultURL = &url
		job.FinishedAt = &now
	}
}

func dataset(records []models.AttendanceRecord) export.Dataset {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.StudentID,
			r.Name,
			r.Class,
			strconv.Itoa(r.Roll),
			r.Date,
			r.Time,
			string(r.Status),
		})
	}
	return export.Dataset{Headers: exportHeaders, Rows: rows}
}
