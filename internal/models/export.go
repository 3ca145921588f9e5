package models

import "time"

// ExportFormat enumerates supported export renderings.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// Valid returns true for supported formats.
func (f ExportFormat) Valid() bool {
	return f == ExportFormatCSV || f == ExportFormatPDF
}

// ExportStatus tracks an asynchronous export job.
type ExportStatus string

const (
	ExportStatusQueued    ExportStatus = "QUEUED"
	ExportStatusRunning   ExportStatus = "RUNNING"
	ExportStatusCompleted ExportStatus = "COMPLETED"
	ExportStatusFailed    ExportStatus = "FAILED"
)

// ExportJob describes one queued export of the attendance ledger.
type ExportJob struct {
	ID           string           `json:"id"`
	Format       ExportFormat     `json:"format"`
	Filter       AttendanceFilter `json:"-"`
	Status       ExportStatus     `json:"status"`
	ResultURL    *string          `json:"resultUrl,omitempty"`
	ErrorMessage *string          `json:"errorMessage,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
	FinishedAt   *time.Time       `json:"finishedAt,omitempty"`
}
