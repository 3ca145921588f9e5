package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmssa/attendance-register/internal/models"
	"github.com/kmssa/attendance-register/pkg/storage"
)

type mockExportLedger struct {
	records []models.AttendanceRecord
}

func (m *mockExportLedger) Filter(filter models.AttendanceFilter) []models.AttendanceRecord {
	out := make([]models.AttendanceRecord, 0)
	for _, r := range m.records {
		if filter.Status != "" && filter.Status != models.StatusAll && string(r.Status) != filter.Status {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (m *mockExportLedger) Today() string {
	return "2025-03-14"
}

func sampleRecords() []models.AttendanceRecord {
	return []models.AttendanceRecord{
		{StudentID: "kmssa8100251", Name: "Prarambha Bashyal", Class: "10T", Roll: 29, Date: "2025-03-14", Time: "09:31:02", Status: models.StatusAbsent, Timestamp: "2025-03-14T09:31:02Z"},
		{StudentID: "kmssa8100250", Name: "Prashanta Bhusal", Class: "10T", Roll: 31, Date: "2025-03-14", Time: "09:30:15", Status: models.StatusPresent, Timestamp: "2025-03-14T09:30:15Z"},
	}
}

func newTestExport(t *testing.T, ledger *mockExportLedger) *ExportService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	return NewExportService(ledger, store, signer, ExportServiceConfig{APIPrefix: "/api/v1"}, nil)
}

func TestRenderCSV(t *testing.T) {
	svc := newTestExport(t, &mockExportLedger{records: sampleRecords()})

	payload, filename, err := svc.RenderCSV(models.AttendanceFilter{})
	require.NoError(t, err)
	assert.Equal(t, "attendance_records_2025-03-14.csv", filename)

	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Student ID,Name,Class,Roll No,Date,Time,Status", lines[0])
	assert.Equal(t, "kmssa8100251,Prarambha Bashyal,10T,29,2025-03-14,09:31:02,Absent", lines[1])
	assert.Equal(t, "kmssa8100250,Prashanta Bhusal,10T,31,2025-03-14,09:30:15,Present", lines[2])
}

func TestRenderCSVRespectsFilter(t *testing.T) {
	svc := newTestExport(t, &mockExportLedger{records: sampleRecords()})

	payload, _, err := svc.RenderCSV(models.AttendanceFilter{Status: "Present"})
	require.NoError(t, err)
	assert.NotContains(t, string(payload), "Prarambha")
	assert.Contains(t, string(payload), "Prashanta")
}

func TestRenderCSVEmptyLedger(t *testing.T) {
	svc := newTestExport(t, &mockExportLedger{})

	_, _, err := svc.RenderCSV(models.AttendanceFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no records to export")
}

func TestExportJobLifecycle(t *testing.T) {
	svc := newTestExport(t, &mockExportLedger{records: sampleRecords()})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.StartWorkers(ctx)
	defer svc.StopWorkers()

	job, err := svc.CreateJob(ctx, models.ExportFormatCSV, models.AttendanceFilter{})
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)

	require.Eventually(t, func() bool {
		got, err := svc.GetJob(job.ID)
		return err == nil && got.Status == models.ExportStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	done, err := svc.GetJob(job.ID)
	require.NoError(t, err)
	require.NotNil(t, done.ResultURL)
	assert.True(t, strings.HasPrefix(*done.ResultURL, "/api/v1/exports/download/"))
	require.NotNil(t, done.FinishedAt)
}

func TestExportJobPDF(t *testing.T) {
	svc := newTestExport(t, &mockExportLedger{records: sampleRecords()})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.StartWorkers(ctx)
	defer svc.StopWorkers()

	job, err := svc.CreateJob(ctx, models.ExportFormatPDF, models.AttendanceFilter{})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, err := svc.GetJob(job.ID)
		return err == nil && got.Status == models.ExportStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestExportJobUnsupportedFormat(t *testing.T) {
	svc := newTestExport(t, &mockExportLedger{records: sampleRecords()})

	_, err := svc.CreateJob(context.Background(), models.ExportFormat("xlsx"), models.AttendanceFilter{})
	require.Error(t, err)
}

func TestExportGetJobUnknown(t *testing.T) {
	svc := newTestExport(t, &mockExportLedger{})

	_, err := svc.GetJob("no-such-job")
	require.Error(t, err)
}

func TestExportResolveDownload(t *testing.T) {
	svc := newTestExport(t, &mockExportLedger{records: sampleRecords()})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.StartWorkers(ctx)
	defer svc.StopWorkers()

	job, err := svc.CreateJob(ctx, models.ExportFormatCSV, models.AttendanceFilter{})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		got, err := svc.GetJob(job.ID)
		return err == nil && got.Status == models.ExportStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	done, err := svc.GetJob(job.ID)
	require.NoError(t, err)
	token := strings.TrimPrefix(*done.ResultURL, "/api/v1/exports/download/")

	download, err := svc.ResolveDownload(token)
	require.NoError(t, err)
	defer download.File.Close()
	assert.Equal(t, models.ExportFormatCSV, download.Format)
	assert.True(t, strings.HasSuffix(download.Filename, ".csv"))

	_, err = svc.ResolveDownload("tampered-token")
	require.Error(t, err)
}

func TestExportFilenameIncludesJobID(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	svc := NewExportService(&mockExportLedger{records: sampleRecords()}, store, signer, ExportServiceConfig{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.StartWorkers(ctx)
	defer svc.StopWorkers()

	job, err := svc.CreateJob(ctx, models.ExportFormatCSV, models.AttendanceFilter{})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		got, err := svc.GetJob(job.ID)
		return err == nil && got.Status == models.ExportStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "attendance_records_2025-03-14_"+job.ID[:8]+".csv", filepath.Base(entries[0].Name()))
}
