package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmssa/attendance-register/internal/models"
	appErrors "github.com/kmssa/attendance-register/pkg/errors"
)

type mockRecorder struct {
	mu       sync.Mutex
	recorded []models.Candidate
	statuses []models.AttendanceStatus
	err      error
}

func (m *mockRecorder) Record(ctx context.Context, candidate models.Candidate, status models.AttendanceStatus) (*models.AttendanceRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	m.recorded = append(m.recorded, candidate)
	m.statuses = append(m.statuses, status)
	m.mu.Unlock()
	return &models.AttendanceRecord{
		StudentID: candidate.StudentID,
		Name:      candidate.Name,
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}, nil
}

func (m *mockRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recorded)
}

type mockDirectory struct {
	students map[string]models.Student
}

func (m *mockDirectory) Lookup(studentID string) (*models.Student, error) {
	if s, ok := m.students[studentID]; ok {
		return &s, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found, please check the ID")
}

func newTestIngest(ledger *mockRecorder) *IngestService {
	roster := &mockDirectory{students: map[string]models.Student{
		"kmssa8100250": {StudentID: "kmssa8100250", Name: "Prashanta Bhusal", Class: "10T", Roll: 31},
	}}
	return NewIngestService(ledger, roster, nil, nil, IngestConfig{AllowedClass: "10T"})
}

func TestIngestScanMarksPresent(t *testing.T) {
	ledger := &mockRecorder{}
	svc := newTestIngest(ledger)

	record, err := svc.IngestScan(context.Background(), `{"studentId":"kmssa8100250","name":"Prashanta Bhusal","class":"10T","roll":31}`)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPresent, record.Status)
	require.Len(t, ledger.recorded, 1)
	assert.Equal(t, "kmssa8100250", ledger.recorded[0].StudentID)
	assert.Equal(t, 31, ledger.recorded[0].Roll)
}

func TestIngestScanMalformedPayload(t *testing.T) {
	ledger := &mockRecorder{}
	svc := newTestIngest(ledger)

	_, err := svc.IngestScan(context.Background(), "not json at all")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrMalformedPayload.Code, appErrors.FromError(err).Code)
	assert.Contains(t, err.Error(), "invalid QR code data format")

	_, err = svc.IngestScan(context.Background(), `{"class":"10T"}`)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrMalformedPayload.Code, appErrors.FromError(err).Code)
	assert.Contains(t, err.Error(), "invalid QR code format")

	assert.Empty(t, ledger.recorded)
}

func TestIngestScanClassGate(t *testing.T) {
	ledger := &mockRecorder{}
	svc := newTestIngest(ledger)

	_, err := svc.IngestScan(context.Background(), `{"studentId":"x1","name":"Visitor","class":"9A"}`)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrClassNotAllowed.Code, appErrors.FromError(err).Code)
	assert.Empty(t, ledger.recorded)
}

func TestIngestEligibilityNormalizesClass(t *testing.T) {
	svc := newTestIngest(&mockRecorder{})

	assert.NoError(t, svc.CheckEligibility(models.Candidate{Class: "10T"}))
	assert.NoError(t, svc.CheckEligibility(models.Candidate{Class: "  10t "}))
	assert.Error(t, svc.CheckEligibility(models.Candidate{Class: ""}))
	assert.Error(t, svc.CheckEligibility(models.Candidate{Class: "10 T"}))
}

func TestIngestEligibilityUsesConfiguredNotice(t *testing.T) {
	svc := NewIngestService(&mockRecorder{}, &mockDirectory{}, nil, nil, IngestConfig{
		AllowedClass:    "10T",
		RejectionNotice: "contact the office",
	})

	err := svc.CheckEligibility(models.Candidate{Class: "8B"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contact the office")
}

func TestIngestMarkManualBypassesGate(t *testing.T) {
	ledger := &mockRecorder{}
	roster := &mockDirectory{students: map[string]models.Student{
		"kmssa8100260": {StudentID: "kmssa8100260", Name: "Transferred Student", Class: "9B", Roll: 4},
	}}
	svc := NewIngestService(ledger, roster, nil, nil, IngestConfig{AllowedClass: "10T"})

	record, err := svc.MarkManual(context.Background(), "kmssa8100260", models.StatusAbsent)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAbsent, record.Status)
	require.Len(t, ledger.recorded, 1)
	assert.Equal(t, "Transferred Student", ledger.recorded[0].Name)
}

func TestIngestMarkManualUnknownStudent(t *testing.T) {
	svc := newTestIngest(&mockRecorder{})

	_, err := svc.MarkManual(context.Background(), "unknown", models.StatusPresent)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestIngestFeedProcessesQueuedScans(t *testing.T) {
	ledger := &mockRecorder{}
	svc := newTestIngest(ledger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.StartFeed(ctx)

	_, err := svc.SubmitScan(`{"studentId":"kmssa8100250","name":"Prashanta Bhusal","class":"10T"}`)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return ledger.count() == 1
	}, time.Second, 10*time.Millisecond)

	svc.StopFeed()
	_, err = svc.SubmitScan(`{"studentId":"kmssa8100251","name":"Prarambha Bashyal","class":"10T"}`)
	require.Error(t, err)
	assert.Equal(t, 1, ledger.count())
}

func TestIngestSubmitRejectedBeforeStart(t *testing.T) {
	svc := newTestIngest(&mockRecorder{})

	_, err := svc.SubmitScan(`{"studentId":"s","name":"n","class":"10T"}`)
	require.Error(t, err)
}
