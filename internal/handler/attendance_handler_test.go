package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmssa/attendance-register/internal/models"
	appErrors "github.com/kmssa/attendance-register/pkg/errors"
	"github.com/kmssa/attendance-register/pkg/response"
)

type ledgerMock struct {
	records       []models.AttendanceRecord
	lastFilter    models.AttendanceFilter
	lastTimestamp string
	lastStatus    models.AttendanceStatus
	resetDate     string
	updateErr     error
	resetErr      error
}

func (m *ledgerMock) UpdateStatus(ctx context.Context, timestamp string, newStatus models.AttendanceStatus) error {
	m.lastTimestamp = timestamp
	m.lastStatus = newStatus
	return m.updateErr
}

func (m *ledgerMock) ResetDate(ctx context.Context, date string) error {
	m.resetDate = date
	return m.resetErr
}

func (m *ledgerMock) Filter(filter models.AttendanceFilter) []models.AttendanceRecord {
	m.lastFilter = filter
	return m.records
}

func (m *ledgerMock) Recent(n int) []models.AttendanceRecord {
	if n > len(m.records) {
		n = len(m.records)
	}
	return m.records[:n]
}

type markerMock struct {
	record *models.AttendanceRecord
	err    error
	lastID string
}

func (m *markerMock) MarkManual(ctx context.Context, studentID string, status models.AttendanceStatus) (*models.AttendanceRecord, error) {
	m.lastID = studentID
	if m.err != nil {
		return nil, m.err
	}
	return m.record, nil
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope
}

func TestAttendanceHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ledger := &ledgerMock{records: []models.AttendanceRecord{{StudentID: "s1"}, {StudentID: "s2"}}}
	handler := NewAttendanceHandler(ledger, &markerMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/attendance?search=bhusal&date=2025-03-14&status=Present", nil)

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.AttendanceFilter{Search: "bhusal", Date: "2025-03-14", Status: "Present"}, ledger.lastFilter)

	envelope := decodeEnvelope(t, w)
	assert.EqualValues(t, 2, envelope.Meta["count"])
}

func TestAttendanceHandlerRecentInvalidLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAttendanceHandler(&ledgerMock{}, &markerMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/attendance/recent?limit=zero", nil)

	handler.Recent(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAttendanceHandlerMark(t *testing.T) {
	gin.SetMode(gin.TestMode)
	marker := &markerMock{record: &models.AttendanceRecord{StudentID: "kmssa8100250", Status: models.StatusAbsent}}
	handler := NewAttendanceHandler(&ledgerMock{}, marker)

	body := bytes.NewBufferString(`{"studentId":"kmssa8100250","status":"Absent"}`)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/attendance", body)
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Mark(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "kmssa8100250", marker.lastID)
}

func TestAttendanceHandlerMarkMissingBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAttendanceHandler(&ledgerMock{}, &markerMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/attendance", bytes.NewBufferString(`{}`))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Mark(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAttendanceHandlerUpdateStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ledger := &ledgerMock{}
	handler := NewAttendanceHandler(ledger, &markerMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPatch, "/attendance/2025-03-14T09:30:15Z", bytes.NewBufferString(`{"status":"Absent"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "timestamp", Value: "2025-03-14T09:30:15Z"}}

	handler.UpdateStatus(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2025-03-14T09:30:15Z", ledger.lastTimestamp)
	assert.Equal(t, models.StatusAbsent, ledger.lastStatus)
}

func TestAttendanceHandlerUpdateStatusNoChange(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ledger := &ledgerMock{updateErr: appErrors.Clone(appErrors.ErrNoChange, "already marked Present")}
	handler := NewAttendanceHandler(ledger, &markerMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPatch, "/attendance/t1", bytes.NewBufferString(`{"status":"Present"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "timestamp", Value: "t1"}}

	handler.UpdateStatus(c)
	require.Equal(t, http.StatusConflict, w.Code)

	envelope := decodeEnvelope(t, w)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrNoChange.Code, envelope.Error.Code)
}

func TestAttendanceHandlerReset(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ledger := &ledgerMock{}
	handler := NewAttendanceHandler(ledger, &markerMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodDelete, "/attendance?date=2025-03-14", nil)

	handler.Reset(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "2025-03-14", ledger.resetDate)
}

func TestAttendanceHandlerResetRequiresDate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ledger := &ledgerMock{}
	handler := NewAttendanceHandler(ledger, &markerMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodDelete, "/attendance", nil)

	handler.Reset(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, ledger.resetDate)
}
