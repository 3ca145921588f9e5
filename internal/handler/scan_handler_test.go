package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmssa/attendance-register/internal/models"
	appErrors "github.com/kmssa/attendance-register/pkg/errors"
)

type ingesterMock struct {
	record      *models.AttendanceRecord
	ingestErr   error
	submitID    string
	submitErr   error
	lastPayload string
}

func (m *ingesterMock) IngestScan(ctx context.Context, decodedText string) (*models.AttendanceRecord, error) {
	m.lastPayload = decodedText
	if m.ingestErr != nil {
		return nil, m.ingestErr
	}
	return m.record, nil
}

func (m *ingesterMock) SubmitScan(decodedText string) (string, error) {
	m.lastPayload = decodedText
	return m.submitID, m.submitErr
}

func TestScanHandlerIngest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ingest := &ingesterMock{record: &models.AttendanceRecord{StudentID: "kmssa8100250", Status: models.StatusPresent}}
	handler := NewScanHandler(ingest)

	body := bytes.NewBufferString(`{"payload":"{\"studentId\":\"kmssa8100250\",\"name\":\"Prashanta Bhusal\",\"class\":\"10T\"}"}`)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/scan", body)
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Ingest(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, ingest.lastPayload, "kmssa8100250")
}

func TestScanHandlerIngestMissingPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewScanHandler(&ingesterMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/scan", bytes.NewBufferString(`{}`))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Ingest(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScanHandlerIngestClassRejection(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ingest := &ingesterMock{ingestErr: appErrors.Clone(appErrors.ErrClassNotAllowed, "not registered")}
	handler := NewScanHandler(ingest)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/scan", bytes.NewBufferString(`{"payload":"{}"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Ingest(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestScanHandlerQueue(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ingest := &ingesterMock{submitID: "sub-1"}
	handler := NewScanHandler(ingest)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/scan/queue", bytes.NewBufferString(`{"payload":"raw"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Queue(c)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), "sub-1")
}
