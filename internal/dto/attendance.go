package dto

// ScanRequest carries one decoded QR payload. The payload is the raw decoded
// text, not a parsed structure; the ingestion service owns parsing.
type ScanRequest struct {
	Payload string `json:"payload" binding:"required"`
}

// ScanQueuedResponse acknowledges a feed submission.
type ScanQueuedResponse struct {
	SubmissionID string `json:"submissionId"`
}

// ManualMarkRequest records attendance for a roster student.
type ManualMarkRequest struct {
	StudentID string `json:"studentId" binding:"required"`
	Status    string `json:"status" binding:"required"`
}

// StatusUpdateRequest corrects the status of an existing record.
type StatusUpdateRequest struct {
	Status string `json:"status" binding:"required"`
}
