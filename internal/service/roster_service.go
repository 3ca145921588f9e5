package service

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/kmssa/attendance-register/internal/models"
	appErrors "github.com/kmssa/attendance-register/pkg/errors"
)

// seedRoster mirrors the pre-registered students the register shipped with.
var seedRoster = []models.Student{
	{StudentID: "kmssa8100250", Name: "Prashanta Bhusal", Class: "10T", Roll: 31},
	{StudentID: "kmssa8100251", Name: "Prarambha Bashyal", Class: "10T", Roll: 29},
}

// RosterService is the read-only student directory. Entries come from a JSON
// roster file when configured, otherwise from the built-in seed roster.
type RosterService struct {
	students map[string]models.Student
	logger   *zap.Logger
}

// NewRosterService loads the roster once at startup.
func NewRosterService(filePath string, logger *zap.Logger) (*RosterService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	entries := seedRoster
	if filePath != "" {
		raw, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("read roster file: %w", err)
		}
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, fmt.Errorf("decode roster file: %w", err)
		}
	}

	students := make(map[string]models.Student, len(entries))
	for _, s := range entries {
		students[s.StudentID] = s
	}
	logger.Info("roster loaded", zap.Int("students", len(students)))
	return &RosterService{students: students, logger: logger}, nil
}

// Lookup returns the directory entry for the given student ID.
func (s *RosterService) Lookup(studentID string) (*models.Student, error) {
	student, ok := s.students[studentID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found, please check the ID")
	}
	return &student, nil
}

// BadgeQR renders the student's registration payload as a QR PNG. The payload
// is the same JSON shape the scanner decodes on ingestion.
func (s *RosterService) BadgeQR(studentID string, size int) ([]byte, error) {
	student, err := s.Lookup(studentID)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = 256
	}
	payload, err := json.Marshal(student)
	if err != nil {
		return nil, fmt.Errorf("encode badge payload: %w", err)
	}
	png, err := qrcode.Encode(string(payload), qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("render badge qr: %w", err)
	}
	return png, nil
}

// Students returns every directory entry.
func (s *RosterService) Students() []models.Student {
	out := make([]models.Student, 0, len(s.students))
	for _, student := range s.students {
		out = append(out, student)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out
}

// Size reports the number of directory entries.
func (s *RosterService) Size() int {
	return len(s.students)
}
