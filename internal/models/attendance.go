package models

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "Present"
	StatusAbsent  AttendanceStatus = "Absent"

	// StatusAll disables status filtering when used in a query.
	StatusAll = "all"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	return s == StatusPresent || s == StatusAbsent
}

// AttendanceRecord is one attendance event for one student on one day.
// Name, Class and Roll are snapshots taken at marking time; they are never
// re-joined from the roster. Timestamp is the record's identity key.
type AttendanceRecord struct {
	StudentID string           `json:"studentId"`
	Name      string           `json:"name"`
	Class     string           `json:"class"`
	Roll      int              `json:"roll"`
	Date      string           `json:"date"`
	Time      string           `json:"time"`
	Status    AttendanceStatus `json:"status"`
	Timestamp string           `json:"timestamp"`
}

// Candidate carries the identifying tuple an ingestion adapter hands to the
// ledger. StudentID and Name are required; Class and Roll are optional.
type Candidate struct {
	StudentID string `json:"studentId"`
	Name      string `json:"name"`
	Class     string `json:"class"`
	Roll      int    `json:"roll"`
}

// AttendanceFilter defines composable query filters over the ledger.
// Empty fields are ignored; a Status of "all" applies no status filtering.
type AttendanceFilter struct {
	Search string
	Date   string
	Status string
}

// DailySummary aggregates one day's attendance against the expected cohort.
type DailySummary struct {
	Date           string `json:"date"`
	PresentCount   int    `json:"presentCount"`
	AbsentCount    int    `json:"absentCount"`
	TotalRecords   int    `json:"totalRecords"`
	TotalStudents  int    `json:"totalStudents"`
	AttendanceRate int    `json:"attendanceRate"`
	AbsentRate     int    `json:"absentRate"`
}
