package models

// Student is one entry of the read-only roster directory.
type Student struct {
	StudentID string `json:"studentId"`
	Name      string `json:"name"`
	Class     string `json:"class"`
	Roll      int    `json:"roll"`
}

// Candidate converts a roster entry into a ledger candidate.
func (s Student) Candidate() Candidate {
	return Candidate{StudentID: s.StudentID, Name: s.Name, Class: s.Class, Roll: s.Roll}
}
