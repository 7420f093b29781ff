package models

import (
	"strconv"
	"time"
)

// NurseSummary is the availability view of a nurse.
type NurseSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Specialty   string `json:"specialty,omitempty"`
	Department  string `json:"department,omitempty"`
	CurrentLoad int64  `json:"currentLoad"`
}

func SummarizeNurse(u User) NurseSummary {
	return NurseSummary{
		ID:          u.ID,
		Name:        u.Name,
		Specialty:   u.Specialty,
		Department:  u.Department,
		CurrentLoad: u.CurrentPatientLoad,
	}
}

// NurseAssignment is the audit record kept under nurse_assignments.
// The patient document stays authoritative.
type NurseAssignment struct {
	ID         string    `json:"id" bson:"_id"`
	NurseID    string    `json:"nurseId" bson:"nurseId"`
	PatientID  string    `json:"patientId" bson:"patientId"`
	DoctorID   string    `json:"doctorId" bson:"doctorId"`
	AssignedAt time.Time `json:"assignedAt" bson:"assignedAt"`
}

// AssignmentID keys the audit record of a pair. The nurse id length
// prefix keeps distinct pairs from sharing a key whatever the ids contain.
func AssignmentID(nurseID, patientID string) string {
	return strconv.Itoa(len(nurseID)) + ":" + nurseID + "_" + patientID
}

type AssignRequest struct {
	PatientID string `json:"patientId" binding:"required"`
	NurseID   string `json:"nurseId" binding:"required"`
}

// AssignmentResult reports the state after an assignment call. Changed is
// false when the call was a no-op.
type AssignmentResult struct {
	PatientID     string `json:"patientId"`
	NurseID       string `json:"nurseId"`
	PreviousNurse string `json:"previousNurseId,omitempty"`
	NurseLoad     int64  `json:"nurseLoad"`
	Changed       bool   `json:"changed"`
}

type RosterEntry struct {
	Nurse    NurseSummary `json:"nurse"`
	Capacity int64        `json:"capacity"`
	Patients []string     `json:"patients"`
}

type LoadCorrection struct {
	NurseID  string `json:"nurseId"`
	Recorded int64  `json:"recorded"`
	Actual   int64  `json:"actual"`
}
