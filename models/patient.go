package models

import "time"

type PatientSummary struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email,omitempty"`
	PhoneNo    string     `json:"phoneNo,omitempty"`
	AssignedAt *time.Time `json:"assignedAt,omitempty"`
}

func SummarizePatient(u User) PatientSummary {
	return PatientSummary{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		PhoneNo:    u.PhoneNo,
		AssignedAt: u.AssignedAt,
	}
}
