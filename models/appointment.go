package models

import "time"

type AppointmentStatus string

const (
	StatusPending          AppointmentStatus = "pending"
	StatusConfirmed        AppointmentStatus = "confirmed"
	StatusScheduled        AppointmentStatus = "scheduled"
	StatusCompleted        AppointmentStatus = "completed"
	StatusDeclinedDoctor   AppointmentStatus = "declined_doctor"
	StatusCancelledPatient AppointmentStatus = "cancelled_patient"
	StatusDeclined         AppointmentStatus = "declined"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusScheduled, StatusCompleted,
		StatusDeclinedDoctor, StatusCancelledPatient, StatusDeclined:
		return true
	}
	return false
}

type Appointment struct {
	ID                  string            `json:"id" bson:"_id"`
	PatientID           string            `json:"patientId" bson:"patientId"`
	PatientName         string            `json:"patientName" bson:"patientName"`
	DoctorID            string            `json:"doctorId" bson:"doctorId"`
	DoctorName          string            `json:"doctorName" bson:"doctorName"`
	ScheduledAt         time.Time         `json:"scheduledAt" bson:"scheduledAt"`
	Reason              string            `json:"reason,omitempty" bson:"reason,omitempty"`
	Status              AppointmentStatus `json:"status" bson:"status"`
	StatusLastUpdatedAt *time.Time        `json:"statusLastUpdatedAt,omitempty" bson:"statusLastUpdatedAt,omitempty"`
	CancellationReason  string            `json:"cancellationReason,omitempty" bson:"cancellationReason,omitempty"`
	CreatedAt           time.Time         `json:"createdAt" bson:"createdAt"`
}

type BookAppointment struct {
	DoctorID    string    `json:"doctorId" binding:"required"`
	ScheduledAt time.Time `json:"scheduledAt" binding:"required"`
	Reason      string    `json:"reason"`
}

type AppointmentStatusUpdate struct {
	Status             AppointmentStatus `json:"newStatus" binding:"required"`
	CancellationReason string            `json:"cancellationReason"`
}

type StatusChangeResult struct {
	Appointment  Appointment    `json:"appointment"`
	Message      string         `json:"message"`
	Notification DispatchResult `json:"notificationResult"`
}
