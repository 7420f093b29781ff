package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"MamaCare/authorization"
	"MamaCare/db"
	"MamaCare/models"
	"MamaCare/notification"
	"MamaCare/role"
	"MamaCare/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type AppointmentService struct {
	store    db.Store
	notifier *NotificationService
	events   notification.Publisher
	log      *zap.Logger
}

/*
* The doctor must exist and hold the doctor role
* The appointment starts pending and the doctor is notified
 */
func (s *AppointmentService) Book(ctx context.Context, patientID string, req models.BookAppointment) (models.Appointment, error) {
	doctorID := strings.TrimSpace(req.DoctorID)
	if doctorID == "" {
		return models.Appointment{}, util.InvalidArgument("doctorId is required")
	}
	if req.ScheduledAt.IsZero() {
		return models.Appointment{}, util.InvalidArgument("scheduledAt is required")
	}
	doctor, err := getUserWithRole(ctx, s.store, doctorID, role.Doctor, util.CODE_USER_NOT_FOUND, "doctor not found")
	if err != nil {
		return models.Appointment{}, classify(err)
	}
	patient, err := getUser(ctx, s.store, patientID)
	if errors.Is(err, db.ErrNotFound) {
		return models.Appointment{}, util.NotFound(util.CODE_PATIENT_NOT_FOUND, util.PATIENT_NOT_FOUND)
	}
	if err != nil {
		return models.Appointment{}, classify(err)
	}

	appt := models.Appointment{
		ID:          uuid.NewString(),
		PatientID:   patientID,
		PatientName: patient.Name,
		DoctorID:    doctorID,
		DoctorName:  doctor.Name,
		ScheduledAt: req.ScheduledAt.UTC(),
		Reason:      strings.TrimSpace(req.Reason),
		Status:      models.StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	doc, err := db.Encode(appt)
	if err != nil {
		return models.Appointment{}, err
	}
	if err := s.store.Create(ctx, util.AppointmentCollection, appt.ID, doc); err != nil {
		s.log.Error("book appointment failed", zap.String("patientId", patientID), zap.String("doctorId", doctorID), zap.Error(err))
		return models.Appointment{}, classify(err)
	}
	s.log.Info("appointment booked", zap.String("appointmentId", appt.ID), zap.String("doctorId", doctorID))

	nctx, cancel := detached(ctx)
	defer cancel()
	if _, err := s.notifier.NotifyUser(nctx, doctorID, "New Appointment Request",
		"You have a new appointment request from "+patientLabel(patient.Name)+".",
		map[string]string{
			"type":          "appointment_request",
			"appointmentId": appt.ID,
			"route":         "/appointments/detail/" + appt.ID,
		}, false); err != nil {
		s.log.Warn("doctor notification failed", zap.String("appointmentId", appt.ID), zap.Error(err))
	}
	return appt, nil
}

/*
* Read the appointment in a transaction
* A doctor may only update their own appointments, admins may update any
* Write the status, the status timestamp and the optional reason
* Notify the patient with high priority
 */
func (s *AppointmentService) UpdateStatus(ctx context.Context, actor authorization.Identity, appointmentID string, req models.AppointmentStatusUpdate) (models.StatusChangeResult, error) {
	appointmentID = strings.TrimSpace(appointmentID)
	if appointmentID == "" {
		return models.StatusChangeResult{}, util.InvalidArgument("appointment id is required")
	}
	if !req.Status.Valid() {
		return models.StatusChangeResult{}, util.InvalidArgument(util.INVALID_APPOINTMENT_STATUS)
	}
	reason := strings.TrimSpace(req.CancellationReason)

	var appt models.Appointment
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
		doc, err := tx.Get(ctx, util.AppointmentCollection, appointmentID)
		if errors.Is(err, db.ErrNotFound) {
			return util.NotFound(util.CODE_APPOINTMENT_NOT_FOUND, util.APPOINTMENT_NOT_FOUND)
		}
		if err != nil {
			return err
		}
		if err := db.Decode(doc, &appt); err != nil {
			return err
		}
		if actor.Role != role.Admin && actor.UID != appt.DoctorID {
			return util.PermissionDenied(util.DOCTOR_DOES_NOT_OWN_APPOINTMENT)
		}
		set := map[string]interface{}{
			"status":              string(req.Status),
			"statusLastUpdatedAt": db.ServerTimestamp,
		}
		if reason != "" {
			set["cancellationReason"] = reason
		}
		return tx.Update(ctx, util.AppointmentCollection, appointmentID, db.Mutation{Set: set})
	})
	if err != nil {
		s.log.Warn("appointment status update failed",
			zap.String("appointmentId", appointmentID),
			zap.String("status", string(req.Status)),
			zap.String("actor", actor.UID),
			zap.Error(err),
		)
		return models.StatusChangeResult{}, classify(err)
	}

	now := time.Now().UTC()
	appt.Status = req.Status
	appt.StatusLastUpdatedAt = &now
	if reason != "" {
		appt.CancellationReason = reason
	}
	s.log.Info("appointment status updated", zap.String("appointmentId", appointmentID), zap.String("status", string(req.Status)))

	nctx, cancel := detached(ctx)
	defer cancel()
	title, body := statusMessage(appt.DoctorName, req.Status, reason)
	data := map[string]string{
		"type":          notification.EventAppointmentUpdate,
		"appointmentId": appointmentID,
		"newStatus":     string(req.Status),
		"route":         "/appointments/detail/" + appointmentID,
	}
	result := models.StatusChangeResult{
		Appointment: appt,
		Message:     "Appointment status updated to " + string(req.Status),
	}
	if appt.PatientID != "" {
		res, err := s.notifier.NotifyUser(nctx, appt.PatientID, title, body, data, true)
		if err != nil {
			s.log.Warn("patient notification failed", zap.String("appointmentId", appointmentID), zap.Error(err))
			res = models.DispatchResult{Status: models.DispatchFailure}
		}
		result.Notification = res
		if err := s.events.Publish(nctx, notification.Event{
			Type:    notification.EventAppointmentUpdate,
			UserID:  appt.PatientID,
			Payload: data,
			At:      now,
		}); err != nil {
			s.log.Warn("event publish failed", zap.String("appointmentId", appointmentID), zap.Error(err))
		}
	}
	return result, nil
}

func statusMessage(doctorName string, status models.AppointmentStatus, reason string) (string, string) {
	if strings.TrimSpace(doctorName) == "" {
		doctorName = "your doctor"
	}
	value := string(status)
	title := "Appointment " + strings.ToUpper(value[:1]) + value[1:]
	body := "Your appointment with Dr. " + doctorName + " has been " + value + "."
	if status == models.StatusDeclinedDoctor && reason != "" {
		body += " Reason: " + reason
	}
	return title, body
}

func patientLabel(name string) string {
	if strings.TrimSpace(name) == "" {
		return "a patient"
	}
	return name
}

/*
* Query as patient and as doctor in parallel
* Merge, drop duplicates and order by scheduled time, latest first
 */
func (s *AppointmentService) ListForUser(ctx context.Context, uid string) ([]models.Appointment, error) {
	if strings.TrimSpace(uid) == "" {
		return nil, util.InvalidArgument(util.USER_ID_REQUIRED)
	}
	fields := []string{"patientId", "doctorId"}
	results := make([][]db.Document, len(fields))

	g, gctx := errgroup.WithContext(ctx)
	for i, field := range fields {
		g.Go(func() error {
			docs, err := s.store.Find(gctx, db.Query{
				Collection: util.AppointmentCollection,
				Where:      []db.Cond{db.Where(field, db.Eq, uid)},
			})
			if err != nil {
				return err
			}
			results[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.log.Warn("list appointments failed", zap.String("userId", uid), zap.Error(err))
		return nil, util.Unavailable(err)
	}

	seen := map[string]struct{}{}
	out := []models.Appointment{}
	for _, docs := range results {
		appts, err := db.DecodeAll[models.Appointment](docs)
		if err != nil {
			return nil, util.Unavailable(err)
		}
		for _, a := range appts {
			if _, ok := seen[a.ID]; ok {
				continue
			}
			seen[a.ID] = struct{}{}
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].ScheduledAt.After(out[j].ScheduledAt)
	})
	return out, nil
}
