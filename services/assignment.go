package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"MamaCare/db"
	"MamaCare/metrics"
	"MamaCare/models"
	"MamaCare/notification"
	"MamaCare/role"
	"MamaCare/util"

	"go.uber.org/zap"
)

// AssignmentService maintains the patient to nurse link. The patient
// document owns the pointer and the nurse document owns the load counter;
// both change in the same transaction.
type AssignmentService struct {
	store    db.Store
	proj     *projector
	notifier *NotificationService
	events   notification.Publisher
	metrics  *metrics.Metrics
	log      *zap.Logger
	capacity int64
}

func (s *AssignmentService) Capacity() int64 {
	return s.capacity
}

func validateIDs(patientID, nurseID string) (string, string, error) {
	patientID = strings.TrimSpace(patientID)
	nurseID = strings.TrimSpace(nurseID)
	if patientID == "" {
		return "", "", util.InvalidArgument(util.PATIENT_ID_REQUIRED)
	}
	if nurseID == "" {
		return "", "", util.InvalidArgument(util.NURSE_ID_REQUIRED)
	}
	return patientID, nurseID, nil
}

func readPatient(ctx context.Context, g getter, id string) (models.User, error) {
	return getUserWithRole(ctx, g, id, role.Patient, util.CODE_PATIENT_NOT_FOUND, util.PATIENT_NOT_FOUND)
}

func readNurse(ctx context.Context, g getter, id string) (models.User, error) {
	return getUserWithRole(ctx, g, id, role.Nurse, util.CODE_NURSE_NOT_FOUND, util.NURSE_NOT_FOUND)
}

func auditRecord(nurseID, patientID, doctorID string) db.Document {
	return db.Document{
		"nurseId":    nurseID,
		"patientId":  patientID,
		"doctorId":   doctorID,
		"assignedAt": db.ServerTimestamp,
	}
}

// releaseLoad decrements a nurse's load, clamping at zero. It reports
// whether the counter had drifted.
func releaseLoad(ctx context.Context, tx db.Tx, nurse models.User) (int64, bool, error) {
	if nurse.CurrentPatientLoad <= 0 {
		err := tx.Update(ctx, util.UserCollection, nurse.ID, db.Mutation{
			Set: map[string]interface{}{"currentPatientLoad": int64(0), "updatedAt": db.ServerTimestamp},
		})
		return 0, true, err
	}
	err := tx.Update(ctx, util.UserCollection, nurse.ID, db.Mutation{
		Inc: map[string]int64{"currentPatientLoad": -1},
		Set: map[string]interface{}{"updatedAt": db.ServerTimestamp},
	})
	return nurse.CurrentPatientLoad - 1, false, err
}

func takeLoad(ctx context.Context, tx db.Tx, nurse models.User) (int64, error) {
	err := tx.Update(ctx, util.UserCollection, nurse.ID, db.Mutation{
		Inc: map[string]int64{"currentPatientLoad": 1},
		Set: map[string]interface{}{"updatedAt": db.ServerTimestamp},
	})
	return nurse.CurrentPatientLoad + 1, err
}

/*
* Validate the ids
* Inside one transaction read the patient and the nurse
* Same nurse already assigned is a no-op
* Another nurse assigned or nurse at capacity is refused
* Point the patient at the nurse, bump the nurse load, write the audit record
* After commit refresh projections, publish the event and notify the patient
 */
func (s *AssignmentService) Assign(ctx context.Context, patientID, nurseID, doctorID string) (models.AssignmentResult, error) {
	patientID, nurseID, err := validateIDs(patientID, nurseID)
	if err != nil {
		s.metrics.Assignment("assign", outcome(err))
		return models.AssignmentResult{}, err
	}

	var result models.AssignmentResult
	var nurseName string
	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
		result = models.AssignmentResult{PatientID: patientID, NurseID: nurseID}
		patient, err := readPatient(ctx, tx, patientID)
		if err != nil {
			return err
		}
		nurse, err := readNurse(ctx, tx, nurseID)
		if err != nil {
			return err
		}
		nurseName = nurse.Name

		switch patient.AssignedNurseID {
		case nurseID:
			result.NurseLoad = nurse.CurrentPatientLoad
			return nil
		case "":
		default:
			return util.InvariantViolation(util.CODE_ALREADY_ASSIGNED, util.PATIENT_ALREADY_ASSIGNED)
		}
		if nurse.CurrentPatientLoad >= s.capacity {
			return util.InvariantViolation(util.CODE_NURSE_AT_CAPACITY, util.NURSE_AT_CAPACITY)
		}

		if err := tx.Update(ctx, util.UserCollection, patientID, db.Mutation{
			Set: map[string]interface{}{
				"assignedNurseId": nurseID,
				"assignedAt":      db.ServerTimestamp,
				"updatedAt":       db.ServerTimestamp,
			},
		}); err != nil {
			return err
		}
		load, err := takeLoad(ctx, tx, nurse)
		if err != nil {
			return err
		}
		if err := tx.Set(ctx, util.NurseAssignmentCollection, models.AssignmentID(nurseID, patientID), auditRecord(nurseID, patientID, doctorID)); err != nil {
			return err
		}
		result.NurseLoad = load
		result.Changed = true
		return nil
	})
	err = classify(err)
	s.metrics.Assignment("assign", outcome(err))
	if err != nil {
		s.log.Warn("assign failed",
			zap.String("patientId", patientID),
			zap.String("nurseId", nurseID),
			zap.String("doctorId", doctorID),
			zap.Error(err),
		)
		return models.AssignmentResult{}, err
	}
	if !result.Changed {
		s.log.Info("patient already assigned to nurse", zap.String("patientId", patientID), zap.String("nurseId", nurseID))
		return result, nil
	}

	s.log.Info("nurse assigned",
		zap.String("patientId", patientID),
		zap.String("nurseId", nurseID),
		zap.Int64("nurseLoad", result.NurseLoad),
	)
	s.afterCommit(ctx, []string{patientID, nurseID},
		[]notification.Event{
			{Type: notification.EventNurseAssigned, UserID: patientID, Payload: map[string]string{"nurseId": nurseID, "doctorId": doctorID}},
			{Type: notification.EventPatientAssigned, UserID: nurseID, Payload: map[string]string{"patientId": patientID}},
		},
		patientID, "Nurse Assigned", nurseLabel(nurseName)+" is now your assigned nurse.",
		map[string]string{"type": notification.EventNurseAssigned, "nurseId": nurseID, "route": "/nurse/assigned"},
	)
	return result, nil
}

/*
* Validate the ids
* Inside one transaction read the patient and the nurse
* Refuse when the patient is not assigned to this nurse
* Clear the pointer, decrement the load clamped at zero, drop the audit record
 */
func (s *AssignmentService) Unassign(ctx context.Context, nurseID, patientID string) (models.AssignmentResult, error) {
	patientID, nurseID, err := validateIDs(patientID, nurseID)
	if err != nil {
		s.metrics.Assignment("unassign", outcome(err))
		return models.AssignmentResult{}, err
	}

	var result models.AssignmentResult
	var drift bool
	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
		result = models.AssignmentResult{PatientID: patientID, NurseID: nurseID}
		patient, err := readPatient(ctx, tx, patientID)
		if err != nil {
			return err
		}
		nurse, err := readNurse(ctx, tx, nurseID)
		if err != nil {
			return err
		}
		if patient.AssignedNurseID != nurseID {
			return util.InvariantViolation(util.CODE_NOT_ASSIGNED, util.PATIENT_NOT_ASSIGNED_TO_NURSE)
		}

		if err := tx.Update(ctx, util.UserCollection, patientID, db.Mutation{
			Unset: []string{"assignedNurseId", "assignedAt"},
			Set:   map[string]interface{}{"updatedAt": db.ServerTimestamp},
		}); err != nil {
			return err
		}
		load, drifted, err := releaseLoad(ctx, tx, nurse)
		if err != nil {
			return err
		}
		if err := tx.Delete(ctx, util.NurseAssignmentCollection, models.AssignmentID(nurseID, patientID)); err != nil {
			return err
		}
		drift = drifted
		result.NurseLoad = load
		result.PreviousNurse = nurseID
		result.NurseID = ""
		result.Changed = true
		return nil
	})
	err = classify(err)
	s.metrics.Assignment("unassign", outcome(err))
	if err != nil {
		s.log.Warn("unassign failed", zap.String("patientId", patientID), zap.String("nurseId", nurseID), zap.Error(err))
		return models.AssignmentResult{}, err
	}
	if drift {
		s.log.Warn("nurse load was already zero on unassign", zap.String("nurseId", nurseID), zap.String("patientId", patientID))
	}

	s.log.Info("nurse unassigned", zap.String("patientId", patientID), zap.String("nurseId", nurseID), zap.Int64("nurseLoad", result.NurseLoad))
	s.afterCommit(ctx, []string{patientID, nurseID},
		[]notification.Event{
			{Type: notification.EventNurseUnassigned, UserID: patientID, Payload: map[string]string{"nurseId": nurseID}},
			{Type: notification.EventPatientReleased, UserID: nurseID, Payload: map[string]string{"patientId": patientID}},
		},
		patientID, "Nurse Unassigned", "Your assigned nurse has changed. Your care team will follow up.",
		map[string]string{"type": notification.EventNurseUnassigned, "nurseId": nurseID},
	)
	return result, nil
}

/*
* Validate the ids
* Inside one transaction read the patient, its current nurse and the target nurse
* Refuse when the patient has no nurse, no-op when the target is the current nurse
* Enforce the target capacity
* Move the pointer, release the old load, take the new load, swap the audit records
 */
func (s *AssignmentService) Reassign(ctx context.Context, patientID, nurseID, doctorID string) (models.AssignmentResult, error) {
	patientID, nurseID, err := validateIDs(patientID, nurseID)
	if err != nil {
		s.metrics.Assignment("reassign", outcome(err))
		return models.AssignmentResult{}, err
	}

	var result models.AssignmentResult
	var nurseName string
	var drift, danglingOld bool
	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
		result = models.AssignmentResult{PatientID: patientID, NurseID: nurseID}
		drift, danglingOld = false, false
		patient, err := readPatient(ctx, tx, patientID)
		if err != nil {
			return err
		}
		target, err := readNurse(ctx, tx, nurseID)
		if err != nil {
			return err
		}
		nurseName = target.Name
		oldID := patient.AssignedNurseID
		if oldID == "" {
			return util.InvariantViolation(util.CODE_NOT_ASSIGNED, util.PATIENT_NOT_ASSIGNED)
		}
		result.PreviousNurse = oldID
		if oldID == nurseID {
			result.NurseLoad = target.CurrentPatientLoad
			return nil
		}
		old, err := readNurse(ctx, tx, oldID)
		if errors.Is(err, util.ErrNotFound) {
			danglingOld = true
		} else if err != nil {
			return err
		}
		if target.CurrentPatientLoad >= s.capacity {
			return util.InvariantViolation(util.CODE_NURSE_AT_CAPACITY, util.NURSE_AT_CAPACITY)
		}

		if err := tx.Update(ctx, util.UserCollection, patientID, db.Mutation{
			Set: map[string]interface{}{
				"assignedNurseId": nurseID,
				"assignedAt":      db.ServerTimestamp,
				"updatedAt":       db.ServerTimestamp,
			},
		}); err != nil {
			return err
		}
		if !danglingOld {
			if _, drift, err = releaseLoad(ctx, tx, old); err != nil {
				return err
			}
		}
		load, err := takeLoad(ctx, tx, target)
		if err != nil {
			return err
		}
		if err := tx.Delete(ctx, util.NurseAssignmentCollection, models.AssignmentID(oldID, patientID)); err != nil {
			return err
		}
		if err := tx.Set(ctx, util.NurseAssignmentCollection, models.AssignmentID(nurseID, patientID), auditRecord(nurseID, patientID, doctorID)); err != nil {
			return err
		}
		result.NurseLoad = load
		result.Changed = true
		return nil
	})
	err = classify(err)
	s.metrics.Assignment("reassign", outcome(err))
	if err != nil {
		s.log.Warn("reassign failed", zap.String("patientId", patientID), zap.String("nurseId", nurseID), zap.Error(err))
		return models.AssignmentResult{}, err
	}
	if !result.Changed {
		return result, nil
	}
	if drift {
		s.log.Warn("previous nurse load was already zero on reassign", zap.String("nurseId", result.PreviousNurse), zap.String("patientId", patientID))
	}
	if danglingOld {
		s.log.Warn("patient pointed at a missing nurse", zap.String("nurseId", result.PreviousNurse), zap.String("patientId", patientID))
	}

	s.log.Info("nurse reassigned",
		zap.String("patientId", patientID),
		zap.String("fromNurseId", result.PreviousNurse),
		zap.String("toNurseId", nurseID),
	)
	s.afterCommit(ctx, []string{patientID, result.PreviousNurse, nurseID},
		[]notification.Event{
			{Type: notification.EventNurseAssigned, UserID: patientID, Payload: map[string]string{"nurseId": nurseID, "previousNurseId": result.PreviousNurse, "doctorId": doctorID}},
			{Type: notification.EventPatientReleased, UserID: result.PreviousNurse, Payload: map[string]string{"patientId": patientID}},
			{Type: notification.EventPatientAssigned, UserID: nurseID, Payload: map[string]string{"patientId": patientID}},
		},
		patientID, "Nurse Assigned", nurseLabel(nurseName)+" is now your assigned nurse.",
		map[string]string{"type": notification.EventNurseAssigned, "nurseId": nurseID, "route": "/nurse/assigned"},
	)
	return result, nil
}

// ListAssignedPatients returns the patients pointing at nurseID ordered by name.
func (s *AssignmentService) ListAssignedPatients(ctx context.Context, nurseID string) ([]models.PatientSummary, error) {
	nurseID = strings.TrimSpace(nurseID)
	if nurseID == "" {
		return nil, util.InvalidArgument(util.NURSE_ID_REQUIRED)
	}
	if _, err := readNurse(ctx, s.store, nurseID); err != nil {
		return nil, classify(err)
	}
	patients, err := s.patientsOf(ctx, nurseID)
	if err != nil {
		s.log.Warn("list assigned patients failed", zap.String("nurseId", nurseID), zap.Error(err))
		return nil, err
	}
	out := make([]models.PatientSummary, 0, len(patients))
	for _, p := range patients {
		out = append(out, models.SummarizePatient(p))
	}
	return out, nil
}

func (s *AssignmentService) patientsOf(ctx context.Context, nurseID string) ([]models.User, error) {
	docs, err := s.store.Find(ctx, db.Query{
		Collection: util.UserCollection,
		Where: []db.Cond{
			db.Where("role", db.Eq, string(role.Patient)),
			db.Where("assignedNurseId", db.Eq, nurseID),
		},
		OrderBy: "name",
	})
	if err != nil {
		return nil, classify(err)
	}
	users, err := db.DecodeAll[models.User](docs)
	if err != nil {
		return nil, classify(err)
	}
	return users, nil
}

// afterCommit runs the side effects of a committed change. None of them
// can fail the operation.
func (s *AssignmentService) afterCommit(ctx context.Context, refresh []string, events []notification.Event, notifyID, title, body string, data map[string]string) {
	ctx, cancel := detached(ctx)
	defer cancel()

	s.proj.refresh(ctx, refresh...)
	for _, e := range events {
		if e.UserID == "" {
			continue
		}
		e.At = time.Now().UTC()
		if err := s.events.Publish(ctx, e); err != nil {
			s.log.Warn("event publish failed", zap.String("type", e.Type), zap.String("userId", e.UserID), zap.Error(err))
		}
	}
	if s.notifier == nil || notifyID == "" {
		return
	}
	res, err := s.notifier.NotifyUser(ctx, notifyID, title, body, data, false)
	if err != nil {
		s.log.Warn("assignment notification failed", zap.String("userId", notifyID), zap.Error(err))
		return
	}
	s.log.Debug("assignment notification sent", zap.String("userId", notifyID), zap.String("status", string(res.Status)))
}

func nurseLabel(name string) string {
	if strings.TrimSpace(name) == "" {
		return "A nurse"
	}
	return name
}

// AssignedNurse returns the nurse the patient currently points at.
func (s *AssignmentService) AssignedNurse(ctx context.Context, patientID string) (models.NurseSummary, error) {
	patient, err := readPatient(ctx, s.store, patientID)
	if err != nil {
		return models.NurseSummary{}, classify(err)
	}
	if patient.AssignedNurseID == "" {
		return models.NurseSummary{}, util.NotFound(util.CODE_NOT_ASSIGNED, util.PATIENT_NOT_ASSIGNED)
	}
	nurse, err := s.proj.load(ctx, patient.AssignedNurseID)
	if err != nil {
		return models.NurseSummary{}, err
	}
	return models.SummarizeNurse(nurse), nil
}
