package services

import (
	"context"
	"errors"
	"testing"

	"MamaCare/models"
	"MamaCare/role"
	"MamaCare/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssign_SetsPointerAndLoad(t *testing.T) {
	f := newFixture(t)
	f.nurse(t, "n1", "Ada", 1)
	f.patient(t, "p1", "Bea", "")

	res, err := f.svc.Assignments.Assign(context.Background(), "p1", "n1", "d1")
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, int64(2), res.NurseLoad)

	assert.Equal(t, "n1", f.user(t, "p1").AssignedNurseID)
	assert.NotNil(t, f.user(t, "p1").AssignedAt)
	assert.Equal(t, int64(2), f.user(t, "n1").CurrentPatientLoad)
	assert.True(t, f.auditExists(models.AssignmentID("n1", "p1")))
	assert.Contains(t, f.events.types(), "nurse_assigned:p1")
	assert.Contains(t, f.events.types(), "patient_assigned:n1")
}

func TestAssign_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.nurse(t, "n1", "Ada", 0)
	f.patient(t, "p1", "Bea", "")
	ctx := context.Background()

	_, err := f.svc.Assignments.Assign(ctx, "p1", "n1", "d1")
	require.NoError(t, err)
	res, err := f.svc.Assignments.Assign(ctx, "p1", "n1", "d1")
	require.NoError(t, err)

	assert.False(t, res.Changed)
	assert.Equal(t, int64(1), res.NurseLoad)
	assert.Equal(t, int64(1), f.user(t, "n1").CurrentPatientLoad)
}

func TestAssign_NotFound(t *testing.T) {
	f := newFixture(t)
	f.nurse(t, "n1", "Ada", 0)
	f.patient(t, "p1", "Bea", "")
	f.seed(t, models.User{ID: "d1", Name: "Doc", Role: role.Doctor})
	ctx := context.Background()

	cases := []struct {
		name      string
		patientID string
		nurseID   string
		code      string
	}{
		{"missing nurse", "p1", "nope", util.CODE_NURSE_NOT_FOUND},
		{"not a nurse", "p1", "d1", util.CODE_NURSE_NOT_FOUND},
		{"missing patient", "nope", "n1", util.CODE_PATIENT_NOT_FOUND},
		{"not a patient", "n1", "n1", util.CODE_PATIENT_NOT_FOUND},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Assignments.Assign(ctx, tc.patientID, tc.nurseID, "d1")
			require.Error(t, err)
			assert.ErrorIs(t, err, util.ErrNotFound)
			assert.ErrorIs(t, err, &util.AppError{Kind: util.KindNotFound, Code: tc.code})
		})
	}
	assert.Equal(t, int64(0), f.user(t, "n1").CurrentPatientLoad)
	assert.Empty(t, f.user(t, "p1").AssignedNurseID)
}

func TestAssign_InvalidInput(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Assignments.Assign(context.Background(), " ", "n1", "d1")
	assert.ErrorIs(t, err, util.ErrInvalidArgument)
	_, err = f.svc.Assignments.Assign(context.Background(), "p1", "", "d1")
	assert.ErrorIs(t, err, util.ErrInvalidArgument)
}

func TestAssign_RefusesSecondNurse(t *testing.T) {
	f := newFixture(t)
	f.nurse(t, "n1", "Ada", 1)
	f.nurse(t, "n2", "Nia", 0)
	f.patient(t, "p1", "Bea", "n1")

	_, err := f.svc.Assignments.Assign(context.Background(), "p1", "n2", "d1")
	assert.ErrorIs(t, err, &util.AppError{Kind: util.KindInvariantViolation, Code: util.CODE_ALREADY_ASSIGNED})
	assert.Equal(t, "n1", f.user(t, "p1").AssignedNurseID)
	assert.Equal(t, int64(0), f.user(t, "n2").CurrentPatientLoad)
}

func TestAssign_Capacity(t *testing.T) {
	f := newFixture(t)
	f.nurse(t, "n1", "Ada", 5)
	f.patient(t, "p1", "Bea", "")

	_, err := f.svc.Assignments.Assign(context.Background(), "p1", "n1", "d1")
	assert.ErrorIs(t, err, &util.AppError{Kind: util.KindInvariantViolation, Code: util.CODE_NURSE_AT_CAPACITY})
	assert.Equal(t, int64(5), f.user(t, "n1").CurrentPatientLoad)
}

func TestAssign_FailedCommitLeavesNoPartialState(t *testing.T) {
	f := newFixture(t)
	f.nurse(t, "n1", "Ada", 2)
	f.patient(t, "p1", "Bea", "")
	f.store.FailCommits(errors.New("disk full"))

	_, err := f.svc.Assignments.Assign(context.Background(), "p1", "n1", "d1")
	assert.ErrorIs(t, err, util.ErrBackendUnavailable)

	f.store.FailCommits(nil)
	assert.Empty(t, f.user(t, "p1").AssignedNurseID)
	assert.Equal(t, int64(2), f.user(t, "n1").CurrentPatientLoad)
	assert.False(t, f.auditExists(models.AssignmentID("n1", "p1")))
	assert.Empty(t, f.events.types())
	assert.Empty(t, f.sender.messages())
}

func TestUnassign(t *testing.T) {
	f := newFixture(t)
	f.nurse(t, "n1", "Ada", 0)
	f.patient(t, "p1", "Bea", "")
	ctx := context.Background()
	_, err := f.svc.Assignments.Assign(ctx, "p1", "n1", "d1")
	require.NoError(t, err)

	res, err := f.svc.Assignments.Unassign(ctx, "n1", "p1")
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, int64(0), res.NurseLoad)
	p := f.user(t, "p1")
	assert.Empty(t, p.AssignedNurseID)
	assert.Nil(t, p.AssignedAt)
	assert.Equal(t, int64(0), f.user(t, "n1").CurrentPatientLoad)
	assert.False(t, f.auditExists(models.AssignmentID("n1", "p1")))
}

func TestUnassign_NotAssigned(t *testing.T) {
	f := newFixture(t)
	f.nurse(t, "n1", "Ada", 3)
	f.nurse(t, "n2", "Nia", 1)
	f.patient(t, "p1", "Bea", "n2")

	_, err := f.svc.Assignments.Unassign(context.Background(), "n1", "p1")
	assert.ErrorIs(t, err, &util.AppError{Kind: util.KindInvariantViolation, Code: util.CODE_NOT_ASSIGNED})
	assert.Equal(t, int64(3), f.user(t, "n1").CurrentPatientLoad)
	assert.Equal(t, "n2", f.user(t, "p1").AssignedNurseID)
}

func TestUnassign_ClampsAtZero(t *testing.T) {
	f := newFixture(t)
	f.nurse(t, "n1", "Ada", 0)
	f.patient(t, "p1", "Bea", "n1")

	res, err := f.svc.Assignments.Unassign(context.Background(), "n1", "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.NurseLoad)
	assert.Equal(t, int64(0), f.user(t, "n1").CurrentPatientLoad)
	assert.Empty(t, f.user(t, "p1").AssignedNurseID)
}

func TestAssignUnassignSequence(t *testing.T) {
	f := newFixture(t)
	f.nurse(t, "n", "Ada", 2)
	f.patient(t, "p1", "Bea", "")
	f.patient(t, "p2", "Cleo", "")
	ctx := context.Background()

	res, err := f.svc.Assignments.Assign(ctx, "p1", "n", "d")
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.NurseLoad)

	res, err = f.svc.Assignments.Assign(ctx, "p2", "n", "d")
	require.NoError(t, err)
	assert.Equal(t, int64(4), res.NurseLoad)

	res, err = f.svc.Assignments.Unassign(ctx, "n", "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.NurseLoad)
	assert.Equal(t, int64(3), f.user(t, "n").CurrentPatientLoad)
	assert.Empty(t, f.user(t, "p1").AssignedNurseID)
	assert.Equal(t, "n", f.user(t, "p2").AssignedNurseID)
}

func TestReassign(t *testing.T) {
	f := newFixture(t)
	f.nurse(t, "n1", "Ada", 0)
	f.nurse(t, "n2", "Nia", 1)
	f.patient(t, "p1", "Bea", "")
	ctx := context.Background()
	_, err := f.svc.Assignments.Assign(ctx, "p1", "n1", "d1")
	require.NoError(t, err)

	res, err := f.svc.Assignments.Reassign(ctx, "p1", "n2", "d1")
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, "n1", res.PreviousNurse)
	assert.Equal(t, int64(2), res.NurseLoad)

	assert.Equal(t, "n2", f.user(t, "p1").AssignedNurseID)
	assert.Equal(t, int64(0), f.user(t, "n1").CurrentPatientLoad)
	assert.Equal(t, int64(2), f.user(t, "n2").CurrentPatientLoad)
	assert.False(t, f.auditExists(models.AssignmentID("n1", "p1")))
	assert.True(t, f.auditExists(models.AssignmentID("n2", "p1")))
	assert.Contains(t, f.events.types(), "patient_released:n1")
}

func TestReassign_Refusals(t *testing.T) {
	f := newFixture(t)
	f.nurse(t, "n1", "Ada", 1)
	f.nurse(t, "full", "Zed", 5)
	f.patient(t, "p1", "Bea", "n1")
	f.patient(t, "p2", "Cleo", "")
	ctx := context.Background()

	_, err := f.svc.Assignments.Reassign(ctx, "p2", "n1", "d1")
	assert.ErrorIs(t, err, &util.AppError{Kind: util.KindInvariantViolation, Code: util.CODE_NOT_ASSIGNED})

	_, err = f.svc.Assignments.Reassign(ctx, "p1", "full", "d1")
	assert.ErrorIs(t, err, &util.AppError{Kind: util.KindInvariantViolation, Code: util.CODE_NURSE_AT_CAPACITY})
	assert.Equal(t, "n1", f.user(t, "p1").AssignedNurseID)
	assert.Equal(t, int64(1), f.user(t, "n1").CurrentPatientLoad)

	res, err := f.svc.Assignments.Reassign(ctx, "p1", "n1", "d1")
	require.NoError(t, err)
	assert.False(t, res.Changed)
}

func TestReassign_DanglingPreviousNurse(t *testing.T) {
	f := newFixture(t)
	f.nurse(t, "n2", "Nia", 0)
	f.patient(t, "p1", "Bea", "gone")

	res, err := f.svc.Assignments.Reassign(context.Background(), "p1", "n2", "d1")
	require.NoError(t, err)
	assert.Equal(t, "gone", res.PreviousNurse)
	assert.Equal(t, int64(1), f.user(t, "n2").CurrentPatientLoad)
}

func TestAssign_NotifiesPatient(t *testing.T) {
	f := newFixture(t)
	f.nurse(t, "n1", "Ada", 0)
	f.seed(t, models.User{ID: "p1", Name: "Bea", Role: role.Patient, FCMTokens: models.Tokens{"tok-1"}})

	_, err := f.svc.Assignments.Assign(context.Background(), "p1", "n1", "d1")
	require.NoError(t, err)

	msgs := f.sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "tok-1", msgs[0].Token)
	assert.Equal(t, "Nurse Assigned", msgs[0].Title)
	assert.Equal(t, "Ada is now your assigned nurse.", msgs[0].Body)
	assert.Equal(t, "n1", msgs[0].Data["nurseId"])
}

func TestListAvailableNurses(t *testing.T) {
	f := newFixture(t)
	f.seed(t, models.User{ID: "n1", Name: "Zoe", Role: role.Nurse, CurrentPatientLoad: 4, Department: "maternity"})
	f.seed(t, models.User{ID: "n2", Name: "Ada", Role: role.Nurse, CurrentPatientLoad: 0, Department: "pediatrics"})
	f.seed(t, models.User{ID: "n3", Name: "Max", Role: role.Nurse, CurrentPatientLoad: 5, Department: "maternity"})
	f.seed(t, models.User{ID: "d1", Name: "Doc", Role: role.Doctor})
	ctx := context.Background()

	nurses, err := f.svc.Assignments.ListAvailableNurses(ctx, "")
	require.NoError(t, err)
	require.Len(t, nurses, 2)
	assert.Equal(t, "Ada", nurses[0].Name)
	assert.Equal(t, "Zoe", nurses[1].Name)
	assert.Equal(t, int64(4), nurses[1].CurrentLoad)

	nurses, err = f.svc.Assignments.ListAvailableNurses(ctx, "maternity")
	require.NoError(t, err)
	require.Len(t, nurses, 1)
	assert.Equal(t, "n1", nurses[0].ID)

	nurses, err = f.svc.Assignments.ListAvailableNurses(ctx, "oncology")
	require.NoError(t, err)
	assert.Empty(t, nurses)
}

func TestListAvailableNurses_BackendDown(t *testing.T) {
	f := newFixture(t)
	f.store.FailReads(errors.New("connection reset"))

	_, err := f.svc.Assignments.ListAvailableNurses(context.Background(), "")
	assert.ErrorIs(t, err, util.ErrBackendUnavailable)
}

func TestListAssignedPatients(t *testing.T) {
	f := newFixture(t)
	f.nurse(t, "n1", "Ada", 2)
	f.patient(t, "p1", "Zia", "n1")
	f.patient(t, "p2", "Bea", "n1")
	f.patient(t, "p3", "Cleo", "n2")

	patients, err := f.svc.Assignments.ListAssignedPatients(context.Background(), "n1")
	require.NoError(t, err)
	require.Len(t, patients, 2)
	assert.Equal(t, "Bea", patients[0].Name)
	assert.Equal(t, "Zia", patients[1].Name)

	_, err = f.svc.Assignments.ListAssignedPatients(context.Background(), "p1")
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestAssignedNurse(t *testing.T) {
	f := newFixture(t)
	f.seed(t, models.User{ID: "n1", Name: "Ada", Role: role.Nurse, Department: "maternity", CurrentPatientLoad: 1})
	f.patient(t, "p1", "Bea", "n1")
	f.patient(t, "p2", "Cleo", "")

	nurse, err := f.svc.Assignments.AssignedNurse(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, models.NurseSummary{ID: "n1", Name: "Ada", Department: "maternity", CurrentLoad: 1}, nurse)

	_, err = f.svc.Assignments.AssignedNurse(context.Background(), "p2")
	assert.ErrorIs(t, err, &util.AppError{Kind: util.KindNotFound, Code: util.CODE_NOT_ASSIGNED})
}

func TestAuditRecordsOfLookalikePairsStaySeparate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.nurse(t, "a_b", "Ada", 0)
	f.nurse(t, "a", "Nia", 0)
	f.patient(t, "c", "Bea", "")
	f.patient(t, "b_c", "Chi", "")

	_, err := f.svc.Assignments.Assign(ctx, "c", "a_b", "d1")
	require.NoError(t, err)
	_, err = f.svc.Assignments.Assign(ctx, "b_c", "a", "d1")
	require.NoError(t, err)

	_, err = f.svc.Assignments.Unassign(ctx, "a", "b_c")
	require.NoError(t, err)
	assert.True(t, f.auditExists(models.AssignmentID("a_b", "c")))
	assert.False(t, f.auditExists(models.AssignmentID("a", "b_c")))
}
