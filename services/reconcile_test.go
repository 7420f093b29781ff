package services

import (
	"context"
	"testing"

	"MamaCare/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcile_RepairsDrift(t *testing.T) {
	f := newFixture(t)
	f.nurse(t, "n1", "Ada", 4)
	f.nurse(t, "n2", "Nia", 1)
	f.nurse(t, "n3", "Zed", 0)
	f.patient(t, "p1", "Bea", "n1")
	f.patient(t, "p2", "Cleo", "n2")
	f.patient(t, "p3", "Dee", "n3")

	corrections, err := f.svc.Reconcile.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.LoadCorrection{
		{NurseID: "n1", Recorded: 4, Actual: 1},
		{NurseID: "n3", Recorded: 0, Actual: 1},
	}, corrections)
	assert.Equal(t, int64(1), f.user(t, "n1").CurrentPatientLoad)
	assert.Equal(t, int64(1), f.user(t, "n2").CurrentPatientLoad)
	assert.Equal(t, int64(1), f.user(t, "n3").CurrentPatientLoad)

	corrections, err = f.svc.Reconcile.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Empty(t, corrections)
}
