package role

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	assert.Equal(t, Nurse, Parse("nurse"))
	assert.Equal(t, Doctor, Parse("  Doctor "))
	assert.Equal(t, Admin, Parse("ADMIN"))
	assert.Equal(t, Unknown, Parse("pharmacist"))
	assert.Equal(t, Unknown, Parse(""))
}

func TestValid(t *testing.T) {
	assert.True(t, Patient.Valid())
	assert.False(t, Unknown.Valid())
	assert.False(t, Role("Nurse").Valid())
}

func TestDefaultPermissions(t *testing.T) {
	assert.True(t, Has(DefaultPermissions(Patient), RiskPredict))
	assert.False(t, Has(DefaultPermissions(Patient), AssignmentManage))

	assert.True(t, Has(DefaultPermissions(Nurse), PatientView))
	assert.False(t, Has(DefaultPermissions(Nurse), AssignmentManage))

	doctor := DefaultPermissions(Doctor)
	for _, p := range DefaultPermissions(Nurse) {
		assert.True(t, Has(doctor, p), string(p))
	}
	assert.True(t, Has(doctor, AssignmentManage))
	assert.True(t, Has(doctor, AppointmentUpdate))

	admin := DefaultPermissions(Admin)
	for _, r := range []Role{Patient, Nurse, Doctor} {
		for _, p := range DefaultPermissions(r) {
			assert.True(t, Has(admin, p), string(p))
		}
	}
	assert.True(t, Has(admin, UserManage))
	assert.True(t, Has(admin, ReportExport))

	assert.Empty(t, DefaultPermissions(Unknown))
}

func TestDefaultPermissions_ReturnsCopy(t *testing.T) {
	perms := DefaultPermissions(Nurse)
	perms[0] = "tampered"
	assert.Equal(t, ProfileView, DefaultPermissions(Nurse)[0])
}

func TestDefaultGrant(t *testing.T) {
	g := DefaultGrant(Doctor, "migration")
	assert.Equal(t, "Doctor", g.RoleName)
	assert.Equal(t, Doctor, g.RoleCode)
	assert.Equal(t, "migration", g.CreatedBy)
	assert.Equal(t, DefaultPermissions(Doctor), g.Privileges)
}

func TestOf(t *testing.T) {
	assert.Equal(t, AssignmentManage, Of("assignment", "manage"))
}
