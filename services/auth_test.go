package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"MamaCare/db"
	"MamaCare/models"
	"MamaCare/role"
	"MamaCare/session"
	"MamaCare/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func register(t *testing.T, f *fixture, email string) models.User {
	t.Helper()
	u, err := f.svc.Auth.Register(context.Background(), models.RegisterRequest{Email: email, Password: "s3cret-pass", Name: "Bea"})
	require.NoError(t, err)
	return u
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	u := register(t, f, "  Bea@Example.com ")

	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "bea@example.com", u.Email)
	assert.Equal(t, role.Patient, u.Role)
	assert.ElementsMatch(t, role.Strings(role.DefaultPermissions(role.Patient)), u.Permissions)

	doc, err := f.store.Get(context.Background(), util.LoginCollection, "bea@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, doc["uid"])
	assert.NotEqual(t, "s3cret-pass", doc["passwordHash"])
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Auth.Register(ctx, models.RegisterRequest{Email: "not-an-email", Password: "longenough"})
	assert.ErrorIs(t, err, util.ErrInvalidArgument)
	_, err = f.svc.Auth.Register(ctx, models.RegisterRequest{Email: "a@b.c", Password: "short"})
	assert.ErrorIs(t, err, util.ErrInvalidArgument)

	register(t, f, "a@b.c")
	_, err = f.svc.Auth.Register(ctx, models.RegisterRequest{Email: "A@B.C", Password: "different-pass"})
	assert.ErrorIs(t, err, util.ErrConflict)
}

func TestSignIn(t *testing.T) {
	f := newFixture(t)
	u := register(t, f, "bea@example.com")

	resp, err := f.svc.Auth.SignIn(context.Background(), models.LoginRequest{Email: "BEA@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, u.ID, resp.User.ID)
	assert.Greater(t, resp.ExpiresAt, time.Now().Unix())

	current, ok := f.hub.Current(u.ID)
	require.True(t, ok)
	assert.Equal(t, session.SignedIn, current.State)
}

func TestSignIn_LockoutAfterThreeFailures(t *testing.T) {
	f := newFixture(t)
	register(t, f, "bea@example.com")
	ctx := context.Background()
	wrong := models.LoginRequest{Email: "bea@example.com", Password: "wrong-password"}

	_, err := f.svc.Auth.SignIn(ctx, wrong)
	assert.ErrorIs(t, err, util.ErrUnauthenticated)
	_, err = f.svc.Auth.SignIn(ctx, wrong)
	assert.ErrorIs(t, err, util.ErrUnauthenticated)
	_, err = f.svc.Auth.SignIn(ctx, wrong)
	assert.ErrorIs(t, err, &util.AppError{Kind: util.KindPermissionDenied, Code: util.CODE_LOGIN_BLOCKED})

	_, err = f.svc.Auth.SignIn(ctx, models.LoginRequest{Email: "bea@example.com", Password: "s3cret-pass"})
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	require.NoError(t, f.svc.Auth.Unblock(ctx, "bea@example.com"))
	_, err = f.svc.Auth.SignIn(ctx, models.LoginRequest{Email: "bea@example.com", Password: "s3cret-pass"})
	assert.NoError(t, err)
}

func TestSignIn_SuccessResetsCounter(t *testing.T) {
	f := newFixture(t)
	register(t, f, "bea@example.com")
	ctx := context.Background()

	_, err := f.svc.Auth.SignIn(ctx, models.LoginRequest{Email: "bea@example.com", Password: "nope-nope"})
	require.Error(t, err)
	_, err = f.svc.Auth.SignIn(ctx, models.LoginRequest{Email: "bea@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)

	doc, err := f.store.Get(ctx, util.LoginCollection, "bea@example.com")
	require.NoError(t, err)
	assert.EqualValues(t, 0, doc["failedAttempts"])
}

func TestSignIn_UnknownEmail(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Auth.SignIn(context.Background(), models.LoginRequest{Email: "ghost@example.com", Password: "whatever1"})
	assert.ErrorIs(t, err, util.ErrUnauthenticated)
}

func TestSignIn_CreatesMissingProfile(t *testing.T) {
	f := newFixture(t)
	u := register(t, f, "bea@example.com")
	require.NoError(t, f.store.Delete(context.Background(), util.UserCollection, u.ID))

	resp, err := f.svc.Auth.SignIn(context.Background(), models.LoginRequest{Email: "bea@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, resp.User.ID)
	assert.Equal(t, role.Unknown, resp.User.Role)

	_, err = f.store.Get(context.Background(), util.UserCollection, u.ID)
	assert.NoError(t, err)
}

func TestSignOut_RevokesIssuedTokens(t *testing.T) {
	f := newFixture(t)
	register(t, f, "bea@example.com")
	first := f.signIn(t, "bea@example.com")
	assert.False(t, f.revoked(t, first))

	require.NoError(t, f.svc.Auth.SignOut(context.Background(), first))
	assert.True(t, f.revoked(t, first))

	second := f.signIn(t, "bea@example.com")
	assert.False(t, f.revoked(t, second))
	assert.True(t, f.revoked(t, first), "signing in again must not revive older tokens")

	current, ok := f.hub.Current(first.UID)
	require.True(t, ok)
	assert.Equal(t, session.SignedIn, current.State)
}

func TestSignOut_UnknownUser(t *testing.T) {
	f := newFixture(t)
	err := f.svc.Auth.SignOut(context.Background(), IdentityOf(models.User{ID: "ghost"}))
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestRevoked_DeletedUserAndBackendDown(t *testing.T) {
	f := newFixture(t)
	revoked, err := f.svc.Auth.Revoked(context.Background(), IdentityOf(models.User{ID: "ghost"}))
	require.NoError(t, err)
	assert.True(t, revoked)

	f.nurse(t, "n1", "Ada", 0)
	f.store.FailReads(errors.New("store down"))
	_, err = f.svc.Auth.Revoked(context.Background(), IdentityOf(models.User{ID: "n1"}))
	assert.ErrorIs(t, err, util.ErrBackendUnavailable)
}

func TestChangeRole_OldTokensStayRevokedAfterSignIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := register(t, f, "bea@example.com")

	_, err := f.svc.Users.ChangeRole(ctx, u.ID, "doctor", "admin")
	require.NoError(t, err)
	doctor := f.signIn(t, "bea@example.com")
	require.True(t, doctor.Can(role.AssignmentManage))

	_, err = f.svc.Users.ChangeRole(ctx, u.ID, "patient", "admin")
	require.NoError(t, err)
	assert.True(t, f.revoked(t, doctor))

	patient := f.signIn(t, "bea@example.com")
	assert.False(t, f.revoked(t, patient))
	assert.False(t, patient.Can(role.AssignmentManage))
	assert.True(t, f.revoked(t, doctor))
}

func TestIdentityOf_FallsBackToRoleDefaults(t *testing.T) {
	id := IdentityOf(models.User{ID: "u1", Role: "Doctor"})
	assert.Equal(t, role.Doctor, id.Role)
	assert.True(t, id.Can(role.AssignmentManage))

	id = IdentityOf(models.User{ID: "u2", Role: role.Nurse, Permissions: []string{string(role.ProfileView)}})
	assert.True(t, id.Can(role.ProfileView))
	assert.False(t, id.Can(role.PatientView))
}

func TestLoginDocumentShape(t *testing.T) {
	f := newFixture(t)
	register(t, f, "bea@example.com")
	doc, err := f.store.Get(context.Background(), util.LoginCollection, "bea@example.com")
	require.NoError(t, err)
	var login models.Login
	require.NoError(t, db.Decode(doc, &login))
	assert.Equal(t, "bea@example.com", login.ID)
	assert.False(t, login.Blocked)
}
