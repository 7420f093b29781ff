package services

import (
	"context"
	"errors"
	"testing"

	"MamaCare/db"
	"MamaCare/models"
	"MamaCare/notification"
	"MamaCare/role"
	"MamaCare/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyUser_NoTarget(t *testing.T) {
	f := newFixture(t)
	f.patient(t, "p1", "Bea", "")

	res, err := f.svc.Notifications.NotifyUser(context.Background(), "p1", "t", "b", nil, false)
	require.NoError(t, err)
	assert.Equal(t, models.DispatchNoTarget, res.Status)
	assert.Empty(t, f.sender.messages())
}

func TestNotifyUser_PrunesUnregisteredTokens(t *testing.T) {
	f := newFixture(t)
	f.seed(t, models.User{ID: "p1", Role: role.Patient, FCMTokens: models.Tokens{"good", "stale", "good"}})
	f.sender.unregistered["stale"] = true

	res, err := f.svc.Notifications.NotifyUser(context.Background(), "p1", "Hello", "World", map[string]string{"k": "v"}, true)
	require.NoError(t, err)
	assert.Equal(t, models.DispatchResult{
		Status:         models.DispatchPartialSuccess,
		SuccessCount:   1,
		FailureCount:   1,
		TokensTargeted: 2,
		TokensRemoved:  1,
	}, res)
	assert.Equal(t, models.Tokens{"good", "good"}, f.user(t, "p1").FCMTokens)

	msgs := f.sender.messages()
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].HighPriority)
	assert.Equal(t, "v", msgs[0].Data["k"])
}

func TestNotifyUser_AllFail(t *testing.T) {
	f := newFixture(t)
	f.seed(t, models.User{ID: "p1", Role: role.Patient, FCMTokens: models.Tokens{"a", "b"}})
	f.sender.failing["a"] = errors.New("quota exceeded")
	f.sender.unregistered["b"] = true

	res, err := f.svc.Notifications.NotifyUser(context.Background(), "p1", "t", "b", nil, false)
	require.NoError(t, err)
	assert.Equal(t, models.DispatchFailure, res.Status)
	assert.Equal(t, 2, res.FailureCount)
	assert.Equal(t, 1, res.TokensRemoved)
	assert.Equal(t, models.Tokens{"a"}, f.user(t, "p1").FCMTokens)
}

func TestNotifyUser_MissingUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Notifications.NotifyUser(context.Background(), "ghost", "t", "b", nil, false)
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestRegisterToken(t *testing.T) {
	f := newFixture(t)
	f.patient(t, "p1", "Bea", "")
	ctx := context.Background()

	require.NoError(t, f.svc.Notifications.RegisterToken(ctx, "p1", "t1"))
	require.NoError(t, f.svc.Notifications.RegisterToken(ctx, "p1", "t2"))
	require.NoError(t, f.svc.Notifications.RegisterToken(ctx, "p1", "t1"))
	assert.Equal(t, models.Tokens{"t1", "t2"}, f.user(t, "p1").FCMTokens)

	require.NoError(t, f.svc.Notifications.RemoveToken(ctx, "p1", "t1"))
	assert.Equal(t, models.Tokens{"t2"}, f.user(t, "p1").FCMTokens)

	assert.ErrorIs(t, f.svc.Notifications.RegisterToken(ctx, "p1", " "), util.ErrInvalidArgument)
	assert.ErrorIs(t, f.svc.Notifications.RegisterToken(ctx, "ghost", "t1"), util.ErrNotFound)
}

func TestRegisterToken_LegacyStringValue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Set(ctx, util.UserCollection, "p1", db.Document{"role": "patient", "fcmTokens": "old"}))

	require.NoError(t, f.svc.Notifications.RegisterToken(ctx, "p1", "new"))
	assert.Equal(t, models.Tokens{"old", "new"}, f.user(t, "p1").FCMTokens)
}

func TestRemoveToken_LegacyStringValue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Set(ctx, util.UserCollection, "p1", db.Document{"role": "patient", "fcmTokens": "old"}))

	require.NoError(t, f.svc.Notifications.RemoveToken(ctx, "p1", "old"))
	assert.Empty(t, f.user(t, "p1").FCMTokens)
}

func TestSendDirect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.sender.unregistered["stale"] = true
	f.sender.failing["bad"] = notification.ErrInvalidArgument
	f.sender.failing["down"] = errors.New("unavailable")

	id, err := f.svc.Notifications.SendDirect(ctx, models.PushRequest{Token: "ok", Title: "t"})
	require.NoError(t, err)
	assert.Equal(t, "msg-ok", id)

	_, err = f.svc.Notifications.SendDirect(ctx, models.PushRequest{Token: "stale"})
	assert.ErrorIs(t, err, util.ErrNotFound)
	_, err = f.svc.Notifications.SendDirect(ctx, models.PushRequest{Token: "bad"})
	assert.ErrorIs(t, err, util.ErrInvalidArgument)
	_, err = f.svc.Notifications.SendDirect(ctx, models.PushRequest{Token: "down"})
	assert.ErrorIs(t, err, util.ErrBackendUnavailable)
	_, err = f.svc.Notifications.SendDirect(ctx, models.PushRequest{})
	assert.ErrorIs(t, err, util.ErrInvalidArgument)
}
