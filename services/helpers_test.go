package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"MamaCare/authorization"
	"MamaCare/db"
	"MamaCare/models"
	"MamaCare/notification"
	"MamaCare/role"
	"MamaCare/session"
	"MamaCare/util"

	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu           sync.Mutex
	sent         []notification.Message
	unregistered map[string]bool
	failing      map[string]error
}

func newFakeSender() *fakeSender {
	return &fakeSender{unregistered: map[string]bool{}, failing: map[string]error{}}
}

func (f *fakeSender) Send(_ context.Context, m notification.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unregistered[m.Token] {
		return "", notification.ErrUnregistered
	}
	if err := f.failing[m.Token]; err != nil {
		return "", err
	}
	f.sent = append(f.sent, m)
	return "msg-" + m.Token, nil
}

func (f *fakeSender) messages() []notification.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notification.Message(nil), f.sent...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []notification.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e notification.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Type+":"+e.UserID)
	}
	return out
}

type fixture struct {
	svc    *Services
	store  *db.MemoryStore
	sender *fakeSender
	events *recordingPublisher
	hub    *session.Hub
	issuer *authorization.Issuer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  db.NewMemoryStore(),
		sender: newFakeSender(),
		events: &recordingPublisher{},
		hub:    session.NewHub(0),
		issuer: authorization.NewIssuer("0123456789abcdef0123456789abcdef", "mamacare", time.Hour),
	}
	f.svc = New(Deps{
		Store:         f.store,
		Events:        f.events,
		Sender:        f.sender,
		Hub:           f.hub,
		Issuer:        f.issuer,
		NurseCapacity: 5,
	})
	return f
}

func (f *fixture) seed(t *testing.T, u models.User) {
	t.Helper()
	doc, err := db.Encode(u)
	require.NoError(t, err)
	require.NoError(t, f.store.Set(context.Background(), util.UserCollection, u.ID, doc))
}

func (f *fixture) nurse(t *testing.T, id, name string, load int64) {
	f.seed(t, models.User{ID: id, Name: name, Role: role.Nurse, CurrentPatientLoad: load})
}

func (f *fixture) patient(t *testing.T, id, name, nurseID string) {
	f.seed(t, models.User{ID: id, Name: name, Role: role.Patient, AssignedNurseID: nurseID})
}

func (f *fixture) user(t *testing.T, id string) models.User {
	t.Helper()
	u, err := getUser(context.Background(), f.store, id)
	require.NoError(t, err)
	return u
}

func (f *fixture) auditExists(id string) bool {
	_, err := f.store.Get(context.Background(), util.NurseAssignmentCollection, id)
	return err == nil
}

// signIn logs in and returns the identity carried by the issued token.
func (f *fixture) signIn(t *testing.T, email string) authorization.Identity {
	t.Helper()
	resp, err := f.svc.Auth.SignIn(context.Background(), models.LoginRequest{Email: email, Password: "s3cret-pass"})
	require.NoError(t, err)
	id, err := f.issuer.ParseJWT(resp.Token)
	require.NoError(t, err)
	return id
}

func (f *fixture) revoked(t *testing.T, id authorization.Identity) bool {
	t.Helper()
	revoked, err := f.svc.Auth.Revoked(context.Background(), id)
	require.NoError(t, err)
	return revoked
}
