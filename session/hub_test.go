package session

import (
	"sync"
	"testing"
	"time"

	"MamaCare/authorization"
	"MamaCare/role"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nurse() authorization.Identity {
	return authorization.Identity{UID: "n1", Role: role.Nurse}
}

func TestHub_SubscribeReceivesSnapshots(t *testing.T) {
	h := NewHub(4)
	events, unsubscribe := h.Subscribe()
	defer unsubscribe()

	h.SignIn(nurse())
	h.SignOut(nurse())

	first := <-events
	second := <-events
	assert.Equal(t, SignedIn, first.State)
	assert.Equal(t, SignedOut, second.State)
	assert.Equal(t, "n1", second.Identity.UID)

	current, ok := h.Current("n1")
	require.True(t, ok)
	assert.Equal(t, SignedOut, current.State)
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	h := NewHub(1)
	_, unsubscribe := h.Subscribe()
	defer unsubscribe()

	var mu sync.Mutex
	dropped := 0
	h.OnDrop(func(Session) {
		mu.Lock()
		dropped++
		mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			h.SignIn(nurse())
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	mu.Lock()
	assert.Equal(t, 9, dropped)
	mu.Unlock()
}

func TestHub_UnsubscribeClosesChannel(t *testing.T) {
	h := NewHub(1)
	events, unsubscribe := h.Subscribe()
	unsubscribe()
	unsubscribe()

	_, open := <-events
	assert.False(t, open)
	h.SignIn(nurse())
}

func TestHub_Close(t *testing.T) {
	h := NewHub(1)
	events, unsubscribe := h.Subscribe()
	h.Close()
	unsubscribe()

	_, open := <-events
	assert.False(t, open)

	late, _ := h.Subscribe()
	_, open = <-late
	assert.False(t, open)
}

func TestHub_DropCallbackMayUseHub(t *testing.T) {
	h := NewHub(1)
	_, unsubscribe := h.Subscribe()
	defer unsubscribe()

	var seen []State
	h.OnDrop(func(s Session) {
		current, ok := h.Current(s.Identity.UID)
		if ok {
			seen = append(seen, current.State)
		}
	})

	done := make(chan struct{})
	go func() {
		h.SignIn(nurse())
		h.SignOut(nurse())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("drop callback deadlocked the hub")
	}
	assert.Equal(t, []State{SignedOut}, seen)
}
