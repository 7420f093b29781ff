package session

import (
	"sync"
	"time"

	"MamaCare/authorization"
)

type State string

const (
	SignedIn  State = "signed_in"
	SignedOut State = "signed_out"
)

// Session is an immutable snapshot of a user's authentication state.
type Session struct {
	Identity authorization.Identity
	State    State
	At       time.Time
}

// Hub fans session changes out to subscribers. Publish never blocks: a
// subscriber whose buffer is full misses the event.
type Hub struct {
	mu      sync.RWMutex
	subs    map[int]chan Session
	nextID  int
	current map[string]Session
	buffer  int
	closed  bool
	dropped func(Session)
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		subs:    map[int]chan Session{},
		current: map[string]Session{},
		buffer:  buffer,
	}
}

// OnDrop registers a callback invoked when a subscriber misses an event.
func (h *Hub) OnDrop(fn func(Session)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropped = fn
}

// Subscribe returns a channel of future sessions and a function that
// removes the subscription and closes the channel.
func (h *Hub) Subscribe() (<-chan Session, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan Session, h.buffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if sub, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(sub)
			}
		})
	}
}

/*
* Record the snapshot and offer it to every subscriber
* The drop callback runs after the lock is released so it may use the hub
 */
func (h *Hub) Publish(s Session) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.current[s.Identity.UID] = s
	missed := 0
	for _, ch := range h.subs {
		select {
		case ch <- s:
		default:
			missed++
		}
	}
	dropped := h.dropped
	h.mu.Unlock()

	if dropped == nil {
		return
	}
	for i := 0; i < missed; i++ {
		dropped(s)
	}
}

func (h *Hub) SignIn(id authorization.Identity) Session {
	s := Session{Identity: id, State: SignedIn, At: time.Now().UTC()}
	h.Publish(s)
	return s
}

func (h *Hub) SignOut(id authorization.Identity) Session {
	s := Session{Identity: id, State: SignedOut, At: time.Now().UTC()}
	h.Publish(s)
	return s
}

// Current returns the last published session for uid.
func (h *Hub) Current(uid string) (Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.current[uid]
	return s, ok
}

// Close closes every subscriber channel. Later publishes are ignored.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		close(ch)
		delete(h.subs, id)
	}
}
