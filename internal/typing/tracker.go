package typing

import (
	"sync"
	"time"
)

// DefaultExpiry is how long the indicator stays up after the last
// qualifying event.
const DefaultExpiry = 3 * time.Second

// Tracker holds the per-channel "someone is typing" flag. Each qualifying
// event restarts the single expiry timer; silence clears the flag. The
// tracker owns its timer — callers never schedule expiry themselves.
type Tracker struct {
	// OnChange fires on every flag transition. Optional.
	OnChange func(active bool, username string)

	expiry time.Duration

	mu       sync.Mutex
	timer    *time.Timer
	active   bool
	who      string
	deadline time.Time
}

func NewTracker(expiry time.Duration) *Tracker {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &Tracker{expiry: expiry}
}

// Touch records a qualifying remote typing event. Filtering (remote user
// only, active channel only) is the caller's responsibility.
func (t *Tracker) Touch(username string) {
	t.mu.Lock()
	t.active = true
	t.who = username
	t.deadline = time.Now().Add(t.expiry)
	if t.timer == nil {
		t.timer = time.AfterFunc(t.expiry, t.expire)
	} else {
		t.timer.Reset(t.expiry)
	}
	cb := t.OnChange
	t.mu.Unlock()

	if cb != nil {
		cb(true, username)
	}
}

func (t *Tracker) expire() {
	t.mu.Lock()
	// A Touch may race a timer that already fired: Reset cannot recall the
	// in-flight callback, so the deadline decides whether this run counts.
	if !t.active || time.Now().Before(t.deadline) {
		t.mu.Unlock()
		return
	}
	t.active = false
	t.who = ""
	cb := t.OnChange
	t.mu.Unlock()

	if cb != nil {
		cb(false, "")
	}
}

// Clear drops the flag immediately, e.g. on channel switch.
func (t *Tracker) Clear() {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
	}
	wasActive := t.active
	t.active = false
	t.who = ""
	cb := t.OnChange
	t.mu.Unlock()

	if wasActive && cb != nil {
		cb(false, "")
	}
}

// Typing returns the current flag and who triggered it.
func (t *Tracker) Typing() (bool, string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active, t.who
}
