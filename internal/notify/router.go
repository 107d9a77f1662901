package notify

import (
	"sync"
	"time"
)

// DefaultTTL is how long a notification stays visible unless dismissed.
const DefaultTTL = 5 * time.Second

// Notification is a human-readable event summary.
type Notification struct {
	Title   string
	Message string
	At      time.Time
}

// Pusher mirrors notifications to an external push service. Optional.
type Pusher interface {
	Push(title, message string)
}

// Router surfaces at most one notification at a time. A new notification
// replaces the visible one (last-write-wins) and restarts the dismiss
// timer, which the router owns.
type Router struct {
	// OnChange fires with the visible notification, or nil on dismiss.
	OnChange func(*Notification)

	ttl    time.Duration
	pusher Pusher

	mu       sync.Mutex
	current  *Notification
	timer    *time.Timer
	deadline time.Time
}

func NewRouter(ttl time.Duration) *Router {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Router{ttl: ttl}
}

// SetPusher installs an external push mirror.
func (r *Router) SetPusher(p Pusher) {
	r.mu.Lock()
	r.pusher = p
	r.mu.Unlock()
}

// Notify displays a notification, replacing any visible one.
func (r *Router) Notify(title, message string) {
	n := &Notification{Title: title, Message: message, At: time.Now()}

	r.mu.Lock()
	r.current = n
	r.deadline = time.Now().Add(r.ttl)
	if r.timer == nil {
		r.timer = time.AfterFunc(r.ttl, r.expire)
	} else {
		r.timer.Reset(r.ttl)
	}
	cb := r.OnChange
	pusher := r.pusher
	r.mu.Unlock()

	if cb != nil {
		cb(n)
	}
	if pusher != nil {
		go pusher.Push(title, message)
	}
}

func (r *Router) expire() {
	r.mu.Lock()
	// A Notify may race a timer that already fired: Reset cannot recall the
	// in-flight callback, so the deadline decides whether this run counts.
	if r.current == nil || time.Now().Before(r.deadline) {
		r.mu.Unlock()
		return
	}
	r.current = nil
	cb := r.OnChange
	r.mu.Unlock()

	if cb != nil {
		cb(nil)
	}
}

// Dismiss clears the visible notification ahead of the timer.
func (r *Router) Dismiss() {
	r.mu.Lock()
	if r.timer != nil {
		r.timer.Stop()
	}
	had := r.current != nil
	r.current = nil
	cb := r.OnChange
	r.mu.Unlock()

	if had && cb != nil {
		cb(nil)
	}
}

// Current returns the visible notification, or nil.
func (r *Router) Current() *Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}
