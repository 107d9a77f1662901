package ws

import (
	"math/rand"
	"time"
)

// Backoff produces capped exponential delays with full jitter, so a fleet
// of clients does not reconnect in lockstep after a server restart.
type Backoff struct {
	Base time.Duration
	Max  time.Duration

	attempt int
}

func NewBackoff(base, max time.Duration) *Backoff {
	return &Backoff{Base: base, Max: max}
}

// Next returns a random delay in (0, cap] where cap doubles per attempt
// up to Max.
func (b *Backoff) Next() time.Duration {
	d := b.Base << b.attempt
	if d > b.Max || d <= 0 {
		d = b.Max
	} else {
		b.attempt++
	}
	return time.Duration(1 + rand.Int63n(int64(d)))
}

func (b *Backoff) Reset() {
	b.attempt = 0
}
