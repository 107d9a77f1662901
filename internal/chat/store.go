package chat

import (
	"sort"
	"sync"
	"time"
)

// echoWindow bounds how far apart a provisional entry's local timestamp
// and the broadcast echo's server timestamp may be and still describe the
// same logical send.
const echoWindow = 15 * time.Second

// Store is the ordered, deduplicated message collection. Confirmed
// messages are totally ordered by CreatedAt with arrival-order tiebreak;
// provisional entries carry their local insertion time and fall into
// place once the server timestamp is known. No two entries ever
// represent the same durable message.
type Store struct {
	mu       sync.RWMutex
	messages []*Message
	byID     map[string]*Message // durable and provisional ids
	seq      uint64
}

func NewStore() *Store {
	return &Store{byID: make(map[string]*Message)}
}

// ReplaceConfirmed swaps in a freshly fetched message set, such as after a
// reconnect. Provisional entries (pending or failed sends) survive the
// swap; confirmed entries are replaced wholesale.
func (s *Store) ReplaceConfirmed(msgs []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kept []*Message
	for _, m := range s.messages {
		if m.Lifecycle != Confirmed {
			kept = append(kept, m)
		}
	}
	s.messages = s.messages[:0]
	s.byID = make(map[string]*Message)

	for i := range msgs {
		m := msgs[i]
		if _, dup := s.byID[m.ID]; dup {
			continue
		}
		m.Lifecycle = Confirmed
		s.seq++
		m.seq = s.seq
		s.insertLocked(&m)
	}
	// Re-add surviving provisional entries unless the fetch already
	// contains their durable counterpart. This covers failed entries too:
	// a fetched twin means the write the client gave up on actually landed.
	for _, m := range kept {
		if s.hasConfirmedTwinLocked(m) {
			continue
		}
		s.insertLocked(m)
	}
	s.sortLocked()
}

// MergeConfirmed inserts confirmed messages that are not already present,
// without disturbing existing entries. Used to prime a channel from the
// local cache before the authoritative fetch lands.
func (s *Store) MergeConfirmed(msgs []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := false
	for i := range msgs {
		m := msgs[i]
		if _, dup := s.byID[m.ID]; dup {
			continue
		}
		m.Lifecycle = Confirmed
		s.seq++
		m.seq = s.seq
		s.insertLocked(&m)
		changed = true
	}
	if changed {
		s.sortLocked()
	}
}

// AppendProvisional inserts a pending entry. The UI sees the send attempt
// immediately; the durable write has not been issued yet.
func (s *Store) AppendProvisional(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.Lifecycle = Pending
	m.LocalID = m.ID
	s.seq++
	m.seq = s.seq
	s.insertLocked(&m)
	s.sortLocked()
}

// Confirm promotes the provisional entry identified by localID after the
// durable-write call succeeded. A no-op if the broadcast echo already
// promoted it.
func (s *Store) Confirm(localID, durableID string, createdAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.byID[localID]
	if m == nil {
		return
	}
	if !IsProvisionalID(m.ID) {
		// Echo arrived before the HTTP acknowledgement.
		m.Lifecycle = Confirmed
		return
	}
	if other, dup := s.byID[durableID]; dup && other != m {
		// Echo was inserted as its own entry before we could match it —
		// drop the provisional copy rather than show the send twice.
		s.removeLocked(m)
		return
	}
	m.ID = durableID
	m.Lifecycle = Confirmed
	if !createdAt.IsZero() {
		m.CreatedAt = createdAt
	}
	// The LocalID alias stays mapped so later lookups by provisional id
	// still resolve to the promoted entry.
	s.byID[durableID] = m
	s.sortLocked()
}

// Fail marks the provisional entry failed. It stays visible with a retry
// affordance.
func (s *Store) Fail(localID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m := s.byID[localID]; m != nil && IsProvisionalID(m.ID) {
		m.Lifecycle = Failed
	}
}

// MarkPending flips a failed entry back to pending ahead of a retry and
// returns its content and channel. ok is false when the entry is gone or
// not in a retryable state.
func (s *Store) MarkPending(localID string) (content, channelID string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.byID[localID]
	if m == nil || m.Lifecycle != Failed {
		return "", "", false
	}
	m.Lifecycle = Pending
	return m.Content, m.ChannelID, true
}

// ApplyBroadcast reconciles a server-fanout message. The sender's own echo
// is matched against its provisional entry by (sender, channel, content)
// within echoWindow and promotes it in place; everything else is inserted
// as a new confirmed entry. Duplicate deliveries of the same durable id
// are ignored.
func (s *Store) ApplyBroadcast(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.byID[m.ID]; dup {
		return
	}

	if prov := s.findEchoLocked(m.SenderName, m.ChannelID, m.Content, m.CreatedAt); prov != nil {
		prov.ID = m.ID
		prov.CreatedAt = m.CreatedAt
		prov.Lifecycle = Confirmed
		s.byID[m.ID] = prov
		s.sortLocked()
		return
	}

	m.Lifecycle = Confirmed
	s.seq++
	m.seq = s.seq
	s.insertLocked(&m)
	s.sortLocked()
}

// hasConfirmedTwinLocked reports whether a confirmed entry describing the
// same logical send as the provisional entry is already present.
func (s *Store) hasConfirmedTwinLocked(p *Message) bool {
	for _, m := range s.messages {
		if m.Lifecycle != Confirmed {
			continue
		}
		if m.SenderName != p.SenderName || m.ChannelID != p.ChannelID || m.Content != p.Content {
			continue
		}
		d := m.CreatedAt.Sub(p.CreatedAt)
		if d < 0 {
			d = -d
		}
		if d <= echoWindow {
			return true
		}
	}
	return false
}

// findEchoLocked returns the oldest provisional entry matching the echo
// identity, or nil. Failed entries match too: a write can fail locally
// (lost ack, timeout) after the server committed it, and the echo is the
// proof that the send went through.
func (s *Store) findEchoLocked(sender, channel, content string, at time.Time) *Message {
	for _, m := range s.messages {
		if !IsProvisionalID(m.ID) {
			continue
		}
		if m.SenderName != sender || m.ChannelID != channel || m.Content != content {
			continue
		}
		d := at.Sub(m.CreatedAt)
		if d < 0 {
			d = -d
		}
		if d <= echoWindow {
			return m
		}
	}
	return nil
}

// ChannelMessages returns the ordered messages for one channel.
func (s *Store) ChannelMessages(channelID string) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Message
	for _, m := range s.messages {
		if m.ChannelID == channelID {
			out = append(out, *m)
		}
	}
	return out
}

// Get returns a copy of the entry with the given id (durable or provisional).
func (s *Store) Get(id string) (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m := s.byID[id]; m != nil {
		return *m, true
	}
	return Message{}, false
}

// Len returns the total number of entries across channels.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

func (s *Store) insertLocked(m *Message) {
	s.messages = append(s.messages, m)
	s.byID[m.ID] = m
	if m.LocalID != "" && m.LocalID != m.ID {
		s.byID[m.LocalID] = m
	}
}

func (s *Store) removeLocked(m *Message) {
	delete(s.byID, m.ID)
	if m.LocalID != "" {
		delete(s.byID, m.LocalID)
	}
	for i, e := range s.messages {
		if e == m {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			return
		}
	}
}

func (s *Store) sortLocked() {
	sort.SliceStable(s.messages, func(i, j int) bool {
		a, b := s.messages[i], s.messages[j]
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.seq < b.seq
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}
