package chat

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Lifecycle is the local delivery state of a message entry.
type Lifecycle string

const (
	Pending   Lifecycle = "pending"   // provisional, write in flight
	Confirmed Lifecycle = "confirmed" // durable id assigned by the server
	Failed    Lifecycle = "failed"    // write failed, retryable by user action
)

const provisionalPrefix = "local-"

// Message is one entry in the store. LocalID survives promotion so a
// pending entry can be found again after the broadcast echo replaced its
// provisional id with the durable one.
type Message struct {
	ID         string // durable server id, or provisional "local-…" id
	LocalID    string // provisional id; empty for entries that arrived confirmed
	Content    string
	ChannelID  string
	SenderName string
	CreatedAt  time.Time // server time once confirmed, local wall clock before
	Lifecycle  Lifecycle

	// Attachments are opaque media references owned by the upload
	// collaborator; carried through, never interpreted.
	Attachments []string

	seq uint64 // arrival order, tiebreak for equal CreatedAt
}

// NewProvisionalID returns a process-unique id distinguishable in form
// from durable server ids.
func NewProvisionalID() string {
	return provisionalPrefix + uuid.NewString()
}

// IsProvisionalID reports whether id was locally generated.
func IsProvisionalID(id string) bool {
	return strings.HasPrefix(id, provisionalPrefix)
}
