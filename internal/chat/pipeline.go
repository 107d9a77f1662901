package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/Damdev80/chat-for-company-sub002/internal/api"
)

// Sender issues the durable-write call for an outgoing message.
type Sender interface {
	SendMessage(ctx context.Context, content, groupID string) (*api.SendResult, error)
}

// Pipeline is the optimistic send path: a provisional entry lands in the
// store before the write call is issued, so the UI reflects the attempt
// with zero latency, and is reconciled against the HTTP acknowledgement
// and the broadcast echo in whichever order they arrive.
type Pipeline struct {
	store  *Store
	sender Sender

	// OnUpdate fires after any lifecycle transition. Optional.
	OnUpdate func()
	// OnFailure fires when a write fails; routed to the notification
	// router by the engine. Optional.
	OnFailure func(localID string, err error)

	now func() time.Time
}

func NewPipeline(store *Store, sender Sender) *Pipeline {
	return &Pipeline{store: store, sender: sender, now: time.Now}
}

// Send appends a pending message and issues the durable write without
// blocking the caller. Empty or whitespace-only text is silently dropped.
// Returns the provisional id, or "" for the no-op case.
func (p *Pipeline) Send(ctx context.Context, text, channelID, senderName string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	localID := NewProvisionalID()
	p.store.AppendProvisional(Message{
		ID:         localID,
		Content:    text,
		ChannelID:  channelID,
		SenderName: senderName,
		CreatedAt:  p.now(),
	})
	p.notify()

	go p.issue(ctx, localID, text, channelID)
	return localID
}

// Retry re-issues a failed send with its original content, reusing the
// same provisional id.
func (p *Pipeline) Retry(ctx context.Context, localID string) bool {
	content, channelID, ok := p.store.MarkPending(localID)
	if !ok {
		return false
	}
	p.notify()
	go p.issue(ctx, localID, content, channelID)
	return true
}

func (p *Pipeline) issue(ctx context.Context, localID, content, channelID string) {
	res, err := p.sender.SendMessage(ctx, content, channelID)
	if err != nil {
		slog.Warn("send failed", "channel", channelID, "err", err)
		p.store.Fail(localID)
		if p.OnFailure != nil {
			p.OnFailure(localID, err)
		}
		p.notify()
		return
	}
	p.store.Confirm(localID, res.ID, ParseServerTime(res.CreatedAt))
	p.notify()
}

func (p *Pipeline) notify() {
	if p.OnUpdate != nil {
		p.OnUpdate()
	}
}

// ParseServerTime decodes a server timestamp, zero on failure so callers
// fall back to the local clock value instead.
func ParseServerTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
