package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Damdev80/chat-for-company-sub002/internal/api"
)

type fakeSender struct {
	mu    sync.Mutex
	calls []string // content of each write attempt
	fail  bool
}

func (f *fakeSender) SendMessage(ctx context.Context, content, groupID string) (*api.SendResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, content)
	fail := f.fail
	f.mu.Unlock()
	if fail {
		return nil, errors.New("server rejected")
	}
	return &api.SendResult{ID: "srv-1", CreatedAt: time.Now().UTC().Format(time.RFC3339)}, nil
}

func (f *fakeSender) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// settled waits for the pipeline's async write to finish.
func settled(t *testing.T, s *Store, localID string, want Lifecycle) Message {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m, ok := s.Get(localID); ok && m.Lifecycle == want {
			return m
		}
		time.Sleep(5 * time.Millisecond)
	}
	m, _ := s.Get(localID)
	t.Fatalf("entry %s never reached %s (now %+v)", localID, want, m)
	return Message{}
}

func TestSendEmptyIsNoOp(t *testing.T) {
	store := NewStore()
	sender := &fakeSender{}
	p := NewPipeline(store, sender)

	for _, text := range []string{"", "   ", "\n\t "} {
		if id := p.Send(context.Background(), text, "global", "ana"); id != "" {
			t.Errorf("Send(%q) = %q, want empty id", text, id)
		}
	}
	if store.Len() != 0 {
		t.Errorf("store len = %d after empty sends, want 0", store.Len())
	}
	if sender.callCount() != 0 {
		t.Errorf("write issued for empty text")
	}
}

func TestSendAppendsPendingImmediately(t *testing.T) {
	store := NewStore()
	// A sender that never resolves within the assertion window.
	blocked := make(chan struct{})
	p := NewPipeline(store, senderFunc(func(ctx context.Context, content, groupID string) (*api.SendResult, error) {
		<-blocked
		return &api.SendResult{ID: "srv-1"}, nil
	}))
	defer close(blocked)

	id := p.Send(context.Background(), "hello", "global", "ana")
	m, ok := store.Get(id)
	if !ok || m.Lifecycle != Pending {
		t.Fatalf("entry not pending right after Send: %+v", m)
	}
	if m.Content != "hello" || m.ChannelID != "global" || m.SenderName != "ana" {
		t.Errorf("entry = %+v", m)
	}
}

type senderFunc func(ctx context.Context, content, groupID string) (*api.SendResult, error)

func (f senderFunc) SendMessage(ctx context.Context, content, groupID string) (*api.SendResult, error) {
	return f(ctx, content, groupID)
}

func TestSendSuccessConfirms(t *testing.T) {
	store := NewStore()
	p := NewPipeline(store, &fakeSender{})

	id := p.Send(context.Background(), "hello", "global", "ana")
	m := settled(t, store, id, Confirmed)
	if m.ID != "srv-1" {
		t.Errorf("ID = %q, want srv-1", m.ID)
	}
}

func TestSendFailureMarksFailed(t *testing.T) {
	store := NewStore()
	sender := &fakeSender{fail: true}
	p := NewPipeline(store, sender)

	failures := make(chan string, 1)
	p.OnFailure = func(localID string, err error) { failures <- localID }

	id := p.Send(context.Background(), "hello", "global", "ana")
	settled(t, store, id, Failed)

	select {
	case got := <-failures:
		if got != id {
			t.Errorf("OnFailure id = %q, want %q", got, id)
		}
	case <-time.After(2 * time.Second):
		t.Error("OnFailure not called")
	}
}

func TestRetryReusesIDAndContent(t *testing.T) {
	store := NewStore()
	sender := &fakeSender{fail: true}
	p := NewPipeline(store, sender)

	id := p.Send(context.Background(), "hello", "global", "ana")
	settled(t, store, id, Failed)

	sender.mu.Lock()
	sender.fail = false
	sender.mu.Unlock()

	if !p.Retry(context.Background(), id) {
		t.Fatal("Retry returned false for a failed entry")
	}
	m := settled(t, store, id, Confirmed)
	if m.LocalID != id {
		t.Errorf("LocalID = %q, want original provisional id %q", m.LocalID, id)
	}

	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.calls) != 2 || sender.calls[0] != "hello" || sender.calls[1] != "hello" {
		t.Errorf("calls = %v, want two writes of the same content", sender.calls)
	}
}

func TestRetryIgnoresNonFailed(t *testing.T) {
	store := NewStore()
	p := NewPipeline(store, &fakeSender{})

	id := p.Send(context.Background(), "hello", "global", "ana")
	settled(t, store, id, Confirmed)

	if p.Retry(context.Background(), id) {
		t.Error("Retry succeeded on a confirmed entry")
	}
	if p.Retry(context.Background(), "local-missing") {
		t.Error("Retry succeeded on an unknown id")
	}
}
