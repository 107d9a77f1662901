package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Damdev80/chat-for-company-sub002/internal/api"
	"github.com/Damdev80/chat-for-company-sub002/internal/chat"
	"github.com/Damdev80/chat-for-company-sub002/internal/history"
	"github.com/Damdev80/chat-for-company-sub002/internal/notify"
	"github.com/Damdev80/chat-for-company-sub002/internal/progress"
	"github.com/Damdev80/chat-for-company-sub002/internal/session"
	"github.com/Damdev80/chat-for-company-sub002/internal/typing"
	"github.com/Damdev80/chat-for-company-sub002/internal/ws"
)

// UpdateKind tells the UI which slice of engine state changed.
type UpdateKind int

const (
	UpdateMessages UpdateKind = iota
	UpdateProgress
	UpdateTyping
	UpdateNotification
	UpdateGroups
	UpdateConnState
)

// Update is a wake-up, not a payload: the UI re-reads the relevant state
// from the engine. Updates may be coalesced under load.
type Update struct {
	Kind UpdateKind
}

// Engine composes the realtime core: session, REST client, event
// channel, message store, send pipeline, progress tracker, typing
// tracker and notification router. All inbound events pass the
// active-channel guard before touching any state.
type Engine struct {
	sess     *session.Session
	api      *api.Client
	wsClient *ws.Client
	store    *chat.Store
	pipeline *chat.Pipeline
	progress *progress.Tracker
	typing   *typing.Tracker
	notifier *notify.Router
	hist     *history.Store // optional

	// typing emission is fire-and-forget but rate-limited so a fast
	// typist does not flood the socket. Display debounce stays on the
	// receiving side.
	typingLimit *rate.Limiter

	updates chan Update

	mu        sync.RWMutex
	groups    []api.Group
	connState string
}

// Options carries the engine's collaborators. Hist and Pusher may be nil.
type Options struct {
	Session *session.Session
	API     *api.Client
	WSURL   string
	Hist    *history.Store
	Pusher  notify.Pusher
}

func New(opts Options) *Engine {
	e := &Engine{
		sess:        opts.Session,
		api:         opts.API,
		store:       chat.NewStore(),
		typing:      typing.NewTracker(typing.DefaultExpiry),
		notifier:    notify.NewRouter(notify.DefaultTTL),
		hist:        opts.Hist,
		typingLimit: rate.NewLimiter(rate.Every(400*time.Millisecond), 2),
		updates:     make(chan Update, 64),
		connState:   "connecting",
	}

	e.pipeline = chat.NewPipeline(e.store, opts.API)
	e.pipeline.OnUpdate = func() { e.push(UpdateMessages) }
	e.pipeline.OnFailure = func(localID string, err error) {
		e.notifier.Notify("Message failed", err.Error())
	}

	e.progress = progress.NewTracker(opts.API, opts.Session)
	e.progress.OnUpdate = func(progress.Snapshot) { e.push(UpdateProgress) }

	e.typing.OnChange = func(bool, string) { e.push(UpdateTyping) }
	e.notifier.OnChange = func(*notify.Notification) { e.push(UpdateNotification) }
	if opts.Pusher != nil {
		e.notifier.SetPusher(opts.Pusher)
	}

	e.wsClient = &ws.Client{
		URL:   opts.WSURL,
		Token: opts.Session.Token(),
	}
	e.wsClient.OnStateChange = func(state string, err error) {
		e.mu.Lock()
		e.connState = state
		e.mu.Unlock()
		e.push(UpdateConnState)
	}
	e.wsClient.OnReconnect = e.refetchAll
	e.registerHandlers()

	return e
}

func (e *Engine) registerHandlers() {
	e.wsClient.On(ws.TypeMessage, e.handleMessage)
	e.wsClient.On(ws.TypeUserTyping, e.handleUserTyping)
	e.wsClient.On(ws.TypeTaskCompleted, e.handleTaskCompleted)
	e.wsClient.On(ws.TypeObjectiveCreated, e.handleObjectiveCreated)
	e.wsClient.On(ws.TypeObjectiveCompleted, e.handleObjectiveCompleted)
	e.wsClient.On(ws.TypeProgressUpdate, e.handleProgressUpdate)
}

// Run primes local state from the cache, then connects the event channel
// and blocks until ctx is cancelled or authentication is rejected.
func (e *Engine) Run(ctx context.Context) error {
	if e.hist != nil {
		if ch, err := e.hist.SelectedChannel(); err == nil && ch != "" {
			e.sess.SetActiveChannel(ch)
		}
		if cached, err := e.hist.CachedMessages(e.sess.ActiveChannel()); err == nil && len(cached) > 0 {
			e.store.MergeConfirmed(cached)
			e.push(UpdateMessages)
		}
	}
	return e.wsClient.Run(ctx)
}

// Updates is the UI's wake-up feed.
func (e *Engine) Updates() <-chan Update {
	return e.updates
}

func (e *Engine) push(kind UpdateKind) {
	select {
	case e.updates <- Update{Kind: kind}:
	default:
		// UI is behind; it re-reads full state on the next wake-up anyway.
	}
}

// --- inbound event handlers (read-loop order, active-channel guard first) ---

func (e *Engine) handleMessage(data []byte) {
	ev, err := ws.Decode[ws.MessageEvent](data)
	if err != nil {
		slog.Debug("bad message event", "err", err)
		return
	}
	if !e.sess.IsActive(ev.GroupID) {
		return
	}
	created := chat.ParseServerTime(ev.CreatedAt)
	if created.IsZero() {
		created = time.Now()
	}
	e.store.ApplyBroadcast(chat.Message{
		ID:          ev.ID,
		Content:     ev.Content,
		ChannelID:   ev.GroupID,
		SenderName:  ev.SenderName,
		CreatedAt:   created,
		Attachments: ev.Attachments,
	})
	e.cacheActiveChannel()
	e.push(UpdateMessages)
}

func (e *Engine) handleUserTyping(data []byte) {
	ev, err := ws.Decode[ws.UserTypingEvent](data)
	if err != nil {
		return
	}
	if ev.Username == e.sess.Username() || !e.sess.IsActive(ev.GroupID) {
		return
	}
	e.typing.Touch(ev.Username)
}

func (e *Engine) handleTaskCompleted(data []byte) {
	ev, err := ws.Decode[ws.TaskCompletedEvent](data)
	if err != nil {
		return
	}
	if !e.sess.IsActive(ev.GroupID) {
		return
	}
	e.notifier.Notify("Task completed", fmt.Sprintf("%s (%s)", ev.Title, ev.CompletedBy))
	e.progress.Refresh(context.Background(), ev.GroupID)
}

func (e *Engine) handleObjectiveCreated(data []byte) {
	ev, err := ws.Decode[ws.ObjectiveEvent](data)
	if err != nil {
		return
	}
	if !e.sess.IsActive(ev.GroupID) {
		return
	}
	e.notifier.Notify("New objective", ev.Title)
	e.progress.Refresh(context.Background(), ev.GroupID)
}

func (e *Engine) handleObjectiveCompleted(data []byte) {
	ev, err := ws.Decode[ws.ObjectiveEvent](data)
	if err != nil {
		return
	}
	if !e.sess.IsActive(ev.GroupID) {
		return
	}
	e.notifier.Notify("Objective completed", ev.Title)
	e.progress.Refresh(context.Background(), ev.GroupID)
}

func (e *Engine) handleProgressUpdate(data []byte) {
	ev, err := ws.Decode[ws.ProgressUpdateEvent](data)
	if err != nil {
		return
	}
	if !e.sess.IsActive(ev.GroupID) {
		return
	}
	e.progress.Refresh(context.Background(), ev.GroupID)
}

// --- refetch paths ---

// refetchAll runs after every (re)connect: events dropped during the
// disconnect window are unrecoverable, so every aggregate is reloaded
// from the source of truth.
func (e *Engine) refetchAll(ctx context.Context) {
	e.RefreshGroups(ctx)
	e.refetchMessages(ctx)
	e.progress.Refresh(ctx, e.sess.ActiveChannel())
}

func (e *Engine) refetchMessages(ctx context.Context) {
	msgs, err := e.api.FetchMessages(ctx)
	if err != nil {
		slog.Warn("fetch messages failed", "err", err)
		return
	}
	all := make([]chat.Message, 0, len(msgs))
	for _, m := range msgs {
		created := chat.ParseServerTime(m.CreatedAt)
		if created.IsZero() {
			created = time.Now()
		}
		all = append(all, chat.Message{
			ID:          m.ID,
			Content:     m.Content,
			ChannelID:   m.GroupID,
			SenderName:  m.SenderName,
			CreatedAt:   created,
			Attachments: m.Attachments,
		})
	}
	e.store.ReplaceConfirmed(all)
	e.cacheActiveChannel()
	e.push(UpdateMessages)
}

// RefreshGroups reloads the channel list.
func (e *Engine) RefreshGroups(ctx context.Context) {
	groups, err := e.api.FetchGroups(ctx)
	if err != nil {
		slog.Warn("fetch groups failed", "err", err)
		return
	}
	e.mu.Lock()
	e.groups = groups
	e.mu.Unlock()
	e.push(UpdateGroups)
}

func (e *Engine) cacheActiveChannel() {
	if e.hist == nil {
		return
	}
	if err := e.hist.CacheMessages(e.store.ChannelMessages(e.sess.ActiveChannel())); err != nil {
		slog.Debug("message cache write failed", "err", err)
	}
}

// --- UI-facing operations ---

// Send pushes an outgoing message through the optimistic pipeline.
func (e *Engine) Send(ctx context.Context, text string) string {
	return e.pipeline.Send(ctx, text, e.sess.ActiveChannel(), e.sess.Username())
}

// RetrySend re-issues a failed send.
func (e *Engine) RetrySend(ctx context.Context, localID string) bool {
	return e.pipeline.Retry(ctx, localID)
}

// TypingInput reports a local keystroke. Rate-limited fire-and-forget;
// send errors while disconnected are ignored.
func (e *Engine) TypingInput(ctx context.Context) {
	if !e.typingLimit.Allow() {
		return
	}
	_ = e.wsClient.Emit(ctx, ws.TypingCommand{
		Type:     ws.TypeTyping,
		GroupID:  e.sess.ActiveChannel(),
		Username: e.sess.Username(),
	})
}

// SwitchChannel selects a new active channel, drops transient state tied
// to the old one and reloads messages and progress. In-flight results
// addressed to the old channel fail the session guard and are discarded.
func (e *Engine) SwitchChannel(ctx context.Context, channelID string) {
	if e.sess.IsActive(channelID) {
		return
	}
	e.sess.SetActiveChannel(channelID)
	e.typing.Clear()
	if e.hist != nil {
		if err := e.hist.SaveSelectedChannel(channelID); err != nil {
			slog.Debug("persist channel failed", "err", err)
		}
		if cached, err := e.hist.CachedMessages(channelID); err == nil && len(cached) > 0 {
			e.store.MergeConfirmed(cached)
		}
	}
	e.push(UpdateMessages)
	go e.refetchMessages(ctx)
	e.progress.Refresh(ctx, channelID)
}

// CreateGroup creates a channel and refreshes the list.
func (e *Engine) CreateGroup(ctx context.Context, name string) error {
	if _, err := e.api.CreateGroup(ctx, name); err != nil {
		e.notifier.Notify("Group error", err.Error())
		return err
	}
	e.RefreshGroups(ctx)
	return nil
}

// RenameGroup renames a channel and refreshes the list.
func (e *Engine) RenameGroup(ctx context.Context, id, name string) error {
	if err := e.api.UpdateGroup(ctx, id, name); err != nil {
		e.notifier.Notify("Group error", err.Error())
		return err
	}
	e.RefreshGroups(ctx)
	return nil
}

// DeleteGroup removes a channel. The global channel is not deletable.
func (e *Engine) DeleteGroup(ctx context.Context, id string) error {
	if id == session.GlobalChannel {
		return fmt.Errorf("the %s channel cannot be deleted", session.GlobalChannel)
	}
	if err := e.api.DeleteGroup(ctx, id); err != nil {
		e.notifier.Notify("Group error", err.Error())
		return err
	}
	if e.sess.IsActive(id) {
		e.SwitchChannel(ctx, session.GlobalChannel)
	}
	e.RefreshGroups(ctx)
	return nil
}

// SubmitTask sends a task to review and refreshes progress.
func (e *Engine) SubmitTask(ctx context.Context, taskID string) error {
	if err := e.api.SubmitTaskForReview(ctx, taskID); err != nil {
		e.notifier.Notify("Task error", err.Error())
		return err
	}
	e.progress.Refresh(ctx, e.sess.ActiveChannel())
	return nil
}

// --- state accessors for the UI ---

func (e *Engine) Session() *session.Session { return e.sess }

func (e *Engine) Messages() []chat.Message {
	return e.store.ChannelMessages(e.sess.ActiveChannel())
}

func (e *Engine) Progress() progress.Snapshot { return e.progress.Snapshot() }

func (e *Engine) Typing() (bool, string) { return e.typing.Typing() }

func (e *Engine) Notification() *notify.Notification { return e.notifier.Current() }

func (e *Engine) DismissNotification() { e.notifier.Dismiss() }

func (e *Engine) Groups() []api.Group {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]api.Group, len(e.groups))
	copy(out, e.groups)
	return out
}

func (e *Engine) ConnState() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.connState
}
