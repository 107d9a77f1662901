package progress

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Damdev80/chat-for-company-sub002/internal/api"
)

// Fetcher loads the authoritative objective set for a group.
type Fetcher interface {
	FetchObjectivesByGroup(ctx context.Context, groupID string) ([]api.Objective, error)
}

// ActiveChecker answers whether a channel is still the selected one when
// an in-flight fetch resolves.
type ActiveChecker interface {
	IsActive(channelID string) bool
}

// Tracker owns the derived progress view for the active channel. Every
// trigger is a full refetch-and-recompute; overlapping refreshes may
// race and the last one to complete wins. Results addressed to a channel
// that is no longer active are discarded.
type Tracker struct {
	fetcher Fetcher
	active  ActiveChecker

	// OnUpdate receives each newly applied snapshot. Optional.
	OnUpdate func(Snapshot)

	mu         sync.RWMutex
	snap       Snapshot
	issueGen   uint64
	appliedGen uint64
}

func NewTracker(fetcher Fetcher, active ActiveChecker) *Tracker {
	return &Tracker{fetcher: fetcher, active: active}
}

// Snapshot returns the last applied derived view.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap
}

// Refresh refetches and recomputes for channelID without blocking the
// caller. Fired on channel load and on task/objective lifecycle events.
func (t *Tracker) Refresh(ctx context.Context, channelID string) {
	go func() {
		if err := t.RefreshSync(ctx, channelID); err != nil {
			slog.Warn("progress refresh failed", "channel", channelID, "err", err)
		}
	}()
}

// RefreshSync is the synchronous refetch-and-recompute path.
// On fetch failure the previous snapshot stays in place, stale until the
// next trigger. Each refresh carries a generation taken at issue time;
// a result whose generation is older than the last applied one is
// discarded, so overlapping refreshes cannot regress the view.
func (t *Tracker) RefreshSync(ctx context.Context, channelID string) error {
	t.mu.Lock()
	t.issueGen++
	gen := t.issueGen
	t.mu.Unlock()

	objectives, err := t.fetcher.FetchObjectivesByGroup(ctx, channelID)
	if err != nil {
		return err
	}
	if !t.active.IsActive(channelID) {
		// Channel switched while the fetch was in flight.
		return nil
	}
	snap := BuildSnapshot(channelID, objectives)
	t.mu.Lock()
	if gen < t.appliedGen {
		t.mu.Unlock()
		return nil
	}
	t.appliedGen = gen
	t.snap = snap
	t.mu.Unlock()
	if t.OnUpdate != nil {
		t.OnUpdate(snap)
	}
	return nil
}
