package progress

import (
	"math"
	"strings"

	"github.com/Damdev80/chat-for-company-sub002/internal/api"
)

// Progress is derived completion state. It is recomputed from the task
// snapshot on every relevant change, never patched incrementally, so the
// displayed value cannot drift from authoritative task state.
type Progress struct {
	Total      int
	Completed  int
	Percentage int // [0,100]
}

// doneStatuses holds every spelling the backend has ever used for a
// finished task. Legacy and locale variants all count.
var doneStatuses = map[string]struct{}{
	"completed":  {},
	"completada": {},
	"complete":   {},
	"finalizada": {},
}

// IsDone reports whether a task status string means the task is finished.
func IsDone(status string) bool {
	_, ok := doneStatuses[strings.ToLower(strings.TrimSpace(status))]
	return ok
}

// ComputeTaskProgress derives completion for one objective's task list.
// An empty list yields zero percent, not a division by zero.
func ComputeTaskProgress(tasks []api.Task) Progress {
	p := Progress{Total: len(tasks)}
	for _, t := range tasks {
		if IsDone(t.Status) {
			p.Completed++
		}
	}
	if p.Total > 0 {
		p.Percentage = int(math.Round(100 * float64(p.Completed) / float64(p.Total)))
	}
	return p
}

// ComputeGroupProgress is the arithmetic mean of each objective's
// percentage, rounded to nearest. Objectives without tasks contribute 0;
// no objectives at all yields 0.
func ComputeGroupProgress(objectives []api.Objective) int {
	if len(objectives) == 0 {
		return 0
	}
	sum := 0
	for _, o := range objectives {
		sum += ComputeTaskProgress(o.Tasks).Percentage
	}
	return int(math.Round(float64(sum) / float64(len(objectives))))
}

// ObjectiveProgress pairs an objective with its derived completion.
type ObjectiveProgress struct {
	Objective api.Objective
	Progress  Progress
}

// Snapshot is the full derived view for one group.
type Snapshot struct {
	ChannelID    string
	Objectives   []ObjectiveProgress
	GroupPercent int

	Active    []ObjectiveProgress // percentage < 100
	Completed []ObjectiveProgress // percentage == 100

	// AllComplete fires the "all objectives completed" banner: the active
	// set is empty and at least one objective exists.
	AllComplete bool
}

// BuildSnapshot derives the whole group view from an objective set. Pure:
// identical input always yields an identical snapshot.
func BuildSnapshot(channelID string, objectives []api.Objective) Snapshot {
	snap := Snapshot{
		ChannelID:    channelID,
		GroupPercent: ComputeGroupProgress(objectives),
	}
	for _, o := range objectives {
		op := ObjectiveProgress{Objective: o, Progress: ComputeTaskProgress(o.Tasks)}
		snap.Objectives = append(snap.Objectives, op)
		if op.Progress.Percentage < 100 {
			snap.Active = append(snap.Active, op)
		} else {
			snap.Completed = append(snap.Completed, op)
		}
	}
	snap.AllComplete = len(snap.Objectives) > 0 && len(snap.Active) == 0
	return snap
}
