package progress

import (
	"testing"

	"github.com/Damdev80/chat-for-company-sub002/internal/api"
)

func TestComputeTaskProgressEmpty(t *testing.T) {
	p := ComputeTaskProgress(nil)
	if p.Total != 0 || p.Completed != 0 || p.Percentage != 0 {
		t.Errorf("empty tasks: got %+v, want all zero", p)
	}
}

func TestComputeTaskProgressBounds(t *testing.T) {
	cases := []struct {
		name     string
		statuses []string
		want     int
	}{
		{"none done", []string{"pending", "in_review", "returned"}, 0},
		{"all done", []string{"completed", "completed"}, 100},
		{"half", []string{"pending", "completed"}, 50},
		{"third rounds up", []string{"pending", "completed", "completed"}, 67},
		{"third rounds down", []string{"completed", "pending", "pending"}, 33},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var tasks []api.Task
			for _, s := range tc.statuses {
				tasks = append(tasks, api.Task{Status: s})
			}
			p := ComputeTaskProgress(tasks)
			if p.Percentage != tc.want {
				t.Errorf("percentage = %d, want %d", p.Percentage, tc.want)
			}
			if p.Percentage < 0 || p.Percentage > 100 {
				t.Errorf("percentage %d out of [0,100]", p.Percentage)
			}
		})
	}
}

func TestDoneSynonyms(t *testing.T) {
	for _, s := range []string{"completed", "completada", "complete", "finalizada", "Completed", " COMPLETE "} {
		if !IsDone(s) {
			t.Errorf("IsDone(%q) = false, want true", s)
		}
	}
	for _, s := range []string{"pending", "in_review", "returned", "done", "finished", ""} {
		if IsDone(s) {
			t.Errorf("IsDone(%q) = true, want false", s)
		}
	}
}

func TestComputeTaskProgressPure(t *testing.T) {
	tasks := []api.Task{{Status: "completed"}, {Status: "pending"}, {Status: "finalizada"}}
	a := ComputeTaskProgress(tasks)
	b := ComputeTaskProgress(tasks)
	if a != b {
		t.Errorf("same input yielded %+v then %+v", a, b)
	}
}

func TestComputeGroupProgress(t *testing.T) {
	if got := ComputeGroupProgress(nil); got != 0 {
		t.Errorf("no objectives: got %d, want 0", got)
	}

	allDone := []api.Objective{
		{Tasks: []api.Task{{Status: "completed"}}},
		{Tasks: []api.Task{{Status: "completada"}, {Status: "complete"}}},
	}
	if got := ComputeGroupProgress(allDone); got != 100 {
		t.Errorf("all done: got %d, want 100", got)
	}

	// Objective without tasks contributes 0.
	mixed := []api.Objective{
		{Tasks: []api.Task{{Status: "completed"}}},
		{},
	}
	if got := ComputeGroupProgress(mixed); got != 50 {
		t.Errorf("mixed: got %d, want 50", got)
	}
}

func TestGroupProgressScenario(t *testing.T) {
	objs := []api.Objective{
		{Tasks: []api.Task{{Status: "pending"}, {Status: "completed"}}},
	}
	if got := ComputeGroupProgress(objs); got != 50 {
		t.Errorf("initial: got %d, want 50", got)
	}

	objs[0].Tasks = append(objs[0].Tasks, api.Task{Status: "completed"})
	if got := ComputeGroupProgress(objs); got != 67 {
		t.Errorf("after extra completed task: got %d, want 67", got)
	}
}

func TestBuildSnapshotClassification(t *testing.T) {
	objs := []api.Objective{
		{ID: "a", Tasks: []api.Task{{Status: "completed"}}},
		{ID: "b", Tasks: []api.Task{{Status: "pending"}}},
	}
	snap := BuildSnapshot("g1", objs)
	if len(snap.Active) != 1 || snap.Active[0].Objective.ID != "b" {
		t.Errorf("active = %+v, want objective b", snap.Active)
	}
	if len(snap.Completed) != 1 || snap.Completed[0].Objective.ID != "a" {
		t.Errorf("completed = %+v, want objective a", snap.Completed)
	}
	if snap.AllComplete {
		t.Error("AllComplete = true with an active objective")
	}
}

func TestBuildSnapshotBanner(t *testing.T) {
	if BuildSnapshot("g", nil).AllComplete {
		t.Error("AllComplete = true with no objectives")
	}
	objs := []api.Objective{{Tasks: []api.Task{{Status: "completed"}}}}
	if !BuildSnapshot("g", objs).AllComplete {
		t.Error("AllComplete = false with every objective at 100%")
	}
}
