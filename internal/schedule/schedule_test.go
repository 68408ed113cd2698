package schedule

import (
	"testing"
	"time"

	"github.com/nudge-sh/nudge/internal/classify"
	"github.com/nudge-sh/nudge/internal/parse"
	"github.com/nudge-sh/nudge/internal/state"
)

func newTestScheduler() *Scheduler {
	return New(classify.Default(), DefaultGlobalGap, DefaultTaskCooldown)
}

func task(id, category string) parse.TaskItem {
	return parse.TaskItem{ID: id, Text: "task " + id, Category: category}
}

// at returns a fixed afternoon instant; hour overrides the local hour.
func at(hour int) time.Time {
	return time.Date(2026, 3, 4, hour, 0, 0, 0, time.UTC)
}

func TestTick_GlobalGateBlocksEverything(t *testing.T) {
	s := newTestScheduler()
	st := state.New()
	tasks := []parse.TaskItem{task("a", classify.Shopping)}

	now := at(14)
	st.MarkGlobal(now.Add(-20 * time.Minute))

	if _, ok := s.Tick(now, tasks, st); ok {
		t.Error("fired inside the global gap")
	}

	st2 := state.New()
	st2.MarkGlobal(now.Add(-50 * time.Minute))
	if _, ok := s.Tick(now, tasks, st2); !ok {
		t.Error("did not fire after the global gap elapsed")
	}
}

func TestTick_PerTaskCooldown(t *testing.T) {
	s := newTestScheduler()
	tasks := []parse.TaskItem{task("a", classify.Shopping)}
	now := at(14)

	st := state.New()
	st.MarkFired("a", now.Add(-3*time.Hour))
	if _, ok := s.Tick(now, tasks, st); ok {
		t.Error("fired with 3h elapsed of a 4h cooldown")
	}

	st = state.New()
	st.MarkFired("a", now.Add(-5*time.Hour))
	got, ok := s.Tick(now, tasks, st)
	if !ok {
		t.Fatal("did not fire with 5h elapsed of a 4h cooldown")
	}
	if got.ID != "a" {
		t.Errorf("fired %q, want a", got.ID)
	}
}

func TestTick_ActiveHours(t *testing.T) {
	s := newTestScheduler()
	st := state.New()

	// business_hours is 9-17, focus_project is 18-23.
	tasks := []parse.TaskItem{
		task("biz", classify.BusinessHours),
		task("focus", classify.FocusProject),
	}

	got, ok := s.Tick(at(14), tasks, st)
	if !ok || got.ID != "biz" {
		t.Errorf("at 14:00 got (%q, %v), want biz", got.ID, ok)
	}

	got, ok = s.Tick(at(20), tasks, st)
	if !ok || got.ID != "focus" {
		t.Errorf("at 20:00 got (%q, %v), want focus", got.ID, ok)
	}

	onlyBiz := []parse.TaskItem{task("biz", classify.BusinessHours)}
	if _, ok := s.Tick(at(20), onlyBiz, st); ok {
		t.Error("business_hours task fired at 20:00")
	}
}

func TestTick_FairnessPrefersNeverReminded(t *testing.T) {
	s := newTestScheduler()
	st := state.New()
	st.MarkFired("old", at(14).Add(-24*time.Hour))

	tasks := []parse.TaskItem{
		task("old", classify.Shopping),
		task("fresh", classify.Shopping),
	}

	got, ok := s.Tick(at(14), tasks, st)
	if !ok || got.ID != "fresh" {
		t.Errorf("got (%q, %v), want fresh", got.ID, ok)
	}
}

func TestTick_FairnessPrefersLeastRecent(t *testing.T) {
	s := newTestScheduler()
	st := state.New()
	now := at(14)
	st.MarkFired("recent", now.Add(-5*time.Hour))
	st.MarkFired("stale", now.Add(-48*time.Hour))

	tasks := []parse.TaskItem{
		task("recent", classify.Shopping),
		task("stale", classify.Shopping),
	}

	got, ok := s.Tick(now, tasks, st)
	if !ok || got.ID != "stale" {
		t.Errorf("got (%q, %v), want stale", got.ID, ok)
	}
}

func TestTick_FairnessTieBreaksByID(t *testing.T) {
	s := newTestScheduler()
	st := state.New()

	tasks := []parse.TaskItem{
		task("b", classify.Shopping),
		task("a", classify.Shopping),
	}

	got, ok := s.Tick(at(14), tasks, st)
	if !ok || got.ID != "a" {
		t.Errorf("got (%q, %v), want a", got.ID, ok)
	}
}

func TestTick_DoesNotMutateState(t *testing.T) {
	s := newTestScheduler()
	st := state.New()
	tasks := []parse.TaskItem{task("a", classify.Shopping)}

	if _, ok := s.Tick(at(14), tasks, st); !ok {
		t.Fatal("expected a pick")
	}
	if st.LastGlobalReminderAt != nil || len(st.PerTask) != 0 {
		t.Error("Tick mutated state")
	}
}

func TestRecordFire(t *testing.T) {
	s := newTestScheduler()
	st := state.New()
	now := at(14)

	s.RecordFire(now, "a", st)

	ts, ok := st.PerTask["a"]
	if !ok || !ts.LastRemindedAt.Equal(now) || ts.FireCount != 1 {
		t.Errorf("per-task state = %+v, %v", ts, ok)
	}
	if st.LastGlobalReminderAt == nil || !st.LastGlobalReminderAt.Equal(now) {
		t.Errorf("global timestamp = %v", st.LastGlobalReminderAt)
	}

	s.RecordFire(now.Add(time.Hour), "a", st)
	if st.PerTask["a"].FireCount != 2 {
		t.Errorf("fire count = %d, want 2", st.PerTask["a"].FireCount)
	}
}

func TestPickManual_BypassesGatesButNotHours(t *testing.T) {
	s := newTestScheduler()
	st := state.New()
	now := at(14)

	// Both the global gap and the cooldown are armed.
	st.MarkGlobal(now.Add(-time.Minute))
	st.MarkFired("a", now.Add(-time.Minute))

	tasks := []parse.TaskItem{task("a", classify.Shopping)}
	if _, ok := s.PickManual(now, tasks, st, false); !ok {
		t.Error("manual pick blocked by gap or cooldown")
	}

	night := []parse.TaskItem{task("biz", classify.BusinessHours)}
	if _, ok := s.PickManual(at(20), night, st, false); ok {
		t.Error("manual pick ignored active hours without force")
	}
	if _, ok := s.PickManual(at(20), night, st, true); !ok {
		t.Error("forced manual pick still honored active hours")
	}
}

func TestRecordManualFire_GlobalOptional(t *testing.T) {
	s := newTestScheduler()
	now := at(14)

	st := state.New()
	s.RecordManualFire(now, "a", st, false)
	if st.LastGlobalReminderAt != nil {
		t.Error("manual fire armed the global gap despite countsGlobal=false")
	}
	if st.PerTask["a"].FireCount != 1 {
		t.Error("manual fire did not record per-task state")
	}

	st = state.New()
	s.RecordManualFire(now, "a", st, true)
	if st.LastGlobalReminderAt == nil {
		t.Error("manual fire did not arm the global gap with countsGlobal=true")
	}
}

func TestMarkGlobal_Monotonic(t *testing.T) {
	st := state.New()
	now := at(14)

	st.MarkGlobal(now)
	st.MarkGlobal(now.Add(-time.Hour))

	if !st.LastGlobalReminderAt.Equal(now) {
		t.Errorf("global timestamp moved backwards to %v", st.LastGlobalReminderAt)
	}
}

func TestTick_EmptyTaskSet(t *testing.T) {
	s := newTestScheduler()
	if _, ok := s.Tick(at(14), nil, state.New()); ok {
		t.Error("fired with no tasks")
	}
}
