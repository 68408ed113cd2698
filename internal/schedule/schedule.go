package schedule

import (
	"sort"
	"time"

	"github.com/nudge-sh/nudge/internal/classify"
	"github.com/nudge-sh/nudge/internal/parse"
	"github.com/nudge-sh/nudge/internal/state"
)

const (
	// DefaultGlobalGap is the minimum spacing between any two fired
	// reminders, regardless of task.
	DefaultGlobalGap = 45 * time.Minute
	// DefaultTaskCooldown is the minimum elapsed time before the same
	// task may be selected again.
	DefaultTaskCooldown = 4 * time.Hour
)

// Windows looks up the active-hours window for a category.
// Implemented by classify.Classifier.
type Windows interface {
	Window(category string) classify.Window
}

// Scheduler decides, for a given instant, whether a reminder should fire
// and for which task. All timing decisions are computed from the passed-in
// time, never from the wall clock, so the scheduler is testable with a
// synthetic clock.
type Scheduler struct {
	globalGap    time.Duration
	taskCooldown time.Duration
	windows      Windows
}

// New creates a Scheduler. Non-positive durations fall back to the
// defaults.
func New(windows Windows, globalGap, taskCooldown time.Duration) *Scheduler {
	if globalGap <= 0 {
		globalGap = DefaultGlobalGap
	}
	if taskCooldown <= 0 {
		taskCooldown = DefaultTaskCooldown
	}
	return &Scheduler{
		globalGap:    globalGap,
		taskCooldown: taskCooldown,
		windows:      windows,
	}
}

// Tick returns the task a reminder should fire for at now, if any. It
// never mutates st. The filters apply in order: global gate, per-task
// cooldown, active hours, fairness.
func (s *Scheduler) Tick(now time.Time, tasks []parse.TaskItem, st *state.ReminderState) (parse.TaskItem, bool) {
	if st.LastGlobalReminderAt != nil && now.Sub(*st.LastGlobalReminderAt) < s.globalGap {
		return parse.TaskItem{}, false
	}
	return s.pick(now, tasks, st, true, true)
}

// PickManual selects a task for a manually triggered reminder. The
// global gate and per-task cooldown are bypassed; the active-hours filter
// still applies unless force is set.
func (s *Scheduler) PickManual(now time.Time, tasks []parse.TaskItem, st *state.ReminderState, force bool) (parse.TaskItem, bool) {
	return s.pick(now, tasks, st, false, !force)
}

func (s *Scheduler) pick(now time.Time, tasks []parse.TaskItem, st *state.ReminderState, applyCooldown, applyHours bool) (parse.TaskItem, bool) {
	hour := now.Hour()

	var eligible []parse.TaskItem
	for _, t := range tasks {
		if applyCooldown {
			if ts, ok := st.PerTask[t.ID]; ok && now.Sub(ts.LastRemindedAt) < s.taskCooldown {
				continue
			}
		}
		if applyHours && !s.windows.Window(t.Category).Contains(hour) {
			continue
		}
		eligible = append(eligible, t)
	}
	if len(eligible) == 0 {
		return parse.TaskItem{}, false
	}

	// Fairness: tasks never reminded come first, then the least
	// recently reminded; ties break by ascending task id.
	sort.Slice(eligible, func(i, j int) bool {
		ti, iok := st.PerTask[eligible[i].ID]
		tj, jok := st.PerTask[eligible[j].ID]
		if iok != jok {
			return !iok
		}
		if iok && !ti.LastRemindedAt.Equal(tj.LastRemindedAt) {
			return ti.LastRemindedAt.Before(tj.LastRemindedAt)
		}
		return eligible[i].ID < eligible[j].ID
	})
	return eligible[0], true
}

// RecordFire marks a fired reminder in st. This is the only mutation
// path into the reminder state; the caller persists st before treating
// the fire as done.
func (s *Scheduler) RecordFire(now time.Time, taskID string, st *state.ReminderState) {
	st.MarkFired(taskID, now)
	st.MarkGlobal(now)
}

// RecordManualFire records a manually triggered reminder. countsGlobal
// controls whether the fire also arms the global gate for subsequent
// automatic reminders.
func (s *Scheduler) RecordManualFire(now time.Time, taskID string, st *state.ReminderState, countsGlobal bool) {
	st.MarkFired(taskID, now)
	if countsGlobal {
		st.MarkGlobal(now)
	}
}
