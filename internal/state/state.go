package state

import (
	"time"
)

// TaskState is one task's reminder history.
type TaskState struct {
	LastRemindedAt time.Time `json:"last_reminded_at"`
	FireCount      int       `json:"fire_count"`
}

// ReminderState is the durable reminder history. The coordinator is the
// sole writer; external tools may inspect the file.
//
// Entries in PerTask for task ids no longer present in the current task
// set are retained, so cooldown history survives note edits that reorder
// items.
type ReminderState struct {
	LastGlobalReminderAt *time.Time           `json:"last_global_reminder_at,omitempty"`
	PerTask              map[string]TaskState `json:"per_task"`
}

// New returns an empty reminder state.
func New() *ReminderState {
	return &ReminderState{PerTask: make(map[string]TaskState)}
}

// MarkFired records a fired reminder for taskID at now.
func (st *ReminderState) MarkFired(taskID string, now time.Time) {
	ts := st.PerTask[taskID]
	ts.LastRemindedAt = now
	ts.FireCount++
	st.PerTask[taskID] = ts
}

// MarkGlobal advances the global reminder timestamp. It never moves
// backwards.
func (st *ReminderState) MarkGlobal(now time.Time) {
	if st.LastGlobalReminderAt == nil || now.After(*st.LastGlobalReminderAt) {
		t := now
		st.LastGlobalReminderAt = &t
	}
}
