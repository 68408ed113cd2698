package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nudge-sh/nudge/internal/classify"
	"github.com/nudge-sh/nudge/internal/notes"
	"github.com/nudge-sh/nudge/internal/notify"
	"github.com/nudge-sh/nudge/internal/parse"
	"github.com/nudge-sh/nudge/internal/schedule"
	"github.com/nudge-sh/nudge/internal/state"
)

// ErrNoEligibleTasks is returned by TriggerNow when no task passes the
// selection filters.
var ErrNoEligibleTasks = errors.New("no eligible tasks")

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Options tune the coordinator's timing and trigger policy.
type Options struct {
	// Folder is the note folder reminders are drawn from.
	Folder string
	// CheckInterval is how often the tick loop wakes up. The global
	// gate bounds observable fires regardless of this cadence.
	CheckInterval time.Duration
	// RefreshInterval is how often notes are re-read from the store.
	RefreshInterval time.Duration
	// ManualCountsGlobal controls whether a manual trigger arms the
	// global gate for subsequent automatic reminders.
	ManualCountsGlobal bool
	// Clock overrides the wall clock in tests.
	Clock Clock
}

// Coordinator owns the in-memory task set and the reminder state. All
// read-then-write paths (timer tick, manual trigger, refresh swap-in) are
// serialized through one mutex; only the note store read happens outside
// it.
type Coordinator struct {
	source     notes.Source
	classifier *classify.Classifier
	scheduler  *schedule.Scheduler
	store      *state.Store
	notifier   notify.Notifier
	clock      Clock
	opts       Options
	logger     *slog.Logger

	refreshes singleflight.Group

	mu          sync.Mutex
	tasks       []parse.TaskItem
	st          *state.ReminderState
	degraded    bool
	lastRefresh time.Time
}

// New assembles a Coordinator and loads the persisted reminder state.
// A corrupt state file is replaced by an empty one: cooldown history is
// lost, startup is not.
func New(source notes.Source, classifier *classify.Classifier, scheduler *schedule.Scheduler, store *state.Store, notifier notify.Notifier, opts Options) *Coordinator {
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = time.Minute
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = 10 * time.Minute
	}
	clock := opts.Clock
	if clock == nil {
		clock = realClock{}
	}

	st, err := store.Load()
	if err != nil {
		slog.Warn("reminder state unreadable, starting with empty state", "path", store.Path(), "error", err)
		st = state.New()
	}

	return &Coordinator{
		source:     source,
		classifier: classifier,
		scheduler:  scheduler,
		store:      store,
		notifier:   notifier,
		clock:      clock,
		opts:       opts,
		logger:     slog.Default(),
		st:         st,
	}
}

// Refresh re-reads the note folder and swaps in the resulting task set.
// On store failure the previous task set is kept and the coordinator is
// marked degraded. Concurrent refreshes are collapsed into one read.
func (c *Coordinator) Refresh(ctx context.Context) (int, error) {
	v, err, _ := c.refreshes.Do("refresh", func() (any, error) {
		raw, err := c.source.ReadFolder(ctx, c.opts.Folder)
		if err != nil {
			c.mu.Lock()
			c.degraded = true
			c.mu.Unlock()
			return 0, err
		}

		var tasks []parse.TaskItem
		for _, n := range raw {
			for _, item := range parse.Parse(n) {
				item.Category = c.classifier.Classify(item.Text, item.SectionHeader)
				tasks = append(tasks, item)
			}
		}

		c.mu.Lock()
		c.tasks = tasks
		c.degraded = false
		c.lastRefresh = c.clock.Now()
		c.mu.Unlock()
		return len(tasks), nil
	})
	n, _ := v.(int)
	return n, err
}

// Run drives the periodic check loop until ctx is cancelled: an initial
// refresh, then one step per check interval.
func (c *Coordinator) Run(ctx context.Context) error {
	if _, err := c.Refresh(ctx); err != nil {
		c.logger.Warn("initial refresh failed", "error", err)
	}

	ticker := time.NewTicker(c.opts.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.Step(ctx)
		}
	}
}

// Step performs one scheduling cycle: refresh the task set when due,
// then fire at most one reminder.
func (c *Coordinator) Step(ctx context.Context) {
	now := c.clock.Now()

	c.mu.Lock()
	refreshDue := now.Sub(c.lastRefresh) >= c.opts.RefreshInterval
	c.mu.Unlock()
	if refreshDue {
		if _, err := c.Refresh(ctx); err != nil {
			c.logger.Warn("refresh failed, keeping previous task set", "error", err)
		}
	}

	c.mu.Lock()
	task, ok := c.scheduler.Tick(now, c.tasks, c.st)
	if !ok {
		c.mu.Unlock()
		return
	}
	c.scheduler.RecordFire(now, task.ID, c.st)
	// Persist before delivering: a crash after this point must not
	// double-fire on restart.
	saveErr := c.store.Save(c.st)
	c.mu.Unlock()

	if saveErr != nil {
		c.logger.Error("persisting reminder state", "error", saveErr)
	}
	c.deliver(ctx, task)
}

// TriggerNow fires a reminder immediately, bypassing the global gate and
// per-task cooldown. The active-hours filter still applies unless force
// is set. The fire is recorded like any other so history stays
// consistent.
func (c *Coordinator) TriggerNow(ctx context.Context, force bool) (parse.TaskItem, error) {
	now := c.clock.Now()

	c.mu.Lock()
	task, ok := c.scheduler.PickManual(now, c.tasks, c.st, force)
	if !ok {
		c.mu.Unlock()
		return parse.TaskItem{}, ErrNoEligibleTasks
	}
	c.scheduler.RecordManualFire(now, task.ID, c.st, c.opts.ManualCountsGlobal)
	saveErr := c.store.Save(c.st)
	c.mu.Unlock()

	if saveErr != nil {
		c.logger.Error("persisting reminder state", "error", saveErr)
	}
	c.deliver(ctx, task)
	return task, nil
}

// TestNotification delivers a throwaway notification to verify the
// delivery path without touching any state.
func (c *Coordinator) TestNotification(ctx context.Context) error {
	return c.notifier.Deliver(ctx, "Task Reminder", "Test notification — reminders are working")
}

func (c *Coordinator) deliver(ctx context.Context, task parse.TaskItem) {
	title, body := notify.Compose(task)
	if err := c.notifier.Deliver(ctx, title, body); err != nil {
		// State is already committed; delivery is not retried within
		// this cycle.
		c.logger.Warn("notification delivery failed", "task", task.ID, "error", err)
	}
}

// Status is a snapshot of the coordinator for the control surface.
type Status struct {
	TaskCount      int        `json:"task_count"`
	Degraded       bool       `json:"degraded"`
	LastRefresh    *time.Time `json:"last_refresh,omitempty"`
	LastReminderAt *time.Time `json:"last_reminder_at,omitempty"`
}

// Status reports the current task count, store health and reminder
// recency.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Status{
		TaskCount: len(c.tasks),
		Degraded:  c.degraded,
	}
	if !c.lastRefresh.IsZero() {
		t := c.lastRefresh
		s.LastRefresh = &t
	}
	if c.st.LastGlobalReminderAt != nil {
		t := *c.st.LastGlobalReminderAt
		s.LastReminderAt = &t
	}
	return s
}

// TaskView is a task with its reminder history attached.
type TaskView struct {
	parse.TaskItem
	FireCount      int        `json:"fire_count"`
	LastRemindedAt *time.Time `json:"last_reminded_at,omitempty"`
}

// Tasks returns a copy of the current task set with reminder history.
func (c *Coordinator) Tasks() []TaskView {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]TaskView, 0, len(c.tasks))
	for _, t := range c.tasks {
		v := TaskView{TaskItem: t}
		if ts, ok := c.st.PerTask[t.ID]; ok {
			v.FireCount = ts.FireCount
			last := ts.LastRemindedAt
			v.LastRemindedAt = &last
		}
		out = append(out, v)
	}
	return out
}
