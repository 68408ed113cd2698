package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nudge-sh/nudge/internal/classify"
	"github.com/nudge-sh/nudge/internal/notes"
	"github.com/nudge-sh/nudge/internal/notify"
	"github.com/nudge-sh/nudge/internal/schedule"
	"github.com/nudge-sh/nudge/internal/state"
)

type fakeSource struct {
	mu    sync.Mutex
	notes []notes.RawNote
	err   error
	reads int
}

func (f *fakeSource) ReadFolder(ctx context.Context, folder string) ([]notes.RawNote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.err != nil {
		return nil, f.err
	}
	return f.notes, nil
}

func (f *fakeSource) set(ns []notes.RawNote, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes, f.err = ns, err
}

type delivery struct {
	title, body string
}

type fakeNotifier struct {
	mu         sync.Mutex
	deliveries []delivery
	err        error
}

func (f *fakeNotifier) Deliver(ctx context.Context, title, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deliveries = append(f.deliveries, delivery{title, body})
	return f.err
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deliveries)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var _ notify.Notifier = (*fakeNotifier)(nil)

// afternoon is inside every default category window except focus_project.
var afternoon = time.Date(2026, 3, 4, 14, 0, 0, 0, time.UTC)

type fixture struct {
	coord    *Coordinator
	source   *fakeSource
	notifier *fakeNotifier
	clock    *fakeClock
	store    *state.Store
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()

	source := &fakeSource{}
	notifier := &fakeNotifier{}
	clock := &fakeClock{now: afternoon}
	store := state.NewStore(filepath.Join(t.TempDir(), "state.json"))

	classifier := classify.Default()
	scheduler := schedule.New(classifier, schedule.DefaultGlobalGap, schedule.DefaultTaskCooldown)

	opts.Folder = "Tasks"
	opts.Clock = clock
	coord := New(source, classifier, scheduler, store, notifier, opts)

	return &fixture{
		coord:    coord,
		source:   source,
		notifier: notifier,
		clock:    clock,
		store:    store,
	}
}

func shoppingNote(items ...string) notes.RawNote {
	body := ""
	for _, it := range items {
		body += fmt.Sprintf("- [ ] buy %s\n", it)
	}
	return notes.RawNote{ID: "note-1", Title: "Shopping", BodyMarkup: body}
}

func TestRefresh_ClassifiesTasks(t *testing.T) {
	f := newFixture(t, Options{})
	f.source.set([]notes.RawNote{shoppingNote("milk", "socks")}, nil)

	count, err := f.coord.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}

	tasks := f.coord.Tasks()
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks", len(tasks))
	}
	for _, task := range tasks {
		if task.Category != classify.Shopping {
			t.Errorf("task %q category = %q, want shopping", task.Text, task.Category)
		}
	}

	st := f.coord.Status()
	if st.TaskCount != 2 || st.Degraded || st.LastRefresh == nil {
		t.Errorf("status = %+v", st)
	}
}

func TestRefresh_StoreFailureKeepsPreviousTasks(t *testing.T) {
	f := newFixture(t, Options{})
	f.source.set([]notes.RawNote{shoppingNote("milk")}, nil)

	if _, err := f.coord.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	f.source.set(nil, fmt.Errorf("%w: db locked", notes.ErrStoreUnavailable))
	_, err := f.coord.Refresh(context.Background())
	if !errors.Is(err, notes.ErrStoreUnavailable) {
		t.Fatalf("err = %v, want ErrStoreUnavailable", err)
	}

	st := f.coord.Status()
	if !st.Degraded {
		t.Error("not marked degraded after store failure")
	}
	if st.TaskCount != 1 {
		t.Errorf("task count = %d, previous set not kept", st.TaskCount)
	}

	// Recovery clears the degraded flag.
	f.source.set([]notes.RawNote{shoppingNote("milk")}, nil)
	if _, err := f.coord.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh after recovery: %v", err)
	}
	if f.coord.Status().Degraded {
		t.Error("degraded flag not cleared after recovery")
	}
}

func TestStep_FiresAndPersistsBeforeDelivery(t *testing.T) {
	f := newFixture(t, Options{})
	f.source.set([]notes.RawNote{shoppingNote("milk")}, nil)
	if _, err := f.coord.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	// Delivery fails, but the fire must still be recorded and persisted.
	f.notifier.err = errors.New("notification center down")

	f.coord.Step(context.Background())

	if f.notifier.count() != 1 {
		t.Fatalf("deliveries = %d, want 1", f.notifier.count())
	}

	persisted, err := f.store.Load()
	if err != nil {
		t.Fatalf("loading persisted state: %v", err)
	}
	if persisted.LastGlobalReminderAt == nil {
		t.Error("global timestamp not persisted")
	}
	if len(persisted.PerTask) != 1 {
		t.Errorf("per-task entries = %d, want 1", len(persisted.PerTask))
	}
}

func TestStep_GlobalGapLimitsFireRate(t *testing.T) {
	f := newFixture(t, Options{})
	f.source.set([]notes.RawNote{shoppingNote("milk", "socks", "bread")}, nil)
	if _, err := f.coord.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	// Many steps inside one gap window yield exactly one reminder.
	for i := 0; i < 5; i++ {
		f.coord.Step(context.Background())
		f.clock.advance(time.Minute)
	}
	if f.notifier.count() != 1 {
		t.Errorf("deliveries = %d, want 1", f.notifier.count())
	}

	f.clock.advance(time.Hour)
	f.coord.Step(context.Background())
	if f.notifier.count() != 2 {
		t.Errorf("deliveries = %d, want 2 after the gap", f.notifier.count())
	}
}

func TestStep_RefreshesWhenDue(t *testing.T) {
	f := newFixture(t, Options{RefreshInterval: 10 * time.Minute})
	f.source.set([]notes.RawNote{shoppingNote("milk")}, nil)
	if _, err := f.coord.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	before := f.source.reads

	f.clock.advance(time.Minute)
	f.coord.Step(context.Background())
	if f.source.reads != before {
		t.Error("refreshed before the interval elapsed")
	}

	f.clock.advance(10 * time.Minute)
	f.coord.Step(context.Background())
	if f.source.reads != before+1 {
		t.Errorf("reads = %d, want %d", f.source.reads, before+1)
	}
}

func TestTriggerNow_BypassesGates(t *testing.T) {
	f := newFixture(t, Options{ManualCountsGlobal: true})
	f.source.set([]notes.RawNote{shoppingNote("milk")}, nil)
	if _, err := f.coord.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	// Arm both gates via a normal fire.
	f.coord.Step(context.Background())
	if f.notifier.count() != 1 {
		t.Fatalf("setup fire missing")
	}

	task, err := f.coord.TriggerNow(context.Background(), false)
	if err != nil {
		t.Fatalf("TriggerNow: %v", err)
	}
	if task.Text == "" {
		t.Error("trigger returned empty task")
	}
	if f.notifier.count() != 2 {
		t.Errorf("deliveries = %d, want 2", f.notifier.count())
	}
}

func TestTriggerNow_NoEligibleTasks(t *testing.T) {
	f := newFixture(t, Options{})

	_, err := f.coord.TriggerNow(context.Background(), false)
	if !errors.Is(err, ErrNoEligibleTasks) {
		t.Errorf("err = %v, want ErrNoEligibleTasks", err)
	}
}

func TestTriggerNow_ForceIgnoresActiveHours(t *testing.T) {
	f := newFixture(t, Options{})
	f.source.set([]notes.RawNote{{
		ID:         "note-1",
		Title:      "Projects",
		BodyMarkup: "- [ ] research standing desks\n",
	}}, nil)
	if _, err := f.coord.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	// focus_project is 18-23; the fixture clock reads 14:00.
	if _, err := f.coord.TriggerNow(context.Background(), false); !errors.Is(err, ErrNoEligibleTasks) {
		t.Errorf("err = %v, want ErrNoEligibleTasks outside active hours", err)
	}

	if _, err := f.coord.TriggerNow(context.Background(), true); err != nil {
		t.Errorf("forced trigger failed: %v", err)
	}
}

func TestTriggerNow_ManualCountsGlobal(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t, Options{ManualCountsGlobal: false})
	f.source.set([]notes.RawNote{shoppingNote("milk", "socks")}, nil)
	if _, err := f.coord.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if _, err := f.coord.TriggerNow(ctx, false); err != nil {
		t.Fatalf("TriggerNow: %v", err)
	}

	// With ManualCountsGlobal off the next automatic step fires right
	// away; the manual reminder did not arm the global gap.
	f.clock.advance(time.Minute)
	f.coord.Step(ctx)
	if f.notifier.count() != 2 {
		t.Errorf("deliveries = %d, want 2", f.notifier.count())
	}

	g := newFixture(t, Options{ManualCountsGlobal: true})
	g.source.set([]notes.RawNote{shoppingNote("milk", "socks")}, nil)
	if _, err := g.coord.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if _, err := g.coord.TriggerNow(ctx, false); err != nil {
		t.Fatalf("TriggerNow: %v", err)
	}
	g.clock.advance(time.Minute)
	g.coord.Step(ctx)
	if g.notifier.count() != 1 {
		t.Errorf("deliveries = %d, want 1 while the gap is armed", g.notifier.count())
	}
}

func TestNew_CorruptStateStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o600); err != nil {
		t.Fatalf("writing state: %v", err)
	}

	coord := New(&fakeSource{}, classify.Default(),
		schedule.New(classify.Default(), 0, 0),
		state.NewStore(path), &fakeNotifier{},
		Options{Clock: &fakeClock{now: afternoon}})

	if st := coord.Status(); st.LastReminderAt != nil {
		t.Errorf("corrupt state not replaced: %+v", st)
	}
}

func TestTestNotification(t *testing.T) {
	f := newFixture(t, Options{})
	if err := f.coord.TestNotification(context.Background()); err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
	if f.notifier.count() != 1 {
		t.Errorf("deliveries = %d, want 1", f.notifier.count())
	}
}
