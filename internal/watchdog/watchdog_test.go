package watchdog

import (
	"context"
	"errors"
	"testing"

	"github.com/sandeepkv93/focusd/internal/diagnostics"
	"github.com/sandeepkv93/focusd/internal/notify"
	"github.com/sandeepkv93/focusd/internal/outbox"
	"github.com/sandeepkv93/focusd/internal/settings"
	"github.com/sandeepkv93/focusd/internal/sound"
	"github.com/sandeepkv93/focusd/internal/storage"
	"github.com/sandeepkv93/focusd/internal/timer"
)

type stubChannel struct {
	name  string
	err   error
	calls int
}

func (c *stubChannel) Name() string { return c.name }

func (c *stubChannel) Send(string, string) error {
	c.calls++
	return c.err
}

type passFixture struct {
	pass   *Pass
	states *storage.TimerStateStore
	store  *outbox.Store
	hud    *stubChannel
	diag   *diagnostics.Recorder
	clock  *int64
}

func newPassFixture(startMs int64) *passFixture {
	nowMs := startMs
	now := func() int64 { return nowMs }
	kv := storage.NewMemoryKV()
	states := storage.NewTimerStateStore(kv)
	store := outbox.NewStoreWithClock(kv, now)
	hud := &stubChannel{name: notify.ChannelHUD}
	diag := diagnostics.NewRecorderWithClock(kv, now)
	pipeline := notify.NewPipeline(store, []notify.Channel{hud}, diag)
	notifier := notify.NewNotifier(pipeline, sound.BellPlayer{}, sound.NewCooldown(kv), settings.NewStore(kv), diag).
		WithClock(now)
	pass := NewPass(states, notifier, diag).WithClock(now)
	return &passFixture{pass: pass, states: states, store: store, hud: hud, diag: diag, clock: &nowMs}
}

func TestRunDetectsFinishWhileBackgrounded(t *testing.T) {
	f := newPassFixture(0)
	ctx := context.Background()

	running := timer.Start(timer.InitialState(), 0)
	if err := f.states.Save(ctx, running); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	*f.clock = 25*60_000 + 1
	if err := f.pass.Run(ctx, notify.LaunchBackground); err != nil {
		t.Fatalf("run: %v", err)
	}

	saved, err := f.states.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if saved.IsRunning || saved.RemainingMs != 0 {
		t.Fatalf("hydrated state not persisted: %+v", saved)
	}
	if saved.LastCompletedAt == nil || *saved.LastCompletedAt != 25*60_000 {
		t.Fatalf("completion attributed to %v, want the stored deadline", saved.LastCompletedAt)
	}
	if f.hud.calls != 1 {
		t.Fatalf("notification calls = %d", f.hud.calls)
	}
	event, ok := f.store.Get(ctx, *saved.LastCompletedAt)
	if !ok || event.Status != outbox.StatusDelivered {
		t.Fatalf("outbox event = %+v (found %v)", event, ok)
	}
}

func TestRunDoesNotRedetectTheSameFinish(t *testing.T) {
	f := newPassFixture(0)
	ctx := context.Background()
	if err := f.states.Save(ctx, timer.Start(timer.InitialState(), 0)); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	*f.clock = 30 * 60_000
	if err := f.pass.Run(ctx, notify.LaunchBackground); err != nil {
		t.Fatalf("first run: %v", err)
	}
	callsAfterFirst := f.hud.calls

	*f.clock = 40 * 60_000
	if err := f.pass.Run(ctx, notify.LaunchBackground); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if f.hud.calls != callsAfterFirst {
		t.Fatalf("second run re-notified: %d calls", f.hud.calls)
	}
}

func TestRunDrainsOutstandingEvents(t *testing.T) {
	f := newPassFixture(10_000)
	ctx := context.Background()

	f.store.UpsertPending(ctx, 501, string(notify.LaunchBackground))
	locked := f.store.LockForDelivery(ctx, 501)
	f.store.MarkFailed(ctx, 501, outbox.FailParams{BaseDelayMs: 2_000, MaxDelayMs: 10_000, Err: "down", ExpectedLockID: locked.LockID})

	*f.clock = 20_000
	if err := f.pass.Run(ctx, notify.LaunchBackground); err != nil {
		t.Fatalf("run: %v", err)
	}
	event, _ := f.store.Get(ctx, 501)
	if event.Status != outbox.StatusDelivered {
		t.Fatalf("drained event = %+v", event)
	}
	snap := f.diag.Snapshot(ctx)
	if snap.LastRetryDrainAt == nil {
		t.Fatalf("drain attempt not recorded")
	}
}

func TestRunDrainIsBounded(t *testing.T) {
	f := newPassFixture(1_000)
	ctx := context.Background()
	for id := int64(1); id <= 5; id++ {
		f.store.UpsertPending(ctx, id, "")
		*f.clock++
	}

	f.hud.err = errors.New("down") // keep events undelivered so the batch is observable
	if err := f.pass.Run(ctx, notify.LaunchBackground); err != nil {
		t.Fatalf("run: %v", err)
	}
	if f.hud.calls != DefaultDrainLimit {
		t.Fatalf("drain attempted %d events, want %d", f.hud.calls, DefaultDrainLimit)
	}
}

func TestRunIdleStateIsQuiet(t *testing.T) {
	f := newPassFixture(5_000)
	ctx := context.Background()

	if err := f.pass.Run(ctx, notify.LaunchBackground); err != nil {
		t.Fatalf("run: %v", err)
	}
	if f.hud.calls != 0 {
		t.Fatalf("idle run notified: %d calls", f.hud.calls)
	}
	snap := f.diag.Snapshot(ctx)
	if snap.LastRunAt == nil || snap.LastRunLaunchType != string(notify.LaunchBackground) {
		t.Fatalf("run not recorded: %+v", snap)
	}
}

func TestArmRecordsOutcome(t *testing.T) {
	kv := storage.NewMemoryKV()
	diag := diagnostics.NewRecorderWithClock(kv, func() int64 { return 1_000 })
	ctx := context.Background()

	Arm(ctx, diag, func() error { return nil })
	if got := diag.Snapshot(ctx).LastArmOutcome; got != diagnostics.OutcomeArmed {
		t.Fatalf("arm outcome = %s", got)
	}

	Arm(ctx, diag, func() error { return errors.New("host refused") })
	if got := diag.Snapshot(ctx).LastArmOutcome; got != diagnostics.OutcomeArmFailed {
		t.Fatalf("arm outcome = %s", got)
	}

	Arm(ctx, diag, nil)
	if got := diag.Snapshot(ctx).LastArmOutcome; got != diagnostics.OutcomeArmFailed {
		t.Fatalf("nil scheduler outcome = %s", got)
	}
}

func TestNewRunnerRejectsBadSpec(t *testing.T) {
	f := newPassFixture(0)
	if _, err := NewRunner("not a cron spec", f.pass); err == nil {
		t.Fatalf("bad cron spec accepted")
	}
	runner, err := NewRunner("* * * * *", f.pass)
	if err != nil {
		t.Fatalf("valid cron spec rejected: %v", err)
	}
	runner.Start()
	runner.Stop()
}
