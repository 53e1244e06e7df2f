package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/sandeepkv93/focusd/internal/diagnostics"
	"github.com/sandeepkv93/focusd/internal/outbox"
	"github.com/sandeepkv93/focusd/internal/settings"
	"github.com/sandeepkv93/focusd/internal/sound"
	"github.com/sandeepkv93/focusd/internal/storage"
)

type countingPlayer struct {
	plays int
}

func (p *countingPlayer) Play(string, int) *sound.Handle {
	p.plays++
	return &sound.Handle{}
}

type notifierFixture struct {
	notifier *Notifier
	fixture  *pipelineFixture
	player   *countingPlayer
	settings *settings.Store
	kv       storage.KV
	clock    *int64
}

func newNotifierFixture(startMs int64) *notifierFixture {
	f := newPipelineFixture(startMs)
	kv := storage.NewMemoryKV()
	player := &countingPlayer{}
	markers := settings.NewStore(kv)
	diag := diagnostics.NewRecorderWithClock(kv, func() int64 { return *f.clock })
	f.pipeline.Diag = diag
	n := NewNotifier(f.pipeline, player, sound.NewCooldown(kv), markers, diag).
		WithClock(func() int64 { return *f.clock })
	return &notifierFixture{notifier: n, fixture: f, player: player, settings: markers, kv: kv, clock: f.clock}
}

func TestTimerFinishedMarksDecisionPending(t *testing.T) {
	f := newNotifierFixture(10_000)
	ctx := context.Background()

	if got := f.notifier.TimerFinished(ctx, 200, LaunchUserInitiated); got != ResultDelivered {
		t.Fatalf("result = %s", got)
	}
	if !f.settings.DecisionPending(ctx) {
		t.Fatalf("decision-pending marker not set after delivery")
	}
	if f.player.plays != 1 {
		t.Fatalf("chime plays = %d", f.player.plays)
	}
}

func TestTimerFinishedShowsFailureToast(t *testing.T) {
	f := newNotifierFixture(10_000)
	f.fixture.hud.err = errors.New("down")
	f.fixture.desktop.err = errors.New("down")
	f.fixture.toast.err = errors.New("down")
	ctx := context.Background()

	if got := f.notifier.TimerFinished(ctx, 201, LaunchUserInitiated); got != ResultFailed {
		t.Fatalf("result = %s", got)
	}
	if f.settings.DecisionPending(ctx) {
		t.Fatalf("marker set despite failure")
	}
	// One delivery attempt plus one best-effort failure toast.
	if f.fixture.toast.calls != 2 {
		t.Fatalf("toast calls = %d", f.fixture.toast.calls)
	}
}

func TestTimerFinishedSkippedShowsWaitingToast(t *testing.T) {
	f := newNotifierFixture(10_000)
	f.fixture.hud.err = errors.New("down")
	f.fixture.desktop.err = errors.New("down")
	f.fixture.toast.err = errors.New("down")
	ctx := context.Background()

	f.notifier.TimerFinished(ctx, 202, LaunchBackground)
	toastCallsAfterFailure := f.fixture.toast.calls

	// Retry inside the backoff window: skipped, but the user still
	// hears about the pending retry.
	*f.clock = 11_000
	if got := f.notifier.TimerFinished(ctx, 202, LaunchBackground); got != ResultSkipped {
		t.Fatalf("result = %s", got)
	}
	if f.fixture.toast.calls != toastCallsAfterFailure+1 {
		t.Fatalf("waiting toast not shown: %d calls", f.fixture.toast.calls)
	}
}

func TestTimerFinishedSkippedAfterDeliveryIsSilent(t *testing.T) {
	f := newNotifierFixture(10_000)
	ctx := context.Background()

	f.notifier.TimerFinished(ctx, 203, LaunchUserInitiated)
	toastCalls := f.fixture.toast.calls

	*f.clock = 30_000
	if got := f.notifier.TimerFinished(ctx, 203, LaunchUserInitiated); got != ResultSkipped {
		t.Fatalf("result = %s", got)
	}
	if f.fixture.toast.calls != toastCalls {
		t.Fatalf("toast shown for an already delivered completion")
	}
	event, _ := f.fixture.store.Get(ctx, 203)
	if event.Status != outbox.StatusDelivered {
		t.Fatalf("event status = %s", event.Status)
	}
}

func TestChimeRespectsCooldown(t *testing.T) {
	f := newNotifierFixture(10_000)
	ctx := context.Background()

	f.notifier.TimerFinished(ctx, 204, LaunchUserInitiated)
	*f.clock = 15_000
	f.notifier.TimerFinished(ctx, 205, LaunchUserInitiated)
	if f.player.plays != 1 {
		t.Fatalf("chime played inside cooldown: %d plays", f.player.plays)
	}

	*f.clock = 25_000
	f.notifier.TimerFinished(ctx, 206, LaunchUserInitiated)
	if f.player.plays != 2 {
		t.Fatalf("chime muted after cooldown: %d plays", f.player.plays)
	}
}

func TestChimeRespectsMode(t *testing.T) {
	f := newNotifierFixture(10_000)
	f.notifier.SoundMode = sound.ModeBackgroundOnly
	ctx := context.Background()

	f.notifier.TimerFinished(ctx, 207, LaunchUserInitiated)
	if f.player.plays != 0 {
		t.Fatalf("background-only mode chimed for a foreground launch")
	}

	*f.clock = 30_000
	f.notifier.TimerFinished(ctx, 208, LaunchBackground)
	if f.player.plays != 1 {
		t.Fatalf("background-only mode muted a background launch")
	}
}

func TestCopyForFallsBackToEnglish(t *testing.T) {
	if CopyFor(settings.LanguageRussian).Title == CopyFor(settings.LanguageEnglish).Title {
		t.Fatalf("language table collapsed")
	}
	if CopyFor(settings.Language("de")).Title != CopyFor(settings.LanguageEnglish).Title {
		t.Fatalf("unknown language did not fall back to english")
	}
}
