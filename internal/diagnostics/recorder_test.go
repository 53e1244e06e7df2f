package diagnostics

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/sandeepkv93/focusd/internal/storage"
	"github.com/sandeepkv93/focusd/internal/timer"
)

func newTestRecorder(startMs int64) (*Recorder, *int64) {
	nowMs := startMs
	return NewRecorderWithClock(storage.NewMemoryKV(), func() int64 { return nowMs }), &nowMs
}

func TestRecorderUpdatesOnlyItsOwnFields(t *testing.T) {
	rec, nowMs := newTestRecorder(1_000)
	ctx := context.Background()

	rec.RecordWatchdogRun(ctx, "background")
	*nowMs = 2_000
	rec.RecordNotifyAttempt(ctx, OutcomeDelivered, "")
	*nowMs = 3_000
	rec.RecordRetryDrainAttempt(ctx, OutcomeSkipped)

	snap := rec.Snapshot(ctx)
	if snap.LastRunAt == nil || *snap.LastRunAt != 1_000 || snap.LastRunLaunchType != "background" {
		t.Fatalf("run fields: %+v", snap)
	}
	if snap.LastNotifyAt == nil || *snap.LastNotifyAt != 2_000 || snap.LastNotifyOutcome != OutcomeDelivered {
		t.Fatalf("notify fields: %+v", snap)
	}
	if snap.LastRetryDrainAt == nil || *snap.LastRetryDrainAt != 3_000 {
		t.Fatalf("drain fields: %+v", snap)
	}
}

func TestTimelineKeepsMostRecentHundred(t *testing.T) {
	rec, nowMs := newTestRecorder(0)
	ctx := context.Background()

	for i := 0; i < 130; i++ {
		*nowMs = int64(i)
		rec.RecordSoundAttempt(ctx, fmt.Sprintf("attempt-%d", i))
	}

	timeline := rec.Timeline(ctx)
	if len(timeline) != 100 {
		t.Fatalf("timeline length = %d, want 100", len(timeline))
	}
	if timeline[0].At != 30 || timeline[99].At != 129 {
		t.Fatalf("timeline window = [%d..%d]", timeline[0].At, timeline[99].At)
	}
}

func TestRecorderSurvivesCorruptBlobs(t *testing.T) {
	kv := storage.NewMemoryKV()
	ctx := context.Background()
	if err := kv.Set(ctx, storage.KeyDiagnostics, "not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := kv.Set(ctx, storage.KeyDiagnosticsEvents, "also not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rec := NewRecorderWithClock(kv, func() int64 { return 5_000 })
	rec.RecordArmAttempt(ctx, OutcomeArmed)

	snap := rec.Snapshot(ctx)
	if snap.LastArmAt == nil || *snap.LastArmAt != 5_000 {
		t.Fatalf("recorder did not recover from corrupt snapshot: %+v", snap)
	}
	if got := rec.Timeline(ctx); len(got) != 1 {
		t.Fatalf("recorder did not recover from corrupt timeline: %+v", got)
	}
}

func TestReportSafeModeRedactsAndTruncates(t *testing.T) {
	rec, _ := newTestRecorder(10_000)
	ctx := context.Background()
	longError := "open /home/alice/sounds/chime.wav: " + strings.Repeat("x", 400)
	rec.RecordNotifyAttempt(ctx, OutcomeFailed, longError)

	report := rec.BuildReport(ctx, ReportParams{
		State:   timer.InitialState(),
		NowMs:   20_000,
		Privacy: PrivacySafe,
	})

	if strings.Contains(report, "/home/alice") {
		t.Fatalf("safe report leaked a user path:\n%s", report)
	}
	if !strings.Contains(report, "/home/[redacted]") {
		t.Fatalf("safe report missing redaction marker:\n%s", report)
	}
	if strings.Contains(report, strings.Repeat("x", 241)) {
		t.Fatalf("safe report did not truncate the error")
	}
}

func TestReportFullModeKeepsPaths(t *testing.T) {
	rec, _ := newTestRecorder(10_000)
	ctx := context.Background()
	rec.RecordNotifyAttempt(ctx, OutcomeFailed, "open /home/alice/chime.wav: no such file")

	report := rec.BuildReport(ctx, ReportParams{
		State:   timer.InitialState(),
		NowMs:   20_000,
		Privacy: PrivacyFull,
	})
	if !strings.Contains(report, "/home/alice/chime.wav") {
		t.Fatalf("full report redacted a path it should keep:\n%s", report)
	}
}

func TestReportFlagsRunningWithoutDeadline(t *testing.T) {
	rec, _ := newTestRecorder(0)
	state := timer.InitialState()
	state.IsRunning = true

	report := rec.BuildReport(context.Background(), ReportParams{State: state, NowMs: 1_000})
	if !strings.Contains(report, "running without a deadline") {
		t.Fatalf("integrity flag missing:\n%s", report)
	}
}

func TestReportCleanStateReportsOK(t *testing.T) {
	rec, _ := newTestRecorder(0)
	report := rec.BuildReport(context.Background(), ReportParams{State: timer.InitialState(), NowMs: 1_000})
	if !strings.Contains(report, "no inconsistencies detected") {
		t.Fatalf("clean state flagged:\n%s", report)
	}
}
