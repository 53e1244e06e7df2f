package timer

import (
	"testing"
)

const dayMs = int64(24 * 60 * 60 * 1000)

func TestRollingStats24hCountsWindowOnly(t *testing.T) {
	state := InitialState()
	state.Stats.Starts = []int64{0, 10 * dayMs, 10*dayMs + 1_000}
	state.Stats.Completions = []CompletionEvent{
		{At: 0, DurationMs: 25 * 60_000},
		{At: 10*dayMs + 2_000, DurationMs: 5 * 60_000},
	}

	now := 10*dayMs + 10_000
	stats := GetRollingStats24h(state, now)
	if stats.Starts != 2 {
		t.Fatalf("starts24h = %d, want 2", stats.Starts)
	}
	if stats.Completions != 1 {
		t.Fatalf("completions24h = %d, want 1", stats.Completions)
	}
	if stats.FocusTimeMs != 5*60_000 {
		t.Fatalf("focusTime = %d", stats.FocusTimeMs)
	}
	if stats.CompletionRate != 0.5 {
		t.Fatalf("completionRate = %f", stats.CompletionRate)
	}
	if stats.LastCompletionAt == nil || *stats.LastCompletionAt != 10*dayMs+2_000 {
		t.Fatalf("lastCompletionAt = %v", stats.LastCompletionAt)
	}
}

func TestRollingStatsCompletionRateCapsAtOne(t *testing.T) {
	state := InitialState()
	state.Stats.Starts = []int64{1_000}
	state.Stats.Completions = []CompletionEvent{
		{At: 2_000, DurationMs: 60_000},
		{At: 3_000, DurationMs: 60_000},
	}
	stats := GetRollingStats24h(state, 10_000)
	if stats.CompletionRate != 1 {
		t.Fatalf("completionRate = %f, want cap at 1", stats.CompletionRate)
	}
}

func TestRollingProgressTrendsUnavailableWithoutPreviousWindow(t *testing.T) {
	state := InitialState()
	now := 20 * dayMs
	state.Stats.Starts = []int64{now - dayMs}
	state.Stats.Completions = []CompletionEvent{{At: now - dayMs + 60_000, DurationMs: 25 * 60_000}}

	progress := GetRollingProgress(state, now)
	if progress.FocusTrendVsPrev7dPercent != nil {
		t.Fatalf("focus trend should be unavailable, got %v", *progress.FocusTrendVsPrev7dPercent)
	}
	if progress.CompletionTrendVsPrev7dPercent != nil {
		t.Fatalf("completion trend should be unavailable")
	}
}

func TestRollingProgressComputesTrends(t *testing.T) {
	state := InitialState()
	now := 20 * dayMs
	// Previous 7d window: one start, one 25-minute completion.
	state.Stats.Starts = []int64{now - 10*dayMs, now - dayMs, now - 2*dayMs}
	state.Stats.Completions = []CompletionEvent{
		{At: now - 10*dayMs + 60_000, DurationMs: 25 * 60_000},
		{At: now - dayMs, DurationMs: 25 * 60_000},
		{At: now - 2*dayMs, DurationMs: 25 * 60_000},
	}
	state.Stats.Pauses = []int64{now - dayMs + 1}
	state.Stats.Resets = []int64{now - dayMs + 2}
	state.Stats.MinuteAdjustments = []MinuteAdjustmentEvent{
		{At: now - dayMs + 3, Delta: 5, From: 25, To: 30},
	}

	progress := GetRollingProgress(state, now)
	if progress.Starts7d != 2 || progress.Completions7d != 2 {
		t.Fatalf("window counts wrong: %+v", progress)
	}
	if progress.FocusTrendVsPrev7dPercent == nil || *progress.FocusTrendVsPrev7dPercent != 100 {
		t.Fatalf("focus trend = %v, want 100", progress.FocusTrendVsPrev7dPercent)
	}
	if progress.InterruptRate7d != 1 {
		t.Fatalf("interrupt rate = %f, want 1", progress.InterruptRate7d)
	}
	if progress.AvgAdjustmentsPerSession7d != 0.5 {
		t.Fatalf("avg adjustments = %f, want 0.5", progress.AvgAdjustmentsPerSession7d)
	}
	if progress.AvgCompletedDurationMs7d != 25*60_000 {
		t.Fatalf("avg duration = %d", progress.AvgCompletedDurationMs7d)
	}
	if progress.ActiveCompletionDays7d != 2 {
		t.Fatalf("active days = %d, want 2", progress.ActiveCompletionDays7d)
	}
}

func TestCompactionPurgesEntriesPastRetention(t *testing.T) {
	state := InitialState()
	old := int64(1_000)
	state.Stats.Starts = []int64{old}
	state.Stats.Completions = []CompletionEvent{{At: old, DurationMs: 60_000}}

	now := old + 36*dayMs
	compacted := NormalizeIfFinished(state, now)
	if len(compacted.Stats.Starts) != 0 || len(compacted.Stats.Completions) != 0 {
		t.Fatalf("stale entries survived compaction: %+v", compacted.Stats)
	}
}

func TestClearStatsKeepsAuditTrail(t *testing.T) {
	state := Start(InitialState(), 1_000)
	state = Pause(state, 2_000)
	cleared := ClearStats(state, 3_000)

	if len(cleared.Stats.Starts) != 0 || len(cleared.Stats.Pauses) != 0 {
		t.Fatalf("clear left events behind")
	}
	if len(cleared.Stats.ManualClears) != 1 || cleared.Stats.ManualClears[0] != 3_000 {
		t.Fatalf("clear not recorded: %+v", cleared.Stats.ManualClears)
	}
}
