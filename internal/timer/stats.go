package timer

import "time"

const (
	statsWindow24hMs = 24 * 60 * 60 * 1000
	statsWindow7dMs  = 7 * statsWindow24hMs
	// Entries older than this are purged on every mutating operation, so
	// the log is self-bounding.
	statsRetentionMs = 35 * statsWindow24hMs
)

type CompletionEvent struct {
	At         int64 `json:"at"`
	DurationMs int64 `json:"durationMs"`
}

type MinuteAdjustmentEvent struct {
	At    int64 `json:"at"`
	Delta int   `json:"delta"`
	From  int   `json:"from"`
	To    int   `json:"to"`
}

// StatsLog is the append-only event log owned by State. A manual clear
// wipes every list except that it appends its own timestamp to
// ManualClears, so clears themselves stay auditable until pruned.
type StatsLog struct {
	Starts            []int64                 `json:"starts"`
	Completions       []CompletionEvent       `json:"completions"`
	Pauses            []int64                 `json:"pauses"`
	Resets            []int64                 `json:"resets"`
	MinuteAdjustments []MinuteAdjustmentEvent `json:"minuteAdjustments"`
	ManualClears      []int64                 `json:"manualStatsClears"`
}

type RollingStats24h struct {
	Starts           int
	Completions      int
	FocusTimeMs      int64
	CompletionRate   float64
	LastStartAt      *int64
	LastCompletionAt *int64
}

type RollingProgress struct {
	Starts7d                 int
	Completions7d            int
	FocusTimeMs7d            int64
	CompletionRate7d         float64
	AvgCompletedDurationMs7d int64
	ActiveCompletionDays7d   int
	// Trend percentages are nil when the previous window is empty; a
	// division by zero is reported as "not available", never computed.
	FocusTrendVsPrev7dPercent      *float64
	CompletionTrendVsPrev7dPercent *float64
	InterruptRate7d                float64
	AvgAdjustmentsPerSession7d     float64
}

func emptyStatsLog() StatsLog {
	return StatsLog{
		Starts:            []int64{},
		Completions:       []CompletionEvent{},
		Pauses:            []int64{},
		Resets:            []int64{},
		MinuteAdjustments: []MinuteAdjustmentEvent{},
		ManualClears:      []int64{},
	}
}

func filterTimestamps(in []int64, cutoff int64) []int64 {
	out := make([]int64, 0, len(in))
	for _, at := range in {
		if at >= cutoff {
			out = append(out, at)
		}
	}
	return out
}

func compactStatsLog(stats StatsLog, nowMs int64) StatsLog {
	cutoff := nowMs - statsRetentionMs
	completions := make([]CompletionEvent, 0, len(stats.Completions))
	for _, c := range stats.Completions {
		if c.At >= cutoff {
			completions = append(completions, c)
		}
	}
	adjustments := make([]MinuteAdjustmentEvent, 0, len(stats.MinuteAdjustments))
	for _, a := range stats.MinuteAdjustments {
		if a.At >= cutoff {
			adjustments = append(adjustments, a)
		}
	}
	return StatsLog{
		Starts:            filterTimestamps(stats.Starts, cutoff),
		Completions:       completions,
		Pauses:            filterTimestamps(stats.Pauses, cutoff),
		Resets:            filterTimestamps(stats.Resets, cutoff),
		MinuteAdjustments: adjustments,
		ManualClears:      filterTimestamps(stats.ManualClears, cutoff),
	}
}

func withCompactedStats(s State, nowMs int64) State {
	s.Stats = compactStatsLog(s.Stats, nowMs)
	return s
}

func withStartEvent(s State, at int64) State {
	compacted := compactStatsLog(s.Stats, at)
	compacted.Starts = append(compacted.Starts, at)
	s.Stats = compacted
	return s
}

func withCompletionEvent(s State, event CompletionEvent) State {
	compacted := compactStatsLog(s.Stats, event.At)
	compacted.Completions = append(compacted.Completions, event)
	s.Stats = compacted
	return s
}

func withPauseEvent(s State, at int64) State {
	compacted := compactStatsLog(s.Stats, at)
	compacted.Pauses = append(compacted.Pauses, at)
	s.Stats = compacted
	return s
}

func withResetEvent(s State, at int64) State {
	compacted := compactStatsLog(s.Stats, at)
	compacted.Resets = append(compacted.Resets, at)
	s.Stats = compacted
	return s
}

func withMinuteAdjustmentEvent(s State, event MinuteAdjustmentEvent) State {
	compacted := compactStatsLog(s.Stats, event.At)
	compacted.MinuteAdjustments = append(compacted.MinuteAdjustments, event)
	s.Stats = compacted
	return s
}

// ClearStats wipes the log but records the clear itself.
func ClearStats(s State, nowMs int64) State {
	compacted := compactStatsLog(s.Stats, nowMs)
	cleared := emptyStatsLog()
	cleared.ManualClears = append(append([]int64{}, compacted.ManualClears...), nowMs)
	s.Stats = cleared
	return s
}

// GetRollingStats24h is a pure read-only projection over the stats log.
func GetRollingStats24h(s State, nowMs int64) RollingStats24h {
	compacted := compactStatsLog(s.Stats, nowMs)
	cutoff := nowMs - statsWindow24hMs

	var starts []int64
	for _, at := range compacted.Starts {
		if at >= cutoff && at <= nowMs {
			starts = append(starts, at)
		}
	}
	var completions []CompletionEvent
	var focusTimeMs int64
	for _, c := range compacted.Completions {
		if c.At >= cutoff && c.At <= nowMs {
			completions = append(completions, c)
			focusTimeMs += c.DurationMs
		}
	}

	out := RollingStats24h{
		Starts:         len(starts),
		Completions:    len(completions),
		FocusTimeMs:    focusTimeMs,
		CompletionRate: completionRate(len(starts), len(completions)),
	}
	if len(starts) > 0 {
		last := starts[len(starts)-1]
		out.LastStartAt = &last
	}
	if len(completions) > 0 {
		last := completions[len(completions)-1].At
		out.LastCompletionAt = &last
	}
	return out
}

// GetRollingProgress compares the trailing 7 days against the 7 days
// before them.
func GetRollingProgress(s State, nowMs int64) RollingProgress {
	compacted := compactStatsLog(s.Stats, nowMs)
	currentCutoff := nowMs - statsWindow7dMs
	previousFrom := nowMs - 2*statsWindow7dMs

	starts7d := countInWindow(compacted.Starts, currentCutoff, nowMs)
	pauses7d := countInWindow(compacted.Pauses, currentCutoff, nowMs)
	resets7d := countInWindow(compacted.Resets, currentCutoff, nowMs)
	startsPrev7d := countInHalfOpenWindow(compacted.Starts, previousFrom, currentCutoff)

	adjustments7d := 0
	for _, a := range compacted.MinuteAdjustments {
		if a.At >= currentCutoff && a.At <= nowMs {
			adjustments7d++
		}
	}

	var completions7d, completionsPrev7d int
	var focusTimeMs7d, focusTimeMsPrev7d int64
	activeDays := make(map[string]struct{})
	for _, c := range compacted.Completions {
		if c.At >= currentCutoff && c.At <= nowMs {
			completions7d++
			focusTimeMs7d += c.DurationMs
			activeDays[time.UnixMilli(c.At).Format("2006-01-02")] = struct{}{}
		} else if c.At >= previousFrom && c.At < currentCutoff {
			completionsPrev7d++
			focusTimeMsPrev7d += c.DurationMs
		}
	}

	rate7d := completionRate(starts7d, completions7d)
	ratePrev7d := completionRate(startsPrev7d, completionsPrev7d)

	var avgCompleted int64
	if completions7d > 0 {
		avgCompleted = focusTimeMs7d / int64(completions7d)
	}

	out := RollingProgress{
		Starts7d:                 starts7d,
		Completions7d:            completions7d,
		FocusTimeMs7d:            focusTimeMs7d,
		CompletionRate7d:         rate7d,
		AvgCompletedDurationMs7d: avgCompleted,
		ActiveCompletionDays7d:   len(activeDays),
		FocusTrendVsPrev7dPercent: trendPercent(
			float64(focusTimeMs7d), float64(focusTimeMsPrev7d),
		),
	}
	if startsPrev7d > 0 {
		out.CompletionTrendVsPrev7dPercent = trendPercent(rate7d, ratePrev7d)
	}
	if starts7d > 0 {
		out.InterruptRate7d = float64(pauses7d+resets7d) / float64(starts7d)
		out.AvgAdjustmentsPerSession7d = float64(adjustments7d) / float64(starts7d)
	}
	return out
}

func completionRate(starts, completions int) float64 {
	if starts == 0 {
		return 0
	}
	rate := float64(completions) / float64(starts)
	if rate > 1 {
		return 1
	}
	return rate
}

func trendPercent(current, previous float64) *float64 {
	if previous <= 0 {
		return nil
	}
	pct := (current - previous) / previous * 100
	return &pct
}

func countInWindow(in []int64, from, to int64) int {
	n := 0
	for _, at := range in {
		if at >= from && at <= to {
			n++
		}
	}
	return n
}

func countInHalfOpenWindow(in []int64, from, to int64) int {
	n := 0
	for _, at := range in {
		if at >= from && at < to {
			n++
		}
	}
	return n
}
