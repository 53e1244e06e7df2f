package timer

import (
	"encoding/json"
	"math"
)

// ParseStored turns a persisted JSON blob back into a State. Parsing is
// defensive field by field: out-of-range numbers clamp, non-finite values
// drop, preset lists dedupe, and anything structurally wrong falls back to
// the initial state for that field. A fully unparseable blob yields the
// complete initial state. It never returns an error.
func ParseStored(raw string) State {
	if raw == "" {
		return InitialState()
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil || parsed == nil {
		return InitialState()
	}

	initial := InitialState()

	minutes := initial.Minutes
	if v, ok := finiteNumber(parsed["minutes"]); ok {
		minutes = ClampMinutes(int(v))
	}

	remainingMs := int64(minutes) * msPerMinute
	if v, ok := finiteNumber(parsed["remainingMs"]); ok {
		remainingMs = int64(math.Max(0, v))
	}

	endsAt, hasEndsAt := finiteNumber(parsed["endsAt"])
	if !hasEndsAt {
		// Legacy records stored startedAt instead of a deadline.
		if startedAt, ok := finiteNumber(parsed["startedAt"]); ok {
			endsAt = startedAt + float64(remainingMs)
			hasEndsAt = true
		}
	}

	// A running flag without a deadline must be treated as not running.
	isRunning := false
	if b, ok := parsed["isRunning"].(bool); ok {
		isRunning = b && hasEndsAt
	}

	state := State{
		IsRunning:   isRunning,
		RemainingMs: remainingMs,
		Minutes:     minutes,
		Stats:       parseStatsLog(parsed["stats"]),
	}
	if isRunning {
		v := int64(endsAt)
		state.EndsAt = &v
	}
	if v, ok := finiteNumber(parsed["lastCompletedAt"]); ok {
		at := int64(v)
		state.LastCompletedAt = &at
	}
	if v, ok := finiteNumber(parsed["selectedPreset"]); ok {
		preset := ClampMinutes(int(v))
		state.SelectedPreset = &preset
	}
	if presets := parsePresets(parsed["presets"]); len(presets) > 0 {
		state.Presets = presets
	}
	if s, ok := parsed["pomodoroStyle"].(string); ok {
		state.Style = NormalizeStyle(s)
	}
	if b, ok := parsed["styleChoiceSeen"].(bool); ok {
		state.StyleChoiceSeen = b
	}
	return state
}

// Encode is the inverse of ParseStored for states produced by the public
// transition functions.
func Encode(s State) (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func finiteNumber(v any) (float64, bool) {
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parsePresets(v any) []int {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	seen := make(map[int]struct{}, len(items))
	out := make([]int, 0, len(items))
	for _, item := range items {
		f, ok := finiteNumber(item)
		if !ok {
			continue
		}
		preset := ClampMinutes(int(f))
		if _, dup := seen[preset]; dup {
			continue
		}
		seen[preset] = struct{}{}
		out = append(out, preset)
	}
	return out
}

func parseStatsLog(v any) StatsLog {
	out := emptyStatsLog()
	value, ok := v.(map[string]any)
	if !ok {
		return out
	}

	out.Starts = parseTimestampList(value["starts"])
	out.Pauses = parseTimestampList(value["pauses"])
	out.Resets = parseTimestampList(value["resets"])
	out.ManualClears = parseTimestampList(value["manualStatsClears"])

	if items, ok := value["completions"].([]any); ok {
		for _, item := range items {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			at, okAt := finiteNumber(entry["at"])
			durationMs, okDur := finiteNumber(entry["durationMs"])
			if !okAt || !okDur || durationMs <= 0 {
				continue
			}
			out.Completions = append(out.Completions, CompletionEvent{
				At:         int64(at),
				DurationMs: int64(durationMs),
			})
		}
	}

	if items, ok := value["minuteAdjustments"].([]any); ok {
		for _, item := range items {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			at, okAt := finiteNumber(entry["at"])
			delta, okDelta := finiteNumber(entry["delta"])
			from, okFrom := finiteNumber(entry["from"])
			to, okTo := finiteNumber(entry["to"])
			if !okAt || !okDelta || !okFrom || !okTo {
				continue
			}
			out.MinuteAdjustments = append(out.MinuteAdjustments, MinuteAdjustmentEvent{
				At:    int64(at),
				Delta: int(delta),
				From:  int(from),
				To:    int(to),
			})
		}
	}
	return out
}

func parseTimestampList(v any) []int64 {
	items, ok := v.([]any)
	if !ok {
		return []int64{}
	}
	out := make([]int64, 0, len(items))
	for _, item := range items {
		if f, ok := finiteNumber(item); ok {
			out = append(out, int64(f))
		}
	}
	return out
}
