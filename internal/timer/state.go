package timer

const (
	MinMinutes     = 1
	MaxMinutes     = 60
	DefaultMinutes = 25

	msPerMinute = int64(60_000)
)

// DefaultPresets is the built-in quick-start ladder, minutes ascending.
var DefaultPresets = []int{1, 5, 10, 15, 20, 25, 30, 40, 50, 60}

type Style string

const (
	StyleFlow    Style = "flow"
	StyleClassic Style = "classic"
)

func (s Style) IsValid() bool {
	switch s {
	case StyleFlow, StyleClassic:
		return true
	default:
		return false
	}
}

// NormalizeStyle maps anything that is not a known style to the empty value.
func NormalizeStyle(raw string) Style {
	s := Style(raw)
	if s.IsValid() {
		return s
	}
	return ""
}

// State is the single persisted timer aggregate. All transition functions
// are pure: they take an explicit now in epoch milliseconds and return a
// new value, which is what keeps them correct across process restarts.
type State struct {
	IsRunning       bool     `json:"isRunning"`
	RemainingMs     int64    `json:"remainingMs"`
	EndsAt          *int64   `json:"endsAt"`
	Minutes         int      `json:"minutes"`
	LastCompletedAt *int64   `json:"lastCompletedAt,omitempty"`
	SelectedPreset  *int     `json:"selectedPreset,omitempty"`
	Presets         []int    `json:"presets,omitempty"`
	Stats           StatsLog `json:"stats"`
	Style           Style    `json:"pomodoroStyle,omitempty"`
	StyleChoiceSeen bool     `json:"styleChoiceSeen,omitempty"`
}

func InitialState() State {
	preset := DefaultMinutes
	return State{
		IsRunning:      false,
		RemainingMs:    int64(DefaultMinutes) * msPerMinute,
		EndsAt:         nil,
		Minutes:        DefaultMinutes,
		SelectedPreset: &preset,
		Presets:        append([]int(nil), DefaultPresets...),
		Stats:          emptyStatsLog(),
	}
}

func (s State) EffectiveStyle() Style {
	if s.Style.IsValid() {
		return s.Style
	}
	return StyleClassic
}

func ClampMinutes(v int) int {
	if v < MinMinutes {
		return MinMinutes
	}
	if v > MaxMinutes {
		return MaxMinutes
	}
	return v
}

// RemainingAt derives remaining time from the stored deadline while
// running; the stored RemainingMs is authoritative only while paused.
func (s State) RemainingAt(nowMs int64) int64 {
	if !s.IsRunning {
		return s.RemainingMs
	}
	if s.EndsAt != nil {
		if left := *s.EndsAt - nowMs; left > 0 {
			return left
		}
		return 0
	}
	return s.RemainingMs
}

// DisplayRemainingAt shows a full session after a finish instead of 0:00.
func (s State) DisplayRemainingAt(nowMs int64) int64 {
	remaining := s.RemainingAt(nowMs)
	if !s.IsRunning && remaining == 0 {
		return int64(s.Minutes) * msPerMinute
	}
	return remaining
}

func Start(s State, nowMs int64) State {
	if s.IsRunning || s.RemainingMs <= 0 {
		return withCompactedStats(s, nowMs)
	}
	endsAt := nowMs + s.RemainingMs
	s.IsRunning = true
	s.EndsAt = &endsAt
	s.LastCompletedAt = nil
	return withStartEvent(s, nowMs)
}

func Pause(s State, nowMs int64) State {
	if !s.IsRunning {
		return withCompactedStats(s, nowMs)
	}
	s.RemainingMs = s.RemainingAt(nowMs)
	s.IsRunning = false
	s.EndsAt = nil
	return withPauseEvent(s, nowMs)
}

func Reset(s State) State {
	s.IsRunning = false
	s.EndsAt = nil
	s.RemainingMs = int64(s.Minutes) * msPerMinute
	s.LastCompletedAt = nil
	return s
}

func ResetWithEvent(s State, nowMs int64) State {
	return withResetEvent(Reset(s), nowMs)
}

func IncreaseMinutesBy(s State, step int, nowMs int64) State {
	return adjustMinutes(s, s.Minutes+step, nowMs)
}

func DecreaseMinutesBy(s State, step int, nowMs int64) State {
	return adjustMinutes(s, s.Minutes-step, nowMs)
}

func adjustMinutes(s State, target int, nowMs int64) State {
	if s.IsRunning {
		return s
	}
	from := s.Minutes
	minutes := ClampMinutes(target)
	s.Minutes = minutes
	s.RemainingMs = int64(minutes) * msPerMinute
	s.EndsAt = nil
	if minutes == from {
		return s
	}
	return withMinuteAdjustmentEvent(s, MinuteAdjustmentEvent{
		At:    nowMs,
		Delta: minutes - from,
		From:  from,
		To:    minutes,
	})
}

func ApplyPreset(s State, presetMinutes int, nowMs int64) State {
	if s.IsRunning {
		return s
	}
	from := s.Minutes
	minutes := ClampMinutes(presetMinutes)
	s.Minutes = minutes
	s.RemainingMs = int64(minutes) * msPerMinute
	s.EndsAt = nil
	s.LastCompletedAt = nil
	preset := minutes
	s.SelectedPreset = &preset
	if minutes == from {
		return s
	}
	return withMinuteAdjustmentEvent(s, MinuteAdjustmentEvent{
		At:    nowMs,
		Delta: minutes - from,
		From:  from,
		To:    minutes,
	})
}

func QuickStart(s State, presetMinutes int, nowMs int64) State {
	if s.IsRunning {
		return s
	}
	return Start(ApplyPreset(s, presetMinutes, nowMs), nowMs)
}

// NormalizeIfFinished transitions a running timer whose deadline has
// passed into the finished shape. Completion is attributed to the stored
// deadline, not to when it was observed; callers invoke this on every
// foreground tick.
func NormalizeIfFinished(s State, nowMs int64) State {
	if !s.IsRunning {
		return withCompactedStats(s, nowMs)
	}
	if s.RemainingAt(nowMs) > 0 {
		return withCompactedStats(s, nowMs)
	}

	completionAt := nowMs
	if s.EndsAt != nil {
		completionAt = *s.EndsAt
	}
	durationMs := int64(s.Minutes) * msPerMinute
	s.IsRunning = false
	s.EndsAt = nil
	s.RemainingMs = 0
	s.LastCompletedAt = &completionAt
	return withCompletionEvent(s, CompletionEvent{At: completionAt, DurationMs: durationMs})
}

// HydrateAfterLoad reconciles a persisted state against the current clock
// after an unknown execution gap. A running state without a deadline is
// corrupt or legacy data and is forced to not-running without logging a
// completion.
func HydrateAfterLoad(s State, nowMs int64) State {
	if !s.IsRunning {
		return withCompactedStats(s, nowMs)
	}
	if s.EndsAt == nil {
		s.IsRunning = false
		return withCompactedStats(s, nowMs)
	}

	remaining := s.RemainingAt(nowMs)
	if remaining <= 0 {
		completionAt := *s.EndsAt
		durationMs := int64(s.Minutes) * msPerMinute
		s.IsRunning = false
		s.RemainingMs = 0
		s.EndsAt = nil
		s.LastCompletedAt = &completionAt
		return withCompletionEvent(s, CompletionEvent{At: completionAt, DurationMs: durationMs})
	}

	// Still running: re-anchor the deadline to this process's clock so the
	// remaining duration survives sleep and hibernation.
	endsAt := nowMs + remaining
	s.RemainingMs = remaining
	s.EndsAt = &endsAt
	return withCompactedStats(s, nowMs)
}

// ShouldNotifyFinishedAfterLoad is the single predicate gating whether a
// completion notification must be (re)triggered after any load. The
// interactive command and the watchdog share it so both paths agree.
func ShouldNotifyFinishedAfterLoad(previous, hydrated State) bool {
	return previous.IsRunning && !hydrated.IsRunning && hydrated.RemainingMs == 0
}
