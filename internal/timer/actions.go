package timer

import "fmt"

// PrimaryAction is the action a generic "toggle" input should take.
type PrimaryAction string

const (
	PrimaryStart PrimaryAction = "start"
	PrimaryPause PrimaryAction = "pause"
)

// CompletionPrimaryAction is what the UI offers first once a session ends.
type CompletionPrimaryAction string

const (
	CompletionExtendFive     CompletionPrimaryAction = "extend-5"
	CompletionContinuePreset CompletionPrimaryAction = "continue-preset"
)

// AvailableActions is a pure projection powering UI key enablement.
type AvailableActions struct {
	Primary          PrimaryAction
	CanIncrease      bool
	CanDecrease      bool
	CanApplyPreset   bool
	CanQuickStart    bool
	CanReset         bool
	CanResetToPreset bool
	CanChangeStyle   bool
	Presets          []int
	SelectedPreset   *int
	Style            Style
	CompletionAction CompletionPrimaryAction
}

// NormalizedPresets returns the preset ladder with duplicates and
// out-of-range values removed.
func NormalizedPresets(s State) []int {
	raw := s.Presets
	if len(raw) == 0 {
		raw = DefaultPresets
	}
	seen := make(map[int]struct{}, len(raw))
	out := make([]int, 0, len(raw))
	for _, v := range raw {
		minutes := ClampMinutes(v)
		if _, dup := seen[minutes]; dup {
			continue
		}
		seen[minutes] = struct{}{}
		out = append(out, minutes)
	}
	return out
}

func GetAvailableActions(s State, ready bool) AvailableActions {
	presets := NormalizedPresets(s)
	selected := selectedPresetOf(s, presets)

	primary := PrimaryStart
	if s.IsRunning {
		primary = PrimaryPause
	}
	completionAction := CompletionContinuePreset
	if s.EffectiveStyle() == StyleFlow {
		completionAction = CompletionExtendFive
	}

	actions := AvailableActions{
		Primary:          primary,
		Presets:          presets,
		SelectedPreset:   selected,
		Style:            s.EffectiveStyle(),
		CompletionAction: completionAction,
	}
	if !ready {
		return actions
	}

	canMutate := !s.IsRunning
	actions.CanIncrease = canMutate && s.Minutes < MaxMinutes
	actions.CanDecrease = canMutate && s.Minutes > MinMinutes
	actions.CanApplyPreset = canMutate
	actions.CanQuickStart = canMutate
	actions.CanReset = true
	actions.CanResetToPreset = canMutate && selected != nil && s.Minutes != *selected
	actions.CanChangeStyle = canMutate
	return actions
}

func selectedPresetOf(s State, presets []int) *int {
	if s.SelectedPreset != nil {
		requested := ClampMinutes(*s.SelectedPreset)
		if containsInt(presets, requested) {
			return &requested
		}
	}
	if containsInt(presets, s.Minutes) {
		v := s.Minutes
		return &v
	}
	if containsInt(presets, DefaultMinutes) {
		v := DefaultMinutes
		return &v
	}
	if len(presets) > 0 {
		v := presets[0]
		return &v
	}
	return nil
}

func containsInt(in []int, v int) bool {
	for _, item := range in {
		if item == v {
			return true
		}
	}
	return false
}

// FormatDuration renders remaining time as M:SS, rounding up partial
// seconds so the display never shows 0:00 while time remains.
func FormatDuration(totalMs int64) string {
	if totalMs < 0 {
		totalMs = 0
	}
	totalSeconds := (totalMs + 999) / 1000
	return fmt.Sprintf("%d:%02d", totalSeconds/60, totalSeconds%60)
}
