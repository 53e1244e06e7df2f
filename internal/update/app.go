package update

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/focusd/internal/notify"
	"github.com/sandeepkv93/focusd/internal/timer"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tickMsg:
		return m.onTick(typed.nowMs)
	case deliveryResultMsg:
		return m.onDeliveryResult(typed.result), nil
	case tea.KeyMsg:
		return m.onKey(typed)
	}
	return m, nil
}

// onTick advances the countdown and fires delivery when the finish
// boundary is crossed. The notification runs as a command so a slow
// channel never blocks rendering.
func (m Model) onTick(nowMs int64) (tea.Model, tea.Cmd) {
	previous := m.State
	m.State = timer.NormalizeIfFinished(previous, nowMs)

	cmds := []tea.Cmd{tickCmd()}
	if timer.ShouldNotifyFinishedAfterLoad(previous, m.State) && m.State.LastCompletedAt != nil {
		m.persist()
		completionID := *m.State.LastCompletedAt
		notifier := m.deps.Notifier
		cmds = append(cmds, func() tea.Msg {
			result := notifier.TimerFinished(context.Background(), completionID, notify.LaunchUserInitiated)
			return deliveryResultMsg{result: result}
		})
	}
	return m, tea.Batch(cmds...)
}

func (m Model) onDeliveryResult(result notify.Result) Model {
	switch result {
	case notify.ResultDelivered:
		m.DecisionPending = true
		m.Status = StatusBar{Text: "session finished"}
	case notify.ResultFailed:
		m.Status = StatusBar{Text: "error: notification delivery failed, retry scheduled", IsError: true}
	case notify.ResultSkipped:
		m.Status = StatusBar{Text: "notification already handled elsewhere"}
	}
	return m
}

func (m Model) onKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	nowMs := m.deps.Now()

	switch msg.String() {
	case "ctrl+c", "q":
		m.Quitting = true
		m.persist()
		return m, tea.Quit
	case "1":
		m.CurrentScreen = ScreenTimer
		return m, nil
	case "2":
		m.CurrentScreen = ScreenStats
		return m, nil
	case "3":
		m.CurrentScreen = ScreenDiagnostics
		return m, nil
	case "?":
		m.HelpVisible = !m.HelpVisible
		return m, nil
	case " ", "space":
		return m.onPrimary(nowMs), nil
	case "r":
		m.State = timer.ResetWithEvent(m.State, nowMs)
		m.clearDecision()
		m.persist()
		m.Status = StatusBar{Text: "timer reset"}
		return m, nil
	case "+", "=":
		return m.onAdjust(1, nowMs), nil
	case "-":
		return m.onAdjust(-1, nowMs), nil
	case "p":
		return m.onNextPreset(nowMs), nil
	case "enter":
		return m.onEnter(nowMs), nil
	case "esc":
		if m.DecisionPending {
			m.clearDecision()
			m.Status = StatusBar{Text: "kept the timer as is"}
		}
		return m, nil
	case "c":
		if m.CurrentScreen == ScreenStats {
			m.State = timer.ClearStats(m.State, nowMs)
			m.persist()
			m.Status = StatusBar{Text: "stats cleared"}
		}
		return m, nil
	case "f":
		if m.CurrentScreen == ScreenDiagnostics {
			m.Privacy = togglePrivacy(m.Privacy)
			m.Status = StatusBar{Text: fmt.Sprintf("report privacy: %s", m.Privacy)}
		}
		return m, nil
	case "l":
		return m.onToggleLanguage(), nil
	case "y":
		return m.onToggleStyle(), nil
	}
	return m, nil
}

func (m Model) onPrimary(nowMs int64) Model {
	actions := timer.GetAvailableActions(m.State, true)
	if actions.Primary == timer.PrimaryPause {
		m.State = timer.Pause(m.State, nowMs)
		m.Status = StatusBar{Text: "timer paused"}
	} else {
		m.State = timer.Start(m.State, nowMs)
		m.clearDecision()
		m.Status = StatusBar{Text: "timer started"}
	}
	m.persist()
	return m
}

func (m Model) onAdjust(delta int, nowMs int64) Model {
	actions := timer.GetAvailableActions(m.State, true)
	if delta > 0 && !actions.CanIncrease {
		return m
	}
	if delta < 0 && !actions.CanDecrease {
		return m
	}
	if delta > 0 {
		m.State = timer.IncreaseMinutesBy(m.State, delta, nowMs)
	} else {
		m.State = timer.DecreaseMinutesBy(m.State, -delta, nowMs)
	}
	m.persist()
	m.Status = StatusBar{Text: fmt.Sprintf("session length: %d min", m.State.Minutes)}
	return m
}

func (m Model) onNextPreset(nowMs int64) Model {
	actions := timer.GetAvailableActions(m.State, true)
	if !actions.CanApplyPreset || len(actions.Presets) == 0 {
		return m
	}
	next := actions.Presets[0]
	if actions.SelectedPreset != nil {
		for i, p := range actions.Presets {
			if p == *actions.SelectedPreset {
				next = actions.Presets[(i+1)%len(actions.Presets)]
				break
			}
		}
	}
	m.State = timer.ApplyPreset(m.State, next, nowMs)
	m.persist()
	m.Status = StatusBar{Text: fmt.Sprintf("preset: %d min", next)}
	return m
}

// onEnter either answers the finish prompt or quick-starts the selected
// preset. The prompt's action depends on the session style: flow
// extends by five minutes, classic restarts the chosen preset.
func (m Model) onEnter(nowMs int64) Model {
	actions := timer.GetAvailableActions(m.State, true)
	if m.DecisionPending {
		if actions.CompletionAction == timer.CompletionExtendFive {
			m.State = timer.QuickStart(m.State, 5, nowMs)
			m.Status = StatusBar{Text: "extended by 5 minutes"}
		} else if actions.SelectedPreset != nil {
			m.State = timer.QuickStart(m.State, *actions.SelectedPreset, nowMs)
			m.Status = StatusBar{Text: fmt.Sprintf("restarted %d min session", *actions.SelectedPreset)}
		}
		m.clearDecision()
		m.persist()
		return m
	}
	if actions.CanQuickStart && actions.SelectedPreset != nil {
		m.State = timer.QuickStart(m.State, *actions.SelectedPreset, nowMs)
		m.persist()
		m.Status = StatusBar{Text: fmt.Sprintf("quick-started %d min session", *actions.SelectedPreset)}
	}
	return m
}

func (m Model) onToggleLanguage() Model {
	if m.deps.Settings == nil {
		return m
	}
	ctx := context.Background()
	next := settingsToggle(m.deps.Settings.Language(ctx))
	m.deps.Settings.SetLanguage(ctx, next)
	m.Status = StatusBar{Text: fmt.Sprintf("language: %s", next)}
	return m
}

func (m Model) onToggleStyle() Model {
	actions := timer.GetAvailableActions(m.State, true)
	if !actions.CanChangeStyle {
		return m
	}
	if m.State.EffectiveStyle() == timer.StyleClassic {
		m.State.Style = timer.StyleFlow
	} else {
		m.State.Style = timer.StyleClassic
	}
	m.State.StyleChoiceSeen = true
	m.persist()
	m.Status = StatusBar{Text: fmt.Sprintf("session style: %s", m.State.Style)}
	return m
}

func (m *Model) persist() {
	if m.deps.States == nil {
		return
	}
	if err := m.deps.States.Save(context.Background(), m.State); err != nil {
		m.Status = StatusBar{Text: fmt.Sprintf("error: save failed: %v", err), IsError: true}
	}
}

func (m *Model) clearDecision() {
	m.DecisionPending = false
	if m.deps.Settings != nil {
		m.deps.Settings.ClearDecisionPending(context.Background())
	}
}
