package update

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"

	"github.com/sandeepkv93/focusd/internal/diagnostics"
	"github.com/sandeepkv93/focusd/internal/settings"
	"github.com/sandeepkv93/focusd/internal/timer"
	"github.com/sandeepkv93/focusd/internal/views"
)

func (m Model) View() string {
	if m.Quitting {
		return "bye\n"
	}

	nowMs := m.deps.Now()
	var body string
	switch m.CurrentScreen {
	case ScreenStats:
		body = views.RenderStatsPanel(views.StatsPanelData{
			MarkdownView: views.RenderMarkdown(statsMarkdown(m.State, nowMs)),
		})
	case ScreenDiagnostics:
		body = views.RenderDiagnosticsPanel(views.DiagnosticsPanelData{
			Privacy:      string(m.Privacy),
			MarkdownView: views.RenderMarkdown(m.diagnosticsMarkdown(nowMs)),
		})
	default:
		body = m.renderTimerScreen(nowMs)
	}

	if !m.State.StyleChoiceSeen {
		body += "\n\n" + views.RenderStyleChooser(views.StyleChooserData{
			Current: string(m.State.EffectiveStyle()),
		})
	}

	toast := ""
	if m.HelpVisible {
		lines := make([]string, 0, 12)
		for _, kb := range m.bindings() {
			lines = append(lines, fmt.Sprintf("- %s: %s", kb.Key, kb.Action))
		}
		bindings := m.helpBindings()
		toast = views.RenderHelpPanel(views.HelpPanelData{
			Bindings: lines,
			HelpView: m.helpModel.View(helpKeyMap{short: bindings, full: [][]key.Binding{bindings}}),
		})
	}

	status := ""
	if m.Status.Text != "" {
		if m.Status.IsError {
			status = fmt.Sprintf("status: error: %s", strings.TrimPrefix(m.Status.Text, "error: "))
		} else {
			status = fmt.Sprintf("status: %s", m.Status.Text)
		}
	}

	return views.RenderApp(views.AppData{
		Header:     fmt.Sprintf("focusd | screen: %s", m.CurrentScreen),
		Body:       body,
		StatusLine: status,
		Toast:      toast,
		Footer:     "keys: [1]timer [2]stats [3]diagnostics [?]help [q]quit",
		Density:    m.deps.UIDensity,
	})
}

func (m Model) renderTimerScreen(nowMs int64) string {
	actions := timer.GetAvailableActions(m.State, true)
	total := int64(m.State.Minutes) * 60_000
	remaining := m.State.RemainingAt(nowMs)
	pct := 0.0
	if total > 0 {
		pct = float64(total-remaining) / float64(total)
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 1 {
		pct = 1
	}

	prompt := "press [enter] to restart the selected preset, [esc] to dismiss"
	if actions.CompletionAction == timer.CompletionExtendFive {
		prompt = "press [enter] to extend by 5 minutes, [esc] to dismiss"
	}

	return views.RenderTimerPanel(views.TimerPanelData{
		Countdown:        timer.FormatDuration(m.State.DisplayRemainingAt(nowMs)),
		Running:          m.State.IsRunning,
		Minutes:          m.State.Minutes,
		ProgressView:     m.timerProgress.ViewAs(pct),
		ProgressPct:      int(pct * 100),
		Presets:          actions.Presets,
		SelectedPreset:   actions.SelectedPreset,
		Style:            string(actions.Style),
		PrimaryLabel:     string(actions.Primary),
		ShowFinishPrompt: m.DecisionPending,
		FinishPromptText: prompt,
	})
}

func statsMarkdown(state timer.State, nowMs int64) string {
	day := timer.GetRollingStats24h(state, nowMs)
	week := timer.GetRollingProgress(state, nowMs)

	var b strings.Builder
	b.WriteString("## Last 24 hours\n\n")
	fmt.Fprintf(&b, "- starts: %d\n", day.Starts)
	fmt.Fprintf(&b, "- completions: %d\n", day.Completions)
	fmt.Fprintf(&b, "- focus time: %s\n", timer.FormatDuration(day.FocusTimeMs))
	fmt.Fprintf(&b, "- completion rate: %d%%\n", int(day.CompletionRate*100))

	b.WriteString("\n## Last 7 days\n\n")
	fmt.Fprintf(&b, "- starts: %d, completions: %d (%s)\n", week.Starts7d, week.Completions7d, trendText(week.CompletionTrendVsPrev7dPercent))
	fmt.Fprintf(&b, "- focus time: %s (%s)\n", timer.FormatDuration(week.FocusTimeMs7d), trendText(week.FocusTrendVsPrev7dPercent))
	fmt.Fprintf(&b, "- avg completed session: %s\n", timer.FormatDuration(week.AvgCompletedDurationMs7d))
	fmt.Fprintf(&b, "- interrupt rate: %d%%\n", int(week.InterruptRate7d*100))
	fmt.Fprintf(&b, "- avg adjustments per session: %.1f\n", week.AvgAdjustmentsPerSession7d)
	fmt.Fprintf(&b, "- active days: %d\n", week.ActiveCompletionDays7d)
	return b.String()
}

func trendText(pct *float64) string {
	if pct == nil {
		return "trend not available"
	}
	return fmt.Sprintf("%+.0f%% vs previous week", *pct)
}

func (m Model) diagnosticsMarkdown(nowMs int64) string {
	if m.deps.Diag == nil {
		return "_no diagnostics recorder_"
	}
	return m.deps.Diag.BuildReport(context.Background(), diagnostics.ReportParams{
		State:       m.State,
		NowMs:       nowMs,
		AppVersion:  m.deps.AppVersion,
		Privacy:     m.Privacy,
		LanguageTag: m.languageTag(),
	})
}

func (m Model) languageTag() string {
	if m.deps.Settings == nil {
		return ""
	}
	return string(m.deps.Settings.Language(context.Background()))
}

func togglePrivacy(p diagnostics.PrivacyMode) diagnostics.PrivacyMode {
	if p == diagnostics.PrivacyFull {
		return diagnostics.PrivacySafe
	}
	return diagnostics.PrivacyFull
}

func settingsToggle(lang settings.Language) settings.Language {
	if lang == settings.LanguageEnglish {
		return settings.LanguageRussian
	}
	return settings.LanguageEnglish
}
