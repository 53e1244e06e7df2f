package views

import (
	"fmt"
	"strings"
)

type TimerPanelData struct {
	Countdown        string
	Running          bool
	Minutes          int
	ProgressView     string
	ProgressPct      int
	Presets          []int
	SelectedPreset   *int
	Style            string
	PrimaryLabel     string
	ShowFinishPrompt bool
	FinishPromptText string
}

func RenderTimerPanel(data TimerPanelData) string {
	var b strings.Builder
	b.WriteString("timer:\n")
	state := "paused"
	if data.Running {
		state = "running"
	}
	fmt.Fprintf(&b, "  %s  (%s, %d min session)\n", data.Countdown, state, data.Minutes)
	fmt.Fprintf(&b, "  %s %d%%\n", data.ProgressView, data.ProgressPct)
	b.WriteString("  presets: " + renderPresetRow(data.Presets, data.SelectedPreset) + "\n")
	fmt.Fprintf(&b, "  style: %s\n", data.Style)
	fmt.Fprintf(&b, "actions: [space]%s [r]reset [+/-]minutes [p]preset [enter]quick-start\n", data.PrimaryLabel)
	if data.ShowFinishPrompt {
		b.WriteString("\n*** session finished ***\n")
		b.WriteString(data.FinishPromptText + "\n")
	}
	return strings.TrimSpace(b.String())
}

func renderPresetRow(presets []int, selected *int) string {
	if len(presets) == 0 {
		return "(none)"
	}
	parts := make([]string, 0, len(presets))
	for _, p := range presets {
		if selected != nil && p == *selected {
			parts = append(parts, fmt.Sprintf("[%d]", p))
			continue
		}
		parts = append(parts, fmt.Sprintf("%d", p))
	}
	return strings.Join(parts, " ")
}

type StatsPanelData struct {
	MarkdownView string
}

func RenderStatsPanel(data StatsPanelData) string {
	var b strings.Builder
	b.WriteString("stats:\n")
	b.WriteString("actions: [c]clear stats [1]timer [3]diagnostics\n")
	b.WriteString(data.MarkdownView)
	return strings.TrimSpace(b.String())
}

type DiagnosticsPanelData struct {
	Privacy      string
	MarkdownView string
}

func RenderDiagnosticsPanel(data DiagnosticsPanelData) string {
	var b strings.Builder
	b.WriteString("diagnostics:\n")
	fmt.Fprintf(&b, "actions: [f]privacy (%s) [1]timer [2]stats\n", data.Privacy)
	b.WriteString(data.MarkdownView)
	return strings.TrimSpace(b.String())
}

type StyleChooserData struct {
	Current string
}

func RenderStyleChooser(data StyleChooserData) string {
	var b strings.Builder
	b.WriteString("choose a session style:\n")
	for _, option := range []struct{ name, blurb string }{
		{"classic", "fixed sessions, restart from the chosen preset"},
		{"flow", "open-ended, extend in five-minute increments"},
	} {
		marker := " "
		if option.name == data.Current {
			marker = ">"
		}
		fmt.Fprintf(&b, "%s %s: %s\n", marker, option.name, option.blurb)
	}
	b.WriteString("[y]switch style [esc]keep current\n")
	return strings.TrimSpace(b.String())
}

type HelpPanelData struct {
	Bindings []string
	HelpView string
}

func RenderHelpPanel(data HelpPanelData) string {
	var b strings.Builder
	b.WriteString("help:\n")
	for _, line := range data.Bindings {
		b.WriteString(line + "\n")
	}
	if data.HelpView != "" {
		b.WriteString(data.HelpView)
	}
	return strings.TrimSpace(b.String())
}
