package diagnostics

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/sandeepkv93/focusd/internal/timer"
)

type PrivacyMode string

const (
	PrivacySafe PrivacyMode = "safe"
	PrivacyFull PrivacyMode = "full"
)

const (
	reportVersion   = 2
	reportTimeline  = 20
	maxErrorRunes   = 240
	redactedSegment = "[redacted]"
)

var userPathPattern = regexp.MustCompile(`(/(?:Users|home)/)[^/\s"']+`)

// Report is the rendered troubleshooting document. Safe mode strips
// user paths and the hostname and truncates long errors; full mode is
// for the user's own eyes.
type ReportParams struct {
	State       timer.State
	NowMs       int64
	AppVersion  string
	Privacy     PrivacyMode
	LanguageTag string
}

func (r *Recorder) BuildReport(ctx context.Context, params ReportParams) string {
	if params.Privacy != PrivacyFull {
		params.Privacy = PrivacySafe
	}
	snap := r.Snapshot(ctx)
	timeline := r.Timeline(ctx)
	if len(timeline) > reportTimeline {
		timeline = timeline[len(timeline)-reportTimeline:]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# focusd diagnostics report (v%d)\n\n", reportVersion)
	fmt.Fprintf(&b, "- generated: %s\n", formatTimestamp(params.NowMs))
	fmt.Fprintf(&b, "- app version: %s\n", valueOr(params.AppVersion, "unknown"))
	fmt.Fprintf(&b, "- privacy: %s\n", params.Privacy)
	if params.LanguageTag != "" {
		fmt.Fprintf(&b, "- language: %s\n", params.LanguageTag)
	}

	b.WriteString("\n## Timer snapshot\n\n")
	fmt.Fprintf(&b, "- running: %v\n", params.State.IsRunning)
	fmt.Fprintf(&b, "- minutes: %d\n", params.State.Minutes)
	fmt.Fprintf(&b, "- remaining: %s\n", timer.FormatDuration(params.State.DisplayRemainingAt(params.NowMs)))
	fmt.Fprintf(&b, "- deadline: %s\n", formatOptional(params.State.EndsAt))
	fmt.Fprintf(&b, "- last completed: %s\n", formatOptional(params.State.LastCompletedAt))
	fmt.Fprintf(&b, "- style: %s\n", params.State.Style)

	b.WriteString("\n## Watchdog\n\n")
	fmt.Fprintf(&b, "- last run: %s (%s)\n", formatOptional(snap.LastRunAt), valueOr(snap.LastRunLaunchType, "-"))
	fmt.Fprintf(&b, "- last notify: %s (%s)\n", formatOptional(snap.LastNotifyAt), valueOr(snap.LastNotifyOutcome, "-"))
	if snap.LastNotifyError != "" {
		fmt.Fprintf(&b, "- last notify error: %s\n", sanitize(snap.LastNotifyError, params.Privacy))
	}
	fmt.Fprintf(&b, "- last retry drain: %s (%s)\n", formatOptional(snap.LastRetryDrainAt), valueOr(snap.LastRetryDrainOutcome, "-"))
	fmt.Fprintf(&b, "- last arm: %s (%s)\n", formatOptional(snap.LastArmAt), valueOr(snap.LastArmOutcome, "-"))
	fmt.Fprintf(&b, "- last sound: %s (%s)\n", formatOptional(snap.LastSoundAt), valueOr(snap.LastSoundOutcome, "-"))

	b.WriteString("\n## Timeline\n\n")
	if len(timeline) == 0 {
		b.WriteString("(empty)\n")
	} else {
		for _, entry := range timeline {
			detail := sanitize(entry.Detail, params.Privacy)
			if detail == "" {
				fmt.Fprintf(&b, "- %s %s\n", formatTimestamp(entry.At), entry.Kind)
			} else {
				fmt.Fprintf(&b, "- %s %s: %s\n", formatTimestamp(entry.At), entry.Kind, detail)
			}
		}
	}

	b.WriteString("\n## Integrity\n\n")
	for _, flag := range integrityFlags(params.State, params.NowMs) {
		fmt.Fprintf(&b, "- %s\n", flag)
	}

	b.WriteString("\n## Reproduction\n\n")
	b.WriteString("1. Expected: \n")
	b.WriteString("2. Observed: \n")
	b.WriteString("3. Timer length and start time: \n")
	b.WriteString("4. Was the app in the foreground when it should have rung? \n")

	return b.String()
}

func integrityFlags(state timer.State, nowMs int64) []string {
	flags := make([]string, 0, 3)
	if state.IsRunning && state.EndsAt == nil {
		flags = append(flags, "WARN running without a deadline")
	}
	if state.RemainingMs < 0 {
		flags = append(flags, "WARN negative remaining time")
	}
	if state.IsRunning && state.EndsAt != nil && *state.EndsAt <= nowMs {
		flags = append(flags, "WARN deadline in the past while still running")
	}
	if len(flags) == 0 {
		flags = append(flags, "OK no inconsistencies detected")
	}
	return flags
}

func sanitize(text string, privacy PrivacyMode) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if privacy == PrivacyFull {
		return text
	}
	text = userPathPattern.ReplaceAllString(text, "${1}"+redactedSegment)
	if host, err := os.Hostname(); err == nil && host != "" {
		text = strings.ReplaceAll(text, host, redactedSegment)
	}
	runes := []rune(text)
	if len(runes) > maxErrorRunes {
		text = string(runes[:maxErrorRunes]) + "…"
	}
	return text
}

func formatTimestamp(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04:05Z")
}

func formatOptional(ms *int64) string {
	if ms == nil {
		return "-"
	}
	return formatTimestamp(*ms)
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
