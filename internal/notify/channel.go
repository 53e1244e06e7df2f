// Package notify carries a finished timer to the user: an ordered list
// of channels, a delivery pipeline over the completion outbox, and the
// orchestration around sound and follow-up markers.
package notify

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"
)

var ErrUnsupportedPlatform = errors.New("notify: no desktop notifier for this platform")

// Launch says who caused the process invocation that detected the
// completion. Background launches must block on everything that has to
// finish before the host may kill the process.
type Launch string

const (
	LaunchUserInitiated Launch = "user-initiated"
	LaunchBackground    Launch = "background"
)

func (l Launch) IsUserInitiated() bool { return l == LaunchUserInitiated }

// Channel is one concrete way of surfacing a notification. Send is a
// single fallible call; the pipeline owns ordering and fallback.
type Channel interface {
	Name() string
	Send(title, message string) error
}

const (
	ChannelHUD     = "hud"
	ChannelDesktop = "system-notification"
	ChannelToast   = "toast"
)

// WriterChannel prints the notification to a sink. It backs both the
// HUD line and the toast fallback: in a terminal app those are status
// surfaces, not OS facilities.
type WriterChannel struct {
	ChannelName string
	Out         io.Writer
}

func (c WriterChannel) Name() string { return c.ChannelName }

func (c WriterChannel) Send(title, message string) error {
	if c.Out == nil {
		return fmt.Errorf("notify: %s channel has no sink", c.ChannelName)
	}
	_, err := fmt.Fprintf(c.Out, "%s: %s\n", title, message)
	return err
}

// DesktopChannel shells out to the platform notifier.
type DesktopChannel struct{}

func (DesktopChannel) Name() string { return ChannelDesktop }

func (DesktopChannel) Send(title, message string) error {
	switch runtime.GOOS {
	case "linux":
		return exec.Command("notify-send", title, message).Run()
	case "darwin":
		script := fmt.Sprintf(`display notification "%s" with title "%s"`, escapeAppleScript(message), escapeAppleScript(title))
		return exec.Command("osascript", "-e", script).Run()
	default:
		return ErrUnsupportedPlatform
	}
}

func escapeAppleScript(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}
