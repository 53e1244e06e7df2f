// Package sound plays the completion chime. Playback is best effort: a
// missing player binary or an unreadable file degrades to the terminal
// bell, never to an error the caller has to handle.
package sound

import (
	"os"
	"os/exec"
	"runtime"
	"time"
)

const (
	MinDurationSec     = 1
	MaxDurationSec     = 15
	DefaultDurationSec = 5
)

// ClampDurationSec keeps a configured playback cap inside the supported
// range; non-positive values fall back to the default.
func ClampDurationSec(seconds int) int {
	if seconds <= 0 {
		return DefaultDurationSec
	}
	if seconds < MinDurationSec {
		return MinDurationSec
	}
	if seconds > MaxDurationSec {
		return MaxDurationSec
	}
	return seconds
}

// Handle is a started playback. Wait joins it; Stop kills the player
// process early. Both are safe on the zero-cost bell fallback.
type Handle struct {
	cmd  *exec.Cmd
	done chan struct{}
}

func (h *Handle) Wait() {
	if h == nil || h.done == nil {
		return
	}
	<-h.done
}

func (h *Handle) Stop() {
	if h == nil || h.cmd == nil || h.cmd.Process == nil {
		return
	}
	_ = h.cmd.Process.Kill()
}

type Player interface {
	// Play starts the configured sound and returns a joinable handle.
	// The player never blocks the caller and never returns an error:
	// failures fall through to the terminal bell.
	Play(path string, maxDurationSec int) *Handle
}

// ExecPlayer shells out to the platform audio player and enforces the
// duration cap by killing the process when it is exceeded.
type ExecPlayer struct{}

func (ExecPlayer) Play(path string, maxDurationSec int) *Handle {
	maxDurationSec = ClampDurationSec(maxDurationSec)
	cmd := playerCommand(path)
	if cmd == nil || cmd.Start() != nil {
		ringBell()
		return &Handle{}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		waited := make(chan struct{})
		go func() {
			_ = cmd.Wait()
			close(waited)
		}()
		select {
		case <-waited:
		case <-time.After(time.Duration(maxDurationSec) * time.Second):
			_ = cmd.Process.Kill()
			<-waited
		}
	}()
	return &Handle{cmd: cmd, done: done}
}

func playerCommand(path string) *exec.Cmd {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("afplay", path)
	case "linux":
		if _, err := exec.LookPath("paplay"); err == nil {
			return exec.Command("paplay", path)
		}
		if _, err := exec.LookPath("aplay"); err == nil {
			return exec.Command("aplay", "-q", path)
		}
		return nil
	default:
		return nil
	}
}

func ringBell() {
	_, _ = os.Stderr.WriteString("\a")
}

// BellPlayer is the fallback used when no custom sound file is
// configured. It rings the terminal bell and returns immediately.
type BellPlayer struct{}

func (BellPlayer) Play(string, int) *Handle {
	ringBell()
	return &Handle{}
}
