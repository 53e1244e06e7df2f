// Package update is the bubbletea model for the foreground session: a
// per-second tick drives the pure state machine, and the finish
// boundary triggers the same delivery flow the watchdog uses.
package update

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/focusd/internal/diagnostics"
	"github.com/sandeepkv93/focusd/internal/notify"
	"github.com/sandeepkv93/focusd/internal/settings"
	"github.com/sandeepkv93/focusd/internal/storage"
	"github.com/sandeepkv93/focusd/internal/timer"
)

type Screen string

const (
	ScreenTimer       Screen = "Timer"
	ScreenStats       Screen = "Stats"
	ScreenDiagnostics Screen = "Diagnostics"
)

type StatusBar struct {
	Text    string
	IsError bool
}

// Deps is the impure surface the model talks to. Tests swap in memory
// stores and a fake clock.
type Deps struct {
	States     *storage.TimerStateStore
	Notifier   *notify.Notifier
	Diag       *diagnostics.Recorder
	Settings   *settings.Store
	Now        func() int64
	AppVersion string
	UIDensity  int
}

type Model struct {
	State           timer.State
	CurrentScreen   Screen
	Status          StatusBar
	HelpVisible     bool
	DecisionPending bool
	Privacy         diagnostics.PrivacyMode
	Quitting        bool

	deps          Deps
	timerProgress progress.Model
	helpModel     help.Model
}

type tickMsg struct {
	nowMs int64
}

type deliveryResultMsg struct {
	result notify.Result
}

func NewModel(state timer.State, deps Deps) Model {
	if deps.Now == nil {
		deps.Now = func() int64 { return time.Now().UnixMilli() }
	}
	return Model{
		State:         state,
		CurrentScreen: ScreenTimer,
		Privacy:       diagnostics.PrivacySafe,
		deps:          deps,
		timerProgress: progress.New(progress.WithDefaultGradient()),
		helpModel:     help.New(),
	}
}

func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg{nowMs: t.UnixMilli()}
	})
}

type KeyBinding struct {
	Key    string
	Action string
}

func (m Model) bindings() []KeyBinding {
	actions := timer.GetAvailableActions(m.State, true)
	primary := "start"
	if actions.Primary == timer.PrimaryPause {
		primary = "pause"
	}
	return []KeyBinding{
		{Key: "space", Action: primary + " timer"},
		{Key: "r", Action: "reset timer"},
		{Key: "+/-", Action: "adjust minutes"},
		{Key: "p", Action: "next preset"},
		{Key: "enter", Action: "quick-start selected preset"},
		{Key: "1/2/3", Action: "timer / stats / diagnostics"},
		{Key: "c", Action: "clear stats (stats screen)"},
		{Key: "f", Action: "toggle report privacy (diagnostics)"},
		{Key: "l", Action: "toggle language"},
		{Key: "y", Action: "switch session style"},
		{Key: "?", Action: "toggle help"},
		{Key: "q", Action: "quit"},
	}
}

type helpKeyMap struct {
	short []key.Binding
	full  [][]key.Binding
}

func (k helpKeyMap) ShortHelp() []key.Binding  { return k.short }
func (k helpKeyMap) FullHelp() [][]key.Binding { return k.full }

func (m Model) helpBindings() []key.Binding {
	out := make([]key.Binding, 0, 12)
	for _, kb := range m.bindings() {
		out = append(out, key.NewBinding(key.WithKeys(kb.Key), key.WithHelp(kb.Key, kb.Action)))
	}
	return out
}
