package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/robfig/cron/v3"

	"github.com/sandeepkv93/focusd/internal/config"
	"github.com/sandeepkv93/focusd/internal/diagnostics"
	"github.com/sandeepkv93/focusd/internal/notify"
	"github.com/sandeepkv93/focusd/internal/outbox"
	"github.com/sandeepkv93/focusd/internal/settings"
	"github.com/sandeepkv93/focusd/internal/sound"
	"github.com/sandeepkv93/focusd/internal/storage"
	"github.com/sandeepkv93/focusd/internal/update"
	"github.com/sandeepkv93/focusd/internal/watchdog"
)

const appVersion = "0.3.0"

var (
	configPath   = flag.String("c", "", "Path to configuration file (defaults to ./config.yaml, ~/.config/focusd/config.yaml, /etc/focusd/config.yaml)")
	logPath      = flag.String("log", "", "Path to log file (optional, defaults to stderr)")
	watchdogPass = flag.Bool("watchdog", false, "Run a single watchdog pass and exit")
	watchMode    = flag.Bool("watch", false, "Run watchdog passes on the configured cron schedule")
)

func setupLogging(logFilePath string) (*os.File, error) {
	if logFilePath == "" {
		log.SetOutput(os.Stderr)
		return nil, nil
	}

	dir := filepath.Dir(logFilePath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}
	file, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", logFilePath, err)
	}
	log.SetOutput(file)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Printf("Logging to file: %s", logFilePath)
	return file, nil
}

type app struct {
	kv       *storage.SQLiteKV
	states   *storage.TimerStateStore
	notifier *notify.Notifier
	diag     *diagnostics.Recorder
	settings *settings.Store
	pass     *watchdog.Pass
	cfg      *config.Config
}

func newApp(cfg *config.Config) (*app, error) {
	kv, err := storage.OpenSQLiteKV(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.DatabasePath, err)
	}

	states := storage.NewTimerStateStore(kv)
	store := outbox.NewStore(kv)
	diag := diagnostics.NewRecorder(kv)
	markers := settings.NewStore(kv)

	channels := []notify.Channel{
		notify.WriterChannel{ChannelName: notify.ChannelHUD, Out: os.Stderr},
	}
	if cfg.DesktopNotifications {
		channels = append(channels, notify.DesktopChannel{})
	}
	channels = append(channels, notify.WriterChannel{ChannelName: notify.ChannelToast, Out: os.Stderr})

	pipeline := notify.NewPipeline(store, channels, diag)
	pipeline.BaseDelayMs = cfg.Retry.BaseDelayMs
	pipeline.MaxDelayMs = cfg.Retry.MaxDelayMs

	var player sound.Player = sound.BellPlayer{}
	if cfg.Sound.Path != "" {
		player = sound.ExecPlayer{}
	}
	notifier := notify.NewNotifier(pipeline, player, sound.NewCooldown(kv), markers, diag)
	notifier.SoundPath = cfg.Sound.Path
	notifier.SoundMode = sound.NormalizeMode(cfg.Sound.Mode)
	notifier.SoundMaxSec = cfg.Sound.MaxSeconds

	pass := watchdog.NewPass(states, notifier, diag)
	pass.DrainLimit = cfg.DrainLimit

	return &app{
		kv:       kv,
		states:   states,
		notifier: notifier,
		diag:     diag,
		settings: markers,
		pass:     pass,
		cfg:      cfg,
	}, nil
}

func (a *app) close() {
	if err := a.kv.Close(); err != nil {
		log.Printf("close database: %v", err)
	}
}

func (a *app) runWatchdogOnce(ctx context.Context) error {
	return a.pass.Run(ctx, notify.LaunchBackground)
}

func (a *app) runWatchLoop() error {
	runner, err := watchdog.NewRunner(a.cfg.WatchdogCron, a.pass)
	if err != nil {
		return err
	}
	runner.Start()
	log.Printf("watchdog loop running on schedule %q", a.cfg.WatchdogCron)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	runner.Stop()
	return nil
}

func (a *app) runTUI(ctx context.Context) error {
	// The foreground launch is also a hydration point: a finish that
	// happened while nothing was running gets detected and delivered
	// before the first frame.
	if err := a.pass.Run(ctx, notify.LaunchUserInitiated); err != nil {
		return err
	}
	watchdog.Arm(ctx, a.diag, func() error {
		_, err := cron.ParseStandard(a.cfg.WatchdogCron)
		return err
	})

	state, err := a.states.Load(ctx)
	if err != nil {
		return fmt.Errorf("load timer state: %w", err)
	}

	model := update.NewModel(state, update.Deps{
		States:     a.states,
		Notifier:   a.notifier,
		Diag:       a.diag,
		Settings:   a.settings,
		AppVersion: appVersion,
		UIDensity:  a.cfg.UIDensity,
	})
	model.DecisionPending = a.settings.DecisionPending(ctx)

	_, err = tea.NewProgram(model).Run()
	return err
}

func main() {
	flag.Parse()

	logFile, logErr := setupLogging(*logPath)
	if logErr != nil {
		fmt.Fprintf(os.Stderr, "Error setting up file logging: %v. Logging to stderr instead.\n", logErr)
		log.SetOutput(os.Stderr)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	application, err := newApp(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to create application: %v", err)
	}
	defer application.close()

	ctx := context.Background()
	switch {
	case *watchdogPass:
		err = application.runWatchdogOnce(ctx)
	case *watchMode:
		err = application.runWatchLoop()
	default:
		err = application.runTUI(ctx)
	}
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
}
