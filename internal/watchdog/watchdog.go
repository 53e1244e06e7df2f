// Package watchdog is the recovery half of completion delivery: a pass
// that detects finishes which happened while no process was alive and
// drains outbox events still waiting for a retry. It tolerates runs
// that are arbitrarily far apart, or that never happen at all.
package watchdog

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sandeepkv93/focusd/internal/diagnostics"
	"github.com/sandeepkv93/focusd/internal/notify"
	"github.com/sandeepkv93/focusd/internal/storage"
	"github.com/sandeepkv93/focusd/internal/timer"
)

const DefaultDrainLimit = 3

// Pass is one watchdog invocation over the shared persisted state.
type Pass struct {
	States     *storage.TimerStateStore
	Notifier   *notify.Notifier
	Diag       *diagnostics.Recorder
	DrainLimit int
	now        func() int64
}

func NewPass(states *storage.TimerStateStore, notifier *notify.Notifier, diag *diagnostics.Recorder) *Pass {
	return &Pass{
		States:     states,
		Notifier:   notifier,
		Diag:       diag,
		DrainLimit: DefaultDrainLimit,
		now:        func() int64 { return time.Now().UnixMilli() },
	}
}

func (p *Pass) WithClock(now func() int64) *Pass {
	p.now = now
	return p
}

// Run executes one pass: load, hydrate against the current clock,
// notify if the finish boundary was crossed while nobody was watching,
// persist the hydrated state unconditionally, then drain a bounded
// batch of deliverable outbox events.
func (p *Pass) Run(ctx context.Context, launch notify.Launch) error {
	previous, err := p.States.Load(ctx)
	if err != nil {
		return fmt.Errorf("watchdog: load timer state: %w", err)
	}

	nowMs := p.now()
	hydrated := timer.HydrateAfterLoad(previous, nowMs)
	if p.Diag != nil {
		p.Diag.RecordWatchdogRun(ctx, string(launch))
	}

	if timer.ShouldNotifyFinishedAfterLoad(previous, hydrated) && hydrated.LastCompletedAt != nil {
		p.Notifier.TimerFinished(ctx, *hydrated.LastCompletedAt, launch)
	}

	// Saved even when nothing changed, so the next run observes the
	// already-finished state and does not re-detect the same finish.
	if err := p.States.Save(ctx, hydrated); err != nil {
		return fmt.Errorf("watchdog: save timer state: %w", err)
	}

	p.drain(ctx, launch)
	return nil
}

func (p *Pass) drain(ctx context.Context, launch notify.Launch) {
	limit := p.DrainLimit
	if limit < 1 {
		limit = DefaultDrainLimit
	}
	for _, event := range p.Notifier.Pipeline.Outbox.Deliverable(ctx, limit) {
		result := p.Notifier.Deliver(ctx, event.CompletionID, launch)
		if p.Diag != nil {
			p.Diag.RecordRetryDrainAttempt(ctx, fmt.Sprintf("completion %d: %s", event.CompletionID, result))
		}
	}
}

// Runner invokes the pass on a cron schedule for -watch mode.
type Runner struct {
	cron *cron.Cron
}

func NewRunner(spec string, pass *Pass) (*Runner, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		_ = pass.Run(context.Background(), notify.LaunchBackground)
	})
	if err != nil {
		return nil, fmt.Errorf("watchdog: invalid cron spec %q: %w", spec, err)
	}
	return &Runner{cron: c}, nil
}

func (r *Runner) Start() { r.cron.Start() }

// Stop waits for an in-flight pass to finish before returning.
func (r *Runner) Stop() {
	<-r.cron.Stop().Done()
}

// Arm asks the host to schedule a future background run and records
// the outcome. Scheduling is fire-and-forget: the host decides actual
// timing and may never run it.
func Arm(ctx context.Context, diag *diagnostics.Recorder, schedule func() error) {
	outcome := diagnostics.OutcomeArmed
	if schedule == nil {
		outcome = diagnostics.OutcomeArmFailed
	} else if err := schedule(); err != nil {
		outcome = diagnostics.OutcomeArmFailed
	}
	if diag != nil {
		diag.RecordArmAttempt(ctx, outcome)
	}
}
