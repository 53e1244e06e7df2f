// Package diagnostics keeps a small persisted trail of what the
// watchdog and the notifier actually did, so a "my timer never rang"
// report can be answered from the device itself. Everything here is
// best effort: a storage failure drops the record, never the caller.
package diagnostics

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sandeepkv93/focusd/internal/storage"
)

const timelineCapacity = 100

// Outcome values recorded for notify, drain, arm and sound attempts.
const (
	OutcomeDelivered = "delivered"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
	OutcomePlayed    = "played"
	OutcomeMuted     = "muted"
	OutcomeArmed     = "armed"
	OutcomeArmFailed = "arm-failed"
)

// Snapshot is the last-attempt view persisted under its own key. Each
// subsystem overwrites only its own fields.
type Snapshot struct {
	LastRunAt             *int64 `json:"lastRunAt,omitempty"`
	LastRunLaunchType     string `json:"lastRunLaunchType,omitempty"`
	LastNotifyAt          *int64 `json:"lastNotifyAt,omitempty"`
	LastNotifyOutcome     string `json:"lastNotifyOutcome,omitempty"`
	LastNotifyError       string `json:"lastNotifyError,omitempty"`
	LastRetryDrainAt      *int64 `json:"lastRetryDrainAt,omitempty"`
	LastRetryDrainOutcome string `json:"lastRetryDrainOutcome,omitempty"`
	LastArmAt             *int64 `json:"lastArmAt,omitempty"`
	LastArmOutcome        string `json:"lastArmOutcome,omitempty"`
	LastSoundAt           *int64 `json:"lastSoundAt,omitempty"`
	LastSoundOutcome      string `json:"lastSoundOutcome,omitempty"`
}

// Entry is one timeline row. The timeline is a ring of the most recent
// attempts across all subsystems, newest last.
type Entry struct {
	At     int64  `json:"at"`
	Kind   string `json:"kind"`
	Detail string `json:"detail,omitempty"`
}

type Recorder struct {
	kv  storage.KV
	now func() int64
}

func NewRecorder(kv storage.KV) *Recorder {
	return NewRecorderWithClock(kv, func() int64 { return time.Now().UnixMilli() })
}

func NewRecorderWithClock(kv storage.KV, now func() int64) *Recorder {
	return &Recorder{kv: kv, now: now}
}

func (r *Recorder) Snapshot(ctx context.Context) Snapshot {
	raw, err := r.kv.Get(ctx, storage.KeyDiagnostics)
	if err != nil {
		return Snapshot{}
	}
	var snap Snapshot
	if json.Unmarshal([]byte(raw), &snap) != nil {
		return Snapshot{}
	}
	return snap
}

func (r *Recorder) Timeline(ctx context.Context) []Entry {
	raw, err := r.kv.Get(ctx, storage.KeyDiagnosticsEvents)
	if err != nil {
		return nil
	}
	var entries []Entry
	if json.Unmarshal([]byte(raw), &entries) != nil {
		return nil
	}
	return entries
}

func (r *Recorder) RecordWatchdogRun(ctx context.Context, launchType string) {
	now := r.now()
	r.update(ctx, func(snap *Snapshot) {
		snap.LastRunAt = &now
		snap.LastRunLaunchType = launchType
	})
	r.appendEntry(ctx, Entry{At: now, Kind: "watchdog-run", Detail: launchType})
}

func (r *Recorder) RecordNotifyAttempt(ctx context.Context, outcome, errText string) {
	now := r.now()
	r.update(ctx, func(snap *Snapshot) {
		snap.LastNotifyAt = &now
		snap.LastNotifyOutcome = outcome
		snap.LastNotifyError = errText
	})
	detail := outcome
	if errText != "" {
		detail = outcome + ": " + errText
	}
	r.appendEntry(ctx, Entry{At: now, Kind: "notify", Detail: detail})
}

func (r *Recorder) RecordRetryDrainAttempt(ctx context.Context, outcome string) {
	now := r.now()
	r.update(ctx, func(snap *Snapshot) {
		snap.LastRetryDrainAt = &now
		snap.LastRetryDrainOutcome = outcome
	})
	r.appendEntry(ctx, Entry{At: now, Kind: "retry-drain", Detail: outcome})
}

func (r *Recorder) RecordArmAttempt(ctx context.Context, outcome string) {
	now := r.now()
	r.update(ctx, func(snap *Snapshot) {
		snap.LastArmAt = &now
		snap.LastArmOutcome = outcome
	})
	r.appendEntry(ctx, Entry{At: now, Kind: "arm", Detail: outcome})
}

// RecordChannelAttempt logs one channel try within a delivery; it only
// touches the timeline, the snapshot keeps the overall notify outcome.
func (r *Recorder) RecordChannelAttempt(ctx context.Context, channel, errText string) {
	detail := channel + ": ok"
	if errText != "" {
		detail = channel + ": " + errText
	}
	r.appendEntry(ctx, Entry{At: r.now(), Kind: "channel", Detail: detail})
}

func (r *Recorder) RecordSoundAttempt(ctx context.Context, outcome string) {
	now := r.now()
	r.update(ctx, func(snap *Snapshot) {
		snap.LastSoundAt = &now
		snap.LastSoundOutcome = outcome
	})
	r.appendEntry(ctx, Entry{At: now, Kind: "sound", Detail: outcome})
}

func (r *Recorder) update(ctx context.Context, apply func(*Snapshot)) {
	snap := r.Snapshot(ctx)
	apply(&snap)
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	_ = r.kv.Set(ctx, storage.KeyDiagnostics, string(data))
}

func (r *Recorder) appendEntry(ctx context.Context, entry Entry) {
	entries := append(r.Timeline(ctx), entry)
	if len(entries) > timelineCapacity {
		entries = entries[len(entries)-timelineCapacity:]
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return
	}
	_ = r.kv.Set(ctx, storage.KeyDiagnosticsEvents, string(data))
}
