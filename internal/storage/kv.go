package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("storage: not found")

// KV is the persistence port for the timer core. Records are single JSON
// documents (or small scalar markers) under versioned string keys, so
// schema changes stay additive and never destroy old data. The medium is
// assumed non-transactional; callers that need merge semantics implement
// them with a read-merge-write cycle on top of this interface.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Versioned keys for every persisted record.
const (
	KeyTimerState        = "focusd-timer-state-v2"
	KeyCompletionOutbox  = "focusd-completion-outbox-v1"
	KeyDiagnostics       = "focusd-watchdog-diagnostics-v1"
	KeyDiagnosticsEvents = "focusd-watchdog-diagnostics-events-v1"
	KeyLastSoundAt       = "focusd-last-completion-sound-at-v1"
	KeyDecisionPending   = "focusd-needs-completion-decision-v1"
	KeyLanguage          = "focusd-language-v1"
)
