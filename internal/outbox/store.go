package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sandeepkv93/focusd/internal/storage"
)

const (
	DefaultBaseDelayMs = int64(2_000)
	DefaultMaxDelayMs  = int64(60_000)
)

// Store reads and writes the outbox collection over the KV port. Storage
// failures degrade to safe defaults (an empty read, a dropped write): the
// outbox is advisory infrastructure and must never abort the caller's
// primary flow.
type Store struct {
	kv  storage.KV
	now func() int64
}

func NewStore(kv storage.KV) *Store {
	return NewStoreWithClock(kv, func() int64 { return time.Now().UnixMilli() })
}

func NewStoreWithClock(kv storage.KV, now func() int64) *Store {
	return &Store{kv: kv, now: now}
}

func (s *Store) readEvents(ctx context.Context) []Event {
	raw, err := s.kv.Get(ctx, storage.KeyCompletionOutbox)
	if err != nil {
		return nil
	}
	return ParseEvents(raw)
}

func (s *Store) writeWithMerge(ctx context.Context, proposed []Event) {
	latest := s.readEvents(ctx)
	merged := MergeEvents(latest, proposed)
	raw, err := EncodeEvents(merged)
	if err != nil {
		return
	}
	_ = s.kv.Set(ctx, storage.KeyCompletionOutbox, raw)
}

// Events returns the full persisted collection, creation order ascending.
func (s *Store) Events(ctx context.Context) []Event {
	return s.readEvents(ctx)
}

func (s *Store) Get(ctx context.Context, completionID int64) (Event, bool) {
	for _, event := range s.readEvents(ctx) {
		if event.CompletionID == completionID {
			return event, true
		}
	}
	return Event{}, false
}

// UpsertPending creates a pending row for the completion id. Re-upserting
// an existing id returns the stored row unchanged, so a finish detected
// twice does not reset retry state.
func (s *Store) UpsertPending(ctx context.Context, completionID int64, launchType string) Event {
	events := s.readEvents(ctx)
	for _, event := range events {
		if event.CompletionID == completionID {
			return event
		}
	}

	now := s.now()
	created := Event{
		CompletionID: completionID,
		Status:       StatusPending,
		LaunchType:   launchType,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.writeWithMerge(ctx, append(events, created))
	return created
}

// LockForDelivery claims the event with a fresh lock token. It returns
// nil when the event does not exist, is already delivered, or is failed
// with its retry window still in the future. The lock is advisory: it
// lets a racing process see "someone else is handling this" and skip,
// while the merge rule is what actually prevents lost updates.
func (s *Store) LockForDelivery(ctx context.Context, completionID int64) *Event {
	events := s.readEvents(ctx)
	target, ok := findEvent(events, completionID)
	if !ok {
		return nil
	}
	if target.Status == StatusDelivered {
		return nil
	}

	now := s.now()
	if target.Status == StatusFailed && target.NextRetryAt != nil && *target.NextRetryAt > now {
		return nil
	}

	target.Status = StatusDelivering
	target.LockedAt = &now
	target.LockID = uuid.NewString()
	target.UpdatedAt = now
	s.writeWithMerge(ctx, replaceEvent(events, target))
	return &target
}

// IsLockOwner reports whether the stored event is currently delivering
// under exactly this lock token.
func (s *Store) IsLockOwner(ctx context.Context, completionID int64, lockID string) bool {
	if lockID == "" {
		return false
	}
	event, ok := s.Get(ctx, completionID)
	return ok && event.Status == StatusDelivering && event.LockID == lockID
}

// MarkDelivered finalizes the event. Repeated calls are no-ops returning
// the already-delivered row; the first delivery time is preserved. When
// expectedLockID is non-empty and does not match the stored lock, the
// call is rejected so a stale caller cannot overwrite a newer attempt.
func (s *Store) MarkDelivered(ctx context.Context, completionID int64, expectedLockID string) *Event {
	events := s.readEvents(ctx)
	target, ok := findEvent(events, completionID)
	if !ok {
		return nil
	}
	if expectedLockID != "" && target.LockID != expectedLockID {
		return nil
	}
	if target.Status == StatusDelivered {
		return &target
	}

	now := s.now()
	if target.DeliveredAt == nil {
		target.DeliveredAt = &now
	}
	target.Status = StatusDelivered
	target.FailedAt = nil
	target.NextRetryAt = nil
	target.LockedAt = nil
	target.LockID = ""
	target.LastError = ""
	target.UpdatedAt = now
	s.writeWithMerge(ctx, replaceEvent(events, target))
	return &target
}

type FailParams struct {
	BaseDelayMs    int64
	MaxDelayMs     int64
	Err            string
	ExpectedLockID string
}

// MarkFailed schedules the next retry with exponential backoff:
// delay = min(max, base * 2^(retries-1)), retries counted from 1.
func (s *Store) MarkFailed(ctx context.Context, completionID int64, params FailParams) *Event {
	events := s.readEvents(ctx)
	target, ok := findEvent(events, completionID)
	if !ok {
		return nil
	}
	if params.ExpectedLockID != "" && target.LockID != params.ExpectedLockID {
		return nil
	}
	if target.Status == StatusDelivered {
		return &target
	}

	baseDelayMs := params.BaseDelayMs
	if baseDelayMs < 1 {
		baseDelayMs = DefaultBaseDelayMs
	}
	maxDelayMs := params.MaxDelayMs
	if maxDelayMs < 1 {
		maxDelayMs = DefaultMaxDelayMs
	}
	if maxDelayMs < baseDelayMs {
		maxDelayMs = baseDelayMs
	}

	now := s.now()
	target.Retries++
	delayMs := backoffDelayMs(baseDelayMs, maxDelayMs, target.Retries)
	nextRetryAt := now + delayMs
	target.Status = StatusFailed
	target.FailedAt = &now
	target.NextRetryAt = &nextRetryAt
	target.LockedAt = nil
	target.LockID = ""
	target.LastError = params.Err
	target.UpdatedAt = now
	s.writeWithMerge(ctx, replaceEvent(events, target))
	return &target
}

// Deliverable returns events that a drain pass should attempt now:
// pending, or failed with the retry window elapsed (or never scheduled).
// Delivering and delivered rows are never returned.
func (s *Store) Deliverable(ctx context.Context, limit int) []Event {
	if limit < 1 {
		limit = 1
	}
	now := s.now()
	out := make([]Event, 0, limit)
	for _, event := range s.readEvents(ctx) {
		if len(out) == limit {
			break
		}
		switch event.Status {
		case StatusPending:
			out = append(out, event)
		case StatusFailed:
			if event.NextRetryAt == nil || *event.NextRetryAt <= now {
				out = append(out, event)
			}
		}
	}
	return out
}

func backoffDelayMs(baseDelayMs, maxDelayMs int64, retries int) int64 {
	delay := baseDelayMs
	for i := 1; i < retries; i++ {
		delay *= 2
		if delay >= maxDelayMs {
			return maxDelayMs
		}
	}
	if delay > maxDelayMs {
		return maxDelayMs
	}
	return delay
}

func findEvent(events []Event, completionID int64) (Event, bool) {
	for _, event := range events {
		if event.CompletionID == completionID {
			return event, true
		}
	}
	return Event{}, false
}

func replaceEvent(events []Event, updated Event) []Event {
	out := make([]Event, len(events))
	for i, event := range events {
		if event.CompletionID == updated.CompletionID {
			out[i] = updated
			continue
		}
		out[i] = event
	}
	return out
}
