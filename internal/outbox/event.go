// Package outbox is the durable record of "this completion still needs to
// be delivered", independent of any particular process's lifetime. The
// collection is a single JSON array under a versioned key; every write
// goes through a read-merge-write cycle so two racing processes cannot
// clobber each other's outcome.
package outbox

import (
	"encoding/json"
	"sort"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusDelivering Status = "delivering"
	StatusDelivered  Status = "delivered"
	StatusFailed     Status = "failed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusDelivering, StatusDelivered, StatusFailed:
		return true
	default:
		return false
	}
}

// Event is one row per distinct completion id. Delivered is terminal.
// LockID is present iff the status is delivering.
type Event struct {
	CompletionID int64  `json:"completionId"`
	Status       Status `json:"status"`
	Retries      int    `json:"retries"`
	LaunchType   string `json:"launchType,omitempty"`
	CreatedAt    int64  `json:"createdAt"`
	UpdatedAt    int64  `json:"updatedAt"`
	LockedAt     *int64 `json:"lockedAt,omitempty"`
	DeliveredAt  *int64 `json:"deliveredAt,omitempty"`
	FailedAt     *int64 `json:"failedAt,omitempty"`
	NextRetryAt  *int64 `json:"nextRetryAt,omitempty"`
	LastError    string `json:"lastError,omitempty"`
	LockID       string `json:"lockId,omitempty"`
}

// ParseEvents decodes a persisted collection, dropping rows that fail
// normalization, sorted by creation time ascending. Any structural
// problem yields an empty collection rather than an error: the outbox
// must never break timer flow.
func ParseEvents(raw string) []Event {
	if raw == "" {
		return nil
	}
	var parsed []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil
	}
	out := make([]Event, 0, len(parsed))
	for _, item := range parsed {
		var event Event
		if err := json.Unmarshal(item, &event); err != nil {
			continue
		}
		if !event.Status.IsValid() {
			continue
		}
		out = append(out, event)
	}
	sortByCreatedAt(out)
	return out
}

func EncodeEvents(events []Event) (string, error) {
	data, err := json.Marshal(events)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// MergeEvents merges a proposed collection into the latest persisted one,
// keyed by completion id. A delivered row always wins; otherwise the row
// with the greater UpdatedAt wins. This, not the advisory lock, is what
// prevents lost updates when the foreground command and the background
// watchdog race.
func MergeEvents(current, proposed []Event) []Event {
	byID := make(map[int64]Event, len(current)+len(proposed))
	for _, event := range current {
		byID[event.CompletionID] = event
	}
	for _, event := range proposed {
		existing, ok := byID[event.CompletionID]
		if !ok {
			byID[event.CompletionID] = event
			continue
		}
		if existing.Status == StatusDelivered {
			continue
		}
		if event.Status == StatusDelivered || event.UpdatedAt >= existing.UpdatedAt {
			byID[event.CompletionID] = event
		}
	}

	out := make([]Event, 0, len(byID))
	for _, event := range byID {
		out = append(out, event)
	}
	sortByCreatedAt(out)
	return out
}

func sortByCreatedAt(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].CreatedAt < events[j].CreatedAt
	})
}
