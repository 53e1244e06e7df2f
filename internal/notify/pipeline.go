package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/sandeepkv93/focusd/internal/diagnostics"
	"github.com/sandeepkv93/focusd/internal/outbox"
)

type Result string

const (
	ResultDelivered Result = "delivered"
	ResultFailed    Result = "failed"
	ResultSkipped   Result = "skipped"
)

// Pipeline is the unit of "get one completion in front of the user".
// One call delivers at most once per lock acquisition; a skipped result
// means the outbox already has this handled or being handled elsewhere,
// not that anything went wrong.
type Pipeline struct {
	Outbox      *outbox.Store
	Channels    map[string]Channel
	Plan        Planner
	Diag        *diagnostics.Recorder
	BaseDelayMs int64
	MaxDelayMs  int64
}

func NewPipeline(store *outbox.Store, channels []Channel, diag *diagnostics.Recorder) *Pipeline {
	byName := make(map[string]Channel, len(channels))
	for _, ch := range channels {
		byName[ch.Name()] = ch
	}
	return &Pipeline{
		Outbox:      store,
		Channels:    byName,
		Plan:        FixedPlan,
		Diag:        diag,
		BaseDelayMs: outbox.DefaultBaseDelayMs,
		MaxDelayMs:  outbox.DefaultMaxDelayMs,
	}
}

func (p *Pipeline) Deliver(ctx context.Context, completionID int64, launch Launch, title, message string) Result {
	p.Outbox.UpsertPending(ctx, completionID, string(launch))

	locked := p.Outbox.LockForDelivery(ctx, completionID)
	if locked == nil {
		return ResultSkipped
	}
	if !p.Outbox.IsLockOwner(ctx, completionID, locked.LockID) {
		return ResultSkipped
	}

	var failures []string
	for _, name := range p.Plan(launch.IsUserInitiated()) {
		ch, ok := p.Channels[name]
		if !ok {
			continue
		}
		err := attempt(ch, title, message)
		if err == nil {
			p.recordChannel(ctx, name, "")
			p.Outbox.MarkDelivered(ctx, completionID, locked.LockID)
			return ResultDelivered
		}
		p.recordChannel(ctx, name, err.Error())
		failures = append(failures, fmt.Sprintf("%s: %v", name, err))
	}

	p.Outbox.MarkFailed(ctx, completionID, outbox.FailParams{
		BaseDelayMs:    p.BaseDelayMs,
		MaxDelayMs:     p.MaxDelayMs,
		Err:            strings.Join(failures, "; "),
		ExpectedLockID: locked.LockID,
	})
	return ResultFailed
}

func (p *Pipeline) recordChannel(ctx context.Context, name, errText string) {
	if p.Diag == nil {
		return
	}
	p.Diag.RecordChannelAttempt(ctx, name, errText)
}

// attempt contains a single channel call, converting a panicking
// adapter into an ordinary error so fallback always proceeds.
func attempt(ch Channel, title, message string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("notify: channel %s panicked: %v", ch.Name(), r)
		}
	}()
	return ch.Send(title, message)
}
