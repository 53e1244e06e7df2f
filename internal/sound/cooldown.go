package sound

import (
	"context"
	"strconv"

	"github.com/sandeepkv93/focusd/internal/storage"
)

const cooldownWindowMs = int64(10_000)

// Cooldown is a persisted last-played marker shared by every process
// that can fire the chime, so a foreground completion and a watchdog
// retry within the same window produce one sound, not two. All storage
// errors read as "no cooldown": a broken marker must never mute the
// chime forever.
type Cooldown struct {
	kv storage.KV
}

func NewCooldown(kv storage.KV) *Cooldown {
	return &Cooldown{kv: kv}
}

func (c *Cooldown) Allows(ctx context.Context, nowMs int64) bool {
	raw, err := c.kv.Get(ctx, storage.KeyLastSoundAt)
	if err != nil {
		return true
	}
	lastAt, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return true
	}
	return nowMs-lastAt >= cooldownWindowMs
}

func (c *Cooldown) MarkPlayed(ctx context.Context, nowMs int64) {
	_ = c.kv.Set(ctx, storage.KeyLastSoundAt, strconv.FormatInt(nowMs, 10))
}
