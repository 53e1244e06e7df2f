package sound

import (
	"context"
	"testing"

	"github.com/sandeepkv93/focusd/internal/storage"
)

func TestClampDurationSec(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{0, DefaultDurationSec},
		{-3, DefaultDurationSec},
		{1, 1},
		{15, 15},
		{16, 15},
		{100, 15},
		{7, 7},
	}
	for _, tc := range cases {
		if got := ClampDurationSec(tc.in); got != tc.want {
			t.Fatalf("ClampDurationSec(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestShouldPlay(t *testing.T) {
	cases := []struct {
		mode          Mode
		userInitiated bool
		want          bool
	}{
		{ModeAlways, true, true},
		{ModeAlways, false, true},
		{ModeBackgroundOnly, true, false},
		{ModeBackgroundOnly, false, true},
		{ModeOff, true, false},
		{ModeOff, false, false},
	}
	for _, tc := range cases {
		if got := ShouldPlay(tc.mode, tc.userInitiated); got != tc.want {
			t.Fatalf("ShouldPlay(%s, %v) = %v, want %v", tc.mode, tc.userInitiated, got, tc.want)
		}
	}
}

func TestNormalizeModeFallsBackToAlways(t *testing.T) {
	if got := NormalizeMode("background-only"); got != ModeBackgroundOnly {
		t.Fatalf("valid mode rewritten: %s", got)
	}
	if got := NormalizeMode("loud"); got != ModeAlways {
		t.Fatalf("unknown mode = %s, want always", got)
	}
	if got := NormalizeMode(""); got != ModeAlways {
		t.Fatalf("empty mode = %s, want always", got)
	}
}

func TestCooldownWindow(t *testing.T) {
	cooldown := NewCooldown(storage.NewMemoryKV())
	ctx := context.Background()

	if !cooldown.Allows(ctx, 100_000) {
		t.Fatalf("fresh store should allow playback")
	}
	cooldown.MarkPlayed(ctx, 100_000)

	if cooldown.Allows(ctx, 109_999) {
		t.Fatalf("playback allowed inside the 10s window")
	}
	if !cooldown.Allows(ctx, 110_000) {
		t.Fatalf("playback blocked after the window elapsed")
	}
}

func TestCooldownIgnoresCorruptMarker(t *testing.T) {
	kv := storage.NewMemoryKV()
	ctx := context.Background()
	if err := kv.Set(ctx, storage.KeyLastSoundAt, "not-a-number"); err != nil {
		t.Fatalf("seed marker: %v", err)
	}
	if !NewCooldown(kv).Allows(ctx, 5_000) {
		t.Fatalf("corrupt marker muted the chime")
	}
}

func TestHandleIsSafeWhenEmpty(t *testing.T) {
	var h *Handle
	h.Wait()
	h.Stop()
	empty := &Handle{}
	empty.Wait()
	empty.Stop()
}

func TestBellPlayerReturnsJoinableHandle(t *testing.T) {
	h := BellPlayer{}.Play("ignored", 5)
	if h == nil {
		t.Fatalf("bell player returned nil handle")
	}
	h.Wait()
}
