package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/sandeepkv93/focusd/internal/timer"
)

// TimerStateStore persists the timer aggregate under its versioned key.
// Loading never fails on malformed data: the defensive parser falls back
// field by field to the initial state.
type TimerStateStore struct {
	kv KV
}

func NewTimerStateStore(kv KV) *TimerStateStore {
	return &TimerStateStore{kv: kv}
}

func (s *TimerStateStore) Load(ctx context.Context) (timer.State, error) {
	raw, err := s.kv.Get(ctx, KeyTimerState)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return timer.InitialState(), nil
		}
		return timer.InitialState(), err
	}
	return timer.ParseStored(raw), nil
}

func (s *TimerStateStore) Save(ctx context.Context, state timer.State) error {
	raw, err := timer.Encode(state)
	if err != nil {
		return fmt.Errorf("encode timer state: %w", err)
	}
	return s.kv.Set(ctx, KeyTimerState, raw)
}
