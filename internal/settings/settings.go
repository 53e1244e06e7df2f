// Package settings holds the small single-value markers that live next
// to the timer state: the UI language and the "a completion is waiting
// for the user's decision" flag. Reads degrade to defaults and writes
// are fire-and-forget, matching the other best-effort stores.
package settings

import (
	"context"

	"github.com/sandeepkv93/focusd/internal/storage"
)

type Language string

const (
	LanguageEnglish Language = "en"
	LanguageRussian Language = "ru"
)

func NormalizeLanguage(raw string) Language {
	switch Language(raw) {
	case LanguageEnglish, LanguageRussian:
		return Language(raw)
	default:
		return LanguageEnglish
	}
}

type Store struct {
	kv storage.KV
}

func NewStore(kv storage.KV) *Store {
	return &Store{kv: kv}
}

func (s *Store) Language(ctx context.Context) Language {
	raw, err := s.kv.Get(ctx, storage.KeyLanguage)
	if err != nil {
		return LanguageEnglish
	}
	return NormalizeLanguage(raw)
}

func (s *Store) SetLanguage(ctx context.Context, lang Language) {
	_ = s.kv.Set(ctx, storage.KeyLanguage, string(NormalizeLanguage(string(lang))))
}

// DecisionPending reports whether a delivered completion is still
// waiting for the user to pick the next step in the foreground UI.
func (s *Store) DecisionPending(ctx context.Context) bool {
	raw, err := s.kv.Get(ctx, storage.KeyDecisionPending)
	if err != nil {
		return false
	}
	return raw == "1"
}

func (s *Store) MarkDecisionPending(ctx context.Context) {
	_ = s.kv.Set(ctx, storage.KeyDecisionPending, "1")
}

func (s *Store) ClearDecisionPending(ctx context.Context) {
	_ = s.kv.Remove(ctx, storage.KeyDecisionPending)
}
