package notify

import (
	"context"
	"time"

	"github.com/sandeepkv93/focusd/internal/diagnostics"
	"github.com/sandeepkv93/focusd/internal/outbox"
	"github.com/sandeepkv93/focusd/internal/settings"
	"github.com/sandeepkv93/focusd/internal/sound"
)

// Copy is the tiny bilingual message table keyed by the language
// marker. Anything more belongs in a real localization layer.
type Copy struct {
	Title        string
	Message      string
	FailedTitle  string
	FailedBody   string
	WaitingTitle string
	WaitingBody  string
}

func CopyFor(lang settings.Language) Copy {
	if lang == settings.LanguageRussian {
		return Copy{
			Title:        "Таймер завершён",
			Message:      "Сессия закончилась. Выберите следующий шаг.",
			FailedTitle:  "Уведомление не доставлено",
			FailedBody:   "Все каналы уведомлений недоступны. Повтор запланирован.",
			WaitingTitle: "Уведомление ожидает повтора",
			WaitingBody:  "Доставка ещё не подтверждена. Повтор запланирован.",
		}
	}
	return Copy{
		Title:        "Timer finished",
		Message:      "Your session is over. Pick what happens next.",
		FailedTitle:  "Notification not delivered",
		FailedBody:   "Every notification channel failed. A retry is scheduled.",
		WaitingTitle: "Notification waiting for retry",
		WaitingBody:  "Delivery is not confirmed yet. A retry is scheduled.",
	}
}

// Notifier runs the full completion flow: chime, pipeline delivery,
// the decision-pending marker, and the failure/waiting toasts. The
// sound handle is joined only for background launches, where the host
// may terminate the process as soon as this call returns.
type Notifier struct {
	Pipeline    *Pipeline
	Player      sound.Player
	SoundPath   string
	SoundMode   sound.Mode
	SoundMaxSec int
	Cooldown    *sound.Cooldown
	Settings    *settings.Store
	Diag        *diagnostics.Recorder
	now         func() int64
}

func NewNotifier(pipeline *Pipeline, player sound.Player, cooldown *sound.Cooldown, markers *settings.Store, diag *diagnostics.Recorder) *Notifier {
	return &Notifier{
		Pipeline:  pipeline,
		Player:    player,
		SoundMode: sound.ModeAlways,
		Cooldown:  cooldown,
		Settings:  markers,
		Diag:      diag,
		now:       func() int64 { return time.Now().UnixMilli() },
	}
}

func (n *Notifier) WithClock(now func() int64) *Notifier {
	n.now = now
	return n
}

func (n *Notifier) TimerFinished(ctx context.Context, completionID int64, launch Launch) Result {
	handle := n.startSound(ctx, launch)

	copyText := CopyFor(n.language(ctx))
	result := n.Pipeline.Deliver(ctx, completionID, launch, copyText.Title, copyText.Message)

	switch result {
	case ResultDelivered:
		if n.Settings != nil {
			n.Settings.MarkDecisionPending(ctx)
		}
		n.recordNotify(ctx, diagnostics.OutcomeDelivered, "")
	case ResultFailed:
		n.recordNotify(ctx, diagnostics.OutcomeFailed, "all notification channels failed")
		n.toast(copyText.FailedTitle, copyText.FailedBody)
	case ResultSkipped:
		n.recordNotify(ctx, diagnostics.OutcomeSkipped, "")
		// Skipped is not an error, but silence is worse than a
		// redundant warning: surface it unless already delivered.
		if event, ok := n.Pipeline.Outbox.Get(ctx, completionID); !ok || event.Status != outbox.StatusDelivered {
			n.toast(copyText.WaitingTitle, copyText.WaitingBody)
		}
	}

	if !launch.IsUserInitiated() {
		handle.Wait()
	}
	return result
}

// Deliver runs the pipeline for an outstanding completion without the
// surrounding chime and toast flow. The watchdog drain uses it.
func (n *Notifier) Deliver(ctx context.Context, completionID int64, launch Launch) Result {
	copyText := CopyFor(n.language(ctx))
	return n.Pipeline.Deliver(ctx, completionID, launch, copyText.Title, copyText.Message)
}

func (n *Notifier) startSound(ctx context.Context, launch Launch) *sound.Handle {
	if n.Player == nil || !sound.ShouldPlay(n.SoundMode, launch.IsUserInitiated()) {
		n.recordSound(ctx, diagnostics.OutcomeMuted)
		return nil
	}
	if n.Cooldown != nil && !n.Cooldown.Allows(ctx, n.now()) {
		n.recordSound(ctx, diagnostics.OutcomeMuted)
		return nil
	}
	handle := n.Player.Play(n.SoundPath, n.SoundMaxSec)
	if n.Cooldown != nil {
		n.Cooldown.MarkPlayed(ctx, n.now())
	}
	n.recordSound(ctx, diagnostics.OutcomePlayed)
	return handle
}

func (n *Notifier) toast(title, body string) {
	ch, ok := n.Pipeline.Channels[ChannelToast]
	if !ok {
		return
	}
	_ = attempt(ch, title, body)
}

func (n *Notifier) language(ctx context.Context) settings.Language {
	if n.Settings == nil {
		return settings.LanguageEnglish
	}
	return n.Settings.Language(ctx)
}

func (n *Notifier) recordNotify(ctx context.Context, outcome, errText string) {
	if n.Diag == nil {
		return
	}
	n.Diag.RecordNotifyAttempt(ctx, outcome, errText)
}

func (n *Notifier) recordSound(ctx context.Context, outcome string) {
	if n.Diag == nil {
		return
	}
	n.Diag.RecordSoundAttempt(ctx, outcome)
}
