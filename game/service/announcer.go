package service

import (
	"github.com/wricardo/spooky-vocab/game/engine"
	"github.com/wricardo/spooky-vocab/game/taboo"
	"go.uber.org/zap"
)

const (
	speakLang = "en-US"
	speakRate = 0.9
)

// Notifier delivers session-scoped events to connected clients
type Notifier interface {
	BroadcastEvent(sessionID string, event string, data interface{})
}

// Announcer turns engine and taboo callbacks into notifier broadcasts.
// It builds the per-session options handed to the session manager.
type Announcer struct {
	notifier Notifier
	logger   *zap.Logger
}

// NewAnnouncer creates an announcer. A nil notifier drops every event.
func NewAnnouncer(notifier Notifier, logger *zap.Logger) *Announcer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Announcer{notifier: notifier, logger: logger}
}

// MemoryOptions returns the engine options binding sessionID into the
// speak and observer callbacks
func (a *Announcer) MemoryOptions(sessionID string) []engine.Option {
	return []engine.Option{
		engine.WithSpeaker(func(word string) {
			a.Speak(sessionID, word)
		}),
		engine.WithObserver(func(e engine.Event) {
			a.broadcast(sessionID, memoryEventPrefix+string(e.Type), e)
		}),
		engine.WithLogger(a.logger.With(zap.String("session", sessionID))),
	}
}

// TabooOptions returns the taboo options binding sessionID into the observer
func (a *Announcer) TabooOptions(sessionID string) []taboo.Option {
	return []taboo.Option{
		taboo.WithObserver(func(e taboo.Event) {
			a.broadcast(sessionID, tabooEventPrefix+string(e.Type), e.State)
		}),
		taboo.WithLogger(a.logger.With(zap.String("session", sessionID))),
	}
}

// Speak asks the session's clients to read text aloud
func (a *Announcer) Speak(sessionID, text string) {
	a.broadcast(sessionID, EventSpeak, SpeakPayload{
		Text: text,
		Lang: speakLang,
		Rate: speakRate,
	})
}

func (a *Announcer) broadcast(sessionID, event string, data interface{}) {
	if a == nil || a.notifier == nil {
		return
	}
	a.logger.Debug("broadcast", zap.String("session", sessionID), zap.String("event", event))
	a.notifier.BroadcastEvent(sessionID, event, data)
}
