package service

import (
	"errors"
	"time"

	"github.com/wricardo/spooky-vocab/game/engine"
	"github.com/wricardo/spooky-vocab/game/taboo"
)

var ErrInvalidInput = errors.New("invalid input")

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string           `json:"id"`
	DeckName       string           `json:"deck_name"`
	CreatedAt      time.Time        `json:"created_at"`
	LastAccessedAt time.Time        `json:"last_accessed_at"`
	CardCount      int              `json:"card_count"`
	Memory         *engine.Snapshot `json:"memory"`
	Taboo          *taboo.State     `json:"taboo"`
}

// HintResult is the hint attached to the taboo card on the table
type HintResult struct {
	Word  string       `json:"word"`
	Hint  string       `json:"hint"`
	State *taboo.State `json:"state"`
}

// GenerateResult reports the cards added to a session
type GenerateResult struct {
	Requested int                      `json:"requested"`
	Added     []engine.VocabularyEntry `json:"added"`
	Total     int                      `json:"total"`
}

// Event names broadcast to session subscribers
const (
	EventSpeak = "speak"

	memoryEventPrefix = "memory_"
	tabooEventPrefix  = "taboo_"
)

// SpeakPayload is broadcast when a word should be read aloud
type SpeakPayload struct {
	Text string  `json:"text"`
	Lang string  `json:"lang"`
	Rate float64 `json:"rate"`
}
