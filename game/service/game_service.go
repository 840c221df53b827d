package service

import (
	"context"
	"sync"
	"time"

	"github.com/wricardo/spooky-vocab/game/deck"
	"github.com/wricardo/spooky-vocab/game/engine"
	"github.com/wricardo/spooky-vocab/game/taboo"
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, deckName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Memory Game
	GetMemoryState(ctx context.Context, sessionID string) (*engine.Snapshot, error)
	ClickTile(ctx context.Context, sessionID string, index int) (*engine.ClickResult, error)
	ResetMemory(ctx context.Context, sessionID string) (*engine.Snapshot, error)

	// Taboo Game
	GetTabooState(ctx context.Context, sessionID string) (*taboo.State, error)
	DrawTabooCard(ctx context.Context, sessionID string) (*taboo.State, error)
	ToggleTabooTimer(ctx context.Context, sessionID string) (*taboo.State, error)
	ResetTaboo(ctx context.Context, sessionID string) (*taboo.State, error)
	TabooHint(ctx context.Context, sessionID string) (*HintResult, error)

	// Vocabulary
	ListCards(ctx context.Context, sessionID string) ([]engine.VocabularyEntry, error)
	GenerateCards(ctx context.Context, sessionID string, count int) (*GenerateResult, error)
	Speak(ctx context.Context, sessionID, text string) error

	// Decks
	ListDecks(ctx context.Context) ([]*deck.Info, error)
	LoadDeck(ctx context.Context, name string) (*deck.Deck, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, d *deck.Deck) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// DeckManager handles vocabulary deck loading
type DeckManager interface {
	LoadDeck(name string) (*deck.Deck, error)
	ListDecks() ([]*deck.Info, error)
	GetDefault() *deck.Deck
	Reserve() *deck.Deck
}

// Session represents an active game session: one memory board and one
// taboo round sharing a vocabulary pool
type Session struct {
	ID        string
	DeckName  string
	Memory    *engine.MemoryEngine
	Taboo     *taboo.Round
	CreatedAt time.Time

	mu             sync.RWMutex
	cards          []engine.VocabularyEntry
	lastAccessedAt time.Time
}

// NewSession creates a session over cards
func NewSession(id, deckName string, cards []engine.VocabularyEntry, memory *engine.MemoryEngine, round *taboo.Round) *Session {
	now := time.Now()
	return &Session{
		ID:             id,
		DeckName:       deckName,
		Memory:         memory,
		Taboo:          round,
		CreatedAt:      now,
		cards:          append([]engine.VocabularyEntry(nil), cards...),
		lastAccessedAt: now,
	}
}

// Cards returns a copy of the session vocabulary
func (s *Session) Cards() []engine.VocabularyEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]engine.VocabularyEntry(nil), s.cards...)
}

// AddCards appends cards to the session vocabulary and returns the full list
func (s *Session) AddCards(cards []engine.VocabularyEntry) []engine.VocabularyEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards = append(s.cards, cards...)
	return append([]engine.VocabularyEntry(nil), s.cards...)
}

// LastAccessedAt returns when the session was last used
func (s *Session) LastAccessedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastAccessedAt
}

// Touch records an access at t
func (s *Session) Touch(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccessedAt = t
}

// Close stops the session's timers
func (s *Session) Close() {
	if s.Memory != nil {
		s.Memory.Close()
	}
	if s.Taboo != nil {
		s.Taboo.Close()
	}
}
