package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wricardo/spooky-vocab/game/deck"
	"github.com/wricardo/spooky-vocab/game/engine"
	"github.com/wricardo/spooky-vocab/game/oracle"
	"github.com/wricardo/spooky-vocab/game/taboo"
	"go.uber.org/zap"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions  SessionManager
	decks     DeckManager
	cards     oracle.CardGenerator
	hints     oracle.HintProvider
	announcer *Announcer
	logger    *zap.Logger
}

// Option configures the game service
type Option func(*gameServiceImpl)

// WithCardGenerator overrides the reserve-deck card generator
func WithCardGenerator(g oracle.CardGenerator) Option {
	return func(s *gameServiceImpl) {
		s.cards = g
	}
}

// WithHintProvider overrides the template hint provider
func WithHintProvider(h oracle.HintProvider) Option {
	return func(s *gameServiceImpl) {
		s.hints = h
	}
}

// WithAnnouncer sets the announcer used for Speak
func WithAnnouncer(a *Announcer) Option {
	return func(s *gameServiceImpl) {
		s.announcer = a
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *gameServiceImpl) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, decks DeckManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		decks:    decks,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.cards == nil {
		s.cards = oracle.NewReserveGenerator(decks.Reserve().Cards, nil, s.logger)
	}
	if s.hints == nil {
		s.hints = oracle.NewTemplateHints(nil)
	}
	if s.announcer == nil {
		s.announcer = NewAnnouncer(nil, s.logger)
	}
	return s
}

// CreateSession creates a new game session dealt from the named deck, or
// the default deck when deckName is empty
func (s *gameServiceImpl) CreateSession(ctx context.Context, deckName string) (*SessionInfo, error) {
	var d *deck.Deck
	if deckName != "" {
		var err error
		d, err = s.decks.LoadDeck(deckName)
		if err != nil {
			if errors.Is(err, deck.ErrDeckNotFound) {
				if available := s.deckIDs(); len(available) > 0 {
					return nil, fmt.Errorf("deck '%s' not found, available decks: %v: %w", deckName, available, err)
				}
			}
			return nil, fmt.Errorf("failed to load deck %s: %w", deckName, err)
		}
	} else {
		d = s.decks.GetDefault()
	}

	for i, card := range d.Cards {
		d.Cards[i] = oracle.NormalizeImage(card)
	}

	// Let session manager generate a proper 4-character ID
	sess, err := s.sessions.Create("", d)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info("session created",
		zap.String("session", sess.ID),
		zap.String("deck", sess.DeckName),
		zap.Int("cards", len(d.Cards)))

	return s.sessionInfo(sess), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return s.sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session and stops its timers
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}
	s.logger.Info("session deleted", zap.String("session", sessionID))
	return nil
}

// GetMemoryState returns the memory board of a session
func (s *gameServiceImpl) GetMemoryState(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	state := sess.Memory.GetState()
	return &state, nil
}

// ClickTile flips a tile on the session's memory board
func (s *gameServiceImpl) ClickTile(ctx context.Context, sessionID string, index int) (*engine.ClickResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	result, err := sess.Memory.ClickTile(index)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidIndex) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return nil, err
	}
	return &result, nil
}

// ResetMemory deals a fresh memory round from the session vocabulary
func (s *gameServiceImpl) ResetMemory(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	state, err := sess.Memory.Reset()
	if err != nil {
		return nil, fmt.Errorf("failed to reset memory game: %w", err)
	}
	return &state, nil
}

// GetTabooState returns the taboo round of a session
func (s *gameServiceImpl) GetTabooState(ctx context.Context, sessionID string) (*taboo.State, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	state := sess.Taboo.GetState()
	return &state, nil
}

// DrawTabooCard puts a random card on the table
func (s *gameServiceImpl) DrawTabooCard(ctx context.Context, sessionID string) (*taboo.State, error) {
	return s.tabooCommand(sessionID, (*taboo.Round).Draw)
}

// ToggleTabooTimer starts or pauses the countdown
func (s *gameServiceImpl) ToggleTabooTimer(ctx context.Context, sessionID string) (*taboo.State, error) {
	return s.tabooCommand(sessionID, (*taboo.Round).Toggle)
}

// ResetTaboo restores the full countdown and clears the table
func (s *gameServiceImpl) ResetTaboo(ctx context.Context, sessionID string) (*taboo.State, error) {
	return s.tabooCommand(sessionID, (*taboo.Round).Reset)
}

// TabooHint attaches a spooky hint to the card on the table. Provider
// failures fall back to a stock hint rather than an error.
func (s *gameServiceImpl) TabooHint(ctx context.Context, sessionID string) (*HintResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	card, err := sess.Taboo.CurrentCard()
	if err != nil {
		return nil, fmt.Errorf("%w: draw a card before asking for a hint", err)
	}

	hint := oracle.HintOrFallback(ctx, s.hints, card, s.logger)
	state, err := sess.Taboo.SetHint(card.Word, hint)
	if err != nil {
		return nil, err
	}

	return &HintResult{Word: card.Word, Hint: hint, State: &state}, nil
}

// ListCards returns the session vocabulary
func (s *gameServiceImpl) ListCards(ctx context.Context, sessionID string) ([]engine.VocabularyEntry, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Cards(), nil
}

// GenerateCards extends the session vocabulary with new cards. The memory
// round in progress keeps its board; the next reset deals from the larger pool.
func (s *gameServiceImpl) GenerateCards(ctx context.Context, sessionID string, count int) (*GenerateResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	requested := oracle.ClampCount(count)
	existing := sess.Cards()
	exclude := make([]string, len(existing))
	for i, card := range existing {
		exclude[i] = card.Word
	}

	generated, err := s.cards.GenerateCards(ctx, requested, exclude)
	if err != nil {
		s.logger.Warn("card generation failed", zap.String("session", sessionID), zap.Error(err))
		return nil, fmt.Errorf("failed to generate cards: %w", err)
	}

	added := make([]engine.VocabularyEntry, 0, len(generated))
	for _, card := range generated {
		if err := engine.ValidateEntry(card); err != nil {
			s.logger.Warn("dropping generated card", zap.String("word", card.Word), zap.Error(err))
			continue
		}
		added = append(added, oracle.NormalizeImage(card))
	}

	all := existing
	if len(added) > 0 {
		all = sess.AddCards(added)
		if err := sess.Memory.SetPool(all); err != nil {
			return nil, fmt.Errorf("failed to update memory pool: %w", err)
		}
		sess.Taboo.SetPool(all)
	}

	s.logger.Info("cards generated",
		zap.String("session", sessionID),
		zap.Int("requested", requested),
		zap.Int("added", len(added)),
		zap.Int("total", len(all)))

	return &GenerateResult{
		Requested: requested,
		Added:     added,
		Total:     len(all),
	}, nil
}

// Speak relays text to the session's clients for speech synthesis
func (s *gameServiceImpl) Speak(ctx context.Context, sessionID, text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: text is required", ErrInvalidInput)
	}
	if _, err := s.session(sessionID); err != nil {
		return err
	}

	s.announcer.Speak(sessionID, strings.TrimSpace(text))
	return nil
}

// ListDecks returns the available decks
func (s *gameServiceImpl) ListDecks(ctx context.Context) ([]*deck.Info, error) {
	return s.decks.ListDecks()
}

// LoadDeck returns a deck by name
func (s *gameServiceImpl) LoadDeck(ctx context.Context, name string) (*deck.Deck, error) {
	return s.decks.LoadDeck(name)
}

func (s *gameServiceImpl) session(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

func (s *gameServiceImpl) tabooCommand(sessionID string, cmd func(*taboo.Round) (taboo.State, error)) (*taboo.State, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	state, err := cmd(sess.Taboo)
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *gameServiceImpl) sessionInfo(sess *Session) *SessionInfo {
	memory := sess.Memory.GetState()
	round := sess.Taboo.GetState()
	return &SessionInfo{
		ID:             sess.ID,
		DeckName:       sess.DeckName,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt(),
		CardCount:      len(sess.Cards()),
		Memory:         &memory,
		Taboo:          &round,
	}
}

func (s *gameServiceImpl) deckIDs() []string {
	infos, err := s.decks.ListDecks()
	if err != nil {
		return nil
	}
	ids := make([]string, 0, len(infos))
	for _, info := range infos {
		ids = append(ids, info.DeckID)
	}
	return ids
}
