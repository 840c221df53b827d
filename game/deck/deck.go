package deck

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wricardo/spooky-vocab/game/engine"
)

var (
	ErrDeckNotFound = errors.New("deck not found")
	ErrInvalidDeck  = errors.New("invalid deck")
)

const (
	DefaultDeckName = "halloween"
	ReserveDeckName = "reserve"

	MinTabooWords = 1
	MaxTabooWords = 6
)

// Source tells where a deck was loaded from
type Source string

const (
	SourceBuiltin Source = "builtin"
	SourceFile    Source = "file"
	SourceMemory  Source = "memory"
)

// Deck is a named list of vocabulary cards
type Deck struct {
	Name        string                   `json:"name"`
	Description string                   `json:"description"`
	Cards       []engine.VocabularyEntry `json:"cards"`
}

// Info summarises a deck for listings
type Info struct {
	DeckID      string `json:"deck_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CardCount   int    `json:"card_count"`
	Source      Source `json:"source"`
	Playable    bool   `json:"playable"`
}

// Words returns the words of the deck in order
func (d *Deck) Words() []string {
	words := make([]string, len(d.Cards))
	for i, card := range d.Cards {
		words[i] = card.Word
	}
	return words
}

// Clone returns a deep copy of the deck
func (d *Deck) Clone() *Deck {
	clone := &Deck{
		Name:        d.Name,
		Description: d.Description,
		Cards:       make([]engine.VocabularyEntry, len(d.Cards)),
	}
	for i, card := range d.Cards {
		clone.Cards[i] = card
		clone.Cards[i].TabooWords = append([]string(nil), card.TabooWords...)
	}
	return clone
}

// Validate checks a deck for use by both games
func Validate(d *Deck) error {
	if d == nil {
		return fmt.Errorf("%w: deck is nil", ErrInvalidDeck)
	}

	var errs []error
	if strings.TrimSpace(d.Name) == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if len(d.Cards) == 0 {
		errs = append(errs, errors.New("deck has no cards"))
	}

	seen := make(map[string]int)
	for i, card := range d.Cards {
		if err := engine.ValidateEntry(card); err != nil {
			errs = append(errs, fmt.Errorf("card %d: %v", i, err))
			continue
		}

		key := strings.ToLower(strings.TrimSpace(card.Word))
		if first, dup := seen[key]; dup {
			errs = append(errs, fmt.Errorf("card %d: word %q duplicates card %d", i, card.Word, first))
		} else {
			seen[key] = i
		}

		if len(card.TabooWords) < MinTabooWords || len(card.TabooWords) > MaxTabooWords {
			errs = append(errs, fmt.Errorf("card %d (%s): needs %d-%d taboo words, got %d",
				i, card.Word, MinTabooWords, MaxTabooWords, len(card.TabooWords)))
		}
		for _, taboo := range card.TabooWords {
			if strings.TrimSpace(taboo) == "" {
				errs = append(errs, fmt.Errorf("card %d (%s): empty taboo word", i, card.Word))
			} else if strings.EqualFold(strings.TrimSpace(taboo), strings.TrimSpace(card.Word)) {
				errs = append(errs, fmt.Errorf("card %d (%s): taboo list contains the word itself", i, card.Word))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidDeck, errors.Join(errs...))
	}
	return nil
}

// Playable reports whether a memory round with the given number of pairs
// can be dealt from the deck
func Playable(d *Deck, pairs int) error {
	entries, err := engine.DistinctEntries(d.Cards)
	if err != nil {
		return err
	}
	if len(entries) < pairs {
		return fmt.Errorf("%w: deck %q has %d distinct words, a round needs %d",
			engine.ErrPoolTooSmall, d.Name, len(entries), pairs)
	}
	return nil
}
