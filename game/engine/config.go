package engine

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrPoolTooSmall = errors.New("vocabulary pool too small")
	ErrInvalidEntry = errors.New("invalid vocabulary entry")
	ErrInvalidIndex = errors.New("tile index out of range")
	ErrInvalidRules = errors.New("invalid rules")
	ErrClosed       = errors.New("engine closed")
)

// Rules controls the size and pacing of a round
type Rules struct {
	Pairs         int           `json:"pairs"`
	MatchDelay    time.Duration `json:"match_delay"`
	MismatchDelay time.Duration `json:"mismatch_delay"`
	TickInterval  time.Duration `json:"tick_interval"`
}

// DefaultRules returns the classic 10-pair board with 600ms/1000ms resolution delays
func DefaultRules() Rules {
	return Rules{
		Pairs:         DefaultPairs,
		MatchDelay:    DefaultMatchDelay,
		MismatchDelay: DefaultMismatchDelay,
		TickInterval:  DefaultTickInterval,
	}
}

// Validate checks the rules for playability
func (r Rules) Validate() error {
	if r.Pairs < MinPairs || r.Pairs > MaxPairs {
		return fmt.Errorf("%w: pairs must be between %d and %d, got %d", ErrInvalidRules, MinPairs, MaxPairs, r.Pairs)
	}
	if r.MatchDelay <= 0 {
		return fmt.Errorf("%w: match_delay must be positive, got %s", ErrInvalidRules, r.MatchDelay)
	}
	// The mismatched pair has to stay readable longer than a match takes to lock in.
	if r.MismatchDelay <= r.MatchDelay {
		return fmt.Errorf("%w: mismatch_delay (%s) must be longer than match_delay (%s)",
			ErrInvalidRules, r.MismatchDelay, r.MatchDelay)
	}
	if r.TickInterval <= 0 {
		return fmt.Errorf("%w: tick_interval must be positive, got %s", ErrInvalidRules, r.TickInterval)
	}
	return nil
}

// ValidateEntry checks a single vocabulary entry against the input contract
func ValidateEntry(entry VocabularyEntry) error {
	if isBlank(entry.Word) {
		return fmt.Errorf("%w: word is required", ErrInvalidEntry)
	}
	if isBlank(entry.ImageRef) {
		return fmt.Errorf("%w: image is required for %q", ErrInvalidEntry, entry.Word)
	}
	return nil
}
