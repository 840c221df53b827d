package engine

import "time"

// TileKind determines what a tile reveals when flipped
type TileKind string

const (
	KindImage TileKind = "image"
	KindText  TileKind = "text"

	// Round defaults
	DefaultPairs         = 10
	DefaultMatchDelay    = 600 * time.Millisecond
	DefaultMismatchDelay = 1000 * time.Millisecond
	DefaultTickInterval  = time.Second

	// Validation constants
	MinPairs   = 1
	MaxPairs   = 50
	MaxPending = 2
)

// Phase is the lifecycle stage of a round
type Phase string

const (
	PhaseIdle   Phase = "idle"
	PhaseActive Phase = "active"
	PhaseWon    Phase = "won"
)

// Reasons a click is ignored
const (
	ReasonMatched  = "matched"
	ReasonRevealed = "revealed"
	ReasonBusy     = "busy"
)

// Comparison is the outcome scheduled by a second click
type Comparison string

const (
	ComparisonNone     Comparison = ""
	ComparisonMatch    Comparison = "match"
	ComparisonMismatch Comparison = "mismatch"
)

// EventType names a state change reported to the observer
type EventType string

const (
	EventClick    EventType = "click"
	EventMatch    EventType = "match"
	EventMismatch EventType = "mismatch"
	EventTick     EventType = "tick"
	EventWon      EventType = "won"
	EventReset    EventType = "reset"
)

// VocabularyEntry is one word supplied by the content provider.
// Only Word and ImageRef are used by the memory board.
type VocabularyEntry struct {
	Word        string   `json:"word"`
	Translation string   `json:"translation"`
	ImageRef    string   `json:"image"`
	TabooWords  []string `json:"taboo"`
}

// Tile is one cell of the memory board
type Tile struct {
	ID         string   `json:"id"`
	MatchKey   string   `json:"match_key"`
	Kind       TileKind `json:"kind"`
	Content    string   `json:"content"`
	IsRevealed bool     `json:"is_revealed"`
	IsMatched  bool     `json:"is_matched"`
}

// Matches reports whether t and other form a pair: same word, different kind.
func (t Tile) Matches(other Tile) bool {
	return t.MatchKey == other.MatchKey && t.Kind != other.Kind
}

// Board is the ordered tile list of a round
type Board struct {
	Tiles []Tile `json:"tiles"`
}

// TileView is the presentation copy of a tile. The match key is withheld.
type TileView struct {
	Index      int      `json:"index"`
	ID         string   `json:"id"`
	Kind       TileKind `json:"kind"`
	Content    string   `json:"content"`
	IsRevealed bool     `json:"is_revealed"`
	IsMatched  bool     `json:"is_matched"`
}

// RoundSummary is reported once a round is won
type RoundSummary struct {
	ElapsedSeconds int `json:"elapsed_seconds"`
	Moves          int `json:"moves"`
}

// Snapshot is a read-only copy of the round state. Seq grows with every
// state change of the engine, across rounds; a won event carries the Seq of
// the match that ended the round.
type Snapshot struct {
	Seq            uint64        `json:"seq"`
	Round          int           `json:"round"`
	Tiles          []TileView    `json:"tiles"`
	Pending        []int         `json:"pending"`
	Moves          int           `json:"moves"`
	Matches        int           `json:"matches"`
	Pairs          int           `json:"pairs"`
	ElapsedSeconds int           `json:"elapsed_seconds"`
	IsActive       bool          `json:"is_active"`
	HasWon         bool          `json:"has_won"`
	Phase          Phase         `json:"phase"`
	Result         *RoundSummary `json:"result,omitempty"`
}

// ClickResult describes what a click did
type ClickResult struct {
	Index      int        `json:"index"`
	Accepted   bool       `json:"accepted"`
	Reason     string     `json:"reason,omitempty"`
	Pending    int        `json:"pending"`
	Comparison Comparison `json:"comparison,omitempty"`
	Snapshot   Snapshot   `json:"snapshot"`
}

// Event is delivered to the observer after every state change
type Event struct {
	Type     EventType `json:"type"`
	Word     string    `json:"word,omitempty"`
	Snapshot Snapshot  `json:"snapshot"`
}
