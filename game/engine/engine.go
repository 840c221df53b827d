package engine

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Engine provides the main interface for memory game operations
type Engine interface {
	// Round state
	GetState() Snapshot
	GetBoard() Board
	Reset() (Snapshot, error)
	ResetWithPool(pool []VocabularyEntry) (Snapshot, error)
	IsWon() bool
	GetMoves() int
	GetMatches() int
	GetElapsedSeconds() int

	// Player input
	ClickTile(index int) (ClickResult, error)
	Tick() bool

	// Content
	GetPool() []VocabularyEntry
	SetPool(pool []VocabularyEntry) error
	GetRules() Rules

	Close()
}

// MemoryEngine implements the Engine interface.
// All mutation happens under mu; timer callbacks re-check the generation
// they were scheduled under before touching the board. Events are queued
// under mu and delivered in the order the mutations happened.
type MemoryEngine struct {
	mu sync.Mutex

	rules    Rules
	clock    clockwork.Clock
	rng      *rand.Rand
	logger   *zap.Logger
	speak    func(word string)
	observer func(Event)

	pool       []VocabularyEntry
	board      Board
	pending    []int
	moves      int
	matches    int
	elapsed    int
	phase      Phase
	generation int
	seq        uint64
	closed     bool

	outbox   []Event
	flushing bool

	resolveTimer clockwork.Timer
	tickTimer    clockwork.Timer
	nextTick     time.Time
}

// Option configures a MemoryEngine
type Option func(*MemoryEngine)

// WithClock sets the clock used for resolution delays and the round ticker
func WithClock(c clockwork.Clock) Option {
	return func(e *MemoryEngine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithRand sets the random source used for sampling and shuffling
func WithRand(rng *rand.Rand) Option {
	return func(e *MemoryEngine) {
		if rng != nil {
			e.rng = rng
		}
	}
}

// WithRules overrides DefaultRules
func WithRules(rules Rules) Option {
	return func(e *MemoryEngine) {
		e.rules = rules
	}
}

// WithSpeaker sets the callback invoked with the word of every successful match,
// just before the match event is delivered
func WithSpeaker(speak func(word string)) Option {
	return func(e *MemoryEngine) {
		e.speak = speak
	}
}

// WithObserver sets the callback invoked after every state change. Calls
// never overlap and arrive in Snapshot.Seq order.
func WithObserver(observer func(Event)) Option {
	return func(e *MemoryEngine) {
		e.observer = observer
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(e *MemoryEngine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an engine and deals its first round from pool
func NewEngine(pool []VocabularyEntry, opts ...Option) (*MemoryEngine, error) {
	e := &MemoryEngine{
		rules:  DefaultRules(),
		clock:  clockwork.NewRealClock(),
		logger: zap.NewNop(),
		phase:  PhaseIdle,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = newRand()
	}

	if err := e.rules.Validate(); err != nil {
		return nil, err
	}

	board, err := NewBoard(pool, e.rules.Pairs, e.rng)
	if err != nil {
		return nil, err
	}

	e.pool = clonePool(pool)
	e.board = board
	e.generation = 1

	return e, nil
}

// GetState returns a snapshot of the current round
func (e *MemoryEngine) GetState() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// GetBoard returns a copy of the board including match keys
func (e *MemoryEngine) GetBoard() Board {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneBoard(e.board)
}

// IsWon returns whether every pair has been matched
func (e *MemoryEngine) IsWon() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase == PhaseWon
}

// GetMoves returns the number of completed comparisons
func (e *MemoryEngine) GetMoves() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.moves
}

// GetMatches returns the number of matched pairs
func (e *MemoryEngine) GetMatches() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.matches
}

// GetElapsedSeconds returns the round clock
func (e *MemoryEngine) GetElapsedSeconds() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.elapsed
}

// GetRules returns the rules the engine was built with
func (e *MemoryEngine) GetRules() Rules {
	return e.rules
}

// GetPool returns a copy of the vocabulary pool used for resets
func (e *MemoryEngine) GetPool() []VocabularyEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return clonePool(e.pool)
}

// SetPool replaces the pool used by the next reset. The current round is untouched.
func (e *MemoryEngine) SetPool(pool []VocabularyEntry) error {
	entries, err := DistinctEntries(pool)
	if err != nil {
		return err
	}
	if len(entries) < e.rules.Pairs {
		return fmt.Errorf("%w: need %d distinct words, got %d", ErrPoolTooSmall, e.rules.Pairs, len(entries))
	}

	e.mu.Lock()
	e.pool = clonePool(pool)
	e.mu.Unlock()
	return nil
}

// ClickTile flips the tile at index.
//
// Out-of-range indexes fail with ErrInvalidIndex. Clicks on matched or
// revealed tiles, and any click while two tiles are pending, are ignored and
// reported with Accepted=false.
func (e *MemoryEngine) ClickTile(index int) (ClickResult, error) {
	e.mu.Lock()

	if e.closed {
		e.mu.Unlock()
		return ClickResult{Index: index}, ErrClosed
	}
	if index < 0 || index >= len(e.board.Tiles) {
		size := len(e.board.Tiles)
		e.mu.Unlock()
		return ClickResult{Index: index}, fmt.Errorf("%w: %d (board has %d tiles)", ErrInvalidIndex, index, size)
	}

	tile := &e.board.Tiles[index]
	reason := ""
	switch {
	case tile.IsMatched:
		reason = ReasonMatched
	case tile.IsRevealed:
		reason = ReasonRevealed
	case len(e.pending) >= MaxPending:
		reason = ReasonBusy
	}
	if reason != "" {
		result := ClickResult{
			Index:    index,
			Reason:   reason,
			Pending:  len(e.pending),
			Snapshot: e.snapshotLocked(),
		}
		e.mu.Unlock()
		return result, nil
	}

	if e.phase == PhaseIdle {
		e.phase = PhaseActive
		e.nextTick = e.clock.Now()
		e.scheduleTickLocked()
	}

	tile.IsRevealed = true
	e.pending = append(e.pending, index)

	result := ClickResult{
		Index:    index,
		Accepted: true,
		Pending:  len(e.pending),
	}

	if len(e.pending) == MaxPending {
		e.moves++
		first, second := e.pending[0], e.pending[1]
		gen := e.generation

		if e.board.Tiles[first].Matches(e.board.Tiles[second]) {
			result.Comparison = ComparisonMatch
			e.resolveTimer = e.clock.AfterFunc(e.rules.MatchDelay, func() {
				e.resolve(gen, first, second, true)
			})
		} else {
			result.Comparison = ComparisonMismatch
			e.resolveTimer = e.clock.AfterFunc(e.rules.MismatchDelay, func() {
				e.resolve(gen, first, second, false)
			})
		}
	}

	e.seq++
	result.Snapshot = e.snapshotLocked()
	e.enqueueLocked(Event{Type: EventClick, Snapshot: result.Snapshot})
	e.mu.Unlock()

	e.flush()
	return result, nil
}

// resolve completes a comparison scheduled under generation gen
func (e *MemoryEngine) resolve(gen, first, second int, matched bool) {
	e.mu.Lock()
	if e.closed || gen != e.generation {
		e.mu.Unlock()
		e.logger.Debug("discarding stale resolution",
			zap.Int("scheduled_round", gen),
			zap.Int("first", first),
			zap.Int("second", second))
		return
	}
	e.resolveTimer = nil

	a, b := &e.board.Tiles[first], &e.board.Tiles[second]
	word := a.MatchKey
	if matched {
		a.IsMatched = true
		b.IsMatched = true
		e.matches++
	} else {
		a.IsRevealed = false
		b.IsRevealed = false
	}
	e.pending = nil

	won := matched && e.matches == e.rules.Pairs
	if won {
		e.phase = PhaseWon
		e.stopTickLocked()
	}

	e.seq++
	snapshot := e.snapshotLocked()
	switch {
	case !matched:
		e.enqueueLocked(Event{Type: EventMismatch, Snapshot: snapshot})
	case won:
		e.enqueueLocked(Event{Type: EventMatch, Word: word, Snapshot: snapshot})
		e.enqueueLocked(Event{Type: EventWon, Snapshot: snapshot})
	default:
		e.enqueueLocked(Event{Type: EventMatch, Word: word, Snapshot: snapshot})
	}
	e.mu.Unlock()

	if won {
		e.logger.Info("memory round won",
			zap.Int("round", snapshot.Round),
			zap.Int("moves", snapshot.Moves),
			zap.Int("elapsed_seconds", snapshot.ElapsedSeconds))
	}
	e.flush()
}

// Tick advances the round clock by one second. It is a no-op unless the
// round is active and unsolved.
func (e *MemoryEngine) Tick() bool {
	e.mu.Lock()
	if e.closed || e.phase != PhaseActive || e.matches >= e.rules.Pairs {
		e.mu.Unlock()
		return false
	}
	e.elapsed++
	e.seq++
	e.enqueueLocked(Event{Type: EventTick, Snapshot: e.snapshotLocked()})
	e.mu.Unlock()

	e.flush()
	return true
}

// onTick is the ticker callback for generation gen
func (e *MemoryEngine) onTick(gen int) {
	e.mu.Lock()
	if e.closed || gen != e.generation || e.phase != PhaseActive {
		e.mu.Unlock()
		return
	}
	e.elapsed++
	e.seq++
	e.scheduleTickLocked()
	e.enqueueLocked(Event{Type: EventTick, Snapshot: e.snapshotLocked()})
	e.mu.Unlock()

	e.flush()
}

// Reset deals a fresh round from the current pool
func (e *MemoryEngine) Reset() (Snapshot, error) {
	return e.ResetWithPool(nil)
}

// ResetWithPool deals a fresh round from pool, or from the current pool when
// pool is nil. On error the current round is left untouched.
func (e *MemoryEngine) ResetWithPool(pool []VocabularyEntry) (Snapshot, error) {
	e.mu.Lock()

	if e.closed {
		e.mu.Unlock()
		return Snapshot{}, ErrClosed
	}

	source := e.pool
	if pool != nil {
		source = pool
	}

	board, err := NewBoard(source, e.rules.Pairs, e.rng)
	if err != nil {
		e.mu.Unlock()
		return Snapshot{}, err
	}

	e.cancelTimersLocked()
	e.generation++
	e.pool = clonePool(source)
	e.board = board
	e.pending = nil
	e.moves = 0
	e.matches = 0
	e.elapsed = 0
	e.phase = PhaseIdle
	e.seq++

	snapshot := e.snapshotLocked()
	e.enqueueLocked(Event{Type: EventReset, Snapshot: snapshot})
	e.mu.Unlock()

	e.flush()
	return snapshot, nil
}

// Close cancels outstanding timers. Further clicks and resets fail with ErrClosed.
func (e *MemoryEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.cancelTimersLocked()
	e.generation++
	e.closed = true
}

// scheduleTickLocked arms the ticker for the next whole interval after
// nextTick, so late callbacks do not push later ticks back. A ticker that
// fell more than an interval behind restarts from now.
func (e *MemoryEngine) scheduleTickLocked() {
	gen := e.generation
	e.nextTick = e.nextTick.Add(e.rules.TickInterval)
	wait := e.clock.Until(e.nextTick)
	if wait <= 0 {
		e.nextTick = e.clock.Now().Add(e.rules.TickInterval)
		wait = e.rules.TickInterval
	}
	e.tickTimer = e.clock.AfterFunc(wait, func() {
		e.onTick(gen)
	})
}

func (e *MemoryEngine) stopTickLocked() {
	if e.tickTimer != nil {
		e.tickTimer.Stop()
		e.tickTimer = nil
	}
}

func (e *MemoryEngine) cancelTimersLocked() {
	if e.resolveTimer != nil {
		e.resolveTimer.Stop()
		e.resolveTimer = nil
	}
	e.stopTickLocked()
}

func (e *MemoryEngine) snapshotLocked() Snapshot {
	tiles := make([]TileView, len(e.board.Tiles))
	for i, tile := range e.board.Tiles {
		tiles[i] = TileView{
			Index:      i,
			ID:         tile.ID,
			Kind:       tile.Kind,
			Content:    tile.Content,
			IsRevealed: tile.IsRevealed,
			IsMatched:  tile.IsMatched,
		}
	}

	pending := make([]int, len(e.pending))
	copy(pending, e.pending)

	snapshot := Snapshot{
		Seq:            e.seq,
		Round:          e.generation,
		Tiles:          tiles,
		Pending:        pending,
		Moves:          e.moves,
		Matches:        e.matches,
		Pairs:          e.rules.Pairs,
		ElapsedSeconds: e.elapsed,
		IsActive:       e.phase == PhaseActive,
		HasWon:         e.phase == PhaseWon,
		Phase:          e.phase,
	}
	if snapshot.HasWon {
		snapshot.Result = &RoundSummary{
			ElapsedSeconds: e.elapsed,
			Moves:          e.moves,
		}
	}
	return snapshot
}

// say invokes the speaker; a failing speaker never affects engine state
func (e *MemoryEngine) say(word string) {
	if e.speak == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("speak callback panicked", zap.String("word", word), zap.Any("panic", r))
		}
	}()
	e.speak(word)
}

func (e *MemoryEngine) enqueueLocked(event Event) {
	if e.observer == nil && e.speak == nil {
		return
	}
	e.outbox = append(e.outbox, event)
}

// flush delivers queued events. Only one goroutine delivers at a time;
// events queued meanwhile are picked up by the goroutine already flushing.
func (e *MemoryEngine) flush() {
	e.mu.Lock()
	if e.flushing {
		e.mu.Unlock()
		return
	}
	e.flushing = true
	for len(e.outbox) > 0 {
		event := e.outbox[0]
		e.outbox = e.outbox[1:]
		e.mu.Unlock()

		if event.Type == EventMatch {
			e.say(event.Word)
		}
		e.notify(event)

		e.mu.Lock()
	}
	e.outbox = nil
	e.flushing = false
	e.mu.Unlock()
}

func (e *MemoryEngine) notify(event Event) {
	if e.observer == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("observer panicked", zap.String("event", string(event.Type)), zap.Any("panic", r))
		}
	}()
	e.observer(event)
}

func clonePool(pool []VocabularyEntry) []VocabularyEntry {
	result := make([]VocabularyEntry, len(pool))
	for i, entry := range pool {
		result[i] = entry
		if entry.TabooWords != nil {
			result[i].TabooWords = append([]string(nil), entry.TabooWords...)
		}
	}
	return result
}
