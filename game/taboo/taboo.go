package taboo

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/wricardo/spooky-vocab/game/engine"
	"go.uber.org/zap"
)

const (
	DefaultDuration = 60 * time.Second
	tickInterval    = time.Second
)

var (
	ErrEmptyPool = errors.New("taboo pool is empty")
	ErrNoCard    = errors.New("no card drawn")
	ErrClosed    = errors.New("taboo round closed")
)

// EventType names a state change reported to the observer
type EventType string

const (
	EventDraw    EventType = "draw"
	EventStart   EventType = "start"
	EventPause   EventType = "pause"
	EventTick    EventType = "tick"
	EventTimesUp EventType = "times_up"
	EventReset   EventType = "reset"
	EventHint    EventType = "hint"
)

// State is a read-only copy of the round
type State struct {
	Card      *engine.VocabularyEntry `json:"card,omitempty"`
	TimeLeft  int                     `json:"time_left"`
	Duration  int                     `json:"duration"`
	IsRunning bool                    `json:"is_running"`
	TimesUp   bool                    `json:"times_up"`
	Hint      string                  `json:"hint,omitempty"`
}

// Event is delivered to the observer after every state change
type Event struct {
	Type  EventType `json:"type"`
	State State     `json:"state"`
}

// Round is one taboo game: a current card and a countdown
type Round struct {
	mu sync.Mutex

	clock    clockwork.Clock
	rng      *rand.Rand
	logger   *zap.Logger
	observer func(Event)
	duration int

	pool       []engine.VocabularyEntry
	card       *engine.VocabularyEntry
	hint       string
	timeLeft   int
	running    bool
	timesUp    bool
	generation int
	closed     bool
	timer      clockwork.Timer

	outbox   []Event
	flushing bool
}

// Option configures a Round
type Option func(*Round)

// WithClock sets the clock driving the countdown
func WithClock(c clockwork.Clock) Option {
	return func(r *Round) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithRand sets the random source used by Draw
func WithRand(rng *rand.Rand) Option {
	return func(r *Round) {
		if rng != nil {
			r.rng = rng
		}
	}
}

// WithDuration sets the countdown length, rounded down to whole seconds
func WithDuration(d time.Duration) Option {
	return func(r *Round) {
		if seconds := int(d / time.Second); seconds > 0 {
			r.duration = seconds
		}
	}
}

// WithObserver sets the callback invoked after every state change. Calls
// never overlap and follow the order of the changes.
func WithObserver(observer func(Event)) Option {
	return func(r *Round) {
		r.observer = observer
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *Round) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a stopped round with a full clock and no card
func New(pool []engine.VocabularyEntry, opts ...Option) *Round {
	r := &Round{
		clock:    clockwork.NewRealClock(),
		logger:   zap.NewNop(),
		duration: int(DefaultDuration / time.Second),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.rng == nil {
		r.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	r.pool = append([]engine.VocabularyEntry(nil), pool...)
	r.timeLeft = r.duration
	r.generation = 1
	return r
}

// GetState returns a snapshot of the round
func (r *Round) GetState() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stateLocked()
}

// GetPool returns a copy of the card pool
func (r *Round) GetPool() []engine.VocabularyEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]engine.VocabularyEntry(nil), r.pool...)
}

// SetPool replaces the card pool. The current card stays on the table.
func (r *Round) SetPool(pool []engine.VocabularyEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pool = append([]engine.VocabularyEntry(nil), pool...)
}

// Draw puts a uniformly random card from the pool on the table and clears the hint.
// The same card may be drawn twice in a row.
func (r *Round) Draw() (State, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return State{}, ErrClosed
	}
	if len(r.pool) == 0 {
		r.mu.Unlock()
		return State{}, ErrEmptyPool
	}

	card := r.pool[r.rng.IntN(len(r.pool))]
	card.TabooWords = append([]string(nil), card.TabooWords...)
	r.card = &card
	r.hint = ""

	state := r.stateLocked()
	r.enqueueLocked(Event{Type: EventDraw, State: state})
	r.mu.Unlock()

	r.flush()
	return state, nil
}

// Toggle starts a stopped countdown or pauses a running one
func (r *Round) Toggle() (State, error) {
	r.mu.Lock()
	running := r.running
	r.mu.Unlock()

	if running {
		return r.Pause()
	}
	return r.Start()
}

// Start resumes the countdown. It is a no-op when running or when time is up.
func (r *Round) Start() (State, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return State{}, ErrClosed
	}
	if r.running || r.timeLeft <= 0 {
		state := r.stateLocked()
		r.mu.Unlock()
		return state, nil
	}

	r.running = true
	r.scheduleTickLocked()
	state := r.stateLocked()
	r.enqueueLocked(Event{Type: EventStart, State: state})
	r.mu.Unlock()

	r.flush()
	return state, nil
}

// Pause stops the countdown, keeping the time left
func (r *Round) Pause() (State, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return State{}, ErrClosed
	}
	if !r.running {
		state := r.stateLocked()
		r.mu.Unlock()
		return state, nil
	}

	r.stopLocked()
	state := r.stateLocked()
	r.enqueueLocked(Event{Type: EventPause, State: state})
	r.mu.Unlock()

	r.flush()
	return state, nil
}

// Reset stops the countdown, restores the full time and clears the card
func (r *Round) Reset() (State, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return State{}, ErrClosed
	}

	r.stopLocked()
	r.timeLeft = r.duration
	r.timesUp = false
	r.card = nil
	r.hint = ""
	state := r.stateLocked()
	r.enqueueLocked(Event{Type: EventReset, State: state})
	r.mu.Unlock()

	r.flush()
	return state, nil
}

// CurrentCard returns the card on the table
func (r *Round) CurrentCard() (engine.VocabularyEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.card == nil {
		return engine.VocabularyEntry{}, ErrNoCard
	}
	return *r.card, nil
}

// SetHint attaches a hint to the card on the table. word guards against a
// hint computed for a card that has since been replaced.
func (r *Round) SetHint(word, hint string) (State, error) {
	r.mu.Lock()
	if r.card == nil {
		r.mu.Unlock()
		return State{}, ErrNoCard
	}
	if r.card.Word != word {
		r.mu.Unlock()
		return State{}, fmt.Errorf("%w: hint is for %q but %q is on the table", ErrNoCard, word, r.card.Word)
	}

	r.hint = hint
	state := r.stateLocked()
	r.enqueueLocked(Event{Type: EventHint, State: state})
	r.mu.Unlock()

	r.flush()
	return state, nil
}

// Close stops the countdown. Further commands fail with ErrClosed.
func (r *Round) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
	r.closed = true
}

func (r *Round) onTick(gen int) {
	r.mu.Lock()
	if r.closed || gen != r.generation || !r.running {
		r.mu.Unlock()
		return
	}

	r.timeLeft--
	eventType := EventTick
	if r.timeLeft <= 0 {
		r.timeLeft = 0
		r.running = false
		r.timesUp = true
		r.timer = nil
		eventType = EventTimesUp
	} else {
		r.scheduleTickLocked()
	}
	r.enqueueLocked(Event{Type: eventType, State: r.stateLocked()})
	r.mu.Unlock()

	if eventType == EventTimesUp {
		r.logger.Info("taboo round out of time")
	}
	r.flush()
}

func (r *Round) scheduleTickLocked() {
	gen := r.generation
	r.timer = r.clock.AfterFunc(tickInterval, func() {
		r.onTick(gen)
	})
}

func (r *Round) stopLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.generation++
	r.running = false
}

func (r *Round) stateLocked() State {
	state := State{
		TimeLeft:  r.timeLeft,
		Duration:  r.duration,
		IsRunning: r.running,
		TimesUp:   r.timesUp,
		Hint:      r.hint,
	}
	if r.card != nil {
		card := *r.card
		card.TabooWords = append([]string(nil), r.card.TabooWords...)
		state.Card = &card
	}
	return state
}

func (r *Round) enqueueLocked(event Event) {
	if r.observer != nil {
		r.outbox = append(r.outbox, event)
	}
}

// flush delivers queued events from a single goroutine at a time
func (r *Round) flush() {
	r.mu.Lock()
	if r.flushing {
		r.mu.Unlock()
		return
	}
	r.flushing = true
	for len(r.outbox) > 0 {
		event := r.outbox[0]
		r.outbox = r.outbox[1:]
		r.mu.Unlock()
		r.notify(event)
		r.mu.Lock()
	}
	r.outbox = nil
	r.flushing = false
	r.mu.Unlock()
}

func (r *Round) notify(event Event) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Warn("taboo observer panicked", zap.String("event", string(event.Type)), zap.Any("panic", p))
		}
	}()
	r.observer(event)
}
