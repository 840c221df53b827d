// Command analyze prints quick, human-readable heuristics about vocabulary
// decks. It summarizes card and taboo counts, checks that a memory board can
// be dealt, and plays simulated memory rounds on a fake clock to estimate
// how many moves and seconds a round takes for a player with perfect memory
// and for one clicking at random.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/spooky-vocab/game/deck"
	"github.com/wricardo/spooky-vocab/game/engine"
)

const (
	// maxSimulatedMoves stops a simulated round that is not converging
	maxSimulatedMoves = 5000
	resolveTimeout    = 5 * time.Second
)

var (
	errUnfinished = errors.New("round did not finish")
	errStalled    = errors.New("comparison never resolved")
)

// Strategy selects how a simulated player picks tiles
type Strategy string

const (
	StrategyPerfect Strategy = "perfect"
	StrategyRandom  Strategy = "random"
)

// DeckSummary is the static part of a deck analysis
type DeckSummary struct {
	Name                string
	Cards               int
	Distinct            int
	MinTaboo            int
	MaxTaboo            int
	AvgTaboo            float64
	MissingTranslations int
	PlayableErr         error
}

// SimulationResult aggregates simulated rounds for one strategy
type SimulationResult struct {
	Strategy   Strategy
	Rounds     int
	AvgMoves   float64
	MinMoves   int
	MaxMoves   int
	AvgSeconds float64
	Unfinished int
}

// options controls the simulation part of the analysis
type options struct {
	pairs  int
	rounds int
	think  time.Duration
	seed   uint64
}

func summarizeDeck(d *deck.Deck, pairs int) DeckSummary {
	summary := DeckSummary{
		Name:        d.Name,
		Cards:       len(d.Cards),
		PlayableErr: deck.Playable(d, pairs),
	}

	if entries, err := engine.DistinctEntries(d.Cards); err == nil {
		summary.Distinct = len(entries)
	}

	total := 0
	for i, card := range d.Cards {
		n := len(card.TabooWords)
		total += n
		if i == 0 || n < summary.MinTaboo {
			summary.MinTaboo = n
		}
		if n > summary.MaxTaboo {
			summary.MaxTaboo = n
		}
		if card.Translation == "" {
			summary.MissingTranslations++
		}
	}
	if len(d.Cards) > 0 {
		summary.AvgTaboo = float64(total) / float64(len(d.Cards))
	}

	return summary
}

// player picks tiles for a simulated round. With perfect memory it remembers
// the word behind every tile it has seen.
type player struct {
	strategy Strategy
	rng      *rand.Rand
	known    []string
	queued   int
}

func newPlayer(strategy Strategy, tiles int, rng *rand.Rand) *player {
	return &player{
		strategy: strategy,
		rng:      rng,
		known:    make([]string, tiles),
		queued:   -1,
	}
}

func (p *player) observe(index int, key string) {
	if p.strategy == StrategyPerfect {
		p.known[index] = key
	}
}

func (p *player) forget(indexes ...int) {
	for _, i := range indexes {
		p.known[i] = ""
	}
}

func (p *player) pickFirst(s engine.Snapshot) int {
	if p.strategy == StrategyPerfect {
		for i, key := range p.known {
			if key == "" {
				continue
			}
			for j := i + 1; j < len(p.known); j++ {
				if p.known[j] == key {
					p.queued = j
					return i
				}
			}
		}
	}
	return p.pickHidden(s, -1)
}

func (p *player) pickSecond(s engine.Snapshot, first int, key string) int {
	if p.queued >= 0 {
		next := p.queued
		p.queued = -1
		return next
	}
	if p.strategy == StrategyPerfect {
		for i, k := range p.known {
			if i != first && k == key {
				return i
			}
		}
	}
	return p.pickHidden(s, first)
}

// pickHidden chooses a face-down tile, preferring ones never seen
func (p *player) pickHidden(s engine.Snapshot, exclude int) int {
	var unseen, hidden []int
	for _, tile := range s.Tiles {
		if tile.IsMatched || tile.IsRevealed || tile.Index == exclude {
			continue
		}
		hidden = append(hidden, tile.Index)
		if p.known[tile.Index] == "" {
			unseen = append(unseen, tile.Index)
		}
	}
	if len(unseen) > 0 {
		return unseen[p.rng.IntN(len(unseen))]
	}
	return hidden[p.rng.IntN(len(hidden))]
}

// simulateRound plays one round to completion. think is the pause between
// moves on top of the resolution delay.
func simulateRound(pool []engine.VocabularyEntry, pairs int, strategy Strategy, think time.Duration, seed uint64) (engine.RoundSummary, error) {
	clk := clockwork.NewFakeClock()
	rules := engine.DefaultRules()
	rules.Pairs = pairs

	// Resolutions run on timer goroutines; each one is awaited before the next move.
	resolved := make(chan struct{}, 1)
	e, err := engine.NewEngine(pool,
		engine.WithClock(clk),
		engine.WithRules(rules),
		engine.WithRand(rand.New(rand.NewPCG(seed, 1))),
		engine.WithObserver(func(ev engine.Event) {
			if ev.Type == engine.EventMatch || ev.Type == engine.EventMismatch {
				resolved <- struct{}{}
			}
		}),
	)
	if err != nil {
		return engine.RoundSummary{}, err
	}
	defer e.Close()

	p := newPlayer(strategy, 2*pairs, rand.New(rand.NewPCG(seed, 2)))

	flip := func(index int) (string, error) {
		result, err := e.ClickTile(index)
		if err != nil {
			return "", err
		}
		if !result.Accepted {
			return "", fmt.Errorf("click on tile %d ignored: %s", index, result.Reason)
		}
		key := e.GetBoard().Tiles[index].MatchKey
		p.observe(index, key)
		return key, nil
	}

	start := clk.Now()
	finish := start
	for !e.IsWon() {
		if e.GetMoves() >= maxSimulatedMoves {
			return engine.RoundSummary{}, errUnfinished
		}

		first := p.pickFirst(e.GetState())
		key, err := flip(first)
		if err != nil {
			return engine.RoundSummary{}, err
		}
		second := p.pickSecond(e.GetState(), first, key)
		if _, err := flip(second); err != nil {
			return engine.RoundSummary{}, err
		}

		matchAt := clk.Now().Add(rules.MatchDelay)
		clk.Advance(rules.MismatchDelay)
		select {
		case <-resolved:
		case <-time.After(resolveTimeout):
			return engine.RoundSummary{}, errStalled
		}

		if e.GetBoard().Tiles[first].IsMatched {
			p.forget(first, second)
			finish = matchAt
		}
		clk.Advance(think)
	}

	return engine.RoundSummary{
		ElapsedSeconds: int(finish.Sub(start) / time.Second),
		Moves:          e.GetMoves(),
	}, nil
}

func simulate(pool []engine.VocabularyEntry, strategy Strategy, opts options) (SimulationResult, error) {
	result := SimulationResult{Strategy: strategy}

	var moves, seconds int
	for i := 0; i < opts.rounds; i++ {
		summary, err := simulateRound(pool, opts.pairs, strategy, opts.think, opts.seed+uint64(i))
		if errors.Is(err, errUnfinished) {
			result.Unfinished++
			continue
		}
		if err != nil {
			return result, err
		}

		if result.Rounds == 0 || summary.Moves < result.MinMoves {
			result.MinMoves = summary.Moves
		}
		if summary.Moves > result.MaxMoves {
			result.MaxMoves = summary.Moves
		}
		moves += summary.Moves
		seconds += summary.ElapsedSeconds
		result.Rounds++
	}

	if result.Rounds > 0 {
		result.AvgMoves = float64(moves) / float64(result.Rounds)
		result.AvgSeconds = float64(seconds) / float64(result.Rounds)
	}
	return result, nil
}

func analyzeDeck(w io.Writer, d *deck.Deck, opts options) {
	summary := summarizeDeck(d, opts.pairs)

	fmt.Fprintf(w, "Name: %s\n", summary.Name)
	fmt.Fprintf(w, "Cards: %d (%d distinct)\n", summary.Cards, summary.Distinct)
	fmt.Fprintf(w, "Taboo words per card: min %d, max %d, avg %.1f\n", summary.MinTaboo, summary.MaxTaboo, summary.AvgTaboo)
	if summary.MissingTranslations > 0 {
		fmt.Fprintf(w, "⚠️  %d cards have no translation\n", summary.MissingTranslations)
	}

	if summary.PlayableErr != nil {
		fmt.Fprintf(w, "⚠️  CRITICAL: cannot deal %d pairs: %v\n", opts.pairs, summary.PlayableErr)
		return
	}
	fmt.Fprintf(w, "✅ Playable with %d pairs\n", opts.pairs)

	if opts.rounds <= 0 {
		return
	}
	for _, strategy := range []Strategy{StrategyPerfect, StrategyRandom} {
		result, err := simulate(d.Cards, strategy, opts)
		if err != nil {
			fmt.Fprintf(w, "Simulation (%s) failed: %v\n", strategy, err)
			continue
		}
		fmt.Fprintf(w, "%-8s avg %.1f moves, %.1fs (min %d, max %d) over %d rounds\n",
			strategy+":", result.AvgMoves, result.AvgSeconds, result.MinMoves, result.MaxMoves, result.Rounds)
		if result.Unfinished > 0 {
			fmt.Fprintf(w, "   %d rounds gave up after %d moves\n", result.Unfinished, maxSimulatedMoves)
		}
	}
}

func run(w io.Writer, manager *deck.Manager, names []string, opts options) error {
	if len(names) == 0 {
		infos, err := manager.ListDecks()
		if err != nil {
			return err
		}
		for _, info := range infos {
			names = append(names, info.DeckID)
		}
	}

	for _, name := range names {
		fmt.Fprintf(w, "\n=== Analyzing %s ===\n", name)
		d, err := manager.LoadDeck(name)
		if err != nil {
			fmt.Fprintf(w, "Error loading deck: %v\n", err)
			continue
		}
		analyzeDeck(w, d, opts)
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:      "analyze",
		Usage:     "Summarize decks and simulate memory rounds",
		ArgsUsage: "[deck ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Usage: "deck directory", Sources: cli.EnvVars("DECK_DIR")},
			&cli.IntFlag{Name: "pairs", Value: engine.DefaultPairs, Usage: "pairs per memory board"},
			&cli.IntFlag{Name: "rounds", Value: 20, Usage: "simulated rounds per strategy, 0 to skip"},
			&cli.DurationFlag{Name: "think", Value: time.Second, Usage: "simulated pause between moves"},
			&cli.IntFlag{Name: "seed", Value: 1, Usage: "random seed for simulations"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			manager, err := deck.NewManager(cmd.String("dir"))
			if err != nil {
				return err
			}
			return run(os.Stdout, manager, cmd.Args().Slice(), options{
				pairs:  int(cmd.Int("pairs")),
				rounds: int(cmd.Int("rounds")),
				think:  cmd.Duration("think"),
				seed:   uint64(cmd.Int("seed")),
			})
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
