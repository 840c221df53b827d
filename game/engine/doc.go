// Package engine provides the core game logic for the memory-matching game.
//
// The engine package implements the game mechanics including:
//   - Board construction: an unbiased sample of vocabulary entries, one image
//     tile and one text tile per entry, uniformly shuffled
//   - The flip/compare state machine with delayed match and mismatch resolution
//   - Move, match and elapsed-time counters
//   - Win detection and round reset
//
// Core Types:
//
// The Engine interface defines the main contract for game operations,
// implemented by MemoryEngine. Board holds the tiles of a round, Snapshot is
// the read-only view handed to the presentation layer, and Rules carries the
// pair count and timing policy.
//
// Usage:
//
//	eng, err := engine.NewEngine(pool,
//		engine.WithSpeaker(func(word string) { fmt.Println("say", word) }),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := eng.ClickTile(3)
//	state := eng.GetState()
//
// Timing:
//
// A second click enters the pending state synchronously. The comparison is
// resolved later by a one-shot timer: MatchDelay for a pair, the longer
// MismatchDelay otherwise. Every timer is tagged with the round generation
// and a reset bumps the generation, so a timer scheduled for an old round
// never mutates the new board. Clicks are rejected while two tiles are
// pending, which keeps at most one resolution outstanding.
//
// Game Rules:
//
// The round starts idle. The first accepted click starts the elapsed-time
// ticker. Matching the last pair stops the ticker and the round is won until
// it is reset.
package engine
