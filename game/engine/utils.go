package engine

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
)

// NewBoard builds the tiles for a round: pairs distinct entries sampled
// without replacement from pool, one image and one text tile each, shuffled.
func NewBoard(pool []VocabularyEntry, pairs int, rng *rand.Rand) (Board, error) {
	if pairs < MinPairs || pairs > MaxPairs {
		return Board{}, fmt.Errorf("%w: pairs must be between %d and %d, got %d", ErrInvalidRules, MinPairs, MaxPairs, pairs)
	}

	entries, err := DistinctEntries(pool)
	if err != nil {
		return Board{}, err
	}
	if len(entries) < pairs {
		return Board{}, fmt.Errorf("%w: need %d distinct words, got %d", ErrPoolTooSmall, pairs, len(entries))
	}

	if rng == nil {
		rng = newRand()
	}

	// Fisher-Yates over the whole pool, then take the prefix.
	rng.Shuffle(len(entries), func(i, j int) {
		entries[i], entries[j] = entries[j], entries[i]
	})

	tiles := make([]Tile, 0, pairs*2)
	for _, entry := range entries[:pairs] {
		tiles = append(tiles,
			Tile{ID: uuid.NewString(), MatchKey: entry.Word, Kind: KindImage, Content: entry.ImageRef},
			Tile{ID: uuid.NewString(), MatchKey: entry.Word, Kind: KindText, Content: entry.Word},
		)
	}

	rng.Shuffle(len(tiles), func(i, j int) {
		tiles[i], tiles[j] = tiles[j], tiles[i]
	})

	return Board{Tiles: tiles}, nil
}

// DistinctEntries validates the pool and drops repeated words, keeping the
// first occurrence. The returned slice is a copy.
func DistinctEntries(pool []VocabularyEntry) ([]VocabularyEntry, error) {
	seen := make(map[string]bool, len(pool))
	result := make([]VocabularyEntry, 0, len(pool))

	for i, entry := range pool {
		if err := ValidateEntry(entry); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if seen[entry.Word] {
			continue
		}
		seen[entry.Word] = true
		result = append(result, entry)
	}

	return result, nil
}

// Validate checks the pairing invariant: every match key appears on exactly
// one image tile and one text tile.
func (b Board) Validate() error {
	kinds := make(map[string][]TileKind)
	for _, tile := range b.Tiles {
		kinds[tile.MatchKey] = append(kinds[tile.MatchKey], tile.Kind)
	}

	for key, found := range kinds {
		if len(found) != 2 || found[0] == found[1] {
			return fmt.Errorf("board validation: match key %q has tiles %v, want one image and one text", key, found)
		}
	}
	return nil
}

// Len returns the number of tiles on the board
func (b Board) Len() int {
	return len(b.Tiles)
}

// IndexOf returns the index of the tile with the given key and kind, or -1
func (b Board) IndexOf(matchKey string, kind TileKind) int {
	for i, tile := range b.Tiles {
		if tile.MatchKey == matchKey && tile.Kind == kind {
			return i
		}
	}
	return -1
}

// CountMatched counts the tiles locked in as matched
func (b Board) CountMatched() int {
	count := 0
	for _, tile := range b.Tiles {
		if tile.IsMatched {
			count++
		}
	}
	return count
}

func cloneBoard(b Board) Board {
	tiles := make([]Tile, len(b.Tiles))
	copy(tiles, b.Tiles)
	return Board{Tiles: tiles}
}

func newRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
