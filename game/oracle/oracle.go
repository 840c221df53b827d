package oracle

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/url"
	"strings"
	"sync"

	"github.com/wricardo/spooky-vocab/game/engine"
	"go.uber.org/zap"
)

const (
	// MaxGenerated caps a single generation request
	MaxGenerated = 6

	// FallbackHint is shown when no hint can be produced
	FallbackHint = "Something scary is coming..."

	imageBaseURL = "https://loremflickr.com/400/400/halloween,"
)

var ErrEmptyWord = errors.New("hint requested for an empty word")

// CardGenerator produces new cards that are not already in play
type CardGenerator interface {
	GenerateCards(ctx context.Context, count int, exclude []string) ([]engine.VocabularyEntry, error)
}

// HintProvider produces a one-sentence hint that never names the word
type HintProvider interface {
	Hint(ctx context.Context, entry engine.VocabularyEntry) (string, error)
}

// ImageURL returns the themed stock image URL for a keyword
func ImageURL(keyword string) string {
	return imageBaseURL + url.PathEscape(strings.ToLower(strings.TrimSpace(keyword)))
}

// NormalizeImage turns a bare image keyword into a full image URL. Entries
// that already carry an http(s) URL are returned unchanged.
func NormalizeImage(entry engine.VocabularyEntry) engine.VocabularyEntry {
	ref := strings.TrimSpace(entry.ImageRef)
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return entry
	}
	if ref == "" {
		ref = entry.Word
	}
	entry.ImageRef = ImageURL(ref)
	return entry
}

// ClampCount keeps a requested card count within 1..MaxGenerated
func ClampCount(count int) int {
	if count < 1 {
		return 1
	}
	if count > MaxGenerated {
		return MaxGenerated
	}
	return count
}

// ReserveGenerator deals cards from a fixed reserve, skipping words already in play
type ReserveGenerator struct {
	mu      sync.Mutex
	reserve []engine.VocabularyEntry
	rng     *rand.Rand
	logger  *zap.Logger
}

// NewReserveGenerator creates a generator over reserve. rng may be nil.
func NewReserveGenerator(reserve []engine.VocabularyEntry, rng *rand.Rand, logger *zap.Logger) *ReserveGenerator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReserveGenerator{
		reserve: append([]engine.VocabularyEntry(nil), reserve...),
		rng:     rng,
		logger:  logger,
	}
}

// GenerateCards returns up to count reserve cards whose words are not in
// exclude (case-insensitive). It returns fewer, possibly none, once the
// reserve runs dry.
func (g *ReserveGenerator) GenerateCards(ctx context.Context, count int, exclude []string) ([]engine.VocabularyEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	count = ClampCount(count)

	excluded := make(map[string]bool, len(exclude))
	for _, word := range exclude {
		excluded[normalizeWord(word)] = true
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	var candidates []engine.VocabularyEntry
	for _, entry := range g.reserve {
		key := normalizeWord(entry.Word)
		if key == "" || excluded[key] {
			continue
		}
		excluded[key] = true
		candidates = append(candidates, entry)
	}

	g.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	if len(candidates) > count {
		candidates = candidates[:count]
	}

	cards := make([]engine.VocabularyEntry, len(candidates))
	for i, entry := range candidates {
		entry.TabooWords = append([]string(nil), entry.TabooWords...)
		cards[i] = NormalizeImage(entry)
	}

	g.logger.Debug("generated cards",
		zap.Int("requested", count),
		zap.Int("generated", len(cards)))
	return cards, nil
}

// Remaining reports how many reserve cards are not in exclude
func (g *ReserveGenerator) Remaining(exclude []string) int {
	excluded := make(map[string]bool, len(exclude))
	for _, word := range exclude {
		excluded[normalizeWord(word)] = true
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	n := 0
	for _, entry := range g.reserve {
		if key := normalizeWord(entry.Word); key != "" && !excluded[key] {
			excluded[key] = true
			n++
		}
	}
	return n
}

var hintTemplates = []func(word, translation string) (string, bool){
	func(word, _ string) (string, bool) {
		runes := []rune(word)
		return fmt.Sprintf("A voice from the crypt whispers: %d characters, and the first is '%c'.", len(runes), runes[0]), true
	},
	func(_, translation string) (string, bool) {
		if translation == "" {
			return "", false
		}
		return fmt.Sprintf("Far away they call it %s, and they lock their doors at night.", translation), true
	},
	func(word, _ string) (string, bool) {
		runes := []rune(word)
		return fmt.Sprintf("Count the letters by candlelight: %d, and the last one is '%c'.", len(runes), runes[len(runes)-1]), true
	},
}

// TemplateHints builds hints from a card's own data without naming the word
type TemplateHints struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewTemplateHints creates a hint provider. rng may be nil.
func NewTemplateHints(rng *rand.Rand) *TemplateHints {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &TemplateHints{rng: rng}
}

// Hint returns a random applicable template for entry
func (h *TemplateHints) Hint(ctx context.Context, entry engine.VocabularyEntry) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if normalizeWord(entry.Word) == "" {
		return "", ErrEmptyWord
	}

	h.mu.Lock()
	order := h.rng.Perm(len(hintTemplates))
	h.mu.Unlock()

	for _, i := range order {
		hint, ok := hintTemplates[i](strings.TrimSpace(entry.Word), strings.TrimSpace(entry.Translation))
		if ok && !Reveals(hint, entry.Word) {
			return hint, nil
		}
	}
	return FallbackHint, nil
}

// HintOrFallback asks provider for a hint and substitutes FallbackHint on
// any failure, an empty answer, or an answer that gives the word away.
func HintOrFallback(ctx context.Context, provider HintProvider, entry engine.VocabularyEntry, logger *zap.Logger) string {
	if provider == nil {
		return FallbackHint
	}
	hint, err := provider.Hint(ctx, entry)
	if err != nil {
		if logger != nil {
			logger.Warn("hint provider failed", zap.String("word", entry.Word), zap.Error(err))
		}
		return FallbackHint
	}
	hint = strings.TrimSpace(hint)
	if hint == "" || Reveals(hint, entry.Word) {
		return FallbackHint
	}
	return hint
}

// Reveals reports whether hint contains word, ignoring case
func Reveals(hint, word string) bool {
	word = normalizeWord(word)
	return word != "" && strings.Contains(strings.ToLower(hint), word)
}

func normalizeWord(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}
