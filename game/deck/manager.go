package deck

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/spooky-vocab/game/engine"
)

// Manager handles deck loading and caching
type Manager struct {
	deckDir     string
	defaultDeck *Deck
	builtin     map[string]*Deck
	registered  map[string]*Deck
	decks       map[string]*Deck
	mu          sync.RWMutex
}

// NewManager creates a deck manager. deckDir may be empty, in which case
// only the built-in decks are available.
func NewManager(deckDir string) (*Manager, error) {
	if deckDir != "" {
		if _, err := os.Stat(deckDir); os.IsNotExist(err) {
			return nil, fmt.Errorf("deck directory does not exist: %s", deckDir)
		}
	}

	builtin, err := loadBuiltin()
	if err != nil {
		return nil, fmt.Errorf("failed to load built-in decks: %w", err)
	}

	m := &Manager{
		deckDir:    deckDir,
		builtin:    builtin,
		registered: make(map[string]*Deck),
		decks:      make(map[string]*Deck),
	}

	if err := m.loadDefaultDeck(); err != nil {
		return nil, fmt.Errorf("failed to load default deck: %w", err)
	}

	return m, nil
}

// LoadDeck loads a deck by name. Registered decks win over files, files win
// over built-in decks. The returned deck is a copy.
func (m *Manager) LoadDeck(name string) (*Deck, error) {
	name = strings.TrimSuffix(name, ".json")

	m.mu.RLock()
	if d, ok := m.registered[name]; ok {
		m.mu.RUnlock()
		return d.Clone(), nil
	}
	if d, ok := m.decks[name]; ok {
		m.mu.RUnlock()
		return d.Clone(), nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if d, ok := m.decks[name]; ok {
		return d.Clone(), nil
	}

	d, err := m.readDeckFile(name)
	if err == nil {
		m.decks[name] = d
		return d.Clone(), nil
	}
	if err != ErrDeckNotFound {
		return nil, err
	}

	if d, ok := m.builtin[name]; ok {
		return d.Clone(), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrDeckNotFound, name)
}

// ListDecks returns information about every available deck, sorted by id.
// Invalid deck files are skipped.
func (m *Manager) ListDecks() ([]*Info, error) {
	sources := make(map[string]Source)

	m.mu.RLock()
	for name := range m.builtin {
		sources[name] = SourceBuiltin
	}
	for name := range m.registered {
		sources[name] = SourceMemory
	}
	m.mu.RUnlock()

	if m.deckDir != "" {
		entries, err := os.ReadDir(m.deckDir)
		if err != nil {
			return nil, fmt.Errorf("failed to read deck directory: %w", err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}
			name := strings.TrimSuffix(entry.Name(), ".json")
			if sources[name] != SourceMemory {
				sources[name] = SourceFile
			}
		}
	}

	var infos []*Info
	for name, source := range sources {
		d, err := m.LoadDeck(name)
		if err != nil {
			continue
		}
		infos = append(infos, &Info{
			DeckID:      name,
			Name:        d.Name,
			Description: d.Description,
			CardCount:   len(d.Cards),
			Source:      source,
			Playable:    Playable(d, engine.DefaultPairs) == nil,
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].DeckID < infos[j].DeckID
	})
	return infos, nil
}

// Register adds a validated deck kept in memory only
func (m *Manager) Register(d *Deck) error {
	if err := Validate(d); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.registered[d.Name] = d.Clone()
	return nil
}

// GetDefault returns a copy of the default deck
func (m *Manager) GetDefault() *Deck {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultDeck.Clone()
}

// SetDefault sets the default deck by name
func (m *Manager) SetDefault(name string) error {
	d, err := m.LoadDeck(name)
	if err != nil {
		return err
	}
	if err := Playable(d, engine.DefaultPairs); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDeck, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultDeck = d
	return nil
}

// RefreshCache drops cached deck files so they are read again from disk
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.decks = make(map[string]*Deck)
	m.mu.Unlock()

	return m.loadDefaultDeck()
}

// Reserve returns the built-in reserve deck used for generated cards
func (m *Manager) Reserve() *Deck {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if d, ok := m.builtin[ReserveDeckName]; ok {
		return d.Clone()
	}
	return &Deck{Name: ReserveDeckName}
}

func (m *Manager) loadDefaultDeck() error {
	d, err := m.LoadDeck(DefaultDeckName)
	if err != nil {
		// A broken override file falls back to the compiled-in deck
		builtin, ok := m.builtin[DefaultDeckName]
		if !ok {
			return err
		}
		d = builtin.Clone()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultDeck = d
	return nil
}

// readDeckFile reads and validates name.json from the deck directory.
// Callers hold the write lock.
func (m *Manager) readDeckFile(name string) (*Deck, error) {
	if m.deckDir == "" {
		return nil, ErrDeckNotFound
	}

	path := filepath.Join(m.deckDir, name+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrDeckNotFound
		}
		return nil, fmt.Errorf("failed to read deck file: %w", err)
	}

	return ParseDeck(data)
}

// ParseDeck decodes and validates a deck document
func ParseDeck(data []byte) (*Deck, error) {
	var d Deck
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%w: failed to parse deck: %v", ErrInvalidDeck, err)
	}
	if err := Validate(&d); err != nil {
		return nil, err
	}
	return &d, nil
}

func loadBuiltin() (map[string]*Deck, error) {
	decks := make(map[string]*Deck)

	err := fs.WalkDir(builtinFS, "decks", func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}

		data, err := builtinFS.ReadFile(path)
		if err != nil {
			return err
		}
		d, err := ParseDeck(data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		decks[strings.TrimSuffix(entry.Name(), ".json")] = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	return decks, nil
}
