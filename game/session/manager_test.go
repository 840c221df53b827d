package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/wricardo/spooky-vocab/game/deck"
	"github.com/wricardo/spooky-vocab/game/engine"
	"github.com/wricardo/spooky-vocab/game/taboo"
)

func createTestDeck(size int) *deck.Deck {
	d := &deck.Deck{Name: "test", Description: "Test deck"}
	for i := 0; i < size; i++ {
		word := fmt.Sprintf("word-%02d", i)
		d.Cards = append(d.Cards, engine.VocabularyEntry{
			Word:       word,
			ImageRef:   "https://example.com/" + word,
			TabooWords: []string{"a", "b"},
		})
	}
	return d
}

// scheduled reports whether at least n timers are waiting on clk
func scheduled(clk *clockwork.FakeClock, n int) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	return clk.BlockUntilContext(ctx, n) == nil
}

func newFakeClockManager(clk *clockwork.FakeClock, opts ...Option) *Manager {
	base := []Option{
		WithMemoryOptions(func(string) []engine.Option {
			return []engine.Option{engine.WithClock(clk)}
		}),
		WithTabooOptions(func(string) []taboo.Option {
			return []taboo.Option{taboo.WithClock(clk)}
		}),
	}
	return NewManager(append(base, opts...)...)
}

func TestManager_Create(t *testing.T) {
	manager := NewManager()
	d := createTestDeck(12)

	t.Run("create with specific ID", func(t *testing.T) {
		session, err := manager.Create("test123", d)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if session.ID != "test123" {
			t.Errorf("Expected session ID 'test123', got '%s'", session.ID)
		}
		if session.Memory == nil || session.Taboo == nil {
			t.Fatal("Expected memory engine and taboo round")
		}
		if got := len(session.Memory.GetState().Tiles); got != 20 {
			t.Errorf("Expected 20 tiles, got %d", got)
		}
		if got := len(session.Cards()); got != 12 {
			t.Errorf("Expected 12 cards, got %d", got)
		}
		if session.DeckName != "test" {
			t.Errorf("Expected deck name 'test', got '%s'", session.DeckName)
		}
	})

	t.Run("create with generated ID", func(t *testing.T) {
		session, err := manager.Create("", d)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if len(session.ID) != 4 {
			t.Errorf("Expected 4-character session ID, got '%s'", session.ID)
		}
		if strings.Trim(session.ID, "0123456789abcdef") != "" {
			t.Errorf("Expected lowercase hex session ID, got '%s'", session.ID)
		}
	})

	t.Run("duplicate ID", func(t *testing.T) {
		_, err := manager.Create("TEST123", d)
		if !errors.Is(err, ErrSessionAlreadyExists) {
			t.Errorf("Expected ErrSessionAlreadyExists, got %v", err)
		}
	})

	t.Run("invalid ID", func(t *testing.T) {
		_, err := manager.Create("bad id!", d)
		if !errors.Is(err, ErrInvalidSessionID) {
			t.Errorf("Expected ErrInvalidSessionID, got %v", err)
		}
		_, err = manager.Create(strings.Repeat("x", maxSessionIDLength+1), d)
		if !errors.Is(err, ErrInvalidSessionID) {
			t.Errorf("Expected ErrInvalidSessionID for long ID, got %v", err)
		}
	})

	t.Run("deck too small", func(t *testing.T) {
		_, err := manager.Create("small", createTestDeck(5))
		if !errors.Is(err, engine.ErrPoolTooSmall) {
			t.Errorf("Expected ErrPoolTooSmall, got %v", err)
		}
		if _, err := manager.Get("small"); !errors.Is(err, ErrSessionNotFound) {
			t.Error("Failed session must not be registered")
		}
	})

	t.Run("nil deck", func(t *testing.T) {
		_, err := manager.Create("nodeck", nil)
		if !errors.Is(err, deck.ErrInvalidDeck) {
			t.Errorf("Expected ErrInvalidDeck, got %v", err)
		}
	})
}

func TestManager_Get(t *testing.T) {
	manager := NewManager()
	created, err := manager.Create("AbCd", createTestDeck(10))
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	for _, id := range []string{"AbCd", "abcd", "ABCD"} {
		session, err := manager.Get(id)
		if err != nil {
			t.Errorf("Get(%q) failed: %v", id, err)
			continue
		}
		if session != created {
			t.Errorf("Get(%q) returned a different session", id)
		}
	}

	if _, err := manager.Get("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_GetOrCreate(t *testing.T) {
	manager := NewManager()
	d := createTestDeck(10)

	first, err := manager.GetOrCreate("room", d)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	second, err := manager.GetOrCreate("ROOM", d)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if first != second {
		t.Error("Expected the existing session to be returned")
	}
	if manager.Count() != 1 {
		t.Errorf("Expected 1 session, got %d", manager.Count())
	}
}

func TestManager_Delete(t *testing.T) {
	clk := clockwork.NewFakeClock()
	manager := newFakeClockManager(clk)

	session, err := manager.Create("gone", createTestDeck(10))
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	// Leave timers running on both games.
	if _, err := session.Memory.ClickTile(0); err != nil {
		t.Fatalf("ClickTile failed: %v", err)
	}
	if _, err := session.Taboo.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !scheduled(clk, 2) {
		t.Fatal("Expected memory and taboo timers")
	}

	if err := manager.Delete("GONE"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if scheduled(clk, 1) {
		t.Error("Expected timers stopped on delete")
	}
	if _, err := manager.Get("gone"); !errors.Is(err, ErrSessionNotFound) {
		t.Error("Expected session to be removed")
	}
	if err := manager.Delete("gone"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound on second delete, got %v", err)
	}
}

func TestManager_CleanupExpiredSessions(t *testing.T) {
	now := time.Date(2024, 10, 31, 20, 0, 0, 0, time.UTC)
	clk := clockwork.NewFakeClock()
	manager := newFakeClockManager(clk, WithNow(func() time.Time { return now }))

	d := createTestDeck(10)
	old, _ := manager.Create("old", d)
	manager.Create("fresh", d)
	old.Taboo.Start()

	now = now.Add(2 * time.Hour)
	if err := manager.UpdateLastAccessed("fresh"); err != nil {
		t.Fatalf("UpdateLastAccessed failed: %v", err)
	}

	removed := manager.CleanupExpiredSessions(time.Hour)
	if removed != 1 {
		t.Errorf("Expected 1 expired session, got %d", removed)
	}
	if _, err := manager.Get("old"); !errors.Is(err, ErrSessionNotFound) {
		t.Error("Expected old session to be removed")
	}
	if _, err := manager.Get("fresh"); err != nil {
		t.Error("Expected fresh session to remain")
	}
	if scheduled(clk, 1) {
		t.Error("Expected expired session timers stopped")
	}
}

func TestManager_UpdateLastAccessed(t *testing.T) {
	now := time.Date(2024, 10, 31, 20, 0, 0, 0, time.UTC)
	manager := NewManager(WithNow(func() time.Time { return now }))

	session, _ := manager.Create("x1", createTestDeck(10))
	if !session.LastAccessedAt().Equal(now) {
		t.Errorf("Expected creation time as last access, got %v", session.LastAccessedAt())
	}

	now = now.Add(time.Minute)
	manager.UpdateLastAccessed("X1")
	if !session.LastAccessedAt().Equal(now) {
		t.Errorf("Expected updated access time, got %v", session.LastAccessedAt())
	}
	if !session.CreatedAt.Before(session.LastAccessedAt()) {
		t.Error("Expected creation time to stay put")
	}

	if err := manager.UpdateLastAccessed("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_OptionFactoriesReceiveSessionID(t *testing.T) {
	var memoryIDs, tabooIDs []string
	manager := NewManager(
		WithMemoryOptions(func(id string) []engine.Option {
			memoryIDs = append(memoryIDs, id)
			return nil
		}),
		WithTabooOptions(func(id string) []taboo.Option {
			tabooIDs = append(tabooIDs, id)
			return nil
		}),
	)
	defer manager.Close()

	session, err := manager.Create("", createTestDeck(10))
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	if len(memoryIDs) != 1 || memoryIDs[0] != session.ID {
		t.Errorf("Expected memory factory called with %q, got %v", session.ID, memoryIDs)
	}
	if len(tabooIDs) != 1 || tabooIDs[0] != session.ID {
		t.Errorf("Expected taboo factory called with %q, got %v", session.ID, tabooIDs)
	}
}

func TestManager_ListAndClose(t *testing.T) {
	clk := clockwork.NewFakeClock()
	manager := newFakeClockManager(clk)
	d := createTestDeck(10)

	for i := 0; i < 3; i++ {
		s, err := manager.Create(fmt.Sprintf("s%d", i), d)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		s.Taboo.Start()
	}

	if got := len(manager.List()); got != 3 {
		t.Errorf("Expected 3 sessions, got %d", got)
	}

	manager.Close()
	if manager.Count() != 0 {
		t.Errorf("Expected no sessions after close, got %d", manager.Count())
	}
	if scheduled(clk, 1) {
		t.Error("Expected timers stopped")
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	manager := NewManager()
	defer manager.Close()
	d := createTestDeck(10)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("c%02d", i)
			if _, err := manager.Create(id, d); err != nil {
				t.Errorf("Create(%s) failed: %v", id, err)
				return
			}
			manager.Get(id)
			manager.UpdateLastAccessed(id)
			manager.List()
			if i%2 == 0 {
				manager.Delete(id)
			}
		}(i)
	}
	wg.Wait()

	if manager.Count() != 10 {
		t.Errorf("Expected 10 sessions, got %d", manager.Count())
	}
}
