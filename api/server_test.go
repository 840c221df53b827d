package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wricardo/spooky-vocab/game/deck"
	"github.com/wricardo/spooky-vocab/game/engine"
	"github.com/wricardo/spooky-vocab/game/oracle"
	"github.com/wricardo/spooky-vocab/game/service"
	"github.com/wricardo/spooky-vocab/game/session"
	"github.com/wricardo/spooky-vocab/game/taboo"
	"github.com/wricardo/spooky-vocab/transport/websocket"
)

// MockGameService implements service.GameService for testing
type MockGameService struct {
	// Session Management
	CreateSessionFunc func(ctx context.Context, deckName string) (*service.SessionInfo, error)
	GetSessionFunc    func(ctx context.Context, sessionID string) (*service.SessionInfo, error)
	ListSessionsFunc  func(ctx context.Context) ([]*service.SessionInfo, error)
	DeleteSessionFunc func(ctx context.Context, sessionID string) error

	// Memory Game
	GetMemoryStateFunc func(ctx context.Context, sessionID string) (*engine.Snapshot, error)
	ClickTileFunc      func(ctx context.Context, sessionID string, index int) (*engine.ClickResult, error)
	ResetMemoryFunc    func(ctx context.Context, sessionID string) (*engine.Snapshot, error)

	// Taboo Game
	GetTabooStateFunc    func(ctx context.Context, sessionID string) (*taboo.State, error)
	DrawTabooCardFunc    func(ctx context.Context, sessionID string) (*taboo.State, error)
	ToggleTabooTimerFunc func(ctx context.Context, sessionID string) (*taboo.State, error)
	ResetTabooFunc       func(ctx context.Context, sessionID string) (*taboo.State, error)
	TabooHintFunc        func(ctx context.Context, sessionID string) (*service.HintResult, error)

	// Vocabulary
	ListCardsFunc     func(ctx context.Context, sessionID string) ([]engine.VocabularyEntry, error)
	GenerateCardsFunc func(ctx context.Context, sessionID string, count int) (*service.GenerateResult, error)
	SpeakFunc         func(ctx context.Context, sessionID, text string) error

	// Decks
	ListDecksFunc func(ctx context.Context) ([]*deck.Info, error)
	LoadDeckFunc  func(ctx context.Context, name string) (*deck.Deck, error)
}

// Session Management
func (m *MockGameService) CreateSession(ctx context.Context, deckName string) (*service.SessionInfo, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, deckName)
	}
	return &service.SessionInfo{
		ID:        "ab12",
		DeckName:  deckName,
		CreatedAt: time.Now(),
	}, nil
}

func (m *MockGameService) GetSession(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, sessionID)
	}
	return &service.SessionInfo{
		ID:        sessionID,
		DeckName:  "halloween",
		CreatedAt: time.Now(),
	}, nil
}

func (m *MockGameService) ListSessions(ctx context.Context) ([]*service.SessionInfo, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx)
	}
	return []*service.SessionInfo{}, nil
}

func (m *MockGameService) DeleteSession(ctx context.Context, sessionID string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, sessionID)
	}
	return nil
}

// Memory Game
func (m *MockGameService) GetMemoryState(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	if m.GetMemoryStateFunc != nil {
		return m.GetMemoryStateFunc(ctx, sessionID)
	}
	return &engine.Snapshot{Round: 1, Pairs: 10, Phase: engine.PhaseIdle}, nil
}

func (m *MockGameService) ClickTile(ctx context.Context, sessionID string, index int) (*engine.ClickResult, error) {
	if m.ClickTileFunc != nil {
		return m.ClickTileFunc(ctx, sessionID, index)
	}
	return &engine.ClickResult{Index: index, Accepted: true, Pending: 1}, nil
}

func (m *MockGameService) ResetMemory(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	if m.ResetMemoryFunc != nil {
		return m.ResetMemoryFunc(ctx, sessionID)
	}
	return &engine.Snapshot{Round: 2, Pairs: 10, Phase: engine.PhaseIdle}, nil
}

// Taboo Game
func (m *MockGameService) GetTabooState(ctx context.Context, sessionID string) (*taboo.State, error) {
	if m.GetTabooStateFunc != nil {
		return m.GetTabooStateFunc(ctx, sessionID)
	}
	return &taboo.State{TimeLeft: 60, Duration: 60}, nil
}

func (m *MockGameService) DrawTabooCard(ctx context.Context, sessionID string) (*taboo.State, error) {
	if m.DrawTabooCardFunc != nil {
		return m.DrawTabooCardFunc(ctx, sessionID)
	}
	return &taboo.State{Card: &engine.VocabularyEntry{Word: "Ghost"}, TimeLeft: 60, Duration: 60}, nil
}

func (m *MockGameService) ToggleTabooTimer(ctx context.Context, sessionID string) (*taboo.State, error) {
	if m.ToggleTabooTimerFunc != nil {
		return m.ToggleTabooTimerFunc(ctx, sessionID)
	}
	return &taboo.State{TimeLeft: 60, Duration: 60, IsRunning: true}, nil
}

func (m *MockGameService) ResetTaboo(ctx context.Context, sessionID string) (*taboo.State, error) {
	if m.ResetTabooFunc != nil {
		return m.ResetTabooFunc(ctx, sessionID)
	}
	return &taboo.State{TimeLeft: 60, Duration: 60}, nil
}

func (m *MockGameService) TabooHint(ctx context.Context, sessionID string) (*service.HintResult, error) {
	if m.TabooHintFunc != nil {
		return m.TabooHintFunc(ctx, sessionID)
	}
	return &service.HintResult{Word: "Ghost", Hint: oracle.FallbackHint}, nil
}

// Vocabulary
func (m *MockGameService) ListCards(ctx context.Context, sessionID string) ([]engine.VocabularyEntry, error) {
	if m.ListCardsFunc != nil {
		return m.ListCardsFunc(ctx, sessionID)
	}
	return []engine.VocabularyEntry{{Word: "Ghost"}, {Word: "Bat"}}, nil
}

func (m *MockGameService) GenerateCards(ctx context.Context, sessionID string, count int) (*service.GenerateResult, error) {
	if m.GenerateCardsFunc != nil {
		return m.GenerateCardsFunc(ctx, sessionID, count)
	}
	return &service.GenerateResult{Requested: count, Total: 10}, nil
}

func (m *MockGameService) Speak(ctx context.Context, sessionID, text string) error {
	if m.SpeakFunc != nil {
		return m.SpeakFunc(ctx, sessionID, text)
	}
	return nil
}

// Decks
func (m *MockGameService) ListDecks(ctx context.Context) ([]*deck.Info, error) {
	if m.ListDecksFunc != nil {
		return m.ListDecksFunc(ctx)
	}
	return []*deck.Info{}, nil
}

func (m *MockGameService) LoadDeck(ctx context.Context, name string) (*deck.Deck, error) {
	if m.LoadDeckFunc != nil {
		return m.LoadDeckFunc(ctx, name)
	}
	return &deck.Deck{Name: name, Description: "Test deck"}, nil
}

// Test helpers
func setupTestServer(mockService *MockGameService) *Server {
	return NewServer(mockService, websocket.NewHub())
}

func makeRequest(method, path string, body interface{}) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), target); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
}

func serve(server *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	return w
}

func notFound(id string) error {
	return fmt.Errorf("session not found: %w", session.ErrSessionNotFound)
}

// Session Management Tests

func TestCreateSession(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    interface{}
		rawBody        string
		setupMock      func(*MockGameService)
		expectedStatus int
		validateResp   func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:        "Create session with default deck",
			requestBody: nil,
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, deckName string) (*service.SessionInfo, error) {
					if deckName != "" {
						t.Errorf("Expected empty deck name, got %s", deckName)
					}
					return &service.SessionInfo{
						ID:             "ab12",
						DeckName:       "halloween",
						CreatedAt:      time.Now(),
						LastAccessedAt: time.Now(),
					}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.ID != "ab12" {
					t.Errorf("Expected session ID ab12, got %s", resp.ID)
				}
			},
		},
		{
			name:        "Create session with specific deck",
			requestBody: map[string]string{"deck": "reserve"},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, deckName string) (*service.SessionInfo, error) {
					return &service.SessionInfo{ID: "cd34", DeckName: deckName}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.DeckName != "reserve" {
					t.Errorf("Expected deck 'reserve', got %s", resp.DeckName)
				}
			},
		},
		{
			name:    "Malformed body",
			rawBody: "{not json",
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, deckName string) (*service.SessionInfo, error) {
					t.Error("Service must not be called on a malformed body")
					return nil, nil
				}
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "Unknown deck",
			requestBody: map[string]string{"deck": "nope"},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, deckName string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("deck 'nope' not found: %w", deck.ErrDeckNotFound)
				}
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:        "Deck too small",
			requestBody: map[string]string{"deck": "tiny"},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, deckName string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("failed to create session: %w", engine.ErrPoolTooSmall)
				}
			},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "Handle service error",
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, deckName string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("service error")
				}
			},
			expectedStatus: http.StatusInternalServerError,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp map[string]string
				parseResponse(t, w, &resp)
				if resp["error"] != "service error" {
					t.Errorf("Expected error message 'service error', got %s", resp["error"])
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			req := makeRequest("POST", "/api/sessions", tt.requestBody)
			if tt.rawBody != "" {
				req = httptest.NewRequest("POST", "/api/sessions", strings.NewReader(tt.rawBody))
			}
			w := serve(setupTestServer(mockService), req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.validateResp != nil {
				tt.validateResp(t, w)
			}
		})
	}
}

func TestListSessions(t *testing.T) {
	base := time.Date(2024, 10, 31, 18, 0, 0, 0, time.UTC)
	sessions := func(ctx context.Context) ([]*service.SessionInfo, error) {
		return []*service.SessionInfo{
			{ID: "a", CreatedAt: base, LastAccessedAt: base.Add(3 * time.Hour)},
			{ID: "b", CreatedAt: base.Add(time.Hour), LastAccessedAt: base.Add(time.Hour)},
			{ID: "c", CreatedAt: base.Add(2 * time.Hour), LastAccessedAt: base.Add(2 * time.Hour)},
		}, nil
	}

	tests := []struct {
		name      string
		query     string
		wantOrder []string
		wantTotal int
	}{
		{name: "default sorts by access time, newest first", query: "", wantOrder: []string{"a", "c", "b"}, wantTotal: 3},
		{name: "created ascending", query: "?sort=created&order=asc", wantOrder: []string{"a", "b", "c"}, wantTotal: 3},
		{name: "limit keeps total", query: "?sort=created&limit=2", wantOrder: []string{"c", "b"}, wantTotal: 3},
		{name: "bad limit ignored", query: "?limit=abc", wantOrder: []string{"a", "c", "b"}, wantTotal: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := setupTestServer(&MockGameService{ListSessionsFunc: sessions})
			w := serve(server, makeRequest("GET", "/api/sessions"+tt.query, nil))

			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}

			var resp struct {
				Count    int                    `json:"count"`
				Total    int                    `json:"total"`
				Sessions []*service.SessionInfo `json:"sessions"`
			}
			parseResponse(t, w, &resp)

			if resp.Total != tt.wantTotal {
				t.Errorf("Expected total %d, got %d", tt.wantTotal, resp.Total)
			}
			if resp.Count != len(tt.wantOrder) {
				t.Errorf("Expected count %d, got %d", len(tt.wantOrder), resp.Count)
			}
			for i, id := range tt.wantOrder {
				if i >= len(resp.Sessions) || resp.Sessions[i].ID != id {
					t.Errorf("Position %d: expected %s, got %+v", i, id, resp.Sessions)
					break
				}
			}
		})
	}
}

func TestGetSession(t *testing.T) {
	mockService := &MockGameService{
		GetSessionFunc: func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
			if sessionID == "ab12" {
				return &service.SessionInfo{ID: "ab12", DeckName: "halloween", CardCount: 18}, nil
			}
			return nil, notFound(sessionID)
		},
	}
	server := setupTestServer(mockService)

	w := serve(server, makeRequest("GET", "/api/sessions/ab12", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp service.SessionInfo
	parseResponse(t, w, &resp)
	if resp.CardCount != 18 {
		t.Errorf("Expected 18 cards, got %d", resp.CardCount)
	}

	w = serve(server, makeRequest("GET", "/api/sessions/zzzz", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestDeleteSession(t *testing.T) {
	var deleted string
	mockService := &MockGameService{
		DeleteSessionFunc: func(ctx context.Context, sessionID string) error {
			if sessionID != "ab12" {
				return fmt.Errorf("failed to delete session %s: %w", sessionID, session.ErrSessionNotFound)
			}
			deleted = sessionID
			return nil
		},
	}
	server := setupTestServer(mockService)

	w := serve(server, makeRequest("DELETE", "/api/sessions/ab12", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if deleted != "ab12" {
		t.Errorf("Expected ab12 deleted, got %q", deleted)
	}

	w = serve(server, makeRequest("DELETE", "/api/sessions/zzzz", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

// Memory Tests

func TestClickTile(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		setupMock      func(*MockGameService)
		expectedStatus int
	}{
		{
			name: "Valid click",
			body: map[string]int{"index": 0},
			setupMock: func(m *MockGameService) {
				m.ClickTileFunc = func(ctx context.Context, sessionID string, index int) (*engine.ClickResult, error) {
					if index != 0 {
						t.Errorf("Expected index 0, got %d", index)
					}
					return &engine.ClickResult{Index: index, Accepted: true, Pending: 1}, nil
				}
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Missing index",
			body:           map[string]string{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "Index out of range",
			body: map[string]int{"index": 40},
			setupMock: func(m *MockGameService) {
				m.ClickTileFunc = func(ctx context.Context, sessionID string, index int) (*engine.ClickResult, error) {
					return nil, fmt.Errorf("%w: %w", service.ErrInvalidInput, engine.ErrInvalidIndex)
				}
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "Unknown session",
			body: map[string]int{"index": 1},
			setupMock: func(m *MockGameService) {
				m.ClickTileFunc = func(ctx context.Context, sessionID string, index int) (*engine.ClickResult, error) {
					return nil, notFound(sessionID)
				}
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "Ignored click is still a success",
			body: map[string]int{"index": 3},
			setupMock: func(m *MockGameService) {
				m.ClickTileFunc = func(ctx context.Context, sessionID string, index int) (*engine.ClickResult, error) {
					return &engine.ClickResult{Index: index, Reason: engine.ReasonBusy}, nil
				}
			},
			expectedStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			w := serve(setupTestServer(mockService), makeRequest("POST", "/api/sessions/ab12/memory/click", tt.body))
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestMemoryStateAndReset(t *testing.T) {
	server := setupTestServer(&MockGameService{})

	w := serve(server, makeRequest("GET", "/api/sessions/ab12/memory", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var state engine.Snapshot
	parseResponse(t, w, &state)
	if state.Phase != engine.PhaseIdle {
		t.Errorf("Expected idle phase, got %s", state.Phase)
	}

	w = serve(server, makeRequest("POST", "/api/sessions/ab12/memory/reset", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp struct {
		Message string          `json:"message"`
		State   engine.Snapshot `json:"state"`
	}
	parseResponse(t, w, &resp)
	if resp.State.Round != 2 {
		t.Errorf("Expected round 2, got %d", resp.State.Round)
	}
}

// Taboo Tests

func TestTabooRoutes(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		path           string
		setupMock      func(*MockGameService)
		expectedStatus int
	}{
		{name: "state", method: "GET", path: "/api/sessions/ab12/taboo", expectedStatus: http.StatusOK},
		{name: "draw", method: "POST", path: "/api/sessions/ab12/taboo/draw", expectedStatus: http.StatusOK},
		{name: "timer", method: "POST", path: "/api/sessions/ab12/taboo/timer", expectedStatus: http.StatusOK},
		{name: "reset", method: "POST", path: "/api/sessions/ab12/taboo/reset", expectedStatus: http.StatusOK},
		{name: "hint", method: "POST", path: "/api/sessions/ab12/taboo/hint", expectedStatus: http.StatusOK},
		{
			name:   "hint without card",
			method: "POST",
			path:   "/api/sessions/ab12/taboo/hint",
			setupMock: func(m *MockGameService) {
				m.TabooHintFunc = func(ctx context.Context, sessionID string) (*service.HintResult, error) {
					return nil, fmt.Errorf("%w: draw a card before asking for a hint", taboo.ErrNoCard)
				}
			},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name:   "draw from empty pool",
			method: "POST",
			path:   "/api/sessions/ab12/taboo/draw",
			setupMock: func(m *MockGameService) {
				m.DrawTabooCardFunc = func(ctx context.Context, sessionID string) (*taboo.State, error) {
					return nil, taboo.ErrEmptyPool
				}
			},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name:   "timer on unknown session",
			method: "POST",
			path:   "/api/sessions/zzzz/taboo/timer",
			setupMock: func(m *MockGameService) {
				m.ToggleTabooTimerFunc = func(ctx context.Context, sessionID string) (*taboo.State, error) {
					return nil, notFound(sessionID)
				}
			},
			expectedStatus: http.StatusNotFound,
		},
		{name: "wrong method", method: "GET", path: "/api/sessions/ab12/taboo/draw", expectedStatus: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			w := serve(setupTestServer(mockService), makeRequest(tt.method, tt.path, nil))
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

// Vocabulary Tests

func TestGenerateCards(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		wantCount      int
		expectedStatus int
	}{
		{name: "explicit count", body: map[string]int{"count": 3}, wantCount: 3, expectedStatus: http.StatusOK},
		{name: "default count", body: nil, wantCount: oracle.MaxGenerated, expectedStatus: http.StatusOK},
		{name: "negative count", body: map[string]int{"count": -1}, expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotCount := -1
			mockService := &MockGameService{
				GenerateCardsFunc: func(ctx context.Context, sessionID string, count int) (*service.GenerateResult, error) {
					gotCount = count
					return &service.GenerateResult{Requested: count, Total: 10 + count}, nil
				},
			}

			w := serve(setupTestServer(mockService), makeRequest("POST", "/api/sessions/ab12/cards/generate", tt.body))
			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.expectedStatus == http.StatusOK && gotCount != tt.wantCount {
				t.Errorf("Expected count %d passed to service, got %d", tt.wantCount, gotCount)
			}
		})
	}
}

func TestListCards(t *testing.T) {
	w := serve(setupTestServer(&MockGameService{}), makeRequest("GET", "/api/sessions/ab12/cards", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp struct {
		Count int                      `json:"count"`
		Cards []engine.VocabularyEntry `json:"cards"`
	}
	parseResponse(t, w, &resp)
	if resp.Count != 2 || len(resp.Cards) != 2 {
		t.Errorf("Expected 2 cards, got %d", resp.Count)
	}
}

func TestSpeak(t *testing.T) {
	var spoken string
	mockService := &MockGameService{
		SpeakFunc: func(ctx context.Context, sessionID, text string) error {
			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("%w: text is required", service.ErrInvalidInput)
			}
			spoken = text
			return nil
		},
	}
	server := setupTestServer(mockService)

	w := serve(server, makeRequest("POST", "/api/sessions/ab12/speak", map[string]string{"text": "Pumpkin"}))
	if w.Code != http.StatusAccepted {
		t.Errorf("Expected status 202, got %d", w.Code)
	}
	if spoken != "Pumpkin" {
		t.Errorf("Expected 'Pumpkin' spoken, got %q", spoken)
	}

	w = serve(server, makeRequest("POST", "/api/sessions/ab12/speak", map[string]string{"text": " "}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

// Deck Tests

func TestDecks(t *testing.T) {
	mockService := &MockGameService{
		ListDecksFunc: func(ctx context.Context) ([]*deck.Info, error) {
			return []*deck.Info{{DeckID: "halloween", CardCount: 18, Playable: true}}, nil
		},
		LoadDeckFunc: func(ctx context.Context, name string) (*deck.Deck, error) {
			if name != "halloween" {
				return nil, fmt.Errorf("%w: %s", deck.ErrDeckNotFound, name)
			}
			return &deck.Deck{Name: "halloween"}, nil
		},
	}
	server := setupTestServer(mockService)

	w := serve(server, makeRequest("GET", "/api/decks", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var infos []*deck.Info
	parseResponse(t, w, &infos)
	if len(infos) != 1 || infos[0].DeckID != "halloween" {
		t.Errorf("Unexpected deck list: %+v", infos)
	}

	w = serve(server, makeRequest("GET", "/api/decks/halloween.json", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for .json suffix, got %d", w.Code)
	}

	w = serve(server, makeRequest("GET", "/api/decks/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

// Middleware Tests

func TestHealthAndRequestID(t *testing.T) {
	server := setupTestServer(&MockGameService{})

	w := serve(server, makeRequest("GET", "/api/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if w.Header().Get(requestIDHeader) == "" {
		t.Error("Expected a generated request ID")
	}

	req := makeRequest("GET", "/api/health", nil)
	req.Header.Set(requestIDHeader, "req-42")
	w = serve(server, req)
	if got := w.Header().Get(requestIDHeader); got != "req-42" {
		t.Errorf("Expected request ID to be echoed, got %q", got)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	tests := []struct {
		method string
		path   string
	}{
		{method: "POST", path: "/api/health"},
		{method: "PUT", path: "/api/sessions/ab12/memory/click"},
		{method: "GET", path: "/api/sessions/ab12/memory/reset"},
		{method: "DELETE", path: "/api/sessions/ab12/memory"},
		{method: "GET", path: "/api/sessions/ab12/taboo/draw"},
	}

	server := setupTestServer(&MockGameService{})
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := serve(server, makeRequest(tt.method, tt.path, nil))
			if w.Code != http.StatusMethodNotAllowed {
				t.Errorf("Expected status 405, got %d", w.Code)
			}
			if w.Header().Get(requestIDHeader) == "" {
				t.Error("Expected request ID on rejected requests")
			}
		})
	}

	w := serve(server, makeRequest("GET", "/api/nowhere", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown path, got %d", w.Code)
	}
}

func TestCORS(t *testing.T) {
	server := NewServer(&MockGameService{}, nil, WithAllowedOrigins("http://localhost:5173"))

	req := makeRequest("GET", "/api/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := serve(server, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Expected allowed origin header, got %q", got)
	}

	req = makeRequest("GET", "/api/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = serve(server, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Expected no allow-origin header for foreign origin, got %q", got)
	}
}

func TestRecoverer(t *testing.T) {
	mockService := &MockGameService{
		GetMemoryStateFunc: func(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
			panic("boom")
		},
	}

	w := serve(setupTestServer(mockService), makeRequest("GET", "/api/sessions/ab12/memory", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", session.ErrSessionNotFound), http.StatusNotFound},
		{deck.ErrDeckNotFound, http.StatusNotFound},
		{engine.ErrClosed, http.StatusNotFound},
		{session.ErrInvalidSessionID, http.StatusBadRequest},
		{engine.ErrInvalidIndex, http.StatusBadRequest},
		{fmt.Errorf("%w: bad", deck.ErrInvalidDeck), http.StatusUnprocessableEntity},
		{taboo.ErrNoCard, http.StatusUnprocessableEntity},
		{fmt.Errorf("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := statusForError(tt.err); got != tt.want {
			t.Errorf("statusForError(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

// WebSocket Tests

func TestWebSocket(t *testing.T) {
	tests := []struct {
		name           string
		queryParams    string
		setupMock      func(*MockGameService)
		expectedStatus int
	}{
		{
			name:           "Missing session parameter",
			queryParams:    "",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "Invalid session",
			queryParams: "?session=invalid",
			setupMock: func(m *MockGameService) {
				m.GetSessionFunc = func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
					return nil, notFound(sessionID)
				}
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:        "Valid session",
			queryParams: "?session=ab12",
			setupMock: func(m *MockGameService) {
				m.GetSessionFunc = func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
					return &service.SessionInfo{ID: sessionID, DeckName: "halloween"}, nil
				}
			},
			expectedStatus: http.StatusSwitchingProtocols,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			server := setupTestServer(mockService)
			w := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/ws"+tt.queryParams, nil)

			if tt.expectedStatus == http.StatusSwitchingProtocols {
				req.Header.Set("Upgrade", "websocket")
				req.Header.Set("Connection", "Upgrade")
				req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
				req.Header.Set("Sec-WebSocket-Version", "13")
			}

			server.handleWebSocket(w, req)

			// httptest.ResponseRecorder is not an http.Hijacker, so the
			// upgrade itself reports 500 once it is attempted
			if tt.expectedStatus == http.StatusSwitchingProtocols && w.Code == http.StatusInternalServerError {
				return
			}

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}
