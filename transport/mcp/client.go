package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/spooky-vocab/game/deck"
	"github.com/wricardo/spooky-vocab/game/engine"
	"github.com/wricardo/spooky-vocab/game/service"
	"github.com/wricardo/spooky-vocab/game/taboo"
)

const (
	serverName    = "Spooky Vocab"
	serverVersion = "1.0.0"

	// Tiles per row when drawing the memory board
	boardColumns = 5
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(true),
		server.WithInstructions(`Spooky Vocab - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAMES:
- Memory: flip two tiles at a time and pair each picture with its English word.
- Taboo: describe the word on the card without saying it or any of its taboo words.

AVAILABLE TOOLS:
- create_session / list_sessions / get_session: manage sessions
- memory_state, click_tile, reset_memory: play the memory game
- taboo_state, draw_taboo_card, toggle_taboo_timer, reset_taboo, taboo_hint: run a taboo round
- list_cards, generate_cards: inspect and grow the session vocabulary
- list_decks: available vocabulary decks
- game_instructions: full rules and tips`),
	)

	// Register all tools
	c.registerTools()
}

func sessionTool(name, description string) mcp.Tool {
	return mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
			},
			Required: []string{"session_id"},
		},
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session dealt from a vocabulary deck",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"deck": map[string]interface{}{
					"type":        "string",
					"description": "Deck ID to deal from (optional, see list_decks)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(sessionTool("get_session", "Get details of a specific session"), c.handleGetSession)

	// Memory game
	c.mcpServer.AddTool(sessionTool("memory_state", "Show the memory board. Face-down tiles are hidden."), c.handleMemoryState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "click_tile",
		Description: "Flip a memory tile. The second flip of a turn is compared after a short delay.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
				"index": map[string]interface{}{
					"type":        "integer",
					"description": "Board position of the tile (0-based)",
				},
			},
			Required: []string{"session_id", "index"},
		},
	}, c.handleClickTile)

	c.mcpServer.AddTool(sessionTool("reset_memory", "Deal a fresh memory round"), c.handleResetMemory)

	// Taboo game
	c.mcpServer.AddTool(sessionTool("taboo_state", "Show the taboo card and countdown"), c.handleTabooState)
	c.mcpServer.AddTool(sessionTool("draw_taboo_card", "Draw a random taboo card"), c.handleDrawTabooCard)
	c.mcpServer.AddTool(sessionTool("toggle_taboo_timer", "Start or pause the taboo countdown"), c.handleToggleTabooTimer)
	c.mcpServer.AddTool(sessionTool("reset_taboo", "Restore the full countdown and clear the card"), c.handleResetTaboo)
	c.mcpServer.AddTool(sessionTool("taboo_hint", "Ask for a spooky hint about the current card"), c.handleTabooHint)

	// Vocabulary
	c.mcpServer.AddTool(sessionTool("list_cards", "List the session vocabulary"), c.handleListCards)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "generate_cards",
		Description: "Add new Halloween words to the session vocabulary. The next memory reset deals from the larger pool.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
				"count": map[string]interface{}{
					"type":        "integer",
					"description": "Number of cards to add (1-6)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleGenerateCards)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_decks",
		Description: "List available vocabulary decks",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListDecks)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get game instructions and rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// apiCall makes an HTTP request to the REST API
func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	return args
}

func sessionPath(request mcp.CallToolRequest, suffix string) (string, error) {
	sessionID, _ := arguments(request)["session_id"].(string)
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", fmt.Errorf("session_id is required")
	}
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix, nil
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	deckName, _ := arguments(request)["deck"].(string)

	body := map[string]string{}
	if deckName != "" {
		body["deck"] = deckName
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nDeck: %s (%d cards)\n", session.ID, session.DeckName, session.CardCount)
	if session.Memory != nil {
		result += "\n" + formatBoard(session.Memory)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		fmt.Fprintf(&b, "- %s (Deck: %s, Cards: %d, Created: %s)\n",
			s.ID, s.DeckName, s.CardCount, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(request, "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", path, nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleMemoryState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(request, "/memory")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state engine.Snapshot
	if err := c.apiCall(ctx, "GET", path, nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatBoard(&state)), nil
}

func (c *Client) handleClickTile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(request, "/memory/click")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	index, ok := arguments(request)["index"].(float64)
	if !ok {
		return mcp.NewToolResultError("index is required"), nil
	}

	var result engine.ClickResult
	if err := c.apiCall(ctx, "POST", path, map[string]int{"index": int(index)}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatClickResult(&result)), nil
}

func (c *Client) handleResetMemory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(request, "/memory/reset")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var response struct {
		Message string           `json:"message"`
		State   *engine.Snapshot `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", response.Message, formatBoard(response.State))), nil
}

func (c *Client) handleTabooState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.tabooCall(ctx, request, "GET", "")
}

func (c *Client) handleDrawTabooCard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.tabooCall(ctx, request, "POST", "/draw")
}

func (c *Client) handleToggleTabooTimer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.tabooCall(ctx, request, "POST", "/timer")
}

func (c *Client) handleResetTaboo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.tabooCall(ctx, request, "POST", "/reset")
}

func (c *Client) tabooCall(ctx context.Context, request mcp.CallToolRequest, method, suffix string) (*mcp.CallToolResult, error) {
	path, err := sessionPath(request, "/taboo"+suffix)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state taboo.State
	if err := c.apiCall(ctx, method, path, nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatTabooState(&state)), nil
}

func (c *Client) handleTabooHint(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(request, "/taboo/hint")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.HintResult
	if err := c.apiCall(ctx, "POST", path, nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Hint: %s", result.Hint)), nil
}

func (c *Client) handleListCards(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(request, "/cards")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var response struct {
		Count int                      `json:"count"`
		Cards []engine.VocabularyEntry `json:"cards"`
	}
	if err := c.apiCall(ctx, "GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatCards(fmt.Sprintf("Vocabulary (%d cards):", response.Count), response.Cards)), nil
}

func (c *Client) handleGenerateCards(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(request, "/cards/generate")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body := map[string]int{}
	if count, ok := arguments(request)["count"].(float64); ok {
		body["count"] = int(count)
	}

	var result service.GenerateResult
	if err := c.apiCall(ctx, "POST", path, body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(result.Added) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No new cards available. The session has %d cards.", result.Total)), nil
	}

	header := fmt.Sprintf("Added %d of %d requested cards (%d total). Reset the memory game to play them.",
		len(result.Added), result.Requested, result.Total)
	return mcp.NewToolResultText(formatCards(header, result.Added)), nil
}

func (c *Client) handleListDecks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var decks []deck.Info
	if err := c.apiCall(ctx, "GET", "/api/decks", nil, &decks); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Decks:\n\n")
	for _, d := range decks {
		status := "playable"
		if !d.Playable {
			status = "too small for a memory round"
		}
		fmt.Fprintf(&b, "• %s (%s)\n  %s\n  Cards: %d, %s\n\n", d.DeckID, d.Source, d.Description, d.CardCount, status)
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `🎃 Spooky Vocab - Game Instructions

MEMORY GAME:
The board holds 20 face-down tiles: 10 pictures and the 10 English words that name them.
• Flip a tile with click_tile. Flip a second tile to complete the turn.
• A picture and its word stay face up as a match. Two tiles that do not pair turn back over.
• Matches resolve after 600ms and mismatches after 1 second. Clicks in between are ignored.
• Each completed pair of flips counts as one move. The clock starts on the first flip.
• Match all 10 pairs to win. reset_memory deals a new board from the session vocabulary.

TABOO GAME:
• draw_taboo_card puts a word on the table together with its forbidden words.
• toggle_taboo_timer starts or pauses a 60 second countdown.
• Describe the word without saying it or any taboo word. taboo_hint gives a spooky nudge.
• reset_taboo restores the full minute and clears the card.

VOCABULARY:
• list_cards shows every word in the session.
• generate_cards adds new Halloween words. The current board is kept; the next reset uses them.

TIPS FOR AGENTS:
• Call memory_state after the delay to see the outcome of your last pair.
• Remember what each flipped tile showed. Face-down tiles are hidden on purpose.
• Revealed and matched tiles cannot be flipped again.

Happy haunting!`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\nDeck: %s\nCards: %d\nCreated: %s\nLast Accessed: %s\n",
		session.ID, session.DeckName, session.CardCount,
		session.CreatedAt.Format(time.RFC3339), session.LastAccessedAt.Format(time.RFC3339))
	if session.Memory != nil {
		b.WriteString("\n" + formatBoard(session.Memory))
	}
	if session.Taboo != nil {
		b.WriteString("\n" + formatTabooState(session.Taboo))
	}
	return b.String()
}

// formatBoard draws the memory board. Face-down tiles never show their content.
func formatBoard(state *engine.Snapshot) string {
	if state == nil {
		return "No board.\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Memory round %d (%s)\n", state.Round, state.Phase)
	fmt.Fprintf(&b, "Matches: %d/%d  Moves: %d  Time: %ds\n\n", state.Matches, state.Pairs, state.Moves, state.ElapsedSeconds)

	for i, tile := range state.Tiles {
		fmt.Fprintf(&b, "%2d %-18s", tile.Index, tileLabel(tile))
		if (i+1)%boardColumns == 0 {
			b.WriteString("\n")
		}
	}
	if len(state.Tiles)%boardColumns != 0 {
		b.WriteString("\n")
	}

	if len(state.Pending) > 0 {
		fmt.Fprintf(&b, "\nFlipped: %v\n", state.Pending)
	}
	if state.HasWon && state.Result != nil {
		fmt.Fprintf(&b, "\n🏆 All pairs found in %d moves and %d seconds!\n", state.Result.Moves, state.Result.ElapsedSeconds)
	}
	return b.String()
}

func tileLabel(tile engine.TileView) string {
	switch {
	case tile.IsMatched:
		return "✓ " + tileContent(tile)
	case tile.IsRevealed:
		return tileContent(tile)
	default:
		return "[?]"
	}
}

func tileContent(tile engine.TileView) string {
	if tile.Kind == engine.KindImage {
		return "🖼 " + imageKeyword(tile.Content)
	}
	return tile.Content
}

// imageKeyword shortens an image URL to its last path element
func imageKeyword(ref string) string {
	if i := strings.LastIndexAny(ref, "/,"); i >= 0 && i < len(ref)-1 {
		ref = ref[i+1:]
	}
	if unescaped, err := url.PathUnescape(ref); err == nil {
		ref = unescaped
	}
	return ref
}

func formatClickResult(result *engine.ClickResult) string {
	var b strings.Builder
	switch {
	case !result.Accepted:
		fmt.Fprintf(&b, "Tile %d ignored (%s).\n", result.Index, result.Reason)
	case result.Comparison == engine.ComparisonMatch:
		fmt.Fprintf(&b, "Tile %d flipped. It's a match! Resolving shortly.\n", result.Index)
	case result.Comparison == engine.ComparisonMismatch:
		fmt.Fprintf(&b, "Tile %d flipped. No match, both tiles will turn back over.\n", result.Index)
	default:
		fmt.Fprintf(&b, "Tile %d flipped. Pick a second tile.\n", result.Index)
	}
	b.WriteString("\n" + formatBoard(&result.Snapshot))
	return b.String()
}

func formatTabooState(state *taboo.State) string {
	var b strings.Builder
	b.WriteString("Taboo round\n")
	if state.Card == nil {
		b.WriteString("No card drawn.\n")
	} else {
		fmt.Fprintf(&b, "Word: %s\n", state.Card.Word)
		if state.Card.Translation != "" {
			fmt.Fprintf(&b, "Translation: %s\n", state.Card.Translation)
		}
		fmt.Fprintf(&b, "Taboo: %s\n", strings.Join(state.Card.TabooWords, ", "))
	}

	status := "paused"
	switch {
	case state.TimesUp:
		status = "time's up!"
	case state.IsRunning:
		status = "running"
	}
	fmt.Fprintf(&b, "Timer: %ds of %ds (%s)\n", state.TimeLeft, state.Duration, status)

	if state.Hint != "" {
		fmt.Fprintf(&b, "Hint: %s\n", state.Hint)
	}
	return b.String()
}

func formatCards(header string, cards []engine.VocabularyEntry) string {
	var b strings.Builder
	b.WriteString(header + "\n\n")
	for _, card := range cards {
		if card.Translation != "" {
			fmt.Fprintf(&b, "• %s (%s)\n", card.Word, card.Translation)
		} else {
			fmt.Fprintf(&b, "• %s\n", card.Word)
		}
	}
	return b.String()
}
