// Package mcp provides a Model Context Protocol server for the vocabulary game.
//
// The mcp package implements:
//   - MCP tools that let AI agents play both games
//   - A thin proxy over the REST API, so agents and browsers share sessions
//   - Text renderings of the board, taboo card and vocabulary
//
// MCP Tools:
//
//   - create_session, list_sessions, get_session: session management
//   - memory_state, click_tile, reset_memory: memory game
//   - taboo_state, draw_taboo_card, toggle_taboo_timer, reset_taboo, taboo_hint: taboo game
//   - list_cards, generate_cards: session vocabulary
//   - list_decks: available decks
//   - game_instructions: rules and tips
//
// The memory board rendering never shows the content of a face-down tile.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
//
// The same MCP server also answers JSON-RPC messages posted to /mcp when the
// HTTP server is running.
package mcp
