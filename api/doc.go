// Package api provides the REST API for the vocabulary game server.
//
// The api package implements HTTP handlers for:
//   - Session management (create, list, get, delete)
//   - Memory game commands (state, click, reset)
//   - Taboo game commands (state, draw, timer, reset, hint)
//   - Vocabulary listing, card generation and speech relay
//   - Deck listing and retrieval
//   - WebSocket upgrade for live session events
//
// API Endpoints:
//
// Sessions:
//
//	POST   /api/sessions                      - Create session {deck}
//	GET    /api/sessions                      - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//	GET    /api/sessions/{id}                 - Session details with both game states
//	DELETE /api/sessions/{id}                 - Delete session and stop its timers
//
// Memory game:
//
//	GET    /api/sessions/{id}/memory          - Board snapshot
//	POST   /api/sessions/{id}/memory/click    - Flip a tile {index}
//	POST   /api/sessions/{id}/memory/reset    - Deal a fresh round
//
// Taboo game:
//
//	GET    /api/sessions/{id}/taboo           - Round state
//	POST   /api/sessions/{id}/taboo/draw      - Draw a random card
//	POST   /api/sessions/{id}/taboo/timer     - Start or pause the countdown
//	POST   /api/sessions/{id}/taboo/reset     - Restore the full countdown
//	POST   /api/sessions/{id}/taboo/hint      - Attach a hint to the current card
//
// Vocabulary and decks:
//
//	GET    /api/sessions/{id}/cards           - Session vocabulary
//	POST   /api/sessions/{id}/cards/generate  - Add new cards {count}
//	POST   /api/sessions/{id}/speak           - Read text aloud on clients {text}
//	GET    /api/decks                         - Available decks
//	GET    /api/decks/{name}                  - Deck contents
//
// Other:
//
//	GET    /api/health                        - Liveness check
//	GET    /ws?session={id}                   - WebSocket event stream
//
// Errors:
//
// Errors are returned as {"error": "message"}. Unknown sessions and decks map
// to 404, malformed bodies and bad tile indices to 400, and decks that cannot
// fill a board or taboo commands without a card to 422.
//
// Middleware:
//
// Every request gets an X-Request-ID (echoed when the client sends one) and a
// zap access log line. Handler panics become 500 responses. The router is
// wrapped in rs/cors so the browser UI can call the API from another origin.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run()
//	server := api.NewServer(gameService, hub, api.WithLogger(logger))
//	http.ListenAndServe(":8080", server)
package api
