// Package service provides the business logic layer for the vocabulary game server.
//
// The service package implements:
//   - Multi-session game management
//   - Memory board commands (flip, reset, state)
//   - Taboo round commands (draw, timer, hints)
//   - Vocabulary growth through a card generator
//   - Speech and state announcements to connected clients
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// DeckManager loads the vocabulary decks sessions are dealt from.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the game engines. Each session owns its own memory engine and taboo round.
// The Announcer builds the per-session callbacks that turn engine events into
// Notifier broadcasts, so timer-driven changes reach clients without polling.
//
// Usage:
//
//	announcer := service.NewAnnouncer(hub, logger)
//	sessionMgr := session.NewManager(
//		session.WithMemoryOptions(announcer.MemoryOptions),
//		session.WithTabooOptions(announcer.TabooOptions),
//	)
//	deckMgr := deck.NewManager("decks")
//	gameService := service.NewGameService(sessionMgr, deckMgr,
//		service.WithAnnouncer(announcer))
//
//	// Create a new session
//	info, err := gameService.CreateSession(ctx, "halloween")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Flip a tile
//	result, err := gameService.ClickTile(ctx, info.ID, 3)
//
// Session Management:
//
// Sessions are identified by 4-character IDs and are kept in memory only.
// Every lookup refreshes the session's last access time, which drives expiry.
package service
