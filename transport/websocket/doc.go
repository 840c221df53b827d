// Package websocket provides WebSocket transport for the vocabulary game server.
//
// The websocket package implements:
//   - Session-scoped event delivery to browsers
//   - Non-blocking broadcasts safe to call from engine timer callbacks
//   - Connection lifecycle management with ping/pong keepalive
//
// Architecture:
//
// The package uses a hub-and-spoke model where a central Hub manages all
// WebSocket connections. Run owns the client map; registration, removal,
// broadcasts and client counts all reach it through channels. Each client
// connection has a read goroutine and a write goroutine.
//
// Message Protocol:
//
// Messages are JSON objects, one per frame:
//
//	{"session_id": "ab12", "event": "memory_match", "data": {...}}
//
// Events are "connected" on registration, memory_* with the engine event,
// taboo_* with the taboo state, and "speak" with the text to read aloud.
// Clients send commands through the REST API; inbound frames only keep the
// connection alive.
//
// Usage:
//
//	hub := websocket.NewHub(websocket.WithLogger(logger))
//	go hub.Run()
//	defer hub.Stop()
//
//	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
//
// Backpressure:
//
// BroadcastEvent drops the event with a warning when the hub queue is full,
// and the hub drops a client whose own queue is full.
package websocket
