// Package session keeps the live game sessions of the server in memory.
//
// A Manager maps short IDs to sessions. Each session owns its vocabulary, a
// memory engine and a taboo round built from the deck it was created with.
// IDs are four hex characters drawn from crypto/rand; lookups fold
// case, so "AB12" and "ab12" name the same session.
//
// Engines and rounds are built through per-session factories, which receive
// the session ID so callers can bind it into observers and speech:
//
//	manager := session.NewManager(
//		session.WithMemoryOptions(announcer.MemoryOptions),
//		session.WithTabooOptions(announcer.TabooOptions),
//	)
//	sess, err := manager.Create("", decks.GetDefault())
//
// Delete, CleanupExpiredSessions and Close stop the timers of every session
// they drop, so no tick or resolution fires for a session that is gone.
// Expiry compares the last access time against WithNow, which defaults to
// time.Now. Nothing is persisted; a restart starts with no sessions.
package session
