// Package session keeps the in-memory registry of game sessions.
//
// A service.Session pairs a GameEngine with the level pack it plays and its
// creation and last-access times. The Manager implements
// service.SessionManager; the game service serializes actions, so the
// manager only guards the registry itself.
//
// IDs:
//
// Create with an empty ID draws 4 lowercase hex characters from crypto/rand,
// retrying on collision. Caller-supplied IDs are accepted when free. Lookups
// are case-insensitive.
//
// Usage:
//
//	manager := session.NewManager()
//	sess, err := manager.Create("", engine.DefaultLevelPack())
//	...
//	sess, err = manager.Get(sess.ID)
//
//	// From a periodic routine
//	removed := manager.CleanupExpiredSessions(24 * time.Hour)
//
// Sessions never outlive the process.
package session
