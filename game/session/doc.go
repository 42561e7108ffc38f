// Package session provides session management for snakegrid boards.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique session ID generation
//   - Session lifecycle management, including stopping runners
//   - Session cleanup and expiration
//
// Core Types:
//
// Manager is the main session manager that handles all session operations.
// Each service.Session owns its own engine instance plus metadata like
// creation time and last access time.
//
// Session Identifiers:
//
// Sessions use 4-character hex IDs for easy reference. IDs are matched
// case-insensitively and a colliding random ID is redrawn.
//
// Engine Options:
//
// Options passed to NewManager reach every engine the manager builds. The
// server uses this to install the autopilot:
//
//	manager := session.NewManager(engine.WithPilot(autopilot.Choose))
//
//	sess, err := manager.Create("", config)
//	if err != nil {
//		log.Fatal(err)
//	}
//	sess, err = manager.Get(sess.ID)
//	sessions := manager.List()
//
// Cleanup:
//
// Sessions are kept in memory only. Deleting or expiring a session stops
// its runner first. Running sessions never expire.
package session
