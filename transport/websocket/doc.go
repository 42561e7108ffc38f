// Package websocket provides the spectator stream for snakegrid sessions.
//
// Architecture:
//
// The package uses a hub-and-spoke model where a central Hub manages all
// WebSocket connections. Only the hub's Run goroutine touches the client
// registry; registration, removal and broadcasts all arrive on channels.
// Each client connection has a read pump and a write pump goroutine.
//
// Message Protocol:
//
// Messages are JSON-encoded:
//
//	{"session_id": "ab12", "event": "turn", "game_state": {...}, "data": {...TurnReport}}
//
// event is "state" for the snapshot sent on connect, "turn" after every
// completed turn and "reset" when a session starts a new episode.
// Clients never send game input over the socket.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//	gameService.Subscribe(hub.BroadcastTurn)
//
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"), nil)
//	})
//
// Broadcasting never blocks the caller. The runner publishes from its tick
// goroutine, so a full queue drops the update instead of stalling the game.
// A client whose own buffer is full is disconnected.
package websocket
