// Package websocket pushes live session state to viewers.
//
// The package uses a hub-and-spoke model where a central Hub owns every
// viewer connection. Client bookkeeping and fan-out happen on the Run
// goroutine; each connection has a read pump and a write pump.
//
// Message Protocol:
//
// Viewers are read-only. Each frame is one JSON Message:
//   - {"event": "connected", "session_id": "ab12", "state": {...}} on connect
//   - {"event": "state_update", "session_id": "ab12", "state": {...}} after
//     every action applied to the session
//
// Actions are sent through the REST API or MCP tools, never over the socket.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//
//	svc := service.NewGameService(sessions, packs, service.WithNotifier(hub))
//
// Hub implements service.StateNotifier. BroadcastToSession never blocks the
// caller; updates are dropped with a warning when the queue is full, and a
// viewer that cannot keep up is disconnected.
package websocket
