// Package mcp provides the Model Context Protocol server for Push Rules.
//
// The server calls the game service in-process, so moves made through MCP
// reach WebSocket viewers the same way REST moves do.
//
// MCP Tools:
//   - create_session: Start a session on a level pack
//   - list_sessions: List active sessions
//   - game_state: Grid, rules and level of a session
//   - move: One directional move
//   - bulk_move: Up to engine.MaxBulkMoves actions, stopping on victory
//   - undo: Step back one move
//   - reset_level: Restart the current level
//   - change_level: Next or previous level
//   - add_rule: Give an object kind a property
//   - list_packs: Available level packs
//   - solve_level: Shortest winning sequence from the current state
//   - game_instructions: Legend and rules reference
//
// Every game tool requires session_id. Tool failures come back as MCP
// error results, never as protocol errors.
//
// Usage:
//
//	server := mcp.NewServer(gameService, version)
//
//	// Stdio mode
//	server.ServeStdio()
//
//	// HTTP mode
//	apiServer.Mount("/mcp", server.Handler())
package mcp
