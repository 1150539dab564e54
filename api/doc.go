// Package api provides the HTTP REST API.
//
// Endpoints:
//
// Session Management:
//   - POST   /api/sessions             - Create a session {"pack": "classic"}
//   - GET    /api/sessions             - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET    /api/sessions/{id}        - Session info with its current state
//   - DELETE /api/sessions/{id}        - Delete a session
//
// Game Operations:
//   - GET  /api/sessions/{id}/state     - Current state view
//   - POST /api/sessions/{id}/move      - {"direction": "up|down|left|right|w|a|s|d"}
//   - POST /api/sessions/{id}/bulk-move - {"moves": ["right", "d", "undo"]}
//   - POST /api/sessions/{id}/undo
//   - POST /api/sessions/{id}/reset
//   - POST /api/sessions/{id}/next
//   - POST /api/sessions/{id}/previous
//   - GET  /api/sessions/{id}/solve     - Shortest winning sequence (?max_depth=&max_states=)
//
// Rules:
//   - GET  /api/sessions/{id}/rules - Active kind/property assignments
//   - POST /api/sessions/{id}/rules - {"kind": "rock", "property": "push"}
//
// Level Packs:
//   - GET  /api/packs
//   - POST /api/packs        - Save a pack under its own name
//   - GET  /api/packs/{name}
//   - PUT  /api/packs/{name} - Save a pack under name
//
// WebSocket:
//   - GET /ws?session={id} - Live state updates, see package websocket
//
// Error Handling:
//
// Errors are returned as {"error": "message"}. Unknown sessions and packs
// map to 404, invalid actions, rules and packs to 400, an exhausted solver
// search to 422 and a solver timeout to 504.
package api
