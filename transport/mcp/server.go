package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"github.com/wricardo/pushrules/game/engine"
	"github.com/wricardo/pushrules/game/service"
	"github.com/wricardo/pushrules/game/solver"
)

// solveTimeout bounds a solve_level call
const solveTimeout = 10 * time.Second

// Server exposes the game service as MCP tools
type Server struct {
	service   service.GameService
	mcpServer *server.MCPServer
}

// NewServer creates an MCP server backed by gameService
func NewServer(gameService service.GameService, version string) *Server {
	s := &Server{service: gameService}

	s.mcpServer = server.NewMCPServer(
		"pushrules",
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions(`Push Rules - MCP Interface

A grid puzzle: whatever is YOU moves, things that are PUSH get shoved along,
STOP blocks, and you win when something that is YOU shares a cell with
something that is WIN.

AVAILABLE TOOLS:
- create_session: Start a session on a level pack
- list_sessions: List active sessions
- game_state: Show the grid, rules and level of a session
- move: One move (up/down/left/right) - requires intent explanation
- bulk_move: Several moves at once, stops on victory - requires intent explanation
- undo: Step back one move
- reset_level: Restart the current level
- change_level: Go to the next or previous level
- add_rule: Give an object kind a property (e.g. rock is you)
- list_packs: List level packs
- solve_level: Find the shortest winning sequence from the current state
- game_instructions: Legend and rules reference

NOTE: The 'intent' parameter on move/bulk_move serves as rubber duck debugging - explain your reasoning!`),
	)

	s.registerTools()
	return s
}

// MCPServer returns the underlying MCP server
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves MCP over stdin/stdout until the input closes
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// Handler serves JSON-RPC MCP messages over HTTP POST
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := s.mcpServer.HandleMessage(r.Context(), body)
		if response == nil {
			// Notifications carry no response
			w.WriteHeader(http.StatusAccepted)
			return
		}

		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(responseData)
	})
}

func sessionIDProperty() map[string]any {
	return map[string]any{
		"type":        "string",
		"description": "Session ID",
	}
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	directions := []string{"up", "down", "left", "right"}

	// Session management
	s.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session on a level pack",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"pack": map[string]any{
					"type":        "string",
					"description": "Level pack ID from list_packs (optional, default pack when empty)",
				},
			},
		},
	}, s.handleCreateSession)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, s.handleListSessions)

	// Game operations
	s.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current grid, rules and level of a session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"session_id": sessionIDProperty()},
			Required:   []string{"session_id"},
		},
	}, s.handleGameState)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "move",
		Description: "Move everything that is YOU one cell in a direction",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionIDProperty(),
				"direction": map[string]any{
					"type":        "string",
					"enum":        directions,
					"description": "Direction to move",
				},
				"intent": map[string]any{
					"type":        "string",
					"description": "Brief explanation of the intent behind this move (serves as a rubber duck to help explain your reasoning)",
				},
			},
			Required: []string{"session_id", "direction"},
		},
	}, s.handleMove)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "bulk_move",
		Description: fmt.Sprintf("Execute up to %d actions in sequence, stopping when the level is won", engine.MaxBulkMoves),
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionIDProperty(),
				"moves": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "string",
						"enum": append(directions, "undo", "reset"),
					},
					"description": "Array of moves",
				},
				"intent": map[string]any{
					"type":        "string",
					"description": "Brief explanation of the intent behind this sequence of moves (serves as a rubber duck to help explain your reasoning)",
				},
			},
			Required: []string{"session_id", "moves"},
		},
	}, s.handleBulkMove)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "undo",
		Description: "Undo the last move",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"session_id": sessionIDProperty()},
			Required:   []string{"session_id"},
		},
	}, s.actionHandler(engine.ActionUndo))

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_level",
		Description: "Restart the current level and clear its undo history",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"session_id": sessionIDProperty()},
			Required:   []string{"session_id"},
		},
	}, s.actionHandler(engine.ActionReset))

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "change_level",
		Description: "Go to the next or previous level of the pack",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionIDProperty(),
				"to": map[string]any{
					"type":        "string",
					"enum":        []string{"next", "previous"},
					"description": "Which level to go to",
				},
			},
			Required: []string{"session_id", "to"},
		},
	}, s.handleChangeLevel)

	// Rules
	kinds := make([]string, 0)
	for _, k := range engine.AllKinds() {
		kinds = append(kinds, k.String())
	}
	properties := make([]string, 0)
	for _, p := range engine.AllProperties() {
		properties = append(properties, p.String())
	}

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "add_rule",
		Description: "Give an object kind a property for the rest of the session (e.g. rock is you)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionIDProperty(),
				"kind": map[string]any{
					"type": "string",
					"enum": kinds,
				},
				"property": map[string]any{
					"type": "string",
					"enum": properties,
				},
			},
			Required: []string{"session_id", "kind", "property"},
		},
	}, s.handleAddRule)

	// Level packs
	s.mcpServer.AddTool(mcp.Tool{
		Name:        "list_packs",
		Description: "List available level packs",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, s.handleListPacks)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "solve_level",
		Description: "Find the shortest winning move sequence from the current state without changing it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionIDProperty(),
				"max_states": map[string]any{
					"type":        "integer",
					"description": fmt.Sprintf("Search budget in distinct states (default %d)", solver.DefaultMaxStates),
				},
			},
			Required: []string{"session_id"},
		},
	}, s.handleSolve)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the legend of the grid and how rules work",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, s.handleGameInstructions)
}

// Argument helpers

func arguments(request mcp.CallToolRequest) map[string]any {
	if args, ok := request.Params.Arguments.(map[string]any); ok {
		return args
	}
	return map[string]any{}
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return strings.TrimSpace(v)
}

func requireString(args map[string]any, key string) (string, error) {
	v := stringArg(args, key)
	if v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}

// Tool handlers

func (s *Server) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	info, err := s.service.CreateSession(ctx, stringArg(args, "pack"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Session created: %s\n\n%s", info.ID, formatState(info.State))
	return mcp.NewToolResultText(result), nil
}

func (s *Server) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessions, err := s.service.ListSessions(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(sessions) == 0 {
		return mcp.NewToolResultText("No active sessions."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d active sessions:\n", len(sessions))
	for _, sess := range sessions {
		st := sess.State
		status := "playing"
		if st.Win {
			status = "won"
		}
		fmt.Fprintf(&b, "- %s: pack %s, level %d/%d (%s), %d moves, %s\n",
			sess.ID, sess.PackID, st.Level+1, st.LevelCount, st.LevelName, st.Moves, status)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := requireString(arguments(request), "session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	state, err := s.service.GetGameState(ctx, sessionID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatState(state)), nil
}

func (s *Server) handleMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, err := requireString(args, "session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	action, err := engine.ParseAction(stringArg(args, "direction"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, ok := action.Direction(); !ok {
		return mcp.NewToolResultError(fmt.Sprintf("%s is not a direction", action)), nil
	}

	if intent := stringArg(args, "intent"); intent != "" {
		log.Debug().Str("session", sessionID).Str("action", string(action)).Str("intent", intent).Msg("MCP move")
	}
	return s.act(ctx, sessionID, action)
}

func (s *Server) actionHandler(action engine.Action) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID, err := requireString(arguments(request), "session_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return s.act(ctx, sessionID, action)
	}
}

func (s *Server) handleChangeLevel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, err := requireString(args, "session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	switch stringArg(args, "to") {
	case "next":
		return s.act(ctx, sessionID, engine.ActionNext)
	case "previous":
		return s.act(ctx, sessionID, engine.ActionPrevious)
	}
	return mcp.NewToolResultError("to must be next or previous"), nil
}

func (s *Server) act(ctx context.Context, sessionID string, action engine.Action) (*mcp.CallToolResult, error) {
	resp, err := s.service.Act(ctx, sessionID, action)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatActionResponse(resp)), nil
}

func (s *Server) handleBulkMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, err := requireString(args, "session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	raw, ok := args["moves"].([]any)
	if !ok || len(raw) == 0 {
		return mcp.NewToolResultError("moves must be a non-empty array"), nil
	}

	actions := make([]engine.Action, 0, len(raw))
	for i, m := range raw {
		name, _ := m.(string)
		action, err := engine.ParseAction(name)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("move %d: %v", i+1, err)), nil
		}
		actions = append(actions, action)
	}

	if intent := stringArg(args, "intent"); intent != "" {
		log.Debug().Str("session", sessionID).Int("moves", len(actions)).Str("intent", intent).Msg("MCP bulk move")
	}

	result, err := s.service.BulkAct(ctx, sessionID, actions)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatBulkResult(result)), nil
}

func (s *Server) handleAddRule(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, err := requireString(args, "session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	kind, err := engine.ParseObjectKind(stringArg(args, "kind"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	property, err := engine.ParseProperty(stringArg(args, "property"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	state, err := s.service.AddRule(ctx, sessionID, engine.Rule{Kind: kind, Property: property})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Rule added: %s is %s\n\n%s", kind, property, formatState(state))
	return mcp.NewToolResultText(result), nil
}

func (s *Server) handleListPacks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	packs, err := s.service.ListPacks(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available level packs:\n")
	for _, p := range packs {
		fmt.Fprintf(&b, "- %s: %s (%d levels)", p.PackID, p.Name, p.Levels)
		if p.Description != "" {
			fmt.Fprintf(&b, " - %s", p.Description)
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handleSolve(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, err := requireString(args, "session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var opts solver.Options
	if n, ok := args["max_states"].(float64); ok && n > 0 {
		opts.MaxStates = int(n)
	}

	ctx, cancel := context.WithTimeout(ctx, solveTimeout)
	defer cancel()

	sol, err := s.service.Solve(ctx, sessionID, opts)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(sol.Moves) == 0 {
		return mcp.NewToolResultText("The level is already won."), nil
	}

	moves := make([]string, 0, len(sol.Moves))
	for _, a := range sol.Actions() {
		moves = append(moves, string(a))
	}
	result := fmt.Sprintf("Solution in %d moves (%d states explored):\n%s",
		len(sol.Moves), sol.Explored, strings.Join(moves, ", "))
	return mcp.NewToolResultText(result), nil
}

func (s *Server) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var b strings.Builder
	b.WriteString(`PUSH RULES - HOW TO PLAY

GRID: 33 columns x 18 rows, (0,0) is the top-left cell. Each cell holds a
stack of up to 5 objects; the grid shows the top one.

LEGEND:
  ' ' empty   '#' wall   '0' rock   '@' baba   '$' flag
`)
	for _, k := range engine.TextKinds() {
		fmt.Fprintf(&b, "  '%c' %s\n", engine.CharForKind(k), k)
	}
	b.WriteString(`
PROPERTIES:
  you  - moves when you move
  push - is shoved one cell by whatever enters its cell; a chain of pushes
         fails if it would hit STOP or the grid edge
  stop - cannot be entered
  win  - touching it with something that is YOU wins the level

DEFAULT RULES: baba is you, wall is stop, flag is win, rock and all text
are push. add_rule grants extra properties for the rest of the session.

When a cell is full (5 objects) anything pushed into it is lost.
Undo history is bounded; reset_level and change_level clear it.
`)
	return mcp.NewToolResultText(b.String()), nil
}

// Formatting helpers

func formatState(state *service.StateView) string {
	if state == nil {
		return ""
	}

	var b strings.Builder
	status := "in progress"
	if state.Win {
		status = "WON - use change_level to continue"
	}
	fmt.Fprintf(&b, "Pack %s, level %d/%d: %s (%s)\n",
		state.Pack, state.Level+1, state.LevelCount, state.LevelName, status)
	fmt.Fprintf(&b, "Moves: %d, undo depth: %d/%d\n\n", state.Moves, state.HistoryDepth, state.HistoryCap)

	for _, row := range state.Rows {
		b.WriteString(row)
		b.WriteString("\n")
	}

	b.WriteString("\nRules:\n")
	for _, p := range engine.AllProperties() {
		kinds := state.Rules[p.String()]
		names := make([]string, 0, len(kinds))
		for _, k := range kinds {
			names = append(names, k.String())
		}
		if len(names) == 0 {
			names = append(names, "(nothing)")
		}
		fmt.Fprintf(&b, "  %s: %s\n", p, strings.Join(names, ", "))
	}
	return b.String()
}

func formatActionResponse(resp *service.ActionResponse) string {
	var b strings.Builder
	b.WriteString(resp.Message)
	b.WriteString("\n")
	for _, e := range resp.Events {
		if e.Type != "move" {
			fmt.Fprintf(&b, "[%s] %s\n", e.Type, e.Message)
		}
	}
	b.WriteString("\n")
	b.WriteString(formatState(resp.State))
	return b.String()
}

func formatBulkResult(result *service.BulkActionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Executed %d of %d actions", result.ActionsExecuted, result.RequestedActions)
	if result.Truncated {
		fmt.Fprintf(&b, " (truncated to %d)", result.Limit)
	}
	b.WriteString("\n")
	if result.StopReasonCode != "" {
		fmt.Fprintf(&b, "Stopped on action %d: %s (%s)\n", result.StoppedOnAction, result.StoppedReason, result.StopReasonCode)
	}
	for _, e := range result.Events {
		if e.Type != "move" {
			fmt.Fprintf(&b, "[%s] %s\n", e.Type, e.Message)
		}
	}
	b.WriteString("\n")
	b.WriteString(formatState(result.State))
	return b.String()
}
