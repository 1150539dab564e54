package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/wricardo/pushrules/game/engine"
	"github.com/wricardo/pushrules/game/service"
	"github.com/wricardo/pushrules/game/solver"
	"github.com/wricardo/pushrules/internal/observe"
	"github.com/wricardo/pushrules/transport/websocket"
)

// solveTimeout bounds a hint request
const solveTimeout = 10 * time.Second

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
}

// Option configures the server
type Option func(*Server)

// WithMetrics records request durations per route
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) {
		s.router.Use(observe.Middleware(m))
	}
}

// NewServer creates a new API server. hub may be nil, which disables /ws.
func NewServer(gameService service.GameService, hub *websocket.Hub, opts ...Option) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
	}

	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Game operations
	api.HandleFunc("/sessions/{id}/state", s.handleGetGameState).Methods("GET")
	api.HandleFunc("/sessions/{id}/move", s.handleMove).Methods("POST")
	api.HandleFunc("/sessions/{id}/bulk-move", s.handleBulkMove).Methods("POST")
	api.HandleFunc("/sessions/{id}/undo", s.handleAction(engine.ActionUndo)).Methods("POST")
	api.HandleFunc("/sessions/{id}/reset", s.handleAction(engine.ActionReset)).Methods("POST")
	api.HandleFunc("/sessions/{id}/next", s.handleAction(engine.ActionNext)).Methods("POST")
	api.HandleFunc("/sessions/{id}/previous", s.handleAction(engine.ActionPrevious)).Methods("POST")
	api.HandleFunc("/sessions/{id}/solve", s.handleSolve).Methods("GET")

	// Rules
	api.HandleFunc("/sessions/{id}/rules", s.handleGetRules).Methods("GET")
	api.HandleFunc("/sessions/{id}/rules", s.handleAddRule).Methods("POST")

	// Level packs
	api.HandleFunc("/packs", s.handleListPacks).Methods("GET")
	api.HandleFunc("/packs", s.handleCreatePack).Methods("POST")
	api.HandleFunc("/packs/{name}", s.handleGetPack).Methods("GET")
	api.HandleFunc("/packs/{name}", s.handleSavePack).Methods("PUT")

	// WebSocket
	if s.hub != nil {
		s.router.HandleFunc("/ws", s.handleWebSocket)
	}
}

// Mount serves h under path, next to the API routes
func (s *Server) Mount(path string, h http.Handler) {
	s.router.PathPrefix(path).Handler(h)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service errors onto HTTP status codes
func respondServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrPackNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidAction), errors.Is(err, service.ErrInvalidPack):
		status = http.StatusBadRequest
	case errors.Is(err, solver.ErrNoSolution):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("Request failed")
	}
	respondError(w, status, err.Error())
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Pack string `json:"pack,omitempty"`
	}

	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	if req.Pack == "" {
		req.Pack = r.URL.Query().Get("pack")
	}

	session, err := s.service.CreateSession(r.Context(), req.Pack)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	total := len(sessions)

	// Parse query parameters
	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "accessed" (default)
	order := query.Get("order")    // "asc", "desc" (default: "desc")
	limitStr := query.Get("limit") // number of sessions to return

	// Set defaults
	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}

		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	// Apply limit if specified
	limit := len(sessions)
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(sessions) {
			limit = l
		}
	}
	sessions = sessions[:limit]

	respondJSON(w, http.StatusOK, map[string]any{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Game Operation Handlers

func (s *Server) handleGetGameState(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.GetGameState(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Direction string `json:"direction"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	action, err := engine.ParseAction(req.Direction)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, ok := action.Direction(); !ok {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("%q is not a direction", req.Direction))
		return
	}

	s.act(w, r, action)
}

// handleAction serves the endpoints that map to a single fixed action
func (s *Server) handleAction(action engine.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.act(w, r, action)
	}
}

func (s *Server) act(w http.ResponseWriter, r *http.Request, action engine.Action) {
	resp, err := s.service.Act(r.Context(), mux.Vars(r)["id"], action)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBulkMove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Moves []string `json:"moves"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Moves) == 0 {
		respondError(w, http.StatusBadRequest, "moves must not be empty")
		return
	}

	actions := make([]engine.Action, 0, len(req.Moves))
	for i, m := range req.Moves {
		action, err := engine.ParseAction(m)
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("move %d: %v", i+1, err))
			return
		}
		actions = append(actions, action)
	}

	result, err := s.service.BulkAct(r.Context(), mux.Vars(r)["id"], actions)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	var opts solver.Options
	query := r.URL.Query()
	for key, dst := range map[string]*int{"max_depth": &opts.MaxDepth, "max_states": &opts.MaxStates} {
		if v := query.Get(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s %q", key, v))
				return
			}
			*dst = n
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), solveTimeout)
	defer cancel()

	sol, err := s.service.Solve(ctx, mux.Vars(r)["id"], opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"moves":    sol.Actions(),
		"length":   len(sol.Moves),
		"explored": sol.Explored,
	})
}

// Rule Handlers

func (s *Server) handleGetRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.service.GetRules(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"count": len(rules),
		"rules": rules,
	})
}

func (s *Server) handleAddRule(w http.ResponseWriter, r *http.Request) {
	var rule engine.Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid rule: %v", err))
		return
	}

	state, err := s.service.AddRule(r.Context(), mux.Vars(r)["id"], rule)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, state)
}

// Level Pack Handlers

func (s *Server) handleListPacks(w http.ResponseWriter, r *http.Request) {
	packs, err := s.service.ListPacks(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, packs)
}

func (s *Server) handleGetPack(w http.ResponseWriter, r *http.Request) {
	pack, err := s.service.LoadPack(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, pack)
}

func (s *Server) handleCreatePack(w http.ResponseWriter, r *http.Request) {
	var pack engine.LevelPack
	if err := json.NewDecoder(r.Body).Decode(&pack); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if pack.Name == "" {
		respondError(w, http.StatusBadRequest, "Pack name is required")
		return
	}

	s.savePack(w, r, pack.Name, &pack)
}

func (s *Server) handleSavePack(w http.ResponseWriter, r *http.Request) {
	var pack engine.LevelPack
	if err := json.NewDecoder(r.Body).Decode(&pack); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	s.savePack(w, r, mux.Vars(r)["name"], &pack)
}

func (s *Server) savePack(w http.ResponseWriter, r *http.Request, name string, pack *engine.LevelPack) {
	if err := s.service.SavePack(r.Context(), name, pack); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"message": "Level pack saved successfully",
		"pack_id": name,
		"levels":  len(pack.Levels),
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "session parameter required")
		return
	}

	// Verify session exists
	if _, err := s.service.GetSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}

	s.hub.ServeWS(w, r, sessionID, func() (*service.StateView, error) {
		return s.service.GetGameState(r.Context(), sessionID)
	})
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
