package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wricardo/pushrules/game/engine"
	"github.com/wricardo/pushrules/game/solver"
	"github.com/wricardo/pushrules/internal/observe"
)

// gameServiceImpl implements the GameService interface. Every call that
// touches an engine holds mu, so each action runs to completion with its
// history snapshot committed before the next one starts.
type gameServiceImpl struct {
	sessions SessionManager
	packs    PackManager
	metrics  *observe.Metrics
	notifier StateNotifier
	mu       sync.RWMutex
}

// Option configures the game service
type Option func(*gameServiceImpl)

// WithMetrics records action, win and session metrics to m
func WithMetrics(m *observe.Metrics) Option {
	return func(s *gameServiceImpl) {
		s.metrics = m
	}
}

// WithNotifier pushes the new state of a session to n after every change
func WithNotifier(n StateNotifier) Option {
	return func(s *gameServiceImpl) {
		s.notifier = n
	}
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, packs PackManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		packs:    packs,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession creates a new game session on the first level of a pack
func (s *gameServiceImpl) CreateSession(ctx context.Context, packName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pack *engine.LevelPack
	packID := packName
	if packName != "" {
		var err error
		pack, err = s.packs.LoadPack(packName)
		if err != nil {
			if errors.Is(err, ErrPackNotFound) {
				return nil, fmt.Errorf("%w: %q (available: %v)", ErrPackNotFound, packName, s.packIDs())
			}
			return nil, fmt.Errorf("failed to load pack %s: %w", packName, err)
		}
	} else {
		pack = s.packs.GetDefault()
		packID = pack.Name
	}

	// Let the session manager generate a 4-character ID
	sess, err := s.sessions.Create("", pack)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	sess.PackID = packID

	if s.metrics != nil {
		s.metrics.SessionOpened(ctx)
	}
	log.Info().
		Str("session", sess.ID).
		Str("pack", packID).
		Int("levels", sess.Engine.LevelCount()).
		Msg("Session created")

	return sessionInfo(sess), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return sessionInfo(sess), nil
}

// ListSessions returns all active sessions, oldest first
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})

	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.SessionClosed(ctx, 1)
	}
	log.Info().Str("session", sessionID).Msg("Session deleted")
	return nil
}

// CleanupExpiredSessions removes sessions idle for longer than maxAge
func (s *gameServiceImpl) CleanupExpiredSessions(ctx context.Context, maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := s.sessions.CleanupExpiredSessions(maxAge)
	if removed > 0 && s.metrics != nil {
		s.metrics.SessionClosed(ctx, removed)
	}
	return removed
}

// Act applies a single action to a session
func (s *gameServiceImpl) Act(ctx context.Context, sessionID string, action engine.Action) (*ActionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	result, events, err := s.apply(ctx, sess, action)
	if err != nil {
		return nil, err
	}

	view := buildStateView(sess)
	s.notify(sess.ID, view)

	return &ActionResponse{
		Result:  result,
		Message: describe(result),
		Events:  events,
		State:   view,
	}, nil
}

// BulkAct applies actions in order. It stops after the action that wins a
// level, or at the first action that fails.
func (s *gameServiceImpl) BulkAct(ctx context.Context, sessionID string, actions []engine.Action) (*BulkActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	result := &BulkActionResult{
		RequestedActions: len(actions),
		Results:          make([]engine.ActionResult, 0, len(actions)),
		Events:           make([]GameEvent, 0),
	}

	// Limit actions to prevent abuse
	if len(actions) > engine.MaxBulkMoves {
		result.Truncated = true
		result.Limit = engine.MaxBulkMoves
		actions = actions[:engine.MaxBulkMoves]
	}

	for i, action := range actions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ar, events, err := s.apply(ctx, sess, action)
		if err != nil {
			result.StopReasonCode = "error"
			result.StoppedReason = err.Error()
			result.StoppedOnAction = i + 1
			break
		}
		result.ActionsExecuted++
		result.Results = append(result.Results, ar)
		result.Events = append(result.Events, events...)

		if ar.Applied && ar.Win {
			if _, isMove := action.Direction(); isMove {
				result.StopReasonCode = "victory"
				result.StoppedReason = fmt.Sprintf("level %d complete", ar.Level+1)
				result.StoppedOnAction = i + 1
				break
			}
		}
	}

	result.State = buildStateView(sess)
	s.notify(sess.ID, result.State)
	return result, nil
}

// Solve searches for a winning move sequence from the session's current
// state. The search runs on a copy, outside the service lock.
func (s *gameServiceImpl) Solve(ctx context.Context, sessionID string, opts solver.Options) (*solver.Solution, error) {
	s.mu.RLock()
	sess, err := s.getSession(sessionID)
	if err != nil {
		s.mu.RUnlock()
		return nil, err
	}
	start := *sess.Engine.GetState()
	rules := sess.Engine.Rules().Clone()
	s.mu.RUnlock()

	started := time.Now()
	sol, err := solver.Solve(ctx, start, rules, opts)
	log.Debug().
		Str("session", sessionID).
		Int("explored", sol.Explored).
		Dur("elapsed", time.Since(started)).
		Err(err).
		Msg("Solve finished")
	return sol, err
}

// GetGameState returns the current state of a session
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*StateView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return buildStateView(sess), nil
}

// GetRules lists the active rules of a session
func (s *gameServiceImpl) GetRules(ctx context.Context, sessionID string) ([]engine.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Engine.Rules().Rules(), nil
}

// AddRule grants a property to a kind for the rest of the session
func (s *gameServiceImpl) AddRule(ctx context.Context, sessionID string, rule engine.Rule) (*StateView, error) {
	if rule.Kind == engine.Empty || !rule.Kind.Valid() {
		return nil, fmt.Errorf("%w: kind %s cannot hold properties", ErrInvalidAction, rule.Kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Engine.AddRule(rule.Kind, rule.Property)
	log.Info().
		Str("session", sess.ID).
		Stringer("kind", rule.Kind).
		Stringer("property", rule.Property).
		Msg("Rule added")

	view := buildStateView(sess)
	s.notify(sess.ID, view)
	return view, nil
}

// ListPacks returns the available level packs
func (s *gameServiceImpl) ListPacks(ctx context.Context) ([]*PackInfo, error) {
	return s.packs.ListPacks()
}

// LoadPack loads a level pack by name
func (s *gameServiceImpl) LoadPack(ctx context.Context, packName string) (*engine.LevelPack, error) {
	return s.packs.LoadPack(packName)
}

// SavePack validates and stores a level pack
func (s *gameServiceImpl) SavePack(ctx context.Context, packName string, pack *engine.LevelPack) error {
	if err := s.packs.SavePack(packName, pack); err != nil {
		return err
	}
	log.Info().Str("pack", packName).Int("levels", len(pack.Levels)).Msg("Level pack saved")
	return nil
}

// getSession looks up a session and marks it as accessed. Callers hold mu.
func (s *gameServiceImpl) getSession(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

// apply runs one action against the engine and derives its events. Callers hold mu.
func (s *gameServiceImpl) apply(ctx context.Context, sess *Session, action engine.Action) (engine.ActionResult, []GameEvent, error) {
	started := time.Now()
	wasWon := sess.Engine.IsVictory()
	prevLevel := sess.Engine.LevelIndex()

	result, err := sess.Engine.Apply(action)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordAction(ctx, string(action), "error", time.Since(started).Seconds())
		}
		return result, nil, fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}

	outcome := "applied"
	if !result.Applied {
		outcome = "ignored"
	}

	now := time.Now()
	event := func(typ, msg string) GameEvent {
		return GameEvent{Type: typ, Message: msg, Timestamp: now, Level: result.Level}
	}

	var events []GameEvent
	switch {
	case result.Move != nil && result.Applied:
		mv := result.Move
		events = append(events, event("move", fmt.Sprintf("%d of %d movers moved %s", mv.Moved, mv.Movers, action)))
		if mv.Blocked > 0 {
			events = append(events, event("blocked", fmt.Sprintf("%d movers blocked", mv.Blocked)))
		}
		if mv.Dropped > 0 {
			events = append(events, event("dropped", fmt.Sprintf("%d objects dropped on full tiles", mv.Dropped)))
			if s.metrics != nil {
				s.metrics.RecordDropped(ctx, mv.Dropped)
			}
		}
		if mv.Win && !wasWon {
			events = append(events, event("victory", fmt.Sprintf("Level %d complete", result.Level+1)))
			if s.metrics != nil {
				s.metrics.RecordWin(ctx, sess.PackID)
			}
			log.Info().Str("session", sess.ID).Int("level", result.Level).Msg("Level complete")
		}
	case action == engine.ActionUndo && result.Applied:
		events = append(events, event("undo", "Undid last move"))
	case action == engine.ActionReset:
		events = append(events, event("reset", "Level reset"))
	case result.Applied && result.Level != prevLevel:
		events = append(events, event("level_change", fmt.Sprintf("Now on level %d: %s", result.Level+1, sess.Engine.LevelName())))
	}

	if s.metrics != nil {
		s.metrics.RecordAction(ctx, string(action), outcome, time.Since(started).Seconds())
	}
	log.Debug().
		Str("session", sess.ID).
		Str("action", string(action)).
		Str("outcome", outcome).
		Str("ignored", result.Ignored).
		Bool("win", result.Win).
		Msg("Action applied")

	return result, events, nil
}

func (s *gameServiceImpl) notify(sessionID string, view *StateView) {
	if s.notifier != nil {
		s.notifier.BroadcastToSession(sessionID, view)
	}
}

// packIDs lists the identifiers of every available pack
func (s *gameServiceImpl) packIDs() []string {
	packs, err := s.packs.ListPacks()
	if err != nil {
		return nil
	}
	ids := make([]string, 0, len(packs))
	for _, p := range packs {
		ids = append(ids, p.PackID)
	}
	return ids
}

func sessionInfo(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		PackID:         sess.PackID,
		PackName:       sess.Pack.Name,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt(),
		State:          buildStateView(sess),
	}
}

// buildStateView copies the engine state into a view that is safe to use
// after the service lock is released
func buildStateView(sess *Session) *StateView {
	e := sess.Engine
	state := *e.GetState()
	return &StateView{
		SessionID:    sess.ID,
		Pack:         sess.PackID,
		Level:        e.LevelIndex(),
		LevelName:    e.LevelName(),
		LevelCount:   e.LevelCount(),
		Win:          state.Win,
		Moves:        e.MoveCount(),
		HistoryDepth: e.HistoryLen(),
		HistoryCap:   e.HistoryCap(),
		Rows:         engine.EncodeLevel(&state),
		Rules:        engine.RuleSets(e.Rules()),
		State:        &state,
	}
}

// describe turns an action result into a short human-readable message
func describe(r engine.ActionResult) string {
	switch r.Ignored {
	case engine.IgnoredLevelComplete:
		return "Level complete. Use next, reset or undo."
	case engine.IgnoredNoMovers:
		return "Nothing is YOU, so nothing moved."
	case engine.IgnoredHistoryEmpty:
		return "Nothing to undo."
	case engine.IgnoredLastLevel:
		return "Already on the last level."
	case engine.IgnoredFirstLevel:
		return "Already on the first level."
	}

	if r.Win {
		return fmt.Sprintf("Level %d complete!", r.Level+1)
	}
	switch r.Action {
	case engine.ActionUndo:
		return "Undone."
	case engine.ActionReset:
		return fmt.Sprintf("Level %d reset.", r.Level+1)
	case engine.ActionNext, engine.ActionPrevious:
		return fmt.Sprintf("Level %d.", r.Level+1)
	}
	if r.Move != nil && r.Move.Moved == 0 {
		return "Blocked."
	}
	return "Moved " + string(r.Action) + "."
}
