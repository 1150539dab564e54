package service

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/wricardo/pushrules/game/engine"
	"github.com/wricardo/pushrules/game/solver"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrPackNotFound    = errors.New("level pack not found")
	ErrInvalidPack     = errors.New("invalid level pack")
	ErrInvalidAction   = errors.New("invalid action")
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, packName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error
	CleanupExpiredSessions(ctx context.Context, maxAge time.Duration) int

	// Game Operations
	Act(ctx context.Context, sessionID string, action engine.Action) (*ActionResponse, error)
	BulkAct(ctx context.Context, sessionID string, actions []engine.Action) (*BulkActionResult, error)
	Solve(ctx context.Context, sessionID string, opts solver.Options) (*solver.Solution, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*StateView, error)

	// Rules
	GetRules(ctx context.Context, sessionID string) ([]engine.Rule, error)
	AddRule(ctx context.Context, sessionID string, rule engine.Rule) (*StateView, error)

	// Level packs
	ListPacks(ctx context.Context) ([]*PackInfo, error)
	LoadPack(ctx context.Context, packName string) (*engine.LevelPack, error)
	SavePack(ctx context.Context, packName string, pack *engine.LevelPack) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, pack *engine.LevelPack) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	CleanupExpiredSessions(maxAge time.Duration) int
}

// PackManager handles level pack loading
type PackManager interface {
	LoadPack(name string) (*engine.LevelPack, error)
	ListPacks() ([]*PackInfo, error)
	GetDefault() *engine.LevelPack
	SavePack(name string, pack *engine.LevelPack) error
}

// StateNotifier receives the state of a session after every change
type StateNotifier interface {
	BroadcastToSession(sessionID string, view *StateView)
}

// Session represents an active game session
type Session struct {
	ID        string
	Engine    *engine.GameEngine
	Pack      *engine.LevelPack
	PackID    string
	CreatedAt time.Time

	// unix nanoseconds; read by list and cleanup while lookups touch it
	lastAccessed atomic.Int64
}

// Touch records t as the session's last access time
func (s *Session) Touch(t time.Time) {
	s.lastAccessed.Store(t.UnixNano())
}

// LastAccessedAt returns the last access time recorded by Touch
func (s *Session) LastAccessedAt() time.Time {
	return time.Unix(0, s.lastAccessed.Load())
}
