// Package service provides the business logic layer between the transports
// (HTTP, WebSocket, MCP) and the game engine.
//
// Core Interfaces:
//
// GameService is the main service interface. SessionManager stores sessions,
// PackManager loads and saves level packs, and StateNotifier receives the
// state of a session after every change so live viewers stay in sync no
// matter which transport issued the action.
//
// Each session owns its own engine: grid, rule table and undo history.
// Every engine call is serialized by the service, so an action and its
// history snapshot complete before the next action on any session starts.
//
// Usage:
//
//	sessions := session.NewManager()
//	packs, _ := config.NewManager("configs")
//	svc := service.NewGameService(sessions, packs,
//		service.WithMetrics(observe.DefaultMetrics()),
//		service.WithNotifier(hub),
//	)
//
//	info, err := svc.CreateSession(ctx, "classic")
//	resp, err := svc.Act(ctx, info.ID, engine.ActionRight)
//
// Errors wrap ErrSessionNotFound, ErrPackNotFound, ErrInvalidPack and
// ErrInvalidAction so transports can map them with errors.Is.
package service
