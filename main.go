// Command pushrules starts the Push Rules puzzle server.
//
// It supports four commands:
//  1. "serve" (default) - runs the HTTP server exposing the REST API, WebSocket,
//     an /mcp HTTP endpoint and Prometheus /metrics
//  2. "mcp" - runs an MCP stdio server against an in-process game service
//  3. "play" - plays a level pack in the terminal
//  4. "solve" - prints the shortest solution of a level
//
// Flags control host/port, the level pack directory and logging. Every flag
// can also be set through the environment or a .env file.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/pushrules/api"
	"github.com/wricardo/pushrules/game/config"
	"github.com/wricardo/pushrules/game/service"
	"github.com/wricardo/pushrules/game/session"
	"github.com/wricardo/pushrules/internal/observe"
	"github.com/wricardo/pushrules/transport/mcp"
	"github.com/wricardo/pushrules/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Push Rules Server"
)

// main loads the environment, then runs the selected command until it
// finishes or the process is signalled.
func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("Error loading .env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Msg("pushrules failed")
	}
}

// newApp builds the command tree
func newApp() *cli.Command {
	return &cli.Command{
		Name:           "pushrules",
		Usage:          AppName,
		Version:        Version,
		DefaultCommand: "serve",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "levels-dir",
				Value:   "configs",
				Usage:   "Directory containing level packs",
				Sources: cli.EnvVars("LEVELS_DIR"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging with human-readable output",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			return ctx, setupLogging(cmd)
		},
		Commands: []*cli.Command{
			serveCommand(),
			mcpCommand(),
			playCommand(),
			solveCommand(),
		},
	}
}

// setupLogging configures the global zerolog logger. Logs always go to
// stderr so the mcp command can own stdout.
func setupLogging(cmd *cli.Command) error {
	level, err := zerolog.ParseLevel(cmd.String("log-level"))
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	if cmd.Bool("debug") {
		level = zerolog.DebugLevel
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	zerolog.SetGlobalLevel(level)
	return nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"server", "http"},
		Usage:   "Run the HTTP server with API, WebSocket, MCP and metrics endpoints",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "host",
				Value:   "localhost",
				Usage:   "HTTP server host",
				Sources: cli.EnvVars("HOST"),
			},
			&cli.IntFlag{
				Name:    "port",
				Value:   8080,
				Usage:   "HTTP server port",
				Sources: cli.EnvVars("PORT"),
			},
			&cli.DurationFlag{
				Name:    "session-ttl",
				Value:   24 * time.Hour,
				Usage:   "Remove sessions not accessed for this long",
				Sources: cli.EnvVars("SESSION_TTL"),
			},
			&cli.DurationFlag{
				Name:  "cleanup-interval",
				Value: time.Hour,
				Usage: "How often expired sessions are removed",
			},
		},
		Action: runServe,
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:    "mcp",
		Aliases: []string{"stdio-mcp", "mcp-stdio"},
		Usage:   "Run an MCP stdio server",
		Action:  runStdioMCP,
	}
}

// initializeServices wires the session and pack managers into the game service
func initializeServices(levelsDir string, opts ...service.Option) (service.GameService, error) {
	packManager, err := config.NewManager(levelsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create pack manager: %w", err)
	}

	return service.NewGameService(session.NewManager(), packManager, opts...), nil
}

// runServe starts the HTTP server and its background routines, and shuts
// them down together when ctx is cancelled or any of them fails.
func runServe(ctx context.Context, cmd *cli.Command) error {
	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: Version})
	if err != nil {
		return fmt.Errorf("failed to init metrics: %w", err)
	}
	defer shutdownMetrics(context.Background())
	metrics := observe.DefaultMetrics()

	hub := websocket.NewHub()
	gameService, err := initializeServices(cmd.String("levels-dir"),
		service.WithMetrics(metrics),
		service.WithNotifier(hub),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	apiServer := api.NewServer(gameService, hub, api.WithMetrics(metrics))
	apiServer.Mount("/mcp", mcp.NewServer(gameService, Version).Handler())
	apiServer.Mount("/metrics", promhttp.Handler())

	addr := fmt.Sprintf("%s:%d", cmd.String("host"), cmd.Int("port"))
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      apiServer,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(ctx)
	})

	g.Go(func() error {
		log.Info().Str("addr", addr).Str("version", Version).Msg("HTTP server listening")
		log.Info().Msgf("REST API: http://%s/api", addr)
		log.Info().Msgf("WebSocket: ws://%s/ws?session=<session_id>", addr)
		log.Info().Msgf("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		sessionCleanupRoutine(ctx, gameService, cmd.Duration("cleanup-interval"), cmd.Duration("session-ttl"))
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("Server stopped")
	return nil
}

// sessionCleanupRoutine periodically removes sessions that have not been
// accessed within maxAge, until ctx is cancelled.
func sessionCleanupRoutine(ctx context.Context, gameService service.GameService, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := gameService.CleanupExpiredSessions(ctx, maxAge); removed > 0 {
				log.Info().Int("removed", removed).Msg("Cleaned up expired sessions")
			}
		}
	}
}

// runStdioMCP serves MCP on stdin/stdout against an in-process game service
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	gameService, err := initializeServices(cmd.String("levels-dir"))
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	log.Info().Msg("MCP stdio server ready")
	if err := mcp.NewServer(gameService, Version).ServeStdio(); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
