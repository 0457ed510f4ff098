// Command workitem-mcp runs the work-item management MCP server.
//
// It communicates over stdio (JSON-RPC 2.0, MCP protocol) by default,
// or over streamable HTTP (MCP spec 2025-03-26) when configured. All
// state lives in an embedded SQLite database; there is no external
// dependency to run.
//
// Configuration is read from an optional workitem-mcp.toml, overlaid
// with environment variables, which always win. See internal/config
// for the full set of keys.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/workitem-mcp/workitem-mcp/internal/cascade"
	"github.com/workitem-mcp/workitem-mcp/internal/config"
	"github.com/workitem-mcp/workitem-mcp/internal/mcp"
	"github.com/workitem-mcp/workitem-mcp/internal/store"
	"github.com/workitem-mcp/workitem-mcp/internal/tools"
	"github.com/workitem-mcp/workitem-mcp/internal/wfconfig"
	"github.com/workitem-mcp/workitem-mcp/internal/workflow"
)

// Version is set via ldflags at build time.
var Version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "workitem-mcp: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := ""
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	logger.Info("starting workitem-mcp",
		"version", Version,
		"database", cfg.Database.Path,
		"transport", cfg.Transport.Mode,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	s, err := store.Open(ctx, cfg.Database.Path, cfg.Database.MaxConnections)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer s.Close()

	wfCache := wfconfig.NewCache(cfg.Workflow.Dir, cfg.Workflow.CacheTTL())
	cascadeEngine := cascade.New()
	engine := workflow.NewEngine(s, wfCache, cascadeEngine)

	deps := &tools.Deps{Store: s, Config: wfCache, Engine: engine}

	registry := mcp.NewRegistry()
	registry.Register(tools.NewManageItems(deps))
	registry.Register(tools.NewQueryItems(deps))
	registry.Register(tools.NewManageNotes(deps))
	registry.Register(tools.NewQueryNotes(deps))
	registry.Register(tools.NewManageDependencies(deps))
	registry.Register(tools.NewQueryDependencies(deps))
	registry.Register(tools.NewAdvanceItem(deps))
	registry.Register(tools.NewGetNextStatus(deps))
	registry.Register(tools.NewGetContext(deps))
	registry.Register(tools.NewGetNextItem(deps))
	registry.Register(tools.NewGetBlockedItems(deps))
	registry.Register(tools.NewCreateWorkTree(deps))
	registry.Register(tools.NewCompleteTree(deps))

	server := mcp.NewServer(registry, mcp.ServerInfo{
		Name:    "workitem-mcp",
		Version: Version,
	}, logger)

	switch cfg.Transport.Mode {
	case "http":
		return runHTTP(ctx, server, cfg, logger)
	default:
		return server.Run(ctx)
	}
}

func runHTTP(ctx context.Context, server *mcp.Server, cfg *config.Config, logger *slog.Logger) error {
	httpServer := mcp.NewHTTPServer(server, "*", logger)
	addr := cfg.Transport.Host + ":" + cfg.Transport.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
