package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gofrs/flock"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/taskmill/mcp-tasks/internal/config"
	"github.com/taskmill/mcp-tasks/internal/content"
	"github.com/taskmill/mcp-tasks/internal/engine"
	"github.com/taskmill/mcp-tasks/internal/git"
	"github.com/taskmill/mcp-tasks/internal/mcp"
	"github.com/taskmill/mcp-tasks/internal/tools/query"
	"github.com/taskmill/mcp-tasks/internal/tools/tasks"
	"github.com/taskmill/mcp-tasks/internal/tools/work"
)

type serveOptions struct {
	baseDir     string
	httpAddr    string
	corsOrigins string
}

func runServe(ctx context.Context, opts *serveOptions) error {
	cfg, err := config.Load(opts.baseDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Structured logging to stderr or a rotating file; stdout is the protocol.
	var logOut io.Writer = os.Stderr
	if cfg.Log.File != "" {
		logOut = &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    10, // MB
			MaxBackups: 3,
			MaxAge:     14, // days
		}
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	version := cfg.Server.Version
	if Version != "dev" {
		version = Version
	}

	if err := os.MkdirAll(cfg.DataDir(), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	// One server per data directory; a second instance would race the
	// single-writer gate from another process.
	lock := flock.New(cfg.LockFile())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquiring lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another mcp-tasks instance is serving %s", cfg.BaseDir)
	}
	defer lock.Unlock()

	logger.Info("starting mcp-tasks",
		"version", version,
		"base_dir", cfg.BaseDir,
		"use_git", cfg.Flags.UseGit,
	)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	eng := engine.New(cfg, git.New(), logger)

	registry := mcp.NewRegistry()
	registry.Register(tasks.NewAdd(eng))
	registry.Register(tasks.NewUpdate(eng))
	registry.Register(tasks.NewComplete(eng))
	registry.Register(tasks.NewDelete(eng))
	registry.Register(tasks.NewReopen(eng))
	registry.Register(query.NewSelect(eng))
	registry.Register(work.NewWorkOn(eng))

	registry.RegisterResource(content.NewTasksResource(cfg))
	registry.RegisterResource(content.NewCompleteResource(cfg))

	// Pick up .mcp-tasks.edn edits without a restart.
	go config.Watch(ctx, cfg.ConfigFile(), logger, func() {
		if err := eng.Reload(); err != nil {
			logger.Warn("config reload failed", "error", err)
		} else {
			logger.Info("config reloaded", "use_git", cfg.Flags.UseGit)
		}
	})

	server := mcp.NewServer(registry, mcp.ServerInfo{
		Name:    cfg.Server.Name,
		Version: version,
	}, logger)

	if opts.httpAddr != "" {
		httpServer := mcp.NewHTTPServer(server, opts.corsOrigins, logger)
		srv := &http.Server{Addr: opts.httpAddr, Handler: httpServer.Handler()}
		go func() {
			<-ctx.Done()
			srv.Close()
		}()
		logger.Info("serving streamable http", "addr", opts.httpAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}

	return server.Run(ctx)
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
