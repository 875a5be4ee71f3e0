// Package main contains the entrypoint for the gitchat server.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/edgard/gitchat/internal/config"
	"github.com/edgard/gitchat/internal/database"
	"github.com/edgard/gitchat/internal/github"
	"github.com/edgard/gitchat/internal/gitops"
	"github.com/edgard/gitchat/internal/logger"
	"github.com/edgard/gitchat/internal/mirror"
	"github.com/edgard/gitchat/internal/push"
	"github.com/edgard/gitchat/internal/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes and starts all application components (config, logger,
// db, mirror, git bridge, scheduler, HTTP server), handles graceful
// shutdown, and returns an exit code (0 for success, 1 for failure).
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Log.Level, "format", cfg.Log.Format)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	mw, err := mirror.NewWriter(cfg.Mirror.Dir)
	if err != nil {
		log.Error("Failed to initialize message mirror", "dir", cfg.Mirror.Dir, "error", err)
		return 1
	}

	syncer := gitops.NewSyncer(cfg.Git, cfg.Mirror.Dir, log)
	pusher := push.NewService(store, syncer, log)
	ghClient := github.NewClient(cfg.GitHub.BaseURL, cfg.GitHub.Token, log)

	scheduler, err := push.NewScheduler(pusher, cfg.Sync, log)
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	srv, err := server.New(cfg, store, mw, pusher, ghClient, log)
	if err != nil {
		log.Error("Failed to create HTTP server", "error", err)
		return 1
	}

	if err := scheduler.Start(); err != nil {
		log.Error("Failed to start scheduler", "error", err)
		return 1
	}
	defer func() {
		if err := scheduler.Stop(); err != nil {
			log.Error("Failed to stop scheduler", "error", err)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(gctx)
	})

	log.Info("gitchat started")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Server stopped due to error", "error", err)
		return 1
	}

	log.Info("gitchat stopped gracefully.")
	return 0
}
