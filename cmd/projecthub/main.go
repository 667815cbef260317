// Command projecthub runs the project-management dashboard server.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"projecthub/pkg/config"
	"projecthub/pkg/logx"
	"projecthub/pkg/persistence"
	"projecthub/pkg/webui"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var configPath string
	var addr string
	var debug bool
	flag.StringVar(&configPath, "config", config.ConfigFilename, "Path to config file")
	flag.StringVar(&addr, "addr", "", "Listen address (overrides config)")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.Parse()

	logger := logx.NewLogger("main")
	if debug {
		logx.SetDebug(true)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("Failed to load config: %v", err)
		os.Exit(1)
	}
	if addr != "" {
		cfg.HTTPAddr = addr
	}
	if err := cfg.EnsureDirs(); err != nil {
		logger.Error("Failed to prepare directories: %v", err)
		os.Exit(1)
	}

	db, err := persistence.InitializeDatabase(cfg.DBPath)
	if err != nil {
		logger.Error("Failed to initialize database: %v", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	store := persistence.NewStore(db)
	store.ReplaceUpdates = cfg.ReplaceUpdates

	if err := store.EnsureDefaultProject(); err != nil {
		logger.Error("Failed to ensure default project: %v", err)
		os.Exit(1)
	}
	if err := store.EnsureDefaultUser(); err != nil {
		logger.Error("Failed to ensure default user: %v", err)
		os.Exit(1)
	}

	// Demo data is seeded once at startup, never from request handlers.
	if cfg.SeedDemo {
		if err := store.SeedDemoTasks(); err != nil {
			logger.Error("Failed to seed demo tasks: %v", err)
			os.Exit(1)
		}
	}

	mux := http.NewServeMux()
	webui.NewServer(store, cfg).RegisterRoutes(mux)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Listening on %s (db: %s)", cfg.HTTPAddr, cfg.DBPath)
		errCh <- server.ListenAndServe()
	}()

	// Wait for a shutdown signal or a listener failure.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Received signal %v, initiating graceful shutdown", sig)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed: %v", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed: %v", err)
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}
