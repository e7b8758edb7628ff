// Package main is the entry point for the registration desk server.
//
// Configuration comes from the environment (and a .env file, if present);
// see internal/config for the variables.
package main

import (
	"log/slog"
	"os"

	"github.com/sakif/event-registration/internal/config"
	"github.com/sakif/event-registration/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	level, err := cfg.LogLevel()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	opts := &slog.HandlerOptions{Level: level}
	var logHandler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.Log.Format == "json" {
		logHandler = slog.NewJSONHandler(os.Stdout, opts)
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	if cfg.Auth.Password != "" && cfg.Auth.PasswordHash == "" {
		logger.Warn("ADMIN_PASSWORD is set in plain text; prefer ADMIN_PASSWORD_HASH (see cmd/hashpw)")
	}

	// === 3. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT or SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
