// Package main provides the Vroomie chat server.
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

	"github.com/raphaelgruber/vroomie/internal/config"
	"github.com/raphaelgruber/vroomie/internal/llm"
	"github.com/raphaelgruber/vroomie/internal/metrics"
	"github.com/raphaelgruber/vroomie/internal/server"
)

const version = "0.1.0"

func main() {
	addr := flag.String("addr", "", "listen address (overrides VROOMIE_ADDR)")
	flag.Parse()

	cfg := config.Load()
	if *addr != "" {
		cfg.ListenAddr = *addr
	}

	// Dual output: stderr text + file JSON
	logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer cleanup()

	// Missing provider credential is fatal; the server must not come up
	// half-configured.
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger.Info("vroomie-server starting",
		"version", version,
		"addr", cfg.ListenAddr,
		"provider", cfg.Provider,
		"models", cfg.Models,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	provider, err := llm.NewProvider(ctx, cfg)
	cancel()
	if err != nil {
		logger.Error("failed to create provider", "error", err)
		os.Exit(1)
	}

	mc := metrics.NewCollector()
	caller := llm.NewCaller(provider, cfg.Models, cfg.GenerateTimeout, mc, logger)
	srv := server.New(caller, mc, logger)

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second, // Long for LLM responses
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
