package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/telhawk-systems/breachsim/common/logging"
	"github.com/telhawk-systems/breachsim/simulator/internal/app"
	"github.com/telhawk-systems/breachsim/simulator/internal/config"
	"github.com/telhawk-systems/breachsim/simulator/internal/handlers"
	"github.com/telhawk-systems/breachsim/simulator/internal/server"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Logging).With(logging.Service("breachsim"))
	logging.SetDefault(logger)

	// Wire the session
	a, err := app.Build(context.Background(), cfg, logger)
	if err != nil {
		log.Fatalf("Failed to build session: %v", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("failed to close connections", logging.Error(err))
		}
	}()

	var opts []handlers.Option
	if a.RunStats != nil {
		opts = append(opts, handlers.WithFleetStats(a.RunStats))
	}
	handler := handlers.NewHandler(a.Session, logger, opts...)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.NewRouter(handler, cfg.Server.AllowedOrigins),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("simulator listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", logging.Error(err))
		return
	}

	logger.Info("server stopped gracefully")
}
