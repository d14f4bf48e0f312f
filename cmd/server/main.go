package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stationhub/cartrack/internal/config"
	"github.com/stationhub/cartrack/internal/hub"
	"github.com/stationhub/cartrack/internal/logging"
	"github.com/stationhub/cartrack/internal/server"
	"github.com/stationhub/cartrack/internal/tracker"
)

func runGracefulShutdown(srv *server.Server, sweeper *tracker.Sweeper, socketHub *hub.Hub) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		sweeper.Stop()
		socketHub.Stop()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	registry := tracker.NewRegistry(clock)
	sockets := tracker.NewSocketIndex(clock)

	socketHub := hub.New(clock, cfg.MaxSockets, cfg.SendBufferSize)
	trackerSvc := tracker.NewService(registry, sockets, socketHub, clock)
	socketHub.SetOnClose(trackerSvc.OnSocketClosed)

	sweeper := tracker.NewSweeper(registry, socketHub, cfg.SweepInterval, cfg.StaleAfter, clock)
	go sweeper.Start(context.Background())

	srv := server.NewServer(cfg, trackerSvc, socketHub, clock)

	done := runGracefulShutdown(srv, sweeper, socketHub)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
