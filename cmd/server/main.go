package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dispatchsim/elevator-engine/internal/adapter"
	"github.com/dispatchsim/elevator-engine/internal/assigner"
	"github.com/dispatchsim/elevator-engine/internal/domain"
	"github.com/dispatchsim/elevator-engine/internal/engine"
	"github.com/dispatchsim/elevator-engine/internal/factory"
	"github.com/dispatchsim/elevator-engine/internal/infra/config"
	"github.com/dispatchsim/elevator-engine/internal/infra/logging"
	"github.com/dispatchsim/elevator-engine/internal/infra/observability"
)

func main() {
	cfg, err := config.InitConfig()
	if err != nil {
		slog.Error("failed to initialize configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logging.InitLogger(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	envInfo := cfg.GetEnvironmentInfo()
	slog.InfoContext(ctx, "dispatch simulation engine starting up",
		slog.String("environment", cfg.Environment),
		slog.String("log_level", cfg.LogLevel),
		slog.Int("port", cfg.Port),
		slog.Bool("metrics_enabled", cfg.MetricsEnabled),
		slog.Bool("websocket_enabled", cfg.WebSocketEnabled),
		slog.Bool("circuit_breaker_enabled", cfg.CircuitBreakerEnabled),
		slog.Any("config_summary", envInfo))

	clock := domain.SystemClock{}
	eng := engine.New(cfg.ToSimConfig(), clock, factory.StandardCarFactory{}, assigner.NewHybridPolicy(), cfg.RandomSeed, slog.Default())

	if cfg.AutoStart {
		if err := eng.Start(); err != nil {
			slog.ErrorContext(ctx, "failed to auto-start engine", slog.String("error", err.Error()))
		} else {
			slog.InfoContext(ctx, "engine auto-started",
				slog.Int("num_cars", cfg.NumCars),
				slog.Int("num_floors", cfg.NumFloors))
		}
	}

	port := cfg.Port
	if port <= 0 {
		slog.WarnContext(ctx, "invalid port in configuration, using default",
			slog.Int("configured_port", port),
			slog.Int("default_port", 6660))
		port = 6660
	}

	obsCfg, err := observability.LoadObservabilityConfig()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load observability configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	telemetry, err := observability.NewTelemetryProvider(obsCfg, slog.With(slog.String("component", "telemetry")))
	if err != nil {
		slog.ErrorContext(ctx, "failed to initialize telemetry provider", slog.String("error", err.Error()))
		os.Exit(1)
	}

	server := adapter.NewServer(cfg, port, eng, clock, telemetry)
	wsServer := adapter.NewWebSocketServer(port+1, eng, clock, slog.With(slog.String("component", "websocket-server")))

	tickStop := make(chan struct{})
	go runTickLoop(ctx, eng, cfg.TickInterval, tickStop)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	var httpStarted, wsStarted bool
	serverErrCh := make(chan error, 2)

	go func() {
		slog.InfoContext(ctx, "starting HTTP server",
			slog.Int("port", port),
			slog.String("environment", cfg.Environment),
			slog.Duration("read_timeout", cfg.ReadTimeout),
			slog.Duration("write_timeout", cfg.WriteTimeout),
			slog.Duration("idle_timeout", cfg.IdleTimeout))

		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "HTTP server failed to start",
				slog.Int("port", port),
				slog.String("error", err.Error()))
			serverErrCh <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	go func() {
		slog.InfoContext(ctx, "starting WebSocket server", slog.Int("port", port+1))

		if err := wsServer.Start(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "WebSocket server failed to start",
				slog.Int("port", port+1),
				slog.String("error", err.Error()))
			serverErrCh <- fmt.Errorf("WebSocket server failed: %w", err)
		}
	}()

	startupTimer := time.NewTimer(2 * time.Second)
	httpStarted = true
	wsStarted = true

	select {
	case err := <-serverErrCh:
		startupTimer.Stop()
		slog.ErrorContext(ctx, "server startup failed", slog.String("error", err.Error()))
		close(tickStop)
		shutdownServers(server, wsServer, cfg, httpStarted, wsStarted)
		shutdownTelemetry(telemetry, cfg.ShutdownTimeout)
		os.Exit(1)

	case <-startupTimer.C:
		slog.InfoContext(ctx, "all servers started successfully")

	case sig := <-quit:
		startupTimer.Stop()
		slog.InfoContext(ctx, "received shutdown signal during startup",
			slog.String("signal", sig.String()))
		close(tickStop)
		shutdownServers(server, wsServer, cfg, httpStarted, wsStarted)
		shutdownTelemetry(telemetry, cfg.ShutdownTimeout)
		return
	}

	sig := <-quit
	slog.InfoContext(ctx, "received shutdown signal",
		slog.String("signal", sig.String()),
		slog.Duration("shutdown_timeout", cfg.ShutdownTimeout))

	cancel()
	close(tickStop)

	shutdownServers(server, wsServer, cfg, httpStarted, wsStarted)
	shutdownTelemetry(telemetry, cfg.ShutdownTimeout)

	slog.InfoContext(ctx, "dispatch simulation engine shutdown completed")

	select {
	case <-time.After(cfg.ShutdownGrace):
		slog.InfoContext(ctx, "graceful shutdown completed",
			slog.Duration("grace_period", cfg.ShutdownGrace))
	}
}

// runTickLoop advances the engine's simulated clock at the configured
// wall-clock cadence until stop is closed or ctx is cancelled. The
// configured simulation speed multiplies how many logical ticks run per
// wall-clock interval rather than shortening the interval itself: an
// accumulator absorbs fractional speeds (slow motion) and runs several
// eng.Step calls back to back for speeds above 1x.
func runTickLoop(ctx context.Context, eng *engine.Engine, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	simNow := time.Now()
	var accumulator float64
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if !eng.IsRunning() {
				simNow = now
				accumulator = 0
				continue
			}
			accumulator += eng.SimSpeed()
			for accumulator >= 1 {
				simNow = simNow.Add(interval)
				eng.Step(simNow)
				accumulator--
			}
		}
	}
}

// shutdownTelemetry flushes and closes the telemetry provider, bounded by
// its own timeout so a stuck exporter can't hang process exit.
func shutdownTelemetry(telemetry *observability.TelemetryProvider, timeout time.Duration) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		slog.Error("telemetry shutdown failed", slog.String("error", err.Error()))
	}
}

// shutdownServers gracefully shuts down both HTTP and WebSocket servers
func shutdownServers(server *adapter.Server, wsServer *adapter.WebSocketServer, cfg *config.Config, httpStarted, wsStarted bool) {
	slog.Info("shutting down servers gracefully")

	if httpStarted {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown failed", slog.String("error", err.Error()))
		} else {
			slog.Info("HTTP server shutdown completed")
		}
	}

	if wsStarted {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := wsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("WebSocket server shutdown failed", slog.String("error", err.Error()))
		} else {
			slog.Info("WebSocket server shutdown completed")
		}
	}
}
