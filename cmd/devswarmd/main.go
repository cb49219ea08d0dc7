// Command devswarmd is the DevSwarm backend daemon: it wires the store, the
// event bus, the WebSocket hub, the state bridge, the task queue worker, the
// idle-agent dispatcher, and the HTTP API into one process and serves until
// a termination signal arrives. Grounded on
// original_source/backend/main.go's component wiring and non-fatal Redis
// fallback, and cmd/ratchetd/main.go's slog setup and signal handling.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/devswarm/devswarm/api"
	"github.com/devswarm/devswarm/bridge"
	"github.com/devswarm/devswarm/bus"
	"github.com/devswarm/devswarm/config"
	"github.com/devswarm/devswarm/delta"
	"github.com/devswarm/devswarm/dispatcher"
	"github.com/devswarm/devswarm/hub"
	"github.com/devswarm/devswarm/internal/version"
	"github.com/devswarm/devswarm/orchestration"
	"github.com/devswarm/devswarm/queue"
	"github.com/devswarm/devswarm/snapshot"
	"github.com/devswarm/devswarm/store"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	logger.Info("devswarmd starting", "version", version.Version, "commit", version.Commit, "build_date", version.BuildDate)

	configPath := "devswarm.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	s, err := store.Open(cfg.StoreDSN)
	if err != nil {
		logger.Error("open store", "error", err)
		os.Exit(1)
	}
	defer s.Close()
	logger.Info("store opened", "dsn", cfg.StoreDSN)

	eventBus := connectBus(cfg.EventBusURL, logger)
	defer eventBus.Close()

	deltaPub := delta.New(eventBus, logger)
	assembler := snapshot.New(s, cfg.SnapshotMessagesLimit)

	wsHub := hub.New(logger)
	deadlines := hub.Deadlines{
		WriteDeadline:  cfg.WriteDeadline,
		PongDeadline:   cfg.PongDeadline,
		PingPeriod:     cfg.PingPeriod,
		MaxMessageSize: 8192,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hubDone := make(chan struct{})
	go func() {
		wsHub.Run(ctx.Done())
		close(hubDone)
	}()

	stateBridge := bridge.New(assembler, eventBus, wsHub, cfg.HeartbeatInterval, logger)
	go stateBridge.Run(ctx)

	var orch orchestration.Orchestrator
	if cfg.ExternalOrchestrationBaseURL == "" {
		logger.Warn("external_orchestration_base_url not configured, using mock orchestrator")
		orch = orchestration.NewMock()
	} else {
		orch = orchestration.NewHTTP(cfg.ExternalOrchestrationBaseURL)
	}

	worker := queue.New(eventBus, orch, s, "devswarmd-worker", logger)
	go worker.Run(ctx)

	idleDispatcher := dispatcher.New(s, deltaPub, orch, cfg.DispatcherInterval, logger)
	go idleDispatcher.Run(ctx)

	var proxy http.Handler
	if cfg.ExternalOrchestrationBaseURL != "" {
		proxy, err = api.NewOrchestrationProxy(cfg.ExternalOrchestrationBaseURL, logger)
		if err != nil {
			logger.Error("construct orchestration proxy", "error", err)
			os.Exit(1)
		}
	}

	apiServer := api.NewServer(s, deltaPub, wsHub, deadlines, cfg.HubSendBuffer, assembler, logger)
	router := api.NewRouter(apiServer, cfg, proxy, logger)

	httpServer := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.ListenPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown", "error", err)
		}
	}()

	logger.Info("devswarmd listening", "port", cfg.ListenPort)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("http server error", "error", err)
		os.Exit(1)
	}

	<-hubDone
	logger.Info("devswarmd stopped")
}

// connectBus attempts to reach Redis; on failure it falls back to the
// in-memory degraded bus rather than refusing to start, matching
// original_source/backend/main.go's non-fatal cache.Connect handling.
func connectBus(url string, logger *slog.Logger) bus.Bus {
	redisBus, err := bus.NewRedisBus(url)
	if err != nil {
		logger.Warn("event bus connection failed, falling back to in-memory bus", "error", err)
		return bus.NewMemoryBus(false)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisBus.Ping(ctx); err != nil {
		logger.Warn("event bus ping failed, falling back to in-memory bus", "error", err)
		_ = redisBus.Close()
		return bus.NewMemoryBus(false)
	}
	logger.Info("event bus connected", "url", url)
	return redisBus
}
