// Package app assembles the application: configuration, logging,
// metrics, the dispatcher loop, the websocket hub, view-models and the
// HTTP server, with graceful shutdown.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"muniflow/internal/async"
	"muniflow/internal/config"
	"muniflow/internal/dispatch"
	"muniflow/internal/domain"
	"muniflow/internal/exporter"
	"muniflow/internal/infrastructure"
	transporthttp "muniflow/internal/transport/http"
	"muniflow/internal/viewmodel"
	"muniflow/internal/websocket"
)

// Application owns the wired components and their lifecycles
type Application struct {
	cfg    *config.Config
	logger *slog.Logger

	logCloser   io.Closer
	providers   *infrastructure.OTelProviders
	loop        *dispatch.Loop
	hub         *websocket.Hub
	broadcaster *async.Broadcaster
	vm          *viewmodel.EnterpriseViewModel
	exporter    *viewmodel.ReportExporter
	server      *http.Server
}

// New builds the application from configuration
func New(cfg *config.Config) (*Application, error) {
	logger, logCloser, err := infrastructure.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	slog.SetDefault(logger)

	providers, err := infrastructure.NewOTelProviders()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	metrics, err := infrastructure.NewOperationMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation metrics: %w", err)
	}

	hub := websocket.NewHub(logger)
	broadcaster := async.NewBroadcaster(hub, logger)
	loop := dispatch.NewLoop(cfg.Dispatcher.QueueSize)

	repo := domain.NewMemoryRepository()

	loadExecutor := async.NewExecutor(logger,
		async.WithRetryPolicy(async.NewRetryPolicy(cfg.Retry, logger)),
		async.WithMetrics(metrics),
		async.WithBroadcaster(broadcaster))
	vm := viewmodel.NewEnterpriseViewModel(logger, repo, loop, loadExecutor, cfg.Retry.MaxRetries)

	exportExecutor := async.NewExecutor(logger,
		async.WithMetrics(metrics),
		async.WithBroadcaster(broadcaster))
	reportExporter := viewmodel.NewReportExporter(logger, repo, exportExecutor,
		exporter.NewCSVWriter(cfg.Export.OutputDir, cfg.Export.CSVBOM, logger),
		exporter.NewExcelWriter(cfg.Export.OutputDir, logger))

	handler := transporthttp.NewHandler(logger, vm, reportExporter, broadcaster)
	router := handler.Routes(transporthttp.RouterConfig{
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
		Registry:       providers.Registry,
		WSHandler:      websocket.ServeWS(hub, cfg.WebSocket, logger),
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Application{
		cfg:         cfg,
		logger:      logger,
		logCloser:   logCloser,
		providers:   providers,
		loop:        loop,
		hub:         hub,
		broadcaster: broadcaster,
		vm:          vm,
		exporter:    reportExporter,
		server:      server,
	}, nil
}

// Run starts the application and blocks until shutdown
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.hub.Start()

	a.logger.Info("application_start",
		slog.Int("port", a.cfg.Server.Port))

	// Warm the UI with an initial load.
	go func() {
		if err := a.vm.Load(context.Background()); err != nil {
			a.logger.Warn("initial_load_failed",
				slog.String("error", err.Error()))
		}
	}()

	if a.cfg.Refresh.Enabled {
		stopRefresh := a.vm.StartAutoRefresh(ctx, a.cfg.Refresh.Interval)
		defer stopRefresh()
		a.logger.Info("auto_refresh_started",
			slog.Duration("interval", a.cfg.Refresh.Interval))
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown()
	})

	return g.Wait()
}

func (a *Application) shutdown() error {
	a.logger.Info("application_shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	a.vm.Executor().Close()
	a.exporter.Executor().Close()
	err := a.server.Shutdown(shutdownCtx)

	a.broadcaster.Stop()
	a.hub.Stop()
	a.loop.Stop()
	if perr := a.providers.Shutdown(shutdownCtx); perr != nil && err == nil {
		err = perr
	}
	if a.logCloser != nil {
		a.logCloser.Close()
	}
	return err
}
