package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hinosemi/internal/config"
	apierrors "hinosemi/internal/errors"
	"hinosemi/internal/infrastructure"
	customMiddleware "hinosemi/internal/middleware"
	"hinosemi/internal/operations"
	"hinosemi/internal/services"
	handlers "hinosemi/internal/transport/http"
	ws "hinosemi/internal/websocket"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"
)

const (
	VERSION = config.AppVersion
	AppName = "HINOSEMI Intraday Dashboard"
)

// BuildTime is set at link time with -ldflags "-X hinosemi/internal/app.BuildTime=...".
var BuildTime = "dev"

// Application represents the dashboard server and its scheduled runs
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.IndexMetrics
	Pipeline      *Pipeline
	Scheduler     *operations.Scheduler
	WebSocketHub  *ws.Hub
	Services      *ServiceContainer
	Router        chi.Router
	Server        *http.Server
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Index  *services.IndexService
	Health *services.HealthService
}

// NewApplication creates a new application instance
func NewApplication(ctx context.Context, cfg *config.Config, paths *config.Paths, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}
	paths.LogPathResolution(logger)

	// Initialize OpenTelemetry
	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	metrics, err := infrastructure.CreateIndexMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create index metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
	}

	// Initialize services in order
	if err := app.initializeServices(ctx); err != nil {
		_ = otelProviders.Shutdown(ctx)
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices(ctx context.Context) error {
	pipeline, err := NewPipeline(ctx, a.Config, a.Paths, a.Logger, a.Metrics)
	if err != nil {
		return fmt.Errorf("failed to initialize pipeline: %w", err)
	}
	a.Pipeline = pipeline

	// Initialize WebSocket hub
	hub := ws.NewHub(a.Logger)
	hub.Start()
	a.WebSocketHub = hub

	// Every finished run is pushed to connected dashboards.
	pipeline.Runner.OnComplete(func(summary *operations.RunSummary) {
		if summary.Status == operations.RunStatusSucceeded && summary.Snapshot != nil {
			hub.BroadcastSnapshot(*summary.Snapshot, summary.ID)
			return
		}
		hub.BroadcastRunFailure(summary.ID, summary.Error)
	})

	if a.Config.Schedule.Enabled {
		scheduler, err := operations.NewScheduler(
			a.Config.Schedule.Spec,
			pipeline.Location,
			a.Config.Schedule.RunTimeout,
			pipeline.Runner.Run,
			a.Logger,
		)
		if err != nil {
			return fmt.Errorf("failed to create scheduler: %w", err)
		}
		a.Scheduler = scheduler
	}

	indexService := services.NewIndexService(services.IndexServiceConfig{
		Key:          a.Config.Index.Key,
		SnapshotPath: a.Paths.StatsJSON,
		SeriesPath:   a.Paths.IntradayCSV,
		Location:     pipeline.Location,
		Chart:        ChartOptions(a.Config, pipeline.Location, time.Time{}),
		AllowRefresh: a.Config.Server.AllowRefresh,
	}, pipeline.Runner, a.Logger)

	a.Services = &ServiceContainer{
		Index:  indexService,
		Health: services.NewHealthService(VERSION, indexService, hub),
	}
	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()
	errorHandler := apierrors.NewErrorHandler(a.Logger, false)

	// Minimal middleware that doesn't wrap the ResponseWriter, so /ws can hijack.
	r.Use(customMiddleware.RequestID)
	r.Use(middleware.RealIP)

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(req *http.Request) bool {
			origin := req.Header.Get("Origin")
			return origin == "" || customMiddleware.OriginAllowed(a.Config.Server.AllowedOrigins, origin)
		},
	}
	r.Get("/ws", ws.Handler(a.WebSocketHub, upgrader, a.Config.Server.WebSocketPongWait, a.Logger))

	r.Group(func(r chi.Router) {
		// RequestID → RealIP → OTel → Logger → Recoverer
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics, a.Logger).Handler)
		r.Use(apierrors.RequestLogger(a.Logger))
		r.Use(apierrors.RecoveryMiddleware(errorHandler))
		r.Use(customMiddleware.SecurityHeaders)
		r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
			AllowedOrigins: a.Config.Server.AllowedOrigins,
		}))

		a.setupAPIRoutes(r, errorHandler)
	})

	// Prometheus metrics endpoint (outside the middleware group)
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router, errorHandler *apierrors.ErrorHandler) {
	indexHandler := handlers.NewIndexHandler(a.Services.Index, a.Pipeline.Location, a.Logger, errorHandler)
	healthHandler := handlers.NewHealthHandler(a.Services.Health, a.Logger)

	// Refresh runs the whole pipeline, so it is authenticated and throttled.
	refresh := []func(http.Handler) http.Handler{
		customMiddleware.APIKeyAuth(a.Config.Server.APIKey, a.Logger),
		customMiddleware.NewRateLimiter(a.Config.Server.RefreshPerMinute, a.Logger).Handler,
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Mount("/index", indexHandler.Routes(refresh...))
		r.Get("/health", healthHandler.LivenessCheck)
		r.Get("/health/ready", healthHandler.ReadinessCheck)
	})
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Start starts the HTTP server and the scheduler. cancel is called if the server fails.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", AppName),
		slog.String("version", VERSION),
		slog.String("build_time", BuildTime),
		slog.Int("port", a.Config.Server.Port),
		slog.String("index", a.Config.Index.Key),
		slog.String("provider", a.Config.Provider.Kind))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			// Signal shutdown through context instead of os.Exit
			cancel()
		}
	}()

	if a.Scheduler != nil {
		a.Scheduler.Start()
		a.Logger.InfoContext(ctx, "Scheduled runs enabled",
			slog.String("spec", a.Scheduler.Spec()),
			slog.Time("next_run", a.Scheduler.Next()))
	}

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	// Stop scheduling first so no new run starts while the server drains.
	if a.Scheduler != nil {
		if err := a.Scheduler.Stop(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Scheduler did not stop cleanly", slog.String("error", err.Error()))
		}
	}

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	a.WebSocketHub.Stop()

	if err := a.Pipeline.Close(); err != nil {
		a.Logger.ErrorContext(ctx, "Error closing publishers", slog.String("error", err.Error()))
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
		a.Logger.InfoContext(ctx, "Server stopped unexpectedly")
	}

	// ctx may already be cancelled; shutdown gets its own budget.
	return a.Stop(context.Background())
}
