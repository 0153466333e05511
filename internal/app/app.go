package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"datalens/internal/config"
	apperrors "datalens/internal/errors"
	"datalens/internal/infrastructure"
	"datalens/internal/ingest"
	"datalens/internal/jobs"
	"datalens/internal/middleware"
	transporthttp "datalens/internal/transport/http"
	ws "datalens/internal/websocket"
	"datalens/pkg/contracts"
)

// Application holds every wired component of the server.
type Application struct {
	Config      *config.Config
	Logger      *slog.Logger
	Telemetry   *infrastructure.Telemetry
	Hub         *ws.Hub
	Coordinator *ingest.Coordinator
	JobManager  *jobs.Manager
	Router      chi.Router

	server   *http.Server
	upgrader websocket.Upgrader
}

// New builds the application from configuration.
func New() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig builds the application from the given configuration.
func NewWithConfig(cfg *config.Config) (*Application, error) {
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	telemetry, err := infrastructure.InitializeTelemetry(true, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	hub := ws.NewHub(logger)

	fileStore := ingest.NewFileStore(logger)
	fetcher := ingest.NewFetcher(cfg.Ingest, logger)
	coordinator := ingest.NewCoordinator(fileStore, fetcher, cfg.Ingest, logger, hub)

	jobStore := jobs.NewJobStore()
	manager := jobs.NewManager(jobStore, coordinator, cfg.Jobs, logger, hub)

	a := &Application{
		Config:      cfg,
		Logger:      logger,
		Telemetry:   telemetry,
		Hub:         hub,
		Coordinator: coordinator,
		JobManager:  manager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
			WriteBufferSize: cfg.WebSocket.WriteBufferSize,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	a.setupRouter()
	a.createServer()
	return a, nil
}

func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.TraceContext)

	// WebSocket upgrades bypass the wrapped-writer middleware below.
	r.HandleFunc("/ws", a.handleWebSocket)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.StructuredLogger(a.Logger))
		r.Use(middleware.Recoverer(a.Logger))
		r.Use(middleware.SecurityHeaders)
		r.Use(middleware.CORS(middleware.CORSConfig{AllowedOrigins: []string{"*"}}))
		r.Use(middleware.NewRateLimiter(50, 100, a.Logger).Handler)

		errorHandler := apperrors.NewErrorHandler(a.Logger, false)

		filesHandler := transporthttp.NewFilesHandler(
			a.Coordinator, a.Logger, errorHandler, a.Config.Ingest.MaxUploadSize)
		jobsHandler := transporthttp.NewJobsHandler(a.JobManager, a.Logger, errorHandler)
		healthHandler := transporthttp.NewHealthHandler(a.Logger, contracts.Version)

		r.Route("/api", func(r chi.Router) {
			r.Mount("/files", filesHandler.Routes())
			r.Mount("/jobs", jobsHandler.Routes())
			r.Mount("/health", healthHandler.Routes())
		})

		r.NotFound(errorHandler.NotFound)
		r.MethodNotAllowed(errorHandler.MethodNotAllowed)
	})

	a.Router = r
}

func (a *Application) createServer() {
	a.server = &http.Server{
		Addr:         a.Config.ListenAddr(),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

func (a *Application) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.Logger.ErrorContext(r.Context(), "websocket upgrade failed",
			slog.String("error", err.Error()),
			slog.String("remote_addr", r.RemoteAddr))
		return
	}
	ws.ServeWS(a.Hub, conn, a.Logger)
}

// Start launches the hub, the preset auto-load, and the HTTP listener.
// Preset loading is fail-fast: a broken preset aborts the rest of the
// batch, but the server keeps serving whatever did load.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "starting application",
		slog.String("version", contracts.Version),
		slog.Int("port", a.Config.Server.Port))

	a.Hub.Start()

	go func() {
		report, err := a.Coordinator.LoadPresets(ctx, ingest.FailFast)
		if err != nil {
			a.Logger.Error("preset auto-load aborted",
				slog.String("error", err.Error()),
				slog.Int("loaded", len(report.Loaded)))
			return
		}
		a.Logger.Info("preset auto-load complete",
			slog.Int("loaded", len(report.Loaded)),
			slog.Int("skipped", len(report.Skipped)))
	}()

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "application started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// Stop shuts the server and background components down gracefully.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	a.JobManager.Stop()
	a.Hub.Stop()

	if a.Telemetry != nil {
		if err := a.Telemetry.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "telemetry shutdown error",
				slog.String("error", err.Error()))
		}
	}

	infrastructure.CloseLogFile()
	a.Logger.InfoContext(ctx, "application shutdown complete")
	return nil
}

// Run starts the application and blocks until an interrupt arrives.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "received interrupt signal")
	case <-ctx.Done():
	}

	return a.Stop(context.Background())
}
