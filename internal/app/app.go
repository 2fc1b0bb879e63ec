package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"datasweeper/internal/chart"
	"datasweeper/internal/config"
	apierrors "datasweeper/internal/errors"
	"datasweeper/internal/exporter"
	"datasweeper/internal/infrastructure"
	customMiddleware "datasweeper/internal/middleware"
	"datasweeper/internal/services"
	"datasweeper/internal/session"
	handlers "datasweeper/internal/transport/http"
	"datasweeper/internal/validation"
	ws "datasweeper/internal/websocket"
)

// BuildTime is set at link time with -ldflags "-X datasweeper/internal/app.BuildTime=..."
var BuildTime = ""

// Application represents the main application container
type Application struct {
	Config         *config.Config
	Router         *chi.Mux
	Server         *http.Server
	Logger         *slog.Logger
	OTelProviders  *infrastructure.OTelProviders
	Metrics        *infrastructure.SweeperMetrics
	WebSocketHub   *ws.Hub
	Store          *session.Store
	SweeperService *services.SweeperService
	HealthService  *services.HealthService
	ErrorHandler   *apierrors.ErrorHandler
	FrontendFS     fs.FS
}

// NewApplication loads configuration from the environment and builds the
// application around the embedded frontend.
func NewApplication(frontendFS fs.FS) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, logger, frontendFS)
}

// New wires every component from an already loaded configuration.
func New(cfg *config.Config, logger *slog.Logger, frontendFS fs.FS) (*Application, error) {
	logger.Info("Application starting",
		slog.String("name", config.AppTitle),
		slog.String("version", config.AppVersion))

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	a := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		ErrorHandler:  apierrors.NewErrorHandler(logger, false),
		FrontendFS:    frontendFS,
	}

	if err := a.initializeServices(); err != nil {
		_ = otelProviders.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := a.setupRouter(); err != nil {
		a.stopServices()
		_ = otelProviders.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to set up router: %w", err)
	}

	a.createServer()
	return a, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	metrics, err := infrastructure.CreateSweeperMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}
	a.Metrics = metrics

	hub := ws.NewHub(a.Logger)
	hub.Start()
	a.WebSocketHub = hub

	a.Store = session.NewStore(a.Config.Session.TTL, a.Config.Session.MaxEntries, a.Config.Session.SweepInterval)
	if err := infrastructure.ObserveActiveDatasets(a.OTelProviders.Meter, a.Store.Len); err != nil {
		a.stopServices()
		return fmt.Errorf("failed to register dataset gauge: %w", err)
	}

	a.SweeperService = services.NewSweeperService(
		a.Store,
		validation.NewFileValidator(a.Logger, a.Config.Upload.AllowedExtensions, a.Config.Upload.MaxFileSize),
		exporter.NewConverter(),
		chart.NewRenderer(chart.Options{
			MaxBars: a.Config.Chart.MaxBars,
			Width:   a.Config.Chart.Width,
			Height:  a.Config.Chart.Height,
		}),
		a.Config.Upload.PreviewRows,
		a.Config.Upload.MaxFiles,
		a.Logger,
	).WithEvents(hub).WithMetrics(metrics)

	a.HealthService = services.NewHealthService(config.AppVersion, BuildTime, hub, a.Store, a.Logger)
	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() error {
	r := chi.NewRouter()

	// Only middleware that leaves the ResponseWriter unwrapped runs ahead of
	// the websocket upgrade.
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).HandleFunc("/ws", ws.Handler(a.WebSocketHub, ws.HandlerConfig{
		AllowedOrigins:  a.Config.Security.AllowedOrigins,
		ReadBufferSize:  a.Config.WebSocket.ReadBufferSize,
		WriteBufferSize: a.Config.WebSocket.WriteBufferSize,
	}, a.Logger))

	var page *handlers.PageHandler
	if a.FrontendFS != nil {
		var err error
		page, err = handlers.NewPageHandler(a.FrontendFS, a.pageData(), a.Logger)
		if err != nil {
			return err
		}
	}

	// RequestID → RealIP → OTel → Logger → Recoverer → Timeout
	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(apierrors.RecoveryMiddleware(a.ErrorHandler))
		r.Use(customMiddleware.DefaultSecureHeaders().Handler)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
				AllowedOrigins:   a.Config.Security.AllowedOrigins,
				AllowCredentials: false,
				Logger:           a.Logger,
			}))
		}

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))

		a.setupAPIRoutes(r)

		if page != nil {
			r.Get("/", page.ServeIndex)
		}
	})

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	a.Router = r
	return nil
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		handlers.NewHealthHandler(a.HealthService, a.Logger).Routes(r)
		r.Get("/stats", handlers.NewMetricsHandler(a.Store, a.WebSocketHub).GetStats)
		r.Post("/client-logs", handlers.NewClientLogHandler(a.ErrorHandler, a.Logger).Handle)

		r.Mount("/datasets", handlers.NewDatasetHandler(
			a.SweeperService,
			a.ErrorHandler,
			a.Config.MaxRequestBytes(),
			a.Logger,
		).Routes())
	})
}

func (a *Application) pageData() handlers.PageData {
	return handlers.PageData{
		Title:        config.AppTitle,
		Version:      config.AppVersion,
		MaxFiles:     a.Config.Upload.MaxFiles,
		MaxFileSize:  a.Config.Upload.MaxFileSize,
		Extensions:   a.Config.Upload.AllowedExtensions,
		ChartFormats: []string{string(chart.FormatPNG), string(chart.FormatSVG)},
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Address(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts serving in the background. cancel is called if the listener
// fails so Run can shut down.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("address", a.Server.Addr),
		slog.String("level", a.Config.Logging.Level),
		slog.Int("max_files", a.Config.Upload.MaxFiles),
		slog.Any("extensions", a.Config.Upload.AllowedExtensions))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "Application started",
		slog.String("url", "http://"+displayAddress(a.Server.Addr)))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var shutdownErr error
	if a.Server != nil {
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}
	}

	a.stopServices()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return shutdownErr
}

func (a *Application) stopServices() {
	if a.WebSocketHub != nil {
		a.WebSocketHub.Stop()
	}
	if a.Store != nil {
		a.Store.Stop()
	}
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
	case sig := <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		a.Logger.WarnContext(ctx, "Server stopped unexpectedly")
	}

	return a.Stop(context.Background())
}

func displayAddress(addr string) string {
	if strings.HasPrefix(addr, ":") || strings.HasPrefix(addr, "0.0.0.0:") {
		return "localhost" + addr[strings.LastIndex(addr, ":"):]
	}
	return addr
}
