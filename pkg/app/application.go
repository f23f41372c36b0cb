package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"reservations/pkg/config"
	"reservations/pkg/contracts"
	"reservations/pkg/metrics"
	"reservations/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

type Application struct {
	cfg              *config.Config
	metrics          *metrics.Metrics
	server           *http.Server
	idempotencyStore *middleware.InMemoryIdempotencyStore
	rateLimiter      *middleware.ClientRateLimiter
	healthHandler    http.Handler
	appHTTPHandler   http.Handler
	closers          []io.Closer
}

// NewApplication prepares an application for cfg. m may be nil when metrics are disabled.
func NewApplication(cfg *config.Config, m *metrics.Metrics) *Application {
	return &Application{
		cfg:     cfg,
		metrics: m,
	}
}

// SetApp builds the middleware stacks and the HTTP server. routeLabel maps a
// request path to the route pattern used as a metrics label.
func (a *Application) SetApp(appHandler, healthHandler contracts.Handler, routeLabel func(string) string) {
	a.setHealthHandler(healthHandler)
	a.setAppHandler(appHandler, routeLabel)
	a.setAppServer()
}

// OnShutdown registers c to be closed after the server has stopped.
func (a *Application) OnShutdown(c io.Closer) {
	a.closers = append(a.closers, c)
}

func (a *Application) setHealthHandler(healthHandler contracts.Handler) {
	healthRouter := httprouter.New()
	healthHandler.RegisterRoutes(healthRouter)

	var h http.Handler = healthRouter
	h = middleware.RequestLogging(a.cfg.Log)(h)
	h = middleware.Recovery(a.cfg.Log)(h)
	a.healthHandler = h
	a.cfg.Log.Info("Health endpoints configured with minimal middleware (Recovery + Logging only)")
}

func (a *Application) setAppHandler(appHandler contracts.Handler, routeLabel func(string) string) {
	appRouter := httprouter.New()
	appHandler.RegisterRoutes(appRouter)

	a.idempotencyStore = middleware.NewInMemoryIdempotencyStore(a.cfg.IdempotencyTTL)
	a.rateLimiter = middleware.NewClientRateLimiter(
		a.cfg.RateLimitRequests,
		a.cfg.RateLimitWindow,
		middleware.DefaultClientExtractor,
		a.cfg.Log,
	)

	var h http.Handler = appRouter
	h = middleware.Idempotency(a.idempotencyStore, middleware.IdempotencyHeader)(h)
	h = middleware.RequestTimeout(a.cfg.RequestTimeout)(h)
	h = middleware.RateLimit(a.rateLimiter)(h)
	h = middleware.ContentTypeValidation(a.cfg.Log)(h)
	h = middleware.MaxRequestSize(int64(a.cfg.MaxRequestSize), a.cfg.Log)(h)
	h = middleware.CORS(a.cfg.CORSAllowedOrigins)(h)
	if a.metrics != nil {
		h = middleware.Metrics(a.metrics, routeLabel)(h)
	}
	h = middleware.RequestLogging(a.cfg.Log)(h)
	h = middleware.Recovery(a.cfg.Log)(h)
	a.appHTTPHandler = h
	a.cfg.Log.Info("Application endpoints configured with full middleware stack",
		"cors_allowed_origins", a.cfg.CORSAllowedOrigins,
		"metrics_enabled", a.metrics != nil,
	)
}

func (a *Application) setAppServer() {
	a.server = &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      a.Handler(),
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
		IdleTimeout:  a.cfg.IdleTimeout,
	}

	a.cfg.Log.Info("HTTP server configured", "port", a.cfg.Port)
}

// Handler returns the root handler served by Run.
func (a *Application) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/health", a.healthHandler)
	mux.Handle("/ready", a.healthHandler)
	if a.metrics != nil {
		mux.Handle(a.cfg.MetricsPath, a.metrics.Handler())
	}
	mux.Handle("/", a.appHTTPHandler)
	return mux
}

func (a *Application) Run() {
	serverErrors := make(chan error, 1)

	go func() {
		a.cfg.Log.Info("Starting HTTP server", "address", a.server.Addr)
		serverErrors <- a.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			a.stopWorkers()
			a.closeAll()
			a.cfg.GracefulShutdown()
			a.cfg.Log.Fatal("HTTP server failed", "error", err)
		}

	case sig := <-shutdown:
		a.cfg.Log.Info("Shutdown signal received", "signal", sig)
		a.gracefulShutdown()
	}
}

func (a *Application) gracefulShutdown() {
	a.cfg.Log.Info("Starting graceful shutdown...")

	a.stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.cfg.Log.Error("Server shutdown failed", "error", err)
		if err := a.server.Close(); err != nil {
			a.cfg.Log.Error("Could not stop server gracefully", "error", err)
		}
	}

	a.closeAll()
	a.cfg.GracefulShutdown()
	a.cfg.Log.Info("Server stopped gracefully")
}

func (a *Application) stopWorkers() {
	a.cfg.Log.Info("Stopping background workers...")
	a.idempotencyStore.Stop()
	a.rateLimiter.Stop()
	a.cfg.Log.Info("Background workers stopped")
}

func (a *Application) closeAll() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.cfg.Log.Error("Failed to close resource", "error", err)
		}
	}
}
