package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/org/rfidconsole/internal/console"
	"github.com/org/rfidconsole/internal/events"
	"github.com/org/rfidconsole/internal/journal"
	"github.com/org/rfidconsole/internal/view"
	"github.com/rs/zerolog/log"
)

// Config holds server configuration.
type Config struct {
	ListenAddr string
	DeviceURL  string
	RateLimit  int // device-bound requests per second per client
	RateBurst  int
}

// Console is the set of engine components the server exposes.
type Console struct {
	Sync      *console.Synchronizer
	Scheduler *console.Scheduler // optional
	Scan      *console.ScanCoordinator
	Gateway   *console.Gateway
	View      *view.Store
	Journal   *journal.Journal
	Hub       *events.Hub
	Events    *events.Broadcaster
}

// Server is the console's HTTP backend.
type Server struct {
	ctx     context.Context
	c       Console
	cfg     Config
	httpSrv *http.Server
}

// NewServer creates a Server. ctx bounds work that outlives a single
// request, such as an armed scan.
func NewServer(ctx context.Context, cfg Config, c Console) *Server {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 10
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 20
	}
	return &Server{ctx: ctx, c: c, cfg: cfg}
}

// BuildRouter wires up all routes and returns a chi router.
func (s *Server) BuildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(logMiddleware)
	r.Use(metricsMiddleware)

	r.Handle("/metrics", MetricsHandler())
	r.Get("/v1/sys/health", s.HealthHandler)

	r.Route("/v1/console", func(r chi.Router) {
		r.Get("/state", s.StateHandler)
		r.Get("/scan", s.ScanStateHandler)
		r.Delete("/scan", s.ScanCancelHandler)
		r.Get("/notifications", s.NotificationsHandler)
		r.Get("/events", s.EventsHandler)

		// Routes that reach the device.
		r.Group(func(r chi.Router) {
			r.Use(newRateLimiter(s.cfg.RateLimit, s.cfg.RateBurst).middleware)

			r.Post("/sync", s.SyncHandler)
			r.Post("/logs/refresh", s.RefreshLogsHandler)
			r.Post("/scan", s.ScanToggleHandler)
			r.Post("/cards", s.CreateCardHandler)
			r.Delete("/cards/{uid}", s.DeleteCardHandler)
		})
	})

	return r
}

// Start begins listening on the configured address.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.BuildRouter(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// A sync waits behind at most one other, each bounded by the
		// device client's request timeout.
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info().Str("addr", s.cfg.ListenAddr).Str("device", s.cfg.DeviceURL).Msg("starting HTTP server")
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
