// ABOUTME: Server orchestrator that wires the store, API, admin UI and metrics
// ABOUTME: Owns the HTTP listener lifecycle plus health and readiness endpoints

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/2389/storeadmin/internal/api"
	"github.com/2389/storeadmin/internal/auth"
	"github.com/2389/storeadmin/internal/config"
	"github.com/2389/storeadmin/internal/events"
	"github.com/2389/storeadmin/internal/metrics"
	"github.com/2389/storeadmin/internal/resource"
	"github.com/2389/storeadmin/internal/store"
	"github.com/2389/storeadmin/internal/webadmin"
)

// sessionSweepInterval is how often expired admin sessions are purged.
const sessionSweepInterval = time.Hour

// Server runs the storeadmin HTTP surface.
type Server struct {
	config     *config.Config
	store      *store.SQLStore
	service    *resource.Service
	publisher  events.Publisher
	metrics    *metrics.Metrics
	httpServer *http.Server
	logger     *slog.Logger
}

func openStore(cfg *config.Config, registry *resource.Registry) (*store.SQLStore, error) {
	s, err := store.Open(store.Options{
		Driver: cfg.Database.Driver,
		Path:   cfg.Database.Path,
		DSN:    cfg.Database.DSN,
	}, registry)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return s, nil
}

func newPublisher(cfg *config.Config, logger *slog.Logger) events.Publisher {
	if !cfg.Events.Enabled {
		return events.Nop{}
	}
	logger.Info("publishing change events", "brokers", cfg.Events.Kafka.Brokers, "topic", cfg.Events.Kafka.Topic)
	return events.NewKafkaPublisher(events.KafkaConfig{
		Brokers: cfg.Events.Kafka.Brokers,
		Topic:   cfg.Events.Kafka.Topic,
	}, logger)
}

// New creates a Server from configuration. The store is opened and its
// schema created before New returns.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	registry := resource.DefaultRegistry()
	s, err := openStore(cfg, registry)
	if err != nil {
		return nil, err
	}

	verifier, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("creating JWT verifier: %w", err)
	}

	srv := &Server{
		config:    cfg,
		store:     s,
		publisher: newPublisher(cfg, logger),
		metrics:   metrics.New(),
		logger:    logger.With("component", "server"),
	}

	// Writes fan out to the audit log, the event stream and the counters.
	srv.service = resource.NewService(s, registry, logger, s, srv.publisher, srv.metrics)

	mux := http.NewServeMux()

	// Health endpoints - no auth required
	mux.HandleFunc("GET /health", srv.handleHealth)
	mux.HandleFunc("GET /health/ready", srv.handleReady)

	var middleware []func(http.Handler) http.Handler
	if cfg.Metrics.Enabled {
		middleware = append(middleware, srv.metrics.Middleware)
		mux.Handle("GET "+cfg.Metrics.Path, srv.metrics.Handler())
		logger.Info("metrics enabled", "path", cfg.Metrics.Path)
	}

	mux.Handle("/api/", api.New(srv.service, s, verifier, api.Options{
		CORSOrigin: cfg.CORS.AllowedOrigin,
		Logger:     logger,
		Middleware: middleware,
	}))

	if cfg.WebAdmin.Enabled {
		admin := webadmin.New(s, srv.service, webadmin.Config{
			SessionDuration: cfg.WebAdmin.SessionDuration,
			SecureCookies:   cfg.WebAdmin.SecureCookies,
		})
		admin.RegisterRoutes(mux)
		mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/admin/", http.StatusSeeOther)
		})
		logger.Info("admin web UI enabled at /admin/")
	}

	srv.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	return srv, nil
}

// Service exposes the resource service, used by CLI commands that share
// the server's wiring.
func (s *Server) Service() *resource.Service {
	return s.service
}

// Store returns the underlying store.
func (s *Server) Store() *store.SQLStore {
	return s.store
}

// Run starts the server and blocks until the context is canceled or the
// listener fails. Returns nil on graceful shutdown.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the server on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.sweepSessions(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("context canceled, initiating shutdown")
		return s.gracefulShutdown()
	})

	return g.Wait()
}

// sweepSessions purges expired admin sessions until ctx is done.
func (s *Server) sweepSessions(ctx context.Context) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.store.DeleteExpiredSessions(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("failed to purge expired sessions", "error", err)
			}
		}
	}
}

// gracefulShutdown uses a fresh context since the run context is already canceled.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()
	return s.Shutdown(ctx)
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown stops the HTTP server, flushes pending events and closes the store.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", s.httpServer.Shutdown(ctx))
	errs = appendCloseError(errs, "events close", s.publisher.Close())
	errs = appendCloseError(errs, "store close", s.store.Close())

	return errors.Join(errs...)
}

// handleHealth returns 200 OK if the process is alive.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK when the database answers a ping.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("database unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
