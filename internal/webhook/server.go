package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mattjoyce/runnerpool/internal/log"
)

// Server represents the webhook HTTP server.
type Server struct {
	config   Config
	auth     *Authenticator
	handler  EventHandler
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *Metrics
	now      func() time.Time
	server   *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithRegistry exposes and records metrics on reg instead of a private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) { s.registry = reg }
}

// WithClock overrides the time source used for Delivery.ReceivedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New creates a new webhook server instance. A nil handler is replaced by
// NopHandler.
func New(config Config, handler EventHandler, logger *slog.Logger, opts ...Option) *Server {
	if handler == nil {
		handler = NopHandler
	}
	if logger == nil {
		logger = log.WithComponent("webhook")
	}

	s := &Server{
		config:  config.withDefaults(),
		handler: handler,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	s.auth = NewAuthenticator(s.config.Secret, logger)
	s.metrics = NewMetrics(s.registry)
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// Start starts the webhook HTTP server (blocking).
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      s.setupRoutes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if !s.auth.Enabled() {
		s.logger.Warn("webhook secret not configured, signatures will not be verified", "env", SecretEnv)
	}
	s.logger.Info("webhook server starting", "listen", s.config.Listen, "path", s.config.Path)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("webhook server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("webhook server error: %w", err)
	}
}

func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Post(s.config.Path, s.handleGitHub)
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	return r
}

// loggingMiddleware logs HTTP requests (excludes payloads and signatures).
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Debug("webhook request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGitHub(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	deliveryID := r.Header.Get(DeliveryHeader)
	if deliveryID == "" {
		deliveryID = middleware.GetReqID(ctx)
	}
	logger := log.WithDelivery(s.logger, deliveryID)

	body, err := io.ReadAll(io.LimitReader(r.Body, s.config.MaxBodySize+1))
	if err != nil {
		s.metrics.observe(OutcomeInvalidPayload)
		s.respondError(w, http.StatusBadRequest, "failed to read request body", "")
		return
	}
	if int64(len(body)) > s.config.MaxBodySize {
		s.metrics.observe(OutcomeTooLarge)
		s.respondError(w, http.StatusRequestEntityTooLarge, "payload too large", "")
		return
	}

	if err := s.auth.Verify(body, r.Header.Get(s.config.SignatureHeader)); err != nil {
		logger.Warn("webhook signature verification failed",
			"path", r.URL.Path,
			"header", s.config.SignatureHeader,
			"reason", err.Error(),
		)
		s.metrics.observe(OutcomeUnauthorized)
		s.respondError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	if kind := r.Header.Get(EventHeader); kind != "" && kind != EventWorkflowJob {
		logger.Info("ignoring non workflow_job event", "event", kind)
		s.metrics.observe(OutcomeIgnored)
		s.respondJSON(w, http.StatusAccepted, AcceptedResponse{Status: "ignored", DeliveryID: deliveryID})
		return
	}

	event, err := DecodeEvent(body)
	if err != nil {
		logger.Warn("invalid webhook payload", "error", err)
		s.metrics.observe(OutcomeInvalidPayload)
		s.respondError(w, http.StatusBadRequest, "invalid payload", err.Error())
		return
	}

	logger.Info("received workflow job event",
		"action", event.Action,
		"job_id", event.WorkflowJob.ID,
		"labels", event.WorkflowJob.Labels,
	)
	if event.Queued() {
		logger.Info("processing queued workflow job", "repository", event.WorkflowJob.Repository.FullName)
	} else {
		logger.Info("ignoring non-queued workflow job", "action", event.Action)
	}

	delivery := Delivery{ID: deliveryID, Event: event, ReceivedAt: s.now().UTC()}
	if err := s.handler.HandleEvent(ctx, delivery); err != nil {
		logger.Error("failed to handle workflow job event", "error", err)
		s.metrics.observe(OutcomeHandlerError)
		s.respondError(w, http.StatusInternalServerError, "failed to handle event", "")
		return
	}

	s.metrics.observe(OutcomeAccepted)
	s.respondJSON(w, http.StatusAccepted, AcceptedResponse{Status: "accepted", DeliveryID: deliveryID})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message, details string) {
	s.respondJSON(w, status, ErrorResponse{Error: message, Details: details})
}
