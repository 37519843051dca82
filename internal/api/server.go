// Package api exposes swipe sessions over HTTP: JSON commands, an SSE frame
// stream and a WebSocket for live pointer input.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/TimurManjosov/pawswipe/internal/audit"
	"github.com/TimurManjosov/pawswipe/internal/auth"
	"github.com/TimurManjosov/pawswipe/internal/catalog"
	"github.com/TimurManjosov/pawswipe/internal/session"
	"github.com/TimurManjosov/pawswipe/internal/store"
	"github.com/TimurManjosov/pawswipe/internal/telemetry"
	"github.com/TimurManjosov/pawswipe/internal/version"
)

const (
	defaultRequestTimeout = 5 * time.Second
	defaultHeartbeat      = 15 * time.Second
)

// AuditReader serves recent audit events to the admin API.
type AuditReader interface {
	Recent(limit int) []audit.Event
}

type Server struct {
	sessions *session.Manager
	catalog  catalog.Source
	store    store.Store
	log      zerolog.Logger

	auth     *auth.Authenticator
	audit    *audit.Service
	auditLog AuditReader

	rateLimit      int // requests per IP per minute on input routes; 0 disables
	requestTimeout time.Duration
	heartbeat      time.Duration
	upgrader       websocket.Upgrader
}

// Option customizes a Server.
type Option func(*Server)

// WithAuth protects the decision and admin routes.
func WithAuth(a *auth.Authenticator) Option { return func(s *Server) { s.auth = a } }

// WithAudit records session lifecycle and auth failures and serves them on
// the admin API.
func WithAudit(svc *audit.Service, reader AuditReader) Option {
	return func(s *Server) { s.audit, s.auditLog = svc, reader }
}

// WithRateLimit limits pointer and WebSocket requests per client IP per minute.
func WithRateLimit(perMinute int) Option { return func(s *Server) { s.rateLimit = perMinute } }

// WithHeartbeat sets the SSE keep-alive and WebSocket ping interval.
func WithHeartbeat(d time.Duration) Option { return func(s *Server) { s.heartbeat = d } }

func NewServer(mgr *session.Manager, src catalog.Source, st store.Store, logger zerolog.Logger, opts ...Option) *Server {
	s := &Server{
		sessions:       mgr,
		catalog:        src,
		store:          st,
		log:            logger.With().Str("component", "api").Logger(),
		requestTimeout: defaultRequestTimeout,
		heartbeat:      defaultHeartbeat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.auth != nil {
		s.auth.OnDenied = s.authDenied
	}
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, s.accessLog, middleware.Recoverer)
	r.Use(telemetry.Middleware, telemetry.TraceMiddleware)

	timeout := middleware.Timeout(s.requestTimeout)
	limited := s.limiter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/version", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"version": version.Version})
	})

	r.With(timeout).Get("/v1/candidates", s.handleListCandidates)

	r.Route("/v1/sessions", func(r chi.Router) {
		r.With(timeout).Post("/", s.handleCreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Use(s.sessionCtx)
			r.With(timeout).Get("/", s.handleGetSession)
			r.With(timeout).Delete("/", s.handleDeleteSession)
			r.With(timeout).Post("/deck", s.handleReloadDeck)
			r.With(timeout).Post("/commit", s.handleCommit)
			r.With(timeout, limited).Post("/pointer", s.handlePointer)
			// Long-lived: no request timeout.
			r.Get("/stream", s.handleStream)
			r.With(limited).Get("/ws", s.handleWebSocket)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(s.auth.RequireAuth(auth.RoleReadonly), timeout)
		r.Get("/v1/decisions", s.handleListDecisions)
		r.Get("/v1/decisions/{id}", s.handleGetDecision)
	})

	r.Route("/v1/admin", func(r chi.Router) {
		r.Use(s.auth.RequireAuth(auth.RoleAdmin), timeout)
		r.Get("/sessions", s.handleAdminListSessions)
		r.Post("/reload", s.handleAdminReload)
		r.Get("/audit", s.handleAdminAudit)
	})

	return r
}

// limiter rate limits by client IP; RealIP has already resolved it.
func (s *Server) limiter() func(http.Handler) http.Handler {
	if s.rateLimit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(s.rateLimit, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(RateLimitedError),
	)
}

// accessLog logs one line per request with its id, status and latency.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		evt := s.log.Debug()
		switch {
		case status >= 500:
			evt = s.log.Error()
		case status >= 400:
			evt = s.log.Info()
		}
		evt.Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("latency", time.Since(start)).
			Msg("http request")
	})
}

func (s *Server) authDenied(w http.ResponseWriter, r *http.Request, status int, msg string) {
	s.recordAudit(r, audit.Event{
		Action:       audit.ActionAuthFailed,
		ResourceType: "route",
		ResourceID:   r.URL.Path,
		Status:       audit.StatusFailure,
		Details:      map[string]any{"reason": msg},
	})
	if status == http.StatusForbidden {
		ForbiddenError(w, r, "Insufficient permissions")
		return
	}
	UnauthorizedError(w, r, "Authentication required: "+msg)
}
