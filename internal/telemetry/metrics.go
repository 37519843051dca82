package telemetry

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	httpDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	Decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swipe_decisions_total",
			Help: "Committed swipes by outcome",
		},
		[]string{"outcome"},
	)
	Resets = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "swipe_resets_total",
		Help: "Drags released below the commit threshold",
	})
	DroppedInputs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swipe_dropped_inputs_total",
			Help: "Inputs ignored because a transition was in flight or the deck was empty",
		},
		[]string{"kind"},
	)
	SessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "swipe_sessions_active",
		Help: "Number of live swipe sessions",
	})
	StreamClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "swipe_stream_clients",
		Help: "Number of currently connected SSE and WebSocket clients",
	})
	DeckReloads = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "swipe_deck_reloads_total",
		Help: "Wholesale deck replacements across all sessions",
	})
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_deliveries_total",
			Help: "Webhook deliveries by result (success, failed, dropped)",
		},
		[]string{"result"},
	)
)

var initOnce sync.Once

// Init registers all collectors with the default registry. Safe to call more
// than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(httpReqs, httpDur,
			Decisions, Resets, DroppedInputs,
			SessionsActive, StreamClients, DeckReloads,
			WebhookDeliveries)
	})
}

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(ww, r)

		// chi fills the pattern while routing, so read it afterwards.
		route := routePattern(r)
		httpReqs.WithLabelValues(route, r.Method, http.StatusText(ww.status)).Inc()
		httpDur.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
		return rc.RoutePattern()
	}
	return r.URL.Path
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack hands the connection to the WebSocket upgrader.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("telemetry: underlying writer cannot hijack")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
