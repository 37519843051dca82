package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/TimurManjosov/pawswipe/internal/telemetry"
)

const (
	// defaultQueueSize is the buffer size for the event queue
	defaultQueueSize = 1000

	// maxResponseBodySize limits how much of the response body we log (1KB)
	maxResponseBodySize = 1024

	defaultTimeout = 10 * time.Second
)

// Delivery headers.
const (
	HeaderSignature = "X-Pawswipe-Signature"
	HeaderEvent     = "X-Pawswipe-Event"
	HeaderDelivery  = "X-Pawswipe-Delivery"
)

// Dispatcher manages webhook event dispatching and delivery
type Dispatcher struct {
	endpoints []Endpoint
	client    *http.Client
	log       zerolog.Logger
	queue     chan Event
	done      chan struct{}
	closed    atomic.Bool
	started   atomic.Bool

	initialInterval time.Duration
	maxInterval     time.Duration

	delivered atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Dispatcher) { d.client = c }
}

// WithQueueSize bounds the number of events waiting for delivery.
func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan Event, n)
		}
	}
}

// WithBackoff sets the exponential backoff bounds between retries.
func WithBackoff(initial, max time.Duration) Option {
	return func(d *Dispatcher) {
		d.initialInterval = initial
		d.maxInterval = max
	}
}

// Stats counts delivery outcomes since the dispatcher was created.
type Stats struct {
	Delivered uint64 `json:"delivered"`
	Failed    uint64 `json:"failed"`
	Dropped   uint64 `json:"dropped"`
}

// NewDispatcher creates a new webhook dispatcher. With no endpoints the
// dispatcher is disabled and Dispatch is a no-op.
func NewDispatcher(endpoints []Endpoint, logger zerolog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		endpoints:       endpoints,
		client:          &http.Client{},
		log:             logger.With().Str("component", "webhook").Logger(),
		queue:           make(chan Event, defaultQueueSize),
		done:            make(chan struct{}),
		initialInterval: time.Second,
		maxInterval:     30 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Enabled reports whether any endpoint is configured.
func (d *Dispatcher) Enabled() bool { return len(d.endpoints) > 0 }

// Start begins processing events from the queue
func (d *Dispatcher) Start() {
	if d.started.CompareAndSwap(false, true) {
		go d.worker()
	}
}

// Close gracefully shuts down the webhook dispatcher.
// It closes the event queue and waits for all pending deliveries to complete.
//
// Close is safe to call multiple times - subsequent calls are no-ops.
func (d *Dispatcher) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(d.queue)
	if d.started.Load() {
		<-d.done
	}
	return nil
}

// Stats returns delivery counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Delivered: d.delivered.Load(),
		Failed:    d.failed.Load(),
		Dropped:   d.dropped.Load(),
	}
}

// Dispatch queues an event for webhook delivery. It never blocks; when the
// queue is full or the dispatcher is closed the event is dropped and false
// is returned.
func (d *Dispatcher) Dispatch(event Event) (queued bool) {
	if !d.Enabled() || d.closed.Load() {
		return false
	}
	defer func() {
		// close(d.queue) may race with a late Dispatch.
		if recover() != nil {
			queued = false
		}
	}()

	select {
	case d.queue <- event:
		d.log.Debug().
			Str("event", event.Type).
			Str("session", event.SessionID).
			Int("queue_size", len(d.queue)).
			Msg("event queued")
		return true
	default:
		d.dropped.Add(1)
		telemetry.WebhookDeliveries.WithLabelValues("dropped").Inc()
		d.log.Error().
			Str("event", event.Type).
			Str("session", event.SessionID).
			Int("queue_cap", cap(d.queue)).
			Msg("queue full, dropping event")
		return false
	}
}

// worker processes events from the queue, fanning each out to every endpoint.
func (d *Dispatcher) worker() {
	defer close(d.done)

	for event := range d.queue {
		payload, err := json.Marshal(event)
		if err != nil {
			d.log.Error().Err(err).Str("event", event.Type).Msg("failed to marshal event payload")
			continue
		}

		p := pool.New().WithMaxGoroutines(len(d.endpoints))
		for _, ep := range d.endpoints {
			p.Go(func() {
				d.deliver(context.Background(), ep, event.Type, payload)
			})
		}
		p.Wait()
	}
}

// errPermanent marks responses that retrying cannot fix.
var errPermanent = errors.New("permanent delivery failure")

// deliver posts payload to ep, retrying with exponential backoff.
func (d *Dispatcher) deliver(ctx context.Context, ep Endpoint, eventType string, payload []byte) {
	deliveryID := uuid.NewString()
	signature := ComputeHMAC(payload, ep.Secret)
	log := d.log.With().
		Str("url", ep.URL).
		Str("event", eventType).
		Str("delivery_id", deliveryID).
		Logger()

	timeout := ep.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.initialInterval
	b.MaxInterval = d.maxInterval

	attempt := 0
	operation := func() (int, error) {
		attempt++
		start := time.Now()
		status, body, err := d.post(ctx, ep.URL, timeout, payload, map[string]string{
			HeaderSignature: signature,
			HeaderEvent:     eventType,
			HeaderDelivery:  deliveryID,
		})
		evt := log.Debug()
		if err != nil {
			evt = log.Warn().Err(err)
		}
		evt.Int("attempt", attempt).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("response", body).
			Msg("delivery attempt")
		return status, err
	}

	status, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(max(ep.MaxRetries, 0)+1)),
	)
	if err != nil {
		d.failed.Add(1)
		telemetry.WebhookDeliveries.WithLabelValues("failed").Inc()
		log.Error().Err(err).Int("status", status).Int("attempts", attempt).Msg("delivery failed permanently")
		return
	}
	d.delivered.Add(1)
	telemetry.WebhookDeliveries.WithLabelValues("success").Inc()
	log.Info().Int("status", status).Int("attempts", attempt).Msg("delivery succeeded")
}

// post performs a single delivery attempt. Non-2xx responses become errors;
// 4xx other than 429 are not retried.
func (d *Dispatcher) post(ctx context.Context, url string, timeout time.Duration, payload []byte, headers map[string]string) (int, string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, "", backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return resp.StatusCode, string(body), nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
		return resp.StatusCode, string(body), backoff.Permanent(fmt.Errorf("%w: status %d", errPermanent, resp.StatusCode))
	default:
		return resp.StatusCode, string(body), fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
}
