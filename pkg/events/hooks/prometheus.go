package hooks

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scanhive/scanhive/pkg/duration"
	"github.com/scanhive/scanhive/pkg/events"
)

// Compile-time interface check.
var _ events.Hook = (*PrometheusHook)(nil)

// PrometheusHook exposes scan metrics for Prometheus scraping. Counters
// cover tool-run outcomes and findings; a gauge tracks scans in flight.
// The hook can serve its own metrics endpoint, or hand its Handler to
// an existing mux.
type PrometheusHook struct {
	server   *http.Server
	registry *prometheus.Registry
	opts     PrometheusOptions

	// Counters
	toolRunsTotal   *prometheus.CounterVec
	findingsTotal   *prometheus.CounterVec
	scansCompleted  prometheus.Counter
	eventsTotal     *prometheus.CounterVec
	dispatchedTotal prometheus.Counter

	// Gauges
	scansActive prometheus.Gauge

	// Internal tracking
	mu     sync.Mutex
	active map[string]struct{}
	closed bool
}

// PrometheusOptions configures the Prometheus hook behavior.
type PrometheusOptions struct {
	// Port for a standalone metrics server. Zero means no server;
	// mount Handler() on your own mux instead.
	Port int

	// Path for the metrics endpoint (default: "/metrics").
	Path string

	// ReadTimeout for the standalone server.
	ReadTimeout time.Duration

	// WriteTimeout for the standalone server.
	WriteTimeout time.Duration
}

// NewPrometheusHook creates a Prometheus hook. When opts.Port is set,
// a standalone metrics server starts immediately and runs until
// Close() is called.
func NewPrometheusHook(opts PrometheusOptions) (*PrometheusHook, error) {
	if opts.Path == "" {
		opts.Path = "/metrics"
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = duration.ServerRead
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = duration.ServerWrite
	}

	// Custom registry; don't pollute the default.
	registry := prometheus.NewRegistry()

	hook := &PrometheusHook{
		registry: registry,
		opts:     opts,
		active:   make(map[string]struct{}),
	}

	if err := hook.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	if opts.Port > 0 {
		if err := hook.startServer(); err != nil {
			return nil, fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	return hook, nil
}

// initMetrics creates and registers all Prometheus metrics.
func (h *PrometheusHook) initMetrics() error {
	h.toolRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scanhive_tool_runs_total",
			Help: "Total number of tool runs by terminal outcome",
		},
		[]string{"tool", "outcome"},
	)

	h.findingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scanhive_findings_total",
			Help: "Total number of findings reported by successful tool runs",
		},
		[]string{"tool"},
	)

	h.scansCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scanhive_scans_completed_total",
			Help: "Total number of scans that reached a terminal state",
		},
	)

	h.eventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scanhive_events_total",
			Help: "Total number of progress events published by type",
		},
		[]string{"type"},
	)

	h.dispatchedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scanhive_hook_events_dispatched_total",
			Help: "Total number of events this hook processed",
		},
	)

	h.scansActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scanhive_scans_active",
			Help: "Number of scans currently in flight",
		},
	)

	collectors := []prometheus.Collector{
		h.toolRunsTotal,
		h.findingsTotal,
		h.scansCompleted,
		h.eventsTotal,
		h.dispatchedTotal,
		h.scansActive,
	}
	for _, c := range collectors {
		if err := h.registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// MetricsAddr returns the full URL of the standalone metrics endpoint.
func (h *PrometheusHook) MetricsAddr() string {
	return fmt.Sprintf("http://localhost:%d%s", h.opts.Port, h.opts.Path)
}

// Handler returns the scrape handler for mounting on an existing mux.
func (h *PrometheusHook) Handler() http.Handler {
	return promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// startServer starts the standalone metrics server.
func (h *PrometheusHook) startServer() error {
	mux := http.NewServeMux()
	mux.Handle(h.opts.Path, h.Handler())

	h.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", h.opts.Port),
		Handler:      mux,
		ReadTimeout:  h.opts.ReadTimeout,
		WriteTimeout: h.opts.WriteTimeout,
	}

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("prometheus: metrics server error: %v", err)
		}
	}()

	return nil
}

// OnEvent updates metrics from scan events.
func (h *PrometheusHook) OnEvent(ctx context.Context, ev events.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}

	h.dispatchedTotal.Inc()
	h.eventsTotal.WithLabelValues(string(ev.Type)).Inc()

	if _, seen := h.active[ev.Scan]; !seen && ev.Type != events.TypeComplete {
		h.active[ev.Scan] = struct{}{}
		h.scansActive.Inc()
	}

	switch ev.Type {
	case events.TypeSuccess:
		h.toolRunsTotal.WithLabelValues(ev.Tool, "success").Inc()
		if ev.FindingsCount != nil {
			h.findingsTotal.WithLabelValues(ev.Tool).Add(float64(*ev.FindingsCount))
		}
	case events.TypeWarning:
		// Tool-scoped warnings are timeouts; scan-level warnings
		// (empty tool) are preflight advisories.
		if ev.Tool != "" {
			h.toolRunsTotal.WithLabelValues(ev.Tool, "timeout").Inc()
		}
	case events.TypeError:
		if ev.Tool != "" {
			h.toolRunsTotal.WithLabelValues(ev.Tool, "error").Inc()
		}
	case events.TypeComplete:
		h.scansCompleted.Inc()
		if _, seen := h.active[ev.Scan]; seen {
			delete(h.active, ev.Scan)
			h.scansActive.Dec()
		}
	}

	return nil
}

// Types returns nil: all event types feed metrics.
func (h *PrometheusHook) Types() []events.Type { return nil }

// Close stops the standalone server if one was started.
func (h *PrometheusHook) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	server := h.server
	h.mu.Unlock()

	if server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), duration.ServerShutdown)
	defer cancel()
	return server.Shutdown(ctx)
}
