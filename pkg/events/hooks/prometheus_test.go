package hooks

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/scanhive/scanhive/pkg/duration"
	"github.com/scanhive/scanhive/pkg/events"
)

// scrape stands up a throwaway server around Handler() and returns the
// current metrics body.
func scrape(t *testing.T, hook *PrometheusHook) string {
	t.Helper()
	srv := httptest.NewServer(hook.Handler())
	defer srv.Close()
	return fetchMetrics(t, srv.URL)
}

func TestPrometheusHook_StartsServer(t *testing.T) {
	hook, err := NewPrometheusHook(PrometheusOptions{
		Port: 19490, // Use non-standard port for testing
		Path: "/metrics",
	})
	if err != nil {
		t.Fatalf("failed to create hook: %v", err)
	}
	defer hook.Close()

	// Give server time to start
	time.Sleep(100 * time.Millisecond)

	body := fetchMetrics(t, hook.MetricsAddr())
	if !strings.Contains(body, "scanhive_scans_active") {
		t.Error("expected scanhive_scans_active gauge in scrape output")
	}
}

func TestPrometheusHook_DefaultOptions(t *testing.T) {
	hook, err := NewPrometheusHook(PrometheusOptions{})
	if err != nil {
		t.Fatalf("failed to create hook: %v", err)
	}
	defer hook.Close()

	if hook.opts.Path != "/metrics" {
		t.Errorf("expected default path '/metrics', got %q", hook.opts.Path)
	}
	if hook.opts.ReadTimeout != duration.ServerRead {
		t.Errorf("expected default read timeout %v, got %v", duration.ServerRead, hook.opts.ReadTimeout)
	}
	if hook.opts.WriteTimeout != duration.ServerWrite {
		t.Errorf("expected default write timeout %v, got %v", duration.ServerWrite, hook.opts.WriteTimeout)
	}
	if hook.server != nil {
		t.Error("expected no standalone server when Port is zero")
	}
}

func TestPrometheusHook_RecordsToolOutcomes(t *testing.T) {
	hook, err := NewPrometheusHook(PrometheusOptions{})
	if err != nil {
		t.Fatalf("failed to create hook: %v", err)
	}
	defer hook.Close()

	ctx := context.Background()
	for _, ev := range []events.Event{
		newSuccessEvent("nuclei", 4),
		newTimeoutEvent("zap"),
		newFailureEvent("sqlmap"),
	} {
		if err := hook.OnEvent(ctx, ev); err != nil {
			t.Fatalf("OnEvent failed: %v", err)
		}
	}

	body := scrape(t, hook)
	for _, want := range []string{
		`scanhive_tool_runs_total{outcome="success",tool="nuclei"} 1`,
		`scanhive_tool_runs_total{outcome="timeout",tool="zap"} 1`,
		`scanhive_tool_runs_total{outcome="error",tool="sqlmap"} 1`,
		`scanhive_findings_total{tool="nuclei"} 4`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected metric %q in scrape output", want)
		}
	}
}

func TestPrometheusHook_ScanLevelWarningNotCountedAsTimeout(t *testing.T) {
	hook, err := NewPrometheusHook(PrometheusOptions{})
	if err != nil {
		t.Fatalf("failed to create hook: %v", err)
	}
	defer hook.Close()

	// Preflight advisory: warning without a tool.
	ev := events.NewWarning(testScanID, "", "target did not answer HTTP probe")
	if err := hook.OnEvent(context.Background(), ev); err != nil {
		t.Fatalf("OnEvent failed: %v", err)
	}

	body := scrape(t, hook)
	if strings.Contains(body, `outcome="timeout"`) {
		t.Error("scan-level warning must not count as a tool timeout")
	}
	if !strings.Contains(body, `scanhive_events_total{type="warning"} 1`) {
		t.Error("expected warning counted in scanhive_events_total")
	}
}

func TestPrometheusHook_ActiveGaugeTracksScanLifecycle(t *testing.T) {
	hook, err := NewPrometheusHook(PrometheusOptions{})
	if err != nil {
		t.Fatalf("failed to create hook: %v", err)
	}
	defer hook.Close()

	ctx := context.Background()

	if err := hook.OnEvent(ctx, newStartedEvent("nuclei")); err != nil {
		t.Fatalf("OnEvent failed: %v", err)
	}
	body := scrape(t, hook)
	if !strings.Contains(body, "scanhive_scans_active 1") {
		t.Error("expected one active scan after first event")
	}

	// Second event for the same scan must not double count.
	if err := hook.OnEvent(ctx, newSuccessEvent("nuclei", 2)); err != nil {
		t.Fatalf("OnEvent failed: %v", err)
	}
	body = scrape(t, hook)
	if !strings.Contains(body, "scanhive_scans_active 1") {
		t.Error("expected active gauge to stay at 1 for repeat events")
	}

	if err := hook.OnEvent(ctx, newCompleteEvent(2)); err != nil {
		t.Fatalf("OnEvent failed: %v", err)
	}
	body = scrape(t, hook)
	if !strings.Contains(body, "scanhive_scans_active 0") {
		t.Error("expected active gauge back to 0 after complete")
	}
	if !strings.Contains(body, "scanhive_scans_completed_total 1") {
		t.Error("expected completed counter incremented")
	}
}

func TestPrometheusHook_CompleteForUnknownScanDoesNotUnderflow(t *testing.T) {
	hook, err := NewPrometheusHook(PrometheusOptions{})
	if err != nil {
		t.Fatalf("failed to create hook: %v", err)
	}
	defer hook.Close()

	// Complete arriving without any prior events for the scan.
	if err := hook.OnEvent(context.Background(), newCompleteEvent(0)); err != nil {
		t.Fatalf("OnEvent failed: %v", err)
	}

	body := scrape(t, hook)
	if !strings.Contains(body, "scanhive_scans_active 0") {
		t.Error("gauge must not go negative for unseen scans")
	}
}

func TestPrometheusHook_CloseIsIdempotent(t *testing.T) {
	hook, err := NewPrometheusHook(PrometheusOptions{Port: 19491})
	if err != nil {
		t.Fatalf("failed to create hook: %v", err)
	}

	if err := hook.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := hook.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}

	// Events after Close are dropped without error.
	if err := hook.OnEvent(context.Background(), newStartedEvent("nuclei")); err != nil {
		t.Fatalf("OnEvent after Close failed: %v", err)
	}
}

func TestPrometheusHook_ObservesAllTypes(t *testing.T) {
	hook, err := NewPrometheusHook(PrometheusOptions{})
	if err != nil {
		t.Fatalf("failed to create hook: %v", err)
	}
	defer hook.Close()

	if hook.Types() != nil {
		t.Errorf("expected nil (all types), got %v", hook.Types())
	}
}

// =============================================================================
// Benchmark Tests
// =============================================================================

func BenchmarkPrometheusHook_OnEvent(b *testing.B) {
	hook, err := NewPrometheusHook(PrometheusOptions{})
	if err != nil {
		b.Fatalf("failed to create hook: %v", err)
	}
	defer hook.Close()

	ctx := context.Background()
	ev := newSuccessEvent("nuclei", 3)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = hook.OnEvent(ctx, ev)
	}
}
