package hooks

import (
	"io"
	"net/http"
	"testing"

	"github.com/scanhive/scanhive/pkg/events"
)

// =============================================================================
// Test Fixtures
// =============================================================================

const testScanID = "test-scan-123"

func newStartedEvent(tool string) events.Event {
	return events.NewStarted(testScanID, tool)
}

func newSuccessEvent(tool string, findings int) events.Event {
	return events.NewSuccess(testScanID, tool, findings)
}

func newTimeoutEvent(tool string) events.Event {
	return events.NewWarning(testScanID, tool, tool+" timed out")
}

func newFailureEvent(tool string) events.Event {
	return events.NewToolError(testScanID, tool, tool+" exited with code 1")
}

func newCompleteEvent(findings int) events.Event {
	return events.NewComplete(testScanID, findings)
}

// fetchMetrics retrieves the metrics body from a scrape endpoint.
func fetchMetrics(t *testing.T, addr string) string {
	t.Helper()
	resp, err := http.Get(addr)
	if err != nil {
		t.Fatalf("failed to fetch metrics: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(body)
}
