// Package defaults provides canonical default values for the entire codebase.
// This is the SINGLE SOURCE OF TRUTH for all runtime configuration defaults.
//
// Usage:
//
//	cfg.MaxBody = defaults.BufferMax
//	req.Header.Set("Content-Type", defaults.ContentTypeJSON)
//
// DO NOT use hardcoded values like `EvidenceLimit: 200` anywhere.
// Instead, reference the appropriate constant from this package.
package defaults

import "fmt"

// Version is the current scanhive version
const Version = "1.2.0"

// ToolName identifies this program in user agents and telemetry.
const ToolName = "scanhive"

// ============================================================================
// SCAN REQUEST BOUNDS
// ============================================================================
//
// Validation limits for caller-supplied scan parameters.
// ============================================================================

const (
	// ScanTimeoutMin is the smallest accepted per-tool timeout (1s)
	ScanTimeoutMin = 1

	// ScanTimeoutMax is the largest accepted per-tool timeout (3600s).
	// An omitted timeout means each tool's registry default.
	ScanTimeoutMax = 3600

	// MaxActiveScans bounds concurrently running scans per process
	MaxActiveScans = 100

	// MaxToolsPerScan bounds the tool selection in one request
	MaxToolsPerScan = 16

	// MaxURLLength bounds the target URL
	MaxURLLength = 2048
)

// ============================================================================
// FINDING LIMITS
// ============================================================================

const (
	// EvidenceLimit caps free-text evidence extracted from tool output,
	// including everything scraped out of HTML reports (200 chars)
	EvidenceLimit = 200

	// TitleLimit caps finding titles (120 chars)
	TitleLimit = 120

	// MaxFindingsPerRun caps how many findings one tool run may
	// contribute before the parser stops appending
	MaxFindingsPerRun = 5000
)

// ============================================================================
// EVENT STREAMING
// ============================================================================

const (
	// SubscriberBuffer is the per-subscriber event queue depth. A
	// subscriber that falls this far behind starts losing events
	// rather than stalling the scan.
	SubscriberBuffer = 256

	// WSSendBuffer is the per-WebSocket-client outbound queue depth
	WSSendBuffer = 1024
)

// ============================================================================
// PROCESS OUTPUT LIMITS
// ============================================================================

const (
	// BufferSmall is for typical reads (4KB)
	BufferSmall = 4 * 1024

	// BufferMedium is for larger reads (32KB)
	BufferMedium = 32 * 1024

	// BufferMax caps captured stdout/stderr per process (10MB). Beyond
	// this the capture truncates; the log sink still receives all bytes.
	BufferMax = 10 * 1024 * 1024
)

// ============================================================================
// HTTP CONTENT TYPES
// ============================================================================

const (
	// ContentTypeJSON is application/json
	ContentTypeJSON = "application/json"

	// ContentTypeHTML is text/html
	ContentTypeHTML = "text/html"

	// ContentTypeMarkdown is text/markdown
	ContentTypeMarkdown = "text/markdown"

	// ContentTypePDF is application/pdf
	ContentTypePDF = "application/pdf"

	// ContentTypeEventStream is text/event-stream
	ContentTypeEventStream = "text/event-stream"

	// ContentTypePlain is text/plain
	ContentTypePlain = "text/plain"
)

// ============================================================================
// SERVER SETTINGS
// ============================================================================

const (
	// APIPort is the default HTTP API port
	APIPort = 8080

	// StartRatePerMin is the default per-client budget of scan starts
	StartRatePerMin = 10

	// StartBurst is the rate limiter burst for scan starts
	StartBurst = 3

	// ListLimitDefault is the default page size for scan listings
	ListLimitDefault = 50
)

// ============================================================================
// HISTORY SETTINGS
// ============================================================================

const (
	// HistoryDirName is the store directory under the data dir
	HistoryDirName = "history"

	// HistoryKeep is how many scan records Prune retains
	HistoryKeep = 500
)

// UserAgent returns the scanhive user agent with context
func UserAgent(context string) string {
	if context == "" {
		return ToolName + "/" + Version
	}
	return fmt.Sprintf("%s/%s (%s)", ToolName, Version, context)
}
