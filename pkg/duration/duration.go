// Package duration provides canonical time constants for the entire codebase.
// This is the SINGLE SOURCE OF TRUTH for all time-based configuration.
//
// Usage:
//
//	ctx, cancel := context.WithTimeout(ctx, duration.ProbeHTTP)
//	KeepAlive: duration.SSEKeepAlive,
//
// DO NOT use hardcoded time.Duration values like `30 * time.Second` anywhere.
// Instead, reference the appropriate constant from this package.
package duration

import "time"

// ============================================================================
// TOOL EXECUTION TIMEOUTS
// ============================================================================
//
// Default per-tool budgets. Each registry entry picks one; a caller-supplied
// scan timeout overrides them. See pkg/tools.
// ============================================================================

const (
	// ToolShort is for fast single-purpose scanners (5min)
	ToolShort = 5 * time.Minute

	// ToolMedium is for thorough crawling scanners (10min)
	ToolMedium = 10 * time.Minute

	// ToolLong is for full-surface scanners such as proxied spiders (15min)
	ToolLong = 15 * time.Minute

	// ToolMax is the hard ceiling a caller may request for any tool (1h)
	ToolMax = 1 * time.Hour

	// KillGrace is how long the runner waits between SIGTERM and the
	// process-group SIGKILL once a deadline has passed (3s)
	KillGrace = 3 * time.Second
)

// ============================================================================
// PROBE/PREFLIGHT TIMEOUTS
// ============================================================================
//
// Use these for the target reachability preflight before tools launch.
// ============================================================================

const (
	// ProbeHTTP is for the preflight HTTP reachability request (10s)
	ProbeHTTP = 10 * time.Second

	// ProbeDNS is for preflight DNS resolution (3s)
	ProbeDNS = 3 * time.Second
)

// ============================================================================
// EVENT STREAMING INTERVALS
// ============================================================================
//
// Use these for server-push transports and subscriber housekeeping.
// ============================================================================

const (
	// SSEKeepAlive is the idle interval between keepalive comments so
	// proxies do not reap a quiet stream (15s)
	SSEKeepAlive = 15 * time.Second

	// WSPing is the WebSocket ping interval (30s)
	WSPing = 30 * time.Second

	// WSWrite bounds a single WebSocket write (10s)
	WSWrite = 10 * time.Second

	// StreamRetire is how long a finished scan's stream stays
	// subscribable for terminal-event replay (5min)
	StreamRetire = 5 * time.Minute
)

// ============================================================================
// HTTP SERVER TIMEOUTS
// ============================================================================

const (
	// ServerRead bounds request header+body reads (10s)
	ServerRead = 10 * time.Second

	// ServerWrite bounds non-streaming response writes (30s)
	ServerWrite = 30 * time.Second

	// ServerIdle is the keep-alive idle timeout (120s)
	ServerIdle = 120 * time.Second

	// ServerShutdown bounds graceful shutdown (10s)
	ServerShutdown = 10 * time.Second
)

// ============================================================================
// TELEMETRY/HOOK TIMEOUTS
// ============================================================================

const (
	// HookShutdown bounds hook teardown such as OTLP flush (5s)
	HookShutdown = 5 * time.Second

	// HookConnect bounds exporter connection establishment (10s)
	HookConnect = 10 * time.Second
)

// ============================================================================
// HOUSEKEEPING INTERVALS
// ============================================================================

const (
	// EngineSweep is how often the engine sweeps retired streams and
	// finished scan state (1min)
	EngineSweep = 1 * time.Minute

	// HistoryFlush is the debounce for history index writes (2s)
	HistoryFlush = 2 * time.Second
)
