package events

import (
	"fmt"
	"time"
)

// Type classifies a progress event.
type Type string

const (
	// TypeConnected greets each subscriber once, immediately on
	// subscribe. It is delivered per subscriber, never broadcast.
	TypeConnected Type = "connected"

	// TypeInfo is general progress chatter (preflight results, log
	// sink locations).
	TypeInfo Type = "info"

	// TypeSuccess reports a tool run that finished cleanly. Carries
	// FindingsCount.
	TypeSuccess Type = "success"

	// TypeWarning reports a tool run that timed out, or other
	// non-fatal conditions.
	TypeWarning Type = "warning"

	// TypeError reports a tool run that failed.
	TypeError Type = "error"

	// TypeStarted reports a tool process launching.
	TypeStarted Type = "started"

	// TypeComplete is the final event of every scan, emitted exactly
	// once. The stream closes after it.
	TypeComplete Type = "complete"
)

// Event is one streamed progress notification. Events are immutable
// once published; the broadcaster forwards them by value.
type Event struct {
	Type          Type      `json:"type"`
	Time          time.Time `json:"timestamp"`
	Scan          string    `json:"scan_id"`
	Tool          string    `json:"tool,omitempty"`
	Message       string    `json:"message"`
	FindingsCount *int      `json:"findings_count,omitempty"`
}

// NewConnected builds the per-subscriber greeting.
func NewConnected(scanID string) Event {
	return Event{
		Type:    TypeConnected,
		Time:    time.Now().UTC(),
		Scan:    scanID,
		Message: "connected to scan event stream",
	}
}

// NewInfo builds a general progress event.
func NewInfo(scanID, message string) Event {
	return Event{Type: TypeInfo, Time: time.Now().UTC(), Scan: scanID, Message: message}
}

// NewStarted reports a tool launching.
func NewStarted(scanID, tool string) Event {
	return Event{
		Type:    TypeStarted,
		Time:    time.Now().UTC(),
		Scan:    scanID,
		Tool:    tool,
		Message: fmt.Sprintf("%s started", tool),
	}
}

// NewSuccess reports a tool run finishing cleanly.
func NewSuccess(scanID, tool string, findings int) Event {
	n := findings
	return Event{
		Type:          TypeSuccess,
		Time:          time.Now().UTC(),
		Scan:          scanID,
		Tool:          tool,
		Message:       fmt.Sprintf("%s completed: %d findings", tool, findings),
		FindingsCount: &n,
	}
}

// NewWarning reports a non-fatal condition such as a tool timeout.
func NewWarning(scanID, tool, message string) Event {
	return Event{Type: TypeWarning, Time: time.Now().UTC(), Scan: scanID, Tool: tool, Message: message}
}

// NewToolError reports a tool run failing.
func NewToolError(scanID, tool, message string) Event {
	return Event{Type: TypeError, Time: time.Now().UTC(), Scan: scanID, Tool: tool, Message: message}
}

// NewComplete builds the terminal event for a scan.
func NewComplete(scanID string, totalFindings int) Event {
	n := totalFindings
	return Event{
		Type:          TypeComplete,
		Time:          time.Now().UTC(),
		Scan:          scanID,
		Message:       "scan completed",
		FindingsCount: &n,
	}
}
