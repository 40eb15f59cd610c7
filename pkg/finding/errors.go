package finding

import "errors"

// Sentinel errors for the scan failure taxonomy.
// Callers should use errors.Is() to check for these.
var (
	// ErrValidation indicates a bad target, tool selection, or timeout.
	// Raised before any process starts; no partial scan state exists.
	ErrValidation = errors.New("finding: validation failed")

	// ErrExecution indicates a tool process failed to launch or exited
	// abnormally without parseable output. Recorded per tool run; never
	// aborts sibling tools.
	ErrExecution = errors.New("finding: execution failed")

	// ErrTimeout indicates a tool exceeded its deadline and its process
	// tree was forcibly terminated. Distinct from ErrExecution.
	ErrTimeout = errors.New("finding: timeout")

	// ErrParse indicates a tool produced output its parser could not
	// decode. Recorded per tool run with diagnostic detail.
	ErrParse = errors.New("finding: unparseable output")

	// ErrNotFound indicates an unknown scan id on lookup.
	ErrNotFound = errors.New("finding: scan not found")

	// ErrTargetUnreachable indicates the preflight probe could not
	// reach the target (DNS failure, connection refused, etc.).
	ErrTargetUnreachable = errors.New("finding: target unreachable")
)
