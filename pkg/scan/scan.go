package scan

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/scanhive/scanhive/pkg/defaults"
	"github.com/scanhive/scanhive/pkg/finding"
)

// Status is the scan-level state. Transitions: accepted → running →
// one terminal state, set exactly once.
type Status string

const (
	StatusAccepted  Status = "accepted"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further scan transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// RunStatus is the per-tool state. Transitions: pending → running →
// one terminal state, set exactly once. A run is never mutated after
// reaching a terminal state.
type RunStatus string

const (
	RunPending RunStatus = "pending"
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunError   RunStatus = "error"
	RunTimeout RunStatus = "timeout"
)

// Terminal reports whether the run has finished.
func (s RunStatus) Terminal() bool {
	return s == RunSuccess || s == RunError || s == RunTimeout
}

// ToolRun is the execution record for one tool within one scan.
// The JSON field names are the stable external contract.
type ToolRun struct {
	Tool       string            `json:"module"`
	Category   string            `json:"category"`
	Target     string            `json:"target"`
	StartedAt  time.Time         `json:"timestamp"`
	EndedAt    *time.Time        `json:"ended_at,omitempty"`
	DurationMS int64             `json:"duration_ms"`
	Status     RunStatus         `json:"status"`
	Findings   []finding.Finding `json:"findings"`
	Error      string            `json:"error,omitempty"`
}

// Clone returns a deep copy; the findings slice is copied so the
// caller can hold the snapshot while the engine keeps appending to
// sibling runs.
func (tr *ToolRun) Clone() *ToolRun {
	cp := *tr
	if tr.EndedAt != nil {
		t := *tr.EndedAt
		cp.EndedAt = &t
	}
	cp.Findings = make([]finding.Finding, len(tr.Findings))
	copy(cp.Findings, tr.Findings)
	return &cp
}

// Result aggregates all tool runs for one scan invocation.
type Result struct {
	ScanID      string          `json:"scan_id"`
	Target      string          `json:"target"`
	Status      Status          `json:"status"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	ToolRuns    []*ToolRun      `json:"results"`
	Summary     finding.Summary `json:"summary"`
}

// New creates an accepted scan with a fresh opaque id.
func New(target string) *Result {
	return &Result{
		ScanID:    uuid.NewString(),
		Target:    target,
		Status:    StatusAccepted,
		StartedAt: time.Now().UTC(),
		ToolRuns:  []*ToolRun{},
	}
}

// Clone returns a deep, internally consistent copy with the summary
// re-derived from the copied findings. This is the only read path out
// of the engine.
func (r *Result) Clone() *Result {
	cp := *r
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		cp.CompletedAt = &t
	}
	cp.ToolRuns = make([]*ToolRun, len(r.ToolRuns))
	for i, tr := range r.ToolRuns {
		cp.ToolRuns[i] = tr.Clone()
	}
	cp.Summary = cp.recount()
	return &cp
}

// Recount re-derives the summary in place. The engine calls it under
// its own lock after every merge; there is no running counter to
// drift.
func (r *Result) Recount() {
	r.Summary = r.recount()
}

func (r *Result) recount() finding.Summary {
	var s finding.Summary
	for _, tr := range r.ToolRuns {
		s.Merge(finding.Tally(tr.Findings))
	}
	return s
}

// Run returns the tool run for a tool id, or nil.
func (r *Result) Run(tool string) *ToolRun {
	for _, tr := range r.ToolRuns {
		if tr.Tool == tool {
			return tr
		}
	}
	return nil
}

// AllRunsTerminal reports whether every tool run has finished.
func (r *Result) AllRunsTerminal() bool {
	for _, tr := range r.ToolRuns {
		if !tr.Status.Terminal() {
			return false
		}
	}
	return true
}

// Request is what a caller submits to start a scan. TimeoutSec zero
// means each tool runs with its own registry default budget; a
// non-zero value overrides every tool uniformly.
type Request struct {
	Target     string   `json:"target"`
	Tools      []string `json:"tools"`
	TimeoutSec int      `json:"timeout"`
}

// Timeout returns the uniform per-tool budget as a duration. Zero
// when the request left the registry defaults in force.
func (req Request) Timeout() time.Duration {
	return time.Duration(req.TimeoutSec) * time.Second
}

// ValidateTarget accepts absolute http/https URLs and rejects
// everything else. This runs before any process is spawned.
func ValidateTarget(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%w: empty target", finding.ErrValidation)
	}
	if len(raw) > defaults.MaxURLLength {
		return fmt.Errorf("%w: target exceeds %d chars", finding.ErrValidation, defaults.MaxURLLength)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: target %q: %v", finding.ErrValidation, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: target scheme %q, want http or https", finding.ErrValidation, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: target %q has no host", finding.ErrValidation, raw)
	}
	return nil
}

// ValidateTimeout bounds the caller-supplied per-tool budget.
func ValidateTimeout(sec int) error {
	if sec < defaults.ScanTimeoutMin || sec > defaults.ScanTimeoutMax {
		return fmt.Errorf("%w: timeout %ds outside %d-%d",
			finding.ErrValidation, sec, defaults.ScanTimeoutMin, defaults.ScanTimeoutMax)
	}
	return nil
}
