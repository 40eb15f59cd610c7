// Package engine coordinates scans end to end: it validates requests,
// fans tool runs out onto goroutines, merges parsed findings into the
// aggregate under a single writer, streams progress events, and
// persists every finished scan.
//
// Scan lifecycle: accepted -> running -> completed or cancelled. Tool
// failures never fail the scan; each ToolRun carries its own terminal
// status and the scan completes once the last run is terminal.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/scanhive/scanhive/pkg/defaults"
	"github.com/scanhive/scanhive/pkg/duration"
	"github.com/scanhive/scanhive/pkg/events"
	"github.com/scanhive/scanhive/pkg/finding"
	"github.com/scanhive/scanhive/pkg/parse"
	"github.com/scanhive/scanhive/pkg/probe"
	"github.com/scanhive/scanhive/pkg/proc"
	"github.com/scanhive/scanhive/pkg/scan"
	"github.com/scanhive/scanhive/pkg/tools"
)

var (
	// ErrBusy rejects new scans while the active-scan bound is hit.
	ErrBusy = errors.New("engine: too many active scans")

	// ErrFinished rejects Cancel on a scan already in a terminal state.
	ErrFinished = errors.New("engine: scan already finished")
)

// RunFunc executes one external tool invocation. Production wiring
// uses proc.Run; tests substitute a fake.
type RunFunc func(ctx context.Context, cmd proc.Command) (proc.Result, error)

// Store persists finished scans. *history.Store satisfies it.
type Store interface {
	Save(result *scan.Result) error
}

// Preflighter checks target reachability before tools launch.
// *probe.Prober satisfies it.
type Preflighter interface {
	Run(ctx context.Context, target string) *probe.Result
}

// Config assembles an engine's collaborators. Registry and
// Broadcaster are required; everything else has a sane default.
type Config struct {
	Registry    *tools.Registry
	Broadcaster *events.Broadcaster
	Store       Store       // nil disables persistence
	Prober      Preflighter // nil disables the preflight
	ArtifactDir string      // base directory for per-scan tool output
	WordlistDir string      // static inputs for tools that need them
	Logger      *slog.Logger
	MaxActive   int
	Runner      RunFunc
}

// Engine owns all live scan state. One instance serves the process.
type Engine struct {
	cfg Config

	mu    sync.RWMutex
	scans map[string]*scanState

	wg       sync.WaitGroup
	stop     chan struct{}
	stopOnce sync.Once
}

// scanState pairs the aggregate with its cancellation handle. All
// result mutation happens under mu; readers clone under mu.
type scanState struct {
	mu     sync.Mutex
	result *scan.Result
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an engine and starts its sweep loop.
func New(cfg Config) (*Engine, error) {
	if cfg.Registry == nil {
		return nil, errors.New("engine: nil tool registry")
	}
	if cfg.Broadcaster == nil {
		return nil, errors.New("engine: nil broadcaster")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Runner == nil {
		cfg.Runner = proc.Run
	}
	if cfg.MaxActive <= 0 {
		cfg.MaxActive = defaults.MaxActiveScans
	}
	if cfg.ArtifactDir == "" {
		cfg.ArtifactDir = filepath.Join(os.TempDir(), defaults.ToolName)
	}
	if err := os.MkdirAll(cfg.ArtifactDir, 0o755); err != nil {
		return nil, fmt.Errorf("engine: creating artifact dir: %w", err)
	}

	e := &Engine{
		cfg:   cfg,
		scans: make(map[string]*scanState),
		stop:  make(chan struct{}),
	}
	go e.sweepLoop()
	return e, nil
}

// Start validates the request and launches the scan asynchronously,
// returning its id immediately. Validation failures arrive before any
// process is spawned and leave no scan state behind.
func (e *Engine) Start(ctx context.Context, req scan.Request) (string, error) {
	if err := scan.ValidateTarget(req.Target); err != nil {
		return "", err
	}
	if req.TimeoutSec != 0 {
		if err := scan.ValidateTimeout(req.TimeoutSec); err != nil {
			return "", err
		}
	}
	if len(req.Tools) == 0 {
		return "", fmt.Errorf("%w: no tools selected", finding.ErrValidation)
	}
	if len(req.Tools) > defaults.MaxToolsPerScan {
		return "", fmt.Errorf("%w: %d tools selected, max %d",
			finding.ErrValidation, len(req.Tools), defaults.MaxToolsPerScan)
	}

	descs := make([]tools.Descriptor, 0, len(req.Tools))
	seen := make(map[string]bool, len(req.Tools))
	for _, name := range req.Tools {
		if seen[name] {
			return "", fmt.Errorf("%w: duplicate tool %q", finding.ErrValidation, name)
		}
		seen[name] = true
		d, ok := e.cfg.Registry.Get(name)
		if !ok {
			return "", fmt.Errorf("%w: unknown tool %q", finding.ErrValidation, name)
		}
		descs = append(descs, d)
	}

	result := scan.New(req.Target)
	for _, d := range descs {
		result.ToolRuns = append(result.ToolRuns, &scan.ToolRun{
			Tool:     d.Name,
			Category: string(d.Category),
			Target:   req.Target,
			Status:   scan.RunPending,
			Findings: []finding.Finding{},
		})
	}

	// The scan must outlive the caller's request context; only Cancel
	// and Stop end it early.
	scanCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	st := &scanState{result: result, cancel: cancel, done: make(chan struct{})}

	// The bound check and the insert share one critical section, so
	// concurrent starts cannot all pass the check and overshoot.
	e.mu.Lock()
	if active := e.activeLocked(); active >= e.cfg.MaxActive {
		e.mu.Unlock()
		cancel()
		return "", fmt.Errorf("%w (%d active, max %d)", ErrBusy, active, e.cfg.MaxActive)
	}
	e.scans[result.ScanID] = st
	e.mu.Unlock()
	e.cfg.Broadcaster.Open(result.ScanID)

	e.wg.Add(1)
	go e.execute(scanCtx, st, req, descs)

	e.cfg.Logger.Info("scan accepted",
		slog.String("scan_id", result.ScanID),
		slog.String("target", req.Target),
		slog.Int("tools", len(descs)))
	return result.ScanID, nil
}

func (e *Engine) execute(ctx context.Context, st *scanState, req scan.Request, descs []tools.Descriptor) {
	defer e.wg.Done()
	defer st.cancel()
	defer close(st.done)

	id := st.result.ScanID
	logger := e.cfg.Logger.With(slog.String("scan_id", id), slog.String("target", req.Target))
	start := time.Now()

	st.mu.Lock()
	// Cancel may land before this goroutine gets scheduled; never
	// overwrite a terminal status.
	if st.result.Status == scan.StatusAccepted {
		st.result.Status = scan.StatusRunning
	}
	st.mu.Unlock()

	if e.cfg.Prober != nil {
		pr := e.cfg.Prober.Run(ctx, req.Target)
		if pr.Healthy() {
			e.publish(ctx, events.NewInfo(id,
				fmt.Sprintf("preflight: %s answered HTTP %d", pr.Hostname, pr.HTTPStatus)))
		} else {
			e.publish(ctx, events.NewWarning(id, "", "preflight: "+pr.Message))
			logger.Warn("preflight failed", slog.String("reason", pr.Message))
		}
	}

	dir := filepath.Join(e.cfg.ArtifactDir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Error("creating scan artifact dir", slog.String("error", err.Error()))
		e.failAll(ctx, st, fmt.Sprintf("artifact dir: %v", err))
	} else {
		e.publish(ctx, events.NewInfo(id, "tool output under "+dir))
		var wg sync.WaitGroup
		for _, d := range descs {
			wg.Add(1)
			go func(d tools.Descriptor) {
				defer wg.Done()
				e.runTool(ctx, st, req, d, dir)
			}(d)
		}
		wg.Wait()
	}

	st.mu.Lock()
	now := time.Now().UTC()
	st.result.CompletedAt = &now
	if st.result.Status != scan.StatusCancelled {
		st.result.Status = scan.StatusCompleted
	}
	st.result.Recount()
	snapshot := st.result.Clone()
	st.mu.Unlock()

	if e.cfg.Store != nil {
		if err := e.cfg.Store.Save(snapshot); err != nil {
			logger.Error("persisting scan", slog.String("error", err.Error()))
		}
	}

	e.publish(ctx, events.NewComplete(id, snapshot.Summary.Total))
	logger.Info("scan finished",
		slog.String("status", string(snapshot.Status)),
		slog.Int("findings", snapshot.Summary.Total),
		slog.Duration("elapsed", time.Since(start)))
}

// runTool drives one tool from launch through parse to its terminal
// status. Findings merge and the status flip happen as one update
// under the scan lock.
func (e *Engine) runTool(ctx context.Context, st *scanState, req scan.Request, d tools.Descriptor, dir string) {
	id := st.result.ScanID

	timeout := d.DefaultTimeout
	if req.TimeoutSec > 0 {
		timeout = req.Timeout()
	}

	st.mu.Lock()
	run := st.result.Run(d.Name)
	run.Status = scan.RunRunning
	run.StartedAt = time.Now().UTC()
	st.mu.Unlock()
	e.publish(ctx, events.NewStarted(id, d.Name))

	inv := d.Build(tools.BuildSpec{
		Target:      req.Target,
		ArtifactDir: dir,
		WordlistDir: e.cfg.WordlistDir,
	})
	res, runErr := e.cfg.Runner(ctx, proc.Command{
		Path:    d.Path,
		Args:    inv.Args,
		Timeout: timeout,
		LogPath: filepath.Join(dir, d.Name+".log"),
	})

	finish := func(status scan.RunStatus, findings []finding.Finding, errMsg string) {
		now := time.Now().UTC()
		st.mu.Lock()
		run.Status = status
		run.EndedAt = &now
		run.DurationMS = res.Duration.Milliseconds()
		if findings != nil {
			run.Findings = findings
		}
		run.Error = errMsg
		st.result.Recount()
		st.mu.Unlock()
	}

	switch {
	case runErr != nil && ctx.Err() != nil:
		finish(scan.RunError, nil, "cancelled by user")
		e.publish(ctx, events.NewToolError(id, d.Name, d.Name+" cancelled"))
		return
	case runErr != nil:
		msg := fmt.Errorf("%w: %v", finding.ErrExecution, runErr).Error()
		finish(scan.RunError, nil, msg)
		e.publish(ctx, events.NewToolError(id, d.Name, msg))
		return
	case res.TimedOut:
		msg := fmt.Sprintf("Scan timed out after %d seconds", int(timeout.Seconds()))
		finish(scan.RunTimeout, nil, msg)
		e.publish(ctx, events.NewWarning(id, d.Name, d.Name+" timed out"))
		return
	}

	if res.ExitCode != 0 {
		// Several scanners exit non-zero when they find anything; the
		// parser decides what the output means.
		e.cfg.Logger.Debug("tool exited non-zero",
			slog.String("scan_id", id),
			slog.String("tool", d.Name),
			slog.Int("exit_code", res.ExitCode))
	}

	input := parse.Input{Stdout: res.Stdout, Stderr: res.Stderr}
	if inv.Artifact != "" {
		data, err := os.ReadFile(inv.Artifact)
		switch {
		case err == nil:
			input.Artifact = data
			input.ArtifactPath = inv.Artifact
		case !os.IsNotExist(err):
			msg := fmt.Errorf("%w: reading artifact: %v", finding.ErrExecution, err).Error()
			finish(scan.RunError, nil, msg)
			e.publish(ctx, events.NewToolError(id, d.Name, msg))
			return
		}
		// A missing artifact is a clean empty run; several tools only
		// write the file when they have something to report.
	}

	findings, _, err := d.Parser.Parse(input)
	if err != nil {
		finish(scan.RunError, nil, err.Error())
		e.publish(ctx, events.NewToolError(id, d.Name, err.Error()))
		return
	}
	finish(scan.RunSuccess, findings, "")
	e.publish(ctx, events.NewSuccess(id, d.Name, len(findings)))
}

// failAll terminates every non-terminal run with one error message.
// Used when scan-level setup fails before any tool can launch.
func (e *Engine) failAll(ctx context.Context, st *scanState, msg string) {
	now := time.Now().UTC()
	st.mu.Lock()
	var failed []string
	for _, run := range st.result.ToolRuns {
		if run.Status.Terminal() {
			continue
		}
		run.Status = scan.RunError
		run.StartedAt = now
		run.EndedAt = &now
		run.Error = msg
		failed = append(failed, run.Tool)
	}
	st.mu.Unlock()
	for _, tool := range failed {
		e.publish(ctx, events.NewToolError(st.result.ScanID, tool, msg))
	}
}

// publish forwards an event without inheriting scan cancellation, so
// terminal events still reach subscribers and hooks after Cancel.
func (e *Engine) publish(ctx context.Context, ev events.Event) {
	e.cfg.Broadcaster.Publish(context.WithoutCancel(ctx), ev)
}

// Get returns a deep snapshot of a scan the engine still tracks.
// Snapshots are internally consistent: findings and statuses never
// show a half-applied merge.
func (e *Engine) Get(id string) (*scan.Result, error) {
	e.mu.RLock()
	st, ok := e.scans[id]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: scan %q", finding.ErrNotFound, id)
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.result.Clone(), nil
}

// List returns snapshots of all tracked scans, newest first.
func (e *Engine) List() []*scan.Result {
	e.mu.RLock()
	states := make([]*scanState, 0, len(e.scans))
	for _, st := range e.scans {
		states = append(states, st)
	}
	e.mu.RUnlock()

	out := make([]*scan.Result, 0, len(states))
	for _, st := range states {
		st.mu.Lock()
		out = append(out, st.result.Clone())
		st.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ScanID < out[j].ScanID
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}

// Cancel stops an in-flight scan. Every still-running tool's context
// is cancelled and its process tree killed; the scan lands in
// cancelled with completed_at set once the runs drain.
func (e *Engine) Cancel(id string) error {
	e.mu.RLock()
	st, ok := e.scans[id]
	e.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: scan %q", finding.ErrNotFound, id)
	}

	st.mu.Lock()
	if st.result.Status.Terminal() {
		status := st.result.Status
		st.mu.Unlock()
		return fmt.Errorf("%w: scan %s is %s", ErrFinished, id, status)
	}
	st.result.Status = scan.StatusCancelled
	st.mu.Unlock()

	st.cancel()
	e.cfg.Logger.Info("scan cancelled", slog.String("scan_id", id))
	return nil
}

// Wait blocks until the scan reaches a terminal state or ctx is done.
func (e *Engine) Wait(ctx context.Context, id string) error {
	e.mu.RLock()
	st, ok := e.scans[id]
	e.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: scan %q", finding.ErrNotFound, id)
	}
	select {
	case <-st.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ActiveCount reports scans that have not reached a terminal state.
func (e *Engine) ActiveCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.activeLocked()
}

// activeLocked counts non-terminal scans. Callers hold e.mu.
func (e *Engine) activeLocked() int {
	count := 0
	for _, st := range e.scans {
		st.mu.Lock()
		if !st.result.Status.Terminal() {
			count++
		}
		st.mu.Unlock()
	}
	return count
}

// Stop cancels every active scan, waits out a bounded drain, and
// halts the sweep loop. Safe to call more than once.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		e.mu.RLock()
		ids := make([]string, 0, len(e.scans))
		for id := range e.scans {
			ids = append(ids, id)
		}
		e.mu.RUnlock()
		for _, id := range ids {
			// Terminal scans report ErrFinished; that is fine here.
			_ = e.Cancel(id)
		}

		done := make(chan struct{})
		go func() {
			e.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(duration.ServerShutdown):
		}

		close(e.stop)
	})
}

func (e *Engine) sweepLoop() {
	ticker := time.NewTicker(duration.EngineSweep)
	defer ticker.Stop()
	for {
		select {
		case <-e.stop:
			return
		case <-ticker.C:
			now := time.Now()
			e.cfg.Broadcaster.Sweep(now)
			e.sweep(now)
		}
	}
}

// sweep retires finished scans past the retention window and returns
// how many were dropped. History keeps the full record; only the
// in-memory handle goes away. Two phases keep the write lock short.
func (e *Engine) sweep(now time.Time) int {
	e.mu.RLock()
	var expired []string
	for id, st := range e.scans {
		st.mu.Lock()
		done := st.result.Status.Terminal() &&
			st.result.CompletedAt != nil &&
			now.Sub(*st.result.CompletedAt) > duration.StreamRetire
		st.mu.Unlock()
		if done {
			expired = append(expired, id)
		}
	}
	e.mu.RUnlock()

	if len(expired) == 0 {
		return 0
	}
	e.mu.Lock()
	for _, id := range expired {
		delete(e.scans, id)
	}
	e.mu.Unlock()
	e.cfg.Logger.Debug("retired finished scans", slog.Int("count", len(expired)))
	return len(expired)
}
