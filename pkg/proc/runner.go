// Package proc runs external scanner processes with a hard deadline.
// Every run is placed in its own process group so that when the
// deadline expires the whole tree dies, not just the direct child.
// Stdout and stderr are captured up to a cap and teed to an
// append-only log sink so partial output is observable mid-run.
package proc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/scanhive/scanhive/pkg/defaults"
	"github.com/scanhive/scanhive/pkg/duration"
)

// Command describes one external tool invocation.
type Command struct {
	// Path is the binary to execute, resolved via PATH if relative.
	Path string

	// Args are passed verbatim; no shell is involved.
	Args []string

	// Dir is the working directory. Empty means inherit.
	Dir string

	// Env entries are appended to the parent environment.
	Env []string

	// Stdin feeds the process. Nil means no input.
	Stdin io.Reader

	// Timeout is the hard deadline. The process tree is killed when it
	// elapses. Zero falls back to the short tool budget.
	Timeout time.Duration

	// LogPath, when set, names an append-only sink that receives
	// interleaved stdout/stderr as the process produces it.
	LogPath string
}

// Result is the outcome of one finished (or killed) invocation.
type Result struct {
	// ExitCode is the process exit status, -1 if it never ran or was
	// killed by a signal.
	ExitCode int

	// Stdout and Stderr hold captured output, capped at
	// defaults.BufferMax each.
	Stdout []byte
	Stderr []byte

	// TimedOut reports that the deadline elapsed and the tree was
	// killed. Distinct from a start failure, which returns an error.
	TimedOut bool

	// Truncated reports that either capture hit its cap. The log sink
	// still received every byte.
	Truncated bool

	Duration time.Duration
}

// Run executes cmd and blocks until the process exits or the deadline
// plus a bounded kill grace elapses. A non-zero exit is not an error:
// the caller decides what the output means. Run returns an error only
// when the process could not be executed at all or the parent context
// was cancelled.
func Run(ctx context.Context, cmd Command) (Result, error) {
	if cmd.Path == "" {
		return Result{ExitCode: -1}, errors.New("proc: empty command path")
	}

	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = duration.ToolShort
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c := exec.CommandContext(tctx, cmd.Path, cmd.Args...)
	setProcessGroup(c)
	c.Cancel = func() error { return killTree(c.Process) }
	c.WaitDelay = duration.KillGrace
	if cmd.Dir != "" {
		c.Dir = cmd.Dir
	}
	c.Env = append(os.Environ(), cmd.Env...)
	if cmd.Stdin != nil {
		c.Stdin = cmd.Stdin
	}

	stdout := &cappedBuffer{max: defaults.BufferMax}
	stderr := &cappedBuffer{max: defaults.BufferMax}
	if cmd.LogPath != "" {
		sink, err := os.OpenFile(cmd.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return Result{ExitCode: -1}, fmt.Errorf("proc: opening log sink: %w", err)
		}
		defer sink.Close()
		shared := &syncWriter{w: sink}
		c.Stdout = io.MultiWriter(stdout, shared)
		c.Stderr = io.MultiWriter(stderr, shared)
	} else {
		c.Stdout = stdout
		c.Stderr = stderr
	}

	start := time.Now()
	if err := c.Start(); err != nil {
		return Result{ExitCode: -1, Duration: time.Since(start)},
			fmt.Errorf("proc: starting %s: %w", cmd.Path, err)
	}
	waitErr := c.Wait()

	res := Result{
		ExitCode:  -1,
		Stdout:    stdout.Bytes(),
		Stderr:    stderr.Bytes(),
		Truncated: stdout.truncated || stderr.truncated,
		Duration:  time.Since(start),
	}
	if c.ProcessState != nil {
		res.ExitCode = c.ProcessState.ExitCode()
	}

	if errors.Is(tctx.Err(), context.DeadlineExceeded) {
		res.TimedOut = true
		return res, nil
	}
	if ctx.Err() != nil {
		return res, ctx.Err()
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			// Non-zero exit: in-band, the parser decides.
			return res, nil
		}
		if errors.Is(waitErr, exec.ErrWaitDelay) {
			// A grandchild held the output pipes past the kill; we
			// keep whatever was captured before the grace ran out.
			return res, nil
		}
		return res, fmt.Errorf("proc: running %s: %w", cmd.Path, waitErr)
	}
	return res, nil
}

// cappedBuffer retains at most max bytes and swallows the rest,
// always reporting a full write so teed sinks keep receiving.
type cappedBuffer struct {
	buf       []byte
	max       int
	truncated bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if remaining := b.max - len(b.buf); remaining > 0 {
		if len(p) <= remaining {
			b.buf = append(b.buf, p...)
		} else {
			b.buf = append(b.buf, p[:remaining]...)
			b.truncated = true
		}
	} else if len(p) > 0 {
		b.truncated = true
	}
	return len(p), nil
}

func (b *cappedBuffer) Bytes() []byte { return b.buf }

// syncWriter serializes writes from the stdout and stderr pump
// goroutines onto one shared sink.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
