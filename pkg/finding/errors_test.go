package finding

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelErrors_Wrapping(t *testing.T) {
	wrapped := fmt.Errorf("nuclei run: %w", ErrTimeout)
	if !errors.Is(wrapped, ErrTimeout) {
		t.Error("errors.Is must work through wrapping for ErrTimeout")
	}
	if errors.Is(wrapped, ErrExecution) {
		t.Error("must not match different sentinel")
	}
}

func TestSentinelErrors_AllDefined(t *testing.T) {
	sentinels := []struct {
		name string
		err  error
		msg  string
	}{
		{"ErrValidation", ErrValidation, "finding: validation failed"},
		{"ErrExecution", ErrExecution, "finding: execution failed"},
		{"ErrTimeout", ErrTimeout, "finding: timeout"},
		{"ErrParse", ErrParse, "finding: unparseable output"},
		{"ErrNotFound", ErrNotFound, "finding: scan not found"},
		{"ErrTargetUnreachable", ErrTargetUnreachable, "finding: target unreachable"},
	}

	for _, s := range sentinels {
		t.Run(s.name, func(t *testing.T) {
			if s.err == nil {
				t.Fatalf("%s must not be nil", s.name)
			}
			if got := s.err.Error(); got != s.msg {
				t.Errorf("%s.Error() = %q, want %q", s.name, got, s.msg)
			}
		})
	}
}

func TestSentinelErrors_Distinct(t *testing.T) {
	sentinels := []error{ErrValidation, ErrExecution, ErrTimeout, ErrParse, ErrNotFound, ErrTargetUnreachable}
	for i := 0; i < len(sentinels); i++ {
		for j := i + 1; j < len(sentinels); j++ {
			if errors.Is(sentinels[i], sentinels[j]) {
				t.Errorf("sentinel %d and %d must be distinct", i, j)
			}
		}
	}
}

func TestSentinelErrors_DeepWrapping(t *testing.T) {
	// Three levels of wrapping
	inner := fmt.Errorf("inner: %w", ErrParse)
	middle := fmt.Errorf("middle: %w", inner)
	outer := fmt.Errorf("outer: %w", middle)

	if !errors.Is(outer, ErrParse) {
		t.Error("errors.Is must work through deep wrapping")
	}
}
