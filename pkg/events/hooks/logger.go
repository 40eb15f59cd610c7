// Package hooks provides event observers that ship scan progress to
// logging, Prometheus, and OpenTelemetry backends. Every hook
// implements events.Hook and never fails the publishing scan.
package hooks

import (
	"context"
	"log/slog"

	"github.com/scanhive/scanhive/pkg/events"
)

// orDefault returns l if non-nil, otherwise slog.Default().
func orDefault(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}

// Compile-time interface check.
var _ events.Hook = (*LoggerHook)(nil)

// LoggerHook mirrors every scan event into structured logs, one line
// per event, at a level matching the event type.
type LoggerHook struct {
	logger *slog.Logger
}

// NewLoggerHook creates a logger hook. logger may be nil.
func NewLoggerHook(logger *slog.Logger) *LoggerHook {
	return &LoggerHook{logger: orDefault(logger)}
}

// OnEvent logs the event.
func (h *LoggerHook) OnEvent(ctx context.Context, ev events.Event) error {
	attrs := []any{
		slog.String("scan_id", ev.Scan),
		slog.String("type", string(ev.Type)),
	}
	if ev.Tool != "" {
		attrs = append(attrs, slog.String("tool", ev.Tool))
	}
	if ev.FindingsCount != nil {
		attrs = append(attrs, slog.Int("findings", *ev.FindingsCount))
	}

	switch ev.Type {
	case events.TypeError:
		h.logger.ErrorContext(ctx, ev.Message, attrs...)
	case events.TypeWarning:
		h.logger.WarnContext(ctx, ev.Message, attrs...)
	default:
		h.logger.InfoContext(ctx, ev.Message, attrs...)
	}
	return nil
}

// Types returns nil: the logger observes everything.
func (h *LoggerHook) Types() []events.Type { return nil }
