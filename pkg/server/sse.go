package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/scanhive/scanhive/pkg/defaults"
	"github.com/scanhive/scanhive/pkg/duration"
	"github.com/scanhive/scanhive/pkg/events"
	"github.com/scanhive/scanhive/pkg/jsonutil"
)

// handleEvents streams a scan's progress events as server-sent
// events. The stream opens with the subscriber's connected greeting,
// carries keepalive comments while the scan is quiet, and ends after
// the complete event. Subscribing to a finished scan inside the
// retention window replays the terminal event once.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("response writer does not support streaming"))
		return
	}

	id := r.PathValue("id")
	ch, cancel, err := s.cfg.Broadcaster.Subscribe(id)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", defaults.ContentTypeEventStream)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepalive := time.NewTicker(duration.SSEKeepAlive)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepalive.C:
			// Comment line: ignored by EventSource clients, enough to
			// keep intermediaries from reaping the connection.
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev, open := <-ch:
			if !open {
				return
			}
			if err := writeSSE(w, ev); err != nil {
				s.cfg.Logger.Debug("sse write failed",
					slog.String("scan_id", id), slog.String("error", err.Error()))
				return
			}
			flusher.Flush()
			if ev.Type == events.TypeComplete {
				return
			}
		}
	}
}

func writeSSE(w http.ResponseWriter, ev events.Event) error {
	data, err := jsonutil.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
	return err
}
