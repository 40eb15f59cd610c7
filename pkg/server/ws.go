package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/scanhive/scanhive/pkg/defaults"
	"github.com/scanhive/scanhive/pkg/duration"
	"github.com/scanhive/scanhive/pkg/events"
	"github.com/scanhive/scanhive/pkg/jsonutil"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  defaults.BufferSmall,
	WriteBufferSize: defaults.BufferSmall,
	// The API carries no credentials and scan ids are unguessable;
	// cross-origin dashboards are the expected consumers.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleWS streams a scan's progress events over a WebSocket. Each
// client gets its own outbound queue; a client that stops reading is
// disconnected rather than allowed to stall the broadcaster. The
// connection closes normally after the complete event.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ch, cancel, err := s.cfg.Broadcaster.Subscribe(id)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		cancel()
		// Upgrade already wrote the HTTP error.
		return
	}

	logger := s.cfg.Logger.With(slog.String("scan_id", id), slog.String("remote", conn.RemoteAddr().String()))
	logger.Debug("websocket subscriber attached")

	done := make(chan struct{})

	// Reader pump: the client sends nothing meaningful, but reading
	// is what surfaces close frames and keeps pong handling alive.
	go func() {
		defer close(done)
		conn.SetReadLimit(defaults.BufferSmall)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pings := time.NewTicker(duration.WSPing)
	defer func() {
		pings.Stop()
		cancel()
		_ = conn.Close()
	}()

	for {
		select {
		case <-done:
			return
		case <-pings.C:
			_ = conn.SetWriteDeadline(time.Now().Add(duration.WSWrite))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case ev, open := <-ch:
			if !open {
				s.closeWS(conn, "stream closed")
				return
			}
			data, err := jsonutil.Marshal(ev)
			if err != nil {
				logger.Error("encoding event", slog.String("error", err.Error()))
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(duration.WSWrite))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Debug("websocket write failed", slog.String("error", err.Error()))
				return
			}
			if ev.Type == events.TypeComplete {
				s.closeWS(conn, "scan completed")
				return
			}
		}
	}
}

func (s *Server) closeWS(conn *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	_ = conn.SetWriteDeadline(time.Now().Add(duration.WSWrite))
	_ = conn.WriteMessage(websocket.CloseMessage, msg)
}
