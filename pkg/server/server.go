// Package server exposes the scan engine over HTTP: scan lifecycle
// endpoints, a server-push event stream (SSE and WebSocket), report
// artifacts in four formats, the tool registry listing, and the
// health/metrics surface.
//
// Error mapping: validation failures are 400, unknown scans 404, the
// active-scan bound 429, everything else 500. All error bodies are
// JSON {"error": "..."}.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/scanhive/scanhive/pkg/defaults"
	"github.com/scanhive/scanhive/pkg/duration"
	"github.com/scanhive/scanhive/pkg/engine"
	"github.com/scanhive/scanhive/pkg/events"
	"github.com/scanhive/scanhive/pkg/finding"
	"github.com/scanhive/scanhive/pkg/history"
	"github.com/scanhive/scanhive/pkg/jsonutil"
	"github.com/scanhive/scanhive/pkg/report"
	"github.com/scanhive/scanhive/pkg/scan"
	"github.com/scanhive/scanhive/pkg/tools"
)

// Config assembles the server's collaborators. Engine, Broadcaster,
// and Registry are required.
type Config struct {
	Engine      *engine.Engine
	Broadcaster *events.Broadcaster
	Registry    *tools.Registry

	// History serves finished scans the engine has already retired
	// from memory. nil disables the fallback.
	History *history.Store

	// Metrics is mounted at /metrics when non-nil.
	Metrics http.Handler

	// StartRatePerMin bounds scan starts per client address. Zero
	// disables rate limiting.
	StartRatePerMin int

	Logger *slog.Logger
}

// Server is the HTTP API. Construct with New, mount Handler.
type Server struct {
	cfg      Config
	mux      *http.ServeMux
	renderer *report.Renderer

	limMu    sync.Mutex
	limiters map[string]*rate.Limiter
}

// New builds the server and its routes.
func New(cfg Config) (*Server, error) {
	if cfg.Engine == nil {
		return nil, errors.New("server: nil engine")
	}
	if cfg.Broadcaster == nil {
		return nil, errors.New("server: nil broadcaster")
	}
	if cfg.Registry == nil {
		return nil, errors.New("server: nil tool registry")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		cfg:      cfg,
		mux:      http.NewServeMux(),
		renderer: report.NewRenderer(),
		limiters: make(map[string]*rate.Limiter),
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/scans", s.handleStart)
	s.mux.HandleFunc("GET /api/scans", s.handleList)
	s.mux.HandleFunc("GET /api/scans/{id}", s.handleGet)
	s.mux.HandleFunc("DELETE /api/scans/{id}", s.handleCancel)
	s.mux.HandleFunc("GET /api/scans/{id}/events", s.handleEvents)
	s.mux.HandleFunc("GET /api/scans/{id}/ws", s.handleWS)
	s.mux.HandleFunc("GET /api/scans/{id}/report", s.handleReport)
	s.mux.HandleFunc("GET /api/tools", s.handleTools)
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	if s.cfg.Metrics != nil {
		s.mux.Handle("GET /metrics", s.cfg.Metrics)
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe runs the API until ctx is cancelled, then shuts down
// gracefully within the shutdown budget.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:        addr,
		Handler:     s.mux,
		ReadTimeout: duration.ServerRead,
		// No WriteTimeout: the event stream holds its response open
		// for the scan's whole lifetime.
		IdleTimeout: duration.ServerIdle,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), duration.ServerShutdown)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if !s.allowStart(clientAddr(r)) {
		s.writeError(w, http.StatusTooManyRequests,
			fmt.Errorf("rate limit: max %d scan starts per minute", s.cfg.StartRatePerMin))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, defaults.BufferMedium))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("reading request body: %w", err))
		return
	}
	var req scan.Request
	if err := jsonutil.Unmarshal(body, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return
	}

	id, err := s.cfg.Engine.Start(r.Context(), req)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"scan_id": id})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := defaults.ListLimitDefault
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = n
	}

	// The engine only tracks scans inside the retention window;
	// history fills in the retired ones. The engine snapshot wins for
	// ids both sides know.
	results := s.cfg.Engine.List()
	if s.cfg.History != nil {
		seen := make(map[string]struct{}, len(results))
		for _, res := range results {
			seen[res.ScanID] = struct{}{}
		}
		for _, e := range s.cfg.History.List(limit) {
			if _, ok := seen[e.ScanID]; ok {
				continue
			}
			res, err := s.cfg.History.Get(e.ScanID)
			if err != nil {
				s.cfg.Logger.Warn("skipping unreadable stored scan",
					slog.String("scan_id", e.ScanID), slog.String("error", err.Error()))
				continue
			}
			results = append(results, res)
		}
		sort.Slice(results, func(i, j int) bool {
			if results[i].StartedAt.Equal(results[j].StartedAt) {
				return results[i].ScanID < results[j].ScanID
			}
			return results[i].StartedAt.After(results[j].StartedAt)
		})
	}
	if len(results) > limit {
		results = results[:limit]
	}
	s.writeJSON(w, http.StatusOK, results)
}

// lookup finds a scan in the engine, falling back to history for
// scans already retired from memory.
func (s *Server) lookup(id string) (*scan.Result, error) {
	res, err := s.cfg.Engine.Get(id)
	if err == nil {
		return res, nil
	}
	if !errors.Is(err, finding.ErrNotFound) || s.cfg.History == nil {
		return nil, err
	}
	return s.cfg.History.Get(id)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	res, err := s.lookup(r.PathValue("id"))
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.cfg.Engine.Cancel(id); err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"scan_id": id, "status": string(scan.StatusCancelled)})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	res, err := s.lookup(r.PathValue("id"))
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	data, err := s.renderer.Render(res, format)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// toolInfo is one registry entry in the /api/tools listing.
type toolInfo struct {
	Name           string `json:"name"`
	Category       string `json:"category"`
	DefaultTimeout int    `json:"default_timeout_sec"`
	Available      bool   `json:"available"`
}

func (s *Server) handleTools(w http.ResponseWriter, _ *http.Request) {
	names := s.cfg.Registry.Names()
	out := make([]toolInfo, 0, len(names))
	for _, name := range names {
		d, _ := s.cfg.Registry.Get(name)
		out = append(out, toolInfo{
			Name:           d.Name,
			Category:       string(d.Category),
			DefaultTimeout: int(d.DefaultTimeout.Seconds()),
			Available:      d.Available(),
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"version":      defaults.Version,
		"active_scans": s.cfg.Engine.ActiveCount(),
		"tools":        s.cfg.Registry.Count(),
	})
}

// allowStart checks the per-client token bucket for scan starts.
func (s *Server) allowStart(addr string) bool {
	if s.cfg.StartRatePerMin <= 0 {
		return true
	}
	s.limMu.Lock()
	lim, ok := s.limiters[addr]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(s.cfg.StartRatePerMin)/rate.Limit(time.Minute.Seconds()), defaults.StartBurst)
		s.limiters[addr] = lim
	}
	s.limMu.Unlock()
	return lim.Allow()
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, finding.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, finding.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrBusy):
		return http.StatusTooManyRequests
	case errors.Is(err, engine.ErrFinished):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := jsonutil.Marshal(v)
	if err != nil {
		s.cfg.Logger.Error("encoding response", slog.String("error", err.Error()))
		http.Error(w, `{"error":"internal encoding failure"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", defaults.ContentTypeJSON)
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.cfg.Logger.Error("request failed", slog.Int("status", status), slog.String("error", err.Error()))
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
