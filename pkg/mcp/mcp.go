// Package mcp exposes the scan engine to LLM agents over the Model
// Context Protocol: tools to start, inspect, cancel, and report on
// scans, plus the registry listing. The stdio transport is the
// primary mode for IDE and assistant integrations.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/scanhive/scanhive/pkg/defaults"
	"github.com/scanhive/scanhive/pkg/engine"
	"github.com/scanhive/scanhive/pkg/finding"
	"github.com/scanhive/scanhive/pkg/history"
	"github.com/scanhive/scanhive/pkg/jsonutil"
	"github.com/scanhive/scanhive/pkg/report"
	"github.com/scanhive/scanhive/pkg/scan"
	"github.com/scanhive/scanhive/pkg/tools"
)

const serverInstructions = `scanhive orchestrates external security scanners (nuclei, nikto,
zap, ffuf, sqlmap, wapiti, xsstrike, sslyze, testssl) against a target
URL and normalizes their findings into one severity taxonomy
(critical, high, medium, low, info).

Typical flow:
1. list_tools to see which scanners are installed on this host.
2. start_scan with a target and tool selection; it returns a scan_id
   immediately. Pass "wait": true to block until the scan finishes.
3. get_scan with the scan_id to poll progress and read findings.
4. render_report for a shareable JSON/HTML/Markdown document.

A scan always completes even when individual tools fail or time out;
inspect each tool run's status for detail. Only scan targets you are
authorized to test.`

// Config assembles the MCP server's collaborators. Engine and
// Registry are required.
type Config struct {
	Engine   *engine.Engine
	Registry *tools.Registry

	// History serves scans the engine has retired from memory.
	History *history.Store

	Logger *slog.Logger
}

// Server wraps the MCP server with scanhive's tools.
type Server struct {
	mcp      *mcp.Server
	cfg      Config
	renderer *report.Renderer
}

// New creates the server with all tools registered.
func New(cfg Config) (*Server, error) {
	if cfg.Engine == nil {
		return nil, errors.New("mcp: nil engine")
	}
	if cfg.Registry == nil {
		return nil, errors.New("mcp: nil tool registry")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		cfg:      cfg,
		renderer: report.NewRenderer(),
	}
	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    defaults.ToolName,
			Title:   "scanhive Security Scan Orchestrator",
			Version: defaults.Version,
		},
		&mcp.ServerOptions{
			Instructions: serverInstructions,
		},
	)
	s.registerTools()
	return s, nil
}

// MCPServer returns the underlying MCP server for direct access
// (e.g. testing with an in-memory transport).
func (s *Server) MCPServer() *mcp.Server { return s.mcp }

// RunStdio serves MCP over stdin/stdout until ctx is cancelled.
func (s *Server) RunStdio(ctx context.Context) error {
	s.cfg.Logger.Info("mcp server listening on stdio")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// boolPtr is a helper for ToolAnnotations hint fields.
func boolPtr(b bool) *bool { return &b }

// parseArgs unmarshals the raw JSON arguments from a tool call.
func parseArgs(req *mcp.CallToolRequest, dst any) error {
	if len(req.Params.Arguments) == 0 {
		return nil
	}
	if err := jsonutil.Unmarshal(req.Params.Arguments, dst); err != nil {
		return fmt.Errorf("parsing tool arguments: %w", err)
	}
	return nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := jsonutil.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return textResult(string(data)), nil
}

// errorResult creates an IsError result so the model can read the
// failure and self-correct instead of hitting a protocol error.
func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// lookup finds a scan in the engine, then in history.
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
