package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/scanhive/scanhive/pkg/report"
	"github.com/scanhive/scanhive/pkg/scan"
)

func (s *Server) registerTools() {
	s.addStartScanTool()
	s.addGetScanTool()
	s.addListScansTool()
	s.addCancelScanTool()
	s.addRenderReportTool()
	s.addListToolsTool()
}

// ---------------------------------------------------------------------------
// start_scan
// ---------------------------------------------------------------------------

func (s *Server) addStartScanTool() {
	s.mcp.AddTool(
		&mcp.Tool{
			Name:  "start_scan",
			Title: "Start Security Scan",
			Description: `Launch the selected external scanners against a target URL.

Returns a scan_id immediately; the scan runs in the background. Poll
with get_scan, or pass "wait": true to block until every tool
finishes and get the full result in one call.

EXAMPLE INPUTS:
• Quick template scan: {"target": "https://example.com", "tools": ["nuclei"]}
• Original default trio: {"target": "https://example.com", "tools": ["nuclei", "nikto", "zap"]}
• Uniform 2-minute budget: {"target": "https://example.com", "tools": ["nuclei"], "timeout": 120, "wait": true}

Tool failures never fail the scan; each tool run carries its own
status (success, error, timeout).`,
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"target": map[string]any{
						"type":        "string",
						"description": "Target URL, absolute with http or https scheme.",
						"format":      "uri",
					},
					"tools": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string"},
						"description": "Scanner identifiers to run. Use list_tools to see what is available.",
						"minItems":    1,
					},
					"timeout": map[string]any{
						"type":        "integer",
						"description": "Uniform per-tool budget in seconds (1-3600). Omit to use each tool's default.",
						"minimum":     1,
						"maximum":     3600,
					},
					"wait": map[string]any{
						"type":        "boolean",
						"description": "Block until the scan finishes and return the full result.",
						"default":     false,
					},
				},
				"required": []string{"target", "tools"},
			},
			Annotations: &mcp.ToolAnnotations{
				ReadOnlyHint:    false,
				IdempotentHint:  false,
				OpenWorldHint:   boolPtr(true),
				DestructiveHint: boolPtr(false),
				Title:           "Start Security Scan",
			},
		},
		s.handleStartScan,
	)
}

type startScanArgs struct {
	Target  string   `json:"target"`
	Tools   []string `json:"tools"`
	Timeout int      `json:"timeout"`
	Wait    bool     `json:"wait"`
}

func (s *Server) handleStartScan(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args startScanArgs
	if err := parseArgs(req, &args); err != nil {
		return errorResult(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	if args.Target == "" {
		return errorResult(`target is required. Example: {"target": "https://example.com", "tools": ["nuclei"]}`), nil
	}
	if len(args.Tools) == 0 {
		return errorResult(fmt.Sprintf("tools is required and must be non-empty. Available: %s",
			strings.Join(s.cfg.Registry.Names(), ", "))), nil
	}

	id, err := s.cfg.Engine.Start(ctx, scan.Request{
		Target:     args.Target,
		Tools:      args.Tools,
		TimeoutSec: args.Timeout,
	})
	if err != nil {
		return errorResult(err.Error()), nil
	}

	if args.Wait {
		if err := s.cfg.Engine.Wait(ctx, id); err != nil {
			return errorResult(fmt.Sprintf("scan %s started but wait was interrupted: %v", id, err)), nil
		}
		res, err := s.cfg.Engine.Get(id)
		if err != nil {
			return errorResult(err.Error()), nil
		}
		return jsonResult(res)
	}

	return jsonResult(map[string]string{
		"scan_id":    id,
		"status":     string(scan.StatusAccepted),
		"next_steps": "Poll with get_scan {\"scan_id\": \"" + id + "\"} until status is completed.",
	})
}

// ---------------------------------------------------------------------------
// get_scan
// ---------------------------------------------------------------------------

func (s *Server) addGetScanTool() {
	s.mcp.AddTool(
		&mcp.Tool{
			Name:  "get_scan",
			Title: "Get Scan Result",
			Description: `Fetch the current aggregate for a scan: per-tool statuses, all
normalized findings, and the severity summary. Safe to poll; a
running scan returns a consistent partial snapshot.`,
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"scan_id": map[string]any{
						"type":        "string",
						"description": "Scan identifier returned by start_scan.",
					},
				},
				"required": []string{"scan_id"},
			},
			Annotations: &mcp.ToolAnnotations{
				ReadOnlyHint:   true,
				IdempotentHint: true,
				Title:          "Get Scan Result",
			},
		},
		s.handleGetScan,
	)
}

func (s *Server) handleGetScan(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		ScanID string `json:"scan_id"`
	}
	if err := parseArgs(req, &args); err != nil {
		return errorResult(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	if args.ScanID == "" {
		return errorResult("scan_id is required"), nil
	}
	res, err := s.lookup(args.ScanID)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return jsonResult(res)
}

// ---------------------------------------------------------------------------
// list_scans
// ---------------------------------------------------------------------------

func (s *Server) addListScansTool() {
	s.mcp.AddTool(
		&mcp.Tool{
			Name:  "list_scans",
			Title: "List Scans",
			Description: `List all scans this process knows about, newest first, with
status and summary counts.`,
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
			Annotations: &mcp.ToolAnnotations{
				ReadOnlyHint:   true,
				IdempotentHint: true,
				Title:          "List Scans",
			},
		},
		s.handleListScans,
	)
}

type scanListEntry struct {
	ScanID   string `json:"scan_id"`
	Target   string `json:"target"`
	Status   string `json:"status"`
	Findings int    `json:"findings"`
}

func (s *Server) handleListScans(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	results := s.cfg.Engine.List()
	out := make([]scanListEntry, 0, len(results))
	for _, res := range results {
		out = append(out, scanListEntry{
			ScanID:   res.ScanID,
			Target:   res.Target,
			Status:   string(res.Status),
			Findings: res.Summary.Total,
		})
	}
	return jsonResult(out)
}

// ---------------------------------------------------------------------------
// cancel_scan
// ---------------------------------------------------------------------------

func (s *Server) addCancelScanTool() {
	s.mcp.AddTool(
		&mcp.Tool{
			Name:  "cancel_scan",
			Title: "Cancel Scan",
			Description: `Stop an in-flight scan. Every still-running tool process is
terminated; findings already collected are kept.`,
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"scan_id": map[string]any{
						"type":        "string",
						"description": "Scan identifier returned by start_scan.",
					},
				},
				"required": []string{"scan_id"},
			},
			Annotations: &mcp.ToolAnnotations{
				ReadOnlyHint:    false,
				IdempotentHint:  false,
				DestructiveHint: boolPtr(true),
				Title:           "Cancel Scan",
			},
		},
		s.handleCancelScan,
	)
}

func (s *Server) handleCancelScan(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		ScanID string `json:"scan_id"`
	}
	if err := parseArgs(req, &args); err != nil {
		return errorResult(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	if args.ScanID == "" {
		return errorResult("scan_id is required"), nil
	}
	if err := s.cfg.Engine.Cancel(args.ScanID); err != nil {
		return errorResult(err.Error()), nil
	}
	return jsonResult(map[string]string{"scan_id": args.ScanID, "status": string(scan.StatusCancelled)})
}

// ---------------------------------------------------------------------------
// render_report
// ---------------------------------------------------------------------------

func (s *Server) addRenderReportTool() {
	s.mcp.AddTool(
		&mcp.Tool{
			Name:  "render_report",
			Title: "Render Scan Report",
			Description: `Render a finished (or in-flight) scan as a distributable document.
"markdown" is the most useful format for reading inside a
conversation; "json" round-trips every finding field; "html" is for
humans in a browser.`,
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"scan_id": map[string]any{
						"type":        "string",
						"description": "Scan identifier returned by start_scan.",
					},
					"format": map[string]any{
						"type":        "string",
						"description": "Output format.",
						"enum":        []string{"json", "html", "markdown"},
						"default":     "markdown",
					},
				},
				"required": []string{"scan_id"},
			},
			Annotations: &mcp.ToolAnnotations{
				ReadOnlyHint:   true,
				IdempotentHint: true,
				Title:          "Render Scan Report",
			},
		},
		s.handleRenderReport,
	)
}

func (s *Server) handleRenderReport(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		ScanID string `json:"scan_id"`
		Format string `json:"format"`
	}
	if err := parseArgs(req, &args); err != nil {
		return errorResult(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	if args.ScanID == "" {
		return errorResult("scan_id is required"), nil
	}
	if args.Format == "" {
		args.Format = "markdown"
	}
	format, err := report.ParseFormat(args.Format)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	res, err := s.lookup(args.ScanID)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	data, err := s.renderer.Render(res, format)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return textResult(string(data)), nil
}

// ---------------------------------------------------------------------------
// list_tools
// ---------------------------------------------------------------------------

func (s *Server) addListToolsTool() {
	s.mcp.AddTool(
		&mcp.Tool{
			Name:  "list_tools",
			Title: "List Scanner Registry",
			Description: `List the scanners this instance can run: name, category, default
timeout, and whether the binary is installed on this host. Call this
before start_scan to avoid selecting an unavailable tool.`,
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
			Annotations: &mcp.ToolAnnotations{
				ReadOnlyHint:   true,
				IdempotentHint: true,
				Title:          "List Scanner Registry",
			},
		},
		s.handleListTools,
	)
}

type registryEntry struct {
	Name           string `json:"name"`
	Category       string `json:"category"`
	DefaultTimeout int    `json:"default_timeout_sec"`
	Available      bool   `json:"available"`
}

func (s *Server) handleListTools(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names := s.cfg.Registry.Names()
	out := make([]registryEntry, 0, len(names))
	for _, name := range names {
		d, _ := s.cfg.Registry.Get(name)
		out = append(out, registryEntry{
			Name:           d.Name,
			Category:       string(d.Category),
			DefaultTimeout: int(d.DefaultTimeout.Seconds()),
			Available:      d.Available(),
		})
	}
	return jsonResult(out)
}
