package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/scanhive/scanhive/pkg/finding"
	"github.com/scanhive/scanhive/pkg/scan"
)

// reportScan returns a frozen completed scan exercising every renderer
// path: findings across severities, an exact duplicate pair, a CVE
// with reference, and one failed tool run.
func reportScan() *scan.Result {
	started := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	completed := started.Add(95 * time.Second)

	nucleiRun := &scan.ToolRun{
		Tool:       "nuclei",
		Category:   "quick",
		Target:     "https://example.com",
		StartedAt:  started,
		EndedAt:    &completed,
		DurationMS: 61200,
		Status:     scan.RunSuccess,
		Findings: []finding.Finding{
			{
				Severity:    finding.Critical,
				Tool:        "nuclei",
				Name:        "Remote code execution in upload handler",
				Description: "template matched on POST /upload",
				Reference:   "https://nvd.nist.gov/vuln/detail/CVE-2023-0001",
				CVE:         "CVE-2023-0001",
				CVSSScore:   9.8,
			},
			{
				Severity:    finding.Medium,
				Tool:        "nuclei",
				Name:        "Missing Content-Security-Policy header",
				Description: "response carries no CSP",
			},
		},
	}
	niktoRun := &scan.ToolRun{
		Tool:       "nikto",
		Category:   "quick",
		Target:     "https://example.com",
		StartedAt:  started,
		EndedAt:    &completed,
		DurationMS: 88700,
		Status:     scan.RunSuccess,
		Findings: []finding.Finding{
			{
				Severity:    finding.Low,
				Tool:        "nikto",
				Name:        "X-Frame-Options header missing",
				Description: "clickjacking protection absent",
			},
			{
				Severity:    finding.Low,
				Tool:        "nikto",
				Name:        "X-Frame-Options header missing",
				Description: "clickjacking protection absent",
			},
			{
				Severity:    finding.Info,
				Tool:        "nikto",
				Name:        "Server banner disclosed",
				Description: "Server: nginx/1.18.0",
			},
		},
	}
	zapRun := &scan.ToolRun{
		Tool:       "zap",
		Category:   "deep",
		Target:     "https://example.com",
		StartedAt:  started,
		EndedAt:    &completed,
		DurationMS: 400,
		Status:     scan.RunError,
		Findings:   []finding.Finding{},
		Error:      "execution failed: exit status 127",
	}

	res := &scan.Result{
		ScanID:      "scan-report-fixture",
		Target:      "https://example.com",
		Status:      scan.StatusCompleted,
		StartedAt:   started,
		CompletedAt: &completed,
		ToolRuns:    []*scan.ToolRun{nucleiRun, niktoRun, zapRun},
	}
	res.Recount()
	return res
}

// testRenderer pins the clock so renders are byte-reproducible.
func testRenderer() *Renderer {
	r := NewRenderer()
	r.now = func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	return r
}

func TestRiskScore(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		summary finding.Summary
		want    float64
	}{
		{"empty", finding.Summary{}, 0},
		{"one low", finding.Summary{Low: 1}, 5},
		{"one medium", finding.Summary{Medium: 1}, 10},
		{"one high", finding.Summary{High: 1}, 20},
		{"one critical", finding.Summary{Critical: 1}, 40},
		{"info carries no weight", finding.Summary{Info: 9}, 0},
		{"mixed", finding.Summary{Critical: 1, Medium: 1, Low: 2}, 60},
		{"capped at 100", finding.Summary{Critical: 3}, 100},
		{"exactly 100", finding.Summary{Critical: 2, High: 1}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RiskScore(tt.summary); got != tt.want {
				t.Errorf("RiskScore(%+v) = %v, want %v", tt.summary, got, tt.want)
			}
		})
	}
}

func TestGrade(t *testing.T) {
	t.Parallel()
	tests := []struct {
		score float64
		want  string
	}{
		{0, "A"},
		{5, "B"},
		{19, "B"},
		{20, "C"},
		{39, "C"},
		{40, "D"},
		{69, "D"},
		{70, "F"},
		{100, "F"},
	}
	for _, tt := range tests {
		if got := Grade(tt.score); got != tt.want {
			t.Errorf("Grade(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestRiskLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		summary finding.Summary
		want    string
	}{
		{"clean", finding.Summary{}, "Low"},
		{"info only", finding.Summary{Info: 4}, "Low"},
		{"low only", finding.Summary{Low: 1}, "Low"},
		{"medium present", finding.Summary{Medium: 1}, "Medium"},
		{"high present", finding.Summary{High: 1}, "High"},
		{"critical present", finding.Summary{Critical: 1}, "Critical"},
		{"score alone reaches medium", finding.Summary{Low: 7}, "Medium"},
		{"score alone reaches critical", finding.Summary{High: 4}, "Critical"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := riskLevel(tt.summary, RiskScore(tt.summary))
			if got != tt.want {
				t.Errorf("riskLevel(%+v) = %q, want %q", tt.summary, got, tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw     string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"html", FormatHTML, false},
		{"markdown", FormatMarkdown, false},
		{"pdf", FormatPDF, false},
		{"JSON", FormatJSON, false},
		{" pdf ", FormatPDF, false},
		{"", FormatJSON, false},
		{"xml", "", true},
		{"text", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseFormat(%q) expected error, got %q", tt.raw, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseFormat(%q) unexpected error: %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestFormatContentType(t *testing.T) {
	t.Parallel()
	tests := []struct {
		format Format
		want   string
	}{
		{FormatJSON, "application/json"},
		{FormatHTML, "text/html"},
		{FormatMarkdown, "text/markdown"},
		{FormatPDF, "application/pdf"},
	}
	for _, tt := range tests {
		if got := tt.format.ContentType(); got != tt.want {
			t.Errorf("%s content type = %q, want %q", tt.format, got, tt.want)
		}
	}
}

func TestBuildReport(t *testing.T) {
	t.Parallel()
	rep := testRenderer().Build(reportScan())

	if rep.ScanID != "scan-report-fixture" {
		t.Errorf("ScanID = %q", rep.ScanID)
	}
	if rep.Target != "https://example.com" {
		t.Errorf("Target = %q", rep.Target)
	}
	if rep.Status != scan.StatusCompleted {
		t.Errorf("Status = %q", rep.Status)
	}
	if rep.Generator != "scanhive/1.2.0" {
		t.Errorf("Generator = %q", rep.Generator)
	}
	wantNow := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if !rep.GeneratedAt.Equal(wantNow) {
		t.Errorf("GeneratedAt = %v, want %v", rep.GeneratedAt, wantNow)
	}
	if rep.DurationSec != 95 {
		t.Errorf("DurationSec = %v, want 95", rep.DurationSec)
	}

	// 1 critical + 1 medium + 2 low: 40 + 10 + 10 = 60.
	if rep.RiskScore != 60 {
		t.Errorf("RiskScore = %v, want 60", rep.RiskScore)
	}
	if rep.Grade != "D" {
		t.Errorf("Grade = %q, want D", rep.Grade)
	}
	if rep.RiskLevel != "Critical" {
		t.Errorf("RiskLevel = %q, want Critical", rep.RiskLevel)
	}
	if rep.Summary.Total != 5 {
		t.Errorf("Summary.Total = %d, want 5", rep.Summary.Total)
	}
	if len(rep.ToolRuns) != 3 {
		t.Errorf("ToolRuns = %d, want 3", len(rep.ToolRuns))
	}
}

func TestBuildSnapshotIsolated(t *testing.T) {
	t.Parallel()
	res := reportScan()
	rep := testRenderer().Build(res)

	res.ToolRuns[0].Findings = append(res.ToolRuns[0].Findings, finding.Finding{
		Severity: finding.Critical, Tool: "nuclei", Name: "appended after build",
	})
	res.Recount()

	if rep.Summary.Total != 5 {
		t.Errorf("report observed later mutation: total = %d, want 5", rep.Summary.Total)
	}
	if len(rep.ToolRuns[0].Findings) != 2 {
		t.Errorf("report run grew to %d findings", len(rep.ToolRuns[0].Findings))
	}
}

func TestBuildRunningScanHasNoDuration(t *testing.T) {
	t.Parallel()
	res := reportScan()
	res.Status = scan.StatusRunning
	res.CompletedAt = nil

	rep := testRenderer().Build(res)
	if rep.DurationSec != 0 {
		t.Errorf("DurationSec = %v, want 0 for in-flight scan", rep.DurationSec)
	}
	if rep.CompletedAt != nil {
		t.Errorf("CompletedAt = %v, want nil", rep.CompletedAt)
	}
}

func TestRenderDeterministic(t *testing.T) {
	t.Parallel()
	res := reportScan()
	for _, format := range []Format{FormatJSON, FormatHTML, FormatMarkdown, FormatPDF} {
		t.Run(string(format), func(t *testing.T) {
			t.Parallel()
			first, err := testRenderer().Render(res, format)
			if err != nil {
				t.Fatalf("first render: %v", err)
			}
			second, err := testRenderer().Render(res, format)
			if err != nil {
				t.Fatalf("second render: %v", err)
			}
			if !bytes.Equal(first, second) {
				t.Errorf("%s render not reproducible: %d vs %d bytes", format, len(first), len(second))
			}
		})
	}
}

func TestRenderNilResult(t *testing.T) {
	t.Parallel()
	if _, err := testRenderer().Render(nil, FormatJSON); err == nil {
		t.Fatal("expected error for nil result")
	}
}

func TestRenderUnsupportedFormat(t *testing.T) {
	t.Parallel()
	if _, err := testRenderer().Render(reportScan(), Format("xml")); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestGroupsCollapseDuplicates(t *testing.T) {
	t.Parallel()
	v := newView(testRenderer().Build(reportScan()))

	if len(v.Groups) != 5 {
		t.Fatalf("groups = %d, want 5", len(v.Groups))
	}
	if v.Groups[0].Severity != finding.Critical {
		t.Errorf("first group = %s, want critical", v.Groups[0].Severity)
	}

	var low severityGroup
	for _, g := range v.Groups {
		if g.Severity == finding.Low {
			low = g
		}
	}
	if len(low.Findings) != 1 {
		t.Fatalf("low group entries = %d, want 1 collapsed entry", len(low.Findings))
	}
	if low.Findings[0].Count != 2 {
		t.Errorf("collapsed count = %d, want 2", low.Findings[0].Count)
	}
	if low.Total() != 2 {
		t.Errorf("low total = %d, want 2", low.Total())
	}

	// Collapsing must never change the rollup.
	sum := 0
	for _, g := range v.Groups {
		sum += g.Total()
	}
	if sum != v.Summary.Total {
		t.Errorf("grouped total = %d, summary total = %d", sum, v.Summary.Total)
	}
}
