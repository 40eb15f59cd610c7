// Package report renders finished scans into distributable documents.
//
// A Report is a frozen projection of one scan.Result plus the derived
// risk rollup (weighted score, level, letter grade). Rendering is
// deterministic for a given result except the generation timestamp
// stamped at build time: rendering the same result twice with the same
// clock yields byte-identical output in every format.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/scanhive/scanhive/pkg/defaults"
	"github.com/scanhive/scanhive/pkg/finding"
	"github.com/scanhive/scanhive/pkg/scan"
)

// Format selects the output encoding of a rendered report.
type Format string

const (
	FormatJSON     Format = "json"
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
	FormatPDF      Format = "pdf"
)

// ParseFormat validates a caller-supplied format name. The empty
// string selects JSON so HTTP handlers and the CLI share one default.
func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case FormatJSON, FormatHTML, FormatMarkdown, FormatPDF:
		return f, nil
	case "":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported report format %q (want json, html, markdown, or pdf)", raw)
	}
}

// ContentType returns the MIME type a document of this format is
// served with.
func (f Format) ContentType() string {
	switch f {
	case FormatHTML:
		return defaults.ContentTypeHTML
	case FormatMarkdown:
		return defaults.ContentTypeMarkdown
	case FormatPDF:
		return defaults.ContentTypePDF
	default:
		return defaults.ContentTypeJSON
	}
}

// Report is the renderable document derived from one scan. The JSON
// field names are a stable external contract; the scan-level fields
// mirror the scan JSON shape so consumers can reuse their decoders.
type Report struct {
	Generator   string          `json:"generator"`
	GeneratedAt time.Time       `json:"generated_at"`
	ScanID      string          `json:"scan_id"`
	Target      string          `json:"target"`
	Status      scan.Status     `json:"status"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	DurationSec float64         `json:"duration_sec"`
	RiskScore   float64         `json:"risk_score"`
	RiskLevel   string          `json:"risk_level"`
	Grade       string          `json:"grade"`
	Summary     finding.Summary `json:"summary"`
	ToolRuns    []*scan.ToolRun `json:"results"`
}

// Renderer builds and encodes reports. The zero value is not usable;
// construct with NewRenderer.
type Renderer struct {
	now func() time.Time
}

// NewRenderer returns a renderer stamping reports with the wall clock.
func NewRenderer() *Renderer {
	return &Renderer{now: time.Now}
}

// Build freezes a scan result into a report document. The result is
// deep-copied and its summary re-derived, so a report never observes
// later mutation of an in-flight scan.
func (r *Renderer) Build(res *scan.Result) *Report {
	snap := res.Clone()
	rep := &Report{
		Generator:   defaults.UserAgent(""),
		GeneratedAt: r.now().UTC(),
		ScanID:      snap.ScanID,
		Target:      snap.Target,
		Status:      snap.Status,
		StartedAt:   snap.StartedAt,
		CompletedAt: snap.CompletedAt,
		Summary:     snap.Summary,
		ToolRuns:    snap.ToolRuns,
		RiskScore:   RiskScore(snap.Summary),
	}
	rep.RiskLevel = riskLevel(snap.Summary, rep.RiskScore)
	rep.Grade = Grade(rep.RiskScore)
	if snap.CompletedAt != nil {
		rep.DurationSec = snap.CompletedAt.Sub(snap.StartedAt).Seconds()
	}
	return rep
}

// Render builds the report for res and encodes it in the given format.
func (r *Renderer) Render(res *scan.Result, format Format) ([]byte, error) {
	if res == nil {
		return nil, fmt.Errorf("render report: nil scan result")
	}
	rep := r.Build(res)
	switch format {
	case FormatJSON:
		return renderJSON(rep)
	case FormatHTML:
		return renderHTML(rep)
	case FormatMarkdown:
		return renderMarkdown(rep)
	case FormatPDF:
		return renderPDF(rep)
	default:
		return nil, fmt.Errorf("unsupported report format %q", format)
	}
}

// RiskScore computes the severity-weighted 0-100 exposure score:
// critical 40, high 20, medium 10, low 5, capped at 100.
// Informational findings carry no weight.
func RiskScore(s finding.Summary) float64 {
	score := float64(s.Critical*40 + s.High*20 + s.Medium*10 + s.Low*5)
	if score > 100 {
		score = 100
	}
	return score
}

// Grade maps a risk score onto the A-F letter grade, lower scores
// grading better. A is reserved for scans with no weighted findings.
func Grade(score float64) string {
	switch {
	case score == 0:
		return "A"
	case score < 20:
		return "B"
	case score < 40:
		return "C"
	case score < 70:
		return "D"
	default:
		return "F"
	}
}

// riskLevel labels the overall exposure. Any finding of a severity
// forces at least that level regardless of the aggregate score.
func riskLevel(s finding.Summary, score float64) string {
	switch {
	case s.Critical > 0 || score >= 80:
		return "Critical"
	case s.High > 0 || score >= 60:
		return "High"
	case s.Medium > 0 || score >= 30:
		return "Medium"
	default:
		return "Low"
	}
}

// groupedFinding is one display row: a distinct finding plus how many
// times the scan produced it. Identical findings (same fingerprint)
// collapse into one row for readability; the count preserves
// multiplicity and the canonical sequence in ToolRuns is untouched.
type groupedFinding struct {
	finding.Finding
	Count int
}

// severityGroup is one severity bucket in descending urgency order.
type severityGroup struct {
	Severity finding.Severity
	Findings []groupedFinding
}

// Total returns the number of findings in the bucket counting
// collapsed duplicates.
func (g severityGroup) Total() int {
	n := 0
	for _, f := range g.Findings {
		n += f.Count
	}
	return n
}

// view is the projection templates and the PDF writer render from: the
// report plus its findings regrouped by severity. All five severity
// groups are always present, possibly empty, so output stays
// deterministic.
type view struct {
	*Report
	Groups []severityGroup
}

func newView(rep *Report) *view {
	buckets := make(map[finding.Severity][]groupedFinding)
	index := make(map[finding.Severity]map[string]int)
	for _, tr := range rep.ToolRuns {
		for _, f := range tr.Findings {
			sev := f.Severity
			if !sev.IsValid() {
				sev = finding.Info
			}
			if index[sev] == nil {
				index[sev] = make(map[string]int)
			}
			fp := f.Fingerprint()
			if i, ok := index[sev][fp]; ok {
				buckets[sev][i].Count++
				continue
			}
			index[sev][fp] = len(buckets[sev])
			buckets[sev] = append(buckets[sev], groupedFinding{Finding: f, Count: 1})
		}
	}
	v := &view{Report: rep}
	for _, sev := range finding.Ordered() {
		v.Groups = append(v.Groups, severityGroup{Severity: sev, Findings: buckets[sev]})
	}
	return v
}
