package report

import (
	"bytes"
	"strings"
	"testing"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/scanhive/scanhive/pkg/scan"
)

// pdfDoc holds a generated PDF and provides semantic assertions.
type pdfDoc struct {
	t   *testing.T
	raw []byte
}

// generatePDF renders res with stream compression disabled so text is
// searchable in the raw bytes.
func generatePDF(t *testing.T, res *scan.Result) pdfDoc {
	t.Helper()
	pw := newPDFWriter(testRenderer().Build(res))
	pw.noCompress = true
	raw, err := pw.render()
	if err != nil {
		t.Fatalf("render pdf: %v", err)
	}
	return pdfDoc{t: t, raw: raw}
}

func (p pdfDoc) assertValid() {
	p.t.Helper()
	if err := pdfapi.Validate(bytes.NewReader(p.raw), nil); err != nil {
		p.t.Errorf("PDF validation failed: %v", err)
	}
}

func (p pdfDoc) pageCount() int {
	p.t.Helper()
	count, err := pdfapi.PageCount(bytes.NewReader(p.raw), nil)
	if err != nil {
		p.t.Fatalf("PageCount failed: %v", err)
	}
	return count
}

// pdfEscape applies the same literal-string escaping fpdf uses when it
// writes text into a content stream, so assertions can match raw bytes.
func pdfEscape(text string) string {
	text = strings.ReplaceAll(text, "\\", "\\\\")
	text = strings.ReplaceAll(text, "(", "\\(")
	text = strings.ReplaceAll(text, ")", "\\)")
	return text
}

func (p pdfDoc) assertContainsText(text string) {
	p.t.Helper()
	if !bytes.Contains(p.raw, []byte(pdfEscape(text))) {
		p.t.Errorf("PDF does not contain text %q", text)
	}
}

func TestPDFStructuralValid(t *testing.T) {
	t.Parallel()
	p := generatePDF(t, reportScan())
	p.assertValid()
	if len(p.raw) < 2000 {
		t.Errorf("PDF size = %d bytes, suspiciously small", len(p.raw))
	}
	if !bytes.HasPrefix(p.raw, []byte("%PDF")) {
		t.Error("output missing PDF header")
	}
}

func TestPDFPageLayout(t *testing.T) {
	t.Parallel()
	p := generatePDF(t, reportScan())
	// Overview, tool runs, and findings each start a page.
	if got := p.pageCount(); got < 3 {
		t.Errorf("page count = %d, want at least 3", got)
	}
}

func TestPDFContainsReportText(t *testing.T) {
	t.Parallel()
	p := generatePDF(t, reportScan())
	p.assertValid()

	p.assertContainsText("Security Scan Report")
	p.assertContainsText("Findings by Severity")
	p.assertContainsText("Tool Runs")
	p.assertContainsText("Remote code execution")
	p.assertContainsText("CVE-2023-0001")
	p.assertContainsText("Critical (1)")
	p.assertContainsText("X-Frame-Options header missing (x2)")
	p.assertContainsText("zap: execution failed: exit status 127")
}

func TestPDFEmptyScan(t *testing.T) {
	t.Parallel()
	res := scan.New("https://empty.example.com")
	res.Status = scan.StatusCompleted

	p := generatePDF(t, res)
	p.assertValid()
	p.assertContainsText("No findings were reported.")
}

func TestPDFReproducible(t *testing.T) {
	t.Parallel()
	res := reportScan()
	first, err := testRenderer().Render(res, FormatPDF)
	if err != nil {
		t.Fatalf("first render: %v", err)
	}
	second, err := testRenderer().Render(res, FormatPDF)
	if err != nil {
		t.Fatalf("second render: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("compressed PDF output not reproducible for a frozen scan")
	}
}
