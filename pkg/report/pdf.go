package report

import (
	"bytes"
	"fmt"

	gofpdf "github.com/go-pdf/fpdf"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/scanhive/scanhive/pkg/finding"
	"github.com/scanhive/scanhive/pkg/scan"
)

// pdfSeverityColors maps severities to RGB for headings and table rows.
var pdfSeverityColors = map[finding.Severity][]int{
	finding.Critical: {220, 38, 38},
	finding.High:     {234, 88, 12},
	finding.Medium:   {202, 138, 4},
	finding.Low:      {22, 163, 74},
	finding.Info:     {37, 99, 235},
}

var pdfStatusColors = map[scan.RunStatus][]int{
	scan.RunSuccess: {22, 163, 74},
	scan.RunError:   {220, 38, 38},
	scan.RunTimeout: {202, 138, 4},
}

// pdfWriter draws one report into an A4 document.
type pdfWriter struct {
	view      *view
	title     cases.Caser
	translate func(string) string

	// noCompress disables stream compression so tests can search the
	// raw bytes for rendered text.
	noCompress bool
}

func newPDFWriter(rep *Report) *pdfWriter {
	return &pdfWriter{view: newView(rep), title: cases.Title(language.English)}
}

func renderPDF(rep *Report) ([]byte, error) {
	return newPDFWriter(rep).render()
}

func (pw *pdfWriter) render() ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	// Fixing both dates to the report timestamp keeps output
	// byte-reproducible for a frozen scan.
	pdf.SetCreationDate(pw.view.GeneratedAt)
	pdf.SetModificationDate(pw.view.GeneratedAt)
	pdf.SetCompression(!pw.noCompress)
	pdf.SetTitle("Security Scan Report", false)
	pdf.SetAuthor(pw.view.Generator, false)
	pw.translate = pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(148, 163, 184)
		footer := fmt.Sprintf("%s | page %d of {nb}", pw.view.Generator, pdf.PageNo())
		pdf.CellFormat(0, 10, footer, "", 0, "C", false, 0, "")
	})

	pw.addOverview(pdf)
	pw.addToolRuns(pdf)
	pw.addFindings(pdf)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf report: %w", err)
	}
	return buf.Bytes(), nil
}

func (pw *pdfWriter) addSectionHeader(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(30, 41, 59)
	pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
	pdf.Ln(1)
}

// addOverview renders the first page: report header, the risk rollup
// boxes, and the severity distribution table.
func (pw *pdfWriter) addOverview(pdf *gofpdf.Fpdf) {
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetTextColor(30, 41, 59)
	pdf.CellFormat(0, 12, "Security Scan Report", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(80, 80, 80)
	pdf.MultiCell(0, 6, pw.translate(pw.view.Target), "", "L", false)

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(128, 128, 128)
	meta := fmt.Sprintf("Scan %s | %s | generated %s",
		pw.view.ScanID, pw.view.Status,
		pw.view.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	pdf.CellFormat(0, 6, meta, "", 1, "L", false, 0, "")
	pdf.Ln(6)

	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	const gap = 5.0
	boxW := (pageW - left - right - 3*gap) / 4

	boxes := []struct {
		value string
		label string
	}{
		{fmt.Sprintf("%.0f", pw.view.RiskScore), "Risk Score"},
		{pw.view.Grade, "Grade"},
		{pw.view.RiskLevel, "Risk Level"},
		{fmt.Sprintf("%d", pw.view.Summary.Total), "Findings"},
	}
	startY := pdf.GetY()
	for i, box := range boxes {
		x := left + float64(i)*(boxW+gap)
		pdf.SetXY(x, startY)
		pdf.SetFillColor(248, 250, 252)
		pdf.SetFont("Helvetica", "B", 18)
		pdf.SetTextColor(30, 41, 59)
		pdf.CellFormat(boxW, 12, box.value, "LTR", 0, "C", true, 0, "")
		pdf.SetXY(x, startY+12)
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(100, 116, 139)
		pdf.CellFormat(boxW, 7, box.label, "LBR", 0, "C", true, 0, "")
	}
	pdf.SetY(startY + 19)
	pdf.Ln(8)

	pw.addSectionHeader(pdf, "Findings by Severity")
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(30, 41, 59)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(50, 8, "Severity", "1", 0, "L", true, 0, "")
	pdf.CellFormat(0, 8, "Count", "1", 1, "L", true, 0, "")
	for _, g := range pw.view.Groups {
		color := pdfSeverityColors[g.Severity]
		if color == nil {
			color = []int{128, 128, 128}
		}
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetTextColor(color[0], color[1], color[2])
		pdf.CellFormat(50, 7, pw.title.String(string(g.Severity)), "1", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(0, 7, fmt.Sprintf("%d", g.Total()), "1", 1, "L", false, 0, "")
	}
}

func (pw *pdfWriter) addToolRuns(pdf *gofpdf.Fpdf) {
	pdf.AddPage()
	pw.addSectionHeader(pdf, "Tool Runs")

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(30, 41, 59)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(35, 8, "Tool", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 8, "Category", "1", 0, "L", true, 0, "")
	pdf.CellFormat(25, 8, "Status", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 8, "Duration", "1", 0, "C", true, 0, "")
	pdf.CellFormat(0, 8, "Findings", "1", 1, "C", true, 0, "")

	for i, run := range pw.view.ToolRuns {
		if i%2 == 0 {
			pdf.SetFillColor(250, 250, 250)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(35, 7, pw.translate(run.Tool), "1", 0, "L", true, 0, "")
		pdf.CellFormat(30, 7, pw.translate(run.Category), "1", 0, "L", true, 0, "")

		statusColor := pdfStatusColors[run.Status]
		if statusColor == nil {
			statusColor = []int{128, 128, 128}
		}
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetTextColor(statusColor[0], statusColor[1], statusColor[2])
		pdf.CellFormat(25, 7, string(run.Status), "1", 0, "C", true, 0, "")

		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(30, 7, fmt.Sprintf("%.1fs", float64(run.DurationMS)/1000), "1", 0, "C", true, 0, "")
		pdf.CellFormat(0, 7, fmt.Sprintf("%d", len(run.Findings)), "1", 1, "C", true, 0, "")
	}

	for _, run := range pw.view.ToolRuns {
		if run.Error == "" {
			continue
		}
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(220, 38, 38)
		pdf.MultiCell(0, 4, pw.translate(fmt.Sprintf("%s: %s", run.Tool, run.Error)), "", "L", false)
	}
}

func (pw *pdfWriter) addFindings(pdf *gofpdf.Fpdf) {
	pdf.AddPage()
	pw.addSectionHeader(pdf, "Findings")

	if pw.view.Summary.Total == 0 {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 8, "No findings were reported.", "", 1, "L", false, 0, "")
		return
	}

	_, pageH := pdf.GetPageSize()
	breakY := pageH - 40

	for _, g := range pw.view.Groups {
		if len(g.Findings) == 0 {
			continue
		}
		color := pdfSeverityColors[g.Severity]
		if color == nil {
			color = []int{128, 128, 128}
		}

		if pdf.GetY()+30 > breakY {
			pdf.AddPage()
		}
		pdf.SetFont("Helvetica", "B", 12)
		pdf.SetTextColor(color[0], color[1], color[2])
		heading := fmt.Sprintf("%s (%d)", pw.title.String(string(g.Severity)), g.Total())
		pdf.CellFormat(0, 9, heading, "", 1, "L", false, 0, "")

		for _, f := range g.Findings {
			// Each card needs ~28mm; start a fresh page rather than
			// splitting a card across the break.
			if pdf.GetY()+28 > breakY {
				pdf.AddPage()
			}
			name := f.Name
			if f.Count > 1 {
				name = fmt.Sprintf("%s (x%d)", name, f.Count)
			}
			pdf.SetFont("Helvetica", "B", 10)
			pdf.SetTextColor(30, 41, 59)
			pdf.MultiCell(0, 5, pw.translate(name), "", "L", false)

			meta := f.Tool
			if f.CVE != "" {
				meta += " | " + f.CVE
			}
			if f.CVSSScore > 0 {
				meta += fmt.Sprintf(" | CVSS %.1f", f.CVSSScore)
			}
			pdf.SetFont("Helvetica", "", 8)
			pdf.SetTextColor(128, 128, 128)
			pdf.CellFormat(0, 4, pw.translate(meta), "", 1, "L", false, 0, "")

			if f.Description != "" {
				pdf.SetFont("Helvetica", "", 9)
				pdf.SetTextColor(80, 80, 80)
				pdf.MultiCell(0, 5, pw.translate(f.Description), "", "L", false)
			}
			if f.Reference != "" {
				pdf.SetFont("Helvetica", "I", 8)
				pdf.SetTextColor(37, 99, 235)
				pdf.MultiCell(0, 4, pw.translate(f.Reference), "", "L", false)
			}
			pdf.Ln(3)
		}
		pdf.Ln(2)
	}
}
