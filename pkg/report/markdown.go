package report

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// markdownTemplate renders a GitHub-flavored report. Findings are
// grouped by severity; duplicates collapse into one entry with a
// multiplier so nothing is dropped from the rollup.
const markdownTemplate = `# Security Scan Report

**Target:** {{ .Target }}
**Scan:** ` + "`{{ .ScanID }}`" + `
**Status:** {{ .Status }}
**Generated:** {{ .GeneratedAt.Format "2006-01-02 15:04:05 MST" }} by {{ .Generator }}

## Summary

| Metric | Value |
|--------|-------|
| Risk Score | {{ printf "%.0f" .RiskScore }}/100 |
| Risk Level | {{ .RiskLevel }} |
| Grade | **{{ .Grade }}** |
| Total Findings | {{ .Summary.Total }} |
{{- if .CompletedAt }}
| Duration | {{ printf "%.1f" .DurationSec }}s |
{{- end }}

### Findings by Severity

| Severity | Count |
|----------|-------|
{{- range .Groups }}
| {{ .Severity | toString | title }} | {{ .Total }} |
{{- end }}

## Tool Runs

| Tool | Category | Status | Duration | Findings | Error |
|------|----------|--------|----------|----------|-------|
{{- range .ToolRuns }}
| {{ .Tool }} | {{ .Category }} | {{ .Status }} | {{ .DurationMS }}ms | {{ len .Findings }} | {{ .Error | default "-" | replace "|" "\\|" }} |
{{- end }}

## Findings
{{- range .Groups }}
{{- if .Findings }}

### {{ .Severity | toString | title }} ({{ .Total }})
{{- range .Findings }}

#### {{ .Name }}{{ if gt .Count 1 }} (x{{ .Count }}){{ end }}

**Tool:** {{ .Tool }}{{ with .CVE }} | **CVE:** {{ . }}{{ end }}{{ if .CVSSScore }} | **CVSS:** {{ printf "%.1f" .CVSSScore }}{{ end }}

{{ .Description }}
{{- with .Reference }}

Reference: <{{ . }}>
{{- end }}
{{- end }}
{{- end }}
{{- end }}
{{- if eq .Summary.Total 0 }}

No findings were reported.
{{- end }}
`

var markdownTmpl = template.Must(
	template.New("markdown").Funcs(sprig.TxtFuncMap()).Parse(markdownTemplate))

func renderMarkdown(rep *Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := markdownTmpl.Execute(&buf, newView(rep)); err != nil {
		return nil, fmt.Errorf("render markdown report: %w", err)
	}
	return buf.Bytes(), nil
}
