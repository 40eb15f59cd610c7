package report

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/scanhive/scanhive/pkg/finding"
	"github.com/scanhive/scanhive/pkg/scan"
)

var htmlTmpl = template.Must(
	template.New("report").Funcs(htmlFuncs()).Parse(htmlTemplate))

func htmlFuncs() template.FuncMap {
	funcs := sprig.HtmlFuncMap()
	funcs["severityClass"] = severityClass
	funcs["statusClass"] = statusClass
	return funcs
}

func renderHTML(rep *Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := htmlTmpl.Execute(&buf, newView(rep)); err != nil {
		return nil, fmt.Errorf("render html report: %w", err)
	}
	return buf.Bytes(), nil
}

func severityClass(s finding.Severity) string {
	switch s {
	case finding.Critical:
		return "severity-critical"
	case finding.High:
		return "severity-high"
	case finding.Medium:
		return "severity-medium"
	case finding.Low:
		return "severity-low"
	default:
		return "severity-info"
	}
}

func statusClass(s scan.RunStatus) string {
	switch s {
	case scan.RunSuccess:
		return "status-success"
	case scan.RunError:
		return "status-error"
	case scan.RunTimeout:
		return "status-timeout"
	default:
		return "status-pending"
	}
}

// htmlTemplate is the embedded single-file report. Styling keeps to
// CSS variables so a custom stylesheet can re-theme it wholesale.
const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Security Scan Report - {{ .Target }}</title>
    <style>
        :root {
            --bg-primary: #ffffff;
            --bg-secondary: #f8f9fa;
            --text-primary: #212529;
            --text-secondary: #6c757d;
            --border-color: #dee2e6;
            --shadow: 0 2px 8px rgba(0,0,0,0.08);
            --severity-critical: #dc3545;
            --severity-high: #fd7e14;
            --severity-medium: #ffc107;
            --severity-low: #20c997;
            --severity-info: #0dcaf0;
            --status-success: #198754;
            --status-error: #dc3545;
            --status-timeout: #ca8a04;
            --status-pending: #6c757d;
        }
        *, *::before, *::after { box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            background: var(--bg-primary);
            color: var(--text-primary);
            margin: 0;
            line-height: 1.6;
        }
        .container { max-width: 960px; margin: 0 auto; padding: 2rem; }
        .header { border-bottom: 2px solid var(--border-color); padding-bottom: 1rem; margin-bottom: 2rem; }
        .header h1 { margin: 0 0 0.25rem 0; font-size: 1.8rem; }
        .header .target { font-size: 1.1rem; color: var(--text-secondary); word-break: break-all; }
        .header .meta { font-size: 0.85rem; color: var(--text-secondary); margin-top: 0.5rem; }
        .stats-grid { display: grid; grid-template-columns: repeat(4, 1fr); gap: 1rem; margin-bottom: 2rem; }
        .stat-box {
            text-align: center; padding: 1.25rem; background: var(--bg-secondary);
            border-radius: 6px; box-shadow: var(--shadow);
        }
        .stat-box .value { font-size: 2.2rem; font-weight: 700; }
        .stat-box .label { font-size: 0.8rem; text-transform: uppercase; letter-spacing: 0.05em; color: var(--text-secondary); }
        .section { margin-bottom: 2.5rem; }
        .section h2 { font-size: 1.3rem; border-bottom: 1px solid var(--border-color); padding-bottom: 0.4rem; }
        table { width: 100%; border-collapse: collapse; }
        th, td { padding: 0.6rem 0.75rem; border: 1px solid var(--border-color); text-align: left; font-size: 0.9rem; }
        th { background: var(--bg-secondary); }
        .finding {
            border: 1px solid var(--border-color); border-left-width: 5px;
            border-radius: 5px; padding: 1rem 1.25rem; margin: 0.75rem 0;
        }
        .finding h4 { margin: 0 0 0.4rem 0; }
        .finding .meta { font-size: 0.85rem; color: var(--text-secondary); margin-bottom: 0.5rem; }
        .finding p { margin: 0.25rem 0; }
        .finding .reference { font-size: 0.85rem; word-break: break-all; }
        .severity-critical { border-left-color: var(--severity-critical); }
        .severity-high { border-left-color: var(--severity-high); }
        .severity-medium { border-left-color: var(--severity-medium); }
        .severity-low { border-left-color: var(--severity-low); }
        .severity-info { border-left-color: var(--severity-info); }
        .badge {
            display: inline-block; padding: 0.15rem 0.55rem; border-radius: 999px;
            color: #fff; font-size: 0.75rem; font-weight: 600; text-transform: uppercase;
        }
        .badge.severity-critical { background: var(--severity-critical); }
        .badge.severity-high { background: var(--severity-high); }
        .badge.severity-medium { background: var(--severity-medium); color: #212529; }
        .badge.severity-low { background: var(--severity-low); }
        .badge.severity-info { background: var(--severity-info); color: #212529; }
        .status-success { color: var(--status-success); font-weight: 600; }
        .status-error { color: var(--status-error); font-weight: 600; }
        .status-timeout { color: var(--status-timeout); font-weight: 600; }
        .status-pending { color: var(--status-pending); }
        .empty { color: var(--text-secondary); font-style: italic; }
        .footer { border-top: 1px solid var(--border-color); padding-top: 1rem; font-size: 0.8rem; color: var(--text-secondary); }
        @media print { .stat-box { box-shadow: none; border: 1px solid var(--border-color); } }
    </style>
</head>
<body>
<div class="container">
    <div class="header">
        <h1>Security Scan Report</h1>
        <div class="target">{{ .Target }}</div>
        <div class="meta">
            Scan {{ .ScanID }} &middot; {{ .Status }} &middot;
            generated {{ .GeneratedAt.Format "January 2, 2006 15:04 MST" }}
        </div>
    </div>

    <div class="stats-grid">
        <div class="stat-box">
            <div class="value">{{ printf "%.0f" .RiskScore }}</div>
            <div class="label">Risk Score</div>
        </div>
        <div class="stat-box">
            <div class="value">{{ .Grade }}</div>
            <div class="label">Grade</div>
        </div>
        <div class="stat-box">
            <div class="value">{{ .RiskLevel }}</div>
            <div class="label">Risk Level</div>
        </div>
        <div class="stat-box">
            <div class="value">{{ .Summary.Total }}</div>
            <div class="label">Findings</div>
        </div>
    </div>

    <div class="section">
        <h2>Findings by Severity</h2>
        <table>
            <tr><th>Severity</th><th>Count</th></tr>
            {{- range .Groups }}
            <tr>
                <td><span class="badge {{ severityClass .Severity }}">{{ .Severity }}</span></td>
                <td>{{ .Total }}</td>
            </tr>
            {{- end }}
        </table>
    </div>

    <div class="section">
        <h2>Tool Runs</h2>
        <table>
            <tr><th>Tool</th><th>Category</th><th>Status</th><th>Duration</th><th>Findings</th><th>Error</th></tr>
            {{- range .ToolRuns }}
            <tr>
                <td>{{ .Tool }}</td>
                <td>{{ .Category }}</td>
                <td class="{{ statusClass .Status }}">{{ .Status }}</td>
                <td>{{ .DurationMS }}ms</td>
                <td>{{ len .Findings }}</td>
                <td>{{ .Error | default "-" }}</td>
            </tr>
            {{- end }}
        </table>
    </div>

    <div class="section">
        <h2>Findings</h2>
        {{- if eq .Summary.Total 0 }}
        <p class="empty">No findings were reported.</p>
        {{- end }}
        {{- range .Groups }}
        {{- if .Findings }}
        <h3><span class="badge {{ severityClass .Severity }}">{{ .Severity }}</span> {{ .Total }}</h3>
        {{- range .Findings }}
        <div class="finding {{ severityClass .Severity }}">
            <h4>{{ .Name }}{{ if gt .Count 1 }} (x{{ .Count }}){{ end }}</h4>
            <div class="meta">
                {{ .Tool }}{{ with .CVE }} &middot; {{ . }}{{ end }}{{ if .CVSSScore }} &middot; CVSS {{ printf "%.1f" .CVSSScore }}{{ end }}
            </div>
            <p>{{ .Description }}</p>
            {{- with .Reference }}
            <p class="reference">Reference: <a href="{{ . }}">{{ . }}</a></p>
            {{- end }}
        </div>
        {{- end }}
        {{- end }}
        {{- end }}
    </div>

    <div class="footer">{{ .Generator }}</div>
</div>
</body>
</html>
`
