package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/scanhive/scanhive/pkg/events"
	"github.com/scanhive/scanhive/pkg/finding"
	"github.com/scanhive/scanhive/pkg/report"
	"github.com/scanhive/scanhive/pkg/scan"
)

// FormatEvent renders one progress event as a terminal line:
// [15:04:05] [type] [tool] message
func FormatEvent(ev events.Event) string {
	var parts []string
	parts = append(parts, Bracket(MutedStyle, ev.Time.Local().Format("15:04:05")))
	parts = append(parts, Bracket(eventStyle(ev.Type), string(ev.Type)))
	if ev.Tool != "" {
		parts = append(parts, Bracket(ValueStyle, ev.Tool))
	}
	parts = append(parts, ev.Message)
	return strings.Join(parts, " ")
}

func eventStyle(t events.Type) lipgloss.Style {
	switch t {
	case events.TypeSuccess, events.TypeComplete:
		return SuccessStyle
	case events.TypeWarning:
		return WarningStyle
	case events.TypeError:
		return ErrorStyle
	case events.TypeStarted:
		return VersionStyle
	default:
		return MutedStyle
	}
}

// FormatFinding renders one finding as a nuclei-style line:
// [severity] [tool] name — description
func FormatFinding(f finding.Finding) string {
	line := fmt.Sprintf("%s %s %s",
		Bracket(SeverityStyle(f.Severity), string(f.Severity)),
		Bracket(MutedStyle, f.Tool),
		Render(ValueStyle, f.Name))
	if f.Description != "" {
		line += " " + Render(MutedStyle, f.Description)
	}
	if f.CVE != "" {
		line += " " + Bracket(ErrorStyle, f.CVE)
	}
	return line
}

// FormatToolRun renders one tool run summary line.
func FormatToolRun(tr *scan.ToolRun) string {
	dur := time.Duration(tr.DurationMS) * time.Millisecond
	line := fmt.Sprintf("  %s %-10s %-8s %s",
		Bracket(RunStatusStyle(tr.Status), string(tr.Status)),
		tr.Tool,
		dur.Round(time.Millisecond*100).String(),
		Render(MutedStyle, fmt.Sprintf("%d findings", len(tr.Findings))))
	if tr.Error != "" {
		line += "\n      " + Render(ErrorStyle, tr.Error)
	}
	return line
}

// FormatSummary renders the end-of-scan rollup: per-severity counts,
// risk score, and grade.
func FormatSummary(res *scan.Result) string {
	var b strings.Builder

	score := report.RiskScore(res.Summary)
	grade := report.Grade(score)

	b.WriteString(fmt.Sprintf("  %s %s\n", Render(LabelStyle, "Target:"), Render(URLStyle, res.Target)))
	b.WriteString(fmt.Sprintf("  %s %s\n", Render(LabelStyle, "Status:"), string(res.Status)))
	if res.CompletedAt != nil {
		b.WriteString(fmt.Sprintf("  %s %s\n", Render(LabelStyle, "Duration:"),
			res.CompletedAt.Sub(res.StartedAt).Round(time.Second).String()))
	}

	var counts []string
	for _, sev := range finding.Ordered() {
		n := res.Summary.Count(sev)
		if n == 0 {
			continue
		}
		counts = append(counts, Render(SeverityStyle(sev), fmt.Sprintf("%d %s", n, sev)))
	}
	if len(counts) == 0 {
		counts = append(counts, Render(SuccessStyle, "no findings"))
	}
	b.WriteString(fmt.Sprintf("  %s %s\n", Render(LabelStyle, "Findings:"), strings.Join(counts, ", ")))
	b.WriteString(fmt.Sprintf("  %s %.0f/100 %s\n",
		Render(LabelStyle, "Risk:"), score, Bracket(GradeStyle(grade), grade)))
	return b.String()
}
