// Package ui styles terminal output for the scanhive CLI: the banner,
// per-severity badges, tool run status lines, and the end-of-scan
// summary. Rendering degrades to plain text when stdout is not a
// color-capable terminal or when color is disabled.
package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/scanhive/scanhive/pkg/finding"
	"github.com/scanhive/scanhive/pkg/scan"
)

// Color palette.
var (
	// Brand colors
	Primary   = lipgloss.Color("#F4A856") // Amber - hive color
	Secondary = lipgloss.Color("#00D4AA") // Teal

	// Severity colors (matching OWASP/Nuclei conventions)
	ColorCritical = lipgloss.Color("#FF0000")
	ColorHigh     = lipgloss.Color("#FF6B6B")
	ColorMedium   = lipgloss.Color("#FFD93D")
	ColorLow      = lipgloss.Color("#6BCB77")
	ColorInfo     = lipgloss.Color("#4D96FF")

	// Status colors
	ColorSuccess = lipgloss.Color("#00D26A")
	ColorWarning = lipgloss.Color("#FFB800")
	ColorError   = lipgloss.Color("#FF3838")
	Muted        = lipgloss.Color("#6B7280")
)

// Pre-configured styles.
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(Primary).
			Padding(0, 1)

	BannerStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	VersionStyle = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)

	SectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Bold(true).
			MarginTop(1)

	LabelStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Width(14)

	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Bold(true)

	BracketStyle = lipgloss.NewStyle().
			Foreground(Muted)

	URLStyle = lipgloss.NewStyle().
			Foreground(Secondary).
			Underline(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)

	MutedStyle = lipgloss.NewStyle().
			Foreground(Muted)
)

// SeverityStyle returns the badge style for a finding severity.
func SeverityStyle(sev finding.Severity) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch sev {
	case finding.Critical:
		return base.Foreground(ColorCritical)
	case finding.High:
		return base.Foreground(ColorHigh)
	case finding.Medium:
		return base.Foreground(ColorMedium)
	case finding.Low:
		return base.Foreground(ColorLow)
	case finding.Info:
		return base.Foreground(ColorInfo)
	default:
		return base.Foreground(Muted)
	}
}

// RunStatusStyle returns the style for a tool run status.
func RunStatusStyle(status scan.RunStatus) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch status {
	case scan.RunSuccess:
		return base.Foreground(ColorSuccess)
	case scan.RunTimeout:
		return base.Foreground(ColorWarning)
	case scan.RunError:
		return base.Foreground(ColorError)
	case scan.RunRunning:
		return base.Foreground(Secondary)
	default:
		return base.Foreground(Muted)
	}
}

// GradeStyle colors a letter grade: A/B calm, C warning, D/F alarming.
func GradeStyle(grade string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch grade {
	case "A", "B":
		return base.Foreground(ColorSuccess)
	case "C":
		return base.Foreground(ColorWarning)
	default:
		return base.Foreground(ColorError)
	}
}
