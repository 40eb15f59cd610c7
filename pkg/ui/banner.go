package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/scanhive/scanhive/pkg/defaults"
)

// Build metadata, overridable at link time:
//
//	go build -ldflags "-X github.com/scanhive/scanhive/pkg/ui.Commit=abc123"
var (
	Version = defaults.Version
	Commit  = "dev"
)

const banner = `
   ___  ___ __ _ _ __ | |__ (_)_   _____
  / __|/ __/ _' | '_ \| '_ \| \ \ / / _ \
  \__ \ (_| (_| | | | | | | | |\ V /  __/
  |___/\___\__,_|_| |_|_| |_|_| \_/ \___|
`

// PrintBanner writes the startup banner to stderr unless silent.
func PrintBanner() {
	if IsSilent() {
		return
	}
	fmt.Fprintln(os.Stderr, Render(BannerStyle, banner))
	fmt.Fprintf(os.Stderr, "  %s %s\n\n",
		Render(MutedStyle, "security scan orchestrator"),
		Render(VersionStyle, "v"+Version))
}

// PrintMiniBanner writes the one-line version banner to stdout.
func PrintMiniBanner() {
	fmt.Printf("%s v%s (%s)\n", defaults.ToolName, Version, Commit)
}

// PrintSection writes a section header to stderr unless silent.
func PrintSection(title string) {
	if IsSilent() {
		return
	}
	fmt.Fprintln(os.Stderr, Render(SectionStyle, title))
	fmt.Fprintln(os.Stderr, Render(MutedStyle, strings.Repeat("─", len(title)+2)))
}

// PrintKV writes an aligned label: value line to stderr unless silent.
func PrintKV(label, value string) {
	if IsSilent() {
		return
	}
	fmt.Fprintf(os.Stderr, "  %s %s\n", Render(LabelStyle, label), Render(ValueStyle, value))
}
