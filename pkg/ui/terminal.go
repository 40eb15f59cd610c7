package ui

import (
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var (
	uiMu        sync.RWMutex
	noColorMode bool
	silentMode  bool
)

// SetNoColor disables styled output globally.
func SetNoColor(noColor bool) {
	uiMu.Lock()
	noColorMode = noColor
	uiMu.Unlock()
	if noColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// NoColor reports whether styled output is disabled, either
// explicitly or because stdout is not a terminal.
func NoColor() bool {
	uiMu.RLock()
	defer uiMu.RUnlock()
	if noColorMode {
		return true
	}
	if os.Getenv("NO_COLOR") != "" {
		return true
	}
	return !term.IsTerminal(int(os.Stdout.Fd()))
}

// SetSilent suppresses decorative output (banner, progress chatter).
// Findings and errors still print.
func SetSilent(silent bool) {
	uiMu.Lock()
	defer uiMu.Unlock()
	silentMode = silent
}

// IsSilent reports whether decorative output is suppressed.
func IsSilent() bool {
	uiMu.RLock()
	defer uiMu.RUnlock()
	return silentMode
}

// Render applies style to s unless color is disabled.
func Render(style lipgloss.Style, s string) string {
	if NoColor() {
		return s
	}
	return style.Render(s)
}

// Bracket wraps s in muted brackets, nuclei-style: [s].
func Bracket(style lipgloss.Style, s string) string {
	return Render(BracketStyle, "[") + Render(style, s) + Render(BracketStyle, "]")
}
