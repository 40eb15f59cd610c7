// Package parse turns raw scanner output into normalized findings.
// One parser exists per tool family; each owns the severity mapping
// table for its tool's native vocabulary and the false-positive
// downgrade predicates for its signal shapes. Parsing is pure: the
// same bytes always yield the same finding sequence.
package parse

import (
	"bytes"
	"sort"

	"github.com/scanhive/scanhive/pkg/defaults"
	"github.com/scanhive/scanhive/pkg/finding"
)

// Input carries one tool run's raw output to its parser. Artifact
// holds the contents of the tool's output file when the tool writes
// one; Stdout/Stderr hold captured streams otherwise.
type Input struct {
	Stdout   []byte
	Stderr   []byte
	Artifact []byte

	// ArtifactPath names the artifact origin for diagnostics only.
	ArtifactPath string
}

// Empty reports whether the input holds nothing parseable. An absent
// or empty artifact is not an error: the tool legitimately found
// nothing.
func (in Input) Empty() bool {
	return len(bytes.TrimSpace(in.Artifact)) == 0 &&
		len(bytes.TrimSpace(in.Stdout)) == 0 &&
		len(bytes.TrimSpace(in.Stderr)) == 0
}

// Parser consumes one tool's raw output and produces normalized
// findings plus their severity tally. Implementations must be
// idempotent: byte-identical input yields identical output.
type Parser interface {
	// Tool returns the identifier of the scanner this parser accepts.
	Tool() string

	// Parse extracts findings. Missing or empty input yields an empty
	// slice and no error. Corrupt input yields finding.ErrParse with
	// size diagnostics.
	Parse(in Input) ([]finding.Finding, finding.Summary, error)
}

var parsers = func() map[string]Parser {
	m := make(map[string]Parser)
	for _, p := range []Parser{
		&Nuclei{},
		&ZAP{},
		&Nikto{},
		&Wapiti{},
		&SQLMap{},
		&XSStrike{},
		&FFUF{},
		&SSLyze{},
		&TestSSL{},
	} {
		m[p.Tool()] = p
	}
	return m
}()

// For returns the parser for a tool identifier.
func For(tool string) (Parser, bool) {
	p, ok := parsers[tool]
	return p, ok
}

// Tools returns all registered tool identifiers, sorted.
func Tools() []string {
	out := make([]string, 0, len(parsers))
	for tool := range parsers {
		out = append(out, tool)
	}
	sort.Strings(out)
	return out
}

// appendCapped adds f (clamped) to findings unless the per-run cap is
// reached. Bounds memory against tools that emit unbounded output.
func appendCapped(findings []finding.Finding, f finding.Finding) []finding.Finding {
	if len(findings) >= defaults.MaxFindingsPerRun {
		return findings
	}
	return append(findings, f.Clamped())
}
