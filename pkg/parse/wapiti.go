package parse

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/scanhive/scanhive/pkg/finding"
	"github.com/scanhive/scanhive/pkg/jsonutil"
)

// Wapiti parses wapiti's JSON report (-f json). Vulnerabilities are
// grouped by class name; each entry carries a numeric level:
//
//	level 3 -> critical
//	level 2 -> high
//	level 1 -> medium
//	other   -> low
//
// Wapiti supplies no CVSS, so each finding gets the baseline score
// for its severity.
type Wapiti struct{}

func (Wapiti) Tool() string { return "wapiti" }

type wapitiReport struct {
	Vulnerabilities map[string][]wapitiVuln `json:"vulnerabilities"`
}

type wapitiVuln struct {
	Level int      `json:"level"`
	Info  string   `json:"info"`
	WSTG  []string `json:"wstg"`
	CVE   []string `json:"cve"`
}

func wapitiSeverity(level int) finding.Severity {
	switch level {
	case 3:
		return finding.Critical
	case 2:
		return finding.High
	case 1:
		return finding.Medium
	default:
		return finding.Low
	}
}

func (Wapiti) Parse(in Input) ([]finding.Finding, finding.Summary, error) {
	data := in.Artifact
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, finding.Summary{}, nil
	}

	var report wapitiReport
	if err := jsonutil.Unmarshal(data, &report); err != nil {
		return nil, finding.Summary{}, fmt.Errorf(
			"%w: wapiti artifact %s (%d bytes): %v",
			finding.ErrParse, in.ArtifactPath, len(data), err)
	}

	// Map iteration order is random; sort the classes so identical
	// input yields an identical finding sequence.
	classes := make([]string, 0, len(report.Vulnerabilities))
	for class := range report.Vulnerabilities {
		classes = append(classes, class)
	}
	sort.Strings(classes)

	var findings []finding.Finding
	for _, class := range classes {
		for _, vuln := range report.Vulnerabilities[class] {
			severity := wapitiSeverity(vuln.Level)

			desc := vuln.Info
			if desc == "" {
				desc = "No description available"
			}

			f := finding.Finding{
				Severity:    severity,
				Tool:        "wapiti",
				Name:        "Wapiti: " + class,
				Description: desc,
				CVSSScore:   severity.BaselineCVSS(),
			}
			if len(vuln.WSTG) > 0 {
				f.Reference = vuln.WSTG[0]
			}
			if len(vuln.CVE) > 0 {
				f.CVE = vuln.CVE[0]
			}

			findings = appendCapped(findings, f)
		}
	}

	return findings, finding.Tally(findings), nil
}
