package parse

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/scanhive/scanhive/pkg/finding"
	"github.com/scanhive/scanhive/pkg/jsonutil"
)

// TestSSL parses testssl.sh's --jsonfile artifact, a flat array of
// check entries. Severities pass through (LOW/MEDIUM/HIGH/CRITICAL);
// everything else (OK, INFO, DEBUG, WARN) records as info so a clean
// check never inflates the risk picture.
type TestSSL struct{}

func (TestSSL) Tool() string { return "testssl" }

type testsslEntry struct {
	ID       string `json:"id"`
	Severity string `json:"severity"`
	Finding  string `json:"finding"`
	CVE      string `json:"cve"`
	CWE      string `json:"cwe"`
}

func testsslSeverity(s string) finding.Severity {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CRITICAL":
		return finding.Critical
	case "HIGH":
		return finding.High
	case "MEDIUM":
		return finding.Medium
	case "LOW":
		return finding.Low
	default:
		return finding.Info
	}
}

func (TestSSL) Parse(in Input) ([]finding.Finding, finding.Summary, error) {
	data := in.Artifact
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, finding.Summary{}, nil
	}

	var entries []testsslEntry
	if err := jsonutil.Unmarshal(data, &entries); err != nil {
		return nil, finding.Summary{}, fmt.Errorf(
			"%w: testssl artifact %s (%d bytes): %v",
			finding.ErrParse, in.ArtifactPath, len(data), err)
	}

	var findings []finding.Finding
	for _, entry := range entries {
		if entry.ID == "" && entry.Finding == "" {
			continue
		}

		name := entry.ID
		if name == "" {
			name = "TestSSL Finding"
		}
		desc := entry.Finding
		if desc == "" {
			desc = "No description available"
		}

		// testssl packs multiple space-separated CVEs into one field.
		cve := entry.CVE
		if fields := strings.Fields(cve); len(fields) > 0 {
			cve = fields[0]
		}
		if cve == "" {
			cve = entry.CWE
		}

		findings = appendCapped(findings, finding.Finding{
			Severity:    testsslSeverity(entry.Severity),
			Tool:        "testssl",
			Name:        name,
			Description: desc,
			CVE:         cve,
		})
	}

	return findings, finding.Tally(findings), nil
}
