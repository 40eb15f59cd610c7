package parse

import (
	"testing"

	"github.com/scanhive/scanhive/pkg/finding"
)

func TestTestSSLParseSeverityPassthrough(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want finding.Severity
	}{
		{"CRITICAL", finding.Critical},
		{"HIGH", finding.High},
		{"MEDIUM", finding.Medium},
		{"LOW", finding.Low},
		{"OK", finding.Info},
		{"INFO", finding.Info},
		{"WARN", finding.Info},
		{"DEBUG", finding.Info},
		{"medium", finding.Medium}, // tolerant of case
		{"", finding.Info},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			in := Input{Artifact: []byte(
				`[{"id":"check","severity":"` + tt.raw + `","finding":"detail"}]`)}
			findings, _, err := TestSSL{}.Parse(in)
			if err != nil {
				t.Fatalf("Parse error: %v", err)
			}
			if len(findings) != 1 {
				t.Fatalf("got %d findings, want 1", len(findings))
			}
			if findings[0].Severity != tt.want {
				t.Errorf("severity(%q) = %q, want %q", tt.raw, findings[0].Severity, tt.want)
			}
		})
	}
}

func TestTestSSLParseFields(t *testing.T) {
	t.Parallel()

	in := Input{Artifact: []byte(`[
		{"id":"BEAST","severity":"MEDIUM","finding":"VULNERABLE -- but also supports higher protocols","cve":"CVE-2011-3389 CVE-2013-0169","cwe":"CWE-20"},
		{"id":"secure_renego","severity":"OK","finding":"supported","cwe":"CWE-310"},
		{"id":"banner_server","severity":"INFO"}
	]`)}

	findings, summary, err := TestSSL{}.Parse(in)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if len(findings) != 3 {
		t.Fatalf("got %d findings, want 3", len(findings))
	}

	beast := findings[0]
	if beast.Tool != "testssl" {
		t.Errorf("tool = %q", beast.Tool)
	}
	if beast.Name != "BEAST" {
		t.Errorf("name = %q, want check id", beast.Name)
	}
	// First of the space-packed CVE list wins.
	if beast.CVE != "CVE-2011-3389" {
		t.Errorf("cve = %q, want CVE-2011-3389", beast.CVE)
	}

	if findings[1].CVE != "CWE-310" {
		t.Errorf("cve = %q, want cwe fallback", findings[1].CVE)
	}
	if findings[2].Description != "No description available" {
		t.Errorf("description = %q, want fallback", findings[2].Description)
	}
	if summary.Medium != 1 || summary.Info != 2 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestTestSSLParseSkipsBlankEntries(t *testing.T) {
	t.Parallel()

	in := Input{Artifact: []byte(
		`[{"severity":"HIGH"},{"id":"real","severity":"LOW","finding":"x"}]`)}

	findings, _, err := TestSSL{}.Parse(in)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want blank entry skipped", len(findings))
	}
	if findings[0].Name != "real" {
		t.Errorf("name = %q", findings[0].Name)
	}
}
