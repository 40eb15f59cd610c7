package parse

import (
	"testing"

	"github.com/scanhive/scanhive/pkg/finding"
)

func TestWapitiParseLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level    string
		want     finding.Severity
		wantCVSS float64
	}{
		{"3", finding.Critical, 9.5},
		{"2", finding.High, 7.5},
		{"1", finding.Medium, 5.0},
		{"0", finding.Low, 3.0},
		{"7", finding.Low, 3.0}, // out-of-range level
	}
	for _, tt := range tests {
		t.Run("level "+tt.level, func(t *testing.T) {
			t.Parallel()
			in := Input{Artifact: []byte(
				`{"vulnerabilities":{"Xss":[{"level":` + tt.level + `,"info":"found"}]}}`)}
			findings, _, err := Wapiti{}.Parse(in)
			if err != nil {
				t.Fatalf("Parse error: %v", err)
			}
			if len(findings) != 1 {
				t.Fatalf("got %d findings, want 1", len(findings))
			}
			if findings[0].Severity != tt.want {
				t.Errorf("severity = %q, want %q", findings[0].Severity, tt.want)
			}
			if findings[0].CVSSScore != tt.wantCVSS {
				t.Errorf("cvss = %v, want baseline %v", findings[0].CVSSScore, tt.wantCVSS)
			}
		})
	}
}

func TestWapitiParseClassNaming(t *testing.T) {
	t.Parallel()

	in := Input{Artifact: []byte(
		`{"vulnerabilities":{"SQL Injection":[{"level":3,"info":"id param concatenated into query"}]}}`)}

	findings, _, err := Wapiti{}.Parse(in)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	f := findings[0]
	if f.Name != "Wapiti: SQL Injection" {
		t.Errorf("name = %q", f.Name)
	}
	if f.Description != "id param concatenated into query" {
		t.Errorf("description = %q", f.Description)
	}
	if f.Tool != "wapiti" {
		t.Errorf("tool = %q", f.Tool)
	}
}

func TestWapitiParseReferences(t *testing.T) {
	t.Parallel()

	in := Input{Artifact: []byte(`{"vulnerabilities":{"Xss":[
		{"level":2,"info":"a","wstg":["WSTG-INPV-01","WSTG-INPV-02"],"cve":["CVE-2020-1234","CVE-2020-5678"]},
		{"level":2,"info":"b"}
	]}}`)}

	findings, _, err := Wapiti{}.Parse(in)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if findings[0].Reference != "WSTG-INPV-01" {
		t.Errorf("reference = %q, want first wstg entry", findings[0].Reference)
	}
	if findings[0].CVE != "CVE-2020-1234" {
		t.Errorf("cve = %q, want first cve entry", findings[0].CVE)
	}
	if findings[1].Reference != "" || findings[1].CVE != "" {
		t.Errorf("entry without refs got %q / %q", findings[1].Reference, findings[1].CVE)
	}
	if findings[1].Description != "b" {
		t.Errorf("description = %q", findings[1].Description)
	}
}

func TestWapitiParseClassesSorted(t *testing.T) {
	t.Parallel()

	// Go map iteration is randomized; class order must not be.
	in := Input{Artifact: []byte(`{"vulnerabilities":{
		"Xss":[{"level":1,"info":"x"}],
		"Backup file":[{"level":1,"info":"b"}],
		"SQL Injection":[{"level":1,"info":"s"}]
	}}`)}

	for run := 0; run < 10; run++ {
		findings, _, err := Wapiti{}.Parse(in)
		if err != nil {
			t.Fatalf("Parse error: %v", err)
		}
		if len(findings) != 3 {
			t.Fatalf("got %d findings, want 3", len(findings))
		}
		got := []string{findings[0].Name, findings[1].Name, findings[2].Name}
		want := []string{"Wapiti: Backup file", "Wapiti: SQL Injection", "Wapiti: Xss"}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("run %d: order = %v, want %v", run, got, want)
			}
		}
	}
}

func TestWapitiParseEmptyClasses(t *testing.T) {
	t.Parallel()

	in := Input{Artifact: []byte(`{"vulnerabilities":{"Xss":[],"CRLF":[]}}`)}

	findings, summary, err := Wapiti{}.Parse(in)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if len(findings) != 0 || summary.Total != 0 {
		t.Errorf("empty classes produced %d findings", len(findings))
	}
}
