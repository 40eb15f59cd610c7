package parse

import (
	"fmt"
	"strings"

	"github.com/scanhive/scanhive/pkg/finding"
)

// XSStrike parses xsstrike's stdout. Like sqlmap it reports in prose;
// two heuristics cover its vocabulary:
//
//   - "XSS" together with "detected" -> high, CVSS 7.5, with the
//     occurrence count as evidence
//   - "reflected" -> high, CVSS 7.0 (reflected XSS called out
//     separately by the tool)
type XSStrike struct{}

func (XSStrike) Tool() string { return "xsstrike" }

const xssReference = "https://owasp.org/www-community/attacks/xss/"

func (XSStrike) Parse(in Input) ([]finding.Finding, finding.Summary, error) {
	output := string(in.Stdout)
	lower := strings.ToLower(output)

	var findings []finding.Finding

	if strings.Contains(output, "XSS") && strings.Contains(lower, "detected") {
		count := strings.Count(lower, "xss")
		findings = appendCapped(findings, finding.Finding{
			Severity: finding.High,
			Tool:     "xsstrike",
			Name:     "Cross-Site Scripting (XSS) Vulnerability Detected",
			Description: fmt.Sprintf(
				"XSStrike detected %d potential XSS vulnerability points in the target application.", count),
			Reference: xssReference,
			CVSSScore: 7.5,
		})
	}

	if strings.Contains(lower, "reflected") {
		findings = appendCapped(findings, finding.Finding{
			Severity:    finding.High,
			Tool:        "xsstrike",
			Name:        "Reflected XSS Vulnerability",
			Description: "Reflected XSS vulnerability detected where user input is immediately returned by the application.",
			Reference:   xssReference + "#reflected-xss-attacks",
			CVSSScore:   7.0,
		})
	}

	return findings, finding.Tally(findings), nil
}
