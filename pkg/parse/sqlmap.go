package parse

import (
	"strings"

	"github.com/scanhive/scanhive/pkg/finding"
)

// SQLMap parses sqlmap's stdout. sqlmap prints prose, not a report
// file, so detection is two fixed heuristics over the text:
//
//   - the summary banner "sqlmap identified the following injection"
//     confirms exploitable injection -> critical, CVSS 9.8
//   - each "Parameter: ... is vulnerable" line names one injectable
//     parameter -> high, CVSS 8.5
type SQLMap struct{}

func (SQLMap) Tool() string { return "sqlmap" }

const sqlInjectionReference = "https://owasp.org/www-community/attacks/SQL_Injection"

func (SQLMap) Parse(in Input) ([]finding.Finding, finding.Summary, error) {
	output := string(in.Stdout)
	lower := strings.ToLower(output)

	var findings []finding.Finding

	if strings.Contains(lower, "sqlmap identified the following injection") {
		findings = appendCapped(findings, finding.Finding{
			Severity:    finding.Critical,
			Tool:        "sqlmap",
			Name:        "SQL Injection Vulnerability Detected",
			Description: "SQLMap detected SQL injection vulnerabilities in the target application.",
			Reference:   sqlInjectionReference,
			CVSSScore:   9.8,
		})
	}

	if strings.Contains(lower, "parameter") && strings.Contains(lower, "injectable") {
		for _, line := range strings.Split(output, "\n") {
			if strings.Contains(line, "Parameter:") &&
				strings.Contains(strings.ToLower(line), "is vulnerable") {
				findings = appendCapped(findings, finding.Finding{
					Severity:    finding.High,
					Tool:        "sqlmap",
					Name:        "Injectable Parameter Found",
					Description: strings.TrimSpace(line),
					Reference:   sqlInjectionReference,
					CVSSScore:   8.5,
				})
			}
		}
	}

	return findings, finding.Tally(findings), nil
}
