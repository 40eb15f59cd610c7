package parse

import (
	"bytes"
	"fmt"

	"github.com/scanhive/scanhive/pkg/finding"
	"github.com/scanhive/scanhive/pkg/jsonutil"
)

// FFUF parses ffuf's JSON artifact (-o file -of json). Every result
// is a discovered path; the answering status code decides how much
// exposure it proves:
//
//	401, 403   -> info   (access control answered; protective)
//	429        -> info   (rate limiting answered; protective)
//	2xx        -> medium (content served)
//	3xx        -> low    (redirect; exposure unconfirmed)
//	other      -> info
//
// The protective downgrades run before the generic buckets so a 403
// can never classify as exposure.
type FFUF struct{}

func (FFUF) Tool() string { return "ffuf" }

type ffufReport struct {
	Results []ffufResult `json:"results"`
}

type ffufResult struct {
	URL    string            `json:"url"`
	Status int               `json:"status"`
	Length int               `json:"length"`
	Input  map[string]string `json:"input"`
}

func ffufSeverity(status int) finding.Severity {
	switch {
	case IsAccessDenied(status), IsRateLimited(status):
		return finding.Info
	case status >= 200 && status < 300:
		return finding.Medium
	case status >= 300 && status < 400:
		return finding.Low
	default:
		return finding.Info
	}
}

func (FFUF) Parse(in Input) ([]finding.Finding, finding.Summary, error) {
	data := in.Artifact
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, finding.Summary{}, nil
	}

	var report ffufReport
	if err := jsonutil.Unmarshal(data, &report); err != nil {
		return nil, finding.Summary{}, fmt.Errorf(
			"%w: ffuf artifact %s (%d bytes): %v",
			finding.ErrParse, in.ArtifactPath, len(data), err)
	}

	var findings []finding.Finding
	for _, result := range report.Results {
		path := result.Input["FUZZ"]
		if path == "" {
			path = result.URL
		}

		severity := ffufSeverity(result.Status)

		var desc string
		switch {
		case IsRateLimited(result.Status):
			desc = fmt.Sprintf("Path %q answered HTTP 429: rate limiting is active (protective control, not a vulnerability).", path)
		case IsAccessDenied(result.Status):
			desc = fmt.Sprintf("Path %q answered HTTP %d: access control denied the request (protective control, not a vulnerability).", path, result.Status)
		default:
			desc = fmt.Sprintf("Path %q answered HTTP %d (%d bytes).", path, result.Status, result.Length)
		}

		findings = appendCapped(findings, finding.Finding{
			Severity:    severity,
			Tool:        "ffuf",
			Name:        "Discovered Path: " + path,
			Description: desc,
			Reference:   result.URL,
		})
	}

	return findings, finding.Tally(findings), nil
}
