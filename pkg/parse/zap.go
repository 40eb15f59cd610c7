package parse

import (
	"bytes"
	"fmt"

	"github.com/scanhive/scanhive/pkg/finding"
	"github.com/scanhive/scanhive/pkg/jsonutil"
)

// ZAP parses the JSON report written by zap-baseline.py -J. Alerts
// carry a numeric risk code mapped 1:1 onto the severity scale:
//
//	riskcode 3 -> high
//	riskcode 2 -> medium
//	riskcode 1 -> low
//	riskcode 0 -> info
//
// ZAP has no "critical" tier; unknown codes land on info.
type ZAP struct{}

func (ZAP) Tool() string { return "zap" }

var zapRiskSeverity = map[string]finding.Severity{
	"3": finding.High,
	"2": finding.Medium,
	"1": finding.Low,
	"0": finding.Info,
}

type zapReport struct {
	Site []struct {
		Alerts []zapAlert `json:"alerts"`
	} `json:"site"`
}

type zapAlert struct {
	RiskCode  string `json:"riskcode"`
	Risk      string `json:"risk"`
	Alert     string `json:"alert"`
	Desc      string `json:"desc"`
	Reference string `json:"reference"`
	CWEID     string `json:"cweid"`
}

func (ZAP) Parse(in Input) ([]finding.Finding, finding.Summary, error) {
	data := in.Artifact
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, finding.Summary{}, nil
	}

	var report zapReport
	if err := jsonutil.Unmarshal(data, &report); err != nil {
		return nil, finding.Summary{}, fmt.Errorf(
			"%w: zap artifact %s (%d bytes): %v",
			finding.ErrParse, in.ArtifactPath, len(data), err)
	}

	var findings []finding.Finding
	for _, site := range report.Site {
		for _, alert := range site.Alerts {
			code := alert.RiskCode
			if code == "" {
				// The daemon API reports "risk" instead of "riskcode".
				code = alert.Risk
			}
			severity, ok := zapRiskSeverity[code]
			if !ok {
				severity = finding.Info
			}

			name := alert.Alert
			if name == "" {
				name = "ZAP Alert"
			}
			desc := alert.Desc
			if desc == "" {
				desc = "No description available"
			}

			findings = appendCapped(findings, finding.Finding{
				Severity:    severity,
				Tool:        "zap",
				Name:        name,
				Description: desc,
				Reference:   alert.Reference,
				CVE:         alert.CWEID,
			})
		}
	}

	return findings, finding.Tally(findings), nil
}
