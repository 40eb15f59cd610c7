package parse

import (
	"bytes"
	"fmt"

	"github.com/scanhive/scanhive/pkg/finding"
	"github.com/scanhive/scanhive/pkg/jsonutil"
)

// SSLyze parses sslyze's --json_out artifact. Each probe that
// completed with a positive result maps to one finding with a fixed
// severity: deprecated protocols (SSL 2.0 critical, SSL 3.0 high,
// TLS 1.0/1.1 medium), Heartbleed critical, CCS injection high, and
// failed certificate chain validation high.
type SSLyze struct{}

func (SSLyze) Tool() string { return "sslyze" }

const sslyzeCompleted = "COMPLETED"

const (
	sslyzeRefSSL2          = "https://tools.ietf.org/html/rfc6176"
	sslyzeRefPOODLE        = "https://cve.mitre.org/cgi-bin/cvename.cgi?name=CVE-2014-3566"
	sslyzeRefDeprecatedTLS = "https://tools.ietf.org/html/rfc8996"
	sslyzeRefHeartbleed    = "https://heartbleed.com/"
	sslyzeRefCCSInjection  = "https://cve.mitre.org/cgi-bin/cvename.cgi?name=CVE-2014-0224"
)

type sslyzeReport struct {
	ServerScanResults []sslyzeServerScan `json:"server_scan_results"`
}

type sslyzeServerScan struct {
	ScanResult *sslyzeScanResult `json:"scan_result"`
}

type sslyzeScanResult struct {
	SSL20           sslyzeCipherAttempt `json:"ssl_2_0_cipher_suites"`
	SSL30           sslyzeCipherAttempt `json:"ssl_3_0_cipher_suites"`
	TLS10           sslyzeCipherAttempt `json:"tls_1_0_cipher_suites"`
	TLS11           sslyzeCipherAttempt `json:"tls_1_1_cipher_suites"`
	Heartbleed      sslyzeVulnAttempt   `json:"heartbleed"`
	CCSInjection    sslyzeVulnAttempt   `json:"openssl_ccs_injection"`
	CertificateInfo sslyzeCertAttempt   `json:"certificate_info"`
}

type sslyzeCipherAttempt struct {
	Status string              `json:"status"`
	Result *sslyzeCipherSuites `json:"result"`
}

type sslyzeCipherSuites struct {
	AcceptedCipherSuites []map[string]any `json:"accepted_cipher_suites"`
}

func (a sslyzeCipherAttempt) accepted() int {
	if a.Status != sslyzeCompleted || a.Result == nil {
		return 0
	}
	return len(a.Result.AcceptedCipherSuites)
}

type sslyzeVulnAttempt struct {
	Status string            `json:"status"`
	Result *sslyzeVulnResult `json:"result"`
}

type sslyzeVulnResult struct {
	VulnerableToHeartbleed   bool `json:"is_vulnerable_to_heartbleed"`
	VulnerableToCCSInjection bool `json:"is_vulnerable_to_ccs_injection"`
}

type sslyzeCertAttempt struct {
	Status string          `json:"status"`
	Result *sslyzeCertInfo `json:"result"`
}

type sslyzeCertInfo struct {
	CertificateDeployments []sslyzeCertDeployment `json:"certificate_deployments"`
}

type sslyzeCertDeployment struct {
	PathValidationResults []sslyzePathValidation `json:"path_validation_results"`
}

type sslyzePathValidation struct {
	WasValidationSuccessful bool   `json:"was_validation_successful"`
	VerifyString            string `json:"verify_string"`
}

func (SSLyze) Parse(in Input) ([]finding.Finding, finding.Summary, error) {
	data := in.Artifact
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, finding.Summary{}, nil
	}

	var report sslyzeReport
	if err := jsonutil.Unmarshal(data, &report); err != nil {
		return nil, finding.Summary{}, fmt.Errorf(
			"%w: sslyze artifact %s (%d bytes): %v",
			finding.ErrParse, in.ArtifactPath, len(data), err)
	}

	var findings []finding.Finding
	for _, server := range report.ServerScanResults {
		if server.ScanResult == nil {
			continue
		}
		findings = sslyzeFindings(findings, server.ScanResult)
	}

	return findings, finding.Tally(findings), nil
}

func sslyzeFindings(findings []finding.Finding, sr *sslyzeScanResult) []finding.Finding {
	protocolChecks := []struct {
		attempt  sslyzeCipherAttempt
		severity finding.Severity
		name     string
		protocol string
		ref      string
		cve      string
		cvss     float64
	}{
		{sr.SSL20, finding.Critical, "SSL 2.0 Enabled", "SSL 2.0", sslyzeRefSSL2, "CWE-327", 7.5},
		{sr.SSL30, finding.High, "SSL 3.0 Enabled (POODLE)", "SSL 3.0", sslyzeRefPOODLE, "CVE-2014-3566", 3.4},
		{sr.TLS10, finding.Medium, "TLS 1.0 Enabled", "TLS 1.0", sslyzeRefDeprecatedTLS, "CWE-327", 5.0},
		{sr.TLS11, finding.Medium, "TLS 1.1 Enabled", "TLS 1.1", sslyzeRefDeprecatedTLS, "CWE-327", 5.0},
	}

	for _, check := range protocolChecks {
		n := check.attempt.accepted()
		if n == 0 {
			continue
		}
		findings = appendCapped(findings, finding.Finding{
			Severity:    check.severity,
			Tool:        "sslyze",
			Name:        check.name,
			Description: fmt.Sprintf("Server supports deprecated %s protocol with %d cipher suites", check.protocol, n),
			Reference:   check.ref,
			CVE:         check.cve,
			CVSSScore:   check.cvss,
		})
	}

	hb := sr.Heartbleed
	if hb.Status == sslyzeCompleted && hb.Result != nil && hb.Result.VulnerableToHeartbleed {
		findings = appendCapped(findings, finding.Finding{
			Severity:    finding.Critical,
			Tool:        "sslyze",
			Name:        "Heartbleed Vulnerability",
			Description: "Server is vulnerable to the Heartbleed attack (CVE-2014-0160)",
			Reference:   sslyzeRefHeartbleed,
			CVE:         "CVE-2014-0160",
			CVSSScore:   7.5,
		})
	}

	ccs := sr.CCSInjection
	if ccs.Status == sslyzeCompleted && ccs.Result != nil && ccs.Result.VulnerableToCCSInjection {
		findings = appendCapped(findings, finding.Finding{
			Severity:    finding.High,
			Tool:        "sslyze",
			Name:        "OpenSSL CCS Injection Vulnerability",
			Description: "Server is vulnerable to CCS Injection attack (CVE-2014-0224)",
			Reference:   sslyzeRefCCSInjection,
			CVE:         "CVE-2014-0224",
			CVSSScore:   6.8,
		})
	}

	if sr.CertificateInfo.Result != nil {
		for _, deployment := range sr.CertificateInfo.Result.CertificateDeployments {
			for _, validation := range deployment.PathValidationResults {
				if validation.WasValidationSuccessful {
					continue
				}
				reason := validation.VerifyString
				if reason == "" {
					reason = "Unknown error"
				}
				findings = appendCapped(findings, finding.Finding{
					Severity:    finding.High,
					Tool:        "sslyze",
					Name:        "Invalid Certificate Chain",
					Description: "Certificate validation failed: " + reason,
					CVE:         "CWE-295",
					CVSSScore:   7.4,
				})
			}
		}
	}

	return findings
}
