package parse

import (
	"strings"

	"github.com/scanhive/scanhive/pkg/finding"
)

// Free-text classification rules shared by the text-oriented parsers.
// Rule order is load-bearing: a downgrade predicate or informational
// phrase must win before any vulnerability keyword gets a chance, or
// a version-disclosure line would classify as an exploit.

// informationalPhrases mark disclosure and protective-control signals
// that stay info no matter what else the line contains.
var informationalPhrases = []string{
	"rate limit",
	"rate-limit",
	"429",
	"access denied",
	"version disclosure",
	"server banner",
	"informational",
	"information disclosure",
	"retrieved via",
	"retrieved x-powered-by",
}

// vulnerabilityKeywords escalate free text to high.
var vulnerabilityKeywords = []string{
	"injection",
	"traversal",
	"inclusion",
	"xxe",
	"ssrf",
	"backdoor",
}

// headerPhrases mark missing-security-header findings, escalated to
// medium.
var headerPhrases = []string{
	"x-frame-options",
	"x-content-type-options",
	"content-security-policy",
	"strict-transport-security",
	"security header",
	"anti-clickjacking",
}

// ClassifyText maps a free-text description onto the severity scale.
// Informational phrases win first, then vulnerability-class keywords
// (high), then missing-header phrases (medium); unmatched text is
// info. extraHigh and extraMedium extend the shared tables with
// tool-specific vocabulary at the same chain positions.
func ClassifyText(text string, extraHigh, extraMedium []string) finding.Severity {
	lower := strings.ToLower(text)

	if containsAny(lower, informationalPhrases) {
		return finding.Info
	}
	if containsAny(lower, vulnerabilityKeywords) || containsAny(lower, extraHigh) {
		return finding.High
	}
	if containsAny(lower, headerPhrases) || containsAny(lower, extraMedium) {
		return finding.Medium
	}
	return finding.Info
}

func containsAny(lower string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// Protective-control status codes. A hit answered with one of these
// is evidence the control works, not a vulnerability; the finding is
// kept at info so it stays auditable.

// IsRateLimited reports an HTTP 429 answer.
func IsRateLimited(status int) bool { return status == 429 }

// IsAccessDenied reports an auth-refusal answer.
func IsAccessDenied(status int) bool { return status == 401 || status == 403 }
