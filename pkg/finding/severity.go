package finding

// Severity represents the severity level of a security finding.
// All values are lowercase strings matching the tool-output
// convention every parser normalizes onto.
type Severity string

const (
	// Critical represents immediate system compromise (RCE, SQL injection confirmed).
	Critical Severity = "critical"

	// High represents significant impact requiring prompt fix (XSS, traversal).
	High Severity = "high"

	// Medium represents moderate impact (missing security headers, weak TLS).
	Medium Severity = "medium"

	// Low represents limited impact (verbose errors, minor info leak).
	Low Severity = "low"

	// Info represents informational findings with no direct security impact,
	// including downgraded false-positive signals kept for auditability.
	Info Severity = "info"
)

// Ordered returns all severities from most to least urgent.
// The slice is fresh on every call; callers may reorder it.
func Ordered() []Severity {
	return []Severity{Critical, High, Medium, Low, Info}
}

// IsValid reports whether s is a recognized severity level.
func (s Severity) IsValid() bool {
	switch s {
	case Critical, High, Medium, Low, Info:
		return true
	}
	return false
}

// Score returns a numeric score for sorting and comparison.
// Critical=5, High=4, Medium=3, Low=2, Info=1, Unknown=0.
func (s Severity) Score() int {
	switch s {
	case Critical:
		return 5
	case High:
		return 4
	case Medium:
		return 3
	case Low:
		return 2
	case Info:
		return 1
	default:
		return 0
	}
}

// String returns the severity as a string.
func (s Severity) String() string {
	return string(s)
}

// BaselineCVSS returns the representative CVSS score assigned when a
// tool reports a severity class without a score of its own.
// Critical → 9.5, High → 7.5, Medium → 5.0, Low → 3.0, Info → 0.0.
func (s Severity) BaselineCVSS() float64 {
	switch s {
	case Critical:
		return 9.5
	case High:
		return 7.5
	case Medium:
		return 5.0
	case Low:
		return 3.0
	default:
		return 0.0
	}
}

// ParseSeverity maps a tool-native severity word onto the taxonomy.
// Unrecognized values (including "unknown") map to Info so nothing a
// tool reports is ever dropped for vocabulary reasons alone.
func ParseSeverity(raw string) Severity {
	switch Severity(normalize(raw)) {
	case Critical:
		return Critical
	case High:
		return High
	case Medium:
		return Medium
	case Low:
		return Low
	default:
		return Info
	}
}

func normalize(raw string) string {
	b := []byte(raw)
	n := 0
	for _, c := range b {
		if c == ' ' || c == '\t' {
			continue
		}
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		b[n] = c
		n++
	}
	return string(b[:n])
}
