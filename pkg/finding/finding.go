package finding

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spaolacci/murmur3"

	"github.com/scanhive/scanhive/pkg/defaults"
)

// Finding is one normalized security observation produced by a tool
// parser. Findings are immutable once created; identity is positional,
// so the same logical vulnerability reported by two tools appears
// twice. The JSON field names are a stable external contract.
type Finding struct {
	Severity    Severity `json:"severity"`
	Tool        string   `json:"tool"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Reference   string   `json:"reference,omitempty"`
	CVE         string   `json:"cve,omitempty"`
	CVSSScore   float64  `json:"cvss_score,omitempty"`
}

// Clamped returns a copy with Name and Description capped to the
// canonical limits. Parsers call this on every finding they emit so
// verbose tool output can never grow the aggregate without bound.
func (f Finding) Clamped() Finding {
	f.Name = Truncate(f.Name, defaults.TitleLimit)
	f.Description = Truncate(f.Description, defaults.EvidenceLimit)
	return f
}

// Validate reports the first structural problem with the finding.
func (f Finding) Validate() error {
	if !f.Severity.IsValid() {
		return fmt.Errorf("%w: severity %q", ErrValidation, f.Severity)
	}
	if strings.TrimSpace(f.Tool) == "" {
		return fmt.Errorf("%w: empty tool", ErrValidation)
	}
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("%w: empty name", ErrValidation)
	}
	if f.CVSSScore < 0 || f.CVSSScore > 10 {
		return fmt.Errorf("%w: cvss_score %.1f outside 0.0-10.0", ErrValidation, f.CVSSScore)
	}
	return nil
}

// Fingerprint returns a stable non-cryptographic hash over the fields
// that identify a finding across renders. Used for report grouping
// only; the canonical finding sequence is never deduplicated.
func (f Finding) Fingerprint() string {
	h := murmur3.New64()
	h.Write([]byte(f.Tool))
	h.Write([]byte{0})
	h.Write([]byte(f.Name))
	h.Write([]byte{0})
	h.Write([]byte(f.Description))
	return fmt.Sprintf("%016x", h.Sum64())
}

// Truncate caps s at max runes, marking the cut with an ellipsis.
// Valid UTF-8 stays valid.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
