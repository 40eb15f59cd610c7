package parse

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/scanhive/scanhive/pkg/finding"
	"github.com/scanhive/scanhive/pkg/jsonutil"
)

// Nuclei parses nuclei's JSONL artifact (-jsonl -o file). One line is
// one template match. Severity strings pass through the five-level
// scale unchanged; anything unrecognized lands on info.
type Nuclei struct{}

func (Nuclei) Tool() string { return "nuclei" }

type nucleiLine struct {
	TemplateID string `json:"template-id"`
	MatchedAt  string `json:"matched-at"`
	// Severity appears at the top level in some nuclei export modes,
	// under info in the canonical one. Both are honored; info wins.
	Severity string `json:"severity"`
	Info     struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Severity    string `json:"severity"`
		Reference   any    `json:"reference"`
		Classification struct {
			CVEID     any     `json:"cve-id"`
			CVSSScore float64 `json:"cvss-score"`
		} `json:"classification"`
	} `json:"info"`
}

func (Nuclei) Parse(in Input) ([]finding.Finding, finding.Summary, error) {
	data := in.Artifact
	if len(bytes.TrimSpace(data)) == 0 {
		// No artifact means no template matched.
		return nil, finding.Summary{}, nil
	}

	var findings []finding.Finding
	dec := jsonutil.NewStreamDecoder(bytes.NewReader(data))
	for {
		var line nucleiLine
		err := dec.Decode(&line)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, finding.Summary{}, fmt.Errorf(
				"%w: nuclei artifact %s (%d bytes): %v",
				finding.ErrParse, in.ArtifactPath, len(data), err)
		}

		raw := line.Info.Severity
		if raw == "" {
			raw = line.Severity
		}

		name := line.Info.Name
		if name == "" {
			name = line.TemplateID
		}
		if name == "" {
			name = "Nuclei Finding"
		}

		desc := line.Info.Description
		if desc == "" {
			desc = "No description available"
		}

		f := finding.Finding{
			Severity:    finding.ParseSeverity(raw),
			Tool:        "nuclei",
			Name:        name,
			Description: desc,
			Reference:   firstString(line.Info.Reference),
			CVSSScore:   line.Info.Classification.CVSSScore,
		}
		if f.Reference == "" {
			f.Reference = line.MatchedAt
		}
		if cve := firstString(line.Info.Classification.CVEID); cve != "" {
			f.CVE = cve
		} else if strings.HasPrefix(strings.ToUpper(line.TemplateID), "CVE-") {
			f.CVE = strings.ToUpper(line.TemplateID)
		}

		findings = appendCapped(findings, f)
	}

	return findings, finding.Tally(findings), nil
}

// firstString coerces nuclei's string-or-array JSON fields into their
// first string value.
func firstString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []any:
		for _, item := range val {
			if s, ok := item.(string); ok {
				return s
			}
		}
	}
	return ""
}
