package parse

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/scanhive/scanhive/pkg/finding"
)

// Nikto parses nikto's output. Findings are the "+"-prefixed lines,
// taken from the HTML report artifact when one was written (text
// extracted with a tolerant tree parser) or from the captured streams
// otherwise. Severity comes from keyword classification of the line:
// nikto itself reports no levels.
type Nikto struct{}

func (Nikto) Tool() string { return "nikto" }

const niktoReference = "https://cirt.net/nikto2"

// Tool-specific vocabulary extending the shared classification chain.
var (
	niktoHighKeywords   = []string{"vulnerability", "exploit", "critical"}
	niktoMediumKeywords = []string{"outdated", "misconfiguration", "warning"}
)

func (Nikto) Parse(in Input) ([]finding.Finding, finding.Summary, error) {
	var text string
	if len(bytes.TrimSpace(in.Artifact)) > 0 {
		extracted, err := htmlText(in.Artifact)
		if err != nil {
			return nil, finding.Summary{}, fmt.Errorf(
				"%w: nikto artifact %s (%d bytes): %v",
				finding.ErrParse, in.ArtifactPath, len(in.Artifact), err)
		}
		text = extracted
	} else {
		text = string(in.Stdout) + "\n" + string(in.Stderr)
	}

	var findings []finding.Finding
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "+") {
			continue
		}
		description := strings.TrimSpace(strings.TrimPrefix(line, "+"))
		if description == "" {
			continue
		}

		findings = appendCapped(findings, finding.Finding{
			Severity:    ClassifyText(description, niktoHighKeywords, niktoMediumKeywords),
			Tool:        "nikto",
			Name:        "Nikto Finding",
			Description: description,
			Reference:   niktoReference,
		})
	}

	return findings, finding.Tally(findings), nil
}

// htmlText extracts the visible text of an HTML document, one node
// per line. html.Parse tolerates the malformed markup nikto emits.
func htmlText(data []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if trimmed := strings.TrimSpace(n.Data); trimmed != "" {
				b.WriteString(trimmed)
				b.WriteByte('\n')
			}
		}
		// Script and style bodies are not findings.
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return b.String(), nil
}
