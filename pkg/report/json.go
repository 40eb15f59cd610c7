package report

import (
	"fmt"

	"github.com/scanhive/scanhive/pkg/jsonutil"
)

// renderJSON encodes the full report document. Every finding field
// survives a decode of the output; nothing is grouped or collapsed.
func renderJSON(rep *Report) ([]byte, error) {
	data, err := jsonutil.MarshalIndent(rep, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode report json: %w", err)
	}
	return append(data, '\n'), nil
}
