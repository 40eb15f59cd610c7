// Package finding provides the normalized security finding types
// shared by every tool parser and the scan aggregate.
//
// Each external scanner reports issues in its own vocabulary; the
// parsers map those onto the single Finding shape and the five-level
// Severity taxonomy defined here, so the coordinator, report builder,
// and API never see a tool-specific format.
//
// Usage:
//
//	f := finding.Finding{
//	    Severity: finding.High,
//	    Tool:     "nuclei",
//	    Name:     "CVE-2023-0001",
//	}.Clamped()
package finding
