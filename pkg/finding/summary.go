package finding

// Summary tallies findings per severity. It is always derived by
// folding over finding lists, never maintained as standalone counters,
// so it cannot drift from the findings it describes.
type Summary struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Info     int `json:"info"`
	Total    int `json:"total"`
}

// Tally derives a summary from a finding list.
func Tally(findings []Finding) Summary {
	var s Summary
	for _, f := range findings {
		s.Add(f.Severity)
	}
	return s
}

// Add counts one finding of the given severity. Unknown severities
// count toward Info, matching ParseSeverity.
func (s *Summary) Add(sev Severity) {
	switch sev {
	case Critical:
		s.Critical++
	case High:
		s.High++
	case Medium:
		s.Medium++
	case Low:
		s.Low++
	default:
		s.Info++
	}
	s.Total++
}

// Merge folds other into s.
func (s *Summary) Merge(other Summary) {
	s.Critical += other.Critical
	s.High += other.High
	s.Medium += other.Medium
	s.Low += other.Low
	s.Info += other.Info
	s.Total += other.Total
}

// Count returns the bucket for one severity.
func (s Summary) Count(sev Severity) int {
	switch sev {
	case Critical:
		return s.Critical
	case High:
		return s.High
	case Medium:
		return s.Medium
	case Low:
		return s.Low
	case Info:
		return s.Info
	}
	return 0
}
