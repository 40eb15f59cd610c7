package finding

import (
	"encoding/json"
	"sort"
	"testing"
)

func TestSeverityIsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		s    Severity
		want bool
	}{
		{Critical, true},
		{High, true},
		{Medium, true},
		{Low, true},
		{Info, true},
		{"Unknown", false},
		{"", false},
		{"CRITICAL", false}, // case-sensitive
		{"Critical", false}, // must be lowercase
	}
	for _, tt := range tests {
		t.Run(string(tt.s), func(t *testing.T) {
			t.Parallel()
			if got := tt.s.IsValid(); got != tt.want {
				t.Errorf("Severity(%q).IsValid() = %v, want %v", tt.s, got, tt.want)
			}
		})
	}
}

func TestSeverityScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		s    Severity
		want int
	}{
		{Critical, 5},
		{High, 4},
		{Medium, 3},
		{Low, 2},
		{Info, 1},
		{"Unknown", 0},
		{"", 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.s), func(t *testing.T) {
			t.Parallel()
			if got := tt.s.Score(); got != tt.want {
				t.Errorf("Severity(%q).Score() = %d, want %d", tt.s, got, tt.want)
			}
		})
	}
}

func TestSeveritySortOrder(t *testing.T) {
	t.Parallel()

	input := []Severity{Low, Critical, Medium, Info, High}
	sort.Slice(input, func(i, j int) bool {
		return input[i].Score() > input[j].Score()
	})
	expected := Ordered()
	for i, s := range input {
		if s != expected[i] {
			t.Errorf("pos %d: got %s, want %s", i, s, expected[i])
		}
	}
}

func TestSeverityJSON(t *testing.T) {
	t.Parallel()

	original := Critical
	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `"critical"` {
		t.Errorf("got %s, want %q", data, "critical")
	}

	var decoded Severity
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != original {
		t.Errorf("roundtrip: got %s, want %s", decoded, original)
	}
}

func TestParseSeverity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want Severity
	}{
		{"critical", Critical},
		{"CRITICAL", Critical},
		{"High", High},
		{" medium ", Medium},
		{"low", Low},
		{"info", Info},
		{"informational", Info},
		{"unknown", Info},
		{"", Info},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			if got := ParseSeverity(tt.raw); got != tt.want {
				t.Errorf("ParseSeverity(%q) = %s, want %s", tt.raw, got, tt.want)
			}
		})
	}
}

func TestBaselineCVSS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		s    Severity
		want float64
	}{
		{Critical, 9.5},
		{High, 7.5},
		{Medium, 5.0},
		{Low, 3.0},
		{Info, 0.0},
	}
	for _, tt := range tests {
		t.Run(string(tt.s), func(t *testing.T) {
			t.Parallel()
			if got := tt.s.BaselineCVSS(); got != tt.want {
				t.Errorf("Severity(%q).BaselineCVSS() = %.1f, want %.1f", tt.s, got, tt.want)
			}
		})
	}
}
