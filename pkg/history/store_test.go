package history

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/scanhive/scanhive/pkg/finding"
	"github.com/scanhive/scanhive/pkg/scan"
)

func sampleScan(id, target string, started time.Time) *scan.Result {
	done := started.Add(90 * time.Second)
	return &scan.Result{
		ScanID:      id,
		Target:      target,
		Status:      scan.StatusCompleted,
		StartedAt:   started,
		CompletedAt: &done,
		ToolRuns: []*scan.ToolRun{
			{
				Tool:      "nuclei",
				Category:  "quick",
				Target:    target,
				StartedAt: started,
				Status:    scan.RunSuccess,
				Findings: []finding.Finding{
					{
						Severity:    finding.Critical,
						Tool:        "nuclei",
						Name:        "CVE-2023-0001",
						Description: "remote code execution",
						CVE:         "CVE-2023-0001",
						CVSSScore:   9.8,
					},
				},
			},
		},
		Summary: finding.Summary{Critical: 1, Total: 1},
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestStoreSaveAndGet(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	want := sampleScan("scan-1", "https://example.com", started)

	if err := s.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Get("scan-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ScanID != want.ScanID || got.Target != want.Target {
		t.Errorf("round trip identity = (%s, %s), want (%s, %s)",
			got.ScanID, got.Target, want.ScanID, want.Target)
	}
	if got.Status != scan.StatusCompleted {
		t.Errorf("Status = %s, want %s", got.Status, scan.StatusCompleted)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(*want.CompletedAt) {
		t.Errorf("CompletedAt = %v, want %v", got.CompletedAt, want.CompletedAt)
	}
	if len(got.ToolRuns) != 1 {
		t.Fatalf("got %d tool runs, want 1", len(got.ToolRuns))
	}
	run := got.ToolRuns[0]
	if run.Tool != "nuclei" || run.Status != scan.RunSuccess {
		t.Errorf("run = (%s, %s), want (nuclei, success)", run.Tool, run.Status)
	}
	if len(run.Findings) != 1 || run.Findings[0].Name != "CVE-2023-0001" {
		t.Errorf("findings = %+v, want one CVE-2023-0001", run.Findings)
	}
	if got.Summary.Critical != 1 || got.Summary.Total != 1 {
		t.Errorf("Summary = %+v, want Critical=1 Total=1", got.Summary)
	}
}

func TestStoreGetUnknown(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	if _, err := s.Get("missing"); !errors.Is(err, finding.ErrNotFound) {
		t.Errorf("Get(missing) err = %v, want ErrNotFound", err)
	}
}

func TestStoreSaveRejectsInvalid(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	if err := s.Save(nil); err == nil {
		t.Error("Save(nil) succeeded, want error")
	}
	if err := s.Save(&scan.Result{}); err == nil {
		t.Error("Save(id-less) succeeded, want error")
	}
}

func TestStoreListNewestFirst(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		r := sampleScan(id, "https://example.com", base.Add(time.Duration(i)*time.Hour))
		if err := s.Save(r); err != nil {
			t.Fatalf("Save(%s): %v", id, err)
		}
	}

	entries := s.List(0)
	if len(entries) != 3 {
		t.Fatalf("List(0) returned %d entries, want 3", len(entries))
	}
	wantOrder := []string{"new", "mid", "old"}
	for i, want := range wantOrder {
		if entries[i].ScanID != want {
			t.Errorf("entries[%d].ScanID = %s, want %s", i, entries[i].ScanID, want)
		}
	}

	limited := s.List(2)
	if len(limited) != 2 || limited[0].ScanID != "new" || limited[1].ScanID != "mid" {
		t.Errorf("List(2) = %+v, want [new mid]", limited)
	}
}

func TestStoreListEntryFields(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := s.Save(sampleScan("scan-1", "https://example.com", started)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	entries := s.List(0)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Target != "https://example.com" {
		t.Errorf("Target = %s", e.Target)
	}
	if e.Status != scan.StatusCompleted {
		t.Errorf("Status = %s", e.Status)
	}
	if !e.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", e.StartedAt, started)
	}
	if e.Findings != 1 {
		t.Errorf("Findings = %d, want 1", e.Findings)
	}
}

func TestStoreDelete(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := s.Save(sampleScan("scan-1", "https://example.com", started)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := s.Delete("scan-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get("scan-1"); !errors.Is(err, finding.ErrNotFound) {
		t.Errorf("Get after delete err = %v, want ErrNotFound", err)
	}
	if err := s.Delete("scan-1"); !errors.Is(err, finding.ErrNotFound) {
		t.Errorf("second Delete err = %v, want ErrNotFound", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0", s.Len())
	}
}

func TestStorePruneKeepsNewest(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ids := []string{"a", "b", "c", "d", "e"}
	for i, id := range ids {
		r := sampleScan(id, "https://example.com", base.Add(time.Duration(i)*time.Minute))
		if err := s.Save(r); err != nil {
			t.Fatalf("Save(%s): %v", id, err)
		}
	}

	removed, err := s.Prune(2)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 3 {
		t.Errorf("removed = %d, want 3", removed)
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}

	entries := s.List(0)
	if entries[0].ScanID != "e" || entries[1].ScanID != "d" {
		t.Errorf("survivors = %+v, want [e d]", entries)
	}
	for _, id := range []string{"a", "b", "c"} {
		if _, err := s.Get(id); !errors.Is(err, finding.ErrNotFound) {
			t.Errorf("Get(%s) after prune err = %v, want ErrNotFound", id, err)
		}
	}
}

func TestStorePruneNoop(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := s.Save(sampleScan("scan-1", "https://example.com", started)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	removed, err := s.Prune(5)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 0 || s.Len() != 1 {
		t.Errorf("Prune(5) removed %d, Len %d; want 0, 1", removed, s.Len())
	}
}

func TestStoreReloadFromDisk(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s1, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := s1.Save(sampleScan("scan-1", "https://example.com", started)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	s2, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore reopen: %v", err)
	}
	if s2.Len() != 1 {
		t.Fatalf("reopened Len = %d, want 1", s2.Len())
	}
	got, err := s2.Get("scan-1")
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if got.Target != "https://example.com" {
		t.Errorf("Target = %s", got.Target)
	}
}

func TestStoreLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := s.Save(sampleScan("scan-1", "https://example.com", started)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("temp files left behind: %v", matches)
	}
	if _, err := os.Stat(filepath.Join(dir, "index.json")); err != nil {
		t.Errorf("index.json missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "scan-1.json")); err != nil {
		t.Errorf("scan-1.json missing: %v", err)
	}
}
