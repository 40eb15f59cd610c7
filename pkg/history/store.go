// Package history persists finished scans as JSON files: one file
// per scan plus an index carrying just enough for listings. Index
// writes go through a temp file and rename so a crash mid-write can
// never leave a corrupt index behind.
package history

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/scanhive/scanhive/pkg/finding"
	"github.com/scanhive/scanhive/pkg/jsonutil"
	"github.com/scanhive/scanhive/pkg/scan"
)

// Entry is one index row. Listings never load full scan files.
type Entry struct {
	ScanID      string      `json:"scan_id"`
	Target      string      `json:"target"`
	Status      scan.Status `json:"status"`
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	Findings    int         `json:"findings"`
}

type storeIndex struct {
	Scans map[string]Entry `json:"scans"`
}

// Store manages scan persistence under one directory.
type Store struct {
	mu    sync.RWMutex
	dir   string
	index storeIndex
}

// NewStore opens (creating if needed) a store at dir and loads the
// existing index.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("history: creating store dir: %w", err)
	}

	s := &Store{
		dir:   dir,
		index: storeIndex{Scans: make(map[string]Entry)},
	}
	if err := s.loadIndex(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("history: loading index: %w", err)
	}
	return s, nil
}

func (s *Store) indexPath() string {
	return filepath.Join(s.dir, "index.json")
}

func (s *Store) recordPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *Store) loadIndex() error {
	data, err := os.ReadFile(s.indexPath())
	if err != nil {
		return err
	}
	return jsonutil.Unmarshal(data, &s.index)
}

// saveIndex persists the index atomically. Callers hold s.mu.
func (s *Store) saveIndex() error {
	data, err := jsonutil.MarshalIndent(s.index, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(s.indexPath(), data)
}

// writeAtomic writes through a temp file and rename.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// Save stores one scan and updates the index. The caller keeps
// ownership of result; Save reads it without retaining it.
func (s *Store) Save(result *scan.Result) error {
	if result == nil || result.ScanID == "" {
		return errors.New("history: nil or id-less scan")
	}

	data, err := jsonutil.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("history: encoding scan %s: %w", result.ScanID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeAtomic(s.recordPath(result.ScanID), data); err != nil {
		return fmt.Errorf("history: writing scan %s: %w", result.ScanID, err)
	}

	s.index.Scans[result.ScanID] = Entry{
		ScanID:      result.ScanID,
		Target:      result.Target,
		Status:      result.Status,
		StartedAt:   result.StartedAt,
		CompletedAt: result.CompletedAt,
		Findings:    result.Summary.Total,
	}
	return s.saveIndex()
}

// Get loads one stored scan.
func (s *Store) Get(id string) (*scan.Result, error) {
	s.mu.RLock()
	_, ok := s.index.Scans[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: scan %q", finding.ErrNotFound, id)
	}

	data, err := os.ReadFile(s.recordPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: scan %q", finding.ErrNotFound, id)
		}
		return nil, fmt.Errorf("history: reading scan %s: %w", id, err)
	}

	var result scan.Result
	if err := jsonutil.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("history: decoding scan %s: %w", id, err)
	}
	return &result, nil
}

// List returns index entries newest-first. limit <= 0 means all.
func (s *Store) List(limit int) []Entry {
	s.mu.RLock()
	entries := make([]Entry, 0, len(s.index.Scans))
	for _, e := range s.index.Scans {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].StartedAt.Equal(entries[j].StartedAt) {
			return entries[i].ScanID < entries[j].ScanID
		}
		return entries[i].StartedAt.After(entries[j].StartedAt)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// Len returns the number of stored scans.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.index.Scans)
}

// Delete removes one scan and its record file.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index.Scans[id]; !ok {
		return fmt.Errorf("%w: scan %q", finding.ErrNotFound, id)
	}
	if err := os.Remove(s.recordPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("history: removing scan %s: %w", id, err)
	}
	delete(s.index.Scans, id)
	return s.saveIndex()
}

// Prune keeps the newest keep scans and removes the rest, returning
// how many were removed.
func (s *Store) Prune(keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.index.Scans) <= keep {
		return 0, nil
	}

	entries := make([]Entry, 0, len(s.index.Scans))
	for _, e := range s.index.Scans {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].StartedAt.After(entries[j].StartedAt)
	})

	removed := 0
	for _, e := range entries[keep:] {
		if err := os.Remove(s.recordPath(e.ScanID)); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("history: pruning scan %s: %w", e.ScanID, err)
		}
		delete(s.index.Scans, e.ScanID)
		removed++
	}
	if removed > 0 {
		if err := s.saveIndex(); err != nil {
			return removed, err
		}
	}
	return removed, nil
}
