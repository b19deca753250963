package patient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// DirStore serves records from a directory of <patient_id>.json files. The
// directory is read once at construction; Save updates both disk and memory.
type DirStore struct {
	dir string

	mu      sync.RWMutex
	records []Record
}

// NewDirStore loads every .json file in dir, in file name order. A missing
// directory yields an empty store.
func NewDirStore(dir string) (*DirStore, error) {
	s := &DirStore{dir: dir}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read patient directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidRecord, name, err)
		}
		if err := rec.validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		s.records = append(s.records, rec)
	}
	return s, nil
}

// FindByID implements Store.
func (s *DirStore) FindByID(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.records {
		if rec.PatientID == id {
			found := rec
			return &found, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// FindByName implements Store.
func (s *DirStore) FindByName(_ context.Context, name string) ([]Record, error) {
	needle := strings.ToLower(strings.TrimSpace(name))

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []Record
	for _, rec := range s.records {
		if strings.Contains(strings.ToLower(rec.PatientName), needle) {
			matches = append(matches, rec)
		}
	}
	return matches, nil
}

// Len returns the number of loaded records.
func (s *DirStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Save writes each record to <dir>/<patient_id>.json.
func (s *DirStore) Save(_ context.Context, records []Record) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create patient directory: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range records {
		if err := rec.validate(); err != nil {
			return err
		}
		data, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", rec.PatientID, err)
		}
		path := filepath.Join(s.dir, rec.PatientID+".json")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		s.upsert(rec)
	}
	return nil
}

func (s *DirStore) upsert(rec Record) {
	for i := range s.records {
		if s.records[i].PatientID == rec.PatientID {
			s.records[i] = rec
			return
		}
	}
	s.records = append(s.records, rec)
	sort.Slice(s.records, func(i, j int) bool {
		return s.records[i].PatientID+".json" < s.records[j].PatientID+".json"
	})
}

// Close implements Backend.
func (s *DirStore) Close() error { return nil }
