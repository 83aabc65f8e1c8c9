// Package filestore persists completed investigation records as timestamped
// JSON artifacts. Saves never overwrite; loads resolve the newest artifact
// for an incident id.
package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"inquest/internal/domain"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

type Store struct {
	dir string
	now func() int64 // unix nanos, swapped in tests
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir, now: func() int64 { return time.Now().UnixNano() }}, nil
}

func (s *Store) Load(_ context.Context, incidentID string) (*domain.InvestigationRecord, error) {
	candidates, err := filepath.Glob(filepath.Join(s.dir, sanitize(incidentID)+"_*.json"))
	if err != nil {
		return nil, err
	}
	// The glob also catches ids that share a prefix; keep only artifacts
	// whose suffix is a bare timestamp.
	var matches []string
	for _, m := range candidates {
		if artifactStamp(m) >= 0 && artifactBase(m) == sanitize(incidentID) {
			matches = append(matches, m)
		}
	}
	if len(matches) == 0 {
		return nil, nil
	}
	sort.Slice(matches, func(i, j int) bool {
		return artifactStamp(matches[i]) > artifactStamp(matches[j])
	})
	data, err := os.ReadFile(matches[0])
	if err != nil {
		return nil, err
	}
	var rec domain.InvestigationRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("corrupt artifact %s: %w", matches[0], err)
	}
	return &rec, nil
}

// Save writes a new artifact for the record's incident id. The write is
// atomic: temp file in the same directory, then rename.
func (s *Store) Save(_ context.Context, rec *domain.InvestigationRecord) (string, error) {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s_%d.json", sanitize(rec.IncidentID), s.now())
	dest := filepath.Join(s.dir, name)

	tmp, err := os.CreateTemp(s.dir, ".artifact-*")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return dest, nil
}

func sanitize(id string) string {
	return unsafeChars.ReplaceAllString(id, "_")
}

// artifactStamp extracts the numeric timestamp suffix; malformed names sort last.
func artifactStamp(path string) int64 {
	base := strings.TrimSuffix(filepath.Base(path), ".json")
	idx := strings.LastIndex(base, "_")
	if idx < 0 {
		return -1
	}
	ts, err := strconv.ParseInt(base[idx+1:], 10, 64)
	if err != nil {
		return -1
	}
	return ts
}

// artifactBase is the artifact name with the timestamp suffix stripped.
func artifactBase(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), ".json")
	idx := strings.LastIndex(base, "_")
	if idx < 0 {
		return base
	}
	return base[:idx]
}
