// Package state persists the per-source health snapshot between check
// cycles. The snapshot is a cache of derived facts (failure counters, swap
// markers) recoverable by re-running checks, so a plain overwrite is enough;
// the config document is the one that gets the atomic-write discipline.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Entry is the persisted health state for one source, keyed by name.
// Entries are never deleted: a source removed from config simply stops being
// updated and is reused if the source reappears.
type Entry struct {
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastCheck           time.Time `json:"last_check"`
	LastError           string    `json:"last_error,omitempty"`
	// SwappedFrom holds the original URL while an automatic failover is in
	// effect, and only then. Cleared on revert.
	SwappedFrom string `json:"swapped_from,omitempty"`
}

// Swapped reports whether the source is currently failed over.
func (e *Entry) Swapped() bool {
	return e.SwappedFrom != ""
}

// Load reads the state snapshot. A missing file is a first run and yields an
// empty map; a malformed file is an error, since continuing would silently
// lose failure-history continuity.
func Load(path string) (map[string]*Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*Entry{}, nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}

	entries := map[string]*Entry{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse state %s: %w", path, err)
	}
	return entries, nil
}

// Save serializes the full snapshot, creating the containing directory on
// first write.
func Save(path string, entries map[string]*Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}
