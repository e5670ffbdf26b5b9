package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileIsFirstRun(t *testing.T) {
	entries, err := Load(filepath.Join(t.TempDir(), "nope", "state.json"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries, want 0", len(entries))
	}
}

func TestLoadMalformedIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{corrupt"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("malformed state must be an error")
	}
}

func TestSaveCreatesDirectoryAndRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "state.json")

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	entries := map[string]*Entry{
		"Daily Feed": {
			ConsecutiveFailures: 3,
			LastCheck:           now,
			LastError:           "unreachable: HTTP 503",
			SwappedFrom:         "https://feeds.example.com/daily.xml",
		},
		"Tech Wire": {
			ConsecutiveFailures: 0,
			LastCheck:           now,
		},
	}

	if err := Save(path, entries); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("got %d entries, want 2", len(loaded))
	}

	daily := loaded["Daily Feed"]
	if daily == nil {
		t.Fatal("Daily Feed entry missing")
	}
	if daily.ConsecutiveFailures != 3 {
		t.Errorf("failures = %d, want 3", daily.ConsecutiveFailures)
	}
	if !daily.LastCheck.Equal(now) {
		t.Errorf("last check = %v, want %v", daily.LastCheck, now)
	}
	if !daily.Swapped() || daily.SwappedFrom != "https://feeds.example.com/daily.xml" {
		t.Errorf("swapped_from = %q", daily.SwappedFrom)
	}
	if loaded["Tech Wire"].Swapped() {
		t.Error("Tech Wire should not be swapped")
	}
}

func TestSaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	if err := Save(path, map[string]*Entry{"A": {ConsecutiveFailures: 1}}); err != nil {
		t.Fatal(err)
	}
	if err := Save(path, map[string]*Entry{"B": {ConsecutiveFailures: 2}}); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := loaded["A"]; ok {
		t.Error("old snapshot should be fully replaced")
	}
	if loaded["B"].ConsecutiveFailures != 2 {
		t.Error("new snapshot missing")
	}
}
