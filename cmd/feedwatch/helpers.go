package main

import (
	"flag"
	"time"

	"github.com/abelbrown/feedwatch/internal/history"
	"github.com/abelbrown/feedwatch/internal/logging"
	"github.com/abelbrown/feedwatch/internal/monitor"
)

// monitorFlags are the flags shared by check and watch.
type monitorFlags struct {
	configPath    string
	statePath     string
	historyPath   string
	fallbacksPath string
	verbose       bool
}

func (f *monitorFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.configPath, "config", "sources.json", "source-list document")
	fs.StringVar(&f.statePath, "state", "logs/feedwatch-state.json", "per-source state snapshot")
	fs.StringVar(&f.historyPath, "history", "logs/feedwatch-history.db", "check-history archive (empty disables)")
	fs.StringVar(&f.fallbacksPath, "fallbacks", "", "JSON file overriding the built-in mirror registry")
	fs.BoolVar(&f.verbose, "v", false, "debug logging")
}

// newMonitor builds a Monitor from the shared flags.
func (f *monitorFlags) newMonitor() (*monitor.Monitor, error) {
	fallbacks, err := monitor.LoadFallbacks(f.fallbacksPath)
	if err != nil {
		return nil, err
	}
	return monitor.New(monitor.Options{
		ConfigPath: f.configPath,
		StatePath:  f.statePath,
		Fallbacks:  fallbacks,
	}), nil
}

// archiveCycle records a cycle in the history database. The archive is
// derived data, so failures degrade to a warning rather than failing the
// cycle.
func archiveCycle(path string, c *monitor.Cycle) {
	if path == "" {
		return
	}

	store, err := history.Open(path)
	if err != nil {
		logging.Warn("History archive unavailable", "path", path, "error", err)
		return
	}
	defer store.Close()

	changes := make([]history.Change, 0, len(c.Swapped)+len(c.Reverted))
	for _, ev := range c.Swapped {
		changes = append(changes, history.Change{Source: ev.Name, Kind: "swap", OldURL: ev.OldURL, NewURL: ev.NewURL})
	}
	for _, ev := range c.Reverted {
		changes = append(changes, history.Change{Source: ev.Name, Kind: "revert", OldURL: ev.OldURL, NewURL: ev.NewURL})
	}

	if err := store.RecordCycle(c.Start, c.Results, changes); err != nil {
		logging.Warn("Failed to archive cycle", "error", err)
	}
}

// formatWhen renders a timestamp for list output, "-" when never set.
func formatWhen(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}
