package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/abelbrown/feedwatch/internal/config"
	"github.com/abelbrown/feedwatch/internal/logging"
	"github.com/abelbrown/feedwatch/internal/state"
)

// runSources lists the configured sources alongside their persisted health
// state. Sources never checked show "-" for the last-check column.
func runSources() {
	fs := flag.NewFlagSet("sources", flag.ExitOnError)
	configPath := fs.String("config", "sources.json", "source-list document")
	statePath := fs.String("state", "logs/feedwatch-state.json", "per-source state snapshot")
	verbose := fs.Bool("v", false, "debug logging")
	fs.Parse(os.Args[1:])

	logging.Init(*verbose)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Fatal("Cannot load source list", "path", *configPath, "error", err)
	}
	entries, err := state.Load(*statePath)
	if err != nil {
		logging.Fatal("Cannot load state snapshot", "path", *statePath, "error", err)
	}

	targets := cfg.Targets()
	sort.Slice(targets, func(i, j int) bool { return targets[i].Name < targets[j].Name })

	fmt.Printf("%-20s %-4s %-9s %-17s %s\n", "SOURCE", "KIND", "FAILURES", "LAST CHECK", "URL")
	for _, t := range targets {
		failures := 0
		lastCheck := "-"
		note := ""
		if e, ok := entries[t.Name]; ok {
			failures = e.ConsecutiveFailures
			lastCheck = formatWhen(e.LastCheck)
			if e.Swapped() {
				note = fmt.Sprintf("  (swapped from %s)", e.SwappedFrom)
			}
		}
		fmt.Printf("%-20s %-4s %-9d %-17s %s%s\n", t.Name, t.Kind, failures, lastCheck, t.URL, note)
	}
}
