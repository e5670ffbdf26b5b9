package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/abelbrown/feedwatch/internal/history"
	"github.com/abelbrown/feedwatch/internal/logging"
	"github.com/abelbrown/feedwatch/internal/report"
)

// runHistory prints archived check results, or URL changes with -changes.
func runHistory() {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	path := fs.String("history", "logs/feedwatch-history.db", "check-history archive")
	source := fs.String("source", "", "only show checks for this source")
	limit := fs.Int("limit", 20, "maximum rows to show")
	changes := fs.Bool("changes", false, "show URL swaps and reverts instead of checks")
	verbose := fs.Bool("v", false, "debug logging")
	fs.Parse(os.Args[1:])

	logging.Init(*verbose)

	store, err := history.Open(*path)
	if err != nil {
		logging.Fatal("Cannot open history archive", "path", *path, "error", err)
	}
	defer store.Close()

	if *changes {
		printChanges(store, *limit)
		return
	}
	printChecks(store, *source, *limit)
}

func printChecks(store *history.Store, source string, limit int) {
	checks, err := store.RecentChecks(source, limit)
	if err != nil {
		logging.Fatal("History query failed", "error", err)
	}
	if len(checks) == 0 {
		fmt.Println("No archived checks.")
		return
	}

	for _, c := range checks {
		mark := "✓"
		detail := fmt.Sprintf("%d articles", c.Articles)
		if c.NewestAge >= 0 {
			detail += fmt.Sprintf(", newest %s ago", report.FormatAge(time.Duration(c.NewestAge)*time.Second))
		}
		if !c.OK {
			mark = "✗"
			detail = c.Detail
			if detail == "" {
				detail = c.Failure
			}
		}
		fmt.Printf("%s  %s %-20s %s\n", c.CheckedAt.Local().Format("2006-01-02 15:04"), mark, c.Source, detail)
	}
}

func printChanges(store *history.Store, limit int) {
	rows, err := store.RecentChanges(limit)
	if err != nil {
		logging.Fatal("History query failed", "error", err)
	}
	if len(rows) == 0 {
		fmt.Println("No archived URL changes.")
		return
	}

	for _, ch := range rows {
		fmt.Printf("%s  %-6s %-20s %s -> %s\n",
			ch.ChangedAt.Local().Format("2006-01-02 15:04"), ch.Kind, ch.Source, ch.OldURL, ch.NewURL)
	}
}
