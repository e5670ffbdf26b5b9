package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/abelbrown/feedwatch/internal/logging"
	"github.com/abelbrown/feedwatch/internal/report"
)

// runCheck runs one check cycle and prints the report. Exit status is zero
// only when every source is currently healthy, regardless of whether a swap
// or revert occurred.
func runCheck() {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	var mf monitorFlags
	mf.register(fs)
	quiet := fs.Bool("q", false, "suppress the report, keep the exit status")
	fs.Parse(os.Args[1:])

	logging.Init(mf.verbose)

	m, err := mf.newMonitor()
	if err != nil {
		logging.Fatal("Setup failed", "error", err)
	}

	cycle, err := m.RunCycle(context.Background())
	if err != nil {
		logging.Fatal("Check cycle failed", "error", err)
	}

	archiveCycle(mf.historyPath, cycle)

	if !*quiet {
		fmt.Print(report.Format(cycle, 0))
	}

	if !cycle.Healthy() {
		os.Exit(1)
	}
}
