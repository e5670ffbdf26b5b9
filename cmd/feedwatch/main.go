// Command feedwatch monitors the health of a fleet of content feeds:
// structured API endpoints and RSS/Atom feeds. It detects unreachable,
// malformed, empty, and stale sources, fails persistently degraded sources
// over to registered mirror URLs, and reverts them once the primary
// recovers.
//
// Usage:
//
//	feedwatch check         Run one check cycle, print the report
//	feedwatch watch         Run cycles on a cron schedule until interrupted
//	feedwatch history       Show archived results and URL changes
//	feedwatch sources       List configured sources with persisted state
package main

import (
	"fmt"
	"os"
)

const usage = `feedwatch - feed fleet health monitor

Usage:
  feedwatch <command> [flags]

Commands:
  check       Run one check cycle and print the report (exit 1 on problems)
  watch       Run check cycles on a cron schedule until interrupted
  history     Show archived check results and URL changes
  sources     List configured sources with their persisted health state

Run 'feedwatch <command> -h' for command-specific help.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(0)
	}

	cmd := os.Args[1]
	// Strip the program name + subcommand so flag sets see only their flags
	os.Args = os.Args[1:]

	switch cmd {
	case "check":
		runCheck()
	case "watch":
		runWatch()
	case "history":
		runHistory()
	case "sources":
		runSources()
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "feedwatch: unknown command %q\n\n", cmd)
		fmt.Print(usage)
		os.Exit(1)
	}
}
