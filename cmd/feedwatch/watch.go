package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/abelbrown/feedwatch/internal/logging"
	"github.com/abelbrown/feedwatch/internal/monitor"
)

// runWatch runs check cycles on a cron schedule until interrupted. A cycle
// runs immediately on startup so a bad config or unreachable fleet is
// visible without waiting for the first tick.
func runWatch() {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	var mf monitorFlags
	mf.register(fs)
	schedule := fs.String("schedule", "*/30 * * * *", "cron schedule for check cycles")
	fs.Parse(os.Args[1:])

	logging.Init(mf.verbose)

	m, err := mf.newMonitor()
	if err != nil {
		logging.Fatal("Setup failed", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runOnce := func() {
		cycle, err := m.RunCycle(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logging.Error("Check cycle failed", "error", err)
			return
		}
		archiveCycle(mf.historyPath, cycle)
		logCycle(cycle)
	}

	c := cron.New()
	if _, err := c.AddFunc(*schedule, runOnce); err != nil {
		logging.Fatal("Invalid schedule", "schedule", *schedule, "error", err)
	}

	logging.Info("Watching feed fleet", "schedule", *schedule, "config", mf.configPath)
	runOnce()
	c.Start()

	<-ctx.Done()
	logging.Info("Shutting down")
	cronCtx := c.Stop()
	<-cronCtx.Done()
}

// logCycle summarizes a watch-mode cycle in the log rather than on stdout.
func logCycle(c *monitor.Cycle) {
	problems := 0
	for _, res := range c.Results {
		if !res.OK {
			problems++
		}
	}
	if problems == 0 && !c.Changed() {
		logging.Info("All sources healthy", "sources", len(c.Results))
		return
	}
	logging.Warn("Cycle found problems",
		"sources", len(c.Results),
		"failing", problems,
		"swapped", len(c.Swapped),
		"reverted", len(c.Reverted))
}
