// Package monitor runs feedwatch check cycles: it fans probes out across
// every configured source, folds the results through the per-source
// failure-state machine, applies any failover or revert the machine decides
// on, and persists the updated state snapshot.
package monitor

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"github.com/abelbrown/feedwatch/internal/config"
	"github.com/abelbrown/feedwatch/internal/logging"
	"github.com/abelbrown/feedwatch/internal/probe"
	"github.com/abelbrown/feedwatch/internal/sched"
	"github.com/abelbrown/feedwatch/internal/state"
)

// Options configure a Monitor. Zero values get sensible defaults.
type Options struct {
	ConfigPath string
	StatePath  string

	// Fallbacks overrides the built-in mirror registry when non-nil.
	Fallbacks map[string]string

	// Threshold of consecutive failures before failover; 0 = FailThreshold.
	Threshold int

	// Concurrency caps in-flight probes; 0 = sched.MaxConcurrent.
	Concurrency int

	// Timeout per probe fetch; 0 = probe.DefaultTimeout.
	Timeout time.Duration

	// RequestInterval paces probe starts; 0 disables pacing.
	RequestInterval time.Duration
}

// Cycle is the complete outcome of one check cycle: the batch results, the
// new state snapshot, and the URL changes made. Reporting and alerting
// consume this; the core never notifies anyone itself.
type Cycle struct {
	Start    time.Time
	Results  map[string]probe.Result
	States   map[string]*state.Entry
	Swapped  []Event
	Reverted []Event
}

// Healthy reports whether every source's latest check passed. Exit status
// derives from this alone, independent of swaps or reverts.
func (c *Cycle) Healthy() bool {
	for _, res := range c.Results {
		if !res.OK {
			return false
		}
	}
	return true
}

// Changed reports whether this cycle swapped or reverted any URL.
func (c *Cycle) Changed() bool {
	return len(c.Swapped) > 0 || len(c.Reverted) > 0
}

// Monitor owns one check pipeline: prober, scheduler, and state machine.
type Monitor struct {
	opts      Options
	prober    *probe.Prober
	scheduler *sched.Scheduler
	fallbacks map[string]string
}

// New creates a Monitor from options.
func New(opts Options) *Monitor {
	prober := probe.New(opts.Timeout)

	var limiter *rate.Limiter
	if opts.RequestInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.RequestInterval), 1)
	}

	fallbacks := opts.Fallbacks
	if fallbacks == nil {
		fallbacks = DefaultFallbacks()
	}

	return &Monitor{
		opts:      opts,
		prober:    prober,
		scheduler: sched.New(prober.Check, opts.Concurrency, limiter),
		fallbacks: fallbacks,
	}
}

// RunCycle executes one full check cycle. The probe phase is parallel; the
// state machine, config mutations, and state save run sequentially after it,
// so the two persisted documents never see concurrent writers.
//
// Errors are infrastructure failures only (unreadable config, malformed
// state, config-mutation I/O); per-source check failures live in the Cycle.
func (m *Monitor) RunCycle(ctx context.Context) (*Cycle, error) {
	cfg, err := config.Load(m.opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	states, err := state.Load(m.opts.StatePath)
	if err != nil {
		return nil, err
	}

	targets := cfg.Targets()
	logging.Info("Check cycle starting", "sources", len(targets))
	start := time.Now()

	results := m.scheduler.Run(ctx, targets)

	cycle := &Cycle{
		Start:   start,
		Results: results,
		States:  states,
	}

	machine := &Machine{
		Threshold:  m.opts.Threshold,
		Fallbacks:  m.fallbacks,
		CurrentURL: cfg.URLFor,
		Swap: func(oldURL, newURL string) (bool, error) {
			return config.SwapURL(m.opts.ConfigPath, oldURL, newURL)
		},
		Reprobe: m.prober.Check,
		KindFor: cfg.KindFor,
	}

	// Deterministic order so swap decisions and reports are stable.
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	now := time.Now()
	for _, name := range names {
		entry := states[name]
		if entry == nil {
			entry = &state.Entry{}
			states[name] = entry
		}

		swapped, reverted, err := machine.Advance(ctx, name, results[name], entry, now)
		if err != nil {
			return nil, fmt.Errorf("mutate config for %s: %w", name, err)
		}
		if swapped != nil {
			cycle.Swapped = append(cycle.Swapped, *swapped)
		}
		if reverted != nil {
			cycle.Reverted = append(cycle.Reverted, *reverted)
		}
	}

	if err := state.Save(m.opts.StatePath, states); err != nil {
		return nil, err
	}

	healthy := 0
	for _, res := range results {
		if res.OK {
			healthy++
		}
	}
	logging.Info("Check cycle finished",
		"healthy", healthy,
		"total", len(results),
		"swapped", len(cycle.Swapped),
		"reverted", len(cycle.Reverted),
		"elapsed", time.Since(start).Round(time.Millisecond))

	return cycle, nil
}
