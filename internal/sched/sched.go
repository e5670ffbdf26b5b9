// Package sched fans probe checks out across all configured sources with
// bounded parallelism and fans the results back in. Callers always see the
// whole batch: every target gets exactly one Result, matched by name.
package sched

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/abelbrown/feedwatch/internal/logging"
	"github.com/abelbrown/feedwatch/internal/probe"
)

// MaxConcurrent caps simultaneous in-flight fetches so a large source list
// does not overwhelm the network interface or the remote origins.
const MaxConcurrent = 10

// CheckFunc probes a single target. Usually (*probe.Prober).Check.
type CheckFunc func(ctx context.Context, t probe.Target) probe.Result

// Scheduler runs batches of checks. The zero limiter means no pacing.
type Scheduler struct {
	limit   int
	limiter *rate.Limiter
	check   CheckFunc
}

// New creates a Scheduler around the given check function. limit <= 0 uses
// MaxConcurrent. The limiter, when non-nil, paces request starts across the
// whole batch.
func New(check CheckFunc, limit int, limiter *rate.Limiter) *Scheduler {
	if limit <= 0 {
		limit = MaxConcurrent
	}
	return &Scheduler{limit: limit, limiter: limiter, check: check}
}

// Run checks every target and returns a result per source name once all
// complete. A panic inside one check is converted to a synthetic failure for
// that source only; it never aborts the batch. There is no cross-source
// ordering guarantee.
func (s *Scheduler) Run(ctx context.Context, targets []probe.Target) map[string]probe.Result {
	results := make(map[string]probe.Result, len(targets))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(s.limit)

	for _, t := range targets {
		t := t
		g.Go(func() error {
			res := s.checkOne(ctx, t)
			mu.Lock()
			results[t.Name] = res
			mu.Unlock()
			return nil // failures are values, never group errors
		})
	}

	_ = g.Wait()
	return results
}

// checkOne runs a single check, pacing its start and downgrading panics to a
// generic failure result.
func (s *Scheduler) checkOne(ctx context.Context, t probe.Target) (res probe.Result) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Probe panicked", "source", t.Name, "panic", r)
			res = probe.Result{
				Failure: probe.FailException,
				Detail:  fmt.Sprintf("exception: %v", r),
			}
		}
	}()

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return probe.Result{
				Failure: probe.FailUnreachable,
				Detail:  fmt.Sprintf("unreachable: %v", err),
			}
		}
	}

	return s.check(ctx, t)
}
