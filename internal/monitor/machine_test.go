package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/abelbrown/feedwatch/internal/probe"
	"github.com/abelbrown/feedwatch/internal/state"
)

// swapRecorder stands in for the config mutator.
type swapRecorder struct {
	calls   [][2]string
	applied bool
	err     error
}

func (s *swapRecorder) swap(oldURL, newURL string) (bool, error) {
	s.calls = append(s.calls, [2]string{oldURL, newURL})
	return s.applied, s.err
}

func newTestMachine(fallbacks map[string]string, currentURL string, sw *swapRecorder, reprobe func(context.Context, probe.Target) probe.Result) *Machine {
	return &Machine{
		Fallbacks:  fallbacks,
		CurrentURL: func(string) string { return currentURL },
		Swap:       sw.swap,
		Reprobe:    reprobe,
		KindFor:    func(string) probe.Kind { return probe.KindFeed },
	}
}

func okResult() probe.Result {
	return probe.Result{OK: true, Articles: 5}
}

func failResult() probe.Result {
	return probe.Result{Failure: probe.FailUnreachable, Detail: "unreachable: HTTP 503"}
}

func TestAdvanceSuccessResetsFailures(t *testing.T) {
	sw := &swapRecorder{}
	m := newTestMachine(nil, "https://primary", sw, nil)

	entry := &state.Entry{ConsecutiveFailures: 2, LastError: "unreachable: HTTP 503"}
	now := time.Now()

	swapped, reverted, err := m.Advance(context.Background(), "A", okResult(), entry, now)
	if err != nil || swapped != nil || reverted != nil {
		t.Fatalf("unexpected outcome: %v %v %v", swapped, reverted, err)
	}
	if entry.ConsecutiveFailures != 0 {
		t.Errorf("failures = %d, want 0", entry.ConsecutiveFailures)
	}
	if entry.LastError != "" {
		t.Errorf("last error = %q, want cleared", entry.LastError)
	}
	if !entry.LastCheck.Equal(now) {
		t.Errorf("last check not stamped")
	}
}

func TestAdvanceFailureIncrements(t *testing.T) {
	sw := &swapRecorder{}
	m := newTestMachine(nil, "https://primary", sw, nil)

	entry := &state.Entry{ConsecutiveFailures: 1}
	_, _, err := m.Advance(context.Background(), "A", failResult(), entry, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if entry.ConsecutiveFailures != 2 {
		t.Errorf("failures = %d, want 2", entry.ConsecutiveFailures)
	}
	if entry.LastError != "unreachable: HTTP 503" {
		t.Errorf("last error = %q", entry.LastError)
	}
	if len(sw.calls) != 0 {
		t.Error("no swap should happen below threshold")
	}
}

func TestFailoverAtThresholdExactlyOnce(t *testing.T) {
	fallbacks := map[string]string{"A": "https://mirror"}
	sw := &swapRecorder{applied: true}
	m := newTestMachine(fallbacks, "https://primary", sw, nil)

	entry := &state.Entry{}
	ctx := context.Background()

	// Two failures: degrading, no swap yet.
	for i := 0; i < 2; i++ {
		swapped, _, err := m.Advance(ctx, "A", failResult(), entry, time.Now())
		if err != nil {
			t.Fatal(err)
		}
		if swapped != nil {
			t.Fatalf("swap fired after %d failures", i+1)
		}
	}

	// Third failure crosses the threshold.
	swapped, _, err := m.Advance(ctx, "A", failResult(), entry, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if swapped == nil {
		t.Fatal("expected swap at threshold")
	}
	if swapped.OldURL != "https://primary" || swapped.NewURL != "https://mirror" {
		t.Errorf("swap event = %+v", swapped)
	}
	if entry.SwappedFrom != "https://primary" {
		t.Errorf("swapped_from = %q, want primary", entry.SwappedFrom)
	}

	// Fourth failure: already swapped, failures accumulate silently.
	swapped, _, err = m.Advance(ctx, "A", failResult(), entry, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if swapped != nil {
		t.Error("source must never be swapped twice without a revert")
	}
	if entry.SwappedFrom != "https://primary" {
		t.Errorf("swapped_from overwritten: %q", entry.SwappedFrom)
	}
	if entry.ConsecutiveFailures != 4 {
		t.Errorf("failures = %d, want 4", entry.ConsecutiveFailures)
	}
	if len(sw.calls) != 1 {
		t.Errorf("mutator called %d times, want 1", len(sw.calls))
	}
}

func TestFailoverRequiresRegisteredFallback(t *testing.T) {
	sw := &swapRecorder{applied: true}
	m := newTestMachine(map[string]string{}, "https://primary", sw, nil)

	entry := &state.Entry{ConsecutiveFailures: 10}
	swapped, _, err := m.Advance(context.Background(), "A", failResult(), entry, time.Now())
	if err != nil || swapped != nil {
		t.Fatalf("no fallback registered, got swap %+v err %v", swapped, err)
	}
	if len(sw.calls) != 0 {
		t.Error("mutator should not be called")
	}
}

func TestFailoverDeferredWhenURLNotFound(t *testing.T) {
	fallbacks := map[string]string{"A": "https://mirror"}
	sw := &swapRecorder{applied: false} // text substitution found nothing
	m := newTestMachine(fallbacks, "https://primary", sw, nil)

	entry := &state.Entry{ConsecutiveFailures: 2}
	swapped, _, err := m.Advance(context.Background(), "A", failResult(), entry, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if swapped != nil {
		t.Error("unapplied swap must not emit an event")
	}
	if entry.Swapped() {
		t.Error("swapped_from must not be set when the swap did not apply")
	}

	// Next cycle the substitution succeeds.
	sw.applied = true
	swapped, _, err = m.Advance(context.Background(), "A", failResult(), entry, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if swapped == nil {
		t.Fatal("swap should apply on the following cycle")
	}
}

func TestFailoverSwapErrorPropagates(t *testing.T) {
	fallbacks := map[string]string{"A": "https://mirror"}
	sw := &swapRecorder{err: errors.New("disk full")}
	m := newTestMachine(fallbacks, "https://primary", sw, nil)

	entry := &state.Entry{ConsecutiveFailures: 2}
	_, _, err := m.Advance(context.Background(), "A", failResult(), entry, time.Now())
	if err == nil {
		t.Fatal("mutator I/O failure must propagate")
	}
	if entry.Swapped() {
		t.Error("failed swap must not mark the source as swapped")
	}
}

func TestRevertGatedOnPrimaryProbe(t *testing.T) {
	sw := &swapRecorder{applied: true}
	var probedURL string
	primaryHealthy := false
	reprobe := func(ctx context.Context, tg probe.Target) probe.Result {
		probedURL = tg.URL
		if primaryHealthy {
			return okResult()
		}
		return failResult()
	}

	m := newTestMachine(nil, "https://mirror", sw, reprobe)
	entry := &state.Entry{SwappedFrom: "https://primary"}

	// Mirror healthy, primary still down: stay on mirror.
	_, reverted, err := m.Advance(context.Background(), "A", okResult(), entry, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if reverted != nil {
		t.Fatal("revert must not fire while the primary is down")
	}
	if probedURL != "https://primary" {
		t.Errorf("probed %q, want the original URL", probedURL)
	}
	if !entry.Swapped() {
		t.Error("swap marker must survive a gated revert")
	}

	// Primary recovers: revert applies.
	primaryHealthy = true
	_, reverted, err = m.Advance(context.Background(), "A", okResult(), entry, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if reverted == nil {
		t.Fatal("expected revert after confirmed recovery")
	}
	if reverted.OldURL != "https://mirror" || reverted.NewURL != "https://primary" {
		t.Errorf("revert event = %+v", reverted)
	}
	if entry.Swapped() {
		t.Error("swap marker must be cleared after revert")
	}
}

func TestRevertClearsStaleMarker(t *testing.T) {
	sw := &swapRecorder{applied: true}
	reprobe := func(ctx context.Context, tg probe.Target) probe.Result {
		t.Error("no probe needed when config already holds the original")
		return okResult()
	}

	// Live URL already equals the recorded original (restored by hand).
	m := newTestMachine(nil, "https://primary", sw, reprobe)
	entry := &state.Entry{SwappedFrom: "https://primary"}

	_, reverted, err := m.Advance(context.Background(), "A", okResult(), entry, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if reverted != nil {
		t.Error("no mutation happened, so no revert event")
	}
	if entry.Swapped() {
		t.Error("stale marker should be cleared")
	}
	if len(sw.calls) != 0 {
		t.Error("mutator should not be called")
	}
}

func TestRevertProbesUseDeclaredKind(t *testing.T) {
	sw := &swapRecorder{applied: true}
	var probed probe.Target
	reprobe := func(ctx context.Context, tg probe.Target) probe.Result {
		probed = tg
		return okResult()
	}

	m := newTestMachine(nil, "https://mirror", sw, reprobe)
	m.KindFor = func(string) probe.Kind { return probe.KindAPI }

	entry := &state.Entry{SwappedFrom: "https://primary"}
	if _, _, err := m.Advance(context.Background(), "A", okResult(), entry, time.Now()); err != nil {
		t.Fatal(err)
	}
	if probed.Kind != probe.KindAPI {
		t.Errorf("revert probe kind = %q, want api", probed.Kind)
	}
	if probed.MaxAge != probe.DefaultMaxAge {
		t.Errorf("revert probe max age = %v, want default", probed.MaxAge)
	}
}

func TestIdempotentCycle(t *testing.T) {
	sw := &swapRecorder{applied: true}
	m := newTestMachine(map[string]string{"A": "https://mirror"}, "https://primary", sw, nil)

	entry := &state.Entry{}
	ctx := context.Background()

	// Steady healthy state across cycles: nothing changes, no mutations.
	for i := 0; i < 3; i++ {
		swapped, reverted, err := m.Advance(ctx, "A", okResult(), entry, time.Now())
		if err != nil || swapped != nil || reverted != nil {
			t.Fatalf("cycle %d: %v %v %v", i, swapped, reverted, err)
		}
		if entry.ConsecutiveFailures != 0 {
			t.Errorf("cycle %d: failures = %d", i, entry.ConsecutiveFailures)
		}
	}
	if len(sw.calls) != 0 {
		t.Errorf("mutator called %d times for steady state", len(sw.calls))
	}
}
