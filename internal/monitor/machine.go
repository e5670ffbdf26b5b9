package monitor

import (
	"context"
	"time"

	"github.com/abelbrown/feedwatch/internal/logging"
	"github.com/abelbrown/feedwatch/internal/probe"
	"github.com/abelbrown/feedwatch/internal/state"
)

// FailThreshold is the number of consecutive failures before a source with
// a registered fallback is swapped to its mirror.
const FailThreshold = 3

// Event records one URL change (swap or revert) made during a cycle. Events
// are transient: consumed by reporting, never persisted.
type Event struct {
	Name   string
	OldURL string
	NewURL string
}

// Machine is the per-source failure-state machine. Every side effect goes
// through an injected collaborator, so the swap and revert decisions are a
// function of their inputs.
//
// States per source: Healthy(0 failures) → Degrading(1..threshold-1) →
// Swapped(>=threshold with a fallback) → back to Healthy once the primary
// recovers. No state is terminal.
type Machine struct {
	// Threshold <= 0 uses FailThreshold.
	Threshold int

	// Fallbacks maps source name to a known-good mirror URL. Immutable
	// static lookup, not read from the source document.
	Fallbacks map[string]string

	// CurrentURL returns the live URL for a source as of the start of the
	// cycle, "" if the source is not configured.
	CurrentURL func(name string) string

	// Swap rewrites the config document, replacing oldURL with newURL.
	// Returns false when the old URL was not found (non-fatal no-op).
	Swap func(oldURL, newURL string) (bool, error)

	// Reprobe checks a URL directly; used to confirm primary recovery
	// before reverting.
	Reprobe func(ctx context.Context, t probe.Target) probe.Result

	// KindFor returns the declared payload kind for a source, so revert
	// probes parse the original URL the way the source declares.
	KindFor func(name string) probe.Kind
}

func (m *Machine) threshold() int {
	if m.Threshold <= 0 {
		return FailThreshold
	}
	return m.Threshold
}

// Advance folds one check result into a source's persisted state and carries
// out any failover or revert the new state calls for. The entry is mutated
// in place. A returned error means a config mutation failed at the I/O
// level; a swap that simply did not apply is not an error.
func (m *Machine) Advance(ctx context.Context, name string, res probe.Result, entry *state.Entry, now time.Time) (swapped, reverted *Event, err error) {
	if res.OK {
		entry.ConsecutiveFailures = 0
		entry.LastError = ""
	} else {
		entry.ConsecutiveFailures++
		entry.LastError = res.Message()
	}
	entry.LastCheck = now

	if !res.OK {
		swapped, err = m.maybeFailover(name, entry)
		return swapped, nil, err
	}

	reverted, err = m.maybeRevert(ctx, name, entry)
	return nil, reverted, err
}

// maybeFailover swaps a persistently failing source to its registered
// mirror. Already-swapped sources keep accumulating failures silently; that
// idempotence is what prevents a second swap without an intervening revert.
func (m *Machine) maybeFailover(name string, entry *state.Entry) (*Event, error) {
	if entry.ConsecutiveFailures < m.threshold() {
		return nil, nil
	}
	fallback, ok := m.Fallbacks[name]
	if !ok {
		return nil, nil
	}
	if entry.Swapped() {
		return nil, nil
	}

	oldURL := m.CurrentURL(name)
	if oldURL == "" || oldURL == fallback {
		return nil, nil
	}

	applied, err := m.Swap(oldURL, fallback)
	if err != nil {
		return nil, err
	}
	if !applied {
		logging.Warn("Failover swap deferred, URL not found in config", "source", name, "url", oldURL)
		return nil, nil
	}

	entry.SwappedFrom = oldURL
	logging.Info("Source failed over to mirror", "source", name, "from", oldURL, "to", fallback)
	return &Event{Name: name, OldURL: oldURL, NewURL: fallback}, nil
}

// maybeRevert restores the original URL after a swapped source turns
// healthy. The fallback being healthy proves nothing about the primary, so
// the revert is gated on a fresh probe of the original URL.
func (m *Machine) maybeRevert(ctx context.Context, name string, entry *state.Entry) (*Event, error) {
	if !entry.Swapped() {
		return nil, nil
	}

	original := entry.SwappedFrom
	current := m.CurrentURL(name)
	if current == "" {
		return nil, nil
	}
	if current == original {
		// Config already points at the original (restored by hand);
		// the marker is stale.
		entry.SwappedFrom = ""
		return nil, nil
	}

	res := m.Reprobe(ctx, probe.Target{
		Name:   name,
		URL:    original,
		Kind:   m.KindFor(name),
		MaxAge: probe.DefaultMaxAge,
	})
	if !res.OK {
		logging.Debug("Primary still unhealthy, staying on mirror", "source", name, "error", res.Message())
		return nil, nil
	}

	applied, err := m.Swap(current, original)
	if err != nil {
		return nil, err
	}
	if !applied {
		logging.Warn("Revert swap deferred, URL not found in config", "source", name, "url", current)
		return nil, nil
	}

	entry.SwappedFrom = ""
	logging.Info("Source reverted to recovered primary", "source", name, "from", current, "to", original)
	return &Event{Name: name, OldURL: current, NewURL: original}, nil
}
