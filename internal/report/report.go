// Package report renders a check cycle as a plain-text summary for the
// console, a cron log, or an alert mail body. It consumes the cycle output
// only; nothing here touches the network or the persisted documents.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/abelbrown/feedwatch/internal/monitor"
)

// Format renders the cycle report. Threshold <= 0 uses the monitor default;
// it only affects which problem sources are flagged as critical.
func Format(c *monitor.Cycle, threshold int) string {
	if threshold <= 0 {
		threshold = monitor.FailThreshold
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Feed health report - %s\n\n", c.Start.Format("2006-01-02 15:04 MST"))

	names := make([]string, 0, len(c.Results))
	for name := range c.Results {
		names = append(names, name)
	}
	sort.Strings(names)

	swappedTo := make(map[string]string, len(c.Swapped))
	for _, ev := range c.Swapped {
		swappedTo[ev.Name] = ev.NewURL
	}

	var problems []string
	healthy := 0
	for _, name := range names {
		res := c.Results[name]
		if res.OK {
			healthy++
			continue
		}
		fails := 0
		if entry := c.States[name]; entry != nil {
			fails = entry.ConsecutiveFailures
		}
		mark := "!"
		if fails >= threshold {
			mark = "✗"
		}
		line := fmt.Sprintf("  %s %s: %s (%d consecutive failures)", mark, name, res.Message(), fails)
		if to, ok := swappedTo[name]; ok {
			line += " → swapped to " + to
		}
		problems = append(problems, line)
	}

	if len(problems) > 0 {
		fmt.Fprintf(&b, "Problem sources (%d):\n", len(problems))
		for _, line := range problems {
			b.WriteString(line)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}

	fmt.Fprintf(&b, "Healthy sources (%d/%d)\n\n", healthy, len(names))

	b.WriteString("Detail:\n")
	for _, name := range names {
		res := c.Results[name]
		age := ""
		if res.HasAge {
			age = fmt.Sprintf(", newest %s ago", FormatAge(res.NewestAge))
		}
		if res.OK {
			fmt.Fprintf(&b, "  ✓ %s: %d articles%s\n", name, res.Articles, age)
		} else {
			fmt.Fprintf(&b, "  ✗ %s: %s%s\n", name, res.Message(), age)
		}
	}

	if len(c.Swapped) > 0 {
		b.WriteString("\nFailed over:\n")
		for _, ev := range c.Swapped {
			fmt.Fprintf(&b, "  %s: %s → %s\n", ev.Name, ev.OldURL, ev.NewURL)
		}
	}
	if len(c.Reverted) > 0 {
		b.WriteString("\nReverted:\n")
		for _, ev := range c.Reverted {
			fmt.Fprintf(&b, "  %s: %s → %s (primary recovered)\n", ev.Name, ev.OldURL, ev.NewURL)
		}
	}

	return b.String()
}

// FormatAge renders an article age as whole hours, falling back to minutes
// for anything under an hour. Shared by every surface that prints ages so
// the report and the history listing agree.
func FormatAge(d time.Duration) string {
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return fmt.Sprintf("%dh", int(d.Hours()))
}
