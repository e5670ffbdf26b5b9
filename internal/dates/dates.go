// Package dates normalizes the publication-date strings that real feeds
// actually ship: RFC 2822 pubDates, ISO 8601 timestamps, and a couple of
// publisher-specific malformations seen in the wild.
package dates

import (
	"regexp"
	"strings"
	"time"
)

// rfc2822Layouts covers the email-style date formats used by RSS pubDate
// elements, including the no-weekday and single-digit-day variants.
var rfc2822Layouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"02 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 -0700",
}

// isoLayouts covers ISO 8601 / RFC 3339 forms, with and without the "T"
// separator, plus date-only strings.
var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// trailingOffset matches a numeric UTC offset glued to (or floating after)
// the end of a timestamp, e.g. "2026-02-22 15:00:00  +0800".
var trailingOffset = regexp.MustCompile(`\s*([+-]\d{4})$`)

// Parse normalizes a free-form publication-date string into an absolute
// timestamp. Strategies are tried in a fixed order: RFC 2822, ISO 8601, then
// a repair pass that fixes the spacing before a trailing numeric offset and
// retries ISO 8601. Returns ok=false when nothing applies; an unparseable
// date is absent, never an error.
func Parse(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range rfc2822Layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	// Some publishers emit "2006-01-02 15:04:05  +0800" with no or doubled
	// space before the offset. Normalize to one space and retry.
	cleaned := trailingOffset.ReplaceAllString(s, " $1")
	if cleaned != s {
		for _, layout := range isoLayouts {
			if t, err := time.Parse(layout, cleaned); err == nil {
				return t, true
			}
		}
	}

	return time.Time{}, false
}
