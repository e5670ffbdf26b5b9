package probe

import "time"

// Kind identifies how a source's payload is parsed.
type Kind string

const (
	// KindAPI is a structured JSON endpoint with articles at result.data.
	KindAPI Kind = "api"
	// KindFeed is an RSS or Atom XML feed.
	KindFeed Kind = "rss"
)

// FailureKind is the taxonomy of expected probe failures. All of these are
// recoverable outcomes of a single check, not program errors.
type FailureKind string

const (
	FailUnreachable   FailureKind = "unreachable"
	FailEmptyResponse FailureKind = "empty-response"
	FailParse         FailureKind = "parse-error"
	FailEmptyFeed     FailureKind = "empty-feed"
	FailStale         FailureKind = "stale"
	// FailException marks a probe that panicked; synthesized at the
	// scheduler boundary so one defect cannot abort the batch.
	FailException FailureKind = "exception"
)

// Target is one source to check: its stable name, currently live URL,
// payload kind, and staleness threshold.
type Target struct {
	Name   string
	URL    string
	Kind   Kind
	MaxAge time.Duration
}

// Result is the outcome of a single probe. Produced fresh on every check and
// never mutated after construction.
type Result struct {
	OK       bool
	Failure  FailureKind // zero value when OK
	Detail   string      // human-readable failure message
	Articles int
	// NewestAge is the age of the newest article, valid only when HasAge.
	// A stale result still carries the real article count and age.
	NewestAge time.Duration
	HasAge    bool
}

// Message returns the failure message, or "" for a healthy result.
func (r Result) Message() string {
	if r.OK {
		return ""
	}
	if r.Detail != "" {
		return r.Detail
	}
	return string(r.Failure)
}

func failure(kind FailureKind, detail string) Result {
	return Result{Failure: kind, Detail: detail}
}
