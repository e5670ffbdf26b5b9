// Package probe performs a single health check against one feed source:
// fetch, format-specific parse, and freshness evaluation. A check is a pure
// read; all expected failures come back as Result values, never as errors.
package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/abelbrown/feedwatch/internal/dates"
	"github.com/mmcdole/gofeed"
)

// DefaultTimeout bounds each outbound fetch.
const DefaultTimeout = 10 * time.Second

// DefaultMaxAge is the staleness threshold applied when a source does not
// configure its own.
const DefaultMaxAge = 72 * time.Hour

// userAgent is a realistic browser agent; several origins reject Go's
// default one.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// Prober checks feed sources over HTTP.
type Prober struct {
	client *http.Client
	now    func() time.Time
}

// New creates a Prober with the given HTTP timeout. A timeout <= 0 uses
// DefaultTimeout.
func New(timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Prober{
		client: &http.Client{Timeout: timeout},
		now:    time.Now,
	}
}

// Check probes a single target and reports its health. Transport failures,
// malformed payloads, empty feeds, and staleness all come back as failure
// Results; only the surrounding infrastructure deals in errors.
func (p *Prober) Check(ctx context.Context, t Target) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.URL, nil)
	if err != nil {
		return failure(FailUnreachable, fmt.Sprintf("unreachable: %v", err))
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return failure(FailUnreachable, fmt.Sprintf("unreachable: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return failure(FailUnreachable, fmt.Sprintf("unreachable: HTTP %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return failure(FailUnreachable, fmt.Sprintf("unreachable: %v", err))
	}
	if len(body) == 0 {
		return failure(FailEmptyResponse, "empty response")
	}

	maxAge := t.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}

	switch t.Kind {
	case KindAPI:
		return p.checkAPI(body, maxAge)
	default:
		return p.checkFeed(body, maxAge)
	}
}

// apiEnvelope is the tagged JSON envelope used by the structured API
// sources; articles live at result.data.
type apiEnvelope struct {
	Result struct {
		Data []apiArticle `json:"data"`
	} `json:"result"`
}

type apiArticle struct {
	Ctime unixSeconds `json:"ctime"`
}

// unixSeconds decodes a creation time that arrives either as a JSON number
// or as a numeric string. Anything unparseable decodes to zero rather than
// failing the envelope.
type unixSeconds int64

func (u *unixSeconds) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(data, `"`))
	if s == "" || s == "null" {
		*u = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		*u = 0
		return nil
	}
	*u = unixSeconds(n)
	return nil
}

func (p *Prober) checkAPI(body []byte, maxAge time.Duration) Result {
	var env apiEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return failure(FailParse, "JSON parse error")
	}

	articles := env.Result.Data
	if len(articles) == 0 {
		return failure(FailEmptyFeed, "empty feed (0 articles)")
	}

	var newest time.Time
	for _, a := range articles {
		if a.Ctime == 0 {
			continue
		}
		ts := time.Unix(int64(a.Ctime), 0)
		if ts.After(newest) {
			newest = ts
		}
	}

	return p.finish(len(articles), newest, maxAge)
}

func (p *Prober) checkFeed(body []byte, maxAge time.Duration) Result {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return failure(FailParse, "XML parse error")
	}

	if len(feed.Items) == 0 {
		return failure(FailEmptyFeed, "empty feed (0 articles)")
	}

	var newest time.Time
	for _, item := range feed.Items {
		ts, ok := itemTime(item)
		if ok && ts.After(newest) {
			newest = ts
		}
	}

	return p.finish(len(feed.Items), newest, maxAge)
}

// itemTime extracts a publication timestamp from a feed item. The raw
// pubDate/updated strings go through the date normalizer first so that the
// known malformed variants are handled; gofeed's own parsed times are the
// fallback. No usable timestamp means the item is skipped for freshness.
func itemTime(item *gofeed.Item) (time.Time, bool) {
	if ts, ok := dates.Parse(item.Published); ok {
		return ts, true
	}
	if ts, ok := dates.Parse(item.Updated); ok {
		return ts, true
	}
	if item.PublishedParsed != nil {
		return *item.PublishedParsed, true
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed, true
	}
	return time.Time{}, false
}

// finish applies the freshness rule. No usable timestamp skips the check
// rather than failing it. A stale result keeps the real article count.
func (p *Prober) finish(articles int, newest time.Time, maxAge time.Duration) Result {
	res := Result{OK: true, Articles: articles}
	if newest.IsZero() {
		return res
	}

	age := p.now().Sub(newest)
	res.NewestAge = age
	res.HasAge = true

	if age > maxAge {
		return Result{
			Failure:   FailStale,
			Detail:    fmt.Sprintf("stale feed (newest %.0fh, max %.0fh)", age.Hours(), maxAge.Hours()),
			Articles:  articles,
			NewestAge: age,
			HasAge:    true,
		}
	}
	return res
}
