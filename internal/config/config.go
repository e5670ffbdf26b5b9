// Package config owns the persisted source-list document: loading it,
// flattening it into probe targets, and performing the atomic URL swaps the
// failover machinery requests. It is the only writer of the document.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/abelbrown/feedwatch/internal/probe"
)

// DefaultMaxAgeHours applies when a source does not set max_age_hours.
const DefaultMaxAgeHours = 72

// Source is one configured feed endpoint. Keywords and Limit belong to the
// downstream aggregation surface; the health checks only need name, url, and
// the staleness threshold.
type Source struct {
	Name        string   `json:"name"`
	URL         string   `json:"url"`
	Keywords    []string `json:"keywords,omitempty"`
	Limit       int      `json:"limit,omitempty"`
	MaxAgeHours int      `json:"max_age_hours,omitempty"`
}

// Config is the source-list document: API sources and RSS/Atom feeds.
type Config struct {
	APISources []Source `json:"api_sources"`
	RSSFeeds   []Source `json:"rss_feeds"`
}

// Load reads and decodes the source-list document.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// Targets flattens both source sections into probe targets, applying the
// default staleness threshold where a source does not set its own.
func (c *Config) Targets() []probe.Target {
	targets := make([]probe.Target, 0, len(c.APISources)+len(c.RSSFeeds))
	for _, s := range c.APISources {
		targets = append(targets, target(s, probe.KindAPI))
	}
	for _, s := range c.RSSFeeds {
		targets = append(targets, target(s, probe.KindFeed))
	}
	return targets
}

func target(s Source, kind probe.Kind) probe.Target {
	hours := s.MaxAgeHours
	if hours <= 0 {
		hours = DefaultMaxAgeHours
	}
	return probe.Target{
		Name:   s.Name,
		URL:    s.URL,
		Kind:   kind,
		MaxAge: time.Duration(hours) * time.Hour,
	}
}

// URLFor returns the currently live URL for a source by name, or "" if the
// source is not configured.
func (c *Config) URLFor(name string) string {
	for _, s := range c.APISources {
		if s.Name == name {
			return s.URL
		}
	}
	for _, s := range c.RSSFeeds {
		if s.Name == name {
			return s.URL
		}
	}
	return ""
}

// KindFor returns the declared kind for a source by name, defaulting to the
// feed kind for unknown names (matters for revert probes of original URLs).
func (c *Config) KindFor(name string) probe.Kind {
	for _, s := range c.APISources {
		if s.Name == name {
			return probe.KindAPI
		}
	}
	return probe.KindFeed
}
