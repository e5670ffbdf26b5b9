package monitor

import (
	"encoding/json"
	"fmt"
	"os"
)

// DefaultFallbacks returns the built-in mirror registry: source name to a
// known-good alternate URL. These are RSSHub-style mirrors for sources whose
// primaries degrade regularly. The registry is a static lookup, separate from
// the source document the mutator rewrites.
func DefaultFallbacks() map[string]string {
	return map[string]string{
		"Huxiu":   "https://rsshub.rssforever.com/huxiu/article",
		"ITHome":  "https://rsshub.rssforever.com/ithome",
		"36Kr":    "https://rsshub.rssforever.com/36kr/news",
		"SSPai":   "https://rsshub.rssforever.com/sspai/matrix",
		"TMTPost": "https://rsshub.rssforever.com/tmtpost/recommend",
		"Jiemian": "https://rsshub.rssforever.com/jiemian/list/4",
		"Solidot": "https://rsshub.rssforever.com/solidot",
		"Infzm":   "https://rsshub.rssforever.com/infzm/2",
	}
}

// LoadFallbacks reads a name→mirror JSON object from path and merges it over
// the built-in registry. An entry mapping a name to "" removes the built-in
// mirror for that source.
func LoadFallbacks(path string) (map[string]string, error) {
	merged := DefaultFallbacks()
	if path == "" {
		return merged, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fallbacks: %w", err)
	}

	var overrides map[string]string
	if err := json.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parse fallbacks %s: %w", path, err)
	}

	for name, url := range overrides {
		if url == "" {
			delete(merged, name)
			continue
		}
		merged[name] = url
	}
	return merged, nil
}
