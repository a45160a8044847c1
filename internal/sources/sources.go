// Package sources loads the feed source registry from sources.yaml.
package sources

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Registry is the full source configuration: RSS/Atom feeds plus query-based
// API sources.
type Registry struct {
	RSS []Source `yaml:"rss"`
	API []Source `yaml:"api"`
}

// Source describes one configured news source. Priority is inverted: lower
// values mean more trusted sources and win dedup ties.
type Source struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`       // Feed URL (RSS sources)
	Query    string `yaml:"query"`     // Search query (API sources)
	Priority int    `yaml:"priority"`
	Enabled  bool   `yaml:"enabled"`
	MaxItems int    `yaml:"max_items"` // 0 means use the global default
}

// Load reads and validates the registry from the given YAML file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file %s: %w", path, err)
	}

	registry := &Registry{}
	if err := yaml.Unmarshal(data, registry); err != nil {
		return nil, fmt.Errorf("failed to parse sources file %s: %w", path, err)
	}

	if err := registry.validate(); err != nil {
		return nil, fmt.Errorf("invalid sources file %s: %w", path, err)
	}
	return registry, nil
}

func (r *Registry) validate() error {
	seen := make(map[string]struct{})
	for _, source := range append(append([]Source{}, r.RSS...), r.API...) {
		if source.ID == "" {
			return fmt.Errorf("source %q has no id", source.Name)
		}
		if _, dup := seen[source.ID]; dup {
			return fmt.Errorf("duplicate source id %q", source.ID)
		}
		seen[source.ID] = struct{}{}
	}
	for _, source := range r.RSS {
		if source.Enabled && source.URL == "" {
			return fmt.Errorf("enabled RSS source %q has no url", source.ID)
		}
	}
	for _, source := range r.API {
		if source.Enabled && source.Query == "" {
			return fmt.Errorf("enabled API source %q has no query", source.ID)
		}
	}
	return nil
}

// EnabledRSS returns the enabled RSS sources in file order.
func (r *Registry) EnabledRSS() []Source {
	return enabled(r.RSS)
}

// EnabledAPI returns the enabled API sources in file order.
func (r *Registry) EnabledAPI() []Source {
	return enabled(r.API)
}

func enabled(sources []Source) []Source {
	var out []Source
	for _, source := range sources {
		if source.Enabled {
			out = append(out, source)
		}
	}
	return out
}
