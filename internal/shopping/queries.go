package shopping

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// QuerySets holds the fixed marketplace search terms per activity category,
// loaded from a YAML data file.
type QuerySets struct {
	DefaultCategory string              `yaml:"default_category"`
	Categories      map[string][]string `yaml:"categories"`
}

// LoadQuerySets loads and validates the query-set file.
func LoadQuerySets(path string) (*QuerySets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read query sets: %w", err)
	}

	var sets QuerySets
	if err := yaml.Unmarshal(data, &sets); err != nil {
		return nil, fmt.Errorf("failed to parse query sets: %w", err)
	}

	if len(sets.Categories) == 0 {
		return nil, fmt.Errorf("query set file %s defines no categories", path)
	}
	if sets.DefaultCategory == "" {
		return nil, fmt.Errorf("query set file %s has no default_category", path)
	}
	if _, ok := sets.Categories[sets.DefaultCategory]; !ok {
		return nil, fmt.Errorf("default_category %q not present in categories", sets.DefaultCategory)
	}
	for category, queries := range sets.Categories {
		if len(queries) == 0 {
			return nil, fmt.Errorf("category %q has no queries", category)
		}
	}

	return &sets, nil
}

// For returns the query list for a category, falling back to the default
// category when the requested one is unknown.
func (sets *QuerySets) For(category string) []string {
	if queries, ok := sets.Categories[category]; ok {
		return queries
	}
	return sets.Categories[sets.DefaultCategory]
}
