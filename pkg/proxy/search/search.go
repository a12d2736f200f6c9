// Package search implements the fuzzy-matching meta-tool backing a view's
// "search" exposure mode. It ranks a tool catalog against a free-text query
// by the best of a fuzzy match on the exposed name and on the description.
package search

import (
	"sort"

	"github.com/sahilm/fuzzy"

	"github.com/toolview/toolview/pkg/proxy"
)

// scoreThreshold excludes weak matches. The fuzzy scorer rewards adjacent
// and prefix matches and penalizes scattered ones, so anything below zero is
// noise rather than a plausible hit.
const scoreThreshold = 0

// stringSource adapts a slice of strings to the fuzzy matcher.
type stringSource []string

func (s stringSource) String(i int) string { return s[i] }
func (s stringSource) Len() int            { return len(s) }

// Search returns the catalog entries best matching query, sorted by score
// descending and truncated to limit. An empty query returns the first limit
// entries unchanged. A query with no match above threshold returns an empty
// slice.
func Search(catalog []proxy.ToolDescriptor, query string, limit int) []proxy.ToolDescriptor {
	if limit <= 0 || limit > len(catalog) {
		limit = len(catalog)
	}

	if query == "" {
		out := make([]proxy.ToolDescriptor, limit)
		copy(out, catalog[:limit])
		return out
	}

	names := make(stringSource, len(catalog))
	descriptions := make(stringSource, len(catalog))
	for i, d := range catalog {
		names[i] = d.Name
		descriptions[i] = d.Description
	}

	// Best score per entry across both fields.
	best := make(map[int]int)
	for _, m := range fuzzy.FindFrom(query, names) {
		best[m.Index] = m.Score
	}
	for _, m := range fuzzy.FindFrom(query, descriptions) {
		if score, seen := best[m.Index]; !seen || m.Score > score {
			best[m.Index] = m.Score
		}
	}

	type scored struct {
		index int
		score int
	}
	ranked := make([]scored, 0, len(best))
	for idx, score := range best {
		if score < scoreThreshold {
			continue
		}
		ranked = append(ranked, scored{index: idx, score: score})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return catalog[ranked[i].index].Name < catalog[ranked[j].index].Name
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	out := make([]proxy.ToolDescriptor, len(ranked))
	for i, r := range ranked {
		out[i] = catalog[r.index]
	}
	return out
}
