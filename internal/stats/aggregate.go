// Package stats derives summary figures over an in-memory set of watches
// already fetched from the database. All functions are pure, synchronous,
// and side-effect free; collections are personal-sized, so results are
// recomputed on demand with no caching.
package stats

import "github.com/watchdex/go-watch-backend/internal/domain"

// NoneSentinel is returned by MostOwnedBrand and FavoriteStyle when there is
// nothing to count.
const NoneSentinel = "None"

// FilterByType returns the ordered subsequence of watches whose Type equals
// typ, preserving input order. Filtering an already-filtered sequence by the
// same type returns it unchanged.
func FilterByType(watches []domain.Watch, typ string) []domain.Watch {
	out := make([]domain.Watch, 0, len(watches))
	for _, w := range watches {
		if w.Type == typ {
			out = append(out, w)
		}
	}
	return out
}

// TotalValue sums Value over all watches; 0 for an empty set.
func TotalValue(watches []domain.Watch) float64 {
	var total float64
	for _, w := range watches {
		total += w.Value
	}
	return total
}

// MostOwnedBrand returns the brand with the highest occurrence count, or
// "None" for an empty set. Ties break toward the brand that first reaches
// the maximal count in input order.
func MostOwnedBrand(watches []domain.Watch) string {
	return topCount(watches, func(w domain.Watch) string { return w.Brand })
}

// FavoriteStyle returns the most frequent style, ignoring watches whose
// style is unset or the "None" fallback. Returns "None" when no watch has
// a style.
func FavoriteStyle(watches []domain.Watch) string {
	return topCount(watches, func(w domain.Watch) string {
		if w.Style == domain.FallbackNone {
			return ""
		}
		return w.Style
	})
}

// topCount tallies the non-empty keys produced by keyFn and returns the key
// that first reaches the maximal count, or the sentinel when nothing counts.
func topCount(watches []domain.Watch, keyFn func(domain.Watch) string) string {
	counts := make(map[string]int, len(watches))
	best := NoneSentinel
	bestCount := 0
	for _, w := range watches {
		k := keyFn(w)
		if k == "" {
			continue
		}
		counts[k]++
		if counts[k] > bestCount {
			best, bestCount = k, counts[k]
		}
	}
	return best
}

// Summary bundles the derived figures returned by the summary endpoint.
type Summary struct {
	Count          int     `json:"count"`
	TotalValue     float64 `json:"total_value"`
	MostOwnedBrand string  `json:"most_owned_brand"`
	FavoriteStyle  string  `json:"favorite_style"`
}

// Summarize computes all aggregates over the given watches in one pass set.
func Summarize(watches []domain.Watch) Summary {
	return Summary{
		Count:          len(watches),
		TotalValue:     TotalValue(watches),
		MostOwnedBrand: MostOwnedBrand(watches),
		FavoriteStyle:  FavoriteStyle(watches),
	}
}
