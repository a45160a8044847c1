// Package dedup removes duplicate news items across sources, first by exact
// canonical URL and then by fuzzy title match, always keeping the
// higher-priority source's copy.
package dedup

import (
	"net/url"
	"sort"

	"github.com/rs/zerolog"

	"dains/internal/core"
	"dains/internal/similarity"
)

// trackingParams are query parameters stripped before URL comparison.
var trackingParams = []string{
	"utm_source", "utm_medium", "utm_campaign", "utm_content", "utm_term",
	"ref", "source",
}

// CanonicalURL strips known tracking query parameters so the same article
// shared through different channels compares equal. Unparseable URLs are
// returned as-is.
func CanonicalURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	query := parsed.Query()
	for _, param := range trackingParams {
		query.Del(param)
	}
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

// Deduplicator removes URL and near-duplicate-title items from a batch.
type Deduplicator struct {
	fuzzyThreshold float64
	log            zerolog.Logger
}

// New returns a Deduplicator that treats titles with similarity at or above
// fuzzyThreshold as duplicates.
func New(fuzzyThreshold float64, log zerolog.Logger) *Deduplicator {
	return &Deduplicator{fuzzyThreshold: fuzzyThreshold, log: log}
}

// Deduplicate returns the unique items in priority order. Items are first
// stably sorted ascending by SourcePriority (lower value = preferred source),
// then walked once: an item is discarded when its canonical URL was already
// seen, or when its title scores at or above the fuzzy threshold against any
// already-accepted title. Comparisons run against the accepted prefix only,
// so the pass is deterministic for a fixed input order.
func (d *Deduplicator) Deduplicate(items []core.RawItem) []core.RawItem {
	sorted := make([]core.RawItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SourcePriority < sorted[j].SourcePriority
	})

	seenURLs := make(map[string]struct{})
	var acceptedTitles []string
	deduplicated := make([]core.RawItem, 0, len(sorted))

	for _, item := range sorted {
		canonical := CanonicalURL(item.URL)
		if _, ok := seenURLs[canonical]; ok {
			d.log.Debug().Str("title", truncate(item.Title, 50)).Msg("dedup: dropped exact URL duplicate")
			continue
		}

		if match, ok := d.findTitleMatch(item.Title, acceptedTitles); ok {
			d.log.Debug().
				Str("title", truncate(item.Title, 50)).
				Str("matches", truncate(match, 50)).
				Msg("dedup: dropped fuzzy title duplicate")
			continue
		}

		seenURLs[canonical] = struct{}{}
		acceptedTitles = append(acceptedTitles, item.Title)
		item.URL = canonical
		deduplicated = append(deduplicated, item)
	}

	return deduplicated
}

// findTitleMatch returns the first accepted title the candidate collides
// with. First match wins; no further scanning.
func (d *Deduplicator) findTitleMatch(title string, accepted []string) (string, bool) {
	for _, existing := range accepted {
		if similarity.TitleSimilarity(title, existing) >= d.fuzzyThreshold {
			return existing, true
		}
	}
	return "", false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
