// Package cluster groups newsletter items into story clusters and attaches
// primary RSS sources to them.
package cluster

import (
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"dains/internal/core"
	"dains/internal/similarity"
)

// Clusterer assigns newsletter items to story clusters using greedy first-fit
// matching. The assignment is order-sensitive on purpose: items are processed
// in the order supplied (newest first), each one joins the first existing
// cluster it matches, and clusters are never merged after creation.
// Downstream ranking depends on this exact behavior, so the headline check
// always runs before the entity check and the scan stops at the first match.
type Clusterer struct {
	headlineThreshold float64
	entityOverlapMin  int
	log               zerolog.Logger
}

// NewClusterer returns a Clusterer. headlineThreshold is the Jaccard score
// at/above which an item joins a cluster by headline; entityOverlapMin is the
// number of shared entities needed for an entity-based join.
func NewClusterer(headlineThreshold float64, entityOverlapMin int, log zerolog.Logger) *Clusterer {
	return &Clusterer{
		headlineThreshold: headlineThreshold,
		entityOverlapMin:  entityOverlapMin,
		log:               log,
	}
}

// Cluster groups the items and returns the clusters sorted descending by hit
// count (ties keep insertion order). Every returned cluster has at least one
// hit, and its entity set is the case-insensitive union of its members'.
func (c *Clusterer) Cluster(items []core.NewsletterItem) []core.Cluster {
	var clusters []core.Cluster

	for _, item := range items {
		idx := c.findCluster(clusters, item)
		if idx < 0 {
			clusters = append(clusters, newCluster(item))
			continue
		}

		clusters[idx].Hits = append(clusters[idx].Hits, hitFrom(item))
		clusters[idx].Entities = mergeEntities(clusters[idx].Entities, item.Entities)
		c.log.Debug().
			Str("headline", item.Headline).
			Str("cluster", clusters[idx].Headline).
			Int("hits", len(clusters[idx].Hits)).
			Msg("clustered newsletter item")
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		return len(clusters[i].Hits) > len(clusters[j].Hits)
	})

	return clusters
}

// findCluster returns the index of the first cluster the item matches, or -1.
// Headline similarity is checked before entity overlap for every cluster.
func (c *Clusterer) findCluster(clusters []core.Cluster, item core.NewsletterItem) int {
	for i, cl := range clusters {
		if similarity.TitleSimilarity(item.Headline, cl.Headline) >= c.headlineThreshold {
			return i
		}
		if len(item.Entities) > 0 && len(cl.Entities) > 0 &&
			entityOverlap(cl.Entities, item.Entities) >= c.entityOverlapMin {
			return i
		}
	}
	return -1
}

func newCluster(item core.NewsletterItem) core.Cluster {
	return core.Cluster{
		Headline:  item.Headline,
		Summary:   item.Summary,
		SourceURL: item.SourceURL,
		Entities:  mergeEntities(nil, item.Entities),
		Hits:      []core.Hit{hitFrom(item)},
	}
}

func hitFrom(item core.NewsletterItem) core.Hit {
	return core.Hit{
		ItemID:         item.ID,
		NewsletterName: item.NewsletterName,
		Headline:       item.Headline,
	}
}

// entityOverlap counts case-insensitively shared entities.
func entityOverlap(a, b []string) int {
	set := make(map[string]struct{}, len(a))
	for _, entity := range a {
		set[strings.ToLower(entity)] = struct{}{}
	}
	count := 0
	seen := make(map[string]struct{})
	for _, entity := range b {
		key := strings.ToLower(entity)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if _, ok := set[key]; ok {
			count++
		}
	}
	return count
}

// mergeEntities unions two entity lists, comparing case-insensitively while
// preserving the casing of the first occurrence.
func mergeEntities(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing))
	merged := make([]string, 0, len(existing)+len(incoming))
	for _, entity := range existing {
		key := strings.ToLower(entity)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, entity)
	}
	for _, entity := range incoming {
		key := strings.ToLower(entity)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, entity)
	}
	return merged
}
