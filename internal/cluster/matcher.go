package cluster

import (
	"strings"

	"github.com/rs/zerolog"

	"dains/internal/core"
	"dains/internal/similarity"
)

// Matcher attaches the best-matching deduplicated RSS item to each cluster as
// its primary citation. Because the RSS list arrives priority-sorted, taking
// the first match doubles as taking the preferred source.
type Matcher struct {
	headlineThreshold float64
	entityOverlapMin  int
	log               zerolog.Logger
}

// NewMatcher returns a Matcher. headlineThreshold is the Jaccard score for a
// headline match; entityOverlapMin is how many cluster entities must appear
// in an RSS item's content for an entity match.
func NewMatcher(headlineThreshold float64, entityOverlapMin int, log zerolog.Logger) *Matcher {
	return &Matcher{
		headlineThreshold: headlineThreshold,
		entityOverlapMin:  entityOverlapMin,
		log:               log,
	}
}

// AttachPrimarySources populates PrimarySource on each cluster with the first
// RSS item that matches by headline or by entity mention. Clusters with no
// match keep a nil PrimarySource.
func (m *Matcher) AttachPrimarySources(clusters []core.Cluster, rssItems []core.RawItem) []core.Cluster {
	for i := range clusters {
		for _, item := range rssItems {
			if !m.matches(clusters[i], item) {
				continue
			}
			clusters[i].PrimarySource = &core.PrimarySource{
				Title:     item.Title,
				URL:       item.URL,
				Publisher: item.Publisher,
			}
			m.log.Debug().
				Str("cluster", clusters[i].Headline).
				Str("source", item.Publisher).
				Msg("attached primary source")
			break
		}
	}
	return clusters
}

// matches checks headline similarity first, then entity mentions. The entity
// check is a raw case-insensitive substring search over the item's content;
// short entity names ("AI") can false-positive, which is an accepted
// precision tradeoff.
func (m *Matcher) matches(cl core.Cluster, item core.RawItem) bool {
	if similarity.TitleSimilarity(cl.Headline, item.Title) >= m.headlineThreshold {
		return true
	}
	if len(cl.Entities) == 0 {
		return false
	}
	content := strings.ToLower(item.Content)
	found := 0
	for _, entity := range cl.Entities {
		if entity == "" {
			continue
		}
		if strings.Contains(content, strings.ToLower(entity)) {
			found++
			if found >= m.entityOverlapMin {
				return true
			}
		}
	}
	return false
}
