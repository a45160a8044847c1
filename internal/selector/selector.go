// Package selector chooses and ranks the stories sent to synthesis.
package selector

import (
	"fmt"

	"github.com/rs/zerolog"

	"dains/internal/core"
)

// ErrInsufficientStories is returned when the run cannot assemble enough
// stories to publish a scan worth reading. The pipeline must abort before
// synthesis or any store write.
var ErrInsufficientStories = fmt.Errorf("not enough stories to publish")

// Selector applies the minimum-count gate and the newsletter-vs-RSS fallback
// policy. A batch is either entirely newsletter-ranked or entirely RSS-ranked;
// the two modes are never mixed within one run.
type Selector struct {
	minStories    int
	targetStories int
	log           zerolog.Logger
}

// New returns a Selector. minStories is the hard floor below which the run
// aborts; targetStories caps the batch size.
func New(minStories, targetStories int, log zerolog.Logger) *Selector {
	return &Selector{minStories: minStories, targetStories: targetStories, log: log}
}

// Select returns the ranked stories and whether the ranking came from
// newsletter hit counts. When enough clusters exist, the top targetStories
// clusters (already hit-count-sorted by the clusterer) are the canonical
// ranking. Otherwise the batch falls back to the deduplicated RSS list in
// priority order. If even the fallback cannot reach minStories, Select
// returns ErrInsufficientStories.
func (s *Selector) Select(clusters []core.Cluster, dedupedRSS []core.RawItem) ([]core.Story, bool, error) {
	if len(clusters) >= s.minStories {
		stories := make([]core.Story, 0, s.targetStories)
		for _, cl := range clusters {
			if len(stories) == s.targetStories {
				break
			}
			stories = append(stories, core.ClusterStory(cl))
		}
		s.log.Info().Int("stories", len(stories)).Msg("selection: newsletter-ranked mode")
		return stories, true, nil
	}

	s.log.Info().
		Int("clusters", len(clusters)).
		Int("min_stories", s.minStories).
		Msg("selection: too few clusters, falling back to RSS ranking")

	stories := make([]core.Story, 0, s.targetStories)
	for _, item := range dedupedRSS {
		if len(stories) == s.targetStories {
			break
		}
		stories = append(stories, core.FallbackStory(item))
	}

	if len(stories) < s.minStories {
		return nil, false, fmt.Errorf("%w: have %d, need %d", ErrInsufficientStories, len(stories), s.minStories)
	}
	return stories, false, nil
}
