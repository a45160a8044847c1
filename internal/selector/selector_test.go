package selector

import (
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"dains/internal/core"
)

func makeClusters(n int) []core.Cluster {
	clusters := make([]core.Cluster, n)
	for i := range clusters {
		clusters[i] = core.Cluster{
			Headline: fmt.Sprintf("Cluster headline %d", i),
			Hits:     []core.Hit{{ItemID: fmt.Sprintf("item-%d", i)}},
		}
	}
	return clusters
}

func makeRSS(n int) []core.RawItem {
	items := make([]core.RawItem, n)
	for i := range items {
		items[i] = core.RawItem{
			Title:          fmt.Sprintf("RSS headline %d", i),
			URL:            fmt.Sprintf("https://news.com/%d", i),
			Publisher:      "News",
			SourcePriority: i,
		}
	}
	return items
}

func TestSelect_NewsletterRanked(t *testing.T) {
	s := New(5, 10, zerolog.Nop())
	stories, ranked, err := s.Select(makeClusters(7), makeRSS(20))
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if !ranked {
		t.Error("expected newsletter-ranked mode")
	}
	if len(stories) != 7 {
		t.Errorf("expected all 7 clusters as stories, got %d", len(stories))
	}
}

func TestSelect_TruncatesToTarget(t *testing.T) {
	s := New(5, 10, zerolog.Nop())
	stories, _, err := s.Select(makeClusters(14), nil)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if len(stories) != 10 {
		t.Errorf("expected truncation to 10 stories, got %d", len(stories))
	}
}

func TestSelect_FallbackPath(t *testing.T) {
	s := New(5, 10, zerolog.Nop())
	stories, ranked, err := s.Select(makeClusters(3), makeRSS(12))
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if ranked {
		t.Error("expected fallback mode with only 3 clusters")
	}
	if len(stories) != 10 {
		t.Errorf("expected 10 fallback stories, got %d", len(stories))
	}
	for i, story := range stories {
		if len(story.Hits) != 0 || len(story.Entities) != 0 {
			t.Errorf("fallback story %d should have empty hits and entities", i)
		}
		if story.PrimarySource == nil {
			t.Errorf("fallback story %d should carry its own item as primary source", i)
		}
	}
}

func TestSelect_FallbackKeepsPriorityOrder(t *testing.T) {
	s := New(2, 5, zerolog.Nop())
	rss := makeRSS(5)
	stories, _, err := s.Select(nil, rss)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	for i, story := range stories {
		if story.Headline != rss[i].Title {
			t.Errorf("fallback story %d out of order: %q", i, story.Headline)
		}
	}
}

func TestSelect_InsufficientStories(t *testing.T) {
	s := New(5, 10, zerolog.Nop())
	stories, _, err := s.Select(makeClusters(2), makeRSS(3))
	if !errors.Is(err, ErrInsufficientStories) {
		t.Fatalf("expected ErrInsufficientStories, got %v", err)
	}
	if stories != nil {
		t.Error("no stories should be returned on abort")
	}
}

func TestSelect_NoMixedModes(t *testing.T) {
	// Exactly minStories clusters: the whole batch must be cluster-shaped,
	// with no RSS items interleaved.
	s := New(5, 10, zerolog.Nop())
	stories, ranked, err := s.Select(makeClusters(5), makeRSS(20))
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if !ranked {
		t.Error("expected newsletter-ranked mode at the threshold")
	}
	if len(stories) != 5 {
		t.Errorf("expected exactly the 5 clusters, got %d stories", len(stories))
	}
	for i, story := range stories {
		if len(story.Hits) == 0 {
			t.Errorf("story %d lost its cluster hits", i)
		}
	}
}
