package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"dains/internal/cluster"
	"dains/internal/core"
	"dains/internal/dedup"
	"dains/internal/selector"
	"dains/internal/sources"
)

type fakeFetcher struct {
	items map[string][]core.RawItem
	errs  map[string]error
	delay map[string]time.Duration
}

func (f *fakeFetcher) Fetch(ctx context.Context, source sources.Source, now time.Time) ([]core.RawItem, error) {
	if d, ok := f.delay[source.ID]; ok {
		time.Sleep(d)
	}
	if err, ok := f.errs[source.ID]; ok {
		return nil, err
	}
	return f.items[source.ID], nil
}

type fakeSearcher struct {
	enabled bool
	items   []core.RawItem
}

func (f *fakeSearcher) Enabled() bool { return f.enabled }

func (f *fakeSearcher) Search(ctx context.Context, source sources.Source, now time.Time) ([]core.RawItem, error) {
	return f.items, nil
}

type fakeStore struct {
	newsletterItems []core.NewsletterItem
	existingSlugs   map[string]bool

	upserted  []core.PublishedPost
	processed []string
	markSlug  string
}

func (f *fakeStore) UnprocessedItems(now time.Time, lookback time.Duration) ([]core.NewsletterItem, error) {
	return f.newsletterItems, nil
}

func (f *fakeStore) MarkProcessed(itemIDs []string, slug string, processedAt time.Time) error {
	f.processed = append(f.processed, itemIDs...)
	f.markSlug = slug
	return nil
}

func (f *fakeStore) PostExists(slug string) (bool, error) {
	return f.existingSlugs[slug], nil
}

func (f *fakeStore) UpsertPost(post core.PublishedPost) error {
	f.upserted = append(f.upserted, post)
	return nil
}

type fakeSynthesizer struct {
	err        error
	gotStories []core.Story
	gotRanked  bool
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, stories []core.Story, newsletterRanked bool, now time.Time) (*core.Briefing, error) {
	f.gotStories = stories
	f.gotRanked = newsletterRanked
	if f.err != nil {
		return nil, f.err
	}
	return &core.Briefing{
		HTML:          "<h1>Daily AI News Scan</h1>",
		DateString:    now.UTC().Format("2006-01-02"),
		FormattedDate: now.UTC().Format("Monday, January 2, 2006"),
		GeneratedAt:   now,
	}, nil
}

// Distinct token sets so neither the fuzzy dedup nor the clusterer collapses
// the fixtures.
var topics = []string{"quantum", "robotics", "chips", "funding", "policy", "safety"}

func rawItems(sourceID string, priority, n int) []core.RawItem {
	items := make([]core.RawItem, n)
	for i := range items {
		items[i] = core.RawItem{
			Title:          fmt.Sprintf("%s covers %s developments", sourceID, topics[i%len(topics)]),
			URL:            fmt.Sprintf("https://%s.com/%d", sourceID, i),
			Publisher:      sourceID,
			PublishedAt:    time.Now(),
			SourcePriority: priority,
			SourceID:       sourceID,
		}
	}
	return items
}

var newsletterHeadlines = []string{
	"OpenAI releases new flagship model",
	"Anthropic publishes interpretability research",
	"Nvidia unveils next generation accelerators",
	"Google rolls generative results into search",
	"Meta open sources multimodal system",
	"Microsoft expands enterprise assistant offering",
}

func newsletterBatch(n int) []core.NewsletterItem {
	items := make([]core.NewsletterItem, n)
	for i := range items {
		items[i] = core.NewsletterItem{
			ID:             fmt.Sprintf("nl-%d", i),
			NewsletterName: "The Batch",
			Headline:       newsletterHeadlines[i%len(newsletterHeadlines)],
			Summary:        "Summary.",
			Entities:       []string{fmt.Sprintf("Entity%dA", i), fmt.Sprintf("Entity%dB", i)},
		}
	}
	return items
}

func testRegistry() *sources.Registry {
	return &sources.Registry{
		RSS: []sources.Source{
			{ID: "alpha", Name: "Alpha", URL: "https://alpha.com/feed", Priority: 1, Enabled: true},
			{ID: "beta", Name: "Beta", URL: "https://beta.com/feed", Priority: 2, Enabled: true},
		},
		API: []sources.Source{
			{ID: "napi", Name: "NewsAPI", Query: "ai", Priority: 5, Enabled: true},
		},
	}
}

func newTestPipeline(fetcher *fakeFetcher, searcher *fakeSearcher, store *fakeStore, synth *fakeSynthesizer) *Pipeline {
	log := zerolog.Nop()
	return New(Config{
		Registry:          testRegistry(),
		Fetcher:           fetcher,
		Searcher:          searcher,
		Store:             store,
		Deduplicator:      dedup.New(0.8, log),
		Clusterer:         cluster.NewClusterer(0.6, 2, log),
		Matcher:           cluster.NewMatcher(0.5, 2, log),
		Selector:          selector.New(5, 10, log),
		Synthesizer:       synth,
		Lookback:          24 * time.Hour,
		MinItemsRequired:  3,
		MaxSynthesisItems: 15,
		HeaderImageURL:    "https://example.com/header.png",
		Log:               log,
	})
}

func TestRun_PublishesNewsletterRankedScan(t *testing.T) {
	fetcher := &fakeFetcher{items: map[string][]core.RawItem{
		"alpha": rawItems("alpha", 1, 4),
		"beta":  rawItems("beta", 2, 4),
	}}
	store := &fakeStore{newsletterItems: newsletterBatch(6)}
	synth := &fakeSynthesizer{}
	p := newTestPipeline(fetcher, &fakeSearcher{}, store, synth)

	now := time.Date(2026, 8, 28, 5, 0, 0, 0, time.UTC)
	result, err := p.Run(context.Background(), Options{Now: now})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Slug != "daily-ai-news-scan-2026-08-28" {
		t.Errorf("unexpected slug %q", result.Slug)
	}
	if !result.Published || result.Skipped {
		t.Errorf("expected a published result, got %+v", result)
	}
	if !result.NewsletterRanked {
		t.Error("six distinct newsletter clusters should trigger ranked mode")
	}

	if len(store.upserted) != 1 {
		t.Fatalf("expected 1 upserted post, got %d", len(store.upserted))
	}
	post := store.upserted[0]
	if post.NoteID != "ai-news-scan-20260828050000.md" {
		t.Errorf("unexpected note id %q", post.NoteID)
	}
	if post.Image != "https://example.com/header.png" {
		t.Errorf("unexpected image %q", post.Image)
	}

	if store.markSlug != result.Slug {
		t.Errorf("items marked with wrong slug %q", store.markSlug)
	}
	if len(store.processed) != 6 {
		t.Errorf("expected all 6 contributing items marked processed, got %d", len(store.processed))
	}
}

func TestRun_SkipsWhenAlreadyPublished(t *testing.T) {
	store := &fakeStore{existingSlugs: map[string]bool{"daily-ai-news-scan-2026-08-28": true}}
	synth := &fakeSynthesizer{}
	p := newTestPipeline(&fakeFetcher{}, &fakeSearcher{}, store, synth)

	now := time.Date(2026, 8, 28, 5, 0, 0, 0, time.UTC)
	result, err := p.Run(context.Background(), Options{Now: now})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !result.Skipped || result.Published {
		t.Errorf("expected a skip, got %+v", result)
	}
	if synth.gotStories != nil {
		t.Error("synthesis should not run on a skip")
	}
}

func TestRun_ForceBypassesExistenceCheck(t *testing.T) {
	fetcher := &fakeFetcher{items: map[string][]core.RawItem{
		"alpha": rawItems("alpha", 1, 4),
		"beta":  rawItems("beta", 2, 4),
	}}
	store := &fakeStore{
		existingSlugs:   map[string]bool{"daily-ai-news-scan-2026-08-28": true},
		newsletterItems: newsletterBatch(6),
	}
	p := newTestPipeline(fetcher, &fakeSearcher{}, store, &fakeSynthesizer{})

	now := time.Date(2026, 8, 28, 5, 0, 0, 0, time.UTC)
	result, err := p.Run(context.Background(), Options{Now: now, Force: true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !result.Published {
		t.Error("force run should publish over the existing post")
	}
}

func TestRun_DryRunNeverWrites(t *testing.T) {
	fetcher := &fakeFetcher{items: map[string][]core.RawItem{
		"alpha": rawItems("alpha", 1, 4),
		"beta":  rawItems("beta", 2, 4),
	}}
	store := &fakeStore{newsletterItems: newsletterBatch(6)}
	p := newTestPipeline(fetcher, &fakeSearcher{}, store, &fakeSynthesizer{})

	result, err := p.Run(context.Background(), Options{DryRun: true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Published {
		t.Error("dry run must not report published")
	}
	if result.Briefing == nil {
		t.Error("dry run should still produce the briefing")
	}
	if len(store.upserted) != 0 || len(store.processed) != 0 {
		t.Error("dry run must not touch the store")
	}
}

func TestRun_InsufficientItemsAborts(t *testing.T) {
	fetcher := &fakeFetcher{items: map[string][]core.RawItem{
		"alpha": rawItems("alpha", 1, 2),
	}}
	p := newTestPipeline(fetcher, &fakeSearcher{}, &fakeStore{}, &fakeSynthesizer{})

	_, err := p.Run(context.Background(), Options{})
	if err == nil || !strings.Contains(err.Error(), "minimum") {
		t.Errorf("expected minimum-items abort, got %v", err)
	}
}

func TestRun_InsufficientStoriesAborts(t *testing.T) {
	// Enough raw items to clear the fetch floor, but fewer than minStories.
	fetcher := &fakeFetcher{items: map[string][]core.RawItem{
		"alpha": rawItems("alpha", 1, 4),
	}}
	store := &fakeStore{}
	synth := &fakeSynthesizer{}
	p := newTestPipeline(fetcher, &fakeSearcher{}, store, synth)

	_, err := p.Run(context.Background(), Options{})
	if !errors.Is(err, selector.ErrInsufficientStories) {
		t.Fatalf("expected ErrInsufficientStories, got %v", err)
	}
	if synth.gotStories != nil {
		t.Error("synthesis must not run after a selection abort")
	}
	if len(store.upserted) != 0 {
		t.Error("no publish after a selection abort")
	}
}

func TestRun_SynthesisErrorPropagates(t *testing.T) {
	fetcher := &fakeFetcher{items: map[string][]core.RawItem{
		"alpha": rawItems("alpha", 1, 4),
		"beta":  rawItems("beta", 2, 4),
	}}
	store := &fakeStore{newsletterItems: newsletterBatch(6)}
	synth := &fakeSynthesizer{err: errors.New("model unavailable")}
	p := newTestPipeline(fetcher, &fakeSearcher{}, store, synth)

	_, err := p.Run(context.Background(), Options{})
	if err == nil || !strings.Contains(err.Error(), "model unavailable") {
		t.Errorf("expected synthesis error, got %v", err)
	}
	if len(store.upserted) != 0 {
		t.Error("no publish after a synthesis failure")
	}
}

func TestRun_FallbackModeSkipsMarkProcessed(t *testing.T) {
	fetcher := &fakeFetcher{items: map[string][]core.RawItem{
		"alpha": rawItems("alpha", 1, 4),
		"beta":  rawItems("beta", 2, 4),
	}}
	store := &fakeStore{} // no newsletter items: fallback mode
	synth := &fakeSynthesizer{}
	p := newTestPipeline(fetcher, &fakeSearcher{}, store, synth)

	result, err := p.Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.NewsletterRanked {
		t.Error("expected fallback mode")
	}
	if len(store.processed) != 0 {
		t.Error("fallback mode must leave newsletter items unprocessed")
	}
}

func TestFetchAll_DeterministicOrder(t *testing.T) {
	// alpha responds slower than beta, but its items must still come first.
	fetcher := &fakeFetcher{
		items: map[string][]core.RawItem{
			"alpha": rawItems("alpha", 1, 2),
			"beta":  rawItems("beta", 2, 2),
		},
		delay: map[string]time.Duration{"alpha": 30 * time.Millisecond},
	}
	searcher := &fakeSearcher{enabled: true, items: rawItems("napi", 5, 1)}
	p := newTestPipeline(fetcher, searcher, &fakeStore{}, &fakeSynthesizer{})

	all := p.fetchAll(context.Background(), time.Now())
	if len(all) != 5 {
		t.Fatalf("expected 5 items, got %d", len(all))
	}
	wantOrder := []string{"alpha", "alpha", "beta", "beta", "napi"}
	for i, want := range wantOrder {
		if all[i].SourceID != want {
			t.Errorf("position %d: expected source %s, got %s", i, want, all[i].SourceID)
		}
	}
}

func TestFetchAll_FailedSourceDegrades(t *testing.T) {
	fetcher := &fakeFetcher{
		items: map[string][]core.RawItem{"beta": rawItems("beta", 2, 2)},
		errs:  map[string]error{"alpha": errors.New("timeout")},
	}
	p := newTestPipeline(fetcher, &fakeSearcher{}, &fakeStore{}, &fakeSynthesizer{})

	all := p.fetchAll(context.Background(), time.Now())
	if len(all) != 2 {
		t.Errorf("expected the failed source to contribute nothing, got %d items", len(all))
	}
}
