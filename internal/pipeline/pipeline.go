// Package pipeline orchestrates one scan run: fetch, dedup, cluster, select,
// synthesize, publish.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"dains/internal/cluster"
	"dains/internal/core"
	"dains/internal/dedup"
	"dains/internal/selector"
	"dains/internal/sources"
	"dains/internal/synthesis"
)

// FeedFetcher pulls one RSS/Atom source.
type FeedFetcher interface {
	Fetch(ctx context.Context, source sources.Source, now time.Time) ([]core.RawItem, error)
}

// APISearcher runs one query-based source.
type APISearcher interface {
	Enabled() bool
	Search(ctx context.Context, source sources.Source, now time.Time) ([]core.RawItem, error)
}

// ScanStore is the persistence surface the pipeline needs.
type ScanStore interface {
	UnprocessedItems(now time.Time, lookback time.Duration) ([]core.NewsletterItem, error)
	MarkProcessed(itemIDs []string, slug string, processedAt time.Time) error
	PostExists(slug string) (bool, error)
	UpsertPost(post core.PublishedPost) error
}

// Synthesizer produces the briefing from the selected stories.
type Synthesizer interface {
	Synthesize(ctx context.Context, stories []core.Story, newsletterRanked bool, now time.Time) (*core.Briefing, error)
}

// Options control one run.
type Options struct {
	DryRun bool      // Produce the briefing but never touch the store
	Force  bool      // Publish even when today's post already exists
	Now    time.Time // Zero means time.Now
}

// Result summarizes one run.
type Result struct {
	Slug             string
	Briefing         *core.Briefing
	Stories          []core.Story
	NewsletterRanked bool
	ItemsFetched     int
	ItemsAfterDedup  int
	Published        bool
	Skipped          bool // Post already existed and Force was not set
}

// Pipeline wires the scan stages together.
type Pipeline struct {
	registry     *sources.Registry
	fetcher      FeedFetcher
	searcher     APISearcher
	store        ScanStore
	deduplicator *dedup.Deduplicator
	clusterer    *cluster.Clusterer
	matcher      *cluster.Matcher
	selector     *selector.Selector
	synthesizer  Synthesizer

	lookback          time.Duration
	minItemsRequired  int
	maxSynthesisItems int
	headerImageURL    string
	log               zerolog.Logger
}

// Config carries the pipeline's collaborators and thresholds.
type Config struct {
	Registry     *sources.Registry
	Fetcher      FeedFetcher
	Searcher     APISearcher
	Store        ScanStore
	Deduplicator *dedup.Deduplicator
	Clusterer    *cluster.Clusterer
	Matcher      *cluster.Matcher
	Selector     *selector.Selector
	Synthesizer  Synthesizer

	Lookback          time.Duration
	MinItemsRequired  int
	MaxSynthesisItems int
	HeaderImageURL    string
	Log               zerolog.Logger
}

// New assembles a pipeline.
func New(cfg Config) *Pipeline {
	return &Pipeline{
		registry:          cfg.Registry,
		fetcher:           cfg.Fetcher,
		searcher:          cfg.Searcher,
		store:             cfg.Store,
		deduplicator:      cfg.Deduplicator,
		clusterer:         cfg.Clusterer,
		matcher:           cfg.Matcher,
		selector:          cfg.Selector,
		synthesizer:       cfg.Synthesizer,
		lookback:          cfg.Lookback,
		minItemsRequired:  cfg.MinItemsRequired,
		maxSynthesisItems: cfg.MaxSynthesisItems,
		headerImageURL:    cfg.HeaderImageURL,
		log:               cfg.Log,
	}
}

// Run executes one scan end to end.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	slug := synthesis.Slug(now.UTC().Format("2006-01-02"))
	p.log.Info().Str("slug", slug).Bool("dry_run", opts.DryRun).Bool("force", opts.Force).Msg("starting scan")

	// The existence check runs before any fetching so a re-run without
	// --force costs nothing.
	if !opts.DryRun && !opts.Force {
		exists, err := p.store.PostExists(slug)
		if err != nil {
			return nil, fmt.Errorf("failed to check for existing post: %w", err)
		}
		if exists {
			p.log.Info().Str("slug", slug).Msg("scan already published, skipping (use --force to regenerate)")
			return &Result{Slug: slug, Skipped: true}, nil
		}
	}

	fetched := p.fetchAll(ctx, now)
	deduped := p.deduplicator.Deduplicate(fetched)
	p.log.Info().Int("fetched", len(fetched)).Int("after_dedup", len(deduped)).Msg("fetch complete")

	if len(deduped) < p.minItemsRequired {
		return nil, fmt.Errorf("only %d items fetched, minimum is %d: aborting to avoid a low-quality scan", len(deduped), p.minItemsRequired)
	}

	newsletterItems, err := p.store.UnprocessedItems(now, p.lookback)
	if err != nil {
		return nil, fmt.Errorf("failed to load newsletter items: %w", err)
	}
	p.log.Info().Int("newsletter_items", len(newsletterItems)).Msg("loaded unprocessed newsletter items")

	clusters := p.clusterer.Cluster(newsletterItems)
	clusters = p.matcher.AttachPrimarySources(clusters, deduped)

	stories, ranked, err := p.selector.Select(clusters, deduped)
	if err != nil {
		return nil, err
	}
	if p.maxSynthesisItems > 0 && len(stories) > p.maxSynthesisItems {
		stories = stories[:p.maxSynthesisItems]
	}

	briefing, err := p.synthesizer.Synthesize(ctx, stories, ranked, now)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Slug:             slug,
		Briefing:         briefing,
		Stories:          stories,
		NewsletterRanked: ranked,
		ItemsFetched:     len(fetched),
		ItemsAfterDedup:  len(deduped),
	}

	if opts.DryRun {
		p.log.Info().Str("slug", slug).Msg("dry run, not publishing")
		return result, nil
	}

	post := core.PublishedPost{
		Slug:        slug,
		NoteID:      synthesis.NoteID(briefing.DateString),
		Title:       synthesis.Title(briefing.FormattedDate),
		Content:     briefing.HTML,
		Image:       p.headerImageURL,
		PublishedAt: now,
	}
	if err := p.store.UpsertPost(post); err != nil {
		return nil, fmt.Errorf("failed to publish scan: %w", err)
	}
	result.Published = true

	if ranked {
		if err := p.store.MarkProcessed(contributingItemIDs(stories), slug, now); err != nil {
			return nil, fmt.Errorf("failed to mark newsletter items processed: %w", err)
		}
	}

	p.log.Info().Str("slug", slug).Int("stories", len(stories)).Msg("scan published")
	return result, nil
}

// fetchAll pulls every enabled source concurrently. Results land in
// per-source slots and are flattened in registry order, so the output is
// deterministic regardless of completion order. Per-source failures degrade
// to an empty slot.
func (p *Pipeline) fetchAll(ctx context.Context, now time.Time) []core.RawItem {
	rss := p.registry.EnabledRSS()
	api := p.registry.EnabledAPI()

	slots := make([][]core.RawItem, len(rss)+len(api))
	var wg sync.WaitGroup

	for i, source := range rss {
		wg.Add(1)
		go func(i int, source sources.Source) {
			defer wg.Done()
			items, err := p.fetcher.Fetch(ctx, source, now)
			if err != nil {
				p.log.Warn().Err(err).Str("source", source.ID).Msg("feed fetch failed")
				return
			}
			p.log.Debug().Str("source", source.ID).Int("items", len(items)).Msg("feed fetched")
			slots[i] = items
		}(i, source)
	}

	if p.searcher != nil && p.searcher.Enabled() {
		for i, source := range api {
			wg.Add(1)
			go func(i int, source sources.Source) {
				defer wg.Done()
				items, err := p.searcher.Search(ctx, source, now)
				if err != nil {
					p.log.Warn().Err(err).Str("source", source.ID).Msg("api search failed")
					return
				}
				slots[len(rss)+i] = items
			}(i, source)
		}
	} else if len(api) > 0 {
		p.log.Info().Int("sources", len(api)).Msg("skipping API sources, NEWS_API_KEY not configured")
	}

	wg.Wait()

	var all []core.RawItem
	for _, slot := range slots {
		all = append(all, slot...)
	}
	return all
}

// contributingItemIDs collects the newsletter item IDs behind the published
// stories. Only those items are marked processed; the rest stay eligible for
// the next scan.
func contributingItemIDs(stories []core.Story) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, story := range stories {
		for _, hit := range story.Hits {
			if _, dup := seen[hit.ItemID]; dup {
				continue
			}
			seen[hit.ItemID] = struct{}{}
			ids = append(ids, hit.ItemID)
		}
	}
	return ids
}
