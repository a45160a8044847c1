package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"dains/internal/cluster"
	"dains/internal/config"
	"dains/internal/dedup"
	"dains/internal/feeds"
	"dains/internal/logger"
	"dains/internal/newsapi"
	"dains/internal/pipeline"
	"dains/internal/selector"
	"dains/internal/sources"
	"dains/internal/store"
	"dains/internal/synthesis"
)

var (
	scanDryRun bool
	scanForce  bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one scan: fetch, cluster, synthesize, publish",
	Long: `Runs the full daily scan. Feeds and API sources are fetched and
deduplicated, unprocessed newsletter items are clustered and matched against
them, the selected stories are synthesized into a briefing, and the result is
published under today's slug.

With --dry-run the briefing is printed to stdout and nothing is persisted.
With --force an existing post for today is regenerated and overwritten.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		log := logger.Get()

		registry, err := sources.Load(cfg.App.SourcesFile)
		if err != nil {
			return err
		}

		st, err := store.NewStore(cfg.Store.DataDir)
		if err != nil {
			return err
		}
		defer st.Close()

		lookback := time.Duration(cfg.Scan.HoursLookback) * time.Hour

		generator, err := synthesis.NewGeminiGenerator(cmd.Context(),
			cfg.Gemini.APIKey, cfg.Gemini.Model,
			int(cfg.Gemini.MaxTokens), float64(cfg.Gemini.Temperature))
		if err != nil {
			return err
		}
		defer generator.Close()

		p := pipeline.New(pipeline.Config{
			Registry:     registry,
			Fetcher:      feeds.NewFetcher(cfg.Scan.FetchTimeout, lookback, cfg.Scan.MaxItemsPerSource),
			Searcher:     newsapi.New(cfg.NewsAPI.APIKey, cfg.Scan.FetchTimeout, lookback, cfg.Scan.MaxItemsPerSource),
			Store:        st,
			Deduplicator: dedup.New(cfg.Scan.FuzzyMatchThreshold, log),
			Clusterer:    cluster.NewClusterer(cfg.Scan.HeadlineClusterThreshold, cfg.Scan.EntityOverlapMin, log),
			Matcher:      cluster.NewMatcher(cfg.Scan.SourceMatchThreshold, cfg.Scan.EntityOverlapMin, log),
			Selector:     selector.New(cfg.Scan.MinStories, cfg.Scan.TargetStories, log),
			Synthesizer:  synthesis.New(generator, cfg.Scan.HeaderImageURL, log),

			Lookback:          lookback,
			MinItemsRequired:  cfg.Scan.MinItemsRequired,
			MaxSynthesisItems: cfg.Scan.MaxSynthesisItems,
			HeaderImageURL:    cfg.Scan.HeaderImageURL,
			Log:               log,
		})

		result, err := p.Run(cmd.Context(), pipeline.Options{
			DryRun: scanDryRun,
			Force:  scanForce,
		})
		if err != nil {
			return err
		}

		switch {
		case result.Skipped:
			fmt.Printf("Scan %s already published, nothing to do\n", result.Slug)
		case scanDryRun:
			fmt.Println(result.Briefing.HTML)
		default:
			fmt.Printf("Published: %s/%s/\n", cfg.Scan.SiteBaseURL, result.Slug)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().BoolVar(&scanDryRun, "dry-run", false, "build the briefing but do not publish or mark items processed")
	scanCmd.Flags().BoolVar(&scanForce, "force", false, "regenerate and overwrite today's post if it already exists")
}
