package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"dains/internal/alerts"
	"dains/internal/config"
	"dains/internal/core"
	"dains/internal/logger"
	"dains/internal/store"
	"dains/internal/synthesis"
)

var sendTestSlug string

var sendTestCmd = &cobra.Command{
	Use:   "send-test",
	Short: "Email a published scan to the alert address",
	Long: `Fetches the most recent published scan (or the one named with --slug)
and emails it to the configured alert address for a visual check.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		log := logger.Get()

		st, err := store.NewStore(cfg.Store.DataDir)
		if err != nil {
			return err
		}
		defer st.Close()

		var post *core.PublishedPost
		if sendTestSlug != "" {
			post, err = st.GetPost(sendTestSlug)
		} else {
			post, err = st.LatestScanPost(synthesis.SlugPrefix)
		}
		if err != nil {
			return err
		}
		if post == nil {
			return fmt.Errorf("no published scan found to send")
		}

		client, err := alerts.New(cfg.Alerts.ResendAPIKey, cfg.Alerts.FromAddress, cfg.Alerts.AlertEmail, 30*time.Second, log)
		if err != nil {
			return err
		}
		if err := client.SendPost(cmd.Context(), *post); err != nil {
			return err
		}

		fmt.Printf("Sent %s to %s\n", post.Slug, cfg.Alerts.AlertEmail)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendTestCmd)

	sendTestCmd.Flags().StringVar(&sendTestSlug, "slug", "", "slug of the post to send (default: most recent scan)")
}
