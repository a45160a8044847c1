package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"dains/internal/alerts"
	"dains/internal/config"
	"dains/internal/logger"
	"dains/internal/synthesis"
)

var (
	alertType        string
	alertSubject     string
	alertBody        string
	alertLayer       string
	alertError       string
	alertAction      string
	alertWorkflowURL string
	alertFile        string
)

var alertCmd = &cobra.Command{
	Use:   "alert",
	Short: "Send a monitoring email via Resend",
	Long: `Sends monitoring email for the scan pipeline.

  dains alert --type critical --subject "Scan failed" --body "..." [--layer synthesis --error "..." --action "..."]
  dains alert --type digest --file digest-items.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		log := logger.Get()

		client, err := alerts.New(cfg.Alerts.ResendAPIKey, cfg.Alerts.FromAddress, cfg.Alerts.AlertEmail, 30*time.Second, log)
		if err != nil {
			return err
		}

		switch alertType {
		case "critical":
			if alertSubject == "" || alertBody == "" {
				return fmt.Errorf("--subject and --body are required for critical alerts")
			}
			todaySlug := synthesis.Slug(time.Now().UTC().Format("2006-01-02"))
			return client.SendCritical(cmd.Context(), alerts.CriticalAlert{
				Subject:     alertSubject,
				Body:        alertBody,
				Layer:       alertLayer,
				Error:       alertError,
				Action:      alertAction,
				WorkflowURL: alertWorkflowURL,
				LiveURL:     fmt.Sprintf("%s/%s/", cfg.Scan.SiteBaseURL, todaySlug),
			})

		case "digest":
			if alertFile == "" {
				return fmt.Errorf("--file is required for digest alerts")
			}
			data, err := os.ReadFile(alertFile)
			if err != nil {
				return fmt.Errorf("failed to read digest file: %w", err)
			}
			var items []alerts.DigestItem
			if err := json.Unmarshal(data, &items); err != nil {
				return fmt.Errorf("failed to parse digest file: %w", err)
			}
			return client.SendDigest(cmd.Context(), items)

		default:
			return fmt.Errorf("unknown alert type %q, expected critical or digest", alertType)
		}
	},
}

func init() {
	rootCmd.AddCommand(alertCmd)

	alertCmd.Flags().StringVar(&alertType, "type", "", "alert type: critical or digest")
	alertCmd.Flags().StringVar(&alertSubject, "subject", "", "alert subject (critical)")
	alertCmd.Flags().StringVar(&alertBody, "body", "", "what happened (critical)")
	alertCmd.Flags().StringVar(&alertLayer, "layer", "", "pipeline layer that failed (critical)")
	alertCmd.Flags().StringVar(&alertError, "error", "", "error detail (critical)")
	alertCmd.Flags().StringVar(&alertAction, "action", "", "automatic action taken (critical)")
	alertCmd.Flags().StringVar(&alertWorkflowURL, "workflow-url", "", "link to the failed workflow run (critical)")
	alertCmd.Flags().StringVar(&alertFile, "file", "", "JSON file of digest items (digest)")
	_ = alertCmd.MarkFlagRequired("type")
}
