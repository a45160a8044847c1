package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dains/internal/config"
	"dains/internal/logger"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dains",
	Short: "DAINS builds and publishes the Daily AI News Scan",
	Long: `DAINS is the content pipeline behind the Daily AI News Scan: it pulls
configured RSS/Atom feeds and news APIs, deduplicates and clusters items
against ingested newsletter coverage, synthesizes a briefing with Gemini,
and publishes it to the site's post store.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.dains.yaml)")
}

// initConfig loads configuration and wires the logger before any command runs.
func initConfig() {
	cfg, err := config.Load(cfgFile)
	cobra.CheckErr(err)

	logger.Init(cfg.App.Environment, cfg.Logging.Level)
}
