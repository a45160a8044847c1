package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App     App     `mapstructure:"app"`
	Scan    Scan    `mapstructure:"scan"`
	Gemini  Gemini  `mapstructure:"gemini"`
	NewsAPI NewsAPI `mapstructure:"newsapi"`
	Store   Store   `mapstructure:"store"`
	Alerts  Alerts  `mapstructure:"alerts"`
	Logging Logging `mapstructure:"logging"`
}

// App holds general application configuration
type App struct {
	Environment string `mapstructure:"environment"` // "local" switches to console log output
	SourcesFile string `mapstructure:"sources_file"`
}

// Scan holds the pipeline thresholds and limits. Every value has a documented
// default so tests can inject different thresholds without touching globals.
type Scan struct {
	HoursLookback            int           `mapstructure:"hours_lookback"`             // Item freshness window
	MaxItemsPerSource        int           `mapstructure:"max_items_per_source"`       // Cap per feed unless the source overrides it
	MinItemsRequired         int           `mapstructure:"min_items_required"`         // RSS floor before synthesis is attempted
	FuzzyMatchThreshold      float64       `mapstructure:"fuzzy_match_threshold"`      // Title similarity at/above which items dedup
	HeadlineClusterThreshold float64       `mapstructure:"headline_cluster_threshold"` // Headline similarity for cluster assignment
	SourceMatchThreshold     float64       `mapstructure:"source_match_threshold"`     // Headline similarity for primary-source matching
	EntityOverlapMin         int           `mapstructure:"entity_overlap_min"`         // Shared entities needed for an entity match
	MinStories               int           `mapstructure:"min_stories"`                // Below this the run aborts
	TargetStories            int           `mapstructure:"target_stories"`             // How many stories go to synthesis
	MaxSynthesisItems        int           `mapstructure:"max_synthesis_items"`        // Fallback-mode cap on prompt items
	FetchTimeout             time.Duration `mapstructure:"fetch_timeout"`              // Per-source HTTP timeout
	HeaderImageURL           string        `mapstructure:"header_image_url"`
	SiteBaseURL              string        `mapstructure:"site_base_url"`
}

// Gemini holds the synthesis model configuration
type Gemini struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int32   `mapstructure:"max_tokens"`
	Temperature float32 `mapstructure:"temperature"`
}

// NewsAPI holds the newsapi.org configuration
type NewsAPI struct {
	APIKey string `mapstructure:"api_key"`
}

// Store holds persistence configuration
type Store struct {
	DataDir string `mapstructure:"data_dir"`
}

// Alerts holds the Resend alert email configuration
type Alerts struct {
	ResendAPIKey string `mapstructure:"resend_api_key"`
	FromAddress  string `mapstructure:"from_address"`
	AlertEmail   string `mapstructure:"alert_email"`
}

// Logging holds logging configuration
type Logging struct {
	Level string `mapstructure:"level"`
}

var globalConfig *Config

// Load reads configuration from the given file (or .dains.yaml in the current
// and home directories), layered under environment variables. A local .env
// file is loaded first when present.
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".dains")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// Reset clears the global configuration. Intended for tests.
func Reset() {
	globalConfig = nil
	viper.Reset()
}

func setDefaults() {
	viper.SetDefault("app.environment", "production")
	viper.SetDefault("app.sources_file", "sources.yaml")

	viper.SetDefault("scan.hours_lookback", 24)
	viper.SetDefault("scan.max_items_per_source", 10)
	viper.SetDefault("scan.min_items_required", 3)
	viper.SetDefault("scan.fuzzy_match_threshold", 0.8)
	viper.SetDefault("scan.headline_cluster_threshold", 0.6)
	viper.SetDefault("scan.source_match_threshold", 0.5)
	viper.SetDefault("scan.entity_overlap_min", 2)
	viper.SetDefault("scan.min_stories", 5)
	viper.SetDefault("scan.target_stories", 10)
	viper.SetDefault("scan.max_synthesis_items", 15)
	viper.SetDefault("scan.fetch_timeout", "10s")
	viper.SetDefault("scan.header_image_url", "https://victordelrosal.com/img/daily-ai-news-scan.png")
	viper.SetDefault("scan.site_base_url", "https://victordelrosal.com")

	viper.SetDefault("gemini.model", "gemini-1.5-flash-latest")
	viper.SetDefault("gemini.max_tokens", 2000)
	viper.SetDefault("gemini.temperature", 0.4)

	viper.SetDefault("store.data_dir", ".dains-data")

	viper.SetDefault("alerts.from_address", "DAINS Monitor <updates@victordelrosal.com>")

	viper.SetDefault("logging.level", "info")
}

// bindEnvironmentVariables maps the well-known flat env vars onto config keys
// so existing deployment secrets keep working.
func bindEnvironmentVariables() {
	bindings := map[string]string{
		"gemini.api_key":        "GEMINI_API_KEY",
		"newsapi.api_key":       "NEWS_API_KEY",
		"alerts.resend_api_key": "RESEND_API_KEY",
		"alerts.alert_email":    "ALERT_EMAIL",
	}
	for key, env := range bindings {
		_ = viper.BindEnv(key, env)
	}
}

func validateConfig(config *Config) error {
	s := config.Scan
	if s.FuzzyMatchThreshold < 0 || s.FuzzyMatchThreshold > 1 {
		return fmt.Errorf("scan.fuzzy_match_threshold must be in [0,1], got %v", s.FuzzyMatchThreshold)
	}
	if s.HeadlineClusterThreshold < 0 || s.HeadlineClusterThreshold > 1 {
		return fmt.Errorf("scan.headline_cluster_threshold must be in [0,1], got %v", s.HeadlineClusterThreshold)
	}
	if s.SourceMatchThreshold < 0 || s.SourceMatchThreshold > 1 {
		return fmt.Errorf("scan.source_match_threshold must be in [0,1], got %v", s.SourceMatchThreshold)
	}
	if s.MinStories < 1 {
		return fmt.Errorf("scan.min_stories must be positive, got %d", s.MinStories)
	}
	if s.TargetStories < s.MinStories {
		return fmt.Errorf("scan.target_stories (%d) must be at least scan.min_stories (%d)", s.TargetStories, s.MinStories)
	}
	return nil
}
