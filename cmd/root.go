package cmd

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/jobscout/internal/ai/gemini"
	"github.com/spigell/jobscout/internal/artifacts"
	"github.com/spigell/jobscout/internal/cv"
	"github.com/spigell/jobscout/internal/headhunter"
	"github.com/spigell/jobscout/internal/matching"
)

const (
	app = "jobscout"
)

type Config struct {
	UserID string `mapstructure:"user-id"`
	// Strategies is the discovery order. Known names: hh, gemini, demo.
	Strategies        []string                 `mapstructure:"strategies"`
	Search            *headhunter.SearchParams `mapstructure:"search"`
	UserAgent         string                   `mapstructure:"user-agent"`
	TokenFile         string                   `mapstructure:"token-file"`
	SeenFile          string                   `mapstructure:"seen-file"`
	ExcludedCompanies []string                 `mapstructure:"excluded-companies"`
	RelevanceFloor    float64                  `mapstructure:"relevance-floor"`
	Matching          *matching.Weights        `mapstructure:"matching"`
	Discovery         *DiscoveryConfig         `mapstructure:"discovery"`
	AI                *AIConfig                `mapstructure:"ai"`
	CV                *CVConfig                `mapstructure:"cv"`
	Database          *DatabaseConfig          `mapstructure:"database"`
	Watch             *WatchConfig             `mapstructure:"watch"`
}

type DiscoveryConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
	// RatePerMinute caps strategy calls across all companies. Zero is unlimited.
	RatePerMinute float64 `mapstructure:"rate-per-minute"`
	Burst         int     `mapstructure:"burst"`
}

type AIConfig struct {
	// Enabled turns on the ai_fit filter.
	Enabled         bool          `mapstructure:"enabled"`
	Provider        string        `mapstructure:"provider"`
	MinimumFitScore float64       `mapstructure:"minimum-fit-score"`
	Gemini          *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
	// Prompt fine tunes the fit review.
	Prompt *gemini.PromptOverrides `mapstructure:"prompt"`
}

type CVConfig struct {
	// Service is "remote" (document API) or "tailored" (Gemini + object storage).
	Service    string            `mapstructure:"service"`
	Template   string            `mapstructure:"template"`
	RemoteURL  string            `mapstructure:"remote-url"`
	TokenFile  string            `mapstructure:"token-file"`
	Breaker    *cv.BreakerConfig `mapstructure:"breaker"`
	LinkExpiry time.Duration     `mapstructure:"link-expiry"`
	Artifacts  *artifacts.Config `mapstructure:"artifacts"`
	CacheTTL   time.Duration     `mapstructure:"cache-ttl"`
	RedisURL   string            `mapstructure:"redis-url"`
}

type DatabaseConfig struct {
	URL     string `mapstructure:"url"`
	Migrate bool   `mapstructure:"migrate"`
}

type WatchConfig struct {
	Schedule    string `mapstructure:"schedule"`
	MetricsAddr string `mapstructure:"metrics-addr"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:          app,
		Short:        "jobscout discovers job postings at companies you care about and ranks them against your preferences",
		SilenceUsage: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	for key, env := range map[string]string{
		"token-file":                     "HH_TOKEN_FILE",
		"ai.gemini.api-key-file":         "GEMINI_API_KEY_FILE",
		"database.url":                   "JOBSCOUT_DATABASE_URL",
		"cv.token-file":                  "JOBSCOUT_CV_TOKEN_FILE",
		"cv.artifacts.access-key-id":     "MINIO_ACCESS_KEY",
		"cv.artifacts.secret-access-key": "MINIO_SECRET_KEY",
	} {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	viper.SetDefault("user-id", "demo")
	viper.SetDefault("strategies", []string{"hh", "gemini", "demo"})
	viper.SetDefault("relevance-floor", 0.6)
	viper.SetDefault("discovery.timeout", "2m")
	viper.SetDefault("cv.service", "remote")
	viper.SetDefault("cv.template", "modern")
	viper.SetDefault("cv.cache-ttl", "24h")
	viper.SetDefault("watch.schedule", "@every 6h")

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is jobscout.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().StringP("user", "u", "", "user id the session is opened for")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("user-id", rootCmd.PersistentFlags().Lookup("user"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// A missing default config is fine, everything has defaults. A broken one is not.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if config == nil {
		config = &Config{}
	}
	return config, nil
}
