package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/GauravPandit27/AI-Data-Analyst/internal/ai"
	cfgpkg "github.com/GauravPandit27/AI-Data-Analyst/internal/config"
	"github.com/GauravPandit27/AI-Data-Analyst/internal/narrator"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags.
var Version = "dev"

var (
	// Global flags
	cfgFile string
	debug   bool
	// Provider/model flags (override config if set)
	flagProvider string
	flagModel    string
	flagBaseURL  string
	// Retry/HTTP flags (override config if set)
	flagHTTPTimeoutSec   int
	flagRetryMaxAttempts int
	flagRetryBaseDelayMs int
	flagRetryMaxDelayMs  int

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "dataanalyst",
	Short: "AI Data Analyst: statistics, charts and a plain-English story for CSV/XLSX files",
	Long: `AI Data Analyst profiles CSV and Excel files, draws a histogram for every numeric
column plus a correlation heat map, and asks a language model (Groq by default)
to explain the data in plain business language.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	// Persistent global flags available to all subcommands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.dataanalyst/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagProvider, "provider", "", "language model provider: groq|openrouter|openai|ollama|ark (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagModel, "model", "", "model name (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagBaseURL, "base-url", "", "OpenAI-compatible endpoint root (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagHTTPTimeoutSec, "http-timeout", 0, "HTTP client timeout in seconds (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxAttempts, "retry-max", 0, "max attempts on 429/5xx, 1 disables retries (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryBaseDelayMs, "retry-base-ms", 0, "base retry backoff in ms (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxDelayMs, "retry-max-ms", 0, "max retry backoff cap in ms (overrides config)")
}

func loadConfig() {
	// .env in the working directory; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to read .env: %v\n", err)
	}
	setupLogger(slog.LevelWarn)

	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: allow running commands that don't need config
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("provider") && flagProvider != "" {
		cfg.Provider = flagProvider
	}
	if f.Changed("model") && flagModel != "" {
		cfg.Model = flagModel
	}
	if f.Changed("base-url") {
		cfg.BaseURL = flagBaseURL
	}
	if f.Changed("http-timeout") && flagHTTPTimeoutSec > 0 {
		cfg.HTTPTimeoutSec = flagHTTPTimeoutSec
	}
	if f.Changed("retry-max") && flagRetryMaxAttempts > 0 {
		cfg.RetryMaxAttempts = flagRetryMaxAttempts
	}
	if f.Changed("retry-base-ms") && flagRetryBaseDelayMs > 0 {
		cfg.RetryBaseDelayMs = flagRetryBaseDelayMs
	}
	if f.Changed("retry-max-ms") && flagRetryMaxDelayMs > 0 {
		cfg.RetryMaxDelayMs = flagRetryMaxDelayMs
	}

	if cfg.ModelsCatalog != "" {
		m, err := ai.LoadCatalogFromJSON(cfg.ModelsCatalog)
		if err != nil {
			fmt.Fprintf(os.Stderr, "⚠ Warning: models catalog %s: %v\n", cfg.ModelsCatalog, err)
		} else {
			ai.MergeCatalog(m)
		}
	}
}

// setupLogger installs the default slog handler on stderr. --debug always wins.
func setupLogger(level slog.Level) {
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func requireConfig() (*cfgpkg.Global, error) {
	if cfg == nil {
		return nil, errors.New("configuration not loaded (see the warning above or run 'dataanalyst config show')")
	}
	return cfg, nil
}

// newNarrator builds the configured runtime once; callers share it across files.
func newNarrator(ctx context.Context, c *cfgpkg.Global) (*hintingNarrator, error) {
	rc := ai.RuntimeConfig{
		HTTPTimeout: time.Duration(c.HTTPTimeoutSec) * time.Second,
		RetryMax:    c.RetryMaxAttempts,
		BaseDelay:   time.Duration(c.RetryBaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(c.RetryMaxDelayMs) * time.Millisecond,
		APIKey:      c.APIKey,
		BaseURL:     c.BaseURL,
		Host:        c.OllamaHost,
		Model:       c.Model,
		Region:      c.ArkRegion,
		ArkAPIKey:   c.ArkAPIKey,
		AccessKey:   c.ArkAccessKey,
		SecretKey:   c.ArkSecretKey,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
	}
	if c.Provider == ai.ProviderArk {
		rc.BaseURL = c.ArkBaseURL
	}
	rt, err := ai.NewRuntime(ctx, c.Provider, rc)
	if err != nil {
		return nil, err
	}
	n := narrator.New(rt, narrator.Options{
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
		Logger:      slog.Default(),
	})
	return &hintingNarrator{n: n, provider: c.Provider, ollamaHost: c.OllamaHost}, nil
}
