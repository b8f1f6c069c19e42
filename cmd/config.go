package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/GauravPandit27/AI-Data-Analyst/internal/ai"
	cfgpkg "github.com/GauravPandit27/AI-Data-Analyst/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "No config loaded")
			return nil
		}
		fmt.Fprintf(out, "provider: %s\n", cfg.Provider)
		fmt.Fprintf(out, "model: %s\n", cfg.Model)
		fmt.Fprintf(out, "api_key: %s\n", mask(cfg.APIKey))
		if cfg.BaseURL != "" {
			fmt.Fprintf(out, "base_url: %s\n", cfg.BaseURL)
		}
		fmt.Fprintf(out, "max_tokens: %d\n", cfg.MaxTokens)
		fmt.Fprintf(out, "temperature: %.3f\n", cfg.Temperature)
		fmt.Fprintf(out, "http_timeout_sec: %d\n", cfg.HTTPTimeoutSec)
		fmt.Fprintf(out, "retry_max_attempts: %d\n", cfg.RetryMaxAttempts)
		fmt.Fprintf(out, "retry_base_delay_ms: %d\n", cfg.RetryBaseDelayMs)
		fmt.Fprintf(out, "retry_max_delay_ms: %d\n", cfg.RetryMaxDelayMs)
		if cfg.ModelsCatalog != "" {
			fmt.Fprintf(out, "models_catalog: %s\n", cfg.ModelsCatalog)
		}
		fmt.Fprintf(out, "ollama_host: %s\n", cfg.OllamaHost)
		if cfg.Provider == ai.ProviderArk || cfg.ArkAPIKey != "" || cfg.ArkAccessKey != "" {
			fmt.Fprintf(out, "ark_api_key: %s\n", mask(cfg.ArkAPIKey))
			fmt.Fprintf(out, "ark_access_key: %s\n", mask(cfg.ArkAccessKey))
			fmt.Fprintf(out, "ark_secret_key: %s\n", mask(cfg.ArkSecretKey))
			fmt.Fprintf(out, "ark_base_url: %s\n", cfg.ArkBaseURL)
			fmt.Fprintf(out, "ark_region: %s\n", cfg.ArkRegion)
		}
		fmt.Fprintf(out, "server_addr: %s\n", cfg.ServerAddr)
		fmt.Fprintf(out, "upload_limit: %s\n", cfg.UploadLimit)
		fmt.Fprintf(out, "request_logging: %t\n", cfg.RequestLogging)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		if err := setConfigValue(cfg, key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func setConfigValue(c *cfgpkg.Global, key, val string) error {
	atoi := func() (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return 0, fmt.Errorf("invalid int for %s: %v", key, val)
		}
		return i, nil
	}
	var err error
	switch key {
	case "provider":
		p := strings.ToLower(strings.TrimSpace(val))
		found := false
		for _, name := range ai.Providers() {
			if name == p {
				found = true
			}
		}
		if !found {
			return fmt.Errorf("invalid provider: %s (use %s)", val, strings.Join(ai.Providers(), "|"))
		}
		c.Provider = p
	case "model":
		c.Model = val
	case "api_key":
		c.APIKey = val
	case "base_url":
		c.BaseURL = val
	case "max_tokens":
		c.MaxTokens, err = atoi()
	case "temperature":
		f, perr := strconv.ParseFloat(val, 64)
		if perr != nil || f < 0 || f > 2 {
			return fmt.Errorf("invalid float for temperature: %v (use 0..2)", val)
		}
		c.Temperature = f
	case "http_timeout_sec":
		c.HTTPTimeoutSec, err = atoi()
	case "retry_max_attempts":
		c.RetryMaxAttempts, err = atoi()
	case "retry_base_delay_ms":
		c.RetryBaseDelayMs, err = atoi()
	case "retry_max_delay_ms":
		c.RetryMaxDelayMs, err = atoi()
	case "models_catalog":
		c.ModelsCatalog = val
	case "ollama_host":
		c.OllamaHost = val
	case "ark_api_key":
		c.ArkAPIKey = val
	case "ark_access_key":
		c.ArkAccessKey = val
	case "ark_secret_key":
		c.ArkSecretKey = val
	case "ark_base_url":
		c.ArkBaseURL = val
	case "ark_region":
		c.ArkRegion = val
	case "server_addr":
		c.ServerAddr = val
	case "upload_limit":
		c.UploadLimit = val
	case "request_logging":
		b, perr := strconv.ParseBool(val)
		if perr != nil {
			return fmt.Errorf("invalid bool for request_logging: %v", val)
		}
		c.RequestLogging = b
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
