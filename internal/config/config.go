package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	APIKey      string  `mapstructure:"api_key" yaml:"api_key"`
	Provider    string  `mapstructure:"provider" yaml:"provider"`
	Model       string  `mapstructure:"model" yaml:"model"`
	BaseURL     string  `mapstructure:"base_url" yaml:"base_url,omitempty"`
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Optional JSON file merged into the built-in model catalog
	ModelsCatalog string `mapstructure:"models_catalog" yaml:"models_catalog,omitempty"`

	// Local runtimes (Ollama)
	OllamaHost string `mapstructure:"ollama_host" yaml:"ollama_host"`

	// Volcengine Ark
	ArkAPIKey string `mapstructure:"ark_api_key" yaml:"ark_api_key,omitempty"`
	// Access key pair, used when no ark_api_key is set
	ArkAccessKey string `mapstructure:"ark_access_key" yaml:"ark_access_key,omitempty"`
	ArkSecretKey string `mapstructure:"ark_secret_key" yaml:"ark_secret_key,omitempty"`
	ArkBaseURL   string `mapstructure:"ark_base_url" yaml:"ark_base_url,omitempty"`
	ArkRegion    string `mapstructure:"ark_region" yaml:"ark_region,omitempty"`

	// Web server
	ServerAddr     string `mapstructure:"server_addr" yaml:"server_addr"`
	UploadLimit    string `mapstructure:"upload_limit" yaml:"upload_limit"`
	RequestLogging bool   `mapstructure:"request_logging" yaml:"request_logging"`
}

const dirName = ".dataanalyst"

// DefaultPath returns ~/.dataanalyst/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, dirName, "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.dataanalyst/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. CLI flags are applied by the caller.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("DATAANALYST")
	v.AutomaticEnv()
	// The hosted default is Groq, so accept its conventional variable too.
	_ = v.BindEnv("api_key", "DATAANALYST_API_KEY", "GROQ_API_KEY")
	_ = v.BindEnv("ark_api_key", "DATAANALYST_ARK_API_KEY", "ARK_API_KEY")
	_ = v.BindEnv("ark_access_key", "DATAANALYST_ARK_ACCESS_KEY", "VOLC_ACCESSKEY")
	_ = v.BindEnv("ark_secret_key", "DATAANALYST_ARK_SECRET_KEY", "VOLC_SECRETKEY")

	v.SetDefault("provider", "groq")
	v.SetDefault("model", "llama3-8b-8192")
	v.SetDefault("base_url", "")
	v.SetDefault("max_tokens", 2048)
	v.SetDefault("temperature", 0.3)
	// HTTP/retry defaults
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	v.SetDefault("models_catalog", "")
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")
	v.SetDefault("ark_base_url", "https://ark.cn-beijing.volces.com/api/v3")
	v.SetDefault("ark_region", "cn-beijing")
	v.SetDefault("server_addr", ":8501")
	v.SetDefault("upload_limit", "32M")
	v.SetDefault("request_logging", true)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		v.AddConfigPath(filepath.Join(home, dirName))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		// A missing default file is fine; an explicit path that cannot be read is not.
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}
