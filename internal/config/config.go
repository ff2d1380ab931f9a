package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Shopify ShopifyConfig `yaml:"shopify" mapstructure:"shopify"`
	Finale  FinaleConfig  `yaml:"finale" mapstructure:"finale"`
	Sync    SyncConfig    `yaml:"sync" mapstructure:"sync"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// ShopifyConfig holds Shopify Admin API credentials and client tuning.
type ShopifyConfig struct {
	Shop        string  `yaml:"shop" mapstructure:"shop"`
	AccessToken string  `yaml:"access_token" mapstructure:"access_token"`
	APIVersion  string  `yaml:"api_version" mapstructure:"api_version"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	PageSize    int     `yaml:"page_size" mapstructure:"page_size"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// FinaleConfig holds Finale inventory API credentials.
type FinaleConfig struct {
	Account     string  `yaml:"account" mapstructure:"account"`
	APIKey      string  `yaml:"api_key" mapstructure:"api_key"`
	APISecret   string  `yaml:"api_secret" mapstructure:"api_secret"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// SyncConfig configures the cost sync run.
type SyncConfig struct {
	UpdateIntervalMS int    `yaml:"update_interval_ms" mapstructure:"update_interval_ms"`
	TempDir          string `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("COSTSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("shopify.api_version", "2024-07")
	v.SetDefault("shopify.page_size", 250)
	v.SetDefault("shopify.rate_limit", 2.0)
	v.SetDefault("shopify.timeout_secs", 30)
	v.SetDefault("finale.base_url", "https://app.finaleinventory.com")
	v.SetDefault("finale.rate_limit", 2.0)
	v.SetDefault("finale.timeout_secs", 60)
	v.SetDefault("sync.update_interval_ms", 150)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that everything the given command mode needs is set.
// Mode is one of "sync", "plan", or "check"; all three talk to both
// back ends, so the credential requirements are shared.
func (cfg *Config) Validate(mode string) error {
	switch mode {
	case "sync", "plan", "check":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	var problems []string

	if cfg.Shopify.Shop == "" && cfg.Shopify.BaseURL == "" {
		problems = append(problems, "shopify.shop is required")
	}
	if cfg.Shopify.AccessToken == "" {
		problems = append(problems, "shopify.access_token is required")
	}
	if cfg.Finale.Account == "" {
		problems = append(problems, "finale.account is required")
	}
	if cfg.Finale.APIKey == "" {
		problems = append(problems, "finale.api_key is required")
	}
	if cfg.Finale.APISecret == "" {
		problems = append(problems, "finale.api_secret is required")
	}

	if cfg.Shopify.PageSize < 1 || cfg.Shopify.PageSize > 250 {
		problems = append(problems, "shopify.page_size must be between 1 and 250")
	}
	if cfg.Shopify.RateLimit < 0 {
		problems = append(problems, "shopify.rate_limit must be >= 0")
	}
	if cfg.Shopify.TimeoutSecs <= 0 {
		problems = append(problems, "shopify.timeout_secs must be > 0")
	}
	if cfg.Finale.RateLimit < 0 {
		problems = append(problems, "finale.rate_limit must be >= 0")
	}
	if cfg.Finale.TimeoutSecs <= 0 {
		problems = append(problems, "finale.timeout_secs must be > 0")
	}
	if cfg.Sync.UpdateIntervalMS < 0 {
		problems = append(problems, "sync.update_interval_ms must be >= 0")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}

	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
