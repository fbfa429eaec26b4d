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
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Functions FunctionsConfig `yaml:"functions" mapstructure:"functions"`
	Retry     RetryConfig     `yaml:"retry" mapstructure:"retry"`
	Service   ServiceConfig   `yaml:"service" mapstructure:"service"`
	Webhook   WebhookConfig   `yaml:"webhook" mapstructure:"webhook"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// FunctionsConfig points at the hosted background jobs (bulk import).
type FunctionsConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	APIKey      string  `yaml:"api_key" mapstructure:"api_key"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// RetryConfig configures backoff for backend calls.
type RetryConfig struct {
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`
	BaseDelayMs int `yaml:"base_delay_ms" mapstructure:"base_delay_ms"`
	MaxDelayMs  int `yaml:"max_delay_ms" mapstructure:"max_delay_ms"`
}

// ServiceConfig tunes the promoter data service.
type ServiceConfig struct {
	ContractCountConcurrency int `yaml:"contract_count_concurrency" mapstructure:"contract_count_concurrency"`
	ExpiringDays             int `yaml:"expiring_days" mapstructure:"expiring_days"`
}

// WebhookConfig configures outbound change notifications. An empty URL
// disables them.
type WebhookConfig struct {
	URL         string `yaml:"url" mapstructure:"url"`
	Secret      string `yaml:"secret" mapstructure:"secret"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
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
	v.SetEnvPrefix("PROMOTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Every key needs one so env-only values survive Unmarshal.
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("functions.base_url", "")
	v.SetDefault("functions.api_key", "")
	v.SetDefault("functions.timeout_secs", 30)
	v.SetDefault("functions.rate_per_sec", 5)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay_ms", 1000)
	v.SetDefault("retry.max_delay_ms", 10000)
	v.SetDefault("service.contract_count_concurrency", 8)
	v.SetDefault("service.expiring_days", 30)
	v.SetDefault("webhook.url", "")
	v.SetDefault("webhook.secret", "")
	v.SetDefault("webhook.timeout_secs", 10)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
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

// Validate checks the settings a command mode depends on. Modes are
// "serve", "cli" and "migrate".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve", "cli", "migrate":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	case "sqlite":
	default:
		errs = append(errs, "store.driver must be postgres or sqlite")
	}

	if mode == "serve" && c.Server.Port <= 0 {
		errs = append(errs, "server.port must be > 0")
	}

	if mode != "migrate" {
		if c.Retry.MaxAttempts < 1 || c.Retry.MaxAttempts > 10 {
			errs = append(errs, "retry.max_attempts must be between 1 and 10")
		}
		if c.Retry.BaseDelayMs < 0 || c.Retry.MaxDelayMs < 0 {
			errs = append(errs, "retry delays must be >= 0")
		}
		if c.Retry.MaxDelayMs > 0 && c.Retry.BaseDelayMs > c.Retry.MaxDelayMs {
			errs = append(errs, "retry.base_delay_ms must be <= retry.max_delay_ms")
		}
		if c.Service.ContractCountConcurrency < 1 || c.Service.ContractCountConcurrency > 64 {
			errs = append(errs, "service.contract_count_concurrency must be between 1 and 64")
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
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
