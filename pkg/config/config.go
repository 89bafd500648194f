package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT" validate:"required,numeric"`
	LogLevel   string `mapstructure:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogFormat  string `mapstructure:"LOG_FORMAT" validate:"oneof=json console"`

	ChromeDebugURL      string `mapstructure:"CHROME_DEBUG_URL" validate:"omitempty,url"`
	ChromeUserDataDir   string `mapstructure:"CHROME_USER_DATA_DIR"`
	Headless            bool   `mapstructure:"HEADLESS"`
	StartURL            string `mapstructure:"START_URL" validate:"omitempty,url"`
	RequiredPathPattern string `mapstructure:"REQUIRED_PATH_PATTERN" validate:"required"`

	PageSize             int `mapstructure:"PAGE_SIZE" validate:"min=1"`
	SettleDelayMS        int `mapstructure:"SETTLE_DELAY_MS" validate:"min=0"`
	AffordanceAttempts   int `mapstructure:"AFFORDANCE_ATTEMPTS" validate:"min=1"`
	AffordanceIntervalMS int `mapstructure:"AFFORDANCE_INTERVAL_MS" validate:"min=0"`
	InterItemDelayMS     int `mapstructure:"INTER_ITEM_DELAY_MS" validate:"min=0"`
	EllipsisDelayMS      int `mapstructure:"ELLIPSIS_DELAY_MS" validate:"min=0"`
	PageSettleDelayMS    int `mapstructure:"PAGE_SETTLE_DELAY_MS" validate:"min=0"`

	DownloadDir            string `mapstructure:"DOWNLOAD_DIR" validate:"required"`
	DownloadWorkers        int    `mapstructure:"DOWNLOAD_WORKERS" validate:"min=1"`
	DownloadTimeoutSeconds int    `mapstructure:"DOWNLOAD_TIMEOUT_SECONDS" validate:"min=1"`
	ExportDir              string `mapstructure:"EXPORT_DIR" validate:"required"`

	PostgresURL    string `mapstructure:"POSTGRES_URL"`
	RedisAddr      string `mapstructure:"REDIS_ADDR" validate:"omitempty,hostname_port"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	RedisDB        int    `mapstructure:"REDIS_DB" validate:"min=0"`
	StatusTTLHours int    `mapstructure:"STATUS_TTL_HOURS" validate:"min=1"`

	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string `mapstructure:"KAFKA_TOPIC" validate:"required_with=KafkaBrokers"`
}

var defaults = map[string]any{
	"SERVER_PORT":              "8080",
	"LOG_LEVEL":                "info",
	"LOG_FORMAT":               "json",
	"CHROME_DEBUG_URL":         "",
	"CHROME_USER_DATA_DIR":     "",
	"HEADLESS":                 false,
	"START_URL":                "",
	"REQUIRED_PATH_PATTERN":    `linkedin\.com/hiring/jobs`,
	"PAGE_SIZE":                25,
	"SETTLE_DELAY_MS":          500,
	"AFFORDANCE_ATTEMPTS":      3,
	"AFFORDANCE_INTERVAL_MS":   3000,
	"INTER_ITEM_DELAY_MS":      1000,
	"ELLIPSIS_DELAY_MS":        2500,
	"PAGE_SETTLE_DELAY_MS":     2000,
	"DOWNLOAD_DIR":             "./downloads",
	"DOWNLOAD_WORKERS":         4,
	"DOWNLOAD_TIMEOUT_SECONDS": 60,
	"EXPORT_DIR":               "./exports",
	"POSTGRES_URL":             "",
	"REDIS_ADDR":               "",
	"REDIS_PASSWORD":           "",
	"REDIS_DB":                 0,
	"STATUS_TTL_HOURS":         72,
	"KAFKA_BROKERS":            "",
	"KAFKA_TOPIC":              "harvester.events",
}

// Load reads configuration from the .env file in the working directory and
// environment variables, which take precedence.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit env file path. A missing file is not an error.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// The file is optional; production runs are configured through the environment.
	_ = v.ReadInConfig()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Brokers splits KAFKA_BROKERS. An empty result disables the Kafka publisher.
func (c *Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.SettleDelayMS) * time.Millisecond
}

func (c *Config) AffordanceInterval() time.Duration {
	return time.Duration(c.AffordanceIntervalMS) * time.Millisecond
}

func (c *Config) InterItemDelay() time.Duration {
	return time.Duration(c.InterItemDelayMS) * time.Millisecond
}

func (c *Config) EllipsisDelay() time.Duration {
	return time.Duration(c.EllipsisDelayMS) * time.Millisecond
}

func (c *Config) PageSettleDelay() time.Duration {
	return time.Duration(c.PageSettleDelayMS) * time.Millisecond
}

func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.DownloadTimeoutSeconds) * time.Second
}

func (c *Config) StatusTTL() time.Duration {
	return time.Duration(c.StatusTTLHours) * time.Hour
}
