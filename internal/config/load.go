package config

import (
	"errors"
	"fmt"
	"strings"
	_ "time/tzdata" // engine.timezone must resolve on hosts without a zoneinfo database

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable Load reads, e.g.
// STUDYHUB_DATABASE_URL for database.url.
const EnvPrefix = "STUDYHUB"

var defaults = map[string]any{
	"server.port":                8080,
	"server.log_level":           "info",
	"server.read_timeout":        "15s",
	"server.write_timeout":       "15s",
	"server.shutdown_timeout":    "30s",
	"database.url":               "",
	"database.max_open_conns":    25,
	"database.max_idle_conns":    25,
	"database.conn_max_lifetime": "5m",
	"engine.rules_file":          "",
	"engine.timezone":            "UTC",
	"telemetry.service_name":     "studyhub",
	"telemetry.tracing_enabled":  false,
	"telemetry.otlp_endpoint":    "",
	"telemetry.sample_ratio":     1.0,
	"telemetry.metrics_enabled":  true,
}

// Load reads configuration from an optional config.yaml in the working
// directory and from STUDYHUB_* environment variables, which take precedence.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches the
// working directory for config.yaml and tolerates its absence.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
