package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Engine    EngineConfig    `mapstructure:"engine" validate:"required"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url" validate:"required,url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0,ltefield=MaxOpenConns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
}

// EngineConfig tunes the progress engine.
type EngineConfig struct {
	// RulesFile replaces the embedded rule table when set.
	RulesFile string `mapstructure:"rules_file" validate:"omitempty,file"`
	// Timezone decides which calendar day "today" is for daily caps and streaks.
	Timezone string `mapstructure:"timezone" validate:"required,timezone"`
}

// TelemetryConfig controls tracing and metrics.
type TelemetryConfig struct {
	ServiceName    string `mapstructure:"service_name" validate:"required"`
	TracingEnabled bool   `mapstructure:"tracing_enabled"`
	// OTLPEndpoint selects the OTLP/HTTP exporter; spans go to stderr when empty.
	OTLPEndpoint   string  `mapstructure:"otlp_endpoint" validate:"omitempty,hostname_port"`
	SampleRatio    float64 `mapstructure:"sample_ratio" validate:"gte=0,lte=1"`
	MetricsEnabled bool    `mapstructure:"metrics_enabled"`
}
