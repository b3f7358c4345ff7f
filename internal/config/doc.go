// Package config loads, defaults and validates the service configuration from
// an optional YAML file and STUDYHUB_* environment variables.
package config
