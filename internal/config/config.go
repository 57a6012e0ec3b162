// Package config defines process configuration for the seraaj services.
//
// Configuration is layered: compiled defaults, then an optional YAML file
// named by SERAAJ_CONFIG, then SERAAJ_-prefixed environment variables.
package config

import (
	"errors"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config contains process configuration shared by the service binaries.
type Config struct {
	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Backend selects the storage backend: "file" or "postgres". When
	// empty it is derived from DatabaseURL.
	Backend string `koanf:"backend"`

	// DataDir roots the file backend's JSON and JSONL files.
	DataDir string `koanf:"data_dir"`

	// DatabaseURL is the Postgres connection string for the event-sourced
	// backend.
	DatabaseURL string `koanf:"database_url"`

	// EventBusURL is the endpoint events are propagated to. Empty
	// disables propagation.
	EventBusURL string `koanf:"event_bus_url"`

	// VolunteerServiceURL and OpportunityServiceURL point the matching
	// service at external directory services. When empty the built-in
	// directory is used.
	VolunteerServiceURL   string `koanf:"volunteer_service_url"`
	OpportunityServiceURL string `koanf:"opportunity_service_url"`

	// OTelEndpoint is the OTLP/HTTP collector endpoint. Empty disables
	// trace export.
	OTelEndpoint string `koanf:"otel_endpoint"`
}

// New creates a Config with compiled defaults.
func New() *Config {
	return &Config{
		Addr:    ":8080",
		DataDir: "data",
	}
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if SERAAJ_CONFIG is set
//  3. env (prefix SERAAJ_)
func Load() (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("SERAAJ_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// SERAAJ_DATABASE_URL -> database_url, preserving underscores to
	// match the koanf tags on the struct.
	envProvider := env.Provider("SERAAJ_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "seraaj_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	if cfg.Backend == "" {
		if cfg.DatabaseURL != "" {
			cfg.Backend = "postgres"
		} else {
			cfg.Backend = "file"
		}
	}
	if cfg.Backend == "postgres" && cfg.DatabaseURL == "" {
		return nil, errors.New("postgres backend requires database_url")
	}
	if cfg.Addr == "" {
		return nil, errors.New("addr must not be empty")
	}
	return &cfg, nil
}
