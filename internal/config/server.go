package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ServerConfig is the daemon's process configuration, read from the
// environment. The daemon deliberately takes no config file: it runs
// under supervisors where env vars are the native knob.
type ServerConfig struct {
	// Addr is the listen address for the HTTP API.
	Addr string `env:"CMDVAULT_ADDR" envDefault:"127.0.0.1:8737"`

	// DBPath overrides the database location. Empty uses the XDG
	// data dir.
	DBPath string `env:"CMDVAULT_DB"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"CMDVAULT_LOG_LEVEL" envDefault:"info"`

	// LogJSON switches the daemon log format from text to JSON.
	LogJSON bool `env:"CMDVAULT_LOG_JSON"`

	// TempCodeTTLMinutes bounds device-code exchange age.
	TempCodeTTLMinutes int `env:"CMDVAULT_CODE_TTL_MINUTES" envDefault:"15"`
}

// LoadServerConfig reads the daemon configuration from the environment.
func LoadServerConfig() (*ServerConfig, error) {
	cfg := &ServerConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if !isValidLogLevel(cfg.LogLevel) {
		return nil, fmt.Errorf("CMDVAULT_LOG_LEVEL must be debug, info, warn, or error (got: %s)", cfg.LogLevel)
	}
	if cfg.TempCodeTTLMinutes < 1 {
		return nil, fmt.Errorf("CMDVAULT_CODE_TTL_MINUTES must be >= 1 (got: %d)", cfg.TempCodeTTLMinutes)
	}

	if cfg.DBPath == "" {
		cfg.DBPath = DefaultPaths().DatabaseFile()
	}
	return cfg, nil
}
