package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the cmdvault client configuration.
type Config struct {
	Server ServerSection `yaml:"server"`
	Client ClientSection `yaml:"client"`
	Hook   HookSection   `yaml:"hook"`
}

// ServerSection holds connection settings for the vault daemon.
type ServerSection struct {
	URL   string `yaml:"url"`   // Base URL of the daemon API
	Token string `yaml:"token"` // Bearer token from exchange-token
}

// ClientSection holds client-related settings.
type ClientSection struct {
	RequestTimeoutMs int    `yaml:"request_timeout_ms"` // Max wait for API responses
	LogLevel         string `yaml:"log_level"`          // debug, info, warn, error
}

// HookSection holds shell-hook ingestion settings.
type HookSection struct {
	Enabled       bool `yaml:"enabled"`         // Master toggle for the shell hook
	CaptureLs     bool `yaml:"capture_ls"`      // Attach a directory listing to events
	TimeoutMs     int  `yaml:"timeout_ms"`      // Max wait before abandoning an event
	MaxCommandLen int  `yaml:"max_command_len"` // Commands beyond this are skipped
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSection{
			URL: "http://127.0.0.1:8737",
		},
		Client: ClientSection{
			RequestTimeoutMs: 2000,
			LogLevel:         "info",
		},
		Hook: HookSection{
			Enabled:       true,
			CaptureLs:     true,
			TimeoutMs:     500,
			MaxCommandLen: 4096,
		},
	}
}

// Load loads configuration from the default path.
func Load() (*Config, error) {
	paths := DefaultPaths()
	return LoadFromFile(paths.ConfigFile())
}

// LoadFromFile loads configuration from the specified file.
// If the file doesn't exist, returns default configuration.
// Environment variable overrides are applied after file loading.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ApplyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Save saves the configuration to the default path.
func (c *Config) Save() error {
	paths := DefaultPaths()
	return c.SaveToFile(paths.ConfigFile())
}

// SaveToFile saves the configuration to the specified file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// The file carries the API token.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Get retrieves a configuration value by dot-separated key.
// For example: "server.url" or "hook.enabled"
func (c *Config) Get(key string) (string, error) {
	parts := strings.Split(key, ".")
	if len(parts) != 2 {
		return "", errors.New("key must be in format 'section.key'")
	}

	section, field := parts[0], parts[1]

	switch section {
	case "server":
		return c.getServerField(field)
	case "client":
		return c.getClientField(field)
	case "hook":
		return c.getHookField(field)
	default:
		return "", fmt.Errorf("unknown section: %s", section)
	}
}

// Set sets a configuration value by dot-separated key.
func (c *Config) Set(key, value string) error {
	parts := strings.Split(key, ".")
	if len(parts) != 2 {
		return errors.New("key must be in format 'section.key'")
	}

	section, field := parts[0], parts[1]

	switch section {
	case "server":
		return c.setServerField(field, value)
	case "client":
		return c.setClientField(field, value)
	case "hook":
		return c.setHookField(field, value)
	default:
		return fmt.Errorf("unknown section: %s", section)
	}
}

func (c *Config) getServerField(field string) (string, error) {
	switch field {
	case "url":
		return c.Server.URL, nil
	case "token":
		return c.Server.Token, nil
	default:
		return "", fmt.Errorf("unknown field: server.%s", field)
	}
}

func (c *Config) setServerField(field, value string) error {
	switch field {
	case "url":
		c.Server.URL = value
	case "token":
		c.Server.Token = value
	default:
		return fmt.Errorf("unknown field: server.%s", field)
	}
	return nil
}

func (c *Config) getClientField(field string) (string, error) {
	switch field {
	case "request_timeout_ms":
		return strconv.Itoa(c.Client.RequestTimeoutMs), nil
	case "log_level":
		return c.Client.LogLevel, nil
	default:
		return "", fmt.Errorf("unknown field: client.%s", field)
	}
}

func (c *Config) setClientField(field, value string) error {
	switch field {
	case "request_timeout_ms":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for request_timeout_ms: %w", err)
		}
		if v < 0 {
			return fmt.Errorf("invalid request_timeout_ms: must be non-negative")
		}
		c.Client.RequestTimeoutMs = v
	case "log_level":
		if !isValidLogLevel(value) {
			return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", value)
		}
		c.Client.LogLevel = value
	default:
		return fmt.Errorf("unknown field: client.%s", field)
	}
	return nil
}

func (c *Config) getHookField(field string) (string, error) {
	switch field {
	case "enabled":
		return strconv.FormatBool(c.Hook.Enabled), nil
	case "capture_ls":
		return strconv.FormatBool(c.Hook.CaptureLs), nil
	case "timeout_ms":
		return strconv.Itoa(c.Hook.TimeoutMs), nil
	case "max_command_len":
		return strconv.Itoa(c.Hook.MaxCommandLen), nil
	default:
		return "", fmt.Errorf("unknown field: hook.%s", field)
	}
}

func (c *Config) setHookField(field, value string) error {
	switch field {
	case "enabled":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for enabled: %w", err)
		}
		c.Hook.Enabled = v
	case "capture_ls":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for capture_ls: %w", err)
		}
		c.Hook.CaptureLs = v
	case "timeout_ms":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for timeout_ms: %w", err)
		}
		if v < 0 {
			return fmt.Errorf("invalid timeout_ms: must be non-negative")
		}
		c.Hook.TimeoutMs = v
	case "max_command_len":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for max_command_len: %w", err)
		}
		if v < 1 {
			return fmt.Errorf("invalid max_command_len: must be >= 1")
		}
		c.Hook.MaxCommandLen = v
	default:
		return fmt.Errorf("unknown field: hook.%s", field)
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.URL == "" {
		return errors.New("server.url must not be empty")
	}

	if !isValidLogLevel(c.Client.LogLevel) {
		return fmt.Errorf("client.log_level must be debug, info, warn, or error (got: %s)", c.Client.LogLevel)
	}

	if c.Client.RequestTimeoutMs < 0 {
		return errors.New("client.request_timeout_ms must be >= 0")
	}

	if c.Hook.TimeoutMs < 0 {
		return errors.New("hook.timeout_ms must be >= 0")
	}

	if c.Hook.MaxCommandLen < 1 {
		return errors.New("hook.max_command_len must be >= 1")
	}

	return nil
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// ApplyEnvOverrides applies environment variable overrides to the config.
// Environment variables override config file values.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("CMDVAULT_URL"); v != "" {
		c.Server.URL = v
	}
	if v := os.Getenv("CMDVAULT_TOKEN"); v != "" {
		c.Server.Token = v
	}
	if v := os.Getenv("CMDVAULT_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil && b {
			c.Client.LogLevel = "debug"
		}
	}
	if v := os.Getenv("CMDVAULT_LOG_LEVEL"); v != "" {
		if isValidLogLevel(v) {
			c.Client.LogLevel = v
		}
	}
	if v := os.Getenv("CMDVAULT_HOOK_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Hook.Enabled = b
		}
	}
}

// ListKeys returns user-facing configuration keys.
func ListKeys() []string {
	return []string{
		"server.url",
		"server.token",
		"client.request_timeout_ms",
		"client.log_level",
		"hook.enabled",
		"hook.capture_ls",
		"hook.timeout_ms",
		"hook.max_command_len",
	}
}
