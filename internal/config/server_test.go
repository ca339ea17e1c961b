package config

import (
	"testing"
)

func TestLoadServerConfig_Defaults(t *testing.T) {
	t.Setenv("CMDVAULT_ADDR", "")
	t.Setenv("CMDVAULT_DB", "")
	t.Setenv("CMDVAULT_LOG_LEVEL", "")

	cfg, err := LoadServerConfig()
	if err != nil {
		t.Fatalf("LoadServerConfig() error = %v", err)
	}
	if cfg.Addr != "127.0.0.1:8737" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.DBPath == "" {
		t.Error("DBPath should fall back to the XDG data dir")
	}
	if cfg.TempCodeTTLMinutes != 15 {
		t.Errorf("TempCodeTTLMinutes = %d", cfg.TempCodeTTLMinutes)
	}
}

func TestLoadServerConfig_Overrides(t *testing.T) {
	t.Setenv("CMDVAULT_ADDR", "0.0.0.0:9999")
	t.Setenv("CMDVAULT_DB", "/var/lib/cmdvault/vault.db")
	t.Setenv("CMDVAULT_LOG_LEVEL", "debug")
	t.Setenv("CMDVAULT_LOG_JSON", "true")

	cfg, err := LoadServerConfig()
	if err != nil {
		t.Fatalf("LoadServerConfig() error = %v", err)
	}
	if cfg.Addr != "0.0.0.0:9999" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.DBPath != "/var/lib/cmdvault/vault.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if !cfg.LogJSON {
		t.Error("LogJSON not applied")
	}
}

func TestLoadServerConfig_InvalidLevel(t *testing.T) {
	t.Setenv("CMDVAULT_LOG_LEVEL", "loud")

	if _, err := LoadServerConfig(); err == nil {
		t.Error("invalid log level accepted")
	}
}
