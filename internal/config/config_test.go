package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.URL == "" {
		t.Error("default server URL is empty")
	}
	if !cfg.Hook.Enabled {
		t.Error("hook should be enabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	cfg, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v, want defaults for missing file", err)
	}
	if cfg.Client.RequestTimeoutMs != DefaultConfig().Client.RequestTimeoutMs {
		t.Error("missing file should produce defaults")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.Server.URL = "http://vault.internal:9000"
	cfg.Server.Token = "tok-123"
	cfg.Hook.CaptureLs = false

	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config file mode = %v, want 0600 (holds the token)", info.Mode().Perm())
	}

	got, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if got.Server.URL != "http://vault.internal:9000" {
		t.Errorf("URL = %q", got.Server.URL)
	}
	if got.Server.Token != "tok-123" {
		t.Errorf("Token = %q", got.Server.Token)
	}
	if got.Hook.CaptureLs {
		t.Error("CaptureLs should be false after round trip")
	}
}

func TestGetSet(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Set("hook.enabled", "false"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	v, err := cfg.Get("hook.enabled")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if v != "false" {
		t.Errorf("hook.enabled = %q, want false", v)
	}

	if err := cfg.Set("client.log_level", "verbose"); err == nil {
		t.Error("Set() with invalid log level succeeded, want error")
	}
	if err := cfg.Set("nope.key", "x"); err == nil {
		t.Error("Set() with unknown section succeeded, want error")
	}
	if _, err := cfg.Get("flat"); err == nil {
		t.Error("Get() without dot succeeded, want error")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("CMDVAULT_URL", "http://override:1234")
	t.Setenv("CMDVAULT_DEBUG", "1")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	if cfg.Server.URL != "http://override:1234" {
		t.Errorf("URL = %q, env override not applied", cfg.Server.URL)
	}
	if cfg.Client.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.Client.LogLevel)
	}
}

func TestValidate_Rejections(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.URL = ""
	if err := cfg.Validate(); err == nil {
		t.Error("empty server URL accepted")
	}

	cfg = DefaultConfig()
	cfg.Hook.MaxCommandLen = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero max_command_len accepted")
	}
}
