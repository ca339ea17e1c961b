package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestDefaultPaths(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("XDG layout test")
	}

	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")

	p := DefaultPaths()
	if p.ConfigDir != "/tmp/xdg-config/cmdvault" {
		t.Errorf("ConfigDir = %q", p.ConfigDir)
	}
	if p.DataDir != "/tmp/xdg-data/cmdvault" {
		t.Errorf("DataDir = %q", p.DataDir)
	}
	if !strings.HasSuffix(p.DatabaseFile(), "vault.db") {
		t.Errorf("DatabaseFile = %q", p.DatabaseFile())
	}
	if filepath.Dir(p.ConfigFile()) != p.ConfigDir {
		t.Errorf("ConfigFile = %q not under ConfigDir", p.ConfigFile())
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	p := &Paths{
		ConfigDir: filepath.Join(base, "config"),
		DataDir:   filepath.Join(base, "data"),
	}

	if err := p.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories() error = %v", err)
	}

	for _, dir := range []string{p.ConfigDir, p.DataDir, p.LogDir()} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Errorf("missing directory %q: %v", dir, err)
			continue
		}
		if !info.IsDir() {
			t.Errorf("%q is not a directory", dir)
		}
	}
}
