package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("USER", "tester")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Dir != dir {
		t.Errorf("expected dir %q, got %q", dir, cfg.Dir)
	}
	if cfg.User != "tester" {
		t.Errorf("expected user tester, got %q", cfg.User)
	}
	if cfg.Timeout != 10*time.Second {
		t.Errorf("expected 10s timeout, got %v", cfg.Timeout)
	}
	if cfg.Settings.Backend != BackendFile {
		t.Errorf("expected file backend, got %q", cfg.Settings.Backend)
	}
	if cfg.SettingsPath() != filepath.Join(dir, SettingsFile) {
		t.Errorf("unexpected settings path %q", cfg.SettingsPath())
	}
	if cfg.Redis.URL != "" || cfg.Redis.TTL != 5*time.Minute {
		t.Errorf("unexpected redis config %+v", cfg.Redis)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	data := `
user: bot
timeout: 3s
listen: 127.0.0.1:9000
settings:
  backend: sqlite
  path: data/bot.db
redis:
  url: redis://localhost:6379/1
  ttl: 30s
`
	if err := os.WriteFile(filepath.Join(dir, ConfigFile), []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.User != "bot" || cfg.Timeout != 3*time.Second || cfg.Listen != "127.0.0.1:9000" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.Settings.Backend != BackendSQLite {
		t.Errorf("expected sqlite, got %q", cfg.Settings.Backend)
	}
	if cfg.SettingsPath() != filepath.Join(dir, "data", "bot.db") {
		t.Errorf("unexpected settings path %q", cfg.SettingsPath())
	}
	if cfg.Redis.URL != "redis://localhost:6379/1" || cfg.Redis.TTL != 30*time.Second {
		t.Errorf("unexpected redis config %+v", cfg.Redis)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ConfigFile), []byte("user: fromfile\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TASKBRIDGE_USER", "fromenv")
	t.Setenv("TASKBRIDGE_REDIS_URL", "redis://envhost:6379")
	t.Setenv("TASKBRIDGE_SETTINGS_BACKEND", "memory")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.User != "fromenv" {
		t.Errorf("expected env to win, got %q", cfg.User)
	}
	if cfg.Redis.URL != "redis://envhost:6379" {
		t.Errorf("expected redis url from env, got %q", cfg.Redis.URL)
	}
	if cfg.Settings.Backend != BackendMemory {
		t.Errorf("expected memory backend, got %q", cfg.Settings.Backend)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantMsg string
	}{
		{"bad yaml", "user: [", "invalid config.yaml"},
		{"unknown backend", "settings:\n  backend: etcd\n", "unknown settings backend"},
		{"azure without connection", "settings:\n  backend: azure\n", "azure_connection_string required"},
		{"negative timeout", "timeout: -1s\n", "timeout must not be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, ConfigFile), []byte(tt.data), 0600); err != nil {
				t.Fatal(err)
			}
			_, err := Load(dir)
			if err == nil || !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("expected error containing %q, got %v", tt.wantMsg, err)
			}
		})
	}
}

func TestDefaultConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	if got := DefaultConfigDir(); got != filepath.Join("/tmp/xdg", AppName) {
		t.Errorf("unexpected dir %q", got)
	}

	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "/home/tester")
	if got := DefaultConfigDir(); got != filepath.Join("/home/tester", ".config", AppName) {
		t.Errorf("unexpected dir %q", got)
	}
}

func TestSettingsPath(t *testing.T) {
	cfg, _ := New("/cfg")

	cfg.Settings.Backend = BackendSQLite
	if got := cfg.SettingsPath(); got != filepath.Join("/cfg", DatabaseFile) {
		t.Errorf("unexpected sqlite path %q", got)
	}

	cfg.Settings.Path = "/abs/settings.yaml"
	if got := cfg.SettingsPath(); got != "/abs/settings.yaml" {
		t.Errorf("absolute path should be kept, got %q", got)
	}
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", AppName)
	cfg, _ := New(dir)

	if err := cfg.EnsureDir(); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0700 {
		t.Errorf("expected mode 0700, got %o", perm)
	}
}
