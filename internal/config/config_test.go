package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/edgard/gitchat/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load with missing file: %v", err)
	}

	if cfg.Server.ListenAddr != ":8888" {
		t.Errorf("unexpected listen addr %q", cfg.Server.ListenAddr)
	}
	if cfg.Server.DefaultPageSize != 20 || cfg.Server.MaxPageSize != 100 {
		t.Errorf("unexpected page sizes %d/%d", cfg.Server.DefaultPageSize, cfg.Server.MaxPageSize)
	}
	if cfg.Server.MaxContentLength != 10000 {
		t.Errorf("unexpected max content length %d", cfg.Server.MaxContentLength)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("unexpected log defaults %q/%q", cfg.Log.Level, cfg.Log.Format)
	}
	if cfg.Database.Path != "database/messages.db" {
		t.Errorf("unexpected database path %q", cfg.Database.Path)
	}
	if cfg.Mirror.Dir != "messages" {
		t.Errorf("unexpected mirror dir %q", cfg.Mirror.Dir)
	}
	if cfg.Git.Remote != "origin" || cfg.Git.Branch != "main" {
		t.Errorf("unexpected git defaults %q/%q", cfg.Git.Remote, cfg.Git.Branch)
	}
	if cfg.Git.CommandTimeout != 30*time.Second {
		t.Errorf("unexpected git command timeout %v", cfg.Git.CommandTimeout)
	}
	if cfg.GitHub.BaseURL != "https://api.github.com" {
		t.Errorf("unexpected github base url %q", cfg.GitHub.BaseURL)
	}
	if cfg.GitHub.Token != "" {
		t.Errorf("expected empty token by default, got %q", cfg.GitHub.Token)
	}
	if cfg.Sync.Enabled {
		t.Error("expected sync disabled by default")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  listen_addr: ":9090"
  default_page_size: 50
log:
  level: debug
  format: text
git:
  branch: master
  command_timeout: 1m
sync:
  enabled: true
  schedule: "*/5 * * * *"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("unexpected listen addr %q", cfg.Server.ListenAddr)
	}
	if cfg.Server.DefaultPageSize != 50 {
		t.Errorf("unexpected default page size %d", cfg.Server.DefaultPageSize)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Errorf("unexpected log config %q/%q", cfg.Log.Level, cfg.Log.Format)
	}
	if cfg.Git.Branch != "master" || cfg.Git.CommandTimeout != time.Minute {
		t.Errorf("unexpected git config %q/%v", cfg.Git.Branch, cfg.Git.CommandTimeout)
	}
	// Untouched keys keep their defaults.
	if cfg.Server.MaxPageSize != 100 {
		t.Errorf("unexpected max page size %d", cfg.Server.MaxPageSize)
	}
	if cfg.Sync.Schedule != "*/5 * * * *" {
		t.Errorf("unexpected sync schedule %q", cfg.Sync.Schedule)
	}
}

func TestLoadEnvironmentOverride(t *testing.T) {
	t.Setenv("GITCHAT_SERVER_LISTEN_ADDR", ":7777")
	t.Setenv("GITCHAT_GITHUB_TOKEN", "env-token")
	t.Setenv("GITCHAT_LOG_LEVEL", "warn")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.ListenAddr != ":7777" {
		t.Errorf("expected env override for listen addr, got %q", cfg.Server.ListenAddr)
	}
	if cfg.GitHub.Token != "env-token" {
		t.Errorf("expected token from environment, got %q", cfg.GitHub.Token)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("expected env override for log level, got %q", cfg.Log.Level)
	}
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad log level", "log:\n  level: verbose\n"},
		{"bad log format", "log:\n  format: xml\n"},
		{"zero page size", "server:\n  default_page_size: 0\n"},
		{"empty database path", "database:\n  path: \"\"\n"},
		{"tiny git timeout", "git:\n  command_timeout: 1ms\n"},
		{"bad github url", "github:\n  base_url: not-a-url\n"},
		{"sync without schedule", "sync:\n  enabled: true\n"},
		{"malformed yaml", "server: [\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tc.content), 0o600); err != nil {
				t.Fatalf("writing config file: %v", err)
			}

			_, err := config.Load(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, config.ErrConfiguration) {
				t.Errorf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}
