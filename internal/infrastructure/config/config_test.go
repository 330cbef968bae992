package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
site:
  id: "test-site"
  timezone: "Europe/Madrid"
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
api:
  host: "0.0.0.0"
  port: 8080
channels:
  heartbeat_interval: 10
security:
  jwt:
    secret: "test-secret-key-at-least-32-chars!"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "test-site" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "test-site")
	}
	if cfg.Site.Timezone != "Europe/Madrid" {
		t.Errorf("Site.Timezone = %q, want %q", cfg.Site.Timezone, "Europe/Madrid")
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}
	if got := cfg.HeartbeatInterval(); got != 10*time.Second {
		t.Errorf("HeartbeatInterval() = %v, want %v", got, 10*time.Second)
	}
}

func TestLoad_Defaults(t *testing.T) {
	content := `
security:
  jwt:
    secret: "test-secret-key-at-least-32-chars!"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.Timezone != "UTC" {
		t.Errorf("default Site.Timezone = %q, want UTC", cfg.Site.Timezone)
	}
	if cfg.Channels.HeartbeatInterval != 10 {
		t.Errorf("default Channels.HeartbeatInterval = %d, want 10", cfg.Channels.HeartbeatInterval)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("default API.Port = %d, want 8080", cfg.API.Port)
	}

	loc, err := cfg.Location()
	if err != nil {
		t.Fatalf("Location() error = %v", err)
	}
	if loc != time.UTC {
		t.Errorf("Location() = %v, want UTC", loc)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "missing jwt secret",
			content: `
site:
  id: "test-site"
`,
		},
		{
			name: "short jwt secret",
			content: `
security:
  jwt:
    secret: "too-short"
`,
		},
		{
			name: "bad timezone",
			content: `
site:
  timezone: "Mars/Olympus_Mons"
security:
  jwt:
    secret: "test-secret-key-at-least-32-chars!"
`,
		},
		{
			name: "bad heartbeat interval",
			content: `
channels:
  heartbeat_interval: 0
security:
  jwt:
    secret: "test-secret-key-at-least-32-chars!"
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("Load() expected validation error, got nil")
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	content := `
security:
  jwt:
    secret: "test-secret-key-at-least-32-chars!"
`
	t.Setenv("FEEDERCORE_DATABASE_PATH", "/env/override.db")
	t.Setenv("FEEDERCORE_SITE_TIMEZONE", "America/New_York")

	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/env/override.db" {
		t.Errorf("Database.Path = %q, want env override", cfg.Database.Path)
	}
	if cfg.Site.Timezone != "America/New_York" {
		t.Errorf("Site.Timezone = %q, want env override", cfg.Site.Timezone)
	}
}
