package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"alarmsync/internal/models"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
app:
  name: "alarmsync-test"
database:
  path: "test.db"
backend:
  base_url: "http://localhost:9000"
sync:
  interval: 10s
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.App.Name != "alarmsync-test" {
		t.Errorf("expected app name alarmsync-test, got %s", cfg.App.Name)
	}
	if cfg.Backend.BaseURL != "http://localhost:9000" {
		t.Errorf("expected backend base_url, got %s", cfg.Backend.BaseURL)
	}
	if cfg.Sync.Interval != 10*time.Second {
		t.Errorf("expected sync interval 10s, got %s", cfg.Sync.Interval)
	}
}

func TestLoadConfigExpandsEnv(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	t.Setenv("ALARMSYNC_TEST_DB", filepath.Join(tmpDir, "env.db"))

	yamlContent := `
database:
  path: "${ALARMSYNC_TEST_DB}"
backend:
  base_url: "http://localhost:9000"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Database.Path != filepath.Join(tmpDir, "env.db") {
		t.Errorf("expected env-expanded path, got %s", cfg.Database.Path)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: Config{
				Database: DatabaseConfig{Path: "sync.db"},
				Backend:  BackendConfig{BaseURL: "http://localhost"},
				Sync:     SyncConfig{RetryCeiling: 5},
			},
			wantErr: false,
		},
		{
			name: "missing database path",
			cfg: Config{
				Backend: BackendConfig{BaseURL: "http://localhost"},
				Sync:    SyncConfig{RetryCeiling: 5},
			},
			wantErr: true,
		},
		{
			name: "missing backend url",
			cfg: Config{
				Database: DatabaseConfig{Path: "sync.db"},
				Sync:     SyncConfig{RetryCeiling: 5},
			},
			wantErr: true,
		},
		{
			name: "zero retry ceiling",
			cfg: Config{
				Database: DatabaseConfig{Path: "sync.db"},
				Backend:  BackendConfig{BaseURL: "http://localhost"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{
		Database: DatabaseConfig{Path: "sync.db"},
		Backend:  BackendConfig{BaseURL: "http://localhost"},
	}
	cfg.applyDefaults()

	if cfg.Sync.Interval != models.DefaultSyncInterval {
		t.Errorf("expected default sync interval, got %s", cfg.Sync.Interval)
	}
	if cfg.Sync.RetryCeiling != models.DefaultRetryCeiling {
		t.Errorf("expected default retry ceiling, got %d", cfg.Sync.RetryCeiling)
	}
	if cfg.Connectivity.ProbeURL != cfg.Backend.BaseURL {
		t.Errorf("expected probe url to default to backend base url")
	}
	if cfg.Redis.DeadLetterKey == "" {
		t.Errorf("expected default dead letter key")
	}
}
