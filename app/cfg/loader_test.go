package cfg

import (
	"testing"
	"time"
)

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load([]string{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Mode != ModeDaemon {
		t.Errorf("Expected mode 'daemon', got '%s'", cfg.Mode)
	}
	if cfg.FeedInterval != 10*time.Minute {
		t.Errorf("Expected feed interval 10m, got %v", cfg.FeedInterval)
	}
	if cfg.MailInterval != 30*time.Minute {
		t.Errorf("Expected mail interval 30m, got %v", cfg.MailInterval)
	}
	if cfg.FeedTimeout != 30*time.Second {
		t.Errorf("Expected feed timeout 30s, got %v", cfg.FeedTimeout)
	}
	if cfg.FeedPause != time.Second {
		t.Errorf("Expected feed pause 1s, got %v", cfg.FeedPause)
	}
	if cfg.ExportItems != 50 {
		t.Errorf("Expected export items 50, got %d", cfg.ExportItems)
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected port '8080', got '%s'", cfg.Port)
	}
	if cfg.NoEmail {
		t.Error("Expected mail ingestion to be enabled by default")
	}
}

func TestLoadFlagsAndEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("FEED_INTERVAL", "5")
	t.Setenv("API_ACCESS_KEY", "secret")

	cfg, err := Load([]string{"--mode", "once", "--no-email", "--feed-pause", "0", "--db-path", "/tmp/x.db"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Mode != ModeOnce {
		t.Errorf("Expected mode 'once', got '%s'", cfg.Mode)
	}
	if !cfg.NoEmail {
		t.Error("Expected no-email to be set")
	}
	if cfg.FeedPause != 0 {
		t.Errorf("Expected zero pause, got %v", cfg.FeedPause)
	}
	if cfg.FeedInterval != 5*time.Minute {
		t.Errorf("Expected feed interval from env, got %v", cfg.FeedInterval)
	}
	if cfg.APIAccessKey != "secret" {
		t.Errorf("Expected API key from env, got '%s'", cfg.APIAccessKey)
	}
	if cfg.DBPath != "/tmp/x.db" {
		t.Errorf("Expected db path '/tmp/x.db', got '%s'", cfg.DBPath)
	}
}

func TestLoadInvalid(t *testing.T) {
	t.Chdir(t.TempDir())

	tests := []struct {
		name string
		args []string
	}{
		{"unknown mode", []string{"--mode", "sometimes"}},
		{"zero interval", []string{"--feed-interval", "0"}},
		{"negative pause", []string{"--feed-pause", "-1"}},
		{"zero export items", []string{"--export-items", "0"}},
		{"not a number", []string{"--feed-timeout", "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(tt.args); err == nil {
				t.Errorf("Expected error for %v", tt.args)
			}
		})
	}
}
