package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("ANALYSIS_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("WEBHOOK_WORKERS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Worker.Workers != 3 {
		t.Errorf("Workers = %d, want 3", cfg.Worker.Workers)
	}
	if cfg.Analysis.Enabled() {
		t.Error("analysis should be disabled without an API key")
	}
	if cfg.Analysis.Timeout() != 60*time.Second {
		t.Errorf("analysis timeout = %s", cfg.Analysis.Timeout())
	}
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("REDIS_DB", "zero")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-numeric REDIS_DB")
	}
}

func TestConfigFileSitsBelowEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "ANALYSIS_MODEL: from-file\nWEBHOOK_QUEUE_SIZE: 7\nAPP_PORT: \"9000\"\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("APP_PORT", "8081")
	// registered for cleanup so values exported from the file do not leak
	t.Setenv("ANALYSIS_MODEL", "")
	t.Setenv("WEBHOOK_QUEUE_SIZE", "")
	os.Unsetenv("ANALYSIS_MODEL")
	os.Unsetenv("WEBHOOK_QUEUE_SIZE")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Analysis.Model != "from-file" {
		t.Errorf("Model = %q, want from-file", cfg.Analysis.Model)
	}
	if cfg.Worker.QueueSize != 7 {
		t.Errorf("QueueSize = %d, want 7", cfg.Worker.QueueSize)
	}
	if cfg.App.Port != "8081" {
		t.Errorf("Port = %q, environment should win", cfg.App.Port)
	}
}

func TestConfigFileMissing(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
