package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Port == 0 || cfg.OutputDir == "" || cfg.MaxConcurrentTasks < 1 {
		t.Fatalf("default config invalid: %+v", cfg)
	}
	if cfg.ExternalAPIURL != "" {
		t.Fatalf("auto-upload endpoint must be unset by default, got %q", cfg.ExternalAPIURL)
	}
	if got := cfg.AudioDir(); got != filepath.Join("resources", "audios") {
		t.Fatalf("unexpected audio dir %q", got)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load("not_exists.yml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if cfg.UploadTimeout != defaultUploadTimeout {
		t.Fatalf("expected default upload timeout, got %s", cfg.UploadTimeout)
	}
}

func TestLoadReadsAndValidates(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "cfg.yml")
	content := []byte("port: 9090\noutput_dir: out\nmax_concurrent_tasks: 2\nupload_timeout: 5s\nlog_level: debug\nexternal_api_url: ' http://upstream/api '\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 9090 || cfg.OutputDir != "out" || cfg.MaxConcurrentTasks != 2 || cfg.UploadTimeout != 5*time.Second {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.ExternalAPIURL != "http://upstream/api" {
		t.Fatalf("endpoint not trimmed: %q", cfg.ExternalAPIURL)
	}
	if lvl, _ := cfg.Level(); lvl != zerolog.DebugLevel {
		t.Fatalf("expected debug level, got %s", lvl)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "cfg.yml")
	if err := os.WriteFile(path, []byte("port: 9090\nexternal_api_url: http://from-file\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("EXTERNAL_API_URL", "http://from-env")
	t.Setenv("PORT", "7070")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ExternalAPIURL != "http://from-env" || cfg.Port != 7070 {
		t.Fatalf("env did not override file: %+v", cfg)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"concurrency": "max_concurrent_tasks: 0\n",
		"timeout":     "upload_timeout: 10ms\n",
		"log level":   "log_level: chatty\n",
		"port":        "port: 70000\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cfg.yml")
			if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
				t.Fatalf("write: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Fatalf("expected error for %s", name)
			}
		})
	}
}
