package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.URL != defaultServerURL {
		t.Errorf("server url = %q", cfg.Server.URL)
	}
	if cfg.Interval() != 2500*time.Millisecond {
		t.Errorf("interval = %v", cfg.Interval())
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[server]
url = "http://lab.local:9000"
live = true

[polling]
interval_ms = 1000
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.URL != "http://lab.local:9000" || !cfg.Server.Live {
		t.Errorf("server: %+v", cfg.Server)
	}
	if cfg.Interval() != time.Second {
		t.Errorf("interval = %v", cfg.Interval())
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	os.WriteFile(path, []byte("[server]\nurl = \"http://from-file\"\n"), 0o644)
	t.Setenv("LABBOOK_SERVER", "http://from-env")
	t.Setenv("LABBOOK_POLL_MS", "750")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.URL != "http://from-env" {
		t.Errorf("server url = %q", cfg.Server.URL)
	}
	if cfg.Polling.IntervalMS != 750 {
		t.Errorf("interval_ms = %d", cfg.Polling.IntervalMS)
	}
}

func TestBadPollEnvIgnored(t *testing.T) {
	t.Setenv("LABBOOK_POLL_MS", "not-a-number")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Polling.IntervalMS != defaultIntervalMS {
		t.Errorf("interval_ms = %d", cfg.Polling.IntervalMS)
	}
}

func TestMalformedFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	os.WriteFile(path, []byte("[server\nbroken"), 0o644)
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}
