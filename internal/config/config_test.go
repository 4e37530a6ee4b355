package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "schedstore.yaml", `
store:
  path: /var/lib/schedstore/sched.db
  busy_timeout: 2s
  misfire_threshold: 90s
logging:
  level: debug
  console: false
monitor:
  interval: 10s
  horizon: 2m
  max_triggers: 50
`)
	cfg, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	settings, err := cfg.StoreSettings()
	if err != nil {
		t.Fatalf("StoreSettings: %v", err)
	}
	if settings.Docstore.Path != "/var/lib/schedstore/sched.db" {
		t.Fatalf("path = %s", settings.Docstore.Path)
	}
	if settings.Docstore.BusyTimeout != 2*time.Second {
		t.Fatalf("busy timeout = %v, want 2s", settings.Docstore.BusyTimeout)
	}
	if settings.MisfireThreshold != 90*time.Second {
		t.Fatalf("misfire threshold = %v, want 90s", settings.MisfireThreshold)
	}

	lc := cfg.LogxConfig()
	if lc.Level != "debug" || lc.Console {
		t.Fatalf("logging config = %+v", lc)
	}

	mon, err := cfg.MonitorSettings()
	if err != nil {
		t.Fatalf("MonitorSettings: %v", err)
	}
	if mon.Interval != 10*time.Second || mon.Horizon != 2*time.Minute || mon.MaxTriggers != 50 {
		t.Fatalf("monitor settings = %+v", mon)
	}
}

func TestLoadJSONWithDefaults(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "schedstore.json", `{"store":{"path":"./sched.db"}}`)
	cfg, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	settings, err := cfg.StoreSettings()
	if err != nil {
		t.Fatalf("StoreSettings: %v", err)
	}
	if settings.Docstore.BusyTimeout != 5*time.Second {
		t.Fatalf("default busy timeout = %v, want 5s", settings.Docstore.BusyTimeout)
	}
	if settings.MisfireThreshold != 60*time.Second {
		t.Fatalf("default misfire threshold = %v, want 60s", settings.MisfireThreshold)
	}
	if lc := cfg.LogxConfig(); !lc.Console {
		t.Fatal("console logging should default to enabled")
	}
	mon, err := cfg.MonitorSettings()
	if err != nil {
		t.Fatalf("MonitorSettings: %v", err)
	}
	if mon.Interval != 5*time.Second || mon.MaxTriggers != 20 {
		t.Fatalf("default monitor settings = %+v", mon)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "bad.yaml", `
store:
  path: ./sched.db
  flush_interval: 10s
`)
	if _, err := NewManager(path).Load(); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestStoreSettingsRequiresPath(t *testing.T) {
	t.Parallel()
	cfg := &Config{}
	if _, err := cfg.StoreSettings(); err == nil {
		t.Fatal("expected error for missing store.path")
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()
	if _, err := ParseDurationField("x", "banana"); err == nil {
		t.Fatal("expected error for garbage duration")
	}
	if _, err := ParseDurationField("x", "-5s"); err == nil {
		t.Fatal("expected error for negative duration")
	}
	d, err := ParseDurationOrDefault("x", "", time.Minute)
	if err != nil || d != time.Minute {
		t.Fatalf("ParseDurationOrDefault = (%v, %v), want 1m", d, err)
	}
}
