package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{
		"logging": {"level": "debug", "console": true},
		"settings": {"enabled": true, "sound": true, "order": true},
		"pipeline": {"enable_toasts": true, "filter_types": ["new_box"]},
		"source": {"driver": "memory"}
	}`)

	m := NewManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("level = %q", cfg.Logging.Level)
	}
	if len(cfg.Pipeline.FilterTypes) != 1 || cfg.Pipeline.FilterTypes[0] != "new_box" {
		t.Fatalf("filter types = %v", cfg.Pipeline.FilterTypes)
	}
	if got := m.Get(); got != cfg {
		t.Fatalf("Get() did not return committed config")
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
logging:
  level: warn
  console: true
settings:
  enabled: true
  box: true
pipeline:
  enable_toasts: true
  processed_max_age: 72h
source:
  driver: websocket
  url: wss://example.test/live
storage:
  driver: file
  path: ./data/boxfeed
maintenance:
  prune_spec: "0 3 * * *"
`)

	cfg, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Logging.Level != "warn" || !cfg.Settings.Box {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Source.Driver != "websocket" || cfg.Source.URL == "" {
		t.Fatalf("source = %+v", cfg.Source)
	}
	if cfg.Storage == nil || cfg.Storage.Driver != "file" {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "config.json", `{"logging": {"level": "info"}, "bogus_section": {}}`)
	if _, err := NewManager(path).Parse(); err == nil {
		t.Fatalf("unknown key accepted")
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	path := writeConfig(t, "config.json", `{"logging": {"level": "info"}}{"extra": 1}`)
	if _, err := NewManager(path).Parse(); err == nil {
		t.Fatalf("trailing data accepted")
	}
}

func TestValidateCatchesBadValues(t *testing.T) {
	bad := []*Config{
		func() *Config { c := Default(); c.Pipeline.ProcessedMaxAge = "soon"; return c }(),
		func() *Config { c := Default(); c.Pipeline.ProcessedMaxEntries = -1; return c }(),
		func() *Config { c := Default(); c.Source.Driver = "carrier-pigeon"; return c }(),
		func() *Config { c := Default(); c.Source.Driver = "websocket"; return c }(), // url missing
		func() *Config { c := Default(); c.Storage = &StorageConfig{Driver: "mongo"}; return c }(),
		func() *Config { c := Default(); c.Maintenance = &MaintenanceConfig{PruneSpec: "every day"}; return c }(),
	}
	for i, cfg := range bad {
		if err := Validate(cfg); err == nil {
			t.Fatalf("case %d: invalid config passed validation", i)
		}
	}
	if err := Validate(Default()); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestParseDurationField(t *testing.T) {
	if d, err := ParseDurationField("x", " 10s "); err != nil || d.Seconds() != 10 {
		t.Fatalf("got %v, %v", d, err)
	}
	if d, err := ParseDurationField("x", ""); err != nil || d != 0 {
		t.Fatalf("empty must be 0, got %v, %v", d, err)
	}
	if _, err := ParseDurationField("x", "-5s"); err == nil {
		t.Fatalf("negative duration accepted")
	}
	if _, err := ParseDurationField("x", "10 seconds"); err == nil {
		t.Fatalf("bad duration accepted")
	}
}

func TestSummarizeConfigChange(t *testing.T) {
	a := Default()
	b := Default()
	b.Settings.Order = false
	b.Logging.Level = "debug"

	sections, _ := SummarizeConfigChange(a, b)
	want := map[string]bool{"logging": false, "settings": false}
	for _, s := range sections {
		if _, ok := want[s]; !ok {
			t.Fatalf("unexpected section %q", s)
		}
		want[s] = true
	}
	for s, seen := range want {
		if !seen {
			t.Fatalf("section %q not reported", s)
		}
	}

	if sections, _ := SummarizeConfigChange(a, Default()); len(sections) != 0 {
		t.Fatalf("identical configs reported sections %v", sections)
	}
}
