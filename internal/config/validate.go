package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// Validate checks a parsed config for semantic problems the decoder cannot
// catch: bad durations, unknown drivers, malformed cron specs.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if _, err := ParseDurationField("pipeline.processed_max_age", cfg.Pipeline.ProcessedMaxAge); err != nil {
		return err
	}
	if cfg.Pipeline.ProcessedMaxEntries < 0 {
		return fmt.Errorf("pipeline.processed_max_entries: must be >= 0")
	}
	if cfg.Pipeline.SoundRatePerSec < 0 {
		return fmt.Errorf("pipeline.sound_rate_per_sec: must be >= 0")
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Source.Driver)) {
	case "", "memory":
	case "websocket", "ws":
		if strings.TrimSpace(cfg.Source.URL) == "" {
			return fmt.Errorf("source.url: required for websocket driver")
		}
		if _, err := ParseDurationField("source.dial_timeout", cfg.Source.DialTimeout); err != nil {
			return err
		}
	default:
		return fmt.Errorf("source.driver: unknown driver %q", cfg.Source.Driver)
	}

	if cfg.Storage != nil {
		switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
		case "", "none", "file", "sqlite", "sqlite3":
		default:
			return fmt.Errorf("storage.driver: unknown driver %q", cfg.Storage.Driver)
		}
		if _, err := ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout); err != nil {
			return err
		}
	}

	if cfg.Maintenance != nil && strings.TrimSpace(cfg.Maintenance.PruneSpec) != "" {
		if _, err := cron.ParseStandard(cfg.Maintenance.PruneSpec); err != nil {
			return fmt.Errorf("maintenance.prune_spec: %w", err)
		}
	}

	return nil
}
