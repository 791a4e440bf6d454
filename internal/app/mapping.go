package app

import (
	"fmt"
	"strings"
	"time"

	"boxfeed/internal/config"
	"boxfeed/internal/notify"
	"boxfeed/internal/pipeline"
	"boxfeed/internal/storage"
)

func settingsFromConfig(sc config.SettingsConfig) notify.Settings {
	return notify.Settings{
		Enabled:   sc.Enabled,
		Sound:     sc.Sound,
		Order:     sc.Order,
		Box:       sc.Box,
		Promotion: sc.Promotion,
		Social:    sc.Social,
		System:    sc.System,
	}
}

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	sc := cfg.Storage
	driver := strings.TrimSpace(sc.Driver)
	if driver == "" || strings.EqualFold(driver, "none") {
		return storage.Config{}, false, nil
	}
	path := strings.TrimSpace(sc.Path)

	dl := strings.ToLower(driver)
	switch dl {
	case "file":
		return storage.Config{Driver: "file", Path: path}, true, nil
	case "sqlite", "sqlite3":
		if path == "" {
			return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=sqlite")
		}
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, 1*time.Second)
		if err != nil {
			return storage.Config{}, false, err
		}
		return storage.Config{Driver: dl, Path: path, BusyTimeout: busy}, true, nil
	default:
		return storage.Config{}, false, fmt.Errorf("unknown storage.driver: %s", driver)
	}
}

func mapPipelineOptions(cfg *config.Config) (pipeline.Options, error) {
	pc := cfg.Pipeline
	maxAge, err := config.ParseDurationField("pipeline.processed_max_age", pc.ProcessedMaxAge)
	if err != nil {
		return pipeline.Options{}, err
	}
	return pipeline.Options{
		EnableToasts:       pc.EnableToasts,
		EnableBadgeUpdates: pc.EnableBadgeUpdates,
		EnableSounds:       pc.EnableSounds,
		FilterTypes:        pc.FilterTypes,

		ProcessedMaxEntries: pc.ProcessedMaxEntries,
		ProcessedMaxAge:     maxAge,

		SoundRatePerSec: pc.SoundRatePerSec,
	}, nil
}
