package config

import (
	"reflect"
	"strings"

	logx "boxfeed/pkg/logx"
)

// SummarizeConfigChange returns (1) a compact list of changed sections and
// (2) safe structured attrs for logging.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 16)

	// Logging
	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	// Settings drive gating; the pipeline re-evaluates on any change here.
	if oldCfg.Settings != newCfg.Settings {
		changed = append(changed, "settings")
		attrs = append(attrs,
			logx.Bool("settings.enabled", newCfg.Settings.Enabled),
			logx.Bool("settings.sound", newCfg.Settings.Sound),
		)
	}

	// Pipeline options are constructor-time; a change here takes effect on restart.
	if !reflect.DeepEqual(oldCfg.Pipeline, newCfg.Pipeline) {
		changed = append(changed, "pipeline")
		attrs = append(attrs,
			logx.Bool("pipeline.toasts", newCfg.Pipeline.EnableToasts),
			logx.Int("pipeline.filter_types", len(newCfg.Pipeline.FilterTypes)),
		)
	}

	// Source
	if oldCfg.Source != newCfg.Source {
		changed = append(changed, "source")
		attrs = append(attrs,
			logx.String("source.driver", strings.TrimSpace(newCfg.Source.Driver)),
		)
	}

	// Storage
	oldStorage, newStorage := StorageConfig{}, StorageConfig{}
	if oldCfg.Storage != nil {
		oldStorage = *oldCfg.Storage
	}
	if newCfg.Storage != nil {
		newStorage = *newCfg.Storage
	}
	if oldStorage != newStorage {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", strings.TrimSpace(newStorage.Driver)),
		)
	}

	// Maintenance
	oldSpec, newSpec := "", ""
	if oldCfg.Maintenance != nil {
		oldSpec = strings.TrimSpace(oldCfg.Maintenance.PruneSpec)
	}
	if newCfg.Maintenance != nil {
		newSpec = strings.TrimSpace(newCfg.Maintenance.PruneSpec)
	}
	if oldSpec != newSpec {
		changed = append(changed, "maintenance")
		attrs = append(attrs, logx.Bool("maintenance.prune_set", newSpec != ""))
	}

	return changed, attrs
}
