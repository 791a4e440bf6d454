package config

// Config is the daemon configuration.
//
// The file may be JSON or YAML; YAML is coerced to JSON before strict
// decoding, so unknown keys are rejected in both formats.
type Config struct {
	Logging  LoggingConfig  `json:"logging"`
	Settings SettingsConfig `json:"settings"`
	Pipeline PipelineConfig `json:"pipeline"`
	Source   SourceConfig   `json:"source"`

	Storage     *StorageConfig     `json:"storage,omitempty"`
	Maintenance *MaintenanceConfig `json:"maintenance,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// SettingsConfig is the user's notification preferences. It hot-applies on
// reload: gating decisions change, already-stored notifications do not.
type SettingsConfig struct {
	Enabled   bool `json:"enabled"`
	Sound     bool `json:"sound"`
	Order     bool `json:"order"`
	Box       bool `json:"box"`
	Promotion bool `json:"promotion"`
	Social    bool `json:"social"`
	System    bool `json:"system"`
}

// PipelineConfig is the constructor-time filtering configuration.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "24h").
// FilterTypes empty means "accept all known types". The processed-set bounds
// default to 0 (never prune); see maintenance.prune_spec for when pruning
// runs.
type PipelineConfig struct {
	EnableToasts       bool     `json:"enable_toasts"`
	EnableBadgeUpdates bool     `json:"enable_badge_updates"`
	EnableSounds       bool     `json:"enable_sounds"`
	FilterTypes        []string `json:"filter_types,omitempty"`

	ProcessedMaxEntries int    `json:"processed_max_entries,omitempty"`
	ProcessedMaxAge     string `json:"processed_max_age,omitempty"`

	SoundRatePerSec int `json:"sound_rate_per_sec,omitempty"`
}

// SourceConfig selects the event feed.
//
// Driver values:
//   - "websocket": JSON events pushed over a websocket (url required)
//   - "memory": in-process source, useful for embedding and tests
type SourceConfig struct {
	Driver      string `json:"driver"`
	URL         string `json:"url,omitempty"`
	DialTimeout string `json:"dial_timeout,omitempty"` // Go duration string
}

// StorageConfig controls the optional persistence layer.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./boxfeed_store" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// MaintenanceConfig schedules background housekeeping: processed-set pruning
// and storage compaction. PruneSpec is a cron expression (robfig/cron,
// standard 5-field). Empty disables the job.
type MaintenanceConfig struct {
	PruneSpec string `json:"prune_spec,omitempty"`
}

// Default returns the configuration used when a section is omitted.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Console: true},
		Settings: SettingsConfig{
			Enabled: true, Sound: true,
			Order: true, Box: true, Promotion: true, Social: true, System: true,
		},
		Pipeline: PipelineConfig{
			EnableToasts:       true,
			EnableBadgeUpdates: true,
			EnableSounds:       true,
		},
		Source: SourceConfig{Driver: "memory"},
	}
}
