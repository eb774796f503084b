package config

import (
	"fmt"
	"time"
)

// Config represents a framecap.yaml configuration file.
// All values are optional and act as defaults for framecap record
// flags. Precedence, lowest to highest: FRAMECAP_* environment
// variables, config file, CLI flags.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Stats   StatsConfig   `yaml:"stats"`
	Scratch ScratchConfig `yaml:"scratch"`
	Archive ArchiveConfig `yaml:"archive"`
	Notify  NotifyConfig  `yaml:"notify"`
}

// EngineConfig holds playback engine defaults from the config file.
type EngineConfig struct {
	// Path is the engine binary.
	Path string `yaml:"path" env:"FRAMECAP_ENGINE_PATH"`
	// Image is the emulation image the engine boots.
	Image string `yaml:"image" env:"FRAMECAP_ENGINE_IMAGE"`
	// Settings optionally points the engine at a settings profile.
	// Empty uses the bundled profile.
	Settings string `yaml:"settings" env:"FRAMECAP_ENGINE_SETTINGS"`
	// Timeout bounds the whole recording as a failsafe. Zero disables
	// the bound.
	Timeout Duration `yaml:"timeout"`
}

// StatsConfig holds statistics engine defaults from the config file.
type StatsConfig struct {
	// Binary is the external statistics command that reports a
	// replay's last frame.
	Binary string `yaml:"binary" env:"FRAMECAP_STATS_BINARY"`
}

// ScratchConfig holds scratch session defaults from the config file.
type ScratchConfig struct {
	// Base is the directory scratch sessions are created under.
	// Empty uses the system temporary directory.
	Base string `yaml:"base" env:"FRAMECAP_SCRATCH_BASE"`
}

// ArchiveConfig holds artifact archiving defaults from the config file.
type ArchiveConfig struct {
	// Backend selects where artifacts go: "fs", "s3", or empty to
	// skip archiving.
	Backend string `yaml:"backend" env:"FRAMECAP_ARCHIVE_BACKEND"`
	// Path is the archive root: a directory for fs, s3://bucket/prefix
	// for s3.
	Path string `yaml:"path" env:"FRAMECAP_ARCHIVE_PATH"`
	// Region is the bucket region for the s3 backend.
	Region string `yaml:"region" env:"FRAMECAP_ARCHIVE_REGION"`
}

// NotifyConfig holds notifier defaults from the config file.
type NotifyConfig struct {
	// Type selects the notifier: "webhook", "redis", or empty to
	// skip notification.
	Type string `yaml:"type" env:"FRAMECAP_NOTIFY_TYPE"`
	// URL is the webhook endpoint or Redis connection URL.
	URL string `yaml:"url" env:"FRAMECAP_NOTIFY_URL"`
	// Channel is the Redis pub/sub channel (redis type only).
	Channel string `yaml:"channel,omitempty" env:"FRAMECAP_NOTIFY_CHANNEL"`
	// Headers are custom HTTP headers (webhook type only).
	Headers map[string]string `yaml:"headers,omitempty"`
	// Timeout is the per-publish timeout.
	Timeout Duration `yaml:"timeout,omitempty"`
	// Retries is the number of retry attempts on failure.
	Retries *int `yaml:"retries,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Validate rejects configurations that cannot drive a recording.
func (c *Config) Validate() error {
	switch c.Archive.Backend {
	case "", "fs", "s3":
	default:
		return fmt.Errorf("unknown archive backend %q (want fs or s3)", c.Archive.Backend)
	}
	if c.Archive.Backend != "" && c.Archive.Path == "" {
		return fmt.Errorf("archive backend %q requires a path", c.Archive.Backend)
	}

	switch c.Notify.Type {
	case "", "webhook", "redis":
	default:
		return fmt.Errorf("unknown notifier type %q (want webhook or redis)", c.Notify.Type)
	}
	if c.Notify.Type != "" && c.Notify.URL == "" {
		return fmt.Errorf("notifier type %q requires a URL", c.Notify.Type)
	}
	if c.Notify.Retries != nil && *c.Notify.Retries < 0 {
		return fmt.Errorf("notifier retries must be >= 0, got %d", *c.Notify.Retries)
	}

	return nil
}
