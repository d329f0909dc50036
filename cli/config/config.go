package config

import (
	"fmt"
	"time"
)

// DefaultAPIURL is the server base URL used when none is configured.
const DefaultAPIURL = "http://localhost:8000/api"

// DefaultFile is the config file read from the working directory when
// --config is not given.
const DefaultFile = "documind.yaml"

// Config represents a documind.yaml configuration file.
// Values layer as defaults < file < DOCUMIND_* environment < flags.
type Config struct {
	APIURL  string        `yaml:"api_url" env:"API_URL" validate:"required,url"`
	Timeout Duration      `yaml:"timeout" env:"TIMEOUT"`
	Upload  UploadConfig  `yaml:"upload" envPrefix:"UPLOAD_"`
	Poll    PollConfig    `yaml:"poll" envPrefix:"POLL_"`
	Adapter AdapterConfig `yaml:"adapter" envPrefix:"ADAPTER_"`
	Archive ArchiveConfig `yaml:"archive" envPrefix:"ARCHIVE_"`
	Log     LogConfig     `yaml:"log" envPrefix:"LOG_"`
}

// UploadConfig holds upload defaults.
type UploadConfig struct {
	// Parallel bounds concurrent transfers; 0 is unbounded.
	Parallel int `yaml:"parallel" env:"PARALLEL" validate:"gte=0"`
}

// PollConfig holds document status polling defaults.
type PollConfig struct {
	Interval Duration `yaml:"interval" env:"INTERVAL"`
}

// AdapterConfig configures the notification adapter. An empty Type
// disables notifications.
type AdapterConfig struct {
	Type     string            `yaml:"type" env:"TYPE" validate:"omitempty,oneof=webhook redis"`
	URL      string            `yaml:"url" env:"URL" validate:"required_with=Type"`
	Channel  string            `yaml:"channel,omitempty" env:"CHANNEL"`
	Headers  map[string]string `yaml:"headers,omitempty"`
	Timeout  Duration          `yaml:"timeout,omitempty" env:"TIMEOUT"`
	Retries  *int              `yaml:"retries,omitempty" validate:"omitempty,gte=0"`
	Encoding string            `yaml:"encoding,omitempty" env:"ENCODING" validate:"omitempty,oneof=json msgpack"`
}

// ArchiveConfig configures the transcript archive. An empty Backend
// disables archiving.
type ArchiveConfig struct {
	Backend     string `yaml:"backend" env:"BACKEND" validate:"omitempty,oneof=fs s3"`
	Dataset     string `yaml:"dataset" env:"DATASET"`
	Path        string `yaml:"path" env:"PATH" validate:"required_with=Backend"`
	Region      string `yaml:"region" env:"REGION"`
	Endpoint    string `yaml:"endpoint" env:"ENDPOINT"`
	S3PathStyle bool   `yaml:"s3_path_style" env:"S3_PATH_STYLE"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level      string `yaml:"level" env:"LEVEL" validate:"omitempty,oneof=debug info warn error"`
	File       string `yaml:"file" env:"FILE"`
	MaxSizeMB  int    `yaml:"max_size_mb" env:"MAX_SIZE_MB" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" env:"MAX_BACKUPS" validate:"gte=0"`
	MaxAgeDays int    `yaml:"max_age_days" env:"MAX_AGE_DAYS" validate:"gte=0"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		APIURL:  DefaultAPIURL,
		Timeout: Duration{30 * time.Second},
		Poll:    PollConfig{Interval: Duration{3 * time.Second}},
		Archive: ArchiveConfig{Dataset: "documind"},
		Log:     LogConfig{Level: "info"},
	}
}

// Duration wraps time.Duration for YAML and environment strings ("10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

// UnmarshalText parses a duration string. Empty leaves d unchanged.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if parsed < 0 {
		return fmt.Errorf("invalid duration %q: must not be negative", s)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}
