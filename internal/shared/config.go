package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	API      APIConfig      `toml:"api"`
	Upload   UploadConfig   `toml:"upload"`
	Playback PlaybackConfig `toml:"playback"`
	Reorder  ReorderConfig  `toml:"reorder"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
}

// APIConfig locates the media service and carries its credentials.
type APIConfig struct {
	BaseURL        string `toml:"base_url"`
	Token          string `toml:"token"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// UploadConfig tunes the upload pipeline.
type UploadConfig struct {
	ChannelID           string  `toml:"channel_id"`
	TransferMethod      string  `toml:"transfer_method"`
	PollIntervalMS      int     `toml:"poll_interval_ms"`
	MaxPollIntervalMS   int     `toml:"max_poll_interval_ms"`
	PollBackoff         float64 `toml:"poll_backoff"`
	MaxPolls            int     `toml:"max_polls"`
	Workers             int     `toml:"workers"`
	RequestsPerSecond   float64 `toml:"requests_per_second"`
	JournalEnabled      bool    `toml:"journal"`
	DefaultDownloadable bool    `toml:"default_downloadable"`
}

// PlaybackConfig tunes the manifest fan-out.
type PlaybackConfig struct {
	Concurrency int     `toml:"concurrency"`
	RateLimit   float64 `toml:"rate_limit"`
	OmitFailed  bool    `toml:"omit_failed"`
}

// ReorderConfig tunes the debounced order writes.
type ReorderConfig struct {
	DebounceMS int `toml:"debounce_ms"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains settings for the metrics HTTP server.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Timeout returns the per-request timeout, zero meaning none.
func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// PollInterval returns the initial delay between upload endpoint polls.
func (c UploadConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// MaxPollInterval caps the backed-off poll delay.
func (c UploadConfig) MaxPollInterval() time.Duration {
	return time.Duration(c.MaxPollIntervalMS) * time.Millisecond
}

// Debounce returns the quiet period before a reorder is persisted.
func (c ReorderConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// Addr joins host and port into a listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks the fields every command depends on.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("%w: api.base_url is required", ErrInvalidConfig)
	}
	if c.Upload.MaxPolls < 0 {
		return fmt.Errorf("%w: upload.max_polls must not be negative", ErrInvalidConfig)
	}
	if c.Upload.PollBackoff != 0 && c.Upload.PollBackoff < 1 {
		return fmt.Errorf("%w: upload.poll_backoff must be at least 1", ErrInvalidConfig)
	}
	switch c.Upload.TransferMethod {
	case "", "POST", "PUT":
	default:
		return fmt.Errorf("%w: upload.transfer_method must be POST or PUT, got %q", ErrInvalidConfig, c.Upload.TransferMethod)
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values from [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile writes the commented template to path, creating its directory. It never overwrites.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
