package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
)

// Config is the machine-level bootstrap configuration, loaded from
// ~/.voxterm/config.yaml before the database opens. Zero values fall
// back to the built-in defaults at the point of use.
type Config struct {
	// Gateway is the realtime gateway base URL. Overrides the value
	// stored in settings when non-empty.
	Gateway string `yaml:"gateway,omitempty"`

	// Data is the embedded database directory. Defaults to
	// ~/.voxterm/data.
	Data string `yaml:"data,omitempty"`

	// Log configures the diagnostic log.
	Log LogConfig `yaml:"log,omitempty"`

	// Export configures where history CSV exports land.
	Export ExportConfig `yaml:"export,omitempty"`

	// Audio selects capture and playback devices.
	Audio AudioConfig `yaml:"audio,omitempty"`

	// configPath is where the config was loaded from.
	configPath string
}

// LogConfig selects the log destination and verbosity.
type LogConfig struct {
	// File is the log file path. Empty logs to ~/.voxterm/logs/voxterm.log.
	File string `yaml:"file,omitempty"`

	// Level is one of debug, info, warn, error. Defaults to info.
	Level string `yaml:"level,omitempty"`
}

// ExportConfig selects the history export destination.
type ExportConfig struct {
	// Dir is the local export directory. Defaults to ~/.voxterm/exports.
	Dir string `yaml:"dir,omitempty"`

	// S3Bucket, when set, routes exports to S3 instead of local disk.
	S3Bucket string `yaml:"s3_bucket,omitempty"`

	// S3Prefix is the object key prefix within the bucket.
	S3Prefix string `yaml:"s3_prefix,omitempty"`
}

// AudioConfig selects audio devices by PortAudio index. -1 means the
// system default.
type AudioConfig struct {
	Input  int `yaml:"input"`
	Output int `yaml:"output"`
}

// LoadConfig loads the bootstrap config from the default location,
// creating an empty file on first run.
func LoadConfig() (*Config, error) {
	p, err := NewPaths()
	if err != nil {
		return nil, fmt.Errorf("cli: resolve home: %w", err)
	}
	return LoadConfigFrom(p.ConfigFile())
}

// LoadConfigFrom loads the bootstrap config from a custom path.
func LoadConfigFrom(path string) (*Config, error) {
	cfg := &Config{
		Audio:      AudioConfig{Input: -1, Output: -1},
		configPath: path,
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("cli: create config directory: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, cfg.Save()
		}
		return nil, fmt.Errorf("cli: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cli: parse config: %w", err)
	}
	cfg.configPath = path
	return cfg, nil
}

// Save writes the config back to the file it was loaded from.
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("cli: marshal config: %w", err)
	}
	if err := os.WriteFile(c.configPath, data, 0600); err != nil {
		return fmt.Errorf("cli: write config: %w", err)
	}
	return nil
}

// Path returns the config file path.
func (c *Config) Path() string {
	return c.configPath
}

// DataDir resolves the database directory, applying the default when
// the config leaves it empty.
func (c *Config) DataDir(p *Paths) string {
	if c.Data != "" {
		return c.Data
	}
	return p.DataDir()
}

// LogFile resolves the log file path.
func (c *Config) LogFile(p *Paths) string {
	if c.Log.File != "" {
		return c.Log.File
	}
	return p.LogPath("voxterm.log")
}

// ExportDir resolves the local export directory.
func (c *Config) ExportDir(p *Paths) string {
	if c.Export.Dir != "" {
		return c.Export.Dir
	}
	return p.ExportDir()
}

// MaskAPIKey masks an API key for display, keeping the first and last
// four characters of long keys.
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
