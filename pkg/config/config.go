package config

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/nobbyfix/AzurLaneTools/pkg/models"
)

// Config represents the application configuration
type Config struct {
	Paths       PathsConfig             `yaml:"paths"`
	Network     NetworkConfig           `yaml:"network"`
	Performance PerformanceConfig       `yaml:"performance"`
	Download    FilterConfig            `yaml:"download"`
	Extract     FilterConfig            `yaml:"extract"`
	Clients     map[string]ClientConfig `yaml:"clients"`
	Logging     LoggingConfig           `yaml:"logging"`
	Output      OutputConfig            `yaml:"output"`
}

// PathsConfig holds directory settings. Every client gets a
// subdirectory named after it.
type PathsConfig struct {
	AssetDirectory   string `yaml:"asset_directory"`
	ExtractDirectory string `yaml:"extract_directory"`
	ExportDirectory  string `yaml:"export_directory"` // Bundles exported by a Unity asset tool
	HistoryDB        string `yaml:"history_db"`       // Empty = <asset_directory>/history.db
}

// NetworkConfig holds CDN settings
type NetworkConfig struct {
	UserAgent         string        `yaml:"user_agent"`
	HashTimeout       time.Duration `yaml:"hash_timeout"`
	AssetTimeout      time.Duration `yaml:"asset_timeout"`
	GateTimeout       time.Duration `yaml:"gate_timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"` // 0 = unlimited
	BandwidthLimit    int64         `yaml:"bandwidth_limit"`     // Bytes per second, 0 = unlimited
}

// PerformanceConfig holds performance-related settings
type PerformanceConfig struct {
	MaxWorkers int `yaml:"max_workers"`
}

// FilterConfig selects asset folders by their top-level directory
type FilterConfig struct {
	Mode    string   `yaml:"filter_mode"` // "blacklist" or "whitelist"
	Folders []string `yaml:"folders"`
}

// ClientConfig holds the server endpoints of one client
type ClientConfig struct {
	GateIP   string `yaml:"gate_ip"`
	GatePort int    `yaml:"gate_port"`
	CDNURL   string `yaml:"cdn_url"`
}

// OutputConfig holds output-related settings
type OutputConfig struct {
	Format string `yaml:"format"` // "human", "progress" or "json"
	Quiet  bool   `yaml:"quiet"`  // Suppress non-error output
}

// LoggingConfig holds logging-related settings
type LoggingConfig struct {
	File       string `yaml:"file"`   // Log file path (empty = stderr)
	Format     string `yaml:"format"` // "json" or "text"
	Level      string `yaml:"level"`  // "debug", "info", "warn", "error"
	MaxSize    int64  `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			AssetDirectory:   "ClientAssets",
			ExtractDirectory: "ClientExtract",
			ExportDirectory:  "ClientExport",
		},
		Network: NetworkConfig{
			HashTimeout:  30 * time.Second,
			AssetTimeout: 20 * time.Second,
			GateTimeout:  10 * time.Second,
		},
		Performance: PerformanceConfig{
			MaxWorkers: runtime.NumCPU(),
		},
		Download: FilterConfig{
			Mode: "blacklist",
		},
		Extract: FilterConfig{
			Mode:    "whitelist",
			Folders: []string{"painting", "paintingface", "cue", "loadingbg", "bg"},
		},
		Clients: map[string]ClientConfig{},
		Logging: LoggingConfig{
			Format:     "text",
			Level:      "info",
			MaxSize:    10 * 1024 * 1024,
			MaxBackups: 3,
		},
		Output: OutputConfig{
			Format: "progress",
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Paths.AssetDirectory == "" {
		return &models.ValidationError{
			Field:   "paths.asset_directory",
			Message: "must not be empty",
		}
	}

	if c.Performance.MaxWorkers < 1 {
		return &models.ValidationError{
			Field:   "performance.max_workers",
			Message: "must be at least 1",
		}
	}

	if c.Network.HashTimeout <= 0 || c.Network.AssetTimeout <= 0 {
		return &models.ValidationError{
			Field:   "network",
			Message: "timeouts must be positive",
		}
	}

	if c.Network.RequestsPerSecond < 0 || c.Network.BandwidthLimit < 0 {
		return &models.ValidationError{
			Field:   "network",
			Message: "limits must not be negative",
		}
	}

	for name, f := range map[string]FilterConfig{"download": c.Download, "extract": c.Extract} {
		if f.Mode != "blacklist" && f.Mode != "whitelist" {
			return &models.ValidationError{
				Field:   name + ".filter_mode",
				Message: "must be 'blacklist' or 'whitelist'",
			}
		}
	}

	for name, cc := range c.Clients {
		if _, err := models.ParseClient(name); err != nil {
			return &models.ValidationError{
				Field:   "clients." + name,
				Message: "unknown client",
			}
		}
		if cc.CDNURL == "" {
			return &models.ValidationError{
				Field:   "clients." + name + ".cdn_url",
				Message: "must not be empty",
			}
		}
	}

	validFormats := map[string]bool{"human": true, "progress": true, "json": true}
	if !validFormats[c.Output.Format] {
		return &models.ValidationError{
			Field:   "output.format",
			Message: "must be 'human', 'progress' or 'json'",
		}
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return &models.ValidationError{
			Field:   "logging.format",
			Message: "must be 'json' or 'text'",
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return &models.ValidationError{
			Field:   "logging.level",
			Message: "must be 'debug', 'info', 'warn', or 'error'",
		}
	}

	return nil
}

// Client returns the endpoints configured for client
func (c *Config) Client(client models.Client) (ClientConfig, error) {
	for name, cc := range c.Clients {
		if strings.EqualFold(name, string(client)) {
			return cc, nil
		}
	}
	return ClientConfig{}, fmt.Errorf("client %s has not been configured", client)
}

// ClientDir returns the asset directory of a client
func (c *Config) ClientDir(client models.Client) string {
	return filepath.Join(c.Paths.AssetDirectory, string(client))
}

// ExtractDir returns the extract directory of a client
func (c *Config) ExtractDir(client models.Client) string {
	return filepath.Join(c.Paths.ExtractDirectory, string(client))
}

// ExportDir returns the directory holding exported bundles of a client
func (c *Config) ExportDir(client models.Client) string {
	return filepath.Join(c.Paths.ExportDirectory, string(client))
}

// HistoryPath returns the path of the run history database
func (c *Config) HistoryPath() string {
	if c.Paths.HistoryDB != "" {
		return c.Paths.HistoryDB
	}
	return filepath.Join(c.Paths.AssetDirectory, "history.db")
}
