package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Classifier ClassifierConfig `json:"classifier" yaml:"classifier"`
	Cropper    CropperConfig    `json:"cropper" yaml:"cropper"`
	Export     ExportConfig     `json:"export" yaml:"export"`
	Preview    PreviewConfig    `json:"preview" yaml:"preview"`
	Log        LogConfig        `json:"log" yaml:"log"`
}

// ClassifierConfig holds configuration for decoding and classification
type ClassifierConfig struct {
	Workers       int `json:"workers" yaml:"workers"`
	ThumbnailSize int `json:"thumbnail_size" yaml:"thumbnail_size"`
}

// CropperConfig holds configuration for slot cropping
type CropperConfig struct {
	Interpolation string `json:"interpolation" yaml:"interpolation"`
}

// ExportConfig holds configuration for archive generation
type ExportConfig struct {
	Quality     int    `json:"quality" yaml:"quality"`
	ArchiveName string `json:"archive_name" yaml:"archive_name"`
}

// PreviewConfig holds configuration for page previews
type PreviewConfig struct {
	Format  string `json:"format" yaml:"format"`
	MaxSize int    `json:"max_size" yaml:"max_size"`
}

// LogConfig holds configuration for logging
type LogConfig struct {
	Level      string `json:"level" yaml:"level"`
	Pretty     bool   `json:"pretty" yaml:"pretty"`
	File       string `json:"file" yaml:"file"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `json:"compress" yaml:"compress"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Classifier: ClassifierConfig{
			Workers:       1,
			ThumbnailSize: 40,
		},
		Cropper: CropperConfig{
			Interpolation: "catmullrom",
		},
		Export: ExportConfig{
			Quality:     95,
			ArchiveName: "photo_grids.zip",
		},
		Preview: PreviewConfig{
			Format:  "jpg",
			MaxSize: 600,
		},
		Log: LogConfig{
			Level:      "info",
			Pretty:     true,
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// LoadFromFile loads configuration from a JSON or YAML file. Fields missing
// from the file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if isYAML(filename) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON or YAML file
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var data []byte
	var err error
	if isYAML(filename) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides settings from PHOTOGRID_* environment variables
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("PHOTOGRID_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PHOTOGRID_WORKERS: %w", err)
		}
		c.Classifier.Workers = n
	}
	if v := os.Getenv("PHOTOGRID_QUALITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PHOTOGRID_QUALITY: %w", err)
		}
		c.Export.Quality = n
	}
	if v := os.Getenv("PHOTOGRID_INTERPOLATION"); v != "" {
		c.Cropper.Interpolation = v
	}
	if v := os.Getenv("PHOTOGRID_ARCHIVE_NAME"); v != "" {
		c.Export.ArchiveName = v
	}
	if v := os.Getenv("PHOTOGRID_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("PHOTOGRID_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Classifier.Workers < 1 {
		return fmt.Errorf("classifier.workers must be at least 1")
	}

	if c.Classifier.ThumbnailSize < 1 {
		return fmt.Errorf("classifier.thumbnail_size must be positive")
	}

	switch strings.ToLower(c.Cropper.Interpolation) {
	case "nearest", "approxbilinear", "bilinear", "catmullrom":
	default:
		return fmt.Errorf("cropper.interpolation %q is not supported", c.Cropper.Interpolation)
	}

	if c.Export.Quality < 1 || c.Export.Quality > 100 {
		return fmt.Errorf("export.quality must be between 1 and 100")
	}

	if c.Export.ArchiveName == "" {
		return fmt.Errorf("export.archive_name cannot be empty")
	}

	switch strings.ToLower(c.Preview.Format) {
	case "jpg", "jpeg", "png", "webp":
	default:
		return fmt.Errorf("preview.format must be jpg, png or webp")
	}

	if c.Preview.MaxSize < 0 {
		return fmt.Errorf("preview.max_size cannot be negative")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.yaml"
	}
	return filepath.Join(home, ".config", "photo-grid", "config.yaml")
}

func isYAML(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".yaml" || ext == ".yml"
}
