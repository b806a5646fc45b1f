package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the annotator configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Storage   StorageConfig   `yaml:"storage"`
	Converter ConverterConfig `yaml:"converter"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP host settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// StorageConfig holds object storage settings.
type StorageConfig struct {
	Bucket           string `yaml:"bucket"`
	Region           string `yaml:"region"`
	MarkupPrefix     string `yaml:"markup_prefix"`     // source XHTML keys
	AnnotationPrefix string `yaml:"annotation_prefix"` // published JSON keys
	TempDir          string `yaml:"temp_dir"`
}

// ConverterConfig holds XHTML-to-PDF renderer settings.
type ConverterConfig struct {
	BinaryPath string `yaml:"binary_path"` // wkhtmltopdf binary, empty = $PATH lookup
	OutputDir  string `yaml:"output_dir"`
	PageSize   string `yaml:"page_size"`
	Grayscale  bool   `yaml:"grayscale"`
}

// PipelineConfig selects between the two historical tool variants.
type PipelineConfig struct {
	CaptureAuthor bool `yaml:"capture_author"` // record annotator names and fold them into storage keys
	ReuploadFlow  bool `yaml:"reupload_flow"`  // download/annotate/re-upload instead of annotating in place
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Conversion and uploads block the response for a while.
		c.HTTP.WriteTimeoutSec = 300
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Storage.Bucket == "" {
		c.Storage.Bucket = "company-house"
	}
	if c.Storage.MarkupPrefix == "" {
		c.Storage.MarkupPrefix = "xhtml/"
	}
	if c.Storage.AnnotationPrefix == "" {
		c.Storage.AnnotationPrefix = "annotations/"
	}
	if c.Storage.TempDir == "" {
		c.Storage.TempDir = os.TempDir()
	}
	if c.Converter.OutputDir == "" {
		c.Converter.OutputDir = "annotations"
	}
	if c.Converter.PageSize == "" {
		c.Converter.PageSize = "A4"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required")
	}
	if !strings.HasSuffix(c.Storage.MarkupPrefix, "/") {
		return fmt.Errorf("storage.markup_prefix must end with \"/\", got %q", c.Storage.MarkupPrefix)
	}
	if !strings.HasSuffix(c.Storage.AnnotationPrefix, "/") {
		return fmt.Errorf("storage.annotation_prefix must end with \"/\", got %q", c.Storage.AnnotationPrefix)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
