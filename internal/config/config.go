package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// FileName is the base name searched for when no explicit config path is given.
const FileName = "kmetrics"

// EnvPrefix is the prefix for environment overrides (KMETRICS_PARSER_MODE, ...).
const EnvPrefix = "KMETRICS"

// SupportedConfigVersions lists the config schema versions this build reads.
var SupportedConfigVersions = []int{1}

// Parser modes.
const (
	ModeAuto = "auto"
	ModeAST  = "ast"
	ModeText = "text"
)

// Output formats.
const (
	FormatCSV    = "csv"
	FormatJSON   = "json"
	FormatYAML   = "yaml"
	FormatHuman  = "human"
	FormatSQLite = "sqlite"
)

// Config represents the complete kmetrics configuration
type Config struct {
	Version int `json:"version" mapstructure:"version" toml:"version"`

	Parser   ParserConfig   `json:"parser" mapstructure:"parser" toml:"parser"`
	Source   SourceConfig   `json:"source" mapstructure:"source" toml:"source"`
	Archive  ArchiveConfig  `json:"archive" mapstructure:"archive" toml:"archive"`
	Analysis AnalysisConfig `json:"analysis" mapstructure:"analysis" toml:"analysis"`
	Output   OutputConfig   `json:"output" mapstructure:"output" toml:"output"`
	Logging  LoggingConfig  `json:"logging" mapstructure:"logging" toml:"logging"`
}

// ParserConfig selects the syntax adapter
type ParserConfig struct {
	// Mode is auto, ast or text. Auto picks ast when built with cgo.
	Mode string `json:"mode" mapstructure:"mode" toml:"mode"`
}

// SourceConfig controls source ingestion
type SourceConfig struct {
	Extensions       []string `json:"extensions" mapstructure:"extensions" toml:"extensions"`
	MaxFileSizeBytes int64    `json:"maxFileSizeBytes" mapstructure:"maxFileSizeBytes" toml:"maxFileSizeBytes"`
}

// ArchiveConfig limits archive extraction
type ArchiveConfig struct {
	MaxEntries    int    `json:"maxEntries" mapstructure:"maxEntries" toml:"maxEntries"`
	MaxTotalBytes int64  `json:"maxTotalBytes" mapstructure:"maxTotalBytes" toml:"maxTotalBytes"`
	TempDir       string `json:"tempDir" mapstructure:"tempDir" toml:"tempDir"`
}

// AnalysisConfig controls the engine
type AnalysisConfig struct {
	// Workers is the parse fan-out for the first pass. 1 keeps the run single-threaded.
	Workers int `json:"workers" mapstructure:"workers" toml:"workers"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Format string `json:"format" mapstructure:"format" toml:"format"`
	Path   string `json:"path" mapstructure:"path" toml:"path"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format" toml:"format"`
	Level  string `json:"level" mapstructure:"level" toml:"level"`
	File   string `json:"file" mapstructure:"file" toml:"file"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Parser: ParserConfig{
			Mode: ModeAuto,
		},
		Source: SourceConfig{
			Extensions:       []string{".kt", ".kts"},
			MaxFileSizeBytes: 2 << 20,
		},
		Archive: ArchiveConfig{
			MaxEntries:    100000,
			MaxTotalBytes: 1 << 30,
		},
		Analysis: AnalysisConfig{
			Workers: 1,
		},
		Output: OutputConfig{
			Format: FormatCSV,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "warn",
		},
	}
}

// LoadConfig loads configuration from path, or from ./kmetrics.{toml,json,yaml}
// when path is empty. Missing files yield the defaults. Environment variables
// prefixed with KMETRICS_ override file values.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound):
		case path != "" && errors.Is(err, os.ErrNotExist):
			return nil, &ConfigError{Field: "path", Message: "config file not found: " + path}
		default:
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("version", d.Version)
	v.SetDefault("parser.mode", d.Parser.Mode)
	v.SetDefault("source.extensions", d.Source.Extensions)
	v.SetDefault("source.maxFileSizeBytes", d.Source.MaxFileSizeBytes)
	v.SetDefault("archive.maxEntries", d.Archive.MaxEntries)
	v.SetDefault("archive.maxTotalBytes", d.Archive.MaxTotalBytes)
	v.SetDefault("archive.tempDir", d.Archive.TempDir)
	v.SetDefault("analysis.workers", d.Analysis.Workers)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.path", d.Output.Path)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
}

// Save writes the configuration as TOML to path, creating parent directories.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode config: %w", err)
	}
	return f.Close()
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	supported := false
	for _, v := range SupportedConfigVersions {
		if c.Version == v {
			supported = true
			break
		}
	}
	if !supported {
		return &ConfigError{Field: "version", Message: fmt.Sprintf("unsupported config version %d", c.Version)}
	}

	switch c.Parser.Mode {
	case ModeAuto, ModeAST, ModeText:
	default:
		return &ConfigError{Field: "parser.mode", Message: "must be auto, ast or text, got " + c.Parser.Mode}
	}

	if len(c.Source.Extensions) == 0 {
		return &ConfigError{Field: "source.extensions", Message: "at least one extension is required"}
	}
	for _, ext := range c.Source.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return &ConfigError{Field: "source.extensions", Message: "extension must start with '.', got " + ext}
		}
	}
	if c.Source.MaxFileSizeBytes <= 0 {
		return &ConfigError{Field: "source.maxFileSizeBytes", Message: "must be positive"}
	}

	if c.Archive.MaxEntries <= 0 {
		return &ConfigError{Field: "archive.maxEntries", Message: "must be positive"}
	}
	if c.Archive.MaxTotalBytes <= 0 {
		return &ConfigError{Field: "archive.maxTotalBytes", Message: "must be positive"}
	}

	if c.Analysis.Workers < 1 {
		return &ConfigError{Field: "analysis.workers", Message: "must be at least 1"}
	}

	switch c.Output.Format {
	case FormatCSV, FormatJSON, FormatYAML, FormatHuman, FormatSQLite:
	default:
		return &ConfigError{Field: "output.format", Message: "unsupported format " + c.Output.Format}
	}
	if c.Output.Format == FormatSQLite && c.Output.Path == "" {
		return &ConfigError{Field: "output.path", Message: "sqlite output requires a file path"}
	}

	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
