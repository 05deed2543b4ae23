package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Configuration system:
// - config.example.toml can be written with `convtrace_stats gen-config`
// - Use brief comments here for reference only

const (
	// DefaultTracePath is where QEMU is usually told to write the
	// kvm_convert_memory trace.
	DefaultTracePath = "/tmp/trace.out"

	// TracePathEnv overrides Trace.Path when set.
	TracePathEnv = "CONVTRACE_FILE"
)

// Report formats understood by the output stage.
const (
	FormatText       = "text"
	FormatJSON       = "json"
	FormatYAML       = "yaml"
	FormatPrometheus = "prometheus"
)

// AppConfig represents the complete application configuration
type AppConfig struct {
	// Trace input configuration
	Trace TraceConfig `toml:"trace"`

	// Report output configuration
	Output OutputConfig `toml:"output"`

	// Logging configuration
	Logging LoggingConfig `toml:"logging"`
}

// TraceConfig contains trace input settings
type TraceConfig struct {
	// Trace file path (default: "/tmp/trace.out")
	Path string `toml:"path"`

	// Skip size values that are not valid hex instead of failing (default: false)
	SkipInvalidSize bool `toml:"skip_invalid_size"`
}

// OutputConfig contains report output settings
type OutputConfig struct {
	// Report format: "text", "json", "yaml", "prometheus" (default: "text")
	Format string `toml:"format"`

	// Prometheus textfile to write the counters to (default: "" = disabled)
	MetricsFile string `toml:"metrics_file"`
}

// LoggingConfig contains the complete logging configuration
type LoggingConfig struct {
	// Default logging settings applied to all loggers
	Defaults LogDefaults `toml:"defaults"`

	// Output configurations - can have multiple outputs
	Outputs []LogOutput `toml:"outputs"`
}

// LogDefaults contains default logger settings
type LogDefaults struct {
	// Log level (default: "info")
	Level string `toml:"level"`

	// Include caller information (default: 0)
	Caller int `toml:"caller"`

	// Time field name (default: "time")
	TimeField string `toml:"time_field"`

	// Time format (default: "" = RFC3339 with milliseconds)
	TimeFormat string `toml:"time_format"`

	// Time zone (default: "Local")
	TimeLocation string `toml:"time_location"`
}

// LogOutput represents a single output configuration
type LogOutput struct {
	// Output type: "console", "file"
	Type string `toml:"type"`

	// Enable this output (default: true)
	Enabled bool `toml:"enabled"`

	// Configuration specific to the output type
	Console *ConsoleConfig `toml:"console,omitempty"`
	File    *FileConfig    `toml:"file,omitempty"`
}

// ConsoleConfig contains console/terminal output settings
type ConsoleConfig struct {
	// Use fast JSON output (default: false)
	FastIO bool `toml:"fast_io"`

	// Output format when fast_io=false: "auto", "logfmt", "glog" (default: "auto")
	Format string `toml:"format"`

	// Enable colored output (default: true)
	ColorOutput bool `toml:"color_output"`

	// Quote string values (default: true)
	QuoteString bool `toml:"quote_string"`

	// Output destination (default: "stderr")
	Writer string `toml:"writer"`

	// Use asynchronous writing (default: false)
	Async bool `toml:"async"`
}

// FileConfig contains file output settings
type FileConfig struct {
	// Log file path (required)
	Filename string `toml:"filename"`

	// Maximum file size in megabytes (default: 10)
	MaxSize int64 `toml:"max_size"`

	// Maximum number of old log files to keep (default: 7)
	MaxBackups int `toml:"max_backups"`

	// Time format for rotated filenames (default: "2006-01-02T15-04-05")
	TimeFormat string `toml:"time_format"`

	// Use local time for rotation timestamps (default: true)
	LocalTime bool `toml:"local_time"`

	// Include hostname in filename (default: false)
	HostName bool `toml:"host_name"`

	// Include process ID in filename (default: false)
	ProcessID bool `toml:"process_id"`

	// Create directory if it doesn't exist (default: true)
	EnsureFolder bool `toml:"ensure_folder"`

	// Use asynchronous writing (default: false)
	Async bool `toml:"async"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Trace: TraceConfig{
			Path:            DefaultTracePath,
			SkipInvalidSize: false,
		},
		Output: OutputConfig{
			Format:      FormatText,
			MetricsFile: "",
		},
		Logging: LoggingConfig{
			Defaults: LogDefaults{
				Level:        "info",
				Caller:       0,
				TimeField:    "time",
				TimeFormat:   "",
				TimeLocation: "Local",
			},
			Outputs: []LogOutput{
				{
					Type:    "console",
					Enabled: true,
					Console: &ConsoleConfig{
						FastIO:      false,
						Format:      "auto",
						ColorOutput: true,
						QuoteString: true,
						Writer:      "stderr", // stdout carries the report
						Async:       false,
					},
				},
				{
					Type:    "file",
					Enabled: false,
					File: &FileConfig{
						Filename:     "logs/convtrace_stats.log",
						MaxSize:      10, // 10MB
						MaxBackups:   7,
						TimeFormat:   "2006-01-02T15-04-05",
						LocalTime:    true,
						HostName:     false,
						ProcessID:    false,
						EnsureFolder: true,
						Async:        false, // short-lived process, nothing to flush on exit
					},
				},
			},
		},
	}
}

// ErrConfigNotFound is returned by LoadConfig together with the default
// configuration when the requested file does not exist.
var ErrConfigNotFound = errors.New("config file not found")

// LoadConfig loads configuration from a TOML file, falling back to defaults.
// The TracePathEnv environment variable is applied on top of the file.
func LoadConfig(configPath string) (*AppConfig, error) {
	config := DefaultConfig()

	// If no config file specified, use defaults
	if configPath == "" {
		config.ApplyEnv()
		return config, nil
	}

	if _, err := os.Stat(configPath); errors.Is(err, fs.ErrNotExist) {
		config.ApplyEnv()
		return config, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
	}

	// Parse TOML file
	if _, err := toml.DecodeFile(configPath, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	config.ApplyEnv()
	return config, nil
}

// ApplyEnv overrides settings from the environment.
func (c *AppConfig) ApplyEnv() {
	if path, ok := os.LookupEnv(TracePathEnv); ok && path != "" {
		c.Trace.Path = path
	}
}

// SaveConfig saves the configuration to a TOML file
func SaveConfig(configPath string, config *AppConfig) error {
	// Ensure directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file %s: %w", configPath, err)
	}
	defer file.Close()

	if err := toml.NewEncoder(file).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config to TOML: %w", err)
	}

	return nil
}

// GenerateExampleConfig generates a TOML configuration file with default values
func GenerateExampleConfig(outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	header := `# convtrace_stats example configuration
# Copy this file to create your own configuration and modify as needed.
#
# The trace is produced by QEMU with:
#   qemu-system-x86_64 ... -trace enable=kvm_convert_memory,file=/tmp/trace.out
#
# Format: TOML (Tom's Obvious, Minimal Language)

`
	if _, err := file.WriteString(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	if err := toml.NewEncoder(file).Encode(DefaultConfig()); err != nil {
		return fmt.Errorf("failed to encode config to TOML: %w", err)
	}

	return nil
}

// Validate checks the configuration for errors
func (c *AppConfig) Validate() error {
	if c.Trace.Path == "" {
		return fmt.Errorf("trace.path cannot be empty")
	}

	switch c.Output.Format {
	case FormatText, FormatJSON, FormatYAML, FormatPrometheus:
	default:
		return fmt.Errorf("output.format must be one of text, json, yaml, prometheus, got %q", c.Output.Format)
	}

	if len(c.Logging.Outputs) > 0 {
		anyEnabled := false
		for i, output := range c.Logging.Outputs {
			if !output.Enabled {
				continue
			}
			anyEnabled = true
			switch output.Type {
			case "console":
				if output.Console == nil {
					return fmt.Errorf("logging.outputs[%d]: console output missing console configuration", i)
				}
			case "file":
				if output.File == nil || output.File.Filename == "" {
					return fmt.Errorf("logging.outputs[%d]: file output requires a filename", i)
				}
			default:
				return fmt.Errorf("logging.outputs[%d]: unknown output type: %s", i, output.Type)
			}
		}
		if !anyEnabled {
			return fmt.Errorf("at least one logging output must be enabled")
		}
	}

	return nil
}
