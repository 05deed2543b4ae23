package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConfigData tests configuration data, defaults, edge cases, and validation
func TestConfigData(t *testing.T) {
	tests := []struct {
		name       string
		config     *AppConfig
		configTOML string
		setupFunc  func(*AppConfig)
		expectErr  bool
		validate   func(*testing.T, *AppConfig)
	}{
		{
			name:   "default config",
			config: DefaultConfig(),
			validate: func(t *testing.T, c *AppConfig) {
				assert.Equal(t, DefaultTracePath, c.Trace.Path)
				assert.False(t, c.Trace.SkipInvalidSize)
				assert.Equal(t, FormatText, c.Output.Format)
				assert.Equal(t, "info", c.Logging.Defaults.Level)
				assert.Len(t, c.Logging.Outputs, 2)
				assert.Equal(t, "stderr", c.Logging.Outputs[0].Console.Writer)
			},
		},
		{
			name: "custom trace and output",
			configTOML: `
[trace]
path = "/var/log/qemu/trace.out"
skip_invalid_size = true

[output]
format = "yaml"
metrics_file = "/var/lib/node_exporter/convtrace.prom"
`,
			validate: func(t *testing.T, c *AppConfig) {
				assert.Equal(t, "/var/log/qemu/trace.out", c.Trace.Path)
				assert.True(t, c.Trace.SkipInvalidSize)
				assert.Equal(t, FormatYAML, c.Output.Format)
				assert.Equal(t, "/var/lib/node_exporter/convtrace.prom", c.Output.MetricsFile)
				// untouched sections keep their defaults
				assert.Equal(t, "info", c.Logging.Defaults.Level)
			},
		},
		{
			name: "custom logging config",
			configTOML: `
[logging.defaults]
level = "debug"

[[logging.outputs]]
type = "console"
enabled = true
[logging.outputs.console]
format = "logfmt"

[[logging.outputs]]
type = "file"
enabled = true
[logging.outputs.file]
filename = "app.log"
`,
			validate: func(t *testing.T, c *AppConfig) {
				assert.Equal(t, "debug", c.Logging.Defaults.Level)
				require.Len(t, c.Logging.Outputs, 2)
				assert.Equal(t, "console", c.Logging.Outputs[0].Type)
				assert.Equal(t, "logfmt", c.Logging.Outputs[0].Console.Format)
				assert.Equal(t, "app.log", c.Logging.Outputs[1].File.Filename)
			},
		},
		{
			name:   "invalid empty trace path",
			config: DefaultConfig(),
			setupFunc: func(c *AppConfig) {
				c.Trace.Path = ""
			},
			expectErr: true,
		},
		{
			name:   "invalid output format",
			config: DefaultConfig(),
			setupFunc: func(c *AppConfig) {
				c.Output.Format = "xml"
			},
			expectErr: true,
		},
		{
			name:   "invalid no outputs enabled",
			config: DefaultConfig(),
			setupFunc: func(c *AppConfig) {
				for i := range c.Logging.Outputs {
					c.Logging.Outputs[i].Enabled = false
				}
			},
			expectErr: true,
		},
		{
			name:   "invalid unknown output type",
			config: DefaultConfig(),
			setupFunc: func(c *AppConfig) {
				c.Logging.Outputs = append(c.Logging.Outputs, LogOutput{Type: "syslog", Enabled: true})
			},
			expectErr: true,
		},
		{
			name:   "invalid file output without filename",
			config: DefaultConfig(),
			setupFunc: func(c *AppConfig) {
				c.Logging.Outputs[1].Enabled = true
				c.Logging.Outputs[1].File.Filename = ""
			},
			expectErr: true,
		},
		{
			name:   "no outputs at all falls back to stderr",
			config: DefaultConfig(),
			setupFunc: func(c *AppConfig) {
				c.Logging.Outputs = nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(TracePathEnv, "")

			var cfg *AppConfig
			if tt.config != nil {
				cfg = tt.config
				if tt.setupFunc != nil {
					tt.setupFunc(cfg)
				}
			} else {
				path := filepath.Join(t.TempDir(), "test.toml")
				require.NoError(t, os.WriteFile(path, []byte(tt.configTOML), 0644))
				var err error
				cfg, err = LoadConfig(path)
				require.NoError(t, err)
			}

			err := cfg.Validate()
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			if tt.validate != nil {
				tt.validate(t, cfg)
			}
		})
	}
}

// TestLoadConfig tests loading configurations with fallbacks
func TestLoadConfig(t *testing.T) {
	t.Run("empty path returns defaults", func(t *testing.T) {
		t.Setenv(TracePathEnv, "")
		cfg, err := LoadConfig("")
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("non-existent file returns defaults and not found error", func(t *testing.T) {
		t.Setenv(TracePathEnv, "")
		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nonexistent.toml"))
		assert.True(t, errors.Is(err, ErrConfigNotFound))
		require.NotNil(t, cfg)
		assert.Equal(t, DefaultTracePath, cfg.Trace.Path)
	})

	t.Run("invalid TOML returns error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.toml")
		require.NoError(t, os.WriteFile(path, []byte("[trace]\npath = \"x\"\ninvalid_syntax [\n"), 0644))
		cfg, err := LoadConfig(path)
		assert.Error(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "env.toml")
		require.NoError(t, os.WriteFile(path, []byte("[trace]\npath = \"/from/file\"\n"), 0644))
		t.Setenv(TracePathEnv, "/from/env")

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "/from/env", cfg.Trace.Path)
	})

	t.Run("environment overrides defaults", func(t *testing.T) {
		t.Setenv(TracePathEnv, "/from/env")
		cfg, err := LoadConfig("")
		require.NoError(t, err)
		assert.Equal(t, "/from/env", cfg.Trace.Path)
	})
}

// TestSaveConfig tests saving configurations
func TestSaveConfig(t *testing.T) {
	t.Setenv(TracePathEnv, "")

	path := filepath.Join(t.TempDir(), "subdir", "test.toml")
	original := DefaultConfig()
	original.Trace.Path = "/srv/trace.out"
	original.Output.Format = FormatJSON

	require.NoError(t, SaveConfig(path, original))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/trace.out", loaded.Trace.Path)
	assert.Equal(t, FormatJSON, loaded.Output.Format)
	assert.NoError(t, loaded.Validate())
}

func TestGenerateExampleConfig(t *testing.T) {
	t.Setenv(TracePathEnv, "")

	path := filepath.Join(t.TempDir(), "config.example.toml")
	require.NoError(t, GenerateExampleConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# convtrace_stats example configuration"))
	assert.Contains(t, string(data), "[trace]")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
}
