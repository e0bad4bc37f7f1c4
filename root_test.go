package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/drive-explorer/internal/config"
)

// Global flag reset pattern: newRootCmd() binds flags via StringVar/BoolVar,
// which reset the global flag variables to their zero values. Tests must either:
//   - Set globals AFTER newRootCmd() returns (direct function tests), or
//   - Use cmd.SetArgs() + cmd.Execute() to let Cobra parse flags.

// saveFlags restores the global flags when the test ends.
func saveFlags(t *testing.T) {
	t.Helper()

	oldConfig, oldJSON, oldVerbose, oldQuiet := flagConfigPath, flagJSON, flagVerbose, flagQuiet

	t.Cleanup(func() {
		flagConfigPath = oldConfig
		flagJSON = oldJSON
		flagVerbose = oldVerbose
		flagQuiet = oldQuiet
	})
}

// clearEnv unsets every environment override so the host cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()

	for _, name := range []string{
		config.EnvConfig, config.EnvListen,
		config.EnvClientID, config.EnvClientSecret, config.EnvRedirectURI,
	} {
		t.Setenv(name, "")
	}
}

// --- buildLogger tests ---

func TestBuildLogger_Default(t *testing.T) {
	saveFlags(t)

	flagVerbose = false
	flagQuiet = false

	logger := buildLogger(nil, &bytes.Buffer{})

	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))
}

func TestBuildLogger_ConfigLevels(t *testing.T) {
	saveFlags(t)

	flagVerbose = false
	flagQuiet = false

	tests := []struct {
		level    string
		enabled  slog.Level
		disabled slog.Level
	}{
		{"debug", slog.LevelDebug, slog.LevelDebug - 1},
		{"info", slog.LevelInfo, slog.LevelDebug},
		{"warn", slog.LevelWarn, slog.LevelInfo},
		{"error", slog.LevelError, slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := buildLogger(&config.LoggingConfig{LogLevel: tt.level, LogFormat: "text"}, &bytes.Buffer{})

			assert.True(t, logger.Handler().Enabled(context.Background(), tt.enabled))
			assert.False(t, logger.Handler().Enabled(context.Background(), tt.disabled))
		})
	}
}

func TestBuildLogger_VerboseOverridesConfig(t *testing.T) {
	saveFlags(t)

	flagVerbose = true
	flagQuiet = false

	logger := buildLogger(&config.LoggingConfig{LogLevel: "error", LogFormat: "text"}, &bytes.Buffer{})
	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))
}

func TestBuildLogger_QuietOverridesConfig(t *testing.T) {
	saveFlags(t)

	flagVerbose = false
	flagQuiet = true

	logger := buildLogger(&config.LoggingConfig{LogLevel: "debug", LogFormat: "text"}, &bytes.Buffer{})
	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelError))
	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelWarn))
}

func TestBuildLogger_Formats(t *testing.T) {
	saveFlags(t)

	flagVerbose = false
	flagQuiet = false

	// A bytes.Buffer is never a terminal, so "auto" selects JSON.
	for _, format := range []string{"auto", "json"} {
		var buf bytes.Buffer
		buildLogger(&config.LoggingConfig{LogLevel: "info", LogFormat: format}, &buf).Info("hello")

		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec), format)
		assert.Equal(t, "hello", rec["msg"])
	}

	var buf bytes.Buffer
	buildLogger(&config.LoggingConfig{LogLevel: "info", LogFormat: "text"}, &buf).Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}

// --- Cobra structure tests ---

func TestNewRootCmd_Subcommands(t *testing.T) {
	cmd := newRootCmd()

	for _, path := range [][]string{{"serve"}, {"status"}, {"sessions", "prune"}, {"config", "show"}} {
		found, _, err := cmd.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], found.Name())
	}
}

func TestNewRootCmd_PersistentFlags(t *testing.T) {
	cmd := newRootCmd()

	for _, name := range []string{"config", "json", "verbose", "quiet"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "expected persistent flag %q not found", name)
	}
}

func TestNewRootCmd_VerboseQuietExclusive(t *testing.T) {
	saveFlags(t)

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--verbose", "--quiet", "config", "show"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none of the others can be")
}

func TestDefaultHTTPClient_HasTimeout(t *testing.T) {
	assert.Equal(t, httpClientTimeout, defaultHTTPClient().Timeout)
}

// --- loadConfig tests ---

func TestLoadConfig_FromFlagPath(t *testing.T) {
	saveFlags(t)
	clearEnv(t)

	cfgFile := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("[server]\nlisten_addr = \"127.0.0.1:9100\"\n"), 0o600))

	newRootCmd()
	flagConfigPath = cfgFile

	cfg, path, err := loadConfig(config.CLIOverrides{})
	require.NoError(t, err)
	assert.Equal(t, cfgFile, path)
	assert.Equal(t, "127.0.0.1:9100", cfg.Server.ListenAddr)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	saveFlags(t)
	clearEnv(t)

	cfgFile := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("[sever]\n"), 0o600))

	newRootCmd()
	flagConfigPath = cfgFile

	_, _, err := loadConfig(config.CLIOverrides{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config")
	assert.Contains(t, err.Error(), `did you mean "server"?`)
}

// --- config show ---

func TestConfigShow_HidesSecret(t *testing.T) {
	saveFlags(t)
	clearEnv(t)
	t.Setenv(config.EnvClientID, "client-id")
	t.Setenv(config.EnvClientSecret, "super-secret")

	for _, args := range [][]string{{"config", "show"}, {"--json", "config", "show"}} {
		cmd := newRootCmd()

		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "missing.toml")}, args...))

		require.NoError(t, cmd.Execute())
		assert.Contains(t, out.String(), "client-id")
		assert.NotContains(t, out.String(), "super-secret")
	}
}
