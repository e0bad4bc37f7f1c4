package config

import (
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testHome = "/home/testuser"

func TestDefaultConfigDir_NonEmpty(t *testing.T) {
	dir := DefaultConfigDir()
	assert.NotEmpty(t, dir)
	assert.True(t, strings.Contains(dir, appName))
}

func TestDefaultDataDir_NonEmpty(t *testing.T) {
	dir := DefaultDataDir()
	assert.NotEmpty(t, dir)
	assert.True(t, strings.Contains(dir, appName))
}

func TestDefaultConfigPath_EndsWithConfigToml(t *testing.T) {
	path := DefaultConfigPath()
	assert.NotEmpty(t, path)
	assert.True(t, strings.HasSuffix(path, "config.toml"))
}

func TestDefaultConfigDir_MacOS(t *testing.T) {
	if runtime.GOOS != platformDarwin {
		t.Skip("macOS-only test")
	}

	assert.Contains(t, DefaultConfigDir(), "Library/Application Support")
}

func TestXDGDir_Override(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	assert.Equal(t, filepath.Join("/custom/config", appName), xdgDir("XDG_CONFIG_HOME", testHome, ".config"))
}

func TestXDGDir_DefaultFallback(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "")
	assert.Equal(t, filepath.Join(testHome, ".local", "share", appName),
		xdgDir("XDG_DATA_HOME", testHome, ".local", "share"))
}

func TestDefaultDBPath_InDataDir(t *testing.T) {
	if runtime.GOOS != platformLinux {
		t.Skip("XDG layout is Linux-only")
	}

	t.Setenv("XDG_DATA_HOME", "/custom/data")
	assert.Equal(t, filepath.Join("/custom/data", appName, dbFileName), defaultDBPath())
}

func TestExpandTilde(t *testing.T) {
	t.Setenv("HOME", testHome)

	assert.Equal(t, filepath.Join(testHome, "x.db"), expandTilde("~/x.db"))
	assert.Equal(t, "/abs/x.db", expandTilde("/abs/x.db"))
	assert.Equal(t, "~user/x.db", expandTilde("~user/x.db"))
}
