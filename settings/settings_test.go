package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppSettingsCreatesDefaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "wildbits")
	a := NewAppSettings(dir)

	assert.Equal(t, WILDBITS_VERSION, a.Version)
	assert.True(t, a.ScanCache)
	assert.Positive(t, a.ScanWorkers)
	assert.Contains(t, a.ScanExclude, ".git/")
	assert.Equal(t, filepath.Join(dir, NAMES_FILENAME), a.NamesPath())
	assert.FileExists(t, filepath.Join(dir, SETTINGS_FILENAME))
}

func TestCorruptSettingsAreReplaced(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, SETTINGS_FILENAME), []byte("{nope"), 0644))

	a := NewAppSettings(dir)
	assert.Equal(t, WILDBITS_VERSION, a.Version)

	saved, err := os.ReadFile(filepath.Join(dir, SETTINGS_FILENAME))
	require.NoError(t, err)
	assert.Contains(t, string(saved), `"scan_cache": true`)
}

func TestMigrateOldSettings(t *testing.T) {
	dir := t.TempDir()
	old := `{"version": "1.3.0", "debug": true, "last_folder": "/mods"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, SETTINGS_FILENAME), []byte(old), 0644))

	a := NewAppSettings(dir)
	assert.Equal(t, WILDBITS_VERSION, a.Version)
	assert.True(t, a.Debug)
	assert.Equal(t, "/mods", a.LastFolder)
	assert.Positive(t, a.ScanWorkers)
	assert.NotEmpty(t, a.UpdateExclude)

	// current settings are left alone
	a.ScanCache = false
	a.Save()
	again := NewAppSettings(dir)
	assert.False(t, again.ScanCache)
}

func TestGetConfigFolder(t *testing.T) {
	dir := t.TempDir()
	got, err := GetConfigFolder(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, got)
}
