package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	SetDefaults(viper.GetViper())
	t.Cleanup(viper.Reset)
}

func TestLoadDefaults(t *testing.T) {
	resetViper(t)

	settings, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ws://127.0.0.1:8181/core", settings.BusURL)
	assert.Equal(t, "skill-mac-launcher", settings.SkillID)
	assert.Equal(t, "en-us", settings.Locale)
	assert.Equal(t, 60, settings.CacheTTLMinutes)
	assert.Equal(t, time.Hour, settings.CacheTTL())
	assert.Equal(t, 0.7, settings.MatchThreshold)
	assert.False(t, settings.DisableWindowManager)
	assert.NotNil(t, settings.UserCommands)

	// Default aliases are present.
	assert.Contains(t, settings.Aliases["Safari"], "browser")
}

func TestLoadMergesUserAliases(t *testing.T) {
	resetViper(t)

	viper.Set("aliases", map[string][]string{
		"Safari":  {"my browser"},
		"Blender": {"blender", "3d"},
	})

	settings, err := Load()
	require.NoError(t, err)

	// User aliases win per application, defaults survive elsewhere.
	assert.Equal(t, []string{"my browser"}, settings.Aliases["Safari"])
	assert.Equal(t, []string{"blender", "3d"}, settings.Aliases["Blender"])
	assert.Contains(t, settings.Aliases["Calculator"], "calc")
}

func TestLoadAliasesFromConfigFile(t *testing.T) {
	resetViper(t)

	// Viper lowercases map keys when reading from a file, so "Safari"
	// arrives as "safari". The user's list must still replace the default
	// entry instead of sitting next to it.
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("aliases:\n  Safari:\n    - peruser\n"), 0o644))

	viper.SetConfigFile(path)
	require.NoError(t, viper.ReadInConfig())

	settings, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"peruser"}, settings.Aliases["safari"])
	assert.NotContains(t, settings.Aliases, "Safari")
	assert.Contains(t, settings.Aliases["Calculator"], "calc")
}

func TestLoadUserCommands(t *testing.T) {
	resetViper(t)

	viper.Set("user_commands", map[string]string{"my tool": "/usr/local/bin/mytool"})

	settings, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/usr/local/bin/mytool", settings.UserCommands["my tool"])
}

func TestApplyUpdate(t *testing.T) {
	settings := &Settings{
		SkillID:         "skill-mac-launcher",
		Locale:          "en-us",
		CacheTTLMinutes: 60,
	}

	require.NoError(t, settings.ApplyUpdate(map[string]any{
		"disable_window_manager": true,
		"cache_ttl_minutes":      5,
	}))

	assert.True(t, settings.DisableWindowManager)
	assert.Equal(t, 5, settings.CacheTTLMinutes)

	// Fields absent from the update keep their values.
	assert.Equal(t, "skill-mac-launcher", settings.SkillID)
	assert.Equal(t, "en-us", settings.Locale)
}

func TestApplyUpdateWeakTyping(t *testing.T) {
	settings := &Settings{}

	// Bus payloads arrive as generic JSON, so numbers come in as float64.
	require.NoError(t, settings.ApplyUpdate(map[string]any{
		"cache_ttl_minutes": float64(30),
		"match_threshold":   0.8,
	}))

	assert.Equal(t, 30, settings.CacheTTLMinutes)
	assert.Equal(t, 0.8, settings.MatchThreshold)
}

func TestSchema(t *testing.T) {
	schema, err := Schema()
	require.NoError(t, err)

	assert.Contains(t, schema, "maclaunch settings")
	assert.Contains(t, schema, "bus_url")
	assert.Contains(t, schema, "disable_window_manager")
	assert.Contains(t, schema, "user_commands")
}
