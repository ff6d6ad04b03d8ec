// Package config loads and watches the skill settings. Settings come from
// three places, lowest to highest precedence: built-in defaults, the
// config file (~/.maclaunch/config.yaml, overridable), and MACLAUNCH_*
// environment variables or flags bound through viper.
package config

import (
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Settings is the full skill configuration.
type Settings struct {
	// BusURL is the WebSocket endpoint of the host message bus.
	BusURL string `mapstructure:"bus_url" json:"bus_url" yaml:"bus_url"`
	// SkillID identifies this skill on the bus.
	SkillID string `mapstructure:"skill_id" json:"skill_id" yaml:"skill_id"`
	// Locale selects the dialog language.
	Locale string `mapstructure:"locale" json:"locale" yaml:"locale"`

	// Aliases maps a canonical application name to its spoken aliases.
	Aliases map[string][]string `mapstructure:"aliases" json:"aliases" yaml:"aliases"`
	// UserCommands maps a spoken name to an explicit executable path.
	UserCommands map[string]string `mapstructure:"user_commands" json:"user_commands" yaml:"user_commands"`
	// AppDirs overrides the directories scanned for application bundles.
	AppDirs []string `mapstructure:"app_dirs" json:"app_dirs,omitempty" yaml:"app_dirs"`
	// ExcludePatterns are glob patterns of bundle names to skip.
	ExcludePatterns []string `mapstructure:"exclude_patterns" json:"exclude_patterns,omitempty" yaml:"exclude_patterns"`

	// CacheTTLMinutes is how long a catalog scan stays fresh.
	CacheTTLMinutes int `mapstructure:"cache_ttl_minutes" json:"cache_ttl_minutes" yaml:"cache_ttl_minutes"`
	// MatchThreshold is the minimum similarity for a spoken name to resolve.
	MatchThreshold float64 `mapstructure:"match_threshold" json:"match_threshold" yaml:"match_threshold"`
	// DisableWindowManager skips the "switch to it?" question for
	// already-running applications.
	DisableWindowManager bool `mapstructure:"disable_window_manager" json:"disable_window_manager" yaml:"disable_window_manager"`

	LogLevel  string `mapstructure:"log_level" json:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" json:"log_format" yaml:"log_format"`

	Tracing TracingSettings `mapstructure:"tracing" json:"tracing" yaml:"tracing"`
}

// TracingSettings configures OpenTelemetry export.
type TracingSettings struct {
	Enabled bool    `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	Sampler string  `mapstructure:"sampler" json:"sampler" yaml:"sampler"`
	Ratio   float64 `mapstructure:"ratio" json:"ratio" yaml:"ratio"`
}

// CacheTTL returns the catalog TTL as a duration.
func (s *Settings) CacheTTL() time.Duration {
	return time.Duration(s.CacheTTLMinutes) * time.Minute
}

// DefaultAliases seeds the alias table with the spoken forms users reach
// for most. Per-user aliases from the config file are merged on top and
// win on conflict.
func DefaultAliases() map[string][]string {
	return map[string][]string{
		"Calculator":       {"calc", "calculator"},
		"Safari":           {"browser", "web browser", "safari"},
		"Mail":             {"email", "mail"},
		"Calendar":         {"calendar", "schedule"},
		"Notes":            {"notes", "notepad"},
		"Terminal":         {"terminal", "shell", "command line"},
		"System Settings":  {"settings", "preferences", "system preferences"},
		"Activity Monitor": {"activity monitor", "task manager"},
		"Music":            {"music", "music player"},
		"Photos":           {"photos", "pictures"},
	}
}

// SetDefaults registers every default on the given viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("bus_url", "ws://127.0.0.1:8181/core")
	v.SetDefault("skill_id", "skill-mac-launcher")
	v.SetDefault("locale", "en-us")
	v.SetDefault("aliases", DefaultAliases())
	v.SetDefault("user_commands", map[string]string{})
	v.SetDefault("cache_ttl_minutes", 60)
	v.SetDefault("match_threshold", 0.7)
	v.SetDefault("disable_window_manager", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "fmt")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.sampler", "ratio")
	v.SetDefault("tracing.ratio", 1.0)
}

// Load unmarshals the settings from the global viper instance, merging
// user aliases over the defaults instead of replacing them.
func Load() (*Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal settings")
	}

	// Viper lowercases map keys on unmarshal, so a user's "Safari" entry
	// arrives as "safari". Match default keys case-insensitively or the
	// user's list would sit next to the default instead of replacing it.
	merged := DefaultAliases()
	for name, aliases := range s.Aliases {
		for existing := range merged {
			if existing != name && strings.EqualFold(existing, name) {
				delete(merged, existing)
			}
		}
		merged[name] = aliases
	}
	s.Aliases = merged

	if s.UserCommands == nil {
		s.UserCommands = map[string]string{}
	}

	return &s, nil
}

// ApplyUpdate overlays a settings map (e.g. a skill.settings.update payload
// from the bus) onto the current settings. Zero values in the update do not
// clobber existing values.
func (s *Settings) ApplyUpdate(update map[string]any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           s,
		WeaklyTypedInput: true,
		ZeroFields:       false,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create settings decoder")
	}

	if err := decoder.Decode(update); err != nil {
		return errors.Wrap(err, "failed to apply settings update")
	}
	return nil
}
