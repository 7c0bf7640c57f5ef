package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/1broseidon/printmon/internal/telemetry"
)

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// BuildEffectiveConfig applies raw on top of the defaults. The returned map
// records, per pattern set name, whether the set is builtin or came from a
// file.
func BuildEffectiveConfig(raw RawConfig) (*Config, map[string]SourceKind, error) {
	cfg := DefaultConfig()
	origins := make(map[string]SourceKind, len(cfg.PatternSets))
	for name := range cfg.PatternSets {
		origins[name] = SourceBuiltin
	}

	if raw.WindowClass != nil {
		cfg.WindowClass = strings.TrimSpace(*raw.WindowClass)
	}
	if raw.PatternSet != nil {
		cfg.PatternSet = strings.TrimSpace(*raw.PatternSet)
	}
	for _, name := range sortedKeys(raw.PatternSets) {
		set := raw.PatternSets[name]
		if set.Name == "" {
			set.Name = name
		}
		if set.Name != name {
			return nil, nil, &ValidationError{
				Path: "pattern_sets." + name + ".name",
				Err:  fmt.Errorf("name %q does not match key %q", set.Name, name),
			}
		}
		cfg.PatternSets[name] = &set
		origins[name] = SourceFile
	}
	if raw.Enclosure != nil {
		cfg.Enclosure = *raw.Enclosure
	}
	if raw.BoxPlaceholder != nil {
		cfg.BoxPlaceholder = *raw.BoxPlaceholder
	}
	if raw.LayerPrefixes != nil {
		cfg.LayerPrefixes = append([]string(nil), raw.LayerPrefixes...)
	}
	if raw.PollIntervalMs != nil {
		cfg.PollIntervalMs = *raw.PollIntervalMs
	}
	if raw.CacheHandles != nil {
		cfg.CacheHandles = *raw.CacheHandles
	}
	if raw.Clock != nil {
		cfg.Clock = telemetry.Clock(strings.ToLower(strings.TrimSpace(*raw.Clock)))
	}
	if raw.Timezone != nil {
		cfg.Timezone = strings.TrimSpace(*raw.Timezone)
	}
	if raw.LogLevel != nil {
		cfg.LogLevel = *raw.LogLevel
	}
	if raw.History != nil {
		if raw.History.Enabled != nil {
			cfg.History.Enabled = *raw.History.Enabled
		}
		if raw.History.Path != nil {
			path, err := expandHome(*raw.History.Path)
			if err != nil {
				return nil, nil, &ValidationError{Path: "history.path", Err: err}
			}
			cfg.History.Path = path
		}
	}
	if raw.Display != nil {
		cfg.Display = *raw.Display
	}
	if raw.XAuthority != nil {
		cfg.XAuthority = *raw.XAuthority
	}

	return cfg, origins, nil
}

func expandHome(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
