package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/1broseidon/printmon/internal/locator"
	"github.com/1broseidon/printmon/internal/telemetry"
)

const (
	DefaultWindowClass    = "wxWindowNR"
	DefaultPollIntervalMs = 1000
	MinPollIntervalMs     = 100
	MaxPollIntervalMs     = 60000
)

// HistoryConfig controls the on-disk snapshot journal.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

// Config holds the application configuration.
type Config struct {
	WindowClass    string                         `yaml:"window_class"`
	PatternSet     string                         `yaml:"pattern_set"`
	PatternSets    map[string]*locator.PatternSet `yaml:"pattern_sets,omitempty"`
	Enclosure      locator.EnclosurePolicy        `yaml:"enclosure"`
	BoxPlaceholder string                         `yaml:"box_placeholder"`
	LayerPrefixes  []string                       `yaml:"layer_prefixes"`
	PollIntervalMs int                            `yaml:"poll_interval_ms"`
	CacheHandles   bool                           `yaml:"cache_handles"`
	Clock          telemetry.Clock                `yaml:"clock"`
	Timezone       string                         `yaml:"timezone,omitempty"`
	LogLevel       string                         `yaml:"log_level"`
	History        HistoryConfig                  `yaml:"history"`
	Display        string                         `yaml:"display,omitempty"`
	XAuthority     string                         `yaml:"xauthority,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		WindowClass:    DefaultWindowClass,
		PatternSet:     locator.DefaultPatternSet,
		PatternSets:    locator.BuiltinPatternSets(),
		Enclosure:      locator.EnclosureOptional,
		BoxPlaceholder: telemetry.DefaultBoxPlaceholder,
		LayerPrefixes:  append([]string(nil), telemetry.DefaultLayerPrefixes...),
		PollIntervalMs: DefaultPollIntervalMs,
		CacheHandles:   true,
		Clock:          telemetry.Clock24h,
		LogLevel:       "info",
		History: HistoryConfig{
			Enabled: false,
			Path:    defaultHistoryPath(),
		},
	}
}

func defaultHistoryPath() string {
	if dir := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); dir != "" {
		return filepath.Join(dir, "printmon", "history.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "printmon", "history.db")
}

// ActivePatternSet returns the pattern set selected by pattern_set.
func (c *Config) ActivePatternSet() (*locator.PatternSet, error) {
	set, ok := c.PatternSets[c.PatternSet]
	if !ok {
		return nil, fmt.Errorf("pattern set %q not found", c.PatternSet)
	}
	return set, nil
}

// NewLocator builds a locator for the active pattern set and enclosure policy.
func (c *Config) NewLocator() (*locator.Locator, error) {
	set, err := c.ActivePatternSet()
	if err != nil {
		return nil, err
	}
	return locator.New(set, c.Enclosure)
}

// Selector returns the main-window selector.
func (c *Config) Selector() locator.Selector {
	return locator.Selector{ClassName: c.WindowClass}
}

// PollInterval returns poll_interval_ms as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// Location resolves timezone, defaulting to the local zone.
func (c *Config) Location() (*time.Location, error) {
	if strings.TrimSpace(c.Timezone) == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// FormatContext builds the ETA formatting context.
func (c *Config) FormatContext() telemetry.FormatContext {
	loc, err := c.Location()
	if err != nil {
		loc = time.Local
	}
	return telemetry.FormatContext{Location: loc, Clock: c.Clock, Now: time.Now}
}

// ExtractorOptions maps the config onto telemetry options.
func (c *Config) ExtractorOptions() telemetry.Options {
	return telemetry.Options{
		Selector:       c.Selector(),
		UseCache:       c.CacheHandles,
		BoxPlaceholder: c.BoxPlaceholder,
		LayerPrefixes:  c.LayerPrefixes,
		Format:         c.FormatContext(),
	}
}

// SlogLevel maps log_level onto a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate performs strict validation of the effective configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.WindowClass) == "" {
		return &ValidationError{Path: "window_class", Err: fmt.Errorf("window_class is required")}
	}
	if len(c.PatternSets) == 0 {
		return &ValidationError{Path: "pattern_sets", Err: fmt.Errorf("pattern_sets must not be empty")}
	}
	for _, name := range locator.PatternSetNames(c.PatternSets) {
		if err := c.PatternSets[name].Validate(); err != nil {
			return &ValidationError{Path: "pattern_sets." + name, Err: err}
		}
	}
	if c.PatternSet == "" {
		return &ValidationError{Path: "pattern_set", Err: fmt.Errorf("pattern_set is required")}
	}
	if _, ok := c.PatternSets[c.PatternSet]; !ok {
		return &ValidationError{Path: "pattern_set", Err: fmt.Errorf("pattern_set %q not found in pattern_sets", c.PatternSet)}
	}
	switch c.Enclosure {
	case locator.EnclosureOptional, locator.EnclosureRequired:
	default:
		return &ValidationError{Path: "enclosure", Err: fmt.Errorf("enclosure must be one of: optional, required")}
	}
	if strings.TrimSpace(c.BoxPlaceholder) == "" {
		return &ValidationError{Path: "box_placeholder", Err: fmt.Errorf("box_placeholder must not be empty")}
	}
	for i, p := range c.LayerPrefixes {
		if strings.TrimSpace(p) == "" {
			return &ValidationError{Path: "layer_prefixes", Err: fmt.Errorf("layer_prefixes[%d] must not be empty", i)}
		}
	}
	if c.PollIntervalMs < MinPollIntervalMs || c.PollIntervalMs > MaxPollIntervalMs {
		return &ValidationError{Path: "poll_interval_ms", Err: fmt.Errorf("poll_interval_ms must be between %d and %d", MinPollIntervalMs, MaxPollIntervalMs)}
	}
	switch c.Clock {
	case telemetry.Clock24h, telemetry.Clock12h:
	default:
		return &ValidationError{Path: "clock", Err: fmt.Errorf("clock must be one of: 12h, 24h")}
	}
	if _, err := c.Location(); err != nil {
		return &ValidationError{Path: "timezone", Err: fmt.Errorf("unknown timezone %q", c.Timezone)}
	}
	if c.LogLevel != "debug" && c.LogLevel != "info" && c.LogLevel != "warning" && c.LogLevel != "error" {
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warning, error")}
	}
	if c.History.Enabled && strings.TrimSpace(c.History.Path) == "" {
		return &ValidationError{Path: "history.path", Err: fmt.Errorf("history.path is required when history is enabled")}
	}
	return nil
}
