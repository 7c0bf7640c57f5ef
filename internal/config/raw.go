package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/printmon/internal/locator"
)

// IncludeList supports either:
//
//	include: "/path/to/file.yaml"
//
// or:
//
//	include:
//	  - "/path/to/file.yaml"
//	  - "/path/to/dir"
type IncludeList []string

func (l *IncludeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		*l = nil
		return nil
	case yaml.ScalarNode:
		if value.Tag != "!!str" {
			return fmt.Errorf("include must be a string or list of strings")
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return fmt.Errorf("include entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("include must be a string or list of strings")
	}
}

type RawHistoryConfig struct {
	Enabled *bool   `yaml:"enabled"`
	Path    *string `yaml:"path"`
}

type RawConfig struct {
	Include        IncludeList                   `yaml:"include"`
	WindowClass    *string                       `yaml:"window_class"`
	PatternSet     *string                       `yaml:"pattern_set"`
	PatternSets    map[string]locator.PatternSet `yaml:"pattern_sets"`
	Enclosure      *locator.EnclosurePolicy      `yaml:"enclosure"`
	BoxPlaceholder *string                       `yaml:"box_placeholder"`
	LayerPrefixes  []string                      `yaml:"layer_prefixes"`
	PollIntervalMs *int                          `yaml:"poll_interval_ms"`
	CacheHandles   *bool                         `yaml:"cache_handles"`
	Clock          *string                       `yaml:"clock"`
	Timezone       *string                       `yaml:"timezone"`
	LogLevel       *string                       `yaml:"log_level"`
	History        *RawHistoryConfig             `yaml:"history"`
	Display        *string                       `yaml:"display"`
	XAuthority     *string                       `yaml:"xauthority"`
}

func (c RawConfig) merge(overlay RawConfig) RawConfig {
	out := c

	if overlay.WindowClass != nil {
		out.WindowClass = overlay.WindowClass
	}
	if overlay.PatternSet != nil {
		out.PatternSet = overlay.PatternSet
	}
	if overlay.PatternSets != nil {
		merged := make(map[string]locator.PatternSet, len(out.PatternSets)+len(overlay.PatternSets))
		for name, set := range out.PatternSets {
			merged[name] = set
		}
		// A pattern set is replaced whole; partial sets would be unreadable.
		for name, set := range overlay.PatternSets {
			merged[name] = set
		}
		out.PatternSets = merged
	}
	if overlay.Enclosure != nil {
		out.Enclosure = overlay.Enclosure
	}
	if overlay.BoxPlaceholder != nil {
		out.BoxPlaceholder = overlay.BoxPlaceholder
	}
	if overlay.LayerPrefixes != nil {
		out.LayerPrefixes = overlay.LayerPrefixes
	}
	if overlay.PollIntervalMs != nil {
		out.PollIntervalMs = overlay.PollIntervalMs
	}
	if overlay.CacheHandles != nil {
		out.CacheHandles = overlay.CacheHandles
	}
	if overlay.Clock != nil {
		out.Clock = overlay.Clock
	}
	if overlay.Timezone != nil {
		out.Timezone = overlay.Timezone
	}
	if overlay.LogLevel != nil {
		out.LogLevel = overlay.LogLevel
	}
	if overlay.History != nil {
		if out.History == nil {
			out.History = &RawHistoryConfig{}
		}
		merged := *out.History
		if overlay.History.Enabled != nil {
			merged.Enabled = overlay.History.Enabled
		}
		if overlay.History.Path != nil {
			merged.Path = overlay.History.Path
		}
		out.History = &merged
	}
	if overlay.Display != nil {
		out.Display = overlay.Display
	}
	if overlay.XAuthority != nil {
		out.XAuthority = overlay.XAuthority
	}

	return out
}
