package config

import (
	"fmt"
	"strings"
)

// Explain returns the effective value at the given YAML-like path and its source.
//
// Supported paths include:
//
//	window_class
//	pattern_set
//	pattern_sets.<name>
//	pattern_sets.<name>.landmark.text
//	enclosure
//	box_placeholder
//	layer_prefixes
//	poll_interval_ms
//	cache_handles
//	clock
//	timezone
//	log_level
//	history.enabled
//	history.path
//	display
//	xauthority
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}

	// Exact-path file source wins.
	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}

	if name := patternSetNameFromPath(path); name != "" {
		if res.Origins[name] == SourceFile {
			if src, ok := res.Sources["pattern_sets."+name]; ok {
				return value, src, nil
			}
		}
		return value, Source{Kind: SourceBuiltin, Name: name}, nil
	}

	return value, Source{Kind: SourceDefault, Name: "defaults"}, nil
}

func patternSetNameFromPath(path string) string {
	parts := strings.Split(path, ".")
	if len(parts) < 2 || parts[0] != "pattern_sets" {
		return ""
	}
	return parts[1]
}

func lookupValue(cfg *Config, path string) (any, error) {
	parts := strings.Split(path, ".")
	scalar := func(v any) (any, error) {
		if len(parts) != 1 {
			return nil, fmt.Errorf("unknown path: %s", path)
		}
		return v, nil
	}

	switch parts[0] {
	case "window_class":
		return scalar(cfg.WindowClass)
	case "pattern_set":
		return scalar(cfg.PatternSet)
	case "enclosure":
		return scalar(cfg.Enclosure)
	case "box_placeholder":
		return scalar(cfg.BoxPlaceholder)
	case "layer_prefixes":
		return scalar(cfg.LayerPrefixes)
	case "poll_interval_ms":
		return scalar(cfg.PollIntervalMs)
	case "cache_handles":
		return scalar(cfg.CacheHandles)
	case "clock":
		return scalar(cfg.Clock)
	case "timezone":
		return scalar(cfg.Timezone)
	case "log_level":
		return scalar(cfg.LogLevel)
	case "display":
		return scalar(cfg.Display)
	case "xauthority":
		return scalar(cfg.XAuthority)
	case "history":
		if len(parts) == 1 {
			return cfg.History, nil
		}
		if len(parts) != 2 {
			return nil, fmt.Errorf("unknown path: %s", path)
		}
		switch parts[1] {
		case "enabled":
			return cfg.History.Enabled, nil
		case "path":
			return cfg.History.Path, nil
		default:
			return nil, fmt.Errorf("unknown path: %s", path)
		}
	case "pattern_sets":
		if len(parts) == 1 {
			return cfg.PatternSets, nil
		}
		set, ok := cfg.PatternSets[parts[1]]
		if !ok {
			return nil, fmt.Errorf("unknown pattern set %q", parts[1])
		}
		if len(parts) == 2 {
			return set, nil
		}
		rest := strings.Join(parts[2:], ".")
		switch rest {
		case "version":
			return set.Version, nil
		case "description":
			return set.Description, nil
		case "anchor_class":
			return set.AnchorClass, nil
		case "landmark":
			return set.Landmark, nil
		case "landmark.text":
			return set.Landmark.Text, nil
		case "landmark.class":
			return set.Landmark.Class, nil
		case "landmark.scope":
			return set.Landmark.Scope, nil
		case "control_panel":
			return set.ControlPanel, nil
		case "temperatures":
			return set.Temperatures, nil
		case "bottom_container":
			return set.BottomContainer, nil
		case "task_row":
			return set.TaskRow, nil
		case "progress_row":
			return set.ProgressRow, nil
		case "progress_triple":
			return set.ProgressTriple, nil
		default:
			return nil, fmt.Errorf("unknown path: %s", path)
		}
	default:
		return nil, fmt.Errorf("unknown path: %s", path)
	}
}
