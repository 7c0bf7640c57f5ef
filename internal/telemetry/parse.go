package telemetry

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/width"
)

// ErrUnparsable is returned when a control's text cannot be read as the
// value its role requires.
var ErrUnparsable = errors.New("unparsable value")

// DefaultBoxPlaceholder is what the slicer shows when there is no enclosure
// sensor.
const DefaultBoxPlaceholder = "_"

// DefaultLayerPrefixes are stripped from the layer label.
var DefaultLayerPrefixes = []string{"层：", "Layer:"}

// ParsePercent reads an integer percentage. A trailing "%" is tolerated.
func ParsePercent(text string) (int, error) {
	s := strings.TrimSpace(width.Fold.String(text))
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("percent %q: %w", text, ErrUnparsable)
	}
	if n < 0 || n > 100 {
		return 0, fmt.Errorf("percent %q out of range: %w", text, ErrUnparsable)
	}
	return n, nil
}

// StripSign removes the leading "-" the slicer puts on countdowns.
func StripSign(text string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), "-"))
}

// StripLayerPrefix removes the first matching label prefix. Matching is done
// on width-folded text so full-width and ASCII colons compare equal.
func StripLayerPrefix(text string, prefixes []string) string {
	folded := strings.TrimSpace(width.Fold.String(text))
	for _, p := range prefixes {
		fp := width.Fold.String(p)
		if fp != "" && strings.HasPrefix(folded, fp) {
			return strings.TrimSpace(strings.TrimPrefix(folded, fp))
		}
	}
	return folded
}

// BoxValue returns nil when the enclosure text is empty or the placeholder.
func BoxValue(text, placeholder string) *string {
	s := strings.TrimSpace(text)
	if s == "" || s == placeholder {
		return nil
	}
	return &s
}

var durationPart = regexp.MustCompile(`(\d+)\s*(天|小时|时|分钟|分|秒|days?|d|hours?|hrs?|h|minutes?|mins?|m|seconds?|secs?|s)`)

const maxDuration = time.Duration(math.MaxInt64)

// ParseRemaining parses countdown strings such as "1天2小时3分钟", "1h23m",
// "45分钟" or "45min". ok is false when the text has anything else in it
// or the total does not fit in a time.Duration.
func ParseRemaining(text string) (d time.Duration, ok bool) {
	s := strings.ToLower(strings.TrimSpace(width.Fold.String(StripSign(text))))
	if s == "" {
		return 0, false
	}
	matches := durationPart.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return 0, false
	}
	pos := 0
	for _, m := range matches {
		if strings.TrimSpace(s[pos:m[0]]) != "" {
			return 0, false
		}
		n, err := strconv.ParseInt(s[m[2]:m[3]], 10, 64)
		if err != nil {
			return 0, false
		}
		unit := unitOf(s[m[4]:m[5]])
		if n > int64(maxDuration/unit) {
			return 0, false
		}
		part := time.Duration(n) * unit
		if d > maxDuration-part {
			return 0, false
		}
		d += part
		pos = m[1]
	}
	if strings.TrimSpace(s[pos:]) != "" {
		return 0, false
	}
	return d, true
}

func unitOf(u string) time.Duration {
	switch {
	case u == "天" || strings.HasPrefix(u, "d"):
		return 24 * time.Hour
	case u == "小时" || u == "时" || strings.HasPrefix(u, "h"):
		return time.Hour
	case u == "秒" || strings.HasPrefix(u, "s"):
		return time.Second
	default:
		return time.Minute
	}
}
