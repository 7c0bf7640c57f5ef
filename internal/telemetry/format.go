package telemetry

import (
	"fmt"
	"time"
)

// Clock selects the ETA time notation.
type Clock string

const (
	Clock24h Clock = "24h"
	Clock12h Clock = "12h"
)

// FormatContext carries everything ETA formatting depends on. It is passed
// explicitly so nothing reads or mutates process-wide locale state.
type FormatContext struct {
	Location *time.Location
	Clock    Clock
	Now      func() time.Time
}

// DefaultFormatContext formats in local time on a 24 hour clock.
func DefaultFormatContext() FormatContext {
	return FormatContext{Location: time.Local, Clock: Clock24h, Now: time.Now}
}

func (fc FormatContext) now() time.Time {
	now := time.Now
	if fc.Now != nil {
		now = fc.Now
	}
	loc := fc.Location
	if loc == nil {
		loc = time.Local
	}
	return now().In(loc)
}

// ETA returns the wall-clock finish time for a remaining duration. Finishes
// on a later calendar day carry a "+Nd" prefix.
func (fc FormatContext) ETA(remaining time.Duration) string {
	now := fc.now()
	end := now.Add(remaining)

	layout := "15:04"
	if fc.Clock == Clock12h {
		layout = "3:04 PM"
	}
	out := end.Format(layout)

	y1, m1, d1 := now.Date()
	y2, m2, d2 := end.Date()
	today := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	endDay := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	if days := int(endDay.Sub(today).Hours() / 24); days > 0 {
		out = fmt.Sprintf("+%dd %s", days, out)
	}
	return out
}
