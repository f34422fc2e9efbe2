package butler

import "time"

// DNDWindow is the part of the day notifications are allowed in: hours in
// [Start, End) are awake, everything else is quiet.
type DNDWindow struct {
	Start int
	End   int
}

// DefaultDND is quiet before 07:00 and from 22:00 on.
var DefaultDND = DNDWindow{Start: 7, End: 22}

// Quiet reports whether t falls in the quiet hours.
func (w DNDWindow) Quiet(t time.Time) bool {
	h := t.Hour()
	return h < w.Start || h >= w.End
}

// Throttle decides whether a category may notify again.
type Throttle struct {
	Period time.Duration
	DND    DNDWindow
}

// Allowed applies, in order: quiet hours (when enabled) always block, force
// always passes, otherwise more than Period must have elapsed since last.
// A zero last means the category never fired.
func (t Throttle) Allowed(force bool, last, now time.Time, dndEnabled bool) bool {
	if dndEnabled && t.DND.Quiet(now) {
		return false
	}
	if force {
		return true
	}
	return now.Sub(last) > t.Period
}
