// Package walk schedules the staggered walk reminders and the polling
// fallback sweep. A walk always refers to the next upcoming occurrence of its
// time-of-day, never the past.
package walk

import "time"

// Offsets are the minutes-before-target at which reminders fire, in the order
// they are registered.
var Offsets = []int{60, 30, 10, 0}

// Reminder is one planned one-shot delivery.
type Reminder struct {
	// OffsetMinutes is minutes before target (0 = the walk itself).
	OffsetMinutes int
	At            time.Time
}

// NextOccurrence returns the next wall-clock occurrence of (hour, minute) in
// now's location: today if still ahead of now, else tomorrow.
func NextOccurrence(now time.Time, hour, minute int) time.Time {
	target := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !target.After(now) {
		target = target.AddDate(0, 0, 1)
	}
	return target
}

// Plan computes the surviving reminders for target. Offsets whose fire
// instant is already at or before now are skipped entirely: no backfill, no
// immediate fire for missed offsets, so a near-term target never floods the
// user with stale notifications.
func Plan(now, target time.Time) []Reminder {
	out := make([]Reminder, 0, len(Offsets))
	for _, off := range Offsets {
		at := target.Add(-time.Duration(off) * time.Minute)
		if !at.After(now) {
			continue
		}
		out = append(out, Reminder{OffsetMinutes: off, At: at})
	}
	return out
}
