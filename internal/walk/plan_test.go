package walk

import (
	"testing"
	"time"
)

func date(h, m int) time.Time {
	return time.Date(2026, 4, 10, h, m, 0, 0, time.UTC)
}

func TestNextOccurrence(t *testing.T) {
	t.Parallel()
	now := date(12, 0)

	got := NextOccurrence(now, 14, 30)
	if want := date(14, 30); !got.Equal(want) {
		t.Fatalf("future today: got %v, want %v", got, want)
	}

	got = NextOccurrence(now, 9, 0)
	if want := date(9, 0).AddDate(0, 0, 1); !got.Equal(want) {
		t.Fatalf("already past: got %v, want %v", got, want)
	}

	// Exactly now rolls to tomorrow: the walk always refers to a future
	// occurrence.
	got = NextOccurrence(now, 12, 0)
	if want := date(12, 0).AddDate(0, 0, 1); !got.Equal(want) {
		t.Fatalf("exactly now: got %v, want %v", got, want)
	}
}

func TestPlanAllOffsetsSurvive(t *testing.T) {
	t.Parallel()
	now := date(12, 0)
	target := date(14, 0)

	rems := Plan(now, target)
	if len(rems) != 4 {
		t.Fatalf("got %d reminders, want 4", len(rems))
	}
	wantOffsets := []int{60, 30, 10, 0}
	for i, rem := range rems {
		if rem.OffsetMinutes != wantOffsets[i] {
			t.Fatalf("reminder %d offset = %d, want %d", i, rem.OffsetMinutes, wantOffsets[i])
		}
		if want := target.Add(-time.Duration(wantOffsets[i]) * time.Minute); !rem.At.Equal(want) {
			t.Fatalf("reminder %d at %v, want %v", i, rem.At, want)
		}
	}
}

func TestPlanSkipsPastOffsets(t *testing.T) {
	t.Parallel()
	now := date(12, 0)

	// Target 5 minutes out: 60/30/10 all compute past instants, only the
	// walk itself survives.
	rems := Plan(now, date(12, 5))
	if len(rems) != 1 || rems[0].OffsetMinutes != 0 {
		t.Fatalf("got %+v, want only the 0-offset reminder", rems)
	}

	// Target 20 minutes out: 10 and 0 survive.
	rems = Plan(now, date(12, 20))
	if len(rems) != 2 || rems[0].OffsetMinutes != 10 || rems[1].OffsetMinutes != 0 {
		t.Fatalf("got %+v, want offsets [10 0]", rems)
	}

	// Offset landing exactly on now is skipped (no immediate fire).
	rems = Plan(now, date(12, 10))
	if len(rems) != 1 || rems[0].OffsetMinutes != 0 {
		t.Fatalf("boundary: got %+v, want only the 0-offset reminder", rems)
	}
}
