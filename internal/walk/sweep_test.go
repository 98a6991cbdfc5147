package walk

import (
	"context"
	"strings"
	"testing"

	"catbot/internal/pet"
)

func TestSweepLapsesPastWalk(t *testing.T) {
	t.Parallel()
	now := date(15, 0)
	svc, reg, _, rn := newTestService(t, &now)
	ctx := context.Background()

	if _, _, err := reg.Create(ctx, 100, "whiskers", pet.ColorGrey); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.SetWalkTime(ctx, 100, "14:00"); err != nil {
		t.Fatal(err)
	}

	svc.Sweep(ctx)

	if rn.count() != 0 {
		t.Fatalf("lapsed walk produced %d messages", rn.count())
	}
	c, _ := reg.Resolve(100)
	if c.WalkTime != "" {
		t.Fatalf("lapsed walk time not cleared: %q", c.WalkTime)
	}
}

func TestSweepDueSoon(t *testing.T) {
	t.Parallel()
	now := date(13, 40)
	svc, reg, _, rn := newTestService(t, &now)
	ctx := context.Background()

	_, code, err := reg.Create(ctx, 100, "whiskers", pet.ColorGrey)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := reg.Redeem(ctx, code, 200); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.SetWalkTime(ctx, 100, "14:00"); err != nil {
		t.Fatal(err)
	}

	svc.Sweep(ctx)

	owner := rn.byUser(100)
	if len(owner) != 1 || !strings.Contains(owner[0], "20 minutes") {
		t.Fatalf("owner got %v, want one '20 minutes' reminder", owner)
	}
	connected := rn.byUser(200)
	if len(connected) != 1 {
		t.Fatalf("connected user got %v", connected)
	}

	// Due-soon does not consume the walk time.
	c, _ := reg.Resolve(100)
	if c.WalkTime != "14:00" {
		t.Fatalf("walk time consumed early: %q", c.WalkTime)
	}
}

func TestSweepTimeNowConsumesWalk(t *testing.T) {
	t.Parallel()
	now := date(14, 0)
	svc, reg, _, rn := newTestService(t, &now)
	ctx := context.Background()

	if _, _, err := reg.Create(ctx, 100, "whiskers", pet.ColorGrey); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.SetWalkTime(ctx, 100, "14:00"); err != nil {
		t.Fatal(err)
	}

	svc.Sweep(ctx)

	owner := rn.byUser(100)
	if len(owner) != 1 || !strings.Contains(owner[0], "Time to walk") {
		t.Fatalf("owner got %v, want 'Time to walk'", owner)
	}
	c, _ := reg.Resolve(100)
	if c.WalkTime != "" {
		t.Fatalf("walk time not consumed: %q", c.WalkTime)
	}

	// A second sweep right after stays silent.
	svc.Sweep(ctx)
	if rn.count() != 1 {
		t.Fatalf("second sweep sent again: %d messages", rn.count())
	}
}

func TestSweepDueSoonSpeaksOncePerWalk(t *testing.T) {
	t.Parallel()
	now := date(13, 31)
	svc, reg, _, rn := newTestService(t, &now)
	ctx := context.Background()

	if _, _, err := reg.Create(ctx, 100, "whiskers", pet.ColorGrey); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.SetWalkTime(ctx, 100, "14:00"); err != nil {
		t.Fatal(err)
	}

	// A minutely sweep crosses the whole due-soon window.
	for m := 31; m <= 59; m++ {
		now = date(13, m)
		svc.Sweep(ctx)
	}
	owner := rn.byUser(100)
	if len(owner) != 1 || !strings.Contains(owner[0], "29 minutes") {
		t.Fatalf("owner got %v, want one '29 minutes' reminder", owner)
	}

	// A new walk target is announced again.
	if _, err := reg.SetWalkTime(ctx, 100, "14:30"); err != nil {
		t.Fatal(err)
	}
	now = date(14, 5)
	svc.Sweep(ctx)
	if got := rn.byUser(100); len(got) != 2 || !strings.Contains(got[1], "25 minutes") {
		t.Fatalf("owner got %v, want a second '25 minutes' reminder", got)
	}
}

func TestSweepOutsideWindowIsSilent(t *testing.T) {
	t.Parallel()
	now := date(10, 0)
	svc, reg, _, rn := newTestService(t, &now)
	ctx := context.Background()

	if _, _, err := reg.Create(ctx, 100, "whiskers", pet.ColorGrey); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.SetWalkTime(ctx, 100, "14:00"); err != nil {
		t.Fatal(err)
	}

	svc.Sweep(ctx)

	if rn.count() != 0 {
		t.Fatalf("sweep 4h ahead of the walk sent %d messages", rn.count())
	}
	c, _ := reg.Resolve(100)
	if c.WalkTime != "14:00" {
		t.Fatalf("walk time touched: %q", c.WalkTime)
	}
}
