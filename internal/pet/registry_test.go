package pet

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// countingStore records saves so tests can assert which operations persist.
type countingStore struct {
	mu    sync.Mutex
	saves int
	last  Snapshot
	fail  error
}

func (s *countingStore) Load(ctx context.Context) (Snapshot, error) { return Snapshot{}, nil }

func (s *countingStore) Save(ctx context.Context, st Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.saves++
	s.last = st
	return nil
}

func (s *countingStore) Close() error { return nil }

func (s *countingStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func newTestRegistry(t *testing.T) (*Registry, *countingStore) {
	t.Helper()
	st := &countingStore{}
	r := NewRegistry(st, 24*time.Hour, testLogger())
	return r, st
}

func TestCreateOnePerOwner(t *testing.T) {
	t.Parallel()
	r, st := newTestRegistry(t)
	ctx := context.Background()

	c, code, err := r.Create(ctx, 100, "Whiskers", ColorGinger)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.Hunger != StatMax || c.Happiness != StatMax || c.Energy != StatMax {
		t.Fatalf("new cat stats = %d/%d/%d, want full", c.Hunger, c.Happiness, c.Energy)
	}
	if len(code) != 6 {
		t.Fatalf("code = %q, want 6 chars", code)
	}
	if st.count() != 1 {
		t.Fatalf("saves = %d, want 1", st.count())
	}

	if _, _, err := r.Create(ctx, 100, "Again", ColorGrey); !errors.Is(err, ErrHasCat) {
		t.Fatalf("second Create = %v, want ErrHasCat", err)
	}
}

func TestFeedAtFullHungerRejectedWithoutSave(t *testing.T) {
	t.Parallel()
	r, st := newTestRegistry(t)
	ctx := context.Background()
	_, _, err := r.Create(ctx, 100, "Whiskers", ColorGrey)
	if err != nil {
		t.Fatal(err)
	}
	before := st.count()

	c, out, err := r.Apply(ctx, 100, ActionFeed)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if out != OutcomeNotHungry {
		t.Fatalf("outcome = %v, want OutcomeNotHungry", out)
	}
	if c.Hunger != StatMax {
		t.Fatalf("hunger changed to %d", c.Hunger)
	}
	if st.count() != before {
		t.Fatalf("rejected action persisted (saves %d -> %d)", before, st.count())
	}
}

func TestPlayAndSleepRules(t *testing.T) {
	t.Parallel()
	r, _ := newTestRegistry(t)
	ctx := context.Background()
	if _, _, err := r.Create(ctx, 100, "Whiskers", ColorBlack); err != nil {
		t.Fatal(err)
	}

	// Play: +1 happiness (clamped at max), -1 energy.
	c, out, _ := r.Apply(ctx, 100, ActionPlay)
	if out != OutcomeApplied {
		t.Fatalf("play outcome = %v", out)
	}
	if c.Happiness != StatMax || c.Energy != StatMax-1 {
		t.Fatalf("after play: happiness=%d energy=%d", c.Happiness, c.Energy)
	}

	// Drain energy, then play must be rejected.
	for i := 0; i < StatMax; i++ {
		c, _, _ = r.Apply(ctx, 100, ActionPlay)
	}
	if c.Energy != StatMin {
		t.Fatalf("energy = %d, want %d", c.Energy, StatMin)
	}
	if _, out, _ = r.Apply(ctx, 100, ActionPlay); out != OutcomeTooTired {
		t.Fatalf("play at zero energy = %v, want OutcomeTooTired", out)
	}

	// Sleep restores two, clamped.
	c, out, _ = r.Apply(ctx, 100, ActionSleep)
	if out != OutcomeApplied || c.Energy != 2 {
		t.Fatalf("after sleep: outcome=%v energy=%d", out, c.Energy)
	}
	c, _, _ = r.Apply(ctx, 100, ActionSleep)
	if c.Energy != StatMax {
		t.Fatalf("energy = %d, want clamp at %d", c.Energy, StatMax)
	}
	if _, out, _ = r.Apply(ctx, 100, ActionSleep); out != OutcomeNotSleepy {
		t.Fatalf("sleep at full energy = %v, want OutcomeNotSleepy", out)
	}
}

func TestApplyWithoutCat(t *testing.T) {
	t.Parallel()
	r, _ := newTestRegistry(t)
	if _, _, err := r.Apply(context.Background(), 555, ActionFeed); !errors.Is(err, ErrNoCat) {
		t.Fatalf("err = %v, want ErrNoCat", err)
	}
}

func TestDecayClampsAndBatchSaves(t *testing.T) {
	t.Parallel()
	r, st := newTestRegistry(t)
	ctx := context.Background()
	if _, _, err := r.Create(ctx, 100, "Whiskers", ColorWhite); err != nil {
		t.Fatal(err)
	}

	// Shape stats to hunger=0, happiness=2, energy=4 using decay and actions.
	for i := 0; i < 4; i++ {
		r.DecayAll(ctx)
	}
	c, _ := r.Resolve(100)
	if c.Hunger != 0 || c.Happiness != 0 || c.Energy != 0 {
		t.Fatalf("after 4 decays: %d/%d/%d", c.Hunger, c.Happiness, c.Energy)
	}
	// Restore energy to 4, happiness to 2.
	r.Apply(ctx, 100, ActionSleep)
	r.Apply(ctx, 100, ActionSleep)
	r.Apply(ctx, 100, ActionPlay)
	r.Apply(ctx, 100, ActionPlay)
	r.Apply(ctx, 100, ActionSleep)
	c, _ = r.Resolve(100)
	if c.Hunger != 0 || c.Happiness != 2 || c.Energy != 4 {
		t.Fatalf("setup state: %d/%d/%d, want 0/2/4", c.Hunger, c.Happiness, c.Energy)
	}

	before := st.count()
	if n := r.DecayAll(ctx); n != 1 {
		t.Fatalf("DecayAll touched %d cats", n)
	}
	c, _ = r.Resolve(100)
	if c.Hunger != 0 || c.Happiness != 1 || c.Energy != 3 {
		t.Fatalf("after decay: %d/%d/%d, want 0/1/3", c.Hunger, c.Happiness, c.Energy)
	}
	if st.count() != before+1 {
		t.Fatalf("decay pass must save exactly once, saves %d -> %d", before, st.count())
	}
}

func TestRedeemLifecycle(t *testing.T) {
	t.Parallel()
	r, _ := newTestRegistry(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base
	r.SetClock(func() time.Time { return now })

	_, code, err := r.Create(ctx, 100, "Whiskers", ColorGrey)
	if err != nil {
		t.Fatal(err)
	}

	if _, _, err := r.Redeem(ctx, "NOPE42", 200); !errors.Is(err, ErrCodeInvalid) {
		t.Fatalf("unknown code: %v", err)
	}

	c, added, err := r.Redeem(ctx, code, 200)
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if !added || len(c.ConnectedUsers) != 1 || c.ConnectedUsers[0] != 200 {
		t.Fatalf("connected = %v added=%v", c.ConnectedUsers, added)
	}

	// Second redeem of the same code is harmless, not a duplicate.
	c, added, err = r.Redeem(ctx, code, 200)
	if err != nil || added {
		t.Fatalf("repeat redeem: added=%v err=%v", added, err)
	}
	if len(c.ConnectedUsers) != 1 {
		t.Fatalf("duplicate connected user: %v", c.ConnectedUsers)
	}

	// An owner cannot connect to another cat.
	if _, _, err := r.Redeem(ctx, code, 100); !errors.Is(err, ErrHasCat) {
		t.Fatalf("owner redeem: %v", err)
	}

	// Expiry.
	now = base.Add(25 * time.Hour)
	if _, _, err := r.Redeem(ctx, code, 300); !errors.Is(err, ErrCodeExpired) {
		t.Fatalf("expired redeem: %v", err)
	}
}

func TestCleanupCodes(t *testing.T) {
	t.Parallel()
	r, _ := newTestRegistry(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base
	r.SetClock(func() time.Time { return now })

	if _, _, err := r.Create(ctx, 100, "Whiskers", ColorGrey); err != nil {
		t.Fatal(err)
	}
	if n := r.CleanupCodes(ctx); n != 0 {
		t.Fatalf("fresh code swept: %d", n)
	}
	now = base.Add(25 * time.Hour)
	if n := r.CleanupCodes(ctx); n != 1 {
		t.Fatalf("expired sweep removed %d, want 1", n)
	}
}

func TestClearWalkTimeWhenUnset(t *testing.T) {
	t.Parallel()
	r, st := newTestRegistry(t)
	ctx := context.Background()
	if _, _, err := r.Create(ctx, 100, "Whiskers", ColorGrey); err != nil {
		t.Fatal(err)
	}
	before := st.count()

	had, err := r.ClearWalkTime(ctx, 100)
	if err != nil {
		t.Fatalf("ClearWalkTime: %v", err)
	}
	if had {
		t.Fatal("reported a walk time where none was set")
	}
	if st.count() != before {
		t.Fatal("no-op clear must not persist")
	}

	if _, err := r.SetWalkTime(ctx, 100, "14:30"); err != nil {
		t.Fatal(err)
	}
	had, err = r.ClearWalkTime(ctx, 100)
	if err != nil || !had {
		t.Fatalf("clear set time: had=%v err=%v", had, err)
	}
	c, _ := r.Resolve(100)
	if c.WalkTime != "" {
		t.Fatalf("walk time still %q", c.WalkTime)
	}
}

func TestMessageCooldown(t *testing.T) {
	t.Parallel()
	r, _ := newTestRegistry(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base
	r.SetClock(func() time.Time { return now })

	if _, _, err := r.Create(ctx, 100, "Whiskers", ColorGrey); err != nil {
		t.Fatal(err)
	}
	cooldown := 24 * time.Hour

	if left := r.MessageWait(100, 100, cooldown); left != 0 {
		t.Fatalf("fresh user wait = %v", left)
	}
	r.MarkMessage(ctx, 100, 100)
	now = base.Add(20 * time.Hour)
	if left := r.MessageWait(100, 100, cooldown); left != 4*time.Hour {
		t.Fatalf("wait = %v, want 4h", left)
	}
	now = base.Add(25 * time.Hour)
	if left := r.MessageWait(100, 100, cooldown); left != 0 {
		t.Fatalf("wait after cooldown = %v", left)
	}
}

func TestSaveFailureIsSwallowed(t *testing.T) {
	t.Parallel()
	st := &countingStore{fail: errors.New("disk full")}
	r := NewRegistry(st, 24*time.Hour, testLogger())
	ctx := context.Background()

	c, _, err := r.Create(ctx, 100, "Whiskers", ColorGrey)
	if err != nil {
		t.Fatalf("Create must survive a failed save: %v", err)
	}
	if c.Name != "Whiskers" {
		t.Fatalf("in-memory state lost: %+v", c)
	}
}
