package care

import (
	"context"
	"sync"
	"testing"
	"time"

	"catbot/internal/pet"
	"catbot/internal/timespec"
	"catbot/pkg/logx"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent map[int64][]string
}

func (n *recordingNotifier) Send(ctx context.Context, userID int64, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sent == nil {
		n.sent = map[int64][]string{}
	}
	n.sent[userID] = append(n.sent[userID], text)
}

func (n *recordingNotifier) counts() map[int64]int {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := map[int64]int{}
	for id, msgs := range n.sent {
		out[id] = len(msgs)
	}
	return out
}

func newTestCare(t *testing.T, now *time.Time) (*Service, *pet.Registry, *recordingNotifier) {
	t.Helper()
	reg := pet.NewRegistry(nil, 24*time.Hour, logx.Nop())
	clock := func() time.Time { return *now }
	reg.SetClock(clock)

	rn := &recordingNotifier{}
	svc := NewService(Config{
		NightStart: timespec.Result{Hour: 22},
		NightEnd:   timespec.Result{Hour: 6},
		DecayEvery: 6 * time.Hour,
	}, reg, rn, time.UTC, logx.Nop())
	svc.SetClock(clock)
	return svc, reg, rn
}

func TestDecaySkippedDuringQuietHours(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 4, 10, 23, 30, 0, 0, time.UTC)
	svc, reg, _ := newTestCare(t, &now)
	ctx := context.Background()

	if _, _, err := reg.Create(ctx, 100, "whiskers", pet.ColorGrey); err != nil {
		t.Fatal(err)
	}

	svc.Decay(ctx)
	c, _ := reg.Resolve(100)
	if c.Hunger != 4 || c.Happiness != 4 || c.Energy != 4 {
		t.Fatalf("stats decayed at night: %d/%d/%d", c.Hunger, c.Happiness, c.Energy)
	}

	now = time.Date(2026, 4, 11, 12, 0, 0, 0, time.UTC)
	svc.Decay(ctx)
	c, _ = reg.Resolve(100)
	if c.Hunger != 3 || c.Happiness != 3 || c.Energy != 3 {
		t.Fatalf("daytime decay missing: %d/%d/%d", c.Hunger, c.Happiness, c.Energy)
	}
}

func TestQuietHoursBounds(t *testing.T) {
	t.Parallel()
	now := time.Time{}
	svc, _, _ := newTestCare(t, &now)

	at := func(h, m int) time.Time {
		return time.Date(2026, 4, 10, h, m, 0, 0, time.UTC)
	}
	tests := []struct {
		name  string
		t     time.Time
		quiet bool
	}{
		{"start inclusive", at(22, 0), true},
		{"end inclusive", at(6, 0), true},
		{"midnight", at(0, 0), true},
		{"just before start", at(21, 59), false},
		{"just after end", at(6, 1), false},
		{"midday", at(13, 0), false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := svc.inQuietHours(tt.t); got != tt.quiet {
				t.Fatalf("inQuietHours(%v) = %v, want %v", tt.t, got, tt.quiet)
			}
		})
	}
}

func TestBirthdayGoesToOwnersOnly(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 1, 26, 0, 0, 0, 0, time.UTC)
	svc, reg, rn := newTestCare(t, &now)
	ctx := context.Background()

	_, code, err := reg.Create(ctx, 100, "whiskers", pet.ColorGrey)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := reg.Redeem(ctx, code, 200); err != nil {
		t.Fatal(err)
	}

	svc.SendBirthdayGreetings(ctx)

	got := rn.counts()
	if got[100] != 1 {
		t.Fatalf("owner greetings = %d, want 1", got[100])
	}
	if got[200] != 0 {
		t.Fatalf("connected user got a birthday greeting")
	}
}

func TestNewYearGoesToEveryone(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc, reg, rn := newTestCare(t, &now)
	ctx := context.Background()

	_, code, err := reg.Create(ctx, 100, "whiskers", pet.ColorGrey)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := reg.Redeem(ctx, code, 200); err != nil {
		t.Fatal(err)
	}

	svc.SendNewYearGreetings(ctx)

	got := rn.counts()
	if got[100] != 1 || got[200] != 1 {
		t.Fatalf("greeting counts = %v, want one each", got)
	}
}
