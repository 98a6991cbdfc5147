// Package care runs the recurring upkeep jobs: stat decay, connection-code
// cleanup and the fixed-date calendar broadcasts.
package care

import (
	"context"
	"fmt"
	"time"

	"catbot/internal/pet"
	"catbot/internal/timespec"
	"catbot/internal/walk"
	"catbot/pkg/logx"
)

// Config are the care-loop knobs, already parsed from the config file.
type Config struct {
	// NightStart/NightEnd bound the quiet hours (inclusive, may wrap
	// midnight) during which stat decay is suspended.
	NightStart timespec.Result
	NightEnd   timespec.Result

	// DecayEvery is the decay tick interval.
	DecayEvery time.Duration
}

// Notifier delivers broadcast text; implemented by internal/notify.Service.
type Notifier interface {
	Send(ctx context.Context, userID int64, text string)
}

// Service runs the upkeep jobs against the shared registry.
type Service struct {
	cfg      Config
	registry *pet.Registry
	notifier Notifier
	log      logx.Logger
	loc      *time.Location
	now      func() time.Time
}

func NewService(cfg Config, registry *pet.Registry, notifier Notifier, loc *time.Location, log logx.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.DecayEvery <= 0 {
		cfg.DecayEvery = 6 * time.Hour
	}
	return &Service{
		cfg:      cfg,
		registry: registry,
		notifier: notifier,
		log:      log,
		loc:      loc,
		now:      time.Now,
	}
}

// SetClock overrides the service clock. Test hook.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Scheduler is the registration surface; implemented by
// internal/scheduler.Service.
type Scheduler interface {
	AddCron(name, spec string, job func(ctx context.Context)) error
	AddInterval(name string, every time.Duration, job func(ctx context.Context)) error
}

// Register wires all recurring jobs. The sweep is the polling backstop for
// walk reminders (see walk.Service.Sweep).
func (s *Service) Register(sched Scheduler, walkSvc *walk.Service) error {
	if err := sched.AddInterval("care:decay", s.cfg.DecayEvery, s.Decay); err != nil {
		return fmt.Errorf("register decay: %w", err)
	}
	if err := sched.AddInterval("care:codes", time.Hour, func(ctx context.Context) {
		if n := s.registry.CleanupCodes(ctx); n > 0 {
			s.log.Info("expired connection codes removed", logx.Int("count", n))
		}
	}); err != nil {
		return fmt.Errorf("register code cleanup: %w", err)
	}
	// Annual greetings: birthday Jan 26, new year Jan 1, both at midnight.
	if err := sched.AddCron("care:birthday", "0 0 26 1 *", s.SendBirthdayGreetings); err != nil {
		return fmt.Errorf("register birthday greeting: %w", err)
	}
	if err := sched.AddCron("care:newyear", "0 0 1 1 *", s.SendNewYearGreetings); err != nil {
		return fmt.Errorf("register new-year greeting: %w", err)
	}
	if err := sched.AddInterval("walk:sweep", time.Minute, walkSvc.Sweep); err != nil {
		return fmt.Errorf("register walk sweep: %w", err)
	}
	return nil
}

// Decay is one decay tick: skipped entirely inside quiet hours, otherwise
// every cat loses one point of each stat (clamped at zero) and the whole
// registry is persisted once.
func (s *Service) Decay(ctx context.Context) {
	now := s.now().In(s.loc)
	if s.inQuietHours(now) {
		s.log.Debug("decay skipped (quiet hours)")
		return
	}
	n := s.registry.DecayAll(ctx)
	s.log.Debug("stats decayed", logx.Int("cats", n))
}

// inQuietHours reports whether t falls within [NightStart, NightEnd],
// inclusive on both ends. The window may wrap midnight (e.g. 22:00-06:00).
func (s *Service) inQuietHours(t time.Time) bool {
	cur := t.Hour()*60 + t.Minute()
	start := s.cfg.NightStart.MinuteOfDay()
	end := s.cfg.NightEnd.MinuteOfDay()
	if start == end {
		return cur == start
	}
	if start < end {
		return cur >= start && cur <= end
	}
	return cur >= start || cur <= end
}

// SendBirthdayGreetings sends the fixed birthday message from each cat to its
// owner only.
func (s *Service) SendBirthdayGreetings(ctx context.Context) {
	for _, cat := range s.registry.All() {
		text := fmt.Sprintf(
			"A message from %s:\n\n"+
				"Happy birthday! 🎉🎂\n"+
				"Thank you for feeding me, playing with me and loving me. "+
				"You are the best human ever! ❤️\n"+
				"Wishing you lots of joy and tasty treats.\n\n"+
				"Your cat 🐱", cat.Name)
		s.notifier.Send(ctx, cat.OwnerID, text)
	}
	s.log.Info("birthday greetings sent")
}

// SendNewYearGreetings sends the fixed new-year message to every owner and
// every connected user. No dedup, no opt-out.
func (s *Service) SendNewYearGreetings(ctx context.Context) {
	const text = "Happy New Year!!! ❤️🎄🎅🎁✨"
	for _, cat := range s.registry.All() {
		for _, uid := range cat.Participants() {
			s.notifier.Send(ctx, uid, text)
		}
	}
	s.log.Info("new-year greetings sent")
}
