package walk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"catbot/internal/pet"
	"catbot/pkg/logx"
)

// Registrar is the trigger surface the reminder service needs; implemented by
// internal/scheduler.Service.
type Registrar interface {
	AddOnce(name string, at time.Time, job func(ctx context.Context))
	Remove(name string) bool
}

// Notifier delivers reminder text; implemented by internal/notify.Service.
type Notifier interface {
	Send(ctx context.Context, userID int64, text string)
}

// Service owns all pending walk reminders. The subject key is the owner ID;
// after Set returns, the only pending reminders for that subject are exactly
// the ones computed by that call.
type Service struct {
	registry *pet.Registry
	sched    Registrar
	notifier Notifier
	log      logx.Logger
	loc      *time.Location
	now      func() time.Time

	// mu serializes cancel-then-register per call, so a concurrent Set for
	// the same subject can never leave a stale reminder armed. Registration
	// is pure in-memory work, so one lock for all subjects is enough.
	mu      sync.Mutex
	handles map[int64][]string

	// announced maps subject to the walk target the sweep already sent its
	// due-soon reminder for. Guarded by mu.
	announced map[int64]string
}

// NewService wires the reminder scheduler.
func NewService(registry *pet.Registry, sched Registrar, notifier Notifier, loc *time.Location, log logx.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		registry:  registry,
		sched:     sched,
		notifier:  notifier,
		log:       log,
		loc:       loc,
		now:       time.Now,
		handles:   map[int64][]string{},
		announced: map[int64]string{},
	}
}

// SetClock overrides the service clock. Test hook.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Set stores the walk time on the subject's cat and replaces the subject's
// reminder set with one computed from (hour, minute).
//
// An offset whose fire instant is already past is skipped; a subject may end
// up with zero pending reminders, which is fine (the walk time is still set).
// Returns the target instant of the walk.
func (s *Service) Set(ctx context.Context, subjectID int64, hour, minute int) (time.Time, error) {
	target := NextOccurrence(s.now().In(s.loc), hour, minute)
	hhmm := fmt.Sprintf("%02d:%02d", hour, minute)

	cat, err := s.registry.SetWalkTime(ctx, subjectID, hhmm)
	if err != nil {
		return time.Time{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(subjectID)
	delete(s.announced, subjectID)

	rems := Plan(s.now().In(s.loc), target)
	var names []string
	for _, rem := range rems {
		rem := rem
		ownerName := fmt.Sprintf("walk:%d:%d", subjectID, rem.OffsetMinutes)
		ownerMsg := ownerReminder(rem.OffsetMinutes, cat.Name)
		s.sched.AddOnce(ownerName, rem.At, func(ctx context.Context) {
			s.notifier.Send(ctx, subjectID, ownerMsg)
		})
		names = append(names, ownerName)

		for _, uid := range cat.ConnectedUsers {
			uid := uid
			name := fmt.Sprintf("walk:%d:%d:%d", subjectID, rem.OffsetMinutes, uid)
			msg := connectedReminder(rem.OffsetMinutes)
			s.sched.AddOnce(name, rem.At, func(ctx context.Context) {
				s.notifier.Send(ctx, uid, msg)
			})
			names = append(names, name)
		}
	}
	s.handles[subjectID] = names

	s.log.Info("walk reminders set",
		logx.Int64("subject", subjectID),
		logx.String("walk_time", hhmm),
		logx.Time("target", target),
		logx.Int("reminders", len(names)))
	return target, nil
}

// Clear cancels the subject's reminders and clears the stored walk time.
// Reports whether a walk time was actually set; clearing nothing is a
// distinct no-op outcome, not an error.
func (s *Service) Clear(ctx context.Context, subjectID int64) (bool, error) {
	had, err := s.registry.ClearWalkTime(ctx, subjectID)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	s.cancelLocked(subjectID)
	delete(s.announced, subjectID)
	s.mu.Unlock()

	if had {
		s.log.Info("walk reminders cleared", logx.Int64("subject", subjectID))
	}
	return had, nil
}

// cancelLocked removes the subject's handle batch. Call with s.mu held.
func (s *Service) cancelLocked(subjectID int64) {
	for _, name := range s.handles[subjectID] {
		s.sched.Remove(name)
	}
	delete(s.handles, subjectID)
}
