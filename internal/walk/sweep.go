package walk

import (
	"context"

	"catbot/internal/timespec"
	"catbot/pkg/logx"
)

// sweepWindowMinutes is how close (in minutes) a walk must be before the
// sweep starts reminding.
const sweepWindowMinutes = 30

// Sweep is the polling backstop for the one-shot reminder set. On each tick
// it recomputes minutes-until-walk for every cat with a stored walk time:
//
//   - walk time already passed: the walk lapsed, clear it silently
//   - 1..30 minutes left: remind owner and connected users it is due soon,
//     at most once per stored walk target no matter how often the sweep runs
//   - 0 minutes left: send "time now" and clear the walk time (consumed)
//
// The sweep and the one-shot scheduler are deliberately uncoordinated; both
// firing for the same walk is redundant but harmless.
func (s *Service) Sweep(ctx context.Context) {
	now := s.now().In(s.loc)
	current := timespec.Result{Hour: now.Hour(), Minute: now.Minute()}

	for _, cat := range s.registry.All() {
		if cat.WalkTime == "" {
			continue
		}
		target, err := timespec.Parse(cat.WalkTime)
		if err != nil {
			// Corrupt stored value; drop it rather than re-parsing forever.
			s.log.Warn("invalid stored walk time", logx.Int64("subject", cat.OwnerID), logx.String("walk_time", cat.WalkTime))
			s.dropWalk(ctx, cat.OwnerID)
			continue
		}

		if current.HHMM() > cat.WalkTime {
			// Lapsed without being consumed.
			s.dropWalk(ctx, cat.OwnerID)
			continue
		}

		minutesLeft := target.MinuteOfDay() - current.MinuteOfDay()
		if minutesLeft < 0 || minutesLeft > sweepWindowMinutes {
			continue
		}

		var msg string
		if minutesLeft > 0 {
			if !s.markAnnounced(cat.OwnerID, cat.WalkTime) {
				continue
			}
			msg = dueSoonMessage(minutesLeft)
		} else {
			msg = timeNowMessage()
			s.dropWalk(ctx, cat.OwnerID)
		}
		for _, uid := range cat.Participants() {
			s.notifier.Send(ctx, uid, msg)
		}
	}
}

// dropWalk clears the stored walk time together with its due-soon marker.
func (s *Service) dropWalk(ctx context.Context, ownerID int64) {
	_, _ = s.registry.ClearWalkTime(ctx, ownerID)
	s.mu.Lock()
	delete(s.announced, ownerID)
	s.mu.Unlock()
}

// markAnnounced records a due-soon delivery for the given walk target.
// Reports false when that target was already announced, so a minutely sweep
// speaks once per walk instead of once per tick.
func (s *Service) markAnnounced(ownerID int64, walkTime string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.announced[ownerID] == walkTime {
		return false
	}
	s.announced[ownerID] = walkTime
	return true
}
