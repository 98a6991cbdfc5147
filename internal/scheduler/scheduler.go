// Package scheduler is the in-process trigger service: recurring cron entries
// plus named one-shot timers. Entries are registered under a stable
// human-readable name and upserted by that name, so repeated registrations
// replace rather than duplicate.
package scheduler

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"catbot/pkg/logx"
)

// Job is a scheduled unit of work. The context is cancelled when the service
// stops. It is an alias so callers can pass plain closures and interfaces can
// name the same signature.
type Job = func(ctx context.Context)

// Service runs cron entries and one-shot timers in a single timezone.
type Service struct {
	log logx.Logger
	loc *time.Location

	mu      sync.Mutex
	c       *cron.Cron
	entries map[string]cron.EntryID
	started bool

	// one-shot timers, guarded separately so a firing timer never blocks
	// cron registration
	tmu    sync.Mutex
	timers map[string]*time.Timer
	vers   map[string]uint64

	runCtx    context.Context
	runCancel context.CancelFunc
}

// New creates a stopped service. loc defaults to time.Local.
func New(loc *time.Location, log logx.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		log:       log,
		loc:       loc,
		c:         cron.New(cron.WithLocation(loc)),
		entries:   map[string]cron.EntryID{},
		timers:    map[string]*time.Timer{},
		vers:      map[string]uint64{},
		runCtx:    ctx,
		runCancel: cancel,
	}
}

// Location returns the service timezone.
func (s *Service) Location() *time.Location { return s.loc }

// Start begins firing triggers. Entries registered before Start are honored.
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.c.Start()
	s.log.Info("scheduler started", logx.String("tz", s.loc.String()), logx.Int("entries", len(s.entries)))
}

// Stop halts cron, stops all one-shot timers and cancels running jobs.
func (s *Service) Stop() {
	s.mu.Lock()
	if s.started {
		<-s.c.Stop().Done()
		s.started = false
	}
	s.mu.Unlock()

	s.tmu.Lock()
	for name, t := range s.timers {
		t.Stop()
		delete(s.timers, name)
		delete(s.vers, name)
	}
	s.tmu.Unlock()

	s.runCancel()
}

// AddCron registers (or replaces) a recurring entry under name.
func (s *Service) AddCron(name, spec string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.entries[name]; ok {
		s.c.Remove(id)
		delete(s.entries, name)
	}
	id, err := s.c.AddFunc(spec, func() { s.run(name, job) })
	if err != nil {
		return err
	}
	s.entries[name] = id
	s.log.Debug("cron entry registered", logx.String("name", name), logx.String("spec", spec))
	return nil
}

// AddInterval registers (or replaces) a fixed-interval entry under name.
func (s *Service) AddInterval(name string, every time.Duration, job Job) error {
	return s.AddCron(name, "@every "+every.String(), job)
}

// AddOnce registers (or replaces) a one-shot trigger under name. A timer
// whose name is re-registered or removed before firing never runs its job:
// the version guard makes stale callbacks no-ops.
func (s *Service) AddOnce(name string, at time.Time, job Job) {
	s.tmu.Lock()
	defer s.tmu.Unlock()

	if t, ok := s.timers[name]; ok {
		t.Stop()
		delete(s.timers, name)
	}
	ver := s.vers[name] + 1
	s.vers[name] = ver

	delay := time.Until(at)
	if delay < 0 {
		delay = 0
	}
	s.timers[name] = time.AfterFunc(delay, func() {
		s.tmu.Lock()
		if s.vers[name] != ver {
			s.tmu.Unlock()
			return
		}
		delete(s.timers, name)
		delete(s.vers, name)
		s.tmu.Unlock()
		s.run(name, job)
	})
	s.log.Debug("one-shot registered", logx.String("name", name), logx.Time("at", at.In(s.loc)))
}

// Remove unschedules the named entry, recurring or one-shot. Reports whether
// anything was removed.
func (s *Service) Remove(name string) bool {
	removed := false

	s.mu.Lock()
	if id, ok := s.entries[name]; ok {
		s.c.Remove(id)
		delete(s.entries, name)
		removed = true
	}
	s.mu.Unlock()

	s.tmu.Lock()
	if t, ok := s.timers[name]; ok {
		t.Stop()
		delete(s.timers, name)
		removed = true
	}
	if _, ok := s.vers[name]; ok {
		delete(s.vers, name)
		removed = true
	}
	s.tmu.Unlock()

	if removed {
		s.log.Debug("entry removed", logx.String("name", name))
	}
	return removed
}

// Pending reports whether a one-shot trigger with the given name is armed.
func (s *Service) Pending(name string) bool {
	s.tmu.Lock()
	defer s.tmu.Unlock()
	_, ok := s.timers[name]
	return ok
}

func (s *Service) run(name string, job Job) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("panic in scheduled job",
					logx.String("name", name),
					logx.Any("panic", r),
					logx.String("stack", string(debug.Stack())))
			}
		}()
		job(s.runCtx)
	}()
}
