package pet

import (
	"context"
	"errors"
	"sync"
	"time"

	"catbot/pkg/logx"
)

var (
	// ErrNoCat means the acting user neither owns nor is connected to a pet.
	ErrNoCat = errors.New("pet: no cat for user")
	// ErrHasCat means the user already owns a cat.
	ErrHasCat = errors.New("pet: user already has a cat")
	// ErrCodeInvalid means the connection code is unknown.
	ErrCodeInvalid = errors.New("pet: unknown connection code")
	// ErrCodeExpired means the connection code exists but its TTL has passed.
	ErrCodeExpired = errors.New("pet: connection code expired")
)

// Snapshot is the full persisted state: every cat plus the live connection
// codes. It is what the storage collaborator loads and saves.
type Snapshot struct {
	Cats  map[int64]*Cat            `json:"cats"`
	Codes map[string]ConnectionCode `json:"connection_codes"`
}

// Store is the persistence API the registry needs. Implementations live in
// internal/storage.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, st Snapshot) error
	Close() error
}

// Registry owns all pets and connection codes. Every mutation goes through a
// method that persists afterwards; a failed save is logged and swallowed, the
// in-memory state stays authoritative until the next successful save.
type Registry struct {
	mu    sync.Mutex
	cats  map[int64]*Cat
	codes map[string]ConnectionCode

	store   Store
	log     logx.Logger
	codeTTL time.Duration
	now     func() time.Time
}

// NewRegistry creates an empty registry backed by store. store may be nil
// (memory only, e.g. in tests).
func NewRegistry(store Store, codeTTL time.Duration, log logx.Logger) *Registry {
	if log.IsZero() {
		log = logx.Nop()
	}
	if codeTTL <= 0 {
		codeTTL = 24 * time.Hour
	}
	return &Registry{
		cats:    map[int64]*Cat{},
		codes:   map[string]ConnectionCode{},
		store:   store,
		log:     log,
		codeTTL: codeTTL,
		now:     time.Now,
	}
}

// SetClock overrides the registry clock. Test hook.
func (r *Registry) SetClock(now func() time.Time) { r.now = now }

// Load replaces in-memory state with the persisted snapshot.
func (r *Registry) Load(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	st, err := r.store.Load(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if st.Cats != nil {
		r.cats = st.Cats
	}
	if st.Codes != nil {
		r.codes = st.Codes
	}
	r.log.Info("state loaded", logx.Int("cats", len(r.cats)), logx.Int("codes", len(r.codes)))
	return nil
}

// saveLocked persists the current state. Call with r.mu held.
// Persistence failure is non-fatal: logged and swallowed.
func (r *Registry) saveLocked(ctx context.Context) {
	if r.store == nil {
		return
	}
	st := Snapshot{
		Cats:  make(map[int64]*Cat, len(r.cats)),
		Codes: make(map[string]ConnectionCode, len(r.codes)),
	}
	for id, c := range r.cats {
		cp := c.clone()
		st.Cats[id] = &cp
	}
	for code, cc := range r.codes {
		st.Codes[code] = cc
	}
	if err := r.store.Save(ctx, st); err != nil {
		r.log.Error("state save failed", logx.Err(err))
	}
}

// Create makes a new cat for ownerID and mints a connection code for it.
func (r *Registry) Create(ctx context.Context, ownerID int64, name string, color Color) (Cat, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cats[ownerID]; ok {
		return Cat{}, "", ErrHasCat
	}
	c := NewCat(ownerID, name, color, r.now())
	r.cats[ownerID] = c

	code := newCode()
	for _, taken := r.codes[code]; taken; _, taken = r.codes[code] {
		code = newCode()
	}
	r.codes[code] = ConnectionCode{OwnerID: ownerID, ExpiresAt: r.now().Add(r.codeTTL)}

	r.saveLocked(ctx)
	return c.clone(), code, nil
}

// HasCat reports whether ownerID owns a cat.
func (r *Registry) HasCat(ownerID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.cats[ownerID]
	return ok
}

// Resolve finds the cat userID participates in (as owner or connected user).
func (r *Registry) Resolve(userID int64) (Cat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.resolveLocked(userID)
	if c == nil {
		return Cat{}, ErrNoCat
	}
	return c.clone(), nil
}

func (r *Registry) resolveLocked(userID int64) *Cat {
	if c, ok := r.cats[userID]; ok {
		return c
	}
	for _, c := range r.cats {
		if c.IsParticipant(userID) {
			return c
		}
	}
	return nil
}

// Apply runs a button action on behalf of userID. Rejected actions mutate
// nothing and do not persist.
func (r *Registry) Apply(ctx context.Context, userID int64, a Action) (Cat, ActionOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.resolveLocked(userID)
	if c == nil {
		return Cat{}, OutcomeNoChange, ErrNoCat
	}
	out := c.apply(a)
	if out == OutcomeApplied {
		r.saveLocked(ctx)
	}
	return c.clone(), out, nil
}

// SetWalkTime stores the normalized walk time on the subject's cat.
func (r *Registry) SetWalkTime(ctx context.Context, ownerID int64, hhmm string) (Cat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cats[ownerID]
	if !ok {
		return Cat{}, ErrNoCat
	}
	c.WalkTime = hhmm
	r.saveLocked(ctx)
	return c.clone(), nil
}

// ClearWalkTime removes the stored walk time. Reports whether one was set;
// clearing an unset time is a no-op and does not persist.
func (r *Registry) ClearWalkTime(ctx context.Context, ownerID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cats[ownerID]
	if !ok {
		return false, ErrNoCat
	}
	if c.WalkTime == "" {
		return false, nil
	}
	c.WalkTime = ""
	r.saveLocked(ctx)
	return true, nil
}

// Redeem consumes a connection code on behalf of userID. The code stays in
// the map until the expiry sweep removes it; redeeming twice is harmless.
// added reports whether the user was newly connected.
func (r *Registry) Redeem(ctx context.Context, code string, userID int64) (Cat, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cats[userID]; ok {
		return Cat{}, false, ErrHasCat
	}
	cc, ok := r.codes[code]
	if !ok {
		return Cat{}, false, ErrCodeInvalid
	}
	if r.now().After(cc.ExpiresAt) {
		delete(r.codes, code)
		r.saveLocked(ctx)
		return Cat{}, false, ErrCodeExpired
	}
	c, ok := r.cats[cc.OwnerID]
	if !ok {
		// Owner deleted their data between mint and redeem.
		delete(r.codes, code)
		return Cat{}, false, ErrCodeInvalid
	}
	added := c.connect(userID)
	if added {
		r.saveLocked(ctx)
	}
	return c.clone(), added, nil
}

// DecayAll drops every stat of every cat by one (clamped) and persists once.
// Returns the number of cats touched.
func (r *Registry) DecayAll(ctx context.Context) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.cats {
		c.decay()
	}
	n := len(r.cats)
	if n > 0 {
		r.saveLocked(ctx)
	}
	return n
}

// CleanupCodes removes expired connection codes. Returns how many went away.
func (r *Registry) CleanupCodes(ctx context.Context) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	removed := 0
	for code, cc := range r.codes {
		if now.After(cc.ExpiresAt) {
			delete(r.codes, code)
			removed++
		}
	}
	if removed > 0 {
		r.saveLocked(ctx)
	}
	return removed
}

// All returns clones of every cat, for broadcast fan-out and sweeps.
func (r *Registry) All() []Cat {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Cat, 0, len(r.cats))
	for _, c := range r.cats {
		out = append(out, c.clone())
	}
	return out
}

// MessageWait returns the remaining cooldown before userID may relay another
// free-text message, or zero when sending is allowed.
func (r *Registry) MessageWait(ownerID, userID int64, cooldown time.Duration) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cats[ownerID]
	if !ok || c.LastMessages == nil {
		return 0
	}
	last, ok := c.LastMessages[userID]
	if !ok {
		return 0
	}
	left := cooldown - r.now().Sub(last)
	if left < 0 {
		return 0
	}
	return left
}

// MarkMessage records that userID relayed a message now.
func (r *Registry) MarkMessage(ctx context.Context, ownerID, userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cats[ownerID]
	if !ok {
		return
	}
	if c.LastMessages == nil {
		c.LastMessages = map[int64]time.Time{}
	}
	c.LastMessages[userID] = r.now()
	r.saveLocked(ctx)
}
