// Package pet holds the virtual-cat domain model and the registry that owns
// all pets, connection codes and their persistence.
package pet

import (
	"time"
)

// Stat bounds. Every stat is clamped into [StatMin, StatMax].
const (
	StatMin = 0
	StatMax = 4
)

// Color is a presentation tag chosen at creation time.
type Color string

const (
	ColorGrey   Color = "grey"
	ColorWhite  Color = "white"
	ColorGinger Color = "ginger"
	ColorBlack  Color = "black"
)

// Colors lists the selectable colors in display order.
func Colors() []Color {
	return []Color{ColorGrey, ColorWhite, ColorGinger, ColorBlack}
}

// Valid reports whether c is one of the known colors.
func (c Color) Valid() bool {
	switch c {
	case ColorGrey, ColorWhite, ColorGinger, ColorBlack:
		return true
	}
	return false
}

// Cat is one pet. Identity is the owner's user ID; there is at most one Cat
// per owner.
type Cat struct {
	OwnerID   int64     `json:"owner_id"`
	Name      string    `json:"name"`
	Color     Color     `json:"color"`
	Hunger    int       `json:"hunger"`
	Happiness int       `json:"happiness"`
	Energy    int       `json:"energy"`
	CreatedAt time.Time `json:"created_at"`

	// WalkTime is the scheduled daily walk as "HH:MM", empty when unset.
	WalkTime string `json:"walk_time,omitempty"`

	// ConnectedUsers never contains OwnerID and has no duplicates.
	ConnectedUsers []int64 `json:"connected_users"`

	// LastMessages maps user ID to the send time of that user's last relayed
	// free-text message (24h cooldown).
	LastMessages map[int64]time.Time `json:"last_messages,omitempty"`
}

// NewCat creates a cat with full stats.
func NewCat(ownerID int64, name string, color Color, now time.Time) *Cat {
	return &Cat{
		OwnerID:   ownerID,
		Name:      name,
		Color:     color,
		Hunger:    StatMax,
		Happiness: StatMax,
		Energy:    StatMax,
		CreatedAt: now,
	}
}

// AgeDays is the number of whole days since creation.
func (c *Cat) AgeDays(now time.Time) int {
	d := now.Sub(c.CreatedAt)
	if d < 0 {
		return 0
	}
	return int(d.Hours() / 24)
}

// IsParticipant reports whether userID is the owner or a connected user.
func (c *Cat) IsParticipant(userID int64) bool {
	if userID == c.OwnerID {
		return true
	}
	for _, id := range c.ConnectedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

// Participants returns the owner followed by all connected users.
func (c *Cat) Participants() []int64 {
	out := make([]int64, 0, len(c.ConnectedUsers)+1)
	out = append(out, c.OwnerID)
	out = append(out, c.ConnectedUsers...)
	return out
}

// connect adds userID to the connected set. The owner and duplicates are
// silently ignored. Reports whether the set changed.
func (c *Cat) connect(userID int64) bool {
	if c.IsParticipant(userID) {
		return false
	}
	c.ConnectedUsers = append(c.ConnectedUsers, userID)
	return true
}

// decay drops every stat by one, clamped at StatMin.
func (c *Cat) decay() {
	c.Hunger = clamp(c.Hunger - 1)
	c.Happiness = clamp(c.Happiness - 1)
	c.Energy = clamp(c.Energy - 1)
}

func clamp(v int) int {
	if v < StatMin {
		return StatMin
	}
	if v > StatMax {
		return StatMax
	}
	return v
}

// Action is a button-driven interaction with the cat.
type Action string

const (
	ActionFeed   Action = "feed"
	ActionPlay   Action = "play"
	ActionSleep  Action = "sleep"
	ActionStatus Action = "status"
)

// ActionOutcome classifies the result of applying an Action.
// Rejections are normal outcomes, not errors, and cause no state change.
type ActionOutcome int

const (
	OutcomeApplied ActionOutcome = iota
	OutcomeNotHungry
	OutcomeTooTired
	OutcomeNotSleepy
	OutcomeNoChange // status view, nothing mutated
)

// apply mutates the cat per the action rules and returns the outcome.
func (c *Cat) apply(a Action) ActionOutcome {
	switch a {
	case ActionFeed:
		if c.Hunger >= StatMax {
			return OutcomeNotHungry
		}
		c.Hunger = clamp(c.Hunger + 1)
	case ActionPlay:
		if c.Energy <= StatMin {
			return OutcomeTooTired
		}
		c.Happiness = clamp(c.Happiness + 1)
		c.Energy = clamp(c.Energy - 1)
	case ActionSleep:
		if c.Energy >= StatMax {
			return OutcomeNotSleepy
		}
		c.Energy = clamp(c.Energy + 2)
	default:
		return OutcomeNoChange
	}
	return OutcomeApplied
}

// clone returns a deep copy safe to hand out of the registry.
func (c *Cat) clone() Cat {
	cp := *c
	cp.ConnectedUsers = append([]int64(nil), c.ConnectedUsers...)
	if c.LastMessages != nil {
		cp.LastMessages = make(map[int64]time.Time, len(c.LastMessages))
		for k, v := range c.LastMessages {
			cp.LastMessages[k] = v
		}
	}
	return cp
}
