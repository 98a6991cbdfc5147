// Package session tracks per-user conversation state. Multi-step flows
// (naming a new cat, entering a connection code, typing a walk time) park the
// user in an explicit state; any input that does not match the current state
// falls through to the default handlers. Idle is the default and terminal
// state.
package session

import "sync"

// StateKind tags what input the user's next message is expected to be.
type StateKind int

const (
	Idle StateKind = iota
	AwaitingName
	AwaitingColor
	AwaitingCode
	AwaitingWalkTime
	AwaitingMessage
)

// State is the tagged state plus its payload.
type State struct {
	Kind StateKind

	// DraftName carries the in-progress pet name between AwaitingName and
	// AwaitingColor.
	DraftName string

	// OwnerID is the message-relay subject while AwaitingMessage.
	OwnerID int64
}

// Manager holds the session state of every user. Safe for concurrent use.
type Manager struct {
	mu     sync.Mutex
	states map[int64]State
}

func NewManager() *Manager {
	return &Manager{states: map[int64]State{}}
}

// Get returns the user's current state (Idle when never set).
func (m *Manager) Get(userID int64) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[userID]
}

// Set replaces the user's state.
func (m *Manager) Set(userID int64, st State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st.Kind == Idle {
		delete(m.states, userID)
		return
	}
	m.states[userID] = st
}

// Clear resets the user to Idle.
func (m *Manager) Clear(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, userID)
}
