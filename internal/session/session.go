// Package session tracks the per-user conversation state machine.
//
// Every user is in exactly one state at a time. States that carry
// partial input (an amount waiting for a category, a start date waiting
// for an end date) hold only the fields that are valid at that point,
// so an inconsistent buffer cannot be represented.
package session

import (
	"sync"

	"xarajat/internal/core"
)

// State is a closed set: only the variants below implement it.
type State interface {
	isState()
}

// Idle is the resting state. Users with no stored state are Idle.
type Idle struct{}

// AwaitingAmount waits for the first step of expense entry.
type AwaitingAmount struct{}

// AwaitingCategory holds a parsed amount while the user picks a category.
type AwaitingCategory struct {
	Amount core.Money
}

// AwaitingDescription holds amount and category while the user types an
// optional description.
type AwaitingDescription struct {
	Amount     core.Money
	CategoryID int64
}

// AwaitingStartDate waits for the start of a custom report range.
type AwaitingStartDate struct{}

// AwaitingEndDate holds a parsed start date while the user types the end.
type AwaitingEndDate struct {
	Start core.Day
}

func (Idle) isState()                {}
func (AwaitingAmount) isState()      {}
func (AwaitingCategory) isState()    {}
func (AwaitingDescription) isState() {}
func (AwaitingStartDate) isState()   {}
func (AwaitingEndDate) isState()     {}

// Name returns a short label for logging.
func Name(s State) string {
	switch s.(type) {
	case Idle:
		return "idle"
	case AwaitingAmount:
		return "awaiting_amount"
	case AwaitingCategory:
		return "awaiting_category"
	case AwaitingDescription:
		return "awaiting_description"
	case AwaitingStartDate:
		return "awaiting_start_date"
	case AwaitingEndDate:
		return "awaiting_end_date"
	default:
		return "unknown"
	}
}

// Manager stores conversation state keyed by external user id.
//
// Idle states are not stored: setting Idle evicts the entry, so the map
// only ever holds users mid-conversation. Lock serializes event handling
// per user so two concurrent messages cannot interleave a transition.
type Manager struct {
	mu     sync.Mutex
	states map[int64]State
	locks  map[int64]*sync.Mutex
}

func NewManager() *Manager {
	return &Manager{
		states: make(map[int64]State),
		locks:  make(map[int64]*sync.Mutex),
	}
}

// Lock returns the per-user mutex, creating it on first use. The locks
// map is bounded by the allow-list, so entries are never evicted.
func (m *Manager) Lock(userID int64) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lk, ok := m.locks[userID]
	if !ok {
		lk = &sync.Mutex{}
		m.locks[userID] = lk
	}
	return lk
}

// Current returns the user's state, Idle if none is stored.
func (m *Manager) Current(userID int64) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.states[userID]; ok {
		return s
	}
	return Idle{}
}

// Set stores the user's state. Setting Idle removes the entry.
func (m *Manager) Set(userID int64, s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := s.(Idle); ok {
		delete(m.states, userID)
		return
	}
	m.states[userID] = s
}

// Clear resets the user to Idle.
func (m *Manager) Clear(userID int64) {
	m.Set(userID, Idle{})
}

// Reset drops every stored state. Used when the ledger is wiped, so no
// conversation keeps referencing rows that no longer exist.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = make(map[int64]State)
}

// Active reports how many users are currently mid-conversation.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.states)
}
