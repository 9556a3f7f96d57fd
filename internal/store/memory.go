package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/i474232898/meteoradar/internal/sensor"
)

var (
	// ErrNotFound is returned when no state exists for an entity.
	ErrNotFound = errors.New("no state for entity")
)

// StateHistory holds the time-ordered states written to one entity.
type StateHistory struct {
	States []sensor.State
}

// MemoryStore is a concurrency-safe in-memory state store.
type MemoryStore struct {
	mu sync.RWMutex

	// key: entity id, value: history
	data map[string]*StateHistory

	// retention configuration
	maxHistory int           // max number of states per entity
	maxAge     time.Duration // optional max age for states

	clock clockwork.Clock
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited. A nil clock uses real time.
func NewMemoryStore(maxHistory int, maxAge time.Duration, clock clockwork.Clock) *MemoryStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryStore{
		data:       make(map[string]*StateHistory),
		maxHistory: maxHistory,
		maxAge:     maxAge,
		clock:      clock,
	}
}

// SetState appends a new state for an entity and enforces retention.
func (s *MemoryStore) SetState(state sensor.State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[state.EntityID]
	if !ok {
		history = &StateHistory{}
		s.data[state.EntityID] = history
	}

	history.States = append(history.States, state)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(history.States) > s.maxHistory {
		over := len(history.States) - s.maxHistory
		history.States = history.States[over:]
	}

	// Enforce retention by age; the newest state always survives.
	if s.maxAge > 0 {
		cutoff := s.clock.Now().Add(-s.maxAge)
		i := 0
		for ; i < len(history.States)-1; i++ {
			if !history.States[i].LastUpdated.Before(cutoff) {
				break
			}
		}
		history.States = history.States[i:]
	}
}

// GetState returns the current state of an entity.
func (s *MemoryStore) GetState(entityID string) (sensor.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[entityID]
	if !ok || len(history.States) == 0 {
		return sensor.State{}, ErrNotFound
	}
	return history.States[len(history.States)-1], nil
}

// GetRange returns all states of an entity written between from and to (inclusive).
func (s *MemoryStore) GetRange(entityID string, from, to time.Time) ([]sensor.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[entityID]
	if !ok || len(history.States) == 0 {
		return nil, ErrNotFound
	}

	var result []sensor.State
	for _, st := range history.States {
		if !st.LastUpdated.Before(from) && !st.LastUpdated.After(to) {
			result = append(result, st)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}

	return result, nil
}

// List returns the current state of every entity, ordered by entity id.
func (s *MemoryStore) List() []sensor.State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	states := make([]sensor.State, 0, len(s.data))
	for _, history := range s.data {
		if len(history.States) > 0 {
			states = append(states, history.States[len(history.States)-1])
		}
	}
	sort.Slice(states, func(i, j int) bool {
		return states[i].EntityID < states[j].EntityID
	})
	return states
}
