// Package memory keeps session slots in process memory. Slots are lost on
// restart; it backs development runs and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/xenking/storefront/internal/domain/cart"
)

var _ cart.Storage = (*SlotStorage)(nil)

type entry struct {
	slots   map[string][]byte
	touched time.Time
}

// SlotStorage implements cart.Storage on a map.
type SlotStorage struct {
	mu       sync.RWMutex
	sessions map[string]*entry
}

// New returns an empty SlotStorage.
func New() *SlotStorage {
	return &SlotStorage{sessions: make(map[string]*entry)}
}

// Load returns a copy of the slot value, or cart.ErrSlotEmpty.
func (s *SlotStorage) Load(_ context.Context, session, slot string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.sessions[session]
	if !ok {
		return nil, cart.ErrSlotEmpty
	}
	v, ok := stored.slots[slot]
	if !ok {
		return nil, cart.ErrSlotEmpty
	}
	return append([]byte(nil), v...), nil
}

// Save stores a copy of value.
func (s *SlotStorage) Save(_ context.Context, session, slot string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.sessions[session]
	if !ok {
		stored = &entry{slots: make(map[string][]byte)}
		s.sessions[session] = stored
	}
	stored.slots[slot] = append([]byte(nil), value...)
	stored.touched = time.Now()
	return nil
}

// Delete removes the given slots and forgets the session once it has none.
func (s *SlotStorage) Delete(_ context.Context, session string, slots ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.sessions[session]
	if !ok {
		return nil
	}
	for _, slot := range slots {
		delete(stored.slots, slot)
	}
	if len(stored.slots) == 0 {
		delete(s.sessions, session)
	}
	return nil
}

// DeleteExpired forgets sessions not written since before and returns how
// many slots were dropped.
func (s *SlotStorage) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, stored := range s.sessions {
		if stored.touched.Before(before) {
			n += int64(len(stored.slots))
			delete(s.sessions, id)
		}
	}
	return n, nil
}

// Sessions returns the number of sessions holding at least one slot.
func (s *SlotStorage) Sessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
