// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package timeline

import (
	"slices"
	"sync"

	"github.com/bureau-foundation/roomsync/lib/ref"
)

// Store owns every ingested event for the life of the process. The sync
// loop is its only writer; readers may call it concurrently.
type Store struct {
	mu      sync.RWMutex
	byID    map[ref.EventID]Event
	ordered []Event
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{byID: make(map[ref.EventID]Event)}
}

// Event returns the stored event with the given ID, or nil.
func (s *Store) Event(id ref.EventID) Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, ok := s.byID[id]
	if !ok {
		return nil
	}
	return event
}

// Contains reports whether an event with the given ID is stored.
func (s *Store) Contains(id ref.EventID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byID[id]
	return ok
}

// Len returns the number of stored events.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ordered)
}

// Events returns a snapshot of every stored event in ingestion order.
func (s *Store) Events() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.ordered)
}

// insert adds event unless its ID is already present.
func (s *Store) insert(event Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[event.ID()]; exists {
		return false
	}
	s.byID[event.ID()] = event
	s.ordered = append(s.ordered, event)
	return true
}
