package entity

import (
	"iter"
	"sync"
)

// Set is the concurrent, identity-keyed collection of entities owned by one
// game instance. Any goroutine may Add or read. ClearAll is reserved for the
// owner's teardown barrier so a partial clear never interleaves with reads.
type Set struct {
	mu      sync.RWMutex
	members map[ID]Entity
}

func NewSet() *Set {
	return &Set{members: make(map[ID]Entity, 32)}
}

// Add inserts e and reports whether it was not already present.
func (s *Set) Add(e Entity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[e.ID()]; ok {
		return false
	}
	s.members[e.ID()] = e
	return true
}

func (s *Set) Contains(e Entity) bool {
	if e == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.members[e.ID()]
	return ok
}

// Get looks an entity up by id.
func (s *Set) Get(id ID) (Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.members[id]
	return e, ok
}

func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.members)
}

// Snapshot returns a copy of the current members in no particular order.
func (s *Set) Snapshot() []Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entity, 0, len(s.members))
	for _, e := range s.members {
		out = append(out, e)
	}
	return out
}

// CountValid counts members whose Valid predicate currently holds.
func (s *Set) CountValid() int {
	n := 0
	for _, e := range s.Snapshot() {
		if e.Valid() {
			n++
		}
	}
	return n
}

// Valid yields the members that are valid at the moment they are visited.
// Each traversal takes a fresh snapshot and re-evaluates validity.
func (s *Set) Valid() iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		for _, e := range s.Snapshot() {
			if !e.Valid() {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

// Remove drops e without despawning it. Only the owning coordinator calls
// it, to undo an Add that must not be observed.
func (s *Set) Remove(e Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.members, e.ID())
}

// ClearAll removes every member. It never despawns anything.
func (s *Set) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.members)
}
