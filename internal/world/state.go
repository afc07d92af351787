// Package world is the in-process host world: it knows which regions are
// loaded, owns the mobs spawned into them and the hologram displays placed
// by arenas. All methods are safe for concurrent use because region workers
// create and remove mobs in parallel.
package world

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gitbgo/server/internal/core/entity"
	"go.uber.org/zap"
)

var (
	ErrNotFound        = errors.New("mob not found")
	ErrRegionNotLoaded = errors.New("region not loaded")
)

// Mob is a spawned world object. It implements entity.Entity.
type Mob struct {
	id    entity.ID
	Kind  string
	Name  string
	loc   entity.Location
	world *State
}

func (m *Mob) ID() entity.ID             { return m.id }
func (m *Mob) Location() entity.Location { return m.loc }
func (m *Mob) Valid() bool               { return m.world.alive(m.id) }
func (m *Mob) Despawn() error            { return m.world.Remove(m.id) }

func (m *Mob) String() string {
	return fmt.Sprintf("%s#%d(%s)", m.Kind, m.id, m.Name)
}

// State holds every loaded region and live mob.
type State struct {
	regionSize int
	pool       *entity.Pool
	log        *zap.Logger

	mu        sync.RWMutex
	loaded    map[entity.Region]struct{}
	mobs      map[entity.ID]*Mob
	index     *regionIndex
	holograms []*Hologram
}

func NewState(regionSize int, log *zap.Logger) *State {
	if regionSize <= 0 {
		regionSize = entity.DefaultRegionSize
	}
	return &State{
		regionSize: regionSize,
		pool:       entity.NewPool(),
		log:        log,
		loaded:     make(map[entity.Region]struct{}),
		mobs:       make(map[entity.ID]*Mob, 64),
		index:      newRegionIndex(),
	}
}

func (s *State) RegionSize() int { return s.regionSize }

// ── regions ─────────────────────────────────────────────────────────

// LoadRegion marks the region containing loc as loaded.
func (s *State) LoadRegion(loc entity.Location) entity.Region {
	r := loc.Region(s.regionSize)
	s.mu.Lock()
	s.loaded[r] = struct{}{}
	s.mu.Unlock()
	return r
}

// UnloadRegion drops the region containing loc together with every mob in
// it. Returns the number of mobs removed.
func (s *State) UnloadRegion(loc entity.Location) int {
	r := loc.Region(s.regionSize)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.loaded, r)
	ids := s.index.take(r)
	for _, id := range ids {
		delete(s.mobs, id)
		s.pool.Release(id)
	}
	if len(ids) > 0 {
		s.log.Debug("region unloaded with mobs", zap.Stringer("region", r), zap.Int("mobs", len(ids)))
	}
	return len(ids)
}

func (s *State) IsRegionLoaded(loc entity.Location) bool {
	r := loc.Region(s.regionSize)
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.loaded[r]
	return ok
}

func (s *State) LoadedRegionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.loaded)
}

// LoadedRegions returns loaded regions sorted by world then coordinates.
func (s *State) LoadedRegions() []entity.Region {
	s.mu.RLock()
	out := make([]entity.Region, 0, len(s.loaded))
	for r := range s.loaded {
		out = append(out, r)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].World != out[j].World {
			return out[i].World < out[j].World
		}
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		return out[i].Z < out[j].Z
	})
	return out
}

// ── mobs ────────────────────────────────────────────────────────────

// Spawn creates a mob at loc. The region must be loaded.
func (s *State) Spawn(kind, name string, loc entity.Location) (*Mob, error) {
	r := loc.Region(s.regionSize)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.loaded[r]; !ok {
		return nil, fmt.Errorf("spawn %s at %s: %w", kind, loc, ErrRegionNotLoaded)
	}
	m := &Mob{id: s.pool.Create(), Kind: kind, Name: name, loc: loc, world: s}
	s.mobs[m.id] = m
	s.index.add(m.id, r)
	return m, nil
}

// Remove despawns a mob. Removing a mob twice reports ErrNotFound.
func (s *State) Remove(id entity.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.mobs[id]
	if !ok {
		return fmt.Errorf("remove %d: %w", id, ErrNotFound)
	}
	delete(s.mobs, id)
	s.index.remove(id, m.loc.Region(s.regionSize))
	s.pool.Release(id)
	return nil
}

func (s *State) Mob(id entity.ID) (*Mob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.mobs[id]
	return m, ok
}

func (s *State) alive(id entity.ID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.mobs[id]
	return ok
}

// Count returns the number of live mobs.
func (s *State) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.mobs)
}

// ── holograms ───────────────────────────────────────────────────────

// NewHologram places an uninitialised text display at loc.
func (s *State) NewHologram(loc entity.Location) *Hologram {
	h := &Hologram{loc: loc}
	s.mu.Lock()
	s.holograms = append(s.holograms, h)
	s.mu.Unlock()
	return h
}

func (s *State) Holograms() []*Hologram {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Hologram(nil), s.holograms...)
}
