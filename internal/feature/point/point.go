// Package point keeps per-player scores for one round and the ranking
// derived from them.
package point

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Config holds the configurable point deltas.
// MaxPlayersToAdd < 0 means no limit.
type Config struct {
	Plus            int
	Minus           int
	MaxPlayersToAdd int
}

func DefaultConfig() Config {
	return Config{Plus: 1, Minus: 0, MaxPlayersToAdd: -1}
}

// ChangeFunc observes every applied change: the delta and the new total.
type ChangeFunc func(id uuid.UUID, delta, total int)

// Entry is one row of the ranking.
type Entry struct {
	ID     uuid.UUID
	Points int
}

type Feature struct {
	cfg      Config
	onChange ChangeFunc

	mu     sync.Mutex
	points map[uuid.UUID]int
	first  map[uuid.UUID]int // order in which players first scored, breaks ties
	seq    int
}

func New(cfg Config, onChange ChangeFunc) *Feature {
	return &Feature{
		cfg:      cfg,
		onChange: onChange,
		points:   make(map[uuid.UUID]int),
		first:    make(map[uuid.UUID]int),
	}
}

func (f *Feature) Config() Config { return f.cfg }

// ApplyPoint adds delta to a player's total, never going below zero.
func (f *Feature) ApplyPoint(id uuid.UUID, delta int) {
	f.mu.Lock()
	if _, seen := f.first[id]; !seen {
		f.seq++
		f.first[id] = f.seq
	}
	total := f.points[id] + delta
	if total < 0 {
		total = 0
	}
	f.points[id] = total
	f.mu.Unlock()

	if f.onChange != nil {
		f.onChange(id, delta, total)
	}
}

func (f *Feature) AddPoint(id uuid.UUID)    { f.ApplyPoint(id, f.cfg.Plus) }
func (f *Feature) RemovePoint(id uuid.UUID) { f.ApplyPoint(id, -f.cfg.Minus) }

// TryAddPoint rewards every listed player, unless there are more of them
// than MaxPlayersToAdd, in which case nobody scores.
func (f *Feature) TryAddPoint(ids []uuid.UUID) {
	if f.cfg.MaxPlayersToAdd >= 0 && len(ids) > f.cfg.MaxPlayersToAdd {
		return
	}
	for _, id := range ids {
		f.AddPoint(id)
	}
}

func (f *Feature) Point(id uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.points[id]
}

// Top returns every scored player, best first. Ties go to whoever scored first.
func (f *Feature) Top() []Entry {
	f.mu.Lock()
	out := make([]Entry, 0, len(f.points))
	for id, p := range f.points {
		out = append(out, Entry{ID: id, Points: p})
	}
	first := make(map[uuid.UUID]int, len(f.first))
	for id, n := range f.first {
		first[id] = n
	}
	f.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return first[out[i].ID] < first[out[j].ID]
	})
	return out
}

// TopAt returns the entry at zero-based rank i.
func (f *Feature) TopAt(i int) (Entry, bool) {
	top := f.Top()
	if i < 0 || i >= len(top) {
		return Entry{}, false
	}
	return top[i], true
}

// TopIndex returns the zero-based rank of id, or -1.
func (f *Feature) TopIndex(id uuid.UUID) int {
	for i, e := range f.Top() {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (f *Feature) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	clear(f.points)
	clear(f.first)
	f.seq = 0
}
