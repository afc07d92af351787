// Package picker chooses which arena of a planner runs next.
package picker

import (
	"math/rand/v2"
	"sort"
)

// Chance picks arenas at random, weighted by their configured chance.
type Chance[A any] struct {
	weights map[string]int
	rng     *rand.Rand

	names  []string
	arenas []A
	cumul  []int
	total  int
}

// NewChance keeps only positive weights. rng may be nil for a
// process-seeded source.
func NewChance[A any](weights map[string]int, rng *rand.Rand) *Chance[A] {
	kept := make(map[string]int, len(weights))
	for name, w := range weights {
		if w > 0 {
			kept[name] = w
		}
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Chance[A]{weights: kept, rng: rng}
}

// Setup binds weights to the arenas that actually exist. Names are taken in
// sorted order so a seeded rng gives reproducible picks.
func (c *Chance[A]) Setup(arenas map[string]A) {
	c.names, c.arenas, c.cumul, c.total = nil, nil, nil, 0
	names := make([]string, 0, len(c.weights))
	for name := range c.weights {
		if _, ok := arenas[name]; ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		c.total += c.weights[name]
		c.names = append(c.names, name)
		c.arenas = append(c.arenas, arenas[name])
		c.cumul = append(c.cumul, c.total)
	}
}

func (c *Chance[A]) CanPick() bool { return c.total > 0 }

// Names returns the pickable arena names.
func (c *Chance[A]) Names() []string { return append([]string(nil), c.names...) }

// Pick returns a weighted random arena, or false if none can be picked.
func (c *Chance[A]) Pick() (A, bool) {
	var zero A
	if c.total <= 0 {
		return zero, false
	}
	n := c.rng.IntN(c.total)
	i := sort.SearchInts(c.cumul, n+1)
	return c.arenas[i], true
}
