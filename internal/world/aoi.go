package world

import "github.com/gitbgo/server/internal/core/entity"

// regionIndex tracks which mobs are in which region so a region can be
// unloaded in one sweep. Callers hold State.mu.
type regionIndex struct {
	cells map[entity.Region]map[entity.ID]struct{}
}

func newRegionIndex() *regionIndex {
	return &regionIndex{cells: make(map[entity.Region]map[entity.ID]struct{})}
}

func (g *regionIndex) add(id entity.ID, r entity.Region) {
	cell := g.cells[r]
	if cell == nil {
		cell = make(map[entity.ID]struct{})
		g.cells[r] = cell
	}
	cell[id] = struct{}{}
}

func (g *regionIndex) remove(id entity.ID, r entity.Region) {
	cell := g.cells[r]
	if cell != nil {
		delete(cell, id)
		if len(cell) == 0 {
			delete(g.cells, r)
		}
	}
}

// take removes and returns every id in r.
func (g *regionIndex) take(r entity.Region) []entity.ID {
	cell := g.cells[r]
	if len(cell) == 0 {
		return nil
	}
	ids := make([]entity.ID, 0, len(cell))
	for id := range cell {
		ids = append(ids, id)
	}
	delete(g.cells, r)
	return ids
}
