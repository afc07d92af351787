package arena

import (
	"fmt"

	"github.com/gitbgo/server/internal/core/future"
	"github.com/gitbgo/server/internal/core/system"
	"github.com/gitbgo/server/internal/data"
)

// Manager owns every planner built from the arena table.
type Manager struct {
	planners map[string]*Planner
	order    []string
}

// NewManager builds one planner per definition. All planners share deps, so
// player ids and the host world are common to every arena.
func NewManager(table *data.ArenaTable, deps Deps) (*Manager, error) {
	if deps.Players == nil {
		deps.Players = NewPlayers()
	}
	m := &Manager{planners: make(map[string]*Planner)}
	for _, def := range table.Planners() {
		p, err := NewPlanner(def, table, deps)
		if err != nil {
			return nil, fmt.Errorf("build planners: %w", err)
		}
		m.planners[def.Name] = p
		m.order = append(m.order, def.Name)
	}
	return m, nil
}

func (m *Manager) Planner(name string) (*Planner, bool) {
	p, ok := m.planners[name]
	return p, ok
}

// Names returns planner names, sorted.
func (m *Manager) Names() []string { return append([]string(nil), m.order...) }

// Register adds every planner to the tick runner.
func (m *Manager) Register(r *system.Runner) {
	for _, name := range m.order {
		r.Register(m.planners[name])
	}
}

// ClearAll starts a clear on every arena. The returned future settles once
// all of them have finished.
func (m *Manager) ClearAll() *future.Future[struct{}] {
	var ops []future.Settler
	for _, name := range m.order {
		for _, a := range m.planners[name].arenas {
			ops = append(ops, a.Entities().ClearEntities())
		}
	}
	return future.Join(ops...)
}

// Shutdown force-clears every arena without waiting on region workers.
func (m *Manager) Shutdown() {
	for _, name := range m.order {
		m.planners[name].Shutdown()
	}
}
