package arena

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/gitbgo/server/internal/core/entity"
	"github.com/gitbgo/server/internal/core/system"
	"github.com/gitbgo/server/internal/data"
	"github.com/gitbgo/server/internal/picker"
	"go.uber.org/zap"
)

var (
	ErrUnknownAction = errors.New("arena: unknown action")
	ErrNoRound       = errors.New("arena: no round running")
	ErrBadArgs       = errors.New("arena: bad arguments")
	ErrNoArenas      = errors.New("arena: planner has no pickable arenas")
)

// Planner rotates its arenas: after a break it picks one by weighted chance,
// runs its round to completion and starts the break again.
// Accessed only from the game loop goroutine.
type Planner struct {
	def    *data.PlannerDef
	log    *zap.Logger
	arenas map[string]*Arena
	chance *picker.Chance[*Arena]

	current *Arena
	idle    time.Duration
}

func NewPlanner(def *data.PlannerDef, table *data.ArenaTable, deps Deps) (*Planner, error) {
	if deps.Players == nil {
		deps.Players = NewPlayers()
	}
	p := &Planner{
		def:    def,
		log:    deps.Log.With(zap.String("planner", def.Name)),
		arenas: make(map[string]*Arena, len(def.PickChance)),
	}
	for name := range def.PickChance {
		ad, ok := table.Arena(name)
		if !ok {
			p.log.Warn("planner references unknown arena", zap.String("arena", name))
			continue
		}
		p.arenas[name] = New(ad, deps)
	}
	p.chance = picker.NewChance[*Arena](def.PickChance, deps.Rand)
	p.chance.Setup(p.arenas)
	if !p.chance.CanPick() {
		return nil, fmt.Errorf("planner %q: %w", def.Name, ErrNoArenas)
	}
	return p, nil
}

func (p *Planner) Name() string { return p.def.Name }

func (p *Planner) Phase() system.Phase { return system.PhaseUpdate }

// Current returns the arena whose round is running, if any.
func (p *Planner) Current() (*Arena, bool) { return p.current, p.current != nil }

// Arena returns one of the planner's arenas by name.
func (p *Planner) Arena(name string) (*Arena, bool) {
	a, ok := p.arenas[name]
	return a, ok
}

// ArenaNames returns the pickable arena names, sorted.
func (p *Planner) ArenaNames() []string { return p.chance.Names() }

func (p *Planner) Update(dt time.Duration) {
	if p.current != nil {
		p.current.Update(dt)
		if p.current.State() != StateWaiting {
			return
		}
		p.current = nil
		p.idle = 0
	}
	p.idle += dt
	if p.idle < p.def.Break {
		return
	}
	p.idle = 0
	next, ok := p.chance.Pick()
	if !ok || !next.Start() {
		return
	}
	p.current = next
}

// Shutdown force-clears every arena.
func (p *Planner) Shutdown() {
	for _, a := range p.arenas {
		a.Shutdown()
	}
	p.current = nil
}

// ── actions ─────────────────────────────────────────────────────────

var actions = []string{"bonus", "hit", "miss", "skip-break", "skip-time"}

// Actions returns the action names Action accepts, sorted.
func (p *Planner) Actions() []string { return append([]string(nil), actions...) }

// Action runs a named action against the planner's running round.
func (p *Planner) Action(name string, args []string) error {
	switch name {
	case "skip-break":
		if p.current != nil {
			return fmt.Errorf("skip-break: round in %s: %w", p.current.Name(), ErrBadArgs)
		}
		p.idle = p.def.Break
		return nil
	case "skip-time":
		a, err := p.inGame()
		if err != nil {
			return err
		}
		a.Timer().SetDuration(0)
		return nil
	case "hit":
		if len(args) != 2 {
			return fmt.Errorf("hit <player> <entity>: %w", ErrBadArgs)
		}
		id, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("hit: entity %q: %w", args[1], ErrBadArgs)
		}
		a, err := p.inGame()
		if err != nil {
			return err
		}
		if !a.Hit(args[0], entity.ID(id)) {
			return fmt.Errorf("hit: entity %d not in %s: %w", id, a.Name(), ErrBadArgs)
		}
		return nil
	case "miss":
		if len(args) != 1 {
			return fmt.Errorf("miss <player>: %w", ErrBadArgs)
		}
		a, err := p.inGame()
		if err != nil {
			return err
		}
		a.Miss(args[0])
		return nil
	case "bonus":
		if len(args) == 0 {
			return fmt.Errorf("bonus <player>...: %w", ErrBadArgs)
		}
		a, err := p.inGame()
		if err != nil {
			return err
		}
		a.Bonus(args)
		return nil
	}
	return fmt.Errorf("%q: %w", name, ErrUnknownAction)
}

// ActionArgs suggests values for argument i of an action.
func (p *Planner) ActionArgs(name string, i int) []string {
	switch {
	case name == "bonus", name == "miss" && i == 0, name == "hit" && i == 0:
		return p.playerNames()
	case name == "hit" && i == 1 && p.current != nil:
		var out []string
		for e := range p.current.Entities().Valid() {
			out = append(out, strconv.FormatUint(uint64(e.ID()), 10))
		}
		sort.Strings(out)
		return out
	}
	return nil
}

func (p *Planner) inGame() (*Arena, error) {
	if p.current == nil || p.current.State() != StateInGame {
		return nil, ErrNoRound
	}
	return p.current, nil
}

// playerNames lists the players seen by any arena; they share one registry.
func (p *Planner) playerNames() []string {
	for _, a := range p.arenas {
		return a.deps.Players.Names()
	}
	return nil
}
