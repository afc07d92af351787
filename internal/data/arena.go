package data

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/gitbgo/server/internal/core/entity"
	"gopkg.in/yaml.v3"
)

// ErrBadLocation is returned for an unparsable spawn location.
var ErrBadLocation = entity.ErrBadLocation

// ArenaDef is one playable arena loaded from YAML.
type ArenaDef struct {
	Name     string        `yaml:"name"`
	Game     string        `yaml:"game"`
	Duration time.Duration `yaml:"duration"`
	Point    PointDef      `yaml:"point"`
	Spawn    SpawnDef      `yaml:"spawn"`
	Hologram HologramList  `yaml:"hologram"`
	Rewards  RewardDef     `yaml:"rewards"`

	SpawnPoints []entity.Location `yaml:"-"`
}

// PointDef mirrors the point.* keys; absent keys keep the defaults.
type PointDef struct {
	Plus            *int `yaml:"plus"`
	Minus           *int `yaml:"minus"`
	MaxPlayersToAdd *int `yaml:"max-players-to-add"`
}

func (p PointDef) PlusOr(def int) int            { return intOr(p.Plus, def) }
func (p PointDef) MinusOr(def int) int           { return intOr(p.Minus, def) }
func (p PointDef) MaxPlayersToAddOr(def int) int { return intOr(p.MaxPlayersToAdd, def) }

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

type SpawnDef struct {
	Locations []string      `yaml:"locations"`
	Interval  time.Duration `yaml:"interval"`
	Max       int           `yaml:"max"`
}

type HologramDef struct {
	Location string   `yaml:"location"`
	Lines    []string `yaml:"lines"`
}

// HologramList accepts either a single hologram mapping or a list of them.
type HologramList []HologramDef

func (h *HologramList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		var one HologramDef
		if err := node.Decode(&one); err != nil {
			return err
		}
		*h = HologramList{one}
		return nil
	case yaml.SequenceNode:
		var many []HologramDef
		if err := node.Decode(&many); err != nil {
			return err
		}
		*h = many
		return nil
	}
	return fmt.Errorf("hologram: line %d: want mapping or list", node.Line)
}

// RewardDef lists what each rank receives; Top[0] goes to first place.
type RewardDef struct {
	Top []string `yaml:"top"`
}

// PlannerDef groups arenas that take turns, with their pick weights.
type PlannerDef struct {
	Name       string         `yaml:"name"`
	PickChance map[string]int `yaml:"pick-chance"`
	Break      time.Duration  `yaml:"break"` // pause between rounds
}

type arenaFile struct {
	Arenas   []ArenaDef   `yaml:"arenas"`
	Planners []PlannerDef `yaml:"planners"`
}

// ArenaTable holds every arena and planner indexed by name.
type ArenaTable struct {
	arenas   map[string]*ArenaDef
	planners map[string]*PlannerDef
}

// LoadArenaTable loads arena and planner definitions from a YAML file.
func LoadArenaTable(path string) (*ArenaTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read arenas: %w", err)
	}
	return ParseArenaTable(raw)
}

func ParseArenaTable(raw []byte) (*ArenaTable, error) {
	var f arenaFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse arenas: %w", err)
	}
	t := &ArenaTable{
		arenas:   make(map[string]*ArenaDef, len(f.Arenas)),
		planners: make(map[string]*PlannerDef, len(f.Planners)),
	}
	for i := range f.Arenas {
		a := &f.Arenas[i]
		if err := a.resolve(); err != nil {
			return nil, err
		}
		if _, dup := t.arenas[a.Name]; dup {
			return nil, fmt.Errorf("arena %q defined twice", a.Name)
		}
		t.arenas[a.Name] = a
	}
	for i := range f.Planners {
		p := &f.Planners[i]
		if p.Name == "" {
			return nil, errors.New("planner without name")
		}
		if p.Break <= 0 {
			p.Break = 5 * time.Second
		}
		t.planners[p.Name] = p
	}
	return t, nil
}

func (a *ArenaDef) resolve() error {
	if a.Name == "" {
		return errors.New("arena without name")
	}
	if a.Game == "" {
		a.Game = "target-practice"
	}
	if a.Duration <= 0 {
		a.Duration = time.Minute
	}
	if a.Spawn.Interval <= 0 {
		a.Spawn.Interval = 2 * time.Second
	}
	if a.Spawn.Max <= 0 {
		a.Spawn.Max = 5
	}
	a.SpawnPoints = make([]entity.Location, 0, len(a.Spawn.Locations))
	for _, s := range a.Spawn.Locations {
		loc, err := entity.ParseLocation(s)
		if err != nil {
			return fmt.Errorf("arena %q spawn: %w", a.Name, err)
		}
		a.SpawnPoints = append(a.SpawnPoints, loc)
	}
	return nil
}

func (t *ArenaTable) Arena(name string) (*ArenaDef, bool) {
	a, ok := t.arenas[name]
	return a, ok
}

func (t *ArenaTable) Planner(name string) (*PlannerDef, bool) {
	p, ok := t.planners[name]
	return p, ok
}

// Planners returns planner definitions sorted by name.
func (t *ArenaTable) Planners() []*PlannerDef {
	out := make([]*PlannerDef, 0, len(t.planners))
	for _, p := range t.planners {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Arenas returns arena definitions sorted by name.
func (t *ArenaTable) Arenas() []*ArenaDef {
	out := make([]*ArenaDef, 0, len(t.arenas))
	for _, a := range t.arenas {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (t *ArenaTable) Count() int { return len(t.arenas) }
