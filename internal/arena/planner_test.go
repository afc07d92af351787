package arena

import (
	"errors"
	"slices"
	"strconv"
	"testing"
	"time"

	"github.com/gitbgo/server/internal/core/system"
	"github.com/gitbgo/server/internal/data"
)

func TestPlannerRotatesAfterBreak(t *testing.T) {
	h := newHarness(t)
	m, err := NewManager(h.table, h.deps)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	p, ok := m.Planner("main")
	if !ok {
		t.Fatal("planner main missing")
	}
	if got := p.ArenaNames(); !slices.Equal(got, []string{"range"}) {
		t.Fatalf("arena names = %v", got)
	}

	p.Update(time.Second)
	if _, ok := p.Current(); ok {
		t.Fatal("round started before break elapsed")
	}
	p.Update(time.Second)
	a, ok := p.Current()
	if !ok || a.State() != StateInGame {
		t.Fatal("round not started after break")
	}

	if err := p.Action("skip-time", nil); err != nil {
		t.Fatalf("skip-time: %v", err)
	}
	p.Update(0)
	if a.State() != StateEnding {
		t.Fatalf("state = %s", a.State())
	}
	p.Update(0)
	if _, ok := p.Current(); ok {
		t.Fatal("finished round still current")
	}
	if len(h.rounds.saved) != 1 {
		t.Fatalf("rounds saved = %d", len(h.rounds.saved))
	}
}

func TestPlannerActions(t *testing.T) {
	h := newHarness(t)
	m, err := NewManager(h.table, h.deps)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	p, _ := m.Planner("main")

	if err := p.Action("skip-time", nil); !errors.Is(err, ErrNoRound) {
		t.Fatalf("skip-time without round: %v", err)
	}
	if err := p.Action("dance", nil); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("unknown action: %v", err)
	}
	if err := p.Action("skip-break", nil); err != nil {
		t.Fatalf("skip-break: %v", err)
	}
	p.Update(0)
	a, ok := p.Current()
	if !ok {
		t.Fatal("skip-break did not start a round")
	}
	if err := p.Action("skip-break", nil); !errors.Is(err, ErrBadArgs) {
		t.Fatalf("skip-break during round: %v", err)
	}

	p.Update(time.Second)
	ids := p.ActionArgs("hit", 1)
	if len(ids) != 1 {
		t.Fatalf("hit suggestions = %v", ids)
	}
	if err := p.Action("hit", []string{"gina"}); !errors.Is(err, ErrBadArgs) {
		t.Fatalf("hit with one arg: %v", err)
	}
	if err := p.Action("hit", []string{"gina", "x"}); !errors.Is(err, ErrBadArgs) {
		t.Fatalf("hit with bad id: %v", err)
	}
	if err := p.Action("hit", []string{"gina", ids[0]}); err != nil {
		t.Fatalf("hit: %v", err)
	}
	if err := p.Action("hit", []string{"gina", ids[0]}); !errors.Is(err, ErrBadArgs) {
		t.Fatalf("second hit: %v", err)
	}
	if got := a.Points().Point(h.deps.Players.ID("gina")); got != 1 {
		t.Fatalf("points = %d", got)
	}
	if got := p.ActionArgs("hit", 0); !slices.Contains(got, "gina") {
		t.Fatalf("player suggestions = %v", got)
	}
	if _, err := strconv.ParseUint(ids[0], 10, 64); err != nil {
		t.Fatalf("suggested id %q not numeric", ids[0])
	}
}

func TestPlannerMissAndBonus(t *testing.T) {
	h := newHarness(t)
	m, err := NewManager(h.table, h.deps)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	p, _ := m.Planner("main")
	if got := p.Actions(); !slices.Equal(got, []string{"bonus", "hit", "miss", "skip-break", "skip-time"}) {
		t.Fatalf("actions = %v", got)
	}
	if err := p.Action("miss", []string{"ivy"}); !errors.Is(err, ErrNoRound) {
		t.Fatalf("miss without round: %v", err)
	}

	p.Action("skip-break", nil)
	p.Update(0)
	a, ok := p.Current()
	if !ok {
		t.Fatal("no round")
	}
	ivy, jon, kim := h.deps.Players.ID("ivy"), h.deps.Players.ID("jon"), h.deps.Players.ID("kim")

	if err := p.Action("bonus", []string{"ivy", "jon"}); err != nil {
		t.Fatalf("bonus: %v", err)
	}
	// over max-players-to-add: nobody scores
	if err := p.Action("bonus", []string{"ivy", "jon", "kim"}); err != nil {
		t.Fatalf("bonus three: %v", err)
	}
	if a.Points().Point(ivy) != 1 || a.Points().Point(jon) != 1 || a.Points().Point(kim) != 0 {
		t.Fatalf("after bonus: ivy=%d jon=%d kim=%d",
			a.Points().Point(ivy), a.Points().Point(jon), a.Points().Point(kim))
	}

	if err := p.Action("miss", []string{"ivy"}); err != nil {
		t.Fatalf("miss: %v", err)
	}
	if err := p.Action("miss", []string{"ivy"}); err != nil {
		t.Fatalf("second miss: %v", err)
	}
	if got := a.Points().Point(ivy); got != 0 {
		t.Fatalf("ivy after misses = %d, want floor of 0", got)
	}
	if err := p.Action("miss", nil); !errors.Is(err, ErrBadArgs) {
		t.Fatalf("miss without player: %v", err)
	}
	if err := p.Action("bonus", nil); !errors.Is(err, ErrBadArgs) {
		t.Fatalf("bonus without players: %v", err)
	}
	if got := p.ActionArgs("bonus", 3); !slices.Contains(got, "kim") {
		t.Fatalf("bonus suggestions = %v", got)
	}
	if got := p.ActionArgs("miss", 1); got != nil {
		t.Fatalf("miss second arg suggestions = %v", got)
	}
}

func TestManagerRegistersAndShutsDown(t *testing.T) {
	h := newHarness(t)
	m, err := NewManager(h.table, h.deps)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	r := system.NewRunner()
	m.Register(r)
	r.Tick(2 * time.Second)
	r.Tick(time.Second)
	if h.world.Count() == 0 {
		t.Fatal("runner did not drive the planner")
	}
	m.Shutdown()
	if h.world.Count() != 0 {
		t.Fatalf("mobs after shutdown = %d", h.world.Count())
	}
}

func TestPlannerWithoutArenas(t *testing.T) {
	h := newHarness(t)
	table, err := data.ParseArenaTable([]byte(`
planners:
  - name: empty
    pick-chance: {ghost: 1}
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := NewManager(table, h.deps); !errors.Is(err, ErrNoArenas) {
		t.Fatalf("err = %v", err)
	}
}

func TestManagerClearAll(t *testing.T) {
	h := newHarness(t)
	m, err := NewManager(h.table, h.deps)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	p, _ := m.Planner("main")
	p.Update(2 * time.Second)
	p.Update(time.Second)
	p.Update(time.Second)
	if h.world.Count() != 2 {
		t.Fatalf("mobs = %d", h.world.Count())
	}

	op := m.ClearAll()
	if !op.IsDone() {
		t.Fatal("clear with inline bridge should settle immediately")
	}
	if _, err := op.Result(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if h.world.Count() != 0 {
		t.Fatalf("mobs after clear = %d", h.world.Count())
	}
}
