package command

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/gitbgo/server/internal/arena"
	"github.com/gitbgo/server/internal/core/entity"
	"github.com/gitbgo/server/internal/core/sched"
	"github.com/gitbgo/server/internal/data"
	"github.com/gitbgo/server/internal/persist"
	"github.com/gitbgo/server/internal/world"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const arenasYAML = `
arenas:
  - name: range
    duration: 1m
    spawn:
      locations: ["world,1,64,1"]
      interval: 1s
      max: 1
planners:
  - name: main
    pick-chance: {range: 1}
    break: 1s
`

type noopHandle struct{}

func (noopHandle) Cancel() {}

type inlineBridge struct{}

func (inlineBridge) RunAtLocation(_ entity.Location, work func()) bool {
	work()
	return true
}

func (inlineBridge) RunOnEntity(e entity.Entity, work, finalize func(), allowIfInvalid bool) sched.Handle {
	if allowIfInvalid || e.Valid() {
		work()
	}
	if finalize != nil {
		finalize()
	}
	return noopHandle{}
}

// fakeBoard stands in for both stores.
type fakeBoard struct {
	totals  []persist.PlayerTotal
	limit   int
	points  map[uuid.UUID]int
	rewards map[uuid.UUID][]persist.Reward
	err     error
}

func (b *fakeBoard) Leaderboard(_ context.Context, limit int) ([]persist.PlayerTotal, error) {
	b.limit = limit
	return b.totals, nil
}

func (b *fakeBoard) TotalPoints(_ context.Context, player uuid.UUID) (int, error) {
	return b.points[player], b.err
}

func (b *fakeBoard) ListFor(_ context.Context, player uuid.UUID) ([]persist.Reward, error) {
	return b.rewards[player], nil
}

func newDispatcher(t *testing.T, board Leaderboard) (*Dispatcher, *arena.Manager, *world.State) {
	t.Helper()
	table, err := data.ParseArenaTable([]byte(arenasYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	w := world.NewState(16, zap.NewNop())
	m, err := arena.NewManager(table, arena.Deps{
		World:  w,
		Bridge: inlineBridge{},
		Log:    zap.NewNop(),
		Rand:   rand.New(rand.NewPCG(3, 4)),
	})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	var rewards RewardLog
	if rl, ok := board.(RewardLog); ok {
		rewards = rl
	}
	return NewDispatcher(m, w, board, rewards, zap.NewNop()), m, w
}

func TestExecuteUnknownAndEmpty(t *testing.T) {
	d, _, _ := newDispatcher(t, nil)
	ctx := context.Background()

	if reply, err := d.Execute(ctx, "   "); err != nil || reply != "" {
		t.Fatalf("blank line: %q, %v", reply, err)
	}
	if _, err := d.Execute(ctx, "fly away"); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("err = %v", err)
	}
	reply, err := d.Execute(ctx, "HELP")
	if err != nil || !strings.Contains(reply, "action <planner>") {
		t.Fatalf("help = %q, %v", reply, err)
	}
}

func TestRegionCommands(t *testing.T) {
	d, _, w := newDispatcher(t, nil)
	ctx := context.Background()

	reply, err := d.Execute(ctx, "region load world 20 -3")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if reply != "loaded world[1,-1]" {
		t.Fatalf("reply = %q", reply)
	}
	if !w.IsRegionLoaded(entity.Location{World: "world", X: 17, Z: -1}) {
		t.Fatal("region not loaded")
	}
	if reply, _ := d.Execute(ctx, "regions"); reply != "world[1,-1]" {
		t.Fatalf("regions = %q", reply)
	}
	if _, err := d.Execute(ctx, "region load world x 0"); !errors.Is(err, ErrUsage) {
		t.Fatalf("bad coords: %v", err)
	}
	if _, err := d.Execute(ctx, "region drop world 0 0"); !errors.Is(err, ErrUsage) {
		t.Fatalf("bad verb: %v", err)
	}
	if _, err := d.Execute(ctx, "region unload world 20 -3"); err != nil {
		t.Fatalf("unload: %v", err)
	}
	if reply, _ := d.Execute(ctx, "regions"); reply != "no regions loaded" {
		t.Fatalf("regions = %q", reply)
	}
}

func TestActionAndPoints(t *testing.T) {
	d, m, w := newDispatcher(t, nil)
	ctx := context.Background()
	w.LoadRegion(entity.Location{World: "world", X: 1, Z: 1})

	if _, err := d.Execute(ctx, "points main"); !errors.Is(err, arena.ErrNoRound) {
		t.Fatalf("points without round: %v", err)
	}
	if _, err := d.Execute(ctx, "action nowhere skip-time"); err == nil {
		t.Fatal("unknown planner accepted")
	}
	if _, err := d.Execute(ctx, "action main Skip-Break"); err != nil {
		t.Fatalf("skip-break: %v", err)
	}
	p, _ := m.Planner("main")
	p.Update(0)
	p.Update(time.Second)

	ids := p.ActionArgs("hit", 1)
	if len(ids) != 1 {
		t.Fatalf("entities = %v", ids)
	}
	if _, err := d.Execute(ctx, "action main hit alice "+ids[0]); err != nil {
		t.Fatalf("hit: %v", err)
	}
	reply, err := d.Execute(ctx, "points main")
	if err != nil || reply != "1. alice 1" {
		t.Fatalf("points = %q, %v", reply, err)
	}
	reply, _ = d.Execute(ctx, "arenas")
	if reply != "main: range[target-practice, in-game]" {
		t.Fatalf("arenas = %q", reply)
	}
	if _, err := d.Execute(ctx, "action main"); !errors.Is(err, ErrUsage) {
		t.Fatalf("short action: %v", err)
	}
}

func TestLeaderboard(t *testing.T) {
	d, _, _ := newDispatcher(t, nil)
	if _, err := d.Execute(context.Background(), "leaderboard"); !errors.Is(err, persist.ErrDisabled) {
		t.Fatalf("without store: %v", err)
	}

	board := &fakeBoard{totals: []persist.PlayerTotal{
		{PlayerID: uuid.New(), Name: "alice", Points: 12, Rounds: 3},
		{PlayerID: uuid.New(), Name: "bob", Points: 4, Rounds: 1},
	}}
	d, _, _ = newDispatcher(t, board)
	reply, err := d.Execute(context.Background(), "leaderboard 2")
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if reply != "1. alice 12 (3 rounds)\n2. bob 4 (1 rounds)" || board.limit != 2 {
		t.Fatalf("reply = %q limit=%d", reply, board.limit)
	}
	if _, err := d.Execute(context.Background(), "leaderboard -1"); !errors.Is(err, ErrUsage) {
		t.Fatalf("bad limit: %v", err)
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	d, _, _ := newDispatcher(t, nil)
	if _, err := d.Execute(ctx, "stats alice"); !errors.Is(err, persist.ErrDisabled) {
		t.Fatalf("without store: %v", err)
	}

	alice, round := arena.OfflineID("alice"), uuid.New()
	board := &fakeBoard{points: map[uuid.UUID]int{alice: 17}}
	board.rewards = map[uuid.UUID][]persist.Reward{
		alice: {{RoundID: round, PlayerID: alice, Rank: 1, Reward: "diamond"}},
	}
	d, _, _ = newDispatcher(t, board)
	reply, err := d.Execute(ctx, "stats alice")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if want := "alice: 17 points\n  #1 diamond (round " + round.String() + ")"; reply != want {
		t.Fatalf("reply = %q, want %q", reply, want)
	}
	if reply, _ := d.Execute(ctx, "stats bob"); reply != "bob: 0 points, no rewards" {
		t.Fatalf("unknown player = %q", reply)
	}
	if _, err := d.Execute(ctx, "stats"); !errors.Is(err, ErrUsage) {
		t.Fatalf("no player: %v", err)
	}

	board.err = errors.New("db gone")
	if _, err := d.Execute(ctx, "stats alice"); err == nil {
		t.Fatal("store error not returned")
	}
}

func TestComplete(t *testing.T) {
	d, _, w := newDispatcher(t, nil)
	w.LoadRegion(entity.Location{World: "nether"})
	w.LoadRegion(entity.Location{World: "world"})

	cases := []struct {
		line string
		want []string
	}{
		{"", []string{"action", "arenas", "help", "leaderboard", "points", "region", "regions", "stats"}},
		{"re", []string{"region", "regions"}},
		{"action ", []string{"main"}},
		{"action main sk", []string{"skip-break", "skip-time"}},
		{"action main m", []string{"miss"}},
		{"points m", []string{"main"}},
		{"region ", []string{"load", "unload"}},
		{"region load n", []string{"nether"}},
		{"arenas ", nil},
	}
	for _, c := range cases {
		if got := d.Complete(c.line); !slices.Equal(got, c.want) {
			t.Errorf("Complete(%q) = %v, want %v", c.line, got, c.want)
		}
	}

	reply, err := d.Execute(context.Background(), "complete region ")
	if err != nil || reply != "load unload" {
		t.Fatalf("complete command = %q, %v", reply, err)
	}
}
