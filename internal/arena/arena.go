// Package arena runs minigame rounds. An Arena owns one round at a time and
// is driven by its Planner from the game loop goroutine; only entity spawn
// callbacks run elsewhere (on region workers).
package arena

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/gitbgo/server/internal/core/entity"
	"github.com/gitbgo/server/internal/core/event"
	"github.com/gitbgo/server/internal/core/future"
	"github.com/gitbgo/server/internal/core/sched"
	"github.com/gitbgo/server/internal/data"
	"github.com/gitbgo/server/internal/feature/entities"
	"github.com/gitbgo/server/internal/feature/hologram"
	"github.com/gitbgo/server/internal/feature/point"
	"github.com/gitbgo/server/internal/feature/timer"
	"github.com/gitbgo/server/internal/persist"
	"github.com/gitbgo/server/internal/scripting"
	"github.com/gitbgo/server/internal/world"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const notAvailable = "N/A"

// persistTimeout bounds the end-of-round writes done on the game loop.
const persistTimeout = 5 * time.Second

type State int

const (
	StateWaiting State = iota
	StateInGame
	StateEnding
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateInGame:
		return "in-game"
	case StateEnding:
		return "ending"
	}
	return "unknown"
}

// RoundStore persists finished rounds.
type RoundStore interface {
	Save(ctx context.Context, rec persist.RoundRecord) error
}

// RewardStore persists granted rewards.
type RewardStore interface {
	Grant(ctx context.Context, rewards []persist.Reward) error
}

// Deps are the collaborators shared by every arena. Scripts, Bus, Rounds and
// Rewards may be nil.
type Deps struct {
	World   *world.State
	Bridge  sched.Bridge
	Scripts *scripting.Engine
	Bus     *event.Bus
	Rounds  RoundStore
	Rewards RewardStore
	Players *Players
	Log     *zap.Logger
	Now     func() time.Time
	Rand    *rand.Rand
}

type Arena struct {
	def  *data.ArenaDef
	deps Deps
	log  *zap.Logger

	timer    *timer.Feature
	points   *point.Feature
	holo     *hologram.Descriptive
	entities *entities.Feature

	state      State
	roundID    uuid.UUID
	startedAt  time.Time
	sinceSpawn time.Duration
	clearing   *future.Future[struct{}]
}

func New(def *data.ArenaDef, deps Deps) *Arena {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if deps.Players == nil {
		deps.Players = NewPlayers()
	}
	a := &Arena{
		def:   def,
		deps:  deps,
		log:   deps.Log.With(zap.String("arena", def.Name)),
		timer: timer.NewWithClock(deps.Now),
	}
	a.points = point.New(point.Config{
		Plus:            def.Point.PlusOr(1),
		Minus:           def.Point.MinusOr(0),
		MaxPlayersToAdd: def.Point.MaxPlayersToAddOr(-1),
	}, a.onPointChanged)
	a.entities = entities.New(deps.Bridge, deps.World, entities.FactoryFunc(a.createEntity),
		entities.WithLogger(a.log),
		entities.WithDespawnErrorHandler(func(e entity.Entity, err error) {
			a.log.Debug("despawn failed", zap.Uint64("entity", uint64(e.ID())), zap.Error(err))
		}))

	a.holo = hologram.NewDescriptive(hologram.ReplacerFunc(a.Replace))
	for _, h := range def.Hologram {
		loc, err := entity.ParseLocation(h.Location)
		if err != nil || len(h.Lines) == 0 {
			a.log.Warn("skipping hologram", zap.String("location", h.Location), zap.Error(err))
			continue
		}
		a.holo.Add(deps.World.NewHologram(loc), h.Lines)
	}
	return a
}

func (a *Arena) Name() string                { return a.def.Name }
func (a *Arena) Game() string                { return a.def.Game }
func (a *Arena) State() State                { return a.state }
func (a *Arena) Points() *point.Feature      { return a.points }
func (a *Arena) Entities() *entities.Feature { return a.entities }
func (a *Arena) Timer() *timer.Feature       { return a.timer }

// PlayerName resolves an id seen by this arena, or "N/A".
func (a *Arena) PlayerName(id uuid.UUID) string {
	if name, ok := a.deps.Players.Name(id); ok {
		return name
	}
	return notAvailable
}

// SpawnPoints are the locations entities may appear at.
func (a *Arena) SpawnPoints() []entity.Location { return a.def.SpawnPoints }

// ── round lifecycle ─────────────────────────────────────────────────

// Start begins a round. It only works while waiting.
func (a *Arena) Start() bool {
	if a.state != StateWaiting {
		return false
	}
	a.roundID = uuid.New()
	a.startedAt = a.deps.Now()
	a.sinceSpawn = 0
	a.points.Reset()
	a.timer.SetDuration(a.def.Duration)
	a.holo.Init()
	a.state = StateInGame
	a.log.Info("round started", zap.Stringer("round", a.roundID), zap.Duration("duration", a.def.Duration))
	if a.deps.Bus != nil {
		event.Emit(a.deps.Bus, event.RoundStarted{Arena: a.def.Name, RoundID: a.roundID})
	}
	return true
}

// Update advances the round by one tick.
func (a *Arena) Update(dt time.Duration) {
	switch a.state {
	case StateInGame:
		a.sinceSpawn += dt
		if a.sinceSpawn >= a.def.Spawn.Interval {
			a.sinceSpawn = 0
			a.trySpawn()
		}
		a.holo.Update()
		if a.timer.Expired() {
			a.end()
		}
	case StateEnding:
		a.holo.Update()
		if a.clearing == nil || a.clearing.IsDone() {
			a.clearing = nil
			a.holo.ClearAll()
			a.state = StateWaiting
			a.log.Info("arena ready")
		}
	}
}

func (a *Arena) trySpawn() {
	if len(a.def.SpawnPoints) == 0 || a.entities.CountValid() >= a.def.Spawn.Max {
		return
	}
	loc := a.def.SpawnPoints[a.deps.Rand.IntN(len(a.def.SpawnPoints))]
	fut := a.entities.Spawn(loc, func(e entity.Entity) {
		if a.deps.Bus != nil {
			event.Emit(a.deps.Bus, event.EntitySpawned{Arena: a.def.Name, EntityID: e.ID(), Location: loc})
		}
	})
	fut.OnComplete(func(_ entity.Entity, err error) {
		if err != nil {
			a.log.Debug("spawn failed", zap.Stringer("location", loc), zap.Error(err))
		}
	})
}

func (a *Arena) end() {
	a.state = StateEnding
	a.clearing = a.entities.ClearEntities()

	top := a.points.Top()
	a.persistRound(top)
	a.grantRewards(top)

	winners := make([]uuid.UUID, len(top))
	for i, e := range top {
		winners[i] = e.ID
	}
	a.log.Info("round ended", zap.Stringer("round", a.roundID), zap.Int("players", len(top)))
	if a.deps.Bus != nil {
		event.Emit(a.deps.Bus, event.RoundEnded{Arena: a.def.Name, RoundID: a.roundID, Winners: winners})
	}
}

func (a *Arena) persistRound(top []point.Entry) {
	if a.deps.Rounds == nil {
		return
	}
	rec := persist.RoundRecord{
		ID:        a.roundID,
		Arena:     a.def.Name,
		Game:      a.def.Game,
		StartedAt: a.startedAt,
		EndedAt:   a.deps.Now(),
		Players:   make([]persist.PlayerScore, len(top)),
	}
	for i, e := range top {
		name, _ := a.deps.Players.Name(e.ID)
		rec.Players[i] = persist.PlayerScore{PlayerID: e.ID, Name: name, Points: e.Points, Rank: i + 1}
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := a.deps.Rounds.Save(ctx, rec); err != nil {
		a.log.Error("save round failed", zap.Stringer("round", a.roundID), zap.Error(err))
	}
}

func (a *Arena) grantRewards(top []point.Entry) {
	var rewards []persist.Reward
	now := a.deps.Now()
	for i, reward := range a.def.Rewards.Top {
		if i >= len(top) {
			break
		}
		rewards = append(rewards, persist.Reward{
			RoundID: a.roundID, PlayerID: top[i].ID, Rank: i + 1, Reward: reward, GrantedAt: now,
		})
		name, _ := a.deps.Players.Name(top[i].ID)
		a.log.Info("reward granted", zap.String("player", name), zap.Int("rank", i+1), zap.String("reward", reward))
	}
	if a.deps.Rewards == nil || len(rewards) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := a.deps.Rewards.Grant(ctx, rewards); err != nil {
		a.log.Error("grant rewards failed", zap.Stringer("round", a.roundID), zap.Error(err))
	}
}

// Shutdown force-clears the arena's entities and holograms.
func (a *Arena) Shutdown() {
	a.entities.Shutdown()
	a.holo.Clear()
	a.clearing = nil
	a.state = StateWaiting
}

// ── entity hooks ────────────────────────────────────────────────────

// createEntity runs on the region worker owning loc.
func (a *Arena) createEntity(loc entity.Location) entity.Entity {
	spec := scripting.Spec{Kind: scripting.DefaultKind, Name: a.def.Game}
	if a.deps.Scripts != nil {
		var ok bool
		if spec, ok = a.deps.Scripts.EntitySpec(a.def.Game, loc); !ok {
			return nil
		}
	}
	m, err := a.deps.World.Spawn(spec.Kind, spec.Name, loc)
	if err != nil {
		a.log.Debug("host refused spawn", zap.Error(err))
		return nil
	}
	return m
}

func (a *Arena) onPointChanged(id uuid.UUID, delta, total int) {
	if a.deps.Bus != nil {
		event.Emit(a.deps.Bus, event.PointChanged{Arena: a.def.Name, Player: id, Delta: delta, Total: total})
	}
}

// hitValue is how many points hitting e is worth.
func (a *Arena) hitValue(e entity.Entity) int {
	if a.deps.Scripts != nil {
		if m, ok := e.(*world.Mob); ok {
			if n, ok := a.deps.Scripts.HitPoints(a.def.Game, m.Kind); ok {
				return n
			}
		}
	}
	return a.points.Config().Plus
}

// Hit lets a player strike a tracked entity. The despawn and the point run
// on the entity's region; only the first successful hit scores.
func (a *Arena) Hit(player string, id entity.ID) bool {
	if a.state != StateInGame {
		return false
	}
	e, ok := a.entities.Get(id)
	if !ok || !e.Valid() {
		return false
	}
	pid := a.deps.Players.ID(player)
	a.deps.Bridge.RunOnEntity(e, func() {
		if err := e.Despawn(); err != nil {
			return
		}
		a.points.ApplyPoint(pid, a.hitValue(e))
	}, nil, false)
	return true
}

// Miss takes the configured penalty from player. It reports false when no
// round is running.
func (a *Arena) Miss(player string) bool {
	if a.state != StateInGame {
		return false
	}
	a.points.RemovePoint(a.deps.Players.ID(player))
	return true
}

// Bonus gives every listed player one award, unless more of them are listed
// than the arena allows, in which case nobody scores.
func (a *Arena) Bonus(players []string) bool {
	if a.state != StateInGame {
		return false
	}
	ids := make([]uuid.UUID, len(players))
	for i, name := range players {
		ids[i] = a.deps.Players.ID(name)
	}
	a.points.TryAddPoint(ids)
	return true
}

// ── variables ───────────────────────────────────────────────────────

// Replace resolves an arena-wide variable.
func (a *Arena) Replace(variable string) (string, bool) {
	lower := strings.ToLower(variable)
	switch {
	case lower == "time_left":
		return timer.FormatStandard(a.timer.Remaining()), true
	case lower == "arena":
		return a.def.Name, true
	case lower == "state":
		return a.state.String(), true
	case lower == "entities":
		return strconv.Itoa(a.entities.CountValid()), true
	case strings.HasPrefix(lower, "top_value_"):
		e, ok := a.topAt(lower[len("top_value_"):])
		if !ok {
			return notAvailable, true
		}
		return strconv.Itoa(e.Points), true
	case strings.HasPrefix(lower, "top_name_"):
		e, ok := a.topAt(lower[len("top_name_"):])
		if !ok {
			return notAvailable, true
		}
		if name, ok := a.deps.Players.Name(e.ID); ok {
			return name, true
		}
		return notAvailable, true
	}
	return "", false
}

// ReplaceFor resolves a per-player variable, falling back to Replace.
func (a *Arena) ReplaceFor(player uuid.UUID, variable string) (string, bool) {
	switch strings.ToLower(variable) {
	case "point":
		return strconv.Itoa(a.points.Point(player)), true
	case "top":
		return strconv.Itoa(a.points.TopIndex(player) + 1), true
	}
	return a.Replace(variable)
}

func (a *Arena) topAt(rank string) (point.Entry, bool) {
	n, err := strconv.Atoi(rank)
	if err != nil {
		return point.Entry{}, false
	}
	return a.points.TopAt(n - 1)
}

func (a *Arena) String() string {
	return fmt.Sprintf("%s[%s, %s]", a.def.Name, a.def.Game, a.state)
}
