// Package entities owns the ephemeral entities a running game spawns: it
// creates them on the region that owns their location, tracks them, and
// tears them all down when a round ends or the game is shut down.
//
// At most one clear operation is in flight at a time. Concurrent callers of
// ClearEntities share it, and Spawn refuses to produce entities while it runs.
// The current operation and its task handles live in two single-value atomic
// slots so spawn and clear never contend on a wider lock.
package entities

import (
	"errors"
	"fmt"
	"iter"
	"sync/atomic"

	"github.com/gitbgo/server/internal/core/entity"
	"github.com/gitbgo/server/internal/core/future"
	"github.com/gitbgo/server/internal/core/sched"
	"go.uber.org/zap"
)

// ErrConstructionFailed is reported on a spawn future when the factory
// produced no entity.
var ErrConstructionFailed = errors.New("entity construction failed")

// Factory builds one entity at a location. It runs on the execution context
// owning that location and returns nil when the host refuses to create it.
type Factory interface {
	CreateEntity(loc entity.Location) entity.Entity
}

type FactoryFunc func(loc entity.Location) entity.Entity

func (f FactoryFunc) CreateEntity(loc entity.Location) entity.Entity { return f(loc) }

// RegionChecker reports whether the world data around a location is loaded.
type RegionChecker interface {
	IsRegionLoaded(loc entity.Location) bool
}

type Option func(*Feature)

func WithLogger(log *zap.Logger) Option {
	return func(f *Feature) { f.log = log }
}

// WithDespawnErrorHandler receives every despawn failure. Without it
// failures are dropped silently.
func WithDespawnErrorHandler(fn func(entity.Entity, error)) Option {
	return func(f *Feature) { f.onDespawnErr = fn }
}

// Feature is the entity lifecycle coordinator for one game instance.
type Feature struct {
	bridge  sched.Bridge
	regions RegionChecker
	factory Factory
	set     *entity.Set

	clearOp atomic.Pointer[future.Future[struct{}]]
	tasks   atomic.Pointer[[]sched.Handle]
	// epoch increments whenever a clear operation starts. A spawn that sees
	// it move while constructing rolls its entity back.
	epoch atomic.Uint64

	log          *zap.Logger
	onDespawnErr func(entity.Entity, error)
}

func New(bridge sched.Bridge, regions RegionChecker, factory Factory, opts ...Option) *Feature {
	f := &Feature{
		bridge:  bridge,
		regions: regions,
		factory: factory,
		set:     entity.NewSet(),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ── spawn ───────────────────────────────────────────────────────────

// Spawn asks the region owning loc to create an entity there. The future
// resolves with the entity, with nil when nothing was spawned (a clear is
// running, the region is not loaded or the host dropped the work), or fails
// with ErrConstructionFailed. onSpawned may be nil; it runs on the region
// context after registration.
func (f *Feature) Spawn(loc entity.Location, onSpawned func(entity.Entity)) *future.Future[entity.Entity] {
	if f.Clearing() {
		return future.Completed[entity.Entity](nil)
	}
	if !f.regions.IsRegionLoaded(loc) {
		return future.Completed[entity.Entity](nil)
	}

	out := future.New[entity.Entity]()
	epoch := f.epoch.Load()
	accepted := f.bridge.RunAtLocation(loc, func() {
		if f.Clearing() {
			out.Resolve(nil)
			return
		}

		e, err := f.construct(loc)
		if err != nil {
			out.Reject(err)
			return
		}
		f.set.Add(e)
		if f.epoch.Load() != epoch {
			// A clear started while we were constructing and may already
			// have taken its snapshot without us.
			f.set.Remove(e)
			f.despawn(e)
			f.log.Debug("spawn rolled back by concurrent clear", zap.Uint64("entity", uint64(e.ID())))
			out.Resolve(nil)
			return
		}
		if onSpawned != nil {
			f.notifySpawned(e, onSpawned)
		}
		out.Resolve(e)
	})
	if !accepted {
		out.Resolve(nil)
	}
	return out
}

// construct runs the factory, turning a nil result or a panic into
// ErrConstructionFailed.
func (f *Feature) construct(loc entity.Location) (e entity.Entity, err error) {
	defer func() {
		if r := recover(); r != nil {
			e, err = nil, fmt.Errorf("%w at %s: %v", ErrConstructionFailed, loc, r)
		}
	}()
	if e = f.factory.CreateEntity(loc); e == nil {
		return nil, fmt.Errorf("%w at %s", ErrConstructionFailed, loc)
	}
	return e, nil
}

// notifySpawned keeps a failing callback from undoing a registered spawn.
func (f *Feature) notifySpawned(e entity.Entity, fn func(entity.Entity)) {
	defer func() {
		if r := recover(); r != nil {
			f.log.Debug("spawn callback panicked", zap.Uint64("entity", uint64(e.ID())), zap.Any("panic", r))
		}
	}()
	fn(e)
}

// ── read side ───────────────────────────────────────────────────────

func (f *Feature) Contains(e entity.Entity) bool { return f.set.Contains(e) }

// Get finds a tracked entity by id.
func (f *Feature) Get(id entity.ID) (entity.Entity, bool) { return f.set.Get(id) }

// Entities returns a snapshot of every tracked entity, valid or not.
func (f *Feature) Entities() []entity.Entity { return f.set.Snapshot() }

func (f *Feature) CountValid() int { return f.set.CountValid() }

// Valid lazily yields tracked entities that are valid when visited.
func (f *Feature) Valid() iter.Seq[entity.Entity] { return f.set.Valid() }

// Clearing reports whether a clear operation is in flight.
func (f *Feature) Clearing() bool {
	op := f.clearOp.Load()
	return op != nil && !op.IsDone()
}

// OutstandingTasks returns the number of task handles held for the latest
// clear operation. Shutdown always leaves it at zero.
func (f *Feature) OutstandingTasks() int {
	if hs := f.tasks.Load(); hs != nil {
		return len(*hs)
	}
	return 0
}

// ── clear ───────────────────────────────────────────────────────────

// ClearEntities despawns every tracked entity on its own region and empties
// the set once all of them are done. While an operation is in flight every
// caller receives that same future and no new work is submitted.
func (f *Feature) ClearEntities() *future.Future[struct{}] {
	op := future.New[struct{}]()
	for {
		cur := f.clearOp.Load()
		if cur != nil && !cur.IsDone() {
			return cur
		}
		if f.clearOp.CompareAndSwap(cur, op) {
			break
		}
	}
	f.epoch.Add(1)

	snapshot := f.set.Snapshot()
	handles := make([]sched.Handle, 0, len(snapshot))
	signals := make([]future.Settler, 0, len(snapshot))
	for _, e := range snapshot {
		done := future.New[struct{}]()
		h := f.bridge.RunOnEntity(e,
			func() { f.despawn(e) },
			func() { done.Resolve(struct{}{}) },
			false)
		handles = append(handles, h)
		signals = append(signals, done)
	}
	f.tasks.Store(&handles)
	if op.Cancelled() {
		// Shutdown raced us between the swap and the store.
		f.cancelTasks()
	}
	f.log.Debug("clear started", zap.Int("entities", len(snapshot)))

	emptied := future.Then(future.Join(signals...), func(struct{}) (struct{}, error) {
		if !op.IsDone() { // otherwise cancelled by Shutdown
			f.set.ClearAll()
		}
		return struct{}{}, nil
	})
	emptied.OnSettled(func(error) { op.Resolve(struct{}{}) })
	return op
}

// Shutdown is the synchronous force path: it cancels outstanding despawn
// tasks and any pending clear, then despawns whatever is left on the
// calling goroutine and empties the set. It never waits on async work.
func (f *Feature) Shutdown() {
	f.cancelTasks()
	if op := f.clearOp.Swap(nil); op != nil {
		op.Cancel()
	}
	for _, e := range f.set.Snapshot() {
		if e.Valid() {
			f.despawn(e)
		}
	}
	f.set.ClearAll()
}

func (f *Feature) cancelTasks() {
	hs := f.tasks.Swap(nil)
	if hs == nil {
		return
	}
	for _, h := range *hs {
		h.Cancel()
	}
}

// despawn never lets a host failure escape; it only reports it.
func (f *Feature) despawn(e entity.Entity) {
	defer func() {
		if r := recover(); r != nil {
			f.reportDespawn(e, fmt.Errorf("despawn panic: %v", r))
		}
	}()
	if err := e.Despawn(); err != nil {
		f.reportDespawn(e, err)
	}
}

func (f *Feature) reportDespawn(e entity.Entity, err error) {
	if f.onDespawnErr != nil {
		f.onDespawnErr(e, err)
	}
}
