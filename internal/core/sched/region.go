package sched

import (
	"fmt"
	"sync"

	"github.com/gitbgo/server/internal/core/entity"
	"go.uber.org/zap"
)

// RegionScheduler runs submitted work on one goroutine per region. Work for
// the same region runs in submission order; different regions run in
// parallel. Submission never blocks.
type RegionScheduler struct {
	size     int
	queueCap int
	log      *zap.Logger

	mu      sync.Mutex
	workers map[entity.Region]*worker
	closed  bool
	wg      sync.WaitGroup
}

func NewRegionScheduler(regionSize, queueCap int, log *zap.Logger) *RegionScheduler {
	if regionSize <= 0 {
		regionSize = entity.DefaultRegionSize
	}
	if queueCap <= 0 {
		queueCap = 16
	}
	return &RegionScheduler{
		size:     regionSize,
		queueCap: queueCap,
		log:      log,
		workers:  make(map[entity.Region]*worker),
	}
}

// RegionSize is the edge length used to map locations to regions.
func (s *RegionScheduler) RegionSize() int { return s.size }

// Regions returns the number of regions that have a running worker.
func (s *RegionScheduler) Regions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.workers)
}

// Pending returns the number of queued tasks not yet picked up by a worker.
func (s *RegionScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, w := range s.workers {
		n += w.pending()
	}
	return n
}

func (s *RegionScheduler) RunAtLocation(loc entity.Location, work func()) bool {
	region := loc.Region(s.size)
	if !s.submit(region, func() { s.safeRun("location", region, work) }) {
		s.log.Debug("scheduler closed, dropping location task", zap.Stringer("region", region))
		return false
	}
	return true
}

func (s *RegionScheduler) RunOnEntity(e entity.Entity, work, finalize func(), allowIfInvalid bool) Handle {
	t := &Task{}
	region := e.Location().Region(s.size)
	ok := s.submit(region, func() {
		if !t.start() {
			return // cancelled before it ran
		}
		if allowIfInvalid || e.Valid() {
			s.safeRun("entity", region, work)
		}
		if finalize != nil {
			s.safeRun("finalizer", region, finalize)
		}
		t.finish()
	})
	if !ok {
		t.Cancel()
		s.log.Debug("scheduler closed, dropping entity task",
			zap.Uint64("entity", uint64(e.ID())), zap.Stringer("region", region))
	}
	return t
}

// Close stops accepting work, lets every worker drain its queue and waits
// for them to exit.
func (s *RegionScheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for _, w := range s.workers {
		w.stop()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *RegionScheduler) submit(region entity.Region, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	w, ok := s.workers[region]
	if !ok {
		w = newWorker(s.queueCap)
		s.workers[region] = w
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			w.loop()
		}()
		s.log.Debug("region worker started", zap.Stringer("region", region))
	}
	w.push(fn)
	return true
}

func (s *RegionScheduler) safeRun(kind string, region entity.Region, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("scheduled task panicked",
				zap.String("kind", kind),
				zap.Stringer("region", region),
				zap.String("panic", fmt.Sprint(r)))
		}
	}()
	fn()
}

// ── worker ──────────────────────────────────────────────────────────

type worker struct {
	mu       sync.Mutex
	cond     *sync.Cond
	queue    []func()
	stopping bool
}

func newWorker(queueCap int) *worker {
	w := &worker{queue: make([]func(), 0, queueCap)}
	w.cond = sync.NewCond(&w.mu)
	return w
}

func (w *worker) push(fn func()) {
	w.mu.Lock()
	w.queue = append(w.queue, fn)
	w.mu.Unlock()
	w.cond.Signal()
}

func (w *worker) pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queue)
}

func (w *worker) stop() {
	w.mu.Lock()
	w.stopping = true
	w.mu.Unlock()
	w.cond.Signal()
}

func (w *worker) loop() {
	for {
		w.mu.Lock()
		for len(w.queue) == 0 && !w.stopping {
			w.cond.Wait()
		}
		if len(w.queue) == 0 {
			w.mu.Unlock()
			return
		}
		batch := w.queue
		w.queue = make([]func(), 0, cap(batch))
		w.mu.Unlock()

		for _, fn := range batch {
			fn()
		}
	}
}
