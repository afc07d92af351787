package system

import (
	"time"

	coresys "github.com/gitbgo/server/internal/core/system"
	"go.uber.org/zap"
)

// Stats is what the status report reads each interval.
type Stats interface {
	Count() int
	LoadedRegionCount() int
}

// QueueStats reports region worker backlog. sched.RegionScheduler
// implements it.
type QueueStats interface {
	Regions() int
	Pending() int
}

// StatusSystem logs a short health line at a fixed interval.
// Phase 4 (Cleanup).
type StatusSystem struct {
	stats    Stats
	queues   QueueStats
	interval time.Duration
	elapsed  time.Duration
	log      *zap.Logger
}

func NewStatusSystem(stats Stats, queues QueueStats, interval time.Duration, log *zap.Logger) *StatusSystem {
	return &StatusSystem{stats: stats, queues: queues, interval: interval, log: log}
}

func (s *StatusSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *StatusSystem) Update(dt time.Duration) {
	if s.interval <= 0 {
		return
	}
	s.elapsed += dt
	if s.elapsed < s.interval {
		return
	}
	s.elapsed = 0
	s.log.Info("status",
		zap.Int("entities", s.stats.Count()),
		zap.Int("loaded_regions", s.stats.LoadedRegionCount()),
		zap.Int("workers", s.queues.Regions()),
		zap.Int("queued_tasks", s.queues.Pending()),
	)
}
