package sched

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gitbgo/server/internal/core/entity"
	"go.uber.org/zap"
)

type fakeEntity struct {
	id    entity.ID
	loc   entity.Location
	valid atomic.Bool
}

func (e *fakeEntity) ID() entity.ID             { return e.id }
func (e *fakeEntity) Location() entity.Location { return e.loc }
func (e *fakeEntity) Valid() bool               { return e.valid.Load() }
func (e *fakeEntity) Despawn() error            { e.valid.Store(false); return nil }

func newFake(id entity.ID, x float64, valid bool) *fakeEntity {
	e := &fakeEntity{id: id, loc: entity.Location{World: "w", X: x}}
	e.valid.Store(valid)
	return e
}

func waitClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for scheduled work")
	}
}

func TestRunAtLocationPreservesRegionOrder(t *testing.T) {
	s := NewRegionScheduler(16, 4, zap.NewNop())
	defer s.Close()

	var mu sync.Mutex
	var got []int
	done := make(chan struct{})
	loc := entity.Location{World: "w", X: 3, Z: 3}
	for i := 0; i < 50; i++ {
		i := i
		s.RunAtLocation(loc, func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			if i == 49 {
				close(done)
			}
		})
	}
	waitClosed(t, done)
	for i, v := range got {
		if v != i {
			t.Fatalf("position %d ran task %d", i, v)
		}
	}
	if s.Regions() != 1 {
		t.Fatalf("regions = %d, want 1", s.Regions())
	}
}

func TestRunOnEntitySkipsWorkForInvalidButFinalizes(t *testing.T) {
	s := NewRegionScheduler(16, 4, zap.NewNop())
	defer s.Close()

	e := newFake(1, 0, false)
	var ran atomic.Bool
	done := make(chan struct{})
	task := s.RunOnEntity(e, func() { ran.Store(true) }, func() { close(done) }, false)
	waitClosed(t, done)
	if ran.Load() {
		t.Fatal("work ran for an invalid entity")
	}

	done2 := make(chan struct{})
	s.RunOnEntity(e, func() { ran.Store(true) }, func() { close(done2) }, true)
	waitClosed(t, done2)
	if !ran.Load() {
		t.Fatal("work skipped although allowIfInvalid was set")
	}

	task.Cancel() // after completion: no-op
	if st := task.(*Task).State(); st != TaskDone {
		t.Fatalf("state = %v, want done", st)
	}
}

func TestCancelledTaskRunsNothing(t *testing.T) {
	s := NewRegionScheduler(16, 4, zap.NewNop())
	defer s.Close()

	e := newFake(1, 0, true)
	block := make(chan struct{})
	started := make(chan struct{})
	s.RunAtLocation(e.Location(), func() {
		close(started)
		<-block
	})
	waitClosed(t, started)

	var ran atomic.Int32
	task := s.RunOnEntity(e, func() { ran.Add(1) }, func() { ran.Add(1) }, false)
	task.Cancel()

	after := make(chan struct{})
	s.RunAtLocation(e.Location(), func() { close(after) })
	close(block)
	waitClosed(t, after)

	if ran.Load() != 0 {
		t.Fatalf("cancelled task ran %d callbacks", ran.Load())
	}
	if st := task.(*Task).State(); st != TaskCancelled {
		t.Fatalf("state = %v, want cancelled", st)
	}
}

func TestPanickingWorkStillFinalizes(t *testing.T) {
	s := NewRegionScheduler(16, 4, zap.NewNop())
	defer s.Close()

	done := make(chan struct{})
	s.RunOnEntity(newFake(1, 0, true), func() { panic("boom") }, func() { close(done) }, false)
	waitClosed(t, done)
}

func TestCloseDrainsAndRejects(t *testing.T) {
	s := NewRegionScheduler(16, 4, zap.NewNop())
	var n atomic.Int32
	for i := 0; i < 20; i++ {
		s.RunAtLocation(entity.Location{World: "w", X: float64(i * 16)}, func() { n.Add(1) })
	}
	s.Close()
	if n.Load() != 20 {
		t.Fatalf("ran %d of 20 tasks before close returned", n.Load())
	}

	task := s.RunOnEntity(newFake(1, 0, true), func() { n.Add(1) }, nil, false)
	if st := task.(*Task).State(); st != TaskCancelled {
		t.Fatalf("post-close task state = %v, want cancelled", st)
	}
	if s.RunAtLocation(entity.Location{World: "w"}, func() { n.Add(1) }) {
		t.Fatal("RunAtLocation accepted work after close")
	}
	s.Close() // idempotent
}
