package sched

import "sync/atomic"

type TaskState int32

const (
	TaskPending TaskState = iota
	TaskRunning
	TaskDone
	TaskCancelled
)

func (s TaskState) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskRunning:
		return "running"
	case TaskDone:
		return "done"
	case TaskCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Task is the Handle returned by RegionScheduler.RunOnEntity.
// A cancelled task runs neither its work nor its finalizer. Cancelling a
// task that already started has no effect.
type Task struct {
	state atomic.Int32
}

func (t *Task) Cancel() {
	t.state.CompareAndSwap(int32(TaskPending), int32(TaskCancelled))
}

func (t *Task) State() TaskState { return TaskState(t.state.Load()) }

func (t *Task) start() bool {
	return t.state.CompareAndSwap(int32(TaskPending), int32(TaskRunning))
}

func (t *Task) finish() { t.state.Store(int32(TaskDone)) }
