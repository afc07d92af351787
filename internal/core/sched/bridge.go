// Package sched is the bridge between game features and the host's
// execution contexts. Work touching a location or an entity must run on the
// context that owns the corresponding region; callers only ever submit and
// never wait.
package sched

import "github.com/gitbgo/server/internal/core/entity"

// Handle is a cancellable reference to submitted work. Cancel is safe to
// call at any time, including after the work finished.
type Handle interface {
	Cancel()
}

// Bridge is the capability the entity coordinator needs from the host.
type Bridge interface {
	// RunAtLocation runs work later on the context owning loc's region.
	// It returns false when the work was rejected and will never run.
	RunAtLocation(loc entity.Location, work func()) bool
	// RunOnEntity runs work on the context owning e, then always runs
	// finalize. When e is no longer valid and allowIfInvalid is false the
	// work is skipped but finalize still runs.
	RunOnEntity(e entity.Entity, work, finalize func(), allowIfInvalid bool) Handle
}
