package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: console commands
	PhasePreUpdate               // 1: dispatch last tick's events
	PhaseUpdate                  // 2: round logic, spawning
	PhasePostUpdate              // 3: holograms
	PhaseCleanup                 // 4: finished clears, housekeeping
)

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
