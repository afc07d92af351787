package world

import (
	"sync"

	"github.com/gitbgo/server/internal/core/entity"
)

// Hologram is a floating text display. Lines are only kept while it is
// initialised.
type Hologram struct {
	loc entity.Location

	mu          sync.Mutex
	initialized bool
	lines       []string
}

func (h *Hologram) Location() entity.Location { return h.loc }

func (h *Hologram) Init() {
	h.mu.Lock()
	h.initialized = true
	h.mu.Unlock()
}

func (h *Hologram) Clear() {
	h.mu.Lock()
	h.initialized = false
	h.lines = nil
	h.mu.Unlock()
}

func (h *Hologram) Initialized() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.initialized
}

func (h *Hologram) SetLines(lines []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.initialized {
		return
	}
	h.lines = append(h.lines[:0], lines...)
}

func (h *Hologram) Lines() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.lines...)
}
