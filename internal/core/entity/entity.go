package entity

import "sync"

// ID encodes a 32-bit index in the lower bits and a 32-bit generation
// in the upper bits. Generation increments on release to invalidate stale refs.
type ID uint64

func NewID(index uint32, generation uint32) ID {
	return ID(uint64(generation)<<32 | uint64(index))
}

func (id ID) Index() uint32      { return uint32(id) }
func (id ID) Generation() uint32 { return uint32(id >> 32) }
func (id ID) IsZero() bool       { return id == 0 }

// Entity is a host-managed world object. The lifecycle coordinator only
// tracks membership; behaviour belongs to the host.
type Entity interface {
	ID() ID
	Location() Location
	// Valid reports whether the entity is still alive in the host world.
	Valid() bool
	// Despawn removes the entity from the host world. Only the first call
	// is meaningful.
	Despawn() error
}

// Pool manages id allocation with generational indices and a free list.
// Safe for concurrent use: region workers allocate ids in parallel.
type Pool struct {
	mu          sync.Mutex
	generations []uint32
	freeList    []uint32
	nextIndex   uint32
}

func NewPool() *Pool {
	return &Pool{
		generations: make([]uint32, 0, 256),
		freeList:    make([]uint32, 0, 64),
		nextIndex:   1, // index 0 is reserved so the zero ID never names a live entity
	}
}

func (p *Pool) Create() ID {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.freeList) > 0 {
		idx := p.freeList[len(p.freeList)-1]
		p.freeList = p.freeList[:len(p.freeList)-1]
		return NewID(idx, p.generations[idx])
	}
	idx := p.nextIndex
	p.nextIndex++
	for int(idx) >= len(p.generations) {
		p.generations = append(p.generations, 0)
	}
	return NewID(idx, p.generations[idx])
}

func (p *Pool) Alive(id ID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := id.Index()
	if idx == 0 || idx >= p.nextIndex {
		return false
	}
	return p.generations[idx] == id.Generation()
}

func (p *Pool) Release(id ID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := id.Index()
	if idx == 0 || idx >= p.nextIndex {
		return
	}
	if p.generations[idx] != id.Generation() {
		return // already released (stale reference)
	}
	p.generations[idx]++
	p.freeList = append(p.freeList, idx)
}
