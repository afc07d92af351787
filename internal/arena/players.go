package arena

import (
	"crypto/md5"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Players maps player names to the stable ids the host uses for them.
type Players struct {
	mu     sync.RWMutex
	byName map[string]uuid.UUID
	byID   map[uuid.UUID]string
}

func NewPlayers() *Players {
	return &Players{
		byName: make(map[string]uuid.UUID),
		byID:   make(map[uuid.UUID]string),
	}
}

// OfflineID derives the version 3 id a host in offline mode assigns to name.
func OfflineID(name string) uuid.UUID {
	sum := md5.Sum([]byte("OfflinePlayer:" + name))
	sum[6] = sum[6]&0x0f | 0x30
	sum[8] = sum[8]&0x3f | 0x80
	return uuid.UUID(sum)
}

// ID returns the id for name, registering the player on first sight.
func (p *Players) ID(name string) uuid.UUID {
	p.mu.RLock()
	id, ok := p.byName[name]
	p.mu.RUnlock()
	if ok {
		return id
	}
	id = OfflineID(name)
	p.mu.Lock()
	p.byName[name] = id
	p.byID[id] = name
	p.mu.Unlock()
	return id
}

func (p *Players) Name(id uuid.UUID) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n, ok := p.byID[id]
	return n, ok
}

// Names returns every known player name, sorted.
func (p *Players) Names() []string {
	p.mu.RLock()
	out := make([]string, 0, len(p.byName))
	for n := range p.byName {
		out = append(out, n)
	}
	p.mu.RUnlock()
	sort.Strings(out)
	return out
}
