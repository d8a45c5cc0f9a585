package persist

import (
	"context"
	"sync"

	"konto/internal/core"
)

// MemoryGateway keeps the last saved snapshot in process memory. Used in
// tests and for the throwaway backend mode.
type MemoryGateway struct {
	mu      sync.Mutex
	snap    core.Snapshot
	saved   bool
	saves   int
	backups []core.Snapshot
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{}
}

func (g *MemoryGateway) Save(_ context.Context, snap core.Snapshot) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.snap = snap
	g.saved = true
	g.saves++
	return nil
}

func (g *MemoryGateway) Load(_ context.Context) (core.Snapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.saved {
		return core.Snapshot{}, persistErr("load", ErrNoSnapshot)
	}
	return g.snap, nil
}

func (g *MemoryGateway) Exists(_ context.Context) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.saved, nil
}

func (g *MemoryGateway) Backup(_ context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.saved {
		return "", persistErr("backup", ErrNoSnapshot)
	}
	g.backups = append(g.backups, g.snap)
	return "memory", nil
}

func (g *MemoryGateway) Clear(_ context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.snap = core.Snapshot{}
	g.saved = false
	return nil
}

// SaveCount reports how many times Save ran, for tests.
func (g *MemoryGateway) SaveCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.saves
}
