package knowledge

import (
	"context"
	"sync"

	"github.com/hyperjump/cmassist/internal/models"
)

// generations is the set of ingest generations the ledger currently points at.
// Records are immutable, so a re-ingested file leaves its old chunks in the
// index; they carry a generation that is no longer live and are filtered out.
type generations struct {
	mu     sync.RWMutex
	loaded bool
	live   map[string]struct{}
}

// load reads the ledger once. The lock is held across the read so a concurrent
// supersede is never lost.
func (g *generations) load(ctx context.Context, ledger Ledger) error {
	g.mu.RLock()
	loaded := g.loaded
	g.mu.RUnlock()
	if loaded {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.loaded {
		return nil
	}
	sources, err := ledger.ListSources(ctx)
	if err != nil {
		return err
	}
	g.live = make(map[string]struct{}, len(sources))
	for _, src := range sources {
		if src.Generation != "" {
			g.live[src.Generation] = struct{}{}
		}
	}
	g.loaded = true
	return nil
}

// supersede makes next live in place of previous.
func (g *generations) supersede(previous, next string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.loaded {
		return
	}
	if previous != "" {
		delete(g.live, previous)
	}
	g.live[next] = struct{}{}
}

// current accepts records without a generation and those at a live one.
func (g *generations) current(metadata map[string]string) bool {
	gen, ok := metadata[models.MetaGeneration]
	if !ok {
		return true
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, live := g.live[gen]
	return live
}
