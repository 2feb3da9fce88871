package jobtable

import (
	"sync"

	"github.com/me/slicer/pkg/model"
)

// Guard is the synchronization boundary around a Table. The scheduler is
// the only caller of Update; front-ends use Submit and the read accessors.
type Guard struct {
	mu    sync.RWMutex
	table *Table
}

// NewGuard wraps t. The caller must not touch t directly afterwards.
func NewGuard(t *Table) *Guard {
	return &Guard{table: t}
}

// Update runs fn with exclusive access to the table.
func (g *Guard) Update(fn func(t *Table) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fn(g.table)
}

// View runs fn with shared access. fn must not mutate the table.
func (g *Guard) View(fn func(t *Table) error) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return fn(g.table)
}

// Submit enqueues path for admission and returns the resulting queue length.
func (g *Guard) Submit(path string) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.table.Submit(path); err != nil {
		return g.table.admission.Len(), err
	}
	return g.table.admission.Len(), nil
}

// Snapshot returns a consistent copy of the aggregate.
func (g *Guard) Snapshot() model.Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.table.Snapshot()
}
