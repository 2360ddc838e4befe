package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/dshills/gridstorm/internal/cell"
)

// Provider is an in-memory cell.Provider holding one bounded grid per
// resource. Safe for concurrent use.
type Provider struct {
	mu        sync.RWMutex
	resources map[cell.ResourceID]*grid
	disposed  bool
}

// grid is the storage for one resource.
type grid struct {
	rows, cols int
	cells      map[cell.Address]cell.Value
	readOnly   map[cell.Address]bool
}

// New creates an empty provider.
func New() *Provider {
	return &Provider{
		resources: make(map[cell.ResourceID]*grid),
	}
}

// AddResource registers a rows x cols grid for the resource, replacing any
// existing grid of the same name.
func (p *Provider) AddResource(res cell.ResourceID, rows, cols int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.resources[res] = &grid{
		rows:     rows,
		cols:     cols,
		cells:    make(map[cell.Address]cell.Value),
		readOnly: make(map[cell.Address]bool),
	}
}

// Seed places units into a resource without going through the write path,
// ignoring bounds errors from misconfigured fixtures.
func (p *Provider) Seed(res cell.ResourceID, units ...cell.Unit) {
	p.mu.Lock()
	defer p.mu.Unlock()

	g, ok := p.resources[res]
	if !ok {
		return
	}
	for _, u := range units {
		if g.inBounds(u.Address) {
			g.cells[u.Address] = u.Value
		}
	}
}

// MarkReadOnly protects a unit from writes.
func (p *Provider) MarkReadOnly(res cell.ResourceID, addr cell.Address) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if g, ok := p.resources[res]; ok {
		g.readOnly[addr] = true
	}
}

// ReadAddress returns the unit at the address. Absent cells inside bounds
// read as a unit with an absent value.
func (p *Provider) ReadAddress(_ context.Context, res cell.ResourceID, addr cell.Address) (cell.Unit, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.disposed {
		return cell.Unit{}, cell.ErrDisposed
	}

	g, ok := p.resources[res]
	if !ok {
		return cell.Unit{}, fmt.Errorf("%s: %w", res, cell.ErrUnknownResource)
	}
	if !g.inBounds(addr) {
		return cell.Unit{}, fmt.Errorf("%s %s: %w", res, addr, cell.ErrOutOfRange)
	}

	return cell.Unit{Address: addr, Value: g.cells[addr]}, nil
}

// WriteAddress stores the unit's value at its address.
func (p *Provider) WriteAddress(_ context.Context, res cell.ResourceID, unit cell.Unit) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.disposed {
		return cell.ErrDisposed
	}

	g, ok := p.resources[res]
	if !ok {
		return fmt.Errorf("%s: %w", res, cell.ErrUnknownResource)
	}
	if !g.inBounds(unit.Address) {
		return fmt.Errorf("%s %s: %w", res, unit.Address, cell.ErrOutOfRange)
	}
	if g.readOnly[unit.Address] {
		return fmt.Errorf("%s %s: %w", res, unit.Address, cell.ErrReadOnly)
	}

	g.cells[unit.Address] = unit.Value
	return nil
}

// Dispose releases all grids. Idempotent.
func (p *Provider) Dispose() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.disposed = true
	p.resources = make(map[cell.ResourceID]*grid)
	return nil
}

// inBounds reports whether the address falls inside the grid.
func (g *grid) inBounds(addr cell.Address) bool {
	return addr.Valid() && addr.Row < g.rows && addr.Col < g.cols
}
