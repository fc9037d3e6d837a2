// Package pool implements the cell queue manager: a bounded worker pool
// that dispatches a topologically-sorted batch of dirty cells so that no
// cell is interpreted before all of its direct dependencies have committed
// a result. golang.org/x/sync/semaphore bounds how many cells may be in
// flight at once; golang.org/x/sync/errgroup joins the worker goroutines
// at Terminate.
package pool

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/ixion-engine/ixion/address"
	"github.com/ixion-engine/ixion/depend"
)

// CellEvaluator performs the per-cell work a recompute batch needs. The
// manager never touches cell storage itself; ResetCell/StampCircular/
// InterpretCell are responsible for reading and publishing results against
// the model context.
type CellEvaluator interface {
	// ResetCell clears a formula cell's cached error and marks it stale.
	ResetCell(addr address.CellAddress)
	// StampCircular marks addr's result as ref_result_not_available
	// because it participates in a dependency cycle.
	StampCircular(addr address.CellAddress)
	// InterpretCell interprets addr's formula and publishes the result.
	InterpretCell(addr address.CellAddress)
}

type cellJob struct {
	addr address.CellAddress
	done chan<- address.CellAddress
}

// Manager owns one recompute batch's worker goroutines and ready queue.
type Manager struct {
	n    int
	eval CellEvaluator

	queue chan cellJob
	sem   *semaphore.Weighted
	eg    *errgroup.Group
	ctx   context.Context
}

// Init spawns n worker goroutines against eval, each signaling ready
// before Init returns. n == 0 bypasses the pool entirely: Run evaluates
// every cell in the calling goroutine.
func Init(n int, eval CellEvaluator) *Manager {
	m := &Manager{n: n, eval: eval}
	if n <= 0 {
		return m
	}

	m.queue = make(chan cellJob, n)
	m.sem = semaphore.NewWeighted(int64(n))
	eg, ctx := errgroup.WithContext(context.Background())
	m.eg = eg
	m.ctx = ctx

	var ready sync.WaitGroup
	ready.Add(n)
	for i := 0; i < n; i++ {
		eg.Go(func() error {
			ready.Done()
			for job := range m.queue {
				m.eval.InterpretCell(job.addr)
				m.sem.Release(1)
				job.done <- job.addr
			}
			return nil
		})
	}
	ready.Wait()
	return m
}

// Run executes one full recompute batch over g restricted to dirty (plus
// whatever dirty transitively depends on): reset every position in topo
// order, stamp circular positions, then dispatch the rest, each cell only
// once every non-cyclic direct dependency has committed, tracked by a
// remaining-dependency counter per cell.
func (m *Manager) Run(g *depend.Graph, dirty []address.CellAddress) {
	order, cyclic := g.TopoSort(dirty)

	for _, addr := range order {
		m.eval.ResetCell(addr)
	}

	remaining := make(map[address.CellAddress]int, len(order))
	for _, addr := range order {
		if cyclic[addr] {
			m.eval.StampCircular(addr)
			continue
		}
		count := 0
		for _, dep := range g.Precedents(addr) {
			if !cyclic[dep] {
				count++
			}
		}
		remaining[addr] = count
	}
	if len(remaining) == 0 {
		return
	}

	completed := make(chan address.CellAddress, len(remaining))
	dispatched := make(map[address.CellAddress]bool, len(remaining))

	dispatchReady := func() {
		for addr, count := range remaining {
			if count == 0 && !dispatched[addr] {
				dispatched[addr] = true
				m.dispatch(addr, completed)
			}
		}
	}
	dispatchReady()

	for done := 0; done < len(remaining); done++ {
		addr := <-completed
		for _, dependent := range g.Dependents(addr) {
			if count, ok := remaining[dependent]; ok {
				remaining[dependent] = count - 1
			}
		}
		dispatchReady()
	}
}

func (m *Manager) dispatch(addr address.CellAddress, completed chan<- address.CellAddress) {
	if m.n <= 0 {
		m.eval.InterpretCell(addr)
		completed <- addr
		return
	}
	_ = m.sem.Acquire(m.ctx, 1)
	m.queue <- cellJob{addr: addr, done: completed}
}

// Terminate flushes the ready queue, signals workers to exit, and joins
// them. The Manager must not be reused afterward.
func (m *Manager) Terminate() error {
	if m.n <= 0 {
		return nil
	}
	close(m.queue)
	return m.eg.Wait()
}
