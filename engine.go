package ixion

import (
	"log/slog"

	"github.com/ixion-engine/ixion/address"
	"github.com/ixion-engine/ixion/depend"
	"github.com/ixion-engine/ixion/internal/logx"
	"github.com/ixion-engine/ixion/model"
	"github.com/ixion-engine/ixion/pool"
	"github.com/ixion-engine/ixion/resolver"
	"github.com/ixion-engine/ixion/token"
)

// Engine owns a model context and keeps its listener tracker consistent with
// the formulas stored in it: setting a formula registers the cell as a
// listener on everything the formula references, and Calculate recomputes
// the listener closure of a modified set. Engine's recompute pipeline is a
// reset -> circular-check -> dispatch sequence, delegated to depend.Graph
// and pool.Manager.
//
// Engine's mutation API (SetNumber/SetString/SetFormulaText/RemoveCell) is
// not safe for concurrent use; edits and recompute batches are quiescent
// points with respect to each other. Only the interpretation inside
// Calculate runs concurrently, and only across worker goroutines the
// engine owns for the duration of the batch.
type Engine struct {
	cfg Config
	ctx *model.MemoryContext
	res resolver.Resolver

	// watching records, per formula cell, the listen targets it registered,
	// so the next edit of that cell can unregister them.
	watching map[address.CellAddress][]model.ListenTarget
}

// New builds an Engine around a fresh in-memory model context.
func New(cfg Config) *Engine {
	ctx := model.NewMemoryContext(cfg.Model)
	return &Engine{
		cfg:      cfg,
		ctx:      ctx,
		res:      resolver.New(cfg.Dialect, ctx),
		watching: make(map[address.CellAddress][]model.ListenTarget),
	}
}

// Context exposes the engine's model context.
func (e *Engine) Context() *model.MemoryContext { return e.ctx }

// Resolver exposes the engine's name resolver, e.g. for formatting results
// back to reference text.
func (e *Engine) Resolver() resolver.Resolver { return e.res }

// AddSheet registers a sheet; rows/cols of 0 fall back to the global upper
// bounds.
func (e *Engine) AddSheet(name string, rows, cols int) int {
	return e.ctx.AddSheet(name, rows, cols)
}

// SetNumber stores a numeric literal, dropping any listener registrations a
// formula previously at addr held.
func (e *Engine) SetNumber(addr address.CellAddress, n float64) {
	addr = addr.Position()
	e.unlisten(addr)
	e.ctx.SetNumber(addr, n)
}

// SetString stores a string literal, dropping any listener registrations a
// formula previously at addr held.
func (e *Engine) SetString(addr address.CellAddress, s string) {
	addr = addr.Position()
	e.unlisten(addr)
	e.ctx.SetString(addr, s)
}

// RemoveCell erases addr entirely.
func (e *Engine) RemoveCell(addr address.CellAddress) {
	addr = addr.Position()
	e.unlisten(addr)
	e.ctx.RemoveCell(addr)
}

// SetFormulaText parses src and stores the resulting token stream at addr,
// registering addr as a listener on every cell and range the formula
// references. On a parse error the cell is left holding an empty token
// stream with no dependencies registered.
func (e *Engine) SetFormulaText(addr address.CellAddress, src string) error {
	addr = addr.Position()
	e.unlisten(addr)

	tokens, err := ParseFormulaString(e.ctx, addr, e.cfg.Dialect, src)
	if err != nil {
		e.ctx.SetFormula(addr, nil)
		return err
	}
	e.ctx.SetFormula(addr, tokens)
	e.listen(addr, tokens)
	return nil
}

// SetSharedFormulaText parses src once, anchored at rng's first cell, and
// shares the token stream across every cell of rng; each cell re-anchors the
// relative references to its own position, both for listener registration
// here and at interpret time.
func (e *Engine) SetSharedFormulaText(rng address.RangeAddress, src string) error {
	n := rng.Normalize()
	for row := n.First.Row; row <= n.Last.Row; row++ {
		for col := n.First.Col; col <= n.Last.Col; col++ {
			e.unlisten(address.CellAddress{Sheet: n.First.Sheet, Row: row, Col: col})
		}
	}

	anchor := n.First.Position()
	tokens, err := ParseFormulaString(e.ctx, anchor, e.cfg.Dialect, src)
	if err != nil {
		return err
	}
	e.ctx.SetSharedFormula(n, tokens)
	for row := n.First.Row; row <= n.Last.Row; row++ {
		for col := n.First.Col; col <= n.Last.Col; col++ {
			e.listen(address.CellAddress{Sheet: n.First.Sheet, Row: row, Col: col}, tokens)
		}
	}
	return nil
}

func (e *Engine) listen(addr address.CellAddress, tokens []token.FormulaToken) {
	targets := ReferenceTargets(e.ctx, tokens, addr)
	for _, t := range targets {
		e.ctx.Listeners().Add(addr, t)
	}
	if len(targets) > 0 {
		e.watching[addr] = targets
	}
}

func (e *Engine) unlisten(addr address.CellAddress) {
	for _, t := range e.watching[addr] {
		e.ctx.Listeners().Remove(addr, t)
	}
	delete(e.watching, addr)
}

// Calculate recomputes every formula cell transitively listening on the
// modified cells (plus any of the modified cells that are formulas
// themselves), honoring the engine's configured thread count.
func (e *Engine) Calculate(modified ...address.CellAddress) {
	dirty := DirtyCells(e.ctx, e.ctx.Listeners(), modified)
	CalculateCells(e.ctx, e.ctx, dirty, e.cfg.ThreadCount, e.cfg.Logger)
}

// CalculateAll recomputes every formula cell in the model.
func (e *Engine) CalculateAll() {
	CalculateCells(e.ctx, e.ctx, e.ctx.FormulaCells(), e.cfg.ThreadCount, e.cfg.Logger)
}

// DirtyCells computes the dirty set for a recompute: the formula cells
// among modified, plus every cell transitively listening on any modified
// cell.
func DirtyCells(ctx model.Context, tracker model.ListenerTracker, modified []address.CellAddress) []address.CellAddress {
	seen := make(map[address.CellAddress]bool)
	var dirty []address.CellAddress

	queue := make([]address.CellAddress, 0, len(modified))
	for _, addr := range modified {
		queue = append(queue, addr.Position())
	}
	enqueued := make(map[address.CellAddress]bool, len(queue))
	for _, addr := range queue {
		enqueued[addr] = true
	}

	for len(queue) > 0 {
		addr := queue[0]
		queue = queue[1:]

		if !seen[addr] && ctx.GetCellType(addr) == model.CellFormula {
			seen[addr] = true
			dirty = append(dirty, addr)
		}
		for _, listener := range tracker.GetAllListeners(addr) {
			l := listener.Position()
			if !enqueued[l] {
				enqueued[l] = true
				queue = append(queue, l)
			}
		}
	}
	return dirty
}

// CalculateCells recomputes the given formula cells: it rebuilds the
// dependency graph restricted to the dirty set from each cell's token
// stream, then runs the reset / circular-check / dispatch phases through a
// pool.Manager with threads workers (0 evaluates in the calling goroutine).
// eval publishes per-cell results; with a MemoryContext, pass the context
// itself. logger may be nil.
func CalculateCells(ctx model.Context, eval pool.CellEvaluator, dirty []address.CellAddress, threads int, logger *slog.Logger) {
	log := logx.Or(logger)
	if len(dirty) == 0 {
		return
	}

	norm := make([]address.CellAddress, len(dirty))
	dirtySet := make(map[address.CellAddress]bool, len(dirty))
	for i, addr := range dirty {
		norm[i] = addr.Position()
		dirtySet[norm[i]] = true
	}
	dirty = norm

	g := depend.NewGraph()
	for _, origin := range dirty {
		tokens, ok := formulaTokens(ctx, origin)
		if !ok {
			continue
		}
		for _, target := range ReferenceTargets(ctx, tokens, origin) {
			if !target.IsRange {
				p := target.Point.Position()
				if dirtySet[p] && p != origin {
					g.InsertDepend(origin, p)
				}
				continue
			}
			for other := range dirtySet {
				if other != origin && target.Range.Contains(other) {
					g.InsertDepend(origin, other)
				}
			}
		}
	}

	log.Debug("calculate batch", "cells", len(dirty), "threads", threads)

	mgr := pool.Init(threads, eval)
	mgr.Run(g, dirty)
	if err := mgr.Terminate(); err != nil {
		log.Error("worker pool terminated with error", "err", err)
	}
}

func formulaTokens(ctx model.Context, addr address.CellAddress) ([]token.FormulaToken, bool) {
	id, ok := ctx.GetFormulaCell(addr)
	if !ok {
		return nil, false
	}
	if tokens, ok := ctx.GetFormulaTokens(addr.Sheet, id); ok {
		return tokens, true
	}
	return ctx.GetSharedFormulaTokens(addr.Sheet, id)
}

// ReferenceTargets extracts the listen targets a formula's token stream
// reads, resolved absolute against origin: one point target per single
// reference, one range target per range or table reference, recursing
// through named expressions (a name already being expanded is skipped here;
// the interpreter reports the invalid_expression on evaluation).
func ReferenceTargets(ctx model.Context, tokens []token.FormulaToken, origin address.CellAddress) []model.ListenTarget {
	var out []model.ListenTarget
	collectTargets(ctx, tokens, origin, map[string]bool{}, &out)
	return out
}

func collectTargets(ctx model.Context, tokens []token.FormulaToken, origin address.CellAddress, used map[string]bool, out *[]model.ListenTarget) {
	for _, tok := range tokens {
		switch tok.Op {
		case token.SingleRef:
			*out = append(*out, model.PointTarget(tok.Single.Resolve(origin).Position()))
		case token.RangeRef:
			rng := tok.Range.Resolve(origin).Normalize()
			*out = append(*out, model.RangeTarget(rng))
		case token.TableRef:
			handler := ctx.GetTableHandler()
			if handler == nil {
				continue
			}
			if rng, ok := handler.ResolveTable(tok.Table, origin); ok {
				*out = append(*out, model.RangeTarget(rng.Normalize()))
			}
		case token.NamedExpr:
			if used[tok.Name] {
				continue
			}
			sub, ok := ctx.GetNamedExpression(origin.Sheet, tok.Name)
			if !ok {
				sub, ok = ctx.GetNamedExpression(GlobalScope, tok.Name)
			}
			if !ok {
				continue
			}
			used[tok.Name] = true
			collectTargets(ctx, sub, origin, used, out)
			delete(used, tok.Name)
		}
	}
}
