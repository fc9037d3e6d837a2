package model

import (
	"github.com/ixion-engine/ixion/address"
	"github.com/ixion-engine/ixion/token"
)

// formulaTable assigns model-owned identifiers to token.Store instances: a
// cell holds an identifier, GetFormulaTokens(sheet, identifier) resolves
// it. Store lifetime follows the reference count.
type formulaTable struct {
	stores map[uint32]*token.Store
	nextID uint32
}

func newFormulaTable() *formulaTable {
	return &formulaTable{stores: make(map[uint32]*token.Store), nextID: 1}
}

// Register wraps tokens in a single-owner store and returns its identifier.
func (ft *formulaTable) Register(tokens []token.FormulaToken) uint32 {
	id := ft.nextID
	ft.nextID++
	ft.stores[id] = token.NewStore(tokens)
	return id
}

// RegisterShared wraps tokens in a store shared across rng and returns its
// identifier.
func (ft *formulaTable) RegisterShared(tokens []token.FormulaToken, rng address.RangeAddress) uint32 {
	id := ft.nextID
	ft.nextID++
	ft.stores[id] = token.NewSharedStore(tokens, rng)
	return id
}

// Retain adds one more reference to an existing shared store, e.g. when a
// fill-down extends the sharing group to cover one more cell.
func (ft *formulaTable) Retain(id uint32) {
	if s, ok := ft.stores[id]; ok {
		s.Retain()
	}
}

func (ft *formulaTable) Tokens(id uint32) ([]token.FormulaToken, bool) {
	s, ok := ft.stores[id]
	if !ok {
		return nil, false
	}
	return s.Tokens, true
}

func (ft *formulaTable) SharedTokens(id uint32) ([]token.FormulaToken, bool) {
	s, ok := ft.stores[id]
	if !ok || !s.Shared {
		return nil, false
	}
	return s.Tokens, true
}

func (ft *formulaTable) SharedRange(id uint32) (address.RangeAddress, bool) {
	s, ok := ft.stores[id]
	if !ok || !s.Shared {
		return address.RangeAddress{}, false
	}
	return s.Range, true
}

// Release drops one reference from id's store, deleting it entirely once
// unreferenced.
func (ft *formulaTable) Release(id uint32) {
	s, ok := ft.stores[id]
	if !ok {
		return
	}
	if s.Release() {
		delete(ft.stores, id)
	}
}

func (ft *formulaTable) Count() int { return len(ft.stores) }
