package token

import "github.com/ixion-engine/ixion/address"

// Store owns one parsed token array. A plain (non-shared) formula has a
// Store with RefCount 1 and no Range. A shared/grouped formula has one
// Store referenced by every cell in Range, with RefCount equal to the
// number of cells in that rectangle; relative
// references inside Tokens are re-anchored per cell at interpret time by
// resolving against that cell's own position, not the store's.
type Store struct {
	Tokens   []FormulaToken
	RefCount int
	Shared   bool
	Range    address.RangeAddress // meaningful only when Shared
}

// NewStore wraps tokens in a single-owner (non-shared) store.
func NewStore(tokens []FormulaToken) *Store {
	return &Store{Tokens: tokens, RefCount: 1}
}

// NewSharedStore wraps tokens in a store shared across rng. The reference
// count is seeded from the rectangle's cell count, so it always equals the
// number of cells in the sharing group.
func NewSharedStore(tokens []FormulaToken, rng address.RangeAddress) *Store {
	n := rng.Normalize()
	rows := n.Last.Row - n.First.Row + 1
	cols := n.Last.Col - n.First.Col + 1
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	return &Store{Tokens: tokens, RefCount: rows * cols, Shared: true, Range: n}
}

// Retain increments the reference count, used when a new cell joins an
// existing sharing (e.g. a fill-down extends the group).
func (s *Store) Retain() {
	s.RefCount++
}

// Release decrements the reference count and reports whether it reached
// zero, i.e. whether the last referencing cell is gone and the store may
// be freed by its owner.
func (s *Store) Release() bool {
	s.RefCount--
	return s.RefCount <= 0
}

// Split detaches one cell's worth of reference out of a shared store,
// turning the remaining sharing into (RefCount-1) and returning a
// single-owner copy of the same tokens for the detached cell: copy-on-write
// for an edit of one cell in a shared-formula group.
func (s *Store) Split() *Store {
	tokens := make([]FormulaToken, len(s.Tokens))
	copy(tokens, s.Tokens)
	s.Release()
	return NewStore(tokens)
}
