package model

import "github.com/ixion-engine/ixion/address"

// memoryListenerTracker is the concrete ListenerTracker backing
// MemoryContext. Point targets are indexed directly by address for O(1)
// lookup; range targets are kept in a flat slice and scanned on
// GetAllListeners. A spreadsheet has vastly more point listeners than
// range listeners, so the scan stays short.
type memoryListenerTracker struct {
	points map[address.CellAddress]map[address.CellAddress]struct{} // target -> listeners
	ranges []rangeListener
}

type rangeListener struct {
	target   address.RangeAddress
	listener address.CellAddress
}

func newMemoryListenerTracker() *memoryListenerTracker {
	return &memoryListenerTracker{
		points: make(map[address.CellAddress]map[address.CellAddress]struct{}),
	}
}

func (t *memoryListenerTracker) Add(listener address.CellAddress, target ListenTarget) {
	if !target.IsRange {
		if t.points[target.Point] == nil {
			t.points[target.Point] = make(map[address.CellAddress]struct{})
		}
		t.points[target.Point][listener] = struct{}{}
		return
	}
	for _, rl := range t.ranges {
		if rl.target == target.Range && rl.listener == listener {
			return
		}
	}
	t.ranges = append(t.ranges, rangeListener{target: target.Range, listener: listener})
}

func (t *memoryListenerTracker) Remove(listener address.CellAddress, target ListenTarget) {
	if !target.IsRange {
		if set, ok := t.points[target.Point]; ok {
			delete(set, listener)
			if len(set) == 0 {
				delete(t.points, target.Point)
			}
		}
		return
	}
	for i, rl := range t.ranges {
		if rl.target == target.Range && rl.listener == listener {
			t.ranges = append(t.ranges[:i], t.ranges[i+1:]...)
			return
		}
	}
}

func (t *memoryListenerTracker) GetAllListeners(modified address.CellAddress) []address.CellAddress {
	seen := make(map[address.CellAddress]struct{})
	var out []address.CellAddress

	add := func(addr address.CellAddress) {
		if _, ok := seen[addr]; ok {
			return
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}

	for l := range t.points[modified] {
		add(l)
	}
	for _, rl := range t.ranges {
		if rl.target.Contains(modified) {
			add(rl.listener)
		}
	}
	return out
}
