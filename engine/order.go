package engine

import "sort"

// orderRepositions sequences position moves so that no
// rename ever lands on a filename still held by another
// pending move. Moves form a directed graph from source
// to target slot; chains are emitted in an order where
// the target slot is already vacated, and each cycle is
// broken by staging exactly one member through a
// temporary name.
func orderRepositions(moves []Reposition) []Reposition {
	pending := make([]Reposition, len(moves))
	copy(pending, moves)
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].To != pending[j].To {
			return pending[i].To < pending[j].To
		}
		return pending[i].Local.ID < pending[j].Local.ID
	})

	// slots still occupied by a move that has not run yet
	occupied := make(map[int]bool, len(pending))
	for _, move := range pending {
		occupied[move.From] = true
	}

	ordered := make([]Reposition, 0, len(pending))
	for len(pending) > 0 {
		emitted := false
		remaining := pending[:0]
		for _, move := range pending {
			if occupied[move.To] {
				remaining = append(remaining, move)
				continue
			}
			delete(occupied, move.From)
			ordered = append(ordered, move)
			emitted = true
		}
		pending = remaining

		if emitted || len(pending) == 0 {
			continue
		}

		// every remaining target is occupied: a cycle.
		// Stage its first member out of the way, which
		// turns the rest of the cycle into a chain.
		staged := pending[0]
		staged.Staged = true
		delete(occupied, staged.From)
		ordered = append(ordered, staged)
		pending = pending[1:]
	}
	return ordered
}
