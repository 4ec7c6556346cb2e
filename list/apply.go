package list

import (
	"fmt"

	"rohcd/common"
)

// InsertOp adds item (identified by its slot index) at Position in
// the resulting generation's ordered slot list.
type InsertOp struct {
	Position int
	SlotIdx  int
}

// RemoveMask marks which positions of the referenced generation to
// drop, indexed the same way the referenced generation's Slots are.
type RemoveMask []bool

// Apply builds a new generation from a referenced one according to
// et, following RFC 3095 §5.8.6.1-4:
//
//	ET0 generic:     newSlots is taken verbatim (explicit full list)
//	ET1 insert-only:  inserts are spliced into the referenced generation
//	ET2 remove-only:  positions marked in mask are dropped
//	ET3 remove+insert: mask applied first, then inserts spliced in
//
// refGenID names the generation this update is expressed against; if
// it is not present in win, decoding fails with KindListReferenceMissing
// (spec.md §4.5 step 1).
func Apply(win *Window, refGenID uint8, newGenID uint8, et EncodingType, newSlots []int, inserts []InsertOp, mask RemoveMask) (*Generation, error) {
	switch et {
	case ET0:
		return &Generation{GenID: newGenID, Slots: append([]int{}, newSlots...)}, nil

	case ET1:
		ref, ok := win.Lookup(refGenID)
		if !ok {
			return nil, common.NewError(common.KindListReferenceMissing, -1,
				fmt.Errorf("list: referenced gen_id %d not in window", refGenID))
		}
		return &Generation{GenID: newGenID, Slots: spliceInsertions(ref.Slots, inserts)}, nil

	case ET2:
		ref, ok := win.Lookup(refGenID)
		if !ok {
			return nil, common.NewError(common.KindListReferenceMissing, -1,
				fmt.Errorf("list: referenced gen_id %d not in window", refGenID))
		}
		return &Generation{GenID: newGenID, Slots: applyRemoveMask(ref.Slots, mask)}, nil

	case ET3:
		ref, ok := win.Lookup(refGenID)
		if !ok {
			return nil, common.NewError(common.KindListReferenceMissing, -1,
				fmt.Errorf("list: referenced gen_id %d not in window", refGenID))
		}
		remaining := applyRemoveMask(ref.Slots, mask)
		return &Generation{GenID: newGenID, Slots: spliceInsertions(remaining, inserts)}, nil

	default:
		return nil, fmt.Errorf("list: unknown encoding type %d", et)
	}
}

// applyRemoveMask drops positions marked true in mask, preserving
// the order of the rest.
func applyRemoveMask(slots []int, mask RemoveMask) []int {
	out := make([]int, 0, len(slots))
	for i, s := range slots {
		if i < len(mask) && mask[i] {
			continue
		}
		out = append(out, s)
	}
	return out
}

// spliceInsertions inserts each op's slot index at its position,
// applied in ascending position order so earlier insertions shift
// later positions the way the compressor intends.
func spliceInsertions(base []int, inserts []InsertOp) []int {
	out := append([]int{}, base...)
	ordered := append([]InsertOp{}, inserts...)
	// stable ascending sort by Position (insertion counts are small;
	// a simple pass avoids pulling in sort for a handful of items)
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && ordered[j-1].Position > ordered[j].Position; j-- {
			ordered[j-1], ordered[j] = ordered[j], ordered[j-1]
		}
	}
	for _, op := range ordered {
		pos := op.Position
		if pos > len(out) {
			pos = len(out)
		}
		out = append(out[:pos], append([]int{op.SlotIdx}, out[pos:]...)...)
	}
	return out
}
