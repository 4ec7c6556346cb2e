package rohc

import (
	"fmt"

	"rohcd/common"
	"rohcd/list"
	"rohcd/packet"
)

// List-update wire layout (spec.md leaves the encoding to the
// implementation; this one is invented, grounded on package list's
// Apply signature): et(1) refGenID(1) newGenID(1) itemCount(1), then
// itemCount item bodies (slotIdx(1) kind(1) len(1) bytes...) giving
// any new based_table entries this update introduces, followed by the
// encoding-type-specific ordering operation:
//
//	ET0 generic:      opCount(1), opCount slot indices (final order)
//	ET1 insert-only:  opCount(1), opCount {position(1) slotIdx(1)}
//	ET2 remove-only:  opCount(1), opCount mask bytes (1 = remove)
//	ET3 remove+insert: as ET2's mask, then opCount(1) {position,slotIdx}
//
// The same layout serves both Ext-3's embedded list update and the
// IR/IR-DYN dynamic chain's list-establish block (an IR simply sends
// an ET0 update naming the whole initial chain).
func decodeListBlock(raw []byte) (et list.EncodingType, refGenID, newGenID uint8, items []listItemUpdate, slots []int, inserts []list.InsertOp, mask list.RemoveMask, err error) {
	if len(raw) < 4 {
		return 0, 0, 0, nil, nil, nil, nil, fmt.Errorf("rohc: malformed input: list update too short")
	}
	et = list.EncodingType(raw[0])
	refGenID, newGenID = raw[1], raw[2]
	n := int(raw[3])
	pos := 4

	for i := 0; i < n; i++ {
		if len(raw) < pos+3 {
			return 0, 0, 0, nil, nil, nil, nil, fmt.Errorf("rohc: malformed input: list update item truncated")
		}
		slotIdx := int(raw[pos])
		kind := list.ItemKind(raw[pos+1])
		itemLen := int(raw[pos+2])
		pos += 3
		if len(raw) < pos+itemLen {
			return 0, 0, 0, nil, nil, nil, nil, fmt.Errorf("rohc: malformed input: list update item body truncated")
		}
		items = append(items, listItemUpdate{
			SlotIdx: slotIdx,
			Item:    list.Item{Kind: kind, Bytes: append([]byte{}, raw[pos:pos+itemLen]...)},
		})
		pos += itemLen
	}

	if len(raw) < pos+1 {
		return 0, 0, 0, nil, nil, nil, nil, fmt.Errorf("rohc: malformed input: list update missing operation count")
	}
	m := int(raw[pos])
	pos++

	switch et {
	case list.ET0:
		for i := 0; i < m; i++ {
			if len(raw) < pos+1 {
				return 0, 0, 0, nil, nil, nil, nil, fmt.Errorf("rohc: malformed input: list update ET0 slot truncated")
			}
			slots = append(slots, int(raw[pos]))
			pos++
		}
	case list.ET1:
		for i := 0; i < m; i++ {
			if len(raw) < pos+2 {
				return 0, 0, 0, nil, nil, nil, nil, fmt.Errorf("rohc: malformed input: list update ET1 insertion truncated")
			}
			inserts = append(inserts, list.InsertOp{Position: int(raw[pos]), SlotIdx: int(raw[pos+1])})
			pos += 2
		}
	case list.ET2:
		mask = make(list.RemoveMask, m)
		for i := 0; i < m; i++ {
			if len(raw) < pos+1 {
				return 0, 0, 0, nil, nil, nil, nil, fmt.Errorf("rohc: malformed input: list update ET2 mask truncated")
			}
			mask[i] = raw[pos] != 0
			pos++
		}
	case list.ET3:
		mask = make(list.RemoveMask, m)
		for i := 0; i < m; i++ {
			if len(raw) < pos+1 {
				return 0, 0, 0, nil, nil, nil, nil, fmt.Errorf("rohc: malformed input: list update ET3 mask truncated")
			}
			mask[i] = raw[pos] != 0
			pos++
		}
		if len(raw) < pos+1 {
			return 0, 0, 0, nil, nil, nil, nil, fmt.Errorf("rohc: malformed input: list update missing ET3 insertion count")
		}
		k := int(raw[pos])
		pos++
		for i := 0; i < k; i++ {
			if len(raw) < pos+2 {
				return 0, 0, 0, nil, nil, nil, nil, fmt.Errorf("rohc: malformed input: list update ET3 insertion truncated")
			}
			inserts = append(inserts, list.InsertOp{Position: int(raw[pos]), SlotIdx: int(raw[pos+1])})
			pos += 2
		}
	default:
		return 0, 0, 0, nil, nil, nil, nil, fmt.Errorf("rohc: malformed input: unknown list encoding type %d", et)
	}
	return et, refGenID, newGenID, items, slots, inserts, mask, nil
}

// applyListUpdate resolves a raw list-update block against layer's
// window without mutating layer: new item bodies are staged onto a
// clone of layer's table (so a candidate that fails CRC never leaks
// into committed state, the same atomicity rule buildAndCheck's
// caller already relies on for rnd/nbo), and list.Apply itself never
// writes to the window — it only reads the referenced generation.
func applyListUpdate(layer *IPHeaderState, raw []byte) (gen *list.Generation, items []listItemUpdate, rendered []byte, err error) {
	et, refGenID, newGenID, items, slots, inserts, mask, err := decodeListBlock(raw)
	if err != nil {
		return nil, nil, nil, err
	}

	scratch := list.NewTable()
	if layer.Table != nil {
		scratch = layer.Table.Clone()
	}
	for _, it := range items {
		if err := scratch.Set(it.SlotIdx, it.Item); err != nil {
			return nil, nil, nil, err
		}
	}

	gen, err = list.Apply(layer.List, refGenID, newGenID, et, slots, inserts, mask)
	if err != nil {
		return nil, nil, nil, err
	}
	rendered, err = renderListFrom(scratch, gen)
	if err != nil {
		return nil, nil, nil, err
	}
	return gen, items, rendered, nil
}

// renderList serialises an already-published generation using layer's
// committed table — safe to read directly since nothing here mutates
// it, unlike applyListUpdate's as-yet-uncommitted candidate.
func renderList(layer *IPHeaderState, gen *list.Generation) ([]byte, error) {
	table := layer.Table
	if table == nil {
		table = list.NewTable()
	}
	return renderListFrom(table, gen)
}

func renderListFrom(table *list.Table, gen *list.Generation) ([]byte, error) {
	var out []byte
	for _, idx := range gen.Slots {
		item, ok := table.Get(idx)
		if !ok {
			return nil, fmt.Errorf("rohc: malformed input: list generation references unset slot %d", idx)
		}
		out = append(out, item.Bytes...)
	}
	return out, nil
}

// resolveListState fills in a candidate's list-chain fields: an
// Ext-3 carrying a list update resolves a fresh generation (flagged
// for commit to publish); otherwise, if the context already has list
// compression active, the currently referenced generation is
// re-rendered so every packet's CRC/BuildNextHeader sees a consistent
// list tail even when this particular packet didn't touch it.
func resolveListState(ctx *Context, bb *packet.BitBundle, values *DecodedValues) error {
	layer := ctx.OuterIP
	if bb.ExtTy == packet.Ext3 && len(bb.Ext.ListUpdate) > 0 {
		gen, items, rendered, err := applyListUpdate(layer, bb.Ext.ListUpdate)
		if err != nil {
			return err
		}
		values.ListActive = true
		values.ListGenID = gen.GenID
		values.ListBytes = rendered
		values.listGen = gen
		values.listItems = items
		return nil
	}

	if !layer.ListActive {
		return nil
	}
	gen, ok := layer.List.Lookup(uint8(layer.RefGenID))
	if !ok {
		return common.NewError(common.KindListReferenceMissing, -1,
			fmt.Errorf("rohc: list reference gen_id %d not in window", layer.RefGenID))
	}
	rendered, err := renderList(layer, gen)
	if err != nil {
		return err
	}
	values.ListActive = true
	values.ListGenID = gen.GenID
	values.ListBytes = rendered
	return nil
}
