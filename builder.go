package rohc

import (
	"fmt"

	"rohcd/common"
	"rohcd/crc"
	"rohcd/packet"
)

// Header is the fully reconstructed, CRC-validated result of
// decompressing one packet: the rebuilt header bytes (static chain
// followed by the serialized dynamic fields) plus the
// decoded values that produced them, returned to the caller alongside
// the payload bytes it appends itself (spec.md §6 "Output").
type Header struct {
	Bytes  []byte
	Values DecodedValues
}

// crcKindFor maps a packet type to the CRC variant RFC 3095 §5.9
// assigns it (spec.md §4.2/§4.7): CRC-3 for UO-0, CRC-7 for UO-1 and
// UOR-2, CRC-8 for IR/IR-DYN.
func crcKindFor(t packet.Type) crc.Kind {
	switch t {
	case packet.TypeUO0:
		return crc.CRC3
	case packet.TypeIR, packet.TypeIRDyn:
		return crc.CRC8
	default:
		return crc.CRC7
	}
}

// buildAndCheck runs C9: reconstruct the header from values, assemble
// the CRC-STATIC/CRC-DYNAMIC field selection into one buffer — RFC
// 3095's crc_calculate runs over the concatenated static+dynamic
// selection rather than XOR-ing two independent CRC values, which is
// how this spec's "XOR order per RFC" phrase is read here (CRC's own
// bit-serial XOR update, not a combination of two CRCs) — and compare
// against the received CRC. It never mutates ctx; the caller commits
// or rejects separately.
func buildAndCheck(ctx *Context, bb *packet.BitBundle, values DecodedValues) (*Header, error) {
	hdrBytes, err := ctx.Builder.BuildNextHeader(ctx, values)
	if err != nil {
		return nil, err
	}

	fields := append(append([]byte{}, ctx.Builder.CRCStaticFields(ctx)...), ctx.Builder.CRCDynamicFields(ctx, values)...)
	kind := crcKindFor(bb.Type)
	got := crc.Compute(kind, fields)

	if got != bb.CRC {
		return nil, &crcMismatchError{computed: got, received: bb.CRC}
	}
	return &Header{Bytes: hdrBytes, Values: values}, nil
}

// crcMismatchError distinguishes a clean CRC mismatch (static chain
// parsed fine, only the dynamic reconstruction was wrong) from a
// structural failure inside BuildNextHeader/DecodeProfileValues — C10
// uses this distinction to decide whether an exhausted repair budget
// demotes the context to STATIC_CONTEXT or all the way to NO_CONTEXT.
type crcMismatchError struct {
	computed, received uint8
}

func (e *crcMismatchError) Error() string {
	return fmt.Sprintf("crc mismatch: computed %#x, received %#x", e.computed, e.received)
}

// commit applies a successfully checked Header to ctx: advances every
// reference value, the list translation tables' known bits, and
// resets the correction counter — the only place the reference values
// change (spec.md §4.9/§5 "commit is the last step"). attemptRepair
// puts its incremented counter back after a repaired commit.
func commit(ctx *Context, hdr *Header) {
	ctx.OuterIP.RND = hdr.Values.OuterRND
	ctx.OuterIP.NBO = hdr.Values.OuterNBO
	if hdr.Values.HasInner {
		inner := ctx.withInnerIP()
		inner.RND = hdr.Values.InnerRND
		inner.NBO = hdr.Values.InnerNBO
	}

	ctx.SNRef = hdr.Values.SN
	ctx.OuterIP.IPIDRef = hdr.Values.IPID
	if ctx.InnerIP != nil {
		ctx.InnerIP.IPIDRef = hdr.Values.IPID2
		ctx.IPID2Ref = hdr.Values.IPID2
	}
	// decodeTS already falls back to ctx.TSRef itself when a packet
	// carries no TS bits, so hdr.Values.TS is always the right value to
	// commit regardless of whether TS_SCALED is in use.
	ctx.TSRef = hdr.Values.TS
	if hdr.Values.listGen != nil {
		table := ctx.OuterIP.tableOrNew()
		for _, it := range hdr.Values.listItems {
			table.Set(it.SlotIdx, it.Item) // already validated against a scratch clone in applyListUpdate
		}
		ctx.OuterIP.List.Publish(hdr.Values.listGen)
		ctx.OuterIP.RefGenID = int(hdr.Values.listGen.GenID)
		ctx.OuterIP.ListActive = true
		for _, idx := range hdr.Values.listGen.Slots {
			table.MarkKnown(idx)
		}
	}

	ctx.NextHeaderRef = hdr.Bytes
	ctx.CorrectionCounter = 0
	ctx.PacketsSinceIR++
	ctx.LastOKTime = ctx.CurrentTime
}

// newCRCError wraps a buildAndCheck failure as the caller-visible
// CRC_FAILURE_UNREPAIRABLE kind once repair (C10) has also given up.
func newCRCError(cidVal int, cause error) *common.Error {
	return common.NewError(common.KindCRCUnrepairable, cidVal, cause)
}
