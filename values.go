package rohc

import (
	"rohcd/ipid"
	"rohcd/list"
	"rohcd/lsb"
	"rohcd/packet"
)

// p-shift parameters for W-LSB decoding (spec.md §4.3). SN uses a
// small positive shift while a flow is still new (few packets since
// the last IR) and a larger one once established, matching RFC 3095's
// guidance that p widens the interpretation interval once loss
// statistics are better understood; TS's shift is the
// k-dependent formula spec.md quotes directly.
const (
	PShiftSNInitial     int32 = 1
	PShiftSNEstablished int32 = 3
	PShiftIPID          int32 = 0
)

// pShiftTSScaled implements spec.md §4.3's p = 2^(k-2) - 1 for TS_SCALED
// decoding; k=0 is a degenerate case callers must not present.
func pShiftTSScaled(k uint8) int64 {
	if k < 2 {
		return 0
	}
	return int64(1)<<(k-2) - 1
}

// snEstablishedThreshold is the packet count after which DecodeValues
// switches from PShiftSNInitial to PShiftSNEstablished.
const snEstablishedThreshold = 1

// DecodedValues is the fully expanded candidate header the builder
// reconstructs and checks against the received CRC (spec.md §3's
// "Decoded Values").
type DecodedValues struct {
	SN    uint16
	IPID  uint16
	IPID2 uint16
	TS    uint32

	RTPM  uint8
	RTPX  uint8
	RTPP  uint8
	RTPPT uint8

	// OuterRND/OuterNBO/HasInner/InnerRND/InnerNBO describe the IP-ID
	// handling this candidate assumes. For IR/IR-DYN they come
	// straight off the wire; for compressed packets DecodeValues
	// copies them forward from ctx's already-committed state, so
	// BuildNextHeader/CRCDynamicFields can read them from values alone
	// without reaching back into ctx (and risking reading state a
	// failed packet never actually committed).
	OuterRND bool
	OuterNBO bool
	HasInner bool
	InnerRND bool
	InnerNBO bool

	// ListActive/ListGenID/ListBytes describe the outer IP layer's
	// extension-header list chain for this candidate, present whenever
	// the context has list compression active (spec.md §4.5); listGen
	// and listItems are only set when this packet itself published a
	// new generation, and are consumed by commit alone.
	ListActive bool
	ListGenID  uint8
	ListBytes  []byte

	listGen   *list.Generation
	listItems []listItemUpdate
}

type listItemUpdate struct {
	SlotIdx int
	Item    list.Item
}

// DecodeValues implements C8: SN first, TS second, IP-IDs last (IP-ID
// decoding depends on the already-resolved SN), with any remaining
// profile-specific bits (RTP's M bit) folded in by the context's
// builder afterward.
func DecodeValues(ctx *Context, bb *packet.BitBundle) (DecodedValues, error) {
	var values DecodedValues

	carryForwardIPFlags(ctx, &values)

	values.SN = decodeSN(ctx, bb)
	values.TS = decodeTS(ctx, bb, values.SN)
	values.IPID = decodeIPID(ctx.OuterIP, ctx.SNRef, values.SN, bb.IPID, uint8(bb.IPIDNr))
	if ctx.InnerIP != nil {
		values.IPID2 = decodeIPID(ctx.InnerIP, ctx.SNRef, values.SN, bb.IPID2, uint8(bb.IPID2Nr))
	}

	if err := ctx.Builder.DecodeProfileValues(ctx, bb, &values); err != nil {
		return DecodedValues{}, err
	}
	if err := resolveListState(ctx, bb, &values); err != nil {
		return DecodedValues{}, err
	}
	return values, nil
}

// carryForwardIPFlags seeds a candidate's rnd/nbo/inner-layer flags
// from ctx's already-committed state, for packet types (UO/UOR) that
// never carry these bits on the wire themselves.
func carryForwardIPFlags(ctx *Context, values *DecodedValues) {
	values.OuterRND = ctx.OuterIP.RND
	values.OuterNBO = ctx.OuterIP.NBO
	values.HasInner = ctx.InnerIP != nil
	if values.HasInner {
		values.InnerRND = ctx.InnerIP.RND
		values.InnerNBO = ctx.InnerIP.NBO
	}
}

func decodeSN(ctx *Context, bb *packet.BitBundle) uint16 {
	if bb.SNNr == 0 {
		return ctx.SNRef
	}
	p := PShiftSNInitial
	if ctx.PacketsSinceIR > snEstablishedThreshold {
		p = PShiftSNEstablished
	}
	return lsb.Decode16(ctx.SNRef, bb.SNNr, bb.SN, p)
}

func decodeTS(ctx *Context, bb *packet.BitBundle, sn uint16) uint32 {
	if bb.TSNr == 0 {
		return ctx.TSRef
	}
	if bb.IsTSScaled && ctx.TSStride > 0 {
		scaledRef := (ctx.TSRef - ctx.TSOffset) / ctx.TSStride
		scaled := lsb.Decode32(scaledRef, bb.TSNr, bb.TS, pShiftTSScaled(bb.TSNr))
		return scaled*ctx.TSStride + ctx.TSOffset
	}
	return lsb.Decode32(ctx.TSRef, bb.TSNr, bb.TS, pShiftTSScaled(bb.TSNr))
}

func decodeIPID(state *IPHeaderState, snRef, sn uint16, bits uint32, k uint8) uint16 {
	if state == nil {
		return 0
	}
	if state.RND {
		if k == 0 {
			return state.IPIDRef
		}
		return ipid.DecodeRandom(uint16(bits))
	}
	// k=0 (no IP-ID bits on the wire, e.g. every UO-0) still reconstructs
	// correctly: DecodeSequential's k=0 LSB decode yields offsetRef
	// exactly, so IP-ID advances with SN per spec.md §4.4's "the offset
	// IP-ID - SN is preserved" rule rather than freezing at IPIDRef.
	return ipid.DecodeSequential(state.IPIDRef, snRef, sn, bits, k, PShiftIPID)
}
