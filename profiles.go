package rohc

import (
	"encoding/binary"
	"fmt"

	"rohcd/packet"
)

// genericBuilder implements HeaderBuilder for every profile in this
// engine's scope. RFC 3095's generic profiles (IP-only, UDP,
// UDP-Lite, ESP) differ only in which next-header bytes are static
// versus dynamic at the protocol level — a distinction this engine
// pushes entirely into what the compressor chose to put in the static
// chain at IR time — so one builder serves all of them; only RTP adds
// its own mutable fields (M/X/P/PT, a scaled timestamp) on top, which
// isRTP switches on. Non-goals excludes ESP/TCP payload semantics
// beyond their CRC/header-field-selection hooks, so ESP uses the same
// generic builder as IP-only/UDP/UDP-Lite.
type genericBuilder struct {
	isRTP bool
}

var (
	uncompressedProfile = &genericBuilder{}
	ipOnlyProfile        = &genericBuilder{}
	udpProfile           = &genericBuilder{}
	udpLiteProfile       = &genericBuilder{}
	espProfile           = &genericBuilder{}
	rtpProfile           = &genericBuilder{isRTP: true}
)

// builderFor selects the HeaderBuilder for an enabled profile.
func builderFor(p packet.ProfileID) (HeaderBuilder, error) {
	switch p {
	case packet.ProfileUncompressed:
		return uncompressedProfile, nil
	case packet.ProfileIPOnly:
		return ipOnlyProfile, nil
	case packet.ProfileUDP:
		return udpProfile, nil
	case packet.ProfileUDPLite:
		return udpLiteProfile, nil
	case packet.ProfileESP:
		return espProfile, nil
	case packet.ProfileRTP:
		return rtpProfile, nil
	default:
		return nil, fmt.Errorf("rohc: no builder for profile %d", p)
	}
}

// dynamicFlags bit layout within the first byte of a dynamic chain.
const (
	flagOuterRND   = 1 << 0
	flagOuterNBO   = 1 << 1
	flagInnerRND   = 1 << 2
	flagInnerNBO   = 1 << 3
	flagHasInner   = 1 << 4
	flagListActive = 1 << 5
)

// ParseStaticChain captures an IR's static chain verbatim: outer IP
// static fields, inner IP static fields if present, and next-header
// static fields (UDP ports, RTP SSRC/PT, …) — none of these change
// for the life of the context, so no per-type parsing is needed
// beyond keeping the bytes the compressor sent.
func (b *genericBuilder) ParseStaticChain(ctx *Context, raw []byte) error {
	if len(raw) == 0 {
		return fmt.Errorf("rohc: malformed input: empty static chain")
	}
	ctx.StaticChain = append([]byte{}, raw...)
	return nil
}

// ParseDynamicChain decodes an IR/IR-DYN dynamic chain into a fully
// expanded DecodedValues (no LSB decoding — IR/IR-DYN never compress
// these fields). It deliberately does not mutate ctx: the rnd/nbo
// flags and the inner-layer presence it reads come back as part of
// the returned values, and are only applied to ctx by commit, once
// the caller's CRC check has actually passed — otherwise a
// corrupted IR-DYN could desync ctx.OuterIP's flags on a packet that
// never committed.
func (b *genericBuilder) ParseDynamicChain(ctx *Context, raw []byte) (DecodedValues, error) {
	const minLen = 1 + 2 + 2 // flags + SN + outer IP-ID
	if len(raw) < minLen {
		return DecodedValues{}, fmt.Errorf("rohc: malformed input: dynamic chain too short")
	}
	flags := raw[0]
	values := DecodedValues{
		OuterRND: flags&flagOuterRND != 0,
		OuterNBO: flags&flagOuterNBO != 0,
		HasInner: flags&flagHasInner != 0,
	}

	pos := 1
	values.SN = binary.BigEndian.Uint16(raw[pos : pos+2])
	values.IPID = binary.BigEndian.Uint16(raw[pos+2 : pos+4])
	pos += 4

	if values.HasInner {
		values.InnerRND = flags&flagInnerRND != 0
		values.InnerNBO = flags&flagInnerNBO != 0
		if len(raw) < pos+2 {
			return DecodedValues{}, fmt.Errorf("rohc: malformed input: dynamic chain missing inner IP-ID")
		}
		values.IPID2 = binary.BigEndian.Uint16(raw[pos : pos+2])
		pos += 2
	}

	if b.isRTP {
		if len(raw) < pos+5 {
			return DecodedValues{}, fmt.Errorf("rohc: malformed input: dynamic chain missing RTP fields")
		}
		values.TS = binary.BigEndian.Uint32(raw[pos : pos+4])
		pos += 4
		rtpFlags := raw[pos]
		values.RTPM = (rtpFlags >> 7) & 1
		values.RTPX = (rtpFlags >> 6) & 1
		values.RTPP = (rtpFlags >> 5) & 1
		values.RTPPT = rtpFlags & 0x1F
		pos++
	}

	if flags&flagListActive != 0 {
		if len(raw) < pos+2 {
			return DecodedValues{}, fmt.Errorf("rohc: malformed input: dynamic chain missing list-update length")
		}
		n := int(binary.BigEndian.Uint16(raw[pos : pos+2]))
		pos += 2
		if len(raw) < pos+n {
			return DecodedValues{}, fmt.Errorf("rohc: malformed input: dynamic chain list-update block truncated")
		}
		gen, items, rendered, err := applyListUpdate(ctx.OuterIP, raw[pos:pos+n])
		if err != nil {
			return DecodedValues{}, err
		}
		values.ListActive = true
		values.ListGenID = gen.GenID
		values.ListBytes = rendered
		values.listGen = gen
		values.listItems = items
	}
	return values, nil
}

// serializeDynamic re-derives the dynamic-chain byte layout from a
// decoded-values candidate alone (its rnd/nbo flags included), used
// both as the CRC-DYNAMIC input and as the tail of the rebuilt header
// (spec.md §4.9). The list part is written as gen_id, a 2-byte length
// and the rendered item bodies, not as the wire list-update block.
func (b *genericBuilder) serializeDynamic(ctx *Context, values DecodedValues) []byte {
	flags := byte(0)
	if values.OuterRND {
		flags |= flagOuterRND
	}
	if values.OuterNBO {
		flags |= flagOuterNBO
	}
	if values.HasInner {
		flags |= flagHasInner
		if values.InnerRND {
			flags |= flagInnerRND
		}
		if values.InnerNBO {
			flags |= flagInnerNBO
		}
	}
	if values.ListActive {
		flags |= flagListActive
	}

	buf := make([]byte, 0, 16)
	buf = append(buf, flags)
	buf = binary.BigEndian.AppendUint16(buf, values.SN)
	buf = binary.BigEndian.AppendUint16(buf, values.IPID)
	if values.HasInner {
		buf = binary.BigEndian.AppendUint16(buf, values.IPID2)
	}
	if b.isRTP {
		buf = binary.BigEndian.AppendUint32(buf, values.TS)
		rtpFlags := (values.RTPM&1)<<7 | (values.RTPX&1)<<6 | (values.RTPP&1)<<5 | (values.RTPPT & 0x1F)
		buf = append(buf, rtpFlags)
	}
	if values.ListActive {
		buf = append(buf, values.ListGenID)
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(values.ListBytes)))
		buf = append(buf, values.ListBytes...)
	}
	return buf
}

// BuildNextHeader reconstructs the complete header as the static
// chain followed by the freshly serialized dynamic fields — the
// whole rebuilt header, ready for the caller to prepend to the
// compressed packet's payload.
func (b *genericBuilder) BuildNextHeader(ctx *Context, values DecodedValues) ([]byte, error) {
	if len(ctx.StaticChain) == 0 {
		return nil, fmt.Errorf("rohc: malformed input: no static chain established for this context")
	}
	out := make([]byte, 0, len(ctx.StaticChain)+16)
	out = append(out, ctx.StaticChain...)
	out = append(out, b.serializeDynamic(ctx, values)...)
	return out, nil
}

// CRCStaticFields returns the static chain unchanged: RFC 3095
// excludes the IP-ID from CRC-STATIC for IPv4 (spec.md §4.2), which
// holds automatically here since IP-ID lives only in the dynamic
// chain's layout.
func (b *genericBuilder) CRCStaticFields(ctx *Context) []byte {
	return ctx.StaticChain
}

// CRCDynamicFields mirrors BuildNextHeader's dynamic serialization —
// the two must agree byte-for-byte, since both the rebuilt header and
// the CRC input are derived from the same values candidate.
func (b *genericBuilder) CRCDynamicFields(ctx *Context, values DecodedValues) []byte {
	return b.serializeDynamic(ctx, values)
}

// DecodeProfileValues fills in RTP's M bit from the packet's bit
// bundle (X/P/PT are left at zero); every other profile in scope
// carries no extra bits beyond SN/IP-ID/TS, so it's a no-op for them.
func (b *genericBuilder) DecodeProfileValues(ctx *Context, bb *packet.BitBundle, values *DecodedValues) error {
	if !b.isRTP {
		return nil
	}
	values.RTPM = bb.RTPM
	if ctx.InnerIP == nil && bb.IPID2Nr != 0 {
		return fmt.Errorf("rohc: malformed input: IP-ID2 present without an inner IP layer")
	}
	return nil
}
