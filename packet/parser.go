package packet

import (
	"fmt"

	"rohcd/bitstream"
)

// Parse dispatches on the packet's leading byte and parses pkt into a
// BitBundle. pkt must already have any add-CID byte / large-CID field
// stripped by package cid.
func Parse(pkt []byte) (*BitBundle, error) {
	if len(pkt) == 0 {
		return nil, fmt.Errorf("packet: empty packet")
	}
	t, err := Discriminate(pkt[0])
	if err != nil {
		return nil, err
	}
	switch t {
	case TypeIR:
		return ParseIR(pkt)
	case TypeIRDyn:
		return ParseIRDyn(pkt)
	case TypeUO0:
		return ParseUO0(pkt)
	case TypeUO1, TypeUO1ID, TypeUO1TS, TypeUO1RTP:
		return ParseUO1(pkt)
	case TypeUOR2, TypeUOR2ID, TypeUOR2TS, TypeUOR2RTP:
		return ParseUOR2(pkt)
	default:
		return nil, fmt.Errorf("packet: unhandled type %v", t)
	}
}

// ParseUO0 reads a UO-0 packet: one byte, discriminator bit 0, a 4-bit
// SN field, and a 3-bit CRC-3, packed exactly as spec.md §4.7
// describes — it already fits a single byte, so there is no
// byte-alignment relaxation to apply.
func ParseUO0(pkt []byte) (*BitBundle, error) {
	if len(pkt) < 1 {
		return nil, fmt.Errorf("packet: malformed input: UO-0 needs 1 byte")
	}
	r := bitstream.NewReader(pkt)
	disc, _ := r.ReadBits(1)
	if disc != 0 {
		return nil, fmt.Errorf("packet: malformed input: not a UO-0 packet")
	}
	sn, _ := r.ReadBits(4)
	crc, _ := r.ReadBits(3)
	return &BitBundle{
		Type:  TypeUO0,
		SN:    sn,
		SNNr:  4,
		CRC:   uint8(crc),
		CRCNr: 3,
	}, nil
}

// ParseIR reads an IR packet: type octet (0xFC or 0xFD, bit 0 is the
// dynamic-chain-present flag D), profile, CRC-8, an SDVL-length-prefixed
// static chain, and — if D is set — an SDVL-length-prefixed dynamic
// chain. The chains themselves are opaque payloads the profile-specific
// builder in package rohc interprets; package packet only carves them
// out.
func ParseIR(pkt []byte) (*BitBundle, error) {
	if len(pkt) < 3 {
		return nil, fmt.Errorf("packet: malformed input: IR needs at least 3 bytes")
	}
	first := pkt[0]
	if first&0xFE != 0xFC {
		return nil, fmt.Errorf("packet: malformed input: not an IR packet")
	}
	dynPresent := first&0x01 != 0
	r := bitstream.NewReader(pkt[1:])

	profile, err := r.ReadBits(8)
	if err != nil {
		return nil, fmt.Errorf("packet: malformed IR profile: %w", err)
	}
	crc, err := r.ReadBits(8)
	if err != nil {
		return nil, fmt.Errorf("packet: malformed IR CRC: %w", err)
	}

	staticLen, _, err := bitstream.DecodeSDVL(r)
	if err != nil {
		return nil, fmt.Errorf("packet: malformed IR static-chain length: %w", err)
	}
	static, err := r.ReadBytes(int(staticLen))
	if err != nil {
		return nil, fmt.Errorf("packet: malformed IR static chain: %w", err)
	}

	bb := &BitBundle{
		Type:        TypeIR,
		Profile:     ProfileID(profile),
		CRC:         uint8(crc),
		CRCNr:       8,
		StaticChain: static,
	}

	if dynPresent {
		dynLen, _, err := bitstream.DecodeSDVL(r)
		if err != nil {
			return nil, fmt.Errorf("packet: malformed IR dynamic-chain length: %w", err)
		}
		dyn, err := r.ReadBytes(int(dynLen))
		if err != nil {
			return nil, fmt.Errorf("packet: malformed IR dynamic chain: %w", err)
		}
		bb.DynamicChain = dyn
		bb.DynamicPresent = true
	}
	return bb, nil
}

// ParseIRDyn reads an IR-DYN packet: fixed type octet 0xFE, profile,
// CRC-8, and an SDVL-length-prefixed dynamic chain. No static chain —
// IR-DYN assumes a context already holds one.
func ParseIRDyn(pkt []byte) (*BitBundle, error) {
	if len(pkt) < 3 {
		return nil, fmt.Errorf("packet: malformed input: IR-DYN needs at least 3 bytes")
	}
	if pkt[0] != 0xFE {
		return nil, fmt.Errorf("packet: malformed input: not an IR-DYN packet")
	}
	r := bitstream.NewReader(pkt[1:])

	profile, err := r.ReadBits(8)
	if err != nil {
		return nil, fmt.Errorf("packet: malformed IR-DYN profile: %w", err)
	}
	crc, err := r.ReadBits(8)
	if err != nil {
		return nil, fmt.Errorf("packet: malformed IR-DYN CRC: %w", err)
	}
	dynLen, _, err := bitstream.DecodeSDVL(r)
	if err != nil {
		return nil, fmt.Errorf("packet: malformed IR-DYN dynamic-chain length: %w", err)
	}
	dyn, err := r.ReadBytes(int(dynLen))
	if err != nil {
		return nil, fmt.Errorf("packet: malformed IR-DYN dynamic chain: %w", err)
	}
	return &BitBundle{
		Type:           TypeIRDyn,
		Profile:        ProfileID(profile),
		CRC:            uint8(crc),
		CRCNr:          8,
		DynamicChain:   dyn,
		DynamicPresent: true,
	}, nil
}

// ParseUO1 reads a UO-1-family packet. Byte 0 carries the 10-prefix
// discriminator and the 2-bit family selector in its top nibble; the
// bottom nibble is unused padding kept for byte alignment rather than
// bit-packed per spec.md, since nothing here needs to interoperate with
// an on-wire RFC 3095 decoder. Byte 1 carries the family's primary
// field (SN, IP-ID, or TS, always 8 bits); byte 2 carries a 7-bit CRC
// in its low bits. Only the named field is carried: the -ID, -TS and
// -RTP variants carry no SN bits, and the value decoder then keeps the
// context's reference SN unchanged (it does not advance it).
func ParseUO1(pkt []byte) (*BitBundle, error) {
	if len(pkt) < 3 {
		return nil, fmt.Errorf("packet: malformed input: UO-1 needs 3 bytes")
	}
	t, err := Discriminate(pkt[0])
	if err != nil {
		return nil, err
	}
	if t.Family() != TypeUO1 {
		return nil, fmt.Errorf("packet: malformed input: not a UO-1-family packet")
	}
	r := bitstream.NewReader(pkt)
	r.SkipBits(8) // discriminator + family + padding

	primary, err := r.ReadBits(8)
	if err != nil {
		return nil, fmt.Errorf("packet: malformed UO-1 primary field: %w", err)
	}
	crcByte, err := r.ReadBits(8)
	if err != nil {
		return nil, fmt.Errorf("packet: malformed UO-1 CRC: %w", err)
	}
	if crcByte&0x80 != 0 {
		return nil, fmt.Errorf("packet: malformed input: UO-1 CRC byte has reserved top bit set")
	}

	bb := &BitBundle{
		Type:  t,
		CRC:   uint8(crcByte & 0x7F),
		CRCNr: 7,
	}
	switch t {
	case TypeUO1:
		bb.SN, bb.SNNr = primary, 8
	case TypeUO1ID:
		bb.IPID, bb.IPIDNr = primary, 8
	case TypeUO1TS:
		bb.TS, bb.TSNr = primary, 8
	case TypeUO1RTP:
		bb.RTPM = uint8(primary >> 7)
		bb.TS, bb.TSNr = primary&0x7F, 7
	}
	return bb, nil
}

// ParseUOR2 reads a UOR-2-family packet. Byte 0 carries the 110-prefix
// discriminator, the 2-bit family selector, and the top 3 bits of SN
// (spec.md's precise bit layout, since it fits exactly in what's left
// of the byte). ID/TS/RTP variants carry one extra byte for their
// named field; every variant ends with a byte holding the X
// (extension-present) flag in its top bit and a 7-bit CRC below it. If
// X is set, ParseExtension consumes the trailing extension bytes.
func ParseUOR2(pkt []byte) (*BitBundle, error) {
	if len(pkt) < 2 {
		return nil, fmt.Errorf("packet: malformed input: UOR-2 needs at least 2 bytes")
	}
	t, err := Discriminate(pkt[0])
	if err != nil {
		return nil, err
	}
	if t.Family() != TypeUOR2 {
		return nil, fmt.Errorf("packet: malformed input: not a UOR-2-family packet")
	}
	r := bitstream.NewReader(pkt)
	r.SkipBits(5) // 110 + family
	snTop, err := r.ReadBits(3)
	if err != nil {
		return nil, fmt.Errorf("packet: malformed UOR-2 SN bits: %w", err)
	}

	bb := &BitBundle{Type: t, SN: snTop, SNNr: 3}

	if t != TypeUOR2 {
		field, err := r.ReadBits(8)
		if err != nil {
			return nil, fmt.Errorf("packet: malformed UOR-2 profile field: %w", err)
		}
		switch t {
		case TypeUOR2ID:
			bb.IPID, bb.IPIDNr = field, 8
		case TypeUOR2TS:
			bb.TS, bb.TSNr = field, 8
		case TypeUOR2RTP:
			bb.RTPM = uint8(field >> 7)
			bb.TS, bb.TSNr = field&0x7F, 7
		}
	}

	tail, err := r.ReadBits(8)
	if err != nil {
		return nil, fmt.Errorf("packet: malformed UOR-2 tail byte: %w", err)
	}
	bb.XFlag = tail&0x80 != 0
	bb.CRC, bb.CRCNr = uint8(tail&0x7F), 7

	if bb.XFlag {
		rest, err := r.ReadBytes(r.BitsRemaining() / 8)
		if err != nil {
			return nil, fmt.Errorf("packet: malformed UOR-2 extension bytes: %w", err)
		}
		ext, extTy, err := ParseExtension(rest)
		if err != nil {
			return nil, fmt.Errorf("packet: malformed UOR-2 extension: %w", err)
		}
		bb.Ext = *ext
		bb.ExtTy = extTy
		mergeExtensionBits(bb, ext)
	}
	return bb, nil
}

// mergeExtensionBits folds an extension's wider SN/IP-ID/TS/RTP-M fields
// into the base bundle: RFC 3095's extensions supersede the UOR-2 base
// packet's narrower field with a more precise one rather than adding to
// it, so an extension field with any bits present simply replaces the
// base packet's same field.
func mergeExtensionBits(bb *BitBundle, ext *ExtBits) {
	if ext.SNNr > 0 {
		bb.SN, bb.SNNr = ext.SN, ext.SNNr
	}
	if ext.IPIDNr > 0 {
		bb.IPID, bb.IPIDNr = ext.IPID, ext.IPIDNr
	}
	if ext.IPID2Nr > 0 {
		bb.IPID2, bb.IPID2Nr = ext.IPID2, ext.IPID2Nr
	}
	if ext.TSNr > 0 {
		bb.TS, bb.TSNr = ext.TS, ext.TSNr
		bb.IsTSScaled = ext.IsTSScaled
	}
	if ext.RTPMNr > 0 {
		bb.RTPM = ext.RTPM
	}
}

// ParseExtension reads one of the four UOR-2 extensions (spec.md
// §4.7's extension block) from buf, which must start exactly at the
// extension's first byte. Extension 0 is bit-packed exactly as
// spec.md describes, since its 2-bit tag, 3 SN bits, and 3 IP-ID bits
// fit a single byte precisely; extensions 1-3 byte-align their fields
// for clarity.
func ParseExtension(buf []byte) (*ExtBits, ExtType, error) {
	if len(buf) < 1 {
		return nil, 0, fmt.Errorf("packet: malformed input: empty extension")
	}
	r := bitstream.NewReader(buf)
	tag, _ := r.ReadBits(2)

	switch ExtType(tag) {
	case Ext0:
		sn, err := r.ReadBits(3)
		if err != nil {
			return nil, 0, err
		}
		ipid, err := r.ReadBits(3)
		if err != nil {
			return nil, 0, err
		}
		return &ExtBits{SN: sn, SNNr: 3, IPID: ipid, IPIDNr: 3}, Ext0, nil

	case Ext1:
		r.SkipBits(6) // reserved padding to the next byte boundary
		sn, err := r.ReadBits(8)
		if err != nil {
			return nil, 0, fmt.Errorf("malformed ext1 SN: %w", err)
		}
		ipid, err := r.ReadBits(8)
		if err != nil {
			return nil, 0, fmt.Errorf("malformed ext1 IP-ID: %w", err)
		}
		return &ExtBits{SN: sn, SNNr: 8, IPID: ipid, IPIDNr: 8}, Ext1, nil

	case Ext2:
		r.SkipBits(6)
		sn, err := r.ReadBits(8)
		if err != nil {
			return nil, 0, fmt.Errorf("malformed ext2 SN: %w", err)
		}
		ipid, err := r.ReadBits(8)
		if err != nil {
			return nil, 0, fmt.Errorf("malformed ext2 IP-ID: %w", err)
		}
		ipid2, err := r.ReadBits(8)
		if err != nil {
			return nil, 0, fmt.Errorf("malformed ext2 IP-ID2: %w", err)
		}
		return &ExtBits{SN: sn, SNNr: 8, IPID: ipid, IPIDNr: 8, IPID2: ipid2, IPID2Nr: 8}, Ext2, nil

	case Ext3:
		hasRTPM, _ := r.ReadBits(1)
		hasSN, _ := r.ReadBits(1)
		hasIPID, _ := r.ReadBits(1)
		hasIPID2, _ := r.ReadBits(1)
		hasTS, _ := r.ReadBits(1)
		hasList, _ := r.ReadBits(1)

		eb := &ExtBits{}
		if hasRTPM != 0 {
			eb.RTPM, eb.RTPMNr = uint8(hasRTPM), 1
		}
		if hasSN != 0 {
			v, err := r.ReadBits(8)
			if err != nil {
				return nil, 0, fmt.Errorf("malformed ext3 SN: %w", err)
			}
			eb.SN, eb.SNNr = v, 8
		}
		if hasIPID != 0 {
			v, err := r.ReadBits(8)
			if err != nil {
				return nil, 0, fmt.Errorf("malformed ext3 IP-ID: %w", err)
			}
			eb.IPID, eb.IPIDNr = v, 8
		}
		if hasIPID2 != 0 {
			v, err := r.ReadBits(8)
			if err != nil {
				return nil, 0, fmt.Errorf("malformed ext3 IP-ID2: %w", err)
			}
			eb.IPID2, eb.IPID2Nr = v, 8
		}
		if hasTS != 0 {
			v, err := r.ReadBits(8)
			if err != nil {
				return nil, 0, fmt.Errorf("malformed ext3 TS: %w", err)
			}
			eb.TS, eb.TSNr = v, 8
		}
		if hasList != 0 {
			n, err := r.ReadBits(8)
			if err != nil {
				return nil, 0, fmt.Errorf("malformed ext3 list-update length: %w", err)
			}
			lst, err := r.ReadBytes(int(n))
			if err != nil {
				return nil, 0, fmt.Errorf("malformed ext3 list-update body: %w", err)
			}
			eb.ListUpdate = lst
		}
		return eb, Ext3, nil

	default:
		return nil, 0, fmt.Errorf("packet: unreachable extension tag %d", tag)
	}
}
