// Package cid implements ROHC's Context IDentifier framing (small and
// large CID, spec.md §4.6/§6) and the CID-to-context registry that
// routes an incoming packet to its decompression context.
package cid

import (
	"fmt"

	"rohcd/bitstream"
)

// Type selects the channel-wide CID encoding.
type Type int

const (
	Small Type = iota
	Large
)

// MaxSmallCID is the largest CID value the small-CID add-CID byte can
// carry (a 4-bit nibble).
const MaxSmallCID = 15

// AddCIDByte returns the add-CID byte for a small CID in [0,15]:
// 0xE0 | (cid & 0x0F). CID 0 never needs one (spec.md §3).
func AddCIDByte(cidVal int) byte {
	return 0xE0 | byte(cidVal&0x0F)
}

// isAddCIDByte reports whether b is an add-CID byte (1110 cccc).
func isAddCIDByte(b byte) bool {
	return b&0xF0 == 0xE0
}

// ParseSmallCID extracts the CID from a small-CID-channel packet. It
// returns the CID, and the offset of the ROHC type octet within pkt
// (0 if there was no add-CID byte, 1 if there was).
func ParseSmallCID(pkt []byte) (cidVal int, typeOctetOffset int, err error) {
	if len(pkt) == 0 {
		return 0, 0, fmt.Errorf("cid: empty packet")
	}
	if isAddCIDByte(pkt[0]) {
		if len(pkt) < 2 {
			return 0, 0, fmt.Errorf("cid: malformed input: add-CID byte with no following type octet")
		}
		return int(pkt[0] & 0x0F), 1, nil
	}
	return 0, 0, nil
}

// ParseLargeCID extracts the CID from a large-CID-channel packet. The
// ROHC type octet always comes first on a large-CID channel
// (spec.md §4.6), so the SDVL-encoded CID begins at pkt[1]. Returns
// the CID and the number of bytes the SDVL field occupied.
func ParseLargeCID(pkt []byte) (cidVal int, cidFieldLen int, err error) {
	if len(pkt) < 2 {
		return 0, 0, fmt.Errorf("cid: malformed input: packet too short for large-CID framing")
	}
	r := bitstream.NewReader(pkt[1:])
	v, n, err := bitstream.DecodeSDVL(r)
	if err != nil {
		return 0, 0, fmt.Errorf("cid: malformed large CID: %w", err)
	}
	return int(v), n, nil
}

// Route resolves a packet's CID, the offset of its ROHC type octet,
// and cidFieldLen: on a small-CID channel the CID (if present at all)
// is a standalone add-CID byte already excluded by typeOctetOffset, so
// cidFieldLen is always 0; on a large-CID channel the type octet comes
// first and the SDVL-encoded CID follows it in-line (spec.md §4.6,
// matches original_source/src/comp/cid.c:63-79), so cidFieldLen
// reports how many bytes immediately after the type octet the caller
// must splice out before parsing the rest of the packet.
func Route(pkt []byte, t Type) (cidVal int, typeOctetOffset int, cidFieldLen int, err error) {
	switch t {
	case Small:
		cidVal, typeOctetOffset, err = ParseSmallCID(pkt)
		return cidVal, typeOctetOffset, 0, err
	case Large:
		cidVal, cidFieldLen, err = ParseLargeCID(pkt)
		return cidVal, 0, cidFieldLen, err
	default:
		return 0, 0, 0, fmt.Errorf("cid: unknown CID type %v", t)
	}
}
