package bitstream

import "fmt"

// SDVL (Self-Describing Variable-Length) encodes an unsigned integer in
// 1 to 4 bytes; the leading bits of the first byte signal the length:
//
//	0xxxxxxx              ->  7-bit value, 1 byte
//	10xxxxxx xxxxxxxx     -> 14-bit value, 2 bytes
//	110xxxxx xxxxxxxx x2   -> 21-bit value, 3 bytes
//	111xxxxx xxxxxxxx x3   -> 29-bit value, 4 bytes
const (
	sdvlMax1Byte  = 1<<7 - 1
	sdvlMax2Bytes = 1<<14 - 1
	sdvlMax3Bytes = 1<<21 - 1
	sdvlMax4Bytes = 1<<29 - 1
)

// EncodeSDVL appends the SDVL encoding of v to w. v must fit in 29 bits.
func EncodeSDVL(w *Writer, v uint32) error {
	switch {
	case v <= sdvlMax1Byte:
		w.WriteBits(0, 1)
		w.WriteBits(v, 7)
	case v <= sdvlMax2Bytes:
		w.WriteBits(0b10, 2)
		w.WriteBits(v, 14)
	case v <= sdvlMax3Bytes:
		w.WriteBits(0b110, 3)
		w.WriteBits(v, 21)
	case v <= sdvlMax4Bytes:
		w.WriteBits(0b111, 3)
		w.WriteBits(v, 29)
	default:
		return fmt.Errorf("bitstream: SDVL value %d exceeds 29 bits", v)
	}
	return nil
}

// DecodeSDVL reads an SDVL-encoded integer from r, returning the value
// and the number of bytes it occupied on the wire.
func DecodeSDVL(r *Reader) (uint32, int, error) {
	first, err := r.PeekBits(8)
	if err != nil {
		return 0, 0, fmt.Errorf("bitstream: malformed SDVL prefix: %w", err)
	}
	switch {
	case first&0x80 == 0:
		v, err := r.ReadBits(8)
		if err != nil {
			return 0, 0, err
		}
		return v & 0x7F, 1, nil
	case first&0xC0 == 0x80:
		v, err := r.ReadBits(16)
		if err != nil {
			return 0, 0, fmt.Errorf("bitstream: malformed SDVL (2-byte): %w", err)
		}
		return v & 0x3FFF, 2, nil
	case first&0xE0 == 0xC0:
		v, err := r.ReadBits(24)
		if err != nil {
			return 0, 0, fmt.Errorf("bitstream: malformed SDVL (3-byte): %w", err)
		}
		return v & 0x1FFFFF, 3, nil
	default: // 111xxxxx
		v, err := r.ReadBits(32)
		if err != nil {
			return 0, 0, fmt.Errorf("bitstream: malformed SDVL (4-byte): %w", err)
		}
		return v & 0x1FFFFFFF, 4, nil
	}
}

// SDVLLen returns the number of bytes EncodeSDVL would use for v, or 0
// if v does not fit in 29 bits.
func SDVLLen(v uint32) int {
	switch {
	case v <= sdvlMax1Byte:
		return 1
	case v <= sdvlMax2Bytes:
		return 2
	case v <= sdvlMax3Bytes:
		return 3
	case v <= sdvlMax4Bytes:
		return 4
	default:
		return 0
	}
}
