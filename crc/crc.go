// Package crc implements the three CRC variants ROHC uses to bind a
// decompressed header to the bits actually carried on the wire
// (RFC 3095 appendix C): CRC-3, CRC-7 and CRC-8, each computed over an
// explicit byte selection assembled by the caller ("CRC-STATIC" vs
// "CRC-DYNAMIC" field sets).
//
// All three are reflected (LSB-first) CRCs sharing one update rule:
// shift the register right, and on a dropped 1-bit XOR in the
// variant's reflected polynomial. CRC-8's register is exactly one
// byte wide, so its per-byte update folds into a 256-entry table the
// usual way; CRC-3 and CRC-7 run the same rule bit-serially since
// their registers are narrower than the byte they consume.
package crc

// Kind identifies one of the three ROHC CRC variants.
type Kind int

const (
	CRC3 Kind = iota
	CRC7
	CRC8
)

type params struct {
	poly  uint8
	init  uint8
	width uint8
}

var variants = map[Kind]params{
	CRC3: {poly: 0x6, init: 0x7, width: 3},
	CRC7: {poly: 0x79, init: 0x7f, width: 7},
	CRC8: {poly: 0xe0, init: 0xff, width: 8},
}

// crc8Table[b] is the CRC-8 register update for byte b starting from
// an all-zero register.
var crc8Table [256]uint8

func init() {
	p := variants[CRC8]
	for b := 0; b < 256; b++ {
		crc8Table[b] = updateByte(p, 0, uint8(b))
	}
}

// updateByte runs the reflected bit-serial update for a single byte,
// consuming its bits least-significant-bit first per RFC 3095
// appendix C.
func updateByte(p params, crc uint8, b uint8) uint8 {
	for i := 0; i < 8; i++ {
		bit := (b >> uint(i)) & 1
		lsb := crc & 1
		crc >>= 1
		if lsb^bit != 0 {
			crc ^= p.poly
		}
	}
	return crc & widthMask(p.width)
}

func widthMask(width uint8) uint8 {
	return uint8(1<<width - 1)
}

// Compute returns the CRC of data using the given variant, seeded
// with that variant's RFC-specified initial value.
func Compute(kind Kind, data []byte) uint8 {
	p, ok := variants[kind]
	if !ok {
		return 0
	}
	crc := p.init
	if kind == CRC8 {
		for _, b := range data {
			crc = crc8Table[crc^b]
		}
		return crc
	}
	for _, b := range data {
		crc = updateByte(p, crc, b)
	}
	return crc
}
