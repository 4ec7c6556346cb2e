// Package ipid reconstructs IPv4 Identification field values, which
// ROHC compresses either as a small offset from the Sequence Number
// (the common case for sequentially-assigned IP-IDs) or sends
// verbatim when the sender marks them random (RFC 3095 §5.7).
package ipid

import "rohcd/lsb"

// DecodeSequential reconstructs the outer/inner IP-ID for the
// "sequential offset" case (rnd=0): the offset between IP-ID and SN
// is itself LSB-encoded against a reference offset, then added back
// to the newly-decoded SN. p is the W-LSB shift parameter (RFC 3095
// §4.5.1) the caller selected for this field; k=0 (no IP-ID bits on
// the wire) still resolves correctly when p is 0, since decoding a
// 0-bit field then returns the reference offset unchanged (in general
// it returns the reference offset minus p).
func DecodeSequential(ipIDRef, snRef, sn uint16, bits uint32, k uint8, p int32) uint16 {
	offsetRef := ipIDRef - snRef
	offset := lsb.Decode16(offsetRef, k, bits, p)
	return sn + offset
}

// DecodeRandom returns the verbatim IP-ID carried on the wire for a
// flow whose compressor marked rnd=1 — no reference is consulted.
func DecodeRandom(verbatim uint16) uint16 {
	return verbatim
}
