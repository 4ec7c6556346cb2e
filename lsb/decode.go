// Package lsb decodes a k-bit least-significant-bits field into its
// full-width value, given a reference value and a shift parameter p
// (RFC 3095 §4.5.1). It is a pure numeric codec: it knows nothing about
// SN, IP-ID or TS — those field-specific p values live with their
// callers.
package lsb

// Decode16 reconstructs a 16-bit value from its low k bits m, given
// reference ref and shift p. p may be negative, widening the
// interpretation interval below ref.
func Decode16(ref uint16, k uint8, m uint32, p int32) uint16 {
	return uint16(decode(uint64(ref), k, uint64(m), int64(p), 16))
}

// Decode32 is the 32-bit counterpart of Decode16 (used for RTP
// timestamps).
func Decode32(ref uint32, k uint8, m uint32, p int64) uint32 {
	return uint32(decode(uint64(ref), k, uint64(m), p, 32))
}

// decode implements the RFC 3095 §4.5.1 formula:
//
//	low  = v_ref - p                      (mod 2^width)
//	v    = low + ((m - low) mod 2^k)       (mod 2^width)
//
// which is the unique value in [v_ref-p, v_ref-p+2^k-1] (mod 2^width)
// whose low k bits equal m.
func decode(ref uint64, k uint8, m uint64, p int64, width uint8) uint64 {
	widthMod := uint64(1) << width
	kMod := uint64(1) << k

	low := (int64(ref) - p) % int64(widthMod)
	if low < 0 {
		low += int64(widthMod)
	}
	lowU := uint64(low)

	diff := (int64(m) - int64(lowU%kMod)) % int64(kMod)
	if diff < 0 {
		diff += int64(kMod)
	}

	v := (lowU + uint64(diff)) % widthMod
	return v
}

// InterpretationInterval16 returns the inclusive [lo, hi] interval
// (both taken mod 2^16) that Decode16 searches for a matching value,
// exposed for property tests of the LSB round-trip invariant.
func InterpretationInterval16(ref uint16, k uint8, p int32) (lo, hi uint16) {
	widthMod := uint32(1) << 16
	low := (int64(ref) - int64(p)) % int64(widthMod)
	if low < 0 {
		low += int64(widthMod)
	}
	span := uint32(1)<<k - 1
	hiv := (uint32(low) + span) % widthMod
	return uint16(low), uint16(hiv)
}
