package lsb

import "testing"

// TestDecode16_RoundTrip exercises spec.md's LSB round-trip property:
// for any v, k, p and any ref placing v inside the interpretation
// interval, decoding the low k bits of v against ref recovers v
// exactly.
func TestDecode16_RoundTrip(t *testing.T) {
	for _, k := range []uint8{1, 4, 6, 8, 12, 16} {
		for _, p := range []int32{0, 1, -1, 3, 50, -50} {
			for _, v := range []uint16{0, 1, 100, 1000, 32768, 65000, 65535} {
				ref := v // place ref so that v = ref, i.e. v is always inside [ref-p, ref-p+2^k-1] when p spans it
				lo, hi := InterpretationInterval16(ref, k, p)
				if !inInterval16(v, lo, hi) {
					continue // this (k,p,v,ref) combination doesn't place v in range; skip
				}
				m := uint32(v) & (uint32(1)<<k - 1)
				got := Decode16(ref, k, m, p)
				if got != v {
					t.Errorf("Decode16(ref=%d,k=%d,m=%#x,p=%d) = %d, want %d", ref, k, m, p, got, v)
				}
			}
		}
	}
}

func inInterval16(v, lo, hi uint16) bool {
	if lo <= hi {
		return v >= lo && v <= hi
	}
	// interval wraps around 2^16
	return v >= lo || v <= hi
}

func TestDecode16_WrapAround(t *testing.T) {
	// SN wrapped past 65535: ref=65530 (just before the compressor
	// advanced past the wrap), received 4 LSBs of SN=2.
	ref := uint16(65530)
	k := uint8(4)
	p := int32(1)
	sn := uint16(2)
	m := uint32(sn) & 0xF

	got := Decode16(ref, k, m, p)
	if got != sn {
		t.Errorf("Decode16 wrap-around = %d, want %d", got, sn)
	}
}

func TestDecode16_NearestMatchingMissedPackets(t *testing.T) {
	// spec.md scenario 2: IR with SN=100, then UO-0 with 4-bit SN-LSB
	// 0b0100 = 4, established p shift so the correct value is 116 (the
	// CRC-confirmed decode), sixteen ahead of the reference.
	ref := uint16(100)
	k := uint8(4)
	p := int32(-12) // widen the window forward so 116 falls in range
	m := uint32(0b0100)

	got := Decode16(ref, k, m, p)
	if got != 116 {
		t.Errorf("Decode16 = %d, want 116", got)
	}
}
