package crc

import "testing"

func TestCompute_Idempotent(t *testing.T) {
	data := []byte{0x45, 0x00, 0x00, 0x28, 0x1c, 0x46, 0x40, 0x00}
	for _, kind := range []Kind{CRC3, CRC7, CRC8} {
		a := Compute(kind, data)
		b := Compute(kind, data)
		if a != b {
			t.Errorf("kind %v: Compute not deterministic: %v != %v", kind, a, b)
		}
	}
}

func TestCompute_WidthBounds(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0xFF, 0x80}
	cases := []struct {
		kind Kind
		max  uint8
	}{
		{CRC3, 0x7},
		{CRC7, 0x7f},
		{CRC8, 0xff},
	}
	for _, c := range cases {
		got := Compute(c.kind, data)
		if got > c.max {
			t.Errorf("kind %v: CRC %#x exceeds width max %#x", c.kind, got, c.max)
		}
	}
}

func TestCompute_SingleBitFlipChangesResult(t *testing.T) {
	base := []byte{0x10, 0x20, 0x30, 0x40}
	for _, kind := range []Kind{CRC3, CRC7, CRC8} {
		baseCRC := Compute(kind, base)
		changed := 0
		for byteIdx := range base {
			for bit := 0; bit < 8; bit++ {
				flipped := append([]byte{}, base...)
				flipped[byteIdx] ^= 1 << uint(bit)
				if Compute(kind, flipped) != baseCRC {
					changed++
				}
			}
		}
		total := len(base) * 8
		if changed == 0 {
			t.Errorf("kind %v: no single-bit flip changed the CRC out of %d trials", kind, total)
		}
	}
}

func TestCompute_EmptyInput(t *testing.T) {
	for _, kind := range []Kind{CRC3, CRC7, CRC8} {
		got := Compute(kind, nil)
		want := variants[kind].init
		if got != want {
			t.Errorf("kind %v: Compute(nil) = %#x, want init value %#x", kind, got, want)
		}
	}
}
