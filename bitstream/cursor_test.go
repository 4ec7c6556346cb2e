package bitstream

import "testing"

func TestReader_ReadBits(t *testing.T) {
	// 1011 0010  1111 0000
	r := NewReader([]byte{0xB2, 0xF0})

	got, err := r.ReadBits(4)
	if err != nil {
		t.Fatalf("ReadBits: %v", err)
	}
	if got != 0b1011 {
		t.Errorf("first nibble = %#x, want 0xB", got)
	}

	got, err = r.ReadBits(8)
	if err != nil {
		t.Fatalf("ReadBits: %v", err)
	}
	if got != 0b00101111 {
		t.Errorf("next 8 bits = %#x, want 0x2F", got)
	}

	if r.BitsRemaining() != 4 {
		t.Errorf("BitsRemaining = %d, want 4", r.BitsRemaining())
	}
}

func TestReader_PeekDoesNotConsume(t *testing.T) {
	r := NewReader([]byte{0xFF})
	v1, _ := r.PeekBits(3)
	v2, _ := r.PeekBits(3)
	if v1 != v2 {
		t.Errorf("Peek not idempotent: %v != %v", v1, v2)
	}
	if r.BitsRemaining() != 8 {
		t.Errorf("Peek should not consume, BitsRemaining = %d", r.BitsRemaining())
	}
}

func TestReader_MalformedShortBuffer(t *testing.T) {
	r := NewReader([]byte{0xFF})
	if _, err := r.ReadBits(9); err == nil {
		t.Fatal("expected malformed-input error reading past buffer end")
	}
}

func TestReader_ByteAlign(t *testing.T) {
	r := NewReader([]byte{0xFF, 0xAA})
	r.ReadBits(3)
	r.ByteAlign()
	if r.BitsRemaining() != 8 {
		t.Errorf("BitsRemaining after align = %d, want 8", r.BitsRemaining())
	}
}

func TestWriterReaderRoundTrip(t *testing.T) {
	w := NewWriter()
	w.WriteBits(0b101, 3)
	w.WriteBits(0b11001100, 8)
	w.WriteBits(0b1, 1)

	r := NewReader(w.Bytes())
	if v, _ := r.ReadBits(3); v != 0b101 {
		t.Errorf("first field = %b, want 101", v)
	}
	if v, _ := r.ReadBits(8); v != 0b11001100 {
		t.Errorf("second field = %b, want 11001100", v)
	}
	if v, _ := r.ReadBits(1); v != 1 {
		t.Errorf("third field = %b, want 1", v)
	}
}
