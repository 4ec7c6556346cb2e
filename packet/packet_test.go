package packet

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDiscriminate(t *testing.T) {
	cases := []struct {
		first byte
		want  Type
	}{
		{0xFE, TypeIRDyn},
		{0xFC, TypeIR},
		{0xFD, TypeIR},
		{0x00, TypeUO0},
		{0x7F, TypeUO0},
		{0x80, TypeUO1},
		{0x90, TypeUO1ID},
		{0xA0, TypeUO1TS},
		{0xB0, TypeUO1RTP},
		{0xC0, TypeUOR2},
		{0xC8, TypeUOR2ID},
		{0xD0, TypeUOR2TS},
		{0xD8, TypeUOR2RTP},
	}
	for _, c := range cases {
		got, err := Discriminate(c.first)
		if err != nil {
			t.Errorf("Discriminate(%#02x) error: %v", c.first, err)
			continue
		}
		if got != c.want {
			t.Errorf("Discriminate(%#02x) = %v, want %v", c.first, got, c.want)
		}
	}
}

func TestDiscriminate_Unrecognized(t *testing.T) {
	if _, err := Discriminate(0xE8); err == nil {
		t.Fatal("expected error for unrecognized type octet")
	}
}

func TestParseUO0(t *testing.T) {
	// disc=0, SN=0b0101, CRC=0b011 -> 0_0101_011 = 0x2B
	bb, err := ParseUO0([]byte{0x2B})
	if err != nil {
		t.Fatalf("ParseUO0: %v", err)
	}
	if bb.SN != 0b0101 || bb.CRC != 0b011 {
		t.Errorf("got SN=%d CRC=%d, want SN=5 CRC=3", bb.SN, bb.CRC)
	}
}

func TestParseIR_WithAndWithoutDynamic(t *testing.T) {
	// static chain: 2 bytes {0xAA, 0xBB}; no dynamic chain (D=0)
	pkt := []byte{0xFC, 0x04, 0x99, 0x02, 0xAA, 0xBB}
	bb, err := ParseIR(pkt)
	if err != nil {
		t.Fatalf("ParseIR: %v", err)
	}
	if bb.Profile != ProfileIPOnly || bb.CRC != 0x99 {
		t.Errorf("Profile/CRC = %v/%#x, want ProfileIPOnly/0x99", bb.Profile, bb.CRC)
	}
	if diff := cmp.Diff([]byte{0xAA, 0xBB}, bb.StaticChain); diff != "" {
		t.Errorf("StaticChain mismatch:\n%s", diff)
	}
	if bb.DynamicPresent {
		t.Error("expected no dynamic chain")
	}

	// D=1: static {0xAA}, dynamic {0xCC, 0xDD}
	pkt2 := []byte{0xFD, 0x04, 0x99, 0x01, 0xAA, 0x02, 0xCC, 0xDD}
	bb2, err := ParseIR(pkt2)
	if err != nil {
		t.Fatalf("ParseIR (dynamic): %v", err)
	}
	if !bb2.DynamicPresent {
		t.Fatal("expected dynamic chain present")
	}
	if diff := cmp.Diff([]byte{0xCC, 0xDD}, bb2.DynamicChain); diff != "" {
		t.Errorf("DynamicChain mismatch:\n%s", diff)
	}
}

func TestParseIRDyn(t *testing.T) {
	pkt := []byte{0xFE, 0x02, 0x55, 0x02, 0x11, 0x22}
	bb, err := ParseIRDyn(pkt)
	if err != nil {
		t.Fatalf("ParseIRDyn: %v", err)
	}
	if bb.Profile != ProfileUDP || bb.CRC != 0x55 {
		t.Errorf("Profile/CRC = %v/%#x, want ProfileUDP/0x55", bb.Profile, bb.CRC)
	}
	if diff := cmp.Diff([]byte{0x11, 0x22}, bb.DynamicChain); diff != "" {
		t.Errorf("DynamicChain mismatch:\n%s", diff)
	}
}

func TestParseUO1_Plain(t *testing.T) {
	pkt := []byte{0x80, 0x2A, 0x15}
	bb, err := ParseUO1(pkt)
	if err != nil {
		t.Fatalf("ParseUO1: %v", err)
	}
	if bb.Type != TypeUO1 || bb.SN != 0x2A || bb.CRC != 0x15 {
		t.Errorf("got Type=%v SN=%d CRC=%#x, want UO1/0x2A/0x15", bb.Type, bb.SN, bb.CRC)
	}
}

func TestParseUO1_RTP_SplitsMBit(t *testing.T) {
	pkt := []byte{0xB0, 0x80 | 0x10, 0x00} // M=1, TS low bits = 0x10
	bb, err := ParseUO1(pkt)
	if err != nil {
		t.Fatalf("ParseUO1: %v", err)
	}
	if bb.RTPM != 1 || bb.TS != 0x10 {
		t.Errorf("got RTPM=%d TS=%d, want 1/0x10", bb.RTPM, bb.TS)
	}
}

func TestParseUO1_RejectsReservedCRCBit(t *testing.T) {
	pkt := []byte{0x80, 0x00, 0x80}
	if _, err := ParseUO1(pkt); err == nil {
		t.Fatal("expected error for reserved CRC top bit set")
	}
}

func TestParseUOR2_PlainNoExtension(t *testing.T) {
	// disc=110, family=00, SN top=0b101 -> 1100_0101 = 0xC5 ; tail X=0 CRC=0x10
	pkt := []byte{0xC5, 0x10}
	bb, err := ParseUOR2(pkt)
	if err != nil {
		t.Fatalf("ParseUOR2: %v", err)
	}
	if bb.Type != TypeUOR2 || bb.SN != 0b101 || bb.XFlag {
		t.Errorf("got Type=%v SN=%d XFlag=%v", bb.Type, bb.SN, bb.XFlag)
	}
}

func TestParseUOR2_IDWithExtension0(t *testing.T) {
	// family ID: disc bits 110, family 01 -> top byte 1100_1sss ; s=SN top bits
	first := byte(0xC8 | 0b011) // family=ID(01), SN top = 0b011
	profileField := byte(0x77)
	tail := byte(0x80 | 0x20) // X=1, CRC=0x20
	ext0 := byte(0x00<<6 | 0b010<<3 | 0b110) // tag=Ext0, SN=2, IPID=6
	pkt := []byte{first, profileField, tail, ext0}

	bb, err := ParseUOR2(pkt)
	if err != nil {
		t.Fatalf("ParseUOR2: %v", err)
	}
	if bb.Type != TypeUOR2ID || bb.IPID != 0x77 || !bb.XFlag {
		t.Errorf("got Type=%v IPID=%#x XFlag=%v", bb.Type, bb.IPID, bb.XFlag)
	}
	if bb.ExtTy != Ext0 || bb.Ext.SN != 2 || bb.Ext.IPID != 6 {
		t.Errorf("got ExtTy=%v Ext.SN=%d Ext.IPID=%d", bb.ExtTy, bb.Ext.SN, bb.Ext.IPID)
	}
}

func TestParseExtension_AllFour(t *testing.T) {
	// Ext0
	eb, ty, err := ParseExtension([]byte{0b00_101_011})
	if err != nil || ty != Ext0 || eb.SN != 0b101 || eb.IPID != 0b011 {
		t.Errorf("Ext0: eb=%+v ty=%v err=%v", eb, ty, err)
	}

	// Ext1
	eb, ty, err = ParseExtension([]byte{0b01_000000, 0x11, 0x22})
	if err != nil || ty != Ext1 || eb.SN != 0x11 || eb.IPID != 0x22 {
		t.Errorf("Ext1: eb=%+v ty=%v err=%v", eb, ty, err)
	}

	// Ext2
	eb, ty, err = ParseExtension([]byte{0b10_000000, 0x11, 0x22, 0x33})
	if err != nil || ty != Ext2 || eb.SN != 0x11 || eb.IPID != 0x22 || eb.IPID2 != 0x33 {
		t.Errorf("Ext2: eb=%+v ty=%v err=%v", eb, ty, err)
	}

	// Ext3 with SN + list update only
	flags := byte(0b11_0_1_0_0_0_1) // tag=11, RTPM=0, SN=1, IPID=0, IPID2=0, TS=0, list=1
	pkt := []byte{flags, 0x42, 0x02, 0xAA, 0xBB}
	eb, ty, err = ParseExtension(pkt)
	if err != nil {
		t.Fatalf("Ext3: %v", err)
	}
	if ty != Ext3 || eb.SN != 0x42 || eb.SNNr != 8 {
		t.Errorf("Ext3 SN: eb=%+v ty=%v", eb, ty)
	}
	if diff := cmp.Diff([]byte{0xAA, 0xBB}, eb.ListUpdate); diff != "" {
		t.Errorf("Ext3 ListUpdate mismatch:\n%s", diff)
	}
}
