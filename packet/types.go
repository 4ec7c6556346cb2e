// Package packet discriminates and parses ROHC packet types (IR,
// IR-DYN, UO-0, UO-1 family, UOR-2 family and their extensions 0-3),
// extracting bit bundles per spec.md §3/§4.7 without resolving them
// against any context reference — that resolution is the value
// decoder's job (package rohc).
package packet

import "fmt"

// ProfileID selects which profile's static/dynamic chain and tail
// format a packet's payload follows.
type ProfileID uint8

const (
	ProfileUncompressed ProfileID = 0x00
	ProfileRTP          ProfileID = 0x01
	ProfileUDP          ProfileID = 0x02
	ProfileESP          ProfileID = 0x03
	ProfileIPOnly       ProfileID = 0x04
	ProfileUDPLite      ProfileID = 0x07
)

// Type enumerates the packet types this engine understands.
type Type int

const (
	TypeUnknown Type = iota
	TypeIR
	TypeIRDyn
	TypeUO0
	TypeUO1
	TypeUO1ID
	TypeUO1TS
	TypeUO1RTP
	TypeUOR2
	TypeUOR2ID
	TypeUOR2TS
	TypeUOR2RTP
)

func (t Type) String() string {
	switch t {
	case TypeIR:
		return "IR"
	case TypeIRDyn:
		return "IR-DYN"
	case TypeUO0:
		return "UO-0"
	case TypeUO1:
		return "UO-1"
	case TypeUO1ID:
		return "UO-1-ID"
	case TypeUO1TS:
		return "UO-1-TS"
	case TypeUO1RTP:
		return "UO-1-RTP"
	case TypeUOR2:
		return "UOR-2"
	case TypeUOR2ID:
		return "UOR-2-ID"
	case TypeUOR2TS:
		return "UOR-2-TS"
	case TypeUOR2RTP:
		return "UOR-2-RTP"
	default:
		return "UNKNOWN"
	}
}

// Family reports whether t belongs to the UO-1 or UOR-2 variant
// group, used to pick the right tail parser.
func (t Type) Family() Type {
	switch t {
	case TypeUO1, TypeUO1ID, TypeUO1TS, TypeUO1RTP:
		return TypeUO1
	case TypeUOR2, TypeUOR2ID, TypeUOR2TS, TypeUOR2RTP:
		return TypeUOR2
	default:
		return t
	}
}

// ExtType selects which of the four UOR-2 extensions is present.
type ExtType int

const (
	Ext0 ExtType = iota
	Ext1
	Ext2
	Ext3
)

// ExtBits holds the additional SN/IP-ID/TS/RTP bits an extension
// contributes on top of a UOR-2 base packet.
type ExtBits struct {
	SN    uint32
	SNNr  uint8
	IPID  uint32
	IPIDNr uint8
	IPID2 uint32
	IPID2Nr uint8

	TS         uint32
	TSNr       uint8
	IsTSScaled bool

	RTPM   uint8
	RTPMNr uint8
	RTPX   uint8
	RTPXNr uint8
	RTPP   uint8
	RTPPNr uint8
	RTPPT  uint8
	RTPPTNr uint8

	ListUpdate []byte // raw list-update bytes, decoded by package rohc (listapply.go)
}

// BitBundle is the "Extracted Bit Bundle" of spec.md §3: the raw
// fields pulled off the wire before any reference resolution.
type BitBundle struct {
	Type    Type
	Profile ProfileID

	SN   uint32
	SNNr uint8

	IPID   uint32
	IPIDNr uint8
	IPID2  uint32
	IPID2Nr uint8

	TS         uint32
	TSNr       uint8
	IsTSScaled bool

	RTPM uint8

	CRC   uint8
	CRCNr uint8

	XFlag bool
	Ext   ExtBits
	ExtTy ExtType

	// IR / IR-DYN only
	StaticChain  []byte
	DynamicChain []byte
	DynamicPresent bool
}

// Discriminate inspects the first byte of a ROHC packet (after CID
// framing has already been stripped by package cid) and returns its
// type, per spec.md §4.7's leading-bits dispatch table.
func Discriminate(first byte) (Type, error) {
	switch {
	case first == 0xFE:
		return TypeIRDyn, nil
	case first&0xFE == 0xFC:
		return TypeIR, nil
	case first&0x80 == 0x00:
		return TypeUO0, nil
	case first&0xC0 == 0x80:
		switch (first >> 4) & 0x3 {
		case 0:
			return TypeUO1, nil
		case 1:
			return TypeUO1ID, nil
		case 2:
			return TypeUO1TS, nil
		default:
			return TypeUO1RTP, nil
		}
	case first&0xE0 == 0xC0:
		switch (first >> 3) & 0x3 {
		case 0:
			return TypeUOR2, nil
		case 1:
			return TypeUOR2ID, nil
		case 2:
			return TypeUOR2TS, nil
		default:
			return TypeUOR2RTP, nil
		}
	default:
		return TypeUnknown, fmt.Errorf("packet: unrecognized type octet %#02x", first)
	}
}
