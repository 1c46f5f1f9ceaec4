package network

import (
	"encoding/binary"
	"fmt"
)

// Header is the fixed part of a received GTPv2-C message, read without
// decoding any IEs. The generator only needs the type and sequence
// number to route a response to its transaction.
type Header struct {
	MsgType  uint8
	HasTEID  bool
	TEID     uint32
	Sequence uint32
	Length   uint16
}

// PeekHeader reads the GTPv2-C header from a raw datagram. It rejects
// datagrams whose version is not 2, that are shorter than the header
// their flags promise, or whose length field disagrees with the
// datagram size.
func PeekHeader(data []byte) (Header, error) {
	if len(data) < 8 {
		return Header{}, fmt.Errorf("datagram too short for GTPv2-C header: %d bytes", len(data))
	}
	if v := data[0] >> 5; v != 2 {
		return Header{}, fmt.Errorf("unsupported GTP version %d", v)
	}

	h := Header{
		MsgType: data[1],
		HasTEID: data[0]&0x08 != 0,
		Length:  binary.BigEndian.Uint16(data[2:4]),
	}

	seqOff := 4
	if h.HasTEID {
		if len(data) < 12 {
			return Header{}, fmt.Errorf("datagram too short for TEID header: %d bytes", len(data))
		}
		h.TEID = binary.BigEndian.Uint32(data[4:8])
		seqOff = 8
	}
	h.Sequence = uint32(data[seqOff])<<16 | uint32(data[seqOff+1])<<8 | uint32(data[seqOff+2])

	if int(h.Length) != len(data)-4 {
		return Header{}, fmt.Errorf("length field %d does not match datagram payload %d", h.Length, len(data)-4)
	}
	return h, nil
}
