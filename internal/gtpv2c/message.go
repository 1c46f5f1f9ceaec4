// Package gtpv2c encodes GTPv2-C (TS 29.274) messages into a flat,
// fixed-capacity buffer. The message header carries a running length
// covering everything after its first four bytes; the write cursor for
// the next information element is always the header base plus that
// length, so the buffer itself is the only encoding state.
package gtpv2c

import (
	"encoding/binary"
)

// DefaultPort is the GTP-C UDP port.
const DefaultPort = 2123

// MaxMessageLength bounds the header length field: the byte count of
// everything after the first four header bytes (TEID, sequence number
// and all IEs). Any write that would push the field past this limit is
// rejected before a single byte lands.
const MaxMessageLength = 4096

const (
	// The flags/type/length prefix excluded from the running length.
	headerPrefixLen = 4
	// Type, two length bytes, spare+instance.
	ieHeaderLen = 4

	version  = 2
	teidFlag = 0x08
)

// Message type codes from TS 29.274 Table 6.1-1, limited to the
// procedures this node takes part in.
const (
	MsgTypeEchoRequest           uint8 = 1
	MsgTypeEchoResponse          uint8 = 2
	MsgTypeCreateSessionRequest  uint8 = 32
	MsgTypeCreateSessionResponse uint8 = 33
	MsgTypeModifyBearerRequest   uint8 = 34
	MsgTypeModifyBearerResponse  uint8 = 35
	MsgTypeDeleteSessionRequest  uint8 = 36
	MsgTypeDeleteSessionResponse uint8 = 37
	MsgTypeCreateBearerRequest   uint8 = 95
	MsgTypeCreateBearerResponse  uint8 = 96
)

// Message is a GTPv2-C message under construction. The caller creates
// it, appends IEs in sequence, and transmits or discards the result; a
// Message must not be shared between goroutines while IEs are being
// written.
type Message struct {
	buf [headerPrefixLen + MaxMessageLength]byte
	// Offset of the IE header opened by openIE and not yet closed,
	// -1 when no unsized IE is pending.
	openOffset int
}

// New starts a message without a TEID field (echo path). The running
// length begins at 4: three sequence bytes plus one spare.
func New(msgType uint8, seq uint32) *Message {
	m := &Message{openOffset: -1}
	m.buf[0] = version << 5
	m.buf[1] = msgType
	m.setPayloadLength(4)
	putSeq(m.buf[headerPrefixLen:], seq)
	return m
}

// NewWithTEID starts a message addressed to a remote tunnel endpoint.
// The running length begins at 8: TEID, sequence, spare.
func NewWithTEID(msgType uint8, teid, seq uint32) *Message {
	m := &Message{openOffset: -1}
	m.buf[0] = version<<5 | teidFlag
	m.buf[1] = msgType
	m.setPayloadLength(8)
	binary.BigEndian.PutUint32(m.buf[headerPrefixLen:], teid)
	putSeq(m.buf[headerPrefixLen+4:], seq)
	return m
}

// Sequence numbers are 24 bits on the wire, followed by a spare byte.
func putSeq(b []byte, seq uint32) {
	b[0] = byte(seq >> 16)
	b[1] = byte(seq >> 8)
	b[2] = byte(seq)
	b[3] = 0
}

// Type returns the message type code.
func (m *Message) Type() uint8 {
	return m.buf[1]
}

// HasTEID reports whether the header carries a TEID field.
func (m *Message) HasTEID() bool {
	return m.buf[0]&teidFlag != 0
}

// Sequence returns the 24-bit sequence number.
func (m *Message) Sequence() uint32 {
	off := headerPrefixLen
	if m.HasTEID() {
		off += 4
	}
	return uint32(m.buf[off])<<16 | uint32(m.buf[off+1])<<8 | uint32(m.buf[off+2])
}

// Len returns the total encoded size, fixed header included.
func (m *Message) Len() int {
	return headerPrefixLen + m.payloadLength()
}

// Bytes returns the encoded message. The slice aliases the internal
// buffer and is only valid until the next append.
func (m *Message) Bytes() []byte {
	return m.buf[:m.Len()]
}

func (m *Message) payloadLength() int {
	return int(binary.BigEndian.Uint16(m.buf[2:4]))
}

func (m *Message) setPayloadLength(n int) {
	binary.BigEndian.PutUint16(m.buf[2:4], uint16(n))
}

// writeOffset is the buffer position of the next IE: header base plus
// the running length.
func (m *Message) writeOffset() int {
	return headerPrefixLen + m.payloadLength()
}
