package gtpv2c

import (
	"encoding/binary"
	"fmt"
)

// IE type codes from TS 29.274 Table 8.1-1, limited to the IEs this
// node emits.
const (
	IETypeCause          uint8 = 2
	IETypeRecovery       uint8 = 3
	IETypeEBI            uint8 = 73
	IETypePAA            uint8 = 79
	IETypeBearerQoS      uint8 = 80
	IETypeBearerTFT      uint8 = 84
	IETypeFTEID          uint8 = 87
	IETypeBearerContext  uint8 = 93
	IETypePTI            uint8 = 100
	IETypeAPNRestriction uint8 = 127
	IETypeARP            uint8 = 155
)

// IE instance values (TS 29.274 clause 6.1.3) distinguish repeated IEs
// of the same type within one message.
const (
	InstanceZero uint8 = iota
	InstanceOne
	InstanceTwo
)

// IE is a handle to an information element already placed in a message
// buffer. It stays valid for the lifetime of the message.
type IE struct {
	m   *Message
	off int
}

func (ie IE) bodyLen() int {
	return int(binary.BigEndian.Uint16(ie.m.buf[ie.off+1 : ie.off+3]))
}

// totalLen is the byte count the IE advanced the message by, header
// included. Callers summing children for a grouped parent use it.
func (ie IE) totalLen() int {
	return ieHeaderLen + ie.bodyLen()
}

// body returns the IE's value bytes. Only meaningful once the length
// field is stamped.
func (ie IE) body() []byte {
	return ie.m.buf[ie.off+ieHeaderLen : ie.off+ieHeaderLen+ie.bodyLen()]
}

// AddGroupedLength adds the size of a child IE to an already-stamped
// parent length field. The parent is opened with a zero-length body and
// grows once per child, in the order the children were written, so the
// field is accurate whenever the buffer is inspected.
func (ie IE) AddGroupedLength(n int) {
	binary.BigEndian.PutUint16(ie.m.buf[ie.off+1:ie.off+3], uint16(ie.bodyLen()+n))
}

// checkCapacity verifies that an IE header plus bodyLen more bytes fit
// under MaxMessageLength. It must run before any byte of the write
// lands; a failed write leaves the buffer untouched.
func (m *Message) checkCapacity(ieType uint8, bodyLen int) error {
	if m.payloadLength()+bodyLen+ieHeaderLen > MaxMessageLength {
		return &CapacityError{
			IEType: ieType,
			Needed: bodyLen + ieHeaderLen,
			Length: m.payloadLength(),
		}
	}
	return nil
}

// appendIE reserves the next IE slot when the body size is known up
// front: capacity check, header stamp, running length advance, in that
// order. The returned handle is used to fill the body bytes.
func (m *Message) appendIE(ieType, instance uint8, bodyLen int) (IE, error) {
	if m.openOffset >= 0 {
		return IE{}, fmt.Errorf("cannot append IE type %d: unsized IE at offset %d awaits close", ieType, m.openOffset)
	}
	if err := m.checkCapacity(ieType, bodyLen); err != nil {
		return IE{}, err
	}

	off := m.writeOffset()
	m.buf[off] = ieType
	binary.BigEndian.PutUint16(m.buf[off+1:off+3], uint16(bodyLen))
	m.buf[off+3] = instance & 0x0f

	m.setPayloadLength(m.payloadLength() + ieHeaderLen + bodyLen)
	return IE{m: m, off: off}, nil
}

// openIE reserves an IE slot when the body size is only known after the
// variable content has been produced. The length field is left unset
// and the running length does not move: body-filling code computes its
// own positions from the handle and closeIE settles the accounting.
// Only one IE may be open at a time.
func (m *Message) openIE(ieType, instance uint8) (IE, error) {
	if m.openOffset >= 0 {
		return IE{}, fmt.Errorf("cannot open IE type %d: unsized IE at offset %d awaits close", ieType, m.openOffset)
	}
	if err := m.checkCapacity(ieType, 0); err != nil {
		return IE{}, err
	}

	off := m.writeOffset()
	m.buf[off] = ieType
	m.buf[off+3] = instance & 0x0f

	m.openOffset = off
	return IE{m: m, off: off}, nil
}

// closeIE stamps the final body length of an open IE and advances the
// running length, applying the same capacity check as appendIE now that
// the size is known.
func (m *Message) closeIE(ie IE, bodyLen int) error {
	if m.openOffset != ie.off {
		return fmt.Errorf("close of IE at offset %d which is not open", ie.off)
	}
	if err := m.checkCapacity(m.buf[ie.off], bodyLen); err != nil {
		return err
	}

	binary.BigEndian.PutUint16(m.buf[ie.off+1:ie.off+3], uint16(bodyLen))
	m.setPayloadLength(m.payloadLength() + ieHeaderLen + bodyLen)
	m.openOffset = -1
	return nil
}

// appendUint8IE covers the single-octet IEs (EBI, PTI, Recovery, APN
// Restriction).
func (m *Message) appendUint8IE(ieType, instance, value uint8) (int, error) {
	ie, err := m.appendIE(ieType, instance, 1)
	if err != nil {
		return 0, err
	}
	ie.body()[0] = value
	return ie.totalLen(), nil
}
