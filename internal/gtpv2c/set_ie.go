package gtpv2c

import (
	"encoding/binary"
	"fmt"
	"net"

	log "github.com/sirupsen/logrus"

	"gtpv2c-generator/pkg/types"
)

// CauseRequestAccepted is the cause value for an accepted request
// (TS 29.274 Table 8.4-1).
const CauseRequestAccepted uint8 = 16

const pdnTypeIPv4 = 1

// F-TEID interface types (TS 29.274 clause 8.22).
const (
	IFTypeS1UeNodeBGTPU uint8 = 0
	IFTypeS1USGWGTPU    uint8 = 1
	IFTypeS5S8SGWGTPU   uint8 = 4
	IFTypeS5S8PGWGTPU   uint8 = 5
	IFTypeS5S8SGWGTPC   uint8 = 6
	IFTypeS5S8PGWGTPC   uint8 = 7
	IFTypeS11MMEGTPC    uint8 = 10
	IFTypeS11S4SGWGTPC  uint8 = 11
)

const fteidV4Flag = 0x80

// AppendCauseAccepted writes a Cause IE with the fixed "request
// accepted" value. All appenders return the byte count the message
// advanced by (IE header plus body), for grouped-IE accounting.
func (m *Message) AppendCauseAccepted(instance uint8) (int, error) {
	ie, err := m.appendIE(IETypeCause, instance, 2)
	if err != nil {
		return 0, err
	}
	b := ie.body()
	b[0] = CauseRequestAccepted
	b[1] = 0 // CS/BCE/PCE flags and spare
	return ie.totalLen(), nil
}

// AppendARP writes a standalone Allocation/Retention Priority IE.
func (m *Message) AppendARP(instance uint8, arp types.ARP) (int, error) {
	ie, err := m.appendIE(IETypeARP, instance, 1)
	if err != nil {
		return 0, err
	}
	ie.body()[0] = encodeARP(arp)
	return ie.totalLen(), nil
}

// Bit layout per TS 29.274 clause 8.15: PVI in bit 1, priority level in
// bits 2-5, PCI in bit 7.
func encodeARP(arp types.ARP) byte {
	return btou(arp.PreemptionVulnerability) |
		(arp.PriorityLevel&0x0f)<<2 |
		btou(arp.PreemptionCapability)<<6
}

func btou(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// AppendFTEID writes the IPv4 variant of a Fully-Qualified TEID IE.
func (m *Message) AppendFTEID(instance, ifType uint8, addr net.IP, teid uint32) (int, error) {
	v4 := addr.To4()
	if v4 == nil {
		return 0, fmt.Errorf("F-TEID for interface type %d requires an IPv4 address, got %s", ifType, addr)
	}

	ie, err := m.appendIE(IETypeFTEID, instance, 9)
	if err != nil {
		return 0, err
	}
	b := ie.body()
	b[0] = fteidV4Flag | ifType&0x3f
	binary.BigEndian.PutUint32(b[1:5], teid)
	copy(b[5:9], v4)
	return ie.totalLen(), nil
}

// AppendPAA writes an IPv4 PDN Address Allocation IE.
func (m *Message) AppendPAA(instance uint8, addr net.IP) (int, error) {
	v4 := addr.To4()
	if v4 == nil {
		return 0, fmt.Errorf("PAA requires an IPv4 address, got %s", addr)
	}

	ie, err := m.appendIE(IETypePAA, instance, 5)
	if err != nil {
		return 0, err
	}
	b := ie.body()
	b[0] = pdnTypeIPv4
	copy(b[1:5], v4)
	return ie.totalLen(), nil
}

// AppendAPNRestriction writes an APN Restriction IE.
func (m *Message) AppendAPNRestriction(instance, restriction uint8) (int, error) {
	return m.appendUint8IE(IETypeAPNRestriction, instance, restriction)
}

// AppendEBI writes an EPS Bearer ID IE. An EBI is nominally four bits;
// a value using the upper nibble is logged and still encoded as given,
// since range correctness is the caller's responsibility and silently
// masking would hide the bug.
func (m *Message) AppendEBI(instance, ebi uint8) (int, error) {
	if ebi&0xf0 != 0 {
		log.WithField("ebi", ebi).Warn("EBI value exceeds 4-bit range, encoding as given")
	}
	return m.appendUint8IE(IETypeEBI, instance, ebi)
}

// AppendPTI writes a Procedure Transaction ID IE.
func (m *Message) AppendPTI(instance, pti uint8) (int, error) {
	return m.appendUint8IE(IETypePTI, instance, pti)
}

// AppendBearerQoS writes a Bearer QoS IE: the ARP octet followed by the
// QCI and the four 40-bit bitrates.
func (m *Message) AppendBearerQoS(instance uint8, qos types.BearerQoS) (int, error) {
	ie, err := m.appendIE(IETypeBearerQoS, instance, 22)
	if err != nil {
		return 0, err
	}
	b := ie.body()
	b[0] = encodeARP(qos.ARP)
	b[1] = qos.QCI
	putUint40(b[2:7], qos.ULMBR)
	putUint40(b[7:12], qos.DLMBR)
	putUint40(b[12:17], qos.ULGBR)
	putUint40(b[17:22], qos.DLGBR)
	return ie.totalLen(), nil
}

func putUint40(b []byte, v uint64) {
	b[0] = byte(v >> 32)
	b[1] = byte(v >> 24)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 8)
	b[4] = byte(v)
}

// AppendRecovery writes a Recovery IE carrying the local restart
// counter (TS 23.007 clause 16.1.1).
func (m *Message) AppendRecovery(instance, restartCounter uint8) (int, error) {
	return m.appendUint8IE(IETypeRecovery, instance, restartCounter)
}

// AppendBearerContext opens a Bearer Context grouped IE with an initial
// body length of zero. Child IEs are appended after it by the caller,
// which reports each child's size via AddGroupedLength on the returned
// handle.
func (m *Message) AppendBearerContext(instance uint8) (IE, int, error) {
	ie, err := m.appendIE(IETypeBearerContext, instance, 0)
	if err != nil {
		return IE{}, 0, err
	}
	return ie, ie.totalLen(), nil
}
