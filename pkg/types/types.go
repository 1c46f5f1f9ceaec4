package types

import (
	"net"
	"time"
)

// MaxFiltersPerUE bounds the per-bearer packet filter slot table. It is
// a compile-time constant shared with the session layer, not negotiated
// at runtime.
const MaxFiltersPerUE = 16

// FilterSlotEmpty marks an unused slot in a bearer's packet filter map.
// Slot values are filter-store indices and index 0 is valid, so the
// empty marker lives outside the index range.
const FilterSlotEmpty = -1

// Packet filter directions as carried on the wire (TS 24.008).
const (
	DirectionDownlink      uint8 = 1
	DirectionUplink        uint8 = 2
	DirectionBidirectional uint8 = 3
)

// ARP holds the Allocation/Retention Priority attributes of a bearer.
type ARP struct {
	PriorityLevel           uint8 // 4-bit value, 1 is highest
	PreemptionCapability    bool
	PreemptionVulnerability bool
}

// BearerQoS holds the QoS profile of an EPS bearer. Bitrates are in
// kbps as carried in the 40-bit wire fields.
type BearerQoS struct {
	ARP   ARP
	QCI   uint8
	ULMBR uint64
	DLMBR uint64
	ULGBR uint64
	DLGBR uint64
}

// EPSBearer is the read-only bearer state the encoder works from. The
// packet filter map is sparse: each slot holds a filter-store index or
// FilterSlotEmpty.
type EPSBearer struct {
	EBI             uint8
	QoS             BearerQoS
	PacketFilterMap [MaxFiltersPerUE]int
}

// NewEPSBearer returns a bearer with every filter slot empty. The zero
// value of the map would alias all slots to store index 0.
func NewEPSBearer(ebi uint8, qos BearerQoS) *EPSBearer {
	b := &EPSBearer{EBI: ebi, QoS: qos}
	for i := range b.PacketFilterMap {
		b.PacketFilterMap[i] = FilterSlotEmpty
	}
	return b
}

// PacketFilter describes one traffic flow filter. A zero mask means the
// corresponding address or protocol attribute is unset and produces no
// wire component; a port span of exactly 0-65535 means any port and is
// likewise omitted.
type PacketFilter struct {
	Direction  uint8
	Precedence uint8

	RemoteIPAddr net.IP
	RemoteIPMask uint8 // prefix length, 0 = unset
	LocalIPAddr  net.IP
	LocalIPMask  uint8

	Proto     uint8
	ProtoMask uint8 // 0 = any protocol

	RemotePortLow  uint16
	RemotePortHigh uint16
	LocalPortLow   uint16
	LocalPortHigh  uint16
}

// TransactionResult holds the outcome of one request/response exchange.
type TransactionResult struct {
	SeqNum       uint32
	Response     []byte
	ResponseTime time.Duration
	Error        error
}
