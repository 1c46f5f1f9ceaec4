package gtpv2c

import (
	"encoding/binary"
	"net"

	"gtpv2c-generator/pkg/types"
)

// TFT operation code "create new TFT" (TS 24.008 clause 10.5.6.12).
const tftOpCreateNew = 1

// Packet filter component type identifiers (TS 24.008 Table 10.5.162).
const (
	compIPv4RemoteAddress uint8 = 0x10
	compIPv4LocalAddress  uint8 = 0x11
	compProtocolID        uint8 = 0x30
	compSingleLocalPort   uint8 = 0x40
	compLocalPortRange    uint8 = 0x41
	compSingleRemotePort  uint8 = 0x50
	compRemotePortRange   uint8 = 0x51
)

// FilterLookup resolves a bearer's stored filter index to the filter
// attributes. The store is owned by the session layer; a miss makes the
// encoder skip the slot without aborting the TFT.
type FilterLookup interface {
	Lookup(index int) (*types.PacketFilter, bool)
}

// AppendBearerTFT writes a Bearer TFT grouped IE for the bearer's
// packet filters. The IE is opened unsized: the body is one TFT
// sub-header octet followed by a variable per-filter record for each
// occupied slot, in slot order, and the IE length is stamped once the
// full list has been produced.
//
// The filter count in the sub-header is incremented when a slot is
// found occupied, before the store lookup. A failed lookup skips the
// filter record but the count stands, so the count reflects slots
// claimed rather than records emitted. This matches the deployed
// behavior and is kept deliberately; see DESIGN.md.
func (m *Message) AppendBearerTFT(instance uint8, bearer *types.EPSBearer, store FilterLookup) (int, error) {
	ie, err := m.openIE(IETypeBearerTFT, instance)
	if err != nil {
		return 0, err
	}

	hdrOff := ie.off + ieHeaderLen
	if hdrOff+1 > len(m.buf) {
		return 0, &CapacityError{IEType: IETypeBearerTFT, Needed: 1, Length: m.payloadLength()}
	}
	cursor := hdrOff + 1
	bodyLen := 1
	numFilters := 0

	for i := 0; i < types.MaxFiltersPerUE; i++ {
		idx := bearer.PacketFilterMap[i]
		if idx == types.FilterSlotEmpty {
			continue
		}

		numFilters++
		pf, ok := store.Lookup(idx)
		if !ok {
			continue
		}

		if cursor+3 > len(m.buf) {
			return 0, &CapacityError{IEType: IETypeBearerTFT, Needed: 3, Length: m.payloadLength()}
		}
		// Per-filter sub-header: id nibble with direction bits,
		// precedence, component length (patched below).
		subOff := cursor
		m.buf[subOff] = uint8(i)&0x0f | pf.Direction<<4&0x30
		m.buf[subOff+1] = pf.Precedence
		m.buf[subOff+2] = 0
		cursor += 3

		compStart := cursor

		if pf.RemoteIPMask != 0 {
			cursor, err = m.putAddrComponent(cursor, compIPv4RemoteAddress, pf.RemoteIPAddr, pf.RemoteIPMask)
			if err != nil {
				return 0, err
			}
		}

		if pf.LocalIPMask != 0 {
			cursor, err = m.putAddrComponent(cursor, compIPv4LocalAddress, pf.LocalIPAddr, pf.LocalIPMask)
			if err != nil {
				return 0, err
			}
		}

		if pf.ProtoMask != 0 {
			cursor, err = m.putProtoComponent(cursor, pf.Proto)
			if err != nil {
				return 0, err
			}
		}

		if pf.RemotePortLow == pf.RemotePortHigh {
			cursor, err = m.putPortComponent(cursor, compSingleRemotePort, pf.RemotePortLow)
			if err != nil {
				return 0, err
			}
		} else if pf.RemotePortLow != 0 || pf.RemotePortHigh != 0xffff {
			cursor, err = m.putPortRangeComponent(cursor, compRemotePortRange, pf.RemotePortLow, pf.RemotePortHigh)
			if err != nil {
				return 0, err
			}
		}
		// A span of exactly 0-65535 is "any port": no component.

		if pf.LocalPortLow == pf.LocalPortHigh {
			cursor, err = m.putPortComponent(cursor, compSingleLocalPort, pf.LocalPortLow)
			if err != nil {
				return 0, err
			}
		} else if pf.LocalPortLow != 0 || pf.LocalPortHigh != 0xffff {
			cursor, err = m.putPortRangeComponent(cursor, compLocalPortRange, pf.LocalPortLow, pf.LocalPortHigh)
			if err != nil {
				return 0, err
			}
		}

		compLen := cursor - compStart
		m.buf[subOff+2] = uint8(compLen)
		bodyLen += 3 + compLen
	}

	m.buf[hdrOff] = tftOpCreateNew<<5 | uint8(numFilters)&0x0f

	if err := m.closeIE(ie, bodyLen); err != nil {
		return 0, err
	}
	return ieHeaderLen + bodyLen, nil
}

// Component writers advance the local cursor past the component's type
// octet and value. They bound-check against the backing array because
// the body runs ahead of the running length until the IE closes.

func (m *Message) putAddrComponent(cursor int, ctype uint8, addr net.IP, prefix uint8) (int, error) {
	if cursor+9 > len(m.buf) {
		return cursor, &CapacityError{IEType: IETypeBearerTFT, Needed: 9, Length: m.payloadLength()}
	}
	m.buf[cursor] = ctype
	copy(m.buf[cursor+1:cursor+5], addr.To4())
	copy(m.buf[cursor+5:cursor+9], net.CIDRMask(int(prefix), 32))
	return cursor + 9, nil
}

func (m *Message) putProtoComponent(cursor int, proto uint8) (int, error) {
	if cursor+2 > len(m.buf) {
		return cursor, &CapacityError{IEType: IETypeBearerTFT, Needed: 2, Length: m.payloadLength()}
	}
	m.buf[cursor] = compProtocolID
	m.buf[cursor+1] = proto
	return cursor + 2, nil
}

func (m *Message) putPortComponent(cursor int, ctype uint8, port uint16) (int, error) {
	if cursor+3 > len(m.buf) {
		return cursor, &CapacityError{IEType: IETypeBearerTFT, Needed: 3, Length: m.payloadLength()}
	}
	m.buf[cursor] = ctype
	binary.BigEndian.PutUint16(m.buf[cursor+1:cursor+3], port)
	return cursor + 3, nil
}

func (m *Message) putPortRangeComponent(cursor int, ctype uint8, low, high uint16) (int, error) {
	if cursor+5 > len(m.buf) {
		return cursor, &CapacityError{IEType: IETypeBearerTFT, Needed: 5, Length: m.payloadLength()}
	}
	m.buf[cursor] = ctype
	binary.BigEndian.PutUint16(m.buf[cursor+1:cursor+3], low)
	binary.BigEndian.PutUint16(m.buf[cursor+3:cursor+5], high)
	return cursor + 5, nil
}
