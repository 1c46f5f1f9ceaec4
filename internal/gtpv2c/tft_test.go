package gtpv2c

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gtpv2c-generator/pkg/types"
)

// mapStore is a minimal FilterLookup over a map, standing in for the
// session layer's store.
type mapStore map[int]*types.PacketFilter

func (s mapStore) Lookup(index int) (*types.PacketFilter, bool) {
	pf, ok := s[index]
	return pf, ok
}

// anyPortFilter returns a filter whose port spans mean "no restriction"
// so that only explicitly set attributes produce components.
func anyPortFilter() *types.PacketFilter {
	return &types.PacketFilter{
		Direction:      types.DirectionUplink,
		Precedence:     10,
		RemotePortLow:  0,
		RemotePortHigh: 0xffff,
		LocalPortLow:   0,
		LocalPortHigh:  0xffff,
	}
}

func appendTFT(t *testing.T, bearer *types.EPSBearer, store FilterLookup) (*Message, []byte) {
	t.Helper()
	m := NewWithTEID(MsgTypeCreateBearerRequest, 1, 1)
	n, err := m.AppendBearerTFT(InstanceZero, bearer, store)
	require.NoError(t, err)
	return m, lastIE(m, n)
}

func TestAppendBearerTFT_EmptyBearer(t *testing.T) {
	bearer := types.NewEPSBearer(5, types.BearerQoS{})
	_, ie := appendTFT(t, bearer, mapStore{})

	require.Len(t, ie, ieHeaderLen+1)
	assert.Equal(t, []byte{84, 0x00, 0x01, 0}, ie[:4])
	assert.Equal(t, byte(0x20), ie[4], "op create-new, zero filters")
}

func TestAppendBearerTFT_SinglePortWhenLowEqualsHigh(t *testing.T) {
	pf := anyPortFilter()
	pf.RemotePortLow = 80
	pf.RemotePortHigh = 80

	bearer := types.NewEPSBearer(5, types.BearerQoS{})
	bearer.PacketFilterMap[0] = 0

	_, ie := appendTFT(t, bearer, mapStore{0: pf})

	// One filter, one single-remote-port component, no range.
	body := ie[ieHeaderLen:]
	assert.Equal(t, byte(0x21), body[0], "one filter")
	assert.Equal(t, byte(0x20), body[1], "slot 0, uplink direction")
	assert.Equal(t, byte(10), body[2], "precedence")
	assert.Equal(t, byte(3), body[3], "component length")
	assert.Equal(t, []byte{compSingleRemotePort, 0x00, 0x50}, body[4:7])
	assert.Len(t, body, 7)
}

func TestAppendBearerTFT_FullSpanOmitsPortComponent(t *testing.T) {
	pf := anyPortFilter()

	bearer := types.NewEPSBearer(5, types.BearerQoS{})
	bearer.PacketFilterMap[0] = 0

	_, ie := appendTFT(t, bearer, mapStore{0: pf})

	body := ie[ieHeaderLen:]
	assert.Equal(t, byte(0), body[3], "0-65535 spans produce no components")
	assert.Len(t, body, 4)
}

func TestAppendBearerTFT_PortRangeComponent(t *testing.T) {
	pf := anyPortFilter()
	pf.RemotePortLow = 1000
	pf.RemotePortHigh = 2000

	bearer := types.NewEPSBearer(5, types.BearerQoS{})
	bearer.PacketFilterMap[0] = 0

	_, ie := appendTFT(t, bearer, mapStore{0: pf})

	body := ie[ieHeaderLen:]
	assert.Equal(t, byte(5), body[3])
	assert.Equal(t, []byte{compRemotePortRange, 0x03, 0xe8, 0x07, 0xd0}, body[4:9])
}

func TestAppendBearerTFT_AddressAndProtocolComponents(t *testing.T) {
	pf := anyPortFilter()
	pf.RemoteIPAddr = parseV4(t, "198.51.100.0")
	pf.RemoteIPMask = 24
	pf.LocalIPAddr = parseV4(t, "10.60.0.0")
	pf.LocalIPMask = 16
	pf.Proto = 17
	pf.ProtoMask = 0xff

	bearer := types.NewEPSBearer(5, types.BearerQoS{})
	bearer.PacketFilterMap[2] = 0

	_, ie := appendTFT(t, bearer, mapStore{0: pf})

	body := ie[ieHeaderLen:]
	assert.Equal(t, byte(0x22), body[1], "slot 2, uplink")
	assert.Equal(t, byte(9+9+2), body[3])

	comps := body[4:]
	assert.Equal(t, []byte{compIPv4RemoteAddress, 198, 51, 100, 0, 255, 255, 255, 0}, comps[0:9])
	assert.Equal(t, []byte{compIPv4LocalAddress, 10, 60, 0, 0, 255, 255, 0, 0}, comps[9:18])
	assert.Equal(t, []byte{compProtocolID, 17}, comps[18:20])
}

func TestAppendBearerTFT_SparseSlotsInAscendingOrder(t *testing.T) {
	pfA := anyPortFilter()
	pfA.Precedence = 1
	pfB := anyPortFilter()
	pfB.Precedence = 2
	pfB.Direction = types.DirectionDownlink

	bearer := types.NewEPSBearer(5, types.BearerQoS{})
	bearer.PacketFilterMap[0] = 7
	bearer.PacketFilterMap[3] = 8

	_, ie := appendTFT(t, bearer, mapStore{7: pfA, 8: pfB})

	body := ie[ieHeaderLen:]
	assert.Equal(t, byte(0x22), body[0], "two filters counted")

	// Sub-records are contiguous, slot 0 first, slot 3 second.
	assert.Equal(t, byte(0x20), body[1], "slot 0, uplink")
	assert.Equal(t, byte(1), body[2])
	assert.Equal(t, byte(0), body[3])
	assert.Equal(t, byte(0x13), body[4], "slot 3, downlink")
	assert.Equal(t, byte(2), body[5])
	assert.Equal(t, byte(0), body[6])
	assert.Len(t, body, 7)
}

func TestAppendBearerTFT_LookupMissKeepsCount(t *testing.T) {
	pf := anyPortFilter()

	bearer := types.NewEPSBearer(5, types.BearerQoS{})
	bearer.PacketFilterMap[0] = 7  // resolves
	bearer.PacketFilterMap[1] = 99 // not in the store

	_, ie := appendTFT(t, bearer, mapStore{7: pf})

	body := ie[ieHeaderLen:]
	// The count claims both occupied slots even though the second
	// lookup missed; only one sub-record is emitted. Deployed behavior,
	// kept on purpose.
	assert.Equal(t, byte(0x22), body[0])
	assert.Len(t, body, 1+3)
}

func TestAppendBearerTFT_RunningLengthMatchesStampedLength(t *testing.T) {
	pf := anyPortFilter()
	pf.RemoteIPAddr = parseV4(t, "203.0.113.9")
	pf.RemoteIPMask = 32
	pf.RemotePortLow = 443
	pf.RemotePortHigh = 443

	bearer := types.NewEPSBearer(5, types.BearerQoS{})
	bearer.PacketFilterMap[0] = 0

	m := NewWithTEID(MsgTypeCreateBearerRequest, 1, 1)
	before := m.Len()
	n, err := m.AppendBearerTFT(InstanceZero, bearer, mapStore{0: pf})
	require.NoError(t, err)

	assert.Equal(t, before+n, m.Len())

	ie := lastIE(m, n)
	stamped := int(ie[1])<<8 | int(ie[2])
	assert.Equal(t, len(ie)-ieHeaderLen, stamped, "stamped length equals body size")
	// Sub-header + filter record (3) + address component (9) + single
	// port component (3).
	assert.Equal(t, 1+3+9+3, stamped)
}

func TestAppendBearerTFT_ZeroPortsEncodeAsSinglePort(t *testing.T) {
	// low == high == 0 means a single-port component for port 0, not an
	// omitted component. Matches the source encoder.
	pf := anyPortFilter()
	pf.RemotePortLow = 0
	pf.RemotePortHigh = 0

	bearer := types.NewEPSBearer(5, types.BearerQoS{})
	bearer.PacketFilterMap[0] = 0

	_, ie := appendTFT(t, bearer, mapStore{0: pf})

	body := ie[ieHeaderLen:]
	assert.Equal(t, []byte{compSingleRemotePort, 0x00, 0x00}, body[4:7])
}

func TestAppendBearerTFT_NoRoomForSubHeader(t *testing.T) {
	m := NewWithTEID(MsgTypeCreateBearerRequest, 1, 1)

	// Leave exactly four bytes of room: the IE header opens, but the
	// TFT sub-header octet has nowhere to land.
	fill := MaxMessageLength - m.payloadLength() - 2*ieHeaderLen
	_, err := m.appendIE(IETypeBearerContext, InstanceZero, fill)
	require.NoError(t, err)
	require.Equal(t, MaxMessageLength-ieHeaderLen, m.payloadLength())

	bearer := types.NewEPSBearer(5, types.BearerQoS{})
	before := m.Len()
	_, err = m.AppendBearerTFT(InstanceZero, bearer, mapStore{})

	var capErr *CapacityError
	require.True(t, errors.As(err, &capErr))
	assert.Equal(t, IETypeBearerTFT, capErr.IEType)
	assert.Equal(t, before, m.Len())
}

func TestAppendBearerTFT_EmptyBearerFitsExactRemainder(t *testing.T) {
	m := NewWithTEID(MsgTypeCreateBearerRequest, 1, 1)

	// Five bytes of room fit the IE header plus the sub-header octet.
	fill := MaxMessageLength - m.payloadLength() - 2*ieHeaderLen - 1
	_, err := m.appendIE(IETypeBearerContext, InstanceZero, fill)
	require.NoError(t, err)

	bearer := types.NewEPSBearer(5, types.BearerQoS{})
	n, err := m.AppendBearerTFT(InstanceZero, bearer, mapStore{})
	require.NoError(t, err)
	assert.Equal(t, ieHeaderLen+1, n)
	assert.Equal(t, MaxMessageLength, m.payloadLength())
}
