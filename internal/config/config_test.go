package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gtpv2c-generator/pkg/types"
)

func validConfig() *Config {
	return &Config{
		Local:   LocalConfig{Address: "192.0.2.10", Port: 2123},
		Peer:    PeerConfig{Address: "192.0.2.20", Port: 2123},
		Session: SessionConfig{Count: 10, UEIPPool: "10.60.0.0/24", TEIDStart: 1, TEIDStrategy: "sequential"},
		Bearer:  BearerConfig{EBI: 5, QCI: 9, ARPPriority: 1},
		Timing:  TimingConfig{MessageIntervalMs: 10, ResponseTimeoutMs: 1000, MaxRetries: 3},
		Logging: LoggingConfig{Level: "info"},
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 2123, cfg.Local.Port)
	assert.Equal(t, 2123, cfg.Peer.Port)
	assert.Equal(t, uint8(0), cfg.Local.RestartCounter)
	assert.Equal(t, uint8(5), cfg.Bearer.EBI)
	assert.Equal(t, uint8(9), cfg.Bearer.QCI)
	assert.Equal(t, "sequential", cfg.Session.TEIDStrategy)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_YAMLFile(t *testing.T) {
	content := `
local:
  address: 192.0.2.10
  restart_counter: 42
peer:
  address: 192.0.2.20
session:
  count: 5
  ue_ip_pool: 10.60.0.0/24
bearer:
  ebi: 6
  ul_mbr_kbps: 100000
filters:
  - direction: uplink
    precedence: 10
    protocol: 6
    remote_port_low: 443
    remote_port_high: 443
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, uint8(42), cfg.Local.RestartCounter)
	assert.Equal(t, 5, cfg.Session.Count)
	assert.Equal(t, uint8(6), cfg.Bearer.EBI)
	assert.Equal(t, uint64(100000), cfg.Bearer.ULMBR)
	require.Len(t, cfg.Filters, 1)
	assert.Equal(t, uint16(443), cfg.Filters[0].RemotePortLow)
	// Defaults still apply underneath the file.
	assert.Equal(t, 2123, cfg.Peer.Port)
}

func TestValidate_AcceptsGoodConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Local.Address = "bogus"
	cfg.Session.TEIDStart = 0
	cfg.Bearer.EBI = 0x1f

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "local.address")
	assert.Contains(t, err.Error(), "teid_start")
	assert.Contains(t, err.Error(), "bearer.ebi")
}

func TestValidate_RejectsTooManyFilters(t *testing.T) {
	cfg := validConfig()
	for i := 0; i <= types.MaxFiltersPerUE; i++ {
		cfg.Filters = append(cfg.Filters, FilterConfig{Direction: "uplink"})
	}
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsBadStrategy(t *testing.T) {
	cfg := validConfig()
	cfg.Session.TEIDStrategy = "roundrobin"
	assert.Error(t, cfg.Validate())
}

func TestToPacketFilter_Directions(t *testing.T) {
	for name, want := range map[string]uint8{
		"uplink":        types.DirectionUplink,
		"downlink":      types.DirectionDownlink,
		"bidirectional": types.DirectionBidirectional,
		"":              types.DirectionBidirectional,
	} {
		fc := FilterConfig{Direction: name}
		pf, err := fc.ToPacketFilter()
		require.NoError(t, err, name)
		assert.Equal(t, want, pf.Direction, name)
	}

	fc := FilterConfig{Direction: "sideways"}
	_, err := fc.ToPacketFilter()
	assert.Error(t, err)
}

func TestToPacketFilter_ProtocolMask(t *testing.T) {
	fc := FilterConfig{Protocol: 17}
	pf, err := fc.ToPacketFilter()
	require.NoError(t, err)
	assert.Equal(t, uint8(17), pf.Proto)
	assert.Equal(t, uint8(0xff), pf.ProtoMask)

	fc = FilterConfig{}
	pf, err = fc.ToPacketFilter()
	require.NoError(t, err)
	assert.Equal(t, uint8(0), pf.ProtoMask)
}

func TestToPacketFilter_UnsetPortsWidenToFullSpan(t *testing.T) {
	fc := FilterConfig{}
	pf, err := fc.ToPacketFilter()
	require.NoError(t, err)
	assert.Equal(t, uint16(0), pf.RemotePortLow)
	assert.Equal(t, uint16(0xffff), pf.RemotePortHigh)
	assert.Equal(t, uint16(0xffff), pf.LocalPortHigh)

	// Explicit ports pass through untouched.
	fc = FilterConfig{RemotePortLow: 80, RemotePortHigh: 80}
	pf, err = fc.ToPacketFilter()
	require.NoError(t, err)
	assert.Equal(t, uint16(80), pf.RemotePortHigh)
}

func TestToPacketFilter_CIDRs(t *testing.T) {
	fc := FilterConfig{RemoteCIDR: "198.51.100.0/24", LocalCIDR: "10.0.0.0/8"}
	pf, err := fc.ToPacketFilter()
	require.NoError(t, err)
	assert.Equal(t, "198.51.100.0", pf.RemoteIPAddr.String())
	assert.Equal(t, uint8(24), pf.RemoteIPMask)
	assert.Equal(t, uint8(8), pf.LocalIPMask)

	fc = FilterConfig{RemoteCIDR: "2001:db8::/32"}
	_, err = fc.ToPacketFilter()
	assert.Error(t, err)

	fc = FilterConfig{RemoteCIDR: "not-a-cidr"}
	_, err = fc.ToPacketFilter()
	assert.Error(t, err)
}
