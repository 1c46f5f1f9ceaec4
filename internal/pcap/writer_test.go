package pcap

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gtpv2c-generator/internal/gtpv2c"
)

func TestWriter_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.pcap")

	w, err := NewWriter(path)
	require.NoError(t, err)

	m := gtpv2c.New(gtpv2c.MsgTypeEchoRequest, 1)
	_, err = m.AppendRecovery(gtpv2c.InstanceZero, 3)
	require.NoError(t, err)

	src := net.ParseIP("192.0.2.10").To4()
	dst := net.ParseIP("192.0.2.20").To4()
	require.NoError(t, w.WriteOutbound(src, dst, gtpv2c.DefaultPort, gtpv2c.DefaultPort, m.Bytes()))
	require.NoError(t, w.WriteInbound(dst, src, gtpv2c.DefaultPort, gtpv2c.DefaultPort, m.Bytes()))
	require.NoError(t, w.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	r, err := pcapgo.NewReader(f)
	require.NoError(t, err)

	src1 := gopacket.NewPacketSource(r, layers.LinkTypeEthernet)
	pkt, err := src1.NextPacket()
	require.NoError(t, err)

	udpLayer := pkt.Layer(layers.LayerTypeUDP)
	require.NotNil(t, udpLayer)
	udp := udpLayer.(*layers.UDP)
	assert.Equal(t, layers.UDPPort(gtpv2c.DefaultPort), udp.DstPort)
	assert.Equal(t, m.Bytes(), []byte(udp.Payload))

	ipLayer := pkt.Layer(layers.LayerTypeIPv4)
	require.NotNil(t, ipLayer)
	assert.Equal(t, "192.0.2.10", ipLayer.(*layers.IPv4).SrcIP.String())

	pkt2, err := src1.NextPacket()
	require.NoError(t, err)
	ip2 := pkt2.Layer(layers.LayerTypeIPv4).(*layers.IPv4)
	assert.Equal(t, "192.0.2.20", ip2.SrcIP.String())

	_, err = src1.NextPacket()
	assert.Error(t, err, "capture holds exactly two packets")
}
