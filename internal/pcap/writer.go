// Package pcap records generated GTP-C traffic to a capture file so a
// run can be inspected in wireshark without a live peer.
package pcap

import (
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// Writer appends GTP-C messages to a pcap file as Ethernet/IPv4/UDP
// frames. The MAC addresses are synthetic; the capture exists for the
// payloads.
type Writer struct {
	mu       sync.Mutex
	f        *os.File
	w        *pcapgo.Writer
	localMAC net.HardwareAddr
	peerMAC  net.HardwareAddr
}

// NewWriter creates the capture file and writes its header.
func NewWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create pcap file %s: %w", path, err)
	}

	w := pcapgo.NewWriter(f)
	if err := w.WriteFileHeader(65535, layers.LinkTypeEthernet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write pcap header: %w", err)
	}

	localMAC, _ := net.ParseMAC("02:00:00:00:00:01")
	peerMAC, _ := net.ParseMAC("02:00:00:00:00:02")

	return &Writer{
		f:        f,
		w:        w,
		localMAC: localMAC,
		peerMAC:  peerMAC,
	}, nil
}

// WriteOutbound records a message sent from the local node to the peer.
func (p *Writer) WriteOutbound(srcIP, dstIP net.IP, srcPort, dstPort int, payload []byte) error {
	return p.write(srcIP, dstIP, p.localMAC, p.peerMAC, srcPort, dstPort, payload)
}

// WriteInbound records a message received from the peer.
func (p *Writer) WriteInbound(srcIP, dstIP net.IP, srcPort, dstPort int, payload []byte) error {
	return p.write(srcIP, dstIP, p.peerMAC, p.localMAC, srcPort, dstPort, payload)
}

func (p *Writer) write(srcIP, dstIP net.IP, srcMAC, dstMAC net.HardwareAddr, srcPort, dstPort int, payload []byte) error {
	eth := &layers.Ethernet{
		SrcMAC:       srcMAC,
		DstMAC:       dstMAC,
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    srcIP,
		DstIP:    dstIP,
	}
	udp := &layers.UDP{
		SrcPort: layers.UDPPort(srcPort),
		DstPort: layers.UDPPort(dstPort),
	}
	udp.SetNetworkLayerForChecksum(ip)

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(payload)); err != nil {
		return fmt.Errorf("failed to serialize frame: %w", err)
	}

	ci := gopacket.CaptureInfo{
		Timestamp:     time.Now(),
		CaptureLength: len(buf.Bytes()),
		Length:        len(buf.Bytes()),
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.w.WritePacket(ci, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write pcap packet: %w", err)
	}
	return nil
}

// Close flushes and closes the capture file.
func (p *Writer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.f.Close()
}
