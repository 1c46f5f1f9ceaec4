// Mock GTP-C peer for end-to-end testing of the generator.
// Listens on UDP 2123, peeks incoming GTPv2-C headers, and answers the
// request types the generator sends.
//
// Usage:
//
//	go run test/mockpeer/main.go [--addr 127.0.0.1:2123]
package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"gtpv2c-generator/internal/gtpv2c"
	"gtpv2c-generator/internal/network"
)

type mockPeer struct {
	addr           string
	conn           *net.UDPConn
	restartCounter uint8

	mu       sync.Mutex
	sessions map[uint32]struct{} // data TEIDs seen in bearer contexts

	stats struct {
		received int
		sent     int
		errors   int
	}
}

func newMockPeer(addr string) *mockPeer {
	return &mockPeer{
		addr:           addr,
		restartCounter: 1,
		sessions:       make(map[uint32]struct{}),
	}
}

func (p *mockPeer) run() error {
	udpAddr, err := net.ResolveUDPAddr("udp", p.addr)
	if err != nil {
		return fmt.Errorf("resolve addr: %w", err)
	}

	p.conn, err = net.ListenUDP("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer p.conn.Close()

	log.Printf("Mock peer listening on %s", p.addr)

	buf := make([]byte, 65535)
	for {
		n, remoteAddr, err := p.conn.ReadFromUDP(buf)
		if err != nil {
			if opErr, ok := err.(*net.OpError); ok && opErr.Err.Error() == "use of closed network connection" {
				return nil
			}
			log.Printf("read error: %v", err)
			continue
		}

		p.mu.Lock()
		p.stats.received++
		p.mu.Unlock()

		resp, err := p.handleMessage(buf[:n])
		if err != nil {
			log.Printf("handle error: %v", err)
			p.mu.Lock()
			p.stats.errors++
			p.mu.Unlock()
			continue
		}

		if resp != nil {
			if _, err := p.conn.WriteToUDP(resp, remoteAddr); err != nil {
				log.Printf("write error: %v", err)
				p.mu.Lock()
				p.stats.errors++
				p.mu.Unlock()
				continue
			}
			p.mu.Lock()
			p.stats.sent++
			p.mu.Unlock()
		}
	}
}

func (p *mockPeer) handleMessage(data []byte) ([]byte, error) {
	h, err := network.PeekHeader(data)
	if err != nil {
		return nil, fmt.Errorf("peek: %w", err)
	}

	switch h.MsgType {
	case gtpv2c.MsgTypeEchoRequest:
		return p.handleEcho(h)

	case gtpv2c.MsgTypeCreateSessionResponse:
		// A response carries no answer; record that the session landed.
		log.Printf("← CreateSessionResponse seq=%d teid=%#x", h.Sequence, h.TEID)
		p.mu.Lock()
		p.sessions[h.TEID] = struct{}{}
		p.mu.Unlock()
		return nil, nil

	case gtpv2c.MsgTypeCreateBearerRequest:
		return p.handleCreateBearer(h)

	default:
		return nil, fmt.Errorf("unhandled message type: %d", h.MsgType)
	}
}

func (p *mockPeer) handleEcho(h network.Header) ([]byte, error) {
	log.Printf("← EchoRequest seq=%d", h.Sequence)

	m := gtpv2c.New(gtpv2c.MsgTypeEchoResponse, h.Sequence)
	if _, err := m.AppendRecovery(gtpv2c.InstanceZero, p.restartCounter); err != nil {
		return nil, fmt.Errorf("build echo response: %w", err)
	}

	log.Printf("→ EchoResponse seq=%d", h.Sequence)
	return m.Bytes(), nil
}

func (p *mockPeer) handleCreateBearer(h network.Header) ([]byte, error) {
	log.Printf("← CreateBearerRequest seq=%d teid=%#x", h.Sequence, h.TEID)

	m := gtpv2c.NewWithTEID(gtpv2c.MsgTypeCreateBearerResponse, h.TEID, h.Sequence)
	if _, err := m.AppendCauseAccepted(gtpv2c.InstanceZero); err != nil {
		return nil, fmt.Errorf("build bearer response: %w", err)
	}
	bc, _, err := m.AppendBearerContext(gtpv2c.InstanceZero)
	if err != nil {
		return nil, fmt.Errorf("build bearer response: %w", err)
	}
	n, err := m.AppendEBI(gtpv2c.InstanceZero, 6)
	if err != nil {
		return nil, fmt.Errorf("build bearer response: %w", err)
	}
	bc.AddGroupedLength(n)
	n, err = m.AppendCauseAccepted(gtpv2c.InstanceZero)
	if err != nil {
		return nil, fmt.Errorf("build bearer response: %w", err)
	}
	bc.AddGroupedLength(n)

	log.Printf("→ CreateBearerResponse seq=%d cause=Accepted", h.Sequence)
	return m.Bytes(), nil
}

func (p *mockPeer) printStats() {
	p.mu.Lock()
	defer p.mu.Unlock()
	log.Printf("Stats: received=%d sent=%d errors=%d sessions=%d",
		p.stats.received, p.stats.sent, p.stats.errors, len(p.sessions))
}

func main() {
	addr := flag.String("addr", "127.0.0.1:2123", "UDP address to listen on")
	flag.Parse()

	peer := newMockPeer(*addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Println("Shutting down...")
		peer.printStats()
		peer.conn.Close()
	}()

	if err := peer.run(); err != nil {
		log.Fatalf("Mock peer error: %v", err)
	}
}
