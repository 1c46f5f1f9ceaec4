package session

import (
	"encoding/binary"
	"fmt"
	"net"
	"sync"
)

// UEIPPool hands out UE IPv4 addresses from a CIDR range for the PDN
// Address Allocation IE. Only IPv4 pools are accepted since the encoder
// emits the IPv4 PAA variant.
type UEIPPool struct {
	network   uint32
	size      uint32 // total addresses in the CIDR
	next      uint32 // offset of the next candidate
	allocated map[uint32]bool
	mu        sync.Mutex
}

// NewUEIPPool creates a pool from a CIDR string such as "10.60.0.0/24".
// The network address itself is never allocated.
func NewUEIPPool(cidr string) (*UEIPPool, error) {
	_, ipnet, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, fmt.Errorf("invalid CIDR %q: %w", cidr, err)
	}
	v4 := ipnet.IP.To4()
	if v4 == nil {
		return nil, fmt.Errorf("UE IP pool must be IPv4, got %q", cidr)
	}

	ones, bits := ipnet.Mask.Size()
	if bits-ones >= 31 {
		return nil, fmt.Errorf("UE IP pool %q too large", cidr)
	}

	return &UEIPPool{
		network:   binary.BigEndian.Uint32(v4),
		size:      1 << (bits - ones),
		next:      1,
		allocated: make(map[uint32]bool),
	}, nil
}

// Allocate returns the next free address from the pool.
func (p *UEIPPool) Allocate() (net.IP, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for checked := uint32(0); checked < p.size-1; checked++ {
		offset := p.next
		p.next++
		if p.next >= p.size {
			p.next = 1
		}
		if p.allocated[offset] {
			continue
		}
		p.allocated[offset] = true
		ip := make(net.IP, 4)
		binary.BigEndian.PutUint32(ip, p.network+offset)
		return ip, nil
	}
	return nil, fmt.Errorf("UE IP pool exhausted (all %d addresses allocated)", len(p.allocated))
}

// Release frees a previously allocated address back to the pool.
func (p *UEIPPool) Release(ip net.IP) {
	v4 := ip.To4()
	if v4 == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.allocated, binary.BigEndian.Uint32(v4)-p.network)
}

// AllocatedCount returns the number of currently allocated addresses.
func (p *UEIPPool) AllocatedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.allocated)
}

// Available returns the number of addresses still free.
func (p *UEIPPool) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return int(p.size) - 1 - len(p.allocated)
}
