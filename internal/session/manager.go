package session

import (
	"fmt"
	"net"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"gtpv2c-generator/internal/config"
	"gtpv2c-generator/pkg/types"
)

// Session is one simulated PDN connection: the control and user plane
// TEIDs the node answers on, the UE address, and the default bearer the
// encoders read from.
type Session struct {
	LocalTEID  uint32 // control-plane TEID allocated locally
	RemoteTEID uint32 // peer's control-plane TEID, 0 until learned
	DataTEID   uint32 // user-plane TEID carried in bearer F-TEIDs
	UEIP       net.IP
	Bearer     *types.EPSBearer
	CreatedAt  time.Time
}

// Manager owns the session registry and the allocators and filter
// store behind it.
type Manager struct {
	cfg     *config.Config
	store   *FilterStore
	teids   *TEIDAllocator
	ipPool  *UEIPPool
	seq     sequenceCounter
	qos     types.BearerQoS
	filters []int // store indices of the configured filters, slot order

	mu       sync.RWMutex
	sessions map[uint32]*Session // by local TEID
}

// sequenceCounter hands out 24-bit GTPv2-C sequence numbers.
type sequenceCounter struct {
	current uint32
	mu      sync.Mutex
}

func (s *sequenceCounter) next() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current++
	if s.current > 0xffffff {
		s.current = 1
	}
	return s.current
}

// NewManager builds the registry: UE IP pool, TEID allocator, and the
// filter store populated from the configured filter definitions.
func NewManager(cfg *config.Config) (*Manager, error) {
	ipPool, err := NewUEIPPool(cfg.Session.UEIPPool)
	if err != nil {
		return nil, fmt.Errorf("failed to create UE IP pool: %w", err)
	}

	// The bearer slot table is fixed-size; Config.Validate reports
	// this too, but the registry cannot rely on every caller running
	// full validation first.
	if len(cfg.Filters) > types.MaxFiltersPerUE {
		return nil, fmt.Errorf("at most %d filters per bearer, got %d", types.MaxFiltersPerUE, len(cfg.Filters))
	}

	store := NewFilterStore()
	indices := make([]int, 0, len(cfg.Filters))
	for i := range cfg.Filters {
		pf, err := cfg.Filters[i].ToPacketFilter()
		if err != nil {
			return nil, fmt.Errorf("filters[%d]: %w", i, err)
		}
		indices = append(indices, store.Add(pf))
	}

	return &Manager{
		cfg:      cfg,
		store:    store,
		teids:    NewTEIDAllocator(cfg.Session.TEIDStrategy, cfg.Session.TEIDStart),
		ipPool:   ipPool,
		qos:      cfg.BearerQoS(),
		filters:  indices,
		sessions: make(map[uint32]*Session),
	}, nil
}

// Store exposes the packet filter store for the TFT encoder.
func (m *Manager) Store() *FilterStore {
	return m.store
}

// NextSequence returns the next message sequence number.
func (m *Manager) NextSequence() uint32 {
	return m.seq.next()
}

// CreateSession allocates TEIDs and a UE address and registers a new
// session carrying the configured default bearer.
func (m *Manager) CreateSession() (*Session, error) {
	localTEID, err := m.teids.Allocate()
	if err != nil {
		return nil, fmt.Errorf("failed to allocate control TEID: %w", err)
	}
	dataTEID, err := m.teids.Allocate()
	if err != nil {
		m.teids.Release(localTEID)
		return nil, fmt.Errorf("failed to allocate data TEID: %w", err)
	}
	ueIP, err := m.ipPool.Allocate()
	if err != nil {
		m.teids.Release(localTEID)
		m.teids.Release(dataTEID)
		return nil, fmt.Errorf("failed to allocate UE IP: %w", err)
	}

	bearer := types.NewEPSBearer(m.cfg.Bearer.EBI, m.qos)
	for slot, idx := range m.filters {
		bearer.PacketFilterMap[slot] = idx
	}

	sess := &Session{
		LocalTEID: localTEID,
		DataTEID:  dataTEID,
		UEIP:      ueIP,
		Bearer:    bearer,
		CreatedAt: time.Now(),
	}

	m.mu.Lock()
	m.sessions[localTEID] = sess
	m.mu.Unlock()

	log.WithFields(log.Fields{
		"local_teid": localTEID,
		"data_teid":  dataTEID,
		"ue_ip":      ueIP,
	}).Debug("Session created")

	return sess, nil
}

// CreateSessions builds n sessions, releasing nothing on partial
// failure: the caller aborts the whole run.
func (m *Manager) CreateSessions(n int) ([]*Session, error) {
	sessions := make([]*Session, 0, n)
	for i := 0; i < n; i++ {
		sess, err := m.CreateSession()
		if err != nil {
			return sessions, fmt.Errorf("session %d of %d: %w", i+1, n, err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, nil
}

// Lookup returns the session for a local control TEID.
func (m *Manager) Lookup(localTEID uint32) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[localTEID]
	return sess, ok
}

// Release removes a session and frees its TEIDs and UE address.
func (m *Manager) Release(localTEID uint32) {
	m.mu.Lock()
	sess, ok := m.sessions[localTEID]
	delete(m.sessions, localTEID)
	m.mu.Unlock()

	if !ok {
		return
	}
	m.teids.Release(sess.LocalTEID)
	m.teids.Release(sess.DataTEID)
	m.ipPool.Release(sess.UEIP)
}

// Count returns the number of active sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
