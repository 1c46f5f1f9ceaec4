package session

import (
	"sync"

	"gtpv2c-generator/pkg/types"
)

// FilterStore holds packet filter definitions indexed by the integer
// ids that bearer slot tables reference. It satisfies the encoder's
// lookup interface; a miss is reported, not an error, because the
// encoder skips unresolvable slots.
type FilterStore struct {
	mu      sync.RWMutex
	filters []*types.PacketFilter
}

// NewFilterStore creates an empty store.
func NewFilterStore() *FilterStore {
	return &FilterStore{}
}

// Add registers a filter and returns its store index.
func (s *FilterStore) Add(pf *types.PacketFilter) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = append(s.filters, pf)
	return len(s.filters) - 1
}

// Lookup resolves a store index to its filter.
func (s *FilterStore) Lookup(index int) (*types.PacketFilter, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.filters) {
		return nil, false
	}
	return s.filters[index], true
}

// Count returns the number of registered filters.
func (s *FilterStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.filters)
}
