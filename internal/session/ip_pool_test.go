package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUEIPPool_NewFromCIDR(t *testing.T) {
	pool, err := NewUEIPPool("10.60.0.0/24")
	require.NoError(t, err)
	assert.NotNil(t, pool)
}

func TestUEIPPool_InvalidCIDR(t *testing.T) {
	_, err := NewUEIPPool("invalid")
	assert.Error(t, err)
}

func TestUEIPPool_RejectsIPv6(t *testing.T) {
	_, err := NewUEIPPool("2001:db8::/64")
	assert.Error(t, err)
}

func TestUEIPPool_Allocate_Sequential(t *testing.T) {
	pool, err := NewUEIPPool("10.60.0.0/24")
	require.NoError(t, err)

	ip1, err := pool.Allocate()
	require.NoError(t, err)
	assert.Equal(t, "10.60.0.1", ip1.String())

	ip2, err := pool.Allocate()
	require.NoError(t, err)
	assert.Equal(t, "10.60.0.2", ip2.String())

	ip3, err := pool.Allocate()
	require.NoError(t, err)
	assert.Equal(t, "10.60.0.3", ip3.String())
}

func TestUEIPPool_SkipsNetworkAddress(t *testing.T) {
	pool, err := NewUEIPPool("10.60.0.0/24")
	require.NoError(t, err)

	ip, err := pool.Allocate()
	require.NoError(t, err)
	assert.Equal(t, "10.60.0.1", ip.String())
}

func TestUEIPPool_Exhaustion(t *testing.T) {
	// A /30 has four addresses; the network address is never handed
	// out, leaving .1 through .3.
	pool, err := NewUEIPPool("10.60.0.0/30")
	require.NoError(t, err)

	for _, want := range []string{"10.60.0.1", "10.60.0.2", "10.60.0.3"} {
		ip, err := pool.Allocate()
		require.NoError(t, err)
		assert.Equal(t, want, ip.String())
	}

	_, err = pool.Allocate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "exhausted")
}

func TestUEIPPool_Release_AllowsReallocation(t *testing.T) {
	pool, err := NewUEIPPool("10.60.0.0/30")
	require.NoError(t, err)

	_, err = pool.Allocate()
	require.NoError(t, err)
	ip2, err := pool.Allocate()
	require.NoError(t, err)
	_, err = pool.Allocate()
	require.NoError(t, err)

	_, err = pool.Allocate()
	assert.Error(t, err)

	pool.Release(ip2)

	ip4, err := pool.Allocate()
	require.NoError(t, err)
	assert.Equal(t, ip2.String(), ip4.String())
}

func TestUEIPPool_Available_Count(t *testing.T) {
	pool, err := NewUEIPPool("10.60.0.0/24")
	require.NoError(t, err)

	assert.Equal(t, 255, pool.Available())

	_, err = pool.Allocate()
	require.NoError(t, err)
	assert.Equal(t, 254, pool.Available())
	assert.Equal(t, 1, pool.AllocatedCount())
}

func TestUEIPPool_ConcurrentAccess(t *testing.T) {
	pool, err := NewUEIPPool("10.60.0.0/16")
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan string, 1000)

	for i := 0; i < 1000; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ip, err := pool.Allocate()
			require.NoError(t, err)
			results <- ip.String()
		}()
	}

	wg.Wait()
	close(results)

	seen := make(map[string]bool)
	for ipStr := range results {
		assert.False(t, seen[ipStr], "duplicate IP allocated: %s", ipStr)
		seen[ipStr] = true
	}
	assert.Equal(t, 1000, len(seen))
}
