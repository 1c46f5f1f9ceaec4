package stats

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCollector_MessageCounters(t *testing.T) {
	c := NewCollector()

	c.RecordSent("create_session_response", 64)
	c.RecordSent("create_session_response", 64)
	c.RecordSent("echo_request", 13)
	c.RecordReceived("create_session_request")
	c.RecordSuccess("create_session_response", 5*time.Millisecond)
	c.RecordTimeout("echo_request")

	assert.Equal(t, uint64(3), c.TotalSent())
	assert.Equal(t, uint64(1), c.TotalReceived())
	assert.Equal(t, uint64(141), c.BytesEncoded)
	assert.Equal(t, uint64(2), c.MessageStats["create_session_response"].Sent)
	assert.Equal(t, uint64(1), c.MessageStats["echo_request"].Timeout)
}

func TestCollector_SessionLifecycle(t *testing.T) {
	c := NewCollector()

	c.RecordSessionEstablished()
	c.RecordSessionEstablished()
	c.RecordSessionDeleted()

	assert.Equal(t, uint64(2), c.SessionsEstablished)
	assert.Equal(t, uint64(1), c.ActiveSessions)

	// Active never goes negative.
	c.RecordSessionDeleted()
	c.RecordSessionDeleted()
	assert.Equal(t, uint64(0), c.ActiveSessions)
}

func TestCollector_ResponseTimeStats(t *testing.T) {
	c := NewCollector()
	for _, d := range []time.Duration{5, 1, 3, 2, 4} {
		c.RecordSuccess("x", d*time.Millisecond)
	}

	min, avg, max, p99 := c.ResponseTimeStats()
	assert.Equal(t, 1*time.Millisecond, min)
	assert.Equal(t, 3*time.Millisecond, avg)
	assert.Equal(t, 5*time.Millisecond, max)
	assert.Equal(t, 5*time.Millisecond, p99)
}

func TestCollector_SnapshotIsIndependent(t *testing.T) {
	c := NewCollector()
	c.RecordSent("echo_request", 13)

	snap := c.Snapshot()
	c.RecordSent("echo_request", 13)

	assert.Equal(t, uint64(1), snap.MessageStats["echo_request"].Sent)
	assert.Equal(t, uint64(2), c.MessageStats["echo_request"].Sent)
}

func TestCollector_ConcurrentRecording(t *testing.T) {
	c := NewCollector()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				c.RecordSent("echo_request", 13)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(1000), c.TotalSent())
}
