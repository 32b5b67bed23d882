package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSchedulerFiresRegisteredJob(t *testing.T) {
	s := New()
	var fired int32
	s.Register("tick", 10*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	s.Start()
	defer s.Stop()

	time.Sleep(55 * time.Millisecond)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&fired), int32(3))
}

func TestSchedulerSkipsOverlappingTicks(t *testing.T) {
	s := New()
	var concurrent int32
	var maxConcurrent int32
	s.Register("slow", 5*time.Millisecond, func() {
		n := atomic.AddInt32(&concurrent, 1)
		if n > atomic.LoadInt32(&maxConcurrent) {
			atomic.StoreInt32(&maxConcurrent, n)
		}
		time.Sleep(30 * time.Millisecond)
		atomic.AddInt32(&concurrent, -1)
	})
	s.Start()
	defer s.Stop()

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxConcurrent))
}
