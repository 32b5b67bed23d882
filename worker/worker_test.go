package worker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerExecutesTasksInOrder(t *testing.T) {
	q := NewQueue(16)
	w := NewWorker(q)
	w.Start()
	defer w.Stop()

	var mu sync.Mutex
	var order []int
	done := make(chan struct{})

	for i := 0; i < 5; i++ {
		i := i
		q.Put("append", func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			if i == 4 {
				close(done)
			}
		})
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for tasks to drain")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestWorkerRecoversFromPanickingTask(t *testing.T) {
	q := NewQueue(4)
	w := NewWorker(q)
	w.Start()
	defer w.Stop()

	ran := make(chan struct{})
	q.Put("boom", func() { panic("boom") })
	q.Put("after", func() { close(ran) })

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("worker did not recover from panicking task")
	}
}

func TestQueuePutDropsWhenFull(t *testing.T) {
	q := NewQueue(1)
	block := make(chan struct{})
	require.True(t, q.Put("first", func() { <-block }))
	ok := q.Put("second", func() {})
	assert.False(t, ok)
	close(block)
}
