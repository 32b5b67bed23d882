// Copyright 2024 The gopow Authors
// This file is part of the gopow library.
//
// The gopow library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The gopow library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the gopow library. If not, see <http://www.gnu.org/licenses/>.
//
// This file is derived from work/worker.go's register/start/stop/atomic
// status idiom (2018/06/04), stripped of EVM-specific mining agents and
// repurposed as the generic single-consumer task runner spec.md §4.3 and
// §5 describe.

package worker

import (
	"sync"

	"github.com/groundx/gopow/internal/log"
	"go.uber.org/atomic"
)

var logger = log.NewModuleLogger(log.Worker)

// Worker drains a Queue on a single goroutine, giving every chain/pool
// mutation a total order (spec.md §5's "Ordering guarantees").
type Worker struct {
	queue   *Queue
	running *atomic.Bool
	quit    chan struct{}
	wg      sync.WaitGroup
}

// NewWorker wraps queue with a single consumer loop. Call Start to begin
// draining it.
func NewWorker(queue *Queue) *Worker {
	return &Worker{
		queue:   queue,
		running: atomic.NewBool(false),
		quit:    make(chan struct{}),
	}
}

// Start spins up the consumer goroutine. Safe to call only once per
// Worker; a second call is a no-op.
func (w *Worker) Start() {
	if !w.running.CAS(false, true) {
		return
	}
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the consumer goroutine to exit after its current task, and
// waits for it to do so.
func (w *Worker) Stop() {
	if !w.running.CAS(true, false) {
		return
	}
	close(w.quit)
	w.wg.Wait()
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case task := <-w.queue.tasks():
			w.run(task)
		case <-w.quit:
			return
		}
	}
}

// run executes a single task, recovering from and logging any panic so one
// bad task can never take the worker goroutine down — spec.md §4.3's
// "try task(); catch & log".
func (w *Worker) run(task Task) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("task panicked", "id", task.ID, "name", task.Name, "panic", r)
		}
	}()
	task.Fn()
}
