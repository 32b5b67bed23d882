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

// Package worker implements the task queue and single-consumer worker of
// spec.md §4.3: network handlers, the scheduler, and mutating operations
// all funnel through one FIFO, giving a total order for mutations without
// fine-grained locking between chain and pool.
package worker

import (
	"github.com/groundx/gopow/internal/metrics"
	uuid "github.com/satori/go.uuid"
)

// Task is a nullary closure bound with a name for logging, and an ID for
// log correlation across the queue boundary.
type Task struct {
	ID   string
	Name string
	Fn   func()
}

// Queue is a thread-safe FIFO of Tasks. Put binds arguments eagerly by
// capturing them in the closure at call time, matching spec.md §4.3's
// `put(fn, args...)` semantics.
type Queue struct {
	ch chan Task
}

// NewQueue creates a queue with the given buffer capacity. A full queue
// causes Put to drop the task rather than block the enqueuing goroutine —
// API request handlers and the scheduler must never stall on a backed-up
// worker.
func NewQueue(capacity int) *Queue {
	return &Queue{ch: make(chan Task, capacity)}
}

// Put enqueues fn under name. Returns false if the queue was full and the
// task was dropped.
func (q *Queue) Put(name string, fn func()) bool {
	t := Task{ID: uuid.NewV4().String(), Name: name, Fn: fn}
	select {
	case q.ch <- t:
		return true
	default:
		metrics.TaskQueueDropped.Inc(1)
		return false
	}
}

// tasks exposes the receive side for the Worker's consume loop.
func (q *Queue) tasks() <-chan Task {
	return q.ch
}
