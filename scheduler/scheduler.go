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
// This file is derived from node/sc/bridge_tx_pool.go's loop()/time.Ticker
// idiom (2018/06/04). Modified and improved for the gopow development.

// Package scheduler fires the periodic jobs of spec.md §4.4: the 60s
// consensus check and the 30s liveness check, each with max_instances=1 —
// a tick is skipped entirely if the previous run of that job is still in
// flight, rather than queueing up.
package scheduler

import (
	"sync"
	"time"

	"github.com/groundx/gopow/internal/log"
	"go.uber.org/atomic"
)

var logger = log.NewModuleLogger(log.Scheduler)

// DefaultConsensusCheckInterval is spec.md §4.4's consensus_check period.
const DefaultConsensusCheckInterval = 60 * time.Second

// DefaultLivenessCheckInterval is spec.md §4.4's liveness_check period.
const DefaultLivenessCheckInterval = 30 * time.Second

type job struct {
	name     string
	interval time.Duration
	fn       func()
	running  *atomic.Bool
}

// Scheduler owns a set of independently-ticking jobs.
type Scheduler struct {
	mu   sync.Mutex
	jobs []*job
	quit chan struct{}
	wg   sync.WaitGroup
}

// New creates an empty scheduler. Register jobs before calling Start.
func New() *Scheduler {
	return &Scheduler{quit: make(chan struct{})}
}

// Register adds a periodic job. Must be called before Start.
func (s *Scheduler) Register(name string, interval time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, &job{name: name, interval: interval, fn: fn, running: atomic.NewBool(false)})
}

// Start launches one ticking goroutine per registered job.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		s.wg.Add(1)
		go s.run(j)
	}
}

// Stop terminates all job goroutines and waits for the in-flight tick, if
// any, to return.
func (s *Scheduler) Stop() {
	close(s.quit)
	s.wg.Wait()
}

func (s *Scheduler) run(j *job) {
	defer s.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !j.running.CAS(false, true) {
				logger.Debug("skipping tick, previous run still in flight", "job", j.name)
				continue
			}
			func() {
				defer j.running.Store(false)
				defer func() {
					if r := recover(); r != nil {
						logger.Error("scheduled job panicked", "job", j.name, "panic", r)
					}
				}()
				j.fn()
			}()
		case <-s.quit:
			return
		}
	}
}
