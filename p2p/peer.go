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
// This file is derived from node/cn/peer.go's PeerInfo/knownTxs/knownBlocks
// idiom (2018/06/04), adapted from a per-connection p2p peer set to the
// transport-agnostic, HTTP-addressed peer set spec.md §4.6 describes.

// Package p2p holds the Peer value type and the concurrent PeerRegistry
// (spec.md §3).
package p2p

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/groundx/gopow/crypto"
)

// maxKnownTxs/maxKnownBlocks bound the registry's recently-seen caches,
// mirroring node/cn/peer.go's maxKnownTxs/maxKnownBlocks constants.
const (
	maxKnownTxs    = 32768
	maxKnownBlocks = 1024
)

// Peer identifies a remote node by transport protocol and address.
type Peer struct {
	Protocol string `json:"protocol"`
	Addr     string `json:"addr"`
}

// Hash is the peer's identity: SHA256(protocol||addr), per spec.md §3.
func (p Peer) Hash() string {
	return crypto.HashHex([]byte(p.Protocol + p.Addr))
}

// Registry is the concurrent set of known peers, keyed by Peer.Hash.
// Mutation is single-writer (the worker goroutine); iteration snapshots
// are safe for concurrent readers, per spec.md §5.
type Registry struct {
	selfHash string

	mu       chanMutex
	peers    map[string]Peer
	failures map[string]int

	knownTxs    *lru.Cache
	knownBlocks *lru.Cache
}

// chanMutex is a 1-buffered channel used as a mutex, matching the idiom
// txpool.TxPool already uses for its own lock.
type chanMutex chan struct{}

func newChanMutex() chanMutex {
	m := make(chanMutex, 1)
	m <- struct{}{}
	return m
}
func (m chanMutex) Lock()   { <-m }
func (m chanMutex) Unlock() { m <- struct{}{} }

// NewRegistry creates a registry seeded with self, the node's own peer
// entry (spec.md §3's self_peer_hash).
func NewRegistry(self Peer) *Registry {
	knownTxs, _ := lru.New(maxKnownTxs)
	knownBlocks, _ := lru.New(maxKnownBlocks)
	r := &Registry{
		selfHash:    self.Hash(),
		mu:          newChanMutex(),
		peers:       map[string]Peer{self.Hash(): self},
		failures:    make(map[string]int),
		knownTxs:    knownTxs,
		knownBlocks: knownBlocks,
	}
	return r
}

// SelfHash returns the hash identifying the node's own peer entry.
func (r *Registry) SelfHash() string { return r.selfHash }

// Add inserts p if not already present, returning true if it was new.
func (r *Registry) Add(p Peer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	hash := p.Hash()
	if _, exists := r.peers[hash]; exists {
		return false
	}
	r.peers[hash] = p
	return true
}

// Peers returns a snapshot of every peer except self, safe to range over
// without holding the registry lock — used by broadcast and poll loops.
func (r *Registry) Peers() []Peer {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Peer, 0, len(r.peers))
	for hash, p := range r.peers {
		if hash == r.selfHash {
			continue
		}
		out = append(out, p)
	}
	return out
}

// All returns a snapshot including self — used to answer join requests
// (spec.md §4.6's `join`).
func (r *Registry) All() []Peer {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Peer, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, p)
	}
	return out
}

// Len returns the number of known peers, including self.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.peers)
}

// RecordFailure increments p's consecutive-liveness-failure counter and
// returns the new count — used by the liveness check (spec.md §4.4) to
// decide when to evict an unreachable peer.
func (r *Registry) RecordFailure(p Peer) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	hash := p.Hash()
	r.failures[hash]++
	return r.failures[hash]
}

// ResetFailures clears p's consecutive-failure counter after a successful
// liveness ping.
func (r *Registry) ResetFailures(p Peer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.failures, p.Hash())
}

// Remove evicts p from the registry, returning true if it was present.
// Self can never be removed.
func (r *Registry) Remove(p Peer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	hash := p.Hash()
	if hash == r.selfHash {
		return false
	}
	if _, exists := r.peers[hash]; !exists {
		return false
	}
	delete(r.peers, hash)
	delete(r.failures, hash)
	return true
}

// MarkTxKnown records that tx has already been broadcast/received, so
// gossip loops can skip re-sending it.
func (r *Registry) MarkTxKnown(hash string) { r.knownTxs.Add(hash, struct{}{}) }

// KnowsTx reports whether hash was already marked via MarkTxKnown.
func (r *Registry) KnowsTx(hash string) bool { return r.knownTxs.Contains(hash) }

// MarkBlockKnown records that a block hash has already been broadcast or
// received.
func (r *Registry) MarkBlockKnown(hash string) { r.knownBlocks.Add(hash, struct{}{}) }

// KnowsBlock reports whether hash was already marked via MarkBlockKnown.
func (r *Registry) KnowsBlock(hash string) bool { return r.knownBlocks.Contains(hash) }
