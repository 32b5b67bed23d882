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
// This file is derived from blockchain/state_transition.go's replay-on-fork
// shape and consensus/istanbul's summary-comparison idiom (2018/06/04).
// Modified and improved for the gopow development.

// Package consensus implements fork resolution (spec.md §4.7): compare a
// peer's chain summary against the local one, and when the peer's chain
// dominates, fetch it and replay it in place of the local tail.
package consensus

import (
	"github.com/groundx/gopow/chain"
	"github.com/groundx/gopow/chaintypes"
	"github.com/groundx/gopow/internal/log"
	"github.com/groundx/gopow/internal/metrics"
	"github.com/groundx/gopow/p2p"
	"github.com/groundx/gopow/txpool"
)

var logger = log.NewModuleLogger(log.Consensus)

// ChainFetcher is the capability consensus needs from p2pclient: fetching a
// peer's full block list. Declared locally so this package does not import
// p2pclient, keeping the dependency direction single and test doubles
// trivial to write.
type ChainFetcher interface {
	GetChain(peer p2p.Peer) ([]*chaintypes.Block, error)
}

// Engine drives fork resolution against a local chain and pool.
type Engine struct {
	chain   *chain.BlockChain
	pool    *txpool.TxPool
	fetcher ChainFetcher
}

// New creates an Engine. fetcher may be nil in tests that only exercise
// CheckSummary/FindForkPoint.
func New(bc *chain.BlockChain, pool *txpool.TxPool, fetcher ChainFetcher) *Engine {
	return &Engine{chain: bc, pool: pool, fetcher: fetcher}
}

// CheckSummary reports whether peer dominates local: strictly greater total
// difficulty AND strictly greater total length. This is the corrected rule
// of spec.md §4.7 step 1 — the source compares length to itself; the fix
// compares peer to local on both dimensions.
func CheckSummary(local, peer chain.Summary) bool {
	return peer.TotalDifficulty > local.TotalDifficulty && peer.TotalLength > local.TotalLength
}

// FindForkPoint returns the highest 0-based index at which local and peer
// still agree, per spec.md §4.7 step 3. A return value of -1 means the
// chains disagree even at index 0 (or either is empty).
func FindForkPoint(local, peer []*chaintypes.Block) int {
	n := len(local)
	if len(peer) < n {
		n = len(peer)
	}
	for i := 0; i < n; i++ {
		if local[i].Hash() != peer[i].Hash() {
			return i - 1
		}
	}
	return n - 1
}

// CheckAndMaybeFork is the task-queue entry point wired from
// p2pclient.Client's poll_summaries callback: if peerSummary dominates the
// local chain, fetch the peer's full chain and execute fork resolution.
func (e *Engine) CheckAndMaybeFork(peerSummary chain.Summary, peer p2p.Peer) {
	local := e.chain.Summary()
	if !CheckSummary(local, peerSummary) {
		return
	}

	logger.Info("peer chain dominates, fetching for replay",
		"peer", peer.Addr, "local_length", local.TotalLength, "peer_length", peerSummary.TotalLength)

	peerChain, err := e.fetcher.GetChain(peer)
	if err != nil {
		logger.Warn("fork resolution: get_chain failed", "peer", peer.Addr, "err", err)
		return
	}
	e.Execute(peerChain)
}

// Execute performs the rewind/replay procedure of spec.md §4.7 steps 3–5
// against peerChain. A snapshot is taken before rewinding so a replay
// failure partway through can restore the chain to its pre-fork-resolution
// state (the safe choice spec.md §9's open question leaves to the
// implementer).
func (e *Engine) Execute(peerChain []*chaintypes.Block) {
	localChain := e.chain.Iter()
	forkPoint := FindForkPoint(localChain, peerChain)

	snapshot := e.chain.Snapshot()

	var fromIndex uint64
	if forkPoint+1 < len(localChain) {
		fromIndex = localChain[forkPoint+1].Index
	} else {
		fromIndex = uint64(len(localChain)) + 1
	}
	dropped := e.chain.Truncate(fromIndex)

	var requeue []*chaintypes.Transaction
	for _, b := range dropped {
		for _, tx := range b.Transactions {
			if !tx.IsReward() {
				requeue = append(requeue, tx)
			}
		}
	}
	e.pool.Requeue(requeue)

	for i := forkPoint + 1; i < len(peerChain); i++ {
		b := peerChain[i]
		b.IsFromPeer = true
		b.IsGenesis = b.PrevHash == ""

		if res := e.chain.Append(b); !res.Success {
			metrics.ConsensusForks.Inc(1)
			logger.Error("fork replay failed, restoring pre-fork chain",
				"index", b.Index, "kind", res.Kind, "message", res.Message)
			e.chain.Restore(snapshot)
			return
		}
	}

	metrics.ConsensusForks.Inc(1)
	logger.Info("fork replay complete", "fork_point", forkPoint, "new_length", e.chain.Len())
}
