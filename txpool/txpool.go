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
// This file is derived from node/sc/bridge_tx_pool.go's admission, mutex
// and metrics idiom (2018/06/04). Modified and improved for the gopow
// development.

// Package txpool implements the mempool: admission control, confirmation
// marking and the mining snapshot (spec.md §4.2).
package txpool

import (
	"time"

	"github.com/groundx/gopow/chaintypes"
	"github.com/groundx/gopow/internal/log"
	"github.com/groundx/gopow/internal/metrics"
	"gopkg.in/fatih/set.v0"
)

var logger = log.NewModuleLogger(log.TxPool)

// BalanceFunc looks up an address's confirmed balance. Wired to
// (*chain.BlockChain).Balance by node; kept as a function value so txpool
// never imports the chain package (lock order chain→pool is enforced by
// the caller, not by an import dependency).
type BalanceFunc func(addr string) int64

// BroadcastFunc enqueues outbound gossip for a locally-originated
// admission.
type BroadcastFunc func(tx *chaintypes.Transaction)

// NowFunc returns the current Unix timestamp; overridable in tests.
type NowFunc func() int64

// TxPool is the ordered list of pending transactions. Transactions marked
// confirmed by MarkConfirmed stay in the list until the next Sweep.
type TxPool struct {
	mu      chan struct{} // 1-buffered channel used as a non-reentrant mutex
	pending []*chaintypes.Transaction
	known   *set.Set // hash de-dup index mirroring work/worker.go's ancestor/family/uncle sets

	balance   BalanceFunc
	broadcast BroadcastFunc
	now       NowFunc
}

// New creates an empty pool. balance is required; broadcast may be nil
// (no gossip is enqueued until SetBroadcast wires one); now defaults to
// time.Now().Unix if nil.
func New(balance BalanceFunc, broadcast BroadcastFunc, now NowFunc) *TxPool {
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}
	p := &TxPool{
		mu:        make(chan struct{}, 1),
		known:     set.New(),
		balance:   balance,
		broadcast: broadcast,
		now:       now,
	}
	p.mu <- struct{}{}
	return p
}

func (p *TxPool) lock()   { <-p.mu }
func (p *TxPool) unlock() { p.mu <- struct{}{} }

// SetBroadcast wires the broadcast callback after construction — node
// builds the pool before the p2pclient.Client exists, then closes this
// hook over the client once it does, the same deferred-wiring idiom
// chain.BlockChain.SetHooks uses.
func (p *TxPool) SetBroadcast(broadcast BroadcastFunc) {
	p.lock()
	defer p.unlock()
	p.broadcast = broadcast
}

// Add runs the admission sequence of spec.md §4.2 and, on success, appends
// tx to the pool and — unless it arrived from a peer — enqueues broadcast.
func (p *TxPool) Add(tx *chaintypes.Transaction) chaintypes.ExecuteResult {
	p.lock()
	defer p.unlock()

	hash := tx.Hash()
	if p.known.Has(hash) {
		metrics.TxRejected.Inc(1)
		return chaintypes.Fail(chaintypes.TxRepeat, "transaction already in pool")
	}
	if tx.IsReward() && !tx.IsFromPeer {
		metrics.TxRejected.Inc(1)
		return chaintypes.Fail(chaintypes.TxSAddrNone, "forged reward transaction")
	}
	if !tx.IsReward() {
		if p.balance(tx.SAddr) < int64(tx.Amount) {
			metrics.TxRejected.Inc(1)
			return chaintypes.Fail(chaintypes.TxInsufficientBalance, "balance below transfer amount")
		}
		if err := tx.VerifySign(); err != nil {
			metrics.TxRejected.Inc(1)
			return chaintypes.Fail(chaintypes.TxInvalidSignature, "signature does not verify")
		}
	}

	p.known.Add(hash)
	p.pending = append(p.pending, tx)
	metrics.TxAdmitted.Inc(1)
	logger.Debug("admitted transaction", "hash", hash, "from_peer", tx.IsFromPeer)

	if !tx.IsFromPeer && p.broadcast != nil {
		p.broadcast(tx)
	}
	return chaintypes.Ok()
}

// MarkConfirmed flags every pool transaction that also appears in b as
// confirmed, leaving it in the pool until the next Sweep.
func (p *TxPool) MarkConfirmed(b *chaintypes.Block) {
	p.lock()
	defer p.unlock()

	inBlock := make(map[string]bool, len(b.Transactions))
	for _, tx := range b.Transactions {
		inBlock[tx.Hash()] = true
	}
	for _, tx := range p.pending {
		if inBlock[tx.Hash()] {
			tx.IsConfirmed = true
		}
	}
}

// Sweep retains only unconfirmed pending transactions, dropping the rest
// (they already live, durably, inside an appended block).
func (p *TxPool) Sweep() {
	p.lock()
	defer p.unlock()
	p.sweepLocked()
}

func (p *TxPool) sweepLocked() {
	kept := p.pending[:0]
	for _, tx := range p.pending {
		if !tx.IsConfirmed {
			kept = append(kept, tx)
		} else {
			p.known.Remove(tx.Hash())
		}
	}
	p.pending = kept
}

// SnapshotForMining sweeps the pool and, if anything remains, appends a
// freshly-minted reward transaction to minerAddr. The reward is not added
// to the pool itself — it only exists inside the assembled block
// (spec.md §4.2). An empty pool yields an empty snapshot: the miner
// collaborator mines no block for an empty snapshot.
func (p *TxPool) SnapshotForMining(minerAddr string) []*chaintypes.Transaction {
	p.lock()
	defer p.unlock()

	p.sweepLocked()
	if len(p.pending) == 0 {
		return nil
	}

	snapshot := make([]*chaintypes.Transaction, len(p.pending), len(p.pending)+1)
	copy(snapshot, p.pending)
	reward := chaintypes.NewRewardTransaction(minerAddr, chaintypes.PoWReward, p.now())
	return append(snapshot, reward)
}

// Airdrop mints a reward transaction directly into the pool and enqueues
// broadcast — the one path, besides peer gossip, by which a saddr=⊥
// transaction legitimately enters a local pool (spec.md §4.2).
func (p *TxPool) Airdrop(raddr string, amount uint64) *chaintypes.Transaction {
	p.lock()
	defer p.unlock()

	tx := chaintypes.NewRewardTransaction(raddr, amount, p.now())
	tx.IsFromPeer = true
	p.known.Add(tx.Hash())
	p.pending = append(p.pending, tx)
	logger.Info("airdrop minted", "raddr", raddr, "amount", amount, "hash", tx.Hash())

	if p.broadcast != nil {
		p.broadcast(tx)
	}
	return tx
}

// Requeue reinserts previously-appended, non-reward transactions directly
// into the pool, bypassing the admission sequence Add runs for freshly
// submitted transactions — used by consensus fork resolution's rewind step
// (spec.md §4.7 step 4), which reinstates transactions the chain no longer
// carries as candidates for future blocks. Already-pending hashes are
// skipped rather than duplicated.
func (p *TxPool) Requeue(txs []*chaintypes.Transaction) {
	p.lock()
	defer p.unlock()

	for _, tx := range txs {
		hash := tx.Hash()
		if p.known.Has(hash) {
			continue
		}
		tx.IsConfirmed = false
		p.known.Add(hash)
		p.pending = append(p.pending, tx)
		logger.Debug("requeued transaction after rewind", "hash", hash)
	}
}

// Pending returns a snapshot of the current pending transactions.
func (p *TxPool) Pending() []*chaintypes.Transaction {
	p.lock()
	defer p.unlock()
	out := make([]*chaintypes.Transaction, len(p.pending))
	copy(out, p.pending)
	return out
}

// Len returns the number of pending transactions.
func (p *TxPool) Len() int {
	p.lock()
	defer p.unlock()
	return len(p.pending)
}
