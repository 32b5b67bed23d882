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
// This file is derived from blockchain/state_transition.go's validation
// ordering and node/sc/bridge_tx_pool.go's mutex/metrics idiom
// (2018/06/04). Modified and improved for the gopow development.

// Package chain owns the ordered block sequence: append validation, the
// fork-choice-relevant summary, and balance queries. It is the exclusive
// owner of appended blocks, per spec.md §3.
package chain

import (
	"sync"

	"github.com/groundx/gopow/chaintypes"
	"github.com/groundx/gopow/internal/log"
	"github.com/groundx/gopow/internal/metrics"
)

var logger = log.NewModuleLogger(log.Chain)

// BroadcastFunc is invoked by Append after a successful, locally-originated
// append, so the chain can enqueue outbound gossip without importing the
// worker/p2pclient packages directly (avoids an import cycle — node wires
// the closure at construction time).
type BroadcastFunc func(b *chaintypes.Block)

// ConfirmFunc marks pool transactions confirmed when they are first
// observed inside an appended block (spec.md §4.1's append step). Wired by
// node the same way as BroadcastFunc.
type ConfirmFunc func(b *chaintypes.Block)

// BlockChain is the ordered, append-only sequence of blocks.
type BlockChain struct {
	mu     sync.Mutex
	blocks []*chaintypes.Block

	onBroadcast BroadcastFunc
	onConfirm   ConfirmFunc
}

// New creates an empty chain. onBroadcast and onConfirm may be nil during
// construction and set later via SetHooks (node wires them once all
// components exist, breaking the chain/pool/worker construction cycle).
func New() *BlockChain {
	return &BlockChain{}
}

// SetHooks wires the broadcast and pool-confirmation callbacks.
func (c *BlockChain) SetHooks(onBroadcast BroadcastFunc, onConfirm ConfirmFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onBroadcast = onBroadcast
	c.onConfirm = onConfirm
}

// Append validates and appends b under the chain lock. Idempotence:
// appending the same block twice fails the prev_hash check the second
// time, per spec.md §4.1.
func (c *BlockChain) Append(b *chaintypes.Block) chaintypes.ExecuteResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	if res := c.validateNewBlockLocked(b); !res.Success {
		metrics.BlockRejected.Inc(1)
		logger.Warn("rejected block", "index", b.Index, "kind", res.Kind, "message", res.Message)
		return res
	}

	c.blocks = append(c.blocks, b)
	metrics.BlockAppended.Inc(1)
	logger.Info("appended block", "index", b.Index, "hash", b.Hash(), "txs", len(b.Transactions))

	if c.onConfirm != nil {
		c.onConfirm(b)
	}
	if !b.IsFromPeer && c.onBroadcast != nil {
		c.onBroadcast(b)
	}
	return chaintypes.Ok()
}

// validateNewBlockLocked implements valid_new_block (spec.md §4.1). Checks
// run in the documented order; the first failure wins.
func (c *BlockChain) validateNewBlockLocked(b *chaintypes.Block) chaintypes.ExecuteResult {
	if b == nil {
		return chaintypes.Fail(chaintypes.BlkInvalidData, "missing block")
	}
	if !b.HashMatchesRecomputation() {
		return chaintypes.Fail(chaintypes.BlkInvalidHash, "hash does not match recomputation")
	}
	if !b.SatisfiesPoW() {
		return chaintypes.Fail(chaintypes.BlkInvalidPoW, "hash does not satisfy difficulty")
	}

	isGenesis := b.Index == 1
	if !isGenesis {
		if len(b.Transactions) == 0 {
			return chaintypes.Fail(chaintypes.BlkInvalidTx, "non-genesis block has no transactions")
		}
		if b.CountRewards() != 1 {
			return chaintypes.Fail(chaintypes.BlkInvalidTx, "block must carry exactly one reward transaction")
		}
		for _, tx := range b.Transactions {
			if tx.IsReward() {
				continue
			}
			if err := tx.VerifySign(); err != nil {
				return chaintypes.Fail(chaintypes.BlkInvalidTx, "transaction signature does not verify")
			}
		}
	}

	last := c.lastLocked()
	if last != nil {
		if last.Hash() != b.PrevHash {
			return chaintypes.Fail(chaintypes.BlkInvalidPrevHash, "prev_hash does not match local tail")
		}
		if last.Index+1 != b.Index {
			return chaintypes.Fail(chaintypes.BlkInvalidPrevHash, "index does not continue local tail")
		}
	} else if !isGenesis {
		return chaintypes.Fail(chaintypes.BlkInvalidPrevHash, "first block must be genesis")
	}

	return chaintypes.Ok()
}

func (c *BlockChain) lastLocked() *chaintypes.Block {
	if len(c.blocks) == 0 {
		return nil
	}
	return c.blocks[len(c.blocks)-1]
}

// Last returns the current tail block, or nil for an empty chain.
func (c *BlockChain) Last() *chaintypes.Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastLocked()
}

// Len returns the number of blocks in the chain.
func (c *BlockChain) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.blocks)
}

// Balance sums +amount for raddr == addr and -amount for saddr == addr
// across every block and transaction, per spec.md §4.1. System rewards
// credit only.
func (c *BlockChain) Balance(addr string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var balance int64
	for _, b := range c.blocks {
		for _, tx := range b.Transactions {
			if tx.RAddr == addr {
				balance += int64(tx.Amount)
			}
			if !tx.IsReward() && tx.SAddr == addr {
				balance -= int64(tx.Amount)
			}
		}
	}
	return balance
}

// Summary is the BlockChainSummary wire payload of spec.md §6.
type Summary struct {
	TotalLength     int                           `json:"total_length"`
	TotalDifficulty int                           `json:"total_difficulty"`
	Blocks          []chaintypes.BlockSummaryEntry `json:"blocks"`
}

// Summary returns a snapshot of the chain's consensus-relevant metadata.
func (c *BlockChain) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Summary{TotalLength: len(c.blocks), Blocks: make([]chaintypes.BlockSummaryEntry, len(c.blocks))}
	for i, b := range c.blocks {
		s.TotalDifficulty += b.Difficulty
		s.Blocks[i] = b.SummaryEntry()
	}
	return s
}

// Iter returns a snapshot slice of the chain's blocks, safe for the caller
// to range over without holding the chain lock.
func (c *BlockChain) Iter() []*chaintypes.Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*chaintypes.Block, len(c.blocks))
	copy(out, c.blocks)
	return out
}

// Snapshot returns a copy of the current block slice, safe to hold across a
// later Restore. Used by consensus fork resolution to roll back a replay
// that fails partway through (the Open Question in spec.md §9 resolved in
// favor of the safe choice: snapshot before rewind, restore on failure).
func (c *BlockChain) Snapshot() []*chaintypes.Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*chaintypes.Block, len(c.blocks))
	copy(out, c.blocks)
	return out
}

// Restore overwrites the block sequence with a previously taken Snapshot.
// Bypasses validateNewBlockLocked: the caller is responsible for only ever
// restoring a snapshot this chain itself produced.
func (c *BlockChain) Restore(blocks []*chaintypes.Block) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blocks = blocks
}

// Truncate drops every block from fromIndex (1-based) onward, returning the
// dropped blocks in their original order. Used by consensus fork
// resolution (spec.md §4.7) to rewind before replaying a peer's tail.
func (c *BlockChain) Truncate(fromIndex uint64) []*chaintypes.Block {
	c.mu.Lock()
	defer c.mu.Unlock()

	cut := len(c.blocks)
	for i, b := range c.blocks {
		if b.Index >= fromIndex {
			cut = i
			break
		}
	}
	dropped := make([]*chaintypes.Block, len(c.blocks)-cut)
	copy(dropped, c.blocks[cut:])
	c.blocks = c.blocks[:cut]
	return dropped
}
