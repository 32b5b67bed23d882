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

package chaintypes

import (
	"encoding/json"
	"strings"

	"github.com/groundx/gopow/crypto"
)

// PoWDifficulty is the fixed difficulty constant of spec.md §4.1: the
// number of leading hex zero characters a block hash must carry.
const PoWDifficulty = 4

// PoWReward is the fixed amount minted to a miner for a successfully sealed
// block.
const PoWReward = 1

// PoWPrefix is PoWDifficulty leading zero hex characters.
const PoWPrefix = "0000"

// Block is a single entry in the chain. Hash, Index and PrevHash are
// immutable once computed; IsFromPeer and IsGenesis are transient flags set
// exactly once.
type Block struct {
	Index        uint64         `json:"index"`
	Timestamp    int64          `json:"timestamp"`
	Transactions []*Transaction `json:"transactions"`
	Nonce        uint64         `json:"nonce"`
	PrevHash     string         `json:"prev_hash,omitempty"`
	Difficulty   int            `json:"difficulty"`

	hash string

	IsFromPeer bool
	IsGenesis  bool
}

// NewBlock assembles and hashes a block. Callers that already have a
// sealed nonce (received over the wire) should call ComputeHash/Hash
// instead of constructing through this helper if they need to recheck PoW.
func NewBlock(index uint64, timestamp int64, txs []*Transaction, nonce uint64, prevHash string, difficulty int) *Block {
	b := &Block{
		Index:        index,
		Timestamp:    timestamp,
		Transactions: txs,
		Nonce:        nonce,
		PrevHash:     prevHash,
		Difficulty:   difficulty,
	}
	b.hash = b.ComputeHash()
	return b
}

// canonicalFields is the subset of fields hashed, per spec.md §6:
// {index, timestamp, transactions: [tx.hash...], nonce, prev_hash, difficulty}.
func (b *Block) canonicalFields() map[string]interface{} {
	txHashes := make([]string, len(b.Transactions))
	for i, tx := range b.Transactions {
		txHashes[i] = tx.Hash()
	}
	f := map[string]interface{}{
		"index":        b.Index,
		"timestamp":    b.Timestamp,
		"transactions": txHashes,
		"nonce":        b.Nonce,
		"difficulty":   b.Difficulty,
	}
	if b.PrevHash != "" {
		f["prev_hash"] = b.PrevHash
	}
	return f
}

// ComputeHash recomputes the SHA-256 hash of the canonical serialization.
func (b *Block) ComputeHash() string {
	buf, err := json.Marshal(b.canonicalFields())
	if err != nil {
		panic(err)
	}
	return crypto.HashHex(buf)
}

// Hash returns the cached hash, computing it on first use for blocks
// decoded off the wire.
func (b *Block) Hash() string {
	if b.hash == "" {
		b.hash = b.ComputeHash()
	}
	return b.hash
}

// SetHash overwrites the cached hash with a value received over the wire.
// Used when decoding a peer's block so HashMatchesRecomputation can compare
// the claimed hash against a fresh recomputation without losing the claim.
func (b *Block) SetHash(h string) { b.hash = h }

// wireBlock is the JSON-visible shape of Block: the exported fields plus
// the hash. IsFromPeer/IsGenesis are deliberately excluded, for the same
// reason as wireTransaction — the receiving side always assigns them
// itself.
type wireBlock struct {
	Hash         string         `json:"hash"`
	Index        uint64         `json:"index"`
	Timestamp    int64          `json:"timestamp"`
	Transactions []*Transaction `json:"transactions"`
	Nonce        uint64         `json:"nonce"`
	PrevHash     string         `json:"prev_hash,omitempty"`
	Difficulty   int            `json:"difficulty"`
}

// MarshalJSON emits the wire shape, including the hash.
func (b *Block) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireBlock{
		Hash:         b.Hash(),
		Index:        b.Index,
		Timestamp:    b.Timestamp,
		Transactions: b.Transactions,
		Nonce:        b.Nonce,
		PrevHash:     b.PrevHash,
		Difficulty:   b.Difficulty,
	})
}

// UnmarshalJSON restores b from the wire shape, trusting the carried hash
// until a caller revalidates it via HashMatchesRecomputation.
func (b *Block) UnmarshalJSON(buf []byte) error {
	var w wireBlock
	if err := json.Unmarshal(buf, &w); err != nil {
		return err
	}
	b.Index = w.Index
	b.Timestamp = w.Timestamp
	b.Transactions = w.Transactions
	b.Nonce = w.Nonce
	b.PrevHash = w.PrevHash
	b.Difficulty = w.Difficulty
	b.hash = w.Hash
	return nil
}

// HashMatchesRecomputation reports whether the cached hash equals a fresh
// recomputation — the first check of valid_new_block (spec.md §4.1, rule 1).
func (b *Block) HashMatchesRecomputation() bool {
	return b.hash != "" && b.hash == b.ComputeHash()
}

// SatisfiesPoW reports whether the cached hash has Difficulty leading hex
// zero characters — valid_new_block rule 2.
func (b *Block) SatisfiesPoW() bool {
	prefix := strings.Repeat("0", b.Difficulty)
	return strings.HasPrefix(b.Hash(), prefix)
}

// RewardTx returns the block's first saddr=⊥ transaction, or nil if none
// exists. It does not check uniqueness; valid_new_block rule 3 enforces that
// through CountRewards.
func (b *Block) RewardTx() *Transaction {
	for _, tx := range b.Transactions {
		if tx.IsReward() {
			return tx
		}
	}
	return nil
}

// CountRewards counts the saddr=⊥ transactions in the block.
func (b *Block) CountRewards() int {
	n := 0
	for _, tx := range b.Transactions {
		if tx.IsReward() {
			n++
		}
	}
	return n
}

// BlockSummaryEntry is the wire shape used inside BlockChainSummary
// (spec.md §6).
type BlockSummaryEntry struct {
	Hash     string `json:"hash"`
	PrevHash string `json:"prev_hash,omitempty"`
}

// SummaryEntry renders b as a BlockSummaryEntry.
func (b *Block) SummaryEntry() BlockSummaryEntry {
	return BlockSummaryEntry{Hash: b.Hash(), PrevHash: b.PrevHash}
}
