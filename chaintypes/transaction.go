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
// This file is derived from blockchain/types/tx_internal_data_value_transfer.go's
// field layout and hashing conventions (2018/06/04). Modified and improved
// for the gopow development.

// Package chaintypes holds the canonical, hash-stable entities of the
// ledger: Transaction and Block. Both types separate the hashed, immutable
// record from the transient runtime flags (is_from_peer, is_confirmed,
// is_genesis) per spec.md §3 and §9.
package chaintypes

import (
	"encoding/hex"
	"encoding/json"

	"github.com/groundx/gopow/crypto"
)

// SystemSender is the sentinel saddr value meaning "no sender" — a system
// reward, airdrop, or mining payout per spec.md §3.
const SystemSender = ""

// Transaction is a single value transfer, or a reward when SAddr ==
// SystemSender. Hash, Timestamp and Signature are set once; IsFromPeer and
// IsConfirmed are transient flags mutated exactly once after construction.
type Transaction struct {
	SAddr     string `json:"saddr"`
	RAddr     string `json:"raddr"`
	Amount    uint64 `json:"amount"`
	Timestamp int64  `json:"timestamp"`
	Signature string `json:"signature,omitempty"`

	hash string

	IsFromPeer  bool
	IsConfirmed bool
}

// NewTransaction builds and hashes an unsigned transaction skeleton. Callers
// that need a signed transaction should call Sign afterwards.
func NewTransaction(saddr, raddr string, amount uint64, timestamp int64) *Transaction {
	tx := &Transaction{SAddr: saddr, RAddr: raddr, Amount: amount, Timestamp: timestamp}
	tx.hash = tx.ComputeHash()
	return tx
}

// NewRewardTransaction mints a saddr=⊥ transaction: a mining reward or
// airdrop. TxPool.Add admits one only when it arrived from a peer (see
// txpool package).
func NewRewardTransaction(raddr string, amount uint64, timestamp int64) *Transaction {
	return NewTransaction(SystemSender, raddr, amount, timestamp)
}

// canonicalFields is the subset of fields that participate in hashing —
// everything except the transient IsFromPeer/IsConfirmed flags, per
// spec.md §6. encoding/json sorts map keys on marshal, which gives the
// deterministic, sorted-key canonical form the spec requires.
func (tx *Transaction) canonicalFields() map[string]interface{} {
	f := map[string]interface{}{
		"saddr":     tx.SAddr,
		"raddr":     tx.RAddr,
		"amount":    tx.Amount,
		"timestamp": tx.Timestamp,
	}
	if tx.Signature != "" {
		f["nonce"] = tx.Signature
	}
	return f
}

// ComputeHash recomputes the SHA-256 hash of the canonical serialization.
// It never reads or mutates tx.hash.
func (tx *Transaction) ComputeHash() string {
	b, err := json.Marshal(tx.canonicalFields())
	if err != nil {
		// canonicalFields is built from primitive types only; this cannot fail.
		panic(err)
	}
	return crypto.HashHex(b)
}

// Hash returns the cached identity hash, computing it if this transaction
// was decoded off the wire rather than built via NewTransaction.
func (tx *Transaction) Hash() string {
	if tx.hash == "" {
		tx.hash = tx.ComputeHash()
	}
	return tx.hash
}

// SetHash overwrites the cached hash with a value received over the wire.
func (tx *Transaction) SetHash(h string) { tx.hash = h }

// wireTransaction is the JSON-visible shape of Transaction: the exported
// fields plus the hash, so a transaction can cross the wire (p2pclient's
// HTTP adapter, the api package) without the receiving side recomputing it
// before any validation has even run.
// IsFromPeer and IsConfirmed are deliberately not part of the wire shape:
// they are always assigned by the receiving side (the api package sets
// IsFromPeer on every transaction received via broadcast_tx, never trusting
// the sender's local bookkeeping), not carried from across the network.
type wireTransaction struct {
	Hash      string `json:"hash"`
	SAddr     string `json:"saddr"`
	RAddr     string `json:"raddr"`
	Amount    uint64 `json:"amount"`
	Timestamp int64  `json:"timestamp"`
	Signature string `json:"signature,omitempty"`
}

// MarshalJSON emits the wire shape, including the hash.
func (tx *Transaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireTransaction{
		Hash:      tx.Hash(),
		SAddr:     tx.SAddr,
		RAddr:     tx.RAddr,
		Amount:    tx.Amount,
		Timestamp: tx.Timestamp,
		Signature: tx.Signature,
	})
}

// UnmarshalJSON restores tx from the wire shape, trusting the carried hash
// until a caller revalidates it by comparing against ComputeHash.
func (tx *Transaction) UnmarshalJSON(b []byte) error {
	var w wireTransaction
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	tx.SAddr = w.SAddr
	tx.RAddr = w.RAddr
	tx.Amount = w.Amount
	tx.Timestamp = w.Timestamp
	tx.Signature = w.Signature
	tx.hash = w.Hash
	return nil
}

// Equal compares transactions by hash, per spec.md §3's equality rule.
func (tx *Transaction) Equal(other *Transaction) bool {
	if tx == nil || other == nil {
		return tx == other
	}
	return tx.Hash() == other.Hash()
}

// IsReward reports whether tx is a system/reward/airdrop transaction.
func (tx *Transaction) IsReward() bool {
	return tx.SAddr == SystemSender
}

// Sign signs the canonical bytes of tx with priv and records tx.Signature.
// Only non-reward transactions are ever signed.
func (tx *Transaction) Sign(priv *crypto.PrivateKey) {
	b, _ := json.Marshal(map[string]interface{}{
		"saddr":     tx.SAddr,
		"raddr":     tx.RAddr,
		"amount":    tx.Amount,
		"timestamp": tx.Timestamp,
	})
	tx.Signature = hex.EncodeToString(priv.Sign(b))
	tx.hash = tx.ComputeHash()
}

// VerifySign checks tx.Signature against tx.SAddr. Reward transactions
// (SAddr == SystemSender) are never signed and always verify trivially —
// their legitimacy is instead enforced by TxPool.Add's is_from_peer check
// (spec.md §4.2).
func (tx *Transaction) VerifySign() error {
	if tx.IsReward() {
		return nil
	}
	pub, err := crypto.ParsePublicKey(tx.SAddr)
	if err != nil {
		return err
	}
	sig, err := hex.DecodeString(tx.Signature)
	if err != nil {
		return err
	}
	b, _ := json.Marshal(map[string]interface{}{
		"saddr":     tx.SAddr,
		"raddr":     tx.RAddr,
		"amount":    tx.Amount,
		"timestamp": tx.Timestamp,
	})
	return crypto.Verify(pub, b, sig)
}

// Summary renders the TransactionSummary wire payload of spec.md §6.
type Summary struct {
	Hash        string `json:"hash"`
	SAddr       string `json:"saddr"`
	RAddr       string `json:"raddr"`
	Amount      uint64 `json:"amount"`
	Timestamp   int64  `json:"timestamp"`
	Signature   string `json:"signature,omitempty"`
	IsConfirmed bool   `json:"is_confirmed"`
}

// Summary returns the wire-shaped snapshot of tx.
func (tx *Transaction) Summary() Summary {
	return Summary{
		Hash:        tx.Hash(),
		SAddr:       tx.SAddr,
		RAddr:       tx.RAddr,
		Amount:      tx.Amount,
		Timestamp:   tx.Timestamp,
		Signature:   tx.Signature,
		IsConfirmed: tx.IsConfirmed,
	}
}
