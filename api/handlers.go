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

package api

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/groundx/gopow/chaintypes"
	"github.com/groundx/gopow/p2p"
)

func (s *Server) handleAlive(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, queuedAck{Success: true})
}

func (s *Server) handlePeerInfo(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, s.self)
}

// handleJoin implements spec.md §4.6's join(peer): add peer to registry,
// enqueue broadcast_peer(peer), return the current registry (including
// self) so the joining node learns the full mesh in one round trip.
func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var peer p2p.Peer
	if err := decodeBody(r, &peer); err != nil {
		writeJSON(w, http.StatusBadRequest, queuedAck{Message: "malformed peer"})
		return
	}

	if s.registry.Add(peer) {
		s.queue.Put("broadcast_peer", func() {
			s.client.BroadcastPeer(peer)
		})
	}
	writeJSON(w, http.StatusOK, s.registry.All())
}

// handleBroadcastPeer adds peer to the registry without re-broadcasting —
// the receiving half of join's fan-out gossip.
func (s *Server) handleBroadcastPeer(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var peer p2p.Peer
	if err := decodeBody(r, &peer); err != nil {
		writeJSON(w, http.StatusBadRequest, queuedAck{Message: "malformed peer"})
		return
	}
	s.registry.Add(peer)
	writeJSON(w, http.StatusOK, queuedAck{Success: true})
}

func (s *Server) handleBroadcastTx(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var tx chaintypes.Transaction
	if err := decodeBody(r, &tx); err != nil {
		writeJSON(w, http.StatusBadRequest, queuedAck{Message: "malformed transaction"})
		return
	}
	tx.IsFromPeer = true
	s.registry.MarkTxKnown(tx.Hash())
	enqueued := s.queue.Put("pool.add", func() {
		s.pool.Add(&tx)
	})
	writeJSON(w, http.StatusAccepted, ackEnqueued(enqueued))
}

func (s *Server) handleBroadcastBlock(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var b chaintypes.Block
	if err := decodeBody(r, &b); err != nil {
		writeJSON(w, http.StatusBadRequest, queuedAck{Message: "malformed block"})
		return
	}
	b.IsFromPeer = true
	s.registry.MarkBlockKnown(b.Hash())
	enqueued := s.queue.Put("chain.append", func() {
		s.chain.Append(&b)
	})
	writeJSON(w, http.StatusAccepted, ackEnqueued(enqueued))
}

// handleSubmitTx is the locally-originated counterpart of broadcast_tx: a
// wallet collaborator posting a freshly signed transaction. is_from_peer
// is left false, so a successful admission also enqueues outbound gossip.
func (s *Server) handleSubmitTx(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var tx chaintypes.Transaction
	if err := decodeBody(r, &tx); err != nil {
		writeJSON(w, http.StatusBadRequest, queuedAck{Message: "malformed transaction"})
		return
	}
	enqueued := s.queue.Put("pool.add", func() {
		s.pool.Add(&tx)
	})
	writeJSON(w, http.StatusAccepted, ackEnqueued(enqueued))
}

// handleSubmitBlock is the locally-mined counterpart of broadcast_block.
func (s *Server) handleSubmitBlock(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var b chaintypes.Block
	if err := decodeBody(r, &b); err != nil {
		writeJSON(w, http.StatusBadRequest, queuedAck{Message: "malformed block"})
		return
	}
	enqueued := s.queue.Put("chain.append", func() {
		s.chain.Append(&b)
	})
	writeJSON(w, http.StatusAccepted, ackEnqueued(enqueued))
}

// airdropRequest is the wire shape of POST /airdrop, the endpoint
// SPEC_FULL.md §3.1 assigns to spec.md §4.2's airdrop operation.
type airdropRequest struct {
	RAddr  string `json:"raddr"`
	Amount uint64 `json:"amount"`
}

func (s *Server) handleAirdrop(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req airdropRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, queuedAck{Message: "malformed airdrop request"})
		return
	}
	enqueued := s.queue.Put("pool.airdrop", func() {
		s.pool.Airdrop(req.RAddr, req.Amount)
	})
	writeJSON(w, http.StatusAccepted, ackEnqueued(enqueued))
}

func (s *Server) handleLastBlock(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, s.chain.Last())
}

// miningData is the synchronous read an external miner collaborator polls
// to assemble a candidate block (spec.md §4.6).
type miningData struct {
	Index        uint64                    `json:"index"`
	PrevHash     string                    `json:"prev_hash,omitempty"`
	Difficulty   int                       `json:"difficulty"`
	Transactions []*chaintypes.Transaction `json:"transactions"`
}

func (s *Server) handleMiningData(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	addr := ps.ByName("addr")
	last := s.chain.Last()

	data := miningData{Difficulty: chaintypes.PoWDifficulty, Transactions: s.pool.SnapshotForMining(addr)}
	if last == nil {
		data.Index = 1
	} else {
		data.Index = last.Index + 1
		data.PrevHash = last.Hash()
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handlePoWDifficulty(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]int{"pow_difficulty": chaintypes.PoWDifficulty})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	addr := ps.ByName("addr")
	writeJSON(w, http.StatusOK, map[string]interface{}{"addr": addr, "balance": s.chain.Balance(addr)})
}

func (s *Server) handleBlockchain(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, s.chain.Iter())
}

func (s *Server) handleBlockchainSummary(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, s.chain.Summary())
}

// handleDebugPool, handleDebugChain and handleDebugPeers are the read-only
// introspection endpoints ported from the original implementation's
// miner/wallet debug API (SPEC_FULL.md §3.1), gated behind --debug-api.
func (s *Server) handleDebugPool(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, s.pool.Pending())
}

func (s *Server) handleDebugChain(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, s.chain.Iter())
}

func (s *Server) handleDebugPeers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, s.registry.All())
}
