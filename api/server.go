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

// Package api is the inbound, transport-concrete half of spec.md §4.6:
// HTTP+JSON endpoints that either enqueue a closure onto the task queue
// (mutating endpoints) or answer synchronously under the relevant lock
// (read endpoints).
package api

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"

	"github.com/groundx/gopow/chain"
	"github.com/groundx/gopow/chaintypes"
	"github.com/groundx/gopow/internal/log"
	"github.com/groundx/gopow/p2p"
	"github.com/groundx/gopow/p2pclient"
	"github.com/groundx/gopow/txpool"
	"github.com/groundx/gopow/worker"
)

var logger = log.NewModuleLogger(log.API)

// Server hosts the inbound API described by spec.md §4.6, plus the
// debug/airdrop surface added in SPEC_FULL.md §3.1.
type Server struct {
	self     p2p.Peer
	chain    *chain.BlockChain
	pool     *txpool.TxPool
	registry *p2p.Registry
	client   *p2pclient.Client
	queue    *worker.Queue

	debugEnabled bool

	handler http.Handler
}

// New builds a Server. debugEnabled gates the /debug/* introspection
// endpoints behind the node's --debug-api flag (SPEC_FULL.md §3.1).
func New(self p2p.Peer, bc *chain.BlockChain, pool *txpool.TxPool, registry *p2p.Registry, client *p2pclient.Client, queue *worker.Queue, debugEnabled bool) *Server {
	s := &Server{self: self, chain: bc, pool: pool, registry: registry, client: client, queue: queue, debugEnabled: debugEnabled}
	s.handler = s.buildHandler()
	return s
}

// Handler returns the CORS-wrapped httprouter handler, ready to pass to
// http.ListenAndServe or httptest.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) buildHandler() http.Handler {
	router := httprouter.New()

	router.GET("/alive", s.handleAlive)
	router.GET("/peer_info", s.handlePeerInfo)
	router.POST("/join", s.handleJoin)
	router.POST("/broadcast_peer", s.handleBroadcastPeer)
	router.POST("/broadcast_tx", s.handleBroadcastTx)
	router.POST("/broadcast_block", s.handleBroadcastBlock)
	router.POST("/submit_tx", s.handleSubmitTx)
	router.POST("/submit_block", s.handleSubmitBlock)
	router.POST("/airdrop", s.handleAirdrop)
	router.GET("/last_block", s.handleLastBlock)
	router.GET("/mining_data/:addr", s.handleMiningData)
	router.GET("/pow_difficulty", s.handlePoWDifficulty)
	router.GET("/balance/:addr", s.handleBalance)
	router.GET("/blockchain", s.handleBlockchain)
	router.GET("/blockchain/summary", s.handleBlockchainSummary)

	if s.debugEnabled {
		router.GET("/debug/pool", s.handleDebugPool)
		router.GET("/debug/chain", s.handleDebugChain)
		router.GET("/debug/peers", s.handleDebugPeers)
	}

	return cors.Default().Handler(router)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			logger.Error("encode response failed", "err", err)
		}
	}
}

func decodeBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// queuedAck is the ExecuteResult-shaped acknowledgment spec.md §6 requires
// from mutating endpoints: success here only means "enqueued", not
// "applied" — the real outcome is observable via later reads.
type queuedAck struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func ackEnqueued(enqueued bool) queuedAck {
	if enqueued {
		return queuedAck{Success: true}
	}
	return queuedAck{Success: false, Message: "task queue full, dropped"}
}
