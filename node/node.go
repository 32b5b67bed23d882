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
// This file is derived from node/service.go's ServiceContext/lifecycle
// idiom (2018/06/04), repurposed from the teacher's accounts/event/database
// backplane into the NodeContext wiring spec.md §9 calls for: a single
// owner whose lifetime bounds every component, holding back-references
// instead of import cycles.

// Package node assembles BlockChain, TxPool, the worker/queue, the
// scheduler, the peer registry, the PeerClient and the API server into one
// running process (spec.md §2's "Data flow").
package node

import (
	"fmt"
	"time"

	"github.com/groundx/gopow/api"
	"github.com/groundx/gopow/chain"
	"github.com/groundx/gopow/chaintypes"
	"github.com/groundx/gopow/config"
	"github.com/groundx/gopow/consensus"
	"github.com/groundx/gopow/internal/log"
	"github.com/groundx/gopow/p2p"
	"github.com/groundx/gopow/p2pclient"
	"github.com/groundx/gopow/scheduler"
	"github.com/groundx/gopow/txpool"
	"github.com/groundx/gopow/worker"
)

var logger = log.NewModuleLogger(log.Node)

// Context owns every component of a running node. It is the single value
// whose lifetime bounds the others, resolving the cyclic-reference design
// note of spec.md §9: components hold plain function-value hooks back into
// each other instead of importing one another directly.
type Context struct {
	cfg config.Config

	Self      p2p.Peer
	Chain     *chain.BlockChain
	Pool      *txpool.TxPool
	Registry  *p2p.Registry
	Client    *p2pclient.Client
	Queue     *worker.Queue
	Worker    *worker.Worker
	Scheduler *scheduler.Scheduler
	Consensus *consensus.Engine
	API       *api.Server
}

// New wires every component together per cfg, in the order required to
// break the chain↔pool↔p2pclient↔consensus construction cycle:
// chain and pool are built first with nil hooks, then the queue/registry/
// client/consensus, then the hooks are wired back onto chain and pool.
func New(cfg config.Config) *Context {
	self := p2p.Peer{Protocol: "http", Addr: fmt.Sprintf("%s:%d", cfg.BindHost, cfg.BindPort)}

	bc := chain.New()
	queue := worker.NewQueue(cfg.TaskQueueCapacity)
	registry := p2p.NewRegistry(self)

	pool := txpool.New(bc.Balance, nil, func() int64 { return time.Now().Unix() })

	ctx := &Context{
		cfg:      cfg,
		Self:     self,
		Chain:    bc,
		Pool:     pool,
		Registry: registry,
		Queue:    queue,
		Worker:   worker.NewWorker(queue),
	}

	ctx.Client = p2pclient.New(registry, ctx.onPeerSummary)
	ctx.Client.RegisterAdapter("http", p2pclient.NewHTTPAdapter())

	ctx.Consensus = consensus.New(bc, pool, ctx.Client)

	pool.SetBroadcast(func(tx *chaintypes.Transaction) {
		ctx.Queue.Put("broadcast_tx", func() { ctx.Client.BroadcastTx(tx) })
	})
	bc.SetHooks(
		func(b *chaintypes.Block) {
			ctx.Queue.Put("broadcast_block", func() { ctx.Client.BroadcastBlock(b) })
		},
		pool.MarkConfirmed,
	)

	ctx.Scheduler = scheduler.New()
	ctx.Scheduler.Register("consensus_check", scheduler.DefaultConsensusCheckInterval, func() {
		ctx.Queue.Put("poll_summaries", ctx.Client.PollSummaries)
	})
	ctx.Scheduler.Register("liveness_check", scheduler.DefaultLivenessCheckInterval, func() {
		ctx.Queue.Put("check_liveness", ctx.Client.CheckLiveness)
	})

	ctx.API = api.New(self, bc, pool, registry, ctx.Client, queue, cfg.DebugAPI)

	if cfg.WithGenesisBlock {
		ctx.mineGenesis()
	}

	return ctx
}

// onPeerSummary is p2pclient's poll_summaries callback: it runs on the
// worker goroutine already (PollSummaries is itself invoked as a single
// queued task), so CheckAndMaybeFork's rewind/replay executes under the
// same total ordering as every other chain mutation (spec.md §4.7's
// closing paragraph).
func (ctx *Context) onPeerSummary(summary chain.Summary, peer p2p.Peer) {
	ctx.Consensus.CheckAndMaybeFork(summary, peer)
}

// mineGenesis seals a fixed-seed genesis block crediting cfg.GenesisBalance
// to cfg.GenesisRecipient, per spec.md §6's `--with-genesis-block` flag.
func (ctx *Context) mineGenesis() {
	reward := chaintypes.NewRewardTransaction(ctx.cfg.GenesisRecipient, ctx.cfg.GenesisBalance, time.Now().Unix())
	for nonce := uint64(0); ; nonce++ {
		b := chaintypes.NewBlock(1, time.Now().Unix(), []*chaintypes.Transaction{reward}, nonce, "", chaintypes.PoWDifficulty)
		if !b.SatisfiesPoW() {
			continue
		}
		b.IsGenesis = true
		if res := ctx.Chain.Append(b); !res.Success {
			logger.Error("genesis mining produced an unacceptable block", "kind", res.Kind, "message", res.Message)
		}
		logger.Info("mined genesis block", "hash", b.Hash(), "recipient", ctx.cfg.GenesisRecipient, "balance", ctx.cfg.GenesisBalance)
		return
	}
}

// Start joins the configured bootstrap peer (if any) and starts the
// worker and scheduler goroutines.
func (ctx *Context) Start() {
	ctx.Worker.Start()
	ctx.Scheduler.Start()

	if ctx.cfg.JoinAddr != "" {
		ctx.join()
	}
}

// join announces self to the configured bootstrap peer and adopts the
// peer set it replies with (spec.md §4.5's `join`, §8's E6 scenario).
func (ctx *Context) join() {
	peers, err := ctx.Client.Join(ctx.cfg.JoinProtocol, ctx.cfg.JoinAddr, ctx.Self)
	if err != nil {
		logger.Error("join failed", "addr", ctx.cfg.JoinAddr, "err", err)
		return
	}
	for _, p := range peers {
		ctx.Registry.Add(p)
	}
	logger.Info("joined network", "bootstrap", ctx.cfg.JoinAddr, "known_peers", ctx.Registry.Len())
}

// Stop drains in-flight work and halts the scheduler and worker.
func (ctx *Context) Stop() {
	ctx.Scheduler.Stop()
	ctx.Worker.Stop()
}
