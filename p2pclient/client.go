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
// This file is derived from consensus/protocol.go's Broadcaster/Peer
// adapter interface (2018/06/04). Modified and improved for the gopow
// development.

// Package p2pclient is the outbound gossip and polling side of spec.md
// §4.5: dispatch by peer.protocol to a registered transport Adapter,
// broadcast to every known peer but self, and poll peer summaries for
// consensus.
package p2pclient

import (
	"github.com/pkg/errors"

	"github.com/groundx/gopow/chain"
	"github.com/groundx/gopow/chaintypes"
	"github.com/groundx/gopow/internal/log"
	"github.com/groundx/gopow/internal/metrics"
	"github.com/groundx/gopow/p2p"
)

var logger = log.NewModuleLogger(log.P2P)

// ErrUnknownProtocol is raised — a programming error, not a validation
// failure — when a peer names a protocol with no registered Adapter
// (spec.md §7: "Adapter-protocol mismatch is a programming error and
// raised").
var ErrUnknownProtocol = errors.New("p2pclient: no adapter registered for protocol")

// Adapter is the capability set a transport must implement: send_tx,
// send_block, send_peer, get_summary, get_chain, join_network
// (spec.md §9's suggested redesign). Adapters must be idempotent on the
// receive side; Client never retries a failed call.
type Adapter interface {
	Join(addr string, self p2p.Peer) ([]p2p.Peer, error)
	BroadcastTx(addr string, tx *chaintypes.Transaction) error
	BroadcastBlock(addr string, b *chaintypes.Block) error
	BroadcastPeer(addr string, p p2p.Peer) error
	GetSummary(addr string) (chain.Summary, error)
	GetChain(addr string) ([]*chaintypes.Block, error)
	Alive(addr string) error
}

// LivenessEvictionThreshold is the number of consecutive failed liveness
// pings after which a peer is evicted from the registry, resolving the
// open behavior spec.md §4.4 leaves unspecified for liveness_check.
const LivenessEvictionThreshold = 3

// Client dispatches outbound gossip and polling to the Adapter registered
// for each peer's protocol.
type Client struct {
	registry *p2p.Registry
	adapters map[string]Adapter

	onSummary func(summary chain.Summary, peer p2p.Peer)
}

// New creates a Client bound to registry. onSummary is invoked directly by
// PollSummaries for every fetched peer summary — node wires it to
// consensus.CheckAndMaybeFork, and enqueues PollSummaries itself as a single
// worker task (spec.md §4.5's poll_summaries).
func New(registry *p2p.Registry, onSummary func(chain.Summary, p2p.Peer)) *Client {
	return &Client{registry: registry, adapters: make(map[string]Adapter), onSummary: onSummary}
}

// RegisterAdapter associates a transport protocol name (e.g. "http") with
// its Adapter implementation.
func (c *Client) RegisterAdapter(protocol string, a Adapter) {
	c.adapters[protocol] = a
}

func (c *Client) adapterFor(p p2p.Peer) (Adapter, error) {
	a, ok := c.adapters[p.Protocol]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownProtocol, "protocol %q", p.Protocol)
	}
	return a, nil
}

// Join announces self to the peer at protocol/addr and returns the peer
// set it replies with (spec.md §4.5's `join`).
func (c *Client) Join(protocol, addr string, self p2p.Peer) ([]p2p.Peer, error) {
	a, err := c.adapterFor(p2p.Peer{Protocol: protocol, Addr: addr})
	if err != nil {
		return nil, err
	}
	return a.Join(addr, self)
}

// BroadcastTx sends tx to every known peer but self. Transport failures
// are logged and dropped — spec.md §7 and §9 document this as an
// intentional best-effort policy with no retry. A hash already marked
// known (previously broadcast or received) is not re-sent, the same
// gossip-suppression node/cn/peer.go's knownTxs cache performs.
func (c *Client) BroadcastTx(tx *chaintypes.Transaction) {
	hash := tx.Hash()
	if c.registry.KnowsTx(hash) {
		return
	}
	c.registry.MarkTxKnown(hash)

	for _, peer := range c.registry.Peers() {
		a, err := c.adapterFor(peer)
		if err != nil {
			logger.Error("broadcast_tx adapter lookup failed", "peer", peer.Addr, "err", err)
			continue
		}
		if err := a.BroadcastTx(peer.Addr, tx); err != nil {
			metrics.GossipFailures.Inc(1)
			logger.Warn("broadcast_tx failed", "peer", peer.Addr, "err", err)
		}
	}
}

// BroadcastBlock sends b to every known peer but self. A hash already
// marked known is not re-sent (see BroadcastTx).
func (c *Client) BroadcastBlock(b *chaintypes.Block) {
	hash := b.Hash()
	if c.registry.KnowsBlock(hash) {
		return
	}
	c.registry.MarkBlockKnown(hash)

	for _, peer := range c.registry.Peers() {
		a, err := c.adapterFor(peer)
		if err != nil {
			logger.Error("broadcast_block adapter lookup failed", "peer", peer.Addr, "err", err)
			continue
		}
		if err := a.BroadcastBlock(peer.Addr, b); err != nil {
			metrics.GossipFailures.Inc(1)
			logger.Warn("broadcast_block failed", "peer", peer.Addr, "err", err)
		}
	}
}

// BroadcastPeer announces a newly-joined peer to every other known peer.
func (c *Client) BroadcastPeer(p p2p.Peer) {
	for _, peer := range c.registry.Peers() {
		if peer.Hash() == p.Hash() {
			continue
		}
		a, err := c.adapterFor(peer)
		if err != nil {
			logger.Error("broadcast_peer adapter lookup failed", "peer", peer.Addr, "err", err)
			continue
		}
		if err := a.BroadcastPeer(peer.Addr, p); err != nil {
			metrics.GossipFailures.Inc(1)
			logger.Warn("broadcast_peer failed", "peer", peer.Addr, "err", err)
		}
	}
}

// GetSummary fetches peer's BlockChainSummary.
func (c *Client) GetSummary(peer p2p.Peer) (chain.Summary, error) {
	a, err := c.adapterFor(peer)
	if err != nil {
		return chain.Summary{}, err
	}
	return a.GetSummary(peer.Addr)
}

// GetChain fetches peer's full block list, used by consensus once a
// dominant summary is observed.
func (c *Client) GetChain(peer p2p.Peer) ([]*chaintypes.Block, error) {
	a, err := c.adapterFor(peer)
	if err != nil {
		return nil, err
	}
	return a.GetChain(peer.Addr)
}

// CheckLiveness pings every known peer's alive endpoint. A peer that fails
// LivenessEvictionThreshold consecutive pings is evicted from the registry
// — the scheduler's liveness_check job (spec.md §4.4), resolved per
// SPEC_FULL.md §3.1.
func (c *Client) CheckLiveness() {
	for _, peer := range c.registry.Peers() {
		a, err := c.adapterFor(peer)
		if err != nil {
			logger.Error("liveness check adapter lookup failed", "peer", peer.Addr, "err", err)
			continue
		}
		if err := a.Alive(peer.Addr); err != nil {
			failures := c.registry.RecordFailure(peer)
			logger.Warn("liveness ping failed", "peer", peer.Addr, "consecutive_failures", failures, "err", err)
			if failures >= LivenessEvictionThreshold {
				c.registry.Remove(peer)
				logger.Info("evicted unreachable peer", "peer", peer.Addr)
			}
			continue
		}
		c.registry.ResetFailures(peer)
	}
}

// PollSummaries fetches every non-self peer's summary and forwards it to
// onSummary, per spec.md §4.5's poll_summaries. Node enqueues this whole
// call as a single worker task from the scheduler's consensus_check job.
func (c *Client) PollSummaries() {
	for _, peer := range c.registry.Peers() {
		summary, err := c.GetSummary(peer)
		if err != nil {
			logger.Warn("poll_summaries: get_summary failed", "peer", peer.Addr, "err", err)
			continue
		}
		if c.onSummary != nil {
			c.onSummary(summary, peer)
		}
	}
}
