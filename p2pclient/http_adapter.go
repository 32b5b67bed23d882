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

package p2pclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/groundx/gopow/chain"
	"github.com/groundx/gopow/chaintypes"
	"github.com/groundx/gopow/p2p"
)

// DefaultTimeout bounds every outbound HTTP call. A slow or unreachable peer
// must never stall the single worker goroutine that drives gossip and
// polling (spec.md §5).
const DefaultTimeout = 5 * time.Second

// HTTPAdapter implements Adapter over the api package's HTTP+JSON surface.
// node registers it under the "http" protocol name.
type HTTPAdapter struct {
	client *http.Client
}

// NewHTTPAdapter builds an HTTPAdapter with DefaultTimeout.
func NewHTTPAdapter() *HTTPAdapter {
	return &HTTPAdapter{client: &http.Client{Timeout: DefaultTimeout}}
}

func (a *HTTPAdapter) do(method, url string, body interface{}, out interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()

	var reader *bytes.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request body")
		}
		reader = bytes.NewReader(buf)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return errors.Errorf("%s %s: unexpected status %d", method, url, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return errors.Wrap(json.NewDecoder(resp.Body).Decode(out), "decode response body")
}

// Join calls POST /join on addr with self, and decodes the peer set it
// replies with (spec.md §4.6).
func (a *HTTPAdapter) Join(addr string, self p2p.Peer) ([]p2p.Peer, error) {
	var peers []p2p.Peer
	if err := a.do(http.MethodPost, fmt.Sprintf("http://%s/join", addr), self, &peers); err != nil {
		return nil, err
	}
	return peers, nil
}

// BroadcastTx calls POST /broadcast_tx on addr with tx.
func (a *HTTPAdapter) BroadcastTx(addr string, tx *chaintypes.Transaction) error {
	return a.do(http.MethodPost, fmt.Sprintf("http://%s/broadcast_tx", addr), tx, nil)
}

// BroadcastBlock calls POST /broadcast_block on addr with b.
func (a *HTTPAdapter) BroadcastBlock(addr string, b *chaintypes.Block) error {
	return a.do(http.MethodPost, fmt.Sprintf("http://%s/broadcast_block", addr), b, nil)
}

// BroadcastPeer calls POST /broadcast_peer on addr with p.
func (a *HTTPAdapter) BroadcastPeer(addr string, p p2p.Peer) error {
	return a.do(http.MethodPost, fmt.Sprintf("http://%s/broadcast_peer", addr), p, nil)
}

// GetSummary calls GET /blockchain/summary on addr.
func (a *HTTPAdapter) GetSummary(addr string) (chain.Summary, error) {
	var summary chain.Summary
	err := a.do(http.MethodGet, fmt.Sprintf("http://%s/blockchain/summary", addr), nil, &summary)
	return summary, err
}

// GetChain calls GET /blockchain on addr.
func (a *HTTPAdapter) GetChain(addr string) ([]*chaintypes.Block, error) {
	var blocks []*chaintypes.Block
	err := a.do(http.MethodGet, fmt.Sprintf("http://%s/blockchain", addr), nil, &blocks)
	return blocks, err
}

// Alive calls GET /alive on addr, used by the liveness check.
func (a *HTTPAdapter) Alive(addr string) error {
	return a.do(http.MethodGet, fmt.Sprintf("http://%s/alive", addr), nil, nil)
}
