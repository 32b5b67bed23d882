package p2pclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groundx/gopow/chain"
	"github.com/groundx/gopow/chaintypes"
	"github.com/groundx/gopow/p2p"
)

type fakeAdapter struct {
	joinReply        []p2p.Peer
	summaryReply     chain.Summary
	broadcastTxCalls int
	failGetSummary   bool
	failAlive        bool
}

func (f *fakeAdapter) Join(addr string, self p2p.Peer) ([]p2p.Peer, error) {
	return f.joinReply, nil
}
func (f *fakeAdapter) BroadcastTx(addr string, tx *chaintypes.Transaction) error {
	f.broadcastTxCalls++
	return nil
}
func (f *fakeAdapter) BroadcastBlock(addr string, b *chaintypes.Block) error { return nil }
func (f *fakeAdapter) BroadcastPeer(addr string, p p2p.Peer) error           { return nil }
func (f *fakeAdapter) GetSummary(addr string) (chain.Summary, error) {
	if f.failGetSummary {
		return chain.Summary{}, assert.AnError
	}
	return f.summaryReply, nil
}
func (f *fakeAdapter) GetChain(addr string) ([]*chaintypes.Block, error) { return nil, nil }
func (f *fakeAdapter) Alive(addr string) error {
	if f.failAlive {
		return assert.AnError
	}
	return nil
}

func TestBroadcastTxReachesEveryKnownPeerButSelf(t *testing.T) {
	self := p2p.Peer{Protocol: "fake", Addr: "self"}
	registry := p2p.NewRegistry(self)
	registry.Add(p2p.Peer{Protocol: "fake", Addr: "peerA"})
	registry.Add(p2p.Peer{Protocol: "fake", Addr: "peerB"})

	client := New(registry, nil)
	adapter := &fakeAdapter{}
	client.RegisterAdapter("fake", adapter)

	client.BroadcastTx(chaintypes.NewTransaction("", "bob", 1, 100))
	assert.Equal(t, 2, adapter.broadcastTxCalls)
}

func TestUnknownProtocolIsReportedNotPanicked(t *testing.T) {
	self := p2p.Peer{Protocol: "fake", Addr: "self"}
	registry := p2p.NewRegistry(self)
	client := New(registry, nil)

	_, err := client.Join("ghost-protocol", "nowhere", self)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownProtocol)
}

func TestPollSummariesInvokesCallbackPerPeer(t *testing.T) {
	self := p2p.Peer{Protocol: "fake", Addr: "self"}
	registry := p2p.NewRegistry(self)
	registry.Add(p2p.Peer{Protocol: "fake", Addr: "peerA"})

	seen := make([]p2p.Peer, 0, 1)
	client := New(registry, func(s chain.Summary, p p2p.Peer) {
		seen = append(seen, p)
	})
	client.RegisterAdapter("fake", &fakeAdapter{summaryReply: chain.Summary{TotalLength: 3}})

	client.PollSummaries()
	require.Len(t, seen, 1)
	assert.Equal(t, "peerA", seen[0].Addr)
}

func TestCheckLivenessEvictsAfterThresholdConsecutiveFailures(t *testing.T) {
	self := p2p.Peer{Protocol: "fake", Addr: "self"}
	registry := p2p.NewRegistry(self)
	flaky := p2p.Peer{Protocol: "fake", Addr: "flaky"}
	registry.Add(flaky)

	client := New(registry, nil)
	client.RegisterAdapter("fake", &fakeAdapter{failAlive: true})

	for i := 0; i < LivenessEvictionThreshold-1; i++ {
		client.CheckLiveness()
		assert.Len(t, registry.Peers(), 1, "peer should not be evicted before the threshold")
	}
	client.CheckLiveness()
	assert.Empty(t, registry.Peers())
}

func TestCheckLivenessResetsFailureCountOnSuccess(t *testing.T) {
	self := p2p.Peer{Protocol: "fake", Addr: "self"}
	registry := p2p.NewRegistry(self)
	peer := p2p.Peer{Protocol: "fake", Addr: "flappy"}
	registry.Add(peer)

	adapter := &fakeAdapter{failAlive: true}
	client := New(registry, nil)
	client.RegisterAdapter("fake", adapter)

	client.CheckLiveness()
	client.CheckLiveness()
	adapter.failAlive = false
	client.CheckLiveness()

	// A successful ping reset the counter; one more failure should not yet
	// reach LivenessEvictionThreshold and evict the peer.
	adapter.failAlive = true
	client.CheckLiveness()
	assert.Len(t, registry.Peers(), 1)
}
