package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groundx/gopow/chain"
	"github.com/groundx/gopow/chaintypes"
	"github.com/groundx/gopow/crypto"
	"github.com/groundx/gopow/p2p"
	"github.com/groundx/gopow/txpool"
)

func mineBlock(t *testing.T, index uint64, ts int64, txs []*chaintypes.Transaction, prevHash string, difficulty int) *chaintypes.Block {
	t.Helper()
	for nonce := uint64(0); ; nonce++ {
		b := chaintypes.NewBlock(index, ts, txs, nonce, prevHash, difficulty)
		if b.SatisfiesPoW() {
			return b
		}
	}
}

func newChainWithGenesis(t *testing.T, miner string) *chain.BlockChain {
	t.Helper()
	bc := chain.New()
	reward := chaintypes.NewRewardTransaction(miner, 10000, 1000)
	genesis := mineBlock(t, 1, 1000, []*chaintypes.Transaction{reward}, "", chaintypes.PoWDifficulty)
	genesis.IsGenesis = true
	require.True(t, bc.Append(genesis).Success)
	return bc
}

func appendMinedBlock(t *testing.T, bc *chain.BlockChain, miner string, txs []*chaintypes.Transaction) *chaintypes.Block {
	t.Helper()
	last := bc.Last()
	reward := chaintypes.NewRewardTransaction(miner, chaintypes.PoWReward, last.Timestamp+1)
	all := append(append([]*chaintypes.Transaction{}, txs...), reward)
	b := mineBlock(t, last.Index+1, last.Timestamp+1, all, last.Hash(), chaintypes.PoWDifficulty)
	res := bc.Append(b)
	require.True(t, res.Success, "append failed: %+v", res)
	return b
}

func TestCheckSummaryRequiresBothDimensionsToDominate(t *testing.T) {
	local := chain.Summary{TotalLength: 3, TotalDifficulty: 12}

	assert.False(t, CheckSummary(local, chain.Summary{TotalLength: 3, TotalDifficulty: 12}))
	assert.False(t, CheckSummary(local, chain.Summary{TotalLength: 5, TotalDifficulty: 12}))
	assert.False(t, CheckSummary(local, chain.Summary{TotalLength: 3, TotalDifficulty: 20}))
	assert.True(t, CheckSummary(local, chain.Summary{TotalLength: 5, TotalDifficulty: 20}))
}

func TestFindForkPointAgreesOnSharedPrefix(t *testing.T) {
	bc := newChainWithGenesis(t, "miner")
	local := bc.Iter()

	peer := make([]*chaintypes.Block, len(local))
	copy(peer, local)

	assert.Equal(t, len(local)-1, FindForkPoint(local, peer))
}

func TestFindForkPointDetectsImmediateDivergence(t *testing.T) {
	bcA := newChainWithGenesis(t, "minerA")
	bcB := newChainWithGenesis(t, "minerB")

	assert.Equal(t, -1, FindForkPoint(bcA.Iter(), bcB.Iter()))
}

type fakeFetcher struct {
	chain []*chaintypes.Block
	err   error
}

func (f *fakeFetcher) GetChain(peer p2p.Peer) ([]*chaintypes.Block, error) {
	return f.chain, f.err
}

func TestExecuteReplaysDominantPeerChainAndRequeuesDiscardedTxs(t *testing.T) {
	minerKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	sender := minerKey.Public().String()

	local := newChainWithGenesis(t, sender)
	tx := chaintypes.NewTransaction(sender, "someone-else", 5, 2000)
	tx.Sign(minerKey)
	appendMinedBlock(t, local, "miner-local", []*chaintypes.Transaction{tx})
	require.Equal(t, 2, local.Len())

	peer := newChainWithGenesis(t, sender)
	appendMinedBlock(t, peer, "miner-peer", nil)
	appendMinedBlock(t, peer, "miner-peer", nil)
	appendMinedBlock(t, peer, "miner-peer", nil)
	require.Equal(t, 4, peer.Len())

	pool := txpool.New(local.Balance, nil, func() int64 { return 9999 })
	engine := New(local, pool, &fakeFetcher{chain: peer.Iter()})

	engine.Execute(peer.Iter())

	assert.Equal(t, 4, local.Len())
	assert.Equal(t, peer.Last().Hash(), local.Last().Hash())

	requeued := pool.Pending()
	require.Len(t, requeued, 1)
	assert.Equal(t, tx.Hash(), requeued[0].Hash())
}

func TestExecuteRestoresSnapshotOnReplayFailure(t *testing.T) {
	local := newChainWithGenesis(t, "miner")
	appendMinedBlock(t, local, "miner", nil)
	originalLast := local.Last().Hash()

	badBlock := chaintypes.NewBlock(2, 5000, []*chaintypes.Transaction{
		chaintypes.NewRewardTransaction("attacker", chaintypes.PoWReward, 5000),
	}, 0, "not-the-real-prev-hash", chaintypes.PoWDifficulty)

	engine := New(local, txpool.New(local.Balance, nil, nil), &fakeFetcher{})
	engine.Execute([]*chaintypes.Block{badBlock})

	assert.Equal(t, 2, local.Len())
	assert.Equal(t, originalLast, local.Last().Hash())
}
