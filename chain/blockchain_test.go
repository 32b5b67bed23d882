package chain

import (
	"testing"

	"github.com/groundx/gopow/chaintypes"
	"github.com/groundx/gopow/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mineBlock(t *testing.T, index uint64, txs []*chaintypes.Transaction, prevHash string) *chaintypes.Block {
	t.Helper()
	const difficulty = 1 // keep tests fast; production uses chaintypes.PoWDifficulty
	for nonce := uint64(0); ; nonce++ {
		b := chaintypes.NewBlock(index, 1000+int64(index), txs, nonce, prevHash, difficulty)
		if b.SatisfiesPoW() {
			return b
		}
		if nonce > 5_000_000 {
			t.Fatal("failed to find PoW nonce within bound")
		}
	}
}

func TestAppendGenesisThenBlock(t *testing.T) {
	c := New()
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	g := priv.Public().String()

	genesis := mineBlock(t, 1, []*chaintypes.Transaction{chaintypes.NewRewardTransaction(g, 10000, 1000)}, "")
	genesis.IsGenesis = true
	res := c.Append(genesis)
	require.True(t, res.Success)

	reward := chaintypes.NewRewardTransaction("miner", chaintypes.PoWReward, 1001)
	transfer := chaintypes.NewTransaction(g, "H", 7, 1001)
	transfer.Sign(priv)
	b2 := mineBlock(t, 2, []*chaintypes.Transaction{transfer, reward}, genesis.Hash())
	res = c.Append(b2)
	require.True(t, res.Success)

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, int64(9993), c.Balance(g))
	assert.Equal(t, int64(7), c.Balance("H"))
	assert.Equal(t, int64(1), c.Balance("miner"))
}

func TestAppendIdempotenceFailsPrevHashOnReplay(t *testing.T) {
	c := New()
	genesis := mineBlock(t, 1, nil, "")
	genesis.IsGenesis = true
	require.True(t, c.Append(genesis).Success)

	res := c.Append(genesis)
	assert.False(t, res.Success)
	assert.Equal(t, chaintypes.BlkInvalidPrevHash, res.Kind)
}

func TestAppendRejectsBadPoW(t *testing.T) {
	c := New()
	genesis := mineBlock(t, 1, nil, "")
	genesis.IsGenesis = true
	require.True(t, c.Append(genesis).Success)

	reward := chaintypes.NewRewardTransaction("miner", chaintypes.PoWReward, 1001)
	// difficulty 8 is vanishingly unlikely to be satisfied by nonce 0.
	bad := chaintypes.NewBlock(2, 1001, []*chaintypes.Transaction{reward}, 0, genesis.Hash(), 8)

	res := c.Append(bad)
	assert.False(t, res.Success)
	assert.Equal(t, chaintypes.BlkInvalidPoW, res.Kind)
}

func TestAppendRejectsMissingReward(t *testing.T) {
	c := New()
	genesis := mineBlock(t, 1, nil, "")
	genesis.IsGenesis = true
	require.True(t, c.Append(genesis).Success)

	transfer := chaintypes.NewTransaction("G", "H", 7, 1001)
	noReward := mineBlock(t, 2, []*chaintypes.Transaction{transfer}, genesis.Hash())
	res := c.Append(noReward)
	assert.False(t, res.Success)
	assert.Equal(t, chaintypes.BlkInvalidTx, res.Kind)
}

func TestBalanceConservation(t *testing.T) {
	c := New()
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	g := priv.Public().String()

	genesis := mineBlock(t, 1, []*chaintypes.Transaction{chaintypes.NewRewardTransaction(g, 10000, 1000)}, "")
	genesis.IsGenesis = true
	require.True(t, c.Append(genesis).Success)

	reward := chaintypes.NewRewardTransaction("miner", chaintypes.PoWReward, 1001)
	transfer := chaintypes.NewTransaction(g, "H", 7, 1001)
	transfer.Sign(priv)
	b2 := mineBlock(t, 2, []*chaintypes.Transaction{transfer, reward}, genesis.Hash())
	require.True(t, c.Append(b2).Success)

	total := c.Balance(g) + c.Balance("H") + c.Balance("miner")
	assert.Equal(t, int64(10000+chaintypes.PoWReward), total)
}

func TestTruncateReturnsDroppedBlocksInOrder(t *testing.T) {
	c := New()
	genesis := mineBlock(t, 1, nil, "")
	genesis.IsGenesis = true
	require.True(t, c.Append(genesis).Success)

	b2 := mineBlock(t, 2, []*chaintypes.Transaction{chaintypes.NewRewardTransaction("m", 1, 2)}, genesis.Hash())
	require.True(t, c.Append(b2).Success)
	b3 := mineBlock(t, 3, []*chaintypes.Transaction{chaintypes.NewRewardTransaction("m", 1, 3)}, b2.Hash())
	require.True(t, c.Append(b3).Success)

	dropped := c.Truncate(2)
	assert.Equal(t, 1, c.Len())
	require.Len(t, dropped, 2)
	assert.Equal(t, uint64(2), dropped[0].Index)
	assert.Equal(t, uint64(3), dropped[1].Index)
}
