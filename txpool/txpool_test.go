package txpool

import (
	"testing"

	"github.com/groundx/gopow/chaintypes"
	"github.com/groundx/gopow/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unlimitedBalance(string) int64 { return 1 << 32 }

func newSignedTx(t *testing.T, sender *crypto.PrivateKey, raddr string, amount uint64, ts int64) *chaintypes.Transaction {
	t.Helper()
	tx := chaintypes.NewTransaction(sender.Public().String(), raddr, amount, ts)
	tx.Sign(sender)
	return tx
}

func TestAddAdmitsValidSignedTransaction(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)

	pool := New(unlimitedBalance, nil, func() int64 { return 42 })
	tx := newSignedTx(t, priv, "bob", 5, 1000)

	res := pool.Add(tx)
	assert.True(t, res.Success)
	assert.Equal(t, 1, pool.Len())
}

func TestAddRejectsDuplicate(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)

	pool := New(unlimitedBalance, nil, nil)
	tx := newSignedTx(t, priv, "bob", 5, 1000)

	require.True(t, pool.Add(tx).Success)
	res := pool.Add(tx)
	assert.False(t, res.Success)
	assert.Equal(t, chaintypes.TxRepeat, res.Kind)
	assert.Equal(t, 1, pool.Len())
}

func TestAddRejectsForgedReward(t *testing.T) {
	pool := New(unlimitedBalance, nil, nil)
	forged := chaintypes.NewRewardTransaction("attacker", 100, 1000)

	res := pool.Add(forged)
	assert.False(t, res.Success)
	assert.Equal(t, chaintypes.TxSAddrNone, res.Kind)
}

func TestAddAcceptsPeerOriginatedReward(t *testing.T) {
	pool := New(unlimitedBalance, nil, nil)
	reward := chaintypes.NewRewardTransaction("miner", 1, 1000)
	reward.IsFromPeer = true

	res := pool.Add(reward)
	assert.True(t, res.Success)
}

func TestAddRejectsInsufficientBalance(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)

	zeroBalance := func(string) int64 { return 0 }
	pool := New(zeroBalance, nil, nil)
	tx := newSignedTx(t, priv, "bob", 5, 1000)

	res := pool.Add(tx)
	assert.False(t, res.Success)
	assert.Equal(t, chaintypes.TxInsufficientBalance, res.Kind)
}

func TestAddRejectsBadSignature(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	other, err := crypto.GenerateKey()
	require.NoError(t, err)

	pool := New(unlimitedBalance, nil, nil)
	tx := newSignedTx(t, priv, "bob", 5, 1000)
	tx.SAddr = other.Public().String() // claim a different sender after signing

	res := pool.Add(tx)
	assert.False(t, res.Success)
	assert.Equal(t, chaintypes.TxInvalidSignature, res.Kind)
}

func TestSweepDropsConfirmedTransactions(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)

	pool := New(unlimitedBalance, nil, nil)
	tx := newSignedTx(t, priv, "bob", 5, 1000)
	require.True(t, pool.Add(tx).Success)

	block := chaintypes.NewBlock(2, 1000, []*chaintypes.Transaction{tx}, 0, "prev", 0)
	pool.MarkConfirmed(block)
	pool.Sweep()

	assert.Equal(t, 0, pool.Len())
}

func TestSnapshotForMiningEndsWithRewardToMiner(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)

	pool := New(unlimitedBalance, nil, func() int64 { return 99 })
	tx := newSignedTx(t, priv, "bob", 5, 1000)
	require.True(t, pool.Add(tx).Success)

	snap := pool.SnapshotForMining("miner-addr")
	require.Len(t, snap, 2)
	last := snap[len(snap)-1]
	assert.True(t, last.IsReward())
	assert.Equal(t, "miner-addr", last.RAddr)
	assert.Equal(t, uint64(chaintypes.PoWReward), last.Amount)

	for _, t2 := range snap {
		assert.False(t, t2.IsConfirmed)
	}
}

func TestSnapshotForMiningEmptyPoolYieldsEmptySnapshot(t *testing.T) {
	pool := New(unlimitedBalance, nil, nil)
	assert.Empty(t, pool.SnapshotForMining("miner-addr"))
}

func TestAirdropEntersPoolWithoutPeerOrigin(t *testing.T) {
	var broadcast int
	pool := New(unlimitedBalance, func(*chaintypes.Transaction) { broadcast++ }, func() int64 { return 5 })

	tx := pool.Airdrop("wallet-g", 10000)
	assert.True(t, tx.IsReward())
	assert.Equal(t, 1, pool.Len())
	assert.Equal(t, 1, broadcast)
}
