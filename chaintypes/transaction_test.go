package chaintypes

import (
	"testing"

	"github.com/groundx/gopow/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionHashStability(t *testing.T) {
	tx := NewTransaction("alice", "bob", 7, 1000)
	hash := tx.Hash()
	assert.Equal(t, hash, tx.ComputeHash())

	mutated := NewTransaction("alice", "bob", 8, 1000)
	assert.NotEqual(t, hash, mutated.Hash())
}

func TestTransactionEqualByHash(t *testing.T) {
	a := NewTransaction("alice", "bob", 7, 1000)
	b := NewTransaction("alice", "bob", 7, 1000)
	assert.True(t, a.Equal(b))
}

func TestSignedTransactionVerifies(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	pub := priv.Public().String()

	tx := NewTransaction(pub, "bob", 7, 1000)
	tx.Sign(priv)

	assert.NoError(t, tx.VerifySign())
}

func TestRewardTransactionHasNoSender(t *testing.T) {
	tx := NewRewardTransaction("miner", PoWReward, 1000)
	assert.True(t, tx.IsReward())
	assert.NoError(t, tx.VerifySign())
}

func TestTamperedAmountFailsVerification(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	pub := priv.Public().String()

	tx := NewTransaction(pub, "bob", 7, 1000)
	tx.Sign(priv)
	tx.Amount = 1000 // tamper after signing

	assert.Error(t, tx.VerifySign())
}
