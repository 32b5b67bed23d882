package chaintypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func mineBlock(t *testing.T, index uint64, txs []*Transaction, prevHash string, difficulty int) *Block {
	t.Helper()
	for nonce := uint64(0); ; nonce++ {
		b := NewBlock(index, 1000, txs, nonce, prevHash, difficulty)
		if b.SatisfiesPoW() {
			return b
		}
		if nonce > 5_000_000 {
			t.Fatal("failed to find PoW nonce within bound")
		}
	}
}

func TestBlockHashStability(t *testing.T) {
	reward := NewRewardTransaction("miner", PoWReward, 1000)
	b := mineBlock(t, 2, []*Transaction{reward}, "deadbeef", 1)

	hash := b.Hash()
	assert.True(t, b.HashMatchesRecomputation())

	b.Nonce++
	assert.NotEqual(t, hash, b.ComputeHash())
}

func TestBlockSatisfiesPoW(t *testing.T) {
	reward := NewRewardTransaction("miner", PoWReward, 1000)
	b := mineBlock(t, 2, []*Transaction{reward}, "deadbeef", 2)
	assert.True(t, b.SatisfiesPoW())
}

func TestRewardUniqueness(t *testing.T) {
	reward := NewRewardTransaction("miner", PoWReward, 1000)
	other := NewRewardTransaction("miner2", PoWReward, 1000)
	b := mineBlock(t, 2, []*Transaction{reward, other}, "deadbeef", 1)
	assert.Equal(t, 2, b.CountRewards())
}

func TestGenesisHasNoPrevHash(t *testing.T) {
	b := mineBlock(t, 1, nil, "", 1)
	assert.Empty(t, b.PrevHash)
}
