package node

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groundx/gopow/config"
)

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestNewWithGenesisBlockMinesGenesisSynchronously(t *testing.T) {
	cfg := config.DefaultConfig
	cfg.BindPort = 9101
	cfg.WithGenesisBlock = true
	cfg.GenesisRecipient = "alice"
	cfg.GenesisBalance = 10000

	ctx := New(cfg)
	require.Equal(t, 1, ctx.Chain.Len())
	assert.EqualValues(t, 10000, ctx.Chain.Balance("alice"))
}

func TestNewWithoutGenesisBlockStartsEmpty(t *testing.T) {
	cfg := config.DefaultConfig
	cfg.BindPort = 9102
	cfg.WithGenesisBlock = false

	ctx := New(cfg)
	assert.Equal(t, 0, ctx.Chain.Len())
}

func TestStartAndStopDrivesWorkerAndScheduler(t *testing.T) {
	cfg := config.DefaultConfig
	cfg.BindPort = 9103
	cfg.WithGenesisBlock = true
	cfg.GenesisRecipient = "bob"

	ctx := New(cfg)
	ctx.Start()
	defer ctx.Stop()

	enqueued := ctx.Queue.Put("airdrop", func() {
		ctx.Pool.Airdrop("carol", 5)
	})
	require.True(t, enqueued)

	waitUntil(t, func() bool { return ctx.Pool.Len() == 1 })
}
