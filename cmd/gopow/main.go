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
// This file is derived from cmd/kcn/main.go's cli.App/Flags/Action/Before
// shape (2018/06/04). Modified and improved for the gopow development.

// Command gopow is the node process entrypoint. Wallet and miner are
// external collaborators per spec.md §1 and are stubbed here: they print a
// one-line message and exit rather than duplicating wallet/miner logic this
// specification explicitly places out of scope.
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/urfave/cli.v1"

	"github.com/groundx/gopow/config"
	"github.com/groundx/gopow/internal/log"
	"github.com/groundx/gopow/node"
)

var logger = log.NewModuleLogger(log.Node)

var (
	roleFlag = cli.StringFlag{
		Name:  "role",
		Usage: "process role: node, wallet, or miner",
		Value: "node",
	}
	bindHostFlag = cli.StringFlag{
		Name:  "bindhost",
		Usage: "HTTP+JSON bind host",
		Value: config.DefaultBindHost,
	}
	bindPortFlag = cli.IntFlag{
		Name:  "bindport",
		Usage: "HTTP+JSON bind port",
		Value: config.DefaultBindPort,
	}
	joinProtocolFlag = cli.StringFlag{
		Name:  "joinprotocol",
		Usage: "transport protocol of the bootstrap peer to join",
		Value: "http",
	}
	joinAddrFlag = cli.StringFlag{
		Name:  "joinaddr",
		Usage: "addr of a bootstrap peer to join on start",
	}
	withGenesisFlag = cli.BoolFlag{
		Name:  "with-genesis-block",
		Usage: "mine a fixed-seed genesis block on start",
	}
	genesisRecipientFlag = cli.StringFlag{
		Name:  "genesis-recipient",
		Usage: "address credited by the genesis block",
		Value: config.DefaultGenesisRecipient,
	}
	genesisBalanceFlag = cli.Uint64Flag{
		Name:  "genesis-balance",
		Usage: "amount credited to genesis-recipient",
		Value: config.DefaultGenesisBalance,
	}
	debugAPIFlag = cli.BoolFlag{
		Name:  "debug-api",
		Usage: "expose the /debug/* introspection endpoints",
	}
	configFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file, applied before flag overrides",
	}
)

var nodeFlags = []cli.Flag{
	roleFlag,
	bindHostFlag,
	bindPortFlag,
	joinProtocolFlag,
	joinAddrFlag,
	withGenesisFlag,
	genesisRecipientFlag,
	genesisBalanceFlag,
	debugAPIFlag,
	configFileFlag,
}

func main() {
	app := cli.NewApp()
	app.Name = "gopow"
	app.Usage = "peer-to-peer proof-of-work ledger node"
	app.Flags = nodeFlags
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	switch role := ctx.String(roleFlag.Name); role {
	case "node":
		return runNode(ctx)
	case "wallet", "miner":
		fmt.Fprintf(os.Stderr, "the %s role is an external collaborator and is not implemented by this process\n", role)
		return nil
	default:
		return cli.NewExitError(fmt.Sprintf("unknown role %q (want node, wallet, or miner)", role), 1)
	}
}

func runNode(ctx *cli.Context) error {
	cfg := config.DefaultConfig
	if file := ctx.String(configFileFlag.Name); file != "" {
		if err := config.Load(file, &cfg); err != nil {
			return cli.NewExitError(fmt.Sprintf("load config: %v", err), 1)
		}
	}

	cfg.BindHost = ctx.String(bindHostFlag.Name)
	cfg.BindPort = ctx.Int(bindPortFlag.Name)
	cfg.JoinProtocol = ctx.String(joinProtocolFlag.Name)
	cfg.JoinAddr = ctx.String(joinAddrFlag.Name)
	cfg.WithGenesisBlock = ctx.Bool(withGenesisFlag.Name)
	cfg.GenesisRecipient = ctx.String(genesisRecipientFlag.Name)
	cfg.GenesisBalance = ctx.Uint64(genesisBalanceFlag.Name)
	cfg.DebugAPI = ctx.Bool(debugAPIFlag.Name)

	n := node.New(cfg)
	n.Start()
	defer n.Stop()

	addr := fmt.Sprintf("%s:%d", cfg.BindHost, cfg.BindPort)
	logger.Info("listening", "addr", addr, "debug_api", cfg.DebugAPI, "with_genesis_block", cfg.WithGenesisBlock)

	httpServer := &http.Server{Addr: addr, Handler: n.API.Handler()}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server stopped unexpectedly", "err", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	return httpServer.Close()
}
