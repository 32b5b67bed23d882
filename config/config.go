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
// This file is derived from node/defaults.go's DefaultConfig idiom and
// cmd/ranger/config.go's naoina/toml loadConfig helper (2018/06/04).
// Modified and improved for the gopow development.

// Package config holds the node's static configuration: bind address,
// bootstrap peer, genesis behavior, debug surface — spec.md §6's
// "Environment / CLI (collaborator; not core)" section, made concrete.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"
	"unicode"

	"github.com/naoina/toml"
)

// DefaultBindHost/DefaultBindPort are the node's default HTTP+JSON listen
// address.
const (
	DefaultBindHost = "localhost"
	DefaultBindPort = 9000
)

// DefaultGenesisRecipient/DefaultGenesisBalance are the fixed-seed genesis
// constants spec.md §6 calls for: "Genesis recipient and initial balance
// are configuration constants."
const (
	DefaultGenesisRecipient = "genesis"
	DefaultGenesisBalance   = 10000
)

// Config is the full set of node-role settings.
type Config struct {
	BindHost string `toml:"bind_host"`
	BindPort int    `toml:"bind_port"`

	// JoinProtocol/JoinAddr name a bootstrap peer to join on start; both
	// empty means start with an empty registry (besides self).
	JoinProtocol string `toml:"join_protocol"`
	JoinAddr     string `toml:"join_addr"`

	// WithGenesisBlock is spec.md §6's `--with-genesis-block` bootstrap
	// flag: mine a fixed-seed genesis block on start.
	WithGenesisBlock bool   `toml:"with_genesis_block"`
	GenesisRecipient string `toml:"genesis_recipient"`
	GenesisBalance   uint64 `toml:"genesis_balance"`

	// DebugAPI gates the /debug/* introspection endpoints of
	// SPEC_FULL.md §3.1.
	DebugAPI bool `toml:"debug_api"`

	TaskQueueCapacity int `toml:"task_queue_capacity"`
}

// DefaultConfig contains reasonable node defaults, mirroring node.DefaultConfig.
var DefaultConfig = Config{
	BindHost:          DefaultBindHost,
	BindPort:          DefaultBindPort,
	GenesisRecipient:  DefaultGenesisRecipient,
	GenesisBalance:    DefaultGenesisBalance,
	TaskQueueCapacity: 256,
}

// tomlSettings keeps TOML keys identical to the struct's `toml` tags,
// matching cmd/ranger/config.go's NormFieldName/FieldToKey overrides.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string { return key },
	FieldToKey:    func(rt reflect.Type, field string) string { return field },
	MissingField: func(rt reflect.Type, field string) error {
		link := ""
		if unicode.IsUpper(rune(rt.Name()[0])) {
			link = fmt.Sprintf(", see %s for available fields", rt.String())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

// Load reads and decodes a TOML config file on top of cfg, matching
// cmd/ranger/config.go's loadConfig.
func Load(file string, cfg *Config) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}
