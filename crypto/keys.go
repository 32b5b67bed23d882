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

// Package crypto wraps secp256k1 ECDSA key handling, matching the curve the
// rest of the example corpus (go-ethereum, klaytn) signs transactions with.
package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// ErrInvalidSignature is returned by Verify when the signature does not
// match the given public key and message digest.
var ErrInvalidSignature = errors.New("crypto: invalid signature")

// PrivateKey is a secp256k1 signing key.
type PrivateKey struct {
	key *btcec.PrivateKey
}

// PublicKey is a secp256k1 verifying key, serialized as compressed hex in
// wire payloads (the `saddr`/`raddr` fields of spec.md).
type PublicKey struct {
	key *btcec.PublicKey
}

// GenerateKey creates a fresh keypair. Key custody itself belongs to the
// wallet collaborator (out of scope); the node only ever verifies.
func GenerateKey() (*PrivateKey, error) {
	key, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key: key}, nil
}

// Public returns the public half of the key.
func (p *PrivateKey) Public() *PublicKey {
	return &PublicKey{key: p.key.PubKey()}
}

// Sign produces a DER-encoded ECDSA signature over sha256(msg).
func (p *PrivateKey) Sign(msg []byte) []byte {
	digest := sha256.Sum256(msg)
	sig := ecdsa.Sign(p.key, digest[:])
	return sig.Serialize()
}

// String renders the public key as compressed hex — the canonical
// representation used for `saddr`/`raddr` in wire payloads and hashing.
func (pub *PublicKey) String() string {
	return hex.EncodeToString(pub.key.SerializeCompressed())
}

// ParsePublicKey decodes a compressed-hex public key as produced by String.
func ParsePublicKey(s string) (*PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	key, err := btcec.ParsePubKey(b)
	if err != nil {
		return nil, err
	}
	return &PublicKey{key: key}, nil
}

// Verify checks a DER-encoded ECDSA signature over sha256(msg) against pub.
func Verify(pub *PublicKey, msg, sig []byte) error {
	parsed, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return ErrInvalidSignature
	}
	digest := sha256.Sum256(msg)
	if !parsed.Verify(digest[:], pub.key) {
		return ErrInvalidSignature
	}
	return nil
}

// Hash is a thin alias kept for readability at call sites that hash
// canonical serializations (blocks, transactions, peers).
func Hash(b []byte) [32]byte {
	return sha256.Sum256(b)
}

// HashHex returns the lower-case hex SHA-256 digest of b, matching the
// `hash` field format used across spec.md's wire payloads.
func HashHex(b []byte) string {
	h := Hash(b)
	return hex.EncodeToString(h[:])
}
