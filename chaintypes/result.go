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

package chaintypes

// ErrorKind enumerates the wire-stable validation failure codes of
// spec.md §7. Validation failures travel in-band as ExecuteResult and are
// never raised as Go errors across a component boundary.
type ErrorKind int

const (
	NoError ErrorKind = 0

	TxRepeat              ErrorKind = 10
	TxSAddrNone           ErrorKind = 11
	TxInsufficientBalance ErrorKind = 12
	TxInvalidSignature    ErrorKind = 13

	BlkInvalidPoW      ErrorKind = 20
	BlkInvalidTx       ErrorKind = 21
	BlkInvalidHash     ErrorKind = 22
	BlkInvalidPrevHash ErrorKind = 23
	BlkInvalidData     ErrorKind = 24
)

var errorKindNames = map[ErrorKind]string{
	TxRepeat:              "TX_REPEAT",
	TxSAddrNone:           "TX_SADDR_NONE",
	TxInsufficientBalance: "TX_INSUFFICIENT_BALANCE",
	TxInvalidSignature:    "TX_INVALID_SIGNATURE",
	BlkInvalidPoW:         "BLK_INVALID_POW",
	BlkInvalidTx:          "BLK_INVALID_TX",
	BlkInvalidHash:        "BLK_INVALID_HASH",
	BlkInvalidPrevHash:    "BLK_INVALID_PREV_HASH",
	BlkInvalidData:        "BLK_INVALID_DATA",
}

// String renders the error kind's wire name, e.g. "TX_REPEAT".
func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// ExecuteResult is the tagged outcome of a mutating operation (spec.md §3).
type ExecuteResult struct {
	Success bool      `json:"success"`
	Kind    ErrorKind `json:"error_kind,omitempty"`
	Message string    `json:"message,omitempty"`
}

// Ok builds a successful ExecuteResult.
func Ok() ExecuteResult {
	return ExecuteResult{Success: true}
}

// Fail builds a failed ExecuteResult carrying the given kind and message.
func Fail(kind ErrorKind, message string) ExecuteResult {
	return ExecuteResult{Success: false, Kind: kind, Message: message}
}
