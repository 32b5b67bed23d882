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
// This file is derived from work/worker.go's metrics.NewRegisteredCounter
// usage (2018/06/04). Modified and improved for the gopow development.

// Package metrics centralizes the rcrowley/go-metrics counters gopow
// registers for pool admission, chain append and gossip outcomes.
package metrics

import "github.com/rcrowley/go-metrics"

var (
	TxAdmitted       = metrics.NewRegisteredCounter("txpool/admitted", nil)
	TxRejected       = metrics.NewRegisteredCounter("txpool/rejected", nil)
	BlockAppended    = metrics.NewRegisteredCounter("chain/appended", nil)
	BlockRejected    = metrics.NewRegisteredCounter("chain/rejected", nil)
	GossipFailures   = metrics.NewRegisteredCounter("p2pclient/gossipfailures", nil)
	ConsensusForks   = metrics.NewRegisteredCounter("consensus/forks", nil)
	TaskQueueDropped = metrics.NewRegisteredCounter("worker/dropped", nil)
)
