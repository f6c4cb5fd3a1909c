// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package eventdb

import (
	"math/big"

	"github.com/vechain/stakingpool/thor"
)

// Event is a ledger event as stored in the db.
type Event struct {
	BlockNumber  uint32
	Index        uint32
	BlockTime    uint64
	Pool         thor.Address
	Name         string
	Topic        thor.Bytes32
	Account      thor.Address
	Counterparty thor.Address
	Amount       *big.Int
	Meta         map[string]string
}

type Order string

const (
	ASC  Order = "asc"
	DESC Order = "desc"
)

// Range is an inclusive block number range. A To below From leaves it open.
type Range struct {
	From uint32
	To   uint32
}

type Options struct {
	Offset uint64
	Limit  uint64
}

// Filter selects events. Nil fields match anything. Account matches either side of an event.
type Filter struct {
	Pool    *thor.Address
	Account *thor.Address
	Name    string
	Range   *Range
	Options *Options
	Order   Order // default asc
}
