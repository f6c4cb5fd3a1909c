// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package power

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/vechain/stakingpool/thor"
)

// Type is the kind of governance power.
type Type uint8

const (
	Voting Type = iota
	Proposition
)

// Types lists every power type.
var Types = []Type{Voting, Proposition}

func (t Type) String() string {
	switch t {
	case Voting:
		return "voting"
	case Proposition:
		return "proposition"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// ParseType converts a power type name.
func ParseType(s string) (Type, error) {
	for _, t := range Types {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown power type %q", s)
}

// Checkpoint is the power of an account from a block on, in staked units.
type Checkpoint struct {
	Block uint32
	Power *big.Int
}

type accountKey struct {
	account thor.Address
	typ     Type
}

func (k accountKey) Bytes() []byte {
	return append(k.account.Bytes(), byte(k.typ))
}

type seriesKey struct {
	accountKey
	index uint64
}

func (k seriesKey) Bytes() []byte {
	return binary.BigEndian.AppendUint64(k.accountKey.Bytes(), k.index)
}
