// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pools

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"

	"github.com/vechain/stakingpool/builtin/staking"
	"github.com/vechain/stakingpool/builtin/staking/checkpoint"
	"github.com/vechain/stakingpool/node"
	"github.com/vechain/stakingpool/thor"
)

func amount(v *big.Int) *math.HexOrDecimal256 {
	if v == nil {
		v = new(big.Int)
	}
	return (*math.HexOrDecimal256)(new(big.Int).Set(v))
}

type Checkpoint struct {
	Current *math.HexOrDecimal256 `json:"current"`
	Next    *math.HexOrDecimal256 `json:"next"`
}

func convertCheckpoint(c *checkpoint.Checkpoint) *Checkpoint {
	return &Checkpoint{Current: amount(c.Current), Next: amount(c.Next)}
}

type PoolInfo struct {
	Name    string       `json:"name"`
	Address thor.Address `json:"address"`
	Kind    string       `json:"kind"`
	Vault   thor.Address `json:"vault"`
}

func convertPool(pools *node.Pools, p *staking.Pool) *PoolInfo {
	return &PoolInfo{
		Name:    pools.Name(p.Address()),
		Address: p.Address(),
		Kind:    p.Kind().String(),
		Vault:   p.Vault(),
	}
}

type Epoch struct {
	Interval       uint64  `json:"interval"`
	Offset         uint64  `json:"offset"`
	BlackoutWindow uint64  `json:"blackoutWindow"`
	Started        bool    `json:"started"`
	Current        *uint64 `json:"current"`
	TimeRemaining  *uint64 `json:"timeRemaining"`
	InBlackout     bool    `json:"inBlackout"`
}

type Rewards struct {
	Index      *math.HexOrDecimal256 `json:"index"`
	LastUpdate uint64                `json:"lastUpdate"`
	Epoch      uint64                `json:"epoch"`
	PerSecond  *math.HexOrDecimal256 `json:"perSecond"`
}

type Summary struct {
	*PoolInfo
	Epoch             *Epoch                `json:"epoch"`
	Active            *Checkpoint           `json:"active"`
	Inactive          *Checkpoint           `json:"inactive"`
	StakerCount       uint64                `json:"stakerCount"`
	Available         *math.HexOrDecimal256 `json:"available"`
	TotalBorrowed     *math.HexOrDecimal256 `json:"totalBorrowed"`
	TotalBorrowerDebt *math.HexOrDecimal256 `json:"totalBorrowerDebt"`
	NetDebtAvailable  *math.HexOrDecimal256 `json:"netDebtAvailable"`
	Shortfall         *math.HexOrDecimal256 `json:"shortfall"`
	ExchangeRate      *math.HexOrDecimal256 `json:"exchangeRate"`
	Rewards           *Rewards              `json:"rewards"`
}

type Power struct {
	Type      string                `json:"type"`
	Delegatee thor.Address          `json:"delegatee"`
	Power     *math.HexOrDecimal256 `json:"power"`
}

type Staker struct {
	Address        thor.Address          `json:"address"`
	Active         *Checkpoint           `json:"active"`
	Inactive       *Checkpoint           `json:"inactive"`
	Debt           *math.HexOrDecimal256 `json:"debt"`
	StakedBalance  *math.HexOrDecimal256 `json:"stakedBalance"`
	PendingRewards *math.HexOrDecimal256 `json:"pendingRewards"`
	Power          []*Power              `json:"power"`
}

type Borrower struct {
	Address    thor.Address          `json:"address"`
	Allocation *Checkpoint           `json:"allocation"`
	Borrowed   *math.HexOrDecimal256 `json:"borrowed"`
	Debt       *math.HexOrDecimal256 `json:"debt"`
	Restricted bool                  `json:"restricted"`
	Borrowable *math.HexOrDecimal256 `json:"borrowable"`
}

type Shortfall struct {
	Epoch uint64                `json:"epoch"`
	Debt  *math.HexOrDecimal256 `json:"debt"`
	Loss  *math.HexOrDecimal256 `json:"loss"`
	Index *math.HexOrDecimal256 `json:"index"`
}

type RateSnapshot struct {
	Block uint32                `json:"block"`
	Rate  *math.HexOrDecimal256 `json:"rate"`
}

type ExchangeRate struct {
	Rate      *math.HexOrDecimal256 `json:"rate"`
	Snapshots []*RateSnapshot       `json:"snapshots"`
}

type PowerCheckpoint struct {
	Block uint32                `json:"block"`
	Power *math.HexOrDecimal256 `json:"power"`
}

type PowerAt struct {
	Type        string                `json:"type"`
	Block       uint32                `json:"block"`
	Power       *math.HexOrDecimal256 `json:"power"`
	Checkpoints []*PowerCheckpoint    `json:"checkpoints"`
}

// CallRequest is a ledger call posted to a pool.
type CallRequest struct {
	Op     string       `json:"op"`
	Caller thor.Address `json:"caller"`
	Args   node.Args    `json:"args"`
}

type Event struct {
	Name         string                `json:"name"`
	Account      thor.Address          `json:"account"`
	Counterparty thor.Address          `json:"counterparty"`
	Amount       *math.HexOrDecimal256 `json:"amount"`
	Meta         map[string]string     `json:"meta,omitempty"`
}

type CallResult struct {
	Reverted    bool                  `json:"reverted"`
	Error       string                `json:"error,omitempty"`
	Result      *math.HexOrDecimal256 `json:"result,omitempty"`
	BlockNumber uint32                `json:"blockNumber,omitempty"`
	BlockTime   uint64                `json:"blockTime,omitempty"`
	Events      []*Event              `json:"events"`
}
