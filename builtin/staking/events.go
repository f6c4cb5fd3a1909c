// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"

	"github.com/vechain/stakingpool/thor"
)

// Event names.
const (
	EventStaked                     = "Staked"
	EventWithdrawalRequested        = "WithdrawalRequested"
	EventWithdrewStake              = "WithdrewStake"
	EventTransfer                   = "Transfer"
	EventBorrowed                   = "Borrowed"
	EventRepaidBorrow               = "RepaidBorrow"
	EventDebtMarked                 = "DebtMarked"
	EventRepaidDebt                 = "RepaidDebt"
	EventWithdrewDebt               = "WithdrewDebt"
	EventSlashed                    = "Slashed"
	EventClaimedRewards             = "ClaimedRewards"
	EventDelegateChanged            = "DelegateChanged"
	EventEpochParametersChanged     = "EpochParametersChanged"
	EventBlackoutWindowChanged      = "BlackoutWindowChanged"
	EventRewardsPerSecondChanged    = "RewardsPerSecondChanged"
	EventDistributionChanged        = "DistributionChanged"
	EventBorrowerAllocationsChanged = "BorrowerAllocationsChanged"
	EventBorrowerRestrictionChanged = "BorrowerRestrictionChanged"
)

// Event is emitted by a successful ledger call.
type Event struct {
	Pool         thor.Address
	Name         string
	Account      thor.Address
	Counterparty thor.Address
	Amount       *big.Int
	Meta         map[string]string
	BlockNumber  uint32
	BlockTime    uint64
}

// Topic identifies the event kind.
func (e *Event) Topic() thor.Bytes32 {
	return thor.Keccak256([]byte(e.Name))
}

func (p *Pool) emit(ctx *callContext, name string, account, counterparty thor.Address, amount *big.Int, meta map[string]string) {
	if amount == nil {
		amount = new(big.Int)
	}
	p.events = append(p.events, &Event{
		Pool:         p.addr,
		Name:         name,
		Account:      account,
		Counterparty: counterparty,
		Amount:       new(big.Int).Set(amount),
		Meta:         meta,
		BlockNumber:  ctx.block,
		BlockTime:    ctx.now,
	})
}
