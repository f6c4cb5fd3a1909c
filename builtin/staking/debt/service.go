// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package debt

import (
	"encoding/binary"
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/stakingpool/builtin/solidity"
	"github.com/vechain/stakingpool/builtin/staking/reverts"
	"github.com/vechain/stakingpool/thor"
)

var (
	slotNetDebtAvailable = thor.BytesToBytes32([]byte("net-debt-available"))
	slotShortfalls       = thor.BytesToBytes32([]byte("shortfalls"))
	slotShortfallCount   = thor.BytesToBytes32([]byte("shortfall-count"))

	// IndexBase is the fixed point base of shortfall indexes.
	IndexBase = big.NewInt(1e18)
)

// Shortfall records one socialization.
type Shortfall struct {
	Epoch uint64
	Debt  *big.Int // borrowed balance converted to borrower debt
	Loss  *big.Int // inactive balance converted to staker debt
	Index *big.Int
}

type seqKey uint64

func (k seqKey) Bytes() []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(k))
}

// Service tracks repaid debt awaiting withdrawal and the shortfall history.
type Service struct {
	netDebtAvailable *solidity.Uint256
	shortfalls       *solidity.Mapping[seqKey, *Shortfall]
	shortfallCount   *solidity.Raw[uint64]
}

func New(sctx *solidity.Context) *Service {
	return &Service{
		netDebtAvailable: solidity.NewUint256(sctx, slotNetDebtAvailable),
		shortfalls:       solidity.NewMapping[seqKey, *Shortfall](sctx, slotShortfalls),
		shortfallCount:   solidity.NewRaw[uint64](sctx, slotShortfallCount),
	}
}

// Index returns (inactive - debt) / inactive in 1e18 base.
func Index(inactive, debt *big.Int) *big.Int {
	if inactive.Sign() == 0 {
		return new(big.Int).Set(IndexBase)
	}
	index := new(big.Int).Sub(inactive, debt)
	index.Mul(index, IndexBase)
	return index.Div(index, inactive)
}

// Compute returns how much the pool can't pay out of pending withdrawals.
// reserved is the stake backing borrows within allocation, the result is floored at zero.
func Compute(inactive, available, reserved *big.Int) *big.Int {
	forInactive := new(big.Int).Sub(available, reserved)
	shortfall := new(big.Int).Sub(inactive, forInactive)
	if shortfall.Sign() < 0 {
		return shortfall.SetUint64(0)
	}
	return shortfall
}

// NetDebtAvailable returns the repaid debt not yet withdrawn by stakers.
func (s *Service) NetDebtAvailable() (*big.Int, error) {
	return s.netDebtAvailable.Get()
}

// AddRepaid makes repaid debt available to stakers.
func (s *Service) AddRepaid(amount *big.Int) error {
	return s.netDebtAvailable.Add(amount)
}

// TakeRepaid removes amount for a staker withdrawal.
func (s *Service) TakeRepaid(amount *big.Int) error {
	available, err := s.netDebtAvailable.Get()
	if err != nil {
		return err
	}
	if amount.Cmp(available) > 0 {
		return reverts.ErrExceedsAvailable
	}
	return s.netDebtAvailable.Sub(amount)
}

// Record appends a shortfall to the history.
func (s *Service) Record(shortfall *Shortfall) error {
	count, err := s.shortfallCount.Get()
	if err != nil {
		return err
	}
	if err := s.shortfalls.Set(seqKey(count), shortfall); err != nil {
		return errors.Wrap(err, "failed to record shortfall")
	}
	return s.shortfallCount.Set(count + 1)
}

// Shortfalls returns the shortfall history, oldest first.
func (s *Service) Shortfalls() ([]*Shortfall, error) {
	count, err := s.shortfallCount.Get()
	if err != nil {
		return nil, err
	}
	list := make([]*Shortfall, 0, count)
	for i := uint64(0); i < count; i++ {
		sf, err := s.shortfalls.Get(seqKey(i))
		if err != nil {
			return nil, err
		}
		list = append(list, sf)
	}
	return list, nil
}
