// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package balances

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/stakingpool/builtin/solidity"
	"github.com/vechain/stakingpool/builtin/staking/checkpoint"
	"github.com/vechain/stakingpool/builtin/staking/linkedlist"
	"github.com/vechain/stakingpool/builtin/staking/reverts"
	"github.com/vechain/stakingpool/thor"
)

var (
	slotStakers       = thor.BytesToBytes32([]byte("stakers"))
	slotStakersHead   = thor.BytesToBytes32([]byte("stakers-head"))
	slotStakersTail   = thor.BytesToBytes32([]byte("stakers-tail"))
	slotStakersCount  = thor.BytesToBytes32([]byte("stakers-count"))
	slotTotalActive   = thor.BytesToBytes32([]byte("total-active"))
	slotTotalInactive = thor.BytesToBytes32([]byte("total-inactive"))

	// IndexBase is the fixed point base of the shortfall index.
	IndexBase = big.NewInt(1e18)
)

// Service owns staker positions and pool totals.
type Service struct {
	stakers       *solidity.Mapping[thor.Address, *Staker]
	list          *linkedlist.LinkedList
	totalActive   *solidity.Raw[*checkpoint.Checkpoint]
	totalInactive *solidity.Raw[*checkpoint.Checkpoint]
}

func New(sctx *solidity.Context) *Service {
	return &Service{
		stakers:       solidity.NewMapping[thor.Address, *Staker](sctx, slotStakers),
		list:          linkedlist.NewLinkedList(sctx, slotStakersHead, slotStakersTail, slotStakersCount),
		totalActive:   solidity.NewRaw[*checkpoint.Checkpoint](sctx, slotTotalActive),
		totalInactive: solidity.NewRaw[*checkpoint.Checkpoint](sctx, slotTotalInactive),
	}
}

// GetStaker returns the staker position as seen in epoch. Nothing is persisted.
func (s *Service) GetStaker(addr thor.Address, epoch uint64) (*Staker, error) {
	stored, err := s.stakers.Get(addr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get staker")
	}
	return stored.load(epoch), nil
}

// GetStoredStaker returns the staker position without rolling it over.
func (s *Service) GetStoredStaker(addr thor.Address) (*Staker, error) {
	stored, err := s.stakers.Get(addr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get staker")
	}
	return stored.clone(), nil
}

func (s *Service) setStaker(addr thor.Address, staker *Staker) error {
	if err := s.stakers.Set(addr, staker); err != nil {
		return errors.Wrap(err, "failed to set staker")
	}
	return s.list.Add(addr)
}

// Totals returns the pool totals as seen in epoch.
func (s *Service) Totals(epoch uint64) (*Totals, error) {
	active, err := s.totalActive.Get()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get total active")
	}
	inactive, err := s.totalInactive.Get()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get total inactive")
	}
	return &Totals{Active: active.Load(epoch), Inactive: inactive.Load(epoch)}, nil
}

// StoredTotalActive returns the total active checkpoint as persisted.
func (s *Service) StoredTotalActive() (*checkpoint.Checkpoint, error) {
	active, err := s.totalActive.Get()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get total active")
	}
	return active.Clone(), nil
}

func (s *Service) setTotals(totals *Totals) error {
	if err := s.totalActive.Set(totals.Active); err != nil {
		return err
	}
	return s.totalInactive.Set(totals.Inactive)
}

// Stake credits amount to the active balance with immediate effect.
func (s *Service) Stake(addr thor.Address, amount *big.Int, epoch uint64) error {
	staker, totals, err := s.load(addr, epoch)
	if err != nil {
		return err
	}
	staker.Active.IncreaseCurrentAndNext(amount)
	totals.Active.IncreaseCurrentAndNext(amount)
	return s.save(addr, staker, totals)
}

// RequestWithdrawal moves amount from active to inactive as of the next epoch.
func (s *Service) RequestWithdrawal(addr thor.Address, amount *big.Int, epoch uint64) error {
	staker, totals, err := s.load(addr, epoch)
	if err != nil {
		return err
	}
	if amount.Cmp(staker.Active.Next) > 0 {
		return reverts.ErrExceedsNextActiveBalance
	}
	if err := staker.Active.DecreaseNext(amount); err != nil {
		return err
	}
	staker.Inactive.IncreaseNext(amount)
	if err := totals.Active.DecreaseNext(amount); err != nil {
		return err
	}
	totals.Inactive.IncreaseNext(amount)
	return s.save(addr, staker, totals)
}

// Withdraw removes amount from the settled inactive balance.
func (s *Service) Withdraw(addr thor.Address, amount *big.Int, epoch uint64) error {
	staker, totals, err := s.load(addr, epoch)
	if err != nil {
		return err
	}
	if amount.Cmp(staker.Inactive.Current) > 0 {
		return reverts.ErrExceedsAvailable
	}
	if err := staker.Inactive.DecreaseCurrentAndNext(amount); err != nil {
		return err
	}
	if err := totals.Inactive.DecreaseCurrentAndNext(amount); err != nil {
		return err
	}
	return s.save(addr, staker, totals)
}

// Transfer moves an active position between stakers. Totals are unchanged.
func (s *Service) Transfer(from, to thor.Address, amount *big.Int, epoch uint64) error {
	sender, err := s.GetStaker(from, epoch)
	if err != nil {
		return err
	}
	if amount.Cmp(sender.Active.Current) > 0 || amount.Cmp(sender.Active.Next) > 0 {
		return reverts.ErrExceedsNextActiveBalance
	}
	if err := sender.Active.DecreaseCurrentAndNext(amount); err != nil {
		return err
	}
	if err := s.setStaker(from, sender); err != nil {
		return err
	}
	// reload, from and to may be the same account
	recipient, err := s.GetStaker(to, epoch)
	if err != nil {
		return err
	}
	recipient.Active.IncreaseCurrentAndNext(amount)
	return s.setStaker(to, recipient)
}

// WithdrawDebt lowers the debt claim of a staker.
func (s *Service) WithdrawDebt(addr thor.Address, amount *big.Int, epoch uint64) error {
	staker, err := s.GetStaker(addr, epoch)
	if err != nil {
		return err
	}
	if amount.Cmp(staker.Debt) > 0 {
		return reverts.ErrExceedsAvailable
	}
	staker.Debt.Sub(staker.Debt, amount)
	return s.setStaker(addr, staker)
}

// Loss is the part of an inactive balance converted into debt.
type Loss struct {
	Staker thor.Address
	Amount *big.Int
}

// Haircut scales every settled inactive balance by index (1e18 base) and
// credits the difference to the staker debt. It returns the total loss and the loss of each staker.
func (s *Service) Haircut(index *big.Int, epoch uint64) (*big.Int, []Loss, error) {
	total := new(big.Int)
	affected := make([]Loss, 0)

	err := s.list.Iter(func(addr thor.Address) error {
		stored, err := s.stakers.Get(addr)
		if err != nil {
			return errors.Wrap(err, "failed to get staker")
		}
		// active stays as stored, its epoch drives reward settlement
		staker := stored.clone()
		staker.Inactive.Rollover(epoch)
		cur := staker.Inactive.Current
		if cur.Sign() == 0 {
			return nil
		}
		kept := new(big.Int).Mul(cur, index)
		kept.Div(kept, IndexBase)
		loss := new(big.Int).Sub(cur, kept)
		if loss.Sign() == 0 {
			return nil
		}
		if err := staker.Inactive.DecreaseCurrentAndNext(loss); err != nil {
			return err
		}
		staker.Debt.Add(staker.Debt, loss)
		if err := s.setStaker(addr, staker); err != nil {
			return err
		}
		total.Add(total, loss)
		affected = append(affected, Loss{Staker: addr, Amount: loss})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if total.Sign() > 0 {
		totals, err := s.Totals(epoch)
		if err != nil {
			return nil, nil, err
		}
		if err := totals.Inactive.DecreaseCurrentAndNext(total); err != nil {
			return nil, nil, err
		}
		if err := s.setTotals(totals); err != nil {
			return nil, nil, err
		}
	}
	return total, affected, nil
}

// StakerCount returns the number of stakers ever seen.
func (s *Service) StakerCount() (uint64, error) {
	return s.list.Len()
}

// IterStakers visits stakers in the order they first staked.
func (s *Service) IterStakers(callback func(thor.Address) error) error {
	return s.list.Iter(callback)
}

func (s *Service) load(addr thor.Address, epoch uint64) (*Staker, *Totals, error) {
	staker, err := s.GetStaker(addr, epoch)
	if err != nil {
		return nil, nil, err
	}
	totals, err := s.Totals(epoch)
	if err != nil {
		return nil, nil, err
	}
	return staker, totals, nil
}

func (s *Service) save(addr thor.Address, staker *Staker, totals *Totals) error {
	if err := s.setStaker(addr, staker); err != nil {
		return err
	}
	return s.setTotals(totals)
}
