// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package borrowing

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
	slotBorrowers         = thor.BytesToBytes32([]byte("borrowers"))
	slotBorrowersHead     = thor.BytesToBytes32([]byte("borrowers-head"))
	slotBorrowersTail     = thor.BytesToBytes32([]byte("borrowers-tail"))
	slotBorrowersCount    = thor.BytesToBytes32([]byte("borrowers-count"))
	slotRemainder         = thor.BytesToBytes32([]byte("allocation-remainder"))
	slotTotalBorrowed     = thor.BytesToBytes32([]byte("total-borrowed"))
	slotTotalBorrowerDebt = thor.BytesToBytes32([]byte("total-borrower-debt"))
)

// Service owns borrower positions and the allocation remainder.
type Service struct {
	borrowers         *solidity.Mapping[thor.Address, *Borrower]
	list              *linkedlist.LinkedList
	remainder         *solidity.Raw[*checkpoint.Checkpoint]
	totalBorrowed     *solidity.Uint256
	totalBorrowerDebt *solidity.Uint256
}

func New(sctx *solidity.Context) *Service {
	return &Service{
		borrowers:         solidity.NewMapping[thor.Address, *Borrower](sctx, slotBorrowers),
		list:              linkedlist.NewLinkedList(sctx, slotBorrowersHead, slotBorrowersTail, slotBorrowersCount),
		remainder:         solidity.NewRaw[*checkpoint.Checkpoint](sctx, slotRemainder),
		totalBorrowed:     solidity.NewUint256(sctx, slotTotalBorrowed),
		totalBorrowerDebt: solidity.NewUint256(sctx, slotTotalBorrowerDebt),
	}
}

// Init assigns the whole pool to the remainder bucket.
func (s *Service) Init() error {
	rem := checkpoint.New()
	rem.SetCurrentAndNext(bpsBase)
	return s.remainder.Set(rem)
}

// GetBorrower returns the borrower position as seen in epoch. Nothing is persisted.
func (s *Service) GetBorrower(addr thor.Address, epoch uint64) (*Borrower, error) {
	b, err := s.borrowers.Get(addr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get borrower")
	}
	b = b.clone()
	b.Allocation.Rollover(epoch)
	return b, nil
}

func (s *Service) setBorrower(addr thor.Address, b *Borrower) error {
	if b.IsEmpty() {
		s.borrowers.Delete(addr)
		return s.list.Remove(addr)
	}
	if err := s.borrowers.Set(addr, b); err != nil {
		return errors.Wrap(err, "failed to set borrower")
	}
	return s.list.Add(addr)
}

// Remainder returns the unallocated basis points as seen in epoch.
func (s *Service) Remainder(epoch uint64) (*checkpoint.Checkpoint, error) {
	rem, err := s.remainder.Get()
	if err != nil {
		return nil, err
	}
	return rem.Load(epoch), nil
}

// TotalBorrowed returns the amount lent out.
func (s *Service) TotalBorrowed() (*big.Int, error) {
	return s.totalBorrowed.Get()
}

// TotalBorrowerDebt returns the amount of borrowed funds converted into debt and not yet repaid.
func (s *Service) TotalBorrowerDebt() (*big.Int, error) {
	return s.totalBorrowerDebt.Get()
}

// SetAllocations sets the next allocation of each borrower, and the current one too
// when applyNow is set. The remainder absorbs the difference.
func (s *Service) SetAllocations(borrowers []thor.Address, bps []uint64, epoch uint64, applyNow bool) error {
	if len(borrowers) != len(bps) {
		return reverts.ErrAllocationSumMismatch
	}
	rem, err := s.Remainder(epoch)
	if err != nil {
		return err
	}
	updated := make(map[thor.Address]*Borrower, len(borrowers))
	order := make([]thor.Address, 0, len(borrowers))
	for i, addr := range borrowers {
		if addr.IsZero() || bps[i] > MaxAllocation {
			return reverts.ErrAllocationSumMismatch
		}
		b, ok := updated[addr]
		if !ok {
			if b, err = s.GetBorrower(addr, epoch); err != nil {
				return err
			}
			updated[addr] = b
			order = append(order, addr)
		}
		value := new(big.Int).SetUint64(bps[i])

		rem.Next.Add(rem.Next, b.Allocation.Next)
		rem.Next.Sub(rem.Next, value)
		if applyNow {
			rem.Current.Add(rem.Current, b.Allocation.Current)
			rem.Current.Sub(rem.Current, value)
			b.Allocation.SetCurrentAndNext(value)
		} else {
			b.Allocation.SetNext(value)
		}
	}
	if !inRange(rem.Current) || !inRange(rem.Next) {
		return reverts.ErrAllocationSumMismatch
	}
	for _, addr := range order {
		if err := s.setBorrower(addr, updated[addr]); err != nil {
			return err
		}
	}
	return s.remainder.Set(rem)
}

func inRange(v *big.Int) bool {
	return v.Sign() >= 0 && v.Cmp(bpsBase) <= 0
}

// Borrowable returns what the borrower may borrow given the current and next active totals
// and the liquidity left once pending withdrawals are honoured.
func (s *Service) Borrowable(addr thor.Address, epoch uint64, activeCurrent, activeNext, liquidity *big.Int) (*big.Int, error) {
	b, err := s.GetBorrower(addr, epoch)
	if err != nil {
		return nil, err
	}
	if b.Restricted {
		return new(big.Int), nil
	}
	amount := new(big.Int).Sub(share(b.Allocation.Current, activeCurrent), b.Borrowed)
	next := new(big.Int).Sub(share(b.Allocation.Next, activeNext), b.Borrowed)
	if next.Cmp(amount) < 0 {
		amount = next
	}
	if liquidity.Cmp(amount) < 0 {
		amount = new(big.Int).Set(liquidity)
	}
	if amount.Sign() < 0 {
		return amount.SetUint64(0), nil
	}
	return amount, nil
}

// Borrow records amount as lent to the borrower. Limits are checked by the caller.
func (s *Service) Borrow(addr thor.Address, amount *big.Int, epoch uint64) error {
	b, err := s.GetBorrower(addr, epoch)
	if err != nil {
		return err
	}
	if b.Restricted {
		return reverts.ErrExceedsBorrowable
	}
	b.Borrowed.Add(b.Borrowed, amount)
	if err := s.setBorrower(addr, b); err != nil {
		return err
	}
	return s.totalBorrowed.Add(amount)
}

// Repay lowers the borrowed balance.
func (s *Service) Repay(addr thor.Address, amount *big.Int, epoch uint64) error {
	b, err := s.GetBorrower(addr, epoch)
	if err != nil {
		return err
	}
	if amount.Cmp(b.Borrowed) > 0 {
		return reverts.ErrRepayExceedsBorrowed
	}
	b.Borrowed.Sub(b.Borrowed, amount)
	if err := s.setBorrower(addr, b); err != nil {
		return err
	}
	return s.totalBorrowed.Sub(amount)
}

// ConvertToDebt turns amount of the borrowed balance into a fixed debt and restricts the borrower.
func (s *Service) ConvertToDebt(addr thor.Address, amount *big.Int, epoch uint64) error {
	b, err := s.GetBorrower(addr, epoch)
	if err != nil {
		return err
	}
	if amount.Cmp(b.Borrowed) > 0 {
		return reverts.ErrUnderflow
	}
	b.Borrowed.Sub(b.Borrowed, amount)
	b.Debt.Add(b.Debt, amount)
	b.Restricted = true
	if err := s.setBorrower(addr, b); err != nil {
		return err
	}
	if err := s.totalBorrowed.Sub(amount); err != nil {
		return err
	}
	return s.totalBorrowerDebt.Add(amount)
}

// RepayDebt lowers the debt of the borrower.
func (s *Service) RepayDebt(addr thor.Address, amount *big.Int, epoch uint64) error {
	b, err := s.GetBorrower(addr, epoch)
	if err != nil {
		return err
	}
	if amount.Cmp(b.Debt) > 0 {
		return reverts.ErrRepayExceedsDebt
	}
	b.Debt.Sub(b.Debt, amount)
	if err := s.setBorrower(addr, b); err != nil {
		return err
	}
	return s.totalBorrowerDebt.Sub(amount)
}

// SetRestricted blocks or releases further borrowing.
func (s *Service) SetRestricted(addr thor.Address, restricted bool, epoch uint64) error {
	b, err := s.GetBorrower(addr, epoch)
	if err != nil {
		return err
	}
	b.Restricted = restricted
	return s.setBorrower(addr, b)
}

// Covered sums min(borrowed, allocated) over all borrowers against the current total active.
func (s *Service) Covered(epoch uint64, totalActive *big.Int) (*big.Int, error) {
	sum := new(big.Int)
	err := s.list.Iter(func(addr thor.Address) error {
		b, err := s.GetBorrower(addr, epoch)
		if err != nil {
			return err
		}
		covered := b.Allocated(totalActive)
		if b.Borrowed.Cmp(covered) < 0 {
			covered = b.Borrowed
		}
		sum.Add(sum, covered)
		return nil
	})
	return sum, err
}

// Overdue returns the overdue amount of every listed borrower, in list order.
func (s *Service) Overdue(epoch uint64, totalActive *big.Int) ([]thor.Address, map[thor.Address]*big.Int, error) {
	order := make([]thor.Address, 0)
	overdue := make(map[thor.Address]*big.Int)
	err := s.list.Iter(func(addr thor.Address) error {
		b, err := s.GetBorrower(addr, epoch)
		if err != nil {
			return err
		}
		if o := b.Overdue(totalActive); o.Sign() > 0 {
			order = append(order, addr)
			overdue[addr] = o
		}
		return nil
	})
	return order, overdue, err
}

// IterBorrowers visits listed borrowers in the order they were first allocated.
func (s *Service) IterBorrowers(callback func(thor.Address) error) error {
	return s.list.Iter(callback)
}
