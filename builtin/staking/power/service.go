// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package power

import (
	"math/big"
	"sort"

	"github.com/pkg/errors"

	"github.com/vechain/stakingpool/builtin/solidity"
	"github.com/vechain/stakingpool/builtin/staking/reverts"
	"github.com/vechain/stakingpool/thor"
)

var (
	slotDelegatees  = thor.BytesToBytes32([]byte("power-delegatees"))
	slotCheckpoints = thor.BytesToBytes32([]byte("power-checkpoints"))
	slotLengths     = thor.BytesToBytes32([]byte("power-lengths"))
)

// Service keeps per block power checkpoints and delegations.
type Service struct {
	delegatees  *solidity.Mapping[accountKey, thor.Address]
	checkpoints *solidity.Mapping[seriesKey, *Checkpoint]
	lengths     *solidity.Mapping[accountKey, uint64]
}

func New(sctx *solidity.Context) *Service {
	return &Service{
		delegatees:  solidity.NewMapping[accountKey, thor.Address](sctx, slotDelegatees),
		checkpoints: solidity.NewMapping[seriesKey, *Checkpoint](sctx, slotCheckpoints),
		lengths:     solidity.NewMapping[accountKey, uint64](sctx, slotLengths),
	}
}

// Delegatee returns who receives the power of account, the account itself by default.
func (s *Service) Delegatee(account thor.Address, typ Type) (thor.Address, error) {
	delegatee, err := s.delegatees.Get(accountKey{account, typ})
	if err != nil {
		return thor.Address{}, errors.Wrap(err, "failed to get delegatee")
	}
	if delegatee.IsZero() {
		return account, nil
	}
	return delegatee, nil
}

// Delegate points the power of account to delegatee and moves balance along.
// It returns the previous delegatee.
func (s *Service) Delegate(account, delegatee thor.Address, typ Type, balance *big.Int, block uint32) (thor.Address, error) {
	prev, err := s.Delegatee(account, typ)
	if err != nil {
		return thor.Address{}, err
	}
	if delegatee.IsZero() {
		delegatee = account
	}
	if prev == delegatee {
		return prev, nil
	}
	if delegatee == account {
		s.delegatees.Delete(accountKey{account, typ})
	} else if err := s.delegatees.Set(accountKey{account, typ}, delegatee); err != nil {
		return thor.Address{}, err
	}
	if err := s.Adjust(prev, typ, new(big.Int).Neg(balance), block); err != nil {
		return thor.Address{}, err
	}
	return prev, s.Adjust(delegatee, typ, balance, block)
}

// Move adds delta (may be negative) of the balance of account to its delegatee for every type.
func (s *Service) Move(account thor.Address, delta *big.Int, block uint32) error {
	if delta.Sign() == 0 {
		return nil
	}
	for _, typ := range Types {
		delegatee, err := s.Delegatee(account, typ)
		if err != nil {
			return err
		}
		if err := s.Adjust(delegatee, typ, delta, block); err != nil {
			return err
		}
	}
	return nil
}

// Adjust appends a checkpoint changed by delta. Writes within one block overwrite the last checkpoint.
func (s *Service) Adjust(account thor.Address, typ Type, delta *big.Int, block uint32) error {
	if delta.Sign() == 0 {
		return nil
	}
	key := accountKey{account, typ}
	length, err := s.lengths.Get(key)
	if err != nil {
		return err
	}
	current := new(big.Int)
	if length > 0 {
		last, err := s.checkpoints.Get(seriesKey{key, length - 1})
		if err != nil {
			return err
		}
		current.Set(last.Power)
		if last.Block == block {
			length--
		} else if last.Block > block {
			return reverts.ErrInvalidBlockNumber
		}
	}
	current.Add(current, delta)
	if current.Sign() < 0 {
		return reverts.ErrUnderflow
	}
	if err := s.checkpoints.Set(seriesKey{key, length}, &Checkpoint{Block: block, Power: current}); err != nil {
		return errors.Wrap(err, "failed to set power checkpoint")
	}
	return s.lengths.Set(key, length+1)
}

// Power returns the latest power of account.
func (s *Service) Power(account thor.Address, typ Type) (*big.Int, error) {
	key := accountKey{account, typ}
	length, err := s.lengths.Get(key)
	if err != nil {
		return nil, err
	}
	if length == 0 {
		return new(big.Int), nil
	}
	last, err := s.checkpoints.Get(seriesKey{key, length - 1})
	if err != nil {
		return nil, err
	}
	return last.Power, nil
}

// PowerAt returns the checkpoint in effect at block. The block of a zero checkpoint is zero.
func (s *Service) PowerAt(account thor.Address, typ Type, block, currentBlock uint32) (*Checkpoint, error) {
	if block > currentBlock {
		return nil, reverts.ErrInvalidBlockNumber
	}
	key := accountKey{account, typ}
	length, err := s.lengths.Get(key)
	if err != nil {
		return nil, err
	}

	var searchErr error
	// first checkpoint after block
	i := sort.Search(int(length), func(i int) bool {
		if searchErr != nil {
			return true
		}
		cp, err := s.checkpoints.Get(seriesKey{key, uint64(i)})
		if err != nil {
			searchErr = err
			return true
		}
		return cp.Block > block
	})
	if searchErr != nil {
		return nil, searchErr
	}
	if i == 0 {
		return &Checkpoint{Power: new(big.Int)}, nil
	}
	return s.checkpoints.Get(seriesKey{key, uint64(i - 1)})
}

// Checkpoints returns the whole series of account.
func (s *Service) Checkpoints(account thor.Address, typ Type) ([]*Checkpoint, error) {
	key := accountKey{account, typ}
	length, err := s.lengths.Get(key)
	if err != nil {
		return nil, err
	}
	list := make([]*Checkpoint, 0, length)
	for i := uint64(0); i < length; i++ {
		cp, err := s.checkpoints.Get(seriesKey{key, i})
		if err != nil {
			return nil, err
		}
		list = append(list, cp)
	}
	return list, nil
}
