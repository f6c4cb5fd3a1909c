// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package linkedlist

import (
	"math/big"

	"github.com/vechain/stakingpool/builtin/solidity"
	"github.com/vechain/stakingpool/thor"
)

// LinkedList is a storage backed list of unique addresses kept in insertion order.
type LinkedList struct {
	head  *solidity.Address
	tail  *solidity.Address
	count *solidity.Uint256
	next  *solidity.Mapping[thor.Address, thor.Address]
	prev  *solidity.Mapping[thor.Address, thor.Address]
}

// NewLinkedList creates a new linked list with persistent storage mappings.
func NewLinkedList(sctx *solidity.Context, headPos, tailPos, countPos thor.Bytes32) *LinkedList {
	return &LinkedList{
		head:  solidity.NewAddress(sctx, headPos),
		tail:  solidity.NewAddress(sctx, tailPos),
		count: solidity.NewUint256(sctx, countPos),
		next:  solidity.NewMapping[thor.Address, thor.Address](sctx, headPos),
		prev:  solidity.NewMapping[thor.Address, thor.Address](sctx, tailPos),
	}
}

// Contains reports whether address is in the list.
func (l *LinkedList) Contains(address thor.Address) (bool, error) {
	if address.IsZero() {
		return false, nil
	}
	prev, err := l.prev.Get(address)
	if err != nil {
		return false, err
	}
	if !prev.IsZero() {
		return true, nil
	}
	head, err := l.head.Get()
	if err != nil {
		return false, err
	}
	return head == address, nil
}

// Add appends an address to the end of the list. Adding a listed address is a no-op.
func (l *LinkedList) Add(address thor.Address) error {
	if ok, err := l.Contains(address); err != nil || ok {
		return err
	}

	oldTail, err := l.tail.Get()
	if err != nil {
		return err
	}

	if oldTail.IsZero() {
		// the list is currently empty, set this entry to head & tail
		l.head.Set(address)
		l.tail.Set(address)
		return l.count.Add(big.NewInt(1))
	}

	if err := l.next.Set(oldTail, address); err != nil {
		return err
	}
	if err := l.prev.Set(address, oldTail); err != nil {
		return err
	}
	l.tail.Set(address)

	return l.count.Add(big.NewInt(1))
}

// Remove extracts an address from anywhere in the list, reconnecting adjacent nodes.
func (l *LinkedList) Remove(address thor.Address) error {
	ok, err := l.Contains(address)
	if err != nil || !ok {
		return err
	}

	prev, err := l.prev.Get(address)
	if err != nil {
		return err
	}
	next, err := l.next.Get(address)
	if err != nil {
		return err
	}

	if !prev.IsZero() {
		if err := l.next.Set(prev, next); err != nil {
			return err
		}
	} else {
		l.head.Set(next)
	}

	if !next.IsZero() {
		if err := l.prev.Set(next, prev); err != nil {
			return err
		}
	} else {
		l.tail.Set(prev)
	}

	l.next.Delete(address)
	l.prev.Delete(address)

	return l.count.Sub(big.NewInt(1))
}

// Len returns the number of addresses in the list.
func (l *LinkedList) Len() (uint64, error) {
	count, err := l.count.Get()
	if err != nil {
		return 0, err
	}
	return count.Uint64(), nil
}

// Head returns the oldest address, zero if empty.
func (l *LinkedList) Head() (thor.Address, error) {
	return l.head.Get()
}

// Next returns the successor address in the list, or zero address if at the end.
func (l *LinkedList) Next(address thor.Address) (thor.Address, error) {
	return l.next.Get(address)
}

// Iter traverses the list in insertion order, calling callback for each address until completion or error.
func (l *LinkedList) Iter(callback func(thor.Address) error) error {
	ptr, err := l.head.Get()
	if err != nil {
		return err
	}

	for !ptr.IsZero() {
		if err := callback(ptr); err != nil {
			return err
		}
		if ptr, err = l.next.Get(ptr); err != nil {
			return err
		}
	}
	return nil
}
