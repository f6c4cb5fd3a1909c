// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"bytes"
	"io"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/vechain/stakingpool/cache"
	"github.com/vechain/stakingpool/kv"
	"github.com/vechain/stakingpool/thor"
)

// Stage abstracts the pending storage changes.
type Stage struct {
	store   kv.Store
	cache   *cache.LRU
	changes map[storageKey]rlp.RawValue
	order   []storageKey
}

// Len returns count of changed slots.
func (s *Stage) Len() int {
	return len(s.changes)
}

// Hash computes digest of the pending changes. It's independent of the order changes were made.
func (s *Stage) Hash() thor.Bytes32 {
	keys := make([][]byte, 0, len(s.order))
	for _, k := range s.order {
		keys = append(keys, k.bytes())
	}
	sort.Slice(keys, func(i, j int) bool { return bytes.Compare(keys[i], keys[j]) < 0 })

	return thor.Blake2bFn(func(w io.Writer) {
		for _, k := range keys {
			w.Write(k)
			var key storageKey
			copy(key.addr[:], k[:thor.AddressLength])
			copy(key.key[:], k[thor.AddressLength:])
			w.Write(s.changes[key])
		}
	})
}

// Commit writes all changes into the store.
func (s *Stage) Commit() (thor.Bytes32, error) {
	bulk := s.store.Bulk()
	for _, k := range s.order {
		v := s.changes[k]
		var err error
		if len(v) == 0 {
			err = bulk.Delete(k.bytes())
		} else {
			err = bulk.Put(k.bytes(), v)
		}
		if err != nil {
			return thor.Bytes32{}, &Error{err}
		}
	}
	if err := bulk.Write(); err != nil {
		return thor.Bytes32{}, &Error{err}
	}
	for _, k := range s.order {
		s.cache.Add(k, s.changes[k])
	}
	metricStorageAccess().AddWithLabel(int64(len(s.order)), map[string]string{"type": "write"})
	return s.Hash(), nil
}
