// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"github.com/vechain/stakingpool/cache"
	"github.com/vechain/stakingpool/kv"
)

// DefaultCacheSize is the slot count kept by the read cache.
const DefaultCacheSize = 16384

// Stater is the state creator. States created by the same Stater share one read cache.
type Stater struct {
	store kv.Store
	cache *cache.LRU
}

// NewStater create a new stater.
func NewStater(store kv.Store, cacheSize int) (*Stater, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	c, err := cache.NewLRU(cacheSize)
	if err != nil {
		return nil, err
	}
	return &Stater{store, c}, nil
}

// NewState create a new state object on top of committed storage.
func (s *Stater) NewState() *State {
	return New(s.store, s.cache)
}

// CacheStats returns hit and miss counts of the shared read cache.
func (s *Stater) CacheStats() (hit, miss int64) {
	return s.cache.Stats()
}
