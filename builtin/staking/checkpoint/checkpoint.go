// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package checkpoint

import (
	"math/big"

	"github.com/vechain/stakingpool/builtin/staking/reverts"
)

// Checkpoint is a value that takes effect in two steps.
// Current is the settled value of the cached epoch, Next is what Current becomes once the epoch rolls over.
type Checkpoint struct {
	Current     *big.Int
	Next        *big.Int
	CachedEpoch uint64
}

// New returns a zero checkpoint.
func New() *Checkpoint {
	return &Checkpoint{
		Current: new(big.Int),
		Next:    new(big.Int),
	}
}

// Load returns a copy rolled over to the given epoch. The receiver is not modified.
func (c *Checkpoint) Load(epoch uint64) *Checkpoint {
	cpy := c.Clone()
	cpy.Rollover(epoch)
	return cpy
}

// Clone returns a deep copy.
func (c *Checkpoint) Clone() *Checkpoint {
	cpy := New()
	if c == nil {
		return cpy
	}
	if c.Current != nil {
		cpy.Current.Set(c.Current)
	}
	if c.Next != nil {
		cpy.Next.Set(c.Next)
	}
	cpy.CachedEpoch = c.CachedEpoch
	return cpy
}

// Rollover promotes Next to Current when epoch is past the cached one.
// Calling it again within the same epoch is a no-op.
func (c *Checkpoint) Rollover(epoch uint64) {
	if c.Current == nil {
		c.Current = new(big.Int)
	}
	if c.Next == nil {
		c.Next = new(big.Int)
	}
	if epoch <= c.CachedEpoch {
		return
	}
	c.Current.Set(c.Next)
	c.CachedEpoch = epoch
}

// IncreaseCurrentAndNext adds amount with immediate effect.
func (c *Checkpoint) IncreaseCurrentAndNext(amount *big.Int) {
	c.Current.Add(c.Current, amount)
	c.Next.Add(c.Next, amount)
}

// DecreaseCurrentAndNext removes amount with immediate effect.
func (c *Checkpoint) DecreaseCurrentAndNext(amount *big.Int) error {
	if c.Current.Cmp(amount) < 0 || c.Next.Cmp(amount) < 0 {
		return reverts.ErrUnderflow
	}
	c.Current.Sub(c.Current, amount)
	c.Next.Sub(c.Next, amount)
	return nil
}

// IncreaseNext adds amount from the next epoch on.
func (c *Checkpoint) IncreaseNext(amount *big.Int) {
	c.Next.Add(c.Next, amount)
}

// DecreaseNext removes amount from the next epoch on.
func (c *Checkpoint) DecreaseNext(amount *big.Int) error {
	if c.Next.Cmp(amount) < 0 {
		return reverts.ErrUnderflow
	}
	c.Next.Sub(c.Next, amount)
	return nil
}

// SetNext overrides the next value.
func (c *Checkpoint) SetNext(value *big.Int) {
	c.Next.Set(value)
}

// SetCurrentAndNext overrides both values.
func (c *Checkpoint) SetCurrentAndNext(value *big.Int) {
	c.Current.Set(value)
	c.Next.Set(value)
}

// IsZero reports whether both values are zero.
func (c *Checkpoint) IsZero() bool {
	return c.Current.Sign() == 0 && c.Next.Sign() == 0
}
