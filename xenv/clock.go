// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package xenv

import "sync/atomic"

// Clock supplies the block context a ledger call executes in.
type Clock interface {
	BlockNumber() uint32
	BlockTime() uint64
}

// BlockContext block context.
type BlockContext struct {
	Number uint32
	Time   uint64
}

func (b *BlockContext) BlockNumber() uint32 { return b.Number }
func (b *BlockContext) BlockTime() uint64   { return b.Time }

// ManualClock is a Clock advanced explicitly by its owner.
type ManualClock struct {
	number atomic.Uint32
	time   atomic.Uint64
}

// NewManualClock creates a clock at the given block.
func NewManualClock(number uint32, time uint64) *ManualClock {
	c := &ManualClock{}
	c.Set(number, time)
	return c
}

func (c *ManualClock) BlockNumber() uint32 { return c.number.Load() }
func (c *ManualClock) BlockTime() uint64   { return c.time.Load() }

// Set moves the clock to the given block.
func (c *ManualClock) Set(number uint32, time uint64) {
	c.number.Store(number)
	c.time.Store(time)
}

// Advance moves forward by one block and the given seconds.
func (c *ManualClock) Advance(seconds uint64) {
	c.number.Add(1)
	c.time.Add(seconds)
}
