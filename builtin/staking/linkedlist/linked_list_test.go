// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package linkedlist

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/stakingpool/builtin/solidity"
	"github.com/vechain/stakingpool/lvldb"
	"github.com/vechain/stakingpool/state"
	"github.com/vechain/stakingpool/thor"
)

func newList(t *testing.T) *LinkedList {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	stater, err := state.NewStater(db, 0)
	require.NoError(t, err)

	sctx := solidity.NewContext(thor.BytesToAddress([]byte("pool")), stater.NewState())
	return NewLinkedList(sctx,
		thor.BytesToBytes32([]byte("list-head")),
		thor.BytesToBytes32([]byte("list-tail")),
		thor.BytesToBytes32([]byte("list-count")))
}

func collect(t *testing.T, l *LinkedList) []thor.Address {
	var out []thor.Address
	require.NoError(t, l.Iter(func(a thor.Address) error {
		out = append(out, a)
		return nil
	}))
	return out
}

func TestLinkedList(t *testing.T) {
	l := newList(t)
	a, b, c := thor.Address{1}, thor.Address{2}, thor.Address{3}

	assert.Empty(t, collect(t, l))

	for _, addr := range []thor.Address{a, b, c, b} {
		assert.NoError(t, l.Add(addr))
	}
	assert.Equal(t, []thor.Address{a, b, c}, collect(t, l))
	n, err := l.Len()
	assert.NoError(t, err)
	assert.Equal(t, uint64(3), n)

	ok, _ := l.Contains(b)
	assert.True(t, ok)
	ok, _ = l.Contains(thor.Address{4})
	assert.False(t, ok)
	ok, _ = l.Contains(thor.Address{})
	assert.False(t, ok)

	// middle
	assert.NoError(t, l.Remove(b))
	assert.Equal(t, []thor.Address{a, c}, collect(t, l))
	// head
	assert.NoError(t, l.Remove(a))
	head, _ := l.Head()
	assert.Equal(t, c, head)
	// not listed
	assert.NoError(t, l.Remove(a))
	// tail and last
	assert.NoError(t, l.Remove(c))
	assert.Empty(t, collect(t, l))
	n, _ = l.Len()
	assert.Equal(t, uint64(0), n)

	// reusable after draining
	assert.NoError(t, l.Add(b))
	assert.Equal(t, []thor.Address{b}, collect(t, l))
	next, _ := l.Next(b)
	assert.True(t, next.IsZero())
}

func TestIterStopsOnError(t *testing.T) {
	l := newList(t)
	require.NoError(t, l.Add(thor.Address{1}))
	require.NoError(t, l.Add(thor.Address{2}))

	stop := errors.New("stop")
	visited := 0
	err := l.Iter(func(thor.Address) error {
		visited++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, visited)
}
