// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package eventdb_test

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/stakingpool/eventdb"
	"github.com/vechain/stakingpool/thor"
)

var (
	poolA = thor.BytesToAddress([]byte("pool-a"))
	poolB = thor.BytesToAddress([]byte("pool-b"))
	alice = thor.BytesToAddress([]byte("alice"))
	bob   = thor.BytesToAddress([]byte("bob"))
)

func newEvent(block, index uint32, pool thor.Address, name string, account, counterparty thor.Address, amount int64) *eventdb.Event {
	return &eventdb.Event{
		BlockNumber:  block,
		Index:        index,
		BlockTime:    1000 + uint64(block)*10,
		Pool:         pool,
		Name:         name,
		Topic:        thor.Keccak256([]byte(name)),
		Account:      account,
		Counterparty: counterparty,
		Amount:       big.NewInt(amount),
	}
}

func TestEventDB(t *testing.T) {
	db, err := eventdb.NewMem()
	require.NoError(t, err)
	defer db.Close()
	assert.NotEmpty(t, db.DriverVersion())

	ctx := context.Background()
	last, err := db.LastBlock(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), last)

	staked := newEvent(1, 0, poolA, "Staked", alice, alice, 100)
	staked.Meta = map[string]string{"staked": "100"}
	events := []*eventdb.Event{
		staked,
		newEvent(1, 1, poolB, "Staked", bob, bob, 50),
		newEvent(2, 0, poolA, "Transfer", alice, bob, 30),
		newEvent(3, 0, poolA, "WithdrawalRequested", bob, bob, 10),
	}
	require.NoError(t, db.Write(events))
	require.NoError(t, db.Write(nil))

	last, err = db.LastBlock(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), last)

	all, err := db.Filter(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, events[0], all[0])

	tests := []struct {
		name   string
		filter *eventdb.Filter
		want   []*eventdb.Event
	}{
		{"by pool", &eventdb.Filter{Pool: &poolB}, []*eventdb.Event{events[1]}},
		{"by account either side", &eventdb.Filter{Account: &bob}, []*eventdb.Event{events[1], events[2], events[3]}},
		{"by name", &eventdb.Filter{Name: "Staked"}, []*eventdb.Event{events[0], events[1]}},
		{"by range", &eventdb.Filter{Range: &eventdb.Range{From: 2, To: 2}}, []*eventdb.Event{events[2]}},
		{"open range", &eventdb.Filter{Range: &eventdb.Range{From: 2}}, []*eventdb.Event{events[2], events[3]}},
		{"desc with limit", &eventdb.Filter{Order: eventdb.DESC, Options: &eventdb.Options{Limit: 2}}, []*eventdb.Event{events[3], events[2]}},
		{"offset", &eventdb.Filter{Options: &eventdb.Options{Offset: 3, Limit: 10}}, []*eventdb.Event{events[3]}},
		{"no match", &eventdb.Filter{Pool: &poolB, Name: "Transfer"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.Filter(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEventDBReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")

	db, err := eventdb.New(path)
	require.NoError(t, err)
	require.NoError(t, db.Write([]*eventdb.Event{newEvent(7, 0, poolA, "Slashed", alice, bob, 5)}))
	require.NoError(t, db.Close())

	db, err = eventdb.New(path)
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, path, db.Path())

	last, err := db.LastBlock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint32(7), last)
}
