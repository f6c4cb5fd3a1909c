// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package eventdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"math/big"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/vechain/stakingpool/thor"
)

const insertEventQuery = "INSERT OR REPLACE INTO event(blockNumber, eventIndex, blockTime, pool, name, topic, account, counterparty, amount, meta) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);"

// EventDB stores the event history of every pool.
type EventDB struct {
	path          string
	db            *sql.DB
	driverVersion string
}

// New create or open event db at given path.
func New(path string) (eventDB *EventDB, err error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if eventDB == nil {
			db.Close()
		}
	}()
	// a memory db lives as long as its single connection
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(eventTableSchema); err != nil {
		return nil, errors.Wrap(err, "create event table")
	}

	driverVer, _, _ := sqlite3.Version()
	return &EventDB{
		path,
		db,
		driverVer,
	}, nil
}

// NewMem create an event db in ram.
func NewMem() (*EventDB, error) {
	return New(":memory:")
}

// Close close the event db.
func (db *EventDB) Close() error {
	return db.db.Close()
}

func (db *EventDB) Path() string {
	return db.path
}

// DriverVersion returns the sqlite library version.
func (db *EventDB) DriverVersion() string {
	return db.driverVersion
}

// Write stores events in one transaction.
func (db *EventDB) Write(events []*Event) (err error) {
	if len(events) == 0 {
		return nil
	}
	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()
	stmt, err := tx.Prepare(insertEventQuery)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, ev := range events {
		var meta []byte
		if len(ev.Meta) > 0 {
			if meta, err = json.Marshal(ev.Meta); err != nil {
				return err
			}
		}
		amount := ev.Amount
		if amount == nil {
			amount = new(big.Int)
		}
		if _, err = stmt.Exec(
			ev.BlockNumber,
			ev.Index,
			ev.BlockTime,
			ev.Pool.Bytes(),
			ev.Name,
			ev.Topic.Bytes(),
			ev.Account.Bytes(),
			ev.Counterparty.Bytes(),
			amount.String(),
			meta,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LastBlock returns the highest block number with events, zero for an empty db.
func (db *EventDB) LastBlock(ctx context.Context) (uint32, error) {
	var n sql.NullInt64
	if err := db.db.QueryRowContext(ctx, "SELECT MAX(blockNumber) FROM event").Scan(&n); err != nil {
		return 0, err
	}
	return uint32(n.Int64), nil
}

// Filter returns the events matching filter, all of them when filter is nil.
func (db *EventDB) Filter(ctx context.Context, filter *Filter) ([]*Event, error) {
	const selectEvents = "SELECT blockNumber, eventIndex, blockTime, pool, name, topic, account, counterparty, amount, meta FROM event"
	if filter == nil {
		return db.queryEvents(ctx, selectEvents+" ORDER BY blockNumber ASC, eventIndex ASC")
	}
	var args []any
	stmt := selectEvents + " WHERE 1"
	if filter.Range != nil {
		args = append(args, filter.Range.From)
		stmt += " AND blockNumber >= ?"
		if filter.Range.To >= filter.Range.From {
			args = append(args, filter.Range.To)
			stmt += " AND blockNumber <= ?"
		}
	}
	if filter.Pool != nil {
		args = append(args, filter.Pool.Bytes())
		stmt += " AND pool = ?"
	}
	if filter.Account != nil {
		args = append(args, filter.Account.Bytes(), filter.Account.Bytes())
		stmt += " AND (account = ? OR counterparty = ?)"
	}
	if filter.Name != "" {
		args = append(args, thor.Keccak256([]byte(filter.Name)).Bytes())
		stmt += " AND topic = ?"
	}

	if filter.Order == DESC {
		stmt += " ORDER BY blockNumber DESC, eventIndex DESC"
	} else {
		stmt += " ORDER BY blockNumber ASC, eventIndex ASC"
	}
	if filter.Options != nil {
		stmt += " LIMIT ?, ?"
		args = append(args, filter.Options.Offset, filter.Options.Limit)
	}
	return db.queryEvents(ctx, stmt, args...)
}

func (db *EventDB) queryEvents(ctx context.Context, stmt string, args ...any) ([]*Event, error) {
	rows, err := db.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		var (
			blockNumber  uint32
			index        uint32
			blockTime    uint64
			pool         []byte
			name         string
			topic        []byte
			account      []byte
			counterparty []byte
			amount       string
			meta         []byte
		)
		if err := rows.Scan(
			&blockNumber,
			&index,
			&blockTime,
			&pool,
			&name,
			&topic,
			&account,
			&counterparty,
			&amount,
			&meta,
		); err != nil {
			return nil, err
		}
		ev := &Event{
			BlockNumber:  blockNumber,
			Index:        index,
			BlockTime:    blockTime,
			Pool:         thor.BytesToAddress(pool),
			Name:         name,
			Topic:        thor.BytesToBytes32(topic),
			Account:      thor.BytesToAddress(account),
			Counterparty: thor.BytesToAddress(counterparty),
		}
		var ok bool
		if ev.Amount, ok = new(big.Int).SetString(amount, 10); !ok {
			return nil, errors.Errorf("invalid amount %q in block %d", amount, blockNumber)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &ev.Meta); err != nil {
				return nil, errors.Wrap(err, "decode event meta")
			}
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
