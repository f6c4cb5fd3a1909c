// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package subscriptions

import (
	"context"

	"github.com/vechain/stakingpool/api/events"
	"github.com/vechain/stakingpool/eventdb"
)

// blocksPerRead caps the block range scanned by a single read.
const blocksPerRead = 100

type eventReader struct {
	db     *eventdb.EventDB
	best   func() uint32
	filter *eventdb.Filter
	next   uint32
}

func newEventReader(db *eventdb.EventDB, best func() uint32, next uint32, filter *eventdb.Filter) *eventReader {
	return &eventReader{db: db, best: best, filter: filter, next: next}
}

// Read returns the matching events of the blocks after the last read, and
// whether the reader has caught up with the best block.
func (r *eventReader) Read(ctx context.Context) ([]*events.FilteredEvent, bool, error) {
	best := r.best()
	if r.next > best {
		return nil, true, nil
	}
	to := best
	if to-r.next >= blocksPerRead {
		to = r.next + blocksPerRead - 1
	}

	filter := *r.filter
	filter.Range = &eventdb.Range{From: r.next, To: to}
	filter.Order = eventdb.ASC
	found, err := r.db.Filter(ctx, &filter)
	if err != nil {
		return nil, false, err
	}
	r.next = to + 1

	msgs := make([]*events.FilteredEvent, 0, len(found))
	for _, ev := range found {
		msgs = append(msgs, events.ConvertEvent(ev))
	}
	return msgs, to == best, nil
}
