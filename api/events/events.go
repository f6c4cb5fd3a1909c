// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package events

import (
	"fmt"
	"math"
	"net/http"

	hexmath "github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/vechain/stakingpool/api/restutil"
	"github.com/vechain/stakingpool/eventdb"
	"github.com/vechain/stakingpool/thor"
)

type Range struct {
	From *uint32 `json:"from"`
	To   *uint32 `json:"to"`
}

type Options struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
}

// EventFilter is the body of an event query.
type EventFilter struct {
	Pool    *thor.Address `json:"pool"`
	Account *thor.Address `json:"account"`
	Name    string        `json:"name"`
	Range   *Range        `json:"range"`
	Options *Options      `json:"options"`
	Order   eventdb.Order `json:"order"`
}

type FilteredEvent struct {
	BlockNumber  uint32                   `json:"blockNumber"`
	Index        uint32                   `json:"index"`
	BlockTime    uint64                   `json:"blockTime"`
	Pool         thor.Address             `json:"pool"`
	Name         string                   `json:"name"`
	Topic        thor.Bytes32             `json:"topic"`
	Account      thor.Address             `json:"account"`
	Counterparty thor.Address             `json:"counterparty"`
	Amount       *hexmath.HexOrDecimal256 `json:"amount"`
	Meta         map[string]string        `json:"meta,omitempty"`
}

func convertFilter(ef *EventFilter) *eventdb.Filter {
	f := &eventdb.Filter{
		Pool:    ef.Pool,
		Account: ef.Account,
		Name:    ef.Name,
		Order:   ef.Order,
	}
	if ef.Range != nil {
		f.Range = &eventdb.Range{To: math.MaxUint32}
		if ef.Range.From != nil {
			f.Range.From = *ef.Range.From
		}
		if ef.Range.To != nil {
			f.Range.To = *ef.Range.To
		}
	}
	if ef.Options != nil {
		f.Options = &eventdb.Options{Offset: ef.Options.Offset, Limit: ef.Options.Limit}
	}
	return f
}

// ConvertEvent converts a stored event to its json form.
func ConvertEvent(e *eventdb.Event) *FilteredEvent {
	return &FilteredEvent{
		BlockNumber:  e.BlockNumber,
		Index:        e.Index,
		BlockTime:    e.BlockTime,
		Pool:         e.Pool,
		Name:         e.Name,
		Topic:        e.Topic,
		Account:      e.Account,
		Counterparty: e.Counterparty,
		Amount:       (*hexmath.HexOrDecimal256)(e.Amount),
		Meta:         e.Meta,
	}
}

type Events struct {
	db    *eventdb.EventDB
	limit uint64
}

func New(db *eventdb.EventDB, limit uint64) *Events {
	return &Events{db, limit}
}

func (e *Events) handleFilter(w http.ResponseWriter, req *http.Request) error {
	var filter EventFilter
	if err := restutil.ParseJSON(req.Body, &filter); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	if filter.Options != nil && filter.Options.Limit > e.limit {
		return restutil.Forbidden(fmt.Errorf("options.limit exceeds the maximum allowed value of %d", e.limit))
	}
	if filter.Options != nil && filter.Options.Offset > math.MaxInt64 {
		return restutil.BadRequest(fmt.Errorf("options.offset exceeds the maximum allowed value of %d", int64(math.MaxInt64)))
	}
	if filter.Range != nil && filter.Range.From != nil && filter.Range.To != nil && *filter.Range.From > *filter.Range.To {
		return restutil.BadRequest(errors.New("range.to must be greater than or equal to range.from"))
	}
	switch filter.Order {
	case "", eventdb.ASC, eventdb.DESC:
	default:
		return restutil.BadRequest(fmt.Errorf("invalid order %q", filter.Order))
	}
	if filter.Options == nil {
		// one more than the limit, to detect an oversized result
		filter.Options = &Options{Limit: e.limit + 1}
	}

	events, err := e.db.Filter(req.Context(), convertFilter(&filter))
	if err != nil {
		return err
	}
	if len(events) > int(e.limit) {
		return restutil.Forbidden(fmt.Errorf("the number of filtered events exceeds the maximum allowed value of %d, please use pagination", e.limit))
	}

	result := make([]*FilteredEvent, 0, len(events))
	for _, ev := range events {
		result = append(result, ConvertEvent(ev))
	}
	return restutil.WriteJSON(w, result)
}

func (e *Events) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodPost).
		Name("POST /events").
		HandlerFunc(restutil.WrapHandlerFunc(e.handleFilter))
}
