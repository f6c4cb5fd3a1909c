// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/vechain/stakingpool/api/restutil"
	"github.com/vechain/stakingpool/node"
)

type BestBlock struct {
	Number uint32    `json:"number"`
	Time   time.Time `json:"time"`
}

type Status struct {
	Healthy      bool       `json:"healthy"`
	BestBlock    *BestBlock `json:"bestBlock"`
	EventsSynced bool       `json:"eventsSynced"`
	StateOK      bool       `json:"stateOk"`
	Error        string     `json:"error,omitempty"`
}

type Health struct {
	node    *node.Node
	timeout time.Duration
}

func New(n *node.Node) *Health {
	return &Health{node: n, timeout: 5 * time.Second}
}

// status checks that the ledger state is readable and the event store has
// recorded no block beyond the best one.
func (h *Health) status(ctx context.Context) *Status {
	best := h.node.Best()
	st := &Status{
		BestBlock: &BestBlock{Number: best.Number, Time: time.Unix(int64(best.Time), 0).UTC()},
	}

	if err := h.node.View(func(pools *node.Pools) error {
		for _, p := range pools.All() {
			if _, err := p.EpochParams(); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		st.Error = err.Error()
	} else {
		st.StateOK = true
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	last, err := h.node.EventDB().LastBlock(ctx)
	if err != nil {
		st.Error = err.Error()
	} else {
		st.EventsSynced = last <= best.Number
	}

	st.Healthy = st.StateOK && st.EventsSynced
	return st
}

func (h *Health) handleGetHealth(w http.ResponseWriter, req *http.Request) error {
	st := h.status(req.Context())
	w.Header().Set("Content-Type", restutil.JSONContentType)
	if !st.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	return restutil.WriteJSON(w, st)
}

func (h *Health) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("health").
		HandlerFunc(restutil.WrapHandlerFunc(h.handleGetHealth))
}
