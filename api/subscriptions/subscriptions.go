// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package subscriptions

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/vechain/stakingpool/api/restutil"
	"github.com/vechain/stakingpool/eventdb"
	"github.com/vechain/stakingpool/log"
	"github.com/vechain/stakingpool/node"
	"github.com/vechain/stakingpool/thor"
)

var logger = log.WithContext("pkg", "subscriptions")

const (
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 7) / 10
	writeWait  = 10 * time.Second
)

type Subscriptions struct {
	node           *node.Node
	backtraceLimit uint32
	upgrader       *websocket.Upgrader
	done           chan struct{}
	wg             sync.WaitGroup
}

// New creates the subscription endpoints. Connections from origins outside
// allowedOrigins are refused, "*" allows any.
func New(n *node.Node, allowedOrigins []string, backtraceLimit uint32) *Subscriptions {
	return &Subscriptions{
		node:           n,
		backtraceLimit: backtraceLimit,
		upgrader: &websocket.Upgrader{
			EnableCompression: true,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				for _, allowed := range allowedOrigins {
					if allowed == "*" || strings.EqualFold(allowed, u.Scheme+"://"+u.Host) {
						return true
					}
				}
				return false
			},
		},
		done: make(chan struct{}),
	}
}

func (s *Subscriptions) parsePosition(value string) (uint32, error) {
	best := s.node.Best().Number
	pos, err := restutil.ParseUint32("pos", value, best+1)
	if err != nil {
		return 0, err
	}
	if pos > best+1 {
		return 0, restutil.BadRequest(fmt.Errorf("pos: beyond the pending block %d", best+1))
	}
	if best-min(pos, best) > s.backtraceLimit {
		return 0, restutil.Forbidden(errors.New("pos: backtrace limit exceeded"))
	}
	return pos, nil
}

func parseEventFilter(query url.Values) (*eventdb.Filter, error) {
	filter := &eventdb.Filter{Name: query.Get("name")}
	for _, f := range []struct {
		name string
		dst  **thor.Address
	}{
		{"pool", &filter.Pool},
		{"account", &filter.Account},
	} {
		value := query.Get(f.name)
		if value == "" {
			continue
		}
		addr, err := restutil.ParseAddress(f.name, value)
		if err != nil {
			return nil, err
		}
		*f.dst = &addr
	}
	return filter, nil
}

func (s *Subscriptions) handleSubjectEvent(w http.ResponseWriter, req *http.Request) error {
	query := req.URL.Query()
	pos, err := s.parsePosition(query.Get("pos"))
	if err != nil {
		return err
	}
	filter, err := parseEventFilter(query)
	if err != nil {
		return err
	}
	if pool := mux.Vars(req)["pool"]; pool != "" {
		if filter.Pool, err = s.resolvePool(pool); err != nil {
			return err
		}
	}

	conn, err := s.upgrader.Upgrade(w, req, nil)
	if err != nil {
		// the upgrader already replied
		logger.Debug("upgrade failed", "err", err)
		return nil
	}
	s.wg.Add(1)
	defer s.wg.Done()
	defer conn.Close()

	reader := newEventReader(s.node.EventDB(), func() uint32 { return s.node.Best().Number }, pos, filter)
	if err := s.pipe(req.Context(), conn, reader); err != nil {
		logger.Debug("subscription closed", "err", err)
		msg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, err.Error())
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		return nil
	}
	conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
	return nil
}

func (s *Subscriptions) resolvePool(key string) (*thor.Address, error) {
	var addr thor.Address
	err := s.node.View(func(pools *node.Pools) error {
		pool, ok := pools.Get(key)
		if !ok {
			return restutil.NotFound(fmt.Errorf("pool %q not found", key))
		}
		addr = pool.Address()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &addr, nil
}

// pipe streams reader messages to conn until the peer leaves or the
// subscriptions are closed.
func (s *Subscriptions) pipe(ctx context.Context, conn *websocket.Conn, reader *eventReader) error {
	closed := make(chan struct{})
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				logger.Debug("peer left", "err", err)
				return
			}
		}
	}()

	pingTicker := time.NewTicker(pingPeriod)
	defer pingTicker.Stop()
	for {
		waiter := s.node.NewBlockWaiter()
		msgs, caughtUp, err := reader.Read(ctx)
		if err != nil {
			return err
		}
		for _, msg := range msgs {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				return nil
			}
		}
		if !caughtUp {
			continue
		}

		select {
		case <-s.done:
			return nil
		case <-closed:
			return nil
		case <-ctx.Done():
			return nil
		case <-waiter:
		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		}
	}
}

// Close ends every open subscription and waits for them to return.
func (s *Subscriptions) Close() {
	close(s.done)
	s.wg.Wait()
}

func (s *Subscriptions) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/event").
		Methods(http.MethodGet).
		Name("WS /subscriptions/event").
		HandlerFunc(restutil.WrapHandlerFunc(s.handleSubjectEvent))
	sub.Path("/pools/{pool}/event").
		Methods(http.MethodGet).
		Name("WS /subscriptions/pools/{pool}/event").
		HandlerFunc(restutil.WrapHandlerFunc(s.handleSubjectEvent))
}
