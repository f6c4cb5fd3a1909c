// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package httpserver

import (
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/vechain/stakingpool/co"
	"github.com/vechain/stakingpool/log"
)

var logger = log.WithContext("pkg", "httpserver")

// StartAPIServer serves the public api. The returned func stops the server
// and then runs onStop, which is expected to drop open subscriptions.
func StartAPIServer(addr string, handler http.Handler, onStop func()) (string, func(), error) {
	url, stop, err := serve("api", addr, handler)
	if err != nil {
		return "", nil, err
	}
	return url + "/", func() {
		stop()
		if onStop != nil {
			onStop()
		}
	}, nil
}

func serve(name, addr string, handler http.Handler) (string, func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, errors.Wrapf(err, "listen %v addr [%v]", name, addr)
	}

	srv := &http.Server{Handler: handler, ReadHeaderTimeout: time.Second, ReadTimeout: 5 * time.Second}
	var goes co.Goes
	goes.Go(func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Warn("server stopped", "name", name, "err", err)
		}
	})
	return "http://" + listener.Addr().String(), func() {
		srv.Close()
		goes.Wait()
	}, nil
}
