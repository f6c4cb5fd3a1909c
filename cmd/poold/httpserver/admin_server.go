// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package httpserver

import (
	"log/slog"
	"sync/atomic"

	"github.com/vechain/stakingpool/api/admin"
	"github.com/vechain/stakingpool/node"
)

// StartAdminServer serves the admin endpoints. It should only listen on a private address.
func StartAdminServer(addr string, logLevel *slog.LevelVar, apiLogs *atomic.Bool, n *node.Node) (string, func(), error) {
	url, stop, err := serve("admin", addr, admin.New(logLevel, apiLogs, n))
	if err != nil {
		return "", nil, err
	}
	return url + "/admin", stop, nil
}
