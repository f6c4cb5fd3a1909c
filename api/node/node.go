// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vechain/stakingpool/api/restutil"
	"github.com/vechain/stakingpool/node"
	"github.com/vechain/stakingpool/thor"
)

type BestBlock struct {
	Number uint32       `json:"number"`
	Time   uint64       `json:"time"`
	Root   thor.Bytes32 `json:"root"`
}

type Info struct {
	GenesisID  thor.Bytes32 `json:"genesisId"`
	LaunchTime uint64       `json:"launchTime"`
	Best       *BestBlock   `json:"best"`
	Ops        []string     `json:"ops"`
}

type Node struct {
	node *node.Node
}

func New(n *node.Node) *Node {
	return &Node{n}
}

func (n *Node) handleNodeInfo(w http.ResponseWriter, _ *http.Request) error {
	best := n.node.Best()
	return restutil.WriteJSON(w, &Info{
		GenesisID:  n.node.GenesisID(),
		LaunchTime: n.node.Genesis().LaunchTime,
		Best:       &BestBlock{Number: best.Number, Time: best.Time, Root: best.Root},
		Ops:        node.Ops(),
	})
}

func (n *Node) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/info").
		Methods(http.MethodGet).
		Name("GET /node/info").
		HandlerFunc(restutil.WrapHandlerFunc(n.handleNodeInfo))
}
