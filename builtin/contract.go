// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package builtin

import (
	"github.com/vechain/stakingpool/thor"
)

type contract struct {
	name    string
	Address thor.Address
}

func newContract(name string) *contract {
	return &contract{
		name,
		thor.BytesToAddress([]byte(name)),
	}
}

// Name returns the contract name.
func (c *contract) Name() string {
	return c.name
}
