// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	_ "embed"

	"github.com/vechain/stakingpool/thor"
)

//go:embed devnet.yaml
var devnetYAML []byte

// DevAccounts returns the funded accounts of the dev network. The first one holds every permission.
func DevAccounts() []thor.Address {
	return []thor.Address{
		thor.MustParseAddress("0xf077b491b355e64048ce21e3a6fc4751eeea77fa"),
		thor.MustParseAddress("0x435933c8064b4ae76be665428e0307ef2ccfbd68"),
		thor.MustParseAddress("0x0f872421dc479f3c11edd89512731814d0598db5"),
	}
}

// NewDevnet create the genesis of the development network.
func NewDevnet() *Genesis {
	gen, err := Decode(devnetYAML)
	if err != nil {
		panic(err)
	}
	return gen
}
