// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package builtin

import (
	"github.com/vechain/stakingpool/builtin/roles"
	"github.com/vechain/stakingpool/builtin/solidity"
	"github.com/vechain/stakingpool/builtin/token"
	"github.com/vechain/stakingpool/state"
)

// Builtin contracts binding.
var (
	Token = &tokenContract{newContract("Token")}
	Roles = &rolesContract{newContract("Roles")}
)

type (
	tokenContract struct{ *contract }
	rolesContract struct{ *contract }
)

func (t *tokenContract) WithState(state *state.State) *token.Token {
	return token.New(solidity.NewContext(t.Address, state))
}

func (r *rolesContract) WithState(state *state.State) *roles.Registry {
	return roles.New(solidity.NewContext(r.Address, state))
}
