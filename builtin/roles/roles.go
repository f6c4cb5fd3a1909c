// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package roles

import (
	"fmt"

	"github.com/vechain/stakingpool/builtin/solidity"
	"github.com/vechain/stakingpool/builtin/staking/reverts"
	"github.com/vechain/stakingpool/thor"
)

// Permission is a closed set of admin capabilities.
type Permission uint8

const (
	RoleAdmin Permission = iota + 1
	EpochParametersAdmin
	RewardsAdmin
	AllocationAdmin
	DebtOperator
	Slasher
)

var permissionNames = map[Permission]string{
	RoleAdmin:            "role-admin",
	EpochParametersAdmin: "epoch-parameters-admin",
	RewardsAdmin:         "rewards-admin",
	AllocationAdmin:      "allocation-admin",
	DebtOperator:         "debt-operator",
	Slasher:              "slasher",
}

func (p Permission) String() string {
	if name, ok := permissionNames[p]; ok {
		return name
	}
	return fmt.Sprintf("permission(%d)", uint8(p))
}

// ParsePermission converts a permission name into Permission.
func ParsePermission(name string) (Permission, error) {
	for p, n := range permissionNames {
		if n == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown permission %q", name)
}

// Authorizer answers whether an account holds a permission.
type Authorizer interface {
	IsAuthorized(p Permission, account thor.Address) (bool, error)
}

type grantKey struct {
	permission Permission
	account    thor.Address
}

func (k grantKey) Bytes() []byte {
	return append([]byte{byte(k.permission)}, k.account.Bytes()...)
}

var slotGrants = thor.BytesToBytes32([]byte("role-grants"))

// Registry is the storage backed Authorizer.
type Registry struct {
	grants *solidity.Mapping[grantKey, bool]
}

func New(sctx *solidity.Context) *Registry {
	return &Registry{
		grants: solidity.NewMapping[grantKey, bool](sctx, slotGrants),
	}
}

// IsAuthorized implements Authorizer.
func (r *Registry) IsAuthorized(p Permission, account thor.Address) (bool, error) {
	return r.grants.Get(grantKey{p, account})
}

// Init grants permissions without any check. Used at genesis only.
func (r *Registry) Init(p Permission, account thor.Address) error {
	return r.grants.Set(grantKey{p, account}, true)
}

// Grant gives p to account. The caller must be a role admin.
func (r *Registry) Grant(caller thor.Address, p Permission, account thor.Address) error {
	if err := r.require(caller); err != nil {
		return err
	}
	if _, ok := permissionNames[p]; !ok {
		return reverts.ErrInvalidAmount
	}
	return r.grants.Set(grantKey{p, account}, true)
}

// Revoke removes p from account. The caller must be a role admin.
func (r *Registry) Revoke(caller thor.Address, p Permission, account thor.Address) error {
	if err := r.require(caller); err != nil {
		return err
	}
	r.grants.Delete(grantKey{p, account})
	return nil
}

func (r *Registry) require(caller thor.Address) error {
	ok, err := r.IsAuthorized(RoleAdmin, caller)
	if err != nil {
		return err
	}
	if !ok {
		return reverts.ErrUnauthorized
	}
	return nil
}
