// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"
	"gopkg.in/yaml.v3"
)

// Amount is a token amount written as decimal or 0x prefixed hex.
type Amount math.HexOrDecimal256

// NewAmount copies v into an Amount.
func NewAmount(v *big.Int) *Amount {
	return (*Amount)(new(big.Int).Set(v))
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (a *Amount) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: amount must be a scalar", value.Line)
	}
	v, ok := math.ParseBig256(value.Value)
	if !ok {
		return fmt.Errorf("line %d: invalid hex or decimal integer %q", value.Line, value.Value)
	}
	*a = Amount(*v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (a Amount) MarshalYAML() (any, error) {
	h := math.HexOrDecimal256(a)
	text, err := h.MarshalText()
	if err != nil {
		return nil, err
	}
	return string(text), nil
}

// Big returns a copy of the amount, zero for nil.
func (a *Amount) Big() *big.Int {
	if a == nil {
		return new(big.Int)
	}
	return new(big.Int).Set((*big.Int)(a))
}
