// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"errors"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestIsRevertErr(t *testing.T) {
	assert.False(t, IsRevertErr(nil))
	assert.False(t, IsRevertErr("not an error"))
	assert.False(t, IsRevertErr(errors.New("plain")))

	assert.True(t, IsRevertErr(ErrNoShortfall))
	assert.True(t, IsRevertErr(pkgerrors.WithMessage(ErrUnderflow, "inactive")))
}

func TestSentinels(t *testing.T) {
	wrapped := pkgerrors.WithMessage(ErrExceedsBorrowable, "borrower 0x01")
	assert.True(t, errors.Is(wrapped, ErrExceedsBorrowable))
	assert.False(t, errors.Is(wrapped, ErrExceedsAvailable))
	assert.Equal(t, "borrower 0x01: amount exceeds borrowable amount", wrapped.Error())
}
