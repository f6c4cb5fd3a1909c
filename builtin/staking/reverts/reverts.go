// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"errors"
)

type ErrRevert struct {
	message string
}

func New(message string) *ErrRevert {
	return &ErrRevert{
		message: message,
	}
}

func (e *ErrRevert) Error() string {
	return e.message
}

// Ledger preconditions. Every failed precondition aborts the whole call.
var (
	ErrEpochNotStarted          = New("epoch zero has not started")
	ErrInvalidEpochChange       = New("invalid epoch parameters change")
	ErrZeroAmount               = New("amount must be greater than zero")
	ErrUnderflow                = New("balance underflow")
	ErrExceedsAvailable         = New("amount exceeds available balance")
	ErrExceedsNextActiveBalance = New("amount exceeds next epoch active balance")
	ErrInBlackoutWindow         = New("in blackout window")
	ErrAllocationSumMismatch    = New("allocations must sum to 10000 basis points")
	ErrExceedsBorrowable        = New("amount exceeds borrowable amount")
	ErrRepayExceedsBorrowed     = New("repay amount exceeds borrowed balance")
	ErrRepayExceedsDebt         = New("repay amount exceeds debt balance")
	ErrNoShortfall              = New("no shortfall")
	ErrInvalidAmount            = New("invalid amount")
	ErrMaxExchangeRateExceeded  = New("max exchange rate exceeded")
	ErrInvalidBlockNumber       = New("block number is in the future")
	ErrUnauthorized             = New("caller is not authorized")
	ErrUnsupportedOperation     = New("operation is not supported by this pool")
	ErrInsufficientBalance      = New("insufficient token balance")
)

func IsRevertErr(err any) bool {
	if err == nil {
		return false
	}
	e, ok := err.(error)
	if !ok {
		return false
	}
	var ve *ErrRevert
	return errors.As(e, &ve)
}
