// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"

	"github.com/BoostyLabs/utxo/bitcoin"
)

// InsufficientError is the error type to describe insufficient balance errors with details.
type InsufficientError struct {
	Need uint64 // amount plus estimated fee, in satoshi.
	Have uint64 // spendable amount, in satoshi.
}

// NewInsufficientError is a constructor for InsufficientError.
func NewInsufficientError(need, have uint64) *InsufficientError {
	return &InsufficientError{Need: need, Have: have}
}

// Error returns error description.
func (e *InsufficientError) Error() string {
	return fmt.Sprintf("%s: need %s, have %s", bitcoin.ErrInsufficientFunds, btcutil.Amount(e.Need), btcutil.Amount(e.Have))
}

// Is implements comparator method for [errors] package.
func (e *InsufficientError) Is(target error) bool {
	if target == bitcoin.ErrInsufficientFunds {
		return true
	}

	other, ok := target.(*InsufficientError)
	return ok && (other.Need == 0 && other.Have == 0 || *other == *e)
}
