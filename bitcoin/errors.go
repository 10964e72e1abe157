// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package bitcoin

import (
	"errors"
)

// Error classes. Every error returned by the engine matches exactly one of them with errors.Is.
var (
	// ErrMalformedInput defines unparsable script, address, psbt or inconsistent request.
	ErrMalformedInput = errors.New("malformed input")
	// ErrInsufficientFunds defines that selected utxos can not cover amount and fee.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrUnsupportedScript defines input script that matches no known spend pattern.
	ErrUnsupportedScript = errors.New("unsupported script")
	// ErrIncompleteSignatures defines well-formed input that lacks required signatures.
	ErrIncompleteSignatures = errors.New("incomplete signatures")
)

var (
	// ErrMissingPrivateKey defines that no provided private key can sign the input.
	ErrMissingPrivateKey = errors.Join(ErrIncompleteSignatures, errors.New("missing private key"))
	// ErrMissingScript defines that redeem or witness script is not provided for script hash input.
	ErrMissingScript = errors.Join(ErrUnsupportedScript, errors.New("missing redeem script"))
	// ErrZeroAmount defines that requested amount is zero.
	ErrZeroAmount = errors.Join(ErrMalformedInput, errors.New("zero amount requested"))
	// ErrDustAmount defines that requested amount is below dust threshold.
	ErrDustAmount = errors.Join(ErrMalformedInput, errors.New("dust amount requested"))
	// ErrInvalidUTXOAmount defines utxo set that can not be used, e.g. empty or overflowing.
	ErrInvalidUTXOAmount = errors.Join(ErrMalformedInput, errors.New("invalid utxo amount"))
)

// Malformed wraps err into ErrMalformedInput class.
func Malformed(err error) error {
	if err == nil || errors.Is(err, ErrMalformedInput) {
		return err
	}

	return errors.Join(ErrMalformedInput, err)
}
