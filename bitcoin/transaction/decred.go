// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package transaction

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/decred/dcrd/crypto/blake256"
)

// ErrSingleOutOfRange defines decred SIGHASH_SINGLE signing of input without matching output.
var ErrSingleOutOfRange = errors.Join(ErrInvalidTransaction, errors.New("sighash single input has no matching output"))

// DecredSignatureHash returns decred signature hash of input idx:
// blake256 of hash type, prefix hash and witness signing hash.
func (tx *Transaction) DecredSignatureHash(idx int, scriptCode []byte, hashType SigHashType) ([]byte, error) {
	if idx < 0 || idx >= len(tx.Inputs) {
		return nil, fmt.Errorf("%w: %d of %d", ErrInputIndex, idx, len(tx.Inputs))
	}
	if hashType.isSingle() && idx >= len(tx.Outputs) {
		return nil, fmt.Errorf("%w: input %d, %d outputs", ErrSingleOutOfRange, idx, len(tx.Outputs))
	}

	inputs, signIdx := tx.Inputs, idx
	if hashType.AnyoneCanPay() {
		inputs, signIdx = tx.Inputs[idx:idx+1], 0
	}

	outputs := tx.Outputs
	switch {
	case hashType.isNone():
		outputs = nil
	case hashType.isSingle():
		outputs = tx.Outputs[:idx+1]
	}

	var prefix bytes.Buffer
	e := &encoder{w: &prefix}
	e.uint32(uint32(tx.Version) | decredSerializeNoWitness<<16)
	e.varInt(uint64(len(inputs)))
	for i, in := range inputs {
		e.outPoint(in.PreviousOutput.Hash, in.PreviousOutput.Index)
		e.write([]byte{byte(in.PreviousOutput.Tree)})

		sequence := in.Sequence
		if (hashType.isNone() || hashType.isSingle()) && i != signIdx {
			sequence = 0
		}
		e.uint32(sequence)
	}

	e.varInt(uint64(len(outputs)))
	for i, out := range outputs {
		value, pkScript := out.Value, out.Script
		if hashType.isSingle() && i != idx {
			value, pkScript = ^uint64(0), nil
		}
		e.uint64(value)
		e.uint16(out.ScriptVersion)
		e.varBytes(pkScript)
	}
	e.uint32(tx.LockTime)
	e.uint32(tx.Expiry)

	var witness bytes.Buffer
	e = &encoder{w: &witness}
	e.uint32(uint32(tx.Version) | decredSigHashWitness<<16)
	e.varInt(uint64(len(inputs)))
	for i := range inputs {
		if i == signIdx {
			e.varBytes(scriptCode)
		} else {
			e.varInt(0)
		}
	}

	prefixHash := blake256.Sum256(prefix.Bytes())
	witnessHash := blake256.Sum256(witness.Bytes())

	preimage := make([]byte, 0, 4+len(prefixHash)+len(witnessHash))
	preimage = binary.LittleEndian.AppendUint32(preimage, uint32(hashType))
	preimage = append(preimage, prefixHash[:]...)
	preimage = append(preimage, witnessHash[:]...)
	sum := blake256.Sum256(preimage)

	return sum[:], nil
}
