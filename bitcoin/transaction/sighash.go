// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package transaction

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"

	"github.com/BoostyLabs/utxo/bitcoin/chain"
	"github.com/BoostyLabs/utxo/bitcoin/script"
)

// SigHashType defines which parts of transaction are committed by the signature.
type SigHashType uint32

const (
	// SigHashDefault commits to all inputs and outputs, taproot only, no hash type byte is appended.
	SigHashDefault SigHashType = 0x00
	// SigHashAll commits to all inputs and outputs.
	SigHashAll SigHashType = 0x01
	// SigHashNone commits to inputs only.
	SigHashNone SigHashType = 0x02
	// SigHashSingle commits to inputs and the output with the same index.
	SigHashSingle SigHashType = 0x03
	// SigHashForkID marks replay protected signatures of forked chains.
	SigHashForkID SigHashType = SigHashType(chain.SigHashForkID)
	// SigHashAnyoneCanPay commits to the signed input only.
	SigHashAnyoneCanPay SigHashType = 0x80

	sigHashMask SigHashType = 0x1f
)

// Base returns hash type without modifier bits.
func (t SigHashType) Base() SigHashType {
	return t & sigHashMask
}

// AnyoneCanPay returns true if only the signed input is committed.
func (t SigHashType) AnyoneCanPay() bool {
	return t&SigHashAnyoneCanPay != 0
}

func (t SigHashType) isNone() bool   { return t.Base() == SigHashNone }
func (t SigHashType) isSingle() bool { return t.Base() == SigHashSingle }

// SigVersion defines signature hashing algorithm of the input.
type SigVersion byte

const (
	// SigVersionBase defines pre-segwit inputs.
	SigVersionBase SigVersion = iota
	// SigVersionWitnessV0 defines segwit v0 inputs.
	SigVersionWitnessV0
)

// SignatureHash returns digest to be signed for input idx spending amount locked by scriptCode.
// Hash type fork bits are mixed in from chain params.
func (tx *Transaction) SignatureHash(params *chain.Params, idx int, scriptCode []byte, amount uint64, hashType SigHashType, version SigVersion) ([]byte, error) {
	if idx < 0 || idx >= len(tx.Inputs) {
		return nil, fmt.Errorf("%w: %d of %d", ErrInputIndex, idx, len(tx.Inputs))
	}

	fullType := SigHashType(params.SigHashType(uint32(hashType)))
	switch {
	case params.Format.Decred:
		return tx.DecredSignatureHash(idx, scriptCode, fullType)
	case params.Format.Overwinter:
		return tx.ZcashSignatureHash(idx, scriptCode, amount, fullType, params.BranchID)
	case version == SigVersionWitnessV0 || params.UseForkID:
		return tx.WitnessSignatureHash(idx, scriptCode, amount, fullType), nil
	default:
		return tx.LegacySignatureHash(idx, scriptCode, fullType), nil
	}
}

// LegacySignatureHash returns original bitcoin signature hash of input idx.
// Out of range SIGHASH_SINGLE returns the historical 0x01 hash.
func (tx *Transaction) LegacySignatureHash(idx int, scriptCode []byte, hashType SigHashType) []byte {
	if hashType.isSingle() && idx >= len(tx.Outputs) {
		var one chainhash.Hash
		one[0] = 0x01
		return one[:]
	}

	scriptCode = removeCodeSeparators(scriptCode)

	var buf bytes.Buffer
	e := &encoder{w: &buf}
	e.uint32(uint32(tx.Version))

	if hashType.AnyoneCanPay() {
		in := tx.Inputs[idx]
		e.varInt(1)
		e.outPoint(in.PreviousOutput.Hash, in.PreviousOutput.Index)
		e.varBytes(scriptCode)
		e.uint32(in.Sequence)
	} else {
		e.varInt(uint64(len(tx.Inputs)))
		for i, in := range tx.Inputs {
			e.outPoint(in.PreviousOutput.Hash, in.PreviousOutput.Index)
			sequence := in.Sequence
			if i == idx {
				e.varBytes(scriptCode)
			} else {
				e.varInt(0)
				if hashType.isNone() || hashType.isSingle() {
					sequence = 0
				}
			}
			e.uint32(sequence)
		}
	}

	switch {
	case hashType.isNone():
		e.varInt(0)
	case hashType.isSingle():
		e.varInt(uint64(idx + 1))
		for i := 0; i < idx; i++ {
			e.uint64(^uint64(0))
			e.varInt(0)
		}
		e.uint64(tx.Outputs[idx].Value)
		e.varBytes(tx.Outputs[idx].Script)
	default:
		e.varInt(uint64(len(tx.Outputs)))
		for _, out := range tx.Outputs {
			e.uint64(out.Value)
			e.varBytes(out.Script)
		}
	}

	e.uint32(tx.LockTime)
	e.uint32(uint32(hashType))

	return chainhash.DoubleHashB(buf.Bytes())
}

// WitnessSignatureHash returns BIP143 signature hash of input idx, also used by fork id chains.
func (tx *Transaction) WitnessSignatureHash(idx int, scriptCode []byte, amount uint64, hashType SigHashType) []byte {
	hashes := tx.intermediateHashes(idx, hashType, hashers{
		prevouts: chainhash.DoubleHashB,
		sequence: chainhash.DoubleHashB,
		outputs:  chainhash.DoubleHashB,
	})

	var buf bytes.Buffer
	e := &encoder{w: &buf}
	e.uint32(uint32(tx.Version))
	e.write(hashes.prevouts)
	e.write(hashes.sequence)

	in := tx.Inputs[idx]
	e.outPoint(in.PreviousOutput.Hash, in.PreviousOutput.Index)
	e.varBytes(scriptCode)
	e.uint64(amount)
	e.uint32(in.Sequence)

	e.write(hashes.outputs)
	e.uint32(tx.LockTime)
	e.uint32(uint32(hashType))

	return chainhash.DoubleHashB(buf.Bytes())
}

// intermediateHashes holds per transaction commitments of BIP143-like digests.
type intermediateHashes struct {
	prevouts []byte
	sequence []byte
	outputs  []byte
}

// hashers defines hash functions of every intermediate commitment.
type hashers struct {
	prevouts func([]byte) []byte
	sequence func([]byte) []byte
	outputs  func([]byte) []byte
}

// intermediateHashes returns prevouts, sequences and outputs commitments zeroed according to hashType.
func (tx *Transaction) intermediateHashes(idx int, hashType SigHashType, h hashers) intermediateHashes {
	zero := make([]byte, chainhash.HashSize)
	hashes := intermediateHashes{prevouts: zero, sequence: zero, outputs: zero}

	if !hashType.AnyoneCanPay() {
		var buf bytes.Buffer
		e := &encoder{w: &buf}
		for _, in := range tx.Inputs {
			e.outPoint(in.PreviousOutput.Hash, in.PreviousOutput.Index)
		}
		hashes.prevouts = h.prevouts(buf.Bytes())
	}

	if !hashType.AnyoneCanPay() && !hashType.isSingle() && !hashType.isNone() {
		var buf bytes.Buffer
		e := &encoder{w: &buf}
		for _, in := range tx.Inputs {
			e.uint32(in.Sequence)
		}
		hashes.sequence = h.sequence(buf.Bytes())
	}

	switch {
	case !hashType.isSingle() && !hashType.isNone():
		hashes.outputs = h.outputs(encodeOutputs(tx.Outputs))
	case hashType.isSingle() && idx < len(tx.Outputs):
		hashes.outputs = h.outputs(encodeOutputs(tx.Outputs[idx : idx+1]))
	}

	return hashes
}

// encodeOutputs returns outputs serialized as value and script.
func encodeOutputs(outputs []Output) []byte {
	var buf bytes.Buffer
	e := &encoder{w: &buf}
	for _, out := range outputs {
		e.uint64(out.Value)
		e.varBytes(out.Script)
	}

	return buf.Bytes()
}

// removeCodeSeparators returns script without OP_CODESEPARATOR opcodes, undecodable scripts are kept as is.
func removeCodeSeparators(s []byte) []byte {
	ops, ok := script.Decode(s)
	if !ok {
		return s
	}

	filtered := ops[:0]
	for _, op := range ops {
		if op.Code != txscript.OP_CODESEPARATOR {
			filtered = append(filtered, op)
		}
	}
	if len(filtered) == len(ops) {
		return s
	}

	return script.Encode(filtered)
}
