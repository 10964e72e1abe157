// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package transaction

import (
	"bytes"
	"encoding/hex"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/decred/dcrd/crypto/blake256"

	"github.com/BoostyLabs/utxo/bitcoin/chain"
	"github.com/BoostyLabs/utxo/internal/numbers"
	"github.com/BoostyLabs/utxo/internal/reverse"
)

// witnessScaleFactor defines weight of non-witness byte.
const witnessScaleFactor = 4

// TxID returns transaction hash in internal byte order.
func (tx *Transaction) TxID(format chain.TxFormat) chainhash.Hash {
	if format.Decred {
		return tx.decredPrefixHash()
	}

	return chainhash.DoubleHashH(tx.BytesNoWitness(format))
}

// TxIDString returns transaction hash in display (reversed) hex form.
func (tx *Transaction) TxIDString(format chain.TxFormat) string {
	hash := tx.TxID(format)
	return hex.EncodeToString(reverse.Copy(hash[:]))
}

// WTxID returns witness transaction hash in internal byte order, equal to TxID if transaction has no witness.
func (tx *Transaction) WTxID(format chain.TxFormat) chainhash.Hash {
	if format.Decred {
		return blake256.Sum256(tx.Bytes(format))
	}

	return chainhash.DoubleHashH(tx.Bytes(format))
}

// decredPrefixHash returns blake256 of decred no witness serialization.
func (tx *Transaction) decredPrefixHash() chainhash.Hash {
	var buf bytes.Buffer
	e := &encoder{w: &buf}
	e.uint32(uint32(tx.Version) | decredSerializeNoWitness<<16)
	tx.encodeDecredPrefix(e)

	return blake256.Sum256(buf.Bytes())
}

// Size returns full serialized size in bytes.
func (tx *Transaction) Size(format chain.TxFormat) int {
	return len(tx.Bytes(format))
}

// BaseSize returns serialized size in bytes without witness data.
func (tx *Transaction) BaseSize(format chain.TxFormat) int {
	return len(tx.BytesNoWitness(format))
}

// Weight returns transaction weight in weight units.
func (tx *Transaction) Weight(format chain.TxFormat) int {
	return tx.BaseSize(format)*(witnessScaleFactor-1) + tx.Size(format)
}

// VirtualSize returns transaction size in virtual bytes, used for fee calculation.
func (tx *Transaction) VirtualSize(format chain.TxFormat) int {
	return numbers.CeilDiv(tx.Weight(format), witnessScaleFactor)
}
