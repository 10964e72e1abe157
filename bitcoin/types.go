// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package bitcoin

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/BoostyLabs/utxo/internal/numbers"
)

// SequenceFinal defines default input sequence number.
const SequenceFinal uint32 = 0xffffffff

// OutPoint identifies previous transaction output being spent.
type OutPoint struct {
	Hash  chainhash.Hash // internal byte order.
	Index uint32         // output index in transaction outputs.
	Tree  int8           // decred transaction tree, 0 for regular.
}

// NewOutPoint is a constructor for OutPoint from display (reversed) tx hash hex.
func NewOutPoint(txHash string, index uint32) (OutPoint, error) {
	hash, err := chainhash.NewHashFromStr(txHash)
	if err != nil {
		return OutPoint{}, Malformed(err)
	}

	return OutPoint{Hash: *hash, Index: index}, nil
}

// MustOutPoint uses NewOutPoint, panics in case of error.
func MustOutPoint(txHash string, index uint32) OutPoint {
	outPoint, err := NewOutPoint(txHash, index)
	if err != nil {
		panic(err)
	}

	return outPoint
}

// UTXO describes unspent transaction output data.
type UTXO struct {
	OutPoint
	Amount      uint64  // in Satoshi.
	Script      []byte  // ScriptPubKey.
	Sequence    *uint32 // nil means SequenceFinal.
	BlockHeight uint32  // height of the block holding the output, used by decred and time-locked spends.
	BlockIndex  uint32  // index of the transaction in the block, decred only.
}

// InputSequence returns sequence number to spend utxo with.
func (u UTXO) InputSequence() uint32 {
	if u.Sequence == nil {
		return SequenceFinal
	}

	return *u.Sequence
}

// SumAmounts returns total amount of provided utxos.
func SumAmounts(utxos []UTXO) (uint64, error) {
	return numbers.SumFunc(utxos, func(u UTXO) uint64 { return u.Amount })
}
