// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package transaction

import (
	"bytes"
	"errors"

	"github.com/BoostyLabs/utxo/bitcoin"
	"github.com/BoostyLabs/utxo/internal/numbers"
)

var (
	// ErrInvalidTransaction defines transaction decoding and consistency errors class.
	ErrInvalidTransaction = errors.Join(bitcoin.ErrMalformedInput, errors.New("invalid transaction"))
	// ErrInputIndex defines signing of input that is not present in transaction.
	ErrInputIndex = errors.Join(bitcoin.ErrMalformedInput, errors.New("input index out of range"))
)

// Transaction describes chain agnostic transparent transaction.
type Transaction struct {
	Version        int32
	Inputs         []Input
	Outputs        []Output
	LockTime       uint32
	Expiry         uint32 // zcash and decred expiry height.
	Timestamp      uint32 // peercoin style chains only.
	VersionGroupID uint32 // zcash only.
	ValueBalance   int64  // zcash sapling value balance, zero for transparent transactions.
}

// Input describes transaction input.
type Input struct {
	PreviousOutput bitcoin.OutPoint
	Script         []byte // unlocking script.
	Sequence       uint32
	Witness        [][]byte

	// decred witness fields.
	ValueIn     uint64
	BlockHeight uint32
	BlockIndex  uint32
}

// Output describes transaction output.
type Output struct {
	Value         uint64
	Script        []byte
	ScriptVersion uint16 // decred only.
}

// New is a constructor for Transaction.
func New(version int32, lockTime uint32) *Transaction {
	return &Transaction{
		Version:  version,
		LockTime: lockTime,
	}
}

// NewInput returns unsigned input spending provided utxo.
func NewInput(utxo bitcoin.UTXO) Input {
	return Input{
		PreviousOutput: utxo.OutPoint,
		Sequence:       utxo.InputSequence(),
		ValueIn:        utxo.Amount,
		BlockHeight:    utxo.BlockHeight,
		BlockIndex:     utxo.BlockIndex,
	}
}

// AddInput appends input to the transaction.
func (tx *Transaction) AddInput(in Input) {
	tx.Inputs = append(tx.Inputs, in)
}

// AddOutput appends output to the transaction.
func (tx *Transaction) AddOutput(value uint64, script []byte) {
	tx.Outputs = append(tx.Outputs, Output{Value: value, Script: bytes.Clone(script)})
}

// HasWitness returns true if any input has witness data.
func (tx *Transaction) HasWitness() bool {
	for _, in := range tx.Inputs {
		if len(in.Witness) != 0 {
			return true
		}
	}

	return false
}

// OutputsValue returns total value of transaction outputs.
func (tx *Transaction) OutputsValue() (uint64, error) {
	total, err := numbers.SumFunc(tx.Outputs, func(out Output) uint64 { return out.Value })
	if err != nil {
		return 0, errors.Join(ErrInvalidTransaction, err)
	}

	return total, nil
}

// Copy returns deep copy of the transaction.
func (tx *Transaction) Copy() *Transaction {
	c := *tx
	c.Inputs = make([]Input, len(tx.Inputs))
	for i, in := range tx.Inputs {
		in.Script = bytes.Clone(in.Script)
		if in.Witness != nil {
			witness := make([][]byte, len(in.Witness))
			for j, item := range in.Witness {
				witness[j] = bytes.Clone(item)
			}
			in.Witness = witness
		}
		c.Inputs[i] = in
	}

	c.Outputs = make([]Output, len(tx.Outputs))
	for i, out := range tx.Outputs {
		out.Script = bytes.Clone(out.Script)
		c.Outputs[i] = out
	}

	return &c
}
