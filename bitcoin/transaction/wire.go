// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package transaction

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/BoostyLabs/utxo/bitcoin"
)

// ToWire returns btcd representation of the transaction. Chain specific fields are dropped.
func (tx *Transaction) ToWire() *wire.MsgTx {
	msg := wire.NewMsgTx(tx.Version)
	msg.LockTime = tx.LockTime

	for _, in := range tx.Inputs {
		txIn := wire.NewTxIn(wire.NewOutPoint(&in.PreviousOutput.Hash, in.PreviousOutput.Index), bytes.Clone(in.Script), nil)
		txIn.Sequence = in.Sequence
		for _, item := range in.Witness {
			txIn.Witness = append(txIn.Witness, bytes.Clone(item))
		}
		msg.AddTxIn(txIn)
	}

	for _, out := range tx.Outputs {
		msg.AddTxOut(wire.NewTxOut(int64(out.Value), bytes.Clone(out.Script)))
	}

	return msg
}

// FromWire returns transaction of btcd representation.
func FromWire(msg *wire.MsgTx) (*Transaction, error) {
	tx := New(msg.Version, msg.LockTime)

	for _, txIn := range msg.TxIn {
		in := Input{
			PreviousOutput: bitcoin.OutPoint{
				Hash:  txIn.PreviousOutPoint.Hash,
				Index: txIn.PreviousOutPoint.Index,
			},
			Script:   bytes.Clone(txIn.SignatureScript),
			Sequence: txIn.Sequence,
		}
		for _, item := range txIn.Witness {
			in.Witness = append(in.Witness, bytes.Clone(item))
		}
		tx.AddInput(in)
	}

	for i, txOut := range msg.TxOut {
		if txOut.Value < 0 {
			return nil, fmt.Errorf("%w: output %d has negative value", ErrInvalidTransaction, i)
		}
		tx.AddOutput(uint64(txOut.Value), txOut.PkScript)
	}

	return tx, nil
}

// PrevOutFetcher returns btcd previous outputs fetcher of inputs spending prevOuts.
func (tx *Transaction) PrevOutFetcher(prevOuts []Output) (*txscript.MultiPrevOutFetcher, error) {
	if len(prevOuts) != len(tx.Inputs) {
		return nil, fmt.Errorf("%w: %d previous outputs for %d inputs", ErrInvalidTransaction, len(prevOuts), len(tx.Inputs))
	}

	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	for i, in := range tx.Inputs {
		fetcher.AddPrevOut(
			*wire.NewOutPoint(&in.PreviousOutput.Hash, in.PreviousOutput.Index),
			wire.NewTxOut(int64(prevOuts[i].Value), prevOuts[i].Script),
		)
	}

	return fetcher, nil
}

// TaprootSignatureHash returns BIP341 key path signature hash of input idx.
// prevOuts must describe outputs spent by every input.
func (tx *Transaction) TaprootSignatureHash(idx int, prevOuts []Output, hashType SigHashType) ([]byte, error) {
	if idx < 0 || idx >= len(tx.Inputs) {
		return nil, fmt.Errorf("%w: %d of %d", ErrInputIndex, idx, len(tx.Inputs))
	}

	fetcher, err := tx.PrevOutFetcher(prevOuts)
	if err != nil {
		return nil, err
	}

	msg := tx.ToWire()
	sigHashes := txscript.NewTxSigHashes(msg, fetcher)

	return txscript.CalcTaprootSignatureHash(sigHashes, txscript.SigHashType(hashType), msg, idx, fetcher)
}
