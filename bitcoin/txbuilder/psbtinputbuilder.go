// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/BoostyLabs/utxo/bitcoin"
	"github.com/BoostyLabs/utxo/bitcoin/chain"
	"github.com/BoostyLabs/utxo/bitcoin/script"
	"github.com/BoostyLabs/utxo/bitcoin/transaction"
)

// ErrPSBTInputBuilder defines errors class for psbt input preparation.
var ErrPSBTInputBuilder = errors.New("prepare psbt input")

// PSBTInputBuilder is a helping tool to prepare psbt input based on spent script type.
type PSBTInputBuilder struct {
	params        *chain.Params
	utxo          bitcoin.UTXO
	scriptType    script.Type
	redeemScript  []byte
	witnessScript []byte
	xOnlyPubKey   []byte
	prevTx        *wire.MsgTx
}

// NewPSBTInputBuilder is a constructor for PSBTInputBuilder. Redeem and witness scripts are taken
// from scripts, nested P2WPKH redeem scripts and taproot internal keys are derived from publicKeys.
func NewPSBTInputBuilder(utxo bitcoin.UTXO, scripts script.Lookup, publicKeys [][]byte, params *chain.Params) (pib *PSBTInputBuilder, err error) {
	pib = &PSBTInputBuilder{params: params, utxo: utxo}

	defer func(err *error) {
		if err != nil && *err != nil {
			*err = errors.Join(ErrPSBTInputBuilder, *err)
		}
	}(&err)

	class := script.Classify(utxo.Script)
	pib.scriptType = class.Type

	switch class.Type {
	case script.PubKey, script.PubKeyHash, script.PubKeyHashReplay, script.Multisig, script.WitnessPubKeyHash:
	case script.ScriptHash, script.ScriptHashReplay:
		redeemScript, ok := scripts.Find(class.Hash)
		if !ok {
			redeemScript, ok = nestedWitnessPubKeyHash(class.Hash, publicKeys)
		}
		if !ok {
			return pib, fmt.Errorf("%w: redeem script %x", bitcoin.ErrMissingScript, class.Hash)
		}

		pib.redeemScript = redeemScript
		if inner := script.Classify(redeemScript); inner.Type == script.WitnessScriptHash {
			pib.witnessScript, ok = scripts.Find(inner.Hash)
			if !ok {
				return pib, fmt.Errorf("%w: witness script %x", bitcoin.ErrMissingScript, inner.Hash)
			}
		}
	case script.WitnessScriptHash:
		var ok bool
		pib.witnessScript, ok = scripts.Find(class.Hash)
		if !ok {
			return pib, fmt.Errorf("%w: witness script %x", bitcoin.ErrMissingScript, class.Hash)
		}
	case script.Taproot:
		pib.xOnlyPubKey, err = taprootInternalKey(utxo.Script, publicKeys)
		if err != nil {
			return pib, err
		}
	default:
		return pib, fmt.Errorf("%w: %s", bitcoin.ErrUnsupportedScript, class.Type)
	}

	return pib, nil
}

// nestedWitnessPubKeyHash returns P2WPKH redeem script of one of public keys matching script hash.
func nestedWitnessPubKeyHash(hash []byte, publicKeys [][]byte) ([]byte, bool) {
	for _, pubKey := range publicKeys {
		if len(pubKey) != btcec.PubKeyBytesLenCompressed {
			continue
		}

		redeemScript, err := script.PayToWitnessPubKeyHash(btcutil.Hash160(pubKey))
		if err == nil && bytes.Equal(btcutil.Hash160(redeemScript), hash) {
			return redeemScript, true
		}
	}

	return nil, false
}

// taprootInternalKey returns x-only internal key of key path spendable output, if one of
// public keys tweaks to output key. Returns no key if none does.
func taprootInternalKey(lockingScript []byte, publicKeys [][]byte) ([]byte, error) {
	for _, pubKeyBytes := range publicKeys {
		var (
			pubKey *btcec.PublicKey
			err    error
		)
		switch len(pubKeyBytes) {
		case schnorr.PubKeyBytesLen:
			pubKey, err = schnorr.ParsePubKey(pubKeyBytes)
		default:
			pubKey, err = btcec.ParsePubKey(pubKeyBytes)
		}
		if err != nil {
			return nil, err
		}

		keyPathScript, err := script.TaprootKeyPathScript(pubKey)
		if err != nil {
			return nil, err
		}
		if bytes.Equal(keyPathScript, lockingScript) {
			return schnorr.SerializePubKey(pubKey), nil
		}
	}

	return nil, nil
}

// SetPrevTx sets transaction holding spent output. Non segwit inputs carry it instead of the output alone.
func (pib *PSBTInputBuilder) SetPrevTx(tx *wire.MsgTx) error {
	txHash := tx.TxHash()
	if txHash != pib.utxo.Hash || int(pib.utxo.Index) >= len(tx.TxOut) {
		return errors.Join(ErrPSBTInputBuilder, fmt.Errorf("%w: transaction %s does not hold output %d of %s",
			bitcoin.ErrMalformedInput, txHash, pib.utxo.Index, pib.utxo.Hash))
	}

	out := tx.TxOut[pib.utxo.Index]
	if out.Value != int64(pib.utxo.Amount) || !bytes.Equal(out.PkScript, pib.utxo.Script) {
		return errors.Join(ErrPSBTInputBuilder, fmt.Errorf("%w: output %d of %s differs from utxo",
			bitcoin.ErrMalformedInput, pib.utxo.Index, txHash))
	}

	pib.prevTx = tx

	return nil
}

// isWitness returns true if spent output or its redeem script is witness program.
func (pib *PSBTInputBuilder) isWitness() bool {
	return pib.scriptType.IsWitness() || script.Classify(pib.redeemScript).Type.IsWitness()
}

// PrepareInput updates input with required data based on spent script type.
func (pib *PSBTInputBuilder) PrepareInput(input *psbt.PInput) {
	if pib.prevTx != nil && !pib.isWitness() {
		input.NonWitnessUtxo = pib.prevTx
	} else {
		input.WitnessUtxo = wire.NewTxOut(int64(pib.utxo.Amount), pib.utxo.Script)
	}
	input.RedeemScript = pib.redeemScript
	input.WitnessScript = pib.witnessScript

	switch pib.scriptType {
	case script.Taproot:
		// SIGHASH_DEFAULT is implied.
		input.TaprootInternalKey = pib.xOnlyPubKey
	default:
		input.SighashType = txscript.SigHashType(pib.params.SigHashType(uint32(transaction.SigHashAll)))
	}
}

// ScriptType returns underlying script type.
func (pib *PSBTInputBuilder) ScriptType() script.Type {
	return pib.scriptType
}

// BuildPSBT returns serialized PSBT of unsigned plan transaction with inputs prepared for signing.
func (b *TxBuilder) BuildPSBT(plan *Plan, req Request) ([]byte, error) {
	if format := b.params.Format; format.Decred || format.Overwinter || format.Timestamp {
		return nil, fmt.Errorf("%w: psbt is not supported for %s", bitcoin.ErrMalformedInput, b.params.Name)
	}

	tx, err := b.BuildTransaction(plan, req)
	if err != nil {
		return nil, err
	}

	p, err := psbt.NewFromUnsignedTx(tx.ToWire())
	if err != nil {
		return nil, bitcoin.Malformed(err)
	}

	prevTxs := make(map[chainhash.Hash]*wire.MsgTx, len(req.PrevTxs))
	for _, raw := range req.PrevTxs {
		prevTx, err := btcutil.NewTxFromBytes(raw)
		if err != nil {
			return nil, errors.Join(ErrPSBTInputBuilder, bitcoin.Malformed(err))
		}
		prevTxs[*prevTx.Hash()] = prevTx.MsgTx()
	}

	for i, utxo := range plan.UTXOs {
		pib, err := NewPSBTInputBuilder(utxo, req.Scripts, req.PublicKeys, b.params)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		if prevTx, ok := prevTxs[utxo.Hash]; ok {
			if err = pib.SetPrevTx(prevTx); err != nil {
				return nil, fmt.Errorf("input %d: %w", i, err)
			}
		}

		pib.PrepareInput(&p.Inputs[i])
	}

	w := bytes.NewBuffer(nil)
	err = p.Serialize(w)
	if err != nil {
		return nil, err
	}

	return w.Bytes(), nil
}
