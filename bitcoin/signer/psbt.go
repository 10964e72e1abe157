// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package signer

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/wire"

	"github.com/BoostyLabs/utxo/bitcoin"
	"github.com/BoostyLabs/utxo/bitcoin/script"
	"github.com/BoostyLabs/utxo/bitcoin/transaction"
	"github.com/BoostyLabs/utxo/bitcoin/txbuilder"
	"github.com/BoostyLabs/utxo/internal/numbers"
)

// PSBTOutput describes result of psbt signing round or finalization.
type PSBTOutput struct {
	PSBT     []byte
	Complete bool   // every input has enough signatures or is finalized.
	Encoded  []byte // network transaction, finalization only.
	TxID     string // finalization only.
}

// SignPSBT adds signatures of privateKeys to every psbt input they can sign.
// Signatures already present are kept, inputs that can not be signed are left as is.
func (signer *Signer) SignPSBT(psbtBytes []byte, privateKeys [][]byte) (*PSBTOutput, error) {
	packet, tx, prevOuts, err := signer.parsePSBT(psbtBytes)
	if err != nil {
		return nil, err
	}

	keys, err := newKeyring(privateKeys, Secp256k1{}, signer.params)
	if err != nil {
		return nil, err
	}

	source := &keySource{
		params:    signer.params,
		tx:        tx,
		prevOuts:  prevOuts,
		keys:      keys,
		keySigner: Secp256k1{},
	}

	complete := true
	for idx := range packet.Inputs {
		if isFinalized(&packet.Inputs[idx]) {
			continue
		}

		_, err = signer.solvePSBTInput(packet, idx, tx, prevOuts, source)
		switch {
		case err == nil:
		case errors.Is(err, bitcoin.ErrIncompleteSignatures), errors.Is(err, bitcoin.ErrUnsupportedScript):
			log.Debugf("psbt input %d left unsigned: %v", idx, err)
			complete = false
		default:
			return nil, &InputError{Index: idx, Err: err}
		}
	}

	log.Debugf("psbt signing round: %d signatures added, complete %t", len(source.signatures), complete)

	return signer.psbtOutput(packet, complete, false)
}

// FinalizePSBT reduces signatures of every input to final scriptSig and witness and extracts
// network transaction. Fails with incomplete signatures error of the first input lacking them.
func (signer *Signer) FinalizePSBT(psbtBytes []byte) (*PSBTOutput, error) {
	packet, tx, prevOuts, err := signer.parsePSBT(psbtBytes)
	if err != nil {
		return nil, err
	}

	for idx := range packet.Inputs {
		input := &packet.Inputs[idx]
		if isFinalized(input) {
			continue
		}

		if len(input.TaprootScriptSpendSig) > 0 && len(input.TaprootKeySpendSig) == 0 {
			if err := psbt.Finalize(packet, idx); err != nil {
				return nil, &InputError{Index: idx, Err: errors.Join(bitcoin.ErrIncompleteSignatures, err)}
			}
			continue
		}

		unlocking, err := signer.solvePSBTInput(packet, idx, tx, prevOuts, nil)
		if err != nil {
			return nil, &InputError{Index: idx, Err: err}
		}

		if err := finalizeInput(input, unlocking); err != nil {
			return nil, &InputError{Index: idx, Err: err}
		}
	}

	return signer.psbtOutput(packet, true, true)
}

// PlanPSBT returns plan of psbt transaction: outputs paying to publicKeys are change, others are amount,
// fee is inputs minus outputs. Available amount is the total of psbt inputs only.
func (signer *Signer) PlanPSBT(psbtBytes []byte, publicKeys [][]byte) (*txbuilder.Plan, error) {
	packet, tx, prevOuts, err := signer.parsePSBT(psbtBytes)
	if err != nil {
		return nil, err
	}

	own, err := ownScripts(publicKeys)
	if err != nil {
		return nil, err
	}

	var (
		plan      = &txbuilder.Plan{UTXOs: make([]bitcoin.UTXO, len(prevOuts))}
		sizes     = make([]txbuilder.InputSize, 0, len(prevOuts))
		estimated = true
	)
	for idx, prevOut := range prevOuts {
		sequence := tx.Inputs[idx].Sequence
		plan.UTXOs[idx] = bitcoin.UTXO{
			OutPoint: tx.Inputs[idx].PreviousOutput,
			Amount:   prevOut.Value,
			Script:   prevOut.Script,
			Sequence: &sequence,
		}

		input := packet.Inputs[idx]
		size, err := txbuilder.EstimateInput(prevOut.Script, script.NewLookup(input.RedeemScript, input.WitnessScript), signer.params)
		if err != nil {
			log.Debugf("psbt input %d size is unknown: %v", idx, err)
			estimated = false
			continue
		}
		sizes = append(sizes, size)
	}

	plan.AvailableAmount, err = bitcoin.SumAmounts(plan.UTXOs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", bitcoin.ErrInvalidUTXOAmount, err)
	}

	outputScripts := make([][]byte, 0, len(tx.Outputs))
	for _, out := range tx.Outputs {
		outputScripts = append(outputScripts, out.Script)

		if data, ok := script.MatchNullData(out.Script); ok {
			plan.OutputOpReturn = data
		}

		var total *uint64
		if _, ok := own[hex.EncodeToString(out.Script)]; ok {
			total = &plan.Change
		} else {
			total = &plan.Amount
		}
		if *total, err = numbers.Add(*total, out.Value); err != nil {
			return nil, bitcoin.Malformed(err)
		}
	}

	spent, err := numbers.Add(plan.Amount, plan.Change)
	if err != nil {
		return nil, bitcoin.Malformed(err)
	}
	plan.Fee, err = numbers.Sub(plan.AvailableAmount, spent)
	if err != nil {
		return nil, fmt.Errorf("%w: outputs %s exceed inputs %s", bitcoin.ErrMalformedInput, btcutil.Amount(spent), btcutil.Amount(plan.AvailableAmount))
	}

	if estimated {
		plan.VSize = txbuilder.EstimateVSize(sizes, outputScripts, signer.params)
	}

	return plan, nil
}

// parsePSBT parses psbt and returns its unsigned transaction with outputs spent by inputs.
func (signer *Signer) parsePSBT(psbtBytes []byte) (*psbt.Packet, *transaction.Transaction, []transaction.Output, error) {
	if format := signer.params.Format; format.Decred || format.Overwinter || format.Timestamp {
		return nil, nil, nil, fmt.Errorf("%w: psbt is not supported for %s", bitcoin.ErrMalformedInput, signer.params.Name)
	}

	packet, err := psbt.NewFromRawBytes(bytes.NewReader(psbtBytes), false)
	if err != nil {
		return nil, nil, nil, bitcoin.Malformed(err)
	}

	tx, err := transaction.FromWire(packet.UnsignedTx)
	if err != nil {
		return nil, nil, nil, err
	}

	prevOuts := make([]transaction.Output, len(packet.Inputs))
	for idx := range packet.Inputs {
		prevOut, err := txbuilder.SpentOutput(packet, idx)
		if err != nil {
			return nil, nil, nil, err
		}
		if prevOut.Value < 0 {
			return nil, nil, nil, fmt.Errorf("%w: input %d spends negative value", bitcoin.ErrMalformedInput, idx)
		}

		prevOuts[idx] = transaction.Output{Value: uint64(prevOut.Value), Script: prevOut.PkScript}
	}

	return packet, tx, prevOuts, nil
}

// solvePSBTInput resolves spend path of psbt input with signatures of its partial signatures bag,
// falling back to next source if any. Signatures produced by next source are added to the bag.
func (signer *Signer) solvePSBTInput(packet *psbt.Packet, idx int, tx *transaction.Transaction, prevOuts []transaction.Output, next sigSource) (unlocking, error) {
	var (
		input    = &packet.Inputs[idx]
		prevOut  = prevOuts[idx]
		hashType = transaction.SigHashType(input.SighashType)
	)
	if hashType == transaction.SigHashDefault && script.Classify(prevOut.Script).Type != script.Taproot {
		hashType = transaction.SigHashAll
	}

	solver := &solver{
		params:  signer.params,
		scripts: script.NewLookup(input.RedeemScript, input.WitnessScript),
		source:  &psbtSource{input: input, next: next},
	}

	return solver.solve(idx, prevOut.Script, prevOut.Value, hashType)
}

// psbtOutput serializes packet, extracts network transaction if finalized.
func (signer *Signer) psbtOutput(packet *psbt.Packet, complete, finalized bool) (*PSBTOutput, error) {
	w := bytes.NewBuffer(nil)
	if err := packet.Serialize(w); err != nil {
		return nil, err
	}

	output := &PSBTOutput{PSBT: w.Bytes(), Complete: complete}
	if !finalized {
		return output, nil
	}

	msg, err := psbt.Extract(packet)
	if err != nil {
		return nil, errors.Join(bitcoin.ErrIncompleteSignatures, err)
	}

	tx, err := transaction.FromWire(msg)
	if err != nil {
		return nil, err
	}

	output.Encoded = tx.Bytes(signer.params.Format)
	output.TxID = tx.TxIDString(signer.params.Format)

	log.Debugf("psbt finalized: %s", output.TxID)

	return output, nil
}

// isFinalized returns true if input has final scriptSig or witness.
func isFinalized(input *psbt.PInput) bool {
	return len(input.FinalScriptSig) > 0 || len(input.FinalScriptWitness) > 0
}

// finalizeInput writes final scripts to input and clears fields not needed anymore.
func finalizeInput(input *psbt.PInput, u unlocking) error {
	if len(u.witness) > 0 {
		w := bytes.NewBuffer(nil)
		if err := wire.WriteVarInt(w, 0, uint64(len(u.witness))); err != nil {
			return err
		}
		for _, item := range u.witness {
			if err := wire.WriteVarBytes(w, 0, item); err != nil {
				return err
			}
		}

		input.FinalScriptWitness = w.Bytes()
	}
	input.FinalScriptSig = u.sigScript

	input.PartialSigs = nil
	input.SighashType = 0
	input.RedeemScript = nil
	input.WitnessScript = nil
	input.Bip32Derivation = nil
	input.TaprootKeySpendSig = nil
	input.TaprootScriptSpendSig = nil
	input.TaprootLeafScript = nil
	input.TaprootBip32Derivation = nil
	input.TaprootInternalKey = nil
	input.TaprootMerkleRoot = nil

	return nil
}

// ownScripts returns set of standard locking scripts paying to publicKeys.
func ownScripts(publicKeys [][]byte) (map[string]struct{}, error) {
	own := make(map[string]struct{}, 5*len(publicKeys))
	add := func(lockingScript []byte, err error) error {
		if err != nil {
			return err
		}

		own[hex.EncodeToString(lockingScript)] = struct{}{}
		return nil
	}

	for _, publicKey := range publicKeys {
		var (
			pubKey *btcec.PublicKey
			err    error
		)
		if len(publicKey) == schnorr.PubKeyBytesLen {
			pubKey, err = schnorr.ParsePubKey(publicKey)
		} else {
			pubKey, err = btcec.ParsePubKey(publicKey)
		}
		if err != nil {
			return nil, bitcoin.Malformed(err)
		}

		if err = add(script.TaprootKeyPathScript(pubKey)); err != nil {
			return nil, err
		}
		if len(publicKey) == schnorr.PubKeyBytesLen {
			continue
		}

		hash := btcutil.Hash160(publicKey)
		nested, err := script.PayToWitnessPubKeyHash(hash)
		if err != nil {
			return nil, err
		}

		for _, lockingScript := range [][]byte{nested, script.Must(script.PayToScriptHash(btcutil.Hash160(nested)))} {
			own[hex.EncodeToString(lockingScript)] = struct{}{}
		}
		if err = add(script.PayToPubKeyHash(hash)); err != nil {
			return nil, err
		}
		if err = add(script.PayToPubKey(publicKey)); err != nil {
			return nil, err
		}
	}

	return own, nil
}

// psbtSource provides signatures collected in psbt input, falls back to next source if any.
type psbtSource struct {
	input *psbt.PInput
	next  sigSource
}

var _ sigSource = (*psbtSource)(nil)

func (source *psbtSource) publicKey(hash []byte) ([]byte, bool) {
	for _, partial := range source.input.PartialSigs {
		if bytes.Equal(btcutil.Hash160(partial.PubKey), hash) {
			return partial.PubKey, true
		}
	}
	if source.next == nil {
		return nil, false
	}

	return source.next.publicKey(hash)
}

func (source *psbtSource) signature(req sigRequest) ([]byte, error) {
	for _, partial := range source.input.PartialSigs {
		if bytes.Equal(partial.PubKey, req.pubKey) {
			return partial.Signature, nil
		}
	}
	if source.next == nil {
		return nil, nil
	}

	sig, err := source.next.signature(req)
	if err != nil || sig == nil {
		return nil, err
	}

	source.input.PartialSigs = append(source.input.PartialSigs, &psbt.PartialSig{
		PubKey:    bytes.Clone(req.pubKey),
		Signature: sig,
	})

	return sig, nil
}

func (source *psbtSource) taprootSignature(idx int, outputKey []byte, hashType transaction.SigHashType) ([]byte, error) {
	if len(source.input.TaprootKeySpendSig) > 0 {
		return source.input.TaprootKeySpendSig, nil
	}
	if source.next == nil {
		return nil, nil
	}

	sig, err := source.next.taprootSignature(idx, outputKey, hashType)
	if err != nil || sig == nil {
		return nil, err
	}

	source.input.TaprootKeySpendSig = sig

	return sig, nil
}
