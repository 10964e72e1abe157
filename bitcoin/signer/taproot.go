// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package signer

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/BoostyLabs/utxo/bitcoin"
	"github.com/BoostyLabs/utxo/bitcoin/script"
	"github.com/BoostyLabs/utxo/bitcoin/transaction"
	"github.com/BoostyLabs/utxo/bitcoin/txbuilder"
)

// SignTaprootParams defines parameters for SignTaproot method.
type SignTaprootParams struct {
	SerializedPSBT []byte
	Inputs         []int // inputs indexes.
	PrivateKey     *btcec.PrivateKey
}

// signTaprootInputParams defines parameters for signTaprootInput method.
type signTaprootInputParams struct {
	packet     *psbt.Packet
	input      int
	sigHashes  *txscript.TxSigHashes
	privateKey *btcec.PrivateKey
}

// SignTaproot signs taproot inputs by provided indexes, returns updated serialized PSBT.
// Inputs with witness script or single leaf script are signed by script path, others by key path
// tweaked with input merkle root.
func (signer *Signer) SignTaproot(params SignTaprootParams) ([]byte, error) {
	if !signer.params.Taproot {
		return nil, fmt.Errorf("%w: taproot on %s", bitcoin.ErrUnsupportedScript, signer.params.Name)
	}
	if params.PrivateKey == nil {
		return nil, bitcoin.ErrMissingPrivateKey
	}

	packet, tx, prevOuts, err := signer.parsePSBT(params.SerializedPSBT)
	if err != nil {
		return nil, err
	}

	fetcher, err := tx.PrevOutFetcher(prevOuts)
	if err != nil {
		return nil, err
	}

	sigHashes := txscript.NewTxSigHashes(packet.UnsignedTx, fetcher)
	for _, input := range params.Inputs {
		if input < 0 || len(packet.Inputs) <= input {
			return nil, fmt.Errorf("%w: %d of %d", transaction.ErrInputIndex, input, len(packet.Inputs))
		}

		err = signer.signTaprootInput(signTaprootInputParams{
			packet:     packet,
			input:      input,
			sigHashes:  sigHashes,
			privateKey: params.PrivateKey,
		})
		if err != nil {
			return nil, &InputError{Index: input, Err: err}
		}
	}

	w := bytes.NewBuffer(nil)
	err = packet.Serialize(w)
	if err != nil {
		return nil, err
	}

	return w.Bytes(), nil
}

// signTaprootInput signs taproot input with or without leaf script.
func (signer *Signer) signTaprootInput(params signTaprootInputParams) error {
	prevOut, err := spentTaprootOutput(params.packet, params.input)
	if err != nil {
		return err
	}

	var (
		input       = &params.packet.Inputs[params.input]
		sigHashType = input.SighashType
	)

	tapLeaf, ctrlBlockBytes, ok, err := leafScript(input, params.privateKey.PubKey())
	if err != nil {
		return err
	}
	if ok {
		sig, err := txscript.RawTxInTapscriptSignature(
			params.packet.UnsignedTx, params.sigHashes, params.input,
			prevOut.Value, prevOut.PkScript, tapLeaf, sigHashType, params.privateKey,
		)
		if err != nil {
			return err
		}

		// hash type is kept in its own field.
		if len(sig) > schnorr.SignatureSize {
			sig = sig[:schnorr.SignatureSize]
		}

		var (
			xOnlyPubKey = schnorr.SerializePubKey(params.privateKey.PubKey())
			leafHash    = tapLeaf.TapHash()
			spendSigs   = make([]*psbt.TaprootScriptSpendSig, 0, len(input.TaprootScriptSpendSig)+1)
		)
		for _, spendSig := range input.TaprootScriptSpendSig {
			if !bytes.Equal(spendSig.XOnlyPubKey, xOnlyPubKey) || !bytes.Equal(spendSig.LeafHash, leafHash[:]) {
				spendSigs = append(spendSigs, spendSig)
			}
		}
		input.TaprootScriptSpendSig = append(spendSigs, &psbt.TaprootScriptSpendSig{
			XOnlyPubKey: xOnlyPubKey,
			LeafHash:    leafHash.CloneBytes(),
			Signature:   sig,
			SigHash:     sigHashType,
		})

		input.TaprootLeafScript = []*psbt.TaprootTapLeafScript{{
			ControlBlock: ctrlBlockBytes,
			Script:       tapLeaf.Script,
			LeafVersion:  tapLeaf.LeafVersion,
		}}

		return nil
	}

	outputKey, _ := script.MatchTaproot(prevOut.PkScript)
	tweaked := txscript.ComputeTaprootOutputKey(params.privateKey.PubKey(), input.TaprootMerkleRoot)
	if !bytes.Equal(schnorr.SerializePubKey(tweaked), outputKey) {
		return fmt.Errorf("%w: taproot output key %x", bitcoin.ErrMissingPrivateKey, outputKey)
	}

	sig, err := txscript.RawTxInTaprootSignature(
		params.packet.UnsignedTx, params.sigHashes, params.input,
		prevOut.Value, prevOut.PkScript, input.TaprootMerkleRoot, sigHashType, params.privateKey,
	)
	if err != nil {
		return err
	}

	input.TaprootKeySpendSig = sig

	return nil
}

// spentTaprootOutput returns output spent by input, fails if it is not taproot one.
func spentTaprootOutput(packet *psbt.Packet, idx int) (*wire.TxOut, error) {
	prevOut, err := txbuilder.SpentOutput(packet, idx)
	if err != nil {
		return nil, err
	}
	if _, ok := script.MatchTaproot(prevOut.PkScript); !ok {
		return nil, fmt.Errorf("%w: %s is not taproot", bitcoin.ErrUnsupportedScript, script.Classify(prevOut.PkScript).Type)
	}

	return prevOut, nil
}

// leafScript returns tapScript leaf of input with serialized control block. Witness script is
// treated as the only leaf of tree with input internal key, or signing key if input has none.
func leafScript(input *psbt.PInput, signingKey *btcec.PublicKey) (txscript.TapLeaf, []byte, bool, error) {
	switch {
	case len(input.WitnessScript) != 0:
		internalKey := signingKey
		if len(input.TaprootInternalKey) != 0 {
			var err error
			internalKey, err = schnorr.ParsePubKey(input.TaprootInternalKey)
			if err != nil {
				return txscript.TapLeaf{}, nil, false, bitcoin.Malformed(err)
			}
		}

		var (
			tapLeaf       = txscript.NewBaseTapLeaf(input.WitnessScript)
			tapScriptTree = txscript.AssembleTaprootScriptTree(tapLeaf)
			ctrlBlock     = tapScriptTree.LeafMerkleProofs[0].ToControlBlock(internalKey)
		)

		ctrlBlockBytes, err := ctrlBlock.ToBytes()
		if err != nil {
			return txscript.TapLeaf{}, nil, false, err
		}

		return tapLeaf, ctrlBlockBytes, true, nil
	case len(input.TaprootLeafScript) == 1:
		leaf := input.TaprootLeafScript[0]

		return txscript.NewTapLeaf(leaf.LeafVersion, leaf.Script), leaf.ControlBlock, true, nil
	default:
		return txscript.TapLeaf{}, nil, false, nil
	}
}
