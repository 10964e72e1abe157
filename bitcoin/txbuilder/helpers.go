// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/BoostyLabs/utxo/bitcoin"
	"github.com/BoostyLabs/utxo/bitcoin/script"
)

// InputIndexesByType returns map with spent script types and indexes of psbt inputs to sign.
// P2SH inputs are reported by type of their redeem script when it is known.
func InputIndexesByType(data []byte) (map[script.Type][]int, error) {
	p, err := psbt.NewFromRawBytes(bytes.NewReader(data), false)
	if err != nil {
		return nil, bitcoin.Malformed(err)
	}

	result := make(map[script.Type][]int, 2)
	for idx, input := range p.Inputs {
		prevOut, err := SpentOutput(p, idx)
		if err != nil {
			return nil, err
		}

		typ := script.Classify(prevOut.PkScript).Type
		if typ == script.ScriptHash && len(input.RedeemScript) > 0 {
			typ = script.Classify(input.RedeemScript).Type
		}

		result[typ] = append(result[typ], idx)
	}

	return result, nil
}

// SpentOutput returns output spent by psbt input idx from witness or non-witness utxo.
func SpentOutput(p *psbt.Packet, idx int) (*wire.TxOut, error) {
	input := p.Inputs[idx]
	switch {
	case input.WitnessUtxo != nil:
		return input.WitnessUtxo, nil
	case input.NonWitnessUtxo != nil:
		prevOut := p.UnsignedTx.TxIn[idx].PreviousOutPoint
		if input.NonWitnessUtxo.TxHash() != prevOut.Hash || int(prevOut.Index) >= len(input.NonWitnessUtxo.TxOut) {
			return nil, fmt.Errorf("%w: input %d: non-witness utxo does not match outpoint", bitcoin.ErrMalformedInput, idx)
		}

		return input.NonWitnessUtxo.TxOut[prevOut.Index], nil
	default:
		return nil, fmt.Errorf("%w: input %d: spent output is unknown", bitcoin.ErrMalformedInput, idx)
	}
}

// PrepareTapLeaf updates taproot psbt input with leaf script data needed to spend it by leafScript of tapScriptTree.
// Input must carry taproot internal key.
func PrepareTapLeaf(input *psbt.PInput, tapScriptTree *txscript.IndexedTapScriptTree, leafScript []byte) error {
	if len(input.TaprootInternalKey) == 0 {
		return errors.Join(ErrPSBTInputBuilder, errors.New("no taproot internal key provided"))
	}

	internalKey, err := schnorr.ParsePubKey(input.TaprootInternalKey)
	if err != nil {
		return errors.Join(ErrPSBTInputBuilder, bitcoin.Malformed(err))
	}

	tapLeaf := txscript.NewBaseTapLeaf(leafScript)
	idx, ok := tapScriptTree.LeafProofIndex[tapLeaf.TapHash()]
	if !ok {
		return fmt.Errorf("%w: %w: leaf is not in the tree", ErrPSBTInputBuilder, bitcoin.ErrMissingScript)
	}

	ctrlBlock := tapScriptTree.LeafMerkleProofs[idx].ToControlBlock(internalKey)
	tapLeafScript := &psbt.TaprootTapLeafScript{
		Script:      tapLeaf.Script,
		LeafVersion: tapLeaf.LeafVersion,
	}
	tapLeafScript.ControlBlock, err = ctrlBlock.ToBytes()
	if err != nil {
		return err
	}

	input.TaprootLeafScript = []*psbt.TaprootTapLeafScript{tapLeafScript}
	input.TaprootMerkleRoot = ctrlBlock.RootHash(tapLeaf.Script)

	return nil
}
