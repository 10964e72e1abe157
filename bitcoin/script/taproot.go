// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package script

import (
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/txscript"
)

// TaprootKeyPathScript returns P2TR script of key-path-only output for internal key.
func TaprootKeyPathScript(internalKey *btcec.PublicKey) ([]byte, error) {
	return PayToTaproot(schnorr.SerializePubKey(txscript.ComputeTaprootKeyNoScript(internalKey)))
}

// TaprootScriptTreeScript returns P2TR script of output committing to tapScript tree.
func TaprootScriptTreeScript(internalKey *btcec.PublicKey, tree *txscript.IndexedTapScriptTree) ([]byte, error) {
	rootHash := tree.RootNode.TapHash()
	outputKey := txscript.ComputeTaprootOutputKey(internalKey, rootHash[:])

	return PayToTaproot(schnorr.SerializePubKey(outputKey))
}

// TaprootMultisigLeaf generates N of N multi-sig locking script for taproot leaf.
// INFO: Script will have the next format: {<pubKey1> OP_CHECKSIG [<pubKey2> OP_CHECKSIGADD ...] <N> OP_EQUAL}.
func TaprootMultisigLeaf(pubKeys ...*btcec.PublicKey) ([]byte, error) {
	if len(pubKeys) < 2 {
		return nil, errors.New("at least 2 public keys are required")
	}
	if len(pubKeys) > 999 {
		return nil, errors.New("max allowed public keys: 999")
	}

	checkSigOp := byte(txscript.OP_CHECKSIG)
	builder := txscript.NewScriptBuilder()
	for _, pubKey := range pubKeys {
		builder.AddData(schnorr.SerializePubKey(pubKey)).AddOp(checkSigOp)
		checkSigOp = txscript.OP_CHECKSIGADD
	}

	return builder.
		AddInt64(int64(len(pubKeys))).
		AddOp(txscript.OP_EQUAL).
		Script()
}

// NewTapScriptTree builds tapScript tree from provided raw leaf scripts.
func NewTapScriptTree(leafScripts ...[]byte) (*txscript.IndexedTapScriptTree, error) {
	if len(leafScripts) == 0 {
		return nil, errors.New("no leaf scripts provided")
	}

	var tapLeafs = make([]txscript.TapLeaf, len(leafScripts))
	for i, leafScript := range leafScripts {
		tapLeafs[i] = txscript.NewBaseTapLeaf(leafScript)
	}

	return txscript.AssembleTaprootScriptTree(tapLeafs...), nil
}
