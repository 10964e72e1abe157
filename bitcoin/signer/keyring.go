// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package signer

import (
	"encoding/hex"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"

	"github.com/BoostyLabs/utxo/bitcoin/chain"
	"github.com/BoostyLabs/utxo/bitcoin/script"
)

// keyEntry is private key with public key serialization committed by scripts.
type keyEntry struct {
	privateKey []byte
	publicKey  []byte
}

// keyring indexes private keys by everything a locking script can commit to.
type keyring struct {
	byHash      map[string]keyEntry // hash160 of compressed and uncompressed public keys.
	byPubKey    map[string]keyEntry // compressed and uncompressed public keys.
	byOutputKey map[string][]byte   // taproot key path output keys.

	// nested holds P2WPKH programs of compressed keys, redeem scripts of nested segwit outputs.
	nested [][]byte
}

// newKeyring derives public keys of privateKeys with keySigner.
func newKeyring(privateKeys [][]byte, keySigner KeySigner, params *chain.Params) (*keyring, error) {
	keys := &keyring{
		byHash:      make(map[string]keyEntry, 2*len(privateKeys)),
		byPubKey:    make(map[string]keyEntry, 2*len(privateKeys)),
		byOutputKey: make(map[string][]byte, len(privateKeys)),
	}

	hash160 := btcutil.Hash160
	if params.Format.Decred {
		hash160 = script.BLAKE256Hash160
	}

	for _, privateKey := range privateKeys {
		compressed, err := keySigner.PublicKey(privateKey, CurveSecp256k1)
		if err != nil {
			return nil, err
		}

		pubKey, err := btcec.ParsePubKey(compressed)
		if err != nil {
			return nil, err
		}

		for _, serialized := range [][]byte{pubKey.SerializeCompressed(), pubKey.SerializeUncompressed()} {
			entry := keyEntry{privateKey: privateKey, publicKey: serialized}
			keys.byHash[hex.EncodeToString(hash160(serialized))] = entry
			keys.byPubKey[hex.EncodeToString(serialized)] = entry
		}

		if params.Segwit {
			program, err := script.PayToWitnessPubKeyHash(hash160(pubKey.SerializeCompressed()))
			if err != nil {
				return nil, err
			}
			keys.nested = append(keys.nested, program)
		}
		if params.Taproot {
			outputKey := schnorr.SerializePubKey(txscript.ComputeTaprootKeyNoScript(pubKey))
			keys.byOutputKey[hex.EncodeToString(outputKey)] = privateKey
		}
	}

	return keys, nil
}

// publicKey returns public key of hash160.
func (keys *keyring) publicKey(hash []byte) ([]byte, bool) {
	entry, ok := keys.byHash[hex.EncodeToString(hash)]
	return entry.publicKey, ok
}

// privateKey returns private key of serialized public key.
func (keys *keyring) privateKey(pubKey []byte) ([]byte, bool) {
	entry, ok := keys.byPubKey[hex.EncodeToString(pubKey)]
	return entry.privateKey, ok
}

// taprootKey returns private key of key path output key.
func (keys *keyring) taprootKey(outputKey []byte) ([]byte, bool) {
	privateKey, ok := keys.byOutputKey[hex.EncodeToString(outputKey)]
	return privateKey, ok
}
