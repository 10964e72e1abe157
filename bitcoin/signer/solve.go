// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package signer

import (
	"fmt"

	"github.com/BoostyLabs/utxo/bitcoin"
	"github.com/BoostyLabs/utxo/bitcoin/chain"
	"github.com/BoostyLabs/utxo/bitcoin/script"
	"github.com/BoostyLabs/utxo/bitcoin/transaction"
)

// sigRequest describes signature of one public key over one input.
type sigRequest struct {
	idx        int
	pubKey     []byte
	scriptCode []byte
	amount     uint64
	hashType   transaction.SigHashType
	version    transaction.SigVersion
}

// sigSource provides public keys and signatures for spend paths.
type sigSource interface {
	// publicKey returns public key having hash160.
	publicKey(hash []byte) ([]byte, bool)
	// signature returns signature with hash type byte, nil if public key can not sign.
	signature(req sigRequest) ([]byte, error)
	// taprootSignature returns key path signature for output key, nil if it can not sign.
	taprootSignature(idx int, outputKey []byte, hashType transaction.SigHashType) ([]byte, error)
}

// unlocking holds unlocking data of one input.
type unlocking struct {
	sigScript []byte
	witness   [][]byte
}

// solver resolves spend path of input and assembles its unlocking data.
type solver struct {
	params  *chain.Params
	scripts script.Lookup
	source  sigSource
}

// solve returns unlocking data of input idx spending amount locked by lockingScript.
func (s *solver) solve(idx int, lockingScript []byte, amount uint64, hashType transaction.SigHashType) (unlocking, error) {
	class := script.Classify(lockingScript)
	log.Tracef("input %d: spending %s", idx, class.Type)

	if class.Type.IsWitness() && !s.params.Segwit {
		return unlocking{}, fmt.Errorf("%w: %s on %s", bitcoin.ErrUnsupportedScript, class.Type, s.params.Name)
	}

	switch class.Type {
	case script.ScriptHash, script.ScriptHashReplay:
		redeemScript, ok := s.scripts.Find(class.Hash)
		if !ok {
			return unlocking{}, fmt.Errorf("%w: redeem script %x", bitcoin.ErrMissingScript, class.Hash)
		}

		switch inner := script.Classify(redeemScript); inner.Type {
		case script.WitnessPubKeyHash, script.WitnessScriptHash:
			if !s.params.Segwit {
				return unlocking{}, fmt.Errorf("%w: nested %s on %s", bitcoin.ErrUnsupportedScript, inner.Type, s.params.Name)
			}

			nested, err := s.solveWitness(idx, inner, amount, hashType)
			nested.sigScript = script.PushData(redeemScript)
			return nested, err
		}

		items, err := s.solveBase(sigRequest{idx: idx, scriptCode: redeemScript, amount: amount, hashType: hashType})
		return unlocking{sigScript: script.PushAll(append(items, redeemScript))}, err
	case script.WitnessPubKeyHash, script.WitnessScriptHash:
		return s.solveWitness(idx, class, amount, hashType)
	case script.Taproot:
		if !s.params.Taproot {
			return unlocking{}, fmt.Errorf("%w: %s on %s", bitcoin.ErrUnsupportedScript, class.Type, s.params.Name)
		}

		sig, err := s.source.taprootSignature(idx, class.Hash, hashType)
		switch {
		case err != nil:
			return unlocking{}, err
		case sig == nil:
			return unlocking{}, fmt.Errorf("%w: taproot output key %x", bitcoin.ErrMissingPrivateKey, class.Hash)
		}

		return unlocking{witness: [][]byte{sig}}, nil
	default:
		items, err := s.solveBase(sigRequest{idx: idx, scriptCode: lockingScript, amount: amount, hashType: hashType})
		return unlocking{sigScript: script.PushAll(items)}, err
	}
}

// solveWitness returns witness of version 0 program of class.
func (s *solver) solveWitness(idx int, class script.Class, amount uint64, hashType transaction.SigHashType) (unlocking, error) {
	req := sigRequest{idx: idx, amount: amount, hashType: hashType, version: transaction.SigVersionWitnessV0}

	switch class.Type {
	case script.WitnessPubKeyHash:
		scriptCode, err := script.PayToPubKeyHash(class.Hash)
		if err != nil {
			return unlocking{}, err
		}

		req.scriptCode = scriptCode
		items, err := s.solveBase(req)
		return unlocking{witness: items}, err
	default:
		witnessScript, ok := s.scripts.Find(class.Hash)
		if !ok {
			return unlocking{}, fmt.Errorf("%w: witness script %x", bitcoin.ErrMissingScript, class.Hash)
		}

		req.scriptCode = witnessScript
		items, err := s.solveBase(req)
		return unlocking{witness: append(items, witnessScript)}, err
	}
}

// solveBase returns stack items unlocking req.scriptCode: P2PK, P2PKH, its replay protected
// variant or multisig. Multisig signatures follow public keys order, keys without signature are skipped.
func (s *solver) solveBase(req sigRequest) ([][]byte, error) {
	class := script.Classify(req.scriptCode)
	switch class.Type {
	case script.PubKey:
		sig, err := s.sign(req, class.PubKeys[0])
		if err != nil {
			return nil, err
		}

		return [][]byte{sig}, nil
	case script.PubKeyHash, script.PubKeyHashReplay:
		pubKey, ok := s.source.publicKey(class.Hash)
		if !ok {
			return nil, fmt.Errorf("%w: public key hash %x", bitcoin.ErrMissingPrivateKey, class.Hash)
		}

		sig, err := s.sign(req, pubKey)
		if err != nil {
			return nil, err
		}

		return [][]byte{sig, pubKey}, nil
	case script.Multisig:
		// OP_CHECKMULTISIG pops one extra item.
		items := [][]byte{{}}
		for _, pubKey := range class.PubKeys {
			if len(items) > class.Required {
				break
			}

			req.pubKey = pubKey
			sig, err := s.source.signature(req)
			if err != nil {
				return nil, err
			}
			if sig != nil {
				items = append(items, sig)
			}
		}

		if signed := len(items) - 1; signed < class.Required {
			return nil, fmt.Errorf("%w: %d of %d multisig signatures", bitcoin.ErrMissingPrivateKey, signed, class.Required)
		}

		return items, nil
	default:
		return nil, fmt.Errorf("%w: %s", bitcoin.ErrUnsupportedScript, class.Type)
	}
}

// sign returns signature of pubKey, fails if source can not produce it.
func (s *solver) sign(req sigRequest, pubKey []byte) ([]byte, error) {
	req.pubKey = pubKey

	sig, err := s.source.signature(req)
	switch {
	case err != nil:
		return nil, err
	case sig == nil:
		return nil, fmt.Errorf("%w: public key %x", bitcoin.ErrMissingPrivateKey, pubKey)
	}

	return sig, nil
}
