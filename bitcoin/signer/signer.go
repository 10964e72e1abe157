// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package signer

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"

	"github.com/BoostyLabs/utxo/bitcoin"
	"github.com/BoostyLabs/utxo/bitcoin/chain"
	"github.com/BoostyLabs/utxo/bitcoin/script"
	"github.com/BoostyLabs/utxo/bitcoin/transaction"
	"github.com/BoostyLabs/utxo/bitcoin/txbuilder"
)

// ErrInvalidSignature defines signature produced by key signer that does not verify.
var ErrInvalidSignature = errors.New("invalid signature")

// InputError describes failure of signing or finalizing one input.
type InputError struct {
	Index int
	Err   error
}

// Error returns error description.
func (e *InputError) Error() string {
	return fmt.Sprintf("input %d: %v", e.Index, e.Err)
}

// Unwrap returns underlying error.
func (e *InputError) Unwrap() error {
	return e.Err
}

// SigningInput describes transaction to plan, build and sign.
type SigningInput struct {
	Request     txbuilder.Request
	Plan        *txbuilder.Plan // nil means planned from Request, otherwise used as is.
	PrivateKeys [][]byte
	// HashType zero value means SIGHASH_ALL, SIGHASH_DEFAULT for taproot inputs.
	HashType  transaction.SigHashType
	KeySigner KeySigner // nil means Secp256k1.
}

// SigningOutput describes signed transaction.
type SigningOutput struct {
	Transaction *transaction.Transaction
	Encoded     []byte
	TxID        string
	Signatures  [][]byte // in production order.
	Plan        *txbuilder.Plan
	Fee         uint64
	VSize       int
}

// Signer provides transaction signing related logic.
type Signer struct {
	params *chain.Params
}

// NewSigner is a constructor for Signer.
func NewSigner(params *chain.Params) *Signer {
	return &Signer{
		params: params,
	}
}

// Sign builds transaction of input plan and signs every input.
func (signer *Signer) Sign(input SigningInput) (*SigningOutput, error) {
	builder := txbuilder.NewTxBuilder(signer.params)

	plan := input.Plan
	if plan == nil {
		var err error
		plan, err = builder.Plan(input.Request)
		if err != nil {
			return nil, err
		}
	}

	tx, err := builder.BuildTransaction(plan, input.Request)
	if err != nil {
		return nil, err
	}

	keySigner := input.KeySigner
	if keySigner == nil {
		keySigner = Secp256k1{}
	}

	keys, err := newKeyring(input.PrivateKeys, keySigner, signer.params)
	if err != nil {
		return nil, err
	}

	prevOuts := make([]transaction.Output, len(plan.UTXOs))
	for i, utxo := range plan.UTXOs {
		prevOuts[i] = transaction.Output{Value: utxo.Amount, Script: utxo.Script}
	}

	source := &keySource{
		params:    signer.params,
		tx:        tx,
		prevOuts:  prevOuts,
		keys:      keys,
		keySigner: keySigner,
	}
	solver := &solver{
		params:  signer.params,
		scripts: signer.lookup(input.Request.Scripts, keys.nested),
		source:  source,
	}

	// unlocking scripts are set after every input is signed.
	unlockings := make([]unlocking, len(plan.UTXOs))
	for idx, utxo := range plan.UTXOs {
		hashType := input.HashType
		if hashType == transaction.SigHashDefault && script.Classify(utxo.Script).Type != script.Taproot {
			hashType = transaction.SigHashAll
		}

		unlockings[idx], err = solver.solve(idx, utxo.Script, utxo.Amount, hashType)
		if err != nil {
			return nil, &InputError{Index: idx, Err: err}
		}
	}
	for idx, unlocking := range unlockings {
		tx.Inputs[idx].Script = unlocking.sigScript
		tx.Inputs[idx].Witness = unlocking.witness
	}

	format := signer.params.Format
	output := &SigningOutput{
		Transaction: tx,
		Encoded:     tx.Bytes(format),
		TxID:        tx.TxIDString(format),
		Signatures:  source.signatures,
		Plan:        plan,
		Fee:         plan.Fee,
		VSize:       tx.VirtualSize(format),
	}

	log.Debugf("signed %s: %d inputs, fee %s, vsize %d", output.TxID, len(tx.Inputs), btcutil.Amount(plan.Fee), output.VSize)

	return output, nil
}

// lookup returns scripts extended with nested segwit redeem scripts.
func (signer *Signer) lookup(scripts script.Lookup, nested [][]byte) script.Lookup {
	lookup := make(script.Lookup, len(scripts)+3*len(nested))
	for hash, s := range scripts {
		lookup[hash] = s
	}
	for _, s := range nested {
		lookup.Add(s)
	}

	return lookup
}

// keySource signs with private keys of keyring.
type keySource struct {
	params    *chain.Params
	tx        *transaction.Transaction
	prevOuts  []transaction.Output
	keys      *keyring
	keySigner KeySigner

	signatures [][]byte
}

var _ sigSource = (*keySource)(nil)

func (source *keySource) publicKey(hash []byte) ([]byte, bool) {
	return source.keys.publicKey(hash)
}

func (source *keySource) signature(req sigRequest) ([]byte, error) {
	privateKey, ok := source.keys.privateKey(req.pubKey)
	if !ok {
		return nil, nil
	}

	hash, err := source.tx.SignatureHash(source.params, req.idx, req.scriptCode, req.amount, req.hashType, req.version)
	if err != nil {
		return nil, err
	}

	der, err := source.keySigner.Sign(privateKey, hash, CurveSecp256k1)
	if err != nil {
		return nil, err
	}

	pubKey, err := btcec.ParsePubKey(req.pubKey)
	if err != nil {
		return nil, bitcoin.Malformed(err)
	}
	sig, err := ecdsa.ParseDERSignature(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	if !sig.Verify(hash, pubKey) {
		return nil, fmt.Errorf("%w: input %d", ErrInvalidSignature, req.idx)
	}

	fullType := source.params.SigHashType(uint32(req.hashType))
	signature := append(der, byte(fullType))
	source.signatures = append(source.signatures, signature)

	return signature, nil
}

func (source *keySource) taprootSignature(idx int, outputKey []byte, hashType transaction.SigHashType) ([]byte, error) {
	privateKey, ok := source.keys.taprootKey(outputKey)
	if !ok {
		return nil, nil
	}

	hash, err := source.tx.TaprootSignatureHash(idx, source.prevOuts, hashType)
	if err != nil {
		return nil, err
	}

	internal, err := parsePrivateKey(privateKey)
	if err != nil {
		return nil, err
	}
	tweaked := txscript.TweakTaprootPrivKey(*internal, nil)

	raw, err := source.keySigner.Sign(tweaked.Serialize(), hash, CurveSecp256k1Schnorr)
	if err != nil {
		return nil, err
	}

	sig, err := schnorr.ParseSignature(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	if !sig.Verify(hash, tweaked.PubKey()) {
		return nil, fmt.Errorf("%w: input %d", ErrInvalidSignature, idx)
	}

	signature := raw
	if hashType != transaction.SigHashDefault {
		signature = append(signature, byte(hashType))
	}
	source.signatures = append(source.signatures, signature)

	return signature, nil
}
