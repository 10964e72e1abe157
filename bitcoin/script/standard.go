// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package script

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/txscript"

	"github.com/BoostyLabs/utxo/internal/sequencereader"
)

const (
	// HashLen defines length of hash160 key and script hashes.
	HashLen = 20
	// WitnessScriptHashLen defines length of sha256 witness script hash.
	WitnessScriptHashLen = 32
	// TaprootKeyLen defines length of x-only taproot output key.
	TaprootKeyLen = 32
	// MaxMultisigKeys defines maximum keys count of standard multisig.
	MaxMultisigKeys = 16
)

var (
	// ErrInvalidField defines builder arguments errors class.
	ErrInvalidField = errors.New("invalid script field")
	// ErrPayloadTooLarge defines OP_RETURN payload larger than chain allows.
	ErrPayloadTooLarge = errors.New("op_return payload too large")
)

// PayToPubKey builds <pubKey> OP_CHECKSIG.
func PayToPubKey(pubKey []byte) ([]byte, error) {
	if !isPubKey(pubKey) {
		return nil, fmt.Errorf("%w: public key of %d bytes", ErrInvalidField, len(pubKey))
	}

	return txscript.NewScriptBuilder().
		AddData(pubKey).
		AddOp(txscript.OP_CHECKSIG).
		Script()
}

// PayToPubKeyHash builds OP_DUP OP_HASH160 <hash> OP_EQUALVERIFY OP_CHECKSIG.
func PayToPubKeyHash(hash []byte) ([]byte, error) {
	if len(hash) != HashLen {
		return nil, fmt.Errorf("%w: key hash of %d bytes", ErrInvalidField, len(hash))
	}

	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_DUP).
		AddOp(txscript.OP_HASH160).
		AddData(hash).
		AddOp(txscript.OP_EQUALVERIFY).
		AddOp(txscript.OP_CHECKSIG).
		Script()
}

// PayToScriptHash builds OP_HASH160 <hash> OP_EQUAL.
func PayToScriptHash(hash []byte) ([]byte, error) {
	if len(hash) != HashLen {
		return nil, fmt.Errorf("%w: script hash of %d bytes", ErrInvalidField, len(hash))
	}

	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_HASH160).
		AddData(hash).
		AddOp(txscript.OP_EQUAL).
		Script()
}

// PayToWitnessProgram builds <version> <program>.
func PayToWitnessProgram(version byte, program []byte) ([]byte, error) {
	switch {
	case version > 16:
		return nil, fmt.Errorf("%w: witness version %d", ErrInvalidField, version)
	case len(program) < 2 || len(program) > 40:
		return nil, fmt.Errorf("%w: witness program of %d bytes", ErrInvalidField, len(program))
	case version == 0 && len(program) != HashLen && len(program) != WitnessScriptHashLen:
		return nil, fmt.Errorf("%w: witness v0 program of %d bytes", ErrInvalidField, len(program))
	}

	return txscript.NewScriptBuilder().
		AddInt64(int64(version)).
		AddData(program).
		Script()
}

// PayToWitnessPubKeyHash builds OP_0 <hash>.
func PayToWitnessPubKeyHash(hash []byte) ([]byte, error) {
	if len(hash) != HashLen {
		return nil, fmt.Errorf("%w: witness key hash of %d bytes", ErrInvalidField, len(hash))
	}

	return PayToWitnessProgram(0, hash)
}

// PayToWitnessScriptHash builds OP_0 <sha256(script)>.
func PayToWitnessScriptHash(hash []byte) ([]byte, error) {
	if len(hash) != WitnessScriptHashLen {
		return nil, fmt.Errorf("%w: witness script hash of %d bytes", ErrInvalidField, len(hash))
	}

	return PayToWitnessProgram(0, hash)
}

// PayToTaproot builds OP_1 <x-only output key>.
func PayToTaproot(outputKey []byte) ([]byte, error) {
	if len(outputKey) != TaprootKeyLen {
		return nil, fmt.Errorf("%w: taproot key of %d bytes", ErrInvalidField, len(outputKey))
	}

	return PayToWitnessProgram(1, outputKey)
}

// PayToMultisig builds <required> <pubKey1> ... <pubKeyN> <N> OP_CHECKMULTISIG.
func PayToMultisig(required int, pubKeys [][]byte) ([]byte, error) {
	if len(pubKeys) == 0 || len(pubKeys) > MaxMultisigKeys {
		return nil, fmt.Errorf("%w: %d multisig keys", ErrInvalidField, len(pubKeys))
	}
	if required < 1 || required > len(pubKeys) {
		return nil, fmt.Errorf("%w: %d of %d multisig", ErrInvalidField, required, len(pubKeys))
	}

	builder := txscript.NewScriptBuilder().AddInt64(int64(required))
	for _, pubKey := range pubKeys {
		if !isPubKey(pubKey) {
			return nil, fmt.Errorf("%w: public key of %d bytes", ErrInvalidField, len(pubKey))
		}
		builder.AddData(pubKey)
	}

	return builder.
		AddInt64(int64(len(pubKeys))).
		AddOp(txscript.OP_CHECKMULTISIG).
		Script()
}

// PayToNullData builds provably unspendable OP_RETURN <payload> script.
// INFO: Def: https://en.bitcoin.it/wiki/OP_RETURN.
func PayToNullData(payload []byte, maxSize int) ([]byte, error) {
	if len(payload) > maxSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, len(payload), maxSize)
	}

	builder := txscript.NewScriptBuilder().AddOp(txscript.OP_RETURN)
	if len(payload) > 0 {
		builder.AddFullData(payload)
	}

	return builder.Script()
}

// PayToScriptHashReplay builds OP_HASH160 <hash> OP_EQUAL <blockHash> <height> OP_CHECKBLOCKATHEIGHT.
func PayToScriptHashReplay(hash, blockHash []byte, height int64) ([]byte, error) {
	base, err := PayToScriptHash(hash)
	if err != nil {
		return nil, err
	}

	return appendReplayProtection(base, blockHash, height)
}

// PayToPubKeyHashReplay builds P2PKH script followed by <blockHash> <height> OP_CHECKBLOCKATHEIGHT.
func PayToPubKeyHashReplay(hash, blockHash []byte, height int64) ([]byte, error) {
	base, err := PayToPubKeyHash(hash)
	if err != nil {
		return nil, err
	}

	return appendReplayProtection(base, blockHash, height)
}

// appendReplayProtection appends block reference to base script.
func appendReplayProtection(base, blockHash []byte, height int64) ([]byte, error) {
	if len(blockHash) != WitnessScriptHashLen {
		return nil, fmt.Errorf("%w: block hash of %d bytes", ErrInvalidField, len(blockHash))
	}
	if height < 0 {
		return nil, fmt.Errorf("%w: negative block height", ErrInvalidField)
	}

	suffix, err := txscript.NewScriptBuilder().
		AddData(blockHash).
		AddInt64(height).
		AddOp(OpCheckBlockAtHeight).
		Script()
	if err != nil {
		return nil, err
	}

	return append(bytes.Clone(base), suffix...), nil
}

// MatchPubKey returns public key of P2PK script.
func MatchPubKey(script []byte) ([]byte, bool) {
	switch {
	case len(script) == 35 && script[0] == txscript.OP_DATA_33 && script[34] == txscript.OP_CHECKSIG:
	case len(script) == 67 && script[0] == txscript.OP_DATA_65 && script[66] == txscript.OP_CHECKSIG:
	default:
		return nil, false
	}

	pubKey := script[1 : len(script)-1]
	if !isPubKey(pubKey) {
		return nil, false
	}

	return pubKey, true
}

// MatchPubKeyHash returns key hash of P2PKH script.
func MatchPubKeyHash(script []byte) ([]byte, bool) {
	if len(script) != 25 || script[0] != txscript.OP_DUP || script[1] != txscript.OP_HASH160 ||
		script[2] != txscript.OP_DATA_20 || script[23] != txscript.OP_EQUALVERIFY ||
		script[24] != txscript.OP_CHECKSIG {
		return nil, false
	}

	return script[3:23], true
}

// MatchScriptHash returns script hash of P2SH script.
func MatchScriptHash(script []byte) ([]byte, bool) {
	if len(script) != 23 || script[0] != txscript.OP_HASH160 || script[1] != txscript.OP_DATA_20 ||
		script[22] != txscript.OP_EQUAL {
		return nil, false
	}

	return script[2:22], true
}

// MatchWitnessProgram returns version and program of witness program script, version 0 programs
// must hold key hash or script hash.
func MatchWitnessProgram(script []byte) (byte, []byte, bool) {
	if len(script) < 4 || len(script) > 42 {
		return 0, nil, false
	}
	if script[0] != txscript.OP_0 && (script[0] < txscript.OP_1 || script[0] > txscript.OP_16) {
		return 0, nil, false
	}
	if int(script[1]) != len(script)-2 {
		return 0, nil, false
	}

	version, program := byte(0), script[2:]
	if script[0] != txscript.OP_0 {
		version = script[0] - (txscript.OP_1 - 1)
	}
	if version == 0 && len(program) != HashLen && len(program) != WitnessScriptHashLen {
		return 0, nil, false
	}

	return version, program, true
}

// MatchWitnessPubKeyHash returns key hash of P2WPKH script.
func MatchWitnessPubKeyHash(script []byte) ([]byte, bool) {
	version, program, ok := MatchWitnessProgram(script)
	if !ok || version != 0 || len(program) != HashLen {
		return nil, false
	}

	return program, true
}

// MatchWitnessScriptHash returns script hash of P2WSH script.
func MatchWitnessScriptHash(script []byte) ([]byte, bool) {
	version, program, ok := MatchWitnessProgram(script)
	if !ok || version != 0 || len(program) != WitnessScriptHashLen {
		return nil, false
	}

	return program, true
}

// MatchTaproot returns output key of P2TR script.
func MatchTaproot(script []byte) ([]byte, bool) {
	version, program, ok := MatchWitnessProgram(script)
	if !ok || version != 1 || len(program) != TaprootKeyLen {
		return nil, false
	}

	return program, true
}

// MatchMultisig returns required signatures count and public keys of bare multisig script.
// Public keys may be pushed with any push encoding.
func MatchMultisig(script []byte) (required int, pubKeys [][]byte, ok bool) {
	ops, ok := Decode(script)
	if !ok || len(ops) < 4 {
		return 0, nil, false
	}

	reader := sequencereader.New(ops)
	first, _ := reader.Next()
	required, ok = first.SmallInt()
	if !ok || required < 1 {
		return 0, nil, false
	}

	for reader.Len() > 2 {
		op, _ := reader.Next()
		if !op.IsPush() || !isPubKey(op.Data) {
			return 0, nil, false
		}
		pubKeys = append(pubKeys, op.Data)
	}

	countOp, _ := reader.Next()
	count, ok := countOp.SmallInt()
	if !ok || count != len(pubKeys) || required > count {
		return 0, nil, false
	}

	last, _ := reader.Next()
	if last.Code != txscript.OP_CHECKMULTISIG {
		return 0, nil, false
	}

	return required, pubKeys, true
}

// MatchNullData returns payload of OP_RETURN [<payload>] script.
func MatchNullData(script []byte) ([]byte, bool) {
	ops, ok := Decode(script)
	if !ok || len(ops) == 0 || len(ops) > 2 || ops[0].Code != txscript.OP_RETURN {
		return nil, false
	}
	if len(ops) == 1 {
		return []byte{}, true
	}
	if !ops[1].IsPush() {
		return nil, false
	}

	return ops[1].Data, true
}

// MatchScriptHashReplay returns script hash, block hash and height of replay protected P2SH script.
func MatchScriptHashReplay(script []byte) (hash, blockHash []byte, height int64, ok bool) {
	if len(script) < 23 {
		return nil, nil, 0, false
	}

	hash, ok = MatchScriptHash(script[:23])
	if !ok {
		return nil, nil, 0, false
	}

	blockHash, height, ok = matchReplaySuffix(script[23:])

	return hash, blockHash, height, ok
}

// MatchPubKeyHashReplay returns key hash, block hash and height of replay protected P2PKH script.
func MatchPubKeyHashReplay(script []byte) (hash, blockHash []byte, height int64, ok bool) {
	if len(script) < 25 {
		return nil, nil, 0, false
	}

	hash, ok = MatchPubKeyHash(script[:25])
	if !ok {
		return nil, nil, 0, false
	}

	blockHash, height, ok = matchReplaySuffix(script[25:])

	return hash, blockHash, height, ok
}

// matchReplaySuffix matches <blockHash> <height> OP_CHECKBLOCKATHEIGHT.
func matchReplaySuffix(suffix []byte) ([]byte, int64, bool) {
	ops, ok := Decode(suffix)
	if !ok || len(ops) != 3 {
		return nil, 0, false
	}
	if ops[0].Code != txscript.OP_DATA_32 || ops[2].Code != OpCheckBlockAtHeight {
		return nil, 0, false
	}

	height, ok := decodeNumberOp(ops[1], MaxNumberLen+1)
	if !ok || height < 0 {
		return nil, 0, false
	}

	return ops[0].Data, height, true
}

// isPubKey returns true for compressed or uncompressed secp256k1 public key encodings.
func isPubKey(pubKey []byte) bool {
	switch len(pubKey) {
	case 33:
		return pubKey[0] == 0x02 || pubKey[0] == 0x03
	case 65:
		return pubKey[0] == 0x04
	default:
		return false
	}
}

// Must unwraps builder result, panics in case of error.
func Must(script []byte, err error) []byte {
	if err != nil {
		panic(err)
	}

	return script
}
