// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package script

// Type defines standard script shape.
type Type byte

const (
	// Unknown defines script that matches no standard shape.
	Unknown Type = iota
	// PubKey defines P2PK (public key) script.
	PubKey
	// PubKeyHash defines P2PKH (public key hash) script.
	PubKeyHash
	// ScriptHash defines P2SH (script hash) script.
	ScriptHash
	// WitnessPubKeyHash defines P2WPKH (witness public key hash) script.
	WitnessPubKeyHash
	// WitnessScriptHash defines P2WSH (witness script hash) script.
	WitnessScriptHash
	// Taproot defines P2TR (witness v1 output key) script.
	Taproot
	// WitnessUnknown defines witness program of not yet known version.
	WitnessUnknown
	// Multisig defines bare m-of-n multisig script.
	Multisig
	// NullData defines provably unspendable OP_RETURN script.
	NullData
	// ScriptHashReplay defines P2SH script with OP_CHECKBLOCKATHEIGHT replay protection.
	ScriptHashReplay
	// PubKeyHashReplay defines P2PKH script with OP_CHECKBLOCKATHEIGHT replay protection.
	PubKeyHashReplay
)

var typeNames = map[Type]string{
	Unknown:           "unknown",
	PubKey:            "P2PK",
	PubKeyHash:        "P2PKH",
	ScriptHash:        "P2SH",
	WitnessPubKeyHash: "P2WPKH",
	WitnessScriptHash: "P2WSH",
	Taproot:           "P2TR",
	WitnessUnknown:    "witness_unknown",
	Multisig:          "multisig",
	NullData:          "nulldata",
	ScriptHashReplay:  "P2SH_replay",
	PubKeyHashReplay:  "P2PKH_replay",
}

// String returns name of the type.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}

	return typeNames[Unknown]
}

// IsWitness returns true for witness program types.
func (t Type) IsWitness() bool {
	return t == WitnessPubKeyHash || t == WitnessScriptHash || t == Taproot || t == WitnessUnknown
}

// Class holds script type with fields extracted by its matcher.
type Class struct {
	Type Type

	Hash           []byte   // key hash, script hash or witness program.
	WitnessVersion byte     // for witness types.
	PubKeys        [][]byte // P2PK key or multisig keys in script order.
	Required       int      // multisig required signatures.
	Data           []byte   // null data payload.
	BlockHash      []byte   // replay protection block hash.
	BlockHeight    int64    // replay protection block height.
}

// matcher tries to match one shape.
type matcher func(script []byte) (Class, bool)

// matchers are tried in order, first success wins.
var matchers = []matcher{
	func(s []byte) (Class, bool) {
		hash, ok := MatchPubKeyHash(s)
		return Class{Type: PubKeyHash, Hash: hash}, ok
	},
	func(s []byte) (Class, bool) {
		hash, ok := MatchScriptHash(s)
		return Class{Type: ScriptHash, Hash: hash}, ok
	},
	func(s []byte) (Class, bool) {
		hash, ok := MatchWitnessPubKeyHash(s)
		return Class{Type: WitnessPubKeyHash, Hash: hash}, ok
	},
	func(s []byte) (Class, bool) {
		hash, ok := MatchWitnessScriptHash(s)
		return Class{Type: WitnessScriptHash, Hash: hash}, ok
	},
	func(s []byte) (Class, bool) {
		key, ok := MatchTaproot(s)
		return Class{Type: Taproot, Hash: key, WitnessVersion: 1}, ok
	},
	func(s []byte) (Class, bool) {
		version, program, ok := MatchWitnessProgram(s)
		return Class{Type: WitnessUnknown, Hash: program, WitnessVersion: version}, ok
	},
	func(s []byte) (Class, bool) {
		pubKey, ok := MatchPubKey(s)
		return Class{Type: PubKey, PubKeys: [][]byte{pubKey}, Required: 1}, ok
	},
	func(s []byte) (Class, bool) {
		required, pubKeys, ok := MatchMultisig(s)
		return Class{Type: Multisig, PubKeys: pubKeys, Required: required}, ok
	},
	func(s []byte) (Class, bool) {
		data, ok := MatchNullData(s)
		return Class{Type: NullData, Data: data}, ok
	},
	func(s []byte) (Class, bool) {
		hash, blockHash, height, ok := MatchScriptHashReplay(s)
		return Class{Type: ScriptHashReplay, Hash: hash, BlockHash: blockHash, BlockHeight: height}, ok
	},
	func(s []byte) (Class, bool) {
		hash, blockHash, height, ok := MatchPubKeyHashReplay(s)
		return Class{Type: PubKeyHashReplay, Hash: hash, BlockHash: blockHash, BlockHeight: height}, ok
	},
}

// Classify returns class of the script, Unknown if no standard shape matches.
func Classify(script []byte) Class {
	for _, match := range matchers {
		if class, ok := match(script); ok {
			return class
		}
	}

	return Class{Type: Unknown}
}
