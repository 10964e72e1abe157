// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package address

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/BoostyLabs/utxo/bitcoin"
	"github.com/BoostyLabs/utxo/bitcoin/chain"
	"github.com/BoostyLabs/utxo/bitcoin/script"
)

// ErrInvalidAddress defines address codec errors class.
var ErrInvalidAddress = errors.Join(bitcoin.ErrMalformedInput, errors.New("invalid address"))

// Type defines what the address pays to.
type Type byte

const (
	// PubKeyHash defines legacy key hash address (P2PKH).
	PubKeyHash Type = iota + 1
	// ScriptHash defines legacy script hash address (P2SH).
	ScriptHash
	// WitnessProgram defines segwit address of any witness version.
	WitnessProgram
)

// Encoding defines textual representation of the address.
type Encoding byte

const (
	// Base58Check defines version prefixed base58 encoding with checksum.
	Base58Check Encoding = iota + 1
	// Bech32 defines bech32 (witness v0) and bech32m (witness v1+) encodings.
	Bech32
	// CashAddr defines bitcoin cash address encoding.
	CashAddr
)

// Address describes decoded address data.
type Address struct {
	Type           Type
	Encoding       Encoding
	Prefix         []byte // base58 version bytes.
	WitnessVersion byte
	Program        []byte // key hash, script hash or witness program.
}

// NewPubKeyHash returns base58 P2PKH or cash address of key hash.
func NewPubKeyHash(hash []byte, params *chain.Params) *Address {
	return newLegacy(PubKeyHash, hash, params)
}

// NewScriptHash returns base58 P2SH or cash address of script hash.
func NewScriptHash(hash []byte, params *chain.Params) *Address {
	return newLegacy(ScriptHash, hash, params)
}

// NewWitness returns segwit address of witness program.
func NewWitness(version byte, program []byte) *Address {
	return &Address{Type: WitnessProgram, Encoding: Bech32, WitnessVersion: version, Program: bytes.Clone(program)}
}

// newLegacy returns key or script hash address preferring cash address encoding if chain supports it.
func newLegacy(typ Type, hash []byte, params *chain.Params) *Address {
	addr := &Address{Type: typ, Encoding: Base58Check, Program: bytes.Clone(hash)}
	switch {
	case params.CashAddrPrefix != "":
		addr.Encoding = CashAddr
	case typ == PubKeyHash:
		addr.Prefix = bytes.Clone(params.P2PKHPrefix)
	default:
		addr.Prefix = bytes.Clone(params.P2SHPrefix)
	}

	return addr
}

// Decode parses address string for provided chain.
func Decode(addr string, params *chain.Params) (*Address, error) {
	if addr == "" {
		return nil, fmt.Errorf("%w: empty address", ErrInvalidAddress)
	}

	if params.CashAddrPrefix != "" {
		decoded, err := decodeCashAddr(addr, params)
		if err == nil || strings.Contains(addr, ":") {
			return decoded, err
		}
	}

	if params.Bech32HRP != "" && strings.HasPrefix(strings.ToLower(addr), strings.ToLower(params.Bech32HRP)+"1") {
		version, program, err := SegwitDecode(params.Bech32HRP, addr)
		if err != nil {
			return nil, err
		}

		return NewWitness(version, program), nil
	}

	return decodeBase58(addr, params)
}

// decodeCashAddr parses cash address.
func decodeCashAddr(addr string, params *chain.Params) (*Address, error) {
	addrType, hash, err := CashAddrDecode(params.CashAddrPrefix, addr)
	if err != nil {
		return nil, err
	}

	switch addrType {
	case CashAddrKeyHash:
		return &Address{Type: PubKeyHash, Encoding: CashAddr, Program: hash}, nil
	case CashAddrScriptHash:
		return &Address{Type: ScriptHash, Encoding: CashAddr, Program: hash}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported cash address type %d", ErrInvalidAddress, addrType)
	}
}

// decodeBase58 parses legacy address.
func decodeBase58(addr string, params *chain.Params) (*Address, error) {
	data, err := CheckDecode(addr, params.Base58Checksum)
	if err != nil {
		return nil, err
	}

	for _, candidate := range []struct {
		typ    Type
		prefix []byte
	}{
		{PubKeyHash, params.P2PKHPrefix},
		{ScriptHash, params.P2SHPrefix},
	} {
		if len(data) == len(candidate.prefix)+script.HashLen && bytes.HasPrefix(data, candidate.prefix) {
			return &Address{
				Type:     candidate.typ,
				Encoding: Base58Check,
				Prefix:   bytes.Clone(candidate.prefix),
				Program:  bytes.Clone(data[len(candidate.prefix):]),
			}, nil
		}
	}

	return nil, fmt.Errorf("%w: unknown address version for %s", ErrInvalidAddress, params.Name)
}

// Encode returns string representation of the address for provided chain.
func (a *Address) Encode(params *chain.Params) (string, error) {
	switch a.Encoding {
	case Bech32:
		if params.Bech32HRP == "" {
			return "", fmt.Errorf("%w: %s has no segwit addresses", ErrInvalidAddress, params.Name)
		}

		return SegwitEncode(params.Bech32HRP, a.WitnessVersion, a.Program)
	case CashAddr:
		if params.CashAddrPrefix == "" {
			return "", fmt.Errorf("%w: %s has no cash addresses", ErrInvalidAddress, params.Name)
		}

		addrType := CashAddrKeyHash
		if a.Type == ScriptHash {
			addrType = CashAddrScriptHash
		}

		return CashAddrEncode(params.CashAddrPrefix, addrType, a.Program)
	case Base58Check:
		prefix := a.Prefix
		if len(prefix) == 0 {
			prefix = params.P2PKHPrefix
			if a.Type == ScriptHash {
				prefix = params.P2SHPrefix
			}
		}

		return CheckEncode(prefix, a.Program, params.Base58Checksum), nil
	default:
		return "", fmt.Errorf("%w: unknown encoding", ErrInvalidAddress)
	}
}

// Script returns locking script paying to the address.
func (a *Address) Script() ([]byte, error) {
	switch a.Type {
	case PubKeyHash:
		return script.PayToPubKeyHash(a.Program)
	case ScriptHash:
		return script.PayToScriptHash(a.Program)
	case WitnessProgram:
		return script.PayToWitnessProgram(a.WitnessVersion, a.Program)
	default:
		return nil, fmt.Errorf("%w: unknown address type", ErrInvalidAddress)
	}
}

// IsValid returns true if addr is valid address of provided chain.
func IsValid(addr string, params *chain.Params) bool {
	_, err := Decode(addr, params)
	return err == nil
}

// ToScript returns locking script paying to addr.
func ToScript(addr string, params *chain.Params) ([]byte, error) {
	decoded, err := Decode(addr, params)
	if err != nil {
		return nil, err
	}

	return decoded.Script()
}

// FromScript returns address of standard locking script.
func FromScript(lockingScript []byte, params *chain.Params) (*Address, error) {
	class := script.Classify(lockingScript)
	switch class.Type {
	case script.PubKeyHash, script.PubKeyHashReplay:
		return NewPubKeyHash(class.Hash, params), nil
	case script.ScriptHash, script.ScriptHashReplay:
		return NewScriptHash(class.Hash, params), nil
	case script.WitnessPubKeyHash, script.WitnessScriptHash, script.Taproot, script.WitnessUnknown:
		if params.Bech32HRP == "" {
			return nil, fmt.Errorf("%w: %s has no segwit addresses", ErrInvalidAddress, params.Name)
		}

		return NewWitness(class.WitnessVersion, class.Hash), nil
	default:
		return nil, fmt.Errorf("%w: %s script has no address", ErrInvalidAddress, class.Type)
	}
}
