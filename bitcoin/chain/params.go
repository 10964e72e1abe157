// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package chain

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
)

// ErrInvalidParams defines chain parameters errors class.
var ErrInvalidParams = errors.New("invalid chain params")

// Checksum defines checksum algorithm of base58 encoded addresses.
type Checksum byte

const (
	// ChecksumDoubleSHA256 defines first 4 bytes of sha256(sha256(payload)).
	ChecksumDoubleSHA256 Checksum = iota
	// ChecksumDoubleBLAKE256 defines first 4 bytes of blake256(blake256(payload)), used by decred.
	ChecksumDoubleBLAKE256
)

const (
	// DefaultDustThreshold defines the smallest non-dust output amount in satoshi.
	DefaultDustThreshold uint64 = 546
	// DefaultMaxOpReturnSize defines standard OP_RETURN payload limit in bytes.
	DefaultMaxOpReturnSize = 80
	// SigHashForkID defines replay protection bit set in sighash type by forked chains.
	SigHashForkID uint32 = 0x40
)

// TxFormat defines enabled serialization features of the chain transactions.
type TxFormat struct {
	Witness    bool // segwit marker, flag and witness section.
	Timestamp  bool // 4 bytes unix time right after version.
	Overwinter bool // zcash v3+ header, version group id, expiry height and sapling fields.
	Decred     bool // decred prefix and witness split, expiry height.
}

// Params describes read-only per-chain configuration consumed by every engine call.
type Params struct {
	Name string

	P2PKHPrefix    []byte // legacy public key hash address version bytes.
	P2SHPrefix     []byte // legacy script hash address version bytes.
	Base58Checksum Checksum
	Bech32HRP      string // empty if segwit addresses are not supported.
	CashAddrPrefix string // empty if cash addresses are not supported.

	UseForkID bool
	ForkID    uint32 // mixed into sighash type, e.g. 0 for bitcoin cash, 79 for bitcoin gold.

	BranchID       uint32 // zcash consensus branch id.
	VersionGroupID uint32 // zcash version group id.

	DustThreshold   uint64
	MaxOpReturnSize int

	Segwit    bool
	Taproot   bool
	TxVersion int32
	Format    TxFormat
}

// SigHashType returns sighash type value to be mixed into the preimage.
// Chains with fork id get the fork bit and the fork id in the upper bytes.
func (p *Params) SigHashType(base uint32) uint32 {
	if !p.UseForkID {
		return base
	}

	return base | SigHashForkID | p.ForkID<<8
}

// IsDust returns true if amount is below chain dust threshold.
func (p *Params) IsDust(amount uint64) bool {
	return amount < p.DustThreshold
}

// Validate checks that params are consistent.
func (p *Params) Validate() error {
	switch {
	case p == nil:
		return fmt.Errorf("%w: nil params", ErrInvalidParams)
	case len(p.P2PKHPrefix) == 0 || len(p.P2SHPrefix) == 0:
		return fmt.Errorf("%w: %s: empty address prefix", ErrInvalidParams, p.Name)
	case bytes.Equal(p.P2PKHPrefix, p.P2SHPrefix):
		return fmt.Errorf("%w: %s: equal address prefixes", ErrInvalidParams, p.Name)
	case p.Segwit && p.Bech32HRP == "":
		return fmt.Errorf("%w: %s: segwit without bech32 hrp", ErrInvalidParams, p.Name)
	case p.Taproot && !p.Segwit:
		return fmt.Errorf("%w: %s: taproot without segwit", ErrInvalidParams, p.Name)
	case p.Format.Overwinter && p.Format.Decred:
		return fmt.Errorf("%w: %s: overwinter and decred formats are exclusive", ErrInvalidParams, p.Name)
	case p.Format.Witness && !p.Segwit:
		return fmt.Errorf("%w: %s: witness format without segwit", ErrInvalidParams, p.Name)
	case p.MaxOpReturnSize < 0:
		return fmt.Errorf("%w: %s: negative op_return size", ErrInvalidParams, p.Name)
	}

	return nil
}

// Clone returns deep copy of params, so predefined records stay untouched.
func (p *Params) Clone() *Params {
	c := *p
	c.P2PKHPrefix = bytes.Clone(p.P2PKHPrefix)
	c.P2SHPrefix = bytes.Clone(p.P2SHPrefix)

	return &c
}

// FromChainCfg derives params from btcd network definition.
func FromChainCfg(net *chaincfg.Params) *Params {
	return &Params{
		Name:            net.Name,
		P2PKHPrefix:     []byte{net.PubKeyHashAddrID},
		P2SHPrefix:      []byte{net.ScriptHashAddrID},
		Base58Checksum:  ChecksumDoubleSHA256,
		Bech32HRP:       net.Bech32HRPSegwit,
		DustThreshold:   DefaultDustThreshold,
		MaxOpReturnSize: DefaultMaxOpReturnSize,
		Segwit:          net.Bech32HRPSegwit != "",
		Taproot:         net.Bech32HRPSegwit != "",
		TxVersion:       2,
		Format:          TxFormat{Witness: net.Bech32HRPSegwit != ""},
	}
}
