// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package chain

import (
	"github.com/btcsuite/btcd/chaincfg"
)

// Zcash consensus branch ids.
const (
	ZcashSaplingBranchID uint32 = 0x76b809bb
	ZcashNU5BranchID     uint32 = 0xc2d6d0b4
	ZcashNU6BranchID     uint32 = 0xc8e71055

	// ZcashSaplingVersionGroupID defines version group id of v4 transactions.
	ZcashSaplingVersionGroupID uint32 = 0x892f2085
)

// Predefined chain records. Must not be modified, use Clone to derive a variant.
var (
	Bitcoin        = FromChainCfg(&chaincfg.MainNetParams)
	BitcoinTestnet = FromChainCfg(&chaincfg.TestNet3Params)
	BitcoinRegtest = FromChainCfg(&chaincfg.RegressionNetParams)

	Litecoin = &Params{
		Name:            "litecoin",
		P2PKHPrefix:     []byte{0x30},
		P2SHPrefix:      []byte{0x32},
		Bech32HRP:       "ltc",
		DustThreshold:   DefaultDustThreshold,
		MaxOpReturnSize: DefaultMaxOpReturnSize,
		Segwit:          true,
		TxVersion:       1,
		Format:          TxFormat{Witness: true},
	}

	Dogecoin = &Params{
		Name:            "dogecoin",
		P2PKHPrefix:     []byte{0x1e},
		P2SHPrefix:      []byte{0x16},
		DustThreshold:   1_000_000,
		MaxOpReturnSize: DefaultMaxOpReturnSize,
		TxVersion:       1,
	}

	BitcoinCash = &Params{
		Name:            "bitcoincash",
		P2PKHPrefix:     []byte{0x00},
		P2SHPrefix:      []byte{0x05},
		CashAddrPrefix:  "bitcoincash",
		UseForkID:       true,
		ForkID:          0,
		DustThreshold:   DefaultDustThreshold,
		MaxOpReturnSize: 223,
		TxVersion:       2,
	}

	BitcoinGold = &Params{
		Name:            "bitcoingold",
		P2PKHPrefix:     []byte{0x26},
		P2SHPrefix:      []byte{0x17},
		Bech32HRP:       "btg",
		UseForkID:       true,
		ForkID:          79,
		DustThreshold:   DefaultDustThreshold,
		MaxOpReturnSize: DefaultMaxOpReturnSize,
		Segwit:          true,
		TxVersion:       2,
		Format:          TxFormat{Witness: true},
	}

	Zcash = &Params{
		Name:            "zcash",
		P2PKHPrefix:     []byte{0x1c, 0xb8},
		P2SHPrefix:      []byte{0x1c, 0xbd},
		BranchID:        ZcashNU6BranchID,
		VersionGroupID:  ZcashSaplingVersionGroupID,
		DustThreshold:   DefaultDustThreshold,
		MaxOpReturnSize: DefaultMaxOpReturnSize,
		TxVersion:       4,
		Format:          TxFormat{Overwinter: true},
	}

	Decred = &Params{
		Name:            "decred",
		P2PKHPrefix:     []byte{0x07, 0x3f},
		P2SHPrefix:      []byte{0x07, 0x1a},
		Base58Checksum:  ChecksumDoubleBLAKE256,
		DustThreshold:   6030,
		MaxOpReturnSize: DefaultMaxOpReturnSize,
		TxVersion:       1,
		Format:          TxFormat{Decred: true},
	}

	Verge = &Params{
		Name:            "verge",
		P2PKHPrefix:     []byte{0x1e},
		P2SHPrefix:      []byte{0x21},
		Bech32HRP:       "vg",
		DustThreshold:   DefaultDustThreshold,
		MaxOpReturnSize: DefaultMaxOpReturnSize,
		Segwit:          true,
		TxVersion:       1,
		Format:          TxFormat{Witness: true, Timestamp: true},
	}
)

var registry = map[string]*Params{}

func init() {
	for _, p := range []*Params{Bitcoin, BitcoinTestnet, BitcoinRegtest, Litecoin, Dogecoin,
		BitcoinCash, BitcoinGold, Zcash, Decred, Verge} {
		registry[p.Name] = p
	}
}

// Lookup returns predefined params by name.
func Lookup(name string) (*Params, bool) {
	p, ok := registry[name]
	return p, ok
}
