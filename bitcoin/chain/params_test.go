// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package chain_test

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"

	"github.com/BoostyLabs/utxo/bitcoin/chain"
)

func TestParams(t *testing.T) {
	t.Run("predefined records are valid", func(t *testing.T) {
		for _, name := range []string{"mainnet", "testnet3", "regtest", "litecoin", "dogecoin",
			"bitcoincash", "bitcoingold", "zcash", "decred", "verge"} {
			p, ok := chain.Lookup(name)
			require.True(t, ok, name)
			require.NoError(t, p.Validate(), name)
		}

		_, ok := chain.Lookup("ethereum")
		require.False(t, ok)
	})

	t.Run("FromChainCfg", func(t *testing.T) {
		p := chain.FromChainCfg(&chaincfg.MainNetParams)
		require.Equal(t, []byte{0x00}, p.P2PKHPrefix)
		require.Equal(t, []byte{0x05}, p.P2SHPrefix)
		require.Equal(t, "bc", p.Bech32HRP)
		require.True(t, p.Segwit)
		require.True(t, p.Format.Witness)
		require.EqualValues(t, 546, p.DustThreshold)
		require.Equal(t, 80, p.MaxOpReturnSize)

		p = chain.FromChainCfg(&chaincfg.TestNet3Params)
		require.Equal(t, "tb", p.Bech32HRP)
		require.Equal(t, []byte{0x6f}, p.P2PKHPrefix)
	})

	t.Run("SigHashType", func(t *testing.T) {
		require.EqualValues(t, 0x01, chain.Bitcoin.SigHashType(1))
		require.EqualValues(t, 0x41, chain.BitcoinCash.SigHashType(1))
		require.EqualValues(t, 0x4f41, chain.BitcoinGold.SigHashType(1))
		require.EqualValues(t, 0xc3, chain.BitcoinCash.SigHashType(0x83))
	})

	t.Run("IsDust", func(t *testing.T) {
		require.True(t, chain.Bitcoin.IsDust(545))
		require.False(t, chain.Bitcoin.IsDust(546))
	})

	t.Run("Clone", func(t *testing.T) {
		c := chain.Zcash.Clone()
		c.BranchID = chain.ZcashSaplingBranchID
		c.P2PKHPrefix[0] = 0xff

		require.Equal(t, chain.ZcashNU6BranchID, chain.Zcash.BranchID)
		require.Equal(t, []byte{0x1c, 0xb8}, chain.Zcash.P2PKHPrefix)
	})

	t.Run("Validate", func(t *testing.T) {
		tests := []struct {
			name   string
			modify func(p *chain.Params)
		}{
			{"empty prefix", func(p *chain.Params) { p.P2PKHPrefix = nil }},
			{"equal prefixes", func(p *chain.Params) { p.P2SHPrefix = p.P2PKHPrefix }},
			{"segwit without hrp", func(p *chain.Params) { p.Bech32HRP = "" }},
			{"taproot without segwit", func(p *chain.Params) { p.Segwit = false; p.Format.Witness = false }},
			{"exclusive formats", func(p *chain.Params) { p.Format.Overwinter = true; p.Format.Decred = true }},
		}

		for _, test := range tests {
			t.Run(test.name, func(t *testing.T) {
				p := chain.Bitcoin.Clone()
				test.modify(p)
				require.ErrorIs(t, p.Validate(), chain.ErrInvalidParams)
			})
		}

		var nilParams *chain.Params
		require.ErrorIs(t, nilParams.Validate(), chain.ErrInvalidParams)
	})
}
