// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package signer_test

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/BoostyLabs/utxo/bitcoin"
	"github.com/BoostyLabs/utxo/bitcoin/address"
	"github.com/BoostyLabs/utxo/bitcoin/chain"
	"github.com/BoostyLabs/utxo/bitcoin/script"
	"github.com/BoostyLabs/utxo/bitcoin/signer"
	"github.com/BoostyLabs/utxo/bitcoin/transaction"
	"github.com/BoostyLabs/utxo/bitcoin/txbuilder"
)

func privKey(seed byte) []byte {
	return bytes.Repeat([]byte{seed}, 32)
}

func pubKey(seed byte) []byte {
	_, pub := btcec.PrivKeyFromBytes(privKey(seed))
	return pub.SerializeCompressed()
}

func p2wpkhAddress(t *testing.T, seed byte) string {
	addr, err := address.NewWitness(0, btcutil.Hash160(pubKey(seed))).Encode(chain.Bitcoin)
	require.NoError(t, err)

	return addr
}

func newUTXO(n byte, amount uint64, lockingScript []byte) bitcoin.UTXO {
	return bitcoin.UTXO{
		OutPoint: bitcoin.OutPoint{Hash: chainhash.Hash{n, 0xaa}, Index: uint32(n)},
		Amount:   amount,
		Script:   lockingScript,
	}
}

// verify executes every input of tx against spent utxos with btcd script engine.
func verify(t *testing.T, tx *transaction.Transaction, spent []bitcoin.UTXO) {
	t.Helper()

	prevOuts := make([]transaction.Output, len(spent))
	for i, utxo := range spent {
		prevOuts[i] = transaction.Output{Value: utxo.Amount, Script: utxo.Script}
	}

	fetcher, err := tx.PrevOutFetcher(prevOuts)
	require.NoError(t, err)

	msg := tx.ToWire()
	sigHashes := txscript.NewTxSigHashes(msg, fetcher)
	for idx, utxo := range spent {
		vm, err := txscript.NewEngine(
			utxo.Script, msg, idx, txscript.StandardVerifyFlags,
			nil, sigHashes, int64(utxo.Amount), fetcher,
		)
		require.NoError(t, err)
		require.NoError(t, vm.Execute(), "input %d", idx)
	}
}

// conserved checks that inputs of signed transaction equal outputs plus fee.
func conserved(t *testing.T, output *signer.SigningOutput) {
	t.Helper()

	in, err := bitcoin.SumAmounts(output.Plan.UTXOs)
	require.NoError(t, err)

	out, err := output.Transaction.OutputsValue()
	require.NoError(t, err)
	require.Equal(t, in, out+output.Fee)
}

func TestSignLegacyPayment(t *testing.T) {
	var (
		s         = signer.NewSigner(chain.Bitcoin)
		ownScript = script.Must(script.PayToPubKeyHash(btcutil.Hash160(pubKey(1))))
		utxo      = newUTXO(1, 5151, ownScript)
	)

	ownAddr, err := address.NewPubKeyHash(btcutil.Hash160(pubKey(1)), chain.Bitcoin).Encode(chain.Bitcoin)
	require.NoError(t, err)
	toAddr, err := address.NewPubKeyHash(btcutil.Hash160(pubKey(2)), chain.Bitcoin).Encode(chain.Bitcoin)
	require.NoError(t, err)

	output, err := s.Sign(signer.SigningInput{
		Request: txbuilder.Request{
			UTXOs:         []bitcoin.UTXO{utxo},
			Amount:        600,
			ByteFee:       1,
			ToAddress:     toAddr,
			ChangeAddress: ownAddr,
		},
		PrivateKeys: [][]byte{privKey(1)},
	})
	require.NoError(t, err)

	require.EqualValues(t, 226, output.Fee)
	require.EqualValues(t, 4325, output.Plan.Change)
	require.Len(t, output.Transaction.Outputs, 2)
	require.Len(t, output.Signatures, 1)
	require.LessOrEqual(t, output.VSize, output.Plan.VSize)
	require.GreaterOrEqual(t, output.VSize, output.Plan.VSize-2)
	require.Equal(t, output.Transaction.TxIDString(chain.Bitcoin.Format), output.TxID)
	require.Equal(t, output.Transaction.Bytes(chain.Bitcoin.Format), output.Encoded)

	conserved(t, output)
	verify(t, output.Transaction, []bitcoin.UTXO{utxo})

	t.Run("deterministic", func(t *testing.T) {
		again, err := s.Sign(signer.SigningInput{
			Request:     txbuilder.Request{UTXOs: []bitcoin.UTXO{utxo}, Amount: 600, ByteFee: 1, ToAddress: toAddr, ChangeAddress: ownAddr},
			PrivateKeys: [][]byte{privKey(2), privKey(1)},
		})
		require.NoError(t, err)
		require.Equal(t, output.Encoded, again.Encoded)
	})
}

func TestSignMixedInputs(t *testing.T) {
	var (
		nested        = script.Must(script.PayToWitnessPubKeyHash(btcutil.Hash160(pubKey(3))))
		witnessScript = script.Must(script.PayToMultisig(1, [][]byte{pubKey(5), pubKey(6)}))
		redeemScript  = script.Must(script.PayToMultisig(2, [][]byte{pubKey(7), pubKey(8), pubKey(9)}))
		witnessHash   = sha256.Sum256(witnessScript)
	)

	internalKey, err := btcec.ParsePubKey(pubKey(4))
	require.NoError(t, err)

	utxos := []bitcoin.UTXO{
		newUTXO(1, 20000, script.Must(script.PayToPubKeyHash(btcutil.Hash160(pubKey(1))))),
		newUTXO(2, 20000, script.Must(script.PayToWitnessPubKeyHash(btcutil.Hash160(pubKey(2))))),
		newUTXO(3, 20000, script.Must(script.PayToScriptHash(btcutil.Hash160(nested)))),
		newUTXO(4, 20000, script.Must(script.TaprootKeyPathScript(internalKey))),
		newUTXO(5, 20000, script.Must(script.PayToWitnessScriptHash(witnessHash[:]))),
		newUTXO(6, 20000, script.Must(script.PayToScriptHash(btcutil.Hash160(redeemScript)))),
		newUTXO(7, 20000, script.Must(script.PayToPubKey(pubKey(10)))),
	}

	output, err := signer.NewSigner(chain.Bitcoin).Sign(signer.SigningInput{
		Request: txbuilder.Request{
			UTXOs:         utxos,
			Amount:        50000,
			ByteFee:       2,
			ToAddress:     p2wpkhAddress(t, 11),
			ChangeAddress: p2wpkhAddress(t, 2),
			Policy:        txbuilder.SelectAll,
			Scripts:       script.NewLookup(witnessScript, redeemScript),
		},
		PrivateKeys: [][]byte{
			privKey(1), privKey(2), privKey(3), privKey(4), privKey(6), privKey(7), privKey(9), privKey(10),
		},
	})
	require.NoError(t, err)

	require.Len(t, output.Plan.UTXOs, len(utxos))
	require.Len(t, output.Signatures, 8)
	require.LessOrEqual(t, output.VSize, output.Plan.VSize)
	require.True(t, output.Transaction.HasWitness())

	// SIGHASH_DEFAULT taproot signature has no hash type byte.
	require.Len(t, output.Transaction.Inputs[3].Witness, 1)
	require.Len(t, output.Transaction.Inputs[3].Witness[0], schnorr.SignatureSize)

	// nested segwit input pushes redeem script only.
	require.Equal(t, script.PushData(nested), output.Transaction.Inputs[2].Script)

	conserved(t, output)
	verify(t, output.Transaction, output.Plan.UTXOs)
}

func TestSignHashTypes(t *testing.T) {
	internalKey, err := btcec.ParsePubKey(pubKey(2))
	require.NoError(t, err)

	utxos := []bitcoin.UTXO{
		newUTXO(1, 30000, script.Must(script.PayToWitnessPubKeyHash(btcutil.Hash160(pubKey(1))))),
		newUTXO(2, 30000, script.Must(script.TaprootKeyPathScript(internalKey))),
		newUTXO(3, 30000, script.Must(script.PayToPubKeyHash(btcutil.Hash160(pubKey(3))))),
	}

	tests := []struct {
		name     string
		hashType transaction.SigHashType
	}{
		{"all", transaction.SigHashAll},
		{"none", transaction.SigHashNone},
		{"single", transaction.SigHashSingle},
		{"all anyone can pay", transaction.SigHashAll | transaction.SigHashAnyoneCanPay},
		{"single anyone can pay", transaction.SigHashSingle | transaction.SigHashAnyoneCanPay},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			output, err := signer.NewSigner(chain.Bitcoin).Sign(signer.SigningInput{
				Request: txbuilder.Request{
					UTXOs:         utxos,
					Amount:        40000,
					ByteFee:       1,
					ToAddress:     p2wpkhAddress(t, 5),
					ChangeAddress: p2wpkhAddress(t, 1),
					Policy:        txbuilder.SelectAll,
				},
				PrivateKeys: [][]byte{privKey(1), privKey(2), privKey(3)},
				HashType:    test.hashType,
			})
			require.NoError(t, err)

			for _, sig := range output.Signatures {
				require.Equal(t, byte(test.hashType), sig[len(sig)-1])
			}

			verify(t, output.Transaction, output.Plan.UTXOs)
		})
	}
}

// TestSignForkChains checks signatures of chains btcd engine does not execute against their signature hash.
func TestSignForkChains(t *testing.T) {
	tests := []struct {
		params   *chain.Params
		hash160  func([]byte) []byte
		hashType byte
	}{
		{chain.BitcoinCash, btcutil.Hash160, 0x41},
		{chain.BitcoinGold, btcutil.Hash160, 0x41},
		{chain.Litecoin, btcutil.Hash160, 0x01},
		{chain.Dogecoin, btcutil.Hash160, 0x01},
		{chain.Decred, script.BLAKE256Hash160, 0x01},
	}

	for _, test := range tests {
		t.Run(test.params.Name, func(t *testing.T) {
			var (
				ownHash   = test.hash160(pubKey(1))
				ownScript = script.Must(script.PayToPubKeyHash(ownHash))
				utxo      = newUTXO(1, 10_000_000, ownScript)
			)

			ownAddr, err := address.NewPubKeyHash(ownHash, test.params).Encode(test.params)
			require.NoError(t, err)
			toAddr, err := address.NewPubKeyHash(test.hash160(pubKey(2)), test.params).Encode(test.params)
			require.NoError(t, err)

			output, err := signer.NewSigner(test.params).Sign(signer.SigningInput{
				Request: txbuilder.Request{
					UTXOs:         []bitcoin.UTXO{utxo},
					Amount:        2_000_000,
					ByteFee:       10,
					ToAddress:     toAddr,
					ChangeAddress: ownAddr,
				},
				PrivateKeys: [][]byte{privKey(1)},
			})
			require.NoError(t, err)
			require.Len(t, output.Signatures, 1)

			items, ok := script.PushedData(output.Transaction.Inputs[0].Script)
			require.True(t, ok)
			require.Len(t, items, 2)
			require.Equal(t, pubKey(1), items[1])

			sigBytes := items[0]
			require.Equal(t, test.hashType, sigBytes[len(sigBytes)-1])

			hash, err := output.Transaction.SignatureHash(test.params, 0, ownScript, utxo.Amount, transaction.SigHashAll, transaction.SigVersionBase)
			require.NoError(t, err)

			sig, err := ecdsa.ParseDERSignature(sigBytes[:len(sigBytes)-1])
			require.NoError(t, err)

			pub, err := btcec.ParsePubKey(items[1])
			require.NoError(t, err)
			require.True(t, sig.Verify(hash, pub))

			conserved(t, output)

			decoded, err := transaction.FromBytes(output.Encoded, test.params.Format)
			require.NoError(t, err)
			require.Equal(t, output.TxID, decoded.TxIDString(test.params.Format))
		})
	}
}

func TestSignZcashSapling(t *testing.T) {
	params := chain.Zcash.Clone()
	params.BranchID = chain.ZcashSaplingBranchID

	var hash chainhash.Hash
	copy(hash[:], mustHex("53685b8809efc50dd7d5cb0906b307a1b8aa5157baa5fc1bd6fe2d0344dd193a"))

	utxo := bitcoin.UTXO{
		OutPoint: bitcoin.OutPoint{Hash: hash, Index: 0},
		Amount:   494000,
		Script:   mustHex("76a914f84c7f4dd3c3dc311676444fdead6e6d290d50e388ac"),
	}

	output, err := signer.NewSigner(params).Sign(signer.SigningInput{
		Request: txbuilder.Request{
			UTXOs:     []bitcoin.UTXO{utxo},
			Amount:    488000,
			ByteFee:   1,
			ToAddress: "t1QahNjDdibyE4EdYkawUSKBBcVTSqv64CS",
		},
		Plan: &txbuilder.Plan{
			UTXOs:           []bitcoin.UTXO{utxo},
			Amount:          488000,
			AvailableAmount: 494000,
			Fee:             6000,
		},
		PrivateKeys: [][]byte{mustHex("a9684f5bebd0e1208aae2e02bc9e9163bd1965ad23d8538644e1df8b99b99559")},
	})
	require.NoError(t, err)

	expected := "04000080" + "85202f89" + "01" +
		"53685b8809efc50dd7d5cb0906b307a1b8aa5157baa5fc1bd6fe2d0344dd193a00000000" +
		"6b483045022100ca0be9f37a4975432a52bb65b25e483f6f93d577955290bb7fb0060a93bfc920" +
		"02203e0627dff004d3c72a957dc9f8e4e0e696e69d125e4d8e275d119001924d3b48012103b243" +
		"171fae5516d1dc15f9178cfcc5fdc67b0a883055c117b01ba8af29b953f6" + "ffffffff" +
		"01" + "4072070000000000" + "1976a91449964a736f3713d64283fd0018626ba50091c7e988ac" +
		"00000000" + "00000000" + "0000000000000000" + "00" + "00" + "00"

	require.Equal(t, expected, hex.EncodeToString(output.Encoded))
	require.Equal(t, "ec9033381c1cc53ada837ef9981c03ead1c7c41700ff3a954389cfaddc949256", output.TxID)
	require.EqualValues(t, 6000, output.Fee)
}

func TestSignErrors(t *testing.T) {
	var (
		p2pkhScript = script.Must(script.PayToPubKeyHash(btcutil.Hash160(pubKey(1))))
		unknownHash = script.Must(script.PayToScriptHash(btcutil.Hash160([]byte("unknown"))))
		toAddr      = p2wpkhAddress(t, 2)
	)

	planOf := func(lockingScript []byte) *txbuilder.Plan {
		return &txbuilder.Plan{
			UTXOs:           []bitcoin.UTXO{newUTXO(1, 10000, lockingScript)},
			Amount:          9000,
			AvailableAmount: 10000,
			Fee:             1000,
		}
	}

	tests := []struct {
		name        string
		params      *chain.Params
		plan        *txbuilder.Plan
		privateKeys [][]byte
		errs        []error
		inputError  bool
	}{
		{"missing private key", chain.Bitcoin, planOf(p2pkhScript), [][]byte{privKey(2)},
			[]error{bitcoin.ErrMissingPrivateKey, bitcoin.ErrIncompleteSignatures}, true},
		{"no private keys", chain.Bitcoin, planOf(p2pkhScript), nil,
			[]error{bitcoin.ErrIncompleteSignatures}, true},
		{"non standard script", chain.Bitcoin, planOf([]byte{txscript.OP_TRUE}), [][]byte{privKey(1)},
			[]error{bitcoin.ErrUnsupportedScript}, true},
		{"missing redeem script", chain.Bitcoin, planOf(unknownHash), [][]byte{privKey(1)},
			[]error{bitcoin.ErrMissingScript, bitcoin.ErrUnsupportedScript}, true},
		{"short private key", chain.Bitcoin, planOf(p2pkhScript), [][]byte{privKey(1)[:31]},
			[]error{signer.ErrInvalidPrivateKey, bitcoin.ErrMalformedInput}, false},
		{"zero private key", chain.Bitcoin, planOf(p2pkhScript), [][]byte{make([]byte, 32)},
			[]error{signer.ErrInvalidPrivateKey}, false},
		{"empty plan", chain.Bitcoin, &txbuilder.Plan{}, [][]byte{privKey(1)},
			[]error{txbuilder.ErrInvalidPlan, bitcoin.ErrMalformedInput}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := signer.NewSigner(test.params).Sign(signer.SigningInput{
				Request:     txbuilder.Request{ToAddress: toAddr},
				Plan:        test.plan,
				PrivateKeys: test.privateKeys,
			})
			require.Error(t, err)
			for _, expected := range test.errs {
				require.ErrorIs(t, err, expected)
			}

			var inputErr *signer.InputError
			require.Equal(t, test.inputError, errors.As(err, &inputErr))
			if test.inputError {
				require.Equal(t, 0, inputErr.Index)
			}
		})
	}

	t.Run("witness input on non segwit chain", func(t *testing.T) {
		segwitScript := script.Must(script.PayToWitnessPubKeyHash(btcutil.Hash160(pubKey(1))))
		toDoge, err := address.NewPubKeyHash(btcutil.Hash160(pubKey(2)), chain.Dogecoin).Encode(chain.Dogecoin)
		require.NoError(t, err)

		_, err = signer.NewSigner(chain.Dogecoin).Sign(signer.SigningInput{
			Request:     txbuilder.Request{ToAddress: toDoge},
			Plan:        planOf(segwitScript),
			PrivateKeys: [][]byte{privKey(1)},
		})
		require.ErrorIs(t, err, bitcoin.ErrUnsupportedScript)
	})
}

func TestPSBTMultisig(t *testing.T) {
	var (
		s             = signer.NewSigner(chain.Bitcoin)
		witnessScript = script.Must(script.PayToMultisig(2, [][]byte{pubKey(1), pubKey(2)}))
		witnessHash   = sha256.Sum256(witnessScript)
		lockingScript = script.Must(script.PayToWitnessScriptHash(witnessHash[:]))
	)

	changeAddr, err := address.NewWitness(0, witnessHash[:]).Encode(chain.Bitcoin)
	require.NoError(t, err)

	req := txbuilder.Request{
		UTXOs:         []bitcoin.UTXO{newUTXO(1, 100000, lockingScript), newUTXO(2, 30000, lockingScript)},
		Amount:        70000,
		ByteFee:       3,
		ToAddress:     p2wpkhAddress(t, 3),
		ChangeAddress: changeAddr,
		Scripts:       script.NewLookup(witnessScript),
	}

	txBuilder := txbuilder.NewTxBuilder(chain.Bitcoin)
	plan, err := txBuilder.Plan(req)
	require.NoError(t, err)

	unsigned, err := txBuilder.BuildPSBT(plan, req)
	require.NoError(t, err)

	t.Run("plan", func(t *testing.T) {
		psbtPlan, err := s.PlanPSBT(unsigned, nil)
		require.NoError(t, err)
		selected, err := bitcoin.SumAmounts(plan.UTXOs)
		require.NoError(t, err)
		require.Greater(t, plan.AvailableAmount, selected)
		require.Equal(t, selected, psbtPlan.AvailableAmount)
		require.Equal(t, plan.Amount+plan.Change, psbtPlan.Amount)
		require.Zero(t, psbtPlan.Change)
		require.Equal(t, plan.Fee, psbtPlan.Fee)
		require.Equal(t, plan.VSize, psbtPlan.VSize)
		require.NoError(t, psbtPlan.Check())
	})

	first, err := s.SignPSBT(unsigned, [][]byte{privKey(1)})
	require.NoError(t, err)
	require.False(t, first.Complete)
	require.Empty(t, first.Encoded)

	packet, err := psbt.NewFromRawBytes(bytes.NewReader(first.PSBT), false)
	require.NoError(t, err)
	for _, input := range packet.Inputs {
		require.Len(t, input.PartialSigs, 1)
		require.Equal(t, pubKey(1), input.PartialSigs[0].PubKey)
	}

	t.Run("finalize incomplete", func(t *testing.T) {
		_, err := s.FinalizePSBT(first.PSBT)
		require.ErrorIs(t, err, bitcoin.ErrIncompleteSignatures)

		var inputErr *signer.InputError
		require.True(t, errors.As(err, &inputErr))
		require.Equal(t, 0, inputErr.Index)
	})

	t.Run("signing with the same key again", func(t *testing.T) {
		again, err := s.SignPSBT(first.PSBT, [][]byte{privKey(1)})
		require.NoError(t, err)
		require.False(t, again.Complete)
		require.Equal(t, first.PSBT, again.PSBT)
	})

	second, err := s.SignPSBT(first.PSBT, [][]byte{privKey(2)})
	require.NoError(t, err)
	require.True(t, second.Complete)

	final, err := s.FinalizePSBT(second.PSBT)
	require.NoError(t, err)
	require.True(t, final.Complete)

	direct, err := s.Sign(signer.SigningInput{
		Request:     req,
		PrivateKeys: [][]byte{privKey(2), privKey(1)},
	})
	require.NoError(t, err)
	require.Equal(t, direct.Encoded, final.Encoded)
	require.Equal(t, direct.TxID, final.TxID)

	tx, err := transaction.FromBytes(final.Encoded, chain.Bitcoin.Format)
	require.NoError(t, err)
	verify(t, tx, plan.UTXOs)

	t.Run("finalize twice", func(t *testing.T) {
		packet, err := psbt.NewFromRawBytes(bytes.NewReader(final.PSBT), false)
		require.NoError(t, err)
		require.True(t, packet.IsComplete())

		again, err := s.FinalizePSBT(final.PSBT)
		require.NoError(t, err)
		require.Equal(t, final.Encoded, again.Encoded)
	})
}

func TestPSBTSingleKey(t *testing.T) {
	var (
		s         = signer.NewSigner(chain.Bitcoin)
		txBuilder = txbuilder.NewTxBuilder(chain.Bitcoin)
		nested    = script.Must(script.PayToWitnessPubKeyHash(btcutil.Hash160(pubKey(1))))
	)

	internalKey, err := btcec.ParsePubKey(pubKey(1))
	require.NoError(t, err)

	req := txbuilder.Request{
		UTXOs: []bitcoin.UTXO{
			newUTXO(1, 40000, nested),
			newUTXO(2, 40000, script.Must(script.PayToScriptHash(btcutil.Hash160(nested)))),
			newUTXO(3, 40000, script.Must(script.TaprootKeyPathScript(internalKey))),
			newUTXO(4, 40000, script.Must(script.PayToPubKeyHash(btcutil.Hash160(pubKey(1))))),
		},
		Amount:         100000,
		ByteFee:        2,
		ToAddress:      p2wpkhAddress(t, 2),
		ChangeAddress:  p2wpkhAddress(t, 1),
		OutputOpReturn: []byte("memo"),
		Policy:         txbuilder.SelectAll,
		PublicKeys:     [][]byte{pubKey(1)},
	}

	plan, err := txBuilder.Plan(req)
	require.NoError(t, err)
	require.NotZero(t, plan.Change)

	unsigned, err := txBuilder.BuildPSBT(plan, req)
	require.NoError(t, err)

	t.Run("plan", func(t *testing.T) {
		psbtPlan, err := s.PlanPSBT(unsigned, [][]byte{pubKey(1)})
		require.NoError(t, err)
		require.Equal(t, plan.Amount, psbtPlan.Amount)
		require.Equal(t, plan.Change, psbtPlan.Change)
		require.Equal(t, plan.Fee, psbtPlan.Fee)
		require.Equal(t, plan.VSize, psbtPlan.VSize)
		require.Equal(t, []byte("memo"), psbtPlan.OutputOpReturn)
		require.Len(t, psbtPlan.UTXOs, 4)
	})

	t.Run("unrelated key", func(t *testing.T) {
		output, err := s.SignPSBT(unsigned, [][]byte{privKey(9)})
		require.NoError(t, err)
		require.False(t, output.Complete)
	})

	signed, err := s.SignPSBT(unsigned, [][]byte{privKey(1)})
	require.NoError(t, err)
	require.True(t, signed.Complete)

	final, err := s.FinalizePSBT(signed.PSBT)
	require.NoError(t, err)

	tx, err := transaction.FromBytes(final.Encoded, chain.Bitcoin.Format)
	require.NoError(t, err)
	verify(t, tx, plan.UTXOs)

	direct, err := s.Sign(signer.SigningInput{Request: req, Plan: plan, PrivateKeys: [][]byte{privKey(1)}})
	require.NoError(t, err)
	require.Equal(t, direct.TxID, final.TxID)
}

func TestPSBTNonWitnessUTXO(t *testing.T) {
	var (
		s             = signer.NewSigner(chain.Bitcoin)
		lockingScript = script.Must(script.PayToPubKeyHash(btcutil.Hash160(pubKey(1))))
	)

	prevTx := wire.NewMsgTx(1)
	prevTx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{7}, 0), nil, nil))
	prevTx.AddTxOut(wire.NewTxOut(1000, script.Must(script.PayToWitnessPubKeyHash(btcutil.Hash160(pubKey(2))))))
	prevTx.AddTxOut(wire.NewTxOut(50000, lockingScript))

	tx := wire.NewMsgTx(2)
	prevHash := prevTx.TxHash()
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&prevHash, 1), nil, nil))
	tx.AddTxOut(wire.NewTxOut(49000, script.Must(script.PayToWitnessPubKeyHash(btcutil.Hash160(pubKey(3))))))

	packet := newPacket(t, tx)
	packet.Inputs[0].NonWitnessUtxo = prevTx

	signed, err := s.SignPSBT(serializePSBT(t, packet), [][]byte{privKey(1)})
	require.NoError(t, err)
	require.True(t, signed.Complete)

	final, err := s.FinalizePSBT(signed.PSBT)
	require.NoError(t, err)

	signedTx, err := transaction.FromBytes(final.Encoded, chain.Bitcoin.Format)
	require.NoError(t, err)
	verify(t, signedTx, []bitcoin.UTXO{{OutPoint: signedTx.Inputs[0].PreviousOutput, Amount: 50000, Script: lockingScript}})

	t.Run("mismatching transaction", func(t *testing.T) {
		packet := newPacket(t, tx)
		other := prevTx.Copy()
		other.TxOut[1].Value = 1
		packet.Inputs[0].NonWitnessUtxo = other

		_, err := s.SignPSBT(serializePSBT(t, packet), [][]byte{privKey(1)})
		require.ErrorIs(t, err, bitcoin.ErrMalformedInput)
	})
}

func TestPSBTErrors(t *testing.T) {
	s := signer.NewSigner(chain.Bitcoin)

	t.Run("malformed", func(t *testing.T) {
		_, err := s.SignPSBT([]byte("not a psbt"), nil)
		require.ErrorIs(t, err, bitcoin.ErrMalformedInput)

		_, err = s.FinalizePSBT(nil)
		require.ErrorIs(t, err, bitcoin.ErrMalformedInput)

		_, err = s.PlanPSBT([]byte{0x70, 0x73, 0x62, 0x74}, nil)
		require.ErrorIs(t, err, bitcoin.ErrMalformedInput)
	})

	t.Run("unknown spent output", func(t *testing.T) {
		tx := wire.NewMsgTx(2)
		tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{1}, 0), nil, nil))
		tx.AddTxOut(wire.NewTxOut(1000, script.Must(script.PayToWitnessPubKeyHash(btcutil.Hash160(pubKey(1))))))

		_, err := s.SignPSBT(serializePSBT(t, newPacket(t, tx)), [][]byte{privKey(1)})
		require.ErrorIs(t, err, bitcoin.ErrMalformedInput)
	})

	t.Run("outputs exceed inputs", func(t *testing.T) {
		lockingScript := script.Must(script.PayToWitnessPubKeyHash(btcutil.Hash160(pubKey(1))))

		tx := wire.NewMsgTx(2)
		tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{1}, 0), nil, nil))
		tx.AddTxOut(wire.NewTxOut(2000, lockingScript))

		packet := newPacket(t, tx)
		packet.Inputs[0].WitnessUtxo = wire.NewTxOut(1000, lockingScript)

		_, err := s.PlanPSBT(serializePSBT(t, packet), nil)
		require.ErrorIs(t, err, bitcoin.ErrMalformedInput)
	})

	t.Run("unsupported chain", func(t *testing.T) {
		_, err := signer.NewSigner(chain.Zcash).SignPSBT(nil, nil)
		require.ErrorIs(t, err, bitcoin.ErrMalformedInput)
	})
}

func TestSignTaproot(t *testing.T) {
	s := signer.NewSigner(chain.Bitcoin)

	priv, pub := btcec.PrivKeyFromBytes(privKey(7))

	leafScript, err := txscript.NewScriptBuilder().
		AddData(schnorr.SerializePubKey(pub)).
		AddOp(txscript.OP_CHECKSIG).
		Script()
	require.NoError(t, err)

	tree, err := script.NewTapScriptTree(leafScript)
	require.NoError(t, err)

	tests := []struct {
		name          string
		lockingScript []byte
		witnessScript []byte
	}{
		{"tap script", script.Must(script.TaprootScriptTreeScript(pub, tree)), leafScript},
		{"simple taproot", script.Must(script.TaprootKeyPathScript(pub)), nil},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			tx := wire.NewMsgTx(2)
			tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(mustHash("5aa4e4e957b467d07413aa75cdab5e4ce9ff2b714cd81b6af0e90bfee5ff070c"), 0), nil, nil))
			tx.AddTxOut(wire.NewTxOut(43000, mustHex("512015ae9a1bdfb273684b8c1107cc2dccf51f2235d8c79fe8b8e6555ad826415011")))

			packet := newPacket(t, tx)
			packet.Inputs[0].WitnessUtxo = wire.NewTxOut(43000, test.lockingScript)
			packet.Inputs[0].SighashType = txscript.SigHashAll
			packet.Inputs[0].TaprootInternalKey = schnorr.SerializePubKey(pub)
			packet.Inputs[0].WitnessScript = test.witnessScript

			signedPSBT, err := s.SignTaproot(signer.SignTaprootParams{
				SerializedPSBT: serializePSBT(t, packet),
				Inputs:         []int{0},
				PrivateKey:     priv,
			})
			require.NoError(t, err)

			final, err := s.FinalizePSBT(signedPSBT)
			require.NoError(t, err)

			signedTx, err := transaction.FromBytes(final.Encoded, chain.Bitcoin.Format)
			require.NoError(t, err)
			verify(t, signedTx, []bitcoin.UTXO{{
				OutPoint: signedTx.Inputs[0].PreviousOutput,
				Amount:   43000,
				Script:   test.lockingScript,
			}})
		})
	}

	t.Run("tap script tree", func(t *testing.T) {
		_, other := btcec.PrivKeyFromBytes(privKey(8))
		multisigLeaf, err := script.TaprootMultisigLeaf(pub, other)
		require.NoError(t, err)

		tree, err := script.NewTapScriptTree(multisigLeaf, leafScript)
		require.NoError(t, err)

		lockingScript := script.Must(script.TaprootScriptTreeScript(pub, tree))

		tx := wire.NewMsgTx(2)
		tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{2}, 1), nil, nil))
		tx.AddTxOut(wire.NewTxOut(9000, lockingScript))

		packet := newPacket(t, tx)
		packet.Inputs[0].WitnessUtxo = wire.NewTxOut(10000, lockingScript)
		packet.Inputs[0].TaprootInternalKey = schnorr.SerializePubKey(pub)
		require.NoError(t, txbuilder.PrepareTapLeaf(&packet.Inputs[0], tree, leafScript))

		signedPSBT, err := s.SignTaproot(signer.SignTaprootParams{
			SerializedPSBT: serializePSBT(t, packet),
			Inputs:         []int{0},
			PrivateKey:     priv,
		})
		require.NoError(t, err)

		final, err := s.FinalizePSBT(signedPSBT)
		require.NoError(t, err)

		signedTx, err := transaction.FromBytes(final.Encoded, chain.Bitcoin.Format)
		require.NoError(t, err)
		verify(t, signedTx, []bitcoin.UTXO{{OutPoint: signedTx.Inputs[0].PreviousOutput, Amount: 10000, Script: lockingScript}})

		require.ErrorIs(t, txbuilder.PrepareTapLeaf(&packet.Inputs[0], tree, []byte{txscript.OP_TRUE}), bitcoin.ErrMissingScript)
	})

	t.Run("errors", func(t *testing.T) {
		tx := wire.NewMsgTx(2)
		tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{1}, 0), nil, nil))
		tx.AddTxOut(wire.NewTxOut(1000, mustHex("512015ae9a1bdfb273684b8c1107cc2dccf51f2235d8c79fe8b8e6555ad826415011")))

		packet := newPacket(t, tx)
		packet.Inputs[0].WitnessUtxo = wire.NewTxOut(2000, script.Must(script.TaprootKeyPathScript(pub)))
		serialized := serializePSBT(t, packet)

		_, err := s.SignTaproot(signer.SignTaprootParams{SerializedPSBT: serialized, Inputs: []int{1}, PrivateKey: priv})
		require.ErrorIs(t, err, transaction.ErrInputIndex)

		other, _ := btcec.PrivKeyFromBytes(privKey(8))
		_, err = s.SignTaproot(signer.SignTaprootParams{SerializedPSBT: serialized, Inputs: []int{0}, PrivateKey: other})
		require.ErrorIs(t, err, bitcoin.ErrMissingPrivateKey)

		_, err = signer.NewSigner(chain.Litecoin).SignTaproot(signer.SignTaprootParams{SerializedPSBT: serialized, Inputs: []int{0}, PrivateKey: priv})
		require.ErrorIs(t, err, bitcoin.ErrUnsupportedScript)
	})
}

func newPacket(t *testing.T, tx *wire.MsgTx) *psbt.Packet {
	packet, err := psbt.NewFromUnsignedTx(tx)
	require.NoError(t, err)

	return packet
}

func serializePSBT(t *testing.T, packet *psbt.Packet) []byte {
	w := bytes.NewBuffer(nil)
	require.NoError(t, packet.Serialize(w))

	return w.Bytes()
}

func mustHex(s string) []byte {
	b, _ := hex.DecodeString(s)

	return b
}

func mustHash(s string) *chainhash.Hash {
	h, _ := chainhash.NewHashFromStr(s)

	return h
}
