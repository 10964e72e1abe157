// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder

import (
	"fmt"

	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wallet/txsizes"

	"github.com/BoostyLabs/utxo/bitcoin"
	"github.com/BoostyLabs/utxo/bitcoin/chain"
	"github.com/BoostyLabs/utxo/bitcoin/script"
	"github.com/BoostyLabs/utxo/internal/numbers"
)

const (
	// signatureSize defines estimated DER signature with hash type byte.
	signatureSize = 72
	// compressedPubKeySize defines serialized compressed public key size.
	compressedPubKeySize = 33
	// schnorrSignatureSize defines BIP340 signature size with default hash type.
	schnorrSignatureSize = 64

	// outPointSize defines previous output hash and index size.
	outPointSize = 32 + 4
	// sequenceSize defines input sequence size.
	sequenceSize = 4

	// p2pkhSigScriptSize defines <sig> <pubkey> unlocking script size.
	p2pkhSigScriptSize = txsizes.RedeemP2PKHSigScriptSize - 1
	// p2pkSigScriptSize defines <sig> unlocking script size.
	p2pkSigScriptSize = 1 + signatureSize
	// p2wpkhWitnessSize defines witness of P2WPKH and nested P2WPKH spends.
	p2wpkhWitnessSize = txsizes.RedeemP2WPKHInputWitnessWeight - 1
	// p2trWitnessSize defines witness of P2TR key path spend.
	p2trWitnessSize = 1 + 1 + schnorrSignatureSize

	// witnessHeaderSize defines segwit marker and flag size.
	witnessHeaderSize = 2
	// witnessScaleFactor defines weight of non-witness byte.
	witnessScaleFactor = 4

	// decredInputWitnessSize defines decred per input value, block height and block index.
	decredInputWitnessSize = 8 + 4 + 4
	// decredTreeSize defines decred outpoint tree byte.
	decredTreeSize = 1
	// decredScriptVersionSize defines decred output script version.
	decredScriptVersionSize = 2
	// zcashSaplingVersion defines first zcash version with sapling fields.
	zcashSaplingVersion = 4
)

// InputSize describes estimated contribution of one signed input to transaction size.
type InputSize struct {
	Base    int // non-witness bytes.
	Witness int // witness bytes including items count, zero for legacy inputs.
}

// Weight returns input weight in weight units.
func (s InputSize) Weight() int {
	return s.Base*witnessScaleFactor + s.Witness
}

// EstimateInput returns estimated size of input spending lockingScript once signed.
// P2SH outputs without known redeem script are assumed to be nested P2WPKH.
func EstimateInput(lockingScript []byte, scripts script.Lookup, params *chain.Params) (InputSize, error) {
	sigScript, witness, err := unlockingSize(lockingScript, scripts, true)
	if err != nil {
		return InputSize{}, err
	}
	if witness > 0 && !params.Segwit {
		return InputSize{}, fmt.Errorf("%w: witness input on %s", bitcoin.ErrUnsupportedScript, params.Name)
	}

	size := InputSize{
		Base:    outPointSize + varBytesSize(sigScript) + sequenceSize,
		Witness: witness,
	}
	if params.Format.Decred {
		size.Base += decredTreeSize + decredInputWitnessSize
	}

	return size, nil
}

// unlockingSize returns scriptSig and witness sizes of lockingScript spend.
func unlockingSize(lockingScript []byte, scripts script.Lookup, topLevel bool) (sigScript, witness int, err error) {
	class := script.Classify(lockingScript)
	switch class.Type {
	case script.PubKey:
		return p2pkSigScriptSize, 0, nil
	case script.PubKeyHash, script.PubKeyHashReplay:
		return p2pkhSigScriptSize, 0, nil
	case script.Multisig:
		return 1 + class.Required*(1+signatureSize), 0, nil
	case script.WitnessPubKeyHash:
		return 0, p2wpkhWitnessSize, nil
	case script.Taproot:
		if !topLevel {
			break
		}
		return 0, p2trWitnessSize, nil
	case script.WitnessScriptHash:
		witnessScript, ok := scripts.Find(class.Hash)
		if !ok {
			return 0, 0, fmt.Errorf("%w: witness script %x", bitcoin.ErrMissingScript, class.Hash)
		}

		inner, _, err := unlockingSize(witnessScript, scripts, false)
		if err != nil {
			return 0, 0, err
		}

		// witness items cost the same as their pushes, plus items count and witness script itself.
		items := witnessItems(witnessScript)
		return 0, wire.VarIntSerializeSize(uint64(items+1)) + inner + varBytesSize(len(witnessScript)), nil
	case script.ScriptHash, script.ScriptHashReplay:
		if !topLevel {
			break
		}

		redeemScript, ok := scripts.Find(class.Hash)
		if !ok {
			// nested P2WPKH is assumed, the same way btcwallet estimates unknown P2SH inputs.
			return txsizes.RedeemNestedP2WPKHScriptSize, p2wpkhWitnessSize, nil
		}

		inner, witness, err := unlockingSize(redeemScript, scripts, false)
		if err != nil {
			return 0, 0, err
		}

		return inner + pushSize(len(redeemScript)), witness, nil
	}

	return 0, 0, fmt.Errorf("%w: %s", bitcoin.ErrUnsupportedScript, class.Type)
}

// witnessItems returns number of stack items pushed by unlocking script of witness script.
func witnessItems(witnessScript []byte) int {
	class := script.Classify(witnessScript)
	switch class.Type {
	case script.PubKey:
		return 1
	case script.PubKeyHash:
		return 2
	case script.Multisig:
		return 1 + class.Required
	default:
		return 0
	}
}

// OutputSize returns serialized size of output paying to lockingScript.
func OutputSize(lockingScript []byte, params *chain.Params) int {
	size := 8 + varBytesSize(len(lockingScript))
	if params.Format.Decred {
		size += decredScriptVersionSize
	}

	return size
}

// inputsTotal aggregates size relevant properties of inputs set.
type inputsTotal struct {
	count   int
	base    int
	witness int
	legacy  int // inputs with empty witness.
}

// add includes input into total.
func (t inputsTotal) add(in InputSize) inputsTotal {
	t.count++
	t.base += in.Base
	t.witness += in.Witness
	if in.Witness == 0 {
		t.legacy++
	}

	return t
}

// sub excludes o from total, used with prefix sums.
func (t inputsTotal) sub(o inputsTotal) inputsTotal {
	return inputsTotal{
		count:   t.count - o.count,
		base:    t.base - o.base,
		witness: t.witness - o.witness,
		legacy:  t.legacy - o.legacy,
	}
}

// EstimateVSize returns estimated virtual size of transaction with provided inputs and output scripts.
func EstimateVSize(inputs []InputSize, outputs [][]byte, params *chain.Params) int {
	var total inputsTotal
	for _, in := range inputs {
		total = total.add(in)
	}

	return estimateVSize(total, outputs, params)
}

func estimateVSize(inputs inputsTotal, outputs [][]byte, params *chain.Params) int {
	// version and lock time.
	size := 4 + 4 +
		wire.VarIntSerializeSize(uint64(inputs.count)) +
		wire.VarIntSerializeSize(uint64(len(outputs)))

	switch format := params.Format; {
	case format.Decred:
		// expiry and witness inputs count.
		size += 4 + wire.VarIntSerializeSize(uint64(inputs.count))
	case format.Overwinter:
		// version group id, expiry and join splits count.
		size += 4 + 4 + 1
		if params.TxVersion >= zcashSaplingVersion {
			// value balance, shielded spends and outputs counts.
			size += 8 + 1 + 1
		}
	case format.Timestamp:
		size += 4
	}

	size += inputs.base
	for _, out := range outputs {
		size += OutputSize(out, params)
	}

	weight := size * witnessScaleFactor
	if inputs.witness > 0 {
		// marker, flag and empty witnesses of legacy inputs.
		weight += witnessHeaderSize + inputs.legacy + inputs.witness
	}

	return numbers.CeilDiv(weight, witnessScaleFactor)
}

// varBytesSize returns size of length prefixed data.
func varBytesSize(n int) int {
	return wire.VarIntSerializeSize(uint64(n)) + n
}

// pushSize returns size of minimal push of n bytes.
func pushSize(n int) int {
	switch {
	case n < 0x4c:
		return 1 + n
	case n <= 0xff:
		return 2 + n
	case n <= 0xffff:
		return 3 + n
	default:
		return 5 + n
	}
}
