// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package address

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/decred/dcrd/crypto/blake256"

	"github.com/BoostyLabs/utxo/bitcoin/chain"
)

// checksumLen defines base58check checksum length in bytes.
const checksumLen = 4

// checksum returns first 4 bytes of double hash of data.
func checksum(data []byte, algorithm chain.Checksum) []byte {
	switch algorithm {
	case chain.ChecksumDoubleBLAKE256:
		first := blake256.Sum256(data)
		second := blake256.Sum256(first[:])
		return second[:checksumLen]
	default:
		return chainhash.DoubleHashB(data)[:checksumLen]
	}
}

// CheckEncode returns base58 encoded prefix, payload and checksum.
func CheckEncode(prefix, payload []byte, algorithm chain.Checksum) string {
	if len(prefix) == 1 && algorithm == chain.ChecksumDoubleSHA256 {
		return base58.CheckEncode(payload, prefix[0])
	}

	data := make([]byte, 0, len(prefix)+len(payload)+checksumLen)
	data = append(data, prefix...)
	data = append(data, payload...)
	data = append(data, checksum(data, algorithm)...)

	return base58.Encode(data)
}

// CheckDecode returns prefixed payload of base58check string after checksum validation.
func CheckDecode(s string, algorithm chain.Checksum) ([]byte, error) {
	decoded := base58.Decode(s)
	if len(decoded) <= checksumLen {
		return nil, fmt.Errorf("%w: invalid base58 string", ErrInvalidAddress)
	}

	data, sum := decoded[:len(decoded)-checksumLen], decoded[len(decoded)-checksumLen:]
	if !bytes.Equal(checksum(data, algorithm), sum) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidAddress)
	}

	return data, nil
}
