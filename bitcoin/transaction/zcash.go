// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package transaction

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	blake2b "github.com/minio/blake2b-simd"
)

// BLAKE2b personalizations of zcash transparent signature digests.
const (
	zcashPrevoutsPersonalization = "ZcashPrevoutHash"
	zcashSequencePersonalization = "ZcashSequencHash"
	zcashOutputsPersonalization  = "ZcashOutputsHash"
	zcashSigHashPersonalization  = "ZcashSigHash"
)

// blake2b256 returns personalized BLAKE2b-256 of data.
func blake2b256(personalization []byte, data []byte) ([]byte, error) {
	h, err := blake2b.New(&blake2b.Config{
		Size:   chainhash.HashSize,
		Person: personalization,
	})
	if err != nil {
		return nil, err
	}

	_, _ = h.Write(data)

	return h.Sum(nil), nil
}

// personalized returns hash function with constant personalization.
// Personalizations are 16 bytes long, so the hash never fails.
func personalized(personalization string) func([]byte) []byte {
	return func(data []byte) []byte {
		sum, err := blake2b256([]byte(personalization), data)
		if err != nil {
			panic(err)
		}

		return sum
	}
}

// ZcashSignatureHash returns ZIP-243 (sapling, v4) or ZIP-143 (overwinter, v3) signature hash of input idx.
// Shielded parts are committed as empty.
func (tx *Transaction) ZcashSignatureHash(idx int, scriptCode []byte, amount uint64, hashType SigHashType, branchID uint32) ([]byte, error) {
	if idx < 0 || idx >= len(tx.Inputs) {
		return nil, fmt.Errorf("%w: %d of %d", ErrInputIndex, idx, len(tx.Inputs))
	}

	hashes := tx.intermediateHashes(idx, hashType, hashers{
		prevouts: personalized(zcashPrevoutsPersonalization),
		sequence: personalized(zcashSequencePersonalization),
		outputs:  personalized(zcashOutputsPersonalization),
	})
	zero := make([]byte, chainhash.HashSize)

	var buf bytes.Buffer
	e := &encoder{w: &buf}
	e.uint32(uint32(tx.Version) | overwinteredFlag)
	e.uint32(tx.VersionGroupID)
	e.write(hashes.prevouts)
	e.write(hashes.sequence)
	e.write(hashes.outputs)
	e.write(zero) // join splits.
	if tx.Version >= saplingVersion {
		e.write(zero) // shielded spends.
		e.write(zero) // shielded outputs.
	}
	e.uint32(tx.LockTime)
	e.uint32(tx.Expiry)
	if tx.Version >= saplingVersion {
		e.uint64(uint64(tx.ValueBalance))
	}
	e.uint32(uint32(hashType))

	in := tx.Inputs[idx]
	e.outPoint(in.PreviousOutput.Hash, in.PreviousOutput.Index)
	e.varBytes(scriptCode)
	e.uint64(amount)
	e.uint32(in.Sequence)

	personalization := binary.LittleEndian.AppendUint32([]byte(zcashSigHashPersonalization), branchID)

	return blake2b256(personalization, buf.Bytes())
}
