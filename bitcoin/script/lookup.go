// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package script

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/decred/dcrd/crypto/blake256"
	"golang.org/x/crypto/ripemd160"
)

// BLAKE256Hash160 returns RIPEMD160(BLAKE256(data)), decred flavour of hash160.
func BLAKE256Hash160(data []byte) []byte {
	sum := blake256.Sum256(data)
	hasher := ripemd160.New()
	_, _ = hasher.Write(sum[:])

	return hasher.Sum(nil)
}

// Lookup indexes redeem and witness scripts by hash160 (P2SH), sha256 (P2WSH) of the script
// and decred hash160.
type Lookup map[string][]byte

// NewLookup returns Lookup with provided scripts.
func NewLookup(scripts ...[]byte) Lookup {
	l := make(Lookup, 3*len(scripts))
	for _, s := range scripts {
		l.Add(s)
	}

	return l
}

// Add indexes script by all hashes.
func (l Lookup) Add(s []byte) {
	if len(s) == 0 {
		return
	}

	sum := sha256.Sum256(s)
	l[hex.EncodeToString(sum[:])] = bytes.Clone(s)
	l[hex.EncodeToString(btcutil.Hash160(s))] = bytes.Clone(s)
	l[hex.EncodeToString(BLAKE256Hash160(s))] = bytes.Clone(s)
}

// Find returns script of provided hash.
func (l Lookup) Find(hash []byte) ([]byte, bool) {
	s, ok := l[hex.EncodeToString(hash)]
	return s, ok
}
