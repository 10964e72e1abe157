// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package signer

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/BoostyLabs/utxo/bitcoin"
)

// ErrInvalidPrivateKey defines private key which is not a valid secp256k1 scalar.
var ErrInvalidPrivateKey = errors.Join(bitcoin.ErrMalformedInput, errors.New("invalid private key"))

// Curve defines signature scheme of the key signer.
type Curve byte

const (
	// CurveSecp256k1 defines ECDSA over secp256k1 with DER encoded signatures.
	CurveSecp256k1 Curve = iota
	// CurveSecp256k1Schnorr defines BIP340 schnorr signatures over secp256k1.
	CurveSecp256k1Schnorr
)

// KeySigner produces raw signatures of digests, allows to plug external key storage.
type KeySigner interface {
	// Sign returns DER signature for ECDSA or 64 bytes signature for schnorr.
	Sign(privateKey, hash []byte, curve Curve) ([]byte, error)
	// PublicKey returns compressed public key for ECDSA or x-only public key for schnorr.
	PublicKey(privateKey []byte, curve Curve) ([]byte, error)
}

// Secp256k1 is default KeySigner: deterministic RFC6979 low-S ECDSA and BIP340 schnorr.
type Secp256k1 struct{}

var _ KeySigner = Secp256k1{}

// Sign implements KeySigner.
func (Secp256k1) Sign(privateKey, hash []byte, curve Curve) ([]byte, error) {
	priv, err := parsePrivateKey(privateKey)
	if err != nil {
		return nil, err
	}

	switch curve {
	case CurveSecp256k1:
		return ecdsa.Sign(priv, hash).Serialize(), nil
	case CurveSecp256k1Schnorr:
		sig, err := schnorr.Sign(priv, hash)
		if err != nil {
			return nil, err
		}

		return sig.Serialize(), nil
	default:
		return nil, fmt.Errorf("unknown curve %d", curve)
	}
}

// PublicKey implements KeySigner.
func (Secp256k1) PublicKey(privateKey []byte, curve Curve) ([]byte, error) {
	priv, err := parsePrivateKey(privateKey)
	if err != nil {
		return nil, err
	}

	switch curve {
	case CurveSecp256k1:
		return priv.PubKey().SerializeCompressed(), nil
	case CurveSecp256k1Schnorr:
		return schnorr.SerializePubKey(priv.PubKey()), nil
	default:
		return nil, fmt.Errorf("unknown curve %d", curve)
	}
}

// parsePrivateKey parses 32 bytes scalar, rejects zero and values not less than curve order.
func parsePrivateKey(privateKey []byte) (*secp256k1.PrivateKey, error) {
	if len(privateKey) != secp256k1.PrivKeyBytesLen {
		return nil, fmt.Errorf("%w: length %d", ErrInvalidPrivateKey, len(privateKey))
	}

	var scalar secp256k1.ModNScalar
	if overflow := scalar.SetByteSlice(privateKey); overflow || scalar.IsZero() {
		return nil, fmt.Errorf("%w: out of range", ErrInvalidPrivateKey)
	}

	return secp256k1.NewPrivateKey(&scalar), nil
}
