// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package address

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// SegwitDecode returns witness version and program of bech32 (v0) or bech32m (v1+) address.
func SegwitDecode(hrp, addr string) (version byte, program []byte, err error) {
	decodedHRP, data, encoding, err := bech32.DecodeGeneric(addr)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	if decodedHRP != strings.ToLower(hrp) {
		return 0, nil, fmt.Errorf("%w: unexpected hrp %q", ErrInvalidAddress, decodedHRP)
	}
	if len(data) == 0 {
		return 0, nil, fmt.Errorf("%w: empty witness data", ErrInvalidAddress)
	}

	version = data[0]
	if version > 16 {
		return 0, nil, fmt.Errorf("%w: witness version %d", ErrInvalidAddress, version)
	}

	program, err = bech32.ConvertBits(data[1:], 5, 8, false)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}

	if err = checkWitnessProgram(version, program); err != nil {
		return 0, nil, err
	}

	switch {
	case version == 0 && encoding != bech32.Version0:
		return 0, nil, fmt.Errorf("%w: witness v0 requires bech32 checksum", ErrInvalidAddress)
	case version != 0 && encoding != bech32.VersionM:
		return 0, nil, fmt.Errorf("%w: witness v%d requires bech32m checksum", ErrInvalidAddress, version)
	}

	return version, program, nil
}

// SegwitEncode returns bech32 (v0) or bech32m (v1+) address of witness program.
func SegwitEncode(hrp string, version byte, program []byte) (string, error) {
	if version > 16 {
		return "", fmt.Errorf("%w: witness version %d", ErrInvalidAddress, version)
	}
	if err := checkWitnessProgram(version, program); err != nil {
		return "", err
	}

	converted, err := bech32.ConvertBits(program, 8, 5, true)
	if err != nil {
		return "", err
	}

	data := append([]byte{version}, converted...)
	if version == 0 {
		return bech32.Encode(hrp, data)
	}

	return bech32.EncodeM(hrp, data)
}

// checkWitnessProgram validates program length rules.
func checkWitnessProgram(version byte, program []byte) error {
	if len(program) < 2 || len(program) > 40 {
		return fmt.Errorf("%w: witness program of %d bytes", ErrInvalidAddress, len(program))
	}
	if version == 0 && len(program) != 20 && len(program) != 32 {
		return fmt.Errorf("%w: witness v0 program of %d bytes", ErrInvalidAddress, len(program))
	}

	return nil
}
