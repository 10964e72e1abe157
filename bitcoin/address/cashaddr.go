// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package address

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// Cash address types stored in the version byte.
const (
	CashAddrKeyHash    byte = 0
	CashAddrScriptHash byte = 1
)

const (
	cashAddrCharset     = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"
	cashAddrChecksumLen = 8
)

// cashAddrHashSizes maps version byte size bits to hash length in bytes.
var cashAddrHashSizes = [8]int{20, 24, 28, 32, 40, 48, 56, 64}

// cashAddrPolyMod computes 40 bit BCH checksum of 5 bit values.
func cashAddrPolyMod(values []byte) uint64 {
	c := uint64(1)
	for _, d := range values {
		c0 := byte(c >> 35)
		c = ((c & 0x07ffffffff) << 5) ^ uint64(d)
		if c0&0x01 != 0 {
			c ^= 0x98f2bc8e61
		}
		if c0&0x02 != 0 {
			c ^= 0x79b76d99e2
		}
		if c0&0x04 != 0 {
			c ^= 0xf33e5fb3c4
		}
		if c0&0x08 != 0 {
			c ^= 0xae2eabe2a8
		}
		if c0&0x10 != 0 {
			c ^= 0x1e4f43e470
		}
	}

	return c ^ 1
}

// cashAddrPrefixValues returns lower 5 bits of prefix characters followed by separator zero.
func cashAddrPrefixValues(prefix string) []byte {
	values := make([]byte, 0, len(prefix)+1)
	for i := 0; i < len(prefix); i++ {
		values = append(values, prefix[i]&0x1f)
	}

	return append(values, 0)
}

// CashAddrEncode returns cash address of hash with provided type.
func CashAddrEncode(prefix string, addrType byte, hash []byte) (string, error) {
	sizeCode := -1
	for code, size := range cashAddrHashSizes {
		if size == len(hash) {
			sizeCode = code
			break
		}
	}
	if sizeCode < 0 || addrType > 15 {
		return "", fmt.Errorf("%w: cash address of type %d with %d bytes hash", ErrInvalidAddress, addrType, len(hash))
	}

	payload, err := bech32.ConvertBits(append([]byte{addrType<<3 | byte(sizeCode)}, hash...), 8, 5, true)
	if err != nil {
		return "", err
	}

	values := append(cashAddrPrefixValues(prefix), payload...)
	values = append(values, make([]byte, cashAddrChecksumLen)...)
	polyMod := cashAddrPolyMod(values)

	var sb strings.Builder
	sb.WriteString(prefix)
	sb.WriteByte(':')
	for _, v := range payload {
		sb.WriteByte(cashAddrCharset[v])
	}
	for i := 0; i < cashAddrChecksumLen; i++ {
		sb.WriteByte(cashAddrCharset[(polyMod>>(5*(cashAddrChecksumLen-1-i)))&0x1f])
	}

	return sb.String(), nil
}

// CashAddrDecode returns type and hash of cash address, prefix may be omitted in addr.
func CashAddrDecode(prefix, addr string) (addrType byte, hash []byte, err error) {
	lower := strings.ToLower(addr)
	if lower != addr && strings.ToUpper(addr) != addr {
		return 0, nil, fmt.Errorf("%w: mixed case cash address", ErrInvalidAddress)
	}

	addrPrefix, body, found := strings.Cut(lower, ":")
	if !found {
		addrPrefix, body = strings.ToLower(prefix), lower
	}
	if addrPrefix != strings.ToLower(prefix) {
		return 0, nil, fmt.Errorf("%w: unexpected cash address prefix %q", ErrInvalidAddress, addrPrefix)
	}
	if len(body) <= cashAddrChecksumLen {
		return 0, nil, fmt.Errorf("%w: cash address too short", ErrInvalidAddress)
	}

	data := make([]byte, len(body))
	for i := 0; i < len(body); i++ {
		idx := strings.IndexByte(cashAddrCharset, body[i])
		if idx < 0 {
			return 0, nil, fmt.Errorf("%w: invalid cash address character %q", ErrInvalidAddress, body[i])
		}
		data[i] = byte(idx)
	}

	if cashAddrPolyMod(append(cashAddrPrefixValues(addrPrefix), data...)) != 0 {
		return 0, nil, fmt.Errorf("%w: cash address checksum mismatch", ErrInvalidAddress)
	}

	decoded, err := bech32.ConvertBits(data[:len(data)-cashAddrChecksumLen], 5, 8, false)
	if err != nil || len(decoded) == 0 {
		return 0, nil, fmt.Errorf("%w: invalid cash address payload", ErrInvalidAddress)
	}

	version, hash := decoded[0], decoded[1:]
	if version&0x80 != 0 || len(hash) != cashAddrHashSizes[version&0x07] {
		return 0, nil, fmt.Errorf("%w: invalid cash address version %#x", ErrInvalidAddress, version)
	}

	return version >> 3, hash, nil
}
