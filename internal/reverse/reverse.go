// Copyright (C) 2022 Creditor Corp. Group.
// See LICENSE for copying information.

package reverse

// Bytes takes a bytes as argument and return the reverse of bytes.
// NOTE: value is reversed in place.
func Bytes(value []byte) []byte {
	for i, j := 0, len(value)-1; i < j; i, j = i+1, j-1 {
		value[i], value[j] = value[j], value[i]
	}

	return value
}

// Copy returns reversed copy of value, leaving value untouched.
func Copy(value []byte) []byte {
	c := make([]byte, len(value))
	for i := range value {
		c[len(value)-1-i] = value[i]
	}

	return c
}
