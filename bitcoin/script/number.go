// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package script

import (
	"github.com/btcsuite/btcd/txscript"
)

// MaxNumberLen defines default max length of script number operand.
const MaxNumberLen = 4

// EncodeNumber returns minimal little-endian sign-magnitude encoding of n.
// Zero is encoded as empty byte slice.
func EncodeNumber(n int64) []byte {
	if n == 0 {
		return nil
	}

	negative := n < 0
	magnitude := uint64(n)
	if negative {
		magnitude = uint64(-n)
	}

	result := make([]byte, 0, 9)
	for magnitude > 0 {
		result = append(result, byte(magnitude&0xff))
		magnitude >>= 8
	}

	// the most significant bit of the last byte is the sign.
	if result[len(result)-1]&0x80 != 0 {
		extra := byte(0x00)
		if negative {
			extra = 0x80
		}
		result = append(result, extra)
	} else if negative {
		result[len(result)-1] |= 0x80
	}

	return result
}

// DecodeNumber parses minimally encoded script number not longer than maxLen bytes.
func DecodeNumber(data []byte, maxLen int) (int64, bool) {
	if len(data) > maxLen || len(data) > 8 {
		return 0, false
	}
	if len(data) == 0 {
		return 0, true
	}

	last := data[len(data)-1]
	if last&0x7f == 0 && (len(data) == 1 || data[len(data)-2]&0x80 == 0) {
		return 0, false
	}

	var result int64
	for i, b := range data {
		result |= int64(b) << uint8(8*i)
	}

	if last&0x80 != 0 {
		result &= ^(int64(0x80) << uint8(8*(len(data)-1)))
		return -result, true
	}

	return result, true
}

// Number returns script fragment pushing n to the stack.
// Small integers are encoded with dedicated opcodes.
func Number(n int64) []byte {
	script, _ := txscript.NewScriptBuilder().AddInt64(n).Script()
	return script
}

// decodeNumberOp returns number pushed by op.
func decodeNumberOp(op Op, maxLen int) (int64, bool) {
	if v, ok := op.SmallInt(); ok {
		return int64(v), true
	}
	if op.Code == txscript.OP_1NEGATE {
		return -1, true
	}
	if !op.IsPush() || !isMinimalPush(op) {
		return 0, false
	}

	return DecodeNumber(op.Data, maxLen)
}

// isMinimalPush returns true if op uses the shortest push encoding for its operand.
func isMinimalPush(op Op) bool {
	l := len(op.Data)
	switch {
	case l == 0:
		return op.Code == txscript.OP_0
	case l == 1 && op.Data[0] >= 1 && op.Data[0] <= 16:
		return false
	case l == 1 && op.Data[0] == 0x81:
		return false
	case l <= 75:
		return int(op.Code) == l
	case l <= 0xff:
		return op.Code == txscript.OP_PUSHDATA1
	case l <= 0xffff:
		return op.Code == txscript.OP_PUSHDATA2
	default:
		return op.Code == txscript.OP_PUSHDATA4
	}
}
