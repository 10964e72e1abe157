// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package script

import (
	"github.com/btcsuite/btcd/txscript"
)

// PushData returns script fragment pushing data with the shortest possible encoding.
func PushData(data []byte) []byte {
	script, _ := txscript.NewScriptBuilder().AddFullData(data).Script()
	return script
}

// PushAll builds unlocking script from stack items.
// Empty item becomes OP_0, single byte 1..16 becomes OP_1..OP_16, anything else is a minimal push.
func PushAll(items [][]byte) []byte {
	builder := txscript.NewScriptBuilder()
	for _, item := range items {
		builder.AddFullData(item)
	}

	script, _ := builder.Script()
	if script == nil {
		return []byte{}
	}

	return script
}

// PushedData returns operands of push-only script, false if script has non push opcodes.
func PushedData(script []byte) ([][]byte, bool) {
	ops, ok := Decode(script)
	if !ok {
		return nil, false
	}

	items := make([][]byte, 0, len(ops))
	for _, op := range ops {
		switch {
		case op.IsPush():
			items = append(items, op.Data)
		case op.Code >= txscript.OP_1 && op.Code <= txscript.OP_16:
			items = append(items, []byte{op.Code - (txscript.OP_1 - 1)})
		case op.Code == txscript.OP_1NEGATE:
			items = append(items, []byte{0x81})
		default:
			return nil, false
		}
	}

	return items, true
}
