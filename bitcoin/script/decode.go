// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package script

import (
	"github.com/btcsuite/btcd/txscript"
)

// OpCheckBlockAtHeight defines replay protection opcode used by some forks, it reuses OP_NOP5.
const OpCheckBlockAtHeight byte = txscript.OP_NOP5

// Op defines one decoded script element: opcode with its push operand, if any.
type Op struct {
	Code byte
	Data []byte
}

// IsPush returns true if op pushes data to the stack (including OP_0).
func (op Op) IsPush() bool {
	return op.Code <= txscript.OP_PUSHDATA4
}

// SmallInt returns value of OP_0 and OP_1..OP_16.
func (op Op) SmallInt() (int, bool) {
	switch {
	case op.Code == txscript.OP_0:
		return 0, true
	case op.Code >= txscript.OP_1 && op.Code <= txscript.OP_16:
		return int(op.Code - (txscript.OP_1 - 1)), true
	default:
		return 0, false
	}
}

// Decode parses script into opcodes and operands.
// NOTE: returns false for truncated pushes instead of error, malformed scripts are not matchable.
func Decode(script []byte) ([]Op, bool) {
	var (
		ops       = make([]Op, 0, len(script)/2)
		tokenizer = txscript.MakeScriptTokenizer(0, script)
	)
	for tokenizer.Next() {
		ops = append(ops, Op{Code: tokenizer.Opcode(), Data: tokenizer.Data()})
	}
	if tokenizer.Err() != nil {
		return nil, false
	}

	return ops, true
}

// Encode serializes ops back to script bytes preserving push encodings of operands.
func Encode(ops []Op) []byte {
	script := make([]byte, 0, len(ops)*2)
	for _, op := range ops {
		script = append(script, op.Code)
		switch op.Code {
		case txscript.OP_PUSHDATA1:
			script = append(script, byte(len(op.Data)))
		case txscript.OP_PUSHDATA2:
			script = append(script, byte(len(op.Data)), byte(len(op.Data)>>8))
		case txscript.OP_PUSHDATA4:
			l := len(op.Data)
			script = append(script, byte(l), byte(l>>8), byte(l>>16), byte(l>>24))
		}
		script = append(script, op.Data...)
	}

	return script
}
