// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package transaction

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/BoostyLabs/utxo/bitcoin/chain"
)

const (
	// witnessMarker and witnessFlag precede inputs of segwit serialization.
	witnessMarker byte = 0x00
	witnessFlag   byte = 0x01

	// overwinteredFlag defines zcash header bit of overwintered transactions.
	overwinteredFlag uint32 = 1 << 31
	// saplingVersion defines first zcash transaction version with sapling fields.
	saplingVersion int32 = 4

	// maxItemSize limits single script or witness item while decoding.
	maxItemSize = 4_000_000
	// maxItemsCount limits inputs, outputs and witness items count while decoding.
	maxItemsCount = 100_000
)

// decred serialization types multiplexed into upper 16 bits of the version.
const (
	decredSerializeFull      uint32 = 0
	decredSerializeNoWitness uint32 = 1
	decredSigHashWitness     uint32 = 3
)

// encoder writes little endian primitives, remembering the first error.
type encoder struct {
	w   io.Writer
	err error
	buf [8]byte
}

func (e *encoder) write(b []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(b)
}

func (e *encoder) uint16(v uint16) {
	binary.LittleEndian.PutUint16(e.buf[:2], v)
	e.write(e.buf[:2])
}

func (e *encoder) uint32(v uint32) {
	binary.LittleEndian.PutUint32(e.buf[:4], v)
	e.write(e.buf[:4])
}

func (e *encoder) uint64(v uint64) {
	binary.LittleEndian.PutUint64(e.buf[:8], v)
	e.write(e.buf[:8])
}

func (e *encoder) varInt(v uint64) {
	if e.err != nil {
		return
	}
	e.err = wire.WriteVarInt(e.w, 0, v)
}

func (e *encoder) varBytes(b []byte) {
	if e.err != nil {
		return
	}
	e.err = wire.WriteVarBytes(e.w, 0, b)
}

func (e *encoder) outPoint(hash chainhash.Hash, index uint32) {
	e.write(hash[:])
	e.uint32(index)
}

// Serialize writes transaction in the chain format, including witness data if present and supported.
func (tx *Transaction) Serialize(w io.Writer, format chain.TxFormat) error {
	return tx.serialize(w, format, format.Witness && tx.HasWitness())
}

// Bytes returns serialized transaction in the chain format.
func (tx *Transaction) Bytes(format chain.TxFormat) []byte {
	var buf bytes.Buffer
	_ = tx.Serialize(&buf, format)

	return buf.Bytes()
}

// BytesNoWitness returns serialized transaction without segwit data.
func (tx *Transaction) BytesNoWitness(format chain.TxFormat) []byte {
	var buf bytes.Buffer
	_ = tx.serialize(&buf, format, false)

	return buf.Bytes()
}

// serialize writes transaction with one core, switched by chain format features.
func (tx *Transaction) serialize(w io.Writer, format chain.TxFormat, witness bool) error {
	e := &encoder{w: w}

	switch {
	case format.Decred:
		e.uint32(uint32(tx.Version) | decredSerializeFull<<16)
		tx.encodeDecredPrefix(e)
		tx.encodeDecredWitness(e)
		return e.err
	case format.Overwinter:
		e.uint32(uint32(tx.Version) | overwinteredFlag)
		e.uint32(tx.VersionGroupID)
	default:
		e.uint32(uint32(tx.Version))
	}

	if format.Timestamp {
		e.uint32(tx.Timestamp)
	}

	if witness {
		e.write([]byte{witnessMarker, witnessFlag})
	}

	e.varInt(uint64(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		e.outPoint(in.PreviousOutput.Hash, in.PreviousOutput.Index)
		e.varBytes(in.Script)
		e.uint32(in.Sequence)
	}

	e.varInt(uint64(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		e.uint64(out.Value)
		e.varBytes(out.Script)
	}

	if witness {
		for _, in := range tx.Inputs {
			e.varInt(uint64(len(in.Witness)))
			for _, item := range in.Witness {
				e.varBytes(item)
			}
		}
	}

	e.uint32(tx.LockTime)

	if format.Overwinter {
		e.uint32(tx.Expiry)
		if tx.Version >= saplingVersion {
			e.uint64(uint64(tx.ValueBalance))
			e.varInt(0) // shielded spends.
			e.varInt(0) // shielded outputs.
		}
		e.varInt(0) // join splits.
	}

	return e.err
}

// encodeDecredPrefix writes decred inputs outpoints, outputs, lock time and expiry.
func (tx *Transaction) encodeDecredPrefix(e *encoder) {
	e.varInt(uint64(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		e.outPoint(in.PreviousOutput.Hash, in.PreviousOutput.Index)
		e.write([]byte{byte(in.PreviousOutput.Tree)})
		e.uint32(in.Sequence)
	}

	e.varInt(uint64(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		e.uint64(out.Value)
		e.uint16(out.ScriptVersion)
		e.varBytes(out.Script)
	}

	e.uint32(tx.LockTime)
	e.uint32(tx.Expiry)
}

// encodeDecredWitness writes decred per input value, block location and signature script.
func (tx *Transaction) encodeDecredWitness(e *encoder) {
	e.varInt(uint64(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		e.uint64(in.ValueIn)
		e.uint32(in.BlockHeight)
		e.uint32(in.BlockIndex)
		e.varBytes(in.Script)
	}
}

// decoder reads little endian primitives, remembering the first error.
type decoder struct {
	r   io.Reader
	err error
	buf [8]byte
}

func (d *decoder) read(n int) []byte {
	if d.err != nil {
		return d.buf[:n]
	}
	_, d.err = io.ReadFull(d.r, d.buf[:n])

	return d.buf[:n]
}

func (d *decoder) uint8() uint8 {
	return d.read(1)[0]
}

func (d *decoder) uint16() uint16 {
	return binary.LittleEndian.Uint16(d.read(2))
}

func (d *decoder) uint32() uint32 {
	return binary.LittleEndian.Uint32(d.read(4))
}

func (d *decoder) uint64() uint64 {
	return binary.LittleEndian.Uint64(d.read(8))
}

func (d *decoder) count(field string) int {
	if d.err != nil {
		return 0
	}

	var n uint64
	n, d.err = wire.ReadVarInt(d.r, 0)
	switch {
	case d.err != nil:
		return 0
	case n > maxItemsCount:
		d.err = fmt.Errorf("too many %s: %d", field, n)
		return 0
	}

	return int(n)
}

func (d *decoder) varBytes(field string) []byte {
	if d.err != nil {
		return nil
	}

	var b []byte
	b, d.err = wire.ReadVarBytes(d.r, 0, maxItemSize, field)

	return b
}

func (d *decoder) hash() (hash chainhash.Hash) {
	if d.err != nil {
		return hash
	}
	_, d.err = io.ReadFull(d.r, hash[:])

	return hash
}

// Deserialize parses transaction encoded in the chain format.
func Deserialize(r io.Reader, format chain.TxFormat) (*Transaction, error) {
	d := &decoder{r: r}
	tx := new(Transaction)

	header := d.uint32()
	switch {
	case format.Decred:
		if typ := header >> 16; d.err == nil && typ != decredSerializeFull {
			return nil, fmt.Errorf("%w: unsupported decred serialization type %d", ErrInvalidTransaction, typ)
		}
		tx.Version = int32(header & 0xffff)
		tx.decodeDecred(d)
		if d.err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidTransaction, d.err)
		}

		return tx, nil
	case format.Overwinter:
		if d.err == nil && header&overwinteredFlag == 0 {
			return nil, fmt.Errorf("%w: transaction is not overwintered", ErrInvalidTransaction)
		}
		tx.Version = int32(header &^ overwinteredFlag)
		tx.VersionGroupID = d.uint32()
	default:
		tx.Version = int32(header)
	}

	if format.Timestamp {
		tx.Timestamp = d.uint32()
	}

	inputsCount := d.count("inputs")
	witness := false
	if format.Witness && !format.Overwinter && inputsCount == 0 && d.err == nil {
		if flag := d.uint8(); d.err == nil && flag != witnessFlag {
			return nil, fmt.Errorf("%w: unexpected witness flag %#x", ErrInvalidTransaction, flag)
		}
		witness = true
		inputsCount = d.count("inputs")
	}

	tx.Inputs = make([]Input, inputsCount)
	for i := range tx.Inputs {
		in := &tx.Inputs[i]
		in.PreviousOutput.Hash = d.hash()
		in.PreviousOutput.Index = d.uint32()
		in.Script = d.varBytes("signature script")
		in.Sequence = d.uint32()
	}

	tx.Outputs = make([]Output, d.count("outputs"))
	for i := range tx.Outputs {
		out := &tx.Outputs[i]
		out.Value = d.uint64()
		out.Script = d.varBytes("public key script")
	}

	if witness {
		for i := range tx.Inputs {
			items := d.count("witness items")
			if items == 0 {
				continue
			}
			tx.Inputs[i].Witness = make([][]byte, items)
			for j := range tx.Inputs[i].Witness {
				tx.Inputs[i].Witness[j] = d.varBytes("witness item")
			}
		}
	}

	tx.LockTime = d.uint32()

	if format.Overwinter {
		tx.Expiry = d.uint32()
		if tx.Version >= saplingVersion {
			tx.ValueBalance = int64(d.uint64())
			if spends, outputs := d.count("shielded spends"), d.count("shielded outputs"); spends+outputs != 0 {
				return nil, fmt.Errorf("%w: shielded data is not supported", ErrInvalidTransaction)
			}
		}
		if joinSplits := d.count("join splits"); joinSplits != 0 {
			return nil, fmt.Errorf("%w: join splits are not supported", ErrInvalidTransaction)
		}
	}

	if d.err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTransaction, d.err)
	}

	return tx, nil
}

// FromBytes parses serialized transaction, rejecting trailing data.
func FromBytes(b []byte, format chain.TxFormat) (*Transaction, error) {
	r := bytes.NewReader(b)
	tx, err := Deserialize(r, format)
	if err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, errors.Join(ErrInvalidTransaction, fmt.Errorf("%d trailing bytes", r.Len()))
	}

	return tx, nil
}

// decodeDecred reads decred prefix and witness sections.
func (tx *Transaction) decodeDecred(d *decoder) {
	tx.Inputs = make([]Input, d.count("inputs"))
	for i := range tx.Inputs {
		in := &tx.Inputs[i]
		in.PreviousOutput.Hash = d.hash()
		in.PreviousOutput.Index = d.uint32()
		in.PreviousOutput.Tree = int8(d.uint8())
		in.Sequence = d.uint32()
	}

	tx.Outputs = make([]Output, d.count("outputs"))
	for i := range tx.Outputs {
		out := &tx.Outputs[i]
		out.Value = d.uint64()
		out.ScriptVersion = d.uint16()
		out.Script = d.varBytes("public key script")
	}

	tx.LockTime = d.uint32()
	tx.Expiry = d.uint32()

	if n := d.count("witnesses"); d.err == nil && n != len(tx.Inputs) {
		d.err = fmt.Errorf("witnesses count %d does not match inputs count %d", n, len(tx.Inputs))
		return
	}

	for i := range tx.Inputs {
		in := &tx.Inputs[i]
		in.ValueIn = d.uint64()
		in.BlockHeight = d.uint32()
		in.BlockIndex = d.uint32()
		in.Script = d.varBytes("signature script")
	}
}
