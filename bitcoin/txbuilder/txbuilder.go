// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder

import (
	"errors"
	"fmt"
	"math"

	"github.com/btcsuite/btcd/btcutil"

	"github.com/BoostyLabs/utxo/bitcoin"
	"github.com/BoostyLabs/utxo/bitcoin/address"
	"github.com/BoostyLabs/utxo/bitcoin/chain"
	"github.com/BoostyLabs/utxo/bitcoin/script"
	"github.com/BoostyLabs/utxo/bitcoin/transaction"
	"github.com/BoostyLabs/utxo/internal/numbers"
)

// ErrInvalidPlan defines plan that breaks value conservation.
var ErrInvalidPlan = errors.Join(bitcoin.ErrMalformedInput, errors.New("invalid plan"))

// Request describes payment to plan and build.
type Request struct {
	UTXOs          []bitcoin.UTXO // spendable outputs, never mutated.
	Amount         uint64         // in satoshi, ignored when UseMaxAmount is set.
	UseMaxAmount   bool           // send everything spendable minus fee.
	ByteFee        uint64         // fee rate in satoshi per virtual byte.
	ToAddress      string
	ChangeAddress  string         // required unless UseMaxAmount is set.
	OutputOpReturn []byte         // optional OP_RETURN payload.
	Policy         SelectionPolicy

	// Scripts holds redeem and witness scripts by hash, makes size estimates exact.
	Scripts script.Lookup
	// PublicKeys are used to fill taproot internal keys of PSBT inputs.
	PublicKeys [][]byte
	// PrevTxs are serialized transactions holding non segwit utxos, put to PSBT inputs spending them.
	PrevTxs [][]byte

	Version   int32 // zero means chain default.
	LockTime  uint32
	Expiry    uint32 // zcash and decred expiry height.
	Timestamp uint32 // timestamped transaction formats only.
}

// Plan describes selected inputs and value split of transaction.
type Plan struct {
	UTXOs           []bitcoin.UTXO // selected inputs in spending order.
	Amount          uint64         // paid to destination.
	AvailableAmount uint64         // total of all provided utxos.
	Fee             uint64
	Change          uint64 // zero means no change output.
	VSize           int    // estimated virtual size of signed transaction.
	OutputOpReturn  []byte
}

// Check verifies that selected inputs exactly cover amount, fee and change.
func (p *Plan) Check() error {
	if len(p.UTXOs) == 0 {
		return fmt.Errorf("%w: no inputs", ErrInvalidPlan)
	}

	in, err := bitcoin.SumAmounts(p.UTXOs)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}

	out, err := numbers.Sum(p.Amount, p.Fee, p.Change)
	if err != nil || in != out {
		return fmt.Errorf("%w: inputs %s, outputs and fee %s", ErrInvalidPlan, btcutil.Amount(in), btcutil.Amount(out))
	}

	return nil
}

// TxBuilder provides transaction planning and building related logic.
type TxBuilder struct {
	params *chain.Params
}

// NewTxBuilder is a constructor for TxBuilder.
func NewTxBuilder(params *chain.Params) *TxBuilder {
	return &TxBuilder{
		params: params,
	}
}

// Params returns chain the builder works for.
func (b *TxBuilder) Params() *chain.Params {
	return b.params
}

// outputs holds locking scripts of planned outputs.
type outputs struct {
	destination []byte
	change      []byte
	opReturn    []byte
}

// withChange returns output scripts used for estimation, change included if present.
func (o outputs) withChange(change bool) [][]byte {
	scripts := [][]byte{o.destination}
	if change && o.change != nil {
		scripts = append(scripts, o.change)
	}
	if o.opReturn != nil {
		scripts = append(scripts, o.opReturn)
	}

	return scripts
}

// Plan selects utxos to pay request amount with fee, computes change.
// Fee is recomputed for every candidate inputs set, change below dust threshold is added to fee.
func (b *TxBuilder) Plan(req Request) (*Plan, error) {
	if err := b.params.Validate(); err != nil {
		return nil, bitcoin.Malformed(err)
	}

	outs, err := b.outputScripts(req)
	if err != nil {
		return nil, err
	}

	available, err := bitcoin.SumAmounts(req.UTXOs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", bitcoin.ErrInvalidUTXOAmount, err)
	}

	candidates := b.candidates(req)
	if req.UseMaxAmount {
		return b.planMax(req, candidates, outs, available)
	}

	switch {
	case req.Amount == 0:
		return nil, bitcoin.ErrZeroAmount
	case b.params.IsDust(req.Amount):
		return nil, fmt.Errorf("%w: %s", bitcoin.ErrDustAmount, btcutil.Amount(req.Amount))
	}

	estimate := outs.withChange(true)
	feeFn := func(inputs inputsTotal) uint64 {
		return b.fee(inputs, estimate, req.ByteFee)
	}

	selected, ok := selectUTXOs(req.Policy, candidates, req.Amount, b.params.DustThreshold, feeFn)
	if !ok {
		return nil, b.insufficient(candidates, req.Amount, feeFn)
	}

	total := totalOf(selected)
	plan := &Plan{
		UTXOs:           utxosOf(selected),
		Amount:          req.Amount,
		AvailableAmount: available,
		Fee:             feeFn(total),
		VSize:           estimateVSize(total, estimate, b.params),
		OutputOpReturn:  req.OutputOpReturn,
	}

	sum, _ := bitcoin.SumAmounts(plan.UTXOs)
	plan.Change = sum - plan.Amount - plan.Fee
	if b.params.IsDust(plan.Change) {
		log.Tracef("folding change %s into fee", btcutil.Amount(plan.Change))

		plan.Change = 0
		plan.Fee = sum - plan.Amount
		plan.VSize = estimateVSize(total, outs.withChange(false), b.params)
	}

	log.Debugf("planned %d of %d utxos: amount %s, fee %s, change %s, vsize %d", len(plan.UTXOs), len(req.UTXOs),
		btcutil.Amount(plan.Amount), btcutil.Amount(plan.Fee), btcutil.Amount(plan.Change), plan.VSize)

	return plan, nil
}

// planMax spends all usable utxos to destination without change.
func (b *TxBuilder) planMax(req Request, candidates []candidate, outs outputs, available uint64) (*Plan, error) {
	var (
		total    = totalOf(candidates)
		estimate = outs.withChange(false)
		fee      = b.fee(total, estimate, req.ByteFee)
		sum      = sumOf(candidates)
	)

	if sum < fee || b.params.IsDust(sum-fee) {
		need, _ := numbers.Add(fee, b.params.DustThreshold)
		return nil, NewInsufficientError(need, sum)
	}

	plan := &Plan{
		UTXOs:           utxosOf(candidates),
		Amount:          sum - fee,
		AvailableAmount: available,
		Fee:             fee,
		VSize:           estimateVSize(total, estimate, b.params),
		OutputOpReturn:  req.OutputOpReturn,
	}

	log.Debugf("planned max amount %s from %d utxos, fee %s", btcutil.Amount(plan.Amount), len(plan.UTXOs), btcutil.Amount(fee))

	return plan, nil
}

// outputScripts validates request addresses and payload and returns output scripts.
func (b *TxBuilder) outputScripts(req Request) (outs outputs, err error) {
	outs.destination, err = address.ToScript(req.ToAddress, b.params)
	if err != nil {
		return outs, fmt.Errorf("destination: %w", err)
	}

	switch {
	case req.ChangeAddress != "":
		outs.change, err = address.ToScript(req.ChangeAddress, b.params)
		if err != nil {
			return outs, fmt.Errorf("change: %w", err)
		}
	case !req.UseMaxAmount:
		return outs, fmt.Errorf("%w: change address required", address.ErrInvalidAddress)
	}

	if len(req.OutputOpReturn) > 0 {
		outs.opReturn, err = script.PayToNullData(req.OutputOpReturn, b.params.MaxOpReturnSize)
		if err != nil {
			return outs, bitcoin.Malformed(err)
		}
	}

	return outs, nil
}

// candidates estimates request utxos, skips those which can not be spent or cost more than they bring.
func (b *TxBuilder) candidates(req Request) []candidate {
	candidates := make([]candidate, 0, len(req.UTXOs))
	for i, utxo := range req.UTXOs {
		size, err := EstimateInput(utxo.Script, req.Scripts, b.params)
		if err != nil {
			log.Debugf("skipping utxo %d (%s:%d): %v", i, utxo.Hash, utxo.Index, err)
			continue
		}

		if utxo.Amount <= inputFee(size, req.ByteFee) {
			log.Tracef("skipping dust utxo %d: %s", i, btcutil.Amount(utxo.Amount))
			continue
		}

		candidates = append(candidates, candidate{utxo: utxo, size: size})
	}

	return candidates
}

// fee returns fee of transaction with provided inputs and outputs. Saturates on overflow.
func (b *TxBuilder) fee(inputs inputsTotal, outputs [][]byte, byteFee uint64) uint64 {
	fee, err := numbers.Mul(uint64(estimateVSize(inputs, outputs, b.params)), byteFee)
	if err != nil {
		return math.MaxUint64
	}

	return fee
}

// inputFee returns cost of adding input to transaction.
func inputFee(size InputSize, byteFee uint64) uint64 {
	fee, err := numbers.Mul(uint64(numbers.CeilDiv(size.Weight(), witnessScaleFactor)), byteFee)
	if err != nil {
		return math.MaxUint64
	}

	return fee
}

// insufficient returns error describing missing funds when every candidate is spent.
func (b *TxBuilder) insufficient(candidates []candidate, amount uint64, feeFn func(inputsTotal) uint64) error {
	need, err := numbers.Add(amount, feeFn(totalOf(candidates)))
	if err != nil {
		need = math.MaxUint64
	}

	return NewInsufficientError(need, sumOf(candidates))
}

// BuildTransaction returns unsigned transaction of plan. Plan is used as is, outputs are
// destination, change if any and OP_RETURN if any.
func (b *TxBuilder) BuildTransaction(plan *Plan, req Request) (*transaction.Transaction, error) {
	if len(plan.UTXOs) == 0 {
		return nil, fmt.Errorf("%w: no inputs", ErrInvalidPlan)
	}

	version := req.Version
	if version == 0 {
		version = b.params.TxVersion
	}

	tx := transaction.New(version, req.LockTime)
	tx.Expiry = req.Expiry
	tx.Timestamp = req.Timestamp
	if b.params.Format.Overwinter {
		tx.VersionGroupID = b.params.VersionGroupID
	}

	for _, utxo := range plan.UTXOs {
		tx.AddInput(transaction.NewInput(utxo))
	}

	destination, err := address.ToScript(req.ToAddress, b.params)
	if err != nil {
		return nil, fmt.Errorf("destination: %w", err)
	}
	tx.AddOutput(plan.Amount, destination)

	if plan.Change > 0 {
		change, err := address.ToScript(req.ChangeAddress, b.params)
		if err != nil {
			return nil, fmt.Errorf("change: %w", err)
		}
		tx.AddOutput(plan.Change, change)
	}

	if len(plan.OutputOpReturn) > 0 {
		opReturn, err := script.PayToNullData(plan.OutputOpReturn, b.params.MaxOpReturnSize)
		if err != nil {
			return nil, bitcoin.Malformed(err)
		}
		tx.AddOutput(0, opReturn)
	}

	return tx, nil
}
