// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder

import (
	"cmp"
	"math"
	"slices"

	"github.com/BoostyLabs/utxo/bitcoin"
	"github.com/BoostyLabs/utxo/internal/numbers"
)

// SelectionPolicy defines the way inputs are picked from available utxos.
type SelectionPolicy byte

const (
	// SelectAscending picks the fewest inputs: contiguous windows of utxos sorted by amount ascending
	// with total closest to double target, leaving non-dust change. Default policy.
	SelectAscending SelectionPolicy = iota
	// SelectLargestFirst accumulates utxos sorted by amount descending.
	SelectLargestFirst
	// SelectInOrder accumulates utxos in provided order.
	SelectInOrder
	// SelectAll spends every usable utxo.
	SelectAll
)

// String returns policy name.
func (p SelectionPolicy) String() string {
	switch p {
	case SelectAscending:
		return "ascending"
	case SelectLargestFirst:
		return "largest_first"
	case SelectInOrder:
		return "in_order"
	case SelectAll:
		return "all"
	default:
		return "unknown"
	}
}

// candidate is utxo with its estimated input size.
type candidate struct {
	utxo bitcoin.UTXO
	size InputSize
}

// selectUTXOs returns candidates covering target and fee of their own inputs set.
// Candidates are never reordered in place.
func selectUTXOs(policy SelectionPolicy, candidates []candidate, target, dust uint64, feeFn func(inputsTotal) uint64) ([]candidate, bool) {
	if len(candidates) == 0 {
		return nil, false
	}

	switch policy {
	case SelectLargestFirst:
		sorted := slices.Clone(candidates)
		slices.SortStableFunc(sorted, func(a, b candidate) int { return cmp.Compare(b.utxo.Amount, a.utxo.Amount) })
		return accumulate(sorted, target, feeFn)
	case SelectInOrder:
		return accumulate(candidates, target, feeFn)
	case SelectAll:
		if !covers(sumOf(candidates), target, feeFn(totalOf(candidates)), 0) {
			return nil, false
		}
		return slices.Clone(candidates), true
	default:
		return selectAscending(candidates, target, dust, feeFn)
	}
}

// accumulate takes candidates one by one until their total covers target and fee.
func accumulate(candidates []candidate, target uint64, feeFn func(inputsTotal) uint64) ([]candidate, bool) {
	var (
		total inputsTotal
		sum   uint64
	)
	for i, c := range candidates {
		total = total.add(c.size)
		sum += c.utxo.Amount
		if covers(sum, target, feeFn(total), 0) {
			return slices.Clone(candidates[:i+1]), true
		}
	}

	return nil, false
}

// selectAscending sorts candidates by amount ascending and looks for the smallest number of
// consecutive candidates covering target, fee and dust margin, so change is spendable. Among
// equally sized windows the one with total closest to double target wins. If no window leaves
// spendable change, the first window covering target and fee is used.
func selectAscending(candidates []candidate, target, dust uint64, feeFn func(inputsTotal) uint64) ([]candidate, bool) {
	sorted := slices.Clone(candidates)
	slices.SortStableFunc(sorted, func(a, b candidate) int { return cmp.Compare(a.utxo.Amount, b.utxo.Amount) })

	var (
		n      = len(sorted)
		sums   = make([]uint64, n+1)
		totals = make([]inputsTotal, n+1)
	)
	for i, c := range sorted {
		// utxo amounts are checked for overflow before selection.
		sums[i+1] = sums[i] + c.utxo.Amount
		totals[i+1] = totals[i].add(c.size)
	}

	doubleTarget, err := numbers.Mul(target, 2)
	if err != nil {
		doubleTarget = math.MaxUint64
	}

	window := func(from, size int) (uint64, uint64) {
		return sums[from+size] - sums[from], feeFn(totals[from+size].sub(totals[from]))
	}

	for size := 1; size <= n; size++ {
		best, bestDistance := -1, uint64(0)
		for from := 0; from+size <= n; from++ {
			sum, fee := window(from, size)
			if !covers(sum, target, fee, dust) {
				continue
			}

			if distance := numbers.Distance(sum, doubleTarget); best < 0 || distance < bestDistance {
				best, bestDistance = from, distance
			}
		}
		if best >= 0 {
			log.Tracef("ascending selection: %d inputs from %d", size, best)
			return sorted[best : best+size], true
		}
	}

	for size := 1; size <= n; size++ {
		for from := 0; from+size <= n; from++ {
			if sum, fee := window(from, size); covers(sum, target, fee, 0) {
				log.Tracef("ascending selection without change margin: %d inputs from %d", size, from)
				return sorted[from : from+size], true
			}
		}
	}

	return nil, false
}

// covers returns true if sum is not less than target plus fee plus margin.
func covers(sum, target, fee, margin uint64) bool {
	need, err := numbers.Sum(target, fee, margin)
	return err == nil && sum >= need
}

// totalOf returns aggregated size of candidates.
func totalOf(candidates []candidate) (total inputsTotal) {
	for _, c := range candidates {
		total = total.add(c.size)
	}

	return total
}

// sumOf returns amount of candidates, request amounts are checked for overflow beforehand.
func sumOf(candidates []candidate) (sum uint64) {
	for _, c := range candidates {
		sum += c.utxo.Amount
	}

	return sum
}

// utxosOf returns utxos of candidates.
func utxosOf(candidates []candidate) []bitcoin.UTXO {
	utxos := make([]bitcoin.UTXO, len(candidates))
	for i, c := range candidates {
		utxos[i] = c.utxo
	}

	return utxos
}
