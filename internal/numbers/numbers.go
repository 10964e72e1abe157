// Copyright (C) 2022 Creditor Corp. Group.
// See LICENSE for copying information.

package numbers

import (
	"cmp"
	"errors"
	"math"
)

// ErrOverflow defines that arithmetic result does not fit in uint64.
var ErrOverflow = errors.New("uint64 overflow")

// ErrUnderflow defines that subtraction result would be negative.
var ErrUnderflow = errors.New("uint64 underflow")

// Add returns a + b, or ErrOverflow.
func Add(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, ErrOverflow
	}

	return a + b, nil
}

// Sub returns a - b, or ErrUnderflow if b > a.
func Sub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrUnderflow
	}

	return a - b, nil
}

// Mul returns a * b, or ErrOverflow.
func Mul(a, b uint64) (uint64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	if a > math.MaxUint64/b {
		return 0, ErrOverflow
	}

	return a * b, nil
}

// Sum returns total of all values, or ErrOverflow.
func Sum(values ...uint64) (total uint64, err error) {
	for _, v := range values {
		total, err = Add(total, v)
		if err != nil {
			return 0, err
		}
	}

	return total, nil
}

// SumFunc returns total of fn applied to every element, or ErrOverflow.
func SumFunc[T any](items []T, fn func(T) uint64) (total uint64, err error) {
	for _, item := range items {
		total, err = Add(total, fn(item))
		if err != nil {
			return 0, err
		}
	}

	return total, nil
}

// CeilDiv returns a / b rounded up.
func CeilDiv(a, b int) int {
	return (a + b - 1) / b
}

// Distance returns |a - b|.
func Distance(a, b uint64) uint64 {
	if a > b {
		return a - b
	}

	return b - a
}

// Max returns the largest value from provided.
func Max[T cmp.Ordered](a T, b ...T) T {
	maxValue := a
	for _, el := range b {
		if el > maxValue {
			maxValue = el
		}
	}

	return maxValue
}

// Min returns the least value from provided.
func Min[T cmp.Ordered](a T, b ...T) T {
	minValue := a
	for _, el := range b {
		if el < minValue {
			minValue = el
		}
	}

	return minValue
}
