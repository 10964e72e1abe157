// Copyright (C) 2022 Creditor Corp. Group.
// See LICENSE for copying information.

package numbers_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BoostyLabs/utxo/internal/numbers"
)

func TestNumbers(t *testing.T) {
	t.Run("Add", func(t *testing.T) {
		v, err := numbers.Add(1, 2)
		require.NoError(t, err)
		require.EqualValues(t, 3, v)

		_, err = numbers.Add(math.MaxUint64, 1)
		require.ErrorIs(t, err, numbers.ErrOverflow)
	})

	t.Run("Sub", func(t *testing.T) {
		v, err := numbers.Sub(5151, 600)
		require.NoError(t, err)
		require.EqualValues(t, 4551, v)

		_, err = numbers.Sub(1, 2)
		require.ErrorIs(t, err, numbers.ErrUnderflow)
	})

	t.Run("Mul", func(t *testing.T) {
		v, err := numbers.Mul(226, 3)
		require.NoError(t, err)
		require.EqualValues(t, 678, v)

		v, err = numbers.Mul(0, math.MaxUint64)
		require.NoError(t, err)
		require.Zero(t, v)

		_, err = numbers.Mul(math.MaxUint64, 2)
		require.ErrorIs(t, err, numbers.ErrOverflow)
	})

	t.Run("Sum", func(t *testing.T) {
		v, err := numbers.Sum(1, 2, 3, 4)
		require.NoError(t, err)
		require.EqualValues(t, 10, v)

		_, err = numbers.Sum(math.MaxUint64, 0, 1)
		require.ErrorIs(t, err, numbers.ErrOverflow)

		v, err = numbers.SumFunc([]string{"a", "bb", "ccc"}, func(s string) uint64 { return uint64(len(s)) })
		require.NoError(t, err)
		require.EqualValues(t, 6, v)
	})

	t.Run("CeilDiv", func(t *testing.T) {
		require.Equal(t, 0, numbers.CeilDiv(0, 4))
		require.Equal(t, 1, numbers.CeilDiv(1, 4))
		require.Equal(t, 1, numbers.CeilDiv(4, 4))
		require.Equal(t, 2, numbers.CeilDiv(5, 4))
	})

	t.Run("Distance", func(t *testing.T) {
		require.EqualValues(t, 5, numbers.Distance(10, 5))
		require.EqualValues(t, 5, numbers.Distance(5, 10))
	})

	t.Run("Max", func(t *testing.T) {
		require.Equal(t, 9, numbers.Max(1, 9, 3))
		require.Equal(t, 1, numbers.Max(1))
	})

	t.Run("Min", func(t *testing.T) {
		require.Equal(t, uint64(1), numbers.Min[uint64](4, 1, 3))
		require.Equal(t, "a", numbers.Min("b", "a"))
	})
}
