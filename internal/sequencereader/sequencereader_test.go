// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package sequencereader_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BoostyLabs/utxo/internal/sequencereader"
)

func TestSequenceReader(t *testing.T) {
	seq := []byte{0x76, 0xa9, 0x14, 0x88, 0xac}

	t.Run("HasNext", func(t *testing.T) {
		sr := sequencereader.New(seq)
		require.True(t, sr.HasNext())

		_, _ = sr.NextN(4)
		require.True(t, sr.HasNext())

		_, _ = sr.Next()
		require.False(t, sr.HasNext())
	})

	t.Run("Next", func(t *testing.T) {
		sr := sequencereader.New(seq)
		for _, tVal := range seq {
			val, err := sr.Next()
			require.NoError(t, err)
			require.Equal(t, tVal, val)
		}

		_, err := sr.Next()
		require.ErrorIs(t, err, sequencereader.ErrEnded)
	})

	t.Run("Peek", func(t *testing.T) {
		sr := sequencereader.New(seq)
		val, err := sr.Peek()
		require.NoError(t, err)
		require.EqualValues(t, 0x76, val)
		require.Equal(t, len(seq), sr.Len())

		_ = sr.Rest()
		_, err = sr.Peek()
		require.ErrorIs(t, err, sequencereader.ErrEnded)
	})

	t.Run("NextN", func(t *testing.T) {
		sr := sequencereader.New(seq)
		chunk, err := sr.NextN(3)
		require.NoError(t, err)
		require.Equal(t, seq[:3], chunk)
		require.Equal(t, 2, sr.Len())

		_, err = sr.NextN(3)
		require.ErrorIs(t, err, sequencereader.ErrEnded)
		require.Equal(t, 2, sr.Len())

		_, err = sr.NextN(-1)
		require.Error(t, err)
	})

	t.Run("Rest", func(t *testing.T) {
		sr := sequencereader.New(seq)
		_, _ = sr.Next()
		require.Equal(t, seq[1:], sr.Rest())
		require.Equal(t, 0, sr.Len())
		require.Empty(t, sr.Rest())
	})

	t.Run("SequenceReader for string type", func(t *testing.T) {
		strSeq := []string{"a", "ab", "abc", "abcd"}
		sr := sequencereader.New[string](strSeq)
		require.EqualValues(t, 4, sr.Len())
		for i := 0; sr.HasNext(); i++ {
			val, err := sr.Next()
			require.NoError(t, err)
			require.EqualValues(t, strSeq[i], val)
		}
		_, err := sr.Next()
		require.Error(t, err)
	})
}
