package reverse_test

import (
	"bytes"
	"testing"

	"github.com/BoostyLabs/utxo/internal/reverse"
)

func FuzzReverse(f *testing.F) {
	f.Add([]byte("some_data_here"))
	f.Add([]byte{0x01})

	f.Fuzz(func(t *testing.T, orig []byte) {
		saved := append([]byte(nil), orig...)

		copied := reverse.Copy(orig)
		if !bytes.Equal(orig, saved) {
			t.Errorf("Copy modified input: %x", orig)
		}

		rev := reverse.Bytes(orig)
		if !bytes.Equal(rev, copied) {
			t.Errorf("Bytes: %x, Copy: %x", rev, copied)
		}

		doubleRev := reverse.Bytes(rev)
		if !bytes.Equal(saved, doubleRev) {
			t.Errorf("Before: %x, after: %x", saved, doubleRev)
		}
	})
}
