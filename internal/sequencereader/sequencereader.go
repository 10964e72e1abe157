// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package sequencereader

import (
	"errors"
)

// ErrEnded is returned when reading past the end of the sequence.
var ErrEnded = errors.New("the sequence is ended")

// SequenceReader defines the simplest forward-only reader for sequences.
type SequenceReader[T any] struct {
	s    []T
	idx  int
	size int
}

// New is a constructor for SequenceReader.
func New[T any](seq []T) *SequenceReader[T] {
	return &SequenceReader[T]{
		s:    seq,
		idx:  0,
		size: len(seq),
	}
}

// HasNext returns true is sequence is not ended.
func (sr *SequenceReader[T]) HasNext() bool {
	return sr.idx < sr.size
}

// Next returns next element of the sequence.
func (sr *SequenceReader[T]) Next() (T, error) {
	if !sr.HasNext() {
		return *new(T), ErrEnded
	}

	pIdx := sr.idx
	sr.idx++

	return sr.s[pIdx], nil
}

// Peek returns next element without advancing.
func (sr *SequenceReader[T]) Peek() (T, error) {
	if !sr.HasNext() {
		return *new(T), ErrEnded
	}

	return sr.s[sr.idx], nil
}

// NextN returns next n elements of the sequence.
func (sr *SequenceReader[T]) NextN(n int) ([]T, error) {
	if n < 0 || sr.Len() < n {
		return nil, ErrEnded
	}

	chunk := sr.s[sr.idx : sr.idx+n]
	sr.idx += n

	return chunk, nil
}

// Rest returns all unread elements and ends the sequence.
func (sr *SequenceReader[T]) Rest() []T {
	rest := sr.s[sr.idx:]
	sr.idx = sr.size

	return rest
}

// Len returns how many items are left.
func (sr *SequenceReader[T]) Len() int {
	return sr.size - sr.idx
}
