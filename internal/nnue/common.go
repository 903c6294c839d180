// Package nnue implements the quantised NNUE evaluator: a feature
// transformer maintained incrementally across moves, followed by a
// small integer feed-forward network.
package nnue

import (
	"encoding/binary"
	"errors"
	"io"
)

// Version is the evaluation-file magic. A file with a different
// version cannot be interpreted.
const Version uint32 = 0x7AF32F20

// Quantisation constants shared by all layers.
const (
	OutputScale     = 16
	WeightScaleBits = 6
)

// MaxSimdWidth is the widest vector register the tiled kernels are
// written for; layer inputs are padded to a multiple of it so the
// scalar and vector paths read the same weight layout.
const MaxSimdWidth = 32

// ErrBadFormat is wrapped by every weight-file parse error.
var ErrBadFormat = errors.New("nnue: bad network file")

// CeilToMultiple rounds n up to a multiple of base.
func CeilToMultiple(n, base int) int {
	return (n + base - 1) / base * base
}

func readLittleEndian[T any](r io.Reader) (T, error) {
	var v T
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func readSlice[T any](r io.Reader, out []T) error {
	return binary.Read(r, binary.LittleEndian, out)
}

func writeLittleEndian[T any](w io.Writer, v T) error {
	return binary.Write(w, binary.LittleEndian, v)
}

func writeSlice[T any](w io.Writer, values []T) error {
	return binary.Write(w, binary.LittleEndian, values)
}
