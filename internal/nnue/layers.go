package nnue

import (
	"fmt"
	"io"
)

// Layer hashes chain through the architecture so the file header can
// identify the exact network shape it was trained for.

func affineHash(prevHash uint32, outputDims int) uint32 {
	h := uint32(0xCC03DAE4)
	h += uint32(outputDims)
	h ^= prevHash >> 1
	h ^= prevHash << 31
	return h
}

func clippedReLUHash(prevHash uint32) uint32 {
	return 0x538D24C7 + prevHash
}

// AffineTransform is a dense fully connected layer: int8 weights,
// int32 biases, uint8 input. Weights are held in the scrambled
// chunk-of-4 layout the tiled kernel indexes; files store the plain
// row-major order.
type AffineTransform struct {
	InputDimensions       int
	OutputDimensions      int
	PaddedInputDimensions int

	Biases  []int32
	Weights []int8
}

// NewAffineTransform creates a dense layer of the given shape.
func NewAffineTransform(inputDims, outputDims int) *AffineTransform {
	padded := CeilToMultiple(inputDims, MaxSimdWidth)
	return &AffineTransform{
		InputDimensions:       inputDims,
		OutputDimensions:      outputDims,
		PaddedInputDimensions: padded,
		Biases:                make([]int32, outputDims),
		Weights:               make([]int8, outputDims*padded),
	}
}

func (a *AffineTransform) hash(prevHash uint32) uint32 {
	return affineHash(prevHash, a.OutputDimensions)
}

// weightIndex maps the file's row-major weight position to the
// in-memory chunk-of-4 layout.
func (a *AffineTransform) weightIndex(i int) int {
	const chunk = 4
	return (i/chunk)%(a.PaddedInputDimensions/chunk)*a.OutputDimensions*chunk +
		i/a.PaddedInputDimensions*chunk + i%chunk
}

func (a *AffineTransform) readParameters(r io.Reader) error {
	if err := readSlice(r, a.Biases); err != nil {
		return fmt.Errorf("affine biases: %w", err)
	}
	raw := make([]int8, len(a.Weights))
	if err := readSlice(r, raw); err != nil {
		return fmt.Errorf("affine weights: %w", err)
	}
	for i, w := range raw {
		a.Weights[a.weightIndex(i)] = w
	}
	return nil
}

func (a *AffineTransform) writeParameters(w io.Writer) error {
	if err := writeSlice(w, a.Biases); err != nil {
		return err
	}
	raw := make([]int8, len(a.Weights))
	for i := range raw {
		raw[i] = a.Weights[a.weightIndex(i)]
	}
	return writeSlice(w, raw)
}

// Propagate computes output = weights*input + biases.
func (a *AffineTransform) Propagate(input []uint8, output []int32) {
	copy(output[:a.OutputDimensions], a.Biases)

	const chunk = 4
	numChunks := a.PaddedInputDimensions / chunk
	for c := 0; c < numChunks; c++ {
		in := input[c*chunk : c*chunk+chunk]
		if in[0] == 0 && in[1] == 0 && in[2] == 0 && in[3] == 0 {
			continue
		}
		col := c * a.OutputDimensions * chunk
		for k := 0; k < a.OutputDimensions; k++ {
			off := col + k*chunk
			output[k] += int32(a.Weights[off])*int32(in[0]) +
				int32(a.Weights[off+1])*int32(in[1]) +
				int32(a.Weights[off+2])*int32(in[2]) +
				int32(a.Weights[off+3])*int32(in[3])
		}
	}
}

// AffineTransformSparseInput is the dense layer specialised for the
// transformer output, where most input lanes are zero after the
// activation: non-zero 4-byte chunks are gathered first and only those
// columns are accumulated.
type AffineTransformSparseInput struct {
	AffineTransform
}

// NewAffineTransformSparseInput creates a sparse-input layer.
func NewAffineTransformSparseInput(inputDims, outputDims int) *AffineTransformSparseInput {
	return &AffineTransformSparseInput{*NewAffineTransform(inputDims, outputDims)}
}

// Propagate computes output = weights*input + biases, visiting only
// the chunks of input that contain a non-zero lane.
func (a *AffineTransformSparseInput) Propagate(input []uint8, output []int32) {
	copy(output[:a.OutputDimensions], a.Biases)

	const chunk = 4
	numChunks := a.InputDimensions / chunk

	// Gather the non-zero chunk indices, then touch only their weight
	// columns. The gather models the movemask+popcount lookup the
	// vector kernels use.
	var nnz [1024]int16
	count := 0
	for c := 0; c < numChunks; c++ {
		base := c * chunk
		if input[base] != 0 || input[base+1] != 0 || input[base+2] != 0 || input[base+3] != 0 {
			nnz[count] = int16(c)
			count++
		}
	}

	for n := 0; n < count; n++ {
		c := int(nnz[n])
		in := input[c*chunk : c*chunk+chunk]
		col := c * a.OutputDimensions * chunk
		for k := 0; k < a.OutputDimensions; k++ {
			off := col + k*chunk
			output[k] += int32(a.Weights[off])*int32(in[0]) +
				int32(a.Weights[off+1])*int32(in[1]) +
				int32(a.Weights[off+2])*int32(in[2]) +
				int32(a.Weights[off+3])*int32(in[3])
		}
	}
}

// ClippedReLU applies out = clamp(in >> WeightScaleBits, 0, 127).
type ClippedReLU struct {
	Dimensions int
}

// NewClippedReLU creates the activation for the given width.
func NewClippedReLU(dims int) *ClippedReLU {
	return &ClippedReLU{Dimensions: dims}
}

func (c *ClippedReLU) hash(prevHash uint32) uint32 {
	return clippedReLUHash(prevHash)
}

// Propagate applies the activation lane by lane.
func (c *ClippedReLU) Propagate(input []int32, output []uint8) {
	for i := 0; i < c.Dimensions; i++ {
		v := input[i] >> WeightScaleBits
		if v < 0 {
			v = 0
		} else if v > 127 {
			v = 127
		}
		output[i] = uint8(v)
	}
}

// SqrClippedReLU applies out = min(127, (in*in) >> (2*WeightScaleBits + 7)).
type SqrClippedReLU struct {
	Dimensions int
}

// NewSqrClippedReLU creates the squared activation for the given width.
func NewSqrClippedReLU(dims int) *SqrClippedReLU {
	return &SqrClippedReLU{Dimensions: dims}
}

func (s *SqrClippedReLU) hash(prevHash uint32) uint32 {
	return clippedReLUHash(prevHash)
}

// Propagate applies the activation lane by lane.
func (s *SqrClippedReLU) Propagate(input []int32, output []uint8) {
	const shift = 2*WeightScaleBits + 7
	for i := 0; i < s.Dimensions; i++ {
		v := (int64(input[i]) * int64(input[i])) >> shift
		if v > 127 {
			v = 127
		}
		output[i] = uint8(v)
	}
}
