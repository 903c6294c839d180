package nnue

import (
	"fmt"
	"io"
)

// Network width constants.
const (
	// HalfDimensions is the transformer output width per perspective.
	HalfDimensions = 256

	// PSQTBuckets is the number of material-keyed output buckets of
	// the PSQT side channel.
	PSQTBuckets = 8

	// LayerStacks is the number of bucketed layer stacks behind the
	// transformer.
	LayerStacks = 8
)

// FeatureTransformer is the first, incrementally maintained network
// layer: int16 weight columns summed over the active features, plus a
// parallel int32 PSQT channel.
type FeatureTransformer struct {
	Biases      []int16 // [HalfDimensions]
	Weights     []int16 // [FeatureDimensions][HalfDimensions]
	PSQTWeights []int32 // [FeatureDimensions][PSQTBuckets]
}

// NewFeatureTransformer allocates a zeroed transformer.
func NewFeatureTransformer() *FeatureTransformer {
	return &FeatureTransformer{
		Biases:      make([]int16, HalfDimensions),
		Weights:     make([]int16, FeatureDimensions*HalfDimensions),
		PSQTWeights: make([]int32, FeatureDimensions*PSQTBuckets),
	}
}

func (ft *FeatureTransformer) hash() uint32 {
	return featureHash ^ uint32(HalfDimensions*2)
}

func (ft *FeatureTransformer) readParameters(r io.Reader) error {
	if err := readSlice(r, ft.Biases); err != nil {
		return fmt.Errorf("transformer biases: %w", err)
	}
	if err := readSlice(r, ft.Weights); err != nil {
		return fmt.Errorf("transformer weights: %w", err)
	}
	if err := readSlice(r, ft.PSQTWeights); err != nil {
		return fmt.Errorf("transformer psqt weights: %w", err)
	}
	return nil
}

func (ft *FeatureTransformer) writeParameters(w io.Writer) error {
	if err := writeSlice(w, ft.Biases); err != nil {
		return err
	}
	if err := writeSlice(w, ft.Weights); err != nil {
		return err
	}
	return writeSlice(w, ft.PSQTWeights)
}

// Refresh computes an accumulator half from scratch for one
// perspective given its active feature list.
func (ft *FeatureTransformer) Refresh(acc *Accumulator, perspective int, active *IndexList) {
	accum := acc.Accumulation[perspective][:]
	psqt := acc.PSQT[perspective][:]

	copy(accum, ft.Biases)
	for b := range psqt {
		psqt[b] = 0
	}
	for _, idx := range active.Slice() {
		ft.add(accum, psqt, idx)
	}
	acc.Computed[perspective] = true
}

// Update applies removed and added features to an accumulator half,
// starting from the values in prev.
func (ft *FeatureTransformer) Update(prev, acc *Accumulator, perspective int, removed, added *IndexList) {
	accum := acc.Accumulation[perspective][:]
	psqt := acc.PSQT[perspective][:]

	if prev != acc {
		copy(accum, prev.Accumulation[perspective][:])
		copy(psqt, prev.PSQT[perspective][:])
	}
	for _, idx := range removed.Slice() {
		ft.sub(accum, psqt, idx)
	}
	for _, idx := range added.Slice() {
		ft.add(accum, psqt, idx)
	}
	acc.Computed[perspective] = true
}

func (ft *FeatureTransformer) add(accum []int16, psqt []int32, idx int) {
	off := idx * HalfDimensions
	col := ft.Weights[off : off+HalfDimensions]
	for i := range col {
		accum[i] += col[i]
	}
	poff := idx * PSQTBuckets
	pcol := ft.PSQTWeights[poff : poff+PSQTBuckets]
	for b := range pcol {
		psqt[b] += pcol[b]
	}
}

func (ft *FeatureTransformer) sub(accum []int16, psqt []int32, idx int) {
	off := idx * HalfDimensions
	col := ft.Weights[off : off+HalfDimensions]
	for i := range col {
		accum[i] -= col[i]
	}
	poff := idx * PSQTBuckets
	pcol := ft.PSQTWeights[poff : poff+PSQTBuckets]
	for b := range pcol {
		psqt[b] -= pcol[b]
	}
}

// Transform runs the convert step: clip both accumulator halves to
// [0, 254], multiply lane pairs and shift down to int8 range, writing
// side-to-move's half first. Returns the PSQT score for the bucket.
func (ft *FeatureTransformer) Transform(acc *Accumulator, perspectives [2]int, bucket int, output []uint8) int32 {
	psqt := (acc.PSQT[perspectives[0]][bucket] - acc.PSQT[perspectives[1]][bucket]) / 2

	const maxVal = 127 * 2
	for p := 0; p < 2; p++ {
		offset := (HalfDimensions / 2) * p
		half := acc.Accumulation[perspectives[p]][:]
		for j := 0; j < HalfDimensions/2; j++ {
			v0 := half[j]
			v1 := half[j+HalfDimensions/2]
			if v0 < 0 {
				v0 = 0
			} else if v0 > maxVal {
				v0 = maxVal
			}
			if v1 < 0 {
				v1 = 0
			} else if v1 > maxVal {
				v1 = maxVal
			}
			output[offset+j] = uint8(int(v0) * int(v1) >> 9)
		}
	}
	return psqt
}
