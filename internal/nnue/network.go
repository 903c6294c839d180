package nnue

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// Hidden layer widths behind the transformer.
const (
	fc0Outputs = 16 // 15 + 1 forwarded lane
	fc1Outputs = 32
)

// Scratch-buffer widths, rounded up to MaxSimdWidth. Array lengths
// must be constant expressions, so the rounding is spelled out here
// instead of calling CeilToMultiple.
const (
	fc0OutPadded    = (fc0Outputs + MaxSimdWidth - 1) / MaxSimdWidth * MaxSimdWidth
	fc0PairedPadded = (fc0Outputs*2 + MaxSimdWidth - 1) / MaxSimdWidth * MaxSimdWidth
	fc1OutPadded    = (fc1Outputs + MaxSimdWidth - 1) / MaxSimdWidth * MaxSimdWidth
	fc2OutPadded    = (1 + MaxSimdWidth - 1) / MaxSimdWidth * MaxSimdWidth
)

// LayerStack is one bucketed tail network: sparse affine, paired
// squared/plain activations, dense affine, activation, output neuron.
// The last FC0 lane bypasses the activations as a scaled skip
// connection added to the output.
type LayerStack struct {
	FC0    *AffineTransformSparseInput
	AcSqr0 *SqrClippedReLU
	Ac0    *ClippedReLU
	FC1    *AffineTransform
	Ac1    *ClippedReLU
	FC2    *AffineTransform

	// Forward-pass scratch, sized to the padded layer widths.
	fc0Out    [fc0OutPadded]int32
	acSqr0Out [fc0PairedPadded]uint8
	ac0Out    [fc0OutPadded]uint8
	fc1Out    [fc1OutPadded]int32
	ac1Out    [fc1OutPadded]uint8
	fc2Out    [fc2OutPadded]int32
}

// NewLayerStack allocates one zeroed tail network.
func NewLayerStack() *LayerStack {
	return &LayerStack{
		FC0:    NewAffineTransformSparseInput(HalfDimensions, fc0Outputs),
		AcSqr0: NewSqrClippedReLU(fc0Outputs),
		Ac0:    NewClippedReLU(fc0Outputs),
		FC1:    NewAffineTransform(fc0Outputs*2, fc1Outputs),
		Ac1:    NewClippedReLU(fc1Outputs),
		FC2:    NewAffineTransform(fc1Outputs, 1),
	}
}

func (ls *LayerStack) hash() uint32 {
	h := uint32(0xEC42E90D)
	h ^= uint32(HalfDimensions * 2)
	h = ls.FC0.hash(h)
	h = ls.Ac0.hash(h)
	h = ls.FC1.hash(h)
	h = ls.Ac1.hash(h)
	h = ls.FC2.hash(h)
	return h
}

func (ls *LayerStack) readParameters(r io.Reader) error {
	if err := ls.FC0.readParameters(r); err != nil {
		return err
	}
	if err := ls.FC1.readParameters(r); err != nil {
		return err
	}
	return ls.FC2.readParameters(r)
}

func (ls *LayerStack) writeParameters(w io.Writer) error {
	if err := ls.FC0.writeParameters(w); err != nil {
		return err
	}
	if err := ls.FC1.writeParameters(w); err != nil {
		return err
	}
	return ls.FC2.writeParameters(w)
}

// Propagate runs the tail network over the transformed features.
func (ls *LayerStack) Propagate(transformed []uint8) int32 {
	ls.FC0.Propagate(transformed, ls.fc0Out[:])
	ls.AcSqr0.Propagate(ls.fc0Out[:], ls.acSqr0Out[:fc0Outputs])
	ls.Ac0.Propagate(ls.fc0Out[:], ls.ac0Out[:])
	copy(ls.acSqr0Out[fc0Outputs:fc0Outputs*2], ls.ac0Out[:fc0Outputs])
	for i := fc0Outputs * 2; i < len(ls.acSqr0Out); i++ {
		ls.acSqr0Out[i] = 0
	}

	ls.FC1.Propagate(ls.acSqr0Out[:], ls.fc1Out[:])
	ls.Ac1.Propagate(ls.fc1Out[:], ls.ac1Out[:])
	ls.FC2.Propagate(ls.ac1Out[:], ls.fc2Out[:])

	// Skip connection from the forwarded FC0 lane.
	fwd := ls.fc0Out[fc0Outputs-1] * (600 * OutputScale) / (127 * (1 << WeightScaleBits))
	return ls.fc2Out[0] + fwd
}

// Network is the complete evaluator: the feature transformer plus one
// layer stack per material bucket. Weights are immutable after Load
// and shared by all workers.
type Network struct {
	FeatureTransformer *FeatureTransformer
	LayerStacks        [LayerStacks]*LayerStack

	Description string
	hash        uint32
}

// NewNetwork allocates a zeroed network of the fixed architecture.
func NewNetwork() *Network {
	n := &Network{FeatureTransformer: NewFeatureTransformer()}
	for i := range n.LayerStacks {
		n.LayerStacks[i] = NewLayerStack()
	}
	n.hash = n.FeatureTransformer.hash() ^ n.LayerStacks[0].hash()
	return n
}

// Load reads a weight file. On any error the network must be
// considered unusable.
func (n *Network) Load(filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("nnue: %w", err)
	}
	defer f.Close()
	return n.ReadFrom(bufio.NewReaderSize(f, 1<<20))
}

// ReadFrom parses the binary weight format: version magic,
// architecture hash, description string, then the hashed parameter
// block of the transformer and of each layer stack.
func (n *Network) ReadFrom(r io.Reader) error {
	version, err := readLittleEndian[uint32](r)
	if err != nil {
		return fmt.Errorf("%w: version: %v", ErrBadFormat, err)
	}
	if version != Version {
		return fmt.Errorf("%w: version %08x, want %08x", ErrBadFormat, version, Version)
	}

	hash, err := readLittleEndian[uint32](r)
	if err != nil {
		return fmt.Errorf("%w: hash: %v", ErrBadFormat, err)
	}
	if hash != n.hash {
		return fmt.Errorf("%w: architecture hash %08x, want %08x", ErrBadFormat, hash, n.hash)
	}

	descLen, err := readLittleEndian[uint32](r)
	if err != nil {
		return fmt.Errorf("%w: description length: %v", ErrBadFormat, err)
	}
	if descLen > 1024 {
		return fmt.Errorf("%w: description length %d", ErrBadFormat, descLen)
	}
	desc := make([]byte, descLen)
	if _, err := io.ReadFull(r, desc); err != nil {
		return fmt.Errorf("%w: description: %v", ErrBadFormat, err)
	}
	n.Description = string(desc)

	ftHash, err := readLittleEndian[uint32](r)
	if err != nil {
		return fmt.Errorf("%w: transformer hash: %v", ErrBadFormat, err)
	}
	if want := n.FeatureTransformer.hash(); ftHash != want {
		return fmt.Errorf("%w: transformer hash %08x, want %08x", ErrBadFormat, ftHash, want)
	}
	if err := n.FeatureTransformer.readParameters(r); err != nil {
		return fmt.Errorf("%w: %v", ErrBadFormat, err)
	}

	for i, ls := range n.LayerStacks {
		lsHash, err := readLittleEndian[uint32](r)
		if err != nil {
			return fmt.Errorf("%w: stack %d hash: %v", ErrBadFormat, i, err)
		}
		if want := ls.hash(); lsHash != want {
			return fmt.Errorf("%w: stack %d hash %08x, want %08x", ErrBadFormat, i, lsHash, want)
		}
		if err := ls.readParameters(r); err != nil {
			return fmt.Errorf("%w: stack %d: %v", ErrBadFormat, i, err)
		}
	}
	return nil
}

// Save writes the network in the same format Load reads.
func (n *Network) Save(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	w := bufio.NewWriterSize(f, 1<<20)
	if err := n.WriteTo(w); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteTo serialises the network.
func (n *Network) WriteTo(w io.Writer) error {
	if err := writeLittleEndian(w, Version); err != nil {
		return err
	}
	if err := writeLittleEndian(w, n.hash); err != nil {
		return err
	}
	if err := writeLittleEndian(w, uint32(len(n.Description))); err != nil {
		return err
	}
	if _, err := w.Write([]byte(n.Description)); err != nil {
		return err
	}

	if err := writeLittleEndian(w, n.FeatureTransformer.hash()); err != nil {
		return err
	}
	if err := n.FeatureTransformer.writeParameters(w); err != nil {
		return err
	}
	for _, ls := range n.LayerStacks {
		if err := writeLittleEndian(w, ls.hash()); err != nil {
			return err
		}
		if err := ls.writeParameters(w); err != nil {
			return err
		}
	}
	return nil
}

// Forward runs the network tail over a computed accumulator. Returns
// the PSQT and positional parts separately, both scaled to
// centipawns; sideToMove selects which half leads.
func (n *Network) Forward(acc *Accumulator, sideToMove int, pieceCount int) (psqt, positional int32) {
	bucket := (pieceCount - 1) / 4
	if bucket < 0 {
		bucket = 0
	} else if bucket >= LayerStacks {
		bucket = LayerStacks - 1
	}

	perspectives := [2]int{sideToMove, 1 - sideToMove}
	var transformed [HalfDimensions]uint8

	psqt = n.FeatureTransformer.Transform(acc, perspectives, bucket, transformed[:])
	positional = n.LayerStacks[bucket].Propagate(transformed[:])
	return psqt / OutputScale, positional / OutputScale
}
