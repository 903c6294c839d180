package engine

import (
	"math/bits"

	"gannet/internal/board"
)

// Bound classifies a stored search score relative to the window it was
// obtained with.
type Bound uint8

const (
	BoundNone  Bound = 0
	BoundUpper Bound = 1 // score failed low: a true upper bound
	BoundLower Bound = 2 // score failed high: a true lower bound
	BoundExact Bound = BoundUpper | BoundLower
)

// ttEntry is one 10-byte slot. genBound8 packs the bound in bits 0-1,
// a was-PV flag in bit 2 and the 5-bit generation in bits 3-7.
// depth8 == 0 marks an empty slot; stored depths carry depthOffset.
type ttEntry struct {
	key16     uint16
	move16    uint16
	value16   int16
	eval16    int16
	depth8    uint8
	genBound8 uint8
}

const (
	depthOffset = 3 // lowest storable depth is -2 (qsearch)

	genDelta = 8 // generation step: the low 3 bits belong to bound+PV
	genCycle = 255 + genDelta
	genMask  = 0xF8
)

// relativeAge is the aging penalty of the entry under the current
// generation, in multiples of genDelta. The cycle constant keeps the
// subtraction correct when the 5-bit counter wraps.
func (e *ttEntry) relativeAge(generation uint8) int {
	return int((genCycle + uint32(generation) - uint32(e.genBound8)) & genMask)
}

// ttCluster groups three entries in one 32-byte cache line worth.
type ttCluster struct {
	entry [3]ttEntry
	_     [2]byte
}

// TTData is the decoded copy of a probed entry. All fields are only
// meaningful when Hit is true.
type TTData struct {
	Hit   bool
	Move  board.Move
	Value int
	Eval  int
	Depth int
	Bound Bound
	IsPV  bool
}

// TTWriter stores into the slot Probe selected for this key.
type TTWriter struct {
	entry *ttEntry
	tt    *TranspositionTable
}

// TranspositionTable is a fixed array of clusters shared by all
// workers. Access is deliberately unsynchronised: concurrent writes
// may tear an entry, so every consumer re-validates what it reads
// (key match in Probe, pseudo-legality of the move in the search).
type TranspositionTable struct {
	clusters   []ttCluster
	generation uint8
}

// NewTranspositionTable allocates a table of the given size in MiB,
// rounded down to a whole number of clusters.
func NewTranspositionTable(sizeMB int) *TranspositionTable {
	tt := &TranspositionTable{}
	tt.Resize(sizeMB)
	return tt
}

// Resize reallocates the table. All stored entries are lost.
func (tt *TranspositionTable) Resize(sizeMB int) {
	n := uint64(sizeMB) << 20 / 32
	if n == 0 {
		n = 1
	}
	tt.clusters = make([]ttCluster, n)
	tt.generation = 0
}

// Clear wipes every entry and resets the generation.
func (tt *TranspositionTable) Clear() {
	for i := range tt.clusters {
		tt.clusters[i] = ttCluster{}
	}
	tt.generation = 0
}

// NewSearch advances the generation counter. Called once per `go`.
func (tt *TranspositionTable) NewSearch() {
	tt.generation += genDelta
}

// ClusterCount returns the number of clusters.
func (tt *TranspositionTable) ClusterCount() uint64 {
	return uint64(len(tt.clusters))
}

// index maps a key to a cluster with a multiply-high, a division-free
// uniform mapping over an arbitrary (non power of two) cluster count.
func (tt *TranspositionTable) index(key uint64) uint64 {
	hi, _ := bits.Mul64(key, uint64(len(tt.clusters)))
	return hi
}

// Probe scans the cluster of key. On a hit the entry's generation is
// refreshed and its decoded contents returned; on a miss the writer
// points at the replacement victim: the entry minimising
// depth - age penalty, which prefers empty slots and stale entries.
func (tt *TranspositionTable) Probe(key uint64) (TTData, TTWriter) {
	cluster := &tt.clusters[tt.index(key)]
	key16 := uint16(key)

	for i := range cluster.entry {
		e := &cluster.entry[i]
		if e.key16 == key16 && e.depth8 != 0 {
			e.genBound8 = tt.generation | (e.genBound8 & (genDelta - 1))
			return TTData{
				Hit:   true,
				Move:  board.Move(e.move16),
				Value: int(e.value16),
				Eval:  int(e.eval16),
				Depth: int(e.depth8) - depthOffset,
				Bound: Bound(e.genBound8 & 3),
				IsPV:  e.genBound8&4 != 0,
			}, TTWriter{&cluster.entry[i], tt}
		}
	}

	replace := &cluster.entry[0]
	for i := 1; i < len(cluster.entry); i++ {
		e := &cluster.entry[i]
		if int(replace.depth8)-replace.relativeAge(tt.generation) >
			int(e.depth8)-e.relativeAge(tt.generation) {
			replace = e
		}
	}
	return TTData{}, TTWriter{replace, tt}
}

// Save writes through the probe's writer. The move is preserved when
// the new one is empty and the key unchanged; depth/value/bound are
// only overwritten when the new data is worth at least as much as
// what the slot holds (exact bound, different key, or depth within a
// small slack of the stored one).
func (w TTWriter) Save(key uint64, value int, isPV bool, b Bound, depth int, m board.Move, eval int) {
	e := w.entry
	key16 := uint16(key)

	if m != board.NoMove || key16 != e.key16 {
		e.move16 = uint16(m)
	}

	pvBonus := 0
	if isPV {
		pvBonus = 2
	}
	if b == BoundExact || key16 != e.key16 ||
		depth+depthOffset+pvBonus > int(e.depth8)-4 {
		e.key16 = key16
		e.value16 = int16(value)
		e.eval16 = int16(eval)
		e.depth8 = uint8(depth + depthOffset)
		e.genBound8 = w.tt.generation | uint8(pvBonus)<<1 | uint8(b)
	}
}

// HashFull estimates the permille of the table holding entries of the
// current generation, sampling the first thousand clusters.
func (tt *TranspositionTable) HashFull() int {
	sample := 1000
	if len(tt.clusters) < sample {
		sample = len(tt.clusters)
	}
	used := 0
	for i := 0; i < sample; i++ {
		for j := range tt.clusters[i].entry {
			e := &tt.clusters[i].entry[j]
			if e.depth8 != 0 && e.genBound8&genMask == tt.generation {
				used++
			}
		}
	}
	return used * 1000 / (sample * 3)
}

// valueToTT shifts mate scores to be relative to the current node, so
// the stored distance-to-mate is position-independent.
func valueToTT(v, ply int) int {
	if v >= ValueMateInMaxPly {
		return v + ply
	}
	if v <= -ValueMateInMaxPly {
		return v - ply
	}
	return v
}

// valueFromTT undoes valueToTT at the probing node.
func valueFromTT(v, ply int) int {
	if v == ValueNone {
		return ValueNone
	}
	if v >= ValueMateInMaxPly {
		return v - ply
	}
	if v <= -ValueMateInMaxPly {
		return v + ply
	}
	return v
}
