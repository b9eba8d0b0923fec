package bb84

import (
	"fmt"
	"math/bits"
	"math/rand"

	"github.com/alan-christopher/quantumcryptosim/bb84/bitarray"
	"github.com/golang/glog"
)

// MaxWinnowBits bounds the Hamming parity bits of a single winnowing pass.
const MaxWinnowBits = 16

// DefaultWinnowIters is a short schedule suited to the small keys of a single
// simulated run.
var DefaultWinnowIters = []int{3, 3, 4}

// A WinnowOpts configures error correction of the sifted key.
type WinnowOpts struct {
	// Iters gives the number of Hamming parity bits used by each winnowing
	// pass, in order. Each must lie in [1, MaxWinnowBits]. Defaults to
	// DefaultWinnowIters.
	Iters []int
}

func (o WinnowOpts) withDefaults() (WinnowOpts, error) {
	if len(o.Iters) == 0 {
		o.Iters = DefaultWinnowIters
	}
	for _, h := range o.Iters {
		if h < 1 || h > MaxWinnowBits {
			return o, fmt.Errorf("winnow parity bits must lie in [1, %d], got %d", MaxWinnowBits, h)
		}
	}
	return o, nil
}

// A winnower reconciles Alice's and Bob's sifted keys via the Winnow
// algorithm, as described in https://arxiv.org/abs/quant-ph/0203096. Alice
// announces syndromes and Bob corrects his key to match hers.
type winnower struct {
	iters []int
	// sync draws the permutation both peers apply before each pass.
	sync *rand.Rand
}

// Reconcile runs every winnowing pass over key, exchanging parities and
// syndromes over a's and b's public channels, and returns the keys which
// remain afterwards.
func (w winnower) Reconcile(a *alice, b *bob, key SiftedKey, s *Stats) (xa, xb bitarray.Dense, err error) {
	xa, xb = key.Alice, key.Bob
	for _, hBits := range w.iters {
		xa, xb, err = w.winnow(a, b, xa, xb, hBits, s)
		if err != nil {
			return bitarray.Empty(), bitarray.Empty(), err
		}
	}
	return xa, xb, nil
}

func (w winnower) winnow(a *alice, b *bob, xa, xb bitarray.Dense, hBits int, s *Stats) (bitarray.Dense, bitarray.Dense, error) {
	perm := w.sync.Perm(xa.Size())
	xa, xb = xa.Permute(perm), xb.Permute(perm)
	synA, err := w.getSyndromes(xa, hBits)
	if err != nil {
		return bitarray.Empty(), bitarray.Empty(), err
	}
	synB, err := w.getSyndromes(xb, hBits)
	if err != nil {
		return bitarray.Empty(), bitarray.Empty(), err
	}

	todoA, todoB, err := w.exchangeTotalParity(a, b, synA, synB, hBits, s)
	if err != nil {
		return bitarray.Empty(), bitarray.Empty(), err
	}
	synSums, err := w.exchangeFullSyndromes(a, b, synA, synB, todoA, hBits, s)
	if err != nil {
		return bitarray.Empty(), bitarray.Empty(), err
	}
	w.applySyndromes(&xb, synSums, todoB, hBits)
	xa = w.maintainPrivacy(xa, todoA, hBits)
	xb = w.maintainPrivacy(xb, todoB, hBits)
	glog.V(2).Infof("winnow pass with %d parity bits: %d of %d blocks disagreed, %d bits remain",
		hBits, todoA.CountOnes(), todoA.Size(), xa.Size())
	return xa, xb, nil
}

// exchangeTotalParity has Alice announce the total parity of each of her
// blocks, then Bob his. Each returns a mask of the blocks whose parities
// disagree, as that peer sees it.
func (w winnower) exchangeTotalParity(a *alice, b *bob, synA, synB []bitarray.Dense, hBits int, s *Stats) (todoA, todoB bitarray.Dense, err error) {
	tpA, tpB := totalParities(synA, hBits), totalParities(synB, hBits)
	fromA, err := exchange(a.sideChannel, b.sideChannel, tpA, s)
	if err != nil {
		return bitarray.Empty(), bitarray.Empty(), fmt.Errorf("announcing alice's parities: %w", err)
	}
	fromB, err := exchange(b.sideChannel, a.sideChannel, tpB, s)
	if err != nil {
		return bitarray.Empty(), bitarray.Empty(), fmt.Errorf("announcing bob's parities: %w", err)
	}
	if fromA.Size() != tpB.Size() || fromB.Size() != tpA.Size() {
		return bitarray.Empty(), bitarray.Empty(), fmt.Errorf(
			"%w: reconciling bitstrings of different block counts: %d != %d", ErrLengthMismatch, fromA.Size(), tpB.Size())
	}
	return tpA.XOr(fromB), tpB.XOr(fromA), nil
}

func totalParities(syndromes []bitarray.Dense, hBits int) bitarray.Dense {
	tp := bitarray.Empty()
	for _, syn := range syndromes {
		tp.AppendBit(syn.Get(hBits))
	}
	return tp
}

// exchangeFullSyndromes has Alice announce her syndromes for every block in
// todo. It returns the sums of her syndromes with Bob's, one per such block.
func (w winnower) exchangeFullSyndromes(a *alice, b *bob, synA, synB []bitarray.Dense, todo bitarray.Dense, hBits int, s *Stats) ([]bitarray.Dense, error) {
	flat := bitarray.Empty()
	var filteredB []bitarray.Dense
	for i := range synA {
		if !todo.Get(i) {
			continue
		}
		for j := 0; j < hBits; j++ {
			flat.AppendBit(synA[i].Get(j))
		}
		filteredB = append(filteredB, synB[i])
	}
	// Alice announces, Bob fixes.
	got, err := exchange(a.sideChannel, b.sideChannel, flat, s)
	if err != nil {
		return nil, fmt.Errorf("announcing syndromes: %w", err)
	}
	if got.Size() != hBits*len(filteredB) {
		return nil, fmt.Errorf("%w: reconciling syndromes of different block counts: %d != %d",
			ErrLengthMismatch, got.Size()/hBits, len(filteredB))
	}
	var r []bitarray.Dense
	for i, syn := range filteredB {
		oSyn, err := got.Slice(i*hBits, (i+1)*hBits)
		if err != nil {
			return nil, err
		}
		r = append(r, syn.XOr(oSyn))
	}
	return r, nil
}

// applySyndromes flips, in each block of x marked in todo, the bit the
// matching syndrome sum points at. Positions in the padding of a final short
// block are left alone.
func (w winnower) applySyndromes(x *bitarray.Dense, synSums []bitarray.Dense, todo bitarray.Dense, hBits int) {
	n := 1 << hBits
	for i, k := 0, -1; i < todo.Size(); i++ {
		if !todo.Get(i) {
			continue
		}
		k++
		syn := synSums[k]
		pos := 0
		for j := 0; j < hBits; j++ {
			if syn.Get(j) {
				pos |= 1 << j
			}
		}
		pos-- // cardinal/ordinal correction
		if pos < 0 {
			pos = n - 1 // total parity flip
		}
		if idx := i*n + pos; idx < x.Size() {
			x.Set(idx, !x.Get(idx))
		}
	}
}

// maintainPrivacy discards one bit per block for every parity leaked while
// winnowing it.
func (w winnower) maintainPrivacy(x bitarray.Dense, todo bitarray.Dense, hBits int) bitarray.Dense {
	keep := bitarray.Empty()
	n := 1 << hBits
	for i := 0; i < todo.Size(); i++ {
		if !todo.Get(i) {
			for j := 0; j < n-1; j++ {
				keep.AppendBit(true)
			}
			keep.AppendBit(false)
			continue
		}

		for j := 0; j < n; j++ {
			keep.AppendBit(bits.OnesCount(uint(j+1)) != 1)
		}
	}
	return x.Select(keep)
}

func (w winnower) getSyndromes(x bitarray.Dense, hBits int) ([]bitarray.Dense, error) {
	var r []bitarray.Dense
	bSize := 1 << hBits
	for i := 0; i < x.Size(); i += bSize {
		block, err := x.Slice(i, min(i+bSize, x.Size()))
		if err != nil {
			return nil, err
		}
		if i+bSize > x.Size() {
			block = bitarray.NewDense(block.Data(), bSize)
		}
		syndrome, err := w.secded(block, hBits)
		if err != nil {
			return nil, err
		}
		r = append(r, syndrome)
	}
	return r, nil
}

func (w winnower) secded(block bitarray.Dense, hBits int) (bitarray.Dense, error) {
	if block.Size() != 1<<hBits {
		return bitarray.Empty(), fmt.Errorf(
			"hamming SECDED with %d parity bits needs block of %d, got %d", hBits, 1<<hBits, block.Size())
	}
	r := bitarray.Empty()

	// The p-th hamming parity bit checks the parity of bits in strides of 2^p. E.g.
	// the 0th bit checks positions {0, 2, 4, ...}, the 1st checks
	// {1,2, 5,6, ...}, the 2nd {3,4,5,6, 11,12,13,14, ...}.
	for p := 0; p < hBits; p++ {
		stride := 1 << p
		parity := false
		for i := stride - 1; i < block.Size(); i += 2 * stride {
			for j := i; j < i+stride && j < block.Size(); j++ {
				parity = (block.Get(j) != parity)
			}
		}
		r.AppendBit(parity)
	}

	// Finish by inserting a total parity bit.
	r.AppendBit(block.Parity())

	return r, nil
}
