package bb84

import (
	"fmt"

	"github.com/alan-christopher/quantumcryptosim/bb84/bitarray"
)

// A SiftedKey holds Alice's and Bob's bits at the positions where their bases
// agreed, along with those positions in increasing order.
type SiftedKey struct {
	Alice   bitarray.Dense
	Bob     bitarray.Dense
	Indices []int
}

// Len returns the number of sifted bits.
func (k SiftedKey) Len() int {
	return len(k.Indices)
}

// Errors returns the number of positions at which Alice and Bob disagree.
func (k SiftedKey) Errors() int {
	return k.Alice.XOr(k.Bob).CountOnes()
}

// QBER returns the fraction of sifted bits at which Alice and Bob disagree, or
// 0 for an empty key.
func (k SiftedKey) QBER() float64 {
	if k.Len() == 0 {
		return 0
	}
	return float64(k.Errors()) / float64(k.Len())
}

// Sift keeps the bits at every position where aliceBases and bobBases agree.
// No agreement at all yields an empty key rather than an error.
func Sift(aliceBases, bobBases, aliceBits, bobBits bitarray.Dense) (SiftedKey, error) {
	n := aliceBases.Size()
	if bobBases.Size() != n || aliceBits.Size() != n || bobBits.Size() != n {
		return SiftedKey{}, fmt.Errorf("%w: sifting bases (%d, %d) and bits (%d, %d)",
			ErrLengthMismatch, n, bobBases.Size(), aliceBits.Size(), bobBits.Size())
	}
	mask := aliceBases.XNor(bobBases)
	k := SiftedKey{
		Alice:   aliceBits.Select(mask),
		Bob:     bobBits.Select(mask),
		Indices: make([]int, 0, mask.CountOnes()),
	}
	for i := 0; i < n; i++ {
		if mask.Get(i) {
			k.Indices = append(k.Indices, i)
		}
	}
	return k, nil
}
