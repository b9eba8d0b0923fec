package bb84

import (
	"fmt"

	"github.com/alan-christopher/quantumcryptosim/bb84/bitarray"
)

// A toeplitz represents an m×n matrix over F_2 whose diagonals are all
// constant. Multiplying by a random toeplitz matrix is a universal hash, which
// is what authenticates the public channel.
type toeplitz struct {
	// The diagonal constants, starting from the bottom left and ending with
	// the top right. At least m+n-1 of them are needed.
	diags bitarray.Dense

	m int
	n int
}

// Mul computes the matrix product Tv.
func (t toeplitz) Mul(vec bitarray.Dense) (bitarray.Dense, error) {
	if t.diags.Size() < t.m+t.n-1 {
		return bitarray.Empty(), fmt.Errorf("improper toeplitz construction, has %d diagonals, needs %d", t.diags.Size(), t.m+t.n-1)
	}
	if t.n != vec.Size() {
		return bitarray.Empty(), fmt.Errorf("multiplying %dx%d matrix into %d-dim vector", t.m, t.n, vec.Size())
	}

	r := bitarray.NewDense(nil, t.m)
	for i := 0; i < t.m; i++ {
		// Row i reads the diagonals starting m-1-i from the bottom left.
		row, err := t.diags.Slice(t.m-1-i, t.m-1-i+t.n)
		if err != nil {
			return bitarray.Empty(), err
		}
		r.Set(i, row.And(vec).Parity())
	}
	return r, nil
}
