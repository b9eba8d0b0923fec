package bb84

import (
	"math/rand"
	"testing"

	"github.com/alan-christopher/quantumcryptosim/bb84/bitarray"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDense(t *testing.T, s string) bitarray.Dense {
	d, err := bitarray.FromString(s)
	require.NoError(t, err)
	return d
}

// naiveMul expands t into an explicit matrix before multiplying.
func naiveMul(t toeplitz, vec bitarray.Dense) bitarray.Dense {
	r := bitarray.NewDense(nil, t.m)
	for i := 0; i < t.m; i++ {
		sum := false
		for j := 0; j < t.n; j++ {
			// Entry (i, j) lies on diagonal j-i, offset by m-1 from the bottom left.
			if t.diags.Get(t.m-1-i+j) && vec.Get(j) {
				sum = !sum
			}
		}
		r.Set(i, sum)
	}
	return r
}

func TestToeplitzMul(t *testing.T) {
	tcs := []struct {
		name  string
		diags string
		m, n  int
		vec   string
		eout  string
	}{
		{
			name:  "identity-like",
			diags: "001",
			m:     2,
			n:     2,
			vec:   "10",
			// Rows: [0 1], [0 0].
			eout: "00",
		}, {
			name:  "all ones",
			diags: "11111",
			m:     3,
			n:     3,
			vec:   "101",
			eout:  "000",
		}, {
			name:  "single row",
			diags: "1011",
			m:     1,
			n:     4,
			vec:   "1111",
			eout:  "1",
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			tm := toeplitz{diags: mustDense(t, tc.diags), m: tc.m, n: tc.n}
			out, err := tm.Mul(mustDense(t, tc.vec))
			require.NoError(t, err)
			assert.Equal(t, tc.eout, out.String())
		})
	}
}

func TestToeplitzMatchesNaive(t *testing.T) {
	r := rand.New(rand.NewSource(1234))
	for _, dims := range [][2]int{{1, 1}, {8, 8}, {40, 13}, {40, 300}, {3, 77}} {
		m, n := dims[0], dims[1]
		tm := toeplitz{diags: bitarray.Random(r, m+n-1), m: m, n: n}
		vec := bitarray.Random(r, n)
		out, err := tm.Mul(vec)
		require.NoError(t, err)
		assert.Equal(t, naiveMul(tm, vec).String(), out.String(), "%dx%d", m, n)
	}
}

func TestToeplitzErrors(t *testing.T) {
	tm := toeplitz{diags: mustDense(t, "101"), m: 2, n: 3}
	_, err := tm.Mul(mustDense(t, "101"))
	assert.Error(t, err, "too few diagonals")

	tm = toeplitz{diags: mustDense(t, "1010"), m: 2, n: 3}
	_, err = tm.Mul(mustDense(t, "10"))
	assert.Error(t, err, "vector size mismatch")
}
