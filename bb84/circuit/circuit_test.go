package circuit

import (
	"errors"
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

func TestPrepare(t *testing.T) {
	tcs := []struct {
		name  string
		bits  string
		bases string
		eops  []Op
	}{
		{
			name:  "rectilinear zero",
			bits:  "0",
			bases: "0",
		}, {
			name:  "rectilinear one",
			bits:  "1",
			bases: "0",
			eops:  []Op{{0, BitFlip}},
		}, {
			name:  "diagonal zero",
			bits:  "0",
			bases: "1",
			eops:  []Op{{0, BasisRotate}},
		}, {
			name:  "diagonal one",
			bits:  "1",
			bases: "1",
			eops:  []Op{{0, BasisRotate}, {0, PhaseFlip}},
		}, {
			name:  "mixed",
			bits:  "0110",
			bases: "0011",
			eops:  []Op{{1, BitFlip}, {2, BasisRotate}, {2, PhaseFlip}, {3, BasisRotate}},
		}, {
			name: "empty",
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			c, err := Prepare(mustDense(t, tc.bits), mustDense(t, tc.bases))
			require.NoError(t, err)
			assert.Equal(t, len(tc.bits), c.Qubits)
			assert.Equal(t, tc.eops, c.Ops)
			for _, op := range c.Ops {
				assert.NotEqual(t, Measure, op.Kind, "preparation must not measure")
			}
		})
	}
}

func TestPrepareDeterministic(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for i := 0; i < 20; i++ {
		bits := bitarray.Random(r, 64)
		bases := bitarray.Random(r, 64)
		a, err := Prepare(bits, bases)
		require.NoError(t, err)
		b, err := Prepare(bits, bases)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}

func TestPrepareLengthMismatch(t *testing.T) {
	_, err := Prepare(mustDense(t, "010"), mustDense(t, "01"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLengthMismatch))
}

func TestAppendMeasurement(t *testing.T) {
	c := New(3)
	require.NoError(t, c.AppendMeasurement(mustDense(t, "101")))
	assert.Equal(t, []Op{
		{0, BasisRotate}, {2, BasisRotate},
		{0, Measure}, {1, Measure}, {2, Measure},
	}, c.Ops)

	err := New(3).AppendMeasurement(mustDense(t, "10"))
	assert.True(t, errors.Is(err, ErrLengthMismatch))
}

func TestAppendRange(t *testing.T) {
	c := New(2)
	assert.Error(t, c.Append(2, BitFlip))
	assert.Error(t, c.Append(-1, BitFlip))
	assert.Error(t, c.Append(0, Kind(42)))
	assert.NoError(t, c.Append(1, Identity))
	assert.Equal(t, 1, c.Len())
}

func TestClone(t *testing.T) {
	c, err := Prepare(mustDense(t, "11"), mustDense(t, "01"))
	require.NoError(t, err)
	d := c.Clone()
	require.NoError(t, d.Append(0, Measure))
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, 4, d.Len())
}

func TestString(t *testing.T) {
	c, err := Prepare(mustDense(t, "11"), mustDense(t, "01"))
	require.NoError(t, err)
	require.NoError(t, c.AppendMeasurement(mustDense(t, "00")))
	want := "qreg q[2];\ncreg c[2];\n" +
		"x q[0];\nh q[1];\nz q[1];\n" +
		"measure q[0] -> c[0];\nmeasure q[1] -> c[1];\n"
	assert.Equal(t, want, c.String())
	assert.Equal(t, "Kind(9)", Kind(9).String())
}
