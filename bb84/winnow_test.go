package bb84

import (
	"bytes"
	"fmt"
	"math/rand"
	"testing"

	"github.com/alan-christopher/quantumcryptosim/bb84/bitarray"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSECDED(t *testing.T) {
	var w winnower
	tcs := []struct {
		name     string
		vec      bitarray.Dense
		hBits    int
		syndrome bitarray.Dense
	}{{
		name:     "[8,4] null syndrome",
		vec:      bitarray.NewDense([]byte{0b00101101}, 8),
		hBits:    3,
		syndrome: bitarray.NewDense([]byte{0b0000}, 4),
	}, {
		name:     "[8,4] total parity flip",
		vec:      bitarray.NewDense([]byte{0b10101101}, 8),
		hBits:    3,
		syndrome: bitarray.NewDense([]byte{0b1000}, 4),
	}, {
		name:     "[8,4] p1 flip",
		vec:      bitarray.NewDense([]byte{0b00101100}, 8),
		hBits:    3,
		syndrome: bitarray.NewDense([]byte{0b1001}, 4),
	}, {
		name:     "[8,4] p2 flip",
		vec:      bitarray.NewDense([]byte{0b00101111}, 8),
		hBits:    3,
		syndrome: bitarray.NewDense([]byte{0b1010}, 4),
	}, {
		name:     "[8,4] p3 flip",
		vec:      bitarray.NewDense([]byte{0b00100101}, 8),
		hBits:    3,
		syndrome: bitarray.NewDense([]byte{0b1100}, 4),
	}, {
		name:     "[8,4] single data flip",
		vec:      bitarray.NewDense([]byte{0b00101001}, 8),
		hBits:    3,
		syndrome: bitarray.NewDense([]byte{0b1011}, 4),
	}, {
		name:     "[8,4] double flip",
		vec:      bitarray.NewDense([]byte{0b00001100}, 8),
		hBits:    3,
		syndrome: bitarray.NewDense([]byte{0b0111}, 4),
	}, {
		name: "[16,5] null syndrome",
		// little-endian (data, hamming-ed): (01101011100, 00001100 10111000)
		vec:      bitarray.NewDense([]byte{0b00110000, 0b00011101}, 16),
		hBits:    4,
		syndrome: bitarray.NewDense([]byte{0b00000}, 5),
	},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			syn, err := w.secded(tc.vec, tc.hBits)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if syn.Size() != tc.syndrome.Size() {
				t.Errorf("got bitarray of len %d, want %d", syn.Size(), tc.syndrome.Size())
			}
			arr := syn.Data()
			eArr := tc.syndrome.Data()
			if !bytes.Equal(arr, eArr) {
				t.Errorf("hamming(%v) == %b, want %b", tc.vec, arr, eArr)
			}
		})
	}

	if _, err := w.secded(bitarray.NewDense(nil, 7), 3); err == nil {
		t.Errorf("secded accepted a short block")
	}
}

func TestApplySyndromes(t *testing.T) {
	var w winnower
	const hBits = 3

	tcs := []struct {
		name     string
		x        bitarray.Dense
		expected bitarray.Dense
		synSums  []bitarray.Dense
		todo     bitarray.Dense
	}{{
		name:     "skip all",
		x:        bitarray.NewDense(nil, 3*8),
		expected: bitarray.NewDense(nil, 3*8),
		synSums:  []bitarray.Dense{},
		todo:     bitarray.NewDense([]byte{0b000}, 3),
	}, {
		name: "fix all",
		x:    bitarray.NewDense(nil, 3*8),
		expected: bitarray.NewDense([]byte{
			1,
			1 << (0b110 - 1),
			1 << 7}, 24),
		synSums: []bitarray.Dense{
			bitarray.NewDense([]byte{0b001}, hBits),
			bitarray.NewDense([]byte{0b110}, hBits),
			bitarray.NewDense([]byte{0b000}, hBits),
		},
		todo: bitarray.NewDense([]byte{0b111}, 3),
	}, {
		name:     "pointer into padding",
		x:        bitarray.NewDense(nil, 8+3),
		expected: bitarray.NewDense(nil, 8+3),
		synSums: []bitarray.Dense{
			bitarray.NewDense([]byte{0b111}, hBits),
		},
		todo: bitarray.NewDense([]byte{0b10}, 2),
	},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			w.applySyndromes(&tc.x, tc.synSums, tc.todo, hBits)
			arr, eArr := tc.x.Data(), tc.expected.Data()
			if !bytes.Equal(arr, eArr) {
				t.Errorf("x == %08b after correction, want %08b", arr, eArr)
			}
		})
	}
}

func TestPrivacyMaintenance(t *testing.T) {
	var w winnower
	tcs := []struct {
		hBits    int
		x        bitarray.Dense
		xTrimmed bitarray.Dense
		todo     bitarray.Dense
	}{{
		hBits:    2,
		x:        bitarray.NewDense([]byte{0b01111011}, 8),
		xTrimmed: bitarray.NewDense([]byte{0b1110}, 4),
		todo:     bitarray.NewDense([]byte{0b01}, 2),
	}, {
		hBits:    3,
		x:        bitarray.NewDense([]byte{0b10001011, 0b01111111}, 16),
		xTrimmed: bitarray.NewDense([]byte{0b11110000, 0b111}, 11),
		todo:     bitarray.NewDense([]byte{0b01}, 2),
	}, {
		hBits: 4,
		x: bitarray.NewDense([]byte{
			0b10001011, 0b10000000,
			0b11111111, 0b01111111,
		}, 32),
		xTrimmed: bitarray.NewDense([]byte{
			0b00000000, 0b11111000,
			0b11111111, 0b11}, 26),
		todo: bitarray.NewDense([]byte{0b01}, 2),
	},
	}

	for _, tc := range tcs {
		t.Run(fmt.Sprintf("m=%d", tc.hBits), func(t *testing.T) {
			x := w.maintainPrivacy(tc.x, tc.todo, tc.hBits)
			if x.Size() != tc.xTrimmed.Size() {
				t.Errorf("got bitarray of len %d, want %d", x.Size(), tc.xTrimmed.Size())
			}
			arr, eArr := x.Data(), tc.xTrimmed.Data()
			if !bytes.Equal(arr, eArr) {
				t.Errorf("x == %08b after privacy maintenance, want %08b", arr, eArr)
			}
		})
	}
}

func TestReconcileSingleError(t *testing.T) {
	opts, err := Opts{Qubits: 256, Rand: rand.New(rand.NewSource(1))}.withDefaults()
	require.NoError(t, err)
	a, b, err := newPeers(opts)
	require.NoError(t, err)

	r := rand.New(rand.NewSource(2))
	ka := bitarray.Random(r, 256)
	for _, flip := range []int{0, 77, 255} {
		t.Run(fmt.Sprint(flip), func(t *testing.T) {
			kb := ka.XOr(bitarray.NewDense(nil, 256))
			kb.Set(flip, !kb.Get(flip))

			var s Stats
			w := winnower{iters: []int{3}, sync: rand.New(rand.NewSource(3))}
			xa, xb, err := w.Reconcile(a, b, SiftedKey{Alice: ka, Bob: kb}, &s)
			require.NoError(t, err)
			assert.True(t, xa.Equal(xb), "single error survived winnowing")
			// 31 clean blocks leak their total parity, the faulty one leaks 4 bits.
			assert.Equal(t, 256-31-4, xa.Size())
			assert.Equal(t, 3, s.MessagesSent)
		})
	}
}

func TestRunWithWinnow(t *testing.T) {
	t.Run("clean channel", func(t *testing.T) {
		res, err := Run(Opts{
			Qubits: 400,
			Rand:   rand.New(rand.NewSource(12)),
			Winnow: &WinnowOpts{},
		})
		require.NoError(t, err)
		assert.True(t, res.Reconciled)
		assert.True(t, res.AliceKey.Equal(res.BobKey))
		assert.Zero(t, res.Stats.ResidualErrors)
		assert.Equal(t, res.AliceKey.Size(), res.Stats.ReconciledBits)
		assert.Positive(t, res.Stats.ReconciledBits)
		assert.Less(t, res.Stats.ReconciledBits, res.Stats.SiftedBits)
	})

	t.Run("light eavesdropping", func(t *testing.T) {
		res, err := Run(Opts{
			Qubits:       2000,
			Rand:         rand.New(rand.NewSource(13)),
			Eavesdropper: &EveOpts{Probability: 0.2},
			Winnow:       &WinnowOpts{Iters: []int{3, 3, 3, 4}},
		})
		require.NoError(t, err)
		require.False(t, res.Detected, "qber %v", res.Stats.QBER)
		assert.True(t, res.Reconciled)
		assert.Positive(t, res.Stats.Errors)
		assert.Less(t, res.Stats.ResidualErrors, res.Stats.Errors)
	})

	t.Run("detected keys are not reconciled", func(t *testing.T) {
		res, err := Run(Opts{
			Qubits:       400,
			Rand:         rand.New(rand.NewSource(14)),
			Eavesdropper: &EveOpts{Probability: 1},
			Winnow:       &WinnowOpts{},
		})
		require.NoError(t, err)
		assert.True(t, res.Detected)
		assert.False(t, res.Reconciled)
		assert.Zero(t, res.AliceKey.Size())
		assert.Zero(t, res.Stats.ReconciledBits)
	})

	t.Run("bad schedule", func(t *testing.T) {
		_, err := Run(Opts{Rand: rand.New(rand.NewSource(1)), Winnow: &WinnowOpts{Iters: []int{3, 0}}})
		assert.Error(t, err)
		_, err = Run(Opts{Rand: rand.New(rand.NewSource(1)), Winnow: &WinnowOpts{Iters: []int{MaxWinnowBits + 1}}})
		assert.Error(t, err)
	})
}
