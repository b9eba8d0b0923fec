package photon

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/alan-christopher/quantumcryptosim/bb84/circuit"
	"github.com/golang/glog"
	"gonum.org/v1/gonum/mat"
)

var (
	identity    = mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	bitFlip     = mat.NewDense(2, 2, []float64{0, 1, 1, 0})
	phaseFlip   = mat.NewDense(2, 2, []float64{1, 0, 0, -1})
	basisRotate = mat.NewDense(2, 2, []float64{
		1 / math.Sqrt2, 1 / math.Sqrt2,
		1 / math.Sqrt2, -1 / math.Sqrt2,
	})
)

// A StateVector is a Simulator which tracks the two amplitudes of every qubit.
// Circuits contain only single-qubit operations, so the register is always a
// product state and each qubit can be evolved on its own.
//
// None of the supported gates introduce complex phases, so real amplitudes
// suffice.
type StateVector struct {
	rand *rand.Rand
}

// NewStateVector returns a StateVector which draws measurement collapses from
// r. A StateVector is not safe for concurrent use.
func NewStateVector(r *rand.Rand) *StateVector {
	return &StateVector{rand: r}
}

// Run implements the Simulator interface.
func (s *StateVector) Run(c *circuit.Circuit, shots int) (Counts, error) {
	if c == nil {
		return nil, errors.New("nil circuit")
	}
	if shots < 1 {
		return nil, fmt.Errorf("shot count must be positive, got %d", shots)
	}
	if c.Qubits < 1 {
		return nil, fmt.Errorf("circuit must have at least one qubit, got %d", c.Qubits)
	}
	counts := make(Counts)
	for i := 0; i < shots; i++ {
		reg, err := s.shot(c)
		if err != nil {
			return nil, err
		}
		counts[reg]++
	}
	glog.V(2).Infof("simulated %d ops over %d qubits, %d shots: %d distinct outcomes",
		c.Len(), c.Qubits, shots, len(counts))
	return counts, nil
}

func (s *StateVector) shot(c *circuit.Circuit) (string, error) {
	states := make([]*mat.VecDense, c.Qubits)
	for i := range states {
		states[i] = mat.NewVecDense(2, []float64{1, 0})
	}
	clbits := make([]bool, c.Qubits)
	for _, op := range c.Ops {
		if op.Qubit < 0 || op.Qubit >= c.Qubits {
			return "", fmt.Errorf("operation %v on qubit %d of a %d-qubit circuit", op.Kind, op.Qubit, c.Qubits)
		}
		var gate *mat.Dense
		switch op.Kind {
		case circuit.Identity:
			gate = identity
		case circuit.BitFlip:
			gate = bitFlip
		case circuit.PhaseFlip:
			gate = phaseFlip
		case circuit.BasisRotate:
			gate = basisRotate
		case circuit.Measure:
			clbits[op.Qubit] = s.collapse(states[op.Qubit])
			continue
		default:
			return "", fmt.Errorf("unsupported operation %v", op.Kind)
		}
		next := mat.NewVecDense(2, nil)
		next.MulVec(gate, states[op.Qubit])
		states[op.Qubit] = next
	}

	var sb strings.Builder
	sb.Grow(c.Qubits)
	for i := c.Qubits - 1; i >= 0; i-- {
		if clbits[i] {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String(), nil
}

// collapse measures v in the rectilinear basis, leaving v in the observed
// basis state, and reports whether |1> was observed.
func (s *StateVector) collapse(v *mat.VecDense) bool {
	p1 := v.AtVec(1) * v.AtVec(1)
	norm := v.AtVec(0)*v.AtVec(0) + p1
	one := s.rand.Float64()*norm < p1
	if one {
		v.SetVec(0, 0)
		v.SetVec(1, 1)
	} else {
		v.SetVec(0, 1)
		v.SetVec(1, 0)
	}
	return one
}
