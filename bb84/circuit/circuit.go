// Package circuit describes linear sequences of single-qubit operations used to
// prepare and measure BB84 qubits.
package circuit

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alan-christopher/quantumcryptosim/bb84/bitarray"
)

// ErrLengthMismatch is returned when sequences which must describe the same
// qubits have different lengths.
var ErrLengthMismatch = errors.New("sequence lengths differ")

// A Kind identifies a single-qubit operation.
type Kind int

const (
	// Identity leaves the qubit untouched.
	Identity Kind = iota
	// BitFlip is the Pauli X gate, |0> <-> |1>.
	BitFlip
	// PhaseFlip is the Pauli Z gate, |+> <-> |->.
	PhaseFlip
	// BasisRotate is the Hadamard gate, swapping the rectilinear and diagonal
	// bases.
	BasisRotate
	// Measure collapses the qubit in the rectilinear basis and stores the
	// result in the classical slot with the same index.
	Measure
)

func (k Kind) String() string {
	switch k {
	case Identity:
		return "id"
	case BitFlip:
		return "x"
	case PhaseFlip:
		return "z"
	case BasisRotate:
		return "h"
	case Measure:
		return "measure"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// An Op applies a single operation to a single qubit.
type Op struct {
	Qubit int
	Kind  Kind
}

// A Circuit is an ordered sequence of operations over a fixed number of qubits,
// each of which has a classical output slot of the same index.
type Circuit struct {
	Qubits int
	Ops    []Op
}

// New returns an empty circuit over n qubits.
func New(n int) *Circuit {
	return &Circuit{Qubits: n}
}

// Append adds an operation to the end of c.
func (c *Circuit) Append(qubit int, k Kind) error {
	if qubit < 0 || qubit >= c.Qubits {
		return fmt.Errorf("qubit %d out of range for %d-qubit circuit", qubit, c.Qubits)
	}
	if k < Identity || k > Measure {
		return fmt.Errorf("unknown operation %v", k)
	}
	c.Ops = append(c.Ops, Op{Qubit: qubit, Kind: k})
	return nil
}

// Len returns the number of operations in c.
func (c *Circuit) Len() int {
	return len(c.Ops)
}

// Clone returns a deep copy of c.
func (c *Circuit) Clone() *Circuit {
	ops := make([]Op, len(c.Ops))
	copy(ops, c.Ops)
	return &Circuit{Qubits: c.Qubits, Ops: ops}
}

// String renders c as a QASM-like listing, one operation per line.
func (c *Circuit) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "qreg q[%d];\ncreg c[%d];\n", c.Qubits, c.Qubits)
	for _, op := range c.Ops {
		if op.Kind == Measure {
			fmt.Fprintf(&sb, "measure q[%d] -> c[%d];\n", op.Qubit, op.Qubit)
			continue
		}
		fmt.Fprintf(&sb, "%s q[%d];\n", op.Kind, op.Qubit)
	}
	return sb.String()
}

// AppendPreparation appends the operations encoding bit in basis on qubit:
// the rectilinear basis flips iff bit is set, the diagonal basis rotates and
// then phase flips iff bit is set.
func (c *Circuit) AppendPreparation(qubit int, bit, diagonal bool) error {
	if !diagonal {
		if bit {
			return c.Append(qubit, BitFlip)
		}
		return nil
	}
	if err := c.Append(qubit, BasisRotate); err != nil {
		return err
	}
	if bit {
		return c.Append(qubit, PhaseFlip)
	}
	return nil
}

// AppendMeasurement rotates every qubit whose basis is diagonal and then
// measures all qubits.
func (c *Circuit) AppendMeasurement(bases bitarray.Dense) error {
	if bases.Size() != c.Qubits {
		return fmt.Errorf("%w: %d measurement bases for %d qubits", ErrLengthMismatch, bases.Size(), c.Qubits)
	}
	for i := 0; i < c.Qubits; i++ {
		if !bases.Get(i) {
			continue
		}
		if err := c.Append(i, BasisRotate); err != nil {
			return err
		}
	}
	for i := 0; i < c.Qubits; i++ {
		if err := c.Append(i, Measure); err != nil {
			return err
		}
	}
	return nil
}

// Prepare returns the circuit preparing each bits[i] in bases[i]. The result
// contains no measurements.
func Prepare(bits, bases bitarray.Dense) (*Circuit, error) {
	if bits.Size() != bases.Size() {
		return nil, fmt.Errorf("%w: %d bits, %d bases", ErrLengthMismatch, bits.Size(), bases.Size())
	}
	c := New(bits.Size())
	for i := 0; i < bits.Size(); i++ {
		if err := c.AppendPreparation(i, bits.Get(i), bases.Get(i)); err != nil {
			return nil, err
		}
	}
	return c, nil
}
