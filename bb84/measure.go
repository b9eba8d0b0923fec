package bb84

import (
	"fmt"

	"github.com/alan-christopher/quantumcryptosim/bb84/bitarray"
	"github.com/alan-christopher/quantumcryptosim/bb84/circuit"
	"github.com/alan-christopher/quantumcryptosim/bb84/photon"
)

// Measure measures every qubit prepared by c in the matching entry of bases,
// running sim exactly once with a single shot. c itself is not modified.
//
// The returned outcome is indexed by qubit, i.e. the simulator's register is
// reversed so that position 0 comes first.
func Measure(sim photon.Simulator, c *circuit.Circuit, bases bitarray.Dense) (bitarray.Dense, error) {
	if sim == nil || c == nil {
		return bitarray.Empty(), fmt.Errorf("measuring needs both a simulator and a circuit")
	}
	mc := c.Clone()
	if err := mc.AppendMeasurement(bases); err != nil {
		return bitarray.Empty(), err
	}
	counts, err := sim.Run(mc, 1)
	if err != nil {
		return bitarray.Empty(), fmt.Errorf("%w: %v", ErrSimulator, err)
	}
	if len(counts) != 1 {
		return bitarray.Empty(), fmt.Errorf("%w: single shot produced %d distinct outcomes", ErrSimulator, len(counts))
	}
	var register string
	for k, v := range counts {
		if v != 1 {
			return bitarray.Empty(), fmt.Errorf("%w: single shot outcome observed %d times", ErrSimulator, v)
		}
		register = k
	}
	msbFirst, err := bitarray.FromString(register)
	if err != nil {
		return bitarray.Empty(), fmt.Errorf("%w: %v", ErrSimulator, err)
	}
	if msbFirst.Size() != c.Qubits {
		return bitarray.Empty(), fmt.Errorf("%w: got %d bits for %d qubits", ErrOutcomeLength, msbFirst.Size(), c.Qubits)
	}
	return msbFirst.Reverse(), nil
}
