// Package photon simulates polarization-encoded qubits travelling through a
// BB84 quantum channel.
package photon

import (
	"github.com/alan-christopher/quantumcryptosim/bb84/circuit"
)

// Counts maps each observed classical register to the number of shots which
// produced it. Keys are written most significant slot first, so that slot 0 is
// the right-most character.
type Counts map[string]int

// A Simulator executes circuits and reports the classical registers observed.
type Simulator interface {
	// Run executes c shots times. Every shot starts with all qubits in |0> and
	// all classical slots at 0.
	Run(c *circuit.Circuit, shots int) (Counts, error)
}
