package bb84

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/alan-christopher/quantumcryptosim/bb84/bitarray"
	"github.com/alan-christopher/quantumcryptosim/bb84/circuit"
	"github.com/alan-christopher/quantumcryptosim/bb84/photon"
	"github.com/golang/glog"
	exprand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// An Eavesdropper mounts an intercept-resend attack: she measures intercepted
// qubits in bases of her own choosing and forwards freshly prepared qubits
// encoding what she saw.
type Eavesdropper struct {
	intercepted bitarray.Dense
	bases       bitarray.Dense
	outcomes    bitarray.Dense
	passthrough Passthrough
}

// NewEavesdropper decides up front which of n qubits to intercept, each with
// probability opts.Probability, and which basis to measure each one in.
func NewEavesdropper(n int, opts EveOpts, r *rand.Rand) (*Eavesdropper, error) {
	if n < 0 {
		return nil, fmt.Errorf("qubit count must not be negative, got %d", n)
	}
	if opts.Probability < 0 || opts.Probability > 1 || math.IsNaN(opts.Probability) {
		return nil, fmt.Errorf("interception probability must lie in [0, 1], got %v", opts.Probability)
	}
	if r == nil {
		return nil, fmt.Errorf("must provide a source of randomness")
	}
	decide := distuv.Bernoulli{P: opts.Probability, Src: exprand.NewSource(r.Uint64())}
	intercepted := bitarray.NewDense(nil, n)
	for i := 0; i < n; i++ {
		intercepted.Set(i, decide.Rand() == 1)
	}
	return &Eavesdropper{
		intercepted: intercepted,
		bases:       bitarray.Random(r, n),
		passthrough: opts.Passthrough,
	}, nil
}

// Intercepted returns a mask of the qubits Eve intercepts.
func (e *Eavesdropper) Intercepted() bitarray.Dense {
	return e.intercepted
}

// Bases returns the bases Eve measures in.
func (e *Eavesdropper) Bases() bitarray.Dense {
	return e.bases
}

// Outcomes returns the results of Eve's most recent measurement, or an empty
// array if she has not measured anything yet.
func (e *Eavesdropper) Outcomes() bitarray.Dense {
	return e.outcomes
}

// InterceptAndResend prepares Alice's qubits from her bits and bases, measures
// them in Eve's bases and returns the circuit Eve forwards to Bob.
func (e *Eavesdropper) InterceptAndResend(sim photon.Simulator, bits, bases bitarray.Dense) (*circuit.Circuit, error) {
	n := e.intercepted.Size()
	if bits.Size() != n || bases.Size() != n {
		return nil, fmt.Errorf("%w: eavesdropper expects %d qubits, got %d bits and %d bases",
			ErrLengthMismatch, n, bits.Size(), bases.Size())
	}
	sent, err := circuit.Prepare(bits, bases)
	if err != nil {
		return nil, err
	}
	outcomes, err := Measure(sim, sent, e.bases)
	if err != nil {
		return nil, fmt.Errorf("intercepting: %w", err)
	}
	e.outcomes = outcomes

	resent := circuit.New(n)
	for i := 0; i < n; i++ {
		if e.intercepted.Get(i) {
			err = resent.AppendPreparation(i, outcomes.Get(i), e.bases.Get(i))
		} else {
			err = e.pass(resent, i, bits.Get(i), bases.Get(i))
		}
		if err != nil {
			return nil, err
		}
	}
	glog.V(1).Infof("eve intercepted %d of %d qubits (%v passthrough)", e.intercepted.CountOnes(), n, e.passthrough)
	return resent, nil
}

func (e *Eavesdropper) pass(c *circuit.Circuit, qubit int, bit, diagonal bool) error {
	switch e.passthrough {
	case PassthroughFaithful:
		return c.AppendPreparation(qubit, bit, diagonal)
	case PassthroughVacuum:
		return nil
	}
	return fmt.Errorf("unknown passthrough policy %v", e.passthrough)
}
