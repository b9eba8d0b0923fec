// Package bb84 simulates the BB84 quantum key distribution protocol, optionally
// attacked by an intercept-resend eavesdropper.
package bb84

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/alan-christopher/quantumcryptosim/bb84/bitarray"
	"github.com/alan-christopher/quantumcryptosim/bb84/circuit"
	"github.com/alan-christopher/quantumcryptosim/bb84/photon"
)

var (
	DefaultQubits  = 50
	DefaultEpsilon = 1e-12
	// DefaultMaxQBER is the error rate above which a sifted key is considered
	// compromised, the usual bound for BB84 with one-way post-processing.
	DefaultMaxQBER = 0.11
	// DefaultSecretSeed keys the pre-shared authentication secret when none is
	// provided. Fine for simulation, useless for security.
	DefaultSecretSeed = []byte("bb84 simulation pre-shared secret")
)

var (
	// ErrLengthMismatch is returned when sequences describing the same qubits
	// have different lengths.
	ErrLengthMismatch = circuit.ErrLengthMismatch
	// ErrSimulator is returned when the simulator does not report exactly one
	// outcome for a single-shot run.
	ErrSimulator = errors.New("simulator integration error")
	// ErrOutcomeLength is returned when a measured outcome does not have one
	// bit per qubit.
	ErrOutcomeLength = errors.New("outcome length does not match qubit count")
	// ErrInvalidMAC is returned when a message on the public channel fails
	// authentication.
	ErrInvalidMAC = errors.New("invalid mac")
)

// Stats packages together a collection of potentially interesting metrics
// pertaining to a single BB84 run.
type Stats struct {
	QBER          float64
	SiftedBits    int
	Errors        int
	Intercepted   int
	SimulatorRuns int
	MessagesSent  int
	BytesSent     int

	// ReconciledBits and ResidualErrors describe the keys left after error
	// correction. Both are 0 when no correction ran.
	ReconciledBits int
	ResidualErrors int
}

// A Passthrough selects what the eavesdropper forwards for qubits she chose not
// to intercept.
type Passthrough int

const (
	// PassthroughFaithful forwards the sender's qubit untouched.
	PassthroughFaithful Passthrough = iota
	// PassthroughVacuum forwards a freshly reset |0> in place of the sender's
	// qubit, discarding it.
	PassthroughVacuum
)

func (p Passthrough) String() string {
	switch p {
	case PassthroughFaithful:
		return "faithful"
	case PassthroughVacuum:
		return "vacuum"
	}
	return fmt.Sprintf("Passthrough(%d)", int(p))
}

// ParsePassthrough is the inverse of Passthrough.String.
func ParsePassthrough(s string) (Passthrough, error) {
	switch s {
	case "faithful":
		return PassthroughFaithful, nil
	case "vacuum":
		return PassthroughVacuum, nil
	}
	return 0, fmt.Errorf("unknown passthrough policy %q", s)
}

// An EveOpts configures an intercept-resend eavesdropper.
type EveOpts struct {
	// Probability is the chance that each qubit is intercepted, in [0, 1].
	Probability float64

	// Passthrough selects what happens to qubits which are not intercepted.
	// Defaults to PassthroughFaithful.
	Passthrough Passthrough
}

// An Opts packages together the arguments of a protocol run. Fields left at
// their zero value take the documented default, except Rand, which must be
// provided.
type Opts struct {
	// Qubits is the number of qubits Alice sends. Defaults to DefaultQubits.
	Qubits int

	// Rand provides every random draw of the run: bits, bases, interception
	// decisions and, unless Simulator is set, measurement collapse. Seed it for
	// a reproducible run. Must be non-nil.
	Rand *rand.Rand

	// Simulator executes the prepared circuits. Defaults to a
	// photon.StateVector drawing from Rand.
	Simulator photon.Simulator

	// Eavesdropper places Eve on the quantum channel. Nil means no Eve.
	Eavesdropper *EveOpts

	// MaxQBER is the error rate above which Result.Detected is set. Defaults to
	// DefaultMaxQBER.
	MaxQBER float64

	// SecretSeed keys the secret Alice and Bob share to authenticate the
	// public channel. Defaults to DefaultSecretSeed.
	SecretSeed []byte

	// Winnow corrects errors in the sifted key when no eavesdropper was
	// detected. Nil skips error correction.
	Winnow *WinnowOpts

	// EpsilonAuth is the probability we are willing to accept that Eve can
	// forge a public message. Each message spends log_2(1/EpsilonAuth) bits of
	// secret, rounded up to the nearest byte. Defaults to DefaultEpsilon.
	EpsilonAuth float64
}

func (o Opts) withDefaults() (Opts, error) {
	if o.Rand == nil {
		return o, errors.New("must provide Rand")
	}
	if o.Qubits < 0 {
		return o, fmt.Errorf("qubit count must not be negative, got %d", o.Qubits)
	}
	if o.Qubits == 0 {
		o.Qubits = DefaultQubits
	}
	if o.Simulator == nil {
		o.Simulator = photon.NewStateVector(rand.New(rand.NewSource(o.Rand.Int63())))
	}
	if e := o.Eavesdropper; e != nil {
		if e.Probability < 0 || e.Probability > 1 || math.IsNaN(e.Probability) {
			return o, fmt.Errorf("interception probability must lie in [0, 1], got %v", e.Probability)
		}
		if e.Passthrough != PassthroughFaithful && e.Passthrough != PassthroughVacuum {
			return o, fmt.Errorf("unknown passthrough policy %v", e.Passthrough)
		}
	}
	if o.MaxQBER < 0 || o.MaxQBER > 1 {
		return o, fmt.Errorf("max QBER must lie in [0, 1], got %v", o.MaxQBER)
	}
	if o.MaxQBER == 0 {
		o.MaxQBER = DefaultMaxQBER
	}
	if o.SecretSeed == nil {
		o.SecretSeed = DefaultSecretSeed
	}
	if o.EpsilonAuth < 0 || o.EpsilonAuth >= 1 {
		return o, fmt.Errorf("EpsilonAuth must lie in (0, 1), got %v", o.EpsilonAuth)
	}
	if o.EpsilonAuth == 0 {
		o.EpsilonAuth = DefaultEpsilon
	}
	if o.Winnow != nil {
		w, err := o.Winnow.withDefaults()
		if err != nil {
			return o, err
		}
		o.Winnow = &w
	}
	return o, nil
}

// macBits returns the MAC length needed for epsilon, rounded up to a whole
// number of bytes.
func macBits(epsilon float64) int {
	bits := int(math.Ceil(math.Log2(1 / epsilon)))
	return 8 * bitarray.BytesFor(bits)
}

// A Result reports everything observable about one protocol run.
type Result struct {
	AliceBits  bitarray.Dense
	AliceBases bitarray.Dense
	BobBases   bitarray.Dense
	BobResults bitarray.Dense

	// EveBases, EveResults and Intercepted are empty when no eavesdropper was
	// configured.
	EveBases    bitarray.Dense
	EveResults  bitarray.Dense
	Intercepted bitarray.Dense

	// Sent is the circuit Alice prepared and Received the one which reached
	// Bob, before his measurement.
	Sent     *circuit.Circuit
	Received *circuit.Circuit

	Key   SiftedKey
	Stats Stats

	// Reconciled reports whether error correction ran, in which case AliceKey
	// and BobKey hold the corrected keys.
	Reconciled bool
	AliceKey   bitarray.Dense
	BobKey     bitarray.Dense

	// Detected reports whether the sifted key's error rate exceeded MaxQBER.
	Detected bool
}
