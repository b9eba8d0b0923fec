package bb84

import (
	"bytes"
	"fmt"
	"math/rand"

	"github.com/alan-christopher/quantumcryptosim/bb84/bitarray"
	"github.com/alan-christopher/quantumcryptosim/bb84/circuit"
	"github.com/alan-christopher/quantumcryptosim/bb84/photon"
	"github.com/golang/glog"
)

// An alice represents the sending BB84 participant.
type alice struct {
	rand        *rand.Rand
	qubits      int
	sideChannel *publicChannel
	bits        bitarray.Dense
	bases       bitarray.Dense
}

// A bob represents the receiving BB84 participant.
type bob struct {
	rand        *rand.Rand
	qubits      int
	sideChannel *publicChannel
	bases       bitarray.Dense
	results     bitarray.Dense
}

// Run performs one BB84 exchange: Alice prepares random bits in random bases,
// Eve optionally intercepts them, Bob measures in random bases, and the two
// announce their bases over the authenticated public channel and sift.
func Run(opts Opts) (res Result, err error) {
	opts, err = opts.withDefaults()
	if err != nil {
		return Result{}, err
	}
	a, b, err := newPeers(opts)
	if err != nil {
		return Result{}, err
	}
	var stats Stats

	res.Sent, err = a.sendQBits()
	if err != nil {
		return Result{}, err
	}
	res.Received = res.Sent
	if opts.Eavesdropper != nil {
		eve, err := NewEavesdropper(opts.Qubits, *opts.Eavesdropper, opts.Rand)
		if err != nil {
			return Result{}, err
		}
		res.Received, err = eve.InterceptAndResend(opts.Simulator, a.bits, a.bases)
		if err != nil {
			return Result{}, err
		}
		stats.SimulatorRuns++
		stats.Intercepted = eve.Intercepted().CountOnes()
		res.EveBases = eve.Bases()
		res.EveResults = eve.Outcomes()
		res.Intercepted = eve.Intercepted()
	}
	if err := b.receiveQBits(opts.Simulator, res.Received); err != nil {
		return Result{}, err
	}
	stats.SimulatorRuns++

	aliceBases, bobBases, err := announceBases(a, b, &stats)
	if err != nil {
		return Result{}, err
	}
	res.Key, err = Sift(aliceBases, bobBases, a.bits, b.results)
	if err != nil {
		return Result{}, err
	}

	stats.SiftedBits = res.Key.Len()
	stats.Errors = res.Key.Errors()
	stats.QBER = res.Key.QBER()
	res.AliceBits, res.AliceBases = a.bits, a.bases
	res.BobBases, res.BobResults = b.bases, b.results
	res.Detected = stats.QBER > opts.MaxQBER
	if opts.Winnow != nil && !res.Detected {
		w := winnower{iters: opts.Winnow.Iters, sync: rand.New(rand.NewSource(opts.Rand.Int63()))}
		res.AliceKey, res.BobKey, err = w.Reconcile(a, b, res.Key, &stats)
		if err != nil {
			return Result{}, fmt.Errorf("reconciling: %w", err)
		}
		res.Reconciled = true
		stats.ReconciledBits = res.AliceKey.Size()
		stats.ResidualErrors = res.AliceKey.XOr(res.BobKey).CountOnes()
	}
	res.Stats = stats
	glog.V(1).Infof("bb84 run: %d qubits, %d sifted, %d errors, qber %.4f", opts.Qubits, stats.SiftedBits, stats.Errors, stats.QBER)
	return res, nil
}

func newPeers(opts Opts) (*alice, *bob, error) {
	var wire bytes.Buffer
	mac := macBits(opts.EpsilonAuth)
	// Winnow syndromes over a key of at most Qubits bits never exceed Qubits+2
	// bits.
	maxPayload := maxAnnouncementBytes(opts.Qubits + 2)
	aChan, err := newPublicChannel(&wire, newSecret(opts.SecretSeed), mac, maxPayload)
	if err != nil {
		return nil, nil, err
	}
	bChan, err := newPublicChannel(&wire, newSecret(opts.SecretSeed), mac, maxPayload)
	if err != nil {
		return nil, nil, err
	}
	a := &alice{rand: opts.Rand, qubits: opts.Qubits, sideChannel: aChan}
	b := &bob{rand: opts.Rand, qubits: opts.Qubits, sideChannel: bChan}
	return a, b, nil
}

func (a *alice) sendQBits() (*circuit.Circuit, error) {
	a.bits = bitarray.Random(a.rand, a.qubits)
	a.bases = bitarray.Random(a.rand, a.qubits)
	c, err := circuit.Prepare(a.bits, a.bases)
	if err != nil {
		return nil, fmt.Errorf("preparing qubits: %w", err)
	}
	return c, nil
}

func (b *bob) receiveQBits(sim photon.Simulator, c *circuit.Circuit) error {
	b.bases = bitarray.Random(b.rand, b.qubits)
	results, err := Measure(sim, c, b.bases)
	if err != nil {
		return fmt.Errorf("receiving qubits: %w", err)
	}
	b.results = results
	return nil
}

// announceBases has Bob publish his bases, then Alice hers. Each side returns
// the bases as they arrived over the public channel.
func announceBases(a *alice, b *bob, s *Stats) (aliceBases, bobBases bitarray.Dense, err error) {
	bobBases, err = exchange(b.sideChannel, a.sideChannel, b.bases, s)
	if err != nil {
		return bitarray.Empty(), bitarray.Empty(), fmt.Errorf("announcing bob's bases: %w", err)
	}
	aliceBases, err = exchange(a.sideChannel, b.sideChannel, a.bases, s)
	if err != nil {
		return bitarray.Empty(), bitarray.Empty(), fmt.Errorf("announcing alice's bases: %w", err)
	}
	if aliceBases.Size() != a.qubits || bobBases.Size() != b.qubits {
		return bitarray.Empty(), bitarray.Empty(), fmt.Errorf("%w: announced %d and %d bases for %d qubits",
			ErrLengthMismatch, aliceBases.Size(), bobBases.Size(), a.qubits)
	}
	return aliceBases, bobBases, nil
}

// exchange writes bits to from and reads them back off to. The two channels
// must share a wire.
func exchange(from, to *publicChannel, bits bitarray.Dense, s *Stats) (bitarray.Dense, error) {
	if err := from.Write(&bitAnnouncement{bits: bits}, s); err != nil {
		return bitarray.Empty(), err
	}
	msg := new(bitAnnouncement)
	if err := to.Read(msg, s); err != nil {
		return bitarray.Empty(), err
	}
	return msg.bits, nil
}
