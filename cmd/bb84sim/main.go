// bb84sim runs a single round of BB84 key exchange, optionally attacked by an
// intercept-resend eavesdropper, and prints every sequence involved along with
// the resulting quantum bit error rate.
package main

import (
	goflag "flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/alan-christopher/quantumcryptosim/bb84"
	"github.com/golang/glog"
	flag "github.com/spf13/pflag"
)

var (
	qubits      = flag.Int("qubits", bb84.DefaultQubits, "The number of qubits Alice sends.")
	eavesdrop   = flag.Float64("eavesdrop", 0, "The probability that Eve intercepts each qubit. Eve is left out unless this or --passthrough is set.")
	passthrough = flag.String("passthrough", bb84.PassthroughFaithful.String(), "What Eve forwards for qubits she leaves alone: faithful or vacuum.")
	seed        = flag.Int64("seed", 0, "Seed for every random draw of the run. 0 picks a seed from the clock.")
	maxQBER     = flag.Float64("max-qber", bb84.DefaultMaxQBER, "The error rate above which the key is considered compromised.")
	showCircuit = flag.Bool("show-circuit", false, "Also print the circuit which reached Bob.")
	winnow      = flag.IntSlice("winnow", nil, "Hamming parity bits for each pass of Winnow error correction. Empty skips error correction.")
)

func main() {
	flag.CommandLine.AddGoFlagSet(goflag.CommandLine)
	flag.Parse()
	defer glog.Flush()

	s := *seed
	if s == 0 {
		s = time.Now().UnixNano()
	}
	glog.V(1).Infof("seed %d", s)
	opts := bb84.Opts{
		Qubits:  *qubits,
		Rand:    rand.New(rand.NewSource(s)),
		MaxQBER: *maxQBER,
	}
	if len(*winnow) > 0 {
		opts.Winnow = &bb84.WinnowOpts{Iters: *winnow}
	}
	eve, err := eveOpts(flag.CommandLine, *eavesdrop, *passthrough)
	if err != nil {
		glog.Exit(err)
	}
	opts.Eavesdropper = eve

	res, err := bb84.Run(opts)
	if err != nil {
		glog.Exitf("Running BB84: %v", err)
	}
	report(res)
}

// eveOpts returns the eavesdropper requested on fs, or nil if neither
// --eavesdrop nor --passthrough was given. An explicit --eavesdrop 0 still
// places Eve on the channel, so her passthrough policy applies to every qubit.
func eveOpts(fs *flag.FlagSet, p float64, passthrough string) (*bb84.EveOpts, error) {
	pt, err := bb84.ParsePassthrough(passthrough)
	if err != nil {
		return nil, fmt.Errorf("parsing --passthrough: %w", err)
	}
	if p == 0 && !fs.Changed("eavesdrop") && !fs.Changed("passthrough") {
		return nil, nil
	}
	return &bb84.EveOpts{Probability: p, Passthrough: pt}, nil
}

func report(res bb84.Result) {
	w := os.Stdout
	fmt.Fprintf(w, "Alice's bits:     %v\n", res.AliceBits.Ints())
	fmt.Fprintf(w, "Alice's bases:    %v\n", res.AliceBases.Ints())
	fmt.Fprintf(w, "Bob's bases:      %v\n", res.BobBases.Ints())
	if res.Intercepted.Size() > 0 {
		fmt.Fprintf(w, "Eve's bases:      %v\n", res.EveBases.Ints())
		fmt.Fprintf(w, "Eve intercepted:  %v (%d qubits)\n", res.Intercepted.Ints(), res.Stats.Intercepted)
	}
	fmt.Fprintf(w, "Bob's results:    %v\n", res.BobResults.Ints())
	fmt.Fprintf(w, "Matching indices: %v\n", res.Key.Indices)
	fmt.Fprintf(w, "Alice's key:      %v\n", res.Key.Alice.Ints())
	fmt.Fprintf(w, "Bob's key:        %v\n", res.Key.Bob.Ints())
	fmt.Fprintf(w, "QBER: %.4f (%d errors in %d sifted bits)\n", res.Stats.QBER, res.Stats.Errors, res.Stats.SiftedBits)
	if res.Detected {
		fmt.Fprintln(w, "Eavesdropper detected: QBER exceeds threshold, discard the key.")
	} else {
		fmt.Fprintln(w, "No eavesdropper detected.")
	}
	if res.Reconciled {
		fmt.Fprintf(w, "Alice's reconciled key: %v\n", res.AliceKey.Ints())
		fmt.Fprintf(w, "Bob's reconciled key:   %v\n", res.BobKey.Ints())
		fmt.Fprintf(w, "%d bits survived error correction, %d still differ.\n", res.Stats.ReconciledBits, res.Stats.ResidualErrors)
	}
	if *showCircuit {
		fmt.Fprintf(w, "\nCircuit received by Bob:\n%v", res.Received)
	}
}
