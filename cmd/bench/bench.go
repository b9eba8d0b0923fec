// bench.go estimates the quantum bit error rate of BB84 for each entry in the
// cartesian product of a collection of different tuning parameters, e.g. qubits
// exchanged and interception probability, and outputs a CSV of relevant
// statistics for each different combination, e.g. pooled QBER and detections.
package main

import (
	goflag "flag"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"text/template"

	"github.com/alan-christopher/quantumcryptosim/bb84"
	"github.com/golang/glog"
	flag "github.com/spf13/pflag"
)

var (
	qubits      = flag.IntSlice("qubits", []int{bb84.DefaultQubits}, "The number of qubits Alice sends per run.")
	eavesdrop   = flag.Float64Slice("eavesdrop", []float64{0, 0.25, 0.5, 0.75, 1}, "The probabilities that Eve intercepts each qubit. 0 means no Eve unless this or --passthrough is set.")
	trials      = flag.IntSlice("trials", []int{1000}, "The number of runs to aggregate per parameterization.")
	passthrough = flag.StringSlice("passthrough", []string{bb84.PassthroughFaithful.String()}, "What Eve forwards for qubits she leaves alone: faithful or vacuum.")
	maxQBER     = flag.Float64Slice("max-qber", []float64{bb84.DefaultMaxQBER}, "The error rates above which a key is considered compromised.")
	winnow      = flag.BoolSlice("winnow", []bool{false}, "Whether to run Winnow error correction on undetected keys.")
	seed        = flag.Int64("seed", 42, "Seed for every parameterization's random draws.")
)

var (
	inputs  = []string{"qubits", "eavesdrop", "trials", "passthrough", "max-qber", "winnow"}
	columns = []string{"Qubits", "Eavesdrop", "Trials", "Passthrough", "MaxQBER", "Winnow",
		"PooledQBER", "MeanQBER", "StdDevQBER", "StdErrQBER", "SiftedBits", "Errors",
		"Detected", "ReconciledBits", "ResidualErrors", "Succeeded"}
)

// An Experiment packages together the result of benchmarking a single
// parameterization for easy formatting.
type Experiment struct {
	// Fields corresponding to experiment parameters
	Qubits      int
	Eavesdrop   float64
	Trials      int
	Passthrough string
	MaxQBER     float64
	Winnow      bool
	// Eve places the eavesdropper on the channel even at zero interception
	// probability.
	Eve bool

	// Fields corresponding to experiment results
	PooledQBER     float64
	MeanQBER       float64
	StdDevQBER     float64
	StdErrQBER     float64
	SiftedBits     int
	Errors         int
	Detected       int
	ReconciledBits int
	ResidualErrors int
	Succeeded      bool
}

func main() {
	flag.CommandLine.AddGoFlagSet(goflag.CommandLine)
	flag.Parse()
	defer glog.Flush()

	eve := flag.CommandLine.Changed("eavesdrop") || flag.CommandLine.Changed("passthrough")
	fmt.Println(header())
	tmpl := template.Must(template.New("line").Parse(lineTmpl()))
	var args [][]interface{}
	for _, inp := range inputs {
		args = append(args, lookupInput(inp))
	}
	applyCartesian(func(args []interface{}) {
		exp := &Experiment{
			Qubits:      args[inpIndex("qubits")].(int),
			Eavesdrop:   args[inpIndex("eavesdrop")].(float64),
			Trials:      args[inpIndex("trials")].(int),
			Passthrough: args[inpIndex("passthrough")].(string),
			MaxQBER:     args[inpIndex("max-qber")].(float64),
			Winnow:      args[inpIndex("winnow")].(bool),
			Eve:         eve,
		}
		if err := bench(exp); err != nil {
			glog.Errorf("Benching %+v: %v", exp, err)
		}
		if err := tmpl.Execute(os.Stdout, exp); err != nil {
			glog.Fatalf("BUG: could not fill in line template: %v", err)
		}
	}, args)
}

func inpIndex(v string) int {
	for i, inp := range inputs {
		if inp == v {
			return i
		}
	}
	return -1
}

func bench(exp *Experiment) error {
	opts := bb84.Opts{
		Qubits:  exp.Qubits,
		Rand:    rand.New(rand.NewSource(*seed)),
		MaxQBER: exp.MaxQBER,
	}
	if exp.Winnow {
		opts.Winnow = &bb84.WinnowOpts{}
	}
	pt, err := bb84.ParsePassthrough(exp.Passthrough)
	if err != nil {
		return err
	}
	if exp.Eavesdrop != 0 || exp.Eve {
		opts.Eavesdropper = &bb84.EveOpts{Probability: exp.Eavesdrop, Passthrough: pt}
	}
	s, err := bb84.EstimateQBER(opts, exp.Trials)
	if err != nil {
		return err
	}
	exp.PooledQBER = s.Pooled
	exp.MeanQBER = s.Mean
	exp.StdDevQBER = s.StdDev
	exp.StdErrQBER = s.StdErr
	exp.SiftedBits = s.SiftedBits
	exp.Errors = s.Errors
	exp.Detected = s.Detected
	exp.ReconciledBits = s.ReconciledBits
	exp.ResidualErrors = s.ResidualErrors
	exp.Succeeded = true
	return nil
}

func header() string {
	return strings.Join(columns, ", ")
}

func lineTmpl() string {
	var els []string
	for _, c := range columns {
		els = append(els, "{{."+c+"}}")
	}
	return strings.Join(els, ", ") + "\n"
}

func lookupInput(name string) []interface{} {
	var r []interface{}
	if v, err := flag.CommandLine.GetIntSlice(name); err == nil {
		for _, val := range v {
			r = append(r, val)
		}
	} else if v, err := flag.CommandLine.GetFloat64Slice(name); err == nil {
		for _, val := range v {
			r = append(r, val)
		}
	} else if v, err := flag.CommandLine.GetBoolSlice(name); err == nil {
		for _, val := range v {
			r = append(r, val)
		}
	} else if v, err := flag.CommandLine.GetStringSlice(name); err == nil {
		for _, val := range v {
			r = append(r, val)
		}
	} else {
		glog.Fatalf("Unknown type for input %s", name)
	}
	return r
}

// applyCartesian calls f once for every combination of one value from each of
// args.
func applyCartesian(f func([]interface{}), args [][]interface{}) {
	for i := range args {
		if len(args[i]) == 1 {
			continue
		}
		l := make([][]interface{}, len(args))
		r := make([][]interface{}, len(args))
		copy(l, args)
		copy(r, args)
		l[i] = args[i][:1]
		r[i] = args[i][1:]
		applyCartesian(f, l)
		applyCartesian(f, r)
		return
	}
	x := make([]interface{}, 0, len(args))
	for _, a := range args {
		x = append(x, a[0])
	}
	f(x)
}
