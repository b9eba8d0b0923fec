package bb84

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// QBERStats summarises the error rates observed over repeated runs.
type QBERStats struct {
	Trials int
	// Pooled is the total number of sifted errors over the total number of
	// sifted bits, across all trials.
	Pooled float64
	// Mean, StdDev and StdErr describe the per-trial QBER. Trials which sifted
	// no bits are excluded.
	Mean   float64
	StdDev float64
	StdErr float64

	SiftedBits int
	Errors     int
	Detected   int

	// ReconciledBits and ResidualErrors total the error corrected keys of the
	// trials which ran error correction.
	ReconciledBits int
	ResidualErrors int
}

// EstimateQBER performs trials independent runs with opts and aggregates their
// error rates. All trials share opts.Rand, so a seeded Rand reproduces the
// estimate.
func EstimateQBER(opts Opts, trials int) (QBERStats, error) {
	if trials < 1 {
		return QBERStats{}, fmt.Errorf("trial count must be positive, got %d", trials)
	}
	opts, err := opts.withDefaults()
	if err != nil {
		return QBERStats{}, err
	}
	s := QBERStats{Trials: trials}
	qbers := make([]float64, 0, trials)
	for i := 0; i < trials; i++ {
		res, err := Run(opts)
		if err != nil {
			return QBERStats{}, fmt.Errorf("trial %d: %w", i, err)
		}
		s.SiftedBits += res.Stats.SiftedBits
		s.Errors += res.Stats.Errors
		s.ReconciledBits += res.Stats.ReconciledBits
		s.ResidualErrors += res.Stats.ResidualErrors
		if res.Detected {
			s.Detected++
		}
		if res.Stats.SiftedBits > 0 {
			qbers = append(qbers, res.Stats.QBER)
		}
	}
	if s.SiftedBits > 0 {
		s.Pooled = float64(s.Errors) / float64(s.SiftedBits)
	}
	switch {
	case len(qbers) == 1:
		s.Mean = qbers[0]
	case len(qbers) > 1:
		s.Mean, s.StdDev = stat.MeanStdDev(qbers, nil)
		s.StdErr = stat.StdErr(s.StdDev, float64(len(qbers)))
	}
	return s, nil
}
