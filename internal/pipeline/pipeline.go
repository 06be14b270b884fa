package pipeline

import (
	"fmt"
	"os"
	"time"

	"github.com/danielpatrickdp/causal-transducer/internal/alphabet"
	"github.com/danielpatrickdp/causal-transducer/internal/determinize"
	"github.com/danielpatrickdp/causal-transducer/internal/estimate"
	"github.com/danielpatrickdp/causal-transducer/internal/infer"
	"github.com/danielpatrickdp/causal-transducer/internal/transducer"
)

// #region config

// Config is the immutable training configuration. It is passed by value into
// Train and never read from process-wide state.
type Config struct {
	In  alphabet.Alphabet
	Out alphabet.Alphabet

	LMax  int     // maximum history length
	Alpha float64 // significance level for the splitting test

	MaxSplitPasses  int // convergence bound for the splitting loop
	MaxRefineRounds int // refinement bound for the determinizer
	Workers         int // parallel test evaluators, 0 = GOMAXPROCS
	Verbose         bool
}

// DefaultConfig returns the parameters used when a caller has no opinion:
// the transCSSR driver defaults of L_max=1, alpha=0.001 with generous
// iteration bounds.
func DefaultConfig(in, out alphabet.Alphabet) Config {
	return Config{
		In:              in,
		Out:             out,
		LMax:            1,
		Alpha:           0.001,
		MaxSplitPasses:  64,
		MaxRefineRounds: 32,
	}
}

// Validate rejects configurations the pipeline cannot honor.
func (c Config) Validate() error {
	if c.In.Len() == 0 || c.Out.Len() == 0 {
		return fmt.Errorf("config: both alphabets must be non-empty")
	}
	if c.LMax < 1 {
		return fmt.Errorf("config: l_max must be >= 1, got %d", c.LMax)
	}
	if c.Alpha <= 0 || c.Alpha >= 1 {
		return fmt.Errorf("config: alpha must lie in (0,1), got %g", c.Alpha)
	}
	if c.MaxSplitPasses < 1 {
		return fmt.Errorf("config: max_split_passes must be >= 1, got %d", c.MaxSplitPasses)
	}
	if c.MaxRefineRounds < 1 {
		return fmt.Errorf("config: max_refine_rounds must be >= 1, got %d", c.MaxRefineRounds)
	}
	return nil
}

// #endregion config

// #region report

// Report summarizes one training run for callers and the run log.
type Report struct {
	StateCount     int
	RecurrentCount int
	Passes         int
	Converged      bool
	LowConfidence  []string // histories assigned without a testable distribution
	ElapsedMs      int64
}

// #endregion report

// #region train

// Train runs the full batch pipeline over one in-memory dataset:
// estimate -> infer -> determinize -> build. A failed run never returns a
// model; ConvergenceError and DeterminizationError reach the caller wrapped
// with the partial diagnostics they carry.
func Train(inputs, outputs []alphabet.Symbol, cfg Config) (*transducer.Model, Report, error) {
	var report Report
	if err := cfg.Validate(); err != nil {
		return nil, report, err
	}

	start := time.Now()

	tables, err := estimate.Estimate(inputs, outputs, cfg.In, cfg.Out, cfg.LMax)
	if err != nil {
		return nil, report, err
	}
	if cfg.Verbose {
		fmt.Fprintf(os.Stderr, "estimate: %d histories up to length %d\n", len(tables.ByKey), cfg.LMax)
	}

	icfg := infer.Config{Alpha: cfg.Alpha, MaxPasses: cfg.MaxSplitPasses, Workers: cfg.Workers}
	partition, err := infer.Infer(tables, icfg)
	report.Passes = partition.Passes
	report.LowConfidence = partition.LowConfidence
	report.StateCount = len(partition.Live())
	if err != nil {
		report.ElapsedMs = time.Since(start).Milliseconds()
		return nil, report, fmt.Errorf("infer: %w", err)
	}
	report.Converged = true
	if cfg.Verbose {
		fmt.Fprintf(os.Stderr, "infer: %d states after %d passes\n", report.StateCount, report.Passes)
	}

	dcfg := determinize.Config{Alpha: cfg.Alpha, MaxRounds: cfg.MaxRefineRounds}
	if err := determinize.Determinize(partition, cfg.In, cfg.Out, dcfg); err != nil {
		report.StateCount = len(partition.Live())
		report.ElapsedMs = time.Since(start).Milliseconds()
		return nil, report, fmt.Errorf("determinize: %w", err)
	}

	model, err := transducer.Build(partition, cfg.In, cfg.Out, cfg.LMax, cfg.Alpha)
	if err != nil {
		report.ElapsedMs = time.Since(start).Milliseconds()
		return nil, report, fmt.Errorf("build: %w", err)
	}

	report.StateCount = model.StateCount()
	report.RecurrentCount = model.RecurrentCount()
	report.ElapsedMs = time.Since(start).Milliseconds()
	if cfg.Verbose {
		fmt.Fprintf(os.Stderr, "model %s: %d states (%d recurrent)\n",
			model.ID, report.StateCount, report.RecurrentCount)
	}
	return model, report, nil
}

// #endregion train
