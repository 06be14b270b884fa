package infer

import (
	"fmt"
	"runtime"

	"github.com/danielpatrickdp/causal-transducer/internal/alphabet"
	"github.com/danielpatrickdp/causal-transducer/internal/estimate"
)

// #region config

// Config bounds one splitting run. All fields are fixed before Infer is
// called and never mutated by it.
type Config struct {
	Alpha     float64 // significance level for the distribution test
	MaxPasses int     // full passes over all lengths before giving up
	Workers   int     // parallel test evaluators per length, 0 = GOMAXPROCS
}

// DefaultConfig returns the bounds used when a caller has no opinion.
func DefaultConfig(alpha float64) Config {
	return Config{
		Alpha:     alpha,
		MaxPasses: 64,
		Workers:   0,
	}
}

func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// #endregion config

// #region state

// State is one causal-state record in the partition arena. Histories
// reference states by integer ID; a state whose last member moves away stays
// in the arena as a dead entry and is skipped by Live.
type State struct {
	ID        int
	Members   []string // canonical history keys, kept sorted
	Counts    [][]int  // aggregated per-input output counts of all members
	Recurrent bool     // set by the determinizer, false until then
}

// Representative returns the lexicographically least member key.
func (s *State) Representative() string {
	if len(s.Members) == 0 {
		return ""
	}
	return s.Members[0]
}

// #endregion state

// #region partition

// Partition maps every history seen in training onto a causal state. It is
// mutated by Infer and Determinize and frozen once the model is built.
type Partition struct {
	Tables        *estimate.Tables
	States        []*State       // arena, indexed by State.ID
	Assign        map[string]int // history key -> state ID, total on seen histories
	Passes        int            // splitting passes actually run
	LowConfidence []string       // histories assigned without a testable distribution

	lowSeen map[string]bool
}

// markLowConfidence records a history assigned without a testable
// distribution, once per history across all passes.
func (p *Partition) markLowConfidence(key string) {
	if p.lowSeen == nil {
		p.lowSeen = make(map[string]bool)
	}
	if !p.lowSeen[key] {
		p.lowSeen[key] = true
		p.LowConfidence = append(p.LowConfidence, key)
	}
}

// Live returns the states that still hold members, in ID order.
func (p *Partition) Live() []*State {
	out := make([]*State, 0, len(p.States))
	for _, s := range p.States {
		if len(s.Members) > 0 {
			out = append(out, s)
		}
	}
	return out
}

// StateOf returns the state currently holding the given history key.
func (p *Partition) StateOf(key string) *State {
	return p.States[p.Assign[key]]
}

// SuccessorOf resolves the state reached from history h by appending pair j,
// truncated to L_max. The second return is false when the extended history
// never occurred in training.
func (p *Partition) SuccessorOf(h alphabet.History, j alphabet.JointSymbol) (int, bool) {
	child := h.Extend(j, p.Tables.LMax)
	id, ok := p.Assign[child.Key()]
	return id, ok
}

// #endregion partition

// #region convergence-error

// ConvergenceError reports that the splitting loop did not reach a fixed
// point within MaxPasses. Partial carries the best-effort partition for
// diagnostic inspection; it must not be used as a trained model.
type ConvergenceError struct {
	Passes  int
	Partial *Partition
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("splitting did not converge within %d passes (%d states)",
		e.Passes, len(e.Partial.Live()))
}

// #endregion convergence-error
