package filter

import (
	"github.com/danielpatrickdp/causal-transducer/internal/alphabet"
	"github.com/danielpatrickdp/causal-transducer/internal/transducer"
)

// #region types

// Unsynchronized is the state label used while the live history matches no
// known causal state. It is data, not an error.
const Unsynchronized = -1

// Step is the filter output for one position: the causal-state estimate
// after reading the pair at that position, and the prediction that was
// available before reading it.
type Step struct {
	StateID       int // Unsynchronized when sync was lost
	Synchronized  bool
	Distribution  []float64 // next-output distribution used, nil when none
	Predicted     alphabet.Symbol
	HasPrediction bool
}

// Trajectory is the full filtering result over one sequence pair.
type Trajectory struct {
	Steps []Step
}

// UnsyncCount returns how many positions ended unsynchronized.
func (tr Trajectory) UnsyncCount() int {
	n := 0
	for _, s := range tr.Steps {
		if !s.Synchronized {
			n++
		}
	}
	return n
}

// Predictions returns the predicted output symbol per position, with "" at
// positions that had no prediction.
func (tr Trajectory) Predictions() []alphabet.Symbol {
	out := make([]alphabet.Symbol, len(tr.Steps))
	for i, s := range tr.Steps {
		if s.HasPrediction {
			out[i] = s.Predicted
		}
	}
	return out
}

// #endregion types

// #region run

// Run replays a (possibly new) sequence pair through a trained model. The
// machine starts Synchronized at the null-history state, follows delta while
// it stays defined, drops to Unsynchronized on an unseen combination, and
// resynchronizes by matching the longest known suffix of the most recent
// L_max pairs. It never halts early: the trajectory covers every position.
//
// The model is read-only here, so concurrent Run calls over one model are
// safe. Each step depends on the previous state; the loop itself is
// inherently sequential.
func Run(m *transducer.Model, inputs, outputs []alphabet.Symbol) (Trajectory, error) {
	if err := alphabet.ValidateSequences(inputs, outputs, m.In, m.Out, 1); err != nil {
		return Trajectory{}, err
	}

	tr := Trajectory{Steps: make([]Step, len(inputs))}

	cur, sync := m.StartState()
	var window alphabet.History

	for t := range inputs {
		x, y := inputs[t], outputs[t]
		var step Step

		if sync {
			if probs, ok := m.Morph(cur, x); ok {
				step.Distribution = probs
				step.Predicted = argmax(probs, m.Out)
				step.HasPrediction = true
			}
			if next, ok := m.Next(cur, x, y); ok {
				cur = next
			} else {
				sync = false
			}
		}

		window = window.Extend(alphabet.JointSymbol{Input: x, Output: y}, m.LMax)

		if !sync {
			if id, ok := resync(m, window); ok {
				cur = id
				sync = true
			}
		}

		if sync {
			step.StateID = cur
			step.Synchronized = true
		} else {
			step.StateID = Unsynchronized
		}
		tr.Steps[t] = step
	}

	return tr, nil
}

// resync matches the longest non-empty suffix of the live window against the
// model's known histories.
func resync(m *transducer.Model, window alphabet.History) (int, bool) {
	for n := len(window); n >= 1; n-- {
		if id, ok := m.StateForHistory(window.Suffix(n)); ok {
			return id, true
		}
	}
	return 0, false
}

// argmax picks the most probable output symbol, earliest in alphabet order
// on ties.
func argmax(probs []float64, out alphabet.Alphabet) alphabet.Symbol {
	best := 0
	for i := 1; i < len(probs); i++ {
		if probs[i] > probs[best] {
			best = i
		}
	}
	return out.Symbols[best]
}

// #endregion run
