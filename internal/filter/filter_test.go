package filter

import (
	"errors"
	"testing"

	"github.com/danielpatrickdp/causal-transducer/internal/alphabet"
	"github.com/danielpatrickdp/causal-transducer/internal/determinize"
	"github.com/danielpatrickdp/causal-transducer/internal/estimate"
	"github.com/danielpatrickdp/causal-transducer/internal/infer"
	"github.com/danielpatrickdp/causal-transducer/internal/transducer"
)

func trainModel(t *testing.T, in, out alphabet.Alphabet, inputs, outputs []alphabet.Symbol, lmax int) *transducer.Model {
	t.Helper()
	tables, err := estimate.Estimate(inputs, outputs, in, out, lmax)
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	p, err := infer.Infer(tables, infer.DefaultConfig(0.001))
	if err != nil {
		t.Fatalf("infer: %v", err)
	}
	if err := determinize.Determinize(p, in, out, determinize.DefaultConfig(0.001)); err != nil {
		t.Fatalf("determinize: %v", err)
	}
	m, err := transducer.Build(p, in, out, lmax, 0.001)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return m
}

func alternating(in alphabet.Symbol, n int) ([]alphabet.Symbol, []alphabet.Symbol) {
	inputs := make([]alphabet.Symbol, n)
	outputs := make([]alphabet.Symbol, n)
	for i := 0; i < n; i++ {
		inputs[i] = in
		if i%2 == 0 {
			outputs[i] = "0"
		} else {
			outputs[i] = "1"
		}
	}
	return inputs, outputs
}

func TestRunStaysSynchronizedOnTrainingData(t *testing.T) {
	in := alphabet.MustNew("in", []alphabet.Symbol{"0"})
	out := alphabet.MustNew("out", []alphabet.Symbol{"0", "1"})
	inputs, outputs := alternating("0", 1000)
	m := trainModel(t, in, out, inputs, outputs, 1)

	traj, err := Run(m, inputs, outputs)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(traj.Steps) != len(inputs) {
		t.Fatalf("trajectory covers %d of %d positions", len(traj.Steps), len(inputs))
	}
	if n := traj.UnsyncCount(); n != 0 {
		t.Fatalf("replaying training data lost sync at %d positions", n)
	}

	// After the first pair the process is deterministic, so every later
	// prediction must match the actual output.
	preds := traj.Predictions()
	for i := 1; i < len(preds); i++ {
		if preds[i] != outputs[i] {
			t.Fatalf("position %d: predicted %q, actual %q", i, preds[i], outputs[i])
		}
	}
	if !traj.Steps[0].HasPrediction {
		t.Fatal("the start state has a morph, position 0 should carry a prediction")
	}
}

func TestRunLosesAndRegainsSync(t *testing.T) {
	in := alphabet.MustNew("in", []alphabet.Symbol{"a", "b"})
	out := alphabet.MustNew("out", []alphabet.Symbol{"0", "1"})
	trainIn, trainOut := alternating("a", 1000)
	m := trainModel(t, in, out, trainIn, trainOut, 1)

	// Input b never occurred in training; the pair at position 2 is unseen.
	inputs := []alphabet.Symbol{"a", "a", "b", "a", "a"}
	outputs := []alphabet.Symbol{"0", "1", "0", "1", "0"}

	traj, err := Run(m, inputs, outputs)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if traj.Steps[2].Synchronized {
		t.Fatal("the unseen input should break synchronization")
	}
	if traj.Steps[2].StateID != Unsynchronized {
		t.Fatalf("unsynchronized step carries state %d", traj.Steps[2].StateID)
	}
	if traj.Steps[2].HasPrediction {
		t.Fatal("no prediction is available for an input never observed")
	}

	if !traj.Steps[3].Synchronized {
		t.Fatal("one known pair suffices to resynchronize at L_max=1")
	}
	if traj.Steps[3].HasPrediction {
		t.Fatal("no prediction can precede the resynchronizing pair")
	}
	if !traj.Steps[4].HasPrediction || traj.Steps[4].Predicted != "0" {
		t.Fatalf("after resync the alternation should predict 0, got %+v", traj.Steps[4])
	}

	if n := traj.UnsyncCount(); n != 1 {
		t.Fatalf("expected exactly 1 unsynchronized position, got %d", n)
	}
}

func TestRunRejectsBadData(t *testing.T) {
	in := alphabet.MustNew("in", []alphabet.Symbol{"0"})
	out := alphabet.MustNew("out", []alphabet.Symbol{"0", "1"})
	inputs, outputs := alternating("0", 1000)
	m := trainModel(t, in, out, inputs, outputs, 1)

	_, err := Run(m, []alphabet.Symbol{"0", "0"}, []alphabet.Symbol{"0"})
	if err == nil {
		t.Fatal("mismatched lengths should be rejected")
	}
	var derr *alphabet.DataError
	if !errors.As(err, &derr) {
		t.Fatalf("expected DataError, got %T", err)
	}

	_, err = Run(m, []alphabet.Symbol{"z"}, []alphabet.Symbol{"0"})
	if err == nil {
		t.Fatal("an input outside the alphabet should be rejected")
	}
}
