package determinize

import (
	"errors"
	"testing"

	"github.com/danielpatrickdp/causal-transducer/internal/alphabet"
	"github.com/danielpatrickdp/causal-transducer/internal/estimate"
	"github.com/danielpatrickdp/causal-transducer/internal/infer"
)

// period4Partition runs splitting on a deterministic output stream repeating
// 0,0,1,1 under a single input symbol. At history length 2 the split
// partition still holds successor conflicts, so it exercises refinement.
func period4Partition(t *testing.T) (*infer.Partition, alphabet.Alphabet, alphabet.Alphabet) {
	t.Helper()
	in := alphabet.MustNew("in", []alphabet.Symbol{"0"})
	out := alphabet.MustNew("out", []alphabet.Symbol{"0", "1"})

	const n = 1000
	inputs := make([]alphabet.Symbol, n)
	outputs := make([]alphabet.Symbol, n)
	for i := 0; i < n; i++ {
		inputs[i] = "0"
		if i%4 < 2 {
			outputs[i] = "0"
		} else {
			outputs[i] = "1"
		}
	}

	tables, err := estimate.Estimate(inputs, outputs, in, out, 2)
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	p, err := infer.Infer(tables, infer.DefaultConfig(0.001))
	if err != nil {
		t.Fatalf("infer: %v", err)
	}
	return p, in, out
}

func TestDeterminizePeriodFour(t *testing.T) {
	p, in, out := period4Partition(t)

	if err := Determinize(p, in, out, DefaultConfig(0.001)); err != nil {
		t.Fatalf("determinize: %v", err)
	}

	live := p.Live()
	if len(live) != 7 {
		t.Fatalf("expected 7 states after refinement, got %d", len(live))
	}

	if sid, x, y := findConflict(p, in, out); sid != -1 {
		t.Fatalf("partition still has a conflict at state %d on (%s, %s)", sid, x, y)
	}

	recurrent := map[string]bool{}
	transient := map[string]bool{}
	for _, s := range live {
		if len(s.Members) != 1 {
			t.Fatalf("every refined state should be a singleton, state %d holds %v", s.ID, s.Members)
		}
		if s.Recurrent {
			recurrent[s.Members[0]] = true
		} else {
			transient[s.Members[0]] = true
		}
	}
	if len(recurrent) != 4 {
		t.Fatalf("expected 4 recurrent states, got %d: %v", len(recurrent), recurrent)
	}
	for _, key := range []string{"0:0|0:0", "0:1|0:0", "0:0|0:1", "0:1|0:1"} {
		if !recurrent[key] {
			t.Fatalf("full-length history %s should be recurrent; recurrent set %v", key, recurrent)
		}
	}
	for _, key := range []string{"", "0:0", "0:1"} {
		if !transient[key] {
			t.Fatalf("short history %s should be transient; transient set %v", key, transient)
		}
	}
}

func TestDeterminizeTightRoundBoundStillSucceeds(t *testing.T) {
	p, in, out := period4Partition(t)

	// One round of splitting resolves every conflict here; the bound limits
	// rounds of change, so exhausting it with nothing left to fix is success.
	cfg := DefaultConfig(0.001)
	cfg.MaxRounds = 1

	if err := Determinize(p, in, out, cfg); err != nil {
		t.Fatalf("determinize: %v", err)
	}
	if got := len(p.Live()); got != 7 {
		t.Fatalf("expected 7 states, got %d", got)
	}

	recurrent := 0
	for _, s := range p.Live() {
		if s.Recurrent {
			recurrent++
		}
	}
	if recurrent != 4 {
		t.Fatalf("recurrent marking should still run, got %d recurrent states", recurrent)
	}
}

func TestDeterminizeReportsRemainingConflict(t *testing.T) {
	p, in, out := period4Partition(t)

	// No refinement budget at all: the conflicts in the splitting output
	// must surface with a concrete (state, input, output) triple.
	cfg := DefaultConfig(0.001)
	cfg.MaxRounds = 0

	err := Determinize(p, in, out, cfg)
	if err == nil {
		t.Fatal("a conflicted partition must not determinize without refinement")
	}
	var detErr *DeterminizationError
	if !errors.As(err, &detErr) {
		t.Fatalf("expected DeterminizationError, got %T", err)
	}
	if detErr.StateID == -1 || detErr.Input == "" || detErr.Output == "" {
		t.Fatalf("error should name a real conflict, got %+v", detErr)
	}
	if detErr.Rounds != 0 {
		t.Fatalf("expected 0 rounds, got %d", detErr.Rounds)
	}
}

func TestDeterminizeAlreadyUnifilar(t *testing.T) {
	in := alphabet.MustNew("in", []alphabet.Symbol{"0"})
	out := alphabet.MustNew("out", []alphabet.Symbol{"0", "1"})

	const n = 1000
	inputs := make([]alphabet.Symbol, n)
	outputs := make([]alphabet.Symbol, n)
	for i := 0; i < n; i++ {
		inputs[i] = "0"
		if i%2 == 0 {
			outputs[i] = "0"
		} else {
			outputs[i] = "1"
		}
	}

	tables, err := estimate.Estimate(inputs, outputs, in, out, 1)
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	p, err := infer.Infer(tables, infer.DefaultConfig(0.001))
	if err != nil {
		t.Fatalf("infer: %v", err)
	}
	before := len(p.Live())

	if err := Determinize(p, in, out, DefaultConfig(0.001)); err != nil {
		t.Fatalf("determinize: %v", err)
	}
	if got := len(p.Live()); got != before {
		t.Fatalf("a unifilar partition should be left unchanged, %d -> %d states", before, got)
	}

	recurrent := 0
	for _, s := range p.Live() {
		if s.Recurrent {
			recurrent++
		}
	}
	if recurrent != 2 {
		t.Fatalf("expected the 2 full-length states to be recurrent, got %d", recurrent)
	}
}
