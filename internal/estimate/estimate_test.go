package estimate

import (
	"errors"
	"math"
	"testing"

	"github.com/danielpatrickdp/causal-transducer/internal/alphabet"
)

func TestEstimateCounts(t *testing.T) {
	in := alphabet.MustNew("in", []alphabet.Symbol{"0"})
	out := alphabet.MustNew("out", []alphabet.Symbol{"0", "1"})

	inputs := []alphabet.Symbol{"0", "0", "0"}
	outputs := []alphabet.Symbol{"0", "1", "1"}

	tables, err := Estimate(inputs, outputs, in, out, 1)
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}

	null := tables.ByKey[""]
	if null == nil || null.Seen != 3 {
		t.Fatalf("null history should be seen 3 times, got %+v", null)
	}
	if null.Future[0][0] != 1 || null.Future[0][1] != 2 {
		t.Fatalf("unexpected null future counts %v", null.Future)
	}

	c00, ok := tables.Lookup(alphabet.History{{Input: "0", Output: "0"}})
	if !ok || c00.Seen != 1 || c00.Row(0)[1] != 1 {
		t.Fatalf("unexpected counts for 0:0: %+v (ok=%v)", c00, ok)
	}
	c01, ok := tables.Lookup(alphabet.History{{Input: "0", Output: "1"}})
	if !ok || c01.Seen != 1 || c01.Row(0)[1] != 1 {
		t.Fatalf("unexpected counts for 0:1: %+v (ok=%v)", c01, ok)
	}
	if _, ok := tables.Lookup(alphabet.History{{Input: "0", Output: "2"}}); ok {
		t.Fatal("a history never observed should have no entry")
	}

	if len(tables.Keys[0]) != 1 || tables.Keys[0][0] != "" {
		t.Fatalf("unexpected length-0 keys %v", tables.Keys[0])
	}
	if len(tables.Keys[1]) != 2 || tables.Keys[1][0] != "0:0" || tables.Keys[1][1] != "0:1" {
		t.Fatalf("length-1 keys should be sorted, got %v", tables.Keys[1])
	}
}

func TestEstimateRejectsBadData(t *testing.T) {
	in := alphabet.MustNew("in", []alphabet.Symbol{"0"})
	out := alphabet.MustNew("out", []alphabet.Symbol{"0", "1"})

	cases := []struct {
		name    string
		inputs  []alphabet.Symbol
		outputs []alphabet.Symbol
		lmax    int
	}{
		{"mismatched lengths", []alphabet.Symbol{"0", "0"}, []alphabet.Symbol{"0"}, 1},
		{"insufficient data", []alphabet.Symbol{"0"}, []alphabet.Symbol{"0"}, 1},
		{"unknown output symbol", []alphabet.Symbol{"0", "0"}, []alphabet.Symbol{"0", "x"}, 1},
	}
	for _, tc := range cases {
		_, err := Estimate(tc.inputs, tc.outputs, in, out, tc.lmax)
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		var derr *alphabet.DataError
		if !errors.As(err, &derr) {
			t.Fatalf("%s: expected DataError, got %T", tc.name, err)
		}
	}
}

func TestDistributionUnseenRowIsNil(t *testing.T) {
	in := alphabet.MustNew("in", []alphabet.Symbol{"a", "b"})
	out := alphabet.MustNew("out", []alphabet.Symbol{"0", "1"})

	inputs := []alphabet.Symbol{"a", "a", "a", "a"}
	outputs := []alphabet.Symbol{"0", "1", "0", "1"}

	tables, err := Estimate(inputs, outputs, in, out, 1)
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}

	null := tables.ByKey[""]
	ib, _ := in.Index("b")
	if dist := null.Distribution(ib); dist != nil {
		t.Fatalf("unseen input row should yield nil, got %v", dist)
	}

	ia, _ := in.Index("a")
	dist := null.Distribution(ia)
	if dist == nil {
		t.Fatal("seen input row should yield a distribution")
	}
	if math.Abs(dist[0]-0.5) > 1e-12 || math.Abs(dist[1]-0.5) > 1e-12 {
		t.Fatalf("unexpected distribution %v", dist)
	}
	if null.RowTotal(ia) != 4 {
		t.Fatalf("unexpected row total %d", null.RowTotal(ia))
	}
}
