package estimate

import (
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/danielpatrickdp/causal-transducer/internal/alphabet"
)

// #region types

// HistoryCounts holds the occurrence statistics of one history: how often it
// was seen with a following emission, and for each next input symbol, how
// often each output symbol followed. Future is indexed
// [input index][output index].
type HistoryCounts struct {
	History alphabet.History
	Seen    int
	Future  [][]int
}

// Row returns the output count vector conditioned on input index ix.
func (c *HistoryCounts) Row(ix int) []int { return c.Future[ix] }

// RowTotal returns the number of samples behind input index ix.
func (c *HistoryCounts) RowTotal(ix int) int {
	total := 0
	for _, n := range c.Row(ix) {
		total += n
	}
	return total
}

// Distribution returns the normalized next-output distribution conditioned
// on input index ix, or nil when the row carries no samples. A nil result
// means "never seen", which is distinct from a seen row containing
// zero-probability symbols.
func (c *HistoryCounts) Distribution(ix int) []float64 {
	row := c.Row(ix)
	probs := make([]float64, len(row))
	for i, n := range row {
		probs[i] = float64(n)
	}
	total := floats.Sum(probs)
	if total == 0 {
		return nil
	}
	floats.Scale(1/total, probs)
	return probs
}

// Tables bundles the marginal and future count tables produced by one
// training scan. ByKey is keyed by canonical history key; Keys holds every
// key grouped by history length and sorted lexicographically within each
// length, which fixes the iteration order for the splitting loop.
type Tables struct {
	LMax   int
	InLen  int
	OutLen int
	ByKey  map[string]*HistoryCounts
	Keys   [][]string // Keys[l] = sorted keys of the length-l histories
}

// Lookup returns the counts for a history, and whether it was ever seen.
func (t *Tables) Lookup(h alphabet.History) (*HistoryCounts, bool) {
	c, ok := t.ByKey[h.Key()]
	return c, ok
}

// #endregion types

// #region estimate

// Estimate scans the joint (input, output) sequence once and builds the
// marginal and future count tables for every history of length 0..lmax that
// occurs with a following emission. Pure function of its arguments.
//
// The sequences must have equal length T with T >= lmax+1 so every history
// length gets at least one sample; shorter data is a DataError, never a
// silently degenerate table.
func Estimate(inputs, outputs []alphabet.Symbol, in, out alphabet.Alphabet, lmax int) (*Tables, error) {
	if err := alphabet.ValidateSequences(inputs, outputs, in, out, lmax+1); err != nil {
		return nil, err
	}

	t := &Tables{
		LMax:   lmax,
		InLen:  in.Len(),
		OutLen: out.Len(),
		ByKey:  make(map[string]*HistoryCounts),
		Keys:   make([][]string, lmax+1),
	}

	T := len(inputs)
	for pos := 0; pos < T; pos++ {
		ix, _ := in.Index(inputs[pos])
		iy, _ := out.Index(outputs[pos])
		for l := 0; l <= lmax && l <= pos; l++ {
			h := jointWindow(inputs, outputs, pos-l, pos)
			key := h.Key()
			c, ok := t.ByKey[key]
			if !ok {
				c = &HistoryCounts{
					History: h,
					Future:  newCountMatrix(in.Len(), out.Len()),
				}
				t.ByKey[key] = c
				t.Keys[l] = append(t.Keys[l], key)
			}
			c.Seen++
			c.Future[ix][iy]++
		}
	}

	for l := range t.Keys {
		sort.Strings(t.Keys[l])
	}
	return t, nil
}

// jointWindow materializes the history covering positions [lo, hi).
func jointWindow(inputs, outputs []alphabet.Symbol, lo, hi int) alphabet.History {
	h := make(alphabet.History, 0, hi-lo)
	for i := lo; i < hi; i++ {
		h = append(h, alphabet.JointSymbol{Input: inputs[i], Output: outputs[i]})
	}
	return h
}

func newCountMatrix(rows, cols int) [][]int {
	m := make([][]int, rows)
	for i := range m {
		m[i] = make([]int, cols)
	}
	return m
}

// #endregion estimate
