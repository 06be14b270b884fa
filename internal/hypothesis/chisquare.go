package hypothesis

import (
	"gonum.org/v1/gonum/stat/distuv"
)

// #region result

// Result is the outcome of one two-sample test. Tested is false when either
// sample is empty, in which case Reject is always false: an untestable
// comparison never splits a state.
type Result struct {
	Statistic float64
	PValue    float64
	DF        int
	Tested    bool
	Reject    bool
}

// #endregion result

// #region chi-square

// ChiSquare runs a two-sample chi-squared homogeneity test on two count
// vectors over the same category set, rejecting equality of the underlying
// distributions when the p-value falls below alpha.
//
// Cells empty in both samples are dropped; degrees of freedom are the
// remaining cells minus one. With fewer than two populated cells the
// distributions cannot differ and the test does not reject. The computation
// is a pure function of the counts and alpha, so repeated runs over the same
// data are bit-identical.
func ChiSquare(a, b []int, alpha float64) Result {
	na, nb := sum(a), sum(b)
	if na == 0 || nb == 0 {
		return Result{}
	}

	cells := 0
	for k := range a {
		if a[k]+b[k] > 0 {
			cells++
		}
	}
	if cells < 2 {
		return Result{Tested: true, Reject: false}
	}

	n := float64(na + nb)
	var stat float64
	for k := range a {
		col := a[k] + b[k]
		if col == 0 {
			continue
		}
		ea := float64(na) * float64(col) / n
		eb := float64(nb) * float64(col) / n
		da := float64(a[k]) - ea
		db := float64(b[k]) - eb
		stat += da * da / ea
		stat += db * db / eb
	}

	df := cells - 1
	chi := distuv.ChiSquared{K: float64(df)}
	p := 1 - chi.CDF(stat)

	return Result{
		Statistic: stat,
		PValue:    p,
		DF:        df,
		Tested:    true,
		Reject:    p < alpha,
	}
}

func sum(v []int) int {
	total := 0
	for _, n := range v {
		total += n
	}
	return total
}

// #endregion chi-square

// #region per-input

// DistinctPerInput compares two count matrices (rows = input symbols,
// columns = output symbols) row by row in input-alphabet order, rejecting
// when any input's conditional output distribution is distinguished at
// alpha. Rows untestable on either side are skipped. The second return is
// false when no row could be tested at all.
func DistinctPerInput(a, b [][]int, alpha float64) (reject, tested bool) {
	for ix := range a {
		res := ChiSquare(a[ix], b[ix], alpha)
		if !res.Tested {
			continue
		}
		tested = true
		if res.Reject {
			return true, true
		}
	}
	return false, tested
}

// #endregion per-input
