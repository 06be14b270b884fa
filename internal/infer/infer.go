package infer

import (
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/causal-transducer/internal/estimate"
	"github.com/danielpatrickdp/causal-transducer/internal/hypothesis"
)

// #region infer

// Infer discovers the coarsest partition of the table's histories into
// causal states consistent with the chi-squared test at cfg.Alpha.
//
// One state initially holds every history. Each pass walks lengths 1..L_max;
// a history whose conditional output distributions are distinguished from
// those of the state holding its length-(l-1) parent moves to the
// lowest-numbered existing state the test cannot distinguish it from, or to
// a fresh state. A pass with no moves is the fixed point. The per-length
// test verdicts are computed against a snapshot taken at the start of the
// length and committed in lexicographic key order, so evaluating them in
// parallel cannot change the result.
func Infer(tables *estimate.Tables, cfg Config) (*Partition, error) {
	p := seed(tables)

	for pass := 1; pass <= cfg.MaxPasses; pass++ {
		p.Passes = pass
		moves := 0
		for l := 1; l <= tables.LMax; l++ {
			moves += splitLength(p, l, cfg)
		}
		if moves == 0 {
			return p, nil
		}
	}

	return p, &ConvergenceError{Passes: cfg.MaxPasses, Partial: p}
}

// seed builds the single-state partition holding every observed history.
func seed(tables *estimate.Tables) *Partition {
	p := &Partition{
		Tables: tables,
		Assign: make(map[string]int, len(tables.ByKey)),
	}
	s := &State{ID: 0, Counts: zeroMatrix(tables.InLen, tables.OutLen)}
	p.States = []*State{s}
	for l := range tables.Keys {
		for _, key := range tables.Keys[l] {
			p.attach(s, key)
		}
	}
	return p
}

// #endregion infer

// #region split-length

type verdict struct {
	tested bool
	reject bool
}

// splitLength runs one test-and-commit sweep over the histories of length l
// and returns the number of reassignments made.
func splitLength(p *Partition, l int, cfg Config) int {
	keys := p.Tables.Keys[l]
	if len(keys) == 0 {
		return 0
	}

	// Snapshot the aggregates of every parent state referenced at this
	// length; verdicts are computed against the snapshot only.
	parents := make(map[int][][]int)
	for _, key := range keys {
		id := p.Assign[parentKey(p, key)]
		if _, ok := parents[id]; !ok {
			parents[id] = copyMatrix(p.States[id].Counts)
		}
	}

	verdicts := make([]verdict, len(keys))
	g := new(errgroup.Group)
	g.SetLimit(cfg.workers())
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			h := p.Tables.ByKey[key]
			parent := parents[p.Assign[parentKey(p, key)]]
			reject, tested := hypothesis.DistinctPerInput(h.Future, parent, cfg.Alpha)
			verdicts[i] = verdict{tested: tested, reject: reject}
			return nil
		})
	}
	g.Wait() // workers only write their own slot, no error path

	moves := 0
	for i, key := range keys {
		parentID := p.Assign[parentKey(p, key)]
		switch {
		case !verdicts[i].tested:
			// Untestable distribution: keep with the parent, flag it.
			if p.Assign[key] != parentID {
				p.Move(key, parentID)
				moves++
			}
			p.markLowConfidence(key)
		case verdicts[i].reject:
			target := p.matchOrCreate(key, parentID, cfg.Alpha)
			if p.Assign[key] != target {
				p.Move(key, target)
				moves++
			}
		default:
			if p.Assign[key] != parentID {
				p.Move(key, parentID)
				moves++
			}
		}
	}
	return moves
}

// matchOrCreate finds the lowest-numbered live state, other than the
// rejected parent state, whose aggregate the test cannot distinguish from
// the history's counts. When none qualifies a new state is appended to the
// arena. Scanning in ID order is the documented tie-break: histories that
// diverge identically from a parent land in the same state.
func (p *Partition) matchOrCreate(key string, parentID int, alpha float64) int {
	h := p.Tables.ByKey[key]
	for _, s := range p.States {
		if s.ID == parentID || len(s.Members) == 0 {
			continue
		}
		counts := s.Counts
		if s.ID == p.Assign[key] {
			// Compare against the state without the history's own mass.
			counts = subtractMatrix(s.Counts, h.Future)
		}
		reject, tested := hypothesis.DistinctPerInput(h.Future, counts, alpha)
		if tested && !reject {
			return s.ID
		}
	}
	// A history already alone in its own non-parent state matched nothing
	// else: it stays where it is rather than cycling through fresh states.
	if cur := p.Assign[key]; cur != parentID && len(p.States[cur].Members) == 1 {
		return cur
	}
	ns := &State{ID: len(p.States), Counts: zeroMatrix(p.Tables.InLen, p.Tables.OutLen)}
	p.States = append(p.States, ns)
	return ns.ID
}

func parentKey(p *Partition, key string) string {
	return p.Tables.ByKey[key].History.Parent().Key()
}

// #endregion split-length

// #region membership

// attach adds a history to a state without removing it from another; only
// for freshly seeded partitions.
func (p *Partition) attach(s *State, key string) {
	s.Members = insertSorted(s.Members, key)
	addMatrix(s.Counts, p.Tables.ByKey[key].Future)
	p.Assign[key] = s.ID
}

// Move reassigns a history between states, keeping aggregates consistent.
// The determinizer uses it when peeling conflict groups into new states.
func (p *Partition) Move(key string, target int) {
	old := p.States[p.Assign[key]]
	old.Members = removeSorted(old.Members, key)
	subMatrix(old.Counts, p.Tables.ByKey[key].Future)
	p.attach(p.States[target], key)
}

func insertSorted(keys []string, key string) []string {
	i := sort.SearchStrings(keys, key)
	keys = append(keys, "")
	copy(keys[i+1:], keys[i:])
	keys[i] = key
	return keys
}

func removeSorted(keys []string, key string) []string {
	i := sort.SearchStrings(keys, key)
	if i < len(keys) && keys[i] == key {
		return append(keys[:i], keys[i+1:]...)
	}
	return keys
}

// #endregion membership

// #region matrix-helpers

func zeroMatrix(rows, cols int) [][]int {
	m := make([][]int, rows)
	for i := range m {
		m[i] = make([]int, cols)
	}
	return m
}

func copyMatrix(m [][]int) [][]int {
	out := make([][]int, len(m))
	for i := range m {
		out[i] = append([]int(nil), m[i]...)
	}
	return out
}

func addMatrix(dst, src [][]int) {
	for i := range dst {
		for j := range dst[i] {
			dst[i][j] += src[i][j]
		}
	}
}

func subMatrix(dst, src [][]int) {
	for i := range dst {
		for j := range dst[i] {
			dst[i][j] -= src[i][j]
		}
	}
}

func subtractMatrix(a, b [][]int) [][]int {
	out := copyMatrix(a)
	subMatrix(out, b)
	return out
}

// #endregion matrix-helpers
