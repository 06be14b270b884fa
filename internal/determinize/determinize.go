package determinize

import (
	"fmt"
	"sort"
	"strings"

	"github.com/danielpatrickdp/causal-transducer/internal/alphabet"
	"github.com/danielpatrickdp/causal-transducer/internal/hypothesis"
	"github.com/danielpatrickdp/causal-transducer/internal/infer"
)

// #region config

// Config bounds the refinement loop.
type Config struct {
	Alpha     float64
	MaxRounds int // global refinement rounds before giving up
}

// DefaultConfig returns the bounds used when a caller has no opinion.
func DefaultConfig(alpha float64) Config {
	return Config{Alpha: alpha, MaxRounds: 32}
}

// #endregion config

// #region error

// DeterminizationError reports that unifilarity could not be reached within
// the configured rounds: the chosen L_max is too small for the underlying
// process. It names one offending (state, input, output) triple.
type DeterminizationError struct {
	StateID int
	Input   alphabet.Symbol
	Output  alphabet.Symbol
	Rounds  int
}

func (e *DeterminizationError) Error() string {
	return fmt.Sprintf(
		"state %d not unifilar on (%s, %s) after %d refinement rounds; L_max too small",
		e.StateID, e.Input, e.Output, e.Rounds)
}

// #endregion error

// #region determinize

// Determinize refines the frozen splitting partition until every
// (state, input, output) triple reaches at most one successor state, then
// marks each surviving state transient or recurrent. The partition is
// mutated in place; on error it is left in its last refined shape for
// inspection.
func Determinize(p *infer.Partition, in, out alphabet.Alphabet, cfg Config) error {
	for round := 1; round <= cfg.MaxRounds; round++ {
		changed := false
		for _, s := range p.Live() {
			if splitNonUnifilar(p, s, in, out, cfg.Alpha) {
				changed = true
			}
		}
		if !changed {
			markRecurrent(p, in, out)
			return nil
		}
	}

	// The bound limits rounds of change, not the confirmation sweep: splits
	// made in the final round may already have removed every conflict.
	if sid, x, y := findConflict(p, in, out); sid != -1 {
		return &DeterminizationError{StateID: sid, Input: x, Output: y, Rounds: cfg.MaxRounds}
	}
	markRecurrent(p, in, out)
	return nil
}

// #endregion determinize

// #region signatures

// signatureOf maps each observed (input, output) extension of a history to
// the successor state it reaches, in a canonical string form. Extensions
// never seen in training contribute nothing.
func signatureOf(p *infer.Partition, key string, in, out alphabet.Alphabet) map[string]int {
	h := p.Tables.ByKey[key].History
	sig := make(map[string]int)
	for _, x := range in.Symbols {
		for _, y := range out.Symbols {
			j := alphabet.JointSymbol{Input: x, Output: y}
			if succ, ok := p.SuccessorOf(h, j); ok {
				sig[j.Key()] = succ
			}
		}
	}
	return sig
}

func encodeSignature(sig map[string]int) string {
	keys := make([]string, 0, len(sig))
	for k := range sig {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s>%d", k, sig[k])
	}
	return strings.Join(parts, ";")
}

// compatible reports whether two signatures agree on every extension they
// both define.
func compatible(a, b map[string]int) bool {
	for k, va := range a {
		if vb, ok := b[k]; ok && vb != va {
			return false
		}
	}
	return true
}

// #endregion signatures

// #region split

// bucket is one refinement group under construction: members sharing a
// conflict-free union signature whose distributions the equivalence test
// cannot tell apart.
type bucket struct {
	sig     map[string]int
	members []string
	counts  [][]int
}

// splitNonUnifilar checks one state for successor conflicts and, when found,
// regroups its members into conflict-free buckets. The first bucket keeps
// the state's identity; the rest become new arena states. Members are
// processed in sorted key order so the outcome is deterministic.
func splitNonUnifilar(p *infer.Partition, s *infer.State, in, out alphabet.Alphabet, alpha float64) bool {
	members := append([]string(nil), s.Members...)
	sigs := make([]map[string]int, len(members))
	conflict := false
	union := make(map[string]int)
	for i, key := range members {
		sigs[i] = signatureOf(p, key, in, out)
		for k, v := range sigs[i] {
			if prev, ok := union[k]; ok && prev != v {
				conflict = true
			}
			union[k] = v
		}
	}
	if !conflict {
		return false
	}

	var buckets []*bucket
	for i, key := range members {
		hc := p.Tables.ByKey[key]
		placed := false
		for _, b := range buckets {
			if !compatible(sigs[i], b.sig) {
				continue
			}
			reject, tested := hypothesis.DistinctPerInput(hc.Future, b.counts, alpha)
			if tested && reject {
				continue
			}
			mergeSignature(b.sig, sigs[i])
			b.members = append(b.members, key)
			addCounts(b.counts, hc.Future)
			placed = true
			break
		}
		if !placed {
			buckets = append(buckets, &bucket{
				sig:     copySignature(sigs[i]),
				members: []string{key},
				counts:  copyCounts(hc.Future),
			})
		}
	}

	if len(buckets) < 2 {
		return false
	}

	// Keep bucket 0 in place; peel the rest off into new states.
	moved := false
	for _, b := range buckets[1:] {
		ns := newState(p)
		for _, key := range b.members {
			p.Move(key, ns.ID)
			moved = true
		}
	}
	return moved
}

func newState(p *infer.Partition) *infer.State {
	s := &infer.State{ID: len(p.States), Counts: zeroCounts(p.Tables.InLen, p.Tables.OutLen)}
	p.States = append(p.States, s)
	return s
}

// findConflict locates one remaining non-unifilar triple for error reporting.
func findConflict(p *infer.Partition, in, out alphabet.Alphabet) (int, alphabet.Symbol, alphabet.Symbol) {
	for _, s := range p.Live() {
		seen := make(map[string]int)
		for _, key := range s.Members {
			h := p.Tables.ByKey[key].History
			for _, x := range in.Symbols {
				for _, y := range out.Symbols {
					j := alphabet.JointSymbol{Input: x, Output: y}
					succ, ok := p.SuccessorOf(h, j)
					if !ok {
						continue
					}
					if prev, dup := seen[j.Key()]; dup && prev != succ {
						return s.ID, x, y
					}
					seen[j.Key()] = succ
				}
			}
		}
	}
	return -1, "", ""
}

// #endregion split

// #region recurrence

// markRecurrent flags the long-run state space: states holding at least one
// full-length history seed the recurrent set, which is then closed under
// defined transitions. Everything else is transient bookkeeping.
func markRecurrent(p *infer.Partition, in, out alphabet.Alphabet) {
	recurrent := make(map[int]bool)
	var queue []int

	for _, s := range p.Live() {
		for _, key := range s.Members {
			if len(p.Tables.ByKey[key].History) == p.Tables.LMax {
				if !recurrent[s.ID] {
					recurrent[s.ID] = true
					queue = append(queue, s.ID)
				}
				break
			}
		}
	}

	// BFS closure over defined transitions.
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, key := range p.States[id].Members {
			h := p.Tables.ByKey[key].History
			for _, x := range in.Symbols {
				for _, y := range out.Symbols {
					j := alphabet.JointSymbol{Input: x, Output: y}
					if succ, ok := p.SuccessorOf(h, j); ok && !recurrent[succ] {
						recurrent[succ] = true
						queue = append(queue, succ)
					}
				}
			}
		}
	}

	for _, s := range p.Live() {
		s.Recurrent = recurrent[s.ID]
	}
}

// #endregion recurrence

// #region helpers

func copySignature(sig map[string]int) map[string]int {
	out := make(map[string]int, len(sig))
	for k, v := range sig {
		out[k] = v
	}
	return out
}

func mergeSignature(dst, src map[string]int) {
	for k, v := range src {
		dst[k] = v
	}
}

func copyCounts(m [][]int) [][]int {
	out := make([][]int, len(m))
	for i := range m {
		out[i] = append([]int(nil), m[i]...)
	}
	return out
}

func addCounts(dst, src [][]int) {
	for i := range dst {
		for j := range dst[i] {
			dst[i][j] += src[i][j]
		}
	}
}

func zeroCounts(rows, cols int) [][]int {
	m := make([][]int, rows)
	for i := range m {
		m[i] = make([]int, cols)
	}
	return m
}

// #endregion helpers
