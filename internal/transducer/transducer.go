package transducer

import (
	"fmt"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"

	"github.com/danielpatrickdp/causal-transducer/internal/alphabet"
	"github.com/danielpatrickdp/causal-transducer/internal/infer"
)

// #region types

// State is one causal state of the trained model.
type State struct {
	ID             int
	Representative alphabet.History
	Members        []string // canonical keys of every member history, sorted
	Recurrent      bool
	counts         [][]int // aggregated [input][output] occurrence counts
}

type deltaKey struct {
	state  int
	input  alphabet.Symbol
	output alphabet.Symbol
}

// Model is the immutable trained epsilon-transducer. It is safe for
// concurrent readers; nothing mutates it after Build returns.
type Model struct {
	ID    string
	In    alphabet.Alphabet
	Out   alphabet.Alphabet
	LMax  int
	Alpha float64

	States []State

	delta        map[deltaKey]int
	historyIndex map[string]int // member history key -> state ID
}

// #endregion types

// #region build

// Build freezes a determinized partition into a Model. State IDs are
// renumbered densely in arena order, so identical partitions always yield
// identical models. Build fails if the partition still holds a successor
// conflict; a non-unifilar partition must never filter data.
func Build(p *infer.Partition, in, out alphabet.Alphabet, lmax int, alpha float64) (*Model, error) {
	live := p.Live()
	renumber := make(map[int]int, len(live))
	for i, s := range live {
		renumber[s.ID] = i
	}

	m := &Model{
		ID:           uuid.New().String(),
		In:           in,
		Out:          out,
		LMax:         lmax,
		Alpha:        alpha,
		States:       make([]State, len(live)),
		delta:        make(map[deltaKey]int),
		historyIndex: make(map[string]int, len(p.Assign)),
	}

	for i, s := range live {
		rep := p.Tables.ByKey[s.Representative()].History
		m.States[i] = State{
			ID:             i,
			Representative: rep,
			Members:        append([]string(nil), s.Members...),
			Recurrent:      s.Recurrent,
			counts:         copyCounts(s.Counts),
		}
		for _, key := range s.Members {
			m.historyIndex[key] = i
		}
	}

	for i, s := range live {
		for _, key := range s.Members {
			h := p.Tables.ByKey[key].History
			for _, x := range in.Symbols {
				for _, y := range out.Symbols {
					j := alphabet.JointSymbol{Input: x, Output: y}
					succ, ok := p.SuccessorOf(h, j)
					if !ok {
						continue
					}
					k := deltaKey{state: i, input: x, output: y}
					if prev, dup := m.delta[k]; dup && prev != renumber[succ] {
						return nil, fmt.Errorf(
							"partition not unifilar at state %d on (%s, %s)", i, x, y)
					}
					m.delta[k] = renumber[succ]
				}
			}
		}
	}

	return m, nil
}

func copyCounts(c [][]int) [][]int {
	out := make([][]int, len(c))
	for i := range c {
		out[i] = append([]int(nil), c[i]...)
	}
	return out
}

// #endregion build

// #region queries

// StateCount returns the number of states; RecurrentCount only the long-run
// eligible ones.
func (m *Model) StateCount() int { return len(m.States) }

func (m *Model) RecurrentCount() int {
	n := 0
	for _, s := range m.States {
		if s.Recurrent {
			n++
		}
	}
	return n
}

// Next resolves delta(state, x, y). The second return is false when the
// combination was never observed in training; callers must treat that as
// loss of synchronization, never as a default transition.
func (m *Model) Next(state int, x, y alphabet.Symbol) (int, bool) {
	succ, ok := m.delta[deltaKey{state: state, input: x, output: y}]
	return succ, ok
}

// Morph returns the state's next-output distribution conditioned on input x,
// aligned with m.Out.Symbols. The second return is false for an unknown
// state, an input outside the alphabet, or an input never observed from the
// state: an explicit unknown, never a zero guess.
func (m *Model) Morph(state int, x alphabet.Symbol) ([]float64, bool) {
	if state < 0 || state >= len(m.States) {
		return nil, false
	}
	ix, ok := m.In.Index(x)
	if !ok {
		return nil, false
	}
	row := m.States[state].counts[ix]
	probs := make([]float64, len(row))
	for i, n := range row {
		probs[i] = float64(n)
	}
	total := floats.Sum(probs)
	if total == 0 {
		return nil, false
	}
	floats.Scale(1/total, probs)
	return probs, true
}

// StateForHistory looks up the state of the most recent L_max pairs of h.
// The second return is false when no member history matches exactly.
func (m *Model) StateForHistory(h alphabet.History) (int, bool) {
	id, ok := m.historyIndex[h.Suffix(m.LMax).Key()]
	return id, ok
}

// StartState returns the state holding the null history.
func (m *Model) StartState() (int, bool) {
	id, ok := m.historyIndex[""]
	return id, ok
}

// #endregion queries

// #region graph

// GraphNode is one state rendered for export.
type GraphNode struct {
	ID        int
	Label     string
	Recurrent bool
}

// GraphEdge is one defined transition with its morph probability.
type GraphEdge struct {
	From   int
	To     int
	Input  alphabet.Symbol
	Output alphabet.Symbol
	Prob   float64
}

// Graph is the labeled directed graph handed to external renderers.
type Graph struct {
	Nodes []GraphNode
	Edges []GraphEdge
}

// Graph flattens the model into nodes and labeled edges, deterministic in
// state and alphabet order.
func (m *Model) Graph() Graph {
	g := Graph{Nodes: make([]GraphNode, len(m.States))}
	for i, s := range m.States {
		kind := "transient"
		if s.Recurrent {
			kind = "recurrent"
		}
		g.Nodes[i] = GraphNode{
			ID:        i,
			Label:     fmt.Sprintf("S%d (%s)", i, kind),
			Recurrent: s.Recurrent,
		}
	}
	for i := range m.States {
		for _, x := range m.In.Symbols {
			probs, known := m.Morph(i, x)
			for _, y := range m.Out.Symbols {
				succ, ok := m.Next(i, x, y)
				if !ok {
					continue
				}
				prob := 0.0
				if known {
					iy, _ := m.Out.Index(y)
					prob = probs[iy]
				}
				g.Edges = append(g.Edges, GraphEdge{
					From:   i,
					To:     succ,
					Input:  x,
					Output: y,
					Prob:   prob,
				})
			}
		}
	}
	return g
}

// #endregion graph
