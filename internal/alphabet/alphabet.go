package alphabet

import (
	"fmt"
	"strings"
)

// #region symbol

// Symbol is a single element of a finite alphabet. Symbols are compared by
// value; the flat-file loaders use one character per symbol but nothing in
// the core assumes that.
type Symbol string

// JointSymbol is one (input, output) emission pair.
type JointSymbol struct {
	Input  Symbol
	Output Symbol
}

// Key returns the canonical "input:output" encoding of the pair.
func (j JointSymbol) Key() string {
	return string(j.Input) + ":" + string(j.Output)
}

// #endregion symbol

// #region alphabet

// Alphabet is an ordered, duplicate-free set of symbols.
type Alphabet struct {
	Name    string
	Symbols []Symbol
	index   map[Symbol]int
}

// New builds an alphabet, rejecting empty and duplicate symbols.
func New(name string, symbols []Symbol) (Alphabet, error) {
	if len(symbols) == 0 {
		return Alphabet{}, fmt.Errorf("alphabet %s: no symbols", name)
	}
	index := make(map[Symbol]int, len(symbols))
	for i, s := range symbols {
		if s == "" {
			return Alphabet{}, fmt.Errorf("alphabet %s: empty symbol at %d", name, i)
		}
		if _, dup := index[s]; dup {
			return Alphabet{}, fmt.Errorf("alphabet %s: duplicate symbol %q", name, s)
		}
		index[s] = i
	}
	return Alphabet{Name: name, Symbols: append([]Symbol(nil), symbols...), index: index}, nil
}

// MustNew is New for fixed literal alphabets; it panics on error.
func MustNew(name string, symbols []Symbol) Alphabet {
	a, err := New(name, symbols)
	if err != nil {
		panic(err)
	}
	return a
}

// Len returns the alphabet size.
func (a Alphabet) Len() int { return len(a.Symbols) }

// Index returns the position of s, and whether s belongs to the alphabet.
func (a Alphabet) Index(s Symbol) (int, bool) {
	i, ok := a.index[s]
	return i, ok
}

// Contains reports whether s belongs to the alphabet.
func (a Alphabet) Contains(s Symbol) bool {
	_, ok := a.index[s]
	return ok
}

// #endregion alphabet

// #region history

// History is an ordered run of joint symbols, oldest first. The zero-length
// history (the null history) is valid and seeds every partition.
type History []JointSymbol

// Key returns the canonical encoding of the history: pair keys joined by
// "|", empty string for the null history. Keys of equal-length histories
// sort lexicographically, which is the tie-break order used everywhere a
// deterministic iteration is required.
func (h History) Key() string {
	if len(h) == 0 {
		return ""
	}
	parts := make([]string, len(h))
	for i, j := range h {
		parts[i] = j.Key()
	}
	return strings.Join(parts, "|")
}

// Parent returns the length-(n-1) suffix of h: the history with the oldest
// pair dropped. The null history is its own parent.
func (h History) Parent() History {
	if len(h) == 0 {
		return h
	}
	return h[1:]
}

// Extend appends j, keeping at most limit pairs (the most recent ones).
func (h History) Extend(j JointSymbol, limit int) History {
	out := make(History, 0, len(h)+1)
	out = append(out, h...)
	out = append(out, j)
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Suffix returns the most recent n pairs of h (all of h when n >= len(h)).
func (h History) Suffix(n int) History {
	if n >= len(h) {
		return h
	}
	return h[len(h)-n:]
}

// #endregion history

// #region data-error

// DataError reports invalid training or prediction data: mismatched
// sequence lengths, a symbol outside its alphabet, or too little data for
// the requested history length. Pos is the offending position, -1 when the
// error is not positional.
type DataError struct {
	Pos    int
	Reason string
}

func (e *DataError) Error() string {
	if e.Pos >= 0 {
		return fmt.Sprintf("data error at position %d: %s", e.Pos, e.Reason)
	}
	return "data error: " + e.Reason
}

// ValidateSequences checks lengths and alphabet membership before any
// counting or filtering begins. minLen is the smallest acceptable sequence
// length (L_max+1 for training, 1 for filtering).
func ValidateSequences(inputs, outputs []Symbol, in, out Alphabet, minLen int) error {
	if len(inputs) != len(outputs) {
		return &DataError{Pos: -1, Reason: fmt.Sprintf(
			"input length %d != output length %d", len(inputs), len(outputs))}
	}
	if len(inputs) < minLen {
		return &DataError{Pos: -1, Reason: fmt.Sprintf(
			"sequence length %d below minimum %d", len(inputs), minLen)}
	}
	for t, s := range inputs {
		if !in.Contains(s) {
			return &DataError{Pos: t, Reason: fmt.Sprintf(
				"input symbol %q not in alphabet %s", s, in.Name)}
		}
	}
	for t, s := range outputs {
		if !out.Contains(s) {
			return &DataError{Pos: t, Reason: fmt.Sprintf(
				"output symbol %q not in alphabet %s", s, out.Name)}
		}
	}
	return nil
}

// #endregion data-error
