package dot

import (
	"fmt"
	"os"
	"strings"

	"github.com/danielpatrickdp/causal-transducer/internal/transducer"
)

// #region render

// Render writes a transducer graph in Graphviz DOT form. Recurrent states
// are solid double circles, transient states dashed; edges carry the
// "input|output : probability" labels the transCSSR dot files use.
func Render(g transducer.Graph) string {
	var b strings.Builder
	b.WriteString("digraph transducer {\n")
	b.WriteString("\trankdir=LR;\n")

	for _, n := range g.Nodes {
		style := "dashed"
		shape := "circle"
		if n.Recurrent {
			style = "solid"
			shape = "doublecircle"
		}
		fmt.Fprintf(&b, "\t%d [label=%q, shape=%s, style=%s];\n", n.ID, n.Label, shape, style)
	}

	for _, e := range g.Edges {
		fmt.Fprintf(&b, "\t%d -> %d [label=\"%s|%s : %.3f\"];\n",
			e.From, e.To, e.Input, e.Output, e.Prob)
	}

	b.WriteString("}\n")
	return b.String()
}

// WriteFile renders the graph to a .dot file.
func WriteFile(path string, g transducer.Graph) error {
	if err := os.WriteFile(path, []byte(Render(g)), 0o644); err != nil {
		return fmt.Errorf("write dot file %s: %w", path, err)
	}
	return nil
}

// #endregion render
