package graph

import (
	"fmt"
	"strings"
)

func nodeStyle(k NodeKind) string {
	switch k {
	case NodeTensor:
		return `shape=ellipse,style="filled",fillcolor="#e8f5e9"`
	case NodeBuffer:
		return `shape=cylinder,style="filled",fillcolor="#fff3cd"`
	case NodeTile:
		return `shape=box3d,style="filled",fillcolor="#f3e5f5"`
	default:
		return `shape=box,style="rounded,filled",fillcolor="#eef6ff"`
	}
}

// ToDOT renders the graph as a GraphViz DOT document.
func ToDOT(g *Graph, title string) string {
	var b strings.Builder
	b.WriteString("digraph G {\n  rankdir=TB;\n  node [fontname=\"Helvetica\"];\n")
	if title == "" {
		title = g.Name
	}
	if title != "" {
		fmt.Fprintf(&b, "  labelloc=\"t\"; label=%s; fontname=\"Helvetica\";\n", quote(title))
	}

	for _, n := range g.Nodes {
		if n == nil {
			continue
		}
		fmt.Fprintf(&b, "  %s [label=%s, %s];\n", quote(n.ID), quote(n.Label), nodeStyle(n.Kind))
	}

	for i, e := range g.Edges {
		if e == nil {
			continue
		}
		fmt.Fprintf(&b, "  %s -> %s [label=%s, tooltip=\"edge#%d\"];\n", quote(e.From), quote(e.To), quote(e.Label), i)
	}

	b.WriteString("}\n")
	return b.String()
}

// quote produces a DOT double-quoted ID. Newlines become centred line breaks.
func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\r\n", `\n`, "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}
