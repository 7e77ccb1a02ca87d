package graph

type NodeKind string

const (
	NodeOp     NodeKind = "op"
	NodeTensor NodeKind = "tensor"
	NodeBuffer NodeKind = "buffer"
	NodeTile   NodeKind = "tile"
)

type Node struct {
	ID    string   `json:"id"`
	Label string   `json:"label"`
	Kind  NodeKind `json:"kind"`
}

type Edge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label,omitempty"`
}

// Graph is the renderable view of a decoded message.
type Graph struct {
	Name  string  `json:"name"`
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`

	index map[string]*Node
}

func New(name string) *Graph {
	return &Graph{Name: name, index: map[string]*Node{}}
}

// AddNode adds a node, or returns the existing one with the same ID.
func (g *Graph) AddNode(id, label string, kind NodeKind) *Node {
	if g.index == nil {
		g.index = map[string]*Node{}
	}
	if n, ok := g.index[id]; ok {
		return n
	}
	if label == "" {
		label = id
	}
	n := &Node{ID: id, Label: label, Kind: kind}
	g.index[id] = n
	g.Nodes = append(g.Nodes, n)
	return n
}

func (g *Graph) HasNode(id string) bool {
	_, ok := g.index[id]
	return ok
}

func (g *Graph) AddEdge(from, to, label string) {
	g.Edges = append(g.Edges, &Edge{From: from, To: to, Label: label})
}
