// Package graph defines the node/edge model returned to diagram clients and the
// validator that turns untrusted generator output into a consistent Graph.
package graph

// Well-known node types. Type is an open string; generators may emit others.
const (
	TypeDefault = "default"
	TypeGroup   = "group"
	TypeSmart   = "smart"
)

// NodeData is the display payload of a node.
type NodeData struct {
	Label           string `json:"label"`
	Body            string `json:"body,omitempty"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
}

// Position is a node's 2D coordinate. It is cosmetic and never validated strictly.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a graph vertex. ParentID, when set, names the containing node.
type Node struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Data     NodeData `json:"data"`
	Position Position `json:"position"`
	ParentID string   `json:"parentId,omitempty"`
}

// Edge connects two nodes by id. Directed edges render as arrows.
type Edge struct {
	ID       string `json:"id"`
	Source   string `json:"source"`
	Target   string `json:"target"`
	Label    string `json:"label,omitempty"`
	Directed bool   `json:"directed"`
}

// Graph is the complete node/edge collection exchanged with callers.
// Order of Nodes and Edges is display order only.
type Graph struct {
	Nodes       []Node `json:"nodes"`
	Edges       []Edge `json:"edges"`
	Explanation string `json:"explanation,omitempty"`
}

// Empty returns a graph that serializes as {"nodes":[],"edges":[]}.
func Empty() Graph {
	return Graph{Nodes: []Node{}, Edges: []Edge{}}
}

// IsEmpty reports whether g has no nodes. Edges cannot exist without nodes
// in a validated graph.
func (g *Graph) IsEmpty() bool {
	return g == nil || len(g.Nodes) == 0
}

// Len returns the number of nodes; a nil graph has none.
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.Nodes)
}

// NodeIDs returns node ids in display order.
func (g *Graph) NodeIDs() []string {
	ids := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		ids[i] = n.ID
	}
	return ids
}

// EdgeIDs returns edge ids in display order.
func (g *Graph) EdgeIDs() []string {
	ids := make([]string, len(g.Edges))
	for i, e := range g.Edges {
		ids[i] = e.ID
	}
	return ids
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}
