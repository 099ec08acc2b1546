package graph

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/starford/graphgen/internal/apperr"
)

// Validate converts untyped structured data (as produced by encoding/json into
// an any) into a Graph. Malformed elements are dropped or repaired and listed in
// the Report; only a missing top-level shape yields an error.
func Validate(candidate any) (Graph, Report, error) {
	var rep Report

	obj, ok := candidate.(map[string]any)
	if !ok {
		return Empty(), rep, fmt.Errorf("%w: top level is %s, want object", apperr.ErrInvalidShape, kindOf(candidate))
	}
	rawNodes, err := container(obj, "nodes")
	if err != nil {
		return Empty(), rep, err
	}
	rawEdges, err := container(obj, "edges")
	if err != nil {
		return Empty(), rep, err
	}

	g := Empty()
	if s, ok := obj["explanation"].(string); ok {
		g.Explanation = s
	}

	seenNodes := make(map[string]struct{}, len(rawNodes))
	for i, raw := range rawNodes {
		n, reason := decodeNode(raw)
		if reason != "" {
			rep.add(RepairInvalidNode, n.ID, fmt.Sprintf("node %d dropped: %s", i, reason))
			continue
		}
		if _, dup := seenNodes[n.ID]; dup {
			rep.add(RepairDuplicateNode, n.ID, fmt.Sprintf("node %d dropped: id already used", i))
			continue
		}
		seenNodes[n.ID] = struct{}{}
		g.Nodes = append(g.Nodes, n)
	}

	resolveParents(g.Nodes, seenNodes, &rep)

	seenEdges := make(map[string]struct{}, len(rawEdges))
	for i, raw := range rawEdges {
		e, reason := decodeEdge(raw)
		if reason != "" {
			rep.add(RepairInvalidEdge, e.ID, fmt.Sprintf("edge %d dropped: %s", i, reason))
			continue
		}
		if _, ok := seenNodes[e.Source]; !ok {
			rep.add(RepairDanglingEdge, e.ID, fmt.Sprintf("unknown source %q", e.Source))
			continue
		}
		if _, ok := seenNodes[e.Target]; !ok {
			rep.add(RepairDanglingEdge, e.ID, fmt.Sprintf("unknown target %q", e.Target))
			continue
		}
		if _, dup := seenEdges[e.ID]; dup {
			rep.add(RepairDuplicateEdge, e.ID, fmt.Sprintf("edge %d dropped: id already used", i))
			continue
		}
		seenEdges[e.ID] = struct{}{}
		g.Edges = append(g.Edges, e)
	}

	return g, rep, nil
}

// ValidateGraph re-validates an already typed graph, e.g. one decoded from a
// client request.
func ValidateGraph(g Graph) (Graph, Report, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return Empty(), Report{}, fmt.Errorf("%w: %v", apperr.ErrInvalidShape, err)
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Empty(), Report{}, fmt.Errorf("%w: %v", apperr.ErrInvalidShape, err)
	}
	return Validate(raw)
}

// container returns obj[key] as a list. JSON null counts as an empty list.
func container(obj map[string]any, key string) ([]any, error) {
	v, ok := obj[key]
	if !ok {
		return nil, fmt.Errorf("%w: missing %q", apperr.ErrInvalidShape, key)
	}
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %q is %s, want array", apperr.ErrInvalidShape, key, kindOf(v))
	}
	return list, nil
}

// decodeNode returns the node and an empty reason, or a partially filled node
// and the reason it was rejected.
func decodeNode(raw any) (Node, string) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return Node{}, "not an object"
	}
	var n Node
	id, ok := idString(obj["id"])
	if !ok {
		return n, "missing id"
	}
	n.ID = id

	data, ok := obj["data"].(map[string]any)
	if !ok {
		return n, "missing data"
	}
	label, _ := data["label"].(string)
	if strings.TrimSpace(label) == "" {
		return n, "missing label"
	}
	n.Data.Label = label
	n.Data.Body, _ = data["body"].(string)
	n.Data.BackgroundColor, _ = data["backgroundColor"].(string)

	if pos, ok := obj["position"].(map[string]any); ok {
		x, xok := number(pos["x"])
		y, yok := number(pos["y"])
		if xok && yok {
			n.Position = Position{X: x, Y: y}
		}
	}

	n.Type, _ = obj["type"].(string)
	if strings.TrimSpace(n.Type) == "" {
		n.Type = TypeDefault
	}

	if parent, ok := idString(obj["parentId"]); ok {
		n.ParentID = parent
	}
	return n, ""
}

func decodeEdge(raw any) (Edge, string) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return Edge{}, "not an object"
	}
	var e Edge
	id, ok := idString(obj["id"])
	if !ok {
		return e, "missing id"
	}
	e.ID = id
	if e.Source, ok = idString(obj["source"]); !ok {
		return e, "missing source"
	}
	if e.Target, ok = idString(obj["target"]); !ok {
		return e, "missing target"
	}
	e.Label, _ = obj["label"].(string)
	e.Directed = true
	if d, ok := obj["directed"].(bool); ok {
		e.Directed = d
	}
	return e, ""
}

// resolveParents clears parent references that point nowhere, at the node
// itself, or close a containment cycle. The first node found on a cycle loses
// its parent, which breaks the cycle for the rest.
func resolveParents(nodes []Node, ids map[string]struct{}, rep *Report) {
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		index[n.ID] = i
	}
	for i := range nodes {
		n := &nodes[i]
		if n.ParentID == "" {
			continue
		}
		if _, ok := ids[n.ParentID]; !ok {
			rep.add(RepairDanglingParent, n.ID, fmt.Sprintf("unknown parent %q cleared", n.ParentID))
			n.ParentID = ""
			continue
		}
		if n.ParentID == n.ID {
			rep.add(RepairParentCycle, n.ID, "node is its own parent")
			n.ParentID = ""
			continue
		}
		visited := map[string]struct{}{n.ID: {}}
		for cur := n.ParentID; cur != ""; cur = nodes[index[cur]].ParentID {
			if _, seen := visited[cur]; seen {
				if cur == n.ID {
					rep.add(RepairParentCycle, n.ID, fmt.Sprintf("parent %q closes a cycle", n.ParentID))
					n.ParentID = ""
				}
				break
			}
			visited[cur] = struct{}{}
			if _, ok := index[cur]; !ok {
				break
			}
		}
	}
}

// idString accepts non-blank strings and integral numbers.
func idString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		if strings.TrimSpace(t) == "" {
			return "", false
		}
		return t, true
	case float64:
		if t == math.Trunc(t) && !math.IsInf(t, 0) {
			return strconv.FormatFloat(t, 'f', -1, 64), true
		}
	case json.Number:
		if _, err := t.Int64(); err == nil {
			return t.String(), true
		}
	}
	return "", false
}

func number(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return t, true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	}
	return 0, false
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, json.Number:
		return "number"
	}
	return fmt.Sprintf("%T", v)
}
