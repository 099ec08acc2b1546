package graph

import (
	"log/slog"
	"strings"
)

// RepairKind classifies one change the validator made to a candidate.
type RepairKind string

const (
	RepairInvalidNode    RepairKind = "invalid_node"
	RepairInvalidEdge    RepairKind = "invalid_edge"
	RepairDuplicateNode  RepairKind = "duplicate_node"
	RepairDuplicateEdge  RepairKind = "duplicate_edge"
	RepairDanglingEdge   RepairKind = "dangling_edge"
	RepairDanglingParent RepairKind = "dangling_parent"
	RepairParentCycle    RepairKind = "parent_cycle"
)

// Repair describes a single dropped or modified element.
type Repair struct {
	Kind   RepairKind `json:"kind"`
	ID     string     `json:"id,omitempty"`
	Detail string     `json:"detail"`
}

// Report collects the repairs applied during validation.
type Report struct {
	Repairs []Repair `json:"repairs,omitempty"`
}

func (r *Report) add(kind RepairKind, id, detail string) {
	r.Repairs = append(r.Repairs, Repair{Kind: kind, ID: id, Detail: detail})
}

// Empty reports whether no repair was needed.
func (r Report) Empty() bool {
	return len(r.Repairs) == 0
}

// Count returns the number of repairs of the given kind.
func (r Report) Count(kind RepairKind) int {
	n := 0
	for _, rep := range r.Repairs {
		if rep.Kind == kind {
			n++
		}
	}
	return n
}

// ByKind groups repair counts by kind.
func (r Report) ByKind() map[RepairKind]int {
	out := make(map[RepairKind]int)
	for _, rep := range r.Repairs {
		out[rep.Kind]++
	}
	return out
}

// LogValue implements slog.LogValuer.
func (r Report) LogValue() slog.Value {
	attrs := []slog.Attr{slog.Int("count", len(r.Repairs))}
	for kind, n := range r.ByKind() {
		attrs = append(attrs, slog.Int(string(kind), n))
	}
	return slog.GroupValue(attrs...)
}

func (r Report) String() string {
	parts := make([]string, 0, len(r.Repairs))
	for _, rep := range r.Repairs {
		if rep.ID != "" {
			parts = append(parts, string(rep.Kind)+"("+rep.ID+"): "+rep.Detail)
		} else {
			parts = append(parts, string(rep.Kind)+": "+rep.Detail)
		}
	}
	return strings.Join(parts, "; ")
}
