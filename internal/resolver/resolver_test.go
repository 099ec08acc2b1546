package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/starford/graphgen/internal/apperr"
	"github.com/starford/graphgen/internal/directives"
	"github.com/starford/graphgen/internal/generator"
	"github.com/starford/graphgen/internal/graph"
)

// recorder is a generator that returns a canned reply and keeps the last request.
type recorder struct {
	reply string
	err   error
	calls int
	last  generator.Request
}

func (r *recorder) Generate(_ context.Context, req generator.Request) (string, error) {
	r.calls++
	r.last = req
	return r.reply, r.err
}

func newResolver(t *testing.T, gen generator.Generator) *Resolver {
	t.Helper()
	modes, err := directives.NewRegistry("")
	if err != nil {
		t.Fatal(err)
	}
	return New(gen, modes, slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func asAny(t *testing.T, s string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatal(err)
	}
	return v
}

const priorJSON = `{
	"nodes": [
		{"id": "1", "type": "default", "data": {"label": "A"}, "position": {"x": 0, "y": 0}},
		{"id": "2", "type": "default", "data": {"label": "B"}, "position": {"x": 0, "y": 100}}
	],
	"edges": [{"id": "e1-2", "source": "1", "target": "2", "directed": true}]
}`

const mergedJSON = `{
	"nodes": [
		{"id": "1", "type": "default", "data": {"label": "A"}, "position": {"x": 0, "y": 0}},
		{"id": "2", "type": "default", "data": {"label": "B"}, "position": {"x": 0, "y": 100}},
		{"id": "3", "type": "default", "data": {"label": "C"}, "position": {"x": 0, "y": 200}}
	],
	"edges": [
		{"id": "e1-2", "source": "1", "target": "2", "directed": true},
		{"id": "e2-3", "source": "2", "target": "3", "directed": true}
	]
}`

func TestStateFor(t *testing.T) {
	if s := StateFor(nil); s != StateFresh {
		t.Errorf("nil prior = %s", s)
	}
	empty := graph.Empty()
	if s := StateFor(&empty); s != StateFresh {
		t.Errorf("empty prior = %s", s)
	}
	one := graph.Graph{Nodes: []graph.Node{{ID: "1", Data: graph.NodeData{Label: "x"}}}}
	if s := StateFor(&one); s != StateUpdate {
		t.Errorf("one-node prior = %s", s)
	}
}

func TestResolve_FreshPassesInstructionVerbatim(t *testing.T) {
	gen := &recorder{reply: mergedJSON}
	r := newResolver(t, gen)

	res, err := r.Resolve(context.Background(), Request{Instruction: "login flow"})
	if err != nil {
		t.Fatal(err)
	}
	if res.State != StateFresh || res.Prior != nil {
		t.Errorf("state = %s, prior = %v", res.State, res.Prior)
	}
	if gen.last.Instruction != "login flow" {
		t.Errorf("instruction = %q, want verbatim prompt", gen.last.Instruction)
	}
	if strings.Contains(gen.last.System, "updating an existing diagram") {
		t.Error("fresh request should not carry update rules")
	}
	if len(gen.last.Schema) == 0 {
		t.Error("schema not sent")
	}
	if len(res.Graph.Nodes) != 3 {
		t.Errorf("nodes = %d", len(res.Graph.Nodes))
	}
}

func TestResolve_EmptyPriorIsFresh(t *testing.T) {
	gen := &recorder{reply: mergedJSON}
	r := newResolver(t, gen)

	res, err := r.Resolve(context.Background(), Request{Instruction: "x", Current: asAny(t, `{"nodes":[],"edges":[]}`)})
	if err != nil {
		t.Fatal(err)
	}
	if res.State != StateFresh {
		t.Errorf("state = %s, want fresh", res.State)
	}
	if gen.last.Instruction != "x" {
		t.Errorf("instruction = %q", gen.last.Instruction)
	}
}

func TestResolve_UpdateEmbedsPriorIDs(t *testing.T) {
	gen := &recorder{reply: mergedJSON}
	r := newResolver(t, gen)

	res, err := r.Resolve(context.Background(), Request{
		Instruction: "add a node C connected to 2",
		Current:     asAny(t, priorJSON),
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.State != StateUpdate {
		t.Fatalf("state = %s, want update", res.State)
	}
	for _, want := range []string{`"1"`, `"2"`, `"e1-2"`, "add a node C connected to 2"} {
		if !strings.Contains(gen.last.Instruction, want) {
			t.Errorf("context missing %s:\n%s", want, gen.last.Instruction)
		}
	}
	if !strings.Contains(gen.last.System, "FULL resulting diagram") {
		t.Error("update rules missing from system prompt")
	}
	for _, id := range []string{"1", "2", "3"} {
		if _, ok := res.Graph.Node(id); !ok {
			t.Errorf("result missing node %s", id)
		}
	}
	if res.Prior == nil || len(res.Prior.Nodes) != 2 {
		t.Errorf("prior = %+v", res.Prior)
	}
}

func TestResolve_ModeDefaultsToFlowchart(t *testing.T) {
	gen := &recorder{reply: mergedJSON}
	r := newResolver(t, gen)

	res, err := r.Resolve(context.Background(), Request{Instruction: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Mode != directives.ModeFlowchart {
		t.Errorf("mode = %q", res.Mode)
	}
	if !strings.Contains(gen.last.System, "Style (flowchart)") {
		t.Errorf("system prompt lacks flowchart style:\n%s", gen.last.System)
	}
	if strings.Contains(gen.last.System, "Style (system)") {
		t.Error("system style used without being requested")
	}
}

func TestResolve_SystemMode(t *testing.T) {
	gen := &recorder{reply: mergedJSON}
	r := newResolver(t, gen)

	res, err := r.Resolve(context.Background(), Request{Instruction: "x", Mode: "system"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Mode != directives.ModeSystem || !strings.Contains(gen.last.System, "Style (system)") {
		t.Errorf("mode = %q, system = %q", res.Mode, gen.last.System)
	}
}

func TestResolve_MalformedOutputDegrades(t *testing.T) {
	for _, reply := range []string{"", "sorry, I cannot draw that", `{"diagram": {}}`} {
		gen := &recorder{reply: reply}
		r := newResolver(t, gen)

		res, err := r.Resolve(context.Background(), Request{Instruction: "x"})
		if err != nil {
			t.Fatalf("reply %q: unexpected error %v", reply, err)
		}
		if !res.Degraded || res.Cause == nil {
			t.Errorf("reply %q: degraded = %v, cause = %v", reply, res.Degraded, res.Cause)
		}
		if res.Graph.Nodes == nil || len(res.Graph.Nodes) != 0 || len(res.Graph.Edges) != 0 {
			t.Errorf("reply %q: graph = %+v, want empty", reply, res.Graph)
		}
	}
}

func TestResolve_FencedOutputAccepted(t *testing.T) {
	gen := &recorder{reply: "```json\n" + mergedJSON + "\n```"}
	r := newResolver(t, gen)

	res, err := r.Resolve(context.Background(), Request{Instruction: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Degraded || len(res.Graph.Nodes) != 3 {
		t.Errorf("degraded = %v, nodes = %d", res.Degraded, len(res.Graph.Nodes))
	}
}

func TestResolve_GeneratorErrorsNotRetried(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"quota", fmt.Errorf("%w: slow down", apperr.ErrQuotaExceeded), apperr.ErrQuotaExceeded},
		{"failure", fmt.Errorf("%w: boom", apperr.ErrGenerationFailure), apperr.ErrGenerationFailure},
		{"untyped", errors.New("socket closed"), apperr.ErrGenerationFailure},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gen := &recorder{err: tc.err}
			r := newResolver(t, gen)

			res, err := r.Resolve(context.Background(), Request{Instruction: "x"})
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
			if res != nil {
				t.Errorf("no result should be fabricated, got %+v", res)
			}
			if gen.calls != 1 {
				t.Errorf("calls = %d, want 1", gen.calls)
			}
		})
	}
}

func TestResolve_InvalidPriorShapeRejected(t *testing.T) {
	gen := &recorder{reply: mergedJSON}
	r := newResolver(t, gen)

	_, err := r.Resolve(context.Background(), Request{Instruction: "x", Current: asAny(t, `{"vertices": []}`)})
	if !errors.Is(err, apperr.ErrInvalidRequest) {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
	if gen.calls != 0 {
		t.Error("generator should not be called for an invalid prior graph")
	}
}

func TestResolve_PriorRepairedBeforeEmbedding(t *testing.T) {
	gen := &recorder{reply: mergedJSON}
	r := newResolver(t, gen)

	prior := `{"nodes": [{"id": "1", "data": {"label": "A"}}], "edges": [{"id": "bad", "source": "1", "target": "404"}]}`
	res, err := r.Resolve(context.Background(), Request{Instruction: "x", Current: asAny(t, prior)})
	if err != nil {
		t.Fatal(err)
	}
	if res.PriorReport.Count(graph.RepairDanglingEdge) != 1 {
		t.Errorf("prior report = %s", res.PriorReport)
	}
	if strings.Contains(gen.last.Instruction, `"bad"`) {
		t.Error("dangling prior edge leaked into context")
	}
}

func TestBuildPrompt_FullGraphSerialized(t *testing.T) {
	g, _, err := graph.Validate(asAny(t, priorJSON))
	if err != nil {
		t.Fatal(err)
	}
	p, err := BuildPrompt("rename B", &g, StateUpdate)
	if err != nil {
		t.Fatal(err)
	}
	start := strings.Index(p, "```json\n") + len("```json\n")
	end := strings.Index(p[start:], "\n```")
	var embedded graph.Graph
	if err := json.Unmarshal([]byte(p[start:start+end]), &embedded); err != nil {
		t.Fatalf("embedded graph is not JSON: %v", err)
	}
	if len(embedded.Nodes) != 2 || len(embedded.Edges) != 1 {
		t.Errorf("embedded = %+v", embedded)
	}
}
