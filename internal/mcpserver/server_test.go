package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/graphgen/internal/apperr"
	"github.com/starford/graphgen/internal/flowservice"
	"github.com/starford/graphgen/internal/graph"
	"github.com/starford/graphgen/internal/testutil"
)

func testServer(t *testing.T, gen *testutil.StubGenerator) *Server {
	t.Helper()
	svc := flowservice.NewService(testutil.TestResolver(t, gen), flowservice.WithLogger(testutil.DiscardLogger()))
	return New(svc, "test")
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "generate_graph":
		result, err = srv.generateGraph(ctx, req)
	case "list_modes":
		result, err = srv.listModes(ctx, req)
	case "get_graph_schema":
		result, err = srv.getGraphSchema(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestGenerateGraph(t *testing.T) {
	gen := &testutil.StubGenerator{Reply: testutil.SampleGraph}
	srv := testServer(t, gen)

	r := callTool(t, srv, "generate_graph", map[string]interface{}{"prompt": "two steps", "mode": "system"})
	if r.IsError {
		t.Fatalf("unexpected error: %s", resultText(r))
	}
	var g graph.Graph
	if err := json.Unmarshal([]byte(resultText(r)), &g); err != nil {
		t.Fatalf("result is not a graph: %v", err)
	}
	if len(g.Nodes) != 2 || len(g.Edges) != 1 {
		t.Errorf("graph = %+v", g)
	}
	if !strings.Contains(gen.Last().System, "Style (system)") {
		t.Error("mode not forwarded")
	}
}

func TestGenerateGraph_Update(t *testing.T) {
	gen := &testutil.StubGenerator{Reply: testutil.SampleGraph}
	srv := testServer(t, gen)

	current := `{"nodes":[{"id":"1","data":{"label":"Start"}}],"edges":[]}`
	r := callTool(t, srv, "generate_graph", map[string]interface{}{"prompt": "add end", "current_graph": current})
	if r.IsError {
		t.Fatalf("unexpected error: %s", resultText(r))
	}
	if !strings.Contains(gen.Last().Instruction, `"1"`) {
		t.Errorf("update context missing prior id:\n%s", gen.Last().Instruction)
	}
}

func TestGenerateGraph_Errors(t *testing.T) {
	cases := []struct {
		name string
		gen  *testutil.StubGenerator
		args map[string]interface{}
	}{
		{"missing prompt", &testutil.StubGenerator{}, map[string]interface{}{}},
		{"bad current graph", &testutil.StubGenerator{}, map[string]interface{}{"prompt": "x", "current_graph": "{nope"}},
		{"quota", &testutil.StubGenerator{Err: apperr.ErrQuotaExceeded}, map[string]interface{}{"prompt": "x"}},
		{"failure", &testutil.StubGenerator{Err: errors.New("down")}, map[string]interface{}{"prompt": "x"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := callTool(t, testServer(t, tc.gen), "generate_graph", tc.args)
			if !r.IsError {
				t.Errorf("expected error result, got %s", resultText(r))
			}
		})
	}
}

func TestGenerateGraph_MalformedIsEmptyGraph(t *testing.T) {
	srv := testServer(t, &testutil.StubGenerator{Reply: "no json here"})
	r := callTool(t, srv, "generate_graph", map[string]interface{}{"prompt": "x"})
	if r.IsError {
		t.Fatalf("unexpected error: %s", resultText(r))
	}
	var g graph.Graph
	_ = json.Unmarshal([]byte(resultText(r)), &g)
	if len(g.Nodes) != 0 || len(g.Edges) != 0 {
		t.Errorf("graph = %+v, want empty", g)
	}
}

func TestListModes(t *testing.T) {
	srv := testServer(t, &testutil.StubGenerator{})
	text := resultText(callTool(t, srv, "list_modes", map[string]interface{}{}))
	if !strings.HasPrefix(text, "flowchart: ") || !strings.Contains(text, "\nsystem: ") {
		t.Errorf("list_modes = %q", text)
	}
}

func TestGetGraphSchema(t *testing.T) {
	srv := testServer(t, &testutil.StubGenerator{})
	text := resultText(callTool(t, srv, "get_graph_schema", map[string]interface{}{}))
	var schema map[string]any
	if err := json.Unmarshal([]byte(text), &schema); err != nil {
		t.Fatalf("schema is not JSON: %v", err)
	}
	if schema["type"] != "object" {
		t.Errorf("schema type = %v", schema["type"])
	}
}

func TestGraphFormatResource(t *testing.T) {
	srv := testServer(t, &testutil.StubGenerator{})
	contents, err := srv.readGraphFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != graphFormatURI || !strings.Contains(tc.Text, "parentId") {
		t.Errorf("contents = %+v", contents)
	}
}
