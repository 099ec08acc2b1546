// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes graph generation tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/graphgen/internal/apperr"
	"github.com/starford/graphgen/internal/directives"
	"github.com/starford/graphgen/internal/flowservice"
	"github.com/starford/graphgen/internal/graph"
	"github.com/starford/graphgen/internal/resolver"
)

const graphFormatURI = "graphgen://graph-format"

// Server wraps the MCP server with graph generation tools.
type Server struct {
	mcp *server.MCPServer
	svc *flowservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *flowservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Graphgen",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("generate_graph",
		mcp.WithDescription("Generate a node/edge diagram from a natural-language prompt. "+
			"Pass the diagram you already have as current_graph to update it instead; "+
			"the result is always the complete graph. See the "+graphFormatURI+" resource for the format."),
		mcp.WithString("prompt", mcp.Required(), mcp.Description("What to draw or change")),
		mcp.WithString("mode", mcp.Description("Generation mode (see list_modes); defaults to "+directives.DefaultMode)),
		mcp.WithString("current_graph", mcp.Description("Existing graph as a JSON string")),
	), s.generateGraph)

	s.mcp.AddTool(mcp.NewTool("list_modes",
		mcp.WithDescription("List the available generation modes."),
	), s.listModes)

	s.mcp.AddTool(mcp.NewTool("get_graph_schema",
		mcp.WithDescription("Returns the JSON Schema generator output is constrained to."),
	), s.getGraphSchema)

	s.mcp.AddResource(
		mcp.NewResource(graphFormatURI, "Graph Format Contract",
			mcp.WithResourceDescription("Node/edge JSON format returned by generate_graph."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readGraphFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) generateGraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prompt, err := req.RequireString("prompt")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	r := resolver.Request{Instruction: prompt}
	if mode, err := req.RequireString("mode"); err == nil {
		r.Mode = mode
	}
	if raw, err := req.RequireString("current_graph"); err == nil && strings.TrimSpace(raw) != "" {
		var current any
		if err := json.Unmarshal([]byte(raw), &current); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("current_graph is not valid JSON: %v", err)), nil
		}
		r.Current = current
	}

	res, err := s.svc.Generate(ctx, r)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrQuotaExceeded):
			return mcp.NewToolResultError("generation quota exceeded, try again later"), nil
		default:
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	out, err := json.MarshalIndent(res.Graph, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listModes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var b strings.Builder
	for _, d := range s.svc.Modes() {
		fmt.Fprintf(&b, "%s: %s\n", d.Name, d.Description)
	}
	return mcp.NewToolResultText(strings.TrimSuffix(b.String(), "\n")), nil
}

func (s *Server) getGraphSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(string(graph.Schema())), nil
}

func (s *Server) readGraphFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      graphFormatURI,
			MIMEType: "text/markdown",
			Text:     GraphFormatContract,
		},
	}, nil
}
