// Package resolver decides whether a request generates a fresh graph or
// updates the caller's graph, supplies the generator with the right context,
// and validates what comes back.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/graphgen/internal/apperr"
	"github.com/starford/graphgen/internal/directives"
	"github.com/starford/graphgen/internal/generator"
	"github.com/starford/graphgen/internal/graph"
)

// State is the per-request merge state.
type State string

const (
	StateFresh  State = "fresh"
	StateUpdate State = "update"
)

// StateFor selects Update only when a prior graph with at least one node is present.
func StateFor(prior *graph.Graph) State {
	if prior.IsEmpty() {
		return StateFresh
	}
	return StateUpdate
}

// Request is one generation request.
type Request struct {
	Instruction string
	Mode        string
	// Current is the caller's graph as untyped JSON data, or nil.
	Current any
}

// Result is the outcome of a resolved request.
type Result struct {
	Graph graph.Graph
	State State
	Mode  string
	// Report lists repairs applied to the generator output.
	Report graph.Report
	// PriorReport lists repairs applied to the caller's graph.
	PriorReport graph.Report
	// Prior is the validated caller graph, nil in Fresh state.
	Prior *graph.Graph
	// Degraded is set when the output could not be interpreted and Graph is empty.
	Degraded bool
	// Cause explains a degraded result.
	Cause error
}

// Resolver is stateless apart from its read-only collaborators.
type Resolver struct {
	gen    generator.Generator
	modes  *directives.Registry
	logger *slog.Logger
}

// New creates a Resolver.
func New(gen generator.Generator, modes *directives.Registry, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{gen: gen, modes: modes, logger: logger}
}

// Modes exposes the directive registry.
func (r *Resolver) Modes() *directives.Registry {
	return r.modes
}

// Resolve runs one request. Generator failures are returned as errors wrapping
// apperr.ErrQuotaExceeded or apperr.ErrGenerationFailure. Output that cannot be
// interpreted yields a degraded Result with an empty graph and a nil error.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Result, error) {
	d, known := r.modes.Lookup(req.Mode)
	if !known {
		r.logger.Warn("unknown mode, using default",
			slog.String("mode", req.Mode), slog.String("default", d.Name))
	}
	res := &Result{Mode: d.Name}

	prior, err := r.prior(req.Current, res)
	if err != nil {
		return nil, err
	}
	res.State = StateFor(prior)
	if res.State == StateUpdate {
		res.Prior = prior
	}

	instruction, err := BuildPrompt(req.Instruction, prior, res.State)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrGenerationFailure, err)
	}

	r.logger.Info("generating graph",
		slog.String("mode", res.Mode),
		slog.String("state", string(res.State)),
		slog.Int("prior_nodes", prior.Len()))

	text, err := r.gen.Generate(ctx, generator.Request{
		Instruction: instruction,
		System:      SystemPrompt(d, res.State),
		Schema:      graph.Schema(),
	})
	if err != nil {
		if !errors.Is(err, apperr.ErrQuotaExceeded) && !errors.Is(err, apperr.ErrGenerationFailure) {
			err = fmt.Errorf("%w: %v", apperr.ErrGenerationFailure, err)
		}
		r.logger.Error("generation failed", slog.String("error", err.Error()))
		return nil, err
	}
	r.logger.Debug("generator output", slog.String("text", text))

	parsed := graph.Parse(text)
	res.Report = parsed.Report
	if !parsed.OK() {
		r.logger.Error("generator output unusable, returning empty graph",
			slog.String("error", parsed.Err.Error()))
		res.Graph = graph.Empty()
		res.Degraded = true
		res.Cause = parsed.Err
		return res, nil
	}
	if !parsed.Report.Empty() {
		r.logger.Warn("repaired generator output",
			slog.Any("report", parsed.Report),
			slog.String("details", parsed.Report.String()))
	}
	res.Graph = parsed.Graph

	if res.State == StateUpdate {
		if missing := missingIDs(prior, &res.Graph); len(missing) > 0 {
			r.logger.Info("update removed prior nodes", slog.Any("ids", missing))
		}
	}
	return res, nil
}

// prior validates the caller's graph. A graph whose top-level shape is wrong is
// rejected as an invalid request; element-level problems are repaired.
func (r *Resolver) prior(current any, res *Result) (*graph.Graph, error) {
	if current == nil {
		return nil, nil
	}
	g, rep, err := graph.Validate(current)
	if err != nil {
		return nil, fmt.Errorf("%w: current_graph: %v", apperr.ErrInvalidRequest, err)
	}
	res.PriorReport = rep
	if !rep.Empty() {
		r.logger.Warn("repaired caller graph", slog.Any("report", rep))
	}
	return &g, nil
}

// missingIDs lists prior node ids absent from next.
func missingIDs(prior, next *graph.Graph) []string {
	have := make(map[string]struct{}, len(next.Nodes))
	for _, n := range next.Nodes {
		have[n.ID] = struct{}{}
	}
	var out []string
	for _, n := range prior.Nodes {
		if _, ok := have[n.ID]; !ok {
			out = append(out, n.ID)
		}
	}
	return out
}
