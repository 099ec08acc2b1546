// Package generator defines the text-generation collaborator used to author
// graphs, and its OpenAI-compatible implementation.
package generator

import (
	"context"
	"encoding/json"
)

// Request is one generation call.
type Request struct {
	// Instruction is the user-facing prompt, including any prior-graph context.
	Instruction string
	// System carries the graph contract and mode style directives.
	System string
	// Schema is the JSON schema the output must follow.
	Schema json.RawMessage
}

// Generator produces text for a request. Implementations must return errors
// wrapping apperr.ErrQuotaExceeded or apperr.ErrGenerationFailure and must not
// retry internally.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Func adapts a function to the Generator interface.
type Func func(ctx context.Context, req Request) (string, error)

// Generate calls f.
func (f Func) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
