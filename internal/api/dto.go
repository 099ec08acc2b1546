package api

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/graphgen/internal/directives"
	"github.com/starford/graphgen/internal/history"
	"github.com/starford/graphgen/internal/resolver"
)

// GenerateRequest is the request body for POST /generate.
type GenerateRequest struct {
	Prompt string `json:"prompt" example:"User signs up, verifies email, logs in" validate:"required"`
	Mode   string `json:"mode,omitempty" example:"flowchart"`
	// CurrentGraph is kept untyped; the validator repairs it element by element.
	CurrentGraph any `json:"current_graph,omitempty"`
}

// Validate checks the request fields.
func (r *GenerateRequest) Validate() error {
	r.Prompt = strings.TrimSpace(r.Prompt)
	r.Mode = strings.TrimSpace(r.Mode)
	return validation.ValidateStruct(r,
		validation.Field(&r.Prompt, validation.Required.Error("prompt is required")),
		validation.Field(&r.Mode, validation.Length(0, 64)),
	)
}

func (r *GenerateRequest) toResolver() resolver.Request {
	return resolver.Request{Instruction: r.Prompt, Mode: r.Mode, Current: r.CurrentGraph}
}

// StatusResponse is returned by GET /.
type StatusResponse struct {
	Status  string `json:"status" example:"ok" validate:"required"`
	Service string `json:"service" example:"graphgen" validate:"required"`
}

// ModesResponse lists the generation modes.
type ModesResponse struct {
	Modes   []directives.Directive `json:"modes" validate:"required"`
	Default string                 `json:"default" example:"flowchart" validate:"required"`
}

// HistoryResponse wraps recent audit entries.
type HistoryResponse struct {
	Entries []history.Entry `json:"entries" validate:"required"`
}
