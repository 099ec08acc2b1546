package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/starford/graphgen/internal/apperr"
)

// GeminiBaseURL is Google's OpenAI-compatible endpoint.
const GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"

// Options configures an OpenAI-compatible client.
type Options struct {
	APIKey  string
	BaseURL string
	Model   string
	// Timeout bounds a single Generate call. Zero means no extra bound beyond ctx.
	Timeout time.Duration
	// SchemaName labels the structured-output schema in requests.
	SchemaName string
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// OpenAI talks to any OpenAI-compatible chat completions API. It is built once
// at startup and shared read-only by all requests.
type OpenAI struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	schema  string
}

// NewOpenAI creates the client.
func NewOpenAI(opts Options) (*OpenAI, error) {
	if opts.APIKey == "" {
		return nil, errors.New("generator: api key is required")
	}
	if opts.Model == "" {
		return nil, errors.New("generator: model is required")
	}
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}
	name := opts.SchemaName
	if name == "" {
		name = "graph"
	}
	slog.Info("Initializing generator client",
		slog.String("base_url", cfg.BaseURL),
		slog.String("model", opts.Model))
	return &OpenAI{
		client:  openai.NewClientWithConfig(cfg),
		model:   opts.Model,
		timeout: opts.Timeout,
		schema:  name,
	}, nil
}

// Generate implements Generator. An empty completion is returned as "" with a
// nil error; interpreting it is the caller's job.
func (o *OpenAI) Generate(ctx context.Context, req Request) (string, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	creq := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.Instruction},
		},
	}
	if len(req.Schema) > 0 {
		creq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   o.schema,
				Schema: req.Schema,
			},
		}
	} else {
		creq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	slog.Debug("Generating graph", slog.String("model", o.model))
	resp, err := o.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		slog.Warn("generator returned no choices", slog.String("model", o.model))
		return "", nil
	}
	slog.Debug("Received generator response",
		slog.String("finish_reason", string(resp.Choices[0].FinishReason)))
	return resp.Choices[0].Message.Content, nil
}

// quotaMarkers are provider error codes and types that mean rate or quota limiting.
var quotaMarkers = []string{"resource_exhausted", "insufficient_quota", "rate_limit"}

// classify maps a client error onto the apperr taxonomy.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests || hasQuotaMarker(apiErr.Type, fmt.Sprint(apiErr.Code)) {
			return fmt.Errorf("%w: %s", apperr.ErrQuotaExceeded, apiErr.Message)
		}
		return fmt.Errorf("%w: provider returned %d: %s", apperr.ErrGenerationFailure, apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%w: provider returned 429", apperr.ErrQuotaExceeded)
		}
		return fmt.Errorf("%w: request failed with %d: %v", apperr.ErrGenerationFailure, reqErr.HTTPStatusCode, reqErr.Err)
	}
	return fmt.Errorf("%w: %v", apperr.ErrGenerationFailure, err)
}

func hasQuotaMarker(values ...string) bool {
	for _, v := range values {
		v = strings.ToLower(v)
		for _, m := range quotaMarkers {
			if strings.Contains(v, m) {
				return true
			}
		}
	}
	return false
}
