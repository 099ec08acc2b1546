// Package flowservice runs graph generation requests for the HTTP and MCP
// surfaces and records their outcome.
package flowservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/graphgen/internal/apperr"
	"github.com/starford/graphgen/internal/checksum"
	"github.com/starford/graphgen/internal/directives"
	"github.com/starford/graphgen/internal/graph"
	"github.com/starford/graphgen/internal/history"
	"github.com/starford/graphgen/internal/metrics"
	"github.com/starford/graphgen/internal/resolver"
)

// Service coordinates the resolver, metrics and audit history.
type Service struct {
	resolver *resolver.Resolver
	recorder history.Recorder
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder enables the audit history.
func WithRecorder(r history.Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithMetrics enables Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a new generation service.
func NewService(r *resolver.Resolver, opts ...Option) *Service {
	s := &Service{resolver: r, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate validates the request and resolves it into a graph.
func (s *Service) Generate(ctx context.Context, req resolver.Request) (*resolver.Result, error) {
	if strings.TrimSpace(req.Instruction) == "" {
		return nil, fmt.Errorf("%w: prompt is required", apperr.ErrInvalidRequest)
	}
	s.logger.Debug("generate request",
		slog.String("prompt", truncate(req.Instruction, 200)),
		slog.String("mode", req.Mode),
		slog.Bool("has_current_graph", req.Current != nil))

	start := s.now()
	res, err := s.resolver.Resolve(ctx, req)
	elapsed := s.now().Sub(start)

	outcome := outcomeOf(res, err)
	// Label by the resolved mode so unknown names never become series.
	d, _ := s.resolver.Modes().Lookup(req.Mode)
	mode, state := d.Name, ""
	if res != nil {
		mode, state = res.Mode, string(res.State)
		for kind, n := range res.Report.ByKind() {
			s.metrics.ObserveRepairs(string(kind), n)
		}
	}
	s.metrics.ObserveRequest(mode, state, outcome, elapsed)
	s.record(ctx, req, res, err, mode, state, outcome, elapsed)

	return res, err
}

// Modes lists the available generation modes.
func (s *Service) Modes() []directives.Directive {
	return s.resolver.Modes().List()
}

// Recent returns the newest audit entries. It fails with apperr.ErrNotFound
// when history is disabled.
func (s *Service) Recent(ctx context.Context, limit int) ([]history.Entry, error) {
	if s.recorder == nil {
		return nil, fmt.Errorf("%w: history is disabled", apperr.ErrNotFound)
	}
	return s.recorder.Recent(ctx, limit)
}

// HistoryEnabled reports whether an audit recorder is configured.
func (s *Service) HistoryEnabled() bool {
	return s.recorder != nil
}

func (s *Service) record(ctx context.Context, req resolver.Request, res *resolver.Result, genErr error,
	mode, state, outcome string, elapsed time.Duration,
) {
	if s.recorder == nil {
		return
	}
	e := history.Entry{
		Mode:           mode,
		State:          state,
		Outcome:        outcome,
		PromptChecksum: checksum.Sum([]byte(req.Instruction)),
		DurationMS:     elapsed.Milliseconds(),
	}
	if genErr != nil {
		e.Error = genErr.Error()
	}
	if res != nil {
		e.Nodes = len(res.Graph.Nodes)
		e.Edges = len(res.Graph.Edges)
		e.Repairs = len(res.Report.Repairs)
		if res.Cause != nil {
			e.Error = res.Cause.Error()
		}
		e.ResultChecksum = sumGraph(s.logger, &res.Graph)
		if res.Prior != nil {
			e.PriorChecksum = sumGraph(s.logger, res.Prior)
		}
	}
	// Recording must not outlive or fail the request.
	if _, err := s.recorder.Record(context.WithoutCancel(ctx), e); err != nil {
		s.logger.Warn("history record failed", slog.String("error", err.Error()))
	}
}

func sumGraph(logger *slog.Logger, g *graph.Graph) string {
	sum, err := checksum.SumJSON(g)
	if err != nil {
		logger.Warn("graph checksum failed", slog.String("error", err.Error()))
	}
	return sum
}

func outcomeOf(res *resolver.Result, err error) string {
	switch {
	case errors.Is(err, apperr.ErrQuotaExceeded):
		return history.OutcomeQuota
	case errors.Is(err, apperr.ErrInvalidRequest):
		return history.OutcomeInvalid
	case err != nil:
		return history.OutcomeFailure
	case res.Degraded:
		return history.OutcomeDegraded
	default:
		return history.OutcomeOK
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
