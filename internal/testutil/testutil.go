// Package testutil provides shared test helpers for generators, resolvers and databases.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/starford/graphgen/internal/directives"
	"github.com/starford/graphgen/internal/generator"
	"github.com/starford/graphgen/internal/history"
	"github.com/starford/graphgen/internal/resolver"
)

// TestDB creates a temporary SQLite history database that is automatically cleaned up.
func TestDB(t *testing.T) *history.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "graphgen-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := history.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// StubGenerator returns a fixed reply or error and remembers requests.
type StubGenerator struct {
	Reply string
	Err   error

	mu       sync.Mutex
	requests []generator.Request
}

// Generate implements generator.Generator.
func (s *StubGenerator) Generate(_ context.Context, req generator.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	return s.Reply, s.Err
}

// Calls returns the number of Generate calls.
func (s *StubGenerator) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Last returns the most recent request.
func (s *StubGenerator) Last() generator.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return generator.Request{}
	}
	return s.requests[len(s.requests)-1]
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// TestResolver builds a resolver over gen with the built-in modes.
func TestResolver(t *testing.T, gen generator.Generator) *resolver.Resolver {
	t.Helper()
	modes, err := directives.NewRegistry("")
	if err != nil {
		t.Fatal(err)
	}
	return resolver.New(gen, modes, DiscardLogger())
}

// SampleGraph is a valid two-node generator reply.
const SampleGraph = `{
	"nodes": [
		{"id": "1", "type": "default", "data": {"label": "Start"}, "position": {"x": 0, "y": 0}},
		{"id": "2", "type": "default", "data": {"label": "End"}, "position": {"x": 0, "y": 100}}
	],
	"edges": [{"id": "e1-2", "source": "1", "target": "2", "directed": true}],
	"explanation": "A two step flow."
}`

// JSONLogger returns a debug-level JSON logger writing to w.
func JSONLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
