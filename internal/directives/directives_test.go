package directives

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLookup_DefaultsToFlowchart(t *testing.T) {
	r, err := NewRegistry("")
	if err != nil {
		t.Fatal(err)
	}
	for _, mode := range []string{"", "  "} {
		d, ok := r.Lookup(mode)
		if !ok || d.Name != ModeFlowchart {
			t.Errorf("Lookup(%q) = %q, %v; want flowchart, true", mode, d.Name, ok)
		}
	}
}

func TestLookup_UnknownFallsBack(t *testing.T) {
	r, _ := NewRegistry("")
	d, ok := r.Lookup("sequence")
	if ok {
		t.Error("unknown mode should report ok=false")
	}
	if d.Name != ModeFlowchart {
		t.Errorf("fallback = %q, want flowchart", d.Name)
	}
}

func TestLookup_CaseInsensitive(t *testing.T) {
	r, _ := NewRegistry("")
	d, ok := r.Lookup("System")
	if !ok || d.Name != ModeSystem {
		t.Errorf("got %q, %v", d.Name, ok)
	}
	if !strings.Contains(d.Instructions, "parentId") {
		t.Error("system directive should mention containment")
	}
}

func writeModes(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestNewRegistry_LoadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modes.yaml")
	writeModes(t, path, `
modes:
  MindMap:
    description: Radial idea map
    instructions: Use undirected edges from one central node.
  flowchart:
    description: Overridden
    instructions: Custom flow rules.
`)
	r, err := NewRegistry(path)
	if err != nil {
		t.Fatal(err)
	}
	d, ok := r.Lookup("mindmap")
	if !ok || d.Description != "Radial idea map" {
		t.Errorf("mindmap = %+v, %v", d, ok)
	}
	if d, _ := r.Lookup(""); d.Instructions != "Custom flow rules." {
		t.Errorf("flowchart override not applied: %q", d.Instructions)
	}
	if _, ok := r.Lookup("system"); !ok {
		t.Error("built-in system mode lost")
	}
	if n := len(r.List()); n != 3 {
		t.Errorf("List() len = %d, want 3", n)
	}
}

func TestNewRegistry_RejectsEmptyInstructions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modes.yaml")
	writeModes(t, path, "modes:\n  broken:\n    description: nothing\n")
	if _, err := NewRegistry(path); err == nil {
		t.Fatal("expected error for mode without instructions")
	}
}

func TestReload_KeepsPreviousOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modes.yaml")
	writeModes(t, path, "modes:\n  extra:\n    instructions: x\n")
	r, err := NewRegistry(path)
	if err != nil {
		t.Fatal(err)
	}
	writeModes(t, path, "modes: [not, a, map")
	if err := r.Reload(); err == nil {
		t.Fatal("expected parse error")
	}
	if _, ok := r.Lookup("extra"); !ok {
		t.Error("previous table should survive a failed reload")
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modes.yaml")
	writeModes(t, path, "modes:\n  first:\n    instructions: one\n")
	r, err := NewRegistry(path)
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = Watch(ctx, r, logger)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	time.Sleep(100 * time.Millisecond)
	writeModes(t, path, "modes:\n  second:\n    instructions: two\n")

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := r.Lookup("second"); ok {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Error("registry was not reloaded after file write")
}

func TestWatch_NoFileReturnsImmediately(t *testing.T) {
	r, _ := NewRegistry("")
	if err := Watch(context.Background(), r, slog.Default()); err != nil {
		t.Errorf("Watch = %v", err)
	}
}
