// Package directives holds the style instructions attached to each generation
// mode. Built-in modes can be extended or overridden from a YAML file.
package directives

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Built-in mode names.
const (
	ModeFlowchart = "flowchart"
	ModeSystem    = "system"

	DefaultMode = ModeFlowchart
)

// Directive is the style guidance for one mode.
type Directive struct {
	Name         string `yaml:"-" json:"name"`
	Description  string `yaml:"description" json:"description"`
	Instructions string `yaml:"instructions" json:"-"`
}

// fileFormat is the on-disk YAML layout:
//
//	modes:
//	  mindmap:
//	    description: Radial idea map
//	    instructions: |
//	      ...
type fileFormat struct {
	Modes map[string]Directive `yaml:"modes"`
}

var builtins = map[string]Directive{
	ModeFlowchart: {
		Name:        ModeFlowchart,
		Description: "Step-by-step process flow",
		Instructions: `Draw a step-by-step process.
- Use "default" nodes; one node per step or decision.
- Connect consecutive steps with directed edges (directed: true).
- Label decision branches on the edge (e.g. "yes", "no").
- Lay nodes out top to bottom, roughly 100 units apart on y.
- Use undirected edges (directed: false) only for mind-map style associations.`,
	},
	ModeSystem: {
		Name:        ModeSystem,
		Description: "Containment hierarchy of system components",
		Instructions: `Draw a system architecture.
- Model each cluster, tier or boundary as a "group" node.
- Place components inside their group by setting parentId to the group id; positions of
  children are relative to the group.
- Use "smart" nodes for components that need a description and put it in data.body.
- Edges connect components, never groups; label them with the protocol or data exchanged.
- Use data.backgroundColor to distinguish external systems.`,
	},
}

// Registry resolves mode names to directives. It is safe for concurrent use;
// Reload swaps the whole table at once.
type Registry struct {
	mu    sync.RWMutex
	modes map[string]Directive
	path  string
}

// NewRegistry returns a registry with the built-in modes. If path is not
// empty the file is loaded on top of them.
func NewRegistry(path string) (*Registry, error) {
	r := &Registry{modes: cloneBuiltins(), path: path}
	if path == "" {
		return r, nil
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Path returns the override file path, if any.
func (r *Registry) Path() string {
	return r.path
}

// Reload re-reads the override file. On error the current table is kept.
func (r *Registry) Reload() error {
	if r.path == "" {
		return nil
	}
	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("directives: read %s: %w", r.path, err)
	}
	modes, err := parse(data)
	if err != nil {
		return fmt.Errorf("directives: parse %s: %w", r.path, err)
	}
	r.mu.Lock()
	r.modes = modes
	r.mu.Unlock()
	return nil
}

func parse(data []byte) (map[string]Directive, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	modes := cloneBuiltins()
	for name, d := range f.Modes {
		name = normalizeName(name)
		if name == "" {
			return nil, fmt.Errorf("mode with empty name")
		}
		if strings.TrimSpace(d.Instructions) == "" {
			return nil, fmt.Errorf("mode %q has no instructions", name)
		}
		d.Name = name
		modes[name] = d
	}
	return modes, nil
}

// Lookup returns the directive for mode. An empty mode resolves to the
// default; an unknown mode reports ok=false and returns the default.
func (r *Registry) Lookup(mode string) (Directive, bool) {
	name := normalizeName(mode)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name == "" {
		return r.modes[DefaultMode], true
	}
	if d, ok := r.modes[name]; ok {
		return d, true
	}
	return r.modes[DefaultMode], false
}

// List returns all directives sorted by name.
func (r *Registry) List() []Directive {
	r.mu.RLock()
	out := make([]Directive, 0, len(r.modes))
	for _, d := range r.modes {
		out = append(out, d)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func cloneBuiltins() map[string]Directive {
	m := make(map[string]Directive, len(builtins))
	for k, v := range builtins {
		m[k] = v
	}
	return m
}
